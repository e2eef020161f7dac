package pgwire

import (
	"log/slog"

	"github.com/jackc/pgx/v5/pgtype"
)

// config collects the settings Dial needs before it opens a connection.
// It is never exposed directly; callers build it via DialOption.
type config struct {
	logger   *slog.Logger
	user     string
	password string
	database string
	typeMap  *pgtype.Map
}

func defaultConfig() *config {
	return &config{
		logger: slog.Default(),
		user:   "postgres",
	}
}

// DialOption configures a connection at Dial time.
type DialOption func(*config)

// WithLogger sets the logger used for connection-lifecycle diagnostics.
// Defaults to slog.Default().
func WithLogger(logger *slog.Logger) DialOption {
	return func(cfg *config) {
		cfg.logger = logger
	}
}

// WithUser sets the startup user name. Defaults to "postgres".
func WithUser(user string) DialOption {
	return func(cfg *config) {
		cfg.user = user
	}
}

// WithPassword sets the password offered in response to a cleartext or MD5
// authentication request.
func WithPassword(password string) DialOption {
	return func(cfg *config) {
		cfg.password = password
	}
}

// WithDatabase sets the startup database parameter. If unset, the backend
// defaults it to the connecting user's name.
func WithDatabase(database string) DialOption {
	return func(cfg *config) {
		cfg.database = database
	}
}

// WithTypeMap attaches a pgtype.Map a caller can later retrieve from Conn to
// translate a Result's raw column bytes into native Go values. The engine
// itself never consults m: text-to-native decoding is the Datatype layer's
// contract, kept abstract per this package's scope, and m is carried only
// so callers don't have to thread their own pgtype.Map alongside a Conn.
func WithTypeMap(m *pgtype.Map) DialOption {
	return func(cfg *config) {
		cfg.typeMap = m
	}
}
