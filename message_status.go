package pgwire

import (
	"github.com/cordeliadb/pgwire/pkg/buffer"
	"github.com/cordeliadb/pgwire/pkg/types"
)

// BackendKeyData hands the client the process ID and secret key it must
// present in a CancelRequest to abort this connection's current command.
type BackendKeyData struct {
	PID    uint32
	Secret uint32
}

func (m *BackendKeyData) Events() []Event { return []Event{EventBackendKeyData} }

func decodeBackendKeyData(payload []byte) (Message, error) {
	reader := buffer.NewReader(payload)
	pid, err := reader.GetUint32()
	if err != nil {
		return nil, err
	}

	secret, err := reader.GetUint32()
	if err != nil {
		return nil, err
	}

	return &BackendKeyData{PID: pid, Secret: secret}, nil
}

// ParameterStatus reports a runtime server parameter (e.g. server_version,
// TimeZone), sent at startup and whenever the value changes.
type ParameterStatus struct {
	Name  string
	Value string
}

func (m *ParameterStatus) Events() []Event { return []Event{EventParameterStatus} }

func decodeParameterStatus(payload []byte) (Message, error) {
	reader := buffer.NewReader(payload)
	name, err := reader.GetString()
	if err != nil {
		return nil, err
	}

	value, err := reader.GetString()
	if err != nil {
		return nil, err
	}

	return &ParameterStatus{Name: name, Value: value}, nil
}

// ReadyForQuery marks the backend idle and ready for a new command; Status
// reports whether a transaction block is open or failed.
type ReadyForQuery struct {
	Status types.TransactionStatus
}

func (m *ReadyForQuery) Events() []Event { return []Event{EventReadyForQuery} }

func decodeReadyForQuery(payload []byte) (Message, error) {
	reader := buffer.NewReader(payload)
	status, err := reader.GetByte()
	if err != nil {
		return nil, err
	}

	return &ReadyForQuery{Status: types.TransactionStatus(status)}, nil
}
