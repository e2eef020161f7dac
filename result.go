package pgwire

import "github.com/lib/pq/oid"

// Result accumulates one statement's worth of backend responses: its
// column shape (if any), the parameter types the backend inferred (set only
// for a described prepared statement), the rows as they arrive, any notices
// raised along the way, and the completion tag once the backend is done.
// Finish assigns Tag, after which the Result is finalized: further appends
// belong to a fresh Result within the owning ResultGroup.
type Result struct {
	Columns           []ColumnDescriptor
	ParameterOIDs     []oid.Oid
	Rows              [][][]byte
	Notices           []NoticeResponse
	Tag               string
	ProcessedRowCount int64
	hasRowCount       bool
}

// Finalized reports whether Finish has assigned this Result a non-empty tag;
// Finish("") (an EmptyQueryResponse) leaves it unfinalized.
func (r *Result) Finalized() bool {
	return r.Tag != ""
}

// SetColumns records the column shape reported by a RowDescription.
func (r *Result) SetColumns(columns []ColumnDescriptor) {
	r.Columns = columns
}

// SetParameterOIDs records the parameter types reported by a
// ParameterDescription.
func (r *Result) SetParameterOIDs(oids []oid.Oid) {
	r.ParameterOIDs = oids
}

// AppendRow records one DataRow's worth of raw column values.
func (r *Result) AppendRow(values [][]byte) {
	r.Rows = append(r.Rows, values)
}

// AddNotice records a NoticeResponse; notices never fail a waiter.
func (r *Result) AddNotice(notice NoticeResponse) {
	r.Notices = append(r.Notices, notice)
}

// Finish assigns the completion tag and, when the tag carries a trailing row
// count (e.g. "DELETE 10"), records it in ProcessedRowCount. A tag with no
// trailing count (e.g. "SELECT") leaves ProcessedRowCount unset.
func (r *Result) Finish(tag string) {
	r.Tag = tag

	cc := CommandComplete{Tag: tag}
	if count, ok := cc.RowCount(); ok {
		r.ProcessedRowCount = count
		r.hasRowCount = true
	}
}

// RowCount reports the row count Finish parsed out of the tag, if any.
func (r *Result) RowCount() (count int64, ok bool) {
	return r.ProcessedRowCount, r.hasRowCount
}

// ResultGroup composes the Results produced by a single submission: exactly
// one for an extended-query Execute, or one per semicolon-separated
// statement for a Simple Query. Current always points at the last element;
// all but the last are finalized.
type ResultGroup struct {
	Results []*Result
}

// NewResultGroup constructs a ResultGroup seeded with one empty, unfinalized
// Result — the invariant that at least one Result always exists.
func NewResultGroup() *ResultGroup {
	return &ResultGroup{Results: []*Result{{}}}
}

// Current returns the Result currently accepting appends, pushing a fresh
// one first if the last Result has already been finalized (a new
// RowDescription/CommandComplete pair in a multi-statement Simple Query
// starts a new member of the group).
func (g *ResultGroup) Current() *Result {
	last := g.Results[len(g.Results)-1]
	if last.Finalized() {
		last = &Result{}
		g.Results = append(g.Results, last)
	}

	return last
}

// Notices returns every notice recorded across every Result in the group,
// in arrival order. Notices append to whichever Result is current at the
// time they arrive, so order is preserved per-Result; across Results this
// concatenates in group order.
func (g *ResultGroup) Notices() []NoticeResponse {
	var notices []NoticeResponse
	for _, r := range g.Results {
		notices = append(notices, r.Notices...)
	}

	return notices
}
