package pgwire

import (
	"github.com/cordeliadb/pgwire/pkg/buffer"
	"github.com/cordeliadb/pgwire/pkg/types"
	"github.com/lib/pq/oid"
)

// ColumnDescriptor describes one result column, as reported by
// RowDescription.
type ColumnDescriptor struct {
	Name       string
	TableOID   int32
	AttrNum    int16
	TypeOID    oid.Oid
	TypeLength int16
	TypeMod    int32
	Format     types.FormatCode
}

// RowDescription reports the shape of the rows a query or portal will yield.
type RowDescription struct {
	Columns []ColumnDescriptor
}

func (m *RowDescription) Events() []Event { return []Event{EventRowDescription} }

func decodeRowDescription(payload []byte) (Message, error) {
	reader := buffer.NewReader(payload)
	n, err := reader.GetUint16()
	if err != nil {
		return nil, err
	}

	columns := make([]ColumnDescriptor, n)
	for i := range columns {
		name, err := reader.GetString()
		if err != nil {
			return nil, err
		}

		tableOID, err := reader.GetInt32()
		if err != nil {
			return nil, err
		}

		attrNum, err := reader.GetInt16()
		if err != nil {
			return nil, err
		}

		typeOID, err := reader.GetInt32()
		if err != nil {
			return nil, err
		}

		typeLength, err := reader.GetInt16()
		if err != nil {
			return nil, err
		}

		typeMod, err := reader.GetInt32()
		if err != nil {
			return nil, err
		}

		format, err := reader.GetInt16()
		if err != nil {
			return nil, err
		}

		columns[i] = ColumnDescriptor{
			Name:       name,
			TableOID:   tableOID,
			AttrNum:    attrNum,
			TypeOID:    oid.Oid(typeOID),
			TypeLength: typeLength,
			TypeMod:    typeMod,
			Format:     types.FormatCode(format),
		}
	}

	return &RowDescription{Columns: columns}, nil
}

// ParameterDescription reports the inferred parameter types of a described
// prepared statement, in $1.. order.
type ParameterDescription struct {
	OIDs []oid.Oid
}

func (m *ParameterDescription) Events() []Event { return []Event{EventParameterDescription} }

func decodeParameterDescription(payload []byte) (Message, error) {
	reader := buffer.NewReader(payload)
	n, err := reader.GetUint16()
	if err != nil {
		return nil, err
	}

	oids := make([]oid.Oid, n)
	for i := range oids {
		raw, err := reader.GetInt32()
		if err != nil {
			return nil, err
		}
		oids[i] = oid.Oid(raw)
	}

	return &ParameterDescription{OIDs: oids}, nil
}

// DataRow carries one row's worth of values, each either raw (still
// wire-encoded, text format unless the portal requested binary) or nil for
// SQL NULL.
type DataRow struct {
	Values [][]byte
}

func (m *DataRow) Events() []Event { return []Event{EventDataRow} }

func decodeDataRow(payload []byte) (Message, error) {
	reader := buffer.NewReader(payload)
	n, err := reader.GetUint16()
	if err != nil {
		return nil, err
	}

	values := make([][]byte, n)
	for i := range values {
		length, err := reader.GetInt32()
		if err != nil {
			return nil, err
		}

		if length == -1 {
			values[i] = nil
			continue
		}

		value, err := reader.GetBytes(int(length))
		if err != nil {
			return nil, err
		}

		values[i] = append([]byte(nil), value...)
	}

	return &DataRow{Values: values}, nil
}
