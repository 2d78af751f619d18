package warehouse

import (
	"bytes"
	"encoding/json"
)

// Field is one column of a materialized row.
type Field struct {
	Name  string
	Value any
}

// Row is an ordered mapping from column name to scalar value. Drivers may
// report the same column name more than once; such a name keeps the position
// of its first occurrence and the value of its last.
type Row struct {
	fields []Field
}

func NewRow(columns []string, values []any) Row {
	fields := make([]Field, 0, len(columns))
	for i, name := range columns {
		var value any
		if i < len(values) {
			value = values[i]
		}
		if idx := indexOf(fields, name); idx >= 0 {
			fields[idx].Value = value
			continue
		}
		fields = append(fields, Field{Name: name, Value: value})
	}
	return Row{fields: fields}
}

func (r Row) Get(name string) (any, bool) {
	idx := indexOf(r.fields, name)
	if idx < 0 {
		return nil, false
	}
	return r.fields[idx].Value, true
}

func (r Row) Columns() []string {
	names := make([]string, len(r.fields))
	for i, field := range r.fields {
		names[i] = field.Name
	}
	return names
}

func (r Row) Fields() []Field {
	out := make([]Field, len(r.fields))
	copy(out, r.fields)
	return out
}

func (r Row) Len() int {
	return len(r.fields)
}

// MarshalJSON encodes the row as a JSON object preserving column order.
func (r Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, field := range r.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(field.Name)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(field.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func indexOf(fields []Field, name string) int {
	for i, field := range fields {
		if field.Name == name {
			return i
		}
	}
	return -1
}
