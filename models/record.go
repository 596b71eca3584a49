package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// IDField is the name of the identifier attribute in records and snapshots
const IDField = "rowNumber"

// ErrMalformedSnapshot is returned when a stored snapshot cannot be decoded
var ErrMalformedSnapshot = errors.New("malformed record snapshot")

// Record is one directory entry: a stable identifier plus an open-ended,
// ordered set of nullable text attributes. The attribute set follows the
// live table schema, not a fixed struct.
type Record struct {
	ID      int64
	columns []string
	values  map[string]*string
}

// NewRecord returns an empty record for id, the shape returned for soft misses
func NewRecord(id int64) *Record {
	return &Record{ID: id, values: make(map[string]*string)}
}

// Set assigns an attribute, appending the column on first use
func (r *Record) Set(column string, value *string) {
	if column == IDField {
		return
	}
	if _, ok := r.values[column]; !ok {
		r.columns = append(r.columns, column)
	}
	r.values[column] = value
}

// Value returns the raw attribute, nil when NULL or absent
func (r *Record) Value(column string) *string {
	return r.values[column]
}

// Get returns the attribute as a string and whether it is present and non-NULL
func (r *Record) Get(column string) (string, bool) {
	v := r.values[column]
	if v == nil {
		return "", false
	}
	return *v, true
}

// Has reports whether the record carries the column at all
func (r *Record) Has(column string) bool {
	_, ok := r.values[column]
	return ok
}

// Columns returns attribute names in order, excluding the identifier
func (r *Record) Columns() []string {
	out := make([]string, len(r.columns))
	copy(out, r.columns)
	return out
}

// Values returns a copy of the attributes, excluding the identifier
func (r *Record) Values() Values {
	out := make(Values, len(r.values))
	for k, v := range r.values {
		out[k] = v
	}
	return out
}

// MarshalJSON encodes the record as a flat object, identifier first, in column order
func (r *Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"` + IDField + `":`)
	buf.WriteString(strconv.FormatInt(r.ID, 10))
	for _, col := range r.columns {
		key, err := json.Marshal(col)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(r.values[col])
		if err != nil {
			return nil, err
		}
		buf.WriteByte(',')
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a flat object keeping key order. Scalars of any JSON
// type are stored as text; nested objects or arrays are rejected.
func (r *Record) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("record must be a JSON object")
	}

	*r = Record{values: make(map[string]*string)}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key := tok.(string)

		tok, err = dec.Token()
		if err != nil {
			return err
		}
		if d, ok := tok.(json.Delim); ok {
			return fmt.Errorf("field %q: unexpected %v", key, d)
		}

		if key == IDField {
			id, err := parseID(tok)
			if err != nil {
				return err
			}
			r.ID = id
			continue
		}
		r.Set(key, scalarText(tok))
	}

	if _, err := dec.Token(); err != nil {
		return err
	}
	if _, err := dec.Token(); err != io.EOF {
		return fmt.Errorf("trailing data after record")
	}
	return nil
}

// Snapshot serializes the full record for the audit log
func (r *Record) Snapshot() (string, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ParseSnapshot decodes a stored snapshot
func ParseSnapshot(s string) (*Record, error) {
	if strings.TrimSpace(s) == "" {
		return nil, ErrMalformedSnapshot
	}
	var r Record
	if err := json.Unmarshal([]byte(s), &r); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSnapshot, err)
	}
	return &r, nil
}

func parseID(tok json.Token) (int64, error) {
	switch v := tok.(type) {
	case json.Number:
		if id, err := v.Int64(); err == nil {
			return id, nil
		}
		f, err := v.Float64()
		if err != nil {
			return 0, err
		}
		return int64(f), nil
	case string:
		return strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	case nil:
		return 0, nil
	}
	return 0, fmt.Errorf("invalid %s: %v", IDField, tok)
}

func scalarText(tok json.Token) *string {
	switch v := tok.(type) {
	case nil:
		return nil
	case string:
		return &v
	case json.Number:
		s := v.String()
		return &s
	case bool:
		s := strconv.FormatBool(v)
		return &s
	}
	s := fmt.Sprint(tok)
	return &s
}
