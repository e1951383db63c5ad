// Package models contains the view-models consumed from the REST API and the socket server.
package models

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// ID is a server-assigned identifier. The API is inconsistent about whether ids
// travel as JSON numbers or strings, so ID accepts both and keeps the text form.
type ID string

// UnmarshalJSON accepts a JSON string, number, or null.
func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

// MarshalJSON writes integer ids as numbers and everything else as strings,
// which is what the server expects on emits.
func (id ID) MarshalJSON() ([]byte, error) {
	if id.IsNumeric() {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

// IsNumeric reports whether the id is a base-10 unsigned integer in canonical
// form. "05" is not numeric, since it cannot be written as a JSON number.
func (id ID) IsNumeric() bool {
	if id == "" {
		return false
	}
	n, err := strconv.ParseUint(string(id), 10, 64)
	return err == nil && strconv.FormatUint(n, 10) == string(id)
}

// String returns the text form.
func (id ID) String() string { return string(id) }

// Empty reports whether no id is set.
func (id ID) Empty() bool { return id == "" }
