package models

import (
	"bytes"
	"encoding/json"
)

// LooseString is a JSON field that may arrive as a string or a bare number.
// Discord's v10 API sends permission bitmasks as decimal strings and overwrite
// types as numbers, but older backup exports mix both encodings freely.
type LooseString string

func (s *LooseString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	if data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = LooseString(v)
		return nil
	}
	*s = LooseString(data)
	return nil
}

func (s LooseString) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(s))
}

func (s LooseString) String() string { return string(s) }

// Overwrite is a per-channel permission override scoped to a role or member.
// Type is 0 (role) or 1 (member) on the wire; legacy data also uses the
// strings "role" and "member". permissions.Classify normalizes it.
type Overwrite struct {
	ID    string      `json:"id"`
	Type  LooseString `json:"type"`
	Allow LooseString `json:"allow"`
	Deny  LooseString `json:"deny"`
}
