package models

import "encoding/json"

// Change is the before/after value of one store key. A nil side means the
// key was absent.
type Change struct {
	OldValue json.RawMessage `json:"oldValue,omitempty"`
	NewValue json.RawMessage `json:"newValue,omitempty"`
}

// ChangeSet maps store keys to their change, as delivered to listeners.
type ChangeSet map[string]Change

// IsNull reports whether raw is absent or the JSON literal null.
func IsNull(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}
