package types

import (
	"bytes"
	"encoding/json"
)

// Request asks for documentation of one contract.
type Request struct {
	ContractAddress string          `json:"contract_address" binding:"required"`
	ABI             json.RawMessage `json:"abi,omitempty"`
}

// HasABI reports whether the caller supplied an interface description.
// An explicit JSON null counts as absent.
func (r Request) HasABI() bool {
	return Present(r.ABI)
}

// Present reports whether raw holds a JSON value other than null.
func Present(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}
