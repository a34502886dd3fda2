// Package generation tracks the live response-generation token per
// (agent, room). Minting replaces the previous token atomically; the owner of
// a token claims it back with a single compare-and-delete, so a mint that lands
// first always wins regardless of which generation finishes first.
package generation

import (
	"sync"

	"github.com/google/uuid"
)

// Key scopes a token to one agent in one room.
type Key struct {
	AgentID string
	RoomID  string
}

// Table holds at most one live token per key.
type Table struct {
	live sync.Map // Key -> string
}

// NewTable returns an empty token table.
func NewTable() *Table {
	return &Table{}
}

// Mint registers a fresh token as live for key and returns it together with
// the token it replaced, if any.
func (t *Table) Mint(key Key) (token string, replaced string) {
	token = uuid.New().String()
	if prev, loaded := t.live.Swap(key, token); loaded {
		replaced = prev.(string)
	}
	return token, replaced
}

// Claim clears the live token for key if it is still token. It reports whether
// the caller owned the live token; false means a newer mint superseded it.
func (t *Table) Claim(key Key, token string) bool {
	return t.live.CompareAndDelete(key, token)
}

// Current returns the live token for key.
func (t *Table) Current(key Key) (string, bool) {
	v, ok := t.live.Load(key)
	if !ok {
		return "", false
	}
	return v.(string), true
}
