package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatFrame(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"reply", `{"type":"reply","text":"hi"}`, "agent: hi"},
		{"reply with actions", `{"type":"reply","text":"ok","actions":["REPLY","FOLLOW_ROOM"]}`, "agent: ok (actions: REPLY, FOLLOW_ROOM)"},
		{"error", `{"type":"error","code":"rejected","message":"text is required"}`, "error: rejected - text is required"},
		{"accepted is silent", `{"type":"accepted","message_id":"m1"}`, ""},
		{"garbage", `not json`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, formatFrame([]byte(tt.in)))
		})
	}
}

func TestRootCommandHasSubcommands(t *testing.T) {
	root := newRootCommand()
	names := map[string]bool{}
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["serve"])
	assert.True(t, names["chat"])
}
