package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeRemoteID(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "5511999990000@c.us", "5511999990000@c.us"},
		{"device suffix", "5511999990000:12@c.us", "5511999990000@c.us"},
		{"whitespace", "  5511999990000@c.us ", "5511999990000@c.us"},
		{"colon without domain", "agent:12", "agent:12"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeRemoteID(tt.input))
		})
	}
}

func TestIsGroupIdentifier(t *testing.T) {
	assert.True(t, IsGroupIdentifier("120363041234567890@g.us"))
	assert.False(t, IsGroupIdentifier("5511999990000@c.us"))
	assert.False(t, IsGroupIdentifier(""))
}
