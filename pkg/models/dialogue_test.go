package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseRolePrefix(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		wantRole Role
		wantText string
		wantOK   bool
	}{
		{"user label", "User: I need a hotel", RoleUser, "I need a hotel", true},
		{"lowercase label", "user: hello", RoleUser, "hello", true},
		{"supportbot label", "SupportBot: Sure, which area?", RoleSupportBot, "Sure, which area?", true},
		{"assistant alias", "Assistant: done", RoleSupportBot, "done", true},
		{"customer alias", "CUSTOMER: thanks", RoleUser, "thanks", true},
		{"system label", "System: padding", RoleSystem, "padding", true},
		{"no label", "just some text", "", "just some text", false},
		{"leading whitespace", "  User:  spaced  ", RoleUser, "spaced", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			role, text, ok := ParseRolePrefix(tt.line)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantText, text)
			if tt.wantOK {
				assert.Equal(t, tt.wantRole, role)
			}
		})
	}
}

func TestStripRolePrefixes(t *testing.T) {
	assert.Equal(t, "hello", StripRolePrefixes("User: User: hello"))
	assert.Equal(t, "no label here", StripRolePrefixes("no label here"))
	assert.Equal(t, "which day?", StripRolePrefixes("SupportBot: which day?"))
}

func TestDialogueAlternates(t *testing.T) {
	now := time.Now()
	d := &Dialogue{Turns: []Turn{
		{Role: RoleUser, Text: "a", Timestamp: now},
		{Role: RoleSupportBot, Text: "b", Timestamp: now},
		{Role: RoleUser, Text: "c", Timestamp: now},
	}}
	assert.True(t, d.Alternates())

	d.Turns = append(d.Turns, Turn{Role: RoleUser, Text: "d", Timestamp: now})
	assert.False(t, d.Alternates())

	// System turns are skipped for alternation.
	d2 := &Dialogue{Turns: []Turn{
		{Role: RoleUser, Text: "a"},
		{Role: RoleSystem, Text: "pad"},
		{Role: RoleSupportBot, Text: "b"},
	}}
	assert.True(t, d2.Alternates())

	// Must start with User.
	d3 := &Dialogue{Turns: []Turn{{Role: RoleSupportBot, Text: "hi"}}}
	assert.False(t, d3.Alternates())
}

func TestHeuristicFiltersPassed(t *testing.T) {
	h := HeuristicFilters{Length: true, Repetition: true, Profanity: true, Coherence: false, GoalMention: true, EmptyResponse: true}
	passed, total := h.Passed()
	assert.Equal(t, 5, passed)
	assert.Equal(t, 6, total)
}
