// Package models defines the core data records shared across the pipeline:
// dialogues, experiences, quality assessments, dataset versions, and human
// evaluation records. All types marshal to the on-disk dataset JSON format.
package models

import (
	"strings"
	"time"
)

// Role identifies the speaker of a dialogue turn.
type Role string

const (
	RoleUser       Role = "User"
	RoleSupportBot Role = "SupportBot"
	RoleSystem     Role = "System"
)

// rolePrefixes maps lowercase speaker-label prefixes to roles. Used when
// parsing raw LLM output lines such as "user: I need a room" back into turns.
var rolePrefixes = []struct {
	prefix string
	role   Role
}{
	{"supportbot:", RoleSupportBot},
	{"support bot:", RoleSupportBot},
	{"bot:", RoleSupportBot},
	{"assistant:", RoleSupportBot},
	{"user:", RoleUser},
	{"customer:", RoleUser},
	{"system:", RoleSystem},
}

// ParseRolePrefix checks whether a line starts with a known speaker label
// (case-insensitive). It returns the role, the text with the label stripped,
// and whether a label was found.
func ParseRolePrefix(line string) (Role, string, bool) {
	lower := strings.ToLower(strings.TrimSpace(line))
	for _, rp := range rolePrefixes {
		if strings.HasPrefix(lower, rp.prefix) {
			trimmed := strings.TrimSpace(line)
			return rp.role, strings.TrimSpace(trimmed[len(rp.prefix):]), true
		}
	}
	return "", strings.TrimSpace(line), false
}

// StripRolePrefixes removes any leading speaker labels from text, repeatedly,
// so "User: User: hello" becomes "hello". LLMs frequently echo the label they
// were prompted with.
func StripRolePrefixes(text string) string {
	s := strings.TrimSpace(text)
	for {
		_, rest, ok := ParseRolePrefix(s)
		if !ok || rest == s {
			return s
		}
		s = rest
	}
}

// Turn is a single utterance in a dialogue.
type Turn struct {
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// DialogueMetadata records how a dialogue was produced and how it scored.
type DialogueMetadata struct {
	NumTurns               int                `json:"num_turns"`
	GeneratedAt            time.Time          `json:"generated_at"`
	ModelVersion           string             `json:"model_version"`
	MaxTurnsReached        bool               `json:"max_turns_reached"`
	MinTurnsMet            bool               `json:"min_turns_met"`
	GenerationTimeSeconds  float64            `json:"generation_time_seconds"`
	QualityScore           float64            `json:"quality_score"`
	QualityAssessment      *QualityAssessment `json:"quality_assessment,omitempty"`
	RejectionReason        string             `json:"rejection_reason,omitempty"`
	ImprovedByQualityJudge bool               `json:"improved_by_quality_judge,omitempty"`
	AddedToHubAt           *time.Time         `json:"added_to_hub_at,omitempty"`
}

// Dialogue is a complete goal-oriented conversation.
type Dialogue struct {
	DialogueID  string           `json:"dialogue_id"`
	Goal        string           `json:"goal"`
	Domain      string           `json:"domain"`
	Context     string           `json:"context"`
	UserPersona string           `json:"user_persona"`
	Turns       []Turn           `json:"turns"`
	Metadata    DialogueMetadata `json:"metadata"`
}

// UserTurns returns only the User turns, in order.
func (d *Dialogue) UserTurns() []Turn {
	var out []Turn
	for _, t := range d.Turns {
		if t.Role == RoleUser {
			out = append(out, t)
		}
	}
	return out
}

// Text concatenates all turn texts separated by newlines. Used by
// similarity-based metrics that compare whole dialogues.
func (d *Dialogue) Text() string {
	parts := make([]string, 0, len(d.Turns))
	for _, t := range d.Turns {
		parts = append(parts, t.Text)
	}
	return strings.Join(parts, "\n")
}

// Alternates reports whether turns alternate between User and SupportBot
// starting with User. System turns are ignored for alternation purposes.
func (d *Dialogue) Alternates() bool {
	expected := RoleUser
	for _, t := range d.Turns {
		if t.Role == RoleSystem {
			continue
		}
		if t.Role != expected {
			return false
		}
		if expected == RoleUser {
			expected = RoleSupportBot
		} else {
			expected = RoleUser
		}
	}
	return true
}

// Experience is the structured scenario that seeds a dialogue simulation.
type Experience struct {
	Goal             string   `json:"goal"`
	Domain           string   `json:"domain"`
	Context          string   `json:"context"`
	FirstUtterance   string   `json:"first_utterance"`
	UserPersona      string   `json:"user_persona"`
	Subgoals         []string `json:"subgoals,omitempty"`
	Constraints      []string `json:"constraints,omitempty"`
	UserPersonaTraits []string `json:"user_persona_traits,omitempty"`
	SupportBotStyle  string   `json:"supportbot_style,omitempty"`
}
