package simulator

import (
	"context"
	"log/slog"
	"strings"

	"github.com/goalconvo/goalconvo/pkg/llm"
	"github.com/goalconvo/goalconvo/pkg/models"
)

// goalCheckWindow is how many recent turns the keyword scan covers.
const goalCheckWindow = 4

// completionKeywords signal that the user considers the transaction
// concluded. A hit in the recent window short-circuits the LLM probe; a
// keyword positive is never overridden by a probe negative.
var completionKeywords = []string{
	"thank you",
	"thanks",
	"perfect",
	"great",
	"excellent",
	"that's great",
	"that works",
	"sounds good",
	"all set",
	"i'm all set",
	"that's exactly what i needed",
	"that'll work",
	"booked",
	"confirmed",
	"reserved",
	"done",
	"completed",
	"appreciate it",
	"good, thank",
}

// goalSatisfied decides whether the conversation has reached its goal.
// The cheap keyword scan runs first; only on a miss does the strict YES/NO
// LLM probe run.
func (s *Simulator) goalSatisfied(ctx context.Context, exp *models.Experience, turns []models.Turn) bool {
	if keywordGoalHit(turns) {
		return true
	}
	return s.probeGoal(ctx, exp, turns)
}

// keywordGoalHit scans recent User turns for completion keywords. Only the
// user decides the goal is met; a bot announcing "booked" proves nothing
// when the user is still asking questions.
func keywordGoalHit(turns []models.Turn) bool {
	start := len(turns) - goalCheckWindow
	if start < 0 {
		start = 0
	}
	for _, t := range turns[start:] {
		if t.Role != models.RoleUser {
			continue
		}
		lower := strings.ToLower(t.Text)
		for _, kw := range completionKeywords {
			if strings.Contains(lower, kw) {
				return true
			}
		}
	}
	return false
}

// probeGoal asks the LLM for a strict YES/NO verdict at low temperature
// with a tiny token budget. Any failure or ambiguous answer counts as NO so
// the dialogue keeps going.
func (s *Simulator) probeGoal(ctx context.Context, exp *models.Experience, turns []models.Turn) bool {
	prompt := s.historyPrompt(turns, models.RoleSupportBot)
	prompt = strings.TrimSuffix(prompt, "\nWrite the next SupportBot message.")

	text, err := s.client.Complete(ctx, llm.Request{
		System:      "You judge whether a customer's goal has been fully achieved in a conversation. Answer with exactly YES or NO.",
		Prompt:      prompt + "\n\nGoal: " + exp.Goal + "\nHas the goal been fully achieved? Answer YES or NO.",
		MaxTokens:   3,
		Temperature: 0.1,
	})
	if err != nil {
		slog.Debug("Goal probe failed, continuing dialogue", "error", err)
		return false
	}
	answer := strings.ToUpper(strings.TrimSpace(text))
	return strings.HasPrefix(answer, "YES")
}
