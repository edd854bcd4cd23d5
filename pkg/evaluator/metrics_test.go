package evaluator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/goalconvo/goalconvo/pkg/models"
)

func TestDistinctN(t *testing.T) {
	tokens := []string{"a", "b", "a"}
	assert.InDelta(t, 2.0/3.0, distinctN(tokens, 1), 1e-9)
	assert.InDelta(t, 1.0, distinctN(tokens, 2), 1e-9) // "a b", "b a"
	assert.Equal(t, 0.0, distinctN([]string{"a"}, 2))
}

func TestBLEUIdenticalText(t *testing.T) {
	tokens := []string{"i", "need", "a", "cheap", "hotel", "please"}
	assert.InDelta(t, 1.0, bleu(tokens, tokens), 1e-9)
}

func TestBLEUDisjointFallsBackToOverlap(t *testing.T) {
	candidate := []string{"completely", "different", "words", "here"}
	reference := []string{"nothing", "matches", "at", "all"}
	assert.Equal(t, 0.0, bleu(candidate, reference))
}

func TestBLEUPartialMatchIsBetween(t *testing.T) {
	candidate := []string{"i", "need", "a", "cheap", "hotel", "tonight"}
	reference := []string{"i", "need", "a", "cheap", "room", "today"}
	score := bleu(candidate, reference)
	assert.Greater(t, score, 0.0)
	assert.Less(t, score, 1.0)
}

func TestSampleStdDev(t *testing.T) {
	assert.Equal(t, 0.0, sampleStdDev(nil))
	assert.Equal(t, 0.0, sampleStdDev([]float64{5}))
	assert.InDelta(t, 1.4142, sampleStdDev([]float64{4, 6}), 1e-3)
}

func TestCorpusShape(t *testing.T) {
	now := time.Now().UTC()
	dialogues := []models.Dialogue{
		{Turns: []models.Turn{
			{Role: models.RoleUser, Text: "hello there friend", Timestamp: now},
			{Role: models.RoleSupportBot, Text: "hello to you", Timestamp: now.Add(2 * time.Second)},
		}},
		{Turns: []models.Turn{
			{Role: models.RoleUser, Text: "one two three four", Timestamp: now},
			{Role: models.RoleSupportBot, Text: "five six", Timestamp: now.Add(4 * time.Second)},
			{Role: models.RoleUser, Text: "seven eight", Timestamp: now.Add(6 * time.Second)},
			{Role: models.RoleSupportBot, Text: "nine ten", Timestamp: now.Add(8 * time.Second)},
		}},
	}

	shape := corpusShape(dialogues)
	assert.InDelta(t, 3.0, shape.avgTurns, 1e-9)
	assert.InDelta(t, 1.4142, shape.turnsStdDev, 1e-3)
	// Gaps: 2s, then 2s+2s+2s → mean 2.0.
	assert.InDelta(t, 2.0, shape.avgResponseTime, 1e-9)
	// No turn text is ever repeated verbatim, so repetition stays 0 even
	// though individual words recur.
	assert.InDelta(t, 0.0, shape.repetition, 1e-9)
}

func TestTurnTextRepetitionCountsVerbatimTurns(t *testing.T) {
	d := models.Dialogue{Turns: []models.Turn{
		{Role: models.RoleUser, Text: "Which area would you like?"},
		{Role: models.RoleSupportBot, Text: "Somewhere in the north."},
		{Role: models.RoleUser, Text: "Which area would you like?"},
	}}
	rep, ok := turnTextRepetition(&d)
	assert.True(t, ok)
	assert.InDelta(t, 1.0/3.0, rep, 1e-9)

	// Fewer than two non-empty turns: undefined rather than zero.
	short := models.Dialogue{Turns: []models.Turn{
		{Role: models.RoleUser, Text: "hi"},
		{Role: models.RoleSupportBot, Text: "   "},
	}}
	_, ok = turnTextRepetition(&short)
	assert.False(t, ok)
}

func TestCorpusShapeIgnoresHugeGaps(t *testing.T) {
	now := time.Now().UTC()
	dialogues := []models.Dialogue{
		{Turns: []models.Turn{
			{Role: models.RoleUser, Text: "hi", Timestamp: now},
			{Role: models.RoleSupportBot, Text: "hello", Timestamp: now.Add(48 * time.Hour)},
			{Role: models.RoleUser, Text: "ok", Timestamp: now.Add(48*time.Hour + time.Millisecond)},
		}},
	}
	shape := corpusShape(dialogues)
	// The two-day gap is dropped; the millisecond gap is floored to 0.1s.
	assert.InDelta(t, 0.1, shape.avgResponseTime, 1e-9)
}

func TestCosine(t *testing.T) {
	assert.InDelta(t, 1.0, cosine([]float32{1, 2, 3}, []float32{2, 4, 6}), 1e-6)
	assert.InDelta(t, 0.0, cosine([]float32{1, 0}, []float32{0, 1}), 1e-6)
	assert.Equal(t, 0.0, cosine([]float32{1}, []float32{1, 2}))
}
