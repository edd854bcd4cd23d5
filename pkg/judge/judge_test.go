package judge

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goalconvo/goalconvo/pkg/config"
	"github.com/goalconvo/goalconvo/pkg/llm"
	"github.com/goalconvo/goalconvo/pkg/models"
)

// stubClient answers each judge probe with a canned reply, keyed off the
// prompt text.
type stubClient struct {
	coherence string
	relevance string
	overall   string
	reason    string
	rewrite   string
	err       error
}

func (c *stubClient) Name() string { return "stub" }

func (c *stubClient) Complete(_ context.Context, req llm.Request) (string, error) {
	if c.err != nil {
		return "", c.err
	}
	switch {
	case strings.Contains(req.Prompt, "Rewrite"):
		return c.rewrite, nil
	case strings.Contains(req.Prompt, "rejected"):
		return c.reason, nil
	case strings.Contains(req.Prompt, "coherence"):
		return c.coherence, nil
	case strings.Contains(req.Prompt, "relevant"):
		return c.relevance, nil
	default:
		return c.overall, nil
	}
}

func goodVerdicts() *stubClient {
	return &stubClient{coherence: "4", relevance: "YES", overall: "4"}
}

func badVerdicts() *stubClient {
	return &stubClient{coherence: "1", relevance: "NO", overall: "1"}
}

func testConfig() *config.Config {
	return &config.Config{
		Generation: config.GenerationConfig{
			Temperature:             0.75,
			MinTurns:                2,
			MaxTurns:                15,
			MaxTokensSupportBotTurn: 100,
		},
		Judge: config.JudgeConfig{
			QualityThreshold: 0.7,
			DiscardRate:      0.1,
			ImproveOnFail:    true,
		},
	}
}

func goodDialogue() models.Dialogue {
	now := time.Now().UTC()
	return models.Dialogue{
		DialogueID: "d1",
		Goal:       "Book a cheap hotel in the north",
		Domain:     "hotel",
		Turns: []models.Turn{
			{Role: models.RoleUser, Text: "Hi, I'm looking for a cheap hotel in the north.", Timestamp: now},
			{Role: models.RoleSupportBot, Text: "Sure, the Alpha Lodge is in the north and fits a small budget.", Timestamp: now.Add(2 * time.Second)},
			{Role: models.RoleUser, Text: "Great, can you book it for Friday?", Timestamp: now.Add(4 * time.Second)},
			{Role: models.RoleSupportBot, Text: "Done, your booking is confirmed for Friday night.", Timestamp: now.Add(6 * time.Second)},
		},
		Metadata: models.DialogueMetadata{NumTurns: 4},
	}
}

func brokenDialogue() models.Dialogue {
	now := time.Now().UTC()
	return models.Dialogue{
		DialogueID: "d2",
		Goal:       "Reserve a table at an Italian restaurant",
		Domain:     "restaurant",
		Turns: []models.Turn{
			// Starts with the wrong role, repeats itself, and has an
			// empty-ish turn: fails coherence, repetition, and emptiness.
			{Role: models.RoleSupportBot, Text: "Hello how can I help you today friend?", Timestamp: now},
			{Role: models.RoleSupportBot, Text: "Hello how can I help you today friend?", Timestamp: now.Add(time.Second)},
			{Role: models.RoleUser, Text: "..", Timestamp: now.Add(2 * time.Second)},
		},
		Metadata: models.DialogueMetadata{NumTurns: 3},
	}
}

func TestAssessGoodDialogue(t *testing.T) {
	j := New(goodVerdicts(), testConfig())

	d := goodDialogue()
	a := j.Assess(context.Background(), &d)

	assert.Equal(t, 1.0, a.HeuristicScore)
	require.NotNil(t, a.LLMEvaluation)
	assert.Empty(t, a.LLMEvaluation.Error)
	assert.True(t, a.LLMEvaluation.GoalRelevance)
	assert.True(t, a.PassedFilters)
	// 0.3*1.0 + 0.3*(4/5) + 0.4*(4/5) = 0.86
	assert.InDelta(t, 0.86, a.OverallScore, 1e-9)
}

func TestAssessHeuristicFailures(t *testing.T) {
	j := New(badVerdicts(), testConfig())

	d := brokenDialogue()
	a := j.Assess(context.Background(), &d)

	assert.False(t, a.HeuristicFilters.Coherence)
	assert.False(t, a.HeuristicFilters.Repetition)
	assert.False(t, a.HeuristicFilters.EmptyResponse)
	assert.Less(t, a.HeuristicScore, 0.5)
	assert.False(t, a.PassedFilters)
}

func TestAssessLLMPassOverridesWeakHeuristics(t *testing.T) {
	j := New(goodVerdicts(), testConfig())

	d := brokenDialogue()
	a := j.Assess(context.Background(), &d)
	// Heuristics are weak but the LLM path passes the dialogue.
	assert.True(t, a.PassedFilters)
}

func TestAssessLLMErrorFallsBackToHeuristics(t *testing.T) {
	client := &stubClient{err: errors.New("all providers failed")}
	j := New(client, testConfig())

	d := goodDialogue()
	a := j.Assess(context.Background(), &d)
	require.NotNil(t, a.LLMEvaluation)
	assert.NotEmpty(t, a.LLMEvaluation.Error)
	assert.True(t, a.PassedFilters)
	assert.Equal(t, a.HeuristicScore, a.OverallScore)
}

func TestProbeScoresDefaultWhenUnparseable(t *testing.T) {
	// Ratings without a digit fall back to the middle of the scale rather
	// than failing the evaluation.
	client := &stubClient{coherence: "it reads quite well", relevance: "YES", overall: "fine overall"}
	j := New(client, testConfig())

	d := goodDialogue()
	a := j.Assess(context.Background(), &d)
	require.NotNil(t, a.LLMEvaluation)
	assert.Empty(t, a.LLMEvaluation.Error)
	assert.Equal(t, 3.0, a.LLMEvaluation.CoherenceScore)
	assert.Equal(t, 3.0, a.LLMEvaluation.OverallScore)
	// 0.3*1.0 + 0.3*(3/5) + 0.4*(3/5) = 0.72
	assert.InDelta(t, 0.72, a.OverallScore, 1e-9)
}

func TestLengthFilterBoundsTurnCount(t *testing.T) {
	d := goodDialogue() // 4 turns
	assert.True(t, runHeuristics(&d, 4, 6).Length)
	assert.False(t, runHeuristics(&d, 5, 6).Length)
	assert.False(t, runHeuristics(&d, 2, 3).Length)
}

func TestFilterRepairsFailingDialogue(t *testing.T) {
	client := badVerdicts()
	client.reason = "The bot repeats itself and the turns do not alternate."
	client.rewrite = `User: Hi, I'd like to reserve a table at an Italian restaurant.
SupportBot: Of course, the Roma Trattoria has availability. Your reservation is confirmed.
User: Wonderful, thank you for your help!
SupportBot: You're welcome, enjoy your evening at the restaurant.`
	// The rewrite has clean heuristics, so the reassessment passes on the
	// heuristic floor even though the LLM verdict stays bad.
	j := New(client, testConfig())

	d := brokenDialogue()
	res := j.Filter(context.Background(), []models.Dialogue{d}, true)

	require.Len(t, res.Accepted, 1)
	assert.Empty(t, res.Rejected)
	got := res.Accepted[0]
	assert.True(t, got.Metadata.ImprovedByQualityJudge)
	assert.Empty(t, got.Metadata.RejectionReason)
	assert.Equal(t, models.RoleUser, got.Turns[0].Role)
	assert.Equal(t, 4, got.Metadata.NumTurns)
	assert.True(t, got.Alternates())
}

func TestFilterRecordsRejectionReason(t *testing.T) {
	client := badVerdicts()
	client.reason = "The dialogue never addresses the reservation and one turn is empty."
	j := New(client, testConfig())

	d := brokenDialogue()
	res := j.Filter(context.Background(), []models.Dialogue{d}, false)
	assert.Empty(t, res.Accepted)
	require.Len(t, res.Rejected, 1)
	assert.NotNil(t, res.Rejected[0].Metadata.QualityAssessment)
	assert.Equal(t, client.reason, res.Rejected[0].Metadata.RejectionReason)
}

func acceptedWithScores(scores ...float64) []models.Dialogue {
	out := make([]models.Dialogue, len(scores))
	for i, s := range scores {
		out[i] = models.Dialogue{
			DialogueID: fmt.Sprintf("d%d", i),
			Metadata:   models.DialogueMetadata{QualityScore: s},
		}
	}
	return out
}

func TestEnforceDiscardRateDemotesLowestQuality(t *testing.T) {
	j := New(goodVerdicts(), testConfig()) // target discard rate 0.1

	res := &FilterResult{
		Accepted: acceptedWithScores(0.9, 0.6, 0.8, 0.7, 0.95, 0.85, 0.75, 0.65, 0.88, 0.92),
	}
	j.EnforceDiscardRate(res, 10)

	// Nothing was rejected, so the weakest 10% of the batch gets demoted.
	assert.Equal(t, 1, res.Demoted)
	require.Len(t, res.Rejected, 1)
	assert.Equal(t, "d1", res.Rejected[0].DialogueID)
	require.Len(t, res.Accepted, 9)
	for _, d := range res.Accepted {
		assert.GreaterOrEqual(t, d.Metadata.QualityScore, 0.65)
	}
}

func TestEnforceDiscardRateScalesWithGap(t *testing.T) {
	cfg := testConfig()
	cfg.Judge.DiscardRate = 0.3
	j := New(goodVerdicts(), cfg)

	res := &FilterResult{
		Accepted: acceptedWithScores(0.9, 0.6, 0.8, 0.7, 0.95, 0.85, 0.75, 0.65, 0.88, 0.92),
	}
	j.EnforceDiscardRate(res, 10)

	assert.Equal(t, 3, res.Demoted)
	assert.Len(t, res.Accepted, 7)
	assert.Len(t, res.Rejected, 3)
}

func TestEnforceDiscardRateNoopAtTarget(t *testing.T) {
	j := New(goodVerdicts(), testConfig())

	res := &FilterResult{
		Accepted: acceptedWithScores(0.9, 0.8, 0.7, 0.85, 0.75, 0.95, 0.88, 0.82, 0.78),
		Rejected: acceptedWithScores(0.2),
	}
	j.EnforceDiscardRate(res, 10)

	// One reject out of ten already meets the 0.1 target.
	assert.Equal(t, 0, res.Demoted)
	assert.Len(t, res.Accepted, 9)
	assert.Len(t, res.Rejected, 1)
}

func TestParseDialogueLines(t *testing.T) {
	turns := parseDialogueLines(`Here is the dialogue:
User: Hello there.
SupportBot: Hi, how can I help?
Some stray commentary.
User: I need a taxi.`)

	require.Len(t, turns, 3)
	assert.Equal(t, models.RoleUser, turns[0].Role)
	assert.Equal(t, "Hi, how can I help?", turns[1].Text)
	assert.True(t, turns[2].Timestamp.After(turns[0].Timestamp))
}
