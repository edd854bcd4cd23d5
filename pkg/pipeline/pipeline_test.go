package pipeline

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goalconvo/goalconvo/pkg/config"
	"github.com/goalconvo/goalconvo/pkg/evaluator"
	"github.com/goalconvo/goalconvo/pkg/events"
	"github.com/goalconvo/goalconvo/pkg/llm"
	"github.com/goalconvo/goalconvo/pkg/store"
	"github.com/goalconvo/goalconvo/pkg/versioning"
)

// scriptedClient plays all the LLM roles of a run: scenario design, both
// dialogue agents, the goal probe, and the quality rater.
type scriptedClient struct {
	botCalls  atomic.Int64
	userCalls atomic.Int64
}

var botScript = []string{
	"We have the Alpha Lodge in the north at a budget price for you tonight.",
	"Your booking is confirmed with reference number A7KX2P.",
}

func (c *scriptedClient) Name() string { return "scripted" }

func (c *scriptedClient) Complete(_ context.Context, req llm.Request) (string, error) {
	switch {
	case req.MaxTokens == 3: // goal probe
		return "NO", nil
	case strings.Contains(req.System, "design realistic customer support scenarios"):
		return `{"goal": "Book a cheap hotel in the north", "context": "The user plans a budget trip.",
			"first_utterance": "Hi, I need to book a cheap hotel in the north.",
			"user_persona": "a budget traveller", "subgoals": [], "constraints": ["cheap", "north"]}`, nil
	case strings.Contains(req.System, "quality rater"):
		if strings.Contains(req.System, "YES or NO") {
			return "YES", nil
		}
		return "4", nil
	case strings.Contains(req.System, "You are a customer"):
		c.userCalls.Add(1)
		return "Yes please book it for two nights starting Friday.", nil
	default: // support agent turn
		n := c.botCalls.Add(1)
		return botScript[(n-1)%int64(len(botScript))], nil
	}
}

func testRunner(t *testing.T) (*Runner, *events.Bus, *store.Store) {
	t.Helper()
	st, err := store.New(t.TempDir())
	require.NoError(t, err)

	cfg := &config.Config{
		Generation: config.GenerationConfig{
			Temperature:             0.75,
			MaxTokensUserTurn:       60,
			MaxTokensSupportBotTurn: 100,
			MinTurns:                4,
			MaxTurns:                8,
			FewShotExamples:         2,
			PromptMaxWords:          1000,
			PromptInstructionWords:  250,
			PromptLastKTurns:        6,
			Domains:                 append([]string(nil), config.KnownDomains...),
		},
		Simulator: config.SimulatorConfig{
			GoalCheckInterval: 2,
			LoopWindow:        6,
			LoopSimilarity:    0.5,
		},
		Judge: config.JudgeConfig{
			QualityThreshold: 0.7,
			DiscardRate:      0.1,
			ImproveOnFail:    false,
		},
		Evaluation: config.EvaluationConfig{
			ReferenceLimit: 100,
			SkipLLMJudge:   true,
		},
	}

	client := &scriptedClient{}
	bus := events.NewBus(1024)
	versions := versioning.NewManager(st)
	eval := evaluator.New(st, nil, nil, cfg)
	return NewRunner(client, st, bus, versions, eval, cfg), bus, st
}

func TestRunEndToEnd(t *testing.T) {
	r, bus, st := testRunner(t)

	result, err := r.Run(context.Background(), RunRequest{
		NumDialogues:  2,
		Domains:       []string{"hotel"},
		SessionID:     "run-1",
		ExperimentTag: "exp-a",
	})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Stats.TotalGenerated)
	assert.Equal(t, 2, result.Stats.TotalAccepted)
	assert.Equal(t, 0, result.Stats.TotalRejected)
	assert.Equal(t, 2, result.Stats.ByDomain["hotel"].Accepted)
	assert.False(t, result.Stats.EndedAt.IsZero())

	// Accepted dialogues are on disk.
	stored, err := st.DomainDialogues("hotel")
	require.NoError(t, err)
	require.Len(t, stored, 2)
	for _, d := range stored {
		assert.True(t, d.Alternates())
		assert.GreaterOrEqual(t, d.Metadata.NumTurns, 4)
		assert.Greater(t, d.Metadata.QualityScore, 0.7)
	}

	// The run produced an evaluation and a tagged version snapshot.
	require.NotNil(t, result.Evaluation)
	assert.Equal(t, 2, result.Evaluation.NumDialogues)
	require.NotNil(t, result.Version)
	assert.Equal(t, 2, result.Version.NumDialogues)
	assert.Contains(t, result.Version.Tags, "pipeline")
	assert.Contains(t, result.Version.Tags, "auto-generated")
	assert.Contains(t, result.Version.Tags, "exp-a")

	// The event stream tells the whole story and the session is closed.
	history := bus.History("run-1")
	require.NotEmpty(t, history)
	assert.Equal(t, events.EventTypePipelineStart, history[0].Type)
	assert.Equal(t, events.EventTypePipelineComplete, history[len(history)-1].Type)
	types := make(map[string]int)
	for _, ev := range history {
		types[ev.Type]++
	}
	assert.Greater(t, types[events.EventTypeLiveDialogue], 0)
	assert.GreaterOrEqual(t, types[events.EventTypeStepStart], 3)
	assert.ErrorIs(t,
		bus.Publish(context.Background(), "run-1", events.EventTypeLog, events.LogPayload{}),
		events.ErrSessionEnded)
}

func TestRunValidation(t *testing.T) {
	r, _, _ := testRunner(t)
	ctx := context.Background()

	_, err := r.Run(ctx, RunRequest{NumDialogues: 0, SessionID: "s"})
	assert.ErrorContains(t, err, "num_dialogues")

	_, err = r.Run(ctx, RunRequest{NumDialogues: 1})
	assert.ErrorContains(t, err, "session_id")

	_, err = r.Run(ctx, RunRequest{NumDialogues: 1, SessionID: "s", Domains: []string{"spaceport"}})
	assert.ErrorContains(t, err, "unknown domain")
}

func TestRunRejectsConcurrentSession(t *testing.T) {
	r, _, _ := testRunner(t)
	require.NoError(t, r.acquireSession("busy"))

	_, err := r.Run(context.Background(), RunRequest{
		NumDialogues: 1, Domains: []string{"taxi"}, SessionID: "busy",
	})
	assert.ErrorIs(t, err, ErrRunInProgress)
}

func TestJudgeDisabledAcceptsEverything(t *testing.T) {
	r, _, st := testRunner(t)
	off := false

	result, err := r.Run(context.Background(), RunRequest{
		NumDialogues: 1,
		Domains:      []string{"restaurant"},
		SessionID:    "run-nojudge",
		Overrides:    &config.RunOverrides{QualityJudge: &off},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Stats.TotalAccepted)

	stored, err := st.DomainDialogues("restaurant")
	require.NoError(t, err)
	require.Len(t, stored, 1)
	// No judging happened, so no assessment was attached.
	assert.Nil(t, stored[0].Metadata.QualityAssessment)
}

func TestSplitQuota(t *testing.T) {
	q := splitQuota(7, []string{"hotel", "taxi", "train"})
	assert.Equal(t, 3, q["hotel"])
	assert.Equal(t, 2, q["taxi"])
	assert.Equal(t, 2, q["train"])

	q = splitQuota(2, []string{"hotel", "taxi", "train"})
	assert.Equal(t, 1, q["hotel"])
	assert.Equal(t, 1, q["taxi"])
	assert.Equal(t, 0, q["train"])
}
