package experience

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goalconvo/goalconvo/pkg/config"
	"github.com/goalconvo/goalconvo/pkg/llm"
	"github.com/goalconvo/goalconvo/pkg/models"
	"github.com/goalconvo/goalconvo/pkg/store"
)

type stubClient struct {
	text    string
	err     error
	prompts []string
}

func (s *stubClient) Name() string { return "stub" }

func (s *stubClient) Complete(_ context.Context, req llm.Request) (string, error) {
	s.prompts = append(s.prompts, req.Prompt)
	return s.text, s.err
}

func defaultTestConfig() *config.Config {
	return &config.Config{
		Generation: config.GenerationConfig{
			Temperature:            0.75,
			TopP:                   0.92,
			FewShotExamples:        4,
			PromptMaxWords:         1000,
			PromptInstructionWords: 250,
		},
	}
}

func newGenerator(t *testing.T, client llm.Client) (*Generator, *store.Store) {
	t.Helper()
	s, err := store.New(t.TempDir())
	require.NoError(t, err)
	return NewGenerator(client, s, defaultTestConfig()), s
}

func TestGenerateParsesJSON(t *testing.T) {
	client := &stubClient{text: `Here you go:
{"goal": "Book a cheap hotel", "context": "Budget trip.", "first_utterance": "User: Hi, any cheap hotels?", "user_persona": "a thrifty tourist", "subgoals": ["confirm price"], "constraints": ["cheap"]}`}
	g, _ := newGenerator(t, client)

	exp, err := g.Generate(context.Background(), "hotel", "Book a cheap hotel in the north")
	require.NoError(t, err)
	assert.Equal(t, "hotel", exp.Domain)
	assert.Equal(t, "Book a cheap hotel", exp.Goal)
	// Role labels echoed by the model are stripped.
	assert.Equal(t, "Hi, any cheap hotels?", exp.FirstUtterance)
	assert.Equal(t, []string{"confirm price"}, exp.Subgoals)
}

func TestGenerateParsesLabeledLines(t *testing.T) {
	client := &stubClient{text: `Goal: Find a train to London
Context: The user commutes weekly.
First utterance: "Hello, I need a train to London on Tuesday."
User persona: a hurried commuter`}
	g, _ := newGenerator(t, client)

	exp, err := g.Generate(context.Background(), "train", "Find a train to London")
	require.NoError(t, err)
	assert.Equal(t, "Find a train to London", exp.Goal)
	assert.Equal(t, "Hello, I need a train to London on Tuesday.", exp.FirstUtterance)
	assert.Equal(t, "a hurried commuter", exp.UserPersona)
}

func TestGenerateFallbackOnGarbage(t *testing.T) {
	client := &stubClient{text: "I am sorry, I cannot help with that."}
	g, _ := newGenerator(t, client)

	exp, err := g.Generate(context.Background(), "taxi", "Book a taxi to the airport")
	require.NoError(t, err)
	assert.Equal(t, "Book a taxi to the airport", exp.Goal)
	assert.Equal(t, "taxi", exp.Domain)
	assert.NotEmpty(t, exp.FirstUtterance)
	assert.NotEmpty(t, exp.Context)
}

func TestGenerateFallbackOnLLMError(t *testing.T) {
	client := &stubClient{err: errors.New("all providers failed")}
	g, _ := newGenerator(t, client)

	exp, err := g.Generate(context.Background(), "attraction", "Find a museum in the centre")
	require.NoError(t, err)
	assert.Contains(t, exp.FirstUtterance, "find a museum")
}

func TestGenerateSeedsHubBelowMinimum(t *testing.T) {
	client := &stubClient{text: `{"first_utterance": "Hi"}`}
	g, s := newGenerator(t, client)

	// Empty hub: the generator backfills the built-in seed examples, so
	// even the very first prompt carries style references.
	_, err := g.Generate(context.Background(), "hotel", "Book a hotel")
	require.NoError(t, err)
	assert.Contains(t, client.prompts[0], "style reference")

	count, err := s.HubCount("hotel")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, count, 5)

	// A second generation finds the hub ready and adds nothing.
	_, err = g.Generate(context.Background(), "hotel", "Book a hotel")
	require.NoError(t, err)
	again, err := s.HubCount("hotel")
	require.NoError(t, err)
	assert.Equal(t, count, again)
}

func TestPromptPrefersPromotedDialogues(t *testing.T) {
	client := &stubClient{text: `{"first_utterance": "Hi"}`}
	g, s := newGenerator(t, client)

	// Promote real dialogues; they are newer than the seeds and displace
	// them in few-shot sampling.
	var accepted []models.Dialogue
	now := time.Now().UTC()
	for i := 0; i < 5; i++ {
		d := models.Dialogue{
			DialogueID: uuid.New().String(),
			Goal:       "Book a hotel",
			Domain:     "hotel",
			Turns: []models.Turn{
				{Role: models.RoleUser, Text: "I need a room", Timestamp: now},
				{Role: models.RoleSupportBot, Text: "Which area?", Timestamp: now},
			},
			Metadata: models.DialogueMetadata{QualityScore: 0.9, GeneratedAt: now},
		}
		accepted = append(accepted, d)
	}
	for i := 0; i < 5; i++ {
		_, err := s.RefreshHub(accepted[i:i+1], 0)
		require.NoError(t, err)
	}

	_, err := g.Generate(context.Background(), "hotel", "Book a hotel")
	require.NoError(t, err)
	last := client.prompts[len(client.prompts)-1]
	assert.Contains(t, last, "style reference")
	assert.True(t, strings.Contains(last, "I need a room"))
}

func TestGenerateNormalizesSlotGoalAndInfersDomain(t *testing.T) {
	client := &stubClient{text: "garbage"}
	g, _ := newGenerator(t, client)

	exp, err := g.Generate(context.Background(), "", "train-leaveat: 11:30; train-destination: london")
	require.NoError(t, err)
	assert.Equal(t, "train", exp.Domain)
	assert.Contains(t, exp.Goal, "11:30")
	assert.Contains(t, exp.Goal, "london")
	assert.NotContains(t, exp.Goal, "leaveat")
}
