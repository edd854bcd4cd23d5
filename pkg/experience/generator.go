// Package experience turns seed goals into structured dialogue scenarios:
// goal, context, user persona, and the user's opening utterance, enriched
// with few-shot examples from the hub once enough quality dialogues exist.
package experience

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode"

	"github.com/goalconvo/goalconvo/pkg/config"
	"github.com/goalconvo/goalconvo/pkg/llm"
	"github.com/goalconvo/goalconvo/pkg/models"
	"github.com/goalconvo/goalconvo/pkg/store"
	"github.com/goalconvo/goalconvo/pkg/textutil"
)

// experienceMaxTokens is the completion budget for scenario generation.
// Scenarios are bigger than single turns, so the per-turn budget is too
// small here.
const experienceMaxTokens = 400

// Generator produces experiences from seed goals.
type Generator struct {
	client llm.Client
	store  *store.Store
	cfg    *config.Config
}

// NewGenerator creates an experience generator.
func NewGenerator(client llm.Client, s *store.Store, cfg *config.Config) *Generator {
	return &Generator{client: client, store: s, cfg: cfg}
}

// Generate builds an experience for a goal. Raw slot-style goals are first
// rewritten into natural language, and a missing domain is inferred from
// the goal text. LLM output is parsed leniently: JSON first, then labeled
// lines, then a deterministic fallback built from the goal itself, so
// generation never fails outright on a bad completion.
func (g *Generator) Generate(ctx context.Context, domain, goal string) (*models.Experience, error) {
	goal = NormalizeGoal(goal)
	if domain == "" || domain == "unknown" {
		domain = InferDomain(goal)
	}

	examples, err := g.fewShotExamples(domain)
	if err != nil {
		return nil, err
	}

	prompt := g.buildPrompt(domain, goal, examples)
	text, err := g.client.Complete(ctx, llm.Request{
		System:      "You design realistic customer support scenarios. Respond with a single JSON object and nothing else.",
		Prompt:      prompt,
		MaxTokens:   experienceMaxTokens,
		Temperature: g.cfg.Generation.Temperature,
		TopP:        g.cfg.Generation.TopP,
	})
	if err != nil {
		slog.Warn("Experience generation failed, using fallback",
			"domain", domain, "error", err)
		return fallbackExperience(domain, goal), nil
	}

	if exp := parseJSONExperience(text, domain, goal); exp != nil {
		return exp, nil
	}
	if exp := parseLineExperience(text, domain, goal); exp != nil {
		return exp, nil
	}
	slog.Debug("Unparseable experience completion, using fallback", "domain", domain)
	return fallbackExperience(domain, goal), nil
}

// fewShotExamples samples hub dialogues for the domain. An underfilled hub
// is first backfilled with the built-in seed examples, so even the very
// first run prompts with style references.
func (g *Generator) fewShotExamples(domain string) ([]models.Dialogue, error) {
	ready, err := g.store.HubReady(domain)
	if err != nil {
		return nil, err
	}
	if !ready {
		if _, err := g.store.EnsureHubSeed(domain); err != nil {
			return nil, err
		}
	}
	return g.store.HubExamples(domain, g.cfg.Generation.FewShotExamples)
}

func (g *Generator) buildPrompt(domain, goal string, examples []models.Dialogue) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Create a support conversation scenario for the %s domain.\n\n", domain)
	b.WriteString("Respond with JSON containing exactly these fields:\n")
	b.WriteString(`{"goal": ..., "context": ..., "first_utterance": ..., "user_persona": ..., "subgoals": [...], "constraints": [...]}` + "\n\n")

	b.WriteString("Example 1:\n")
	b.WriteString(`{"goal": "Book a cheap hotel in the north for 3 nights", "context": "The user is planning a budget city trip and contacts the booking service.", "first_utterance": "Hi, I'm looking for a cheap hotel in the north part of town.", "user_persona": "a budget-conscious traveller who asks direct questions", "subgoals": ["confirm the price", "book for 3 nights"], "constraints": ["cheap", "north"]}` + "\n\n")
	b.WriteString("Example 2:\n")
	b.WriteString(`{"goal": "Reserve a table at an Italian restaurant for Saturday", "context": "The user wants to celebrate a birthday dinner and contacts the reservation desk.", "first_utterance": "Hello, could you help me book an Italian restaurant for Saturday evening?", "user_persona": "a friendly planner organising a small celebration", "subgoals": ["confirm the time", "get the reference number"], "constraints": ["italian", "saturday"]}` + "\n\n")

	if len(examples) > 0 {
		b.WriteString("High-quality dialogues from this domain for style reference:\n")
		budget := g.cfg.Generation.PromptMaxWords - g.cfg.Generation.PromptInstructionWords
		perExample := budget / len(examples)
		for i, ex := range examples {
			fmt.Fprintf(&b, "Dialogue %d (goal: %s):\n%s\n\n",
				i+1, ex.Goal, textutil.TruncateWords(ex.Text(), perExample))
		}
	}

	fmt.Fprintf(&b, "Now create the scenario for this goal: %s\n", goal)
	return b.String()
}

// parseJSONExperience extracts the experience from a JSON completion.
// Returns nil when no usable JSON is present.
func parseJSONExperience(text, domain, goal string) *models.Experience {
	var exp models.Experience
	if err := llm.ExtractJSON(text, &exp); err != nil {
		return nil
	}
	if strings.TrimSpace(exp.FirstUtterance) == "" {
		return nil
	}
	normalizeExperience(&exp, domain, goal)
	return &exp
}

// parseLineExperience handles completions that ignored the JSON instruction
// and answered with labeled lines ("Goal: ...", "First utterance: ...").
func parseLineExperience(text, domain, goal string) *models.Experience {
	exp := &models.Experience{}
	for _, line := range strings.Split(text, "\n") {
		label, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		switch strings.ToLower(strings.TrimSpace(label)) {
		case "goal":
			exp.Goal = value
		case "context":
			exp.Context = value
		case "first utterance", "first_utterance", "opening":
			exp.FirstUtterance = strings.Trim(value, `"`)
		case "user persona", "user_persona", "persona":
			exp.UserPersona = value
		}
	}
	if exp.FirstUtterance == "" {
		return nil
	}
	normalizeExperience(exp, domain, goal)
	return exp
}

// fallbackExperience builds a deterministic scenario straight from the goal.
func fallbackExperience(domain, goal string) *models.Experience {
	return &models.Experience{
		Goal:           goal,
		Domain:         domain,
		Context:        fmt.Sprintf("The user contacts the %s support service to %s.", domain, lowerFirst(goal)),
		FirstUtterance: fmt.Sprintf("Hi, I'd like to %s.", lowerFirst(goal)),
		UserPersona:    "a polite customer with a clear goal",
	}
}

func normalizeExperience(exp *models.Experience, domain, goal string) {
	exp.Domain = domain
	if strings.TrimSpace(exp.Goal) == "" {
		exp.Goal = goal
	}
	if strings.TrimSpace(exp.Context) == "" {
		exp.Context = fallbackExperience(domain, goal).Context
	}
	if strings.TrimSpace(exp.UserPersona) == "" {
		exp.UserPersona = "a polite customer with a clear goal"
	}
	exp.FirstUtterance = models.StripRolePrefixes(exp.FirstUtterance)
}

func lowerFirst(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToLower(r[0])
	return string(r)
}
