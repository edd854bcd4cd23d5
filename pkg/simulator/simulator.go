// Package simulator runs the two-agent dialogue loop: a User agent pursuing
// a goal and a SupportBot agent serving it, alternating turns until the goal
// is reached or the turn budget runs out.
package simulator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/goalconvo/goalconvo/pkg/config"
	"github.com/goalconvo/goalconvo/pkg/llm"
	"github.com/goalconvo/goalconvo/pkg/models"
	"github.com/goalconvo/goalconvo/pkg/textutil"
)

// paraphraseSimilarity is the threshold above which a new turn counts as a
// repeat of the same speaker's previous turn and gets one paraphrase retry.
const paraphraseSimilarity = 0.8

// ProgressFunc receives the turn list after every appended turn, with a
// short step message for live streaming.
type ProgressFunc func(turns []models.Turn, message string)

// Simulator drives dialogue generation for one experience at a time.
type Simulator struct {
	client llm.Client
	cfg    *config.Config
}

// New creates a simulator.
func New(client llm.Client, cfg *config.Config) *Simulator {
	return &Simulator{client: client, cfg: cfg}
}

// Simulate produces one dialogue from an experience. The first turn is the
// experience's opening utterance; turns then strictly alternate. LLM
// failures never abort the dialogue: the failed role gets a scripted
// fallback turn instead, so the alternation invariant always holds.
func (s *Simulator) Simulate(ctx context.Context, exp *models.Experience, progress ProgressFunc) (*models.Dialogue, error) {
	start := time.Now()
	gen := s.cfg.Generation

	d := &models.Dialogue{
		DialogueID:  uuid.New().String(),
		Goal:        exp.Goal,
		Domain:      exp.Domain,
		Context:     exp.Context,
		UserPersona: exp.UserPersona,
	}

	appendTurn := func(role models.Role, text, message string) {
		d.Turns = append(d.Turns, models.Turn{Role: role, Text: text, Timestamp: time.Now().UTC()})
		if progress != nil {
			progress(d.Turns, message)
		}
	}

	appendTurn(models.RoleUser, models.StripRolePrefixes(exp.FirstUtterance), "user opened the conversation")

	goalReached := false
	for len(d.Turns) < gen.MaxTurns {
		if err := ctx.Err(); err != nil {
			return nil, llm.NewError(llm.KindTimeout, "", err)
		}

		role := nextRole(d.Turns)
		text := s.generateTurn(ctx, exp, d.Turns, role)
		appendTurn(role, text, fmt.Sprintf("%s replied", strings.ToLower(string(role))))

		// Loop detection runs after User turns so the wrap-up exchange
		// (bot confirmation, then user sign-off) keeps alternation.
		if role == models.RoleUser && s.loopDetected(d.Turns) {
			slog.Debug("Conversation loop detected, wrapping up", "dialogue_id", d.DialogueID)
			s.wrapUp(d, appendTurn)
			goalReached = true
			break
		}

		if len(d.Turns) >= gen.MinTurns && len(d.Turns)%s.cfg.Simulator.GoalCheckInterval == 0 {
			if s.goalSatisfied(ctx, exp, d.Turns) {
				goalReached = true
				break
			}
		}
	}

	// Pad to the minimum length with scripted turns, keeping alternation.
	for len(d.Turns) < gen.MinTurns {
		role := nextRole(d.Turns)
		appendTurn(role, fallbackTurn(role, exp, d.Turns, s.cfg.Simulator.FallbackPrices), "padded to minimum length")
	}

	d.Metadata = models.DialogueMetadata{
		NumTurns:              len(d.Turns),
		GeneratedAt:           time.Now().UTC(),
		ModelVersion:          s.client.Name(),
		MaxTurnsReached:       len(d.Turns) >= gen.MaxTurns && !goalReached,
		MinTurnsMet:           len(d.Turns) >= gen.MinTurns,
		GenerationTimeSeconds: time.Since(start).Seconds(),
	}
	return d, nil
}

// nextRole returns the role that must speak next. The opening turn is
// always User; afterwards turns strictly alternate, so two SupportBot turns
// can never be adjacent.
func nextRole(turns []models.Turn) models.Role {
	if len(turns) == 0 {
		return models.RoleUser
	}
	if turns[len(turns)-1].Role == models.RoleUser {
		return models.RoleSupportBot
	}
	return models.RoleUser
}

// generateTurn asks the LLM for the next turn, cleaning role labels and
// retrying once with a paraphrase instruction when the model repeats itself.
// Any failure yields the scripted fallback for the role.
func (s *Simulator) generateTurn(ctx context.Context, exp *models.Experience, turns []models.Turn, role models.Role) string {
	text, err := s.completeTurn(ctx, exp, turns, role, "")
	if err != nil {
		slog.Warn("Turn generation failed, using fallback",
			"role", role, "kind", llm.KindOf(err), "error", err)
		return fallbackTurn(role, exp, turns, s.cfg.Simulator.FallbackPrices)
	}

	if prev, ok := lastTurnOf(turns, role); ok && textutil.Jaccard(text, prev.Text) >= paraphraseSimilarity {
		rephrased, err := s.completeTurn(ctx, exp, turns, role,
			"Your previous message repeated itself. Say something new that moves the conversation forward.")
		if err == nil && textutil.Jaccard(rephrased, prev.Text) < paraphraseSimilarity {
			return rephrased
		}
		return fallbackTurn(role, exp, turns, s.cfg.Simulator.FallbackPrices)
	}
	return text
}

func (s *Simulator) completeTurn(ctx context.Context, exp *models.Experience, turns []models.Turn, role models.Role, extra string) (string, error) {
	gen := s.cfg.Generation

	maxTokens := gen.MaxTokensSupportBotTurn
	if role == models.RoleUser {
		maxTokens = gen.MaxTokensUserTurn
	}

	text, err := s.client.Complete(ctx, llm.Request{
		System:      s.systemPrompt(exp, role, extra),
		Prompt:      s.historyPrompt(turns, role),
		MaxTokens:   maxTokens,
		Temperature: gen.Temperature,
		TopP:        gen.TopP,
		Stop:        []string{"\nUser:", "\nSupportBot:"},
	})
	if err != nil {
		return "", err
	}

	cleaned := models.StripRolePrefixes(firstLineBlock(text))
	if strings.TrimSpace(cleaned) == "" {
		return "", llm.NewError(llm.KindBadLLMResponse, s.client.Name(), fmt.Errorf("empty %s turn", role))
	}
	return cleaned, nil
}

func (s *Simulator) systemPrompt(exp *models.Experience, role models.Role, extra string) string {
	var b strings.Builder
	if role == models.RoleUser {
		fmt.Fprintf(&b, "You are a customer: %s.\n", exp.UserPersona)
		fmt.Fprintf(&b, "Your goal: %s.\n", exp.Goal)
		if len(exp.Constraints) > 0 {
			fmt.Fprintf(&b, "Your constraints: %s.\n", strings.Join(exp.Constraints, ", "))
		}
		b.WriteString("Stay in character, pursue your goal step by step, and speak in one short conversational message. Do not prefix your message with a name.")
	} else {
		fmt.Fprintf(&b, "You are a helpful %s support agent.\n", exp.Domain)
		fmt.Fprintf(&b, "Situation: %s\n", exp.Context)
		if exp.SupportBotStyle != "" {
			fmt.Fprintf(&b, "Style: %s.\n", exp.SupportBotStyle)
		}
		b.WriteString("Answer the customer concretely, confirm bookings with details, and speak in one short message. Do not prefix your message with a name.")
	}
	if extra != "" {
		b.WriteString("\n" + extra)
	}
	return textutil.TruncateWords(b.String(), s.cfg.Generation.PromptInstructionWords)
}

// historyPrompt renders the recent turns, capped to the last K and to the
// prompt word budget.
func (s *Simulator) historyPrompt(turns []models.Turn, role models.Role) string {
	gen := s.cfg.Generation
	recent := turns
	if k := gen.PromptLastKTurns; k > 0 && len(recent) > k {
		recent = recent[len(recent)-k:]
	}

	var b strings.Builder
	b.WriteString("Conversation so far:\n")
	for _, t := range recent {
		fmt.Fprintf(&b, "%s: %s\n", t.Role, t.Text)
	}
	fmt.Fprintf(&b, "\nWrite the next %s message.", role)
	return textutil.TruncateWords(b.String(), gen.PromptMaxWords)
}

// loopDetected compares the most recent window of turns against the window
// before it, pairwise. A high average similarity means the conversation is
// circling rather than a single utterance being echoed, which keyword and
// paraphrase guards already catch.
func (s *Simulator) loopDetected(turns []models.Turn) bool {
	sim := s.cfg.Simulator
	w := sim.LoopWindow
	if w < 1 || len(turns) < 2*w {
		return false
	}

	recent := turns[len(turns)-w:]
	previous := turns[len(turns)-2*w : len(turns)-w]
	var total float64
	for i := 0; i < w; i++ {
		total += textutil.Jaccard(previous[i].Text, recent[i].Text)
	}
	return total/float64(w) >= sim.LoopSimilarity
}

// wrapUp closes a looping dialogue: the bot confirms the request in domain
// terms, the user signs off satisfied.
func (s *Simulator) wrapUp(d *models.Dialogue, appendTurn func(models.Role, string, string)) {
	appendTurn(models.RoleSupportBot, wrapUpConfirmation(d.Domain), "wrapped up after repeated turns")
	appendTurn(models.RoleUser, "Thank you, that's perfect! I'm all set.", "user confirmed satisfaction")
}

// firstLineBlock cuts a completion at the first blank line. Models sometimes
// continue the conversation beyond their own turn.
func firstLineBlock(text string) string {
	trimmed := strings.TrimSpace(text)
	if idx := strings.Index(trimmed, "\n\n"); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	// A single turn never legitimately contains another speaker's label.
	for _, label := range []string{"\nUser:", "\nSupportBot:"} {
		if idx := strings.Index(trimmed, label); idx >= 0 {
			trimmed = trimmed[:idx]
		}
	}
	return strings.TrimSpace(trimmed)
}

func lastTurnOf(turns []models.Turn, role models.Role) (models.Turn, bool) {
	for i := len(turns) - 1; i >= 0; i-- {
		if turns[i].Role == role {
			return turns[i], true
		}
	}
	return models.Turn{}, false
}
