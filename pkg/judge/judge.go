// Package judge scores generated dialogues with cheap heuristic filters and
// an LLM evaluation, repairs borderline failures, and keeps the batch
// rejection rate near its configured target.
package judge

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/goalconvo/goalconvo/pkg/config"
	"github.com/goalconvo/goalconvo/pkg/llm"
	"github.com/goalconvo/goalconvo/pkg/models"
)

// heuristicPassFloor is the heuristic score at or above which a dialogue
// passes regardless of the LLM verdict.
const heuristicPassFloor = 0.5

// Score weights: heuristics, LLM coherence, LLM overall.
const (
	weightHeuristic = 0.3
	weightCoherence = 0.3
	weightOverall   = 0.4
)

// llmPassScore is the 1-5 score both LLM dimensions must reach on the
// strict path.
const llmPassScore = 3

// defaultProbeScore stands in when a score probe returns no parseable
// digit; a mumbling rater should not sink a dialogue.
const defaultProbeScore = 3

// Probe requests are tiny on purpose: a score or a YES/NO, nothing else.
const (
	probeMaxTokens   = 10
	probeTemperature = 0.1
	reasonMaxTokens  = 150
)

var scoreRe = regexp.MustCompile(`\b([1-5])\b`)

// Judge assesses dialogue quality.
type Judge struct {
	client llm.Client
	cfg    *config.Config
}

// New creates a judge.
func New(client llm.Client, cfg *config.Config) *Judge {
	return &Judge{client: client, cfg: cfg}
}

// Assess runs all filters against one dialogue and returns the combined
// assessment. An LLM evaluation failure is recorded in the assessment and
// the decision falls back to heuristics alone.
func (j *Judge) Assess(ctx context.Context, d *models.Dialogue) *models.QualityAssessment {
	filters := runHeuristics(d, j.cfg.Generation.MinTurns, j.cfg.Generation.MaxTurns)
	passed, total := filters.Passed()
	heuristicScore := float64(passed) / float64(total)

	assessment := &models.QualityAssessment{
		HeuristicFilters: filters,
		HeuristicScore:   heuristicScore,
	}

	eval := j.evaluateLLM(ctx, d)
	assessment.LLMEvaluation = eval

	if eval.Error != "" {
		assessment.OverallScore = heuristicScore
		assessment.PassedFilters = heuristicScore >= heuristicPassFloor
		return assessment
	}

	assessment.OverallScore = weightHeuristic*heuristicScore +
		weightCoherence*(eval.CoherenceScore/5.0) +
		weightOverall*(eval.OverallScore/5.0)
	assessment.PassedFilters = heuristicScore >= heuristicPassFloor ||
		(eval.CoherenceScore >= llmPassScore && eval.OverallScore >= llmPassScore && eval.GoalRelevance)
	return assessment
}

// evaluateLLM runs the three independent judge probes: coherence 1-5, goal
// relevance YES/NO, overall quality 1-5. The first failing call aborts the
// evaluation and the error is carried on the result.
func (j *Judge) evaluateLLM(ctx context.Context, d *models.Dialogue) *models.LLMEvaluation {
	rendered := renderTurns(d)

	coherence, err := j.probeScore(ctx, fmt.Sprintf(
		"Rate the coherence of this customer support dialogue on a scale of 1 to 5.\n"+
			"A 5 means every turn follows naturally from the one before it; a 1 means the turns do not connect at all.\n\n"+
			"Dialogue:\n%s\nRespond with only a number from 1 to 5.", rendered))
	if err != nil {
		return &models.LLMEvaluation{Error: err.Error()}
	}

	relevant, err := j.probeRelevance(ctx, d.Goal, rendered)
	if err != nil {
		return &models.LLMEvaluation{Error: err.Error()}
	}

	overall, err := j.probeScore(ctx, fmt.Sprintf(
		"Rate the overall quality of this customer support dialogue on a scale of 1 to 5.\n"+
			"Consider naturalness of the language, logical flow, and whether the user's goal gets completed.\n\n"+
			"Goal: %s\n\nDialogue:\n%s\nRespond with only a number from 1 to 5.", d.Goal, rendered))
	if err != nil {
		return &models.LLMEvaluation{Error: err.Error()}
	}

	return &models.LLMEvaluation{
		CoherenceScore: coherence,
		GoalRelevance:  relevant,
		OverallScore:   overall,
	}
}

// probeScore asks for a single 1-5 rating and extracts the first digit in
// range from the reply. No digit means the default score, not a failure.
func (j *Judge) probeScore(ctx context.Context, prompt string) (float64, error) {
	text, err := j.client.Complete(ctx, llm.Request{
		System:      "You are a strict dialogue quality rater. Respond with only a number from 1 to 5.",
		Prompt:      prompt,
		MaxTokens:   probeMaxTokens,
		Temperature: probeTemperature,
	})
	if err != nil {
		return 0, err
	}
	m := scoreRe.FindStringSubmatch(text)
	if m == nil {
		return defaultProbeScore, nil
	}
	return float64(m[1][0] - '0'), nil
}

func (j *Judge) probeRelevance(ctx context.Context, goal, rendered string) (bool, error) {
	prompt := fmt.Sprintf(
		"Does this customer support dialogue stay relevant to the user's goal?\n\n"+
			"Goal: %s\n\nDialogue:\n%s\nAnswer with exactly YES or NO.", goal, rendered)
	text, err := j.client.Complete(ctx, llm.Request{
		System:      "You are a strict dialogue quality rater. Answer with exactly YES or NO.",
		Prompt:      prompt,
		MaxTokens:   probeMaxTokens,
		Temperature: probeTemperature,
	})
	if err != nil {
		return false, err
	}
	return strings.Contains(strings.ToUpper(text), "YES"), nil
}

// FilterResult is the outcome of judging a batch.
type FilterResult struct {
	Accepted []models.Dialogue
	Rejected []models.Dialogue
	// Demoted counts accepted dialogues pushed back into Rejected to keep
	// the batch rejection rate at its target.
	Demoted int
}

// Filter judges a batch. Failed dialogues get a rejection reason and,
// optionally, one repair pass. When the batch rejects fewer dialogues than
// the configured discard rate demands, the lowest-scoring accepted
// dialogues are demoted to make up the difference.
func (j *Judge) Filter(ctx context.Context, dialogues []models.Dialogue, improveOnFail bool) *FilterResult {
	res := &FilterResult{}

	for i := range dialogues {
		d := dialogues[i]
		assessment := j.Assess(ctx, &d)

		if !assessment.PassedFilters {
			reason := j.rejectionReason(ctx, &d, assessment)
			d.Metadata.RejectionReason = reason
			if improveOnFail {
				if repaired := j.repair(ctx, &d, reason); repaired != nil {
					reassessed := j.Assess(ctx, repaired)
					if reassessed.PassedFilters {
						repaired.Metadata.ImprovedByQualityJudge = true
						repaired.Metadata.RejectionReason = ""
						applyAssessment(repaired, reassessed)
						res.Accepted = append(res.Accepted, *repaired)
						continue
					}
				}
			}
		}

		applyAssessment(&d, assessment)
		if assessment.PassedFilters {
			res.Accepted = append(res.Accepted, d)
		} else {
			res.Rejected = append(res.Rejected, d)
		}
	}

	j.enforceDiscardRate(res, len(dialogues))
	return res
}

// EnforceDiscardRate applies the discard-rate demotion to an externally
// accumulated batch result. Callers that judge dialogues one at a time use
// this to get whole-run semantics.
func (j *Judge) EnforceDiscardRate(res *FilterResult, total int) {
	j.enforceDiscardRate(res, total)
}

// enforceDiscardRate demotes the lowest-quality accepted dialogues when
// the batch under-rejects its target: a run where everything passes still
// sheds its weakest tail. Demoted dialogues land at the end of Rejected.
func (j *Judge) enforceDiscardRate(res *FilterResult, total int) {
	if total == 0 || len(res.Accepted) == 0 {
		return
	}
	target := j.cfg.Judge.DiscardRate
	rejectRate := float64(len(res.Rejected)) / float64(total)
	if rejectRate >= target {
		return
	}

	n := int(float64(len(res.Accepted)) * (target - rejectRate))
	if n <= 0 {
		return
	}
	if n > len(res.Accepted) {
		n = len(res.Accepted)
	}

	sort.SliceStable(res.Accepted, func(i, k int) bool {
		return res.Accepted[i].Metadata.QualityScore < res.Accepted[k].Metadata.QualityScore
	})
	res.Rejected = append(res.Rejected, res.Accepted[:n]...)
	res.Accepted = res.Accepted[n:]
	res.Demoted += n
}

// rejectionReason asks the LLM for a short diagnosis of a failing dialogue.
// The reason feeds the repair prompt and is stored on the dialogue; an
// empty string on failure is fine.
func (j *Judge) rejectionReason(ctx context.Context, d *models.Dialogue, a *models.QualityAssessment) string {
	var b strings.Builder
	b.WriteString("This customer support dialogue failed quality verification.\n")
	fmt.Fprintf(&b, "Goal: %s\n\nDialogue:\n%s", d.Goal, renderTurns(d))
	if a.LLMEvaluation != nil && a.LLMEvaluation.Error == "" {
		fmt.Fprintf(&b, "\nScores: coherence %.0f/5, goal relevance %t, overall %.0f/5.\n",
			a.LLMEvaluation.CoherenceScore, a.LLMEvaluation.GoalRelevance, a.LLMEvaluation.OverallScore)
	}
	b.WriteString("\nIn two to four short sentences, explain why this dialogue was rejected and what must be fixed. Output only the explanation.")

	text, err := j.client.Complete(ctx, llm.Request{
		System:      "You diagnose flaws in support dialogues, briefly and concretely.",
		Prompt:      b.String(),
		MaxTokens:   reasonMaxTokens,
		Temperature: probeTemperature,
	})
	if err != nil {
		slog.Debug("Rejection reason probe failed", "dialogue_id", d.DialogueID, "error", err)
		return ""
	}
	return strings.TrimSpace(text)
}

// repair asks the LLM to rewrite a failing dialogue, feeding back the
// rejection reason, and parses the labeled lines into turns. Returns nil
// when the rewrite is unusable.
func (j *Judge) repair(ctx context.Context, d *models.Dialogue, reason string) *models.Dialogue {
	var b strings.Builder
	b.WriteString("Rewrite this customer support dialogue so it is coherent, polite, and completes the goal.\n")
	fmt.Fprintf(&b, "Goal: %s\n\nDialogue:\n%s", d.Goal, renderTurns(d))
	if reason != "" {
		fmt.Fprintf(&b, "\nIssues identified:\n%s\n", reason)
	}
	fmt.Fprintf(&b, "\nKeep the same number of turns (%d) and the alternating User/SupportBot order. Do not add new turns.\n", len(d.Turns))
	b.WriteString("Respond with only the rewritten dialogue, one turn per line, each line starting with \"User:\" or \"SupportBot:\".")

	text, err := j.client.Complete(ctx, llm.Request{
		System:      "You repair flawed support dialogues while keeping their goal and structure.",
		Prompt:      b.String(),
		MaxTokens:   j.cfg.Generation.MaxTurns * j.cfg.Generation.MaxTokensSupportBotTurn,
		Temperature: j.cfg.Generation.Temperature,
	})
	if err != nil {
		slog.Debug("Dialogue repair failed", "dialogue_id", d.DialogueID, "error", err)
		return nil
	}

	turns := parseDialogueLines(text)
	if len(turns) < 2 || turns[0].Role != models.RoleUser {
		return nil
	}

	repaired := *d
	repaired.Turns = turns
	repaired.Metadata.NumTurns = len(turns)
	return &repaired
}

// parseDialogueLines converts "User:"/"SupportBot:" labeled lines into
// turns, dropping anything unlabeled and keeping timestamps monotonic.
func parseDialogueLines(text string) []models.Turn {
	var turns []models.Turn
	base := time.Now().UTC()
	for _, line := range strings.Split(text, "\n") {
		role, content, ok := models.ParseRolePrefix(line)
		if !ok || content == "" || role == models.RoleSystem {
			continue
		}
		turns = append(turns, models.Turn{
			Role:      role,
			Text:      content,
			Timestamp: base.Add(time.Duration(len(turns)) * time.Second),
		})
	}
	return turns
}

func renderTurns(d *models.Dialogue) string {
	var b strings.Builder
	for _, t := range d.Turns {
		fmt.Fprintf(&b, "%s: %s\n", t.Role, t.Text)
	}
	return b.String()
}

func applyAssessment(d *models.Dialogue, a *models.QualityAssessment) {
	d.Metadata.QualityScore = a.OverallScore
	d.Metadata.QualityAssessment = a
}
