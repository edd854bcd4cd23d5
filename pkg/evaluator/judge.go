package evaluator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/goalconvo/goalconvo/pkg/llm"
	"github.com/goalconvo/goalconvo/pkg/models"
)

// judgeSampleSize caps how many dialogues the LLM judge scores; the sample
// aggregates stand in for the corpus.
const judgeSampleSize = 10

// judgeConcurrency bounds parallel judge requests so the sample does not
// burn through provider rate limits.
const judgeConcurrency = 4

// judgeVerdict is one dialogue's scores across the five rubric dimensions,
// each 0..100.
type judgeVerdict struct {
	TaskSuccess  float64 `json:"task_success"`
	Coherence    float64 `json:"coherence"`
	Diversity    float64 `json:"diversity"`
	Fluency      float64 `json:"fluency"`
	Groundedness float64 `json:"groundedness"`
}

func (v judgeVerdict) clamp() judgeVerdict {
	for _, f := range []*float64{&v.TaskSuccess, &v.Coherence, &v.Diversity, &v.Fluency, &v.Groundedness} {
		if *f < 0 {
			*f = 0
		}
		if *f > 100 {
			*f = 100
		}
	}
	return v
}

// overall is the unweighted mean of the five dimensions.
func (v judgeVerdict) overall() float64 {
	return (v.TaskSuccess + v.Coherence + v.Diversity + v.Fluency + v.Groundedness) / 5.0
}

// LLMJudgeReport aggregates the judge verdicts over the scored sample: the
// overall mean with its sample spread, per-dimension means, and per-domain
// overall means. All scores are 0..100.
type LLMJudgeReport struct {
	OverallMean   float64            `json:"overall_mean"`
	OverallStdDev float64            `json:"overall_std_dev"`
	Dimensions    map[string]float64 `json:"dimensions"`
	ByDomain      map[string]float64 `json:"by_domain"`
	NumScored     int                `json:"num_scored"`
}

// judgeCorpus asks the LLM to score a sample of dialogues on the five-part
// rubric and aggregates the verdicts. Individual failures are skipped; all
// failing yields an empty report.
func (e *Evaluator) judgeCorpus(ctx context.Context, dialogues []models.Dialogue) *LLMJudgeReport {
	sample := dialogues
	if len(sample) > judgeSampleSize {
		sample = sample[:judgeSampleSize]
	}

	verdicts := make([]judgeVerdict, len(sample))
	ok := make([]bool, len(sample))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(judgeConcurrency)
	for i := range sample {
		g.Go(func() error {
			verdict, err := e.judgeDialogue(gctx, &sample[i])
			if err != nil {
				slog.Debug("LLM judge failed for dialogue",
					"dialogue_id", sample[i].DialogueID, "error", err)
				return nil
			}
			verdicts[i] = verdict
			ok[i] = true
			return nil
		})
	}
	_ = g.Wait() // goroutines never return errors, failures are skipped

	report := &LLMJudgeReport{
		Dimensions: make(map[string]float64),
		ByDomain:   make(map[string]float64),
	}
	var overalls []float64
	dims := make(map[string][]float64)
	domains := make(map[string][]float64)
	for i, v := range verdicts {
		if !ok[i] {
			continue
		}
		o := v.overall()
		overalls = append(overalls, o)
		dims["task_success"] = append(dims["task_success"], v.TaskSuccess)
		dims["coherence"] = append(dims["coherence"], v.Coherence)
		dims["diversity"] = append(dims["diversity"], v.Diversity)
		dims["fluency"] = append(dims["fluency"], v.Fluency)
		dims["groundedness"] = append(dims["groundedness"], v.Groundedness)
		domains[sample[i].Domain] = append(domains[sample[i].Domain], o)
	}

	report.NumScored = len(overalls)
	report.OverallMean = mean(overalls)
	report.OverallStdDev = sampleStdDev(overalls)
	for name, xs := range dims {
		report.Dimensions[name] = mean(xs)
	}
	for domain, xs := range domains {
		report.ByDomain[domain] = mean(xs)
	}
	return report
}

func (e *Evaluator) judgeDialogue(ctx context.Context, d *models.Dialogue) (judgeVerdict, error) {
	var b strings.Builder
	b.WriteString("Score this customer support dialogue on five dimensions, each from 0 to 100:\n")
	b.WriteString("- task_success: the user's goal was actually completed\n")
	b.WriteString("- coherence: each turn follows logically from the turns before it\n")
	b.WriteString("- diversity: varied phrasing rather than repeated wording\n")
	b.WriteString("- fluency: natural, grammatical language\n")
	b.WriteString("- groundedness: concrete, consistent details rather than vague filler\n\n")
	fmt.Fprintf(&b, "Goal: %s\n\nDialogue:\n", d.Goal)
	for _, t := range d.Turns {
		fmt.Fprintf(&b, "%s: %s\n", t.Role, t.Text)
	}
	b.WriteString("\nRespond with JSON only: ")
	b.WriteString(`{"task_success": <0-100>, "coherence": <0-100>, "diversity": <0-100>, "fluency": <0-100>, "groundedness": <0-100>}`)

	text, err := e.client.Complete(ctx, llm.Request{
		System:      "You are a dialogue quality rater. Respond with a single JSON object.",
		Prompt:      b.String(),
		MaxTokens:   200,
		Temperature: 0.1,
	})
	if err != nil {
		return judgeVerdict{}, err
	}

	var verdict judgeVerdict
	if err := llm.ExtractJSON(text, &verdict); err != nil {
		return judgeVerdict{}, err
	}
	return verdict.clamp(), nil
}
