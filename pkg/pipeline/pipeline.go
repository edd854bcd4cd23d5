// Package pipeline orchestrates a full generation run: goal sampling,
// experience seeding, two-agent simulation, quality judging, dataset
// persistence, corpus evaluation, and version snapshotting, with live
// progress streamed over the event bus.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/goalconvo/goalconvo/pkg/config"
	"github.com/goalconvo/goalconvo/pkg/evaluator"
	"github.com/goalconvo/goalconvo/pkg/events"
	"github.com/goalconvo/goalconvo/pkg/experience"
	"github.com/goalconvo/goalconvo/pkg/judge"
	"github.com/goalconvo/goalconvo/pkg/llm"
	"github.com/goalconvo/goalconvo/pkg/models"
	"github.com/goalconvo/goalconvo/pkg/simulator"
	"github.com/goalconvo/goalconvo/pkg/store"
	"github.com/goalconvo/goalconvo/pkg/versioning"
)

// ErrRunInProgress is returned when a session already has an active run.
var ErrRunInProgress = errors.New("a pipeline run is already active for this session")

// hubRefreshEvery is how many accepted dialogues trigger a few-shot hub
// refresh mid-run; the hub is always refreshed once more at the end.
const hubRefreshEvery = 100

// goalPreviewLen caps the goal text carried on live events.
const goalPreviewLen = 80

// RunRequest describes one generation run.
type RunRequest struct {
	NumDialogues  int                  `json:"num_dialogues"`
	Domains       []string             `json:"domains,omitempty"`
	SessionID     string               `json:"session_id"`
	ExperimentTag string               `json:"experiment_tag,omitempty"`
	Overrides     *config.RunOverrides `json:"overrides,omitempty"`
}

// DomainStats counts outcomes for one domain.
type DomainStats struct {
	Generated int `json:"generated"`
	Accepted  int `json:"accepted"`
	Rejected  int `json:"rejected"`
}

// Stats summarizes a completed run.
type Stats struct {
	TotalGenerated int                     `json:"total_generated"`
	TotalAccepted  int                     `json:"total_accepted"`
	TotalRejected  int                     `json:"total_rejected"`
	ByDomain       map[string]*DomainStats `json:"by_domain"`
	StartedAt      time.Time               `json:"started_at"`
	EndedAt        time.Time               `json:"ended_at"`
}

// Result is the outcome of a finished run.
type Result struct {
	Stats      *Stats            `json:"stats"`
	Evaluation *evaluator.Report `json:"evaluation,omitempty"`
	Version    *models.Version   `json:"version,omitempty"`
}

// Runner executes pipeline runs. One run per session at a time; distinct
// sessions may run concurrently.
type Runner struct {
	client    llm.Client
	store     *store.Store
	bus       *events.Bus
	versions  *versioning.Manager
	evaluator *evaluator.Evaluator
	cfg       *config.Config

	mu      sync.Mutex
	running map[string]bool
}

// NewRunner creates a pipeline runner.
func NewRunner(client llm.Client, st *store.Store, bus *events.Bus, versions *versioning.Manager, eval *evaluator.Evaluator, cfg *config.Config) *Runner {
	return &Runner{
		client:    client,
		store:     st,
		bus:       bus,
		versions:  versions,
		evaluator: eval,
		cfg:       cfg,
		running:   make(map[string]bool),
	}
}

// Run executes a full generation run, publishing progress to the session's
// event stream. It blocks until the run completes; callers wanting async
// behavior run it in a goroutine and watch the events.
func (r *Runner) Run(ctx context.Context, req RunRequest) (*Result, error) {
	if err := r.Validate(&req); err != nil {
		return nil, err
	}
	if err := r.acquireSession(req.SessionID); err != nil {
		return nil, err
	}
	defer r.releaseSession(req.SessionID)
	defer r.bus.EndSession(req.SessionID)

	result, err := r.run(ctx, req)
	if err != nil {
		r.publish(req.SessionID, events.EventTypePipelineError, events.PipelineErrorPayload{
			Message: "pipeline run failed",
			Error:   err.Error(),
		})
		return nil, err
	}
	return result, nil
}

func (r *Runner) run(ctx context.Context, req RunRequest) (*Result, error) {
	cfg := req.Overrides.Apply(r.cfg)
	gen := experience.NewGenerator(r.client, r.store, cfg)
	sim := simulator.New(r.client, cfg)
	j := judge.New(r.client, cfg)
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	seeds, err := r.store.LoadSeedGoals()
	if err != nil {
		return nil, fmt.Errorf("loading seed goals: %w", err)
	}

	stats := &Stats{
		ByDomain:  make(map[string]*DomainStats),
		StartedAt: time.Now().UTC(),
	}
	for _, domain := range req.Domains {
		stats.ByDomain[domain] = &DomainStats{}
	}

	r.publish(req.SessionID, events.EventTypePipelineStart, events.PipelineStartPayload{
		NumDialogues:  req.NumDialogues,
		Domains:       req.Domains,
		ExperimentTag: req.ExperimentTag,
	})
	r.publish(req.SessionID, events.EventTypeStepStart, events.StepStartPayload{
		Step:    "generation",
		Message: fmt.Sprintf("Generating %d dialogues across %d domains", req.NumDialogues, len(req.Domains)),
	})

	batch := &judge.FilterResult{}
	quotas := splitQuota(req.NumDialogues, req.Domains)
	index := 0

	for _, domain := range req.Domains {
		for n := 0; n < quotas[domain]; n++ {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			index++

			d, err := r.generateOne(ctx, req, gen, sim, seeds, rng, domain, index)
			if err != nil {
				r.publish(req.SessionID, events.EventTypeLog, events.LogPayload{
					Level:   "warning",
					Message: fmt.Sprintf("Dialogue %d/%d failed: %v", index, req.NumDialogues, err),
				})
				continue
			}
			stats.TotalGenerated++
			stats.ByDomain[domain].Generated++

			accepted := r.judgeOne(ctx, req, j, d, batch)
			if accepted {
				stats.TotalAccepted++
				stats.ByDomain[domain].Accepted++
			} else {
				stats.TotalRejected++
				stats.ByDomain[domain].Rejected++
			}

			r.writeProgress(req, stats, index)
			if stats.TotalAccepted > 0 && stats.TotalAccepted%hubRefreshEvery == 0 {
				r.refreshHub(req.SessionID, batch.Accepted)
			}
		}
	}

	// Whole-run discard-rate enforcement: a run that under-rejected its
	// target sheds its weakest accepted dialogues before anything is
	// persisted.
	if req.Overrides.JudgeEnabled() {
		rejectedBefore := len(batch.Rejected)
		j.EnforceDiscardRate(batch, stats.TotalGenerated)
		for _, d := range batch.Rejected[rejectedBefore:] {
			stats.TotalAccepted--
			stats.TotalRejected++
			if ds, ok := stats.ByDomain[d.Domain]; ok {
				ds.Accepted--
				ds.Rejected++
			}
		}
		if batch.Demoted > 0 {
			r.publish(req.SessionID, events.EventTypeLog, events.LogPayload{
				Level:   "info",
				Message: fmt.Sprintf("Rejection rate below target, demoted %d lowest-scoring dialogues", batch.Demoted),
			})
		}
	}

	for i := range batch.Accepted {
		if err := r.store.SaveDialogue(&batch.Accepted[i]); err != nil {
			return nil, fmt.Errorf("saving dialogue %s: %w", batch.Accepted[i].DialogueID, err)
		}
	}

	r.refreshHub(req.SessionID, batch.Accepted)
	r.publish(req.SessionID, events.EventTypeStepData, events.StepDataPayload{
		Step:              "quality_filtering",
		Accepted:          stats.TotalAccepted,
		Rejected:          stats.TotalRejected,
		AcceptedDialogues: summarize(batch.Accepted),
	})

	r.publish(req.SessionID, events.EventTypeStepStart, events.StepStartPayload{
		Step:    "evaluation",
		Message: "Evaluating the dataset against references",
	})
	report, err := r.evaluator.Evaluate(ctx, batch.Accepted)
	if err != nil {
		slog.Warn("Corpus evaluation failed", "session_id", req.SessionID, "error", err)
		r.publish(req.SessionID, events.EventTypeLog, events.LogPayload{
			Level:   "warning",
			Message: fmt.Sprintf("Evaluation failed: %v", err),
		})
	}

	r.publish(req.SessionID, events.EventTypeStepStart, events.StepStartPayload{
		Step:    "versioning",
		Message: "Creating dataset version snapshot",
	})
	version, err := r.createVersion(req, stats, cfg)
	if err != nil {
		slog.Warn("Version snapshot failed", "session_id", req.SessionID, "error", err)
	}

	stats.EndedAt = time.Now().UTC()
	r.writeProgress(req, stats, req.NumDialogues)

	result := &Result{Stats: stats, Evaluation: report, Version: version}
	r.publish(req.SessionID, events.EventTypePipelineComplete, events.PipelineCompletePayload{
		Message:    fmt.Sprintf("Accepted %d of %d generated dialogues", stats.TotalAccepted, stats.TotalGenerated),
		Stats:      stats,
		Evaluation: report,
		FinalData: map[string]any{
			"total_accepted": stats.TotalAccepted,
			"by_domain":      stats.ByDomain,
		},
	})
	return result, nil
}

// generateOne produces a single simulated dialogue, streaming each turn as
// a live event.
func (r *Runner) generateOne(ctx context.Context, req RunRequest, gen *experience.Generator, sim *simulator.Simulator, seeds store.SeedGoals, rng *rand.Rand, domain string, index int) (*models.Dialogue, error) {
	goal, err := seeds.RandomGoal(rng, domain)
	if err != nil {
		return nil, err
	}
	exp, err := gen.Generate(ctx, domain, goal)
	if err != nil {
		return nil, err
	}

	progress := func(turns []models.Turn, message string) {
		r.publish(req.SessionID, events.EventTypeLiveDialogue, events.LiveDialoguePayload{
			DialogueIndex:  index,
			TotalDialogues: req.NumDialogues,
			Goal:           preview(goal),
			CurrentTurns:   turns,
			StepMessage:    message,
		})
	}
	return sim.Simulate(ctx, exp, progress)
}

// judgeOne assesses one dialogue (unless judging is disabled for this run)
// and records the outcome on the accumulated batch result.
func (r *Runner) judgeOne(ctx context.Context, req RunRequest, j *judge.Judge, d *models.Dialogue, batch *judge.FilterResult) bool {
	if !req.Overrides.JudgeEnabled() {
		batch.Accepted = append(batch.Accepted, *d)
		return true
	}

	improve := r.cfg.Judge.ImproveOnFail
	if req.Overrides != nil && req.Overrides.QualityImproveOnFail != nil {
		improve = *req.Overrides.QualityImproveOnFail
	}

	res := j.Filter(ctx, []models.Dialogue{*d}, improve)
	if len(res.Accepted) == 1 {
		*d = res.Accepted[0]
		batch.Accepted = append(batch.Accepted, *d)
		return true
	}
	batch.Rejected = append(batch.Rejected, res.Rejected...)
	return false
}

func (r *Runner) createVersion(req RunRequest, stats *Stats, cfg *config.Config) (*models.Version, error) {
	tags := []string{"pipeline", "auto-generated"}
	if req.ExperimentTag != "" {
		tags = append(tags, req.ExperimentTag)
	}
	description := fmt.Sprintf("Pipeline run %s: %d dialogues accepted", req.SessionID, stats.TotalAccepted)
	genConfig := map[string]any{
		"temperature":       cfg.Generation.Temperature,
		"top_p":             cfg.Generation.TopP,
		"min_turns":         cfg.Generation.MinTurns,
		"max_turns":         cfg.Generation.MaxTurns,
		"few_shot_examples": cfg.Generation.FewShotExamples,
		"domains":           req.Domains,
		"judge_enabled":     req.Overrides.JudgeEnabled(),
		"discard_rate":      cfg.Judge.DiscardRate,
	}
	return r.versions.Create(description, tags, genConfig)
}

func (r *Runner) refreshHub(sessionID string, accepted []models.Dialogue) {
	promoted, err := r.store.RefreshHub(accepted, r.cfg.Judge.QualityThreshold)
	if err != nil {
		slog.Warn("Hub refresh failed", "session_id", sessionID, "error", err)
		return
	}
	if promoted > 0 {
		r.publish(sessionID, events.EventTypeLog, events.LogPayload{
			Level:   "info",
			Message: fmt.Sprintf("Promoted %d dialogues to the few-shot hub", promoted),
		})
	}
}

func (r *Runner) writeProgress(req RunRequest, stats *Stats, completed int) {
	err := r.store.WriteProgress(map[string]any{
		"session_id": req.SessionID,
		"completed":  completed,
		"total":      req.NumDialogues,
		"accepted":   stats.TotalAccepted,
		"rejected":   stats.TotalRejected,
		"updated_at": time.Now().UTC(),
	})
	if err != nil {
		slog.Warn("Failed to write progress file", "error", err)
	}
}

// publish forwards an event to the session stream. Delivery problems are
// logged, not fatal: a slow viewer must not sink the run, so a bounded
// wait applies instead of the caller's context.
func (r *Runner) publish(sessionID, eventType string, payload any) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := r.bus.Publish(ctx, sessionID, eventType, payload); err != nil {
		slog.Warn("Event publish failed",
			"session_id", sessionID, "event_type", eventType, "error", err)
	}
}

// Validate checks a run request and fills in the default domain list.
func (r *Runner) Validate(req *RunRequest) error {
	if req.NumDialogues < 1 {
		return fmt.Errorf("num_dialogues must be at least 1")
	}
	if req.SessionID == "" {
		return fmt.Errorf("session_id is required")
	}
	if len(req.Domains) == 0 {
		req.Domains = append([]string(nil), r.cfg.Generation.Domains...)
	}
	known := make(map[string]bool, len(config.KnownDomains))
	for _, d := range config.KnownDomains {
		known[d] = true
	}
	for _, d := range req.Domains {
		if !known[d] {
			return fmt.Errorf("unknown domain %q", d)
		}
	}
	return nil
}

func (r *Runner) acquireSession(sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running[sessionID] {
		return ErrRunInProgress
	}
	r.running[sessionID] = true
	return nil
}

func (r *Runner) releaseSession(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.running, sessionID)
}

// splitQuota distributes n dialogues over the domains: each gets n/len,
// the remainder goes to the first domains in order.
func splitQuota(n int, domains []string) map[string]int {
	quotas := make(map[string]int, len(domains))
	base := n / len(domains)
	remainder := n % len(domains)
	for i, domain := range domains {
		quotas[domain] = base
		if i < remainder {
			quotas[domain]++
		}
	}
	return quotas
}

func summarize(accepted []models.Dialogue) []events.AcceptedDialogueSummary {
	out := make([]events.AcceptedDialogueSummary, 0, len(accepted))
	for i := range accepted {
		out = append(out, events.AcceptedDialogueSummary{
			DialogueID:   accepted[i].DialogueID,
			QualityScore: accepted[i].Metadata.QualityScore,
			Turns:        accepted[i].Turns,
		})
	}
	return out
}

func preview(goal string) string {
	if len(goal) <= goalPreviewLen {
		return goal
	}
	return goal[:goalPreviewLen] + "…"
}
