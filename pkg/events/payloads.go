package events

import "github.com/goalconvo/goalconvo/pkg/models"

// PipelineStartPayload announces a new run.
type PipelineStartPayload struct {
	NumDialogues  int      `json:"num_dialogues"`           // Requested dialogue count
	Domains       []string `json:"domains"`                 // Domains included in the run
	ExperimentTag string   `json:"experiment_tag,omitempty"` // Optional tag for the resulting version
}

// StepStartPayload marks the beginning of a pipeline step.
type StepStartPayload struct {
	Step    string `json:"step"`    // Step identifier (e.g. "generation", "quality_filtering", "evaluation")
	Message string `json:"message"` // Human-readable description
}

// AcceptedDialogueSummary is the per-dialogue slice of a step_data event.
type AcceptedDialogueSummary struct {
	DialogueID   string        `json:"dialogue_id"`
	QualityScore float64       `json:"quality_score"`
	Turns        []models.Turn `json:"turns"`
}

// StepDataPayload carries the results of a completed step.
type StepDataPayload struct {
	Step              string                    `json:"step"`
	Accepted          int                       `json:"accepted"`
	Rejected          int                       `json:"rejected"`
	AcceptedDialogues []AcceptedDialogueSummary `json:"accepted_dialogues,omitempty"`
}

// LiveDialoguePayload streams the in-progress dialogue, turn by turn.
type LiveDialoguePayload struct {
	DialogueIndex  int           `json:"dialogue_index"`  // 1-based index within the run
	TotalDialogues int           `json:"total_dialogues"` // Total requested for the run
	Goal           string        `json:"goal"`            // Truncated goal text
	CurrentTurns   []models.Turn `json:"current_turns"`   // All turns so far
	StepMessage    string        `json:"step_message"`    // What just happened
}

// LogPayload carries a free-form progress line.
type LogPayload struct {
	Level   string `json:"level"` // "info", "warning", "error"
	Message string `json:"message"`
}

// PipelineCompletePayload is the terminal success event of a run.
type PipelineCompletePayload struct {
	Message    string `json:"message"`
	Stats      any    `json:"stats"`                // Run statistics
	Evaluation any    `json:"evaluation,omitempty"` // Corpus evaluation report
	FinalData  any    `json:"final_data"`           // Totals and per-domain counts
}

// PipelineErrorPayload is the terminal failure event of a run.
type PipelineErrorPayload struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}
