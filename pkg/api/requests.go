package api

import "github.com/goalconvo/goalconvo/pkg/config"

// RunPipelineRequest is the body of POST /api/pipeline/run.
type RunPipelineRequest struct {
	NumDialogues  int                  `json:"num_dialogues"`
	Domains       []string             `json:"domains,omitempty"`
	SessionID     string               `json:"session_id,omitempty"` // Generated when empty
	ExperimentTag string               `json:"experiment_tag,omitempty"`
	Overrides     *config.RunOverrides `json:"overrides,omitempty"`
}

// TagVersionRequest is the body of POST /api/versions/:id/tags.
type TagVersionRequest struct {
	Tags []string `json:"tags"`
}

// CreateEvalTasksRequest is the body of POST /api/eval/tasks.
type CreateEvalTasksRequest struct {
	DialogueIDs []string `json:"dialogue_ids"`
}

// SubmitAnnotationRequest is the body of POST /api/eval/annotations.
type SubmitAnnotationRequest struct {
	TaskID    string             `json:"task_id"`
	Annotator string             `json:"annotator"`
	Ratings   map[string]float64 `json:"ratings"`
	Comment   string             `json:"comment,omitempty"`
}
