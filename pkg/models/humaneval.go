package models

import "time"

// Evaluation task status values.
const (
	TaskStatusPending   = "pending"
	TaskStatusCompleted = "completed"
)

// EvalCriteria are the rating dimensions annotators score (1–5 each).
var EvalCriteria = []string{"naturalness", "coherence", "goal_completion", "overall"}

// EvalTask asks a human annotator to rate one dialogue.
type EvalTask struct {
	TaskID     string    `json:"task_id"`
	DialogueID string    `json:"dialogue_id"`
	Domain     string    `json:"domain"`
	Goal       string    `json:"goal"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
}

// Annotation is one annotator's ratings for a dialogue.
type Annotation struct {
	AnnotationID string             `json:"annotation_id"`
	TaskID       string             `json:"task_id"`
	DialogueID   string             `json:"dialogue_id"`
	Annotator    string             `json:"annotator"`
	Ratings      map[string]float64 `json:"ratings"`
	Comment      string             `json:"comment,omitempty"`
	CreatedAt    time.Time          `json:"created_at"`
}

// CriterionStats summarizes annotator ratings for one criterion.
type CriterionStats struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Count  int     `json:"count"`
}

// EvalStatistics aggregates the human evaluation corpus.
type EvalStatistics struct {
	TotalTasks       int                       `json:"total_tasks"`
	CompletedTasks   int                       `json:"completed_tasks"`
	TotalAnnotations int                       `json:"total_annotations"`
	Annotators       int                       `json:"annotators"`
	ByCriterion      map[string]CriterionStats `json:"by_criterion"`
}
