// Package humaneval manages human evaluation of synthetic dialogues: rating
// tasks, annotations, inter-annotator agreement, and aggregate statistics.
package humaneval

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/goalconvo/goalconvo/pkg/models"
	"github.com/goalconvo/goalconvo/pkg/store"
)

var (
	// ErrNotFound indicates the requested task or dialogue does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidRating indicates a rating outside the 1–5 scale or for an
	// unknown criterion.
	ErrInvalidRating = errors.New("invalid rating")
)

const (
	tasksFile       = "tasks.json"
	annotationsFile = "annotations.json"
)

// Service persists tasks and annotations under human_evaluations/ in the
// data directory. A single mutex serializes mutations of both files.
type Service struct {
	store *store.Store
	mu    sync.Mutex
}

// NewService creates a human evaluation service over the given store.
func NewService(s *store.Store) *Service {
	return &Service{store: s}
}

// CreateTasks creates one pending task per dialogue ID. Dialogues that
// already have a task are skipped rather than duplicated.
func (s *Service) CreateTasks(dialogueIDs []string) ([]models.EvalTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tasks, err := s.loadTasks()
	if err != nil {
		return nil, err
	}

	existing := make(map[string]bool, len(tasks))
	for _, t := range tasks {
		existing[t.DialogueID] = true
	}

	var created []models.EvalTask
	now := time.Now().UTC()
	for _, id := range dialogueIDs {
		if existing[id] {
			continue
		}
		d, err := s.store.GetDialogue(id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, fmt.Errorf("%w: dialogue %s", ErrNotFound, id)
			}
			return nil, err
		}
		task := models.EvalTask{
			TaskID:     fmt.Sprintf("task_%s_%d", id, now.Unix()),
			DialogueID: id,
			Domain:     d.Domain,
			Goal:       d.Goal,
			Status:     models.TaskStatusPending,
			CreatedAt:  now,
		}
		tasks = append(tasks, task)
		created = append(created, task)
		existing[id] = true
	}

	if len(created) > 0 {
		if err := s.saveTasks(tasks); err != nil {
			return nil, err
		}
	}
	return created, nil
}

// ListTasks returns tasks, optionally filtered by status.
func (s *Service) ListTasks(status string) ([]models.EvalTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tasks, err := s.loadTasks()
	if err != nil {
		return nil, err
	}
	if status == "" {
		return tasks, nil
	}
	var out []models.EvalTask
	for _, t := range tasks {
		if t.Status == status {
			out = append(out, t)
		}
	}
	return out, nil
}

// SubmitAnnotation records an annotator's ratings for a task and marks the
// task completed. Every known criterion must be rated on the 1–5 scale.
func (s *Service) SubmitAnnotation(taskID, annotator string, ratings map[string]float64, comment string) (*models.Annotation, error) {
	if err := validateRatings(ratings); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tasks, err := s.loadTasks()
	if err != nil {
		return nil, err
	}
	taskIdx := -1
	for i := range tasks {
		if tasks[i].TaskID == taskID {
			taskIdx = i
			break
		}
	}
	if taskIdx < 0 {
		return nil, fmt.Errorf("%w: task %s", ErrNotFound, taskID)
	}

	annotations, err := s.loadAnnotations()
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	ann := models.Annotation{
		AnnotationID: fmt.Sprintf("ann_%s_%s_%d", tasks[taskIdx].DialogueID, annotator, now.Unix()),
		TaskID:       taskID,
		DialogueID:   tasks[taskIdx].DialogueID,
		Annotator:    annotator,
		Ratings:      ratings,
		Comment:      comment,
		CreatedAt:    now,
	}
	annotations = append(annotations, ann)
	if err := s.saveAnnotations(annotations); err != nil {
		return nil, err
	}

	tasks[taskIdx].Status = models.TaskStatusCompleted
	if err := s.saveTasks(tasks); err != nil {
		return nil, err
	}
	return &ann, nil
}

// DialogueAnnotations returns all annotations for a dialogue.
func (s *Service) DialogueAnnotations(dialogueID string) ([]models.Annotation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	annotations, err := s.loadAnnotations()
	if err != nil {
		return nil, err
	}
	var out []models.Annotation
	for _, a := range annotations {
		if a.DialogueID == dialogueID {
			out = append(out, a)
		}
	}
	return out, nil
}

// AgreementForDialogue computes inter-annotator agreement per criterion: the
// fraction of ratings within 1.0 of the criterion's mean. Requires at least
// two annotations.
func (s *Service) AgreementForDialogue(dialogueID string) (map[string]float64, error) {
	annotations, err := s.DialogueAnnotations(dialogueID)
	if err != nil {
		return nil, err
	}
	if len(annotations) < 2 {
		return nil, fmt.Errorf("%w: need at least 2 annotations for dialogue %s", ErrNotFound, dialogueID)
	}

	out := make(map[string]float64)
	for _, criterion := range models.EvalCriteria {
		var ratings []float64
		for _, a := range annotations {
			if r, ok := a.Ratings[criterion]; ok {
				ratings = append(ratings, r)
			}
		}
		if len(ratings) == 0 {
			continue
		}
		mean := meanOf(ratings)
		within := 0
		for _, r := range ratings {
			if math.Abs(r-mean) <= 1.0 {
				within++
			}
		}
		out[criterion] = float64(within) / float64(len(ratings))
	}
	return out, nil
}

// Statistics aggregates the whole evaluation corpus.
func (s *Service) Statistics() (*models.EvalStatistics, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tasks, err := s.loadTasks()
	if err != nil {
		return nil, err
	}
	annotations, err := s.loadAnnotations()
	if err != nil {
		return nil, err
	}

	completed := 0
	for _, t := range tasks {
		if t.Status == models.TaskStatusCompleted {
			completed++
		}
	}

	annotators := make(map[string]bool)
	byCriterion := make(map[string][]float64)
	for _, a := range annotations {
		annotators[a.Annotator] = true
		for criterion, r := range a.Ratings {
			byCriterion[criterion] = append(byCriterion[criterion], r)
		}
	}

	stats := &models.EvalStatistics{
		TotalTasks:       len(tasks),
		CompletedTasks:   completed,
		TotalAnnotations: len(annotations),
		Annotators:       len(annotators),
		ByCriterion:      make(map[string]models.CriterionStats),
	}
	for criterion, ratings := range byCriterion {
		stats.ByCriterion[criterion] = models.CriterionStats{
			Mean:   meanOf(ratings),
			StdDev: stddevOf(ratings),
			Count:  len(ratings),
		}
	}
	return stats, nil
}

// Export returns the full evaluation corpus for external analysis.
func (s *Service) Export() (map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tasks, err := s.loadTasks()
	if err != nil {
		return nil, err
	}
	annotations, err := s.loadAnnotations()
	if err != nil {
		return nil, err
	}
	sort.Slice(annotations, func(i, j int) bool {
		return annotations[i].CreatedAt.Before(annotations[j].CreatedAt)
	})
	return map[string]any{
		"exported_at": time.Now().UTC(),
		"tasks":       tasks,
		"annotations": annotations,
		"criteria":    models.EvalCriteria,
	}, nil
}

func validateRatings(ratings map[string]float64) error {
	if len(ratings) == 0 {
		return fmt.Errorf("%w: no ratings given", ErrInvalidRating)
	}
	known := make(map[string]bool, len(models.EvalCriteria))
	for _, c := range models.EvalCriteria {
		known[c] = true
	}
	for criterion, r := range ratings {
		if !known[criterion] {
			return fmt.Errorf("%w: unknown criterion %q", ErrInvalidRating, criterion)
		}
		if r < 1 || r > 5 {
			return fmt.Errorf("%w: %s=%v outside 1-5", ErrInvalidRating, criterion, r)
		}
	}
	return nil
}

func (s *Service) loadTasks() ([]models.EvalTask, error) {
	var tasks []models.EvalTask
	err := s.store.ReadJSON(s.store.Path("human_evaluations", tasksFile), &tasks)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	return tasks, nil
}

func (s *Service) saveTasks(tasks []models.EvalTask) error {
	return s.store.WriteJSON(s.store.Path("human_evaluations", tasksFile), tasks)
}

func (s *Service) loadAnnotations() ([]models.Annotation, error) {
	var annotations []models.Annotation
	err := s.store.ReadJSON(s.store.Path("human_evaluations", annotationsFile), &annotations)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	return annotations, nil
}

func (s *Service) saveAnnotations(annotations []models.Annotation) error {
	return s.store.WriteJSON(s.store.Path("human_evaluations", annotationsFile), annotations)
}

func meanOf(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// stddevOf is the sample standard deviation. A single observation has
// standard deviation 0.
func stddevOf(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	mean := meanOf(xs)
	var sum float64
	for _, x := range xs {
		sum += (x - mean) * (x - mean)
	}
	return math.Sqrt(sum / float64(len(xs)-1))
}
