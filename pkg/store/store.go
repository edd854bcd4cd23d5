// Package store persists the synthetic dataset on disk: accepted dialogues,
// seed goals, the few-shot hub, reference dialogues, and evaluation results.
// All writes go through a temp-file-plus-rename so readers never observe a
// partially written file.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/goalconvo/goalconvo/pkg/models"
)

// ErrNotFound indicates the requested record does not exist.
var ErrNotFound = errors.New("not found")

// Store is a filesystem-backed dataset store rooted at a data directory.
type Store struct {
	dir string
}

// New creates a store rooted at dir, creating the directory tree as needed.
func New(dir string) (*Store, error) {
	for _, sub := range []string{"synthetic", "few_shot_hub", "multiwoz", "versions", "human_evaluations", "results"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
	}
	return &Store{dir: dir}, nil
}

// Dir returns the data directory root.
func (s *Store) Dir() string { return s.dir }

// Path returns a path under the data directory.
func (s *Store) Path(elem ...string) string {
	return filepath.Join(append([]string{s.dir}, elem...)...)
}

// WriteJSON atomically writes v as indented JSON to a path under the data
// directory, creating parent directories as needed.
func (s *Store) WriteJSON(path string, v any) error {
	return atomicWriteJSON(path, v)
}

// ReadJSON reads a JSON file into v. Returns ErrNotFound when absent.
func (s *Store) ReadJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return err
	}
	return json.Unmarshal(data, v)
}

func atomicWriteJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}

// SaveDialogue persists an accepted dialogue under synthetic/<domain>/.
func (s *Store) SaveDialogue(d *models.Dialogue) error {
	if d.DialogueID == "" {
		return errors.New("dialogue has no ID")
	}
	path := s.Path("synthetic", d.Domain, d.DialogueID+".json")
	return atomicWriteJSON(path, d)
}

// GetDialogue loads one dialogue by ID, searching all domains.
func (s *Store) GetDialogue(id string) (*models.Dialogue, error) {
	domains, err := s.syntheticDomains()
	if err != nil {
		return nil, err
	}
	for _, domain := range domains {
		var d models.Dialogue
		err := s.ReadJSON(s.Path("synthetic", domain, id+".json"), &d)
		if err == nil {
			return &d, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("%w: dialogue %s", ErrNotFound, id)
}

// AllDialogues loads every stored synthetic dialogue, sorted by generation
// time so snapshots are deterministic.
func (s *Store) AllDialogues() ([]models.Dialogue, error) {
	domains, err := s.syntheticDomains()
	if err != nil {
		return nil, err
	}

	var out []models.Dialogue
	for _, domain := range domains {
		ds, err := s.DomainDialogues(domain)
		if err != nil {
			return nil, err
		}
		out = append(out, ds...)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Metadata.GeneratedAt.Equal(out[j].Metadata.GeneratedAt) {
			return out[i].Metadata.GeneratedAt.Before(out[j].Metadata.GeneratedAt)
		}
		return out[i].DialogueID < out[j].DialogueID
	})
	return out, nil
}

// DomainDialogues loads all synthetic dialogues for one domain.
func (s *Store) DomainDialogues(domain string) ([]models.Dialogue, error) {
	return s.readDialogueDir(s.Path("synthetic", domain))
}

func (s *Store) readDialogueDir(dir string) ([]models.Dialogue, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var out []models.Dialogue
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		var d models.Dialogue
		if err := s.ReadJSON(filepath.Join(dir, e.Name()), &d); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

func (s *Store) syntheticDomains() ([]string, error) {
	entries, err := os.ReadDir(s.Path("synthetic"))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			out = append(out, e.Name())
		}
	}
	sort.Strings(out)
	return out, nil
}

// References loads the reference dialogues used by the evaluator, up to
// limit entries (0 means no cap).
func (s *Store) References(limit int) ([]models.Dialogue, error) {
	var refs []models.Dialogue
	err := s.ReadJSON(s.Path("multiwoz", "processed_dialogues.json"), &refs)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if limit > 0 && len(refs) > limit {
		refs = refs[:limit]
	}
	return refs, nil
}

// SaveEvaluationReport persists an evaluation report under results/ and
// returns the path it was written to.
func (s *Store) SaveEvaluationReport(report any) (string, error) {
	name := fmt.Sprintf("comprehensive_evaluation_%s.json", time.Now().UTC().Format("20060102_150405"))
	path := s.Path("results", name)
	if err := atomicWriteJSON(path, report); err != nil {
		return "", err
	}
	return path, nil
}

// WriteProgress persists the latest pipeline progress snapshot. Overwritten
// on every update; useful for inspecting a run from outside the event stream.
func (s *Store) WriteProgress(v any) error {
	return atomicWriteJSON(s.Path("generation_progress.json"), v)
}
