package versioning

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/goalconvo/goalconvo/pkg/models"
)

// ErrUnsupportedFormat indicates an unknown export format was requested.
var ErrUnsupportedFormat = errors.New("unsupported export format")

// Export formats.
const (
	FormatJSON  = "json"
	FormatJSONL = "jsonl"
	FormatHF    = "hf"
	FormatRasa  = "rasa"
)

// ExportFile is one file produced by an export.
type ExportFile struct {
	Name string `json:"name"`
	Data []byte `json:"data"`
}

// ExportResult holds every file an export produced. Most formats emit one
// file; the HF format emits the training file plus dataset metadata.
type ExportResult struct {
	Format string
	Files  []ExportFile
}

// Export renders a version's dialogues in the requested format.
func (m *Manager) Export(versionID, format string) (*ExportResult, error) {
	v, err := m.Get(versionID)
	if err != nil {
		return nil, err
	}
	dialogues, err := m.Dialogues(versionID)
	if err != nil {
		return nil, err
	}

	switch format {
	case FormatJSON:
		data, err := json.MarshalIndent(dialogues, "", "  ")
		if err != nil {
			return nil, err
		}
		return &ExportResult{Format: format, Files: []ExportFile{
			{Name: fmt.Sprintf("dialogues_%s.json", versionID), Data: data},
		}}, nil

	case FormatJSONL:
		data, err := toJSONL(dialogues)
		if err != nil {
			return nil, err
		}
		return &ExportResult{Format: format, Files: []ExportFile{
			{Name: fmt.Sprintf("dialogues_%s.jsonl", versionID), Data: data},
		}}, nil

	case FormatHF:
		train, err := toJSONL(dialogues)
		if err != nil {
			return nil, err
		}
		info, err := json.MarshalIndent(map[string]any{
			"dataset_name": "goalconvo",
			"version_id":   v.VersionID,
			"checksum":     v.Checksum,
			"num_examples": len(dialogues),
			"domains":      v.Domains,
			"created_at":   v.CreatedAt.Format(time.RFC3339),
			"splits":       map[string]int{"train": len(dialogues)},
		}, "", "  ")
		if err != nil {
			return nil, err
		}
		return &ExportResult{Format: format, Files: []ExportFile{
			{Name: "train.jsonl", Data: train},
			{Name: "dataset_info.json", Data: info},
		}}, nil

	case FormatRasa:
		data, err := toRasaStories(dialogues)
		if err != nil {
			return nil, err
		}
		return &ExportResult{Format: format, Files: []ExportFile{
			{Name: "stories.yml", Data: data},
		}}, nil

	default:
		return nil, fmt.Errorf("%w %q", ErrUnsupportedFormat, format)
	}
}

func toJSONL(dialogues []models.Dialogue) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, d := range dialogues {
		if err := enc.Encode(d); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

type rasaStep struct {
	Intent string `yaml:"intent,omitempty"`
	User   string `yaml:"user,omitempty"`
	Action string `yaml:"action,omitempty"`
}

type rasaStory struct {
	Story string     `yaml:"story"`
	Steps []rasaStep `yaml:"steps"`
}

type rasaFile struct {
	Version string      `yaml:"version"`
	Stories []rasaStory `yaml:"stories"`
}

// toRasaStories converts dialogues into Rasa 3.0 training stories. User
// turns become intent steps carrying the utterance; SupportBot turns become
// response actions.
func toRasaStories(dialogues []models.Dialogue) ([]byte, error) {
	file := rasaFile{Version: "3.0"}
	for _, d := range dialogues {
		story := rasaStory{Story: "dialogue_" + d.DialogueID}
		botIdx := 0
		for _, t := range d.Turns {
			switch t.Role {
			case models.RoleUser:
				story.Steps = append(story.Steps, rasaStep{
					Intent: "user_message",
					User:   escapeRasaText(t.Text),
				})
			case models.RoleSupportBot:
				botIdx++
				story.Steps = append(story.Steps, rasaStep{
					Action: fmt.Sprintf("utter_response_%d", botIdx),
				})
			}
		}
		file.Stories = append(file.Stories, story)
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(file); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// escapeRasaText flattens newlines and strips characters that break Rasa's
// YAML story parser.
func escapeRasaText(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", " ")
	return strings.TrimSpace(s)
}
