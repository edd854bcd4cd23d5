package models

import "time"

// Version describes one immutable snapshot of the synthetic dataset.
// VersionID is a UTC timestamp in "20060102_150405" format. Checksum is the
// first 16 hex characters of the SHA-256 over the canonically sorted
// dialogue JSON, so two snapshots with identical content share a checksum
// regardless of dialogue ordering.
type Version struct {
	VersionID        string         `json:"version_id"`
	Checksum         string         `json:"checksum"`
	ParentVersion    string         `json:"parent_version,omitempty"`
	Description      string         `json:"description"`
	Tags             []string       `json:"tags"`
	NumDialogues     int            `json:"num_dialogues"`
	Domains          map[string]int `json:"domains"`
	GenerationConfig map[string]any `json:"generation_config,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
}

// ConfigChange records one generation setting that differs between two
// snapshots. From is nil when the setting appeared in B, To is nil when it
// disappeared.
type ConfigChange struct {
	From any `json:"from"`
	To   any `json:"to"`
}

// VersionComparison is the result of diffing two snapshots.
type VersionComparison struct {
	VersionA      string                  `json:"version_a"`
	VersionB      string                  `json:"version_b"`
	DialoguesA    int                     `json:"dialogues_a"`
	DialoguesB    int                     `json:"dialogues_b"`
	Added         int                     `json:"added"`
	Removed       int                     `json:"removed"`
	Common        int                     `json:"common"`
	AvgQualityA   float64                 `json:"avg_quality_a"`
	AvgQualityB   float64                 `json:"avg_quality_b"`
	QualityDelta  float64                 `json:"quality_delta"`
	DomainsA      map[string]int          `json:"domains_a"`
	DomainsB      map[string]int          `json:"domains_b"`
	AvgTurnsA     float64                 `json:"avg_turns_a"`
	AvgTurnsB     float64                 `json:"avg_turns_b"`
	AvgTurnsDelta float64                 `json:"avg_turns_delta"`
	ConfigDiff    map[string]ConfigChange `json:"config_diff,omitempty"`
	SameContent   bool                    `json:"same_content"`
}
