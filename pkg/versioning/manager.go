// Package versioning snapshots the synthetic dataset into immutable,
// content-addressed versions with parent lineage, tags, diffing, and export.
package versioning

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/goalconvo/goalconvo/pkg/models"
	"github.com/goalconvo/goalconvo/pkg/store"
)

// ErrNotFound indicates the requested version does not exist.
var ErrNotFound = errors.New("version not found")

// ErrEmptyDataset indicates there are no dialogues to snapshot.
var ErrEmptyDataset = errors.New("no dialogues to snapshot")

const indexFile = "version_metadata.json"

// Manager owns the version index. A single mutex serializes every mutation
// so concurrent snapshot requests cannot corrupt the index; reads of
// immutable snapshot content need no locking.
type Manager struct {
	store *store.Store
	mu    sync.Mutex
}

// NewManager creates a version manager over the given store.
func NewManager(s *store.Store) *Manager {
	return &Manager{store: s}
}

// Create snapshots all current synthetic dialogues into a new version.
// The version ID is the UTC creation timestamp; the checksum is content
// derived, so identical datasets produce identical checksums. genConfig
// records the generation settings that produced the snapshot and may be nil
// for manually triggered snapshots.
func (m *Manager) Create(description string, tags []string, genConfig map[string]any) (*models.Version, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	dialogues, err := m.store.AllDialogues()
	if err != nil {
		return nil, err
	}
	if len(dialogues) == 0 {
		return nil, ErrEmptyDataset
	}

	index, err := m.loadIndex()
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	versionID := now.Format("20060102_150405")
	if _, ok := findVersion(index, versionID); ok {
		// Two snapshots within the same second; disambiguate.
		versionID = fmt.Sprintf("%s_%d", versionID, len(index))
	}

	checksum, err := Checksum(dialogues)
	if err != nil {
		return nil, err
	}

	domains := make(map[string]int)
	for _, d := range dialogues {
		domains[d.Domain]++
	}

	v := models.Version{
		VersionID:        versionID,
		Checksum:         checksum,
		Description:      description,
		Tags:             dedupTags(tags),
		NumDialogues:     len(dialogues),
		Domains:          domains,
		GenerationConfig: genConfig,
		CreatedAt:        now,
	}
	if len(index) > 0 {
		v.ParentVersion = index[len(index)-1].VersionID
	}

	if err := m.store.WriteJSON(m.store.Path("versions", versionID, "dialogues.json"), dialogues); err != nil {
		return nil, err
	}

	index = append(index, v)
	if err := m.saveIndex(index); err != nil {
		return nil, err
	}
	return &v, nil
}

// List returns all versions, newest first.
func (m *Manager) List() ([]models.Version, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	index, err := m.loadIndex()
	if err != nil {
		return nil, err
	}
	out := make([]models.Version, len(index))
	copy(out, index)
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// Get returns one version's metadata.
func (m *Manager) Get(versionID string) (*models.Version, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	index, err := m.loadIndex()
	if err != nil {
		return nil, err
	}
	if v, ok := findVersion(index, versionID); ok {
		return &v, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, versionID)
}

// Dialogues returns the snapshot content of a version.
func (m *Manager) Dialogues(versionID string) ([]models.Dialogue, error) {
	if _, err := m.Get(versionID); err != nil {
		return nil, err
	}
	var dialogues []models.Dialogue
	if err := m.store.ReadJSON(m.store.Path("versions", versionID, "dialogues.json"), &dialogues); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, versionID)
		}
		return nil, err
	}
	return dialogues, nil
}

// Compare diffs two versions: dialogue identity, quality and turn-count
// averages, domain counts, and the generation settings that changed.
func (m *Manager) Compare(aID, bID string) (*models.VersionComparison, error) {
	a, err := m.Get(aID)
	if err != nil {
		return nil, err
	}
	b, err := m.Get(bID)
	if err != nil {
		return nil, err
	}
	dialoguesA, err := m.Dialogues(aID)
	if err != nil {
		return nil, err
	}
	dialoguesB, err := m.Dialogues(bID)
	if err != nil {
		return nil, err
	}

	idsA := make(map[string]bool, len(dialoguesA))
	for _, d := range dialoguesA {
		idsA[d.DialogueID] = true
	}
	idsB := make(map[string]bool, len(dialoguesB))
	for _, d := range dialoguesB {
		idsB[d.DialogueID] = true
	}

	var added, removed, common int
	for id := range idsB {
		if idsA[id] {
			common++
		} else {
			added++
		}
	}
	for id := range idsA {
		if !idsB[id] {
			removed++
		}
	}

	avgA := avgQuality(dialoguesA)
	avgB := avgQuality(dialoguesB)
	turnsA := avgTurns(dialoguesA)
	turnsB := avgTurns(dialoguesB)

	return &models.VersionComparison{
		VersionA:      aID,
		VersionB:      bID,
		DialoguesA:    len(dialoguesA),
		DialoguesB:    len(dialoguesB),
		Added:         added,
		Removed:       removed,
		Common:        common,
		AvgQualityA:   avgA,
		AvgQualityB:   avgB,
		QualityDelta:  avgB - avgA,
		DomainsA:      a.Domains,
		DomainsB:      b.Domains,
		AvgTurnsA:     turnsA,
		AvgTurnsB:     turnsB,
		AvgTurnsDelta: turnsB - turnsA,
		ConfigDiff:    diffConfig(a.GenerationConfig, b.GenerationConfig),
		SameContent:   a.Checksum == b.Checksum,
	}, nil
}

// diffConfig lists generation settings that differ between two snapshots.
// Values are compared by their printed form because numbers round-trip
// through JSON as float64.
func diffConfig(a, b map[string]any) map[string]models.ConfigChange {
	diff := make(map[string]models.ConfigChange)
	for key, va := range a {
		vb, ok := b[key]
		if !ok {
			diff[key] = models.ConfigChange{From: va}
			continue
		}
		if fmt.Sprint(va) != fmt.Sprint(vb) {
			diff[key] = models.ConfigChange{From: va, To: vb}
		}
	}
	for key, vb := range b {
		if _, ok := a[key]; !ok {
			diff[key] = models.ConfigChange{To: vb}
		}
	}
	if len(diff) == 0 {
		return nil
	}
	return diff
}

// Tag adds tags to a version, ignoring duplicates.
func (m *Manager) Tag(versionID string, tags []string) (*models.Version, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	index, err := m.loadIndex()
	if err != nil {
		return nil, err
	}
	for i := range index {
		if index[i].VersionID == versionID {
			index[i].Tags = dedupTags(append(index[i].Tags, tags...))
			if err := m.saveIndex(index); err != nil {
				return nil, err
			}
			v := index[i]
			return &v, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, versionID)
}

// Delete removes a version's snapshot and index entry. Children keep their
// parent_version pointer; lineage lookups treat a missing parent as pruned.
func (m *Manager) Delete(versionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	index, err := m.loadIndex()
	if err != nil {
		return err
	}
	idx := -1
	for i := range index {
		if index[i].VersionID == versionID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, versionID)
	}

	index = append(index[:idx], index[idx+1:]...)
	if err := m.saveIndex(index); err != nil {
		return err
	}
	return os.RemoveAll(m.store.Path("versions", versionID))
}

// Checksum computes the content checksum for a dialogue set: SHA-256 over
// the JSON of the dialogues sorted by ID, truncated to 16 hex characters.
// Ordering of the input does not affect the result.
func Checksum(dialogues []models.Dialogue) (string, error) {
	sorted := make([]models.Dialogue, len(dialogues))
	copy(sorted, dialogues)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].DialogueID < sorted[j].DialogueID })

	data, err := json.Marshal(sorted)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])[:16], nil
}

func (m *Manager) loadIndex() ([]models.Version, error) {
	var index []models.Version
	err := m.store.ReadJSON(m.store.Path("versions", indexFile), &index)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	return index, nil
}

func (m *Manager) saveIndex(index []models.Version) error {
	return m.store.WriteJSON(m.store.Path("versions", indexFile), index)
}

func findVersion(index []models.Version, id string) (models.Version, bool) {
	for _, v := range index {
		if v.VersionID == id {
			return v, true
		}
	}
	return models.Version{}, false
}

func dedupTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t != "" && !slices.Contains(out, t) {
			out = append(out, t)
		}
	}
	return out
}

func avgQuality(dialogues []models.Dialogue) float64 {
	if len(dialogues) == 0 {
		return 0
	}
	var sum float64
	for _, d := range dialogues {
		sum += d.Metadata.QualityScore
	}
	return sum / float64(len(dialogues))
}

func avgTurns(dialogues []models.Dialogue) float64 {
	if len(dialogues) == 0 {
		return 0
	}
	var sum int
	for _, d := range dialogues {
		sum += len(d.Turns)
	}
	return float64(sum) / float64(len(dialogues))
}
