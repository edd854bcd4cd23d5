package store

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/goalconvo/goalconvo/pkg/models"
)

// hubSeedMinimum: with fewer hub entries than this for a domain, few-shot
// sampling falls back to seed examples instead.
const hubSeedMinimum = 5

// hubPromoteFraction is the share of accepted dialogues promoted into the
// few-shot hub on each refresh.
const hubPromoteFraction = 0.10

// HubExamples returns up to n few-shot examples for a domain, best first:
// quality score descending, then most recently added.
func (s *Store) HubExamples(domain string, n int) ([]models.Dialogue, error) {
	entries, err := s.readDialogueDir(s.Path("few_shot_hub", domain))
	if err != nil {
		return nil, err
	}

	sort.Slice(entries, func(i, j int) bool {
		qi, qj := entries[i].Metadata.QualityScore, entries[j].Metadata.QualityScore
		if qi != qj {
			return qi > qj
		}
		ti, tj := hubAddedAt(&entries[i]), hubAddedAt(&entries[j])
		return ti.After(tj)
	})

	if n > 0 && len(entries) > n {
		entries = entries[:n]
	}
	return entries, nil
}

// HubCount returns how many hub entries exist for a domain.
func (s *Store) HubCount(domain string) (int, error) {
	entries, err := s.readDialogueDir(s.Path("few_shot_hub", domain))
	if err != nil {
		return 0, err
	}
	return len(entries), nil
}

// HubReady reports whether the domain hub has enough entries to serve
// few-shot sampling. Below the minimum, seed examples are used instead.
func (s *Store) HubReady(domain string) (bool, error) {
	n, err := s.HubCount(domain)
	if err != nil {
		return false, err
	}
	return n >= hubSeedMinimum, nil
}

// RefreshHub promotes the top-scoring fraction of the given accepted
// dialogues into the few-shot hub, per domain, so a strong domain never
// crowds the others out. Dialogues under minQuality are not hub material.
// Returns how many were promoted.
func (s *Store) RefreshHub(accepted []models.Dialogue, minQuality float64) (int, error) {
	byDomain := make(map[string][]models.Dialogue)
	for _, d := range accepted {
		if d.Metadata.QualityScore < minQuality {
			continue
		}
		byDomain[d.Domain] = append(byDomain[d.Domain], d)
	}

	now := time.Now().UTC()
	promoted := 0
	for _, ds := range byDomain {
		sort.Slice(ds, func(i, j int) bool {
			return ds[i].Metadata.QualityScore > ds[j].Metadata.QualityScore
		})
		n := int(float64(len(ds)) * hubPromoteFraction)
		if n < 1 {
			n = 1
		}
		for i := 0; i < n; i++ {
			d := ds[i]
			d.Metadata.AddedToHubAt = &now
			path := s.Path("few_shot_hub", d.Domain, d.DialogueID+".json")
			if err := atomicWriteJSON(path, &d); err != nil {
				return promoted, err
			}
			promoted++
		}
	}
	return promoted, nil
}

// EnsureHubSeed backfills a domain hub that has fewer entries than the
// few-shot minimum with the built-in worked examples, so the very first
// generation run already has style references. Existing files are never
// overwritten. Returns how many seeds were written.
func (s *Store) EnsureHubSeed(domain string) (int, error) {
	n, err := s.HubCount(domain)
	if err != nil {
		return 0, err
	}
	if n >= hubSeedMinimum {
		return 0, nil
	}

	written := 0
	for i, d := range hubSeedDialogues(domain) {
		path := s.Path("few_shot_hub", domain, fmt.Sprintf("seed_%d_%s.json", i, d.DialogueID))
		if _, err := os.Stat(path); err == nil {
			continue
		}
		if err := atomicWriteJSON(path, &d); err != nil {
			return written, err
		}
		written++
	}
	return written, nil
}

func hubAddedAt(d *models.Dialogue) time.Time {
	if d.Metadata.AddedToHubAt != nil {
		return *d.Metadata.AddedToHubAt
	}
	return d.Metadata.GeneratedAt
}
