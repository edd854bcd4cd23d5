package store

import (
	"math"

	"github.com/goalconvo/goalconvo/pkg/models"
)

// DialogueFilter narrows a dataset listing. Zero values mean "no filter".
type DialogueFilter struct {
	// Domain restricts the listing to one domain.
	Domain string
	// Limit caps the number of dialogues returned across all domains.
	Limit int
	// MinQuality drops dialogues scoring below it.
	MinQuality float64
}

// LoadDialogues lists stored dialogues with optional domain, quality, and
// count filters. The quality filter applies before the limit, so a limited
// listing is still the best-effort view of what qualifies.
func (s *Store) LoadDialogues(filter DialogueFilter) ([]models.Dialogue, error) {
	domains, err := s.syntheticDomains()
	if err != nil {
		return nil, err
	}
	if filter.Domain != "" {
		domains = []string{filter.Domain}
	}

	var out []models.Dialogue
	for _, domain := range domains {
		ds, err := s.DomainDialogues(domain)
		if err != nil {
			return nil, err
		}
		for _, d := range ds {
			if filter.MinQuality > 0 && d.Metadata.QualityScore < filter.MinQuality {
				continue
			}
			out = append(out, d)
			if filter.Limit > 0 && len(out) >= filter.Limit {
				return out, nil
			}
		}
	}
	return out, nil
}

// Statistics summarizes the stored dataset.
type Statistics struct {
	TotalDialogues int            `json:"total_dialogues"`
	ByDomain       map[string]int `json:"by_domain"`
	AvgTurns       float64        `json:"avg_turns"`
	AvgQuality     float64        `json:"avg_quality"`
	MinQuality     float64        `json:"min_quality"`
	MaxQuality     float64        `json:"max_quality"`
}

// Stats computes dataset statistics over every stored dialogue. Quality
// aggregates cover only scored dialogues.
func (s *Store) Stats() (*Statistics, error) {
	dialogues, err := s.AllDialogues()
	if err != nil {
		return nil, err
	}

	stats := &Statistics{
		TotalDialogues: len(dialogues),
		ByDomain:       make(map[string]int),
	}
	var turns int
	var qualitySum float64
	var scored int
	stats.MinQuality = math.Inf(1)
	for _, d := range dialogues {
		stats.ByDomain[d.Domain]++
		turns += len(d.Turns)
		if q := d.Metadata.QualityScore; q > 0 {
			scored++
			qualitySum += q
			stats.MinQuality = math.Min(stats.MinQuality, q)
			stats.MaxQuality = math.Max(stats.MaxQuality, q)
		}
	}
	if len(dialogues) > 0 {
		stats.AvgTurns = float64(turns) / float64(len(dialogues))
	}
	if scored > 0 {
		stats.AvgQuality = qualitySum / float64(scored)
	} else {
		stats.MinQuality = 0
	}
	return stats, nil
}
