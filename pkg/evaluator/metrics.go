package evaluator

import (
	"math"
	"strings"
	"time"

	"github.com/goalconvo/goalconvo/pkg/models"
	"github.com/goalconvo/goalconvo/pkg/textutil"
)

// corpusDistinct returns mean distinct-1 and distinct-2 over all dialogues:
// the ratio of unique n-grams to total n-grams in each dialogue's text.
func corpusDistinct(dialogues []models.Dialogue) (float64, float64) {
	var d1s, d2s []float64
	for i := range dialogues {
		tokens := textutil.Tokenize(dialogues[i].Text())
		d1s = append(d1s, distinctN(tokens, 1))
		d2s = append(d2s, distinctN(tokens, 2))
	}
	return mean(d1s), mean(d2s)
}

func distinctN(tokens []string, n int) float64 {
	if len(tokens) < n {
		return 0
	}
	seen := make(map[string]bool)
	total := 0
	for i := 0; i+n <= len(tokens); i++ {
		seen[strings.Join(tokens[i:i+n], " ")] = true
		total++
	}
	return float64(len(seen)) / float64(total)
}

// corpusBLEU returns the mean best-reference BLEU over all dialogues. Each
// dialogue is scored against its same-domain references and the maximum is
// kept. Without any references the metric is 0.
func corpusBLEU(dialogues []models.Dialogue, refsByDomain map[string][]models.Dialogue) float64 {
	if len(refsByDomain) == 0 {
		return 0
	}
	var scores []float64
	for i := range dialogues {
		refs := sameDomainRefs(&dialogues[i], refsByDomain)
		if len(refs) == 0 {
			continue
		}
		candidate := textutil.Tokenize(dialogues[i].Text())
		best := 0.0
		for j := range refs {
			if s := bleu(candidate, textutil.Tokenize(refs[j].Text())); s > best {
				best = s
			}
		}
		scores = append(scores, best)
	}
	return mean(scores)
}

// bleu computes smoothed BLEU-4 for one candidate against one reference.
// Zero n-gram matches are smoothed with a small epsilon count so short
// dialogues still produce a usable score; when even unigrams never match,
// plain word overlap serves as the floor.
func bleu(candidate, reference []string) float64 {
	if len(candidate) == 0 || len(reference) == 0 {
		return 0
	}

	const epsilon = 0.1
	logSum := 0.0
	unigramMatches := 0
	for n := 1; n <= 4; n++ {
		matches, total := ngramMatches(candidate, reference, n)
		if n == 1 {
			unigramMatches = matches
		}
		if total == 0 {
			return 0
		}
		p := float64(matches) / float64(total)
		if matches == 0 {
			p = epsilon / float64(total)
		}
		logSum += math.Log(p)
	}

	if unigramMatches == 0 {
		return wordOverlap(candidate, reference)
	}

	score := math.Exp(logSum / 4.0)
	// Brevity penalty.
	if len(candidate) < len(reference) {
		score *= math.Exp(1.0 - float64(len(reference))/float64(len(candidate)))
	}
	return score
}

// ngramMatches returns clipped n-gram matches and candidate n-gram count.
func ngramMatches(candidate, reference []string, n int) (int, int) {
	if len(candidate) < n {
		return 0, 0
	}
	refCounts := make(map[string]int)
	for i := 0; i+n <= len(reference); i++ {
		refCounts[strings.Join(reference[i:i+n], " ")]++
	}
	matches, total := 0, 0
	for i := 0; i+n <= len(candidate); i++ {
		gram := strings.Join(candidate[i:i+n], " ")
		if refCounts[gram] > 0 {
			refCounts[gram]--
			matches++
		}
		total++
	}
	return matches, total
}

// wordOverlap is the fraction of unique candidate tokens present in the
// reference.
func wordOverlap(candidate, reference []string) float64 {
	refSet := make(map[string]bool, len(reference))
	for _, tok := range reference {
		refSet[tok] = true
	}
	candSet := make(map[string]bool, len(candidate))
	for _, tok := range candidate {
		candSet[tok] = true
	}
	if len(candSet) == 0 {
		return 0
	}
	hits := 0
	for tok := range candSet {
		if refSet[tok] {
			hits++
		}
	}
	return float64(hits) / float64(len(candSet))
}

type shapeStats struct {
	avgTurns        float64
	turnsStdDev     float64
	avgWordsPerTurn float64
	repetition      float64
	avgResponseTime float64
}

// maxResponseGap drops timestamp gaps of a day or more; those come from
// batch regeneration, not conversation pacing.
const maxResponseGap = 24 * time.Hour

// minResponseTime floors the response-time proxy; synthetic timestamps can
// be arbitrarily close together.
const minResponseTime = 0.1

// corpusShape computes turn counts, words per turn, turn-text repetition,
// and the response-time proxy from turn timestamp gaps.
func corpusShape(dialogues []models.Dialogue) shapeStats {
	var turnCounts, repetitions, responseTimes []float64
	totalWords, totalTurns := 0, 0

	for i := range dialogues {
		d := &dialogues[i]
		turnCounts = append(turnCounts, float64(len(d.Turns)))
		for _, t := range d.Turns {
			totalWords += textutil.WordCount(t.Text)
			totalTurns++
		}

		if rep, ok := turnTextRepetition(d); ok {
			repetitions = append(repetitions, rep)
		}

		for j := 1; j < len(d.Turns); j++ {
			gap := d.Turns[j].Timestamp.Sub(d.Turns[j-1].Timestamp)
			if gap < 0 || gap >= maxResponseGap {
				continue
			}
			secs := gap.Seconds()
			if secs < minResponseTime {
				secs = minResponseTime
			}
			responseTimes = append(responseTimes, secs)
		}
	}

	stats := shapeStats{
		avgTurns:        mean(turnCounts),
		turnsStdDev:     sampleStdDev(turnCounts),
		repetition:      mean(repetitions),
		avgResponseTime: mean(responseTimes),
	}
	if totalTurns > 0 {
		stats.avgWordsPerTurn = float64(totalWords) / float64(totalTurns)
	}
	return stats
}

// turnTextRepetition is the fraction of a dialogue's turns whose exact text
// already appeared in an earlier turn. Token-level overlap would penalize
// ordinary conversational echo ("hotel", "north") that is not a defect; an
// agent re-sending a whole turn verbatim is. Undefined for dialogues with
// fewer than two non-empty turns.
func turnTextRepetition(d *models.Dialogue) (float64, bool) {
	var texts []string
	for _, t := range d.Turns {
		if text := strings.TrimSpace(t.Text); text != "" {
			texts = append(texts, text)
		}
	}
	if len(texts) < 2 {
		return 0, false
	}
	unique := make(map[string]bool, len(texts))
	for _, text := range texts {
		unique[text] = true
	}
	return 1.0 - float64(len(unique))/float64(len(texts)), true
}

// sampleStdDev is the ddof=1 standard deviation; 0 for fewer than two values.
func sampleStdDev(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	m := mean(xs)
	var sum float64
	for _, x := range xs {
		sum += (x - m) * (x - m)
	}
	return math.Sqrt(sum / float64(len(xs)-1))
}
