package judge

import (
	"strings"

	"github.com/goalconvo/goalconvo/pkg/models"
	"github.com/goalconvo/goalconvo/pkg/textutil"
)

const (
	// adjacentRepetition is the Jaccard similarity above which two adjacent
	// turns count as repetition.
	adjacentRepetition = 0.7
	// minTurnChars is the floor for a meaningful turn after trimming.
	minTurnChars = 3
)

// profanityList is deliberately small: synthetic support dialogues should
// never contain any of these, so a single hit fails the filter.
var profanityList = []string{
	"fuck", "shit", "bitch", "asshole", "bastard", "damn you", "cunt",
}

// goalStopwords are excluded when checking whether the dialogue mentions
// the goal's content words.
var goalStopwords = map[string]bool{
	"the": true, "and": true, "for": true, "with": true, "that": true,
	"this": true, "from": true, "book": true, "find": true, "get": true,
	"a": true, "an": true, "in": true, "of": true, "to": true, "at": true,
}

// runHeuristics evaluates every cheap filter against a dialogue. The turn
// bounds come from the generation config.
func runHeuristics(d *models.Dialogue, minTurns, maxTurns int) models.HeuristicFilters {
	return models.HeuristicFilters{
		Length:        checkLength(d, minTurns, maxTurns),
		Repetition:    checkRepetition(d),
		Profanity:     checkProfanity(d),
		Coherence:     d.Alternates(),
		GoalMention:   checkGoalMention(d),
		EmptyResponse: checkNonEmpty(d),
	}
}

// checkLength bounds the dialogue by its turn count, not by turn size:
// a conversation that ended too early or ran away past the cap fails.
func checkLength(d *models.Dialogue, minTurns, maxTurns int) bool {
	return len(d.Turns) >= minTurns && len(d.Turns) <= maxTurns
}

func checkRepetition(d *models.Dialogue) bool {
	for i := 1; i < len(d.Turns); i++ {
		if textutil.Jaccard(d.Turns[i-1].Text, d.Turns[i].Text) > adjacentRepetition {
			return false
		}
	}
	return true
}

func checkProfanity(d *models.Dialogue) bool {
	lower := strings.ToLower(d.Text())
	for _, word := range profanityList {
		if strings.Contains(lower, word) {
			return false
		}
	}
	return true
}

// checkGoalMention requires at least one content word from the goal to
// appear somewhere in the dialogue.
func checkGoalMention(d *models.Dialogue) bool {
	dialogueTokens := textutil.TokenSet(d.Text())
	for _, tok := range textutil.Tokenize(d.Goal) {
		if len(tok) <= 3 || goalStopwords[tok] {
			continue
		}
		if dialogueTokens[tok] {
			return true
		}
	}
	return false
}

func checkNonEmpty(d *models.Dialogue) bool {
	for _, t := range d.Turns {
		if len(strings.TrimSpace(t.Text)) < minTurnChars {
			return false
		}
	}
	return len(d.Turns) > 0
}
