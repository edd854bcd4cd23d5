package evaluator

import (
	"regexp"
	"strings"

	"github.com/goalconvo/goalconvo/pkg/models"
)

// Constraint values extracted from goal text. Each regex names a slot
// whose value must be acknowledged somewhere in the dialogue.
var constraintPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(north|south|east|west|centre|center)\b`),
	regexp.MustCompile(`(?i)\b(cheap|moderate|expensive)\b`),
	regexp.MustCompile(`(?i)\b(italian|chinese|indian|french|thai|british)\b`),
}

// constraintSynonyms accepts paraphrases of a constraint value. A dialogue
// satisfies a constraint when the value or any synonym appears.
var constraintSynonyms = map[string][]string{
	"centre":    {"center", "central", "downtown"},
	"center":    {"centre", "central", "downtown"},
	"cheap":     {"budget", "inexpensive", "affordable", "low cost", "low-cost"},
	"moderate":  {"mid-range", "midrange", "reasonable", "medium"},
	"expensive": {"luxury", "upscale", "high-end", "pricey"},
}

// requestables are the informational slots a helpful SupportBot provides.
// At least half must appear in the bot's turns for goal completion.
var requestables = []string{
	"phone", "address", "postcode", "reference number",
	"price", "availability", "time", "date",
}

// completionKeywords signal the transaction reached its end state.
var completionKeywords = []string{
	"booked", "confirmed", "confirmation", "reservation is",
	"reference number", "all set", "you're welcome", "is booked",
}

// goalCompletionRate is the fraction of dialogues that satisfy all goal
// constraints, cover at least half the requestables, and contain a
// completion keyword.
func goalCompletionRate(dialogues []models.Dialogue) float64 {
	if len(dialogues) == 0 {
		return 0
	}
	completed := 0
	for i := range dialogues {
		if goalCompleted(&dialogues[i]) {
			completed++
		}
	}
	return float64(completed) / float64(len(dialogues))
}

func goalCompleted(d *models.Dialogue) bool {
	text := strings.ToLower(d.Text())
	return constraintsSatisfied(d.Goal, text) &&
		requestableCoverage(d) >= 0.5 &&
		containsAny(text, completionKeywords)
}

// constraintsSatisfied extracts constraint values from the goal and checks
// each appears in the dialogue, directly or via a synonym. A goal without
// extractable constraints passes vacuously.
func constraintsSatisfied(goal, dialogueText string) bool {
	for _, pattern := range constraintPatterns {
		value := strings.ToLower(pattern.FindString(goal))
		if value == "" {
			continue
		}
		if !mentionsValue(dialogueText, value) {
			return false
		}
	}
	return true
}

func mentionsValue(text, value string) bool {
	if strings.Contains(text, value) {
		return true
	}
	for _, syn := range constraintSynonyms[value] {
		if strings.Contains(text, syn) {
			return true
		}
	}
	return false
}

// requestableCoverage is the fraction of requestable slots mentioned in
// SupportBot turns.
func requestableCoverage(d *models.Dialogue) float64 {
	var botText strings.Builder
	for _, t := range d.Turns {
		if t.Role == models.RoleSupportBot {
			botText.WriteString(strings.ToLower(t.Text))
			botText.WriteString("\n")
		}
	}
	text := botText.String()
	hits := 0
	for _, slot := range requestables {
		if strings.Contains(text, slot) {
			hits++
		}
	}
	return float64(hits) / float64(len(requestables))
}

// Intent categories and their trigger keywords for task success.
var intentKeywords = map[string][]string{
	"booking":     {"book", "reserve", "reservation"},
	"search":      {"find", "search", "looking for"},
	"information": {"information", "details", "tell me about"},
}

// confirmationTokens acknowledge an intent was acted on.
var confirmationTokens = []string{
	"confirmed", "booked", "done", "here is", "here are",
	"i found", "reference", "all set",
}

// satisfactionKeywords in the user's closing turn signal the task ended well.
var satisfactionKeywords = []string{
	"thank", "thanks", "great", "perfect", "wonderful",
	"that's all", "goodbye", "appreciate",
}

// confirmationWindow is how far (in characters) after an intent mention a
// confirmation must appear to count as acted on.
const confirmationWindow = 200

// minSuccessTurns is the shortest dialogue that can count as a successful
// task.
const minSuccessTurns = 4

// taskSuccessRate is the fraction of dialogues where the stated intent was
// confirmed, or where a long-enough exchange ended with a satisfied user.
func taskSuccessRate(dialogues []models.Dialogue) float64 {
	if len(dialogues) == 0 {
		return 0
	}
	succeeded := 0
	for i := range dialogues {
		if taskSucceeded(&dialogues[i]) {
			succeeded++
		}
	}
	return float64(succeeded) / float64(len(dialogues))
}

func taskSucceeded(d *models.Dialogue) bool {
	text := strings.ToLower(d.Text())

	intentConfirmed := false
	for _, keywords := range intentKeywords {
		for _, kw := range keywords {
			idx := strings.Index(text, kw)
			if idx < 0 {
				continue
			}
			window := text[idx:]
			if len(window) > len(kw)+confirmationWindow {
				window = window[:len(kw)+confirmationWindow]
			}
			if containsAny(window, confirmationTokens) {
				intentConfirmed = true
				break
			}
		}
		if intentConfirmed {
			break
		}
	}

	longEnough := len(d.Turns) >= minSuccessTurns
	satisfied := false
	if userTurns := d.UserTurns(); len(userTurns) > 0 {
		satisfied = containsAny(strings.ToLower(userTurns[len(userTurns)-1].Text), satisfactionKeywords)
	}

	return (intentConfirmed && satisfied) || (longEnough && satisfied)
}

// Advanced diagnostics.

// timeWords make a turn count toward slot coverage even without digits.
var timeWords = []string{
	"morning", "afternoon", "evening", "noon", "midnight",
	"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday",
	"today", "tomorrow", "tonight",
}

// contradictionPhrases flag self-corrections that make a dialogue read
// incoherent.
var contradictionPhrases = []string{
	"actually, no", "no wait", "i meant", "that's wrong",
	"scratch that", "i misspoke", "correction:",
}

var digitPattern = regexp.MustCompile(`\d`)

func advancedMetrics(dialogues []models.Dialogue) AdvancedMetrics {
	if len(dialogues) == 0 {
		return AdvancedMetrics{}
	}

	intentsSeen := make(map[string]bool)
	slotHits, contradictions := 0, 0

	for i := range dialogues {
		text := strings.ToLower(dialogues[i].Text())
		for intent, keywords := range intentKeywords {
			if containsAny(text, keywords) {
				intentsSeen[intent] = true
			}
		}
		if digitPattern.MatchString(text) || containsAny(text, timeWords) {
			slotHits++
		}
		if containsAny(text, contradictionPhrases) {
			contradictions++
		}
	}

	n := float64(len(dialogues))
	return AdvancedMetrics{
		IntentCoverage:    float64(len(intentsSeen)) / float64(len(intentKeywords)),
		SlotCoverage:      float64(slotHits) / n,
		ContradictionRate: float64(contradictions) / n,
	}
}

func containsAny(text string, needles []string) bool {
	for _, needle := range needles {
		if strings.Contains(text, needle) {
			return true
		}
	}
	return false
}
