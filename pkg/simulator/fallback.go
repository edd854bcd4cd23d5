package simulator

import (
	"fmt"
	"strings"

	"github.com/goalconvo/goalconvo/pkg/models"
)

// wrapUpConfirmations close a looping dialogue with a domain-appropriate
// final confirmation from the bot.
var wrapUpConfirmations = map[string]string{
	"hotel":      "Your hotel booking is confirmed. Is there anything else I can help with?",
	"restaurant": "Your restaurant reservation is confirmed. Is there anything else I can help with?",
	"taxi":       "Your taxi is booked and the driver will meet you at the pickup point. Anything else?",
	"train":      "Your train tickets are booked. Anything else I can help with?",
	"attraction": "I've sent over the attraction details. Anything else I can help with?",
}

func wrapUpConfirmation(domain string) string {
	if c, ok := wrapUpConfirmations[domain]; ok {
		return c
	}
	return "All set with your request. Anything else I can help with?"
}

// userFallbacks rotate so consecutive scripted User turns differ.
var userFallbacks = []string{
	"Okay, could you confirm the details for me?",
	"I see. And is that available?",
	"Alright. What would you suggest?",
	"Got it. Could you go ahead and arrange that?",
}

// fallbackTurn produces a scripted turn when the LLM cannot. Price
// questions get a quoted price from the configured fallback table so the
// conversation stays coherent; everything else gets a neutral move that
// keeps the dialogue going.
func fallbackTurn(role models.Role, exp *models.Experience, turns []models.Turn, prices map[string]string) string {
	if role == models.RoleSupportBot {
		if price, ok := priceAnswer(exp, turns, prices); ok {
			return price
		}
		return "Certainly, let me check that for you. Is there anything specific you need?"
	}
	return userFallbacks[len(turns)%len(userFallbacks)]
}

// priceAnswer quotes a configured price band when the last User turn asked
// about cost. The band comes from the goal or the last User turn; absent a
// band, the moderate price is quoted.
func priceAnswer(exp *models.Experience, turns []models.Turn, prices map[string]string) (string, bool) {
	last, ok := lastTurnOf(turns, models.RoleUser)
	if !ok {
		return "", false
	}
	lower := strings.ToLower(last.Text)
	if !strings.Contains(lower, "price") && !strings.Contains(lower, "cost") && !strings.Contains(lower, "how much") {
		return "", false
	}

	band := "moderate"
	haystack := lower + " " + strings.ToLower(exp.Goal)
	for _, b := range []string{"cheap", "expensive", "moderate"} {
		if strings.Contains(haystack, b) {
			band = b
			break
		}
	}
	price, ok := prices[band]
	if !ok {
		return "", false
	}
	return fmt.Sprintf("It costs %s. Would you like me to go ahead and book it?", price), true
}
