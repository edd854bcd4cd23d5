package evaluator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/goalconvo/goalconvo/pkg/models"
)

func completedDialogue() models.Dialogue {
	now := time.Now().UTC()
	return models.Dialogue{
		DialogueID: "d1",
		Goal:       "Book a cheap hotel in the north",
		Domain:     "hotel",
		Turns: []models.Turn{
			{Role: models.RoleUser, Text: "I'd like to book a cheap hotel in the north part of town.", Timestamp: now},
			{Role: models.RoleSupportBot, Text: "The Alpha Lodge is in the north with a budget price of $60. The address is 12 Mill Road, phone 01223 111222, postcode CB4.", Timestamp: now.Add(2 * time.Second)},
			{Role: models.RoleUser, Text: "Please book it for Friday.", Timestamp: now.Add(4 * time.Second)},
			{Role: models.RoleSupportBot, Text: "Your booking is confirmed, reference number A7KX2P.", Timestamp: now.Add(6 * time.Second)},
			{Role: models.RoleUser, Text: "Thank you, that's all I needed!", Timestamp: now.Add(8 * time.Second)},
		},
	}
}

func TestGoalCompleted(t *testing.T) {
	d := completedDialogue()
	assert.True(t, goalCompleted(&d))
}

func TestGoalNotCompletedWhenConstraintMissing(t *testing.T) {
	d := completedDialogue()
	// Drop every mention of the area constraint.
	d.Turns[0].Text = "I'd like to book a cheap hotel."
	d.Turns[1].Text = "The Alpha Lodge has a budget price of $60. The address is 12 Mill Road, phone 01223 111222, postcode CB4."
	assert.False(t, goalCompleted(&d))
}

func TestConstraintSatisfiedBySynonym(t *testing.T) {
	// "centre" in the goal, "downtown" in the dialogue.
	assert.True(t, constraintsSatisfied(
		"Find a restaurant in the centre",
		"there is a nice place downtown on bridge street"))
	assert.False(t, constraintsSatisfied(
		"Find a restaurant in the centre",
		"there is a nice place on bridge street"))
}

func TestRequestableCoverageCountsOnlyBotTurns(t *testing.T) {
	d := models.Dialogue{Turns: []models.Turn{
		{Role: models.RoleUser, Text: "what is the phone, address, postcode, price?"},
		{Role: models.RoleSupportBot, Text: "the phone is 123 and the address is main st"},
	}}
	assert.InDelta(t, 2.0/8.0, requestableCoverage(&d), 1e-9)
}

func TestTaskSucceeded(t *testing.T) {
	d := completedDialogue()
	assert.True(t, taskSucceeded(&d))
}

func TestTaskFailsWithoutSatisfaction(t *testing.T) {
	d := completedDialogue()
	d.Turns[4].Text = "That is not what I asked for."
	assert.False(t, taskSucceeded(&d))
}

func TestTaskSucceedsOnLengthAndSatisfaction(t *testing.T) {
	now := time.Now().UTC()
	d := models.Dialogue{Turns: []models.Turn{
		{Role: models.RoleUser, Text: "Hello, I have a question about trains.", Timestamp: now},
		{Role: models.RoleSupportBot, Text: "Happy to help with trains.", Timestamp: now},
		{Role: models.RoleUser, Text: "Never mind, I figured it out.", Timestamp: now},
		{Role: models.RoleSupportBot, Text: "No problem at all.", Timestamp: now},
		{Role: models.RoleUser, Text: "Thanks anyway, goodbye.", Timestamp: now},
	}}
	assert.True(t, taskSucceeded(&d))
}

func TestAdvancedMetrics(t *testing.T) {
	now := time.Now().UTC()
	dialogues := []models.Dialogue{
		{Turns: []models.Turn{
			{Role: models.RoleUser, Text: "Please book a table for tuesday evening.", Timestamp: now},
			{Role: models.RoleSupportBot, Text: "Booked and confirmed.", Timestamp: now},
		}},
		{Turns: []models.Turn{
			{Role: models.RoleUser, Text: "Actually, no wait, I meant something else entirely.", Timestamp: now},
			{Role: models.RoleSupportBot, Text: "Understood.", Timestamp: now},
		}},
	}

	adv := advancedMetrics(dialogues)
	// Only the booking intent appears across the corpus.
	assert.InDelta(t, 1.0/3.0, adv.IntentCoverage, 1e-9)
	// First dialogue has time words; second has none and no digits.
	assert.InDelta(t, 0.5, adv.SlotCoverage, 1e-9)
	assert.InDelta(t, 0.5, adv.ContradictionRate, 1e-9)
}
