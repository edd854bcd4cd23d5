package experience

import (
	"fmt"
	"regexp"
	"strings"
)

// slotPattern matches one "domain-slot: value" fragment of a raw
// MultiWOZ-style goal, e.g. "train-leaveat: 11:30". The domain prefix is
// anchored to the known benchmark domains so natural sentences that happen
// to contain a colon are left alone.
var slotPattern = regexp.MustCompile(`^(hotel|restaurant|taxi|train|attraction|bus|hospital|police)[-_]([a-z_ ]+):\s*(.+)$`)

// domainKeywords drives goal-text domain inference, checked in order;
// the first domain with a keyword hit wins.
var domainKeywords = []struct {
	domain   string
	keywords []string
}{
	{"hotel", []string{"hotel", "accommodation", "room", "booking", "reservation"}},
	{"restaurant", []string{"restaurant", "food", "dining", "meal", "cuisine", "eat"}},
	{"taxi", []string{"taxi", "cab", "ride", "transport", "pickup"}},
	{"train", []string{"train", "railway", "station", "ticket", "journey"}},
	{"attraction", []string{"attraction", "sightseeing", "museum", "tour", "visit", "place"}},
}

// NormalizeGoal rewrites a raw slot-style goal ("train-leaveat: 11:30;
// train-destination: london") into a natural sentence ("Find a train to
// london leaving at 11:30."). Goals that are already natural language come
// back unchanged, which makes the rewrite idempotent.
func NormalizeGoal(goal string) string {
	goal = strings.TrimSpace(goal)

	type slot struct {
		domain, name, value string
	}
	var slots []slot
	for _, seg := range strings.Split(goal, ";") {
		m := slotPattern.FindStringSubmatch(strings.ToLower(strings.TrimSpace(seg)))
		if m == nil {
			return goal
		}
		slots = append(slots, slot{m[1], strings.TrimSpace(m[2]), strings.TrimSpace(m[3])})
	}
	if len(slots) == 0 {
		return goal
	}

	phrases := make([]string, 0, len(slots))
	for _, sl := range slots {
		phrases = append(phrases, slotPhrase(sl.name, sl.value))
	}
	return fmt.Sprintf("%s %s.", domainLead(slots[0].domain), strings.Join(phrases, " "))
}

// InferDomain guesses the dialogue domain from goal text. Returns
// "unknown" when nothing matches.
func InferDomain(goal string) string {
	lower := strings.ToLower(goal)
	for _, dk := range domainKeywords {
		for _, kw := range dk.keywords {
			if strings.Contains(lower, kw) {
				return dk.domain
			}
		}
	}
	return "unknown"
}

func slotPhrase(name, value string) string {
	switch name {
	case "leaveat", "leave at":
		return "leaving at " + value
	case "arriveby", "arrive by":
		return "arriving by " + value
	case "departure":
		return "from " + value
	case "destination":
		return "to " + value
	case "day", "book day":
		return "on " + value
	case "people", "book people":
		return "for " + value + " people"
	case "stay", "book stay":
		return "for " + value + " nights"
	case "time", "book time":
		return "at " + value
	case "pricerange", "price range":
		return "in the " + value + " price range"
	case "area":
		return "in the " + value + " area"
	case "food":
		return "serving " + value + " food"
	case "stars":
		return "rated " + value + " stars"
	case "type":
		return "of type " + value
	case "name":
		return "called " + value
	case "parking":
		if value == "no" {
			return "without parking"
		}
		return "with parking"
	case "internet":
		if value == "no" {
			return "without wifi"
		}
		return "with wifi"
	default:
		return "with " + name + " " + value
	}
}

func domainLead(domain string) string {
	switch domain {
	case "hotel":
		return "Book a hotel"
	case "restaurant":
		return "Book a restaurant"
	case "taxi":
		return "Book a taxi"
	case "train":
		return "Find a train"
	case "attraction":
		return "Find an attraction"
	default:
		return "Help me with a " + domain + " request"
	}
}
