package store

import (
	"errors"
	"fmt"
	"math/rand"
)

// SeedGoals maps domain → candidate goal descriptions used to seed
// experience generation.
type SeedGoals map[string][]string

// defaultSeedGoals ship with the service so a fresh data directory can
// generate immediately.
var defaultSeedGoals = SeedGoals{
	"hotel": {
		"Book a cheap hotel in the north of town for 3 nights starting Friday",
		"Find a 4-star hotel with free parking and book it for 2 people",
		"Reserve a moderately priced guesthouse with free wifi for the weekend",
		"Find an expensive hotel in the city centre and get its phone number",
		"Book a hotel near the train station for one night and ask about breakfast",
	},
	"restaurant": {
		"Book a table for 4 at an Italian restaurant in the centre on Saturday at 7pm",
		"Find a cheap Chinese restaurant in the south and get the address",
		"Reserve a table at an expensive seafood restaurant and ask for the reference number",
		"Find a vegetarian-friendly restaurant and book for 2 people tonight",
		"Get the phone number and postcode of a moderately priced Indian restaurant",
	},
	"taxi": {
		"Book a taxi from the hotel to the airport leaving at 9am",
		"Order a taxi to arrive at the restaurant by 6:45pm and get the contact number",
		"Book a taxi between the museum and the train station and ask for the car type",
		"Arrange a taxi for tomorrow morning and confirm the pickup time",
		"Get a taxi to the theatre and ask how much it will cost",
	},
	"train": {
		"Find a train from Cambridge to London on Tuesday arriving by 10am and book 2 tickets",
		"Book a train ticket for Friday after 3pm and get the reference number",
		"Find the cheapest train to Birmingham on Sunday and ask about the travel time",
		"Book 4 train tickets for Monday morning and confirm the departure time",
		"Get the price and duration of a train to Norwich on Wednesday",
	},
	"attraction": {
		"Find a museum in the centre of town and get its entrance fee",
		"Look for a park in the east and get the address and postcode",
		"Find an architecture attraction and ask about opening hours",
		"Get the phone number of a theatre in the south of town",
		"Find a free attraction for the afternoon and ask how to get there",
	},
}

// SeedGoalsFile is where seed goals live under the data directory.
const SeedGoalsFile = "seed_goals.json"

// LoadSeedGoals reads the seed goals, writing the built-in defaults first
// when the file does not exist yet.
func (s *Store) LoadSeedGoals() (SeedGoals, error) {
	path := s.Path(SeedGoalsFile)

	var goals SeedGoals
	err := s.ReadJSON(path, &goals)
	if err == nil {
		return goals, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	if err := atomicWriteJSON(path, defaultSeedGoals); err != nil {
		return nil, err
	}
	return defaultSeedGoals, nil
}

// SaveSeedGoals replaces the seed goal file.
func (s *Store) SaveSeedGoals(goals SeedGoals) error {
	return atomicWriteJSON(s.Path(SeedGoalsFile), goals)
}

// RandomGoal picks a random goal for the domain.
func (g SeedGoals) RandomGoal(rng *rand.Rand, domain string) (string, error) {
	goals := g[domain]
	if len(goals) == 0 {
		return "", fmt.Errorf("%w: no seed goals for domain %s", ErrNotFound, domain)
	}
	return goals[rng.Intn(len(goals))], nil
}
