package store

import (
	"time"

	"github.com/goalconvo/goalconvo/pkg/models"
)

// hubSeedQuality is the nominal quality score assigned to the built-in
// seed examples. Promoted real dialogues with equal or better scores
// displace them in few-shot sampling over time.
const hubSeedQuality = 0.9

// hubSeed is the compact form of a built-in few-shot example. Turns
// alternate starting with the user.
type hubSeed struct {
	id      string
	goal    string
	context string
	persona string
	turns   []string
}

func hubSeedDialogues(domain string) []models.Dialogue {
	specs := hubSeeds[domain]
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	out := make([]models.Dialogue, 0, len(specs))
	for _, sp := range specs {
		d := models.Dialogue{
			DialogueID:  sp.id,
			Goal:        sp.goal,
			Domain:      domain,
			Context:     sp.context,
			UserPersona: sp.persona,
		}
		for i, text := range sp.turns {
			role := models.RoleUser
			if i%2 == 1 {
				role = models.RoleSupportBot
			}
			d.Turns = append(d.Turns, models.Turn{
				Role:      role,
				Text:      text,
				Timestamp: base.Add(time.Duration(i) * time.Second),
			})
		}
		d.Metadata = models.DialogueMetadata{
			NumTurns:     len(d.Turns),
			GeneratedAt:  base,
			QualityScore: hubSeedQuality,
			MinTurnsMet:  true,
		}
		out = append(out, d)
	}
	return out
}

var hubSeeds = map[string][]hubSeed{
	"hotel": {
		{
			id:      "seed_hotel_1",
			goal:    "Book a cheap hotel room in the city centre for tonight",
			context: "The user needs a last-minute room and is watching their budget.",
			persona: "budget traveler in a hurry",
			turns: []string{
				"Hi, I need a cheap hotel room in the city centre for tonight.",
				"I can help with that. The Alexander B&B is in the centre and has rooms from $55 tonight. Would that work?",
				"That sounds good. Does it have free wifi?",
				"Yes, free wifi is included, and breakfast is available for a small fee. Shall I book it?",
				"Please do, just one night for one person.",
				"All done. Your room at the Alexander B&B is booked for tonight. Your reference is H4X2K9.",
			},
		},
		{
			id:      "seed_hotel_2",
			goal:    "Find a 4-star hotel with free parking in the north",
			context: "The user is driving in and needs somewhere to leave the car.",
			persona: "business traveler with a rental car",
			turns: []string{
				"I'm looking for a 4-star hotel in the north with free parking.",
				"The Ashley Hotel is a 4-star in the north part of town and offers free parking to guests. Would you like more details?",
				"What's the nightly rate?",
				"Rooms start at $130 per night including parking. Shall I reserve one for you?",
				"Yes, book me two nights starting Thursday.",
				"Your booking at the Ashley Hotel is confirmed for two nights from Thursday. Anything else I can help with?",
			},
		},
		{
			id:      "seed_hotel_3",
			goal:    "Book a guesthouse for 4 people for the weekend",
			context: "A family trip, two adults and two children.",
			persona: "parent organising a family weekend",
			turns: []string{
				"Can you find a guesthouse that sleeps four for this weekend?",
				"The Carolina Guesthouse has a family room for four available Friday to Sunday. It runs $95 per night.",
				"Is it close to the river?",
				"It's about a ten minute walk from the riverside. Would you like me to book the family room?",
				"Yes please, Friday and Saturday night.",
				"Booked. The Carolina Guesthouse is expecting your family on Friday, reference G7M1P3.",
			},
		},
		{
			id:      "seed_hotel_4",
			goal:    "Find a hotel with a swimming pool in the east",
			context: "The user wants to swim every morning during their stay.",
			persona: "fitness-minded vacationer",
			turns: []string{
				"I'd like a hotel in the east side that has a swimming pool.",
				"The Eastgate Hotel has an indoor pool open from 6am. Rooms are $110 a night. Does that suit you?",
				"Perfect, is the pool free for guests?",
				"Yes, pool access is free for all guests. Shall I make a reservation?",
				"Go ahead, three nights from Monday.",
				"Your reservation at the Eastgate Hotel is confirmed for three nights from Monday.",
			},
		},
		{
			id:      "seed_hotel_5",
			goal:    "Change a hotel booking to a later date",
			context: "The user already has a booking but their plans moved a week.",
			persona: "apologetic customer rescheduling",
			turns: []string{
				"I have a booking at the Gonville Hotel next Tuesday, but I need to move it a week later.",
				"No problem. I can move your Gonville Hotel booking to the following Tuesday. Same room type and two nights?",
				"Yes, keep everything else the same.",
				"Done. Your stay now begins the following Tuesday, and your reference J2K8L4 stays the same.",
				"Great, thanks for sorting that so quickly.",
				"You're welcome. Enjoy your stay at the Gonville.",
			},
		},
	},
	"restaurant": {
		{
			id:      "seed_restaurant_1",
			goal:    "Reserve a table for two at an Italian restaurant tonight",
			context: "An anniversary dinner, the user wants somewhere nice.",
			persona: "couple celebrating an anniversary",
			turns: []string{
				"Hi, I'd like a table for two at a good Italian place tonight.",
				"Caffe Uno serves Italian food in the centre and has tables free this evening. What time suits you?",
				"Around 7:30 would be ideal.",
				"A table for two at Caffe Uno is available at 7:30. Shall I book it?",
				"Yes please, under the name Brown.",
				"Your reservation for two at Caffe Uno tonight at 7:30 is confirmed, reference R5T2W8.",
			},
		},
		{
			id:      "seed_restaurant_2",
			goal:    "Find a cheap Chinese restaurant in the south",
			context: "The user wants takeaway-friendly options nearby.",
			persona: "student on a tight budget",
			turns: []string{
				"Are there any cheap Chinese restaurants in the south part of town?",
				"The Lucky Star is a cheap Chinese restaurant in the south, and they do takeaway as well. Would you like the details?",
				"Yes, what's the address and phone number?",
				"It's at 12 Cambridge Leisure Park, phone 01223 244277. Anything else?",
				"No, that's exactly what I needed, thanks.",
				"You're welcome, enjoy your meal.",
			},
		},
		{
			id:      "seed_restaurant_3",
			goal:    "Book a table for six on Saturday at a British restaurant",
			context: "A birthday lunch for a large group.",
			persona: "organiser of a group lunch",
			turns: []string{
				"I need a table for six this Saturday, somewhere serving British food.",
				"The Oak Bistro serves modern British food and can seat six on Saturday. Lunch or dinner?",
				"Lunch, about half past twelve.",
				"Booked: a table for six at The Oak Bistro, Saturday at 12:30. Your reference is B9C4D1.",
				"Wonderful, they'll love it. Thank you!",
				"My pleasure, have a lovely birthday lunch.",
			},
		},
		{
			id:      "seed_restaurant_4",
			goal:    "Find a vegetarian-friendly restaurant in the centre",
			context: "The user's guest doesn't eat meat.",
			persona: "host entertaining a visiting friend",
			turns: []string{
				"Can you suggest a restaurant in the centre with good vegetarian options?",
				"The Rainbow Cafe in the centre is fully vegetarian and gets great reviews. Would you like to book?",
				"Sounds perfect. A table for two tomorrow at 7?",
				"A table for two tomorrow at 7pm at the Rainbow Cafe is reserved for you.",
				"Brilliant, thanks a lot.",
				"You're welcome, enjoy your evening.",
			},
		},
		{
			id:      "seed_restaurant_5",
			goal:    "Cancel a restaurant reservation and rebook for next week",
			context: "A schedule clash forces a change of plans.",
			persona: "busy professional rearranging dinner",
			turns: []string{
				"I need to cancel my booking at the Riverside Brasserie tomorrow and move it to next Friday.",
				"I can do that. Your table for two tomorrow is cancelled. Same time next Friday, 8pm?",
				"Yes, 8pm works.",
				"Your new reservation at the Riverside Brasserie is confirmed for next Friday at 8pm.",
				"Perfect, thanks for being so flexible.",
				"Anytime. See you next Friday.",
			},
		},
	},
	"taxi": {
		{
			id:      "seed_taxi_1",
			goal:    "Book a taxi from the station to the hotel",
			context: "The user's train arrives late in the evening.",
			persona: "tired traveler arriving by train",
			turns: []string{
				"I need a taxi from the railway station to the Ashley Hotel tonight.",
				"Sure. What time does your train get in?",
				"It arrives at 10:45pm.",
				"A taxi will meet you outside the station at 10:50pm. Look for a white Skoda, contact number 07700 900123.",
				"Great, that's all set then. Thanks!",
				"You're welcome, safe travels.",
			},
		},
		{
			id:      "seed_taxi_2",
			goal:    "Book a taxi to the airport arriving by 6am",
			context: "An early flight means a fixed arrival deadline.",
			persona: "nervous flyer leaving early",
			turns: []string{
				"I need to get to the airport by 6am on Sunday. Can you book a taxi?",
				"Of course. Where should the driver pick you up?",
				"From 14 Mill Road.",
				"Your taxi from 14 Mill Road is booked to arrive at the airport by 6am Sunday. It's a grey Toyota, plate AB12 CDE.",
				"Perfect, thank you so much.",
				"No problem, have a good flight.",
			},
		},
		{
			id:      "seed_taxi_3",
			goal:    "Get a ride between two restaurants across town",
			context: "Dinner at one place, drinks at another.",
			persona: "night-out planner",
			turns: []string{
				"Can I get a cab from Caffe Uno to the Regal Bar around 9pm?",
				"Certainly. A taxi can collect you from Caffe Uno at 9pm and take you to the Regal Bar. Shall I confirm?",
				"Yes, go ahead.",
				"Booked. A blue Ford will pick you up at 9pm, driver contact 07700 900456.",
				"That works, cheers.",
				"Enjoy your evening.",
			},
		},
		{
			id:      "seed_taxi_4",
			goal:    "Book a wheelchair accessible taxi for a hospital visit",
			context: "The passenger uses a wheelchair and has an appointment time.",
			persona: "carer arranging transport",
			turns: []string{
				"I need a wheelchair accessible taxi to Addenbrookes for a 2pm appointment.",
				"I can arrange that. Where is the pickup?",
				"From 3 Histon Road, leaving around 1:15pm.",
				"An accessible taxi is booked for 1:15pm from 3 Histon Road, arriving well before 2pm. Driver contact 07700 900789.",
				"Thank you, that's a big help.",
				"Glad to help. Hope the appointment goes well.",
			},
		},
		{
			id:      "seed_taxi_5",
			goal:    "Change the pickup time of an existing taxi booking",
			context: "The user's plans shifted by half an hour.",
			persona: "customer running behind schedule",
			turns: []string{
				"I booked a taxi for 5pm today but I'm running late. Can we make it 5:30?",
				"Let me update that for you. Same pickup at the Grand Arcade?",
				"Yes, same place.",
				"Done, your taxi now arrives at 5:30pm at the Grand Arcade. Same car, a silver VW.",
				"Brilliant, thanks for the quick change.",
				"Not a problem at all.",
			},
		},
	},
	"train": {
		{
			id:      "seed_train_1",
			goal:    "Find a train to London arriving by 9am",
			context: "A morning meeting sets a hard arrival deadline.",
			persona: "commuter with an early meeting",
			turns: []string{
				"I need a train to London Kings Cross that arrives before 9am on Monday.",
				"The TR1581 departs at 7:15am and arrives at 8:08am. Would that work?",
				"Yes, how much is a ticket?",
				"A single is $23.60. How many tickets shall I book?",
				"Just one, please.",
				"Booked: one ticket on TR1581, Monday 7:15am, reference T3N7Q2. Total $23.60.",
			},
		},
		{
			id:      "seed_train_2",
			goal:    "Book 4 train tickets to Norwich on Saturday",
			context: "A family day trip by rail.",
			persona: "parent booking a day out",
			turns: []string{
				"Can I get four tickets to Norwich this Saturday, leaving after 10am?",
				"The TR0315 leaves at 10:36am and takes 79 minutes. Four tickets come to $70.40. Shall I book?",
				"Yes, book all four.",
				"Your four tickets on TR0315 are booked, reference N8R2V5.",
				"Thanks, the kids will be thrilled.",
				"Have a great day in Norwich.",
			},
		},
		{
			id:      "seed_train_3",
			goal:    "Find the cheapest train to Birmingham on Friday",
			context: "Price matters more than departure time.",
			persona: "budget-conscious weekend visitor",
			turns: []string{
				"What's the cheapest train to Birmingham New Street on Friday?",
				"The off-peak TR9634 at 11:17am is the cheapest at $60.08. Later trains cost more.",
				"That'll work. One ticket please.",
				"One ticket on TR9634 Friday 11:17am is booked, reference B4H9S1.",
				"Appreciate it, thanks.",
				"You're welcome, enjoy Birmingham.",
			},
		},
		{
			id:      "seed_train_4",
			goal:    "Check the journey time to Stansted airport",
			context: "The user is weighing the train against a taxi.",
			persona: "traveler comparing options",
			turns: []string{
				"How long does the train to Stansted airport take?",
				"Direct trains take 28 minutes and run every half hour. A single costs $10.10.",
				"That's faster than I thought. When is the next one?",
				"The next departure is at 2:24pm from platform 2.",
				"Perfect, I'll take the train then. Thanks for the help.",
				"Safe travels.",
			},
		},
		{
			id:      "seed_train_5",
			goal:    "Change a train ticket to a later departure",
			context: "An earlier commitment ran long.",
			persona: "flexible traveler rebooking",
			turns: []string{
				"I have a ticket for the 3:00pm to Ely but I'll miss it. Can I take a later train?",
				"Your ticket is flexible, so I can move you to the 4:00pm departure at no charge. Shall I?",
				"Yes, please move it.",
				"Done. You're now booked on the 4:00pm to Ely, same reference E6L3M8.",
				"Excellent, thank you.",
				"Glad that worked out.",
			},
		},
	},
	"attraction": {
		{
			id:      "seed_attraction_1",
			goal:    "Find a museum to visit in the centre",
			context: "A rainy afternoon calls for something indoors.",
			persona: "tourist dodging the rain",
			turns: []string{
				"What museums are there in the city centre?",
				"The Fitzwilliam Museum is in the centre and has free entry. It's open until 5pm today.",
				"Free entry sounds great. What's the address?",
				"It's on Trumpington Street. Would you like the phone number as well?",
				"No need, that's everything. Thanks!",
				"Enjoy the museum.",
			},
		},
		{
			id:      "seed_attraction_2",
			goal:    "Book a punting tour for the afternoon",
			context: "Classic sightseeing on the river.",
			persona: "first-time visitor",
			turns: []string{
				"Can I book a punting tour for this afternoon?",
				"Scudamores runs shared tours on the hour. The 3pm tour has space, $22 per person. How many people?",
				"Two of us, please.",
				"Two places on the 3pm punting tour are booked, reference P2A7F4. Meet at the Mill Lane boatyard ten minutes early.",
				"Sounds good, see you there.",
				"Have a wonderful time on the river.",
			},
		},
		{
			id:      "seed_attraction_3",
			goal:    "Find a free park for a family picnic",
			context: "Nice weather and two restless children.",
			persona: "parent planning a cheap day out",
			turns: []string{
				"Is there a free park where we could take the kids for a picnic?",
				"Milton Country Park is free to enter, has picnic areas, and a playground. It's in the north.",
				"Do they allow barbecues?",
				"Barbecues are allowed in the designated area near the lake. Parking costs $4 for the day.",
				"That's exactly what I needed, thank you.",
				"Enjoy the picnic!",
			},
		},
		{
			id:      "seed_attraction_4",
			goal:    "Get opening hours and entry fee for a gallery",
			context: "Planning tomorrow morning's visit.",
			persona: "art lover on a schedule",
			turns: []string{
				"What time does the Kettle's Yard gallery open, and what does entry cost?",
				"Kettle's Yard opens at 11am Tuesday to Sunday, and entry is free, though the house tour needs a timed ticket.",
				"Can you reserve two tickets for the 11:30 house tour tomorrow?",
				"Two timed tickets for tomorrow's 11:30 house tour are reserved under your name.",
				"Lovely, thanks very much.",
				"See you at the gallery.",
			},
		},
		{
			id:      "seed_attraction_5",
			goal:    "Find an architecture attraction in the west",
			context: "The user has an afternoon free near the west side.",
			persona: "architecture enthusiast",
			turns: []string{
				"Any interesting architecture to see in the west of the city?",
				"Clare College and its gardens are in the west and famous for the old court. Entry is $5.",
				"When is it open until?",
				"Visitors are welcome until 5pm daily. Would you like directions?",
				"No thanks, I know the way. That's all I needed.",
				"Enjoy the visit.",
			},
		},
	},
}
