package models

// HeuristicFilters records the pass/fail outcome of each cheap filter.
type HeuristicFilters struct {
	Length        bool `json:"length"`
	Repetition    bool `json:"repetition"`
	Profanity     bool `json:"profanity"`
	Coherence     bool `json:"coherence"`
	GoalMention   bool `json:"goal_mention"`
	EmptyResponse bool `json:"empty_response"`
}

// Passed returns how many filters passed out of the total.
func (h HeuristicFilters) Passed() (passed, total int) {
	for _, ok := range []bool{h.Length, h.Repetition, h.Profanity, h.Coherence, h.GoalMention, h.EmptyResponse} {
		total++
		if ok {
			passed++
		}
	}
	return passed, total
}

// LLMEvaluation is the model-based quality judgement of a dialogue.
// Scores are on a 1–5 scale. Error holds a description when the judge
// call failed; a failed judge never discards a dialogue by itself.
type LLMEvaluation struct {
	CoherenceScore float64 `json:"coherence_score"`
	GoalRelevance  bool    `json:"goal_relevance"`
	OverallScore   float64 `json:"overall_score"`
	Error          string  `json:"error,omitempty"`
}

// QualityAssessment combines heuristic filters and LLM evaluation into the
// final accept/reject decision for a dialogue.
type QualityAssessment struct {
	HeuristicFilters HeuristicFilters `json:"heuristic_filters"`
	HeuristicScore   float64          `json:"heuristic_score"`
	LLMEvaluation    *LLMEvaluation   `json:"llm_evaluation,omitempty"`
	OverallScore     float64          `json:"overall_score"`
	PassedFilters    bool             `json:"passed_filters"`
}
