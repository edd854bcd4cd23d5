package llm

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

var jsonObjectRe = regexp.MustCompile(`(?s)\{.*\}`)

// ExtractJSON pulls the first JSON object out of free-form LLM output and
// unmarshals it into v. Models wrap JSON in prose and markdown fences and
// frequently emit trailing commas or single quotes; the text is repaired
// before parsing.
func ExtractJSON(text string, v any) error {
	candidate := jsonObjectRe.FindString(stripFences(text))
	if candidate == "" {
		return NewError(KindBadLLMResponse, "", errors.New("no JSON object in response"))
	}

	if err := json.Unmarshal([]byte(candidate), v); err == nil {
		return nil
	}

	repaired, err := jsonrepair.JSONRepair(candidate)
	if err != nil {
		return NewError(KindBadLLMResponse, "", err)
	}
	if err := json.Unmarshal([]byte(repaired), v); err != nil {
		return NewError(KindBadLLMResponse, "", err)
	}
	return nil
}

// stripFences removes markdown code fences like ```json ... ```.
func stripFences(text string) string {
	s := strings.TrimSpace(text)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if idx := strings.Index(s, "\n"); idx >= 0 {
		s = s[idx+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
