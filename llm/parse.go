package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ParseJSON extracts a JSON object from a model response and unmarshals it
// into T. Responses frequently arrive wrapped in markdown code fences or
// surrounded by prose; everything outside the outermost braces is ignored.
func ParseJSON[T any](response string) (T, error) {
	var zero T

	jsonStr := strings.TrimSpace(response)
	start := strings.IndexByte(jsonStr, '{')
	end := strings.LastIndexByte(jsonStr, '}')
	if start == -1 || end == -1 || start >= end {
		return zero, fmt.Errorf("no JSON object found in response")
	}
	jsonStr = jsonStr[start : end+1]

	var result T
	if err := json.Unmarshal([]byte(jsonStr), &result); err != nil {
		return zero, fmt.Errorf("unmarshalling model response: %w", err)
	}
	return result, nil
}
