package ranking

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/jonathan/job-tracker/internal/llm"
	"github.com/jonathan/job-tracker/internal/schemas"
)

// ParseError means the model answered but the answer was not a ranking array.
type ParseError struct {
	Raw   string
	Cause error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("could not parse AI response: %v", e.Cause)
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}

// modelResult is one element of the model's answer before reconciliation.
type modelResult struct {
	ID       flexID     `json:"id"`
	Score    flexNumber `json:"score"`
	Label    string     `json:"label"`
	Reason   string     `json:"reason"`
	Priority string     `json:"priority"`
}

// flexID accepts both 1712345678901 and "1712345678901".
type flexID struct {
	value int64
	valid bool
}

func (f *flexID) UnmarshalJSON(b []byte) error {
	s := unquote(b)
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		f.value, f.valid = v, true
		return nil
	}
	// 1.712345678901e+12 and similar
	if v, err := strconv.ParseFloat(s, 64); err == nil && v == float64(int64(v)) {
		f.value, f.valid = int64(v), true
	}
	return nil
}

// flexNumber accepts numbers and numeric strings.
type flexNumber struct {
	value float64
	valid bool
}

func (f *flexNumber) UnmarshalJSON(b []byte) error {
	s := strings.TrimSuffix(unquote(b), "/10")
	if v, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
		f.value, f.valid = v, true
	}
	return nil
}

func unquote(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	return strings.TrimSpace(s)
}

// parseResults extracts the ranking array from raw model text. Markdown
// fences are removed wherever they appear and surrounding chatter is
// skipped before the array is checked against the ranking schema.
func parseResults(raw string) ([]modelResult, error) {
	text := llm.CleanJSONBlock(llm.StripFences(raw))
	if text == "" {
		return nil, &ParseError{Raw: raw, Cause: fmt.Errorf("empty response")}
	}
	if !json.Valid([]byte(text)) {
		return nil, &ParseError{Raw: raw, Cause: fmt.Errorf("response is not valid JSON")}
	}
	if err := schemas.Validate(schemas.Ranking, []byte(text)); err != nil {
		return nil, &ParseError{Raw: raw, Cause: err}
	}

	var results []modelResult
	if err := json.Unmarshal([]byte(text), &results); err != nil {
		return nil, &ParseError{Raw: raw, Cause: err}
	}
	return results, nil
}
