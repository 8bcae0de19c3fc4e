package ai

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ResponseError is a model reply that could not be used
type ResponseError struct {
	Task string
	Raw  string
	Err  error
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("%s: unusable model response: %v (%q)", e.Task, e.Err, truncate(e.Raw, 200))
}

func (e *ResponseError) Unwrap() error { return e.Err }

var errNoJSON = errors.New("no JSON object found")

// extractJSONObject strips code fences and returns the outermost object
func extractJSONObject(s string) (string, error) {
	t := strings.TrimSpace(s)
	if t == "" {
		return "", ErrEmptyResponse
	}

	if strings.HasPrefix(t, "```") {
		if i := strings.Index(t, "\n"); i >= 0 {
			t = t[i+1:]
		}
		if j := strings.LastIndex(t, "```"); j >= 0 {
			t = t[:j]
		}
		t = strings.TrimSpace(t)
	}

	start := strings.Index(t, "{")
	end := strings.LastIndex(t, "}")
	if start >= 0 && end > start {
		return t[start : end+1], nil
	}
	return "", errNoJSON
}

var missingCommaRE = regexp.MustCompile(`}\s*{`)

// decodeReply extracts the JSON object from raw and decodes it into v.
// Objects listed without separating commas are repaired once.
func decodeReply(task, raw string, v any) error {
	obj, err := extractJSONObject(raw)
	if err != nil {
		return &ResponseError{Task: task, Raw: raw, Err: err}
	}
	if err := json.Unmarshal([]byte(obj), v); err != nil {
		repaired := missingCommaRE.ReplaceAllString(obj, "},{")
		if repaired == obj {
			return &ResponseError{Task: task, Raw: raw, Err: err}
		}
		if err2 := json.Unmarshal([]byte(repaired), v); err2 != nil {
			return &ResponseError{Task: task, Raw: raw, Err: err}
		}
	}
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
