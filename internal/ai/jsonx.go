package ai

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrNoJSON is returned when a response carries no JSON value.
var ErrNoJSON = errors.New("no JSON value in response")

// ExtractJSON returns the first balanced JSON object or array in text,
// ignoring markdown code fences and surrounding prose.
func ExtractJSON(text string) (string, error) {
	s := stripFences(text)
	start := strings.IndexAny(s, "{[")
	for start >= 0 {
		if end := matchBracket(s, start); end > 0 {
			return s[start : end+1], nil
		}
		next := strings.IndexAny(s[start+1:], "{[")
		if next < 0 {
			break
		}
		start += next + 1
	}
	return "", ErrNoJSON
}

// DecodeJSON extracts the first JSON value in text and unmarshals it into v.
func DecodeJSON(text string, v any) error {
	raw, err := ExtractJSON(text)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("decode json: %w", err)
	}
	return nil
}

func stripFences(text string) string {
	i := strings.Index(text, "```")
	if i < 0 {
		return text
	}
	body := text[i+3:]
	if nl := strings.IndexByte(body, '\n'); nl >= 0 && !strings.ContainsAny(body[:nl], "{[") {
		body = body[nl+1:]
	}
	if j := strings.Index(body, "```"); j >= 0 {
		body = body[:j]
	}
	return body
}

// matchBracket returns the index of the bracket closing s[start], or -1.
func matchBracket(s string, start int) int {
	var stack []byte
	inStr, esc := false, false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inStr {
			switch {
			case esc:
				esc = false
			case c == '\\':
				esc = true
			case c == '"':
				inStr = false
			}
			continue
		}
		switch c {
		case '"':
			inStr = true
		case '{':
			stack = append(stack, '}')
		case '[':
			stack = append(stack, ']')
		case '}', ']':
			if len(stack) == 0 || stack[len(stack)-1] != c {
				return -1
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				return i
			}
		}
	}
	return -1
}
