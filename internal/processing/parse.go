package processing

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/coding-vasu/devdose-sub000/internal/domain"
)

// ErrNoJSON is returned when a completion contains no JSON object.
var ErrNoJSON = errors.New("no json object in completion")

var fencedJSON = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*(\\{.*?\\})\\s*```")

// ExtractJSON returns the JSON object in text, preferring a fenced block over brace matching.
func ExtractJSON(text string) (string, error) {
	if m := fencedJSON.FindStringSubmatch(text); m != nil {
		return m[1], nil
	}

	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", ErrNoJSON
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return text[start : i+1], nil
			}
		}
	}
	return "", ErrNoJSON
}

// Sanitize drops the backslash from escapes JSON does not allow but models emit,
// such as \_ \( \) \[ \] \{ \}. Escaped backslashes are left alone.
func Sanitize(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if c != '\\' || i+1 >= len(raw) {
			b.WriteByte(c)
			continue
		}
		next := raw[i+1]
		switch next {
		case '_', '(', ')', '[', ']', '{', '}':
			b.WriteByte(next)
		default:
			b.WriteByte(c)
			b.WriteByte(next)
		}
		i++
	}
	return b.String()
}

// ParseOutput extracts, sanitizes, decodes and validates a completion.
func ParseOutput(completion string) (domain.ProcessingOutput, error) {
	raw, err := ExtractJSON(completion)
	if err != nil {
		return domain.ProcessingOutput{}, fmt.Errorf("%w: %w", domain.ErrInvalidOutput, err)
	}

	var out domain.ProcessingOutput
	if err := json.Unmarshal([]byte(Sanitize(raw)), &out); err != nil {
		return domain.ProcessingOutput{}, fmt.Errorf("%w: decode: %w", domain.ErrInvalidOutput, err)
	}
	out.Title = strings.TrimSpace(out.Title)
	out.Explanation = strings.TrimSpace(out.Explanation)
	out.Difficulty = domain.Difficulty(strings.ToLower(strings.TrimSpace(string(out.Difficulty))))
	out.Tags = domain.MergeTags(out.Tags)

	if err := out.Validate(); err != nil {
		return domain.ProcessingOutput{}, err
	}
	return out, nil
}
