package gateway

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/theirongolddev/fintrack/internal/model"
)

var fencedBlock = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*(.*?)```")

// ExtractJSON decodes the first JSON value found in a model reply into v.
// It tries, in order: the whole reply, fenced code blocks, and the first
// balanced object or array in the text.
func ExtractJSON(reply string, v any) error {
	trimmed := strings.TrimSpace(reply)
	if trimmed == "" {
		return fmt.Errorf("gateway: empty reply: %w", model.ErrParse)
	}
	if json.Unmarshal([]byte(trimmed), v) == nil {
		return nil
	}
	for _, m := range fencedBlock.FindAllStringSubmatch(reply, -1) {
		if json.Unmarshal([]byte(strings.TrimSpace(m[1])), v) == nil {
			return nil
		}
	}
	for start := 0; start < len(reply); start++ {
		if reply[start] != '{' && reply[start] != '[' {
			continue
		}
		end := balancedEnd(reply, start)
		if end < 0 {
			continue
		}
		if json.Unmarshal([]byte(reply[start:end+1]), v) == nil {
			return nil
		}
	}
	return fmt.Errorf("gateway: no JSON value in reply: %w", model.ErrParse)
}

// balancedEnd returns the index closing the bracket at start, honoring
// JSON strings, or -1.
func balancedEnd(s string, start int) int {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{', '[':
			depth++
		case '}', ']':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

const numberPattern = `\s*[:=]?\s*[$€£]?\s*(-?[\d,]+(?:\.\d+)?)`

// ExtractNumber finds a number following label (case-insensitive), e.g.
// "Confidence: 0.8" or "total = $1,200.50".
func ExtractNumber(reply, label string) (float64, bool) {
	re, err := regexp.Compile(`(?i)` + regexp.QuoteMeta(label) + numberPattern)
	if err != nil {
		return 0, false
	}
	m := re.FindStringSubmatch(reply)
	if m == nil {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// Clean strips markdown emphasis and surrounding whitespace from a
// narrative reply.
func Clean(reply string) string {
	r := strings.NewReplacer("**", "", "__", "", "```", "")
	return strings.TrimSpace(r.Replace(reply))
}
