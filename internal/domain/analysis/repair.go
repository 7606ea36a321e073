package analysis

import (
	"encoding/json"
	"regexp"
	"strings"
)

const truncationNote = "The analysis response was truncated and could not be fully recovered. Please resubmit the report."

// Matches a dangling unterminated quoted key or string at the end of the
// text, together with the comma that preceded it.
var danglingFragment = regexp.MustCompile(`,?\s*"[^"]*$`)

// Matches a complete quoted key left dangling with its colon once the
// unterminated value after it has been stripped.
var danglingKey = regexp.MustCompile(`,?\s*"(?:[^"\\]|\\.)*"\s*:\s*$`)

var trailingComma = regexp.MustCompile(`,\s*$`)

// DecodeModelText turns the model's raw text into a Result. It tries a strict
// parse first, then a bounded truncation repair, and finally falls back to
// the minimal empty result so the caller never receives an unparsable
// payload. The repair recovers complete fields written before the cut; the
// truncated item itself is discarded.
func DecodeModelText(raw string) *Result {
	s := stripCodeFence(strings.TrimSpace(raw))
	if obj, ok := parseObject(s); ok {
		return DecodeResult(obj)
	}
	if obj, ok := parseObject(repairTruncated(s)); ok {
		return DecodeResult(obj)
	}
	return EmptyResult(truncationNote)
}

func parseObject(s string) (map[string]any, bool) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(s), &obj); err != nil {
		return nil, false
	}
	return obj, true
}

// repairTruncated strips a trailing incomplete fragment, then closes every
// container still open at the cut, innermost first. String literals are
// skipped while scanning so brackets inside values do not skew the stack.
func repairTruncated(s string) string {
	// An odd quote count means the text ends inside a string literal.
	if strings.Count(s, `"`)%2 == 1 {
		s = danglingFragment.ReplaceAllString(s, "")
	}
	s = danglingKey.ReplaceAllString(s, "")
	s = trailingComma.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}

	var stack []byte
	inString := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch c {
			case '\\':
				i++
			case '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			stack = append(stack, '}')
		case '[':
			stack = append(stack, ']')
		case '}', ']':
			if len(stack) > 0 && stack[len(stack)-1] == c {
				stack = stack[:len(stack)-1]
			}
		}
	}
	for i := len(stack) - 1; i >= 0; i-- {
		s += string(stack[i])
	}
	return s
}

func stripCodeFence(s string) string {
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(s, "```")
	}
	return strings.TrimSpace(s)
}
