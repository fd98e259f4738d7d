package evaluate

import (
	"encoding/json"
	"strings"
)

// AnswerKind tags the outcome of parsing one raw LLM answer. The report
// assembler switches on this instead of nesting error handling; every kind
// maps to a defined row shape.
type AnswerKind int

const (
	AnswerOK AnswerKind = iota
	AnswerEmpty
	AnswerEmptyArray
	AnswerParseError
)

// AnswerObject is the JSON shape the model is instructed to produce per
// design element. Absent fields get report-side defaults.
type AnswerObject struct {
	Answer        string `json:"Answer"`
	AnswerQuality string `json:"Answer_Quality"`
	AnswerSource  string `json:"Answer_Source"`
	Summary       string `json:"Summary"`
	Reference     string `json:"Reference"`
}

// ParsedAnswer is the tagged result of answer recovery. Stripped carries
// the fence-stripped text for use as a summary fallback.
type ParsedAnswer struct {
	Kind     AnswerKind
	Object   AnswerObject
	Stripped string
}

// ParseAnswer applies the layered recovery policy to untrusted model
// output: trim, strip Markdown code fences, parse as JSON, unwrap a leading
// array element. It never panics and never returns an error; malformed
// input degrades to a tagged kind.
func ParseAnswer(raw string) ParsedAnswer {
	clean := strings.TrimSpace(raw)
	if clean == "" {
		return ParsedAnswer{Kind: AnswerEmpty}
	}

	stripped := stripCodeFence(clean)
	result := ParsedAnswer{Stripped: stripped}

	var probe json.RawMessage
	if err := json.Unmarshal([]byte(stripped), &probe); err != nil {
		result.Kind = AnswerParseError
		return result
	}

	payload := []byte(stripped)
	if first := firstNonSpace(stripped); first == '[' {
		var items []json.RawMessage
		if err := json.Unmarshal(payload, &items); err != nil {
			result.Kind = AnswerParseError
			return result
		}
		if len(items) == 0 {
			result.Kind = AnswerEmptyArray
			return result
		}
		payload = items[0]
	}

	var obj AnswerObject
	if err := json.Unmarshal(payload, &obj); err != nil {
		result.Kind = AnswerParseError
		return result
	}
	result.Kind = AnswerOK
	result.Object = obj
	return result
}

// stripCodeFence removes a surrounding ```json ... ``` (or bare ```)
// Markdown wrapper when present.
func stripCodeFence(s string) string {
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
		s = strings.TrimSpace(s)
	}
	return s
}

func firstNonSpace(s string) byte {
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case ' ', '\t', '\n', '\r':
			continue
		default:
			return s[i]
		}
	}
	return 0
}

// TitleCase maps arbitrary source casing to the report's canonical form:
// first letter upper, rest lower ("ADEQUATE" -> "Adequate").
func TitleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}
