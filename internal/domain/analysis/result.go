package analysis

import (
	"fmt"
	"strconv"
	"strings"
)

// Violation is one detected FCRA/FDCPA issue.
type Violation struct {
	Statute     string `json:"statute,omitempty"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Bureau      string `json:"bureau,omitempty"`
	Creditor    string `json:"creditor,omitempty"`
	Severity    string `json:"severity,omitempty"`
	Disputable  bool   `json:"disputable,omitempty"`
}

// LetterSuggestion is a short dispute-letter recommendation attached to the
// analysis; the full letter is generated separately on request.
type LetterSuggestion struct {
	Bureau   string `json:"bureau,omitempty"`
	Creditor string `json:"creditor,omitempty"`
	Subject  string `json:"subject,omitempty"`
	Summary  string `json:"summary,omitempty"`
}

// LegalSummary holds the violation counts reported by the model.
type LegalSummary struct {
	FCRACount       int `json:"fcraCount"`
	FDCPACount      int `json:"fdcpaCount"`
	TotalViolations int `json:"totalViolations"`
}

// Result is the structured violation report. The model's output shape is not
// guaranteed, so every field is decoded tolerantly and defaults to empty.
type Result struct {
	BureauSummary    string             `json:"bureauSummary,omitempty"`
	FCRAViolations   []Violation        `json:"fcraViolations"`
	FDCPAViolations  []Violation        `json:"fdcpaViolations"`
	DebtBuyerIssues  []Violation        `json:"debtBuyerIssues"`
	SuggestedLetters []LetterSuggestion `json:"suggestedLetters"`
	LegalSummary     LegalSummary       `json:"legalSummary"`
	Summary          string             `json:"summary,omitempty"`
}

// EmptyResult is the minimal schema-valid fallback used when the model output
// cannot be recovered.
func EmptyResult(note string) *Result {
	return &Result{
		FCRAViolations:   []Violation{},
		FDCPAViolations:  []Violation{},
		DebtBuyerIssues:  []Violation{},
		SuggestedLetters: []LetterSuggestion{},
		Summary:          note,
	}
}

// DecodeResult converts an untyped JSON object into a Result, field by field.
// Numbers, strings and booleans are coerced leniently; unknown fields are
// dropped; missing lists come back empty, never nil.
func DecodeResult(obj map[string]any) *Result {
	res := EmptyResult("")
	res.BureauSummary = asString(obj["bureauSummary"])
	res.Summary = asString(obj["summary"])
	res.FCRAViolations = asViolations(obj["fcraViolations"])
	res.FDCPAViolations = asViolations(obj["fdcpaViolations"])
	res.DebtBuyerIssues = asViolations(obj["debtBuyerIssues"])
	res.SuggestedLetters = asLetters(obj["suggestedLetters"])

	if m, ok := obj["legalSummary"].(map[string]any); ok {
		res.LegalSummary.FCRACount = asInt(m["fcraCount"])
		res.LegalSummary.FDCPACount = asInt(m["fdcpaCount"])
		res.LegalSummary.TotalViolations = asInt(m["totalViolations"])
	}
	if res.LegalSummary.TotalViolations == 0 {
		res.LegalSummary.TotalViolations = len(res.FCRAViolations) + len(res.FDCPAViolations)
	}
	if res.LegalSummary.FCRACount == 0 {
		res.LegalSummary.FCRACount = len(res.FCRAViolations)
	}
	if res.LegalSummary.FDCPACount == 0 {
		res.LegalSummary.FDCPACount = len(res.FDCPAViolations)
	}
	return res
}

func asViolations(v any) []Violation {
	items, ok := v.([]any)
	if !ok {
		return []Violation{}
	}
	out := make([]Violation, 0, len(items))
	for _, it := range items {
		m, ok := it.(map[string]any)
		if !ok {
			continue
		}
		out = append(out, Violation{
			Statute:     asString(m["statute"]),
			Title:       asString(m["title"]),
			Description: asString(m["description"]),
			Bureau:      asString(m["bureau"]),
			Creditor:    asString(m["creditor"]),
			Severity:    asString(m["severity"]),
			Disputable:  asBool(m["disputable"]),
		})
	}
	return out
}

func asLetters(v any) []LetterSuggestion {
	items, ok := v.([]any)
	if !ok {
		return []LetterSuggestion{}
	}
	out := make([]LetterSuggestion, 0, len(items))
	for _, it := range items {
		m, ok := it.(map[string]any)
		if !ok {
			continue
		}
		out = append(out, LetterSuggestion{
			Bureau:   asString(m["bureau"]),
			Creditor: asString(m["creditor"]),
			Subject:  asString(m["subject"]),
			Summary:  asString(m["summary"]),
		})
	}
	return out
}

func asString(v any) string {
	switch x := v.(type) {
	case string:
		return strings.TrimSpace(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case nil:
		return ""
	default:
		return strings.TrimSpace(fmt.Sprint(x))
	}
}

func asInt(v any) int {
	switch x := v.(type) {
	case float64:
		return int(x)
	case int:
		return x
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(x))
		if err != nil {
			return 0
		}
		return n
	case bool:
		if x {
			return 1
		}
		return 0
	default:
		return 0
	}
}

func asBool(v any) bool {
	switch x := v.(type) {
	case bool:
		return x
	case string:
		return strings.EqualFold(strings.TrimSpace(x), "true")
	case float64:
		return x != 0
	default:
		return false
	}
}
