package analysis

import "testing"

func TestDecodeModelTextValidPassthrough(t *testing.T) {
	res := DecodeModelText(`{"summary": "ok"}`)
	if res.Summary != "ok" {
		t.Fatalf("expected summary %q got %q", "ok", res.Summary)
	}
	if len(res.FCRAViolations) != 0 {
		t.Fatalf("expected no violations got %d", len(res.FCRAViolations))
	}
}

func TestDecodeModelTextTruncatedArray(t *testing.T) {
	res := DecodeModelText(`{"summary": "ok", "fcraViolations": [`)
	if res.Summary != "ok" {
		t.Fatalf("repair lost the summary field: %+v", res)
	}
	if len(res.FCRAViolations) != 0 {
		t.Fatalf("expected empty fcraViolations got %d", len(res.FCRAViolations))
	}
}

func TestDecodeModelTextTruncatedString(t *testing.T) {
	res := DecodeModelText(`{"summary": "ok", "fcraViolations": [{"statute": "1681e", "title": "Inaccur`)
	// The dangling fragment and its container close cleanly; the summary
	// must survive.
	if res.Summary != "ok" {
		t.Fatalf("repair lost the summary field: %+v", res)
	}
}

func TestDecodeModelTextCodeFence(t *testing.T) {
	res := DecodeModelText("```json\n{\"summary\": \"fenced\"}\n```")
	if res.Summary != "fenced" {
		t.Fatalf("code fence not stripped: %+v", res)
	}
}

func TestDecodeModelTextUnrecoverableFallsBack(t *testing.T) {
	res := DecodeModelText("not json at all")
	if res == nil {
		t.Fatal("fallback must never be nil")
	}
	if res.FCRAViolations == nil || res.FDCPAViolations == nil || res.SuggestedLetters == nil {
		t.Fatalf("fallback lists must be non-nil: %+v", res)
	}
	if res.LegalSummary.TotalViolations != 0 {
		t.Fatalf("fallback must carry zero counts, got %d", res.LegalSummary.TotalViolations)
	}
	if res.Summary == "" {
		t.Fatal("fallback must explain the truncation")
	}
}

func TestRepairTruncatedBalancesNesting(t *testing.T) {
	got := repairTruncated(`{"a": {"b": [`)
	if got != `{"a": {"b": []}}` {
		t.Fatalf("unexpected repair output: %s", got)
	}
}

func TestRepairTruncatedClosesInnermostFirst(t *testing.T) {
	got := repairTruncated(`{"items": [{"statute": "1681e"`)
	if got != `{"items": [{"statute": "1681e"}]}` {
		t.Fatalf("unexpected repair output: %s", got)
	}
}

func TestRepairTruncatedKeepsCompleteText(t *testing.T) {
	in := `{"a": 1}`
	if got := repairTruncated(in); got != in {
		t.Fatalf("complete text must pass through, got %s", got)
	}
}
