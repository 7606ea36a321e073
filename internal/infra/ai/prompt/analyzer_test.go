package prompt

import (
	"strings"
	"testing"

	"github.com/disputehq/creditlens/internal/domain/analysis"
)

func TestBuildPartsOrdering(t *testing.T) {
	files := []analysis.BureauFile{
		{Bureau: analysis.BureauExperian, MIMEType: "application/pdf", Data: "QQ=="},
		{Bureau: analysis.BureauTransUnion, MIMEType: "application/pdf", Data: "Qg=="},
	}

	parts := BuildParts(files)

	if len(parts) != 6 {
		t.Fatalf("len(parts) = %d, want 6", len(parts))
	}
	if parts[0].Text != GetAnalyzerPrompt() {
		t.Error("first part must be the instruction block")
	}
	if !strings.Contains(parts[1].Text, "Experian, TransUnion") {
		t.Errorf("task prompt %q should name the bureaus in order", parts[1].Text)
	}

	// Each document part must be immediately followed by its bureau label.
	if parts[2].InlineData == nil || parts[2].InlineData.Data != "QQ==" {
		t.Fatal("third part should be the first document")
	}
	if !strings.Contains(parts[3].Text, "Experian credit report") {
		t.Errorf("label %q should name Experian", parts[3].Text)
	}
	if parts[4].InlineData == nil || parts[4].InlineData.Data != "Qg==" {
		t.Fatal("fifth part should be the second document")
	}
	if !strings.Contains(parts[5].Text, "TransUnion credit report") {
		t.Errorf("label %q should name TransUnion", parts[5].Text)
	}
}

func TestBuildPartsSingleFile(t *testing.T) {
	parts := BuildParts([]analysis.BureauFile{
		{Bureau: analysis.BureauEquifax, MIMEType: "application/pdf", Data: "QQ=="},
	})

	if len(parts) != 4 {
		t.Fatalf("len(parts) = %d, want 4", len(parts))
	}
	if !strings.Contains(parts[1].Text, "Equifax") {
		t.Error("task prompt should name the only bureau")
	}
}

func TestAnalyzerPromptDemandsBareJSON(t *testing.T) {
	p := GetAnalyzerPrompt()
	for _, want := range []string{"fcraViolations", "fdcpaViolations", "suggestedLetters", "legalSummary"} {
		if !strings.Contains(p, want) {
			t.Errorf("instruction block missing %q", want)
		}
	}
}
