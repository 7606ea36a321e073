package prompt

import (
	"fmt"
	"strings"

	"github.com/disputehq/creditlens/internal/domain/analysis"
)

// Part is one ordered element of the multimodal model request. Exactly one
// of Text or InlineData is set.
type Part struct {
	Text       string
	InlineData *InlineData
}

// InlineData carries a base64-encoded document.
type InlineData struct {
	MIMEType string
	Data     string
}

// GetAnalyzerPrompt returns the fixed legal-knowledge instruction block sent
// ahead of every analysis request.
func GetAnalyzerPrompt() string {
	return analyzerPrompt
}

// GetTaskPrompt names the bureaus whose reports follow in this request.
func GetTaskPrompt(bureaus []string) string {
	return fmt.Sprintf(
		"Analyze the attached consumer credit report PDF(s) from the following bureau(s): %s. "+
			"Each attached document is immediately followed by a label identifying its bureau. "+
			"Attribute every finding to the correct bureau using those labels.",
		strings.Join(bureaus, ", "),
	)
}

// BuildParts assembles the ordered request content: the instruction block,
// the task line, then each file with its bureau label immediately after it.
// The label position is a hard contract; the model relies on it to attribute
// content per bureau.
func BuildParts(files []analysis.BureauFile) []Part {
	parts := make([]Part, 0, 2+2*len(files))
	bureaus := make([]string, 0, len(files))
	for _, f := range files {
		bureaus = append(bureaus, f.Bureau.DisplayName())
	}
	parts = append(parts,
		Part{Text: analyzerPrompt},
		Part{Text: GetTaskPrompt(bureaus)},
	)
	for _, f := range files {
		parts = append(parts,
			Part{InlineData: &InlineData{MIMEType: f.MIMEType, Data: f.Data}},
			Part{Text: fmt.Sprintf("The document above is the %s credit report.", f.Bureau.DisplayName())},
		)
	}
	return parts
}

const analyzerPrompt = `You are an expert consumer-credit attorney specializing in the Fair Credit
Reporting Act (FCRA, 15 U.S.C. § 1681 et seq.) and the Fair Debt Collection
Practices Act (FDCPA, 15 U.S.C. § 1692 et seq.). You will receive one to three
consumer credit report PDFs, one per bureau. Examine every tradeline,
collection account, inquiry, and personal-information section for violations.

FCRA violation categories to detect:
- § 1681e(b) Failure to follow reasonable procedures to assure maximum
  possible accuracy: balances differing across bureaus for the same account,
  impossible dates (e.g. last payment after report date), duplicate
  tradelines for a single debt, accounts belonging to another consumer.
- § 1681i Failure to conduct a reasonable reinvestigation: items marked
  "consumer disputes" for longer than 30 days with no resolution noted.
- § 1681c Reporting of outdated information: charge-offs and collections
  older than 7 years from date of first delinquency, bankruptcies older than
  10 years, inquiries older than 2 years.
- § 1681b Impermissible purpose: hard inquiries with no corresponding
  application or account relationship.
- § 1681s-2 Furnisher accuracy duties: re-aged accounts (date of first
  delinquency moved forward), balance reported on accounts included in
  bankruptcy, "charged off" accounts still reporting monthly late marks.

FDCPA violation categories to detect (collection tradelines only):
- § 1692e False or misleading representation of the character, amount, or
  legal status of a debt: collection balance higher than the original
  charge-off amount without documented interest entitlement.
- § 1692f Unfair practices: collection fees or interest not authorized by
  the underlying agreement or by law.
- § 1692g Validation: collections appearing without any original-creditor
  identification.

Debt-buyer issues to flag separately:
- Tradelines where the current owner is a known debt buyer (e.g. portfolio
  recovery, LVNV, Midland, Cavalry) reporting incomplete chain-of-title
  detail, a missing original creditor, or an unverifiable balance.

Severity grading: "high" when the item suppresses the score or is legally
time-barred from reporting, "medium" for cross-bureau inconsistencies,
"low" for technical or formatting defects.

Respond with a single JSON object and nothing else. No markdown fences, no
commentary. The object must have exactly this shape:

{
  "bureauSummary": string,
  "fcraViolations": [
    {"statute": string, "title": string, "description": string,
     "bureau": string, "creditor": string, "severity": string,
     "disputable": boolean}
  ],
  "fdcpaViolations": [ same item shape as fcraViolations ],
  "debtBuyerIssues": [ same item shape as fcraViolations ],
  "suggestedLetters": [
    {"bureau": string, "creditor": string, "subject": string,
     "summary": string}
  ],
  "legalSummary": {
    "fcraCount": number, "fdcpaCount": number, "totalViolations": number
  },
  "summary": string
}

Every violation must cite the specific statute section. If a report contains
no violations in a category, return an empty array for that category. Base
every finding only on content actually present in the attached documents;
never invent accounts, creditors, or dates.`
