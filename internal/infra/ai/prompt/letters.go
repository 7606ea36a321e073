package prompt

import (
	"fmt"

	"github.com/disputehq/creditlens/internal/domain/letters"
)

// GetLetterSystemPrompt returns the instruction block for dispute-letter
// drafting.
func GetLetterSystemPrompt() string {
	return `You draft formal consumer dispute letters under the FCRA and FDCPA.
Write in plain, firm, professional English addressed to a credit bureau's
dispute department. Cite the specific statute sections that apply. Request
deletion or correction of the disputed item and a written response within
30 days as required by 15 U.S.C. § 1681i.

Respond with a single JSON object and nothing else, shaped exactly as:
{"subject": string, "body": string, "citations": [string]}
The body must be the complete letter text including salutation and closing,
with the consumer's name and address where provided.`
}

// GetLetterUserPrompt renders one letter request.
func GetLetterUserPrompt(req letters.LetterRequest) string {
	return fmt.Sprintf(
		"Draft a dispute letter.\nBureau: %s\nCreditor: %s\nViolation: %s\nConsumer name: %s\nConsumer address: %s",
		req.Bureau, req.Creditor, req.ViolationSummary, req.ConsumerName, req.ConsumerAddress,
	)
}
