package letters

// LetterRequest describes the violation a dispute letter should address.
type LetterRequest struct {
	Bureau           string `json:"bureau"`
	Creditor         string `json:"creditor"`
	ViolationSummary string `json:"violation_summary"`
	ConsumerName     string `json:"consumer_name"`
	ConsumerAddress  string `json:"consumer_address,omitempty"`
}

// DisputeLetter is the generated letter text with the statutes it cites.
type DisputeLetter struct {
	Subject   string   `json:"subject"`
	Body      string   `json:"body"`
	Citations []string `json:"citations"`
}
