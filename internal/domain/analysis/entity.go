package analysis

import (
	"time"
)

// RequestID identifier type
type RequestID string

// Bureau enum
type Bureau string

const (
	BureauExperian   Bureau = "experian"
	BureauEquifax    Bureau = "equifax"
	BureauTransUnion Bureau = "transunion"
)

// BureauOrder is the fixed ingestion and prompt order for uploaded reports.
var BureauOrder = []Bureau{BureauExperian, BureauEquifax, BureauTransUnion}

// DisplayName returns the bureau name as shown to the model and the user.
func (b Bureau) DisplayName() string {
	switch b {
	case BureauExperian:
		return "Experian"
	case BureauEquifax:
		return "Equifax"
	case BureauTransUnion:
		return "TransUnion"
	default:
		return string(b)
	}
}

// BureauFile is one uploaded credit report, already base64-encoded for the
// model API. Data holds the encoded payload, Size the original byte count.
type BureauFile struct {
	Bureau   Bureau
	MIMEType string
	Data     string
	Size     int64
}

// Aggregate Root: Request
//
// A Request lives only for the duration of one HTTP call; uploaded files are
// never persisted.
type Request struct {
	ID          RequestID
	Files       []BureauFile
	LeadName    string
	LeadEmail   string
	ClientIP    string
	SubmittedAt time.Time
}

// Bureaus lists the display names of the submitted reports in upload order.
func (r *Request) Bureaus() []string {
	out := make([]string, 0, len(r.Files))
	for _, f := range r.Files {
		out = append(out, f.Bureau.DisplayName())
	}
	return out
}
