package leads

import "time"

// LeadID identifier type
type LeadID string

// FunnelFlags tracks a lead's progress through the portal funnel.
type FunnelFlags struct {
	ViewedPortal      bool `json:"viewed_portal"`
	UploadedReport    bool `json:"uploaded_report"`
	CompletedAnalysis bool `json:"completed_analysis"`
	RequestedLetters  bool `json:"requested_letters"`
}

// Aggregate Root: Lead
type Lead struct {
	ID        LeadID      `json:"id"`
	Name      string      `json:"name"`
	Email     string      `json:"email"`
	IPAddress string      `json:"ip_address"`
	Funnel    FunnelFlags `json:"funnel"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// PaginatedResult represents a paginated lead listing with metadata
type PaginatedResult struct {
	Data       []*Lead `json:"data"`
	Page       int     `json:"page"`
	PageSize   int     `json:"pageSize"`
	Total      int64   `json:"totalItems"`
	TotalPages int     `json:"totalPages"`
}
