package faults

import "context"

// Repository defines persistence for analysis faults
type Repository interface {
	Save(ctx context.Context, f *AnalysisFault) error
	Latest(ctx context.Context, limit int) ([]*AnalysisFault, error)
}
