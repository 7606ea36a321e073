package leads

import (
	"context"

	"github.com/google/uuid"

	"github.com/disputehq/creditlens/internal/application"
	domain "github.com/disputehq/creditlens/internal/domain/leads"
)

// Service implements lead use-cases: funnel capture, progression, listing.
type Service struct {
	Repo  domain.Repository
	Clock application.Clock
}

func NewService(repo domain.Repository, clock application.Clock) *Service {
	return &Service{Repo: repo, Clock: clock}
}

// Capture creates a lead from the portal funnel.
func (s *Service) Capture(ctx context.Context, name, email, ip string) (*domain.Lead, error) {
	now := s.Clock.Now()
	lead := &domain.Lead{
		ID:        domain.LeadID(uuid.New().String()),
		Name:      name,
		Email:     email,
		IPAddress: ip,
		Funnel:    domain.FunnelFlags{ViewedPortal: true},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Repo.Save(ctx, lead); err != nil {
		return nil, err
	}
	return lead, nil
}

// Get fetches one lead by id
func (s *Service) Get(ctx context.Context, id domain.LeadID) (*domain.Lead, error) {
	return s.Repo.Get(ctx, id)
}

// UpdateFunnel overwrites the funnel flags for a lead
func (s *Service) UpdateFunnel(ctx context.Context, id domain.LeadID, flags domain.FunnelFlags) error {
	return s.Repo.UpdateFunnel(ctx, id, flags)
}

// List returns a page of leads for the admin surface
func (s *Service) List(ctx context.Context, page, pageSize int) (domain.PaginatedResult, error) {
	return s.Repo.Paginate(ctx, page, pageSize)
}
