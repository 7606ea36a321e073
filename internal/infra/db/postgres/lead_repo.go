package postgres

import (
	"context"
	"database/sql"
	"math"
	"strings"
	"time"

	domain "github.com/disputehq/creditlens/internal/domain/leads"
)

type LeadRepository struct {
	db *sql.DB
}

func NewLeadRepository(db *sql.DB) *LeadRepository {
	return &LeadRepository{db: db}
}

// Save inserts or updates a lead record
func (r *LeadRepository) Save(ctx context.Context, l *domain.Lead) error {
	const q = `
INSERT INTO leads
  (id, name, email, ip_address,
   viewed_portal, uploaded_report, completed_analysis, requested_letters,
   created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
ON CONFLICT (id) DO UPDATE SET
  name=EXCLUDED.name, email=EXCLUDED.email,
  viewed_portal=EXCLUDED.viewed_portal, uploaded_report=EXCLUDED.uploaded_report,
  completed_analysis=EXCLUDED.completed_analysis, requested_letters=EXCLUDED.requested_letters,
  updated_at=EXCLUDED.updated_at;
`
	if strings.TrimSpace(l.Email) == "" {
		return domain.ErrInvalidEmail
	}
	name := stringOrDash(l.Name)
	ip := stringOrDash(l.IPAddress)
	created := l.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	updated := l.UpdatedAt
	if updated.IsZero() {
		updated = created
	}
	_, err := r.db.ExecContext(ctx, q,
		l.ID, name, l.Email, ip,
		l.Funnel.ViewedPortal, l.Funnel.UploadedReport,
		l.Funnel.CompletedAnalysis, l.Funnel.RequestedLetters,
		created, updated,
	)
	return err
}

func (r *LeadRepository) Get(ctx context.Context, id domain.LeadID) (*domain.Lead, error) {
	const q = `
SELECT id, name, email, ip_address,
       viewed_portal, uploaded_report, completed_analysis, requested_letters,
       created_at, updated_at
FROM leads
WHERE id=$1
LIMIT 1;`
	row := r.db.QueryRowContext(ctx, q, id)
	var l domain.Lead
	if err := row.Scan(
		&l.ID, &l.Name, &l.Email, &l.IPAddress,
		&l.Funnel.ViewedPortal, &l.Funnel.UploadedReport,
		&l.Funnel.CompletedAnalysis, &l.Funnel.RequestedLetters,
		&l.CreatedAt, &l.UpdatedAt,
	); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &l, nil
}

func (r *LeadRepository) CountRecentByIP(ctx context.Context, ip string, window time.Duration) (int, error) {
	const q = `SELECT COUNT(*) FROM leads WHERE ip_address=$1 AND created_at >= $2;`
	cut := time.Now().Add(-window)
	var n int
	if err := r.db.QueryRowContext(ctx, q, ip, cut).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (r *LeadRepository) UpdateFunnel(ctx context.Context, id domain.LeadID, flags domain.FunnelFlags) error {
	const q = `
UPDATE leads SET
  viewed_portal=$1, uploaded_report=$2, completed_analysis=$3, requested_letters=$4,
  updated_at=$5
WHERE id=$6;`
	res, err := r.db.ExecContext(ctx, q,
		flags.ViewedPortal, flags.UploadedReport,
		flags.CompletedAnalysis, flags.RequestedLetters,
		time.Now(), id,
	)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Paginate returns a page of leads ordered by created_at desc
func (r *LeadRepository) Paginate(ctx context.Context, page, pageSize int) (domain.PaginatedResult, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	const q = `
SELECT id, name, email, ip_address,
       viewed_portal, uploaded_report, completed_analysis, requested_letters,
       created_at, updated_at
FROM leads
ORDER BY created_at DESC, id DESC
LIMIT $1 OFFSET $2;`
	rows, err := r.db.QueryContext(ctx, q, pageSize, offset)
	if err != nil {
		return domain.PaginatedResult{}, err
	}
	defer rows.Close()

	var out []*domain.Lead
	for rows.Next() {
		var l domain.Lead
		if err := rows.Scan(
			&l.ID, &l.Name, &l.Email, &l.IPAddress,
			&l.Funnel.ViewedPortal, &l.Funnel.UploadedReport,
			&l.Funnel.CompletedAnalysis, &l.Funnel.RequestedLetters,
			&l.CreatedAt, &l.UpdatedAt,
		); err != nil {
			return domain.PaginatedResult{}, err
		}
		out = append(out, &l)
	}
	if err := rows.Err(); err != nil {
		return domain.PaginatedResult{}, err
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM leads;`).Scan(&total); err != nil {
		return domain.PaginatedResult{}, err
	}

	return domain.PaginatedResult{
		Data:       out,
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: int(math.Ceil(float64(total) / float64(pageSize))),
	}, nil
}

func stringOrDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
