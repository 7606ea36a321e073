package mysql

import (
	"context"
	"database/sql"
	"fmt"
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
VALUES (?,?,?,?,?,?,?,?,?,?)
ON DUPLICATE KEY UPDATE
 name=VALUES(name), email=VALUES(email),
 viewed_portal=VALUES(viewed_portal), uploaded_report=VALUES(uploaded_report),
 completed_analysis=VALUES(completed_analysis), requested_letters=VALUES(requested_letters),
 updated_at=VALUES(updated_at);
`
	name := stringOrDash(l.Name)
	ip := stringOrDash(l.IPAddress)
	if strings.TrimSpace(l.Email) == "" {
		return domain.ErrInvalidEmail
	}
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

// Get by ID
func (r *LeadRepository) Get(ctx context.Context, id domain.LeadID) (*domain.Lead, error) {
	const q = `
SELECT id, name, email, ip_address,
       viewed_portal, uploaded_report, completed_analysis, requested_letters,
       created_at, updated_at
FROM leads
WHERE id=? LIMIT 1;
`
	row := r.db.QueryRowContext(ctx, q, id)
	l, err := scanLead(row.Scan)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	return l, err
}

// CountRecentByIP counts lead rows for an IP inside the trailing window.
// This read backs the analyze endpoint's rate limit.
func (r *LeadRepository) CountRecentByIP(ctx context.Context, ip string, window time.Duration) (int, error) {
	const q = `SELECT COUNT(*) FROM leads WHERE ip_address=? AND created_at >= ?;`
	cut := time.Now().Add(-window)
	var n int
	if err := r.db.QueryRowContext(ctx, q, ip, cut).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// UpdateFunnel overwrites the funnel flags for a lead
func (r *LeadRepository) UpdateFunnel(ctx context.Context, id domain.LeadID, flags domain.FunnelFlags) error {
	const q = `
UPDATE leads SET
 viewed_portal=?, uploaded_report=?, completed_analysis=?, requested_letters=?,
 updated_at=?
WHERE id=?;
`
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

// Paginate with offset + limit (classic pagination)
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
LIMIT ? OFFSET ?;
`
	rows, err := r.db.QueryContext(ctx, q, pageSize, offset)
	if err != nil {
		return domain.PaginatedResult{}, fmt.Errorf("querying leads: %w", err)
	}
	defer rows.Close()

	var out []*domain.Lead
	for rows.Next() {
		l, err := scanLead(rows.Scan)
		if err != nil {
			return domain.PaginatedResult{}, fmt.Errorf("scanning row: %w", err)
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return domain.PaginatedResult{}, fmt.Errorf("iterating rows: %w", err)
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM leads;`).Scan(&total); err != nil {
		return domain.PaginatedResult{}, fmt.Errorf("getting total count: %w", err)
	}

	return domain.PaginatedResult{
		Data:       out,
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: int(math.Ceil(float64(total) / float64(pageSize))),
	}, nil
}

func scanLead(scan func(dest ...any) error) (*domain.Lead, error) {
	var l domain.Lead
	if err := scan(
		&l.ID, &l.Name, &l.Email, &l.IPAddress,
		&l.Funnel.ViewedPortal, &l.Funnel.UploadedReport,
		&l.Funnel.CompletedAnalysis, &l.Funnel.RequestedLetters,
		&l.CreatedAt, &l.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &l, nil
}
