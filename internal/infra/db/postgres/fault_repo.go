package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	domain "github.com/disputehq/creditlens/internal/domain/faults"
)

type FaultRepository struct {
	db *sql.DB
}

func NewFaultRepository(db *sql.DB) *FaultRepository { return &FaultRepository{db: db} }

func (r *FaultRepository) Save(ctx context.Context, f *domain.AnalysisFault) error {
	const q = `
INSERT INTO analysis_faults
  (request_id, phase, message, details_json, created_at)
VALUES ($1,$2,$3,$4,$5)
`
	requestID := stringOrDash(f.RequestID)
	phase := stringOrDash(f.Phase)
	msg := f.Message
	if strings.TrimSpace(msg) == "" {
		msg = "-"
	}
	details := f.DetailsJSON
	if strings.TrimSpace(details) == "" {
		details = "{}"
	} else {
		var js any
		if json.Unmarshal([]byte(details), &js) != nil {
			b, _ := json.Marshal(map[string]string{"raw": details})
			details = string(b)
		}
	}
	created := f.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err := r.db.ExecContext(ctx, q, requestID, phase, msg, details, created)
	return err
}

func (r *FaultRepository) Latest(ctx context.Context, limit int) ([]*domain.AnalysisFault, error) {
	if limit <= 0 {
		limit = 20
	}
	const q = `
SELECT id, request_id, phase, message, details_json, created_at
FROM analysis_faults
ORDER BY created_at DESC, id DESC
LIMIT $1;`
	rows, err := r.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.AnalysisFault
	for rows.Next() {
		var f domain.AnalysisFault
		if err := rows.Scan(&f.ID, &f.RequestID, &f.Phase, &f.Message, &f.DetailsJSON, &f.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &f)
	}
	return out, rows.Err()
}
