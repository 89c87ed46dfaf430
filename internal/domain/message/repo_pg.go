package message

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/giantksiclo/new-patient-questionnarire-sub000/internal/platform/db"
)

type messageRepoPG struct{ db db.Querier }

func NewRepoPG(q db.Querier) Repository {
	return &messageRepoPG{db: q}
}

const requestCols = `id, resident_id, consultation_id, kind, prompt, requested_by, created_at`

func scanRequest(row pgx.Row) (*Request, error) {
	var r Request
	err := row.Scan(&r.ID, &r.ResidentID, &r.ConsultationID, &r.Kind, &r.Prompt, &r.RequestedBy, &r.CreatedAt)
	if db.IsNotFound(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (r *messageRepoPG) CreateRequest(ctx context.Context, m *Request) error {
	m.ID = uuid.New()
	err := r.db.QueryRow(ctx, `
		INSERT INTO message_requests (id, resident_id, consultation_id, kind, prompt, requested_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`,
		m.ID, m.ResidentID, m.ConsultationID, m.Kind, m.Prompt, m.RequestedBy,
	).Scan(&m.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert message request: %w", err)
	}
	return nil
}

func (r *messageRepoPG) GetRequest(ctx context.Context, id uuid.UUID) (*Request, error) {
	return scanRequest(r.db.QueryRow(ctx, `SELECT `+requestCols+` FROM message_requests WHERE id = $1`, id))
}

func (r *messageRepoPG) Stored(ctx context.Context, requestIDs []uuid.UUID) ([]*Stored, error) {
	if len(requestIDs) == 0 {
		return nil, nil
	}
	rows, err := r.db.Query(ctx, `
		SELECT DISTINCT ON (request_id) id, request_id, content, created_at
		FROM message_storage
		WHERE request_id = ANY($1)
		ORDER BY request_id, created_at DESC`, requestIDs)
	if err != nil {
		return nil, fmt.Errorf("query message storage: %w", err)
	}
	defer rows.Close()

	var out []*Stored
	for rows.Next() {
		var s Stored
		if err := rows.Scan(&s.ID, &s.RequestID, &s.Content, &s.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &s)
	}
	return out, rows.Err()
}
