package renewal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"vetcred/internal/platform/postgres"
	"vetcred/pkg/domain"
	"vetcred/pkg/platform/sentinel"
	"vetcred/pkg/platform/tx"
)

// PostgresStore persists renewal requests. The one-pending-per-member rule is
// a partial unique index on (member_id) WHERE status = 'pending', surfaced
// here as sentinel.ErrDuplicateKey.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) conn(ctx context.Context) execer {
	if t, ok := tx.From(ctx); ok {
		return t
	}
	return s.db
}

const requestColumns = `
	id, member_id, city_id, notes, status, decision, processed_by,
	processed_at, created_at
`

func (s *PostgresStore) Create(ctx context.Context, r *Request) error {
	_, err := s.conn(ctx).ExecContext(ctx, `
		INSERT INTO renewal_requests (`+requestColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, uuid.UUID(r.ID), uuid.UUID(r.MemberID), uuid.UUID(r.CityID), r.Notes,
		string(r.Status), r.Decision, r.ProcessedBy, r.ProcessedAt, r.CreatedAt)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrDuplicateKey
		}
		return fmt.Errorf("insert renewal request: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id domain.RenewalRequestID) (*Request, error) {
	row := s.conn(ctx).QueryRowContext(ctx,
		`SELECT `+requestColumns+` FROM renewal_requests WHERE id = $1`, uuid.UUID(id))
	r, err := scanRequest(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find renewal request: %w", err)
	}
	return r, nil
}

// Decide lands the decision only while the stored row is still pending.
func (s *PostgresStore) Decide(ctx context.Context, r *Request) error {
	res, err := s.conn(ctx).ExecContext(ctx, `
		UPDATE renewal_requests
		SET status = $2, decision = $3, processed_by = $4, processed_at = $5
		WHERE id = $1 AND status = $6
	`, uuid.UUID(r.ID), string(r.Status), r.Decision, r.ProcessedBy,
		r.ProcessedAt, string(StatusPending))
	if err != nil {
		return fmt.Errorf("decide renewal request: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("decide renewal request: %w", err)
	}
	if affected == 1 {
		return nil
	}
	var exists bool
	if err := s.conn(ctx).QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM renewal_requests WHERE id = $1)`, uuid.UUID(r.ID)).Scan(&exists); err != nil {
		return fmt.Errorf("decide renewal request: %w", err)
	}
	if !exists {
		return sentinel.ErrNotFound
	}
	return sentinel.ErrConflict
}

func (s *PostgresStore) ListPending(ctx context.Context, scope []domain.CityID) ([]*Request, error) {
	if scope != nil && len(scope) == 0 {
		return []*Request{}, nil
	}

	query := `SELECT ` + requestColumns + ` FROM renewal_requests WHERE status = $1`
	args := []any{string(StatusPending)}
	if scope != nil {
		ids := make([]uuid.UUID, 0, len(scope))
		for _, c := range scope {
			ids = append(ids, uuid.UUID(c))
		}
		args = append(args, pq.Array(ids))
		query += fmt.Sprintf(" AND city_id = ANY($%d)", len(args))
	}
	query += " ORDER BY created_at"

	return s.list(ctx, query, args...)
}

func (s *PostgresStore) ListByMember(ctx context.Context, memberID domain.MemberID) ([]*Request, error) {
	return s.list(ctx,
		`SELECT `+requestColumns+` FROM renewal_requests WHERE member_id = $1 ORDER BY created_at`,
		uuid.UUID(memberID))
}

func (s *PostgresStore) list(ctx context.Context, query string, args ...any) ([]*Request, error) {
	rows, err := s.conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list renewal requests: %w", err)
	}
	defer rows.Close()

	out := make([]*Request, 0)
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan renewal request: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row rowScanner) (*Request, error) {
	var r Request
	var id, memberID, cityID uuid.UUID
	var status string
	err := row.Scan(&id, &memberID, &cityID, &r.Notes, &status, &r.Decision,
		&r.ProcessedBy, &r.ProcessedAt, &r.CreatedAt)
	if err != nil {
		return nil, err
	}
	r.ID = domain.RenewalRequestID(id)
	r.MemberID = domain.MemberID(memberID)
	r.CityID = domain.CityID(cityID)
	r.Status = Status(status)
	return &r, nil
}
