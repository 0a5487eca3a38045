package application

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

// PostgresStore persists applications in PostgreSQL. Participates in an
// enclosing transaction when one rides in on the context.
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

const applicationColumns = `
	id, name_en, name_ar, email, phone, city_id, tracking_token, status,
	rejection_reason, reviewed_by, reviewed_at, created_at
`

func (s *PostgresStore) Create(ctx context.Context, a *Application) error {
	_, err := s.conn(ctx).ExecContext(ctx, `
		INSERT INTO applications (`+applicationColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, uuid.UUID(a.ID), a.NameEn, a.NameAr, a.Email, a.Phone, uuid.UUID(a.CityID),
		a.TrackingToken, string(a.Status), a.RejectionReason, a.ReviewedBy,
		a.ReviewedAt, a.CreatedAt)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrDuplicateKey
		}
		return fmt.Errorf("insert application: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id domain.ApplicationID) (*Application, error) {
	row := s.conn(ctx).QueryRowContext(ctx,
		`SELECT `+applicationColumns+` FROM applications WHERE id = $1`, uuid.UUID(id))
	return s.scanOne(row)
}

func (s *PostgresStore) FindByTrackingToken(ctx context.Context, token string) (*Application, error) {
	row := s.conn(ctx).QueryRowContext(ctx,
		`SELECT `+applicationColumns+` FROM applications WHERE tracking_token = $1`, token)
	return s.scanOne(row)
}

func (s *PostgresStore) scanOne(row *sql.Row) (*Application, error) {
	a, err := scanApplication(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find application: %w", err)
	}
	return a, nil
}

// Decide lands the reviewer decision only if the row is still pending; the
// WHERE clause serializes concurrent reviewers at the row level.
func (s *PostgresStore) Decide(ctx context.Context, a *Application) error {
	res, err := s.conn(ctx).ExecContext(ctx, `
		UPDATE applications
		SET status = $2, rejection_reason = $3, reviewed_by = $4, reviewed_at = $5
		WHERE id = $1 AND status = $6
	`, uuid.UUID(a.ID), string(a.Status), a.RejectionReason, a.ReviewedBy,
		a.ReviewedAt, string(StatusPending))
	if err != nil {
		return fmt.Errorf("decide application: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("decide application: %w", err)
	}
	if affected == 1 {
		return nil
	}
	var exists bool
	if err := s.conn(ctx).QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM applications WHERE id = $1)`, uuid.UUID(a.ID)).Scan(&exists); err != nil {
		return fmt.Errorf("decide application: %w", err)
	}
	if !exists {
		return sentinel.ErrNotFound
	}
	return sentinel.ErrConflict
}

func (s *PostgresStore) List(ctx context.Context, scope []domain.CityID, status Status) ([]*Application, error) {
	if scope != nil && len(scope) == 0 {
		return []*Application{}, nil
	}

	query := `SELECT ` + applicationColumns + ` FROM applications`
	var conds []string
	var args []any
	if scope != nil {
		ids := make([]uuid.UUID, 0, len(scope))
		for _, c := range scope {
			ids = append(ids, uuid.UUID(c))
		}
		args = append(args, pq.Array(ids))
		conds = append(conds, fmt.Sprintf("city_id = ANY($%d)", len(args)))
	}
	if status != "" {
		args = append(args, string(status))
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	for i, cond := range conds {
		if i == 0 {
			query += " WHERE " + cond
		} else {
			query += " AND " + cond
		}
	}
	query += " ORDER BY created_at"

	rows, err := s.conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}
	defer rows.Close()

	out := make([]*Application, 0)
	for rows.Next() {
		a, err := scanApplication(rows)
		if err != nil {
			return nil, fmt.Errorf("scan application: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *PostgresStore) CountByCity(ctx context.Context, cityID domain.CityID) (int, error) {
	var n int
	err := s.conn(ctx).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM applications WHERE city_id = $1`, uuid.UUID(cityID)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count applications: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanApplication(row rowScanner) (*Application, error) {
	var a Application
	var id, cityID uuid.UUID
	var status string
	err := row.Scan(&id, &a.NameEn, &a.NameAr, &a.Email, &a.Phone, &cityID,
		&a.TrackingToken, &status, &a.RejectionReason, &a.ReviewedBy,
		&a.ReviewedAt, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	a.ID = domain.ApplicationID(id)
	a.CityID = domain.CityID(cityID)
	a.Status = Status(status)
	return &a, nil
}
