package qrtoken

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"vetcred/internal/platform/postgres"
	"vetcred/pkg/domain"
	"vetcred/pkg/platform/sentinel"
	"vetcred/pkg/platform/tx"
)

// PostgresStore persists the token pool in PostgreSQL. Participates in an
// enclosing transaction when one rides in on the context.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// execer is satisfied by both *sql.DB and *sql.Tx.
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

func (s *PostgresStore) CreateBatch(ctx context.Context, batch *Batch, codes []*Code) error {
	run := func(ctx context.Context) error {
		conn := s.conn(ctx)
		_, err := conn.ExecContext(ctx, `
			INSERT INTO qr_batches (id, quantity, issued_by, issued_at)
			VALUES ($1, $2, $3, $4)
		`, uuid.UUID(batch.ID), batch.Quantity, batch.IssuedBy, batch.IssuedAt)
		if err != nil {
			return fmt.Errorf("insert batch: %w", err)
		}
		for _, code := range codes {
			if err := insertCode(ctx, conn, code); err != nil {
				return err
			}
		}
		return nil
	}

	// Already inside a caller's transaction: just run.
	if _, ok := tx.From(ctx); ok {
		return run(ctx)
	}

	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin mint batch: %w", err)
	}
	if err := run(tx.WithTx(ctx, dbTx)); err != nil {
		_ = dbTx.Rollback()
		return err
	}
	return dbTx.Commit()
}

func (s *PostgresStore) CreateCode(ctx context.Context, code *Code) error {
	return insertCode(ctx, s.conn(ctx), code)
}

func insertCode(ctx context.Context, conn execer, code *Code) error {
	var batchID any
	if code.BatchID != nil {
		batchID = uuid.UUID(*code.BatchID)
	}
	_, err := conn.ExecContext(ctx, `
		INSERT INTO qr_codes (token, batch_id, status, issuer, created_at, filled_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, code.Token, batchID, string(code.Status), code.Issuer, code.CreatedAt, code.FilledAt)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrDuplicateKey
		}
		return fmt.Errorf("insert code: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindCode(ctx context.Context, token string) (*Code, error) {
	row := s.conn(ctx).QueryRowContext(ctx, `
		SELECT token, batch_id, status, issuer, created_at, filled_at
		FROM qr_codes
		WHERE token = $1
	`, token)
	code, err := scanCode(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find code: %w", err)
	}
	return code, nil
}

// FillCode is a single compare-and-set UPDATE so the generated -> filled
// transition is serialized by row-level atomicity, never read-modify-write.
func (s *PostgresStore) FillCode(ctx context.Context, token string, filledAt time.Time) error {
	res, err := s.conn(ctx).ExecContext(ctx, `
		UPDATE qr_codes
		SET status = $3, filled_at = $2
		WHERE token = $1 AND status = $4
	`, token, filledAt, string(StatusFilled), string(StatusGenerated))
	if err != nil {
		return fmt.Errorf("fill code: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("fill code: %w", err)
	}
	if affected == 1 {
		return nil
	}
	// Zero rows: either the token is unknown or it was already filled.
	if _, err := s.FindCode(ctx, token); err != nil {
		return err
	}
	return sentinel.ErrConflict
}

func (s *PostgresStore) FindBatch(ctx context.Context, id domain.BatchID) (*Batch, error) {
	row := s.conn(ctx).QueryRowContext(ctx, `
		SELECT id, quantity, issued_by, issued_at
		FROM qr_batches
		WHERE id = $1
	`, uuid.UUID(id))
	batch, err := scanBatch(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find batch: %w", err)
	}
	return batch, nil
}

func (s *PostgresStore) ListBatches(ctx context.Context) ([]*Batch, error) {
	rows, err := s.conn(ctx).QueryContext(ctx, `
		SELECT id, quantity, issued_by, issued_at
		FROM qr_batches
		ORDER BY issued_at
	`)
	if err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}
	defer rows.Close()

	var out []*Batch
	for rows.Next() {
		batch, err := scanBatch(rows)
		if err != nil {
			return nil, fmt.Errorf("scan batch: %w", err)
		}
		out = append(out, batch)
	}
	return out, rows.Err()
}

// Stats counts used and unused in one statement; both counts come from the
// same snapshot so they can never disagree with each other.
func (s *PostgresStore) Stats(ctx context.Context, id domain.BatchID) (*BatchStats, error) {
	if _, err := s.FindBatch(ctx, id); err != nil {
		return nil, err
	}
	row := s.conn(ctx).QueryRowContext(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE status = $2),
			COUNT(*) FILTER (WHERE status <> $2)
		FROM qr_codes
		WHERE batch_id = $1
	`, uuid.UUID(id), string(StatusFilled))
	stats := &BatchStats{BatchID: id}
	if err := row.Scan(&stats.Used, &stats.Unused); err != nil {
		return nil, fmt.Errorf("batch stats: %w", err)
	}
	return stats, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCode(row rowScanner) (*Code, error) {
	var code Code
	var batchID uuid.NullUUID
	var status string
	err := row.Scan(&code.Token, &batchID, &status, &code.Issuer, &code.CreatedAt, &code.FilledAt)
	if err != nil {
		return nil, err
	}
	code.Status = Status(status)
	if batchID.Valid {
		b := domain.BatchID(batchID.UUID)
		code.BatchID = &b
	}
	return &code, nil
}

func scanBatch(row rowScanner) (*Batch, error) {
	var batch Batch
	var id uuid.UUID
	if err := row.Scan(&id, &batch.Quantity, &batch.IssuedBy, &batch.IssuedAt); err != nil {
		return nil, err
	}
	batch.ID = domain.BatchID(id)
	return &batch, nil
}
