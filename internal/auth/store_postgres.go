package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"vetcred/internal/platform/postgres"
	"vetcred/pkg/domain"
	"vetcred/pkg/platform/sentinel"
	"vetcred/pkg/platform/tx"
)

// PostgresStore persists accounts with city assignments in a join table.
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

func (s *PostgresStore) Create(ctx context.Context, a *Account) error {
	conn := s.conn(ctx)
	_, err := conn.ExecContext(ctx, `
		INSERT INTO accounts (id, email, password_hash, role, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, uuid.UUID(a.ID), a.Email, a.PasswordHash, a.Role.String(), a.Active,
		a.CreatedAt, a.UpdatedAt)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrDuplicateKey
		}
		return fmt.Errorf("insert account: %w", err)
	}
	return s.replaceCities(ctx, conn, a)
}

func (s *PostgresStore) Update(ctx context.Context, a *Account) error {
	conn := s.conn(ctx)
	res, err := conn.ExecContext(ctx, `
		UPDATE accounts
		SET email = $2, password_hash = $3, role = $4, active = $5, updated_at = $6
		WHERE id = $1
	`, uuid.UUID(a.ID), a.Email, a.PasswordHash, a.Role.String(), a.Active, a.UpdatedAt)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrDuplicateKey
		}
		return fmt.Errorf("update account: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return s.replaceCities(ctx, conn, a)
}

func (s *PostgresStore) replaceCities(ctx context.Context, conn execer, a *Account) error {
	if _, err := conn.ExecContext(ctx,
		`DELETE FROM account_cities WHERE account_id = $1`, uuid.UUID(a.ID)); err != nil {
		return fmt.Errorf("clear account cities: %w", err)
	}
	for _, c := range a.Cities {
		if _, err := conn.ExecContext(ctx, `
			INSERT INTO account_cities (account_id, city_id) VALUES ($1, $2)
		`, uuid.UUID(a.ID), uuid.UUID(c)); err != nil {
			return fmt.Errorf("insert account city: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id domain.AccountID) (*Account, error) {
	return s.findOne(ctx, `WHERE id = $1`, uuid.UUID(id))
}

func (s *PostgresStore) FindByEmail(ctx context.Context, email string) (*Account, error) {
	return s.findOne(ctx, `WHERE lower(email) = lower($1)`, email)
}

func (s *PostgresStore) findOne(ctx context.Context, where string, arg any) (*Account, error) {
	row := s.conn(ctx).QueryRowContext(ctx, `
		SELECT id, email, password_hash, role, active, created_at, updated_at
		FROM accounts `+where, arg)
	a, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find account: %w", err)
	}
	if err := s.loadCities(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *PostgresStore) loadCities(ctx context.Context, a *Account) error {
	rows, err := s.conn(ctx).QueryContext(ctx,
		`SELECT city_id FROM account_cities WHERE account_id = $1`, uuid.UUID(a.ID))
	if err != nil {
		return fmt.Errorf("load account cities: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var c uuid.UUID
		if err := rows.Scan(&c); err != nil {
			return fmt.Errorf("scan account city: %w", err)
		}
		a.Cities = append(a.Cities, domain.CityID(c))
	}
	return rows.Err()
}

func (s *PostgresStore) List(ctx context.Context) ([]*Account, error) {
	rows, err := s.conn(ctx).QueryContext(ctx, `
		SELECT id, email, password_hash, role, active, created_at, updated_at
		FROM accounts ORDER BY email
	`)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	out := make([]*Account, 0)
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, a := range out {
		if err := s.loadCities(ctx, a); err != nil {
			return nil, err
		}
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*Account, error) {
	var a Account
	var id uuid.UUID
	var role string
	err := row.Scan(&id, &a.Email, &a.PasswordHash, &role, &a.Active,
		&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	a.ID = domain.AccountID(id)
	a.Role = domain.Role(role)
	return &a, nil
}
