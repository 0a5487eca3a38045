package city

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"vetcred/internal/platform/postgres"
	"vetcred/pkg/domain"
	"vetcred/pkg/platform/sentinel"
)

// PostgresStore persists cities in PostgreSQL. Pure I/O; validation belongs
// in the model and service.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, c *City) error {
	query := `
		INSERT INTO cities (id, name_en, name_ar, code, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(c.ID), c.NameEn, c.NameAr, c.Code, c.Active, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrDuplicateKey
		}
		return fmt.Errorf("insert city: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id domain.CityID) (*City, error) {
	query := `
		SELECT id, name_en, name_ar, code, active, created_at, updated_at
		FROM cities
		WHERE id = $1
	`
	c, err := scanCity(s.db.QueryRowContext(ctx, query, uuid.UUID(id)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find city: %w", err)
	}
	return c, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]*City, error) {
	query := `
		SELECT id, name_en, name_ar, code, active, created_at, updated_at
		FROM cities
		ORDER BY code
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list cities: %w", err)
	}
	defer rows.Close()

	var out []*City
	for rows.Next() {
		c, err := scanCity(rows)
		if err != nil {
			return nil, fmt.Errorf("scan city: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Update(ctx context.Context, c *City) error {
	query := `
		UPDATE cities
		SET name_en = $2, name_ar = $3, code = $4, active = $5, updated_at = $6
		WHERE id = $1
	`
	res, err := s.db.ExecContext(ctx, query,
		uuid.UUID(c.ID), c.NameEn, c.NameAr, c.Code, c.Active, c.UpdatedAt)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrDuplicateKey
		}
		return fmt.Errorf("update city: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update city: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// Delete removes a city. Foreign keys on applications and members RESTRICT
// deletion while referenced; that surfaces here as a generic error, which the
// service pre-empts with its own reference check.
func (s *PostgresStore) Delete(ctx context.Context, id domain.CityID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM cities WHERE id = $1`, uuid.UUID(id))
	if err != nil {
		return fmt.Errorf("delete city: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete city: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCity(row rowScanner) (*City, error) {
	var c City
	var id uuid.UUID
	err := row.Scan(&id, &c.NameEn, &c.NameAr, &c.Code, &c.Active, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	c.ID = domain.CityID(id)
	return &c, nil
}
