package member

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

// PostgresStore persists members in PostgreSQL. Participates in an enclosing
// transaction when one rides in on the context.
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

const memberColumns = `
	id, member_no, qr_token, application_id, name_en, name_ar, title_en, title_ar,
	photo_url, date_of_birth, city_id, issue_date, expiry_date, status,
	suspension_reason, updated_at, updated_by
`

func (s *PostgresStore) Create(ctx context.Context, m *Member) error {
	_, err := s.conn(ctx).ExecContext(ctx, `
		INSERT INTO members (`+memberColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`, uuid.UUID(m.ID), m.MemberNo, m.QRToken, uuid.UUID(m.ApplicationID),
		m.NameEn, m.NameAr, m.TitleEn, m.TitleAr, m.PhotoURL, m.DateOfBirth,
		uuid.UUID(m.CityID), m.IssueDate, m.ExpiryDate, string(m.Status),
		m.SuspensionReason, m.UpdatedAt, m.UpdatedBy)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrDuplicateKey
		}
		return fmt.Errorf("insert member: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id domain.MemberID) (*Member, error) {
	row := s.conn(ctx).QueryRowContext(ctx,
		`SELECT `+memberColumns+` FROM members WHERE id = $1`, uuid.UUID(id))
	return s.scanOne(row)
}

func (s *PostgresStore) FindByToken(ctx context.Context, qrToken string) (*Member, error) {
	row := s.conn(ctx).QueryRowContext(ctx,
		`SELECT `+memberColumns+` FROM members WHERE qr_token = $1`, qrToken)
	return s.scanOne(row)
}

func (s *PostgresStore) FindByApplication(ctx context.Context, appID domain.ApplicationID) (*Member, error) {
	row := s.conn(ctx).QueryRowContext(ctx,
		`SELECT `+memberColumns+` FROM members WHERE application_id = $1`, uuid.UUID(appID))
	return s.scanOne(row)
}

func (s *PostgresStore) scanOne(row *sql.Row) (*Member, error) {
	m, err := scanMember(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find member: %w", err)
	}
	return m, nil
}

func (s *PostgresStore) Update(ctx context.Context, m *Member) error {
	res, err := s.conn(ctx).ExecContext(ctx, `
		UPDATE members
		SET name_en = $2, name_ar = $3, title_en = $4, title_ar = $5, photo_url = $6,
			date_of_birth = $7, issue_date = $8, expiry_date = $9, status = $10,
			suspension_reason = $11, updated_at = $12, updated_by = $13
		WHERE id = $1
	`, uuid.UUID(m.ID), m.NameEn, m.NameAr, m.TitleEn, m.TitleAr, m.PhotoURL,
		m.DateOfBirth, m.IssueDate, m.ExpiryDate, string(m.Status),
		m.SuspensionReason, m.UpdatedAt, m.UpdatedBy)
	if err != nil {
		return fmt.Errorf("update member: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update member: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context, scope []domain.CityID) ([]*Member, error) {
	// Empty non-nil scope means no visibility; skip the round trip.
	if scope != nil && len(scope) == 0 {
		return []*Member{}, nil
	}

	query := `SELECT ` + memberColumns + ` FROM members`
	var args []any
	if scope != nil {
		ids := make([]uuid.UUID, 0, len(scope))
		for _, c := range scope {
			ids = append(ids, uuid.UUID(c))
		}
		query += ` WHERE city_id = ANY($1)`
		args = append(args, pq.Array(ids))
	}
	query += ` ORDER BY member_no`

	rows, err := s.conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	out := make([]*Member, 0)
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *PostgresStore) CountByCity(ctx context.Context, cityID domain.CityID) (int, error) {
	var n int
	err := s.conn(ctx).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM members WHERE city_id = $1`, uuid.UUID(cityID)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count members: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) NextMemberNo(ctx context.Context) (int64, error) {
	var seq int64
	err := s.conn(ctx).QueryRowContext(ctx, `SELECT nextval('member_no_seq')`).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("next member number: %w", err)
	}
	return seq, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMember(row rowScanner) (*Member, error) {
	var m Member
	var id, applicationID, cityID uuid.UUID
	var status string
	err := row.Scan(&id, &m.MemberNo, &m.QRToken, &applicationID,
		&m.NameEn, &m.NameAr, &m.TitleEn, &m.TitleAr, &m.PhotoURL, &m.DateOfBirth,
		&cityID, &m.IssueDate, &m.ExpiryDate, &status,
		&m.SuspensionReason, &m.UpdatedAt, &m.UpdatedBy)
	if err != nil {
		return nil, err
	}
	m.ID = domain.MemberID(id)
	m.ApplicationID = domain.ApplicationID(applicationID)
	m.CityID = domain.CityID(cityID)
	m.Status = StoredStatus(status)
	return &m, nil
}
