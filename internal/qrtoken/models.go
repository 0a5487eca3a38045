package qrtoken

import (
	"time"

	"github.com/google/uuid"

	"vetcred/pkg/domain"
	dErrors "vetcred/pkg/domain-errors"
)

// Status of a QR code. A code moves generated -> filled exactly once, at the
// moment a credential is bound to it, and never back.
type Status string

const (
	StatusGenerated Status = "generated"
	StatusFilled    Status = "filled"
)

// SystemIssuer marks codes created lazily on first scan rather than through
// an authenticated mint. This models stock printed before being formally
// minted, or third-party stock.
const SystemIssuer = "system"

// Batch is a provenance record for a group of tokens minted together.
type Batch struct {
	ID       domain.BatchID `json:"id"`
	Quantity int            `json:"quantity"`
	IssuedBy string         `json:"issued_by"`
	IssuedAt time.Time      `json:"issued_at"`
}

// Code is one token in the pool. Token ids are UUIDv4: 122 random bits keep
// collision probability negligible at 500-per-batch, unbounded batches.
type Code struct {
	Token     string          `json:"token"`
	BatchID   *domain.BatchID `json:"batch_id,omitempty"`
	Status    Status          `json:"status"`
	Issuer    string          `json:"issuer"`
	CreatedAt time.Time       `json:"created_at"`
	FilledAt  *time.Time      `json:"filled_at,omitempty"`
}

// BatchStats are derived by counting child codes by status. Used+Unused
// always equals the number of child rows; the store computes both in one
// query so concurrent binds can never double count.
type BatchStats struct {
	BatchID domain.BatchID `json:"batch_id"`
	Used    int            `json:"used"`
	Unused  int            `json:"unused"`
}

// NewToken draws a fresh token id.
func NewToken() string {
	return uuid.NewString()
}

// NormalizeToken parses a scanned string and returns the canonical token id.
// uuid.Parse accepts several encodings of the same id (hyphenless, braced,
// urn-prefixed, mixed case); rows are keyed by the canonical form so one
// physical code can never yield two rows, whatever the scanner hands over.
func NormalizeToken(token string) (string, error) {
	parsed, err := uuid.Parse(token)
	if err != nil || parsed == uuid.Nil {
		return "", dErrors.New(dErrors.CodeValidation, "malformed token")
	}
	return parsed.String(), nil
}

// ValidToken reports whether a scanned string is a well-formed token id.
func ValidToken(token string) bool {
	_, err := NormalizeToken(token)
	return err == nil
}
