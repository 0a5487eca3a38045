package auth

import (
	"net/mail"
	"strings"
	"time"

	"vetcred/pkg/domain"
	dErrors "vetcred/pkg/domain-errors"
)

// Account is a staff login. Clinics get accounts too; their role simply
// grants no administrative scope.
type Account struct {
	ID           domain.AccountID `json:"id"`
	Email        string           `json:"email"`
	PasswordHash string           `json:"-"`
	Role         domain.Role      `json:"role"`
	Cities       []domain.CityID  `json:"cities,omitempty"`
	Active       bool             `json:"active"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

func NewAccount(id domain.AccountID, email string, hash string, role domain.Role, cities []domain.CityID, now time.Time) (*Account, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, dErrors.New(dErrors.CodeValidation, "a valid email address is required")
	}
	if role == domain.RoleTopAdmin && len(cities) > 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "the top admin role has no city assignments")
	}
	return &Account{
		ID:           id,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		Cities:       cities,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// Principal projects the account into the authorization model.
func (a *Account) Principal() domain.Principal {
	return domain.Principal{ID: a.ID, Role: a.Role, Cities: a.Cities}
}
