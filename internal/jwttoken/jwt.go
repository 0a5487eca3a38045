package jwttoken

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"vetcred/pkg/domain"
	dErrors "vetcred/pkg/domain-errors"
)

// Claims carries the principal's identity and scope. City scope rides in the
// token so requests never re-query assignments on the hot path; scope changes
// take effect at next login.
type Claims struct {
	AccountID string   `json:"account_id"`
	Role      string   `json:"role"`
	CityIDs   []string `json:"city_ids,omitempty"`
	jwt.RegisteredClaims
}

// Service handles JWT creation and validation for admin sessions.
type Service struct {
	signingKey []byte
	issuer     string
}

func NewService(signingKey, issuer string) *Service {
	return &Service{signingKey: []byte(signingKey), issuer: issuer}
}

// GenerateAccessToken mints a signed token for the given principal.
func (s *Service) GenerateAccessToken(p domain.Principal, expiresIn time.Duration) (string, error) {
	cities := make([]string, 0, len(p.Cities))
	for _, c := range p.Cities {
		cities = append(cities, c.String())
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		AccountID: p.ID.String(),
		Role:      p.Role.String(),
		CityIDs:   cities,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    s.issuer,
			ID:        uuid.NewString(),
		},
	})
	return token.SignedString(s.signingKey)
}

// ValidatePrincipal parses and validates a token, reconstructing the
// Principal that was authenticated at login.
func (s *Service) ValidatePrincipal(tokenString string) (domain.Principal, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return domain.Principal{}, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return domain.Principal{}, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return domain.Principal{}, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}

	accountID, err := domain.ParseAccountID(claims.AccountID)
	if err != nil {
		return domain.Principal{}, dErrors.New(dErrors.CodeUnauthorized, "invalid account id claim")
	}
	role, err := domain.ParseRole(claims.Role)
	if err != nil {
		return domain.Principal{}, dErrors.New(dErrors.CodeUnauthorized, "invalid role claim")
	}
	cities := make([]domain.CityID, 0, len(claims.CityIDs))
	for _, raw := range claims.CityIDs {
		cityID, err := domain.ParseCityID(raw)
		if err != nil {
			return domain.Principal{}, dErrors.New(dErrors.CodeUnauthorized, "invalid city scope claim")
		}
		cities = append(cities, cityID)
	}
	return domain.Principal{ID: accountID, Role: role, Cities: cities}, nil
}
