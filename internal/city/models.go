package city

import (
	"regexp"
	"strings"
	"time"

	"vetcred/pkg/domain"
	dErrors "vetcred/pkg/domain-errors"
)

// codePattern: short uppercase code printed on cards and used in exports.
var codePattern = regexp.MustCompile(`^[A-Z]{2,5}$`)

// City is a long-lived configuration entity owned by the top admin. Branch
// admin scope and every application/member reference point at one of these.
type City struct {
	ID        domain.CityID `json:"id"`
	NameEn    string        `json:"name_en"`
	NameAr    string        `json:"name_ar"`
	Code      string        `json:"code"`
	Active    bool          `json:"active"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// New validates and constructs a City.
func New(id domain.CityID, nameEn, nameAr, code string, now time.Time) (*City, error) {
	nameEn = strings.TrimSpace(nameEn)
	nameAr = strings.TrimSpace(nameAr)
	code = strings.ToUpper(strings.TrimSpace(code))
	if nameEn == "" || nameAr == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "both city names are required")
	}
	if !codePattern.MatchString(code) {
		return nil, dErrors.New(dErrors.CodeValidation, "city code must be 2-5 uppercase letters")
	}
	return &City{
		ID:        id,
		NameEn:    nameEn,
		NameAr:    nameAr,
		Code:      code,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}
