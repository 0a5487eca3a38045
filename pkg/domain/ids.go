package domain

import (
	"github.com/google/uuid"

	dErrors "vetcred/pkg/domain-errors"
)

// Typed IDs prevent cross-entity assignment at compile time. A CityID can
// never be passed where a MemberID is expected, which matters in a codebase
// where most operations take two or three IDs side by side.
type (
	AccountID        uuid.UUID
	CityID           uuid.UUID
	ApplicationID    uuid.UUID
	MemberID         uuid.UUID
	RenewalRequestID uuid.UUID
	BatchID          uuid.UUID
)

func (id AccountID) String() string        { return uuid.UUID(id).String() }
func (id CityID) String() string           { return uuid.UUID(id).String() }
func (id ApplicationID) String() string    { return uuid.UUID(id).String() }
func (id MemberID) String() string         { return uuid.UUID(id).String() }
func (id RenewalRequestID) String() string { return uuid.UUID(id).String() }
func (id BatchID) String() string          { return uuid.UUID(id).String() }

// MarshalText/UnmarshalText make the typed IDs read and write as canonical
// UUID strings in JSON.
func (id AccountID) MarshalText() ([]byte, error)        { return []byte(id.String()), nil }
func (id CityID) MarshalText() ([]byte, error)           { return []byte(id.String()), nil }
func (id ApplicationID) MarshalText() ([]byte, error)    { return []byte(id.String()), nil }
func (id MemberID) MarshalText() ([]byte, error)         { return []byte(id.String()), nil }
func (id RenewalRequestID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }
func (id BatchID) MarshalText() ([]byte, error)          { return []byte(id.String()), nil }

func (id *AccountID) UnmarshalText(b []byte) error {
	parsed, err := ParseAccountID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *CityID) UnmarshalText(b []byte) error {
	parsed, err := ParseCityID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *ApplicationID) UnmarshalText(b []byte) error {
	parsed, err := ParseApplicationID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *MemberID) UnmarshalText(b []byte) error {
	parsed, err := ParseMemberID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *RenewalRequestID) UnmarshalText(b []byte) error {
	parsed, err := ParseRenewalRequestID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *BatchID) UnmarshalText(b []byte) error {
	parsed, err := ParseBatchID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id AccountID) IsNil() bool        { return uuid.UUID(id) == uuid.Nil }
func (id CityID) IsNil() bool           { return uuid.UUID(id) == uuid.Nil }
func (id ApplicationID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id MemberID) IsNil() bool         { return uuid.UUID(id) == uuid.Nil }
func (id RenewalRequestID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id BatchID) IsNil() bool          { return uuid.UUID(id) == uuid.Nil }

// parseUUID enforces the shared invariant: IDs must be valid, non-nil UUIDs.
// All the typed parse functions funnel through here so trust-boundary
// validation stays in one place.
func parseUUID(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeValidation, "id must not be empty")
	}
	parsed, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeValidation, "id is not a valid UUID")
	}
	if parsed == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeValidation, "id must not be the nil UUID")
	}
	return parsed, nil
}

func ParseAccountID(s string) (AccountID, error) {
	u, err := parseUUID(s)
	return AccountID(u), err
}

func ParseCityID(s string) (CityID, error) {
	u, err := parseUUID(s)
	return CityID(u), err
}

func ParseApplicationID(s string) (ApplicationID, error) {
	u, err := parseUUID(s)
	return ApplicationID(u), err
}

func ParseMemberID(s string) (MemberID, error) {
	u, err := parseUUID(s)
	return MemberID(u), err
}

func ParseRenewalRequestID(s string) (RenewalRequestID, error) {
	u, err := parseUUID(s)
	return RenewalRequestID(u), err
}

func ParseBatchID(s string) (BatchID, error) {
	u, err := parseUUID(s)
	return BatchID(u), err
}

func NewAccountID() AccountID               { return AccountID(uuid.New()) }
func NewCityID() CityID                     { return CityID(uuid.New()) }
func NewApplicationID() ApplicationID       { return ApplicationID(uuid.New()) }
func NewMemberID() MemberID                 { return MemberID(uuid.New()) }
func NewRenewalRequestID() RenewalRequestID { return RenewalRequestID(uuid.New()) }
func NewBatchID() BatchID                   { return BatchID(uuid.New()) }
