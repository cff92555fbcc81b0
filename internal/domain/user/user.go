package user

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	ErrIDRequired          = errors.New("user: id is required")
	ErrEmailRequired       = errors.New("user: email is required")
	ErrPasswordHashMissing = errors.New("user: password hash is required")
	ErrNameRequired        = errors.New("user: full name is required")
	ErrInvalidAccountType  = errors.New("user: invalid account type")
	ErrEmailAlreadyUsed    = errors.New("user: email already used")
	ErrProfileRequired     = errors.New("user: business profile required to switch account type")
	ErrNotFound            = errors.New("user: not found")
)

type ID string

// AccountType is the closed set of roles a user can act under.
type AccountType string

const (
	AccountRenter AccountType = "renter"
	AccountOwner  AccountType = "owner"
)

type User struct {
	ID              ID
	Email           string
	NormalizedEmail string
	FullName        string
	Profession      string
	PhoneNumber     string
	PasswordHash    string
	AccountType     AccountType
	CreatedAt       time.Time
	UpdatedAt       time.Time
	Version         int64
}

type Repository interface {
	ByID(ctx context.Context, id ID) (*User, error)
	// ByEmail matches on NormalizeEmail(email).
	ByEmail(ctx context.Context, email string) (*User, error)
	Save(ctx context.Context, user *User) error
}

type CreateParams struct {
	ID           ID
	Email        string
	FullName     string
	Profession   string
	PhoneNumber  string
	PasswordHash string
	AccountType  AccountType
	CreatedAt    time.Time
}

func NewUser(params CreateParams) (*User, error) {
	id := strings.TrimSpace(string(params.ID))
	if id == "" {
		return nil, ErrIDRequired
	}
	email := strings.TrimSpace(params.Email)
	if email == "" {
		return nil, ErrEmailRequired
	}
	if strings.TrimSpace(params.PasswordHash) == "" {
		return nil, ErrPasswordHashMissing
	}
	name := strings.TrimSpace(params.FullName)
	if name == "" {
		return nil, ErrNameRequired
	}
	accountType := AccountRenter
	if params.AccountType != "" {
		parsed, err := ParseAccountType(string(params.AccountType))
		if err != nil {
			return nil, err
		}
		accountType = parsed
	}

	now := params.CreatedAt
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()

	return &User{
		ID:              ID(id),
		Email:           email,
		NormalizedEmail: NormalizeEmail(email),
		FullName:        name,
		Profession:      strings.TrimSpace(params.Profession),
		PhoneNumber:     strings.TrimSpace(params.PhoneNumber),
		PasswordHash:    params.PasswordHash,
		AccountType:     accountType,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

func (u *User) IsRenter() bool { return u.AccountType == AccountRenter }
func (u *User) IsOwner() bool  { return u.AccountType == AccountOwner }

// SwitchAccountType changes the role a user acts under. Owning a business profile is required.
func (u *User) SwitchAccountType(target AccountType, hasProfile bool, now time.Time) error {
	parsed, err := ParseAccountType(string(target))
	if err != nil {
		return err
	}
	if !hasProfile {
		return ErrProfileRequired
	}
	if u.AccountType == parsed {
		return nil
	}
	u.AccountType = parsed
	u.touch(now)
	return nil
}

// BecomeOwner is used when the user opens a business profile.
func (u *User) BecomeOwner(now time.Time) {
	if u.AccountType == AccountOwner {
		return
	}
	u.AccountType = AccountOwner
	u.touch(now)
}

func (u *User) SetPasswordHash(hash string, now time.Time) error {
	if strings.TrimSpace(hash) == "" {
		return ErrPasswordHashMissing
	}
	u.PasswordHash = hash
	u.touch(now)
	return nil
}

func (u *User) touch(now time.Time) {
	if now.IsZero() {
		now = time.Now()
	}
	u.UpdatedAt = now.UTC()
}

// ParseAccountType maps the spellings seen in stored data onto the closed enum.
func ParseAccountType(raw string) (AccountType, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "renter", "freelancer":
		return AccountRenter, nil
	case "owner", "property_owner":
		return AccountOwner, nil
	default:
		return "", ErrInvalidAccountType
	}
}

// NormalizeEmail lower-cases the address and strips dots from the local part.
func NormalizeEmail(email string) string {
	email = strings.ToLower(strings.TrimSpace(email))
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return email
	}
	local := strings.ReplaceAll(email[:at], ".", "")
	return local + email[at:]
}
