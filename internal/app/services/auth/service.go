package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"deskrent/internal/app/uow"
	domainuser "deskrent/internal/domain/user"
)

var (
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	ErrPasswordTooShort   = errors.New("auth: password must be at least 8 characters")
	ErrTokenRequired      = errors.New("auth: token required")
	ErrInvalidToken       = errors.New("auth: invalid token")
)

type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

// Claims is what a verified token says about its bearer.
type Claims struct {
	UserID      domainuser.ID
	AccountType domainuser.AccountType
	ExpiresAt   time.Time
}

type TokenIssuer interface {
	Issue(user *domainuser.User, now time.Time) (string, error)
	Parse(token string) (Claims, error)
}

type Service struct {
	UoWFactory uow.UoWFactory
	Passwords  PasswordHasher
	Tokens     TokenIssuer
	Logger     *slog.Logger
	Now        func() time.Time
}

type RegisterParams struct {
	Email       string
	FullName    string
	Profession  string
	PhoneNumber string
	Password    string
	AccountType string
}

type LoginParams struct {
	Email    string
	Password string
}

type AuthResult struct {
	User  *domainuser.User
	Token string
}

func (s *Service) Register(ctx context.Context, params RegisterParams) (res *AuthResult, err error) {
	if err := s.ensureDependencies(); err != nil {
		return nil, err
	}
	email := strings.TrimSpace(params.Email)
	if email == "" {
		return nil, domainuser.ErrEmailRequired
	}
	if err := validatePassword(params.Password); err != nil {
		return nil, err
	}
	accountType := domainuser.AccountRenter
	if strings.TrimSpace(params.AccountType) != "" {
		accountType, err = domainuser.ParseAccountType(params.AccountType)
		if err != nil {
			return nil, err
		}
	}

	unit, ctx, finish, err := uow.Begin(ctx, s.UoWFactory, uow.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { err = finish(err) }()

	if _, err := unit.Users().ByEmail(ctx, email); err == nil {
		return nil, domainuser.ErrEmailAlreadyUsed
	} else if !errors.Is(err, domainuser.ErrNotFound) {
		return nil, err
	}

	hash, err := s.Passwords.Hash(params.Password)
	if err != nil {
		return nil, err
	}
	now := s.now()
	user, err := domainuser.NewUser(domainuser.CreateParams{
		ID:           domainuser.ID(uuid.NewString()),
		Email:        email,
		FullName:     params.FullName,
		Profession:   params.Profession,
		PhoneNumber:  params.PhoneNumber,
		PasswordHash: hash,
		AccountType:  accountType,
		CreatedAt:    now,
	})
	if err != nil {
		return nil, err
	}
	if err := unit.Users().Save(ctx, user); err != nil {
		return nil, err
	}
	token, err := s.Tokens.Issue(user, now)
	if err != nil {
		return nil, err
	}
	if s.Logger != nil {
		s.Logger.Info("user registered", "user_id", user.ID, "account_type", user.AccountType)
	}
	return &AuthResult{User: user, Token: token}, nil
}

func (s *Service) Login(ctx context.Context, params LoginParams) (res *AuthResult, err error) {
	if err := s.ensureDependencies(); err != nil {
		return nil, err
	}
	email := strings.TrimSpace(params.Email)
	if email == "" {
		return nil, ErrInvalidCredentials
	}
	unit, ctx, finish, err := uow.Begin(ctx, s.UoWFactory, uow.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, err
	}
	defer func() { err = finish(err) }()

	user, err := unit.Users().ByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domainuser.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := s.Passwords.Compare(user.PasswordHash, params.Password); err != nil {
		return nil, ErrInvalidCredentials
	}
	token, err := s.Tokens.Issue(user, s.now())
	if err != nil {
		return nil, err
	}
	if s.Logger != nil {
		s.Logger.Info("user authenticated", "user_id", user.ID)
	}
	return &AuthResult{User: user, Token: token}, nil
}

// ResolveToken verifies the token and loads the current user. The account type is read from
// storage, not from the token, so a switch takes effect immediately.
func (s *Service) ResolveToken(ctx context.Context, token string) (user *domainuser.User, err error) {
	if err := s.ensureDependencies(); err != nil {
		return nil, err
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrTokenRequired
	}
	claims, err := s.Tokens.Parse(token)
	if err != nil {
		return nil, ErrInvalidToken
	}
	unit, ctx, finish, err := uow.Begin(ctx, s.UoWFactory, uow.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, err
	}
	defer func() { err = finish(err) }()

	user, err = unit.Users().ByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, domainuser.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	return user, nil
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func validatePassword(password string) error {
	if utf8.RuneCountInString(password) < 8 {
		return ErrPasswordTooShort
	}
	return nil
}

func (s *Service) ensureDependencies() error {
	switch {
	case s.UoWFactory == nil:
		return errors.New("auth: unit of work factory required")
	case s.Passwords == nil:
		return errors.New("auth: password hasher required")
	case s.Tokens == nil:
		return errors.New("auth: token issuer required")
	default:
		return nil
	}
}
