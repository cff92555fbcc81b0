package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"deskrent/internal/app/services/auth"
	domainuser "deskrent/internal/domain/user"
)

var ErrSigningKeyRequired = errors.New("security: jwt signing key is required")

const defaultTokenTTL = 24 * time.Hour

type accessClaims struct {
	UserID      string `json:"uid"`
	AccountType string `json:"account_type"`
	jwt.RegisteredClaims
}

// JWTIssuer signs HS256 access tokens carrying the user id and account type.
type JWTIssuer struct {
	key    []byte
	ttl    time.Duration
	issuer string
	ids    RandomTokenGenerator
	now    func() time.Time
}

func NewJWTIssuer(secret string, ttl time.Duration, issuer string) (*JWTIssuer, error) {
	if secret == "" {
		return nil, ErrSigningKeyRequired
	}
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	return &JWTIssuer{key: []byte(secret), ttl: ttl, issuer: issuer, ids: RandomTokenGenerator{Size: 16}, now: time.Now}, nil
}

func (i *JWTIssuer) Issue(user *domainuser.User, now time.Time) (string, error) {
	if user == nil {
		return "", errors.New("security: user required")
	}
	jti, err := i.ids.NewToken()
	if err != nil {
		return "", err
	}
	claims := accessClaims{
		UserID:      string(user.ID),
		AccountType: string(user.AccountType),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   string(user.ID),
			Issuer:    i.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.key)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (i *JWTIssuer) Parse(token string) (auth.Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.now),
		jwt.WithExpirationRequired(),
	}
	if i.issuer != "" {
		opts = append(opts, jwt.WithIssuer(i.issuer))
	}
	parsed, err := jwt.ParseWithClaims(token, &accessClaims{}, func(*jwt.Token) (any, error) {
		return i.key, nil
	}, opts...)
	if err != nil {
		return auth.Claims{}, err
	}
	claims, ok := parsed.Claims.(*accessClaims)
	if !ok || !parsed.Valid || claims.UserID == "" {
		return auth.Claims{}, auth.ErrInvalidToken
	}
	out := auth.Claims{
		UserID:      domainuser.ID(claims.UserID),
		AccountType: domainuser.AccountType(claims.AccountType),
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}

var _ auth.TokenIssuer = (*JWTIssuer)(nil)
