package user

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestUser(t *testing.T, accountType AccountType) *User {
	t.Helper()
	u, err := NewUser(CreateParams{
		ID:           "u-1",
		Email:        "Jane.Doe@Example.com",
		FullName:     " Jane Doe ",
		PasswordHash: "hash",
		AccountType:  accountType,
		CreatedAt:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	return u
}

func TestNewUserDefaultsToRenter(t *testing.T) {
	u := newTestUser(t, "")
	assert.Equal(t, AccountRenter, u.AccountType)
	assert.Equal(t, "Jane Doe", u.FullName)
	assert.Equal(t, "janedoe@example.com", u.NormalizedEmail)
	assert.True(t, u.IsRenter())
}

func TestNewUserValidation(t *testing.T) {
	_, err := NewUser(CreateParams{ID: "u", Email: "a@b.c", FullName: "x", PasswordHash: "h", AccountType: "admin"})
	assert.ErrorIs(t, err, ErrInvalidAccountType)

	_, err = NewUser(CreateParams{ID: "u", FullName: "x", PasswordHash: "h"})
	assert.ErrorIs(t, err, ErrEmailRequired)

	_, err = NewUser(CreateParams{ID: "u", Email: "a@b.c", PasswordHash: "h"})
	assert.ErrorIs(t, err, ErrNameRequired)

	_, err = NewUser(CreateParams{Email: "a@b.c", FullName: "x", PasswordHash: "h"})
	assert.ErrorIs(t, err, ErrIDRequired)
}

func TestParseAccountTypeLegacySpellings(t *testing.T) {
	cases := map[string]AccountType{
		"Freelancer":     AccountRenter,
		"renter":         AccountRenter,
		"Owner":          AccountOwner,
		"property_owner": AccountOwner,
	}
	for raw, want := range cases {
		got, err := ParseAccountType(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}
}

func TestSwitchAccountTypeRequiresProfile(t *testing.T) {
	u := newTestUser(t, AccountRenter)
	now := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	err := u.SwitchAccountType(AccountOwner, false, now)
	assert.ErrorIs(t, err, ErrProfileRequired)
	assert.Equal(t, AccountRenter, u.AccountType)

	require.NoError(t, u.SwitchAccountType(AccountOwner, true, now))
	assert.Equal(t, AccountOwner, u.AccountType)
	assert.Equal(t, now, u.UpdatedAt)
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "johnsmith@mail.com", NormalizeEmail(" John.Smith@Mail.com"))
	assert.Equal(t, "plain", NormalizeEmail("plain"))
}
