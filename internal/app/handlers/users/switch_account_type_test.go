package users

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deskrent/internal/app/handlers/handlertest"
	domainuser "deskrent/internal/domain/user"
)

func TestSwitchAccountType(t *testing.T) {
	fx := handlertest.New()
	fx.Owner(t, "owner")
	fx.Renter(t, "renter")
	h := &SwitchAccountTypeHandler{UoWFactory: fx.Store, Now: fx.Clock}
	ctx := context.Background()

	res, err := h.Handle(ctx, SwitchAccountTypeCommand{ActorID: "owner", AccountType: "freelancer"})
	require.NoError(t, err)
	assert.Equal(t, string(domainuser.AccountRenter), res.AccountType)

	res, err = h.Handle(ctx, SwitchAccountTypeCommand{ActorID: "owner", AccountType: "property_owner"})
	require.NoError(t, err)
	assert.Equal(t, string(domainuser.AccountOwner), res.AccountType)

	_, err = h.Handle(ctx, SwitchAccountTypeCommand{ActorID: "renter", AccountType: "owner"})
	assert.ErrorIs(t, err, domainuser.ErrProfileRequired)

	_, err = h.Handle(ctx, SwitchAccountTypeCommand{ActorID: "renter", AccountType: "admin"})
	assert.ErrorIs(t, err, domainuser.ErrInvalidAccountType)
}
