package users

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"deskrent/internal/app/commands"
	"deskrent/internal/app/dto"
	"deskrent/internal/app/handlers/support"
	"deskrent/internal/app/uow"
	domainprofiles "deskrent/internal/domain/profiles"
	domainuser "deskrent/internal/domain/user"
)

const switchAccountTypeKey = "users.account_type.switch"

type SwitchAccountTypeCommand struct {
	ActorID     string
	AccountType string
}

func (c SwitchAccountTypeCommand) Key() string   { return switchAccountTypeKey }
func (c SwitchAccountTypeCommand) Actor() string { return c.ActorID }

func (c SwitchAccountTypeCommand) Validate() error {
	_, err := domainuser.ParseAccountType(c.AccountType)
	return err
}

// SwitchAccountTypeHandler moves a user between renter and owner. Only profile holders may switch.
type SwitchAccountTypeHandler struct {
	UoWFactory uow.UoWFactory
	Logger     *slog.Logger
	Now        func() time.Time
}

func (h *SwitchAccountTypeHandler) Handle(ctx context.Context, cmd SwitchAccountTypeCommand) (res dto.UserProfile, err error) {
	target, err := domainuser.ParseAccountType(cmd.AccountType)
	if err != nil {
		return dto.UserProfile{}, err
	}
	unit, ctx, finish, err := uow.Begin(ctx, h.UoWFactory, uow.TxOptions{})
	if err != nil {
		return dto.UserProfile{}, err
	}
	defer func() { err = finish(err) }()

	user, err := unit.Users().ByID(ctx, domainuser.ID(cmd.ActorID))
	if err != nil {
		return dto.UserProfile{}, err
	}
	hasProfile := true
	if _, err := unit.Profiles().ByUser(ctx, user.ID); err != nil {
		if !errors.Is(err, domainprofiles.ErrNotFound) {
			return dto.UserProfile{}, err
		}
		hasProfile = false
	}
	if err := user.SwitchAccountType(target, hasProfile, support.Clock(h.Now)); err != nil {
		return dto.UserProfile{}, err
	}
	if err := unit.Users().Save(ctx, user); err != nil {
		return dto.UserProfile{}, err
	}
	if h.Logger != nil {
		h.Logger.Info("account type switched", "user_id", user.ID, "account_type", user.AccountType)
	}
	return dto.MapUserProfile(user), nil
}

var _ commands.Handler[SwitchAccountTypeCommand, dto.UserProfile] = (*SwitchAccountTypeHandler)(nil)
