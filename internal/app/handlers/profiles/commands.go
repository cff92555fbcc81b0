package profiles

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"deskrent/internal/app/commands"
	"deskrent/internal/app/dto"
	"deskrent/internal/app/handlers/support"
	"deskrent/internal/app/outbox"
	"deskrent/internal/app/policies"
	"deskrent/internal/app/uow"
	domainprofiles "deskrent/internal/domain/profiles"
	domainuser "deskrent/internal/domain/user"
)

const (
	createProfileKey     = "profiles.create"
	updateProfileKey     = "profiles.update"
	uploadProfileLogoKey = "profiles.logo.upload"
)

var (
	ErrStorageUnavailable = errors.New("profiles: logo storage unavailable")
	ErrLogoRequired       = errors.New("profiles: logo content is required")
)

type CreateProfileCommand struct {
	ActorID string
	Details domainprofiles.Details
}

func (c CreateProfileCommand) Key() string   { return createProfileKey }
func (c CreateProfileCommand) Actor() string { return c.ActorID }

// CreateProfileHandler opens the one business profile a user may own and turns the user into an owner.
type CreateProfileHandler struct {
	UoWFactory uow.UoWFactory
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Logger     *slog.Logger
	Now        func() time.Time
}

func (h *CreateProfileHandler) Handle(ctx context.Context, cmd CreateProfileCommand) (res dto.BusinessProfile, err error) {
	unit, ctx, finish, err := uow.Begin(ctx, h.UoWFactory, uow.TxOptions{})
	if err != nil {
		return dto.BusinessProfile{}, err
	}
	defer func() { err = finish(err) }()

	user, err := unit.Users().ByID(ctx, domainuser.ID(cmd.ActorID))
	if err != nil {
		return dto.BusinessProfile{}, err
	}
	if _, err := unit.Profiles().ByUser(ctx, user.ID); err == nil {
		return dto.BusinessProfile{}, domainprofiles.ErrAlreadyExists
	} else if !errors.Is(err, domainprofiles.ErrNotFound) {
		return dto.BusinessProfile{}, err
	}

	now := support.Clock(h.Now)
	profile, err := domainprofiles.NewProfile(domainprofiles.CreateParams{
		ID:      domainprofiles.ID(uuid.NewString()),
		UserID:  user.ID,
		Details: cmd.Details,
		Now:     now,
	})
	if err != nil {
		return dto.BusinessProfile{}, err
	}
	if err := unit.Profiles().Save(ctx, profile); err != nil {
		return dto.BusinessProfile{}, err
	}
	user.BecomeOwner(now)
	if err := unit.Users().Save(ctx, user); err != nil {
		return dto.BusinessProfile{}, err
	}
	if err := outbox.RecordAggregates(ctx, h.Outbox, h.Encoder, profile); err != nil {
		return dto.BusinessProfile{}, err
	}
	if h.Logger != nil {
		h.Logger.Info("business profile created", "profile_id", profile.ID, "user_id", user.ID)
	}
	return dto.MapProfile(profile), nil
}

type UpdateProfileCommand struct {
	ActorID string
	Changes domainprofiles.UpdateParams
}

func (c UpdateProfileCommand) Key() string   { return updateProfileKey }
func (c UpdateProfileCommand) Actor() string { return c.ActorID }

type UpdateProfileHandler struct {
	UoWFactory uow.UoWFactory
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Logger     *slog.Logger
	Now        func() time.Time
}

func (h *UpdateProfileHandler) Handle(ctx context.Context, cmd UpdateProfileCommand) (res dto.BusinessProfile, err error) {
	unit, ctx, finish, err := uow.Begin(ctx, h.UoWFactory, uow.TxOptions{})
	if err != nil {
		return dto.BusinessProfile{}, err
	}
	defer func() { err = finish(err) }()

	profile, err := lockOwnProfile(ctx, unit, domainuser.ID(cmd.ActorID))
	if err != nil {
		return dto.BusinessProfile{}, err
	}
	if err := profile.Update(cmd.Changes, support.Clock(h.Now)); err != nil {
		return dto.BusinessProfile{}, err
	}
	if err := unit.Profiles().Save(ctx, profile); err != nil {
		return dto.BusinessProfile{}, err
	}
	if err := outbox.RecordAggregates(ctx, h.Outbox, h.Encoder, profile); err != nil {
		return dto.BusinessProfile{}, err
	}
	return dto.MapProfile(profile), nil
}

type UploadProfileLogoCommand struct {
	ActorID     string
	FileName    string
	ContentType string
	Reader      io.Reader
}

func (c UploadProfileLogoCommand) Key() string   { return uploadProfileLogoKey }
func (c UploadProfileLogoCommand) Actor() string { return c.ActorID }

type UploadProfileLogoHandler struct {
	UoWFactory uow.UoWFactory
	Storage    policies.ObjectStorage
	Logger     *slog.Logger
	Now        func() time.Time
}

func (h *UploadProfileLogoHandler) Handle(ctx context.Context, cmd UploadProfileLogoCommand) (res dto.BusinessProfile, err error) {
	if h.Storage == nil {
		return dto.BusinessProfile{}, ErrStorageUnavailable
	}
	if cmd.Reader == nil {
		return dto.BusinessProfile{}, ErrLogoRequired
	}
	unit, ctx, finish, err := uow.Begin(ctx, h.UoWFactory, uow.TxOptions{})
	if err != nil {
		return dto.BusinessProfile{}, err
	}
	defer func() { err = finish(err) }()

	profile, err := lockOwnProfile(ctx, unit, domainuser.ID(cmd.ActorID))
	if err != nil {
		return dto.BusinessProfile{}, err
	}
	key := support.ObjectKey("profiles/"+string(profile.ID), cmd.FileName)
	url, err := h.Storage.Upload(ctx, key, cmd.Reader, cmd.ContentType)
	if err != nil {
		return dto.BusinessProfile{}, fmt.Errorf("upload logo: %w", err)
	}
	previous := profile.ReplaceLogo(url, key, support.Clock(h.Now))
	if err := unit.Profiles().Save(ctx, profile); err != nil {
		_ = h.Storage.Delete(ctx, key)
		return dto.BusinessProfile{}, err
	}
	if previous != "" {
		uow.AfterCommit(ctx, func(ctx context.Context) {
			if err := h.Storage.Delete(ctx, previous); err != nil && h.Logger != nil {
				h.Logger.Warn("previous logo not removed", "key", previous, "error", err)
			}
		})
	}
	return dto.MapProfile(profile), nil
}

func lockOwnProfile(ctx context.Context, unit uow.UnitOfWork, userID domainuser.ID) (*domainprofiles.Profile, error) {
	profile, err := unit.Profiles().ByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return unit.Profiles().ByIDForUpdate(ctx, profile.ID)
}

var _ commands.Handler[CreateProfileCommand, dto.BusinessProfile] = (*CreateProfileHandler)(nil)
var _ commands.Handler[UpdateProfileCommand, dto.BusinessProfile] = (*UpdateProfileHandler)(nil)
var _ commands.Handler[UploadProfileLogoCommand, dto.BusinessProfile] = (*UploadProfileLogoHandler)(nil)
