package profiles

import (
	"context"

	"deskrent/internal/app/dto"
	"deskrent/internal/app/queries"
	"deskrent/internal/app/uow"
	domainprofiles "deskrent/internal/domain/profiles"
	domainuser "deskrent/internal/domain/user"
)

const (
	getProfileKey   = "profiles.get"
	getMyProfileKey = "profiles.mine.get"
)

type GetProfileQuery struct {
	ProfileID string
}

func (q GetProfileQuery) Key() string { return getProfileKey }

type GetProfileHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *GetProfileHandler) Handle(ctx context.Context, q GetProfileQuery) (res dto.BusinessProfile, err error) {
	unit, ctx, finish, err := uow.Begin(ctx, h.UoWFactory, uow.TxOptions{ReadOnly: true})
	if err != nil {
		return dto.BusinessProfile{}, err
	}
	defer func() { err = finish(err) }()

	profile, err := unit.Profiles().ByID(ctx, domainprofiles.ID(q.ProfileID))
	if err != nil {
		return dto.BusinessProfile{}, err
	}
	return dto.MapProfile(profile), nil
}

type GetMyProfileQuery struct {
	UserID string
}

func (q GetMyProfileQuery) Key() string   { return getMyProfileKey }
func (q GetMyProfileQuery) Actor() string { return q.UserID }

type GetMyProfileHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *GetMyProfileHandler) Handle(ctx context.Context, q GetMyProfileQuery) (res dto.BusinessProfile, err error) {
	unit, ctx, finish, err := uow.Begin(ctx, h.UoWFactory, uow.TxOptions{ReadOnly: true})
	if err != nil {
		return dto.BusinessProfile{}, err
	}
	defer func() { err = finish(err) }()

	profile, err := unit.Profiles().ByUser(ctx, domainuser.ID(q.UserID))
	if err != nil {
		return dto.BusinessProfile{}, err
	}
	return dto.MapProfile(profile), nil
}

var _ queries.Handler[GetProfileQuery, dto.BusinessProfile] = (*GetProfileHandler)(nil)
var _ queries.Handler[GetMyProfileQuery, dto.BusinessProfile] = (*GetMyProfileHandler)(nil)
