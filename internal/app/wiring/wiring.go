// Package wiring registers every use case on the command and query buses and wraps them in the
// middleware pipeline. It is shared by the server binary and the HTTP tests.
package wiring

import (
	"log/slog"
	"time"

	"deskrent/internal/app/commands"
	"deskrent/internal/app/dto"
	"deskrent/internal/app/guard"
	listingapp "deskrent/internal/app/handlers/listings"
	profileapp "deskrent/internal/app/handlers/profiles"
	ratingapp "deskrent/internal/app/handlers/ratings"
	rentalapp "deskrent/internal/app/handlers/rentals"
	reviewapp "deskrent/internal/app/handlers/reviews"
	userapp "deskrent/internal/app/handlers/users"
	"deskrent/internal/app/middleware"
	"deskrent/internal/app/outbox"
	"deskrent/internal/app/policies"
	"deskrent/internal/app/queries"
	"deskrent/internal/app/uow"
)

type Dependencies struct {
	UoWFactory  uow.UoWFactory
	Outbox      outbox.Outbox
	Idempotency middleware.IdempotencyStore
	// Storage is optional; image and logo uploads fail with ErrStorageUnavailable without it.
	Storage policies.ObjectStorage
	Logger  *slog.Logger
	Now     func() time.Time
}

type Buses struct {
	Commands commands.Bus
	Queries  queries.Bus
}

func Build(deps Dependencies) Buses {
	if deps.UoWFactory == nil {
		panic("wiring: uow factory required")
	}
	if deps.Outbox == nil {
		panic("wiring: outbox required")
	}
	if deps.Idempotency == nil {
		panic("wiring: idempotency store required")
	}
	encoder := outbox.JSONEventEncoder{}
	factory := deps.UoWFactory
	logger := deps.Logger

	commandBus := commands.NewInMemoryBus()
	commands.RegisterHandler[userapp.SwitchAccountTypeCommand, dto.UserProfile](commandBus, &userapp.SwitchAccountTypeHandler{
		UoWFactory: factory, Logger: logger, Now: deps.Now,
	})
	commands.RegisterHandler[profileapp.CreateProfileCommand, dto.BusinessProfile](commandBus, &profileapp.CreateProfileHandler{
		UoWFactory: factory, Outbox: deps.Outbox, Encoder: encoder, Logger: logger, Now: deps.Now,
	})
	commands.RegisterHandler[profileapp.UpdateProfileCommand, dto.BusinessProfile](commandBus, &profileapp.UpdateProfileHandler{
		UoWFactory: factory, Outbox: deps.Outbox, Encoder: encoder, Logger: logger, Now: deps.Now,
	})
	commands.RegisterHandler[profileapp.UploadProfileLogoCommand, dto.BusinessProfile](commandBus, &profileapp.UploadProfileLogoHandler{
		UoWFactory: factory, Storage: deps.Storage, Logger: logger, Now: deps.Now,
	})
	commands.RegisterHandler[listingapp.CreateListingCommand, dto.Listing](commandBus, &listingapp.CreateListingHandler{
		UoWFactory: factory, Outbox: deps.Outbox, Encoder: encoder, Logger: logger, Now: deps.Now,
	})
	commands.RegisterHandler[listingapp.UpdateListingCommand, dto.Listing](commandBus, &listingapp.UpdateListingHandler{
		UoWFactory: factory, Outbox: deps.Outbox, Encoder: encoder, Logger: logger, Now: deps.Now,
	})
	commands.RegisterHandler[listingapp.DeleteListingCommand, listingapp.DeleteListingResult](commandBus, &listingapp.DeleteListingHandler{
		UoWFactory: factory, Storage: deps.Storage, Outbox: deps.Outbox, Encoder: encoder, Logger: logger, Now: deps.Now,
	})
	commands.RegisterHandler[listingapp.UploadListingImageCommand, dto.Listing](commandBus, &listingapp.UploadListingImageHandler{
		UoWFactory: factory, Storage: deps.Storage, Logger: logger, Now: deps.Now,
	})
	commands.RegisterHandler[listingapp.RemoveListingImageCommand, dto.Listing](commandBus, &listingapp.RemoveListingImageHandler{
		UoWFactory: factory, Storage: deps.Storage, Logger: logger, Now: deps.Now,
	})
	commands.RegisterHandler[rentalapp.CreateRentalRequestCommand, dto.RentalRequest](commandBus, &rentalapp.CreateRentalRequestHandler{
		UoWFactory: factory, Outbox: deps.Outbox, Encoder: encoder, Logger: logger, Now: deps.Now,
	})
	commands.RegisterHandler[rentalapp.UpdateRentalRequestStatusCommand, dto.RentalRequest](commandBus, &rentalapp.UpdateRentalRequestStatusHandler{
		UoWFactory: factory, Outbox: deps.Outbox, Encoder: encoder, Logger: logger, Now: deps.Now,
	})
	commands.RegisterHandler[reviewapp.CreateReviewCommand, dto.Review](commandBus, &reviewapp.CreateReviewHandler{
		UoWFactory: factory, Outbox: deps.Outbox, Encoder: encoder, Logger: logger, Now: deps.Now,
	})

	queryBus := queries.NewInMemoryBus()
	queries.RegisterHandler[profileapp.GetProfileQuery, dto.BusinessProfile](queryBus, &profileapp.GetProfileHandler{UoWFactory: factory})
	queries.RegisterHandler[profileapp.GetMyProfileQuery, dto.BusinessProfile](queryBus, &profileapp.GetMyProfileHandler{UoWFactory: factory})
	queries.RegisterHandler[listingapp.GetListingQuery, dto.ListingDetail](queryBus, &listingapp.GetListingHandler{UoWFactory: factory})
	queries.RegisterHandler[listingapp.SearchListingsQuery, dto.ListingCollection](queryBus, &listingapp.SearchListingsHandler{
		UoWFactory: factory, Logger: logger,
	})
	queries.RegisterHandler[ratingapp.GetListingRatingQuery, dto.Rating](queryBus, &ratingapp.GetListingRatingHandler{UoWFactory: factory})
	queries.RegisterHandler[ratingapp.GetProfileRatingQuery, dto.Rating](queryBus, &ratingapp.GetProfileRatingHandler{UoWFactory: factory})
	queries.RegisterHandler[rentalapp.ListMyRentalRequestsQuery, dto.RentalRequestCollection](queryBus, &rentalapp.ListMyRentalRequestsHandler{
		UoWFactory: factory, Logger: logger,
	})
	queries.RegisterHandler[rentalapp.ListListingRentalRequestsQuery, dto.RentalRequestCollection](queryBus, &rentalapp.ListListingRentalRequestsHandler{
		UoWFactory: factory, Logger: logger,
	})
	queries.RegisterHandler[reviewapp.ListListingReviewsQuery, dto.ReviewCollection](queryBus, &reviewapp.ListListingReviewsHandler{
		UoWFactory: factory, Logger: logger,
	})
	queries.RegisterHandler[reviewapp.ListProfileReviewsQuery, dto.ReviewCollection](queryBus, &reviewapp.ListProfileReviewsHandler{
		UoWFactory: factory, Logger: logger,
	})

	return Buses{
		Commands: middleware.ChainCommands(
			commandBus,
			middleware.Logging(logger),
			middleware.Authorization(guard.ActorAuthorizer{}),
			middleware.Validation(middleware.SelfValidator{}),
			middleware.OutboxFlush(deps.Outbox),
			middleware.Idempotency(deps.Idempotency, nil),
			middleware.Transaction(factory, nil),
		),
		Queries: middleware.ChainQueries(
			queryBus,
			middleware.QueryAuthorization(guard.ActorAuthorizer{}),
			middleware.QueryValidation(middleware.SelfValidator{}),
		),
	}
}
