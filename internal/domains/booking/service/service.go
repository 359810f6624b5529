package service

//go:generate go run go.uber.org/mock/mockgen -source=./service.go -destination=../mocks/service_mock.go -package=mocks -mock_names=Booking=MockBookingService

import (
	"context"
	"fmt"
	"parking/config"
	"parking/infras/otel"
	"parking/infras/qrtoken"
	"parking/internal/domains/booking/event"
	"parking/internal/domains/booking/model"
	"parking/internal/domains/booking/model/dto"
	"parking/internal/domains/booking/repository"
	lotRepo "parking/internal/domains/lot/repository"
	slotModel "parking/internal/domains/slot/model"
	slotRepo "parking/internal/domains/slot/repository"
	"parking/shared"
	"parking/shared/cache"
	"parking/shared/constant"
	"parking/shared/failure"
	gRepo "parking/shared/repository"
	"parking/shared/timezone"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
)

const (
	errSlotNotFound     = "slot_not_found"
	errSlotNotAvailable = "slot_not_available"
	errBookingNotFound  = "booking_not_found"
	errForbidden        = "forbidden"
	errCannotCancel     = "cannot_cancel"
	errCannotCheckIn    = "cannot_checkin"
	errCannotComplete   = "cannot_complete"
	errInvalidQRPrefix  = "invalid_qr:"
)

// Booking is the reservation engine. Every transition runs in one serializable transaction
// covering the booking, its slot and the lot counter.
type Booking interface {
	Reserve(ctx context.Context, userID string, req dto.ReserveRequest) (dto.BookingResponse, error)
	Cancel(ctx context.Context, userID, id string) (dto.BookingResponse, error)
	CheckIn(ctx context.Context, req dto.CheckInRequest) (dto.BookingResponse, error)
	Complete(ctx context.Context, id string) (dto.BookingResponse, error)
	ListUserBookings(ctx context.Context, userID string, req dto.ListBookingsRequest) (dto.GetBookingsResponse, error)
	Get(ctx context.Context, userID string, isAdmin bool, id string) (dto.BookingResponse, error)
}

type serviceImpl struct {
	repo      repository.Booking
	slotRepo  slotRepo.Slot
	lotRepo   lotRepo.Lot
	tx        gRepo.Transactor
	codec     qrtoken.Codec
	publisher event.Publisher
	cfg       *config.Config
	cache     cache.RedisCache
	otel      otel.Otel
}

func New(
	repo repository.Booking,
	slotRepo slotRepo.Slot,
	lotRepo lotRepo.Lot,
	tx gRepo.Transactor,
	codec qrtoken.Codec,
	publisher event.Publisher,
	cfg *config.Config,
	cache cache.RedisCache,
	otel otel.Otel,
) Booking {
	return &serviceImpl{
		repo:      repo,
		slotRepo:  slotRepo,
		lotRepo:   lotRepo,
		tx:        tx,
		codec:     codec,
		publisher: publisher,
		cfg:       cfg,
		cache:     cache,
		otel:      otel,
	}
}

func (s *serviceImpl) Reserve(ctx context.Context, userID string, req dto.ReserveRequest) (res dto.BookingResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Reserve")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	booking := req.ToModel(userID)

	booking.QRCode, err = s.codec.Issue(qrtoken.Claims{
		BookingID: booking.ID,
		UserID:    booking.UserID,
		LotID:     booking.LotID,
		SlotID:    booking.SlotID,
		Intent:    qrtoken.IntentCheckIn,
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to issue check-in token")

		return res, fmt.Errorf("failed to issue check-in token: %w", err)
	}

	err = s.tx.WithinTransaction(ctx, func(ctx context.Context, sqltx *sqlx.Tx) error {
		slot, err := s.slotRepo.GetTx(ctx, sqltx, slotModel.FilterByKey(req.LotID, req.SlotID), true)
		if err != nil {
			return fmt.Errorf("failed to get slot: %w", err)
		}

		if slot.ID == constant.Empty {
			return failure.NotFound(errSlotNotFound) // nolint:wrapcheck
		}

		if !slot.IsAvailable {
			return failure.Conflict(errSlotNotAvailable) // nolint:wrapcheck
		}

		if err := s.slotRepo.SetAvailabilityTx(ctx, sqltx, req.LotID, req.SlotID, false); err != nil {
			return fmt.Errorf("failed to hold slot: %w", err)
		}

		if err := s.repo.InsertTx(ctx, sqltx, booking); err != nil {
			// A concurrent reservation for the slot committed first.
			if gRepo.IsUniqueViolation(err) {
				return failure.Conflict(errSlotNotAvailable) // nolint:wrapcheck
			}

			return fmt.Errorf("failed to insert booking: %w", err)
		}

		return s.lotRepo.AdjustAvailableSlotsTx(ctx, sqltx, req.LotID, -1) //nolint:wrapcheck
	})
	if err != nil {
		log.Error().Err(err).Str("lotId", req.LotID).Str("slotId", req.SlotID).Msg("failed to reserve slot")

		return res, fmt.Errorf("failed to reserve slot: %w", err)
	}

	s.afterTransition(ctx, event.TypeReserved, booking)

	res.FromModel(booking)

	return res, nil
}

func (s *serviceImpl) Cancel(ctx context.Context, userID, id string) (res dto.BookingResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Cancel")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	booking, err := s.transition(ctx, id, model.StatusCancelled, func(current model.Booking) error {
		if current.UserID != userID {
			return failure.Forbidden(errForbidden) // nolint:wrapcheck
		}

		if !current.CanTransitionTo(model.StatusCancelled) {
			return failure.Conflict(errCannotCancel) // nolint:wrapcheck
		}

		return nil
	})
	if err != nil {
		log.Error().Err(err).Str("bookingId", id).Msg("failed to cancel booking")

		return res, fmt.Errorf("failed to cancel booking: %w", err)
	}

	s.afterTransition(ctx, event.TypeCancelled, booking)

	res.FromModel(booking)

	return res, nil
}

// CheckIn trusts the token alone: whoever presents a valid token may start the booking.
func (s *serviceImpl) CheckIn(ctx context.Context, req dto.CheckInRequest) (res dto.BookingResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".CheckIn")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	claims, err := s.codec.Verify(req.QRToken)
	if err != nil {
		return res, failure.BadRequestFromString(errInvalidQRPrefix + err.Error()) // nolint:wrapcheck
	}

	if claims.Intent != qrtoken.IntentCheckIn {
		return res, failure.BadRequestFromString(errInvalidQRPrefix + "wrong_intent") // nolint:wrapcheck
	}

	booking, err := s.transition(ctx, claims.BookingID, model.StatusInProgress, func(current model.Booking) error {
		if !current.CanTransitionTo(model.StatusInProgress) {
			return failure.Conflict(errCannotCheckIn) // nolint:wrapcheck
		}

		return nil
	})
	if err != nil {
		log.Error().Err(err).Str("bookingId", claims.BookingID).Msg("failed to check in booking")

		return res, fmt.Errorf("failed to check in booking: %w", err)
	}

	s.afterTransition(ctx, event.TypeCheckedIn, booking)

	res.FromModel(booking)

	return res, nil
}

func (s *serviceImpl) Complete(ctx context.Context, id string) (res dto.BookingResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Complete")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	booking, err := s.transition(ctx, id, model.StatusCompleted, func(current model.Booking) error {
		if !current.CanTransitionTo(model.StatusCompleted) {
			return failure.Conflict(errCannotComplete) // nolint:wrapcheck
		}

		return nil
	})
	if err != nil {
		log.Error().Err(err).Str("bookingId", id).Msg("failed to complete booking")

		return res, fmt.Errorf("failed to complete booking: %w", err)
	}

	s.afterTransition(ctx, event.TypeCompleted, booking)

	res.FromModel(booking)

	return res, nil
}

func (s *serviceImpl) ListUserBookings(ctx context.Context, userID string, req dto.ListBookingsRequest) (res dto.GetBookingsResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".ListUserBookings")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	filter := req.ToFilter(userID)
	params := req.ToQueryParams()
	cacheKey := shared.BuildCacheKeyWithQuery(constant.CacheGetAllBooking, params, filter)

	err = s.cache.Get(ctx, cacheKey, &res)
	if err == nil {
		log.Info().Str("cacheKey", cacheKey).Msg("cache hit for bookings")

		return res, nil
	}

	models, err := s.repo.GetAll(ctx, params, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to get bookings")

		return res, fmt.Errorf("failed to get bookings: %w", err)
	}

	res.FromModels(models)

	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Save(c, cacheKey, res, s.cfg.Cache.TTL); err != nil {
			log.Error().Err(err).Msg("failed to save bookings to cache")
		}
	}()

	return res, nil
}

// Get returns a booking to its owner or to an admin.
func (s *serviceImpl) Get(ctx context.Context, userID string, isAdmin bool, id string) (res dto.BookingResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Get")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	cacheKey := shared.BuildCacheKey(constant.CacheGetBooking, id)

	err = s.cache.Get(ctx, cacheKey, &res)
	if err != nil {
		booking, err := s.repo.Get(ctx, shared.FilterByID(id, model.FieldID, model.TableName))
		if err != nil {
			log.Error().Err(err).Str("bookingId", id).Msg("failed to get booking")

			return res, fmt.Errorf("failed to get booking: %w", err)
		}

		if booking.ID == constant.Empty {
			return res, failure.NotFound(errBookingNotFound) // nolint:wrapcheck
		}

		res.FromModel(booking)

		go func() {
			c := context.WithoutCancel(ctx)

			if err := s.cache.Save(c, cacheKey, res, s.cfg.Cache.TTL); err != nil {
				log.Error().Err(err).Msg("failed to save booking to cache")
			}
		}()
	}

	if !isAdmin && res.UserID != userID {
		return dto.BookingResponse{}, failure.Forbidden(errForbidden) // nolint:wrapcheck
	}

	return res, nil
}

// transition locks the booking, lets guard reject the move, then writes the new status. Moving
// out of an active status into a terminal one frees the slot and returns it to the lot counter.
func (s *serviceImpl) transition(ctx context.Context, id, next string, guard func(current model.Booking) error) (model.Booking, error) {
	var booking model.Booking

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context, sqltx *sqlx.Tx) error {
		current, err := s.repo.GetTx(ctx, sqltx, shared.FilterByID(id, model.FieldID, model.TableName), true)
		if err != nil {
			return fmt.Errorf("failed to get booking: %w", err)
		}

		if current.ID == constant.Empty {
			return failure.NotFound(errBookingNotFound) // nolint:wrapcheck
		}

		if err := guard(current); err != nil {
			return err
		}

		now := timezone.Now()

		updates := map[string]any{
			model.FieldStatus:        next,
			constant.FieldModifiedAt: now,
		}

		if err := s.repo.UpdateTx(ctx, sqltx, updates, shared.FilterByID(id, model.FieldID, model.TableName)); err != nil {
			return fmt.Errorf("failed to update booking: %w", err)
		}

		if next == model.StatusCancelled || next == model.StatusCompleted {
			if err := s.slotRepo.SetAvailabilityTx(ctx, sqltx, current.LotID, current.SlotID, true); err != nil {
				return fmt.Errorf("failed to release slot: %w", err)
			}

			if err := s.lotRepo.AdjustAvailableSlotsTx(ctx, sqltx, current.LotID, 1); err != nil {
				return fmt.Errorf("failed to adjust lot counter: %w", err)
			}
		}

		booking = current
		booking.Status = next
		booking.ModifiedAt = now

		return nil
	})
	if err != nil {
		return booking, err //nolint:wrapcheck
	}

	return booking, nil
}

// afterTransition runs only once the transaction has committed.
func (s *serviceImpl) afterTransition(ctx context.Context, eventType string, booking model.Booking) {
	go func() {
		c := context.WithoutCancel(ctx)

		shared.InvalidateCaches(c, s.cache,
			constant.CacheGetAllBooking,
			shared.BuildCacheKey(constant.CacheGetBooking, booking.ID),
			constant.CacheGetAllSlot,
			constant.CacheGetLot,
			constant.CacheAnalyticSummary,
		)
	}()

	s.publisher.Publish(ctx, eventType, booking)
}
