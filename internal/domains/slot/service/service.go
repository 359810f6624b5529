package service

import (
	"context"
	"fmt"
	"parking/config"
	"parking/infras/otel"
	bookingModel "parking/internal/domains/booking/model"
	bookingRepo "parking/internal/domains/booking/repository"
	lotModel "parking/internal/domains/lot/model"
	lotRepo "parking/internal/domains/lot/repository"
	"parking/internal/domains/slot/model"
	"parking/internal/domains/slot/model/dto"
	"parking/internal/domains/slot/repository"
	"parking/shared"
	"parking/shared/cache"
	"parking/shared/constant"
	gDto "parking/shared/dto"
	"parking/shared/failure"
	gRepo "parking/shared/repository"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
)

type Slot interface {
	List(ctx context.Context, lotID string, req dto.ListSlotsRequest) (dto.GetSlotsResponse, error)
	Upsert(ctx context.Context, lotID, slotID string, req dto.UpsertSlotRequest) (dto.SlotResponse, error)
	SetAvailability(ctx context.Context, lotID, slotID string, isAvailable bool) (dto.SlotResponse, error)
}

type serviceImpl struct {
	repo        repository.Slot
	lotRepo     lotRepo.Lot
	bookingRepo bookingRepo.Booking
	tx          gRepo.Transactor
	cfg         *config.Config
	cache       cache.RedisCache
	otel        otel.Otel
}

func New(
	repo repository.Slot,
	lotRepo lotRepo.Lot,
	bookingRepo bookingRepo.Booking,
	tx gRepo.Transactor,
	cfg *config.Config,
	cache cache.RedisCache,
	otel otel.Otel,
) Slot {
	return &serviceImpl{
		repo:        repo,
		lotRepo:     lotRepo,
		bookingRepo: bookingRepo,
		tx:          tx,
		cfg:         cfg,
		cache:       cache,
		otel:        otel,
	}
}

func (s *serviceImpl) List(ctx context.Context, lotID string, req dto.ListSlotsRequest) (res dto.GetSlotsResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".List")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	filter := req.ToFilter(lotID)
	params := gDto.QueryParams{SortBy: model.TableName + "." + model.FieldID, SortDir: gDto.SortDirAsc}
	cacheKey := shared.BuildCacheKeyWithQuery(constant.CacheGetAllSlot, params, filter)

	err = s.cache.Get(ctx, cacheKey, &res)
	if err == nil {
		log.Info().Str("cacheKey", cacheKey).Msg("cache hit for slots")

		return res, nil
	}

	models, err := s.repo.GetAll(ctx, params, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to get slots")

		return res, fmt.Errorf("failed to get slots: %w", err)
	}

	res.FromModels(models)

	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Save(c, cacheKey, res, s.cfg.Cache.TTL); err != nil {
			log.Error().Err(err).Msg("failed to save slots to cache")
		}
	}()

	return res, nil
}

// Upsert creates an available slot, growing the lot counter, or updates the level of an existing one.
func (s *serviceImpl) Upsert(ctx context.Context, lotID, slotID string, req dto.UpsertSlotRequest) (res dto.SlotResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Upsert")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	user, _ := ctx.Value(constant.ContextKeyUserID).(string)

	var saved model.Slot

	err = s.tx.WithinTransaction(ctx, func(ctx context.Context, sqltx *sqlx.Tx) error {
		current, err := s.repo.GetTx(ctx, sqltx, model.FilterByKey(lotID, slotID), true)
		if err != nil {
			return fmt.Errorf("failed to get slot: %w", err)
		}

		if current.ID != constant.Empty {
			if err := s.repo.UpdateTx(ctx, sqltx, shared.TransformFields(req, user), model.FilterByKey(lotID, slotID)); err != nil {
				return fmt.Errorf("failed to update slot: %w", err)
			}

			saved = current
			saved.Level = req.Level

			return nil
		}

		lot, err := s.lotRepo.GetTx(ctx, sqltx, shared.FilterByID(lotID, lotModel.FieldID, lotModel.TableName), true)
		if err != nil {
			return fmt.Errorf("failed to get lot: %w", err)
		}

		if lot.ID == constant.Empty {
			return failure.NotFound("lot_not_found") // nolint:wrapcheck
		}

		saved = req.ToModel(lotID, slotID, user)

		if err := s.repo.InsertTx(ctx, sqltx, saved); err != nil {
			return fmt.Errorf("failed to insert slot: %w", err)
		}

		return s.lotRepo.AdjustAvailableSlotsTx(ctx, sqltx, lotID, 1) //nolint:wrapcheck
	})
	if err != nil {
		log.Error().Err(err).Str("lotId", lotID).Str("slotId", slotID).Msg("failed to upsert slot")

		return res, fmt.Errorf("failed to upsert slot: %w", err)
	}

	res.FromModel(saved)

	s.invalidate(ctx)

	return res, nil
}

// SetAvailability takes a slot out of service or returns it. Slots held by an active booking
// can only be released through the booking lifecycle.
func (s *serviceImpl) SetAvailability(ctx context.Context, lotID, slotID string, isAvailable bool) (res dto.SlotResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".SetAvailability")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	var saved model.Slot

	err = s.tx.WithinTransaction(ctx, func(ctx context.Context, sqltx *sqlx.Tx) error {
		current, err := s.repo.GetTx(ctx, sqltx, model.FilterByKey(lotID, slotID), true)
		if err != nil {
			return fmt.Errorf("failed to get slot: %w", err)
		}

		if current.ID == constant.Empty {
			return failure.NotFound("slot_not_found") // nolint:wrapcheck
		}

		saved = current

		if current.IsAvailable == isAvailable {
			return nil
		}

		active, err := s.bookingRepo.GetTx(ctx, sqltx, activeBookingFilter(lotID, slotID), false)
		if err != nil {
			return fmt.Errorf("failed to get active booking: %w", err)
		}

		if active.ID != constant.Empty {
			return failure.Conflict("slot_has_active_booking") // nolint:wrapcheck
		}

		if err := s.repo.SetAvailabilityTx(ctx, sqltx, lotID, slotID, isAvailable); err != nil {
			return fmt.Errorf("failed to set slot availability: %w", err)
		}

		delta := -1
		if isAvailable {
			delta = 1
		}

		if err := s.lotRepo.AdjustAvailableSlotsTx(ctx, sqltx, lotID, delta); err != nil {
			return fmt.Errorf("failed to adjust lot counter: %w", err)
		}

		saved.IsAvailable = isAvailable

		return nil
	})
	if err != nil {
		log.Error().Err(err).Str("lotId", lotID).Str("slotId", slotID).Msg("failed to set slot availability")

		return res, fmt.Errorf("failed to set slot availability: %w", err)
	}

	res.FromModel(saved)

	s.invalidate(ctx)

	return res, nil
}

func (s *serviceImpl) invalidate(ctx context.Context) {
	go func() {
		c := context.WithoutCancel(ctx)

		shared.InvalidateCaches(c, s.cache,
			constant.CacheGetAllSlot,
			constant.CacheGetLot,
			constant.CacheAnalyticSummary,
		)
	}()
}

func activeBookingFilter(lotID, slotID string) gDto.FilterGroup {
	return gDto.FilterGroup{
		Operator: gDto.FilterGroupOperatorAnd,
		Filters: []any{
			gDto.Filter{
				Field:    bookingModel.FieldLotID,
				Operator: gDto.FilterOperatorEq,
				Value:    lotID,
				Table:    bookingModel.TableName,
			},
			gDto.Filter{
				Field:    bookingModel.FieldSlotID,
				Operator: gDto.FilterOperatorEq,
				Value:    slotID,
				Table:    bookingModel.TableName,
			},
			gDto.Filter{
				Field:    bookingModel.FieldStatus,
				Operator: gDto.FilterOperatorIn,
				Value:    bookingModel.ActiveStatuses,
				Table:    bookingModel.TableName,
			},
		},
	}
}
