package service

import (
	"context"
	"fmt"
	"parking/config"
	"parking/infras/otel"
	"parking/internal/domains/lot/model"
	"parking/internal/domains/lot/model/dto"
	"parking/internal/domains/lot/repository"
	"parking/shared"
	"parking/shared/cache"
	"parking/shared/constant"
	gDto "parking/shared/dto"
	"parking/shared/failure"
	gRepo "parking/shared/repository"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
)

type Lot interface {
	ListActive(ctx context.Context) (dto.GetLotsResponse, error)
	Get(ctx context.Context, id string) (dto.LotResponse, error)
	Upsert(ctx context.Context, id string, req dto.UpsertLotRequest) (dto.LotResponse, error)
}

type serviceImpl struct {
	repo  repository.Lot
	tx    gRepo.Transactor
	cfg   *config.Config
	cache cache.RedisCache
	otel  otel.Otel
}

func New(repo repository.Lot, tx gRepo.Transactor, cfg *config.Config, cache cache.RedisCache, otel otel.Otel) Lot {
	return &serviceImpl{
		repo:  repo,
		tx:    tx,
		cfg:   cfg,
		cache: cache,
		otel:  otel,
	}
}

func (s *serviceImpl) ListActive(ctx context.Context) (res dto.GetLotsResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".ListActive")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	filter := gDto.FilterGroup{
		Operator: gDto.FilterGroupOperatorAnd,
		Filters: []any{
			gDto.Filter{
				Field:    model.FieldIsActive,
				Operator: gDto.FilterOperatorEq,
				Value:    true,
				Table:    model.TableName,
			},
		},
	}
	params := gDto.QueryParams{SortBy: model.TableName + "." + model.FieldName, SortDir: gDto.SortDirAsc}

	cacheKey := shared.BuildCacheKeyWithQuery(constant.CacheGetAllLot, params, filter)

	err = s.cache.Get(ctx, cacheKey, &res)
	if err == nil {
		log.Info().Str("cacheKey", cacheKey).Msg("cache hit for lots")

		return res, nil
	}

	models, err := s.repo.GetAll(ctx, params, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to get lots")

		return res, fmt.Errorf("failed to get lots: %w", err)
	}

	res.FromModels(models)

	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Save(c, cacheKey, res, s.cfg.Cache.TTL); err != nil {
			log.Error().Err(err).Msg("failed to save lots to cache")
		}
	}()

	return res, nil
}

func (s *serviceImpl) Get(ctx context.Context, id string) (res dto.LotResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Get")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	cacheKey := shared.BuildCacheKey(constant.CacheGetLot, id)

	err = s.cache.Get(ctx, cacheKey, &res)
	if err == nil {
		log.Info().Str("cacheKey", cacheKey).Msg("cache hit for lot")

		return res, nil
	}

	lot, err := s.repo.Get(ctx, shared.FilterByID(id, model.FieldID, model.TableName))
	if err != nil {
		log.Error().Err(err).Msg("failed to get lot")

		return res, fmt.Errorf("failed to get lot: %w", err)
	}

	if lot.ID == constant.Empty {
		return res, failure.NotFound("lot_not_found") // nolint:wrapcheck
	}

	res.FromModel(lot)

	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Save(c, cacheKey, res, s.cfg.Cache.TTL); err != nil {
			log.Error().Err(err).Msg("failed to save lot to cache")
		}
	}()

	return res, nil
}

// Upsert creates the lot or updates its descriptive fields. The slot counter is never
// written here; it only moves with slot transitions.
func (s *serviceImpl) Upsert(ctx context.Context, id string, req dto.UpsertLotRequest) (res dto.LotResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Upsert")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	user, _ := ctx.Value(constant.ContextKeyUserID).(string)
	filter := shared.FilterByID(id, model.FieldID, model.TableName)

	var saved model.Lot

	err = s.tx.WithinTransaction(ctx, func(ctx context.Context, sqltx *sqlx.Tx) error {
		current, err := s.repo.GetTx(ctx, sqltx, filter, true)
		if err != nil {
			return fmt.Errorf("failed to get lot: %w", err)
		}

		if current.ID == constant.Empty {
			saved = req.ToModel(id, user)

			return s.repo.InsertTx(ctx, sqltx, saved) //nolint:wrapcheck
		}

		if err := s.repo.UpdateTx(ctx, sqltx, shared.TransformFields(req, user), filter); err != nil {
			return fmt.Errorf("failed to update lot: %w", err)
		}

		saved = current
		saved.Name = req.Name

		if req.Address != constant.Empty {
			saved.Address = req.Address
		}

		if req.IsActive != nil {
			saved.IsActive = *req.IsActive
		}

		return nil
	})
	if err != nil {
		log.Error().Err(err).Str("lotId", id).Msg("failed to upsert lot")

		return res, fmt.Errorf("failed to upsert lot: %w", err)
	}

	res.FromModel(saved)

	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Delete(c, shared.BuildCacheKey(constant.CacheGetLot, id)); err != nil {
			log.Error().Err(err).Msg("failed to delete lot from cache")
		}

		shared.InvalidateCaches(c, s.cache, constant.CacheGetAllLot)
	}()

	return res, nil
}
