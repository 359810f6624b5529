package service

import (
	"context"
	"fmt"
	"parking/config"
	"parking/infras/otel"
	"parking/internal/domains/analytics/model/dto"
	bookingModel "parking/internal/domains/booking/model"
	bookingRepo "parking/internal/domains/booking/repository"
	lotModel "parking/internal/domains/lot/model"
	lotRepo "parking/internal/domains/lot/repository"
	slotModel "parking/internal/domains/slot/model"
	slotRepo "parking/internal/domains/slot/repository"
	"parking/shared/cache"
	"parking/shared/constant"
	gDto "parking/shared/dto"
	"parking/shared/timezone"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

type Analytics interface {
	Summary(ctx context.Context) (dto.SummaryResponse, error)
}

type serviceImpl struct {
	lotRepo     lotRepo.Lot
	slotRepo    slotRepo.Slot
	bookingRepo bookingRepo.Booking
	cfg         *config.Config
	cache       cache.RedisCache
	otel        otel.Otel
}

func New(lotRepo lotRepo.Lot, slotRepo slotRepo.Slot, bookingRepo bookingRepo.Booking, cfg *config.Config, cache cache.RedisCache, otel otel.Otel) Analytics {
	return &serviceImpl{
		lotRepo:     lotRepo,
		slotRepo:    slotRepo,
		bookingRepo: bookingRepo,
		cfg:         cfg,
		cache:       cache,
		otel:        otel,
	}
}

// Summary is read-only and may lag concurrent transitions by one cache TTL.
func (s *serviceImpl) Summary(ctx context.Context) (res dto.SummaryResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Summary")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	err = s.cache.Get(ctx, constant.CacheAnalyticSummary, &res)
	if err == nil {
		log.Info().Msg("cache hit for analytics summary")

		return res, nil
	}

	res.Bookings = make(map[string]int, len(bookingModel.Statuses))

	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		res.Lots, err = s.lotRepo.Count(gctx, equals(lotModel.TableName, lotModel.FieldIsActive, true))

		return err //nolint:wrapcheck
	})

	g.Go(func() (err error) {
		res.SlotsTotal, err = s.slotRepo.Count(gctx, gDto.FilterGroup{})

		return err //nolint:wrapcheck
	})

	g.Go(func() (err error) {
		res.SlotsAvailable, err = s.slotRepo.Count(gctx, equals(slotModel.TableName, slotModel.FieldIsAvailable, true))

		return err //nolint:wrapcheck
	})

	for _, status := range bookingModel.Statuses {
		g.Go(func() error {
			count, err := s.bookingRepo.Count(gctx, equals(bookingModel.TableName, bookingModel.FieldStatus, status))
			if err != nil {
				return err //nolint:wrapcheck
			}

			mu.Lock()
			res.Bookings[status] = count
			mu.Unlock()

			return nil
		})
	}

	if err = g.Wait(); err != nil {
		log.Error().Err(err).Msg("failed to build analytics summary")

		return dto.SummaryResponse{}, fmt.Errorf("failed to build analytics summary: %w", err)
	}

	res.Timestamp = timezone.Format(timezone.Now(), constant.DateFormat)

	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Save(c, constant.CacheAnalyticSummary, res, s.cfg.Cache.TTL); err != nil {
			log.Error().Err(err).Msg("failed to save analytics summary to cache")
		}
	}()

	return res, nil
}

func equals(table, field string, value any) gDto.FilterGroup {
	return gDto.FilterGroup{
		Operator: gDto.FilterGroupOperatorAnd,
		Filters: []any{
			gDto.Filter{
				Field:    field,
				Operator: gDto.FilterOperatorEq,
				Value:    value,
				Table:    table,
			},
		},
	}
}
