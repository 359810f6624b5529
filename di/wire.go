//go:build wireinject
// +build wireinject

package di

import (
	"parking/config"
	"parking/infras/jwt"
	"parking/infras/kafka"
	"parking/infras/otel"
	"parking/infras/postgres"
	"parking/infras/qrtoken"
	"parking/infras/redis"
	"parking/infras/s3"
	"parking/infras/stripe"
	"parking/permissions"
	"parking/shared/cache"
	gRepo "parking/shared/repository"
	"parking/transport/http"
	"parking/transport/http/middleware"
	"parking/transport/http/router"

	"github.com/google/wire"

	analyticsService "parking/internal/domains/analytics/service"
	bookingEvent "parking/internal/domains/booking/event"
	bookingRepository "parking/internal/domains/booking/repository"
	bookingService "parking/internal/domains/booking/service"
	lotRepository "parking/internal/domains/lot/repository"
	lotService "parking/internal/domains/lot/service"
	paymentConsumer "parking/internal/domains/payment/consumer"
	paymentService "parking/internal/domains/payment/service"
	slotRepository "parking/internal/domains/slot/repository"
	slotService "parking/internal/domains/slot/service"
	userRepository "parking/internal/domains/user/repository"
	userService "parking/internal/domains/user/service"

	analyticsHandler "parking/internal/handlers/analytics"
	authHandler "parking/internal/handlers/auth"
	bookingHandler "parking/internal/handlers/booking"
	lotHandler "parking/internal/handlers/lot"
	paymentHandler "parking/internal/handlers/payment"
	slotHandler "parking/internal/handlers/slot"
)

var configurations = wire.NewSet(
	config.Get,
	permissions.Get,
)

var infrastructures = wire.NewSet(
	postgres.New,
	wire.Bind(new(http.Pinger), new(*postgres.Connection)),
	otel.New,
	redis.New,
	jwt.New,
	kafka.New,
	s3.New,
	stripe.New,
	qrtoken.New,
)

var middlewares = wire.NewSet(
	middleware.NewAppMiddleware,
	middleware.NewAuthRoleMiddleware,
)

var sharedHelpers = wire.NewSet(
	cache.NewRedisCache,
	gRepo.NewTransactor,
)

var inventoryDomain = wire.NewSet(
	lotRepository.New,
	lotService.New,
	slotRepository.New,
	slotService.New,
)

var bookingDomain = wire.NewSet(
	bookingRepository.New,
	bookingEvent.NewPublisher,
	bookingService.New,
)

var paymentDomain = wire.NewSet(
	paymentService.New,
)

var analyticsDomain = wire.NewSet(
	analyticsService.New,
)

var userDomain = wire.NewSet(
	userRepository.New,
	userService.New,
	wire.Bind(new(middleware.RoleStore), new(userService.User)),
)

var domains = wire.NewSet(
	inventoryDomain,
	bookingDomain,
	paymentDomain,
	analyticsDomain,
	userDomain,
)

var routing = wire.NewSet(
	wire.Struct(new(router.DomainHandlers), "*"),
	authHandler.New,
	lotHandler.New,
	slotHandler.New,
	bookingHandler.New,
	paymentHandler.New,
	analyticsHandler.New,
	router.New,
)

func InitializeService() (*http.HTTP, error) {
	wire.Build(
		configurations,
		infrastructures,
		middlewares,
		sharedHelpers,
		domains,
		routing,
		http.New,
	)

	return &http.HTTP{}, nil
}

func InitializeWorker() (*paymentConsumer.ProviderEvents, error) {
	wire.Build(
		config.Get,
		postgres.New,
		otel.New,
		redis.New,
		kafka.New,
		s3.New,
		stripe.New,
		sharedHelpers,
		bookingRepository.New,
		bookingEvent.NewPublisher,
		paymentDomain,
		paymentConsumer.New,
	)

	return &paymentConsumer.ProviderEvents{}, nil
}
