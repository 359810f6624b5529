package service

//go:generate go run go.uber.org/mock/mockgen -source=./service.go -destination=../mocks/service_mock.go -package=mocks -mock_names=User=MockUserService

import (
	"context"
	"fmt"
	"parking/config"
	"parking/infras/otel"
	"parking/internal/domains/user/model"
	"parking/internal/domains/user/model/dto"
	"parking/internal/domains/user/repository"
	"parking/shared"
	"parking/shared/cache"
	"parking/shared/constant"
	"parking/shared/failure"
	gModel "parking/shared/model"
	gRepo "parking/shared/repository"
	"parking/shared/timezone"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/rs/zerolog/log"
)

type User interface {
	// Roles returns the roles stored for userID, or none when nothing was granted yet.
	Roles(ctx context.Context, userID string) ([]string, error)
	Me(ctx context.Context) (dto.MeResponse, error)
	AssignAdmin(ctx context.Context, req dto.AssignAdminRequest) (dto.AssignAdminResponse, error)
}

type serviceImpl struct {
	repo  repository.User
	tx    gRepo.Transactor
	cfg   *config.Config
	cache cache.RedisCache
	otel  otel.Otel
}

func New(repo repository.User, tx gRepo.Transactor, cfg *config.Config, cache cache.RedisCache, otel otel.Otel) User {
	return &serviceImpl{
		repo:  repo,
		tx:    tx,
		cfg:   cfg,
		cache: cache,
		otel:  otel,
	}
}

func (s *serviceImpl) Roles(ctx context.Context, userID string) (roles []string, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Roles")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	cacheKey := shared.BuildCacheKey(constant.CacheGetUserRoles, userID)

	err = s.cache.Get(ctx, cacheKey, &roles)
	if err == nil {
		return roles, nil
	}

	user, err := s.repo.Get(ctx, shared.FilterByID(userID, model.FieldID, model.TableName), model.FieldID, model.FieldRoles)
	if err != nil {
		log.Error().Err(err).Str("userId", userID).Msg("failed to get user roles")

		return nil, fmt.Errorf("failed to get user roles: %w", err)
	}

	roles = []string{}
	if user.ID != constant.Empty {
		roles = user.Roles
	}

	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Save(c, cacheKey, roles, s.cfg.Cache.TTL); err != nil {
			log.Error().Err(err).Msg("failed to save user roles to cache")
		}
	}()

	return roles, nil
}

func (s *serviceImpl) Me(ctx context.Context) (res dto.MeResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Me")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	res.FromContext(ctx)

	user, err := s.repo.Get(ctx, shared.FilterByID(res.UserID, model.FieldID, model.TableName))
	if err != nil {
		log.Error().Err(err).Str("userId", res.UserID).Msg("failed to get user profile")

		return res, fmt.Errorf("failed to get user profile: %w", err)
	}

	if user.ID != constant.Empty {
		res.Profile = &dto.ProfileResponse{}
		res.Profile.FromModel(user)
	}

	return res, nil
}

// AssignAdmin grants the admin role to the user, creating the record when none exists.
// Roles already held are kept.
func (s *serviceImpl) AssignAdmin(ctx context.Context, req dto.AssignAdminRequest) (res dto.AssignAdminResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".AssignAdmin")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	actor, _ := shared.UserFromContext(ctx)
	filter := shared.FilterByID(req.UserID, model.FieldID, model.TableName)

	var roles []string

	err = s.tx.WithinTransaction(ctx, func(ctx context.Context, sqltx *sqlx.Tx) error {
		current, err := s.repo.GetTx(ctx, sqltx, filter, true)
		if err != nil {
			return fmt.Errorf("failed to get user: %w", err)
		}

		roles = current.Grant(constant.RoleAdmin)
		now := timezone.Now()

		if current.ID == constant.Empty {
			return s.repo.InsertTx(ctx, sqltx, model.User{ //nolint:wrapcheck
				ID:       req.UserID,
				Roles:    roles,
				Metadata: gModel.Created(actor, now),
			})
		}

		if current.HasRole(constant.RoleAdmin) {
			return nil
		}

		update := map[string]any{
			model.FieldRoles:         pq.StringArray(roles),
			constant.FieldModifiedAt: now,
			constant.FieldModifiedBy: actor,
		}

		return s.repo.UpdateTx(ctx, sqltx, update, filter) //nolint:wrapcheck
	})
	if err != nil {
		if gRepo.IsUniqueViolation(err) {
			return res, failure.Conflict("user_already_exists") //nolint:wrapcheck
		}

		log.Error().Err(err).Str("userId", req.UserID).Msg("failed to assign admin")

		return res, fmt.Errorf("failed to assign admin: %w", err)
	}

	log.Info().Str("userId", req.UserID).Str("actor", actor).Msg("admin role assigned")

	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Delete(c, shared.BuildCacheKey(constant.CacheGetUserRoles, req.UserID)); err != nil {
			log.Error().Err(err).Msg("failed to delete user roles from cache")
		}
	}()

	return dto.AssignAdminResponse{Status: "ok", UserID: req.UserID, Roles: roles}, nil
}
