package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"parking/config"
	"parking/infras/otel/mocks"
	userMocks "parking/internal/domains/user/mocks"
	"parking/internal/domains/user/model"
	"parking/internal/domains/user/model/dto"
	"parking/internal/domains/user/service"
	cacheMocks "parking/shared/cache/mocks"
	"parking/shared/constant"
	"parking/shared/failure"
	gDto "parking/shared/dto"
	gRepo "parking/shared/repository"
	repoMocks "parking/shared/repository/mocks"
)

func runInTx(ctx context.Context, fn gRepo.TxFunc) error {
	return fn(ctx, nil)
}

func TestUserService_Roles(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := userMocks.NewMockUser(ctrl)
	mockCache := cacheMocks.NewMockRedisCache(ctrl)

	svc := service.New(mockRepo, repoMocks.NewMockTransactor(ctrl), &config.Config{}, mockCache, mocks.NewOtel())

	mockCache.EXPECT().Save(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	tests := []struct {
		name      string
		userID    string
		setupMock func()
		want      []string
		wantErr   bool
	}{
		{
			name:   "cache hit",
			userID: "u-1",
			setupMock: func() {
				mockCache.EXPECT().Get(gomock.Any(), "user:roles:u-1", gomock.Any()).
					DoAndReturn(func(_ context.Context, _ string, value any) error {
						roles, _ := value.(*[]string)
						*roles = []string{"user", "admin"}

						return nil
					})
			},
			want: []string{"user", "admin"},
		},
		{
			name:   "stored roles",
			userID: "u-2",
			setupMock: func() {
				mockCache.EXPECT().Get(gomock.Any(), "user:roles:u-2", gomock.Any()).Return(errors.New("miss"))
				mockRepo.EXPECT().Get(gomock.Any(), gomock.Any(), model.FieldID, model.FieldRoles).
					Return(model.User{ID: "u-2", Roles: pq.StringArray{"user", "admin"}}, nil)
			},
			want: []string{"user", "admin"},
		},
		{
			name:   "no stored record",
			userID: "u-3",
			setupMock: func() {
				mockCache.EXPECT().Get(gomock.Any(), "user:roles:u-3", gomock.Any()).Return(errors.New("miss"))
				mockRepo.EXPECT().Get(gomock.Any(), gomock.Any(), model.FieldID, model.FieldRoles).Return(model.User{}, nil)
			},
			want: []string{},
		},
		{
			name:   "repository error",
			userID: "u-4",
			setupMock: func() {
				mockCache.EXPECT().Get(gomock.Any(), "user:roles:u-4", gomock.Any()).Return(errors.New("miss"))
				mockRepo.EXPECT().Get(gomock.Any(), gomock.Any(), model.FieldID, model.FieldRoles).
					Return(model.User{}, errors.New("database error"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setupMock()

			roles, err := svc.Roles(context.Background(), tt.userID)

			if tt.wantErr {
				require.Error(t, err)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, roles)
		})
	}
}

func TestUserService_Me(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := userMocks.NewMockUser(ctrl)

	svc := service.New(mockRepo, repoMocks.NewMockTransactor(ctrl), &config.Config{}, cacheMocks.NewMockRedisCache(ctrl), mocks.NewOtel())

	ctx := context.WithValue(context.Background(), constant.ContextKeyUserID, "u-1")
	ctx = context.WithValue(ctx, constant.ContextKeyUserEmail, "driver@example.com")
	ctx = context.WithValue(ctx, constant.ContextKeyUserRoles, []string{constant.RoleUser})

	t.Run("stored profile", func(t *testing.T) {
		mockRepo.EXPECT().Get(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, filter gDto.FilterGroup, _ ...string) (model.User, error) {
				require.Len(t, filter.Filters, 1)
				assert.Equal(t, "u-1", filter.Filters[0].(gDto.Filter).Value)

				return model.User{ID: "u-1", Roles: pq.StringArray{"user", "admin"}}, nil
			})

		res, err := svc.Me(ctx)
		require.NoError(t, err)

		assert.Equal(t, "u-1", res.UserID)
		assert.Equal(t, "driver@example.com", res.Email)
		require.NotNil(t, res.Profile)
		assert.Equal(t, []string{"user", "admin"}, res.Profile.Roles)
	})

	t.Run("no stored profile", func(t *testing.T) {
		mockRepo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(model.User{}, nil)

		res, err := svc.Me(ctx)
		require.NoError(t, err)

		assert.Equal(t, "u-1", res.UserID)
		assert.Nil(t, res.Profile)
	})

	t.Run("repository error", func(t *testing.T) {
		mockRepo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(model.User{}, errors.New("database error"))

		_, err := svc.Me(ctx)
		require.Error(t, err)
	})
}

func TestUserService_AssignAdmin(t *testing.T) {
	ctx := context.WithValue(context.Background(), constant.ContextKeyUserID, "admin-1")

	tests := []struct {
		name      string
		setupMock func(repo *userMocks.MockUser)
		wantRoles []string
		wantCode  int
	}{
		{
			name: "new record",
			setupMock: func(repo *userMocks.MockUser) {
				repo.EXPECT().GetTx(gomock.Any(), gomock.Any(), gomock.Any(), true).Return(model.User{}, nil)
				repo.EXPECT().InsertTx(gomock.Any(), gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, _ *sqlx.Tx, user model.User) error {
						assert.Equal(t, "u-9", user.ID)
						assert.Equal(t, pq.StringArray{"user", "admin"}, user.Roles)
						assert.Equal(t, "admin-1", user.CreatedBy)

						return nil
					})
			},
			wantRoles: []string{"user", "admin"},
		},
		{
			name: "existing user keeps other roles",
			setupMock: func(repo *userMocks.MockUser) {
				repo.EXPECT().GetTx(gomock.Any(), gomock.Any(), gomock.Any(), true).
					Return(model.User{ID: "u-9", Roles: pq.StringArray{"user", "operator"}}, nil)
				repo.EXPECT().UpdateTx(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, _ *sqlx.Tx, req map[string]any, _ gDto.FilterGroup) error {
						assert.Equal(t, pq.StringArray{"user", "operator", "admin"}, req[model.FieldRoles])
						assert.Equal(t, "admin-1", req[constant.FieldModifiedBy])

						return nil
					})
			},
			wantRoles: []string{"user", "operator", "admin"},
		},
		{
			name: "already admin",
			setupMock: func(repo *userMocks.MockUser) {
				repo.EXPECT().GetTx(gomock.Any(), gomock.Any(), gomock.Any(), true).
					Return(model.User{ID: "u-9", Roles: pq.StringArray{"user", "admin"}}, nil)
			},
			wantRoles: []string{"user", "admin"},
		},
		{
			name: "concurrent insert",
			setupMock: func(repo *userMocks.MockUser) {
				repo.EXPECT().GetTx(gomock.Any(), gomock.Any(), gomock.Any(), true).Return(model.User{}, nil)
				repo.EXPECT().InsertTx(gomock.Any(), gomock.Any(), gomock.Any()).Return(&pq.Error{Code: "23505"})
			},
			wantCode: 409,
		},
		{
			name: "repository error",
			setupMock: func(repo *userMocks.MockUser) {
				repo.EXPECT().GetTx(gomock.Any(), gomock.Any(), gomock.Any(), true).Return(model.User{}, errors.New("database error"))
			},
			wantCode: 500,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			mockRepo := userMocks.NewMockUser(ctrl)
			mockTx := repoMocks.NewMockTransactor(ctrl)
			mockCache := cacheMocks.NewMockRedisCache(ctrl)

			svc := service.New(mockRepo, mockTx, &config.Config{}, mockCache, mocks.NewOtel())

			mockTx.EXPECT().WithinTransaction(gomock.Any(), gomock.Any()).DoAndReturn(runInTx)
			mockCache.EXPECT().Delete(gomock.Any(), "user:roles:u-9").Return(nil).AnyTimes()
			tt.setupMock(mockRepo)

			res, err := svc.AssignAdmin(ctx, dto.AssignAdminRequest{UserID: "u-9"})

			if tt.wantCode != 0 {
				require.Error(t, err)
				assert.Equal(t, tt.wantCode, failure.GetCode(err))

				return
			}

			require.NoError(t, err)
			assert.Equal(t, "ok", res.Status)
			assert.Equal(t, "u-9", res.UserID)
			assert.Equal(t, tt.wantRoles, res.Roles)
		})
	}
}
