package dto

import (
	"context"
	"parking/internal/domains/user/model"
	"parking/shared"
	"parking/shared/constant"
	gDto "parking/shared/dto"
)

type AssignAdminRequest struct {
	UserID string `json:"uid" validate:"required,max=128"`
}

type ProfileResponse struct {
	Email *string  `json:"email"`
	Roles []string `json:"roles"`
	gDto.Metadata
}

func (r *ProfileResponse) FromModel(model model.User) {
	r.Email = model.Email
	r.Roles = model.Roles
	r.Metadata.FromModel(model.Metadata)
}

// MeResponse describes the caller as seen through their verified bearer token. Profile is
// null until a role has been stored for the caller.
type MeResponse struct {
	UserID  string           `json:"userId"`
	Email   string           `json:"email"`
	Roles   []string         `json:"roles"`
	IsAdmin bool             `json:"isAdmin"`
	Profile *ProfileResponse `json:"profile"`
}

func (r *MeResponse) FromContext(ctx context.Context) {
	r.UserID, r.Roles = shared.UserFromContext(ctx)
	r.Email, _ = ctx.Value(constant.ContextKeyUserEmail).(string)
	r.IsAdmin = shared.IsAdmin(r.Roles)

	if r.Roles == nil {
		r.Roles = []string{}
	}
}

type AssignAdminResponse struct {
	Status string   `json:"status"`
	UserID string   `json:"uid"`
	Roles  []string `json:"roles"`
}
