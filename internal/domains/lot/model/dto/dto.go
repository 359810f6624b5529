package dto

import (
	"parking/internal/domains/lot/model"
	gDto "parking/shared/dto"
	gModel "parking/shared/model"
	"parking/shared/timezone"
)

type UpsertLotRequest struct {
	Name     string `db:"name"      json:"name"     validate:"required,max=100"`
	Address  string `db:"address"   json:"address"  validate:"omitempty,max=255"`
	IsActive *bool  `db:"is_active" json:"isActive" validate:"omitempty"`
}

// ToModel builds a new lot. The counter starts at zero and grows as slots are added.
func (u *UpsertLotRequest) ToModel(id, user string) model.Lot {
	active := true
	if u.IsActive != nil {
		active = *u.IsActive
	}

	now := timezone.Now()

	return model.Lot{
		ID:             id,
		Name:           u.Name,
		Address:        u.Address,
		IsActive:       active,
		AvailableSlots: 0,
		Metadata:       gModel.Created(user, now),
	}
}

type LotResponse struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Address        string `json:"address"`
	IsActive       bool   `json:"isActive"`
	AvailableSlots int    `json:"availableSlots"`
	gDto.Metadata
}

func (r *LotResponse) FromModel(model model.Lot) {
	r.ID = model.ID
	r.Name = model.Name
	r.Address = model.Address
	r.IsActive = model.IsActive
	r.AvailableSlots = model.AvailableSlots
	r.Metadata.FromModel(model.Metadata)
}

type GetLotsResponse struct {
	Lots []LotResponse `json:"lots"`
}

func (r *GetLotsResponse) FromModels(models []model.Lot) {
	r.Lots = make([]LotResponse, len(models))
	for i, mod := range models {
		r.Lots[i].FromModel(mod)
	}
}
