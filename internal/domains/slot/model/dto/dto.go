package dto

import (
	"parking/internal/domains/slot/model"
	"parking/shared/constant"
	gDto "parking/shared/dto"
	gModel "parking/shared/model"
	"parking/shared/timezone"
)

type ListSlotsRequest struct {
	IsAvailable *bool
	Level       string
}

// ToFilter narrows the lot's slots by the optional availability and level.
func (l *ListSlotsRequest) ToFilter(lotID string) gDto.FilterGroup {
	filter := gDto.FilterGroup{
		Operator: gDto.FilterGroupOperatorAnd,
		Filters: []any{
			gDto.Filter{
				Field:    model.FieldLotID,
				Operator: gDto.FilterOperatorEq,
				Value:    lotID,
				Table:    model.TableName,
			},
		},
	}

	if l.IsAvailable != nil {
		filter.Filters = append(filter.Filters, gDto.Filter{
			Field:    model.FieldIsAvailable,
			Operator: gDto.FilterOperatorEq,
			Value:    *l.IsAvailable,
			Table:    model.TableName,
		})
	}

	if l.Level != constant.Empty {
		filter.Filters = append(filter.Filters, gDto.Filter{
			Field:    model.FieldLevel,
			Operator: gDto.FilterOperatorEq,
			Value:    l.Level,
			Table:    model.TableName,
		})
	}

	return filter
}

type UpsertSlotRequest struct {
	Level string `db:"level" json:"level" validate:"required,max=20"`
}

// ToModel builds a new slot, available from the moment it is created.
func (u *UpsertSlotRequest) ToModel(lotID, slotID, user string) model.Slot {
	now := timezone.Now()

	return model.Slot{
		ID:                 slotID,
		LotID:              lotID,
		Level:              u.Level,
		IsAvailable:        true,
		LastStatusChangeAt: now,
		Metadata:           gModel.Created(user, now),
	}
}

type SetAvailabilityRequest struct {
	IsAvailable *bool `json:"isAvailable" validate:"required"`
}

type SlotResponse struct {
	ID                 string `json:"id"`
	LotID              string `json:"lotId"`
	Level              string `json:"level"`
	IsAvailable        bool   `json:"isAvailable"`
	LastStatusChangeAt string `json:"lastStatusChangeAt"`
	gDto.Metadata
}

func (r *SlotResponse) FromModel(model model.Slot) {
	r.ID = model.ID
	r.LotID = model.LotID
	r.Level = model.Level
	r.IsAvailable = model.IsAvailable
	r.LastStatusChangeAt = timezone.Format(model.LastStatusChangeAt, constant.DateFormat)
	r.Metadata.FromModel(model.Metadata)
}

type GetSlotsResponse struct {
	Slots []SlotResponse `json:"slots"`
}

func (r *GetSlotsResponse) FromModels(models []model.Slot) {
	r.Slots = make([]SlotResponse, len(models))
	for i, mod := range models {
		r.Slots[i].FromModel(mod)
	}
}
