package converter

import (
	"go-opd-token-system/internal/delivery/dto"
	"go-opd-token-system/internal/domain/entity"
)

func SlotToResponse(slot *entity.TimeSlot) *dto.SlotResponse {
	if slot == nil {
		return nil
	}
	return &dto.SlotResponse{
		ID:             slot.ID,
		DoctorID:       slot.DoctorID,
		StartTime:      slot.StartTime,
		EndTime:        slot.EndTime,
		MaxCapacity:    slot.MaxCapacity,
		CurrentCount:   slot.CurrentCount,
		AvailableSeats: slot.AvailableSeats(),
		IsActive:       slot.IsActive,
		CreatedAt:      slot.CreatedAt,
		UpdatedAt:      slot.UpdatedAt,
	}
}

func SlotsToResponses(slots []entity.TimeSlot) []dto.SlotResponse {
	responses := make([]dto.SlotResponse, len(slots))
	for i := range slots {
		responses[i] = *SlotToResponse(&slots[i])
	}
	return responses
}
