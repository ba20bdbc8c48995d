package allocation

import (
	"time"

	"go-opd-token-system/internal/domain/entity"

	"github.com/google/uuid"
)

// Result is the discriminated outcome of an engine entry point. Failure
// paths never raise past the engine boundary; storage faults surface here
// as a failure message instead.
type Result struct {
	Success          bool
	Token            *entity.Token
	Message          string
	AlternativeSlots []AlternativeSlot
}

// AlternativeSlot summarizes a future slot offered to the caller when no
// candidate could admit the token.
type AlternativeSlot struct {
	SlotID         uuid.UUID `json:"slot_id"`
	DoctorID       uuid.UUID `json:"doctor_id"`
	StartTime      time.Time `json:"start_time"`
	EndTime        time.Time `json:"end_time"`
	MaxCapacity    int       `json:"max_capacity"`
	CurrentCount   int       `json:"current_count"`
	AvailableSeats int       `json:"available_seats"`
	IsFull         bool      `json:"is_full"`
}

func successResult(token *entity.Token, message string) *Result {
	return &Result{Success: true, Token: token, Message: message}
}

func failureResult(message string) *Result {
	return &Result{Success: false, Message: message}
}

func toAlternatives(slots []entity.TimeSlot) []AlternativeSlot {
	alternatives := make([]AlternativeSlot, len(slots))
	for i := range slots {
		slot := &slots[i]
		alternatives[i] = AlternativeSlot{
			SlotID:         slot.ID,
			DoctorID:       slot.DoctorID,
			StartTime:      slot.StartTime,
			EndTime:        slot.EndTime,
			MaxCapacity:    slot.MaxCapacity,
			CurrentCount:   slot.CurrentCount,
			AvailableSeats: slot.AvailableSeats(),
			IsFull:         slot.IsFull(),
		}
	}
	return alternatives
}
