package allocation

import (
	"context"
	"time"

	"go-opd-token-system/internal/domain/entity"
	"go-opd-token-system/internal/domain/repository"

	"github.com/google/uuid"
)

// SlotFinder queries candidate slots for a doctor. It is read-only; the
// snapshot it returns is advisory and may be stale by the time the engine
// acts on it, so the final capacity check always happens at claim time.
type SlotFinder struct {
	slots repository.TimeSlotRepository
}

func NewSlotFinder(slots repository.TimeSlotRepository) *SlotFinder {
	return &SlotFinder{slots: slots}
}

// FindCandidates returns active under-capacity slots for the doctor sorted
// by start time, optionally bounded by a time window. When the preferred
// slot is present in the result it is moved to the front, keeping the
// order of the remainder stable.
func (f *SlotFinder) FindCandidates(ctx context.Context, doctorID uuid.UUID, preferredSlotID *uuid.UUID, notBefore, notAfter *time.Time) ([]entity.TimeSlot, error) {
	slots, err := f.slots.FindAvailable(ctx, doctorID, notBefore, notAfter)
	if err != nil {
		return nil, err
	}

	if preferredSlotID != nil {
		for i := range slots {
			if slots[i].ID == *preferredSlotID {
				preferred := slots[i]
				copy(slots[1:i+1], slots[:i])
				slots[0] = preferred
				break
			}
		}
	}

	return slots, nil
}
