package repository

import (
	"context"
	"time"

	"go-opd-token-system/internal/domain/entity"

	"github.com/google/uuid"
)

// TimeSlotRepository is the slot capacity store consumed by the allocation
// engine. ClaimSeat and ReleaseSeat are the only writers of CurrentCount.
type TimeSlotRepository interface {
	Create(ctx context.Context, slot *entity.TimeSlot) error

	// FindByID returns nil, nil when the slot does not exist.
	FindByID(ctx context.Context, id uuid.UUID) (*entity.TimeSlot, error)

	FindByDoctorID(ctx context.Context, doctorID uuid.UUID) ([]entity.TimeSlot, error)

	FindAll(ctx context.Context) ([]entity.TimeSlot, error)

	// FindAvailable returns active slots for the doctor that still have
	// spare capacity, optionally bounded to start_time >= notBefore and
	// end_time <= notAfter, sorted ascending by start_time.
	FindAvailable(ctx context.Context, doctorID uuid.UUID, notBefore, notAfter *time.Time) ([]entity.TimeSlot, error)

	// FindFuture returns active slots starting at or after the given time
	// regardless of capacity, sorted ascending by start_time. limit <= 0
	// means no limit.
	FindFuture(ctx context.Context, doctorID uuid.UUID, after time.Time, limit int) ([]entity.TimeSlot, error)

	// ClaimSeat atomically increments current_count only while the slot is
	// active and under capacity. Returns false when the claim lost, i.e.
	// the slot was full, inactive or missing.
	ClaimSeat(ctx context.Context, id uuid.UUID) (bool, error)

	// ReleaseSeat decrements current_count, guarded so the counter never
	// drops below zero.
	ReleaseSeat(ctx context.Context, id uuid.UUID) error

	Update(ctx context.Context, slot *entity.TimeSlot) error
}
