package repository

import (
	"context"
	"time"

	"go-opd-token-system/internal/domain/entity"

	"github.com/google/uuid"
)

// TokenRepository is the token store consumed by the allocation engine.
// The Mark* methods are guarded single-record transitions: each one only
// applies when the row is still in the expected prior state and reports
// whether it won, which keeps concurrent cancel / no-show / allocate calls
// on the same token safe and idempotent under retry.
type TokenRepository interface {
	Create(ctx context.Context, token *entity.Token) error

	// FindByID returns nil, nil when the token does not exist.
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Token, error)

	FindAll(ctx context.Context, filter *entity.TokenFilter) ([]entity.Token, error)

	Update(ctx context.Context, token *entity.Token) error

	UpdatePriorityScore(ctx context.Context, id uuid.UUID, score int) error

	// FindAllocatedBySlot returns allocated tokens occupying the slot,
	// excluding the given token id, ordered by priority_score ascending.
	FindAllocatedBySlot(ctx context.Context, slotID, excludeID uuid.UUID) ([]entity.Token, error)

	// FindPendingByDoctor returns unassigned pending tokens for the doctor
	// ordered by priority_score descending.
	FindPendingByDoctor(ctx context.Context, doctorID uuid.UUID) ([]entity.Token, error)

	CountByDoctorBetween(ctx context.Context, doctorID uuid.UUID, from, to time.Time) (int64, error)

	// MarkAllocated moves a pending token into the slot.
	MarkAllocated(ctx context.Context, id, slotID uuid.UUID, at time.Time) (bool, error)

	// MarkCancelled cancels the token unless it is already completed or
	// cancelled. A non-empty reason overwrites the notes. SlotID is
	// cleared as part of the same update.
	MarkCancelled(ctx context.Context, id uuid.UUID, reason string, at time.Time) (bool, error)

	// MarkNoShow flags an allocated token as no-show and clears SlotID.
	MarkNoShow(ctx context.Context, id uuid.UUID) (bool, error)

	// MoveAllocated reassigns an allocated token from one slot to another,
	// only while it still occupies the expected source slot.
	MoveAllocated(ctx context.Context, id, fromSlotID, toSlotID uuid.UUID) (bool, error)
}
