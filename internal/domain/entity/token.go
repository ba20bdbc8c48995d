package entity

import (
	"time"

	"github.com/google/uuid"
)

// TokenSource is the intake channel a token arrived through. The channel
// determines the base priority score.
type TokenSource string

const (
	TokenSourceOnlineBooking TokenSource = "online_booking"
	TokenSourceWalkIn        TokenSource = "walk_in"
	TokenSourcePaidPriority  TokenSource = "paid_priority"
	TokenSourceFollowUp      TokenSource = "follow_up"
	TokenSourceEmergency     TokenSource = "emergency"
)

// IsValid reports whether the source is a known intake channel.
func (s TokenSource) IsValid() bool {
	switch s {
	case TokenSourceOnlineBooking, TokenSourceWalkIn, TokenSourcePaidPriority,
		TokenSourceFollowUp, TokenSourceEmergency:
		return true
	}
	return false
}

// TokenStatus is the lifecycle state of a token.
//
// pending -> allocated -> {cancelled, no_show}
// pending -> cancelled
// allocated -> in_progress -> completed is reserved for the downstream
// clinical workflow; no engine operation drives those transitions.
type TokenStatus string

const (
	TokenStatusPending    TokenStatus = "pending"
	TokenStatusAllocated  TokenStatus = "allocated"
	TokenStatusInProgress TokenStatus = "in_progress"
	TokenStatusCompleted  TokenStatus = "completed"
	TokenStatusCancelled  TokenStatus = "cancelled"
	TokenStatusNoShow     TokenStatus = "no_show"
)

// Token is a patient's request for an appointment slot with a doctor.
// SlotID is null until the token is allocated and is cleared again when the
// seat is freed (cancel / no-show), so a non-null SlotID always means the
// token currently occupies a seat.
type Token struct {
	ID            uuid.UUID   `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	TokenNumber   string      `gorm:"type:varchar(50);uniqueIndex;not null" json:"token_number"`
	DoctorID      uuid.UUID   `gorm:"type:uuid;not null;index:idx_tokens_doctor_status" json:"doctor_id"`
	SlotID        *uuid.UUID  `gorm:"type:uuid;index:idx_tokens_slot_status" json:"slot_id"`
	PatientName   string      `gorm:"type:varchar(255);not null" json:"patient_name"`
	Source        TokenSource `gorm:"type:varchar(20);not null" json:"source"`
	Status        TokenStatus `gorm:"type:varchar(20);not null;default:'pending';index:idx_tokens_doctor_status;index:idx_tokens_slot_status" json:"status"`
	PriorityScore int         `gorm:"not null;default:0;index" json:"priority_score"`
	AllocatedAt   *time.Time  `json:"allocated_at"`
	CancelledAt   *time.Time  `json:"cancelled_at"`
	IsEmergency   bool        `gorm:"not null;default:false" json:"is_emergency"`
	Notes         string      `gorm:"type:text" json:"notes"`
	CreatedAt     time.Time   `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt     time.Time   `gorm:"autoUpdateTime" json:"updated_at"`

	// Relationships
	Doctor Doctor    `gorm:"foreignKey:DoctorID" json:"doctor,omitempty"`
	Slot   *TimeSlot `gorm:"foreignKey:SlotID" json:"slot,omitempty"`
}

func (Token) TableName() string {
	return "tokens"
}

// IsPending checks if the token is waiting for allocation.
func (t *Token) IsPending() bool {
	return t.Status == TokenStatusPending
}

// IsAllocated checks if the token holds a seat in a slot.
func (t *Token) IsAllocated() bool {
	return t.Status == TokenStatusAllocated
}

// IsCancelled checks if the token has been cancelled.
func (t *Token) IsCancelled() bool {
	return t.Status == TokenStatusCancelled
}

// IsTerminal reports whether the token reached a final state.
func (t *Token) IsTerminal() bool {
	switch t.Status {
	case TokenStatusCompleted, TokenStatusCancelled, TokenStatusNoShow:
		return true
	}
	return false
}
