package dto

import (
	"time"

	"go-opd-token-system/internal/allocation"

	"github.com/google/uuid"
)

// Request DTOs

type CreateTokenRequest struct {
	DoctorID        uuid.UUID  `json:"doctor_id" validate:"required"`
	PatientName     string     `json:"patient_name" validate:"required,min=1,max=255"`
	Source          string     `json:"source" validate:"required,oneof=online_booking walk_in paid_priority follow_up emergency"`
	IsEmergency     bool       `json:"is_emergency"`
	Notes           string     `json:"notes" validate:"max=2000"`
	PreferredSlotID *uuid.UUID `json:"preferred_slot_id"`
}

type EmergencyTokenRequest struct {
	DoctorID    uuid.UUID `json:"doctor_id" validate:"required"`
	PatientName string    `json:"patient_name" validate:"required,min=1,max=255"`
	Notes       string    `json:"notes" validate:"max=2000"`
}

type CancelTokenRequest struct {
	Reason string `json:"reason" validate:"max=2000"`
}

type ReallocateTokenRequest struct {
	NewSlotID uuid.UUID `json:"new_slot_id" validate:"required"`
}

// Response DTOs

type TokenResponse struct {
	ID            uuid.UUID  `json:"id"`
	TokenNumber   string     `json:"token_number"`
	DoctorID      uuid.UUID  `json:"doctor_id"`
	SlotID        *uuid.UUID `json:"slot_id"`
	PatientName   string     `json:"patient_name"`
	Source        string     `json:"source"`
	Status        string     `json:"status"`
	PriorityScore int        `json:"priority_score"`
	AllocatedAt   *time.Time `json:"allocated_at,omitempty"`
	CancelledAt   *time.Time `json:"cancelled_at,omitempty"`
	IsEmergency   bool       `json:"is_emergency"`
	Notes         string     `json:"notes,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

type TokenListResponse struct {
	Tokens []TokenResponse `json:"tokens"`
	Total  int             `json:"total"`
}

// AllocationResponse mirrors the engine's discriminated result: either a
// placed token or a failure message with alternative future slots.
type AllocationResponse struct {
	Success          bool                         `json:"success"`
	Message          string                       `json:"message"`
	Token            *TokenResponse               `json:"token,omitempty"`
	AlternativeSlots []allocation.AlternativeSlot `json:"alternative_slots,omitempty"`
}
