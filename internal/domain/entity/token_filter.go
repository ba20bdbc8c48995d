package entity

import "github.com/google/uuid"

// TokenFilter narrows token listing queries.
type TokenFilter struct {
	DoctorID *uuid.UUID
	SlotID   *uuid.UUID
	Status   TokenStatus
	Limit    int
	Offset   int
}
