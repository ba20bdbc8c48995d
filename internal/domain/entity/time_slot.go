package entity

import (
	"time"

	"github.com/google/uuid"
)

// TimeSlot is a capacity-bounded appointment window for one doctor.
// CurrentCount is mutated exclusively by the allocation engine through
// atomic conditional updates and is the single source of truth for
// occupancy. Invariant: 0 <= CurrentCount <= MaxCapacity.
type TimeSlot struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	DoctorID     uuid.UUID `gorm:"type:uuid;not null;index:idx_time_slots_doctor_start" json:"doctor_id"`
	StartTime    time.Time `gorm:"not null;index:idx_time_slots_doctor_start" json:"start_time"`
	EndTime      time.Time `gorm:"not null" json:"end_time"`
	MaxCapacity  int       `gorm:"not null;default:10" json:"max_capacity"`
	CurrentCount int       `gorm:"not null;default:0" json:"current_count"`
	IsActive     bool      `gorm:"not null;default:true;index" json:"is_active"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	// Relationships
	Doctor Doctor `gorm:"foreignKey:DoctorID" json:"doctor,omitempty"`
}

func (TimeSlot) TableName() string {
	return "time_slots"
}

// IsFull reports whether the slot has no remaining capacity.
func (s *TimeSlot) IsFull() bool {
	return s.CurrentCount >= s.MaxCapacity
}

// AvailableSeats returns the remaining capacity of the slot.
func (s *TimeSlot) AvailableSeats() int {
	remaining := s.MaxCapacity - s.CurrentCount
	if remaining < 0 {
		return 0
	}
	return remaining
}
