package repository

import (
	"context"
	"errors"
	"time"

	"go-opd-token-system/internal/domain/entity"
	domainRepo "go-opd-token-system/internal/domain/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type timeSlotRepository struct {
	db *gorm.DB
}

func NewTimeSlotRepository(db *gorm.DB) domainRepo.TimeSlotRepository {
	return &timeSlotRepository{db: db}
}

func (r *timeSlotRepository) Create(ctx context.Context, slot *entity.TimeSlot) error {
	return r.db.WithContext(ctx).Create(slot).Error
}

func (r *timeSlotRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.TimeSlot, error) {
	var slot entity.TimeSlot
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&slot).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &slot, nil
}

func (r *timeSlotRepository) FindByDoctorID(ctx context.Context, doctorID uuid.UUID) ([]entity.TimeSlot, error) {
	var slots []entity.TimeSlot
	err := r.db.WithContext(ctx).
		Where("doctor_id = ?", doctorID).
		Order("start_time ASC").
		Find(&slots).Error
	if err != nil {
		return nil, err
	}
	return slots, nil
}

func (r *timeSlotRepository) FindAll(ctx context.Context) ([]entity.TimeSlot, error) {
	var slots []entity.TimeSlot
	err := r.db.WithContext(ctx).Order("start_time ASC").Find(&slots).Error
	if err != nil {
		return nil, err
	}
	return slots, nil
}

func (r *timeSlotRepository) FindAvailable(ctx context.Context, doctorID uuid.UUID, notBefore, notAfter *time.Time) ([]entity.TimeSlot, error) {
	query := r.db.WithContext(ctx).
		Where("doctor_id = ? AND is_active = ? AND current_count < max_capacity", doctorID, true)

	if notBefore != nil {
		query = query.Where("start_time >= ?", *notBefore)
	}
	if notAfter != nil {
		query = query.Where("end_time <= ?", *notAfter)
	}

	var slots []entity.TimeSlot
	err := query.Order("start_time ASC").Find(&slots).Error
	if err != nil {
		return nil, err
	}
	return slots, nil
}

func (r *timeSlotRepository) FindFuture(ctx context.Context, doctorID uuid.UUID, after time.Time, limit int) ([]entity.TimeSlot, error) {
	query := r.db.WithContext(ctx).
		Where("doctor_id = ? AND is_active = ? AND start_time >= ?", doctorID, true, after).
		Order("start_time ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var slots []entity.TimeSlot
	err := query.Find(&slots).Error
	if err != nil {
		return nil, err
	}
	return slots, nil
}

// ClaimSeat performs the capacity admission as a single conditional update.
// RowsAffected tells whether the claim won; there is no window between the
// capacity check and the increment.
func (r *timeSlotRepository) ClaimSeat(ctx context.Context, id uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).Model(&entity.TimeSlot{}).
		Where("id = ? AND is_active = ? AND current_count < max_capacity", id, true).
		UpdateColumn("current_count", gorm.Expr("current_count + 1"))
	return result.RowsAffected == 1, result.Error
}

func (r *timeSlotRepository) ReleaseSeat(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&entity.TimeSlot{}).
		Where("id = ? AND current_count > 0", id).
		UpdateColumn("current_count", gorm.Expr("current_count - 1")).Error
}

func (r *timeSlotRepository) Update(ctx context.Context, slot *entity.TimeSlot) error {
	return r.db.WithContext(ctx).Omit("Doctor").Save(slot).Error
}
