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

type tokenRepository struct {
	db *gorm.DB
}

func NewTokenRepository(db *gorm.DB) domainRepo.TokenRepository {
	return &tokenRepository{db: db}
}

func (r *tokenRepository) Create(ctx context.Context, token *entity.Token) error {
	return r.db.WithContext(ctx).Create(token).Error
}

func (r *tokenRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Token, error) {
	var token entity.Token
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&token).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &token, nil
}

func (r *tokenRepository) FindAll(ctx context.Context, filter *entity.TokenFilter) ([]entity.Token, error) {
	query := r.db.WithContext(ctx).Model(&entity.Token{})

	if filter != nil {
		if filter.DoctorID != nil {
			query = query.Where("doctor_id = ?", *filter.DoctorID)
		}
		if filter.SlotID != nil {
			query = query.Where("slot_id = ?", *filter.SlotID)
		}
		if filter.Status != "" {
			query = query.Where("status = ?", filter.Status)
		}
		if filter.Limit > 0 {
			query = query.Limit(filter.Limit)
		}
		if filter.Offset > 0 {
			query = query.Offset(filter.Offset)
		}
	}

	var tokens []entity.Token
	err := query.Order("created_at DESC").Find(&tokens).Error
	if err != nil {
		return nil, err
	}
	return tokens, nil
}

func (r *tokenRepository) Update(ctx context.Context, token *entity.Token) error {
	return r.db.WithContext(ctx).Omit("Doctor", "Slot").Save(token).Error
}

func (r *tokenRepository) UpdatePriorityScore(ctx context.Context, id uuid.UUID, score int) error {
	return r.db.WithContext(ctx).Model(&entity.Token{}).
		Where("id = ?", id).
		Update("priority_score", score).Error
}

func (r *tokenRepository) FindAllocatedBySlot(ctx context.Context, slotID, excludeID uuid.UUID) ([]entity.Token, error) {
	var tokens []entity.Token
	err := r.db.WithContext(ctx).
		Where("slot_id = ? AND status = ? AND id != ?", slotID, entity.TokenStatusAllocated, excludeID).
		Order("priority_score ASC").
		Find(&tokens).Error
	if err != nil {
		return nil, err
	}
	return tokens, nil
}

func (r *tokenRepository) FindPendingByDoctor(ctx context.Context, doctorID uuid.UUID) ([]entity.Token, error) {
	var tokens []entity.Token
	err := r.db.WithContext(ctx).
		Where("doctor_id = ? AND status = ? AND slot_id IS NULL", doctorID, entity.TokenStatusPending).
		Order("priority_score DESC").
		Find(&tokens).Error
	if err != nil {
		return nil, err
	}
	return tokens, nil
}

func (r *tokenRepository) CountByDoctorBetween(ctx context.Context, doctorID uuid.UUID, from, to time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.Token{}).
		Where("doctor_id = ? AND created_at >= ? AND created_at < ?", doctorID, from, to).
		Count(&count).Error
	return count, err
}

func (r *tokenRepository) MarkAllocated(ctx context.Context, id, slotID uuid.UUID, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).Model(&entity.Token{}).
		Where("id = ? AND status = ?", id, entity.TokenStatusPending).
		Updates(map[string]interface{}{
			"slot_id":      slotID,
			"status":       entity.TokenStatusAllocated,
			"allocated_at": at,
		})
	return result.RowsAffected == 1, result.Error
}

func (r *tokenRepository) MarkCancelled(ctx context.Context, id uuid.UUID, reason string, at time.Time) (bool, error) {
	updates := map[string]interface{}{
		"status":       entity.TokenStatusCancelled,
		"cancelled_at": at,
		"slot_id":      nil,
	}
	if reason != "" {
		updates["notes"] = reason
	}

	result := r.db.WithContext(ctx).Model(&entity.Token{}).
		Where("id = ? AND status NOT IN ?", id, []entity.TokenStatus{entity.TokenStatusCompleted, entity.TokenStatusCancelled}).
		Updates(updates)
	return result.RowsAffected == 1, result.Error
}

func (r *tokenRepository) MarkNoShow(ctx context.Context, id uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).Model(&entity.Token{}).
		Where("id = ? AND status = ?", id, entity.TokenStatusAllocated).
		Updates(map[string]interface{}{
			"status":  entity.TokenStatusNoShow,
			"slot_id": nil,
		})
	return result.RowsAffected == 1, result.Error
}

func (r *tokenRepository) MoveAllocated(ctx context.Context, id, fromSlotID, toSlotID uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).Model(&entity.Token{}).
		Where("id = ? AND status = ? AND slot_id = ?", id, entity.TokenStatusAllocated, fromSlotID).
		Update("slot_id", toSlotID)
	return result.RowsAffected == 1, result.Error
}
