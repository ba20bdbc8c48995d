package usecase

import (
	"context"
	"errors"
	"time"

	"go-opd-token-system/internal/converter"
	"go-opd-token-system/internal/delivery/dto"
	"go-opd-token-system/internal/domain/entity"
	"go-opd-token-system/internal/domain/repository"
	"go-opd-token-system/internal/service"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var (
	ErrSlotNotFound     = errors.New("slot not found")
	ErrInvalidSlotTimes = errors.New("slot end time must be after start time")
)

const defaultSlotCapacity = 10

type TimeSlotUsecase interface {
	CreateSlot(ctx context.Context, req *dto.CreateSlotRequest) (*dto.SlotResponse, error)
	GetSlot(ctx context.Context, slotID uuid.UUID) (*dto.SlotResponse, error)
	ListSlots(ctx context.Context, doctorID *uuid.UUID) (*dto.SlotListResponse, error)
	ListAvailability(ctx context.Context, doctorID uuid.UUID, notBefore, notAfter *time.Time) (*dto.SlotListResponse, error)
	UpdateSlot(ctx context.Context, slotID uuid.UUID, req *dto.UpdateSlotRequest) (*dto.SlotResponse, error)
}

type timeSlotUsecase struct {
	log        *logrus.Logger
	slotRepo   repository.TimeSlotRepository
	doctorRepo repository.DoctorRepository
	board      *service.BoardSyncService
}

func NewTimeSlotUsecase(
	log *logrus.Logger,
	slotRepo repository.TimeSlotRepository,
	doctorRepo repository.DoctorRepository,
	board *service.BoardSyncService,
) TimeSlotUsecase {
	return &timeSlotUsecase{
		log:        log,
		slotRepo:   slotRepo,
		doctorRepo: doctorRepo,
		board:      board,
	}
}

// CreateSlot registers a new appointment window. Capacity is fixed at
// creation; the engine only ever mutates the occupancy counter.
func (u *timeSlotUsecase) CreateSlot(ctx context.Context, req *dto.CreateSlotRequest) (*dto.SlotResponse, error) {
	doctor, err := u.doctorRepo.FindByID(ctx, req.DoctorID)
	if err != nil {
		u.log.Warnf("Failed to find doctor %s: %+v", req.DoctorID, err)
		return nil, err
	}
	if doctor == nil {
		return nil, ErrDoctorNotFound
	}

	if !req.EndTime.After(req.StartTime) {
		return nil, ErrInvalidSlotTimes
	}

	maxCapacity := defaultSlotCapacity
	if req.MaxCapacity != nil {
		maxCapacity = *req.MaxCapacity
	}
	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}

	slot := &entity.TimeSlot{
		DoctorID:    req.DoctorID,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		MaxCapacity: maxCapacity,
		IsActive:    isActive,
	}
	if err := u.slotRepo.Create(ctx, slot); err != nil {
		u.log.Warnf("Failed to create slot: %+v", err)
		return nil, err
	}

	u.refreshBoard(ctx, slot.ID)
	return converter.SlotToResponse(slot), nil
}

func (u *timeSlotUsecase) GetSlot(ctx context.Context, slotID uuid.UUID) (*dto.SlotResponse, error) {
	slot, err := u.slotRepo.FindByID(ctx, slotID)
	if err != nil {
		u.log.Warnf("Failed to find slot %s: %+v", slotID, err)
		return nil, err
	}
	if slot == nil {
		return nil, ErrSlotNotFound
	}
	return converter.SlotToResponse(slot), nil
}

func (u *timeSlotUsecase) ListSlots(ctx context.Context, doctorID *uuid.UUID) (*dto.SlotListResponse, error) {
	var (
		slots []entity.TimeSlot
		err   error
	)
	if doctorID != nil {
		slots, err = u.slotRepo.FindByDoctorID(ctx, *doctorID)
	} else {
		slots, err = u.slotRepo.FindAll(ctx)
	}
	if err != nil {
		u.log.Warnf("Failed to list slots: %+v", err)
		return nil, err
	}
	return &dto.SlotListResponse{
		Slots: converter.SlotsToResponses(slots),
		Total: len(slots),
	}, nil
}

// ListAvailability returns the doctor's active slots that still have
// spare capacity, in start-time order, optionally bounded to a window.
func (u *timeSlotUsecase) ListAvailability(ctx context.Context, doctorID uuid.UUID, notBefore, notAfter *time.Time) (*dto.SlotListResponse, error) {
	doctor, err := u.doctorRepo.FindByID(ctx, doctorID)
	if err != nil {
		u.log.Warnf("Failed to find doctor %s: %+v", doctorID, err)
		return nil, err
	}
	if doctor == nil {
		return nil, ErrDoctorNotFound
	}

	slots, err := u.slotRepo.FindAvailable(ctx, doctorID, notBefore, notAfter)
	if err != nil {
		u.log.Warnf("Failed to list availability for doctor %s: %+v", doctorID, err)
		return nil, err
	}
	return &dto.SlotListResponse{
		Slots: converter.SlotsToResponses(slots),
		Total: len(slots),
	}, nil
}

// UpdateSlot toggles the slot's active flag. Capacity and times are fixed
// at creation, so nothing else is writable here.
func (u *timeSlotUsecase) UpdateSlot(ctx context.Context, slotID uuid.UUID, req *dto.UpdateSlotRequest) (*dto.SlotResponse, error) {
	slot, err := u.slotRepo.FindByID(ctx, slotID)
	if err != nil {
		u.log.Warnf("Failed to find slot %s: %+v", slotID, err)
		return nil, err
	}
	if slot == nil {
		return nil, ErrSlotNotFound
	}

	if req.IsActive != nil {
		slot.IsActive = *req.IsActive
	}

	if err := u.slotRepo.Update(ctx, slot); err != nil {
		u.log.Warnf("Failed to update slot %s: %+v", slotID, err)
		return nil, err
	}

	u.refreshBoard(ctx, slot.ID)
	return converter.SlotToResponse(slot), nil
}

func (u *timeSlotUsecase) refreshBoard(ctx context.Context, slotID uuid.UUID) {
	if u.board == nil {
		return
	}
	if err := u.board.RefreshSlot(ctx, slotID); err != nil {
		u.log.Warnf("Failed to refresh board for slot %s (non-fatal): %+v", slotID, err)
	}
}
