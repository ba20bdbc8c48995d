package usecase

import (
	"context"
	"errors"

	"go-opd-token-system/internal/allocation"
	"go-opd-token-system/internal/converter"
	"go-opd-token-system/internal/delivery/dto"
	"go-opd-token-system/internal/domain/entity"
	"go-opd-token-system/internal/domain/repository"
	"go-opd-token-system/internal/service"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var (
	ErrTokenNotFound       = errors.New("token not found")
	ErrTokenNotCancellable = errors.New("token is already completed or cancelled")
	ErrTokenNotAllocated   = errors.New("token is not allocated")
	ErrInvalidTokenSource  = errors.New("invalid token source")
)

type TokenUsecase interface {
	CreateToken(ctx context.Context, req *dto.CreateTokenRequest) (*dto.AllocationResponse, error)
	GetToken(ctx context.Context, tokenID uuid.UUID) (*dto.TokenResponse, error)
	ListTokens(ctx context.Context, filter *entity.TokenFilter) (*dto.TokenListResponse, error)
	CancelToken(ctx context.Context, tokenID uuid.UUID, reason string) error
	MarkNoShow(ctx context.Context, tokenID uuid.UUID) error
	EmergencyInsert(ctx context.Context, req *dto.EmergencyTokenRequest) (*dto.AllocationResponse, error)
	ReallocateToken(ctx context.Context, tokenID uuid.UUID, req *dto.ReallocateTokenRequest) (*dto.AllocationResponse, error)
}

type tokenUsecase struct {
	log        *logrus.Logger
	engine     *allocation.Engine
	doctorRepo repository.DoctorRepository
	tokenRepo  repository.TokenRepository
	board      *service.BoardSyncService
}

func NewTokenUsecase(
	log *logrus.Logger,
	engine *allocation.Engine,
	doctorRepo repository.DoctorRepository,
	tokenRepo repository.TokenRepository,
	board *service.BoardSyncService,
) TokenUsecase {
	return &tokenUsecase{
		log:        log,
		engine:     engine,
		doctorRepo: doctorRepo,
		tokenRepo:  tokenRepo,
		board:      board,
	}
}

// CreateToken creates a pending token for the intake request and
// immediately runs it through the allocation engine. A token that could
// not be placed stays pending; the response then carries alternative
// future slots instead of an assignment.
func (u *tokenUsecase) CreateToken(ctx context.Context, req *dto.CreateTokenRequest) (*dto.AllocationResponse, error) {
	source := entity.TokenSource(req.Source)
	if !source.IsValid() {
		return nil, ErrInvalidTokenSource
	}

	doctor, err := u.doctorRepo.FindByID(ctx, req.DoctorID)
	if err != nil {
		u.log.Warnf("Failed to find doctor %s: %+v", req.DoctorID, err)
		return nil, err
	}
	if doctor == nil {
		return nil, ErrDoctorNotFound
	}

	tokenNumber, err := u.engine.GenerateTokenNumber(ctx, req.DoctorID)
	if err != nil {
		u.log.Warnf("Failed to generate token number for doctor %s: %+v", req.DoctorID, err)
		return nil, err
	}

	token := &entity.Token{
		TokenNumber: tokenNumber,
		DoctorID:    req.DoctorID,
		PatientName: req.PatientName,
		Source:      source,
		Status:      entity.TokenStatusPending,
		IsEmergency: req.IsEmergency,
		Notes:       req.Notes,
	}
	if err := u.tokenRepo.Create(ctx, token); err != nil {
		u.log.Warnf("Failed to create token %s: %+v", tokenNumber, err)
		return nil, err
	}

	result := u.engine.Allocate(ctx, token, req.PreferredSlotID)
	u.refreshBoard(ctx, token.SlotID)

	u.log.Infof("Token created: number=%s, doctor=%s, allocated=%t", tokenNumber, req.DoctorID, result.Success)
	return converter.AllocationResultToResponse(result), nil
}

func (u *tokenUsecase) GetToken(ctx context.Context, tokenID uuid.UUID) (*dto.TokenResponse, error) {
	token, err := u.tokenRepo.FindByID(ctx, tokenID)
	if err != nil {
		u.log.Warnf("Failed to find token %s: %+v", tokenID, err)
		return nil, err
	}
	if token == nil {
		return nil, ErrTokenNotFound
	}
	return converter.TokenToResponse(token), nil
}

func (u *tokenUsecase) ListTokens(ctx context.Context, filter *entity.TokenFilter) (*dto.TokenListResponse, error) {
	tokens, err := u.tokenRepo.FindAll(ctx, filter)
	if err != nil {
		u.log.Warnf("Failed to list tokens: %+v", err)
		return nil, err
	}
	return &dto.TokenListResponse{
		Tokens: converter.TokensToResponses(tokens),
		Total:  len(tokens),
	}, nil
}

func (u *tokenUsecase) CancelToken(ctx context.Context, tokenID uuid.UUID, reason string) error {
	token, err := u.tokenRepo.FindByID(ctx, tokenID)
	if err != nil {
		u.log.Warnf("Failed to find token %s: %+v", tokenID, err)
		return err
	}
	if token == nil {
		return ErrTokenNotFound
	}

	freedSlot := token.SlotID
	if !u.engine.Cancel(ctx, token, reason) {
		return ErrTokenNotCancellable
	}

	u.refreshBoard(ctx, freedSlot)
	u.log.Infof("Token cancelled: id=%s, number=%s", tokenID, token.TokenNumber)
	return nil
}

func (u *tokenUsecase) MarkNoShow(ctx context.Context, tokenID uuid.UUID) error {
	token, err := u.tokenRepo.FindByID(ctx, tokenID)
	if err != nil {
		u.log.Warnf("Failed to find token %s: %+v", tokenID, err)
		return err
	}
	if token == nil {
		return ErrTokenNotFound
	}

	freedSlot := token.SlotID
	if !u.engine.MarkNoShow(ctx, token) {
		return ErrTokenNotAllocated
	}

	u.refreshBoard(ctx, freedSlot)
	u.log.Infof("Token marked as no-show: id=%s, number=%s", tokenID, token.TokenNumber)
	return nil
}

func (u *tokenUsecase) EmergencyInsert(ctx context.Context, req *dto.EmergencyTokenRequest) (*dto.AllocationResponse, error) {
	doctor, err := u.doctorRepo.FindByID(ctx, req.DoctorID)
	if err != nil {
		u.log.Warnf("Failed to find doctor %s: %+v", req.DoctorID, err)
		return nil, err
	}
	if doctor == nil {
		return nil, ErrDoctorNotFound
	}

	result := u.engine.HandleEmergencyInsertion(ctx, req.DoctorID, req.PatientName, req.Notes)
	if result.Token != nil {
		u.refreshBoard(ctx, result.Token.SlotID)
	}

	u.log.Infof("Emergency insertion for doctor %s: allocated=%t", req.DoctorID, result.Success)
	return converter.AllocationResultToResponse(result), nil
}

func (u *tokenUsecase) ReallocateToken(ctx context.Context, tokenID uuid.UUID, req *dto.ReallocateTokenRequest) (*dto.AllocationResponse, error) {
	token, err := u.tokenRepo.FindByID(ctx, tokenID)
	if err != nil {
		u.log.Warnf("Failed to find token %s: %+v", tokenID, err)
		return nil, err
	}
	if token == nil {
		return nil, ErrTokenNotFound
	}

	oldSlot := token.SlotID
	result := u.engine.Reallocate(ctx, token, req.NewSlotID)
	if result.Success {
		u.refreshBoard(ctx, oldSlot)
		newSlotID := req.NewSlotID
		u.refreshBoard(ctx, &newSlotID)
	}

	return converter.AllocationResultToResponse(result), nil
}

// refreshBoard updates the Redis occupancy board for a slot. Board
// failures never fail the request; the board re-syncs on next startup.
func (u *tokenUsecase) refreshBoard(ctx context.Context, slotID *uuid.UUID) {
	if slotID == nil || u.board == nil {
		return
	}
	if err := u.board.RefreshSlot(ctx, *slotID); err != nil {
		u.log.Warnf("Failed to refresh board for slot %s (non-fatal): %+v", *slotID, err)
	}
}
