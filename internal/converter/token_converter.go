package converter

import (
	"go-opd-token-system/internal/allocation"
	"go-opd-token-system/internal/delivery/dto"
	"go-opd-token-system/internal/domain/entity"
)

// TokenToResponse converts a Token entity to its response DTO.
func TokenToResponse(token *entity.Token) *dto.TokenResponse {
	if token == nil {
		return nil
	}
	return &dto.TokenResponse{
		ID:            token.ID,
		TokenNumber:   token.TokenNumber,
		DoctorID:      token.DoctorID,
		SlotID:        token.SlotID,
		PatientName:   token.PatientName,
		Source:        string(token.Source),
		Status:        string(token.Status),
		PriorityScore: token.PriorityScore,
		AllocatedAt:   token.AllocatedAt,
		CancelledAt:   token.CancelledAt,
		IsEmergency:   token.IsEmergency,
		Notes:         token.Notes,
		CreatedAt:     token.CreatedAt,
	}
}

// TokensToResponses converts a slice of Token entities to response DTOs.
func TokensToResponses(tokens []entity.Token) []dto.TokenResponse {
	responses := make([]dto.TokenResponse, len(tokens))
	for i := range tokens {
		responses[i] = *TokenToResponse(&tokens[i])
	}
	return responses
}

// AllocationResultToResponse converts an engine result to its response DTO.
func AllocationResultToResponse(result *allocation.Result) *dto.AllocationResponse {
	if result == nil {
		return nil
	}
	return &dto.AllocationResponse{
		Success:          result.Success,
		Message:          result.Message,
		Token:            TokenToResponse(result.Token),
		AlternativeSlots: result.AlternativeSlots,
	}
}
