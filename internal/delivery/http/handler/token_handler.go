package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"go-opd-token-system/internal/delivery/dto"
	"go-opd-token-system/internal/domain/entity"
	"go-opd-token-system/internal/usecase"
	"go-opd-token-system/pkg/response"
	"go-opd-token-system/pkg/validator"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

type TokenHandler struct {
	tokenUsecase usecase.TokenUsecase
	validator    *validator.CustomValidator
}

func NewTokenHandler(tokenUsecase usecase.TokenUsecase, validator *validator.CustomValidator) *TokenHandler {
	return &TokenHandler{
		tokenUsecase: tokenUsecase,
		validator:    validator,
	}
}

// CreateToken creates a token and runs it through the allocation engine.
// The response is 201 even when allocation failed: the token exists in
// pending state and the body carries alternatives.
func (h *TokenHandler) CreateToken(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	result, err := h.tokenUsecase.CreateToken(r.Context(), &req)
	if err != nil {
		switch err {
		case usecase.ErrDoctorNotFound:
			response.NotFound(w, "Doctor not found")
		case usecase.ErrInvalidTokenSource:
			response.Error(w, http.StatusBadRequest, "Invalid token source", nil)
		default:
			response.InternalServerError(w, "Failed to create token")
		}
		return
	}

	response.Success(w, http.StatusCreated, result.Message, result)
}

func (h *TokenHandler) GetToken(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	tokenID, err := uuid.Parse(vars["id"])
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid token ID", nil)
		return
	}

	token, err := h.tokenUsecase.GetToken(r.Context(), tokenID)
	if err != nil {
		if err == usecase.ErrTokenNotFound {
			response.NotFound(w, "Token not found")
			return
		}
		response.InternalServerError(w, "Failed to get token")
		return
	}

	response.Success(w, http.StatusOK, "Token retrieved successfully", token)
}

func (h *TokenHandler) GetAllTokens(w http.ResponseWriter, r *http.Request) {
	filter, err := tokenFilterFromQuery(r)
	if err != nil {
		response.Error(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	tokens, err := h.tokenUsecase.ListTokens(r.Context(), filter)
	if err != nil {
		response.InternalServerError(w, "Failed to get tokens")
		return
	}

	response.Success(w, http.StatusOK, "Tokens retrieved successfully", tokens)
}

func (h *TokenHandler) CancelToken(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	tokenID, err := uuid.Parse(vars["id"])
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid token ID", nil)
		return
	}

	var req dto.CancelTokenRequest
	if r.Body != nil {
		// Reason is optional; an empty body is fine.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	err = h.tokenUsecase.CancelToken(r.Context(), tokenID, req.Reason)
	if err != nil {
		switch err {
		case usecase.ErrTokenNotFound:
			response.NotFound(w, "Token not found")
		case usecase.ErrTokenNotCancellable:
			response.Error(w, http.StatusConflict, "Token is already completed or cancelled", nil)
		default:
			response.InternalServerError(w, "Failed to cancel token")
		}
		return
	}

	response.Success(w, http.StatusOK, "Token cancelled successfully", nil)
}

func (h *TokenHandler) MarkNoShow(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	tokenID, err := uuid.Parse(vars["id"])
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid token ID", nil)
		return
	}

	err = h.tokenUsecase.MarkNoShow(r.Context(), tokenID)
	if err != nil {
		switch err {
		case usecase.ErrTokenNotFound:
			response.NotFound(w, "Token not found")
		case usecase.ErrTokenNotAllocated:
			response.Error(w, http.StatusConflict, "Token is not in allocated state", nil)
		default:
			response.InternalServerError(w, "Failed to mark token as no-show")
		}
		return
	}

	response.Success(w, http.StatusOK, "Token marked as no-show", nil)
}

func (h *TokenHandler) ReallocateToken(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	tokenID, err := uuid.Parse(vars["id"])
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid token ID", nil)
		return
	}

	var req dto.ReallocateTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	result, err := h.tokenUsecase.ReallocateToken(r.Context(), tokenID, &req)
	if err != nil {
		if err == usecase.ErrTokenNotFound {
			response.NotFound(w, "Token not found")
			return
		}
		response.InternalServerError(w, "Failed to reallocate token")
		return
	}

	response.Success(w, http.StatusOK, result.Message, result)
}

func (h *TokenHandler) EmergencyInsert(w http.ResponseWriter, r *http.Request) {
	var req dto.EmergencyTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	result, err := h.tokenUsecase.EmergencyInsert(r.Context(), &req)
	if err != nil {
		if err == usecase.ErrDoctorNotFound {
			response.NotFound(w, "Doctor not found")
			return
		}
		response.InternalServerError(w, "Failed to insert emergency token")
		return
	}

	response.Success(w, http.StatusCreated, result.Message, result)
}

func tokenFilterFromQuery(r *http.Request) (*entity.TokenFilter, error) {
	filter := &entity.TokenFilter{Limit: 100}

	if raw := r.URL.Query().Get("doctor_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, err
		}
		filter.DoctorID = &id
	}
	if raw := r.URL.Query().Get("slot_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, err
		}
		filter.SlotID = &id
	}
	if raw := r.URL.Query().Get("status"); raw != "" {
		filter.Status = entity.TokenStatus(raw)
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if limit, err := strconv.Atoi(raw); err == nil && limit > 0 {
			filter.Limit = limit
		}
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		if offset, err := strconv.Atoi(raw); err == nil && offset > 0 {
			filter.Offset = offset
		}
	}

	return filter, nil
}
