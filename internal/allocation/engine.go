package allocation

import (
	"context"
	"fmt"
	"time"

	"go-opd-token-system/config"
	"go-opd-token-system/internal/domain/entity"
	"go-opd-token-system/internal/domain/repository"

	"github.com/google/uuid"
)

// Engine implements token allocation over capacity-bounded slots:
// priority-ordered admission, greedy displacement of lower-priority
// occupants, backfill of freed capacity from the pending queue, and
// emergency insertion.
//
// The engine is stateless; it holds only references to its injected store
// collaborators. Capacity admission is always an atomic claim against the
// slot store, and token transitions are guarded by expected-prior-state
// checks, so concurrent requests for the same doctor or slot resolve to
// "claim lost, try the next candidate" instead of oversubscription.
type Engine struct {
	slots    repository.TimeSlotRepository
	tokens   repository.TokenRepository
	priority *PriorityCalculator
	finder   *SlotFinder
	numbers  *TokenNumberGenerator
	events   EventSink
	altLimit int
	now      func() time.Time
}

func NewEngine(
	slots repository.TimeSlotRepository,
	tokens repository.TokenRepository,
	priority *PriorityCalculator,
	events EventSink,
	cfg config.AllocationConfig,
) *Engine {
	if events == nil {
		events = NopSink{}
	}
	altLimit := cfg.AlternativeSlotLimit
	if altLimit <= 0 {
		altLimit = 5
	}
	return &Engine{
		slots:    slots,
		tokens:   tokens,
		priority: priority,
		finder:   NewSlotFinder(slots),
		numbers:  NewTokenNumberGenerator(tokens),
		events:   events,
		altLimit: altLimit,
		now:      time.Now,
	}
}

// GenerateTokenNumber mints the next human-readable identifier for the
// doctor's current calendar day.
func (e *Engine) GenerateTokenNumber(ctx context.Context, doctorID uuid.UUID) (string, error) {
	return e.numbers.Generate(ctx, doctorID)
}

// Allocate assigns the token to the best candidate slot. On a full first
// candidate it attempts to displace a lower-priority occupant before
// falling back to the second candidate. The token stays pending when every
// path fails; the caller gets a failure result, never an error.
func (e *Engine) Allocate(ctx context.Context, token *entity.Token, preferredSlotID *uuid.UUID) *Result {
	score := e.priority.Score(token.Source, token.IsEmergency)
	token.PriorityScore = score
	if err := e.tokens.UpdatePriorityScore(ctx, token.ID, score); err != nil {
		return e.allocateFailed(token, fmt.Sprintf("Error allocating token: %s", err))
	}

	candidates, err := e.finder.FindCandidates(ctx, token.DoctorID, preferredSlotID, nil, nil)
	if err != nil {
		return e.allocateFailed(token, fmt.Sprintf("Error allocating token: %s", err))
	}

	// A full preferred slot is filtered out by the finder, but the caller
	// asked for it explicitly (emergency insertion does this on purpose),
	// so it still leads the candidate list: its claim will lose and push
	// the allocation into the displacement path.
	if preferredSlotID != nil && (len(candidates) == 0 || candidates[0].ID != *preferredSlotID) {
		preferred, err := e.slots.FindByID(ctx, *preferredSlotID)
		if err != nil {
			return e.allocateFailed(token, fmt.Sprintf("Error allocating token: %s", err))
		}
		if preferred != nil && preferred.IsActive && preferred.DoctorID == token.DoctorID {
			candidates = append([]entity.TimeSlot{*preferred}, candidates...)
		}
	}

	if len(candidates) == 0 {
		future, err := e.slots.FindFuture(ctx, token.DoctorID, e.now(), e.altLimit)
		if err != nil {
			return e.allocateFailed(token, fmt.Sprintf("Error allocating token: %s", err))
		}
		result := failureResult("No available slots at this time")
		result.Token = token
		result.AlternativeSlots = toAlternatives(future)
		e.events.Emit(Event{Operation: "allocate", TokenID: token.ID, TokenNumber: token.TokenNumber, Outcome: "failed", Detail: result.Message})
		return result
	}

	selected := candidates[0]
	claimed, err := e.slots.ClaimSeat(ctx, selected.ID)
	if err != nil {
		return e.allocateFailed(token, fmt.Sprintf("Error allocating token: %s", err))
	}

	// The candidate snapshot can be stale; a lost claim means the slot
	// filled up in the meantime. Try to displace a lower-priority occupant
	// first, then fall back to the next candidate.
	if !claimed {
		if e.tryReallocation(ctx, &selected, token) {
			claimed, err = e.slots.ClaimSeat(ctx, selected.ID)
			if err != nil {
				return e.allocateFailed(token, fmt.Sprintf("Error allocating token: %s", err))
			}
		}
	}
	if !claimed && len(candidates) > 1 {
		selected = candidates[1]
		claimed, err = e.slots.ClaimSeat(ctx, selected.ID)
		if err != nil {
			return e.allocateFailed(token, fmt.Sprintf("Error allocating token: %s", err))
		}
	}
	if !claimed {
		return e.allocateFailed(token, "All slots are full. Cannot allocate token.")
	}

	now := e.now()
	ok, err := e.tokens.MarkAllocated(ctx, token.ID, selected.ID, now)
	if err != nil || !ok {
		// Compensate: the seat was claimed but the token could not take it.
		_ = e.slots.ReleaseSeat(ctx, selected.ID)
		if err != nil {
			return e.allocateFailed(token, fmt.Sprintf("Error allocating token: %s", err))
		}
		return e.allocateFailed(token, "Token is no longer pending. Cannot allocate token.")
	}

	slotID := selected.ID
	token.SlotID = &slotID
	token.Status = entity.TokenStatusAllocated
	token.AllocatedAt = &now

	if fresh, err := e.slots.FindByID(ctx, selected.ID); err == nil && fresh != nil {
		selected = *fresh
	}

	message := fmt.Sprintf("Token allocated to slot starting at %s", selected.StartTime.Format(time.RFC3339))
	e.events.Emit(Event{Operation: "allocate", TokenID: token.ID, TokenNumber: token.TokenNumber, Outcome: "allocated", Detail: message})
	return successResult(token, message)
}

// tryReallocation walks the slot's occupants from lowest priority upward
// and moves the first one that is both strictly lower priority than the
// incoming token and has a reachable alternative slot. Greedy and
// single-pass: no backtracking, at most one occupant displaced per call.
func (e *Engine) tryReallocation(ctx context.Context, slot *entity.TimeSlot, incoming *entity.Token) bool {
	occupants, err := e.tokens.FindAllocatedBySlot(ctx, slot.ID, incoming.ID)
	if err != nil {
		return false
	}

	for i := range occupants {
		occupant := &occupants[i]
		if occupant.PriorityScore >= incoming.PriorityScore {
			// Displacement requires strictly higher priority; equal
			// priority never preempts. Occupants are sorted ascending, so
			// nothing further can be displaced either.
			return false
		}

		notBefore := slot.StartTime
		alternatives, err := e.finder.FindCandidates(ctx, occupant.DoctorID, nil, &notBefore, nil)
		if err != nil {
			return false
		}

		for j := range alternatives {
			alt := &alternatives[j]
			if alt.ID == slot.ID {
				continue
			}

			claimed, err := e.slots.ClaimSeat(ctx, alt.ID)
			if err != nil || !claimed {
				continue
			}
			moved, err := e.tokens.MoveAllocated(ctx, occupant.ID, slot.ID, alt.ID)
			if err != nil || !moved {
				// Occupant changed under us; give the seat back and try
				// the next occupant.
				_ = e.slots.ReleaseSeat(ctx, alt.ID)
				break
			}

			_ = e.slots.ReleaseSeat(ctx, slot.ID)
			e.events.Emit(Event{
				Operation:   "reallocation",
				TokenID:     occupant.ID,
				TokenNumber: occupant.TokenNumber,
				Outcome:     "moved",
				Detail:      fmt.Sprintf("Reallocated token from slot %s to slot %s to make room for higher priority token", slot.ID, alt.ID),
			})
			return true
		}
	}

	return false
}

// Cancel cancels the token and frees its seat. Returns false without
// mutation when the token is already completed or cancelled; freed capacity
// is backfilled from the pending queue.
func (e *Engine) Cancel(ctx context.Context, token *entity.Token, reason string) bool {
	ok, err := e.tokens.MarkCancelled(ctx, token.ID, reason, e.now())
	if err != nil || !ok {
		return false
	}

	if token.SlotID != nil {
		slotID := *token.SlotID
		_ = e.slots.ReleaseSeat(ctx, slotID)
		e.processPendingTokensForSlot(ctx, slotID)
	}

	e.events.Emit(Event{Operation: "cancel", TokenID: token.ID, TokenNumber: token.TokenNumber, Outcome: "cancelled", Detail: "Token cancelled"})
	return true
}

// MarkNoShow flags an allocated token as a no-show and frees its seat.
// Only legal from the allocated state.
func (e *Engine) MarkNoShow(ctx context.Context, token *entity.Token) bool {
	ok, err := e.tokens.MarkNoShow(ctx, token.ID)
	if err != nil || !ok {
		return false
	}

	if token.SlotID != nil {
		slotID := *token.SlotID
		_ = e.slots.ReleaseSeat(ctx, slotID)
		e.processPendingTokensForSlot(ctx, slotID)
	}

	e.events.Emit(Event{Operation: "no_show", TokenID: token.ID, TokenNumber: token.TokenNumber, Outcome: "no_show", Detail: "Token marked as no-show"})
	return true
}

// processPendingTokensForSlot backfills freed capacity with the single
// highest-priority pending token for the slot's doctor. At most one token
// is promoted per call; each cancellation or no-show triggers its own
// backfill.
func (e *Engine) processPendingTokensForSlot(ctx context.Context, slotID uuid.UUID) {
	slot, err := e.slots.FindByID(ctx, slotID)
	if err != nil || slot == nil || slot.IsFull() {
		return
	}

	pending, err := e.tokens.FindPendingByDoctor(ctx, slot.DoctorID)
	if err != nil || len(pending) == 0 {
		return
	}

	claimed, err := e.slots.ClaimSeat(ctx, slotID)
	if err != nil || !claimed {
		return
	}

	now := e.now()
	for i := range pending {
		ok, err := e.tokens.MarkAllocated(ctx, pending[i].ID, slotID, now)
		if err != nil {
			break
		}
		if ok {
			e.events.Emit(Event{
				Operation:   "backfill",
				TokenID:     pending[i].ID,
				TokenNumber: pending[i].TokenNumber,
				Outcome:     "allocated",
				Detail:      fmt.Sprintf("Auto-allocated pending token to slot %s", slotID),
			})
			return
		}
		// Token was taken by a concurrent allocation; try the next one.
	}

	// Nobody could take the seat, give the claim back.
	_ = e.slots.ReleaseSeat(ctx, slotID)
}

// HandleEmergencyInsertion creates an emergency token targeting the
// doctor's earliest future slot and allocates it, forcing the displacement
// path when that slot is full.
func (e *Engine) HandleEmergencyInsertion(ctx context.Context, doctorID uuid.UUID, patientName, notes string) *Result {
	next, err := e.slots.FindFuture(ctx, doctorID, e.now(), 1)
	if err != nil {
		return failureResult(fmt.Sprintf("Error handling emergency: %s", err))
	}
	if len(next) == 0 {
		return failureResult("No future slots available for emergency insertion.")
	}

	tokenNumber, err := e.numbers.Generate(ctx, doctorID)
	if err != nil {
		return failureResult(fmt.Sprintf("Error handling emergency: %s", err))
	}

	token := &entity.Token{
		TokenNumber:   tokenNumber,
		DoctorID:      doctorID,
		PatientName:   patientName,
		Source:        entity.TokenSourceEmergency,
		Status:        entity.TokenStatusPending,
		PriorityScore: e.priority.Score(entity.TokenSourceEmergency, true),
		IsEmergency:   true,
		Notes:         notes,
	}
	if err := e.tokens.Create(ctx, token); err != nil {
		return failureResult(fmt.Sprintf("Error handling emergency: %s", err))
	}

	e.events.Emit(Event{Operation: "emergency", TokenID: token.ID, TokenNumber: token.TokenNumber, Outcome: "created", Detail: "Emergency token created"})
	return e.Allocate(ctx, token, &next[0].ID)
}

// Reallocate is the administrative move: it places the token into an
// explicit target slot, bypassing the priority comparison but never
// overfilling the target.
func (e *Engine) Reallocate(ctx context.Context, token *entity.Token, newSlotID uuid.UUID) *Result {
	newSlot, err := e.slots.FindByID(ctx, newSlotID)
	if err != nil {
		return failureResult(fmt.Sprintf("Error reallocating token: %s", err))
	}
	if newSlot == nil {
		return failureResult("Target slot not found")
	}

	claimed, err := e.slots.ClaimSeat(ctx, newSlotID)
	if err != nil {
		return failureResult(fmt.Sprintf("Error reallocating token: %s", err))
	}
	if !claimed {
		return failureResult("Target slot is full")
	}

	if token.SlotID != nil {
		_ = e.slots.ReleaseSeat(ctx, *token.SlotID)
	}

	now := e.now()
	token.SlotID = &newSlotID
	token.AllocatedAt = &now
	if err := e.tokens.Update(ctx, token); err != nil {
		_ = e.slots.ReleaseSeat(ctx, newSlotID)
		return failureResult(fmt.Sprintf("Error reallocating token: %s", err))
	}

	message := fmt.Sprintf("Token reallocated to slot starting at %s", newSlot.StartTime.Format(time.RFC3339))
	e.events.Emit(Event{Operation: "reallocate", TokenID: token.ID, TokenNumber: token.TokenNumber, Outcome: "moved", Detail: message})
	return successResult(token, message)
}

func (e *Engine) allocateFailed(token *entity.Token, message string) *Result {
	e.events.Emit(Event{Operation: "allocate", TokenID: token.ID, TokenNumber: token.TokenNumber, Outcome: "failed", Detail: message})
	result := failureResult(message)
	result.Token = token
	return result
}
