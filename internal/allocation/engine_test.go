package allocation

import (
	"context"
	"fmt"
	"testing"
	"time"

	"go-opd-token-system/config"
	"go-opd-token-system/internal/domain/entity"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine() (*Engine, *fakeSlotStore, *fakeTokenStore) {
	slots := newFakeSlotStore()
	tokens := newFakeTokenStore()
	cfg := config.DefaultAllocationConfig()
	engine := NewEngine(slots, tokens, NewPriorityCalculator(cfg), nil, cfg)
	return engine, slots, tokens
}

func makeSlot(t *testing.T, slots *fakeSlotStore, doctorID uuid.UUID, start time.Time, capacity int) *entity.TimeSlot {
	t.Helper()
	slot := &entity.TimeSlot{
		DoctorID:    doctorID,
		StartTime:   start,
		EndTime:     start.Add(time.Hour),
		MaxCapacity: capacity,
		IsActive:    true,
	}
	require.NoError(t, slots.Create(context.Background(), slot))
	return slot
}

func makeToken(t *testing.T, tokens *fakeTokenStore, doctorID uuid.UUID, source entity.TokenSource, score int) *entity.Token {
	t.Helper()
	token := &entity.Token{
		TokenNumber:   fmt.Sprintf("T-%s", uuid.New()),
		DoctorID:      doctorID,
		PatientName:   "Patient",
		Source:        source,
		Status:        entity.TokenStatusPending,
		PriorityScore: score,
	}
	require.NoError(t, tokens.Create(context.Background(), token))
	return token
}

// seatToken places an already created pending token into the slot the same
// way the engine would: claim the seat, then the guarded transition.
func seatToken(t *testing.T, slots *fakeSlotStore, tokens *fakeTokenStore, token *entity.Token, slotID uuid.UUID) {
	t.Helper()
	ctx := context.Background()
	claimed, err := slots.ClaimSeat(ctx, slotID)
	require.NoError(t, err)
	require.True(t, claimed)
	ok, err := tokens.MarkAllocated(ctx, token.ID, slotID, time.Now())
	require.NoError(t, err)
	require.True(t, ok)
	token.Status = entity.TokenStatusAllocated
	token.SlotID = &slotID
}

func TestAllocateAssignsEarliestSlot(t *testing.T) {
	ctx := context.Background()
	engine, slots, tokens := newTestEngine()
	doctorID := uuid.New()
	base := time.Now().Add(time.Hour)

	early := makeSlot(t, slots, doctorID, base, 5)
	makeSlot(t, slots, doctorID, base.Add(2*time.Hour), 5)

	token := makeToken(t, tokens, doctorID, entity.TokenSourceWalkIn, 0)
	result := engine.Allocate(ctx, token, nil)

	require.True(t, result.Success)
	require.NotNil(t, result.Token.SlotID)
	assert.Equal(t, early.ID, *result.Token.SlotID)
	assert.Equal(t, 1, slots.count(early.ID))

	stored := tokens.get(token.ID)
	assert.Equal(t, entity.TokenStatusAllocated, stored.Status)
	assert.Equal(t, 10, stored.PriorityScore)
	assert.NotNil(t, stored.AllocatedAt)
}

func TestAllocateHonorsPreferredSlot(t *testing.T) {
	ctx := context.Background()
	engine, slots, tokens := newTestEngine()
	doctorID := uuid.New()
	base := time.Now().Add(time.Hour)

	makeSlot(t, slots, doctorID, base, 5)
	later := makeSlot(t, slots, doctorID, base.Add(2*time.Hour), 5)

	token := makeToken(t, tokens, doctorID, entity.TokenSourceOnlineBooking, 0)
	result := engine.Allocate(ctx, token, &later.ID)

	require.True(t, result.Success)
	require.NotNil(t, result.Token.SlotID)
	assert.Equal(t, later.ID, *result.Token.SlotID)
	assert.Equal(t, 1, slots.count(later.ID))
}

func TestAllocateNoSlotsReturnsAlternatives(t *testing.T) {
	ctx := context.Background()
	engine, slots, tokens := newTestEngine()
	doctorID := uuid.New()
	base := time.Now().Add(time.Hour)

	// Seven future slots, all full: no candidates, alternatives capped.
	for i := 0; i < 7; i++ {
		slot := makeSlot(t, slots, doctorID, base.Add(time.Duration(i)*time.Hour), 1)
		occupant := makeToken(t, tokens, doctorID, entity.TokenSourceWalkIn, 10)
		seatToken(t, slots, tokens, occupant, slot.ID)
	}

	token := makeToken(t, tokens, doctorID, entity.TokenSourceOnlineBooking, 0)
	result := engine.Allocate(ctx, token, nil)

	require.False(t, result.Success)
	assert.Equal(t, "No available slots at this time", result.Message)
	assert.Len(t, result.AlternativeSlots, 5)

	stored := tokens.get(token.ID)
	assert.Equal(t, entity.TokenStatusPending, stored.Status)
	assert.Nil(t, stored.SlotID)
}

func TestEmergencyDisplacesLowestPriorityOccupant(t *testing.T) {
	ctx := context.Background()
	engine, slots, tokens := newTestEngine()
	doctorID := uuid.New()
	base := time.Now().Add(time.Hour)

	earliest := makeSlot(t, slots, doctorID, base, 1)
	alternative := makeSlot(t, slots, doctorID, base.Add(2*time.Hour), 1)

	occupant := makeToken(t, tokens, doctorID, entity.TokenSourceWalkIn, 10)
	seatToken(t, slots, tokens, occupant, earliest.ID)

	result := engine.HandleEmergencyInsertion(ctx, doctorID, "Emergency Patient", "chest pain")

	require.True(t, result.Success)
	require.NotNil(t, result.Token)
	require.NotNil(t, result.Token.SlotID)
	assert.Equal(t, earliest.ID, *result.Token.SlotID)
	assert.Equal(t, 1000, result.Token.PriorityScore)
	assert.True(t, result.Token.IsEmergency)

	// The walk-in was pushed to the alternative slot, still allocated.
	moved := tokens.get(occupant.ID)
	assert.Equal(t, entity.TokenStatusAllocated, moved.Status)
	require.NotNil(t, moved.SlotID)
	assert.Equal(t, alternative.ID, *moved.SlotID)

	assert.Equal(t, 1, slots.count(earliest.ID))
	assert.Equal(t, 1, slots.count(alternative.ID))
}

func TestEqualPriorityNeverDisplaces(t *testing.T) {
	ctx := context.Background()
	engine, slots, tokens := newTestEngine()
	doctorID := uuid.New()
	base := time.Now().Add(time.Hour)

	full := makeSlot(t, slots, doctorID, base, 1)
	open := makeSlot(t, slots, doctorID, base.Add(time.Hour), 1)

	occupant := makeToken(t, tokens, doctorID, entity.TokenSourceWalkIn, 10)
	seatToken(t, slots, tokens, occupant, full.ID)

	// Same channel, same score, explicitly asking for the full slot.
	token := makeToken(t, tokens, doctorID, entity.TokenSourceWalkIn, 0)
	result := engine.Allocate(ctx, token, &full.ID)

	require.True(t, result.Success)
	require.NotNil(t, result.Token.SlotID)
	assert.Equal(t, open.ID, *result.Token.SlotID)

	// The occupant never moved.
	stored := tokens.get(occupant.ID)
	require.NotNil(t, stored.SlotID)
	assert.Equal(t, full.ID, *stored.SlotID)
	assert.Equal(t, 1, slots.count(full.ID))
	assert.Equal(t, 1, slots.count(open.ID))
}

func TestAllocateFailsWhenDisplacementHasNoAlternative(t *testing.T) {
	ctx := context.Background()
	engine, slots, tokens := newTestEngine()
	doctorID := uuid.New()
	base := time.Now().Add(time.Hour)

	only := makeSlot(t, slots, doctorID, base, 1)
	occupant := makeToken(t, tokens, doctorID, entity.TokenSourceWalkIn, 10)
	seatToken(t, slots, tokens, occupant, only.ID)

	// Higher priority, but the occupant has nowhere to go.
	result := engine.HandleEmergencyInsertion(ctx, doctorID, "Emergency Patient", "")

	require.False(t, result.Success)
	assert.Equal(t, "All slots are full. Cannot allocate token.", result.Message)

	stored := tokens.get(occupant.ID)
	require.NotNil(t, stored.SlotID)
	assert.Equal(t, only.ID, *stored.SlotID)
	assert.Equal(t, 1, slots.count(only.ID))

	// The emergency token exists but stays pending.
	require.NotNil(t, result.Token)
	assert.Equal(t, entity.TokenStatusPending, tokens.get(result.Token.ID).Status)
}

func TestCancelFreesSeatAndBackfillsHighestPriority(t *testing.T) {
	ctx := context.Background()
	engine, slots, tokens := newTestEngine()
	doctorID := uuid.New()
	base := time.Now().Add(time.Hour)

	slot := makeSlot(t, slots, doctorID, base, 1)
	allocated := makeToken(t, tokens, doctorID, entity.TokenSourceOnlineBooking, 30)
	seatToken(t, slots, tokens, allocated, slot.ID)

	lowPending := makeToken(t, tokens, doctorID, entity.TokenSourceWalkIn, 10)
	highPending := makeToken(t, tokens, doctorID, entity.TokenSourcePaidPriority, 100)

	ok := engine.Cancel(ctx, allocated, "patient request")
	require.True(t, ok)

	cancelled := tokens.get(allocated.ID)
	assert.Equal(t, entity.TokenStatusCancelled, cancelled.Status)
	assert.Nil(t, cancelled.SlotID)
	assert.Equal(t, "patient request", cancelled.Notes)
	assert.NotNil(t, cancelled.CancelledAt)

	// The freed seat went to the highest-priority pending token, and only
	// to that one.
	promoted := tokens.get(highPending.ID)
	assert.Equal(t, entity.TokenStatusAllocated, promoted.Status)
	require.NotNil(t, promoted.SlotID)
	assert.Equal(t, slot.ID, *promoted.SlotID)

	assert.Equal(t, entity.TokenStatusPending, tokens.get(lowPending.ID).Status)
	assert.Equal(t, 1, slots.count(slot.ID))
}

func TestCancelIsIdempotent(t *testing.T) {
	ctx := context.Background()
	engine, slots, tokens := newTestEngine()
	doctorID := uuid.New()
	base := time.Now().Add(time.Hour)

	slot := makeSlot(t, slots, doctorID, base, 2)
	token := makeToken(t, tokens, doctorID, entity.TokenSourceWalkIn, 10)
	seatToken(t, slots, tokens, token, slot.ID)

	require.True(t, engine.Cancel(ctx, token, ""))
	assert.Equal(t, 0, slots.count(slot.ID))

	// A repeat cancel loses the guarded transition and must not touch the
	// counter again.
	fresh := tokens.get(token.ID)
	require.False(t, engine.Cancel(ctx, &fresh, ""))
	assert.Equal(t, 0, slots.count(slot.ID))
}

func TestCancelPendingTokenHasNoSeatToFree(t *testing.T) {
	ctx := context.Background()
	engine, slots, tokens := newTestEngine()
	doctorID := uuid.New()
	base := time.Now().Add(time.Hour)

	slot := makeSlot(t, slots, doctorID, base, 1)
	pending := makeToken(t, tokens, doctorID, entity.TokenSourceWalkIn, 10)

	require.True(t, engine.Cancel(ctx, pending, ""))
	assert.Equal(t, entity.TokenStatusCancelled, tokens.get(pending.ID).Status)
	assert.Equal(t, 0, slots.count(slot.ID))
}

func TestMarkNoShowRequiresAllocatedState(t *testing.T) {
	ctx := context.Background()
	engine, slots, tokens := newTestEngine()
	doctorID := uuid.New()
	base := time.Now().Add(time.Hour)

	slot := makeSlot(t, slots, doctorID, base, 1)

	pending := makeToken(t, tokens, doctorID, entity.TokenSourceWalkIn, 10)
	assert.False(t, engine.MarkNoShow(ctx, pending))
	assert.Equal(t, entity.TokenStatusPending, tokens.get(pending.ID).Status)

	allocated := makeToken(t, tokens, doctorID, entity.TokenSourceWalkIn, 10)
	seatToken(t, slots, tokens, allocated, slot.ID)

	assert.True(t, engine.MarkNoShow(ctx, allocated))
	stored := tokens.get(allocated.ID)
	assert.Equal(t, entity.TokenStatusNoShow, stored.Status)
	assert.Nil(t, stored.SlotID)
	assert.Equal(t, 0, slots.count(slot.ID))
}

func TestNoShowBackfillsPendingToken(t *testing.T) {
	ctx := context.Background()
	engine, slots, tokens := newTestEngine()
	doctorID := uuid.New()
	base := time.Now().Add(time.Hour)

	slot := makeSlot(t, slots, doctorID, base, 1)
	allocated := makeToken(t, tokens, doctorID, entity.TokenSourceWalkIn, 10)
	seatToken(t, slots, tokens, allocated, slot.ID)

	waiting := makeToken(t, tokens, doctorID, entity.TokenSourceFollowUp, 50)

	require.True(t, engine.MarkNoShow(ctx, allocated))

	promoted := tokens.get(waiting.ID)
	assert.Equal(t, entity.TokenStatusAllocated, promoted.Status)
	require.NotNil(t, promoted.SlotID)
	assert.Equal(t, slot.ID, *promoted.SlotID)
	assert.Equal(t, 1, slots.count(slot.ID))
}

func TestReallocateMovesToken(t *testing.T) {
	ctx := context.Background()
	engine, slots, tokens := newTestEngine()
	doctorID := uuid.New()
	base := time.Now().Add(time.Hour)

	from := makeSlot(t, slots, doctorID, base, 1)
	to := makeSlot(t, slots, doctorID, base.Add(time.Hour), 1)

	token := makeToken(t, tokens, doctorID, entity.TokenSourceWalkIn, 10)
	seatToken(t, slots, tokens, token, from.ID)

	result := engine.Reallocate(ctx, token, to.ID)
	require.True(t, result.Success)

	assert.Equal(t, 0, slots.count(from.ID))
	assert.Equal(t, 1, slots.count(to.ID))

	stored := tokens.get(token.ID)
	require.NotNil(t, stored.SlotID)
	assert.Equal(t, to.ID, *stored.SlotID)
}

func TestReallocateToFullTargetFails(t *testing.T) {
	ctx := context.Background()
	engine, slots, tokens := newTestEngine()
	doctorID := uuid.New()
	base := time.Now().Add(time.Hour)

	from := makeSlot(t, slots, doctorID, base, 1)
	target := makeSlot(t, slots, doctorID, base.Add(time.Hour), 1)

	occupant := makeToken(t, tokens, doctorID, entity.TokenSourceWalkIn, 10)
	seatToken(t, slots, tokens, occupant, target.ID)

	token := makeToken(t, tokens, doctorID, entity.TokenSourceOnlineBooking, 30)
	seatToken(t, slots, tokens, token, from.ID)

	result := engine.Reallocate(ctx, token, target.ID)
	require.False(t, result.Success)
	assert.Equal(t, "Target slot is full", result.Message)

	// Nothing moved, nothing leaked.
	assert.Equal(t, 1, slots.count(from.ID))
	assert.Equal(t, 1, slots.count(target.ID))
	stored := tokens.get(token.ID)
	require.NotNil(t, stored.SlotID)
	assert.Equal(t, from.ID, *stored.SlotID)
}

func TestReallocateToMissingSlotFails(t *testing.T) {
	ctx := context.Background()
	engine, slots, tokens := newTestEngine()
	doctorID := uuid.New()
	base := time.Now().Add(time.Hour)

	from := makeSlot(t, slots, doctorID, base, 1)
	token := makeToken(t, tokens, doctorID, entity.TokenSourceWalkIn, 10)
	seatToken(t, slots, tokens, token, from.ID)

	result := engine.Reallocate(ctx, token, uuid.New())
	require.False(t, result.Success)
	assert.Equal(t, "Target slot not found", result.Message)
	assert.Equal(t, 1, slots.count(from.ID))
}

func TestEmergencyInsertionWithoutFutureSlots(t *testing.T) {
	ctx := context.Background()
	engine, _, _ := newTestEngine()

	result := engine.HandleEmergencyInsertion(ctx, uuid.New(), "Emergency Patient", "")
	require.False(t, result.Success)
	assert.Equal(t, "No future slots available for emergency insertion.", result.Message)
}

func TestCapacityNeverExceeded(t *testing.T) {
	ctx := context.Background()
	engine, slots, tokens := newTestEngine()
	doctorID := uuid.New()
	base := time.Now().Add(time.Hour)

	slot := makeSlot(t, slots, doctorID, base, 2)

	var failures int
	for i := 0; i < 3; i++ {
		token := makeToken(t, tokens, doctorID, entity.TokenSourceWalkIn, 0)
		result := engine.Allocate(ctx, token, nil)
		if !result.Success {
			failures++
		}
	}

	assert.Equal(t, 1, failures)
	assert.Equal(t, 2, slots.count(slot.ID))
}
