package allocation

import (
	"context"
	"sort"
	"sync"
	"time"

	"go-opd-token-system/internal/domain/entity"
	"go-opd-token-system/internal/domain/repository"

	"github.com/google/uuid"
)

// In-memory stores mirroring the guarded-update semantics of the SQL
// implementations, so engine tests exercise the same claim/transition
// contracts without a database.

type fakeSlotStore struct {
	mu    sync.Mutex
	slots map[uuid.UUID]*entity.TimeSlot
}

var _ repository.TimeSlotRepository = (*fakeSlotStore)(nil)

func newFakeSlotStore() *fakeSlotStore {
	return &fakeSlotStore{slots: make(map[uuid.UUID]*entity.TimeSlot)}
}

func (s *fakeSlotStore) Create(ctx context.Context, slot *entity.TimeSlot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if slot.ID == uuid.Nil {
		slot.ID = uuid.New()
	}
	cp := *slot
	s.slots[slot.ID] = &cp
	return nil
}

func (s *fakeSlotStore) FindByID(ctx context.Context, id uuid.UUID) (*entity.TimeSlot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	slot, ok := s.slots[id]
	if !ok {
		return nil, nil
	}
	cp := *slot
	return &cp, nil
}

func (s *fakeSlotStore) FindByDoctorID(ctx context.Context, doctorID uuid.UUID) ([]entity.TimeSlot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []entity.TimeSlot
	for _, slot := range s.slots {
		if slot.DoctorID == doctorID {
			out = append(out, *slot)
		}
	}
	sortSlotsByStart(out)
	return out, nil
}

func (s *fakeSlotStore) FindAll(ctx context.Context) ([]entity.TimeSlot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []entity.TimeSlot
	for _, slot := range s.slots {
		out = append(out, *slot)
	}
	sortSlotsByStart(out)
	return out, nil
}

func (s *fakeSlotStore) FindAvailable(ctx context.Context, doctorID uuid.UUID, notBefore, notAfter *time.Time) ([]entity.TimeSlot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []entity.TimeSlot
	for _, slot := range s.slots {
		if slot.DoctorID != doctorID || !slot.IsActive || slot.CurrentCount >= slot.MaxCapacity {
			continue
		}
		if notBefore != nil && slot.StartTime.Before(*notBefore) {
			continue
		}
		if notAfter != nil && slot.EndTime.After(*notAfter) {
			continue
		}
		out = append(out, *slot)
	}
	sortSlotsByStart(out)
	return out, nil
}

func (s *fakeSlotStore) FindFuture(ctx context.Context, doctorID uuid.UUID, after time.Time, limit int) ([]entity.TimeSlot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []entity.TimeSlot
	for _, slot := range s.slots {
		if slot.DoctorID != doctorID || !slot.IsActive || slot.StartTime.Before(after) {
			continue
		}
		out = append(out, *slot)
	}
	sortSlotsByStart(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *fakeSlotStore) ClaimSeat(ctx context.Context, id uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	slot, ok := s.slots[id]
	if !ok || !slot.IsActive || slot.CurrentCount >= slot.MaxCapacity {
		return false, nil
	}
	slot.CurrentCount++
	return true, nil
}

func (s *fakeSlotStore) ReleaseSeat(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if slot, ok := s.slots[id]; ok && slot.CurrentCount > 0 {
		slot.CurrentCount--
	}
	return nil
}

func (s *fakeSlotStore) Update(ctx context.Context, slot *entity.TimeSlot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *slot
	s.slots[slot.ID] = &cp
	return nil
}

func (s *fakeSlotStore) count(id uuid.UUID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.slots[id].CurrentCount
}

func sortSlotsByStart(slots []entity.TimeSlot) {
	sort.SliceStable(slots, func(i, j int) bool {
		return slots[i].StartTime.Before(slots[j].StartTime)
	})
}

type fakeTokenStore struct {
	mu     sync.Mutex
	tokens map[uuid.UUID]*entity.Token
}

var _ repository.TokenRepository = (*fakeTokenStore)(nil)

func newFakeTokenStore() *fakeTokenStore {
	return &fakeTokenStore{tokens: make(map[uuid.UUID]*entity.Token)}
}

func (s *fakeTokenStore) Create(ctx context.Context, token *entity.Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if token.ID == uuid.Nil {
		token.ID = uuid.New()
	}
	if token.Status == "" {
		token.Status = entity.TokenStatusPending
	}
	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now()
	}
	cp := *token
	s.tokens[token.ID] = &cp
	return nil
}

func (s *fakeTokenStore) FindByID(ctx context.Context, id uuid.UUID) (*entity.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	token, ok := s.tokens[id]
	if !ok {
		return nil, nil
	}
	cp := *token
	return &cp, nil
}

func (s *fakeTokenStore) FindAll(ctx context.Context, filter *entity.TokenFilter) ([]entity.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []entity.Token
	for _, token := range s.tokens {
		if filter != nil {
			if filter.DoctorID != nil && token.DoctorID != *filter.DoctorID {
				continue
			}
			if filter.SlotID != nil && (token.SlotID == nil || *token.SlotID != *filter.SlotID) {
				continue
			}
			if filter.Status != "" && token.Status != filter.Status {
				continue
			}
		}
		out = append(out, *token)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *fakeTokenStore) Update(ctx context.Context, token *entity.Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *token
	s.tokens[token.ID] = &cp
	return nil
}

func (s *fakeTokenStore) UpdatePriorityScore(ctx context.Context, id uuid.UUID, score int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if token, ok := s.tokens[id]; ok {
		token.PriorityScore = score
	}
	return nil
}

func (s *fakeTokenStore) FindAllocatedBySlot(ctx context.Context, slotID, excludeID uuid.UUID) ([]entity.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []entity.Token
	for _, token := range s.tokens {
		if token.Status != entity.TokenStatusAllocated || token.SlotID == nil || *token.SlotID != slotID || token.ID == excludeID {
			continue
		}
		out = append(out, *token)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].PriorityScore < out[j].PriorityScore
	})
	return out, nil
}

func (s *fakeTokenStore) FindPendingByDoctor(ctx context.Context, doctorID uuid.UUID) ([]entity.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []entity.Token
	for _, token := range s.tokens {
		if token.Status != entity.TokenStatusPending || token.DoctorID != doctorID || token.SlotID != nil {
			continue
		}
		out = append(out, *token)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].PriorityScore > out[j].PriorityScore
	})
	return out, nil
}

func (s *fakeTokenStore) CountByDoctorBetween(ctx context.Context, doctorID uuid.UUID, from, to time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, token := range s.tokens {
		if token.DoctorID != doctorID {
			continue
		}
		if token.CreatedAt.Before(from) || !token.CreatedAt.Before(to) {
			continue
		}
		n++
	}
	return n, nil
}

func (s *fakeTokenStore) MarkAllocated(ctx context.Context, id, slotID uuid.UUID, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	token, ok := s.tokens[id]
	if !ok || token.Status != entity.TokenStatusPending {
		return false, nil
	}
	sid := slotID
	token.Status = entity.TokenStatusAllocated
	token.SlotID = &sid
	allocatedAt := at
	token.AllocatedAt = &allocatedAt
	return true, nil
}

func (s *fakeTokenStore) MarkCancelled(ctx context.Context, id uuid.UUID, reason string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	token, ok := s.tokens[id]
	if !ok || token.Status == entity.TokenStatusCompleted || token.Status == entity.TokenStatusCancelled {
		return false, nil
	}
	token.Status = entity.TokenStatusCancelled
	token.SlotID = nil
	cancelledAt := at
	token.CancelledAt = &cancelledAt
	if reason != "" {
		token.Notes = reason
	}
	return true, nil
}

func (s *fakeTokenStore) MarkNoShow(ctx context.Context, id uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	token, ok := s.tokens[id]
	if !ok || token.Status != entity.TokenStatusAllocated {
		return false, nil
	}
	token.Status = entity.TokenStatusNoShow
	token.SlotID = nil
	return true, nil
}

func (s *fakeTokenStore) MoveAllocated(ctx context.Context, id, fromSlotID, toSlotID uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	token, ok := s.tokens[id]
	if !ok || token.Status != entity.TokenStatusAllocated || token.SlotID == nil || *token.SlotID != fromSlotID {
		return false, nil
	}
	sid := toSlotID
	token.SlotID = &sid
	return true, nil
}

func (s *fakeTokenStore) get(id uuid.UUID) entity.Token {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.tokens[id]
}
