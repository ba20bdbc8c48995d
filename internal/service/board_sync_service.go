package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go-opd-token-system/internal/domain/entity"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	// Redis key prefixes for the waiting-room occupancy board
	BoardOccupancyKeyPrefix = "slot:occupancy:"
	BoardCapacityKeyPrefix  = "slot:capacity:"

	// Batch size for startup sync; a pipeline is created and executed
	// per batch to keep memory bounded.
	syncBatchSize = 500
)

// BoardSyncService mirrors slot occupancy from PostgreSQL into Redis for
// the waiting-room display board. The mirror is read-side only: the
// Postgres counter stays the single source of truth for capacity
// admission, and a stale or unavailable board never blocks allocation.
type BoardSyncService struct {
	db          *gorm.DB
	redisClient *redis.Client
	log         *logrus.Logger

	// Per-slot mutex so concurrent refreshes of the same slot don't
	// interleave their read-then-write against Redis.
	slotMu sync.Map // map[uuid.UUID]*sync.Mutex
}

func NewBoardSyncService(db *gorm.DB, redisClient *redis.Client, log *logrus.Logger) *BoardSyncService {
	return &BoardSyncService{
		db:          db,
		redisClient: redisClient,
		log:         log,
	}
}

// SyncOnStartup pushes every future slot's occupancy and capacity to Redis
// in batches. Should run before accepting traffic so the board never shows
// counters from a previous process lifetime.
func (s *BoardSyncService) SyncOnStartup(ctx context.Context) error {
	s.log.Info("Starting occupancy board re-sync from database...")
	startTime := time.Now()

	if err := s.redisClient.Ping(ctx).Err(); err != nil {
		s.log.Warnf("Redis is not available, skipping board sync: %+v", err)
		return fmt.Errorf("redis ping failed: %w", err)
	}

	now := time.Now()
	offset := 0
	totalSynced := 0

	for {
		var slots []entity.TimeSlot
		err := s.db.WithContext(ctx).
			Where("end_time >= ?", now).
			Order("id").
			Limit(syncBatchSize).
			Offset(offset).
			Find(&slots).Error
		if err != nil {
			return fmt.Errorf("query slots at offset %d: %w", offset, err)
		}

		if len(slots) == 0 {
			break
		}

		pipe := s.redisClient.TxPipeline()
		for i := range slots {
			slot := &slots[i]
			ttl := s.calculateTTL(slot.EndTime)
			pipe.Set(ctx, BoardOccupancyKeyPrefix+slot.ID.String(), slot.CurrentCount, ttl)
			pipe.Set(ctx, BoardCapacityKeyPrefix+slot.ID.String(), slot.MaxCapacity, ttl)
		}
		if _, err := pipe.Exec(ctx); err != nil {
			return fmt.Errorf("pipeline exec at offset %d: %w", offset, err)
		}

		totalSynced += len(slots)
		if len(slots) < syncBatchSize {
			break
		}
		offset += syncBatchSize

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}

	s.log.Infof("Occupancy board re-sync completed: %d slots in %v", totalSynced, time.Since(startTime))
	return nil
}

// RefreshSlot re-reads one slot and updates its board keys. Called after
// every engine mutation that touches the slot's counter; failures are for
// the caller to log, not to fail the request on.
func (s *BoardSyncService) RefreshSlot(ctx context.Context, slotID uuid.UUID) error {
	mu := s.slotMutex(slotID)
	mu.Lock()
	defer mu.Unlock()

	var slot entity.TimeSlot
	err := s.db.WithContext(ctx).Where("id = ?", slotID).First(&slot).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return s.RemoveSlot(ctx, slotID)
	}
	if err != nil {
		return fmt.Errorf("reload slot %s: %w", slotID, err)
	}

	ttl := s.calculateTTL(slot.EndTime)
	pipe := s.redisClient.TxPipeline()
	pipe.Set(ctx, BoardOccupancyKeyPrefix+slotID.String(), slot.CurrentCount, ttl)
	pipe.Set(ctx, BoardCapacityKeyPrefix+slotID.String(), slot.MaxCapacity, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("refresh board for slot %s: %w", slotID, err)
	}

	s.log.Debugf("Board refreshed for slot %s: occupancy=%d/%d", slotID, slot.CurrentCount, slot.MaxCapacity)
	return nil
}

// RemoveSlot drops the board keys for a slot.
func (s *BoardSyncService) RemoveSlot(ctx context.Context, slotID uuid.UUID) error {
	err := s.redisClient.Del(ctx,
		BoardOccupancyKeyPrefix+slotID.String(),
		BoardCapacityKeyPrefix+slotID.String(),
	).Err()
	if err != nil {
		return fmt.Errorf("delete board keys for slot %s: %w", slotID, err)
	}
	s.slotMu.Delete(slotID)
	return nil
}

func (s *BoardSyncService) slotMutex(slotID uuid.UUID) *sync.Mutex {
	mu, _ := s.slotMu.LoadOrStore(slotID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// calculateTTL keeps board keys for 24 hours past the slot's end so the
// day view survives, then lets Redis expire them.
func (s *BoardSyncService) calculateTTL(endTime time.Time) time.Duration {
	ttl := time.Until(endTime.Add(24 * time.Hour))
	if ttl <= 0 {
		return time.Minute
	}
	return ttl
}
