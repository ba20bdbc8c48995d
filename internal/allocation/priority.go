package allocation

import (
	"go-opd-token-system/config"
	"go-opd-token-system/internal/domain/entity"
)

// PriorityCalculator maps an intake channel to its priority score.
// Pure and total: unknown sources score 0, emergencies always score the
// configured emergency value regardless of channel.
type PriorityCalculator struct {
	scores         map[entity.TokenSource]int
	emergencyScore int
}

func NewPriorityCalculator(cfg config.AllocationConfig) *PriorityCalculator {
	return &PriorityCalculator{
		scores: map[entity.TokenSource]int{
			entity.TokenSourceEmergency:     cfg.EmergencyScore,
			entity.TokenSourcePaidPriority:  cfg.PaidPriorityScore,
			entity.TokenSourceFollowUp:      cfg.FollowUpScore,
			entity.TokenSourceOnlineBooking: cfg.OnlineBookingScore,
			entity.TokenSourceWalkIn:        cfg.WalkInScore,
		},
		emergencyScore: cfg.EmergencyScore,
	}
}

// Score returns the priority for a token arriving through the given channel.
// Higher score wins.
func (c *PriorityCalculator) Score(source entity.TokenSource, isEmergency bool) int {
	if isEmergency || source == entity.TokenSourceEmergency {
		return c.emergencyScore
	}
	return c.scores[source]
}
