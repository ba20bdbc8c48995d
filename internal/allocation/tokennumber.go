package allocation

import (
	"context"
	"fmt"
	"time"

	"go-opd-token-system/internal/domain/repository"

	"github.com/google/uuid"
)

// TokenNumberGenerator mints human-readable token identifiers of the form
// DOC{last4ofDoctorId}-{YYYYMMDD}-{seq}, where seq is the number of tokens
// already created for the doctor within the server's local calendar day,
// plus one.
//
// The count-then-format sequence is not an atomic reservation: two
// concurrent creations for the same doctor can read the same count and mint
// the same number. The unique index on token_number turns that collision
// into a storage error instead of a silent duplicate.
type TokenNumberGenerator struct {
	tokens repository.TokenRepository
	now    func() time.Time
}

func NewTokenNumberGenerator(tokens repository.TokenRepository) *TokenNumberGenerator {
	return &TokenNumberGenerator{
		tokens: tokens,
		now:    time.Now,
	}
}

func (g *TokenNumberGenerator) Generate(ctx context.Context, doctorID uuid.UUID) (string, error) {
	now := g.now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)

	count, err := g.tokens.CountByDoctorBetween(ctx, doctorID, dayStart, dayEnd)
	if err != nil {
		return "", fmt.Errorf("count tokens for doctor %s: %w", doctorID, err)
	}

	id := doctorID.String()
	return fmt.Sprintf("DOC%s-%s-%04d", id[len(id)-4:], dayStart.Format("20060102"), count+1), nil
}
