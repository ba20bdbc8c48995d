package allocation

import (
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Event is a structured record of one engine decision, emitted to an
// injected sink so observability stays out of the allocation logic.
type Event struct {
	Operation   string
	TokenID     uuid.UUID
	TokenNumber string
	Outcome     string
	Detail      string
}

type EventSink interface {
	Emit(event Event)
}

// NopSink discards events. Used by tests that don't assert on emission.
type NopSink struct{}

func (NopSink) Emit(Event) {}

// LogSink writes events as structured logrus entries.
type LogSink struct {
	log *logrus.Logger
}

func NewLogSink(log *logrus.Logger) *LogSink {
	return &LogSink{log: log}
}

func (s *LogSink) Emit(event Event) {
	s.log.WithFields(logrus.Fields{
		"operation":    event.Operation,
		"token_id":     event.TokenID,
		"token_number": event.TokenNumber,
		"outcome":      event.Outcome,
	}).Info(event.Detail)
}
