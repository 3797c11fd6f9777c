package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Domenick1991/clinicbooking/internal/kafka"
	"github.com/Domenick1991/clinicbooking/internal/repository"
	"github.com/rs/zerolog"
	kafkago "github.com/segmentio/kafka-go"
)

// Recorder writes consumed booking events to the audit trail.
type Recorder struct {
	repo   repository.AuditRepository
	logger zerolog.Logger
}

func NewRecorder(repo repository.AuditRepository, logger zerolog.Logger) *Recorder {
	return &Recorder{repo: repo, logger: logger}
}

func (r *Recorder) Record(ctx context.Context, event kafka.BookingEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if err := r.repo.Append(ctx, repository.AuditEntry{
		BookingID:  event.BookingID,
		EventType:  event.Type,
		Status:     event.Status,
		Payload:    payload,
		OccurredAt: event.OccurredAt,
	}); err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}

	r.logger.Info().
		Str("booking_id", event.BookingID.String()).
		Str("type", event.Type).
		Msg("booking event recorded")
	return nil
}

// Handle adapts Record to a Kafka consumer handler. Messages that cannot be
// decoded are logged and skipped; storage errors are returned so the offset
// stays uncommitted.
func (r *Recorder) Handle(ctx context.Context, msg kafkago.Message) error {
	event, err := kafka.DecodeBookingEvent(msg)
	if err != nil {
		r.logger.Warn().Err(err).
			Int("partition", msg.Partition).
			Int64("offset", msg.Offset).
			Msg("skipping undecodable booking event")
		return nil
	}
	return r.Record(ctx, event)
}
