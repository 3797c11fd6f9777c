package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Domenick1991/clinicbooking/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

const (
	EventBookingCreated   = "booking.created"
	EventBookingConfirmed = "booking.confirmed"
	EventBookingCancelled = "booking.cancelled"
	EventBookingCompleted = "booking.completed"
	EventBookingNoShow    = "booking.no_show"
)

var statusEvents = map[domain.BookingStatus]string{
	domain.BookingStatusPending:   EventBookingCreated,
	domain.BookingStatusConfirmed: EventBookingConfirmed,
	domain.BookingStatusCancelled: EventBookingCancelled,
	domain.BookingStatusCompleted: EventBookingCompleted,
	domain.BookingStatusNoShow:    EventBookingNoShow,
}

type BookingEvent struct {
	Type        string               `json:"type"`
	BookingID   uuid.UUID            `json:"booking_id"`
	DoctorID    uuid.UUID            `json:"doctor_id"`
	PatientID   uuid.UUID            `json:"patient_id"`
	BookingDate string               `json:"booking_date"`
	SlotStart   domain.TimeOfDay     `json:"slot_start"`
	SlotEnd     domain.TimeOfDay     `json:"slot_end"`
	Status      domain.BookingStatus `json:"status"`
	Reason      string               `json:"reason,omitempty"`
	OccurredAt  time.Time            `json:"occurred_at"`
}

// NewBookingEvent describes the booking's current status as an event.
func NewBookingEvent(b domain.Booking, at time.Time) BookingEvent {
	return BookingEvent{
		Type:        statusEvents[b.Status],
		BookingID:   b.ID,
		DoctorID:    b.DoctorID,
		PatientID:   b.PatientID,
		BookingDate: b.BookingDate.Format(domain.DateLayout),
		SlotStart:   b.SlotStartTime,
		SlotEnd:     b.SlotEndTime,
		Status:      b.Status,
		Reason:      b.CancellationReason,
		OccurredAt:  at.UTC(),
	}
}

func DecodeBookingEvent(msg kafka.Message) (BookingEvent, error) {
	var event BookingEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return BookingEvent{}, fmt.Errorf("failed to decode booking event: %w", err)
	}
	return event, nil
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Producer struct {
	brokers []string
	topic   string
	writer  messageWriter
	logger  zerolog.Logger
	retries int
}

func NewProducer(brokers []string, topic string, logger zerolog.Logger) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Balancer:     &kafka.Hash{},
		BatchTimeout: 50 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
		Async:        false,
	}
	return newProducerWithWriter(brokers, topic, writer, logger)
}

func newProducerWithWriter(brokers []string, topic string, writer messageWriter, logger zerolog.Logger) *Producer {
	return &Producer{
		brokers: brokers,
		topic:   topic,
		writer:  writer,
		logger:  logger.With().Str("component", "kafka_producer").Logger(),
		retries: 3,
	}
}

func (p *Producer) Publish(ctx context.Context, topic, key string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	message := kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: data,
		Time:  time.Now(),
	}

	if err := p.writer.WriteMessages(ctx, message); err != nil {
		return fmt.Errorf("failed to write message to Kafka: %w", err)
	}

	p.logger.Debug().Str("topic", topic).Str("key", key).Msg("published to Kafka")
	return nil
}

func (p *Producer) PublishWithRetry(ctx context.Context, topic, key string, payload any, maxRetries int) error {
	var lastErr error

	for i := 0; i < maxRetries; i++ {
		err := p.Publish(ctx, topic, key, payload)
		if err == nil {
			return nil
		}

		lastErr = err
		p.logger.Warn().Err(err).Int("attempt", i+1).Str("topic", topic).Msg("publish attempt failed")

		if i < maxRetries-1 {
			select {
			case <-time.After(time.Duration(i+1) * 500 * time.Millisecond):
			case <-ctx.Done():
				return fmt.Errorf("publish aborted after %d attempts: %w", i+1, ctx.Err())
			}
		}
	}

	return fmt.Errorf("failed after %d retries: %w", maxRetries, lastErr)
}

// PublishBookingEvent keys messages by booking id so one booking's events stay ordered.
func (p *Producer) PublishBookingEvent(ctx context.Context, event BookingEvent) error {
	return p.PublishWithRetry(ctx, p.topic, event.BookingID.String(), event, p.retries)
}

func (p *Producer) Close() error {
	if p.writer != nil {
		return p.writer.Close()
	}
	return nil
}

func (p *Producer) CheckConnection(ctx context.Context) error {
	if len(p.brokers) == 0 {
		return fmt.Errorf("no Kafka brokers configured")
	}
	conn, err := kafka.DialContext(ctx, "tcp", p.brokers[0])
	if err != nil {
		return fmt.Errorf("failed to connect to Kafka: %w", err)
	}
	defer conn.Close()

	partitions, err := conn.ReadPartitions()
	if err != nil {
		return fmt.Errorf("failed to read partitions: %w", err)
	}

	p.logger.Info().Int("partitions", len(partitions)).Msg("connected to Kafka")
	return nil
}
