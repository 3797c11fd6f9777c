package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/Domenick1991/clinicbooking/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	failures int
	messages []kafka.Message
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.failures > 0 {
		w.failures--
		return errors.New("broker unavailable")
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

type fakeReader struct {
	messages  []kafka.Message
	committed []int64
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	if len(r.messages) == 0 {
		return kafka.Message{}, context.Canceled
	}
	msg := r.messages[0]
	r.messages = r.messages[1:]
	return msg, nil
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error { return nil }

func sampleBooking() domain.Booking {
	return domain.Booking{
		ID:                 uuid.New(),
		DoctorID:           uuid.New(),
		PatientID:          uuid.New(),
		BookingDate:        time.Date(2026, 10, 26, 0, 0, 0, 0, time.UTC),
		SlotStartTime:      domain.Clock(13, 0),
		SlotEndTime:        domain.Clock(13, 30),
		Status:             domain.BookingStatusCancelled,
		CancellationReason: "sick",
	}
}

func TestNewBookingEvent(t *testing.T) {
	b := sampleBooking()
	at := time.Date(2026, 10, 19, 12, 0, 0, 0, time.FixedZone("CET", 3600))

	event := NewBookingEvent(b, at)

	assert.Equal(t, EventBookingCancelled, event.Type)
	assert.Equal(t, "2026-10-26", event.BookingDate)
	assert.Equal(t, "sick", event.Reason)
	assert.Equal(t, time.UTC, event.OccurredAt.Location())

	data, err := json.Marshal(event)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"slot_start":"13:00"`)
}

func TestProducer_PublishBookingEventRetries(t *testing.T) {
	writer := &fakeWriter{failures: 1}
	p := newProducerWithWriter([]string{"localhost:9092"}, "booking-events", writer, zerolog.Nop())
	event := NewBookingEvent(sampleBooking(), time.Now())

	require.NoError(t, p.PublishBookingEvent(context.Background(), event))
	require.Len(t, writer.messages, 1)
	assert.Equal(t, "booking-events", writer.messages[0].Topic)
	assert.Equal(t, event.BookingID.String(), string(writer.messages[0].Key))

	decoded, err := DecodeBookingEvent(writer.messages[0])
	require.NoError(t, err)
	assert.Equal(t, event.BookingID, decoded.BookingID)
	assert.Equal(t, domain.Clock(13, 30), decoded.SlotEnd)
}

func TestProducer_PublishWithRetryGivesUp(t *testing.T) {
	writer := &fakeWriter{failures: 5}
	p := newProducerWithWriter(nil, "booking-events", writer, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := p.PublishWithRetry(ctx, "booking-events", "k", map[string]string{"a": "b"}, 3)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, writer.messages)

	assert.Error(t, p.CheckConnection(context.Background()))
}

func TestConsumer_CommitsAfterHandler(t *testing.T) {
	reader := &fakeReader{messages: []kafka.Message{{Offset: 1, Value: []byte("{}")}, {Offset: 2, Value: []byte("{}")}}}
	c := &Consumer{reader: reader, logger: zerolog.Nop()}

	var handled int
	err := c.Consume(context.Background(), func(_ context.Context, _ kafka.Message) error {
		handled++
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 2, handled)
	assert.Equal(t, []int64{1, 2}, reader.committed)
}

func TestConsumer_HandlerErrorLeavesOffsetUncommitted(t *testing.T) {
	reader := &fakeReader{messages: []kafka.Message{{Offset: 1}, {Offset: 2}, {Offset: 3}}}
	c := &Consumer{reader: reader, logger: zerolog.Nop()}

	dbDown := errors.New("db down")
	err := c.Consume(context.Background(), func(_ context.Context, msg kafka.Message) error {
		if msg.Offset == 2 {
			return dbDown
		}
		return nil
	})

	assert.ErrorIs(t, err, dbDown)
	assert.Equal(t, []int64{1}, reader.committed)
	assert.Len(t, reader.messages, 1)
}
