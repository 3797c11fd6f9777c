package repository

import "context"

type PGAuditRepository struct {
	db DB
}

func NewAuditRepository(db DB) *PGAuditRepository {
	return &PGAuditRepository{db: db}
}

func (r *PGAuditRepository) Append(ctx context.Context, entry AuditEntry) error {
	_, err := r.db.Exec(ctx, `INSERT INTO booking_audit (booking_id, event_type, status, payload, occurred_at)
		VALUES ($1, $2, $3, $4, $5)`,
		entry.BookingID, entry.EventType, entry.Status, entry.Payload, entry.OccurredAt)
	return err
}

var _ AuditRepository = (*PGAuditRepository)(nil)
