package schedule

import (
	"context"
	"fmt"

	"github.com/Domenick1991/clinicbooking/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type Repository interface {
	ActiveSchedules(ctx context.Context, doctorID uuid.UUID, day domain.Weekday) ([]domain.DoctorSchedule, error)
}

type Cache interface {
	GetSchedules(ctx context.Context, doctorID uuid.UUID, day domain.Weekday) ([]domain.DoctorSchedule, bool, error)
	SetSchedules(ctx context.Context, doctorID uuid.UUID, day domain.Weekday, schedules []domain.DoctorSchedule) error
}

// Provider reads a doctor's schedules for a weekday, going through the cache
// first. Schedules change only through administration, so a short TTL is enough.
type Provider struct {
	repo   Repository
	cache  Cache
	logger zerolog.Logger
}

func NewProvider(repo Repository, cache Cache, logger zerolog.Logger) *Provider {
	return &Provider{repo: repo, cache: cache, logger: logger}
}

func (p *Provider) ActiveSchedules(ctx context.Context, doctorID uuid.UUID, day domain.Weekday) ([]domain.DoctorSchedule, error) {
	if p.cache != nil {
		cached, ok, err := p.cache.GetSchedules(ctx, doctorID, day)
		if err != nil {
			p.logger.Warn().Err(err).Str("doctor_id", doctorID.String()).Msg("schedule cache read failed")
		} else if ok {
			return Ordered(cached), nil
		}
	}

	schedules, err := p.repo.ActiveSchedules(ctx, doctorID, day)
	if err != nil {
		return nil, fmt.Errorf("load schedules: %w", err)
	}
	if p.cache != nil {
		if err := p.cache.SetSchedules(ctx, doctorID, day, schedules); err != nil {
			p.logger.Warn().Err(err).Str("doctor_id", doctorID.String()).Msg("schedule cache write failed")
		}
	}
	return Ordered(schedules), nil
}
