package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Domenick1991/clinicbooking/config"
	"github.com/Domenick1991/clinicbooking/internal/domain"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisCache holds each doctor's weekday schedules as JSON.
type RedisCache struct {
	client       *redis.Client
	schedulesTTL time.Duration
}

func NewRedisCache(cfg config.RedisConfig, schedulesTTL time.Duration) *RedisCache {
	return NewRedisCacheWithClient(
		redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}),
		schedulesTTL,
	)
}

func NewRedisCacheWithClient(client *redis.Client, schedulesTTL time.Duration) *RedisCache {
	return &RedisCache{client: client, schedulesTTL: schedulesTTL}
}

func (c *RedisCache) GetSchedules(ctx context.Context, doctorID uuid.UUID, day domain.Weekday) ([]domain.DoctorSchedule, bool, error) {
	data, err := c.client.Get(ctx, schedulesKey(doctorID, day)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}

	var schedules []domain.DoctorSchedule
	if err := json.Unmarshal(data, &schedules); err != nil {
		return nil, false, err
	}
	return schedules, true, nil
}

func (c *RedisCache) SetSchedules(ctx context.Context, doctorID uuid.UUID, day domain.Weekday, schedules []domain.DoctorSchedule) error {
	if schedules == nil {
		schedules = []domain.DoctorSchedule{}
	}
	payload, err := json.Marshal(schedules)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, schedulesKey(doctorID, day), payload, c.schedulesTTL).Err()
}

func (c *RedisCache) InvalidateSchedules(ctx context.Context, doctorID uuid.UUID, day domain.Weekday) error {
	return c.client.Del(ctx, schedulesKey(doctorID, day)).Err()
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

func schedulesKey(doctorID uuid.UUID, day domain.Weekday) string {
	return fmt.Sprintf("cache:schedules:%s:%s", doctorID, day)
}
