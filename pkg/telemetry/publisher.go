package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"interview-engine/pkg/models"
)

// Publisher pushes live session telemetry into Redis so external
// dashboards can observe a running interview. A nil Publisher is valid
// and drops everything, which is how the engine runs without Redis.
type Publisher struct {
	client *redis.Client
	ttl    time.Duration
	log    *logrus.Entry
}

// NewPublisher connects to Redis at addr. An empty addr yields a nil
// publisher.
func NewPublisher(addr string, ttl time.Duration, log *logrus.Entry) *Publisher {
	if addr == "" {
		return nil
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Publisher{
		client: redis.NewClient(&redis.Options{Addr: addr}),
		ttl:    ttl,
		log:    log,
	}
}

func metricsKey(sessionID string) string {
	return fmt.Sprintf("session:%s:metrics", sessionID)
}

func timelineKey(sessionID string) string {
	return fmt.Sprintf("session:%s:timeline", sessionID)
}

func phaseKey(sessionID string) string {
	return fmt.Sprintf("session:%s:phase", sessionID)
}

// PublishMetrics stores the latest smoothed metrics snapshot and appends
// it to a bounded per-session timeline.
func (p *Publisher) PublishMetrics(ctx context.Context, sessionID string, m models.FaceMetrics) {
	if p == nil {
		return
	}
	data, err := json.Marshal(m)
	if err != nil {
		return
	}
	if err := p.client.Set(ctx, metricsKey(sessionID), data, p.ttl).Err(); err != nil {
		p.log.WithError(err).Debug("telemetry metrics publish failed")
		return
	}
	pipe := p.client.Pipeline()
	pipe.RPush(ctx, timelineKey(sessionID), data)
	pipe.LTrim(ctx, timelineKey(sessionID), -200, -1)
	pipe.Expire(ctx, timelineKey(sessionID), p.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		p.log.WithError(err).Debug("telemetry timeline publish failed")
	}
}

// PublishPhase records the session's current phase.
func (p *Publisher) PublishPhase(ctx context.Context, sessionID string, phase models.Phase) {
	if p == nil {
		return
	}
	if err := p.client.Set(ctx, phaseKey(sessionID), string(phase), p.ttl).Err(); err != nil {
		p.log.WithError(err).Debug("telemetry phase publish failed")
	}
}

func (p *Publisher) Close() error {
	if p == nil {
		return nil
	}
	return p.client.Close()
}
