package events

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/iamtanim0195/researchlink/internal/profiles"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const (
	eventTypeProfileRegistered = "profile.registered"
	defaultWriteTimeout        = 10 * time.Second
)

var (
	errMissingBroker = errors.New("events: broker address required")
	errMissingTopic  = errors.New("events: topic required")
)

// ProducerConfig describes the Kafka connection for profile events.
type ProducerConfig struct {
	Broker       string
	Topic        string
	WriteTimeout time.Duration
	Logger       *zap.Logger
}

// Producer publishes profile lifecycle events to Kafka. Publishing is
// fire-and-forget from the caller's perspective: registration must not fail
// because the broker is unavailable, so callers log and continue on error.
type Producer struct {
	writer *kafka.Writer
	logger *zap.Logger
}

// NewProducer constructs a Producer.
func NewProducer(cfg ProducerConfig) (*Producer, error) {
	if cfg.Broker == "" {
		return nil, errMissingBroker
	}
	if cfg.Topic == "" {
		return nil, errMissingTopic
	}
	timeout := cfg.WriteTimeout
	if timeout <= 0 {
		timeout = defaultWriteTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Producer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(cfg.Broker),
			Topic:        cfg.Topic,
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireAll,
			WriteTimeout: timeout,
		},
		logger: logger,
	}, nil
}

type profileRegisteredEvent struct {
	Type      string    `json:"type"`
	ProfileID string    `json:"profile_id"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Name      string    `json:"name"`
	Timestamp time.Time `json:"timestamp"`
}

// ProfileRegistered publishes a profile.registered event keyed by profile id.
func (p *Producer) ProfileRegistered(ctx context.Context, profile profiles.UserProfile) error {
	event := profileRegisteredEvent{
		Type:      eventTypeProfileRegistered,
		ProfileID: profile.ID,
		Email:     profile.Email,
		Role:      string(profile.Role),
		Name:      profile.Name,
		Timestamp: time.Now().UTC(),
	}
	value, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(profile.ID),
		Value: value,
		Time:  time.Now(),
	}); err != nil {
		return err
	}
	p.logger.Debug("profile event published",
		zap.String("type", eventTypeProfileRegistered),
		zap.String("profile_id", profile.ID))
	return nil
}

// Close flushes and closes the underlying writer.
func (p *Producer) Close() error {
	return p.writer.Close()
}
