package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	DefaultTopic          = "ussdadmin.notifications"
	defaultPublishTimeout = 5 * time.Second
)

var (
	ErrStreamInitialization = errors.New("notify: failed to initialize redis stream publisher")
	ErrNilRedisClient       = errors.New("notify: redis client is required")
	ErrInvalidMaxEntries    = errors.New("notify: max stream entries cannot be negative")
)

type StreamOptions struct {
	Topic            string
	MaxStreamEntries int64
	Timeout          time.Duration
	Logger           watermill.LoggerAdapter
}

// Stream publishes notifications as JSON messages on a redis stream so a
// dashboard process can render them as toasts.
type Stream struct {
	publisher *redisstream.Publisher
	topic     string
	timeout   time.Duration
}

var _ Notifier = (*Stream)(nil)

func NewStream(redisClient goredis.UniversalClient, opts StreamOptions) (*Stream, error) {
	if redisClient == nil {
		return nil, ErrNilRedisClient
	}

	if opts.MaxStreamEntries < 0 {
		return nil, ErrInvalidMaxEntries
	}

	logger := opts.Logger
	if logger == nil {
		logger = watermill.NopLogger{}
	}

	publisher, err := redisstream.NewPublisher(
		redisstream.PublisherConfig{
			Client:        redisClient,
			Marshaller:    redisstream.DefaultMarshallerUnmarshaller{},
			Maxlens:       map[string]int64{},
			DefaultMaxlen: opts.MaxStreamEntries,
		},
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStreamInitialization, err)
	}

	topic := opts.Topic
	if topic == "" {
		topic = DefaultTopic
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultPublishTimeout
	}

	return &Stream{
		publisher: publisher,
		topic:     topic,
		timeout:   timeout,
	}, nil
}

func (s *Stream) Topic() string {
	return s.topic
}

// Notify publishes n. Publishing failures are logged; a toast that cannot be
// delivered never fails the request that produced it.
func (s *Stream) Notify(ctx context.Context, n Notification) {
	if err := s.Publish(ctx, n); err != nil {
		log.Warn().Err(err).Str("topic", s.topic).Msg("Failed to publish notification")
	}
}

func (s *Stream) Publish(ctx context.Context, n Notification) error {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("notify: failed to encode notification: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)

	if err := s.publisher.Publish(s.topic, msg); err != nil {
		return fmt.Errorf("notify: failed to publish to topic %s: %w", s.topic, err)
	}

	return nil
}

func (s *Stream) Close() error {
	return s.publisher.Close()
}
