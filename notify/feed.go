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

const DefaultConsumerGroup = "ussdadmin-dashboard"

var (
	ErrFeedInitialization = errors.New("notify: failed to initialize redis stream subscriber")
	ErrNilSink            = errors.New("notify: sink is required")
)

type FeedOptions struct {
	Topic         string
	ConsumerGroup string
	BlockTime     time.Duration
	Logger        watermill.LoggerAdapter
}

// Feed reads the notifications a Stream published and hands each one to a
// local Notifier, so a dashboard process can render toasts produced by
// another process.
type Feed struct {
	subscriber *redisstream.Subscriber
	topic      string
}

func NewFeed(redisClient goredis.UniversalClient, opts FeedOptions) (*Feed, error) {
	if redisClient == nil {
		return nil, ErrNilRedisClient
	}

	logger := opts.Logger
	if logger == nil {
		logger = watermill.NopLogger{}
	}

	group := opts.ConsumerGroup
	if group == "" {
		group = DefaultConsumerGroup
	}

	//nolint:exhaustruct
	subscriber, err := redisstream.NewSubscriber(
		redisstream.SubscriberConfig{
			Client:        redisClient,
			Unmarshaller:  redisstream.DefaultMarshallerUnmarshaller{},
			ConsumerGroup: group,
			BlockTime:     opts.BlockTime,
		},
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFeedInitialization, err)
	}

	topic := opts.Topic
	if topic == "" {
		topic = DefaultTopic
	}

	return &Feed{
		subscriber: subscriber,
		topic:      topic,
	}, nil
}

func (f *Feed) Topic() string {
	return f.topic
}

// Run forwards notifications to sink until ctx is done. A message that does
// not decode is acknowledged and dropped.
func (f *Feed) Run(ctx context.Context, sink Notifier) error {
	if sink == nil {
		return ErrNilSink
	}

	messages, err := f.subscriber.Subscribe(ctx, f.topic)
	if err != nil {
		return fmt.Errorf("notify: subscription to topic %s failed: %w", f.topic, err)
	}

	log.Info().Str("topic", f.topic).Msg("Notification feed started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("topic", f.topic).Msg("Notification feed stopped")

			return ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				return nil
			}

			f.deliver(ctx, msg, sink)
		}
	}
}

func (f *Feed) deliver(ctx context.Context, msg *message.Message, sink Notifier) {
	defer msg.Ack()

	var n Notification
	if err := json.Unmarshal(msg.Payload, &n); err != nil {
		log.Warn().
			Err(err).
			Str("topic", f.topic).
			Str("message_id", msg.UUID).
			Msg("Dropping undecodable notification")

		return
	}

	sink.Notify(ctx, n)
}

func (f *Feed) Close() error {
	return f.subscriber.Close()
}
