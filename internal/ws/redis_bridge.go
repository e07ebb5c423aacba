package ws

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/zaqqye/intervention_engine/internal/apperr"
	"github.com/zaqqye/intervention_engine/internal/lifecycle"
)

const (
	DefaultRedisChannel = "pubsub:intervention_assigned"
	redisPublishTimeout = 2 * time.Second
	redisOutboxSize     = 256
	redisRetryMin       = 500 * time.Millisecond
	redisRetryMax       = 30 * time.Second
)

// redisEnvelope is the wire format shared by all server instances.
type redisEnvelope struct {
	Origin    string          `json:"origin"`
	StudentID string          `json:"student_id"`
	Event     lifecycle.Event `json:"event"`
}

// RedisBridge shares events between server instances. Events are delivered
// to the local hubs at once and relayed through a Redis channel; messages an
// instance published itself are skipped on the way back.
type RedisBridge struct {
	client     *redis.Client
	channel    string
	instanceID string
	local      lifecycle.Publisher
	log        *zap.Logger
	outbox     chan redisEnvelope

	retryMin time.Duration
	retryMax time.Duration
}

func NewRedisBridge(client *redis.Client, channel string, local lifecycle.Publisher, log *zap.Logger) *RedisBridge {
	if channel == "" {
		channel = DefaultRedisChannel
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &RedisBridge{
		client:     client,
		channel:    channel,
		instanceID: uuid.NewString(),
		local:      local,
		log:        log.With(zap.String("redis_channel", channel)),
		outbox:     make(chan redisEnvelope, redisOutboxSize),
		retryMin:   redisRetryMin,
		retryMax:   redisRetryMax,
	}
}

func (b *RedisBridge) Publish(ctx context.Context, studentID string, ev lifecycle.Event) {
	b.local.Publish(ctx, studentID, ev)
	select {
	case b.outbox <- redisEnvelope{Origin: b.instanceID, StudentID: studentID, Event: ev}:
	default:
		b.log.Warn("redis outbox full, event not relayed",
			zap.String("student_id", studentID),
			zap.Error(apperr.New("ws.RedisBridge.Publish", apperr.ErrTransientDelivery, "outbox full")))
	}
}

// Run subscribes to the channel and relays in both directions until ctx is
// done. While Redis is unreachable the subscription is retried with backoff
// and outgoing events are discarded, so delivery stays local.
func (b *RedisBridge) Run(ctx context.Context) {
	backoff := b.retryMin
	for {
		pubsub := b.client.Subscribe(ctx, b.channel)
		_, err := pubsub.Receive(ctx)
		if err == nil {
			b.log.Info("redis bridge subscribed", zap.String("instance_id", b.instanceID))
			backoff = b.retryMin
			b.relayLoop(ctx, pubsub)
			pubsub.Close()
			if ctx.Err() != nil {
				return
			}
			continue
		}
		pubsub.Close()
		if ctx.Err() != nil {
			return
		}
		b.log.Warn("redis subscribe failed, retrying",
			zap.Duration("backoff", backoff),
			zap.Error(apperr.Wrap("ws.RedisBridge.Run", apperr.ErrTransientDelivery, "subscribe failed", err)))
		if !b.discardFor(ctx, backoff) {
			return
		}
		backoff *= 2
		if backoff > b.retryMax {
			backoff = b.retryMax
		}
	}
}

// relayLoop returns when ctx is done or the subscription channel closes.
func (b *RedisBridge) relayLoop(ctx context.Context, pubsub *redis.PubSub) {
	incoming := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-incoming:
			if !ok {
				return
			}
			b.handle(ctx, msg.Payload)
		case env := <-b.outbox:
			b.relay(ctx, env)
		}
	}
}

// discardFor drains the outbox for d. It reports false once ctx is done.
func (b *RedisBridge) discardFor(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return false
		case <-timer.C:
			return true
		case env := <-b.outbox:
			b.log.Debug("redis unavailable, event not relayed", zap.String("student_id", env.StudentID))
		}
	}
}

func (b *RedisBridge) relay(ctx context.Context, env redisEnvelope) {
	data, err := json.Marshal(env)
	if err != nil {
		b.log.Error("marshal redis envelope", zap.Error(err))
		return
	}
	ctx, cancel := context.WithTimeout(ctx, redisPublishTimeout)
	defer cancel()
	if err := b.client.Publish(ctx, b.channel, data).Err(); err != nil {
		b.log.Warn("redis publish failed",
			zap.String("student_id", env.StudentID),
			zap.Error(apperr.Wrap("ws.RedisBridge.relay", apperr.ErrTransientDelivery, "publish failed", err)))
	}
}

func (b *RedisBridge) handle(ctx context.Context, payload string) {
	var env redisEnvelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		b.log.Warn("invalid redis envelope", zap.Error(err))
		return
	}
	if env.Origin == b.instanceID || env.StudentID == "" {
		return
	}
	b.local.Publish(ctx, env.StudentID, env.Event)
}
