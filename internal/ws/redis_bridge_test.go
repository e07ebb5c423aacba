package ws

import (
	"context"
	"encoding/json"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/zaqqye/intervention_engine/internal/lifecycle"
)

func jsonUnmarshal(raw string, v any) error { return json.Unmarshal([]byte(raw), v) }

type recorder struct {
	mu     sync.Mutex
	events []lifecycle.Event
}

func (r *recorder) Publish(_ context.Context, _ string, ev lifecycle.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func offlineClient() *redis.Client {
	return redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 50 * time.Millisecond})
}

func TestRedisBridge_PublishDeliversLocallyWithoutBlocking(t *testing.T) {
	local := &recorder{}
	b := NewRedisBridge(offlineClient(), "", local, nil)
	assert.Equal(t, DefaultRedisChannel, b.channel)

	for i := 0; i < redisOutboxSize+10; i++ {
		b.Publish(context.Background(), "S", assigned("S", "x"))
	}
	assert.Equal(t, redisOutboxSize+10, local.len())
	assert.Len(t, b.outbox, redisOutboxSize)
}

func TestRedisBridge_HandleSkipsOwnMessages(t *testing.T) {
	local := &recorder{}
	b := NewRedisBridge(offlineClient(), "test", local, nil)

	own, err := json.Marshal(redisEnvelope{Origin: b.instanceID, StudentID: "S", Event: assigned("S", "x")})
	require.NoError(t, err)
	foreign, err := json.Marshal(redisEnvelope{Origin: "other", StudentID: "S", Event: assigned("S", "y")})
	require.NoError(t, err)

	b.handle(context.Background(), string(own))
	b.handle(context.Background(), "{broken")
	b.handle(context.Background(), string(foreign))

	require.Equal(t, 1, local.len())
	assert.Equal(t, "y", local.events[0].Intervention.TaskDescription)
}

func TestRedisBridge_UnreachableRedisKeepsOutboxDrained(t *testing.T) {
	local := &recorder{}
	core, logs := observer.New(zapcore.DebugLevel)
	b := NewRedisBridge(offlineClient(), "test", local, zap.New(core))
	b.retryMin = 10 * time.Millisecond
	b.retryMax = 40 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		b.Run(ctx)
		close(done)
	}()

	for round := 0; round < 3; round++ {
		for i := 0; i < 100; i++ {
			b.Publish(ctx, "S", assigned("S", "x"))
		}
		require.Eventually(t, func() bool { return len(b.outbox) == 0 }, 3*time.Second, 5*time.Millisecond)
	}
	assert.Equal(t, 300, local.len())
	assert.Zero(t, logs.FilterMessage("redis outbox full, event not relayed").Len())
	require.Eventually(t, func() bool {
		return logs.FilterMessage("redis subscribe failed, retrying").Len() >= 2
	}, 3*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}

func TestRedisBridge_RelaysBetweenInstances(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	channel := "test:bridge:" + time.Now().Format("150405.000000")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	localA, localB := &recorder{}, &recorder{}
	a := NewRedisBridge(redis.NewClient(&redis.Options{Addr: addr}), channel, localA, nil)
	b := NewRedisBridge(redis.NewClient(&redis.Options{Addr: addr}), channel, localB, nil)
	go a.Run(ctx)
	go b.Run(ctx)
	// let both subscriptions settle
	time.Sleep(200 * time.Millisecond)

	a.Publish(ctx, "S", assigned("S", "Review ch.3"))

	require.Eventually(t, func() bool { return localB.len() == 1 }, 3*time.Second, 20*time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 1, localA.len())
}
