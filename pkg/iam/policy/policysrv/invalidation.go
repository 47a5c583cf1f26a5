package policysrv

import (
	"context"

	"github.com/redis/go-redis/v9"
	"github.com/vendala/backoffice/pkg/logx"
)

// RedisInvalidationBus propagates policy-change notifications between
// instances over a redis pub/sub channel. The message carries no payload;
// receivers reload the whole snapshot.
type RedisInvalidationBus struct {
	rdb     *redis.Client
	channel string
}

// NewRedisInvalidationBus creates a bus on the given channel.
func NewRedisInvalidationBus(rdb *redis.Client, channel string) *RedisInvalidationBus {
	return &RedisInvalidationBus{
		rdb:     rdb,
		channel: channel,
	}
}

// Broadcast publishes an invalidation message. Peers holding a stale
// snapshot refresh on receipt; this instance has already refreshed locally.
func (b *RedisInvalidationBus) Broadcast(ctx context.Context) error {
	return b.rdb.Publish(ctx, b.channel, "invalidate").Err()
}

// Listen subscribes to the channel and calls onInvalidate for every message
// until ctx is cancelled. Blocks; run it on its own goroutine.
func (b *RedisInvalidationBus) Listen(ctx context.Context, onInvalidate func(context.Context)) {
	sub := b.rdb.Subscribe(ctx, b.channel)
	defer sub.Close()

	logx.WithField("channel", b.channel).Info("policy: listening for invalidations")

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			logx.WithField("channel", msg.Channel).Debug("policy: invalidation received")
			onInvalidate(ctx)
		}
	}
}
