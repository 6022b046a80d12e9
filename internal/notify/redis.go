package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/devshare/devshare/pkg/config"
	"github.com/devshare/devshare/pkg/logging"
)

const changesChannel = "devshare:changes"

// RedisBus bridges change topics through redis pub/sub so every server
// instance sees writes made by its peers. Delivery to local subscribers goes
// through the pub/sub round trip, including for the publishing instance.
type RedisBus struct {
	client *redis.Client
	local  *LocalBus
	cancel context.CancelFunc
	logger *zap.Logger
}

// NewRedisBus connects to redis and starts the subscriber loop
func NewRedisBus(cfg *config.RedisConfig) (*RedisBus, error) {
	opt, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	runCtx, stop := context.WithCancel(context.Background())
	bus := &RedisBus{
		client: client,
		local:  NewLocalBus(),
		cancel: stop,
		logger: logging.GetLogger().With(zap.String("component", "notify-bus")),
	}

	sub := client.Subscribe(runCtx, changesChannel)
	ch := sub.Channel()
	go func() {
		defer sub.Close()
		for {
			select {
			case msg, ok := <-ch:
				if !ok {
					return
				}
				_ = bus.local.Publish(runCtx, msg.Payload)
			case <-runCtx.Done():
				return
			}
		}
	}()

	bus.logger.Info("Redis change bus connected")
	return bus, nil
}

func (b *RedisBus) Publish(ctx context.Context, topic string) error {
	return b.client.Publish(ctx, changesChannel, topic).Err()
}

func (b *RedisBus) Subscribe(h Handler) func() {
	return b.local.Subscribe(h)
}

func (b *RedisBus) Close() error {
	b.cancel()
	_ = b.local.Close()
	return b.client.Close()
}

// NewBus picks the redis bridge when redis is configured and falls back to
// the in-process bus otherwise.
func NewBus(cfg *config.RedisConfig) (Bus, error) {
	if cfg == nil || !cfg.Enabled {
		logging.GetLogger().Info("Redis disabled, using in-process change bus")
		return NewLocalBus(), nil
	}
	return NewRedisBus(cfg)
}
