package gateway

import (
	"context"
	"sync"

	"git.solsynth.dev/hypernet/converse/pkg/internal/models"
	jsoniter "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Fanout carries every broadcast to every gateway process, this one included.
type Fanout interface {
	Publish(ctx context.Context, delivery models.Delivery) error
	Start(ctx context.Context, deliver func(models.Delivery)) error
	Close() error
}

// LocalFanout serves a single process. Publish delivers synchronously.
type LocalFanout struct {
	mu      sync.RWMutex
	deliver func(models.Delivery)
}

func NewLocalFanout() *LocalFanout {
	return &LocalFanout{}
}

func (v *LocalFanout) Start(_ context.Context, deliver func(models.Delivery)) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.deliver = deliver
	return nil
}

func (v *LocalFanout) Publish(_ context.Context, delivery models.Delivery) error {
	v.mu.RLock()
	deliver := v.deliver
	v.mu.RUnlock()
	if deliver != nil {
		deliver(delivery)
	}
	return nil
}

func (v *LocalFanout) Close() error {
	return nil
}

// RedisFanout publishes deliveries on one pub/sub channel that every
// gateway process subscribes to.
type RedisFanout struct {
	client  *redis.Client
	channel string

	mu     sync.Mutex
	pubsub *redis.PubSub
	wg     sync.WaitGroup
}

func NewRedisFanout(client *redis.Client, channel string) *RedisFanout {
	return &RedisFanout{client: client, channel: channel}
}

func (v *RedisFanout) Publish(ctx context.Context, delivery models.Delivery) error {
	raw, err := jsoniter.Marshal(delivery)
	if err != nil {
		return err
	}
	return v.client.Publish(ctx, v.channel, raw).Err()
}

// Start returns once the subscription is confirmed, so nothing published
// afterwards is missed.
func (v *RedisFanout) Start(ctx context.Context, deliver func(models.Delivery)) error {
	pubsub := v.client.Subscribe(ctx, v.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return err
	}

	v.mu.Lock()
	v.pubsub = pubsub
	v.mu.Unlock()

	v.wg.Add(1)
	go func() {
		defer v.wg.Done()
		for message := range pubsub.Channel() {
			var delivery models.Delivery
			if err := jsoniter.UnmarshalFromString(message.Payload, &delivery); err != nil {
				log.Warn().Err(err).Msg("An error occurred when decoding fan-out delivery...")
				continue
			}
			deliver(delivery)
		}
	}()

	return nil
}

func (v *RedisFanout) Close() error {
	v.mu.Lock()
	pubsub := v.pubsub
	v.pubsub = nil
	v.mu.Unlock()

	if pubsub == nil {
		return nil
	}
	err := pubsub.Close()
	v.wg.Wait()
	return err
}
