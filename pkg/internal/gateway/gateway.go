package gateway

import (
	"context"
	"time"

	"git.solsynth.dev/hypernet/converse/pkg/internal/models"
	"git.solsynth.dev/hypernet/converse/pkg/internal/services"
	"github.com/rs/zerolog/log"
)

type Config struct {
	SendBuffer   int
	PingInterval time.Duration
	IdleTimeout  time.Duration
}

func (v Config) withDefaults() Config {
	if v.SendBuffer <= 0 {
		v.SendBuffer = 64
	}
	if v.PingInterval <= 0 {
		v.PingInterval = 30 * time.Second
	}
	if v.IdleTimeout <= 0 {
		v.IdleTimeout = 3 * v.PingInterval
	}
	return v
}

// Gateway maps sessions to rooms and relays committed state changes to
// them. Everything it broadcasts goes through the fan-out, even in a
// single process.
type Gateway struct {
	hub      *Hub
	fanout   Fanout
	identity services.Identity
	cfg      Config
}

func New(identity services.Identity, fanout Fanout, cfg Config) *Gateway {
	if fanout == nil {
		fanout = NewLocalFanout()
	}
	return &Gateway{
		hub:      NewHub(),
		fanout:   fanout,
		identity: identity,
		cfg:      cfg.withDefaults(),
	}
}

func (v *Gateway) Config() Config {
	return v.cfg
}

func (v *Gateway) Hub() *Hub {
	return v.hub
}

// Start subscribes this process to the fan-out.
func (v *Gateway) Start(ctx context.Context) error {
	return v.fanout.Start(ctx, func(delivery models.Delivery) {
		v.hub.Deliver(delivery)
	})
}

func (v *Gateway) Stop() error {
	for _, s := range v.hub.Sessions() {
		v.Close(s)
	}
	return v.fanout.Close()
}

func (v *Gateway) Open() *Session {
	s := newSession(v.cfg.SendBuffer)
	v.hub.register(s)
	return s
}

// Authenticate resolves the handshake credential and puts the session in
// its personal room. A failed handshake disconnects the session.
func (v *Gateway) Authenticate(s *Session, token string) error {
	userId, err := v.identity.Resolve(token)
	if err != nil {
		v.Close(s)
		return err
	}
	if !s.authenticate(userId) {
		return services.ErrUnauthorized
	}
	v.hub.join(s, models.UserRoom(userId))

	log.Debug().Uint("user", userId).Str("session", s.ID).Msg("Gateway session authenticated.")
	return nil
}

func (v *Gateway) Join(s *Session, room string) bool {
	return v.hub.join(s, room)
}

func (v *Gateway) Leave(s *Session, room string) {
	v.hub.leave(s, room)
}

func (v *Gateway) Close(s *Session) {
	if v.hub.unregister(s) {
		log.Debug().Uint("user", s.UserID()).Str("session", s.ID).Msg("Gateway session disconnected.")
	}
}

// Broadcast publishes a committed change. Delivery is at most once, a
// failed publish is logged and dropped.
func (v *Gateway) Broadcast(delivery models.Delivery) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := v.fanout.Publish(ctx, delivery); err != nil {
		log.Error().Err(err).Strs("rooms", delivery.Rooms).Msg("An error occurred when publishing a broadcast...")
	}
}

// ReapIdle disconnects sessions silent for longer than the idle timeout.
func (v *Gateway) ReapIdle() int {
	deadline := time.Now().Add(-v.cfg.IdleTimeout)

	var count int
	for _, s := range v.hub.Sessions() {
		if s.LastActive().Before(deadline) {
			v.Close(s)
			count++
		}
	}
	if count > 0 {
		log.Info().Int("count", count).Msg("Reaped idle gateway sessions.")
	}
	return count
}
