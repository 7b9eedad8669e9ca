package gateway

import (
	"strings"
	"sync"

	"git.solsynth.dev/hypernet/converse/pkg/internal/models"
	"github.com/samber/lo"
)

func isConversationRoom(room string) bool {
	return strings.HasPrefix(room, "conversation:")
}

// Hub is the in-process room table. It only knows about the sessions
// connected to this process.
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	rooms    map[string]map[string]*Session
}

func NewHub() *Hub {
	return &Hub{
		sessions: make(map[string]*Session),
		rooms:    make(map[string]map[string]*Session),
	}
}

func (h *Hub) register(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sessions[s.ID] = s
}

func (h *Hub) join(s *Session, room string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.sessions[s.ID]; !ok {
		return false
	}
	if !s.addRoom(room, isConversationRoom(room)) {
		return false
	}
	if _, ok := h.rooms[room]; !ok {
		h.rooms[room] = make(map[string]*Session)
	}
	h.rooms[room][s.ID] = s
	return true
}

func (h *Hub) leave(s *Session, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	s.removeRoom(room)
	h.dropFromRoom(s.ID, room)
}

func (h *Hub) dropFromRoom(id, room string) {
	if members, ok := h.rooms[room]; ok {
		delete(members, id)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
}

func (h *Hub) unregister(s *Session) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	rooms, ok := s.disconnect()
	for _, room := range rooms {
		h.dropFromRoom(s.ID, room)
	}
	delete(h.sessions, s.ID)
	return ok
}

// Deliver hands the body to every session in any of the rooms, once per
// session no matter how many of the rooms it sits in. Evictions are applied
// instead of delivered.
func (h *Hub) Deliver(delivery models.Delivery) int {
	if delivery.Evict > 0 {
		return h.evict(delivery.Evict, delivery.Rooms)
	}

	h.mu.RLock()
	targets := make(map[string]*Session)
	for _, room := range delivery.Rooms {
		for id, s := range h.rooms[room] {
			targets[id] = s
		}
	}
	h.mu.RUnlock()

	var count int
	for _, s := range targets {
		if delivery.ExceptUser > 0 && s.UserID() == delivery.ExceptUser {
			continue
		}
		if s.enqueue(delivery.Body) {
			count++
		}
	}
	return count
}

// evict removes every local session of the user from the rooms and
// returns how many memberships were dropped.
func (h *Hub) evict(userId uint, rooms []string) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	var count int
	for _, room := range rooms {
		for id, s := range h.rooms[room] {
			if s.UserID() != userId {
				continue
			}
			s.removeRoom(room)
			h.dropFromRoom(id, room)
			count++
		}
	}
	return count
}

func (h *Hub) Sessions() []*Session {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return lo.Values(h.sessions)
}

func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}
