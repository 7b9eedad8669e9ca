package gateway

import (
	"sync"
	"sync/atomic"
	"time"

	"git.solsynth.dev/hypernet/converse/pkg/internal/models"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

type SessionState int32

const (
	SessionConnecting SessionState = iota
	SessionAuthenticated
	SessionJoined
	SessionDisconnected
)

func (v SessionState) String() string {
	switch v {
	case SessionConnecting:
		return "connecting"
	case SessionAuthenticated:
		return "authenticated"
	case SessionJoined:
		return "joined"
	default:
		return "disconnected"
	}
}

// Session is one client connection. Disconnected is terminal, a reconnecting
// client always gets a fresh session.
type Session struct {
	ID string

	mu     sync.Mutex
	state  SessionState
	userId uint
	rooms  map[string]struct{}
	send   chan []byte
	done   chan struct{}

	lastActive atomic.Int64
}

func newSession(buffer int) *Session {
	s := &Session{
		ID:    uuid.NewString(),
		state: SessionConnecting,
		rooms: make(map[string]struct{}),
		send:  make(chan []byte, buffer),
		done:  make(chan struct{}),
	}
	s.Touch()
	return s
}

func (s *Session) UserID() uint {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userId
}

func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Rooms() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return lo.Keys(s.rooms)
}

func (s *Session) InRoom(room string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.rooms[room]
	return ok
}

// Outbound yields encoded frames for the transport writer. It is closed
// once the session is disconnected.
func (s *Session) Outbound() <-chan []byte {
	return s.send
}

func (s *Session) Done() <-chan struct{} {
	return s.done
}

func (s *Session) Touch() {
	s.lastActive.Store(time.Now().UnixNano())
}

func (s *Session) LastActive() time.Time {
	return time.Unix(0, s.lastActive.Load())
}

// Reply queues a package for this session only.
func (s *Session) Reply(pkg models.WebSocketPackage) bool {
	return s.enqueue(pkg.Marshal())
}

// enqueue never blocks. A client that cannot keep up loses the frame,
// it will catch up through the pull path.
func (s *Session) enqueue(body []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == SessionDisconnected {
		return false
	}
	select {
	case s.send <- body:
		return true
	default:
		return false
	}
}

func (s *Session) authenticate(userId uint) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != SessionConnecting {
		return false
	}
	s.userId = userId
	s.state = SessionAuthenticated
	return true
}

func (s *Session) addRoom(room string, conversation bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == SessionConnecting || s.state == SessionDisconnected {
		return false
	}
	s.rooms[room] = struct{}{}
	if conversation {
		s.state = SessionJoined
	}
	return true
}

func (s *Session) removeRoom(room string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rooms, room)
	if s.state == SessionJoined && !lo.SomeBy(lo.Keys(s.rooms), isConversationRoom) {
		s.state = SessionAuthenticated
	}
}

// disconnect reports false when the session was already gone.
func (s *Session) disconnect() ([]string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == SessionDisconnected {
		return nil, false
	}
	s.state = SessionDisconnected
	rooms := lo.Keys(s.rooms)
	clear(s.rooms)
	close(s.done)
	close(s.send)
	return rooms, true
}
