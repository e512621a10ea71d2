package app

import (
	"sync"

	"github.com/rs/zerolog/log"

	"trivia-session-service/internal/domain"
)

// Conn is a live real-time channel to one client.
// Send must not block; it returns an error when the message cannot be queued.
type Conn interface {
	Send(msg domain.Message) error
	Close() error
}

// Registry tracks live connections per game and client.
// At most one connection is held per (game, client); a later Connect replaces the earlier one.
type Registry struct {
	mu      sync.RWMutex
	rooms   map[string]map[string]Conn
	onEvict func(sessionID, clientID string)
}

func NewRegistry() *Registry {
	return &Registry{rooms: make(map[string]map[string]Conn)}
}

// OnEvict sets the callback run after a connection is dropped because a send failed.
func (r *Registry) OnEvict(fn func(sessionID, clientID string)) {
	r.mu.Lock()
	r.onEvict = fn
	r.mu.Unlock()
}

// Connect registers conn for the client, closing any connection it replaces.
func (r *Registry) Connect(sessionID, clientID string, conn Conn) {
	r.mu.Lock()
	room, ok := r.rooms[sessionID]
	if !ok {
		room = make(map[string]Conn)
		r.rooms[sessionID] = room
	}
	previous := room[clientID]
	room[clientID] = conn
	r.mu.Unlock()

	if previous != nil && previous != conn {
		_ = previous.Close()
		log.Debug().Str("game_id", sessionID).Str("client_id", clientID).Msg("replaced connection")
	}
}

// Disconnect drops whatever connection the client holds and prunes an empty room.
func (r *Registry) Disconnect(sessionID, clientID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.removeLocked(sessionID, clientID, nil)
}

// Release drops the client's connection only if it is still conn.
// A reader that outlived a reconnect must not remove its successor.
func (r *Registry) Release(sessionID, clientID string, conn Conn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.removeLocked(sessionID, clientID, conn)
}

func (r *Registry) removeLocked(sessionID, clientID string, expected Conn) bool {
	room, ok := r.rooms[sessionID]
	if !ok {
		return false
	}
	current, ok := room[clientID]
	if !ok || (expected != nil && current != expected) {
		return false
	}
	delete(room, clientID)
	if len(room) == 0 {
		delete(r.rooms, sessionID)
	}
	return true
}

// Broadcast attempts delivery to every client of the game. Clients whose send fails are evicted.
func (r *Registry) Broadcast(sessionID string, msg domain.Message) {
	type target struct {
		clientID string
		conn     Conn
	}

	r.mu.RLock()
	room := r.rooms[sessionID]
	targets := make([]target, 0, len(room))
	for clientID, conn := range room {
		targets = append(targets, target{clientID: clientID, conn: conn})
	}
	r.mu.RUnlock()

	for _, t := range targets {
		if err := t.conn.Send(msg); err != nil {
			r.evict(sessionID, t.clientID, t.conn, err)
		}
	}
}

// SendTo delivers msg to one client. It reports whether the message was queued.
func (r *Registry) SendTo(sessionID, clientID string, msg domain.Message) bool {
	r.mu.RLock()
	conn, ok := r.rooms[sessionID][clientID]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	if err := conn.Send(msg); err != nil {
		r.evict(sessionID, clientID, conn, err)
		return false
	}
	return true
}

// Count returns the number of live connections for a game.
func (r *Registry) Count(sessionID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms[sessionID])
}

// Connected reports whether the client currently holds a connection.
func (r *Registry) Connected(sessionID, clientID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.rooms[sessionID][clientID]
	return ok
}

// DropSession closes every connection of a game.
func (r *Registry) DropSession(sessionID string) {
	r.mu.Lock()
	room := r.rooms[sessionID]
	delete(r.rooms, sessionID)
	r.mu.Unlock()

	for _, conn := range room {
		_ = conn.Close()
	}
}

func (r *Registry) evict(sessionID, clientID string, conn Conn, cause error) {
	if !r.Release(sessionID, clientID, conn) {
		return
	}
	_ = conn.Close()
	log.Debug().Err(cause).Str("game_id", sessionID).Str("client_id", clientID).Msg("evicted connection after failed send")

	r.mu.RLock()
	onEvict := r.onEvict
	r.mu.RUnlock()
	if onEvict != nil {
		onEvict(sessionID, clientID)
	}
}
