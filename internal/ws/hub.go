package ws

import (
	"encoding/json"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"

	"chatserver/internal/metrics"
)

// Hub owns the presence registry and the room router. The registry maps each
// user id to its single most-recent session; the router maps room names to
// subscribed sessions (one personal room per user, one room per group).
// All state is in memory and lost on restart. Handlers run on per-connection
// goroutines, so every mutation goes through the mutex.
type Hub struct {
	mu       sync.RWMutex
	sessions map[*Session]struct{}
	presence map[string]*Session
	rooms    map[string]map[*Session]struct{}
}

func NewHub() *Hub {
	return &Hub{
		sessions: make(map[*Session]struct{}),
		presence: make(map[string]*Session),
		rooms:    make(map[string]map[*Session]struct{}),
	}
}

// Attach starts tracking a connection that has not announced its identity yet.
func (h *Hub) Attach(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sessions[s] = struct{}{}
	metrics.WsConnections.Inc()
}

// Register records the session as the user's active connection and returns
// the online-user snapshot, including the registrant. A second connection for
// the same user silently overwrites the first; the first stays subscribed to
// its rooms until its own disconnect.
func (h *Hub) Register(userID string, s *Session) []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	s.userID = userID
	h.presence[userID] = s
	metrics.WsOnlineUsers.Set(float64(len(h.presence)))

	ids := make([]string, 0, len(h.presence))
	for id := range h.presence {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Unregister detaches the session, drops its room subscriptions, and evicts
// it from the presence registry. Eviction matches session identity, not user
// id alone: a connection that was overwritten by a newer one does not evict
// the newer registration when it finally disconnects. The reported user id is
// only non-empty when a presence entry was actually removed.
func (h *Hub) Unregister(s *Session) (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.sessions[s]; !ok {
		return "", false
	}
	delete(h.sessions, s)
	metrics.WsConnections.Dec()

	for roomID, members := range h.rooms {
		delete(members, s)
		if len(members) == 0 {
			delete(h.rooms, roomID)
		}
	}

	close(s.send)

	if s.userID != "" && h.presence[s.userID] == s {
		delete(h.presence, s.userID)
		metrics.WsOnlineUsers.Set(float64(len(h.presence)))
		return s.userID, true
	}
	return "", false
}

// JoinRoom subscribes the session to a room, creating it on first use.
func (h *Hub) JoinRoom(s *Session, roomID string) {
	if roomID == "" {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.sessions[s]; !ok {
		return
	}
	if h.rooms[roomID] == nil {
		h.rooms[roomID] = make(map[*Session]struct{})
	}
	h.rooms[roomID][s] = struct{}{}
}

// Broadcast delivers the payload to every session subscribed to the room.
// Delivery is best-effort: a session whose send buffer is full gets its
// connection dropped rather than stalling the room.
func (h *Hub) Broadcast(roomID string, payload any) {
	b, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Str("room", roomID).Msg("ws: marshal broadcast")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for s := range h.rooms[roomID] {
		s.enqueue(b)
	}
}

// BroadcastAll delivers the payload to every attached session, announced or
// not. Used for presence notifications.
func (h *Hub) BroadcastAll(payload any) {
	b, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Msg("ws: marshal broadcast")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for s := range h.sessions {
		s.enqueue(b)
	}
}

// OnlineUserIDs returns the current presence snapshot.
func (h *Hub) OnlineUserIDs() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	ids := make([]string, 0, len(h.presence))
	for id := range h.presence {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// OnlineCount reports how many of the given users are currently registered.
func (h *Hub) OnlineCount(userIDs []string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, id := range userIDs {
		if _, ok := h.presence[id]; ok {
			n++
		}
	}
	return n
}
