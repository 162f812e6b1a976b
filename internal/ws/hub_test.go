package ws

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSession() *Session {
	return &Session{send: make(chan []byte, 8)}
}

func drainOne(t *testing.T, s *Session) Reply {
	t.Helper()
	select {
	case b := <-s.send:
		var r Reply
		require.NoError(t, json.Unmarshal(b, &r))
		return r
	default:
		t.Fatal("expected a queued frame")
		return Reply{}
	}
}

func TestRegisterReturnsSortedSnapshot(t *testing.T) {
	hub := NewHub()
	s1 := newTestSession()
	s2 := newTestSession()
	hub.Attach(s1)
	hub.Attach(s2)

	hub.Register("bob", s1)
	snapshot := hub.Register("alice", s2)

	assert.Equal(t, []string{"alice", "bob"}, snapshot)
	assert.Equal(t, []string{"alice", "bob"}, hub.OnlineUserIDs())
}

func TestSecondConnectionOverwritesFirst(t *testing.T) {
	hub := NewHub()
	s1 := newTestSession()
	s2 := newTestSession()
	hub.Attach(s1)
	hub.Attach(s2)

	hub.Register("u1", s1)
	hub.Register("u1", s2)

	assert.Equal(t, []string{"u1"}, hub.OnlineUserIDs())

	// The stale connection's disconnect must not evict the live one.
	userID, wasPresent := hub.Unregister(s1)
	assert.Empty(t, userID)
	assert.False(t, wasPresent)
	assert.Equal(t, []string{"u1"}, hub.OnlineUserIDs())

	userID, wasPresent = hub.Unregister(s2)
	assert.Equal(t, "u1", userID)
	assert.True(t, wasPresent)
	assert.Empty(t, hub.OnlineUserIDs())
}

func TestUnregisterUnknownSession(t *testing.T) {
	hub := NewHub()
	s := newTestSession()

	userID, wasPresent := hub.Unregister(s)
	assert.Empty(t, userID)
	assert.False(t, wasPresent)
}

func TestUnregisterClosesSendChannel(t *testing.T) {
	hub := NewHub()
	s := newTestSession()
	hub.Attach(s)
	hub.Register("u1", s)

	hub.Unregister(s)

	_, open := <-s.send
	assert.False(t, open)
}

func TestBroadcastReachesOnlyRoomMembers(t *testing.T) {
	hub := NewHub()
	member := newTestSession()
	outsider := newTestSession()
	hub.Attach(member)
	hub.Attach(outsider)
	hub.JoinRoom(member, "g1")

	hub.Broadcast("g1", Reply{Event: EventReceiveGroupMsg, Data: map[string]any{"content": "hi"}})

	got := drainOne(t, member)
	assert.Equal(t, EventReceiveGroupMsg, got.Event)
	assert.Empty(t, outsider.send)
}

func TestBroadcastEmptyRoomIsNoop(t *testing.T) {
	hub := NewHub()
	s := newTestSession()
	hub.Attach(s)

	hub.Broadcast("nobody-here", Reply{Event: EventReceiveMessage})
	assert.Empty(t, s.send)
}

func TestJoinRoomIgnoresDetachedSession(t *testing.T) {
	hub := NewHub()
	s := newTestSession()

	hub.JoinRoom(s, "g1")
	hub.Broadcast("g1", Reply{Event: EventReceiveGroupMsg})
	assert.Empty(t, s.send)
}

func TestBroadcastAllReachesUnannouncedSessions(t *testing.T) {
	hub := NewHub()
	joined := newTestSession()
	lurker := newTestSession()
	hub.Attach(joined)
	hub.Attach(lurker)
	hub.Register("u1", joined)

	hub.BroadcastAll(Reply{Event: EventUserOnline, Data: map[string]any{"userId": "u1"}})

	assert.Equal(t, EventUserOnline, drainOne(t, joined).Event)
	assert.Equal(t, EventUserOnline, drainOne(t, lurker).Event)
}

func TestOnlineCount(t *testing.T) {
	hub := NewHub()
	s := newTestSession()
	hub.Attach(s)
	hub.Register("u1", s)

	assert.Equal(t, 1, hub.OnlineCount([]string{"u1", "u2", "u3"}))
	assert.Equal(t, 0, hub.OnlineCount(nil))
}
