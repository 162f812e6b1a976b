package ws_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatserver/internal/domain"
	"chatserver/internal/security"
	"chatserver/internal/service"
	"chatserver/internal/store/sqlite"
	"chatserver/internal/ws"
)

const testOrigin = "http://localhost:3000"

type wsFixture struct {
	ts     *httptest.Server
	tokens *security.TokenService
	repos  *domain.Repositories
	hub    *ws.Hub
}

func newWSFixture(t *testing.T) *wsFixture {
	t.Helper()

	db, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	require.NoError(t, sqlite.Migrate(db))
	t.Cleanup(func() { db.Close() })

	repos := sqlite.NewRepositories(db)
	tokens := security.NewTokenService("access-secret", "refresh-secret", 10*time.Minute, 24*time.Hour)
	msgSvc := service.NewMessageService(repos.Messages, repos.Media)
	groupSvc := service.NewGroupService(repos.Groups, repos.GroupMessages, repos.Users)
	hub := ws.NewHub()

	handler := ws.MakeHandler(hub, tokens, repos.Users, msgSvc, groupSvc, []string{testOrigin})
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	return &wsFixture{ts: ts, tokens: tokens, repos: repos, hub: hub}
}

func (f *wsFixture) createUser(t *testing.T, username, email string) *domain.User {
	t.Helper()
	u := &domain.User{
		ID:             uuid.NewString(),
		Username:       username,
		Email:          email,
		HashedPassword: "hashed",
		DisplayName:    username,
	}
	require.NoError(t, f.repos.Users.Create(context.Background(), u))
	return u
}

func (f *wsFixture) dial(t *testing.T, userID string) *websocket.Conn {
	t.Helper()
	token, err := f.tokens.IssueAccess(userID)
	require.NoError(t, err)

	url := "ws" + strings.TrimPrefix(f.ts.URL, "http")
	header := http.Header{
		"Origin":        []string{testOrigin},
		"Authorization": []string{"Bearer " + token},
	}
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, event string, data any) {
	t.Helper()
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(ws.Envelope{Event: event, Data: b}))
}

// readEvent reads frames until one with the wanted event arrives, skipping
// presence notifications interleaved by other connections.
func readEvent(t *testing.T, conn *websocket.Conn, want string) map[string]any {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		var reply struct {
			Event string         `json:"event"`
			Data  map[string]any `json:"data"`
		}
		require.NoError(t, conn.ReadJSON(&reply), "waiting for %s", want)
		if reply.Event == want {
			return reply.Data
		}
	}
}

// assertNoEvent drains frames for a short window and fails if one matching
// the event arrives.
func assertNoEvent(t *testing.T, conn *websocket.Conn, event string) {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
	for {
		var reply struct {
			Event string `json:"event"`
		}
		if err := conn.ReadJSON(&reply); err != nil {
			return
		}
		require.NotEqual(t, event, reply.Event, "unexpected %s frame", event)
	}
}

func TestDialRejectsBadOrigin(t *testing.T) {
	f := newWSFixture(t)
	u := f.createUser(t, "alice", "alice@example.com")
	token, err := f.tokens.IssueAccess(u.ID)
	require.NoError(t, err)

	url := "ws" + strings.TrimPrefix(f.ts.URL, "http")
	header := http.Header{
		"Origin":        []string{"http://evil.example.com"},
		"Authorization": []string{"Bearer " + token},
	}
	_, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestDialRejectsMissingToken(t *testing.T) {
	f := newWSFixture(t)

	url := "ws" + strings.TrimPrefix(f.ts.URL, "http")
	header := http.Header{"Origin": []string{testOrigin}}
	_, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestJoinAnnouncesPresence(t *testing.T) {
	f := newWSFixture(t)
	alice := f.createUser(t, "alice", "alice@example.com")

	conn := f.dial(t, alice.ID)
	send(t, conn, ws.EventJoin, map[string]string{"userId": alice.ID})

	data := readEvent(t, conn, ws.EventOnlineUsers)
	ids := data["userIds"].([]any)
	assert.Equal(t, []any{alice.ID}, ids)

	data = readEvent(t, conn, ws.EventUserOnline)
	assert.Equal(t, alice.ID, data["userId"])
}

func TestJoinRejectsForeignUserID(t *testing.T) {
	f := newWSFixture(t)
	alice := f.createUser(t, "alice", "alice@example.com")

	conn := f.dial(t, alice.ID)
	send(t, conn, ws.EventJoin, map[string]string{"userId": "someone-else"})

	data := readEvent(t, conn, ws.EventError)
	assert.Contains(t, data["message"], "does not match")
	assert.Empty(t, f.hub.OnlineUserIDs())
}

func TestSendMessageDeliversAndPersists(t *testing.T) {
	f := newWSFixture(t)
	alice := f.createUser(t, "alice", "alice@example.com")
	bob := f.createUser(t, "bob", "bob@example.com")

	aliceConn := f.dial(t, alice.ID)
	bobConn := f.dial(t, bob.ID)
	send(t, aliceConn, ws.EventJoin, map[string]string{"userId": alice.ID})
	readEvent(t, aliceConn, ws.EventOnlineUsers)
	send(t, bobConn, ws.EventJoin, map[string]string{"userId": bob.ID})
	readEvent(t, bobConn, ws.EventOnlineUsers)

	send(t, aliceConn, ws.EventSendMessage, map[string]string{
		"senderId":   alice.ID,
		"receiverId": bob.ID,
		"content":    "hello bob",
	})

	data := readEvent(t, bobConn, ws.EventReceiveMessage)
	assert.Equal(t, "hello bob", data["content"])
	assert.Equal(t, alice.ID, data["senderId"])
	assert.NotEmpty(t, data["id"])

	// Delivery goes to the receiver's personal room only.
	assertNoEvent(t, aliceConn, ws.EventReceiveMessage)

	msgs, err := f.repos.Messages.ListBetween(context.Background(), alice.ID, bob.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "hello bob", msgs[0].Content)
}

func TestSelfMessageDeliveredOnce(t *testing.T) {
	f := newWSFixture(t)
	alice := f.createUser(t, "alice", "alice@example.com")

	conn := f.dial(t, alice.ID)
	send(t, conn, ws.EventJoin, map[string]string{"userId": alice.ID})
	readEvent(t, conn, ws.EventOnlineUsers)

	send(t, conn, ws.EventSendMessage, map[string]string{
		"senderId":   alice.ID,
		"receiverId": alice.ID,
		"content":    "note to self",
	})

	data := readEvent(t, conn, ws.EventReceiveMessage)
	assert.Equal(t, "note to self", data["content"])
	assertNoEvent(t, conn, ws.EventReceiveMessage)

	msgs, err := f.repos.Messages.ListBetween(context.Background(), alice.ID, alice.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
}

func TestSendMessageRejectsSpoofedSender(t *testing.T) {
	f := newWSFixture(t)
	alice := f.createUser(t, "alice", "alice@example.com")
	bob := f.createUser(t, "bob", "bob@example.com")

	conn := f.dial(t, alice.ID)
	send(t, conn, ws.EventJoin, map[string]string{"userId": alice.ID})
	readEvent(t, conn, ws.EventOnlineUsers)

	send(t, conn, ws.EventSendMessage, map[string]string{
		"senderId":   bob.ID,
		"receiverId": alice.ID,
		"content":    "spoofed",
	})

	data := readEvent(t, conn, ws.EventError)
	assert.Contains(t, data["message"], "does not match")

	msgs, err := f.repos.Messages.ListBetween(context.Background(), alice.ID, bob.ID)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestGroupMessaging(t *testing.T) {
	f := newWSFixture(t)
	alice := f.createUser(t, "alice", "alice@example.com")
	bob := f.createUser(t, "bob", "bob@example.com")

	group := &domain.Group{ID: uuid.NewString(), Name: "plans"}
	require.NoError(t, f.repos.Groups.Create(context.Background(), group, []string{alice.ID, bob.ID}))

	aliceConn := f.dial(t, alice.ID)
	bobConn := f.dial(t, bob.ID)
	// Alice subscribes to the group room at join; Bob joins it late.
	send(t, aliceConn, ws.EventJoin, map[string]any{"userId": alice.ID, "groupIds": []string{group.ID}})
	readEvent(t, aliceConn, ws.EventOnlineUsers)
	send(t, bobConn, ws.EventJoin, map[string]string{"userId": bob.ID})
	readEvent(t, bobConn, ws.EventOnlineUsers)

	send(t, bobConn, ws.EventJoinGroup, map[string]string{"groupId": group.ID})

	// Give the server a beat to process the late subscription before sending.
	time.Sleep(50 * time.Millisecond)

	send(t, aliceConn, ws.EventSendGroupMsg, map[string]string{
		"senderId": alice.ID,
		"groupId":  group.ID,
		"content":  "meeting at 5",
	})

	data := readEvent(t, bobConn, ws.EventReceiveGroupMsg)
	assert.Equal(t, "meeting at 5", data["content"])
	assert.Equal(t, "alice", data["senderName"])

	send(t, bobConn, ws.EventGetGroupMembers, map[string]string{"groupId": group.ID})
	data = readEvent(t, bobConn, ws.EventGroupMembers)
	assert.Equal(t, group.ID, data["groupId"])
	assert.Len(t, data["members"], 2)
	assert.Equal(t, float64(2), data["onlineCount"])
}

func TestDisconnectBroadcastsOffline(t *testing.T) {
	f := newWSFixture(t)
	alice := f.createUser(t, "alice", "alice@example.com")
	bob := f.createUser(t, "bob", "bob@example.com")

	aliceConn := f.dial(t, alice.ID)
	bobConn := f.dial(t, bob.ID)
	send(t, aliceConn, ws.EventJoin, map[string]string{"userId": alice.ID})
	readEvent(t, aliceConn, ws.EventOnlineUsers)
	send(t, bobConn, ws.EventJoin, map[string]string{"userId": bob.ID})
	readEvent(t, bobConn, ws.EventOnlineUsers)

	aliceConn.Close()

	data := readEvent(t, bobConn, ws.EventUserOffline)
	assert.Equal(t, alice.ID, data["userId"])
}
