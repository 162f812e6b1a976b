package ws

import "encoding/json"

// Client-to-server events.
const (
	EventJoin            = "join"
	EventJoinGroup       = "joinGroup"
	EventSendMessage     = "sendMessage"
	EventSendGroupMsg    = "sendGroupMessage"
	EventGetGroupMembers = "getGroupMembers"
)

// Server-to-client events.
const (
	EventOnlineUsers     = "onlineUsers"
	EventUserOnline      = "userOnline"
	EventUserOffline     = "userOffline"
	EventReceiveMessage  = "receiveMessage"
	EventReceiveGroupMsg = "receiveGroupMessage"
	EventGroupMembers    = "groupMembers"
	EventError           = "error"
)

// Envelope is the wire frame for both directions: a named event with an
// event-specific payload.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Reply is the outbound counterpart; Data marshals as-is.
type Reply struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

type joinPayload struct {
	UserID   string   `json:"userId"`
	GroupIDs []string `json:"groupIds"`
}

type joinGroupPayload struct {
	GroupID string `json:"groupId"`
}

type sendMessagePayload struct {
	SenderID   string `json:"senderId"`
	ReceiverID string `json:"receiverId"`
	Content    string `json:"content"`
	MediaURL   string `json:"mediaUrl,omitempty"`
	MediaType  string `json:"mediaType,omitempty"`
}

type sendGroupMessagePayload struct {
	GroupID     string `json:"groupId"`
	SenderID    string `json:"senderId"`
	Content     string `json:"content"`
	MessageType string `json:"messageType,omitempty"`
}

type getGroupMembersPayload struct {
	GroupID string `json:"groupId"`
}

type errorPayload struct {
	Message string `json:"message"`
}
