package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"chatserver/internal/domain"
	"chatserver/internal/metrics"
	"chatserver/internal/security"
	"chatserver/internal/service"
)

type wsAuthError struct {
	status int
	msg    string
}

func (e wsAuthError) Error() string {
	return e.msg
}

func normalizeAllowedOrigins(origins []string) map[string]struct{} {
	res := make(map[string]struct{}, len(origins))
	for _, origin := range origins {
		o := strings.TrimSpace(strings.ToLower(origin))
		if o != "" {
			res[o] = struct{}{}
		}
	}
	return res
}

func makeCheckOrigin(allowedOrigins []string) func(r *http.Request) bool {
	allowed := normalizeAllowedOrigins(allowedOrigins)
	if len(allowed) == 0 {
		return func(r *http.Request) bool {
			return false
		}
	}

	return func(r *http.Request) bool {
		origin := strings.TrimSpace(strings.ToLower(r.Header.Get("Origin")))
		if origin == "" {
			return false
		}
		if _, ok := allowed[origin]; ok {
			return true
		}

		u, err := url.Parse(origin)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return false
		}
		normalized := strings.ToLower(fmt.Sprintf("%s://%s", u.Scheme, u.Host))
		_, ok := allowed[normalized]
		return ok
	}
}

func extractTokenFromWSRequest(r *http.Request) (string, error) {
	authHeader := strings.TrimSpace(r.Header.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(authHeader), "bearer ") {
		token := strings.TrimSpace(authHeader[len("Bearer "):])
		if token != "" {
			return token, nil
		}
	}

	protocolHeader := r.Header.Get("Sec-WebSocket-Protocol")
	if protocolHeader != "" {
		parts := strings.Split(protocolHeader, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		if len(parts) >= 2 && strings.EqualFold(parts[0], "bearer") {
			if token := parts[1]; token != "" {
				return token, nil
			}
		}
	}

	if token := r.URL.Query().Get("token"); token != "" {
		return token, nil
	}

	return "", wsAuthError{status: http.StatusUnauthorized, msg: "missing bearer token"}
}

// MakeHandler returns the HTTP handler for the /ws endpoint.
// Authenticates via Bearer token (Authorization header, Sec-WebSocket-Protocol,
// or token query parameter), then dispatches events:
//   - join             -> register presence, subscribe personal + listed group rooms, reply onlineUsers, announce userOnline
//   - joinGroup        -> subscribe the group's room
//   - sendMessage      -> persist direct message, broadcast receiveMessage to the receiver's personal room
//   - sendGroupMessage -> persist group message, broadcast receiveGroupMessage to the group room
//   - getGroupMembers  -> reply groupMembers to the requesting session
func MakeHandler(
	hub *Hub,
	tokens *security.TokenService,
	users domain.UserRepository,
	msgSvc *service.MessageService,
	groupSvc *service.GroupService,
	allowedOrigins []string,
) http.HandlerFunc {
	checkOrigin := makeCheckOrigin(allowedOrigins)
	upgrader := websocket.Upgrader{
		CheckOrigin: checkOrigin,
		Subprotocols: []string{
			"bearer",
		},
	}

	return func(w http.ResponseWriter, r *http.Request) {
		if !checkOrigin(r) {
			http.Error(w, "origin not allowed", http.StatusForbidden)
			return
		}

		tokenStr, err := extractTokenFromWSRequest(r)
		if err != nil {
			if authErr, ok := err.(wsAuthError); ok {
				http.Error(w, authErr.msg, authErr.status)
				return
			}
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		sub, err := tokens.ParseAccess(tokenStr)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}

		user, err := users.GetByID(r.Context(), sub)
		if err != nil {
			http.Error(w, "user not found", http.StatusUnauthorized)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}

		serveSession(r.Context(), hub, conn, user, msgSvc, groupSvc)
	}
}

func serveSession(
	ctx context.Context,
	hub *Hub,
	conn *websocket.Conn,
	user *domain.User,
	msgSvc *service.MessageService,
	groupSvc *service.GroupService,
) {
	s := NewSession(hub, conn)
	hub.Attach(s)
	go s.writePump()

	conn.SetReadLimit(maxMessageSize)

	defer func() {
		userID, wasPresent := hub.Unregister(s)
		if wasPresent {
			hub.BroadcastAll(Reply{
				Event: EventUserOffline,
				Data:  map[string]any{"userId": userID},
			})
			log.Info().Str("user_id", userID).Msg("ws: user offline")
		}
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var env Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			sendError(s, "malformed event frame")
			continue
		}

		switch env.Event {

		case EventJoin:
			var p joinPayload
			if err := json.Unmarshal(env.Data, &p); err != nil || p.UserID == "" {
				sendError(s, "join requires userId")
				continue
			}
			if p.UserID != user.ID {
				sendError(s, "join userId does not match the authenticated user")
				continue
			}
			online := hub.Register(p.UserID, s)
			hub.JoinRoom(s, p.UserID)
			for _, groupID := range p.GroupIDs {
				hub.JoinRoom(s, groupID)
			}
			sendReply(s, EventOnlineUsers, map[string]any{"userIds": online})
			hub.BroadcastAll(Reply{
				Event: EventUserOnline,
				Data:  map[string]any{"userId": p.UserID},
			})
			log.Info().Str("user_id", p.UserID).Msg("ws: user online")

		case EventJoinGroup:
			var p joinGroupPayload
			if err := json.Unmarshal(env.Data, &p); err != nil || p.GroupID == "" {
				sendError(s, "joinGroup requires groupId")
				continue
			}
			hub.JoinRoom(s, p.GroupID)

		case EventSendMessage:
			var p sendMessagePayload
			if err := json.Unmarshal(env.Data, &p); err != nil {
				sendError(s, "malformed sendMessage payload")
				continue
			}
			if p.SenderID != user.ID {
				sendError(s, "senderId does not match the authenticated user")
				continue
			}
			msg, err := msgSvc.Send(ctx, service.MessageSendInput{
				SenderID:   p.SenderID,
				ReceiverID: p.ReceiverID,
				Content:    p.Content,
				MediaURL:   p.MediaURL,
				MediaType:  p.MediaType,
			})
			if err != nil {
				log.Error().Err(err).Str("sender_id", p.SenderID).Msg("ws: send message")
				sendError(s, "failed to send message")
				continue
			}
			metrics.MessagesTotal.WithLabelValues("direct").Inc()
			hub.Broadcast(msg.ReceiverID, Reply{Event: EventReceiveMessage, Data: msg})

		case EventSendGroupMsg:
			var p sendGroupMessagePayload
			if err := json.Unmarshal(env.Data, &p); err != nil {
				sendError(s, "malformed sendGroupMessage payload")
				continue
			}
			if p.SenderID != user.ID {
				sendError(s, "senderId does not match the authenticated user")
				continue
			}
			view, err := groupSvc.SendMessage(ctx, service.GroupMessageSendInput{
				SenderID:    p.SenderID,
				GroupID:     p.GroupID,
				Content:     p.Content,
				MessageType: p.MessageType,
			})
			if err != nil {
				log.Error().Err(err).Str("group_id", p.GroupID).Msg("ws: send group message")
				sendError(s, "failed to send group message")
				continue
			}
			metrics.MessagesTotal.WithLabelValues("group").Inc()
			hub.Broadcast(p.GroupID, Reply{Event: EventReceiveGroupMsg, Data: view})

		case EventGetGroupMembers:
			var p getGroupMembersPayload
			if err := json.Unmarshal(env.Data, &p); err != nil || p.GroupID == "" {
				sendError(s, "getGroupMembers requires groupId")
				continue
			}
			members, err := groupSvc.Members(ctx, p.GroupID)
			if err != nil {
				log.Error().Err(err).Str("group_id", p.GroupID).Msg("ws: list group members")
				sendError(s, "failed to list group members")
				continue
			}
			ids := make([]string, len(members))
			for i, m := range members {
				ids[i] = m.ID
			}
			sendReply(s, EventGroupMembers, map[string]any{
				"groupId":     p.GroupID,
				"members":     members,
				"onlineCount": hub.OnlineCount(ids),
			})

		default:
			sendError(s, "unknown event: "+env.Event)
		}
	}
}

func sendReply(s *Session, event string, data any) {
	b, err := json.Marshal(Reply{Event: event, Data: data})
	if err != nil {
		log.Error().Err(err).Str("event", event).Msg("ws: marshal reply")
		return
	}
	s.enqueue(b)
}

func sendError(s *Session, msg string) {
	sendReply(s, EventError, errorPayload{Message: msg})
}
