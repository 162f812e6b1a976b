package httpserver

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"chatserver/internal/service"
)

func handleListMessages(msgSvc *service.MessageService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		senderID := chi.URLParam(r, "senderID")
		receiverID := chi.URLParam(r, "receiverID")

		msgs, err := msgSvc.History(r.Context(), senderID, receiverID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, msgs)
	}
}

type createMessageRequest struct {
	ReceiverID string `json:"receiverId"`
	Content    string `json:"content"`
	MediaURL   string `json:"mediaUrl"`
	MediaType  string `json:"mediaType"`
}

func handleCreateMessage(msgSvc *service.MessageService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := CurrentUser(r)
		if user == nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}

		var req createMessageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
			return
		}

		msg, err := msgSvc.Send(r.Context(), service.MessageSendInput{
			SenderID:   user.ID,
			ReceiverID: req.ReceiverID,
			Content:    req.Content,
			MediaURL:   req.MediaURL,
			MediaType:  req.MediaType,
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, msg)
	}
}

func handleMarkMessageSeen(msgSvc *service.MessageService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := CurrentUser(r)
		if user == nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}

		messageID := chi.URLParam(r, "messageID")
		if err := msgSvc.MarkSeen(r.Context(), messageID, user.ID); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
