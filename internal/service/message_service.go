package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"chatserver/internal/domain"
)

// MessageService persists direct messages and their media attachments.
type MessageService struct {
	messages domain.MessageRepository
	media    domain.MediaRepository
}

func NewMessageService(messages domain.MessageRepository, media domain.MediaRepository) *MessageService {
	return &MessageService{
		messages: messages,
		media:    media,
	}
}

type MessageSendInput struct {
	SenderID   string
	ReceiverID string
	Content    string
	MediaURL   string
	MediaType  string
}

// Send persists one message row, plus a media row when the input carries an
// attachment URL. The write is attempted once; there is no retry.
func (s *MessageService) Send(ctx context.Context, in MessageSendInput) (*domain.Message, error) {
	if in.SenderID == "" || in.ReceiverID == "" {
		return nil, domain.ErrInvalidInput
	}
	if in.Content == "" && in.MediaURL == "" {
		return nil, domain.ErrInvalidInput
	}

	messageType := domain.MessageTypeText
	content := in.Content
	if in.MediaURL != "" {
		content = in.MediaURL
		messageType = in.MediaType
		if messageType == "" {
			messageType = domain.MessageTypeImage
		}
	}

	msg := &domain.Message{
		ID:          uuid.NewString(),
		SenderID:    in.SenderID,
		ReceiverID:  in.ReceiverID,
		MessageType: messageType,
		Content:     content,
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("create message: %w", err)
	}

	if in.MediaURL != "" {
		media := &domain.Media{
			ID:        uuid.NewString(),
			UserID:    in.SenderID,
			MessageID: msg.ID,
			MediaType: messageType,
			MediaURL:  in.MediaURL,
		}
		if err := s.media.Create(ctx, media); err != nil {
			return nil, fmt.Errorf("create media: %w", err)
		}
	}

	return msg, nil
}

// History returns all messages between the two users, either direction, in
// insertion order.
func (s *MessageService) History(ctx context.Context, userA, userB string) ([]*domain.Message, error) {
	if userA == "" || userB == "" {
		return nil, domain.ErrInvalidInput
	}
	return s.messages.ListBetween(ctx, userA, userB)
}

// MarkSeen records a read receipt. Repeated calls for the same user leave a
// single entry in the seen-by set.
func (s *MessageService) MarkSeen(ctx context.Context, messageID, userID string) error {
	if messageID == "" || userID == "" {
		return domain.ErrInvalidInput
	}
	return s.messages.AddSeenBy(ctx, messageID, userID)
}
