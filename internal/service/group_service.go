package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"chatserver/internal/domain"
)

// GroupService manages groups, their membership, and group messages.
type GroupService struct {
	groups        domain.GroupRepository
	groupMessages domain.GroupMessageRepository
	users         domain.UserRepository
}

func NewGroupService(
	groups domain.GroupRepository,
	groupMessages domain.GroupMessageRepository,
	users domain.UserRepository,
) *GroupService {
	return &GroupService{
		groups:        groups,
		groupMessages: groupMessages,
		users:         users,
	}
}

// GroupWithMembers pairs a group with its member profiles.
type GroupWithMembers struct {
	*domain.Group
	Members []*domain.User `json:"members"`
}

// GroupMessageView is a group message enriched with sender display info for
// clients rendering the room.
type GroupMessageView struct {
	*domain.GroupMessage
	SenderName       string  `json:"senderName"`
	SenderProfilePic *string `json:"senderProfilePic"`
}

type GroupCreateInput struct {
	Name      string
	MemberIDs []string
}

// Create makes a new group with the creator as its first member. Duplicate
// member ids collapse to one membership row.
func (s *GroupService) Create(ctx context.Context, creatorID string, in GroupCreateInput) (*GroupWithMembers, error) {
	if in.Name == "" || len(in.MemberIDs) == 0 {
		return nil, domain.ErrInvalidInput
	}

	memberIDs := make([]string, 0, len(in.MemberIDs)+1)
	seen := map[string]struct{}{creatorID: {}}
	memberIDs = append(memberIDs, creatorID)
	for _, id := range in.MemberIDs {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		memberIDs = append(memberIDs, id)
	}

	group := &domain.Group{
		ID:   uuid.NewString(),
		Name: in.Name,
	}
	if err := s.groups.Create(ctx, group, memberIDs); err != nil {
		return nil, fmt.Errorf("create group: %w", err)
	}

	members, err := s.groups.ListMembers(ctx, group.ID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	return &GroupWithMembers{Group: group, Members: members}, nil
}

// ListForUser returns the user's groups with member profiles.
func (s *GroupService) ListForUser(ctx context.Context, userID string) ([]*GroupWithMembers, error) {
	groups, err := s.groups.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	result := make([]*GroupWithMembers, 0, len(groups))
	for _, g := range groups {
		members, err := s.groups.ListMembers(ctx, g.ID)
		if err != nil {
			return nil, fmt.Errorf("list members for %s: %w", g.ID, err)
		}
		result = append(result, &GroupWithMembers{Group: g, Members: members})
	}
	return result, nil
}

// Members returns the member profiles of a group.
func (s *GroupService) Members(ctx context.Context, groupID string) ([]*domain.User, error) {
	if groupID == "" {
		return nil, domain.ErrInvalidInput
	}
	return s.groups.ListMembers(ctx, groupID)
}

// Messages returns the group's history with sender display info. Reads are
// gated on membership.
func (s *GroupService) Messages(ctx context.Context, groupID, userID string) ([]*GroupMessageView, error) {
	isMember, err := s.groups.IsMember(ctx, groupID, userID)
	if err != nil {
		return nil, fmt.Errorf("check membership: %w", err)
	}
	if !isMember {
		return nil, domain.ErrForbidden
	}

	msgs, err := s.groupMessages.ListForGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}

	// Resolve each sender once.
	senders := make(map[string]*domain.User)
	views := make([]*GroupMessageView, 0, len(msgs))
	for _, m := range msgs {
		sender, ok := senders[m.SenderID]
		if !ok {
			sender, err = s.users.GetByID(ctx, m.SenderID)
			if err != nil && !errors.Is(err, domain.ErrNotFound) {
				return nil, fmt.Errorf("get sender: %w", err)
			}
			senders[m.SenderID] = sender
		}
		views = append(views, newGroupMessageView(m, sender))
	}
	return views, nil
}

type GroupMessageSendInput struct {
	SenderID    string
	GroupID     string
	Content     string
	MessageType string
}

// SendMessage persists a group message and returns it enriched with the
// sender's display info. Membership is not re-validated here; a sender
// outside the membership table still persists and broadcasts.
func (s *GroupService) SendMessage(ctx context.Context, in GroupMessageSendInput) (*GroupMessageView, error) {
	if in.SenderID == "" || in.GroupID == "" || in.Content == "" {
		return nil, domain.ErrInvalidInput
	}

	sender, err := s.users.GetByID(ctx, in.SenderID)
	if err != nil {
		return nil, fmt.Errorf("get sender: %w", err)
	}

	messageType := in.MessageType
	if messageType == "" {
		messageType = domain.MessageTypeText
	}

	msg := &domain.GroupMessage{
		ID:          uuid.NewString(),
		SenderID:    in.SenderID,
		GroupID:     in.GroupID,
		MessageType: messageType,
		Content:     in.Content,
	}
	if err := s.groupMessages.Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("create group message: %w", err)
	}

	return newGroupMessageView(msg, sender), nil
}

// MarkSeen records a read receipt on a group message, deduplicated.
func (s *GroupService) MarkSeen(ctx context.Context, messageID, userID string) error {
	if messageID == "" || userID == "" {
		return domain.ErrInvalidInput
	}
	return s.groupMessages.AddSeenBy(ctx, messageID, userID)
}

func newGroupMessageView(m *domain.GroupMessage, sender *domain.User) *GroupMessageView {
	view := &GroupMessageView{GroupMessage: m, SenderName: "Unknown"}
	if sender != nil {
		view.SenderName = sender.Username
		view.SenderProfilePic = sender.ProfilePicture
	}
	return view
}
