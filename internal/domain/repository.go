package domain

import "context"

// UserRepository defines persistence operations for users.
type UserRepository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	List(ctx context.Context) ([]*User, error)
	UpdateRefreshToken(ctx context.Context, id string, token *string) error
	UpdateProfilePicture(ctx context.Context, id string, url string) error
}

// MessageRepository defines persistence operations for direct messages.
type MessageRepository interface {
	Create(ctx context.Context, m *Message) error
	ListBetween(ctx context.Context, userA, userB string) ([]*Message, error)
	AddSeenBy(ctx context.Context, messageID, userID string) error
}

// GroupMessageRepository defines persistence operations for group messages.
type GroupMessageRepository interface {
	Create(ctx context.Context, m *GroupMessage) error
	ListForGroup(ctx context.Context, groupID string) ([]*GroupMessage, error)
	AddSeenBy(ctx context.Context, messageID, userID string) error
}

// GroupRepository defines persistence operations for groups and their
// membership rows.
type GroupRepository interface {
	Create(ctx context.Context, g *Group, memberIDs []string) error
	GetByID(ctx context.Context, id string) (*Group, error)
	ListForUser(ctx context.Context, userID string) ([]*Group, error)
	ListMembers(ctx context.Context, groupID string) ([]*User, error)
	IsMember(ctx context.Context, groupID, userID string) (bool, error)
}

// MediaRepository defines persistence operations for uploaded attachments.
type MediaRepository interface {
	Create(ctx context.Context, m *Media) error
}

// Repositories bundles one implementation of every repository so stores can
// be swapped as a unit.
type Repositories struct {
	Users         UserRepository
	Messages      MessageRepository
	GroupMessages GroupMessageRepository
	Groups        GroupRepository
	Media         MediaRepository
}
