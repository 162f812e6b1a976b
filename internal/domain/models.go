package domain

import "time"

// Message types accepted on the wire and stored in the message_type columns.
const (
	MessageTypeText  = "text"
	MessageTypeImage = "image"
	MessageTypeVideo = "video"
)

// User represents an application user.
type User struct {
	ID             string    `db:"id" json:"id"`
	Username       string    `db:"username" json:"username"`
	Email          string    `db:"email" json:"email"`
	HashedPassword string    `db:"hashed_password" json:"-"`
	DisplayName    string    `db:"display_name" json:"displayName"`
	ProfilePicture *string   `db:"profile_picture" json:"profilePicture"`
	RefreshToken   *string   `db:"refresh_token" json:"-"`
	CreatedAt      time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time `db:"updated_at" json:"updatedAt"`
}

// Message is a direct (1:1) chat message. Immutable after creation except
// for the seen-by set.
type Message struct {
	ID          string    `db:"id" json:"id"`
	SenderID    string    `db:"sender_id" json:"senderId"`
	ReceiverID  string    `db:"receiver_id" json:"receiverId"`
	MessageType string    `db:"message_type" json:"messageType"`
	Content     string    `db:"content" json:"content"`
	SeenBy      []string  `db:"seen_by" json:"seenBy"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
}

// GroupMessage is a message posted to a group room.
type GroupMessage struct {
	ID          string    `db:"id" json:"id"`
	SenderID    string    `db:"sender_id" json:"senderId"`
	GroupID     string    `db:"group_id" json:"groupId"`
	MessageType string    `db:"message_type" json:"messageType"`
	Content     string    `db:"content" json:"content"`
	SeenBy      []string  `db:"seen_by" json:"seenBy"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
}

// Group is a named chat group. The creator becomes its first member.
type Group struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// GroupMember is the membership of a user in a group. A row grants read
// access to the group's history and its broadcast events.
type GroupMember struct {
	GroupID  string    `db:"group_id" json:"groupId"`
	UserID   string    `db:"user_id" json:"userId"`
	JoinedAt time.Time `db:"joined_at" json:"joinedAt"`
}

// Media is an uploaded attachment associated with a message.
type Media struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"userId"`
	MessageID string    `db:"message_id" json:"messageId"`
	MediaType string    `db:"media_type" json:"mediaType"`
	MediaURL  string    `db:"media_url" json:"mediaUrl"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}
