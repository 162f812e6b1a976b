package sqlite

import (
	"context"
	"database/sql"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatserver/internal/domain"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Open(":memory:")
	require.NoError(t, err)
	require.NoError(t, Migrate(db))
	t.Cleanup(func() { db.Close() })
	return db
}

func createUser(t *testing.T, repo *UserRepo, username, email string) *domain.User {
	t.Helper()
	u := &domain.User{
		ID:             uuid.NewString(),
		Username:       username,
		Email:          email,
		HashedPassword: "hashed",
		DisplayName:    username,
	}
	require.NoError(t, repo.Create(context.Background(), u))
	return u
}

func TestUserRepo(t *testing.T) {
	db := openTestDB(t)
	repo := NewUserRepo(db)
	ctx := context.Background()

	alice := createUser(t, repo, "alice", "alice@example.com")

	got, err := repo.GetByEmail(ctx, "alice@example.com")
	assert.NoError(t, err)
	assert.Equal(t, alice.ID, got.ID)
	assert.Equal(t, "alice", got.Username)
	assert.Nil(t, got.RefreshToken)

	_, err = repo.GetByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// Duplicate email rejected by the unique constraint.
	dup := &domain.User{
		ID:             uuid.NewString(),
		Username:       "alice2",
		Email:          "alice@example.com",
		HashedPassword: "hashed",
		DisplayName:    "alice2",
	}
	assert.Error(t, repo.Create(ctx, dup))

	token := "refresh-token"
	assert.NoError(t, repo.UpdateRefreshToken(ctx, alice.ID, &token))
	got, err = repo.GetByID(ctx, alice.ID)
	assert.NoError(t, err)
	require.NotNil(t, got.RefreshToken)
	assert.Equal(t, token, *got.RefreshToken)

	assert.NoError(t, repo.UpdateRefreshToken(ctx, alice.ID, nil))
	got, err = repo.GetByID(ctx, alice.ID)
	assert.NoError(t, err)
	assert.Nil(t, got.RefreshToken)
}

func TestMessageRepoListBetween(t *testing.T) {
	db := openTestDB(t)
	users := NewUserRepo(db)
	repo := NewMessageRepo(db)
	ctx := context.Background()

	alice := createUser(t, users, "alice", "alice@example.com")
	bob := createUser(t, users, "bob", "bob@example.com")
	carol := createUser(t, users, "carol", "carol@example.com")

	m1 := &domain.Message{ID: uuid.NewString(), SenderID: alice.ID, ReceiverID: bob.ID, MessageType: domain.MessageTypeText, Content: "hi"}
	m2 := &domain.Message{ID: uuid.NewString(), SenderID: bob.ID, ReceiverID: alice.ID, MessageType: domain.MessageTypeText, Content: "hello"}
	m3 := &domain.Message{ID: uuid.NewString(), SenderID: alice.ID, ReceiverID: carol.ID, MessageType: domain.MessageTypeText, Content: "other thread"}
	require.NoError(t, repo.Create(ctx, m1))
	require.NoError(t, repo.Create(ctx, m2))
	require.NoError(t, repo.Create(ctx, m3))

	msgs, err := repo.ListBetween(ctx, alice.ID, bob.ID)
	assert.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "hi", msgs[0].Content)
	assert.Equal(t, "hello", msgs[1].Content)
	assert.Equal(t, []string{}, msgs[0].SeenBy)

	// Same thread from the other side.
	msgs, err = repo.ListBetween(ctx, bob.ID, alice.ID)
	assert.NoError(t, err)
	assert.Len(t, msgs, 2)
}

func TestMessageRepoSeenByDedup(t *testing.T) {
	db := openTestDB(t)
	users := NewUserRepo(db)
	repo := NewMessageRepo(db)
	ctx := context.Background()

	alice := createUser(t, users, "alice", "alice@example.com")
	bob := createUser(t, users, "bob", "bob@example.com")

	m := &domain.Message{ID: uuid.NewString(), SenderID: alice.ID, ReceiverID: bob.ID, MessageType: domain.MessageTypeText, Content: "hi"}
	require.NoError(t, repo.Create(ctx, m))

	assert.NoError(t, repo.AddSeenBy(ctx, m.ID, bob.ID))
	assert.NoError(t, repo.AddSeenBy(ctx, m.ID, bob.ID))

	msgs, err := repo.ListBetween(ctx, alice.ID, bob.ID)
	assert.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, []string{bob.ID}, msgs[0].SeenBy)

	assert.ErrorIs(t, repo.AddSeenBy(ctx, uuid.NewString(), bob.ID), domain.ErrNotFound)
}

func TestGroupRepo(t *testing.T) {
	db := openTestDB(t)
	users := NewUserRepo(db)
	repo := NewGroupRepo(db)
	ctx := context.Background()

	alice := createUser(t, users, "alice", "alice@example.com")
	bob := createUser(t, users, "bob", "bob@example.com")
	carol := createUser(t, users, "carol", "carol@example.com")

	g := &domain.Group{ID: uuid.NewString(), Name: "weekend plans"}
	// Duplicate member rows collapse in the membership table.
	require.NoError(t, repo.Create(ctx, g, []string{alice.ID, bob.ID, bob.ID}))

	members, err := repo.ListMembers(ctx, g.ID)
	assert.NoError(t, err)
	assert.Len(t, members, 2)

	ok, err := repo.IsMember(ctx, g.ID, alice.ID)
	assert.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.IsMember(ctx, g.ID, carol.ID)
	assert.NoError(t, err)
	assert.False(t, ok)

	groups, err := repo.ListForUser(ctx, alice.ID)
	assert.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "weekend plans", groups[0].Name)

	groups, err = repo.ListForUser(ctx, carol.ID)
	assert.NoError(t, err)
	assert.Empty(t, groups)
}

func TestGroupMessageRepo(t *testing.T) {
	db := openTestDB(t)
	users := NewUserRepo(db)
	groups := NewGroupRepo(db)
	repo := NewGroupMessageRepo(db)
	ctx := context.Background()

	alice := createUser(t, users, "alice", "alice@example.com")
	g := &domain.Group{ID: uuid.NewString(), Name: "standup"}
	require.NoError(t, groups.Create(ctx, g, []string{alice.ID}))

	m := &domain.GroupMessage{ID: uuid.NewString(), SenderID: alice.ID, GroupID: g.ID, MessageType: domain.MessageTypeText, Content: "morning"}
	require.NoError(t, repo.Create(ctx, m))
	assert.False(t, m.CreatedAt.IsZero())

	msgs, err := repo.ListForGroup(ctx, g.ID)
	assert.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "morning", msgs[0].Content)

	assert.NoError(t, repo.AddSeenBy(ctx, m.ID, alice.ID))
	assert.NoError(t, repo.AddSeenBy(ctx, m.ID, alice.ID))
	msgs, err = repo.ListForGroup(ctx, g.ID)
	assert.NoError(t, err)
	assert.Equal(t, []string{alice.ID}, msgs[0].SeenBy)
}

func TestMediaRepo(t *testing.T) {
	db := openTestDB(t)
	users := NewUserRepo(db)
	messages := NewMessageRepo(db)
	repo := NewMediaRepo(db)
	ctx := context.Background()

	alice := createUser(t, users, "alice", "alice@example.com")
	bob := createUser(t, users, "bob", "bob@example.com")
	m := &domain.Message{ID: uuid.NewString(), SenderID: alice.ID, ReceiverID: bob.ID, MessageType: domain.MessageTypeImage, Content: "/uploads/media/x.png"}
	require.NoError(t, messages.Create(ctx, m))

	media := &domain.Media{
		ID:        uuid.NewString(),
		UserID:    alice.ID,
		MessageID: m.ID,
		MediaType: domain.MessageTypeImage,
		MediaURL:  "/uploads/media/x.png",
	}
	assert.NoError(t, repo.Create(ctx, media))
	assert.False(t, media.CreatedAt.IsZero())
}
