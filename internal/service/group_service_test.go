package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"chatserver/internal/domain"
	"chatserver/internal/service"
)

type MockGroupRepo struct {
	mock.Mock
}

func (m *MockGroupRepo) Create(ctx context.Context, g *domain.Group, memberIDs []string) error {
	args := m.Called(ctx, g, memberIDs)
	return args.Error(0)
}

func (m *MockGroupRepo) GetByID(ctx context.Context, id string) (*domain.Group, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Group), args.Error(1)
}

func (m *MockGroupRepo) ListForUser(ctx context.Context, userID string) ([]*domain.Group, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Group), args.Error(1)
}

func (m *MockGroupRepo) ListMembers(ctx context.Context, groupID string) ([]*domain.User, error) {
	args := m.Called(ctx, groupID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.User), args.Error(1)
}

func (m *MockGroupRepo) IsMember(ctx context.Context, groupID, userID string) (bool, error) {
	args := m.Called(ctx, groupID, userID)
	return args.Bool(0), args.Error(1)
}

type MockGroupMessageRepo struct {
	mock.Mock
}

func (m *MockGroupMessageRepo) Create(ctx context.Context, msg *domain.GroupMessage) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MockGroupMessageRepo) ListForGroup(ctx context.Context, groupID string) ([]*domain.GroupMessage, error) {
	args := m.Called(ctx, groupID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.GroupMessage), args.Error(1)
}

func (m *MockGroupMessageRepo) AddSeenBy(ctx context.Context, messageID, userID string) error {
	args := m.Called(ctx, messageID, userID)
	return args.Error(0)
}

func newGroupService(groups *MockGroupRepo, groupMsgs *MockGroupMessageRepo, users *MockUserRepo) *service.GroupService {
	return service.NewGroupService(groups, groupMsgs, users)
}

func TestCreateGroupDedupesMembers(t *testing.T) {
	groups := new(MockGroupRepo)
	groupMsgs := new(MockGroupMessageRepo)
	users := new(MockUserRepo)
	svc := newGroupService(groups, groupMsgs, users)

	groups.On("Create", mock.Anything, mock.MatchedBy(func(g *domain.Group) bool {
		return g.Name == "trip" && g.ID != ""
	}), []string{"creator", "u2", "u3"}).Return(nil)
	groups.On("ListMembers", mock.Anything, mock.AnythingOfType("string")).Return([]*domain.User{
		{ID: "creator"}, {ID: "u2"}, {ID: "u3"},
	}, nil)

	// creator repeated in the member list, u2 twice
	got, err := svc.Create(context.Background(), "creator", service.GroupCreateInput{
		Name:      "trip",
		MemberIDs: []string{"u2", "creator", "u2", "u3"},
	})
	assert.NoError(t, err)
	assert.Len(t, got.Members, 3)
	groups.AssertExpectations(t)
}

func TestCreateGroupValidation(t *testing.T) {
	groups := new(MockGroupRepo)
	groupMsgs := new(MockGroupMessageRepo)
	users := new(MockUserRepo)
	svc := newGroupService(groups, groupMsgs, users)

	_, err := svc.Create(context.Background(), "creator", service.GroupCreateInput{Name: "trip"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = svc.Create(context.Background(), "creator", service.GroupCreateInput{MemberIDs: []string{"u2"}})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	groups.AssertNotCalled(t, "Create")
}

func TestGroupMessagesRequiresMembership(t *testing.T) {
	groups := new(MockGroupRepo)
	groupMsgs := new(MockGroupMessageRepo)
	users := new(MockUserRepo)
	svc := newGroupService(groups, groupMsgs, users)

	groups.On("IsMember", mock.Anything, "g1", "outsider").Return(false, nil)

	_, err := svc.Messages(context.Background(), "g1", "outsider")
	assert.ErrorIs(t, err, domain.ErrForbidden)
	groupMsgs.AssertNotCalled(t, "ListForGroup")
}

func TestGroupMessagesEnrichesSenders(t *testing.T) {
	groups := new(MockGroupRepo)
	groupMsgs := new(MockGroupMessageRepo)
	users := new(MockUserRepo)
	svc := newGroupService(groups, groupMsgs, users)

	pic := "/uploads/alice.png"
	groups.On("IsMember", mock.Anything, "g1", "u1").Return(true, nil)
	groupMsgs.On("ListForGroup", mock.Anything, "g1").Return([]*domain.GroupMessage{
		{ID: "m1", SenderID: "u1", GroupID: "g1", Content: "a"},
		{ID: "m2", SenderID: "u1", GroupID: "g1", Content: "b"},
		{ID: "m3", SenderID: "gone", GroupID: "g1", Content: "c"},
	}, nil)
	users.On("GetByID", mock.Anything, "u1").Return(&domain.User{ID: "u1", Username: "alice", ProfilePicture: &pic}, nil)
	users.On("GetByID", mock.Anything, "gone").Return(nil, domain.ErrNotFound)

	views, err := svc.Messages(context.Background(), "g1", "u1")
	assert.NoError(t, err)
	assert.Len(t, views, 3)
	assert.Equal(t, "alice", views[0].SenderName)
	assert.Equal(t, &pic, views[0].SenderProfilePic)
	assert.Equal(t, "Unknown", views[2].SenderName)
	// sender resolved once despite two messages
	users.AssertNumberOfCalls(t, "GetByID", 2)
}

func TestSendGroupMessageSkipsMembershipCheck(t *testing.T) {
	groups := new(MockGroupRepo)
	groupMsgs := new(MockGroupMessageRepo)
	users := new(MockUserRepo)
	svc := newGroupService(groups, groupMsgs, users)

	users.On("GetByID", mock.Anything, "u9").Return(&domain.User{ID: "u9", Username: "mallory"}, nil)
	groupMsgs.On("Create", mock.Anything, mock.MatchedBy(func(m *domain.GroupMessage) bool {
		return m.SenderID == "u9" && m.GroupID == "g1" && m.Content == "hi" &&
			m.MessageType == domain.MessageTypeText
	})).Return(nil)

	// u9 is not a member; the send still persists.
	view, err := svc.SendMessage(context.Background(), service.GroupMessageSendInput{
		SenderID: "u9",
		GroupID:  "g1",
		Content:  "hi",
	})
	assert.NoError(t, err)
	assert.Equal(t, "mallory", view.SenderName)
	groups.AssertNotCalled(t, "IsMember")
}

func TestSendGroupMessageUnknownSender(t *testing.T) {
	groups := new(MockGroupRepo)
	groupMsgs := new(MockGroupMessageRepo)
	users := new(MockUserRepo)
	svc := newGroupService(groups, groupMsgs, users)

	users.On("GetByID", mock.Anything, "ghost").Return(nil, domain.ErrNotFound)

	_, err := svc.SendMessage(context.Background(), service.GroupMessageSendInput{
		SenderID: "ghost",
		GroupID:  "g1",
		Content:  "hi",
	})
	assert.Error(t, err)
	groupMsgs.AssertNotCalled(t, "Create")
}
