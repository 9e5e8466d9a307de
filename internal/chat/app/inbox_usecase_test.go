package app

import (
	"context"
	"strings"
	"testing"
	"time"

	"petshop_service/internal/chat/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func newInboxFixture(profiles *mockProfileRepo, images *mockImageStore) (*AdminInbox, *fakeMessageStore, *fakePresence) {
	store := newFakeMessageStore()
	feed := newFakeFeed()
	send := NewSendMessageUseCase(store, feed, nil)
	unread := NewUnreadUseCase(store)
	session := NewChatSession(send, store, feed, "admin-1")
	presence := newFakePresence()

	inbox := NewAdminInbox(session, unread, store, profiles, presence, images, "admin-1")
	return inbox, store, presence
}

func TestAdminInbox_ListCorrespondents(t *testing.T) {
	ctx := context.Background()
	profiles := new(mockProfileRepo)
	profiles.On("FindByIDs", mock.Anything, []string{"cust-1", "cust-2"}).
		Return([]domain.Profile{
			{ID: "cust-1", FullName: "Amy", Role: "customer"},
			{ID: "cust-2", FullName: "Bob", Role: "customer"},
		}, nil)

	inbox, store, presence := newInboxFixture(profiles, nil)

	now := time.Now()
	store.seed("cust-1", "admin-1", "q1", false, now)
	store.seed("cust-1", "admin-1", "q2", false, now)
	store.seed("admin-1", "cust-2", "promo", false, now)
	presence.SetOnline(ctx, "cust-1")

	roster, err := inbox.ListCorrespondents(ctx)
	assert.NoError(t, err)
	assert.Len(t, roster, 2)

	assert.Equal(t, "Amy", roster[0].Profile.FullName)
	assert.Equal(t, 2, roster[0].Unread)
	assert.True(t, roster[0].Online)

	// 只收過 admin 訊息的 customer 也要在清單上, 未讀 0
	assert.Equal(t, "Bob", roster[1].Profile.FullName)
	assert.Zero(t, roster[1].Unread)
	assert.False(t, roster[1].Online)
}

// profile 撈不到的 id 仍要列出, 未讀不得被吃掉
func TestAdminInbox_ListSurvivesMissingProfiles(t *testing.T) {
	ctx := context.Background()
	profiles := new(mockProfileRepo)
	profiles.On("FindByIDs", mock.Anything, mock.Anything).
		Return([]domain.Profile(nil), assert.AnError)

	inbox, store, _ := newInboxFixture(profiles, nil)
	store.seed("cust-1", "admin-1", "q", false, time.Now())

	roster, err := inbox.ListCorrespondents(ctx)
	assert.NoError(t, err)
	assert.Len(t, roster, 1)
	assert.Equal(t, "cust-1", roster[0].Profile.ID)
	assert.Equal(t, 1, roster[0].Unread)
}

// 選取 customer 開啟對話, badge 歸零
func TestAdminInbox_SelectClearsBadge(t *testing.T) {
	ctx := context.Background()
	profiles := new(mockProfileRepo)
	profiles.On("FindByIDs", mock.Anything, mock.Anything).
		Return([]domain.Profile{{ID: "cust-1", FullName: "Amy"}}, nil)

	inbox, store, _ := newInboxFixture(profiles, nil)
	store.seed("cust-1", "admin-1", "q1", false, time.Now())
	store.seed("cust-1", "admin-1", "q2", false, time.Now())

	roster, err := inbox.Select(ctx, "cust-1")
	assert.NoError(t, err)
	assert.Equal(t, "cust-1", inbox.Selected())
	assert.Len(t, roster, 1)
	assert.Zero(t, roster[0].Unread)

	msgs := inbox.Session().Messages()
	assert.Len(t, msgs, 2)
}

func TestAdminInbox_SelectEmptyID(t *testing.T) {
	ctx := context.Background()
	inbox, _, _ := newInboxFixture(new(mockProfileRepo), nil)

	_, err := inbox.Select(ctx, "")
	assert.ErrorIs(t, err, domain.ErrNoCorrespondent)
}

func TestAdminInbox_SendWithoutSelection(t *testing.T) {
	ctx := context.Background()
	inbox, _, _ := newInboxFixture(new(mockProfileRepo), nil)

	assert.ErrorIs(t, inbox.SendAsAdmin(ctx, "hi", ""), domain.ErrNoCorrespondent)
}

// admin 規則: 有 image 只送 image, text 直接忽略, 不做合成
func TestAdminInbox_ImageWinsOverText(t *testing.T) {
	ctx := context.Background()
	profiles := new(mockProfileRepo)
	profiles.On("FindByIDs", mock.Anything, mock.Anything).
		Return([]domain.Profile{{ID: "cust-1"}}, nil)

	inbox, store, _ := newInboxFixture(profiles, nil)
	store.seed("cust-1", "admin-1", "q", false, time.Now())

	_, err := inbox.Select(ctx, "cust-1")
	assert.NoError(t, err)

	assert.NoError(t, inbox.SendAsAdmin(ctx, "this text is dropped", "https://cdn.example.com/reply.png"))

	all, _ := store.FindAll(ctx)
	assert.Len(t, all, 2)
	sent := all[1]
	assert.Equal(t, "admin-1", sent.SenderID)
	assert.Equal(t, "https://cdn.example.com/reply.png", sent.Content)
	assert.NotContains(t, sent.Content, "this text is dropped")
	assert.Equal(t, domain.ContentImage, domain.ClassifyContent(sent.Content))
}

func TestAdminInbox_SendTextOnly(t *testing.T) {
	ctx := context.Background()
	profiles := new(mockProfileRepo)
	profiles.On("FindByIDs", mock.Anything, mock.Anything).
		Return([]domain.Profile{{ID: "cust-1"}}, nil)

	inbox, store, _ := newInboxFixture(profiles, nil)
	store.seed("cust-1", "admin-1", "q", false, time.Now())

	_, err := inbox.Select(ctx, "cust-1")
	assert.NoError(t, err)
	assert.NoError(t, inbox.SendAsAdmin(ctx, "we have it in stock", ""))

	all, _ := store.FindAll(ctx)
	assert.Len(t, all, 2)
	assert.Equal(t, "we have it in stock", all[1].Content)
}

// 上傳失敗整筆中止, 不得寫下訊息
func TestAdminInbox_UploadFailureAborts(t *testing.T) {
	ctx := context.Background()
	profiles := new(mockProfileRepo)
	profiles.On("FindByIDs", mock.Anything, mock.Anything).
		Return([]domain.Profile{{ID: "cust-1"}}, nil)

	images := new(mockImageStore)
	images.On("UploadAdminImage", mock.Anything, "reply.png", mock.Anything, int64(3), "image/png").
		Return("", assert.AnError)

	inbox, store, _ := newInboxFixture(profiles, images)
	store.seed("cust-1", "admin-1", "q", false, time.Now())

	_, err := inbox.Select(ctx, "cust-1")
	assert.NoError(t, err)

	err = inbox.UploadAndSend(ctx, "reply.png", strings.NewReader("png"), 3, "image/png")
	assert.ErrorIs(t, err, domain.ErrUploadFailed)

	all, _ := store.FindAll(ctx)
	assert.Len(t, all, 1)
}

func TestAdminInbox_UploadAndSend(t *testing.T) {
	ctx := context.Background()
	profiles := new(mockProfileRepo)
	profiles.On("FindByIDs", mock.Anything, mock.Anything).
		Return([]domain.Profile{{ID: "cust-1"}}, nil)

	images := new(mockImageStore)
	images.On("UploadAdminImage", mock.Anything, "reply.png", mock.Anything, int64(3), "image/png").
		Return("https://cdn.example.com/bucketadmin/chat_images_admin/reply.png", nil)

	inbox, store, _ := newInboxFixture(profiles, images)
	store.seed("cust-1", "admin-1", "q", false, time.Now())

	_, err := inbox.Select(ctx, "cust-1")
	assert.NoError(t, err)
	assert.NoError(t, inbox.UploadAndSend(ctx, "reply.png", strings.NewReader("png"), 3, "image/png"))

	all, _ := store.FindAll(ctx)
	assert.Len(t, all, 2)
	assert.Equal(t, domain.ContentImage, domain.ClassifyContent(all[1].Content))
}
