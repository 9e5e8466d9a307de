package app

import (
	"context"
	"io"
	"sort"
	"sync"
	"testing"
	"time"

	"petshop_service/internal/chat/domain"
	"petshop_service/pkg/logger"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/mock"
)

func TestMain(m *testing.M) {
	logger.SetNewNop()
	m.Run()
}

// === 以下為假的 mock repository，用來做 TDD ===

// fakeMessageStore in-memory chats table, id 由 store 配發
type fakeMessageStore struct {
	mu     sync.Mutex
	nextID int64
	rows   []domain.Message

	insertErr error
	findErr   error
	markErr   error
}

func newFakeMessageStore() *fakeMessageStore {
	return &fakeMessageStore{}
}

func (f *fakeMessageStore) Insert(ctx context.Context, msg *domain.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return f.insertErr
	}
	f.nextID++
	msg.ID = f.nextID
	f.rows = append(f.rows, *msg)
	return nil
}

func (f *fakeMessageStore) FindConversation(ctx context.Context, userA, userB string) ([]domain.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findErr != nil {
		return nil, f.findErr
	}
	var out []domain.Message
	for _, m := range f.rows {
		if m.SamePair(userA, userB) {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (f *fakeMessageStore) MarkConversationRead(ctx context.Context, senderID, receiverID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.markErr != nil {
		return 0, f.markErr
	}
	var affected int64
	for i := range f.rows {
		if f.rows[i].SenderID == senderID && f.rows[i].ReceiverID == receiverID && !f.rows[i].IsRead {
			f.rows[i].IsRead = true
			affected++
		}
	}
	return affected, nil
}

func (f *fakeMessageStore) CountUnread(ctx context.Context, receiverID, senderID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, m := range f.rows {
		if m.ReceiverID == receiverID && m.SenderID == senderID && !m.IsRead {
			count++
		}
	}
	return count, nil
}

func (f *fakeMessageStore) FindAll(ctx context.Context) ([]domain.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findErr != nil {
		return nil, f.findErr
	}
	out := make([]domain.Message, len(f.rows))
	copy(out, f.rows)
	return out, nil
}

func (f *fakeMessageStore) ListCorrespondentIDs(ctx context.Context, adminID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	seen := map[string]bool{}
	var out []string
	for _, m := range f.rows {
		for _, id := range []string{m.SenderID, m.ReceiverID} {
			if id != adminID && !seen[id] {
				seen[id] = true
				out = append(out, id)
			}
		}
	}
	sort.Strings(out)
	return out, nil
}

// seed 直接塞一筆歷史資料, 略過 feed
func (f *fakeMessageStore) seed(senderID, receiverID, content string, isRead bool, at time.Time) domain.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	m := domain.Message{
		ID:         f.nextID,
		SenderID:   senderID,
		ReceiverID: receiverID,
		Content:    content,
		IsRead:     isRead,
		CreatedAt:  at,
	}
	f.rows = append(f.rows, m)
	return m
}

// fakeFeed 同步版 change feed, Publish 直接呼叫仍存活的 handler
type fakeFeed struct {
	mu   sync.Mutex
	subs map[string][]feedSub
}

type feedSub struct {
	ctx     context.Context
	handler func(msg domain.Message)
}

func newFakeFeed() *fakeFeed {
	return &fakeFeed{subs: make(map[string][]feedSub)}
}

func (f *fakeFeed) Publish(channel string, message interface{}) error {
	msg, ok := message.(*domain.Message)
	if !ok {
		return nil
	}
	f.mu.Lock()
	subs := append([]feedSub(nil), f.subs[channel]...)
	f.mu.Unlock()

	for _, s := range subs {
		if s.ctx.Err() == nil {
			s.handler(*msg)
		}
	}
	return nil
}

func (f *fakeFeed) Subscribe(ctx context.Context, channel string, handler func(msg domain.Message)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subs[channel] = append(f.subs[channel], feedSub{ctx: ctx, handler: handler})
	return nil
}

type mockProfileRepo struct {
	mock.Mock
}

func (m *mockProfileRepo) FindAdmin(ctx context.Context) (*domain.Profile, error) {
	args := m.Called(ctx)
	return args.Get(0).(*domain.Profile), args.Error(1)
}

func (m *mockProfileRepo) FindByID(ctx context.Context, id string) (*domain.Profile, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(*domain.Profile), args.Error(1)
}

func (m *mockProfileRepo) FindByIDs(ctx context.Context, ids []string) ([]domain.Profile, error) {
	args := m.Called(ctx, ids)
	return args.Get(0).([]domain.Profile), args.Error(1)
}

func (m *mockProfileRepo) SetOnline(ctx context.Context, id string, online bool) error {
	args := m.Called(ctx, id, online)
	return args.Error(0)
}

type mockImageStore struct {
	mock.Mock
}

func (m *mockImageStore) UploadCustomerImage(ctx context.Context, filename string, r io.Reader, size int64, contentType string) (string, error) {
	args := m.Called(ctx, filename, r, size, contentType)
	return args.String(0), args.Error(1)
}

func (m *mockImageStore) UploadAdminImage(ctx context.Context, filename string, r io.Reader, size int64, contentType string) (string, error) {
	args := m.Called(ctx, filename, r, size, contentType)
	return args.String(0), args.Error(1)
}

type mockEventWriter struct {
	mock.Mock
}

func (m *mockEventWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	args := m.Called(ctx, msgs)
	return args.Error(0)
}

// fakePresence in-memory presence flags
type fakePresence struct {
	mu     sync.Mutex
	online map[string]bool
}

func newFakePresence() *fakePresence {
	return &fakePresence{online: make(map[string]bool)}
}

func (f *fakePresence) SetOnline(ctx context.Context, memberID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.online[memberID] = true
	return nil
}

func (f *fakePresence) SetOffline(ctx context.Context, memberID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.online, memberID)
	return nil
}

func (f *fakePresence) Refresh(ctx context.Context, memberID string) error {
	return nil
}

func (f *fakePresence) IsOnline(ctx context.Context, memberID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.online[memberID]
}
