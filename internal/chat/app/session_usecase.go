package app

import (
	"context"
	"sort"
	"sync"

	"petshop_service/internal/chat/domain"
	"petshop_service/internal/chat/repository"
	"petshop_service/pkg/logger"

	"go.uber.org/zap"
)

// ChatSession 管理單一 customer↔admin 對話:
// 載入歷史, 訂閱 insert feed, optimistic append 與 feed 去重,
// 開啟時將對方寄來的未讀標為已讀
type ChatSession struct {
	send    *SendMessageUseCase
	msgRepo repository.MessageRepository
	feed    repository.PubSub

	viewerID string

	mu         sync.Mutex
	state      domain.SessionState
	customerID string
	adminID    string
	messages   []domain.Message
	cancel     context.CancelFunc
	lastErr    error

	notify   func(msg domain.Message)
	onUnread func(msg domain.Message)
}

// NewChatSession create a ChatSession for one viewer
func NewChatSession(
	send *SendMessageUseCase,
	msgRepo repository.MessageRepository,
	feed repository.PubSub,
	viewerID string,
) *ChatSession {
	return &ChatSession{
		send:     send,
		msgRepo:  msgRepo,
		feed:     feed,
		viewerID: viewerID,
		state:    domain.SessionClosed,
	}
}

// SetNotify 新訊息可見時通知 consumer (websocket push)
func (s *ChatSession) SetNotify(fn func(msg domain.Message)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notify = fn
}

// SetOnUnread 收件人是 viewer 的新訊息另外通知 unread consumer
func (s *ChatSession) SetOnUnread(fn func(msg domain.Message)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onUnread = fn
}

// Open 載入雙向歷史並掛上 insert feed.
// 任一 id 缺失回 ErrIdentityMissing, 停留在未訂閱狀態.
// 歷史查詢失敗 -> SessionError, 重新呼叫 Open 即可重試
func (s *ChatSession) Open(ctx context.Context, customerID, adminID string) error {
	if customerID == "" || adminID == "" {
		return domain.ErrIdentityMissing
	}

	// 已開啟時先釋放舊的訂閱
	s.Close()

	s.mu.Lock()
	s.state = domain.SessionLoading
	s.customerID = customerID
	s.adminID = adminID
	s.lastErr = nil
	s.mu.Unlock()

	history, err := s.msgRepo.FindConversation(ctx, customerID, adminID)
	if err != nil {
		logger.Log.Errorf("load conversation err :", err,
			zap.String("customer_id", customerID),
			zap.String("admin_id", adminID),
		)
		s.mu.Lock()
		s.state = domain.SessionError
		s.lastErr = domain.ErrStoreUnavailable
		s.mu.Unlock()
		return domain.ErrStoreUnavailable
	}

	subCtx, cancel := context.WithCancel(context.Background())

	s.mu.Lock()
	s.messages = history
	s.state = domain.SessionReady
	s.cancel = cancel
	s.mu.Unlock()

	if err := s.feed.Subscribe(subCtx, domain.ChannelMessageInsert, s.handleIncoming); err != nil {
		logger.Log.Errorf("subscribe insert feed err :", err)
	}

	// 對方寄給 viewer 的未讀改已讀, best effort
	other := s.otherParty()
	if _, err := s.send.MarkConversationRead(ctx, other, s.viewerID); err != nil {
		logger.Log.Errorf("mark read on open err :", err)
	}

	return nil
}

// Close 釋放訂閱, 之後到達的 feed 事件不會再改動 session.
// 重複呼叫安全
func (s *ChatSession) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.state = domain.SessionClosed
}

// Send 送出 text 和/或已上傳的 image url.
// 兩者皆空為 no-op. 先 optimistic append 再寫入,
// server 確認後由 feed 事件對齊, 不會重複顯示
func (s *ChatSession) Send(ctx context.Context, text, imageURL string) error {
	s.mu.Lock()
	if s.state != domain.SessionReady {
		s.mu.Unlock()
		return domain.ErrSessionClosed
	}
	other := s.otherPartyLocked()
	s.mu.Unlock()

	rows := s.send.Compose(s.viewerID, other, text, imageURL)
	if len(rows) == 0 {
		return nil
	}

	// optimistic append, client 時間戳先上
	s.mu.Lock()
	s.messages = append(s.messages, rows...)
	notify := s.notify
	s.mu.Unlock()
	if notify != nil {
		for _, m := range rows {
			notify(m)
		}
	}

	for i := range rows {
		if err := s.send.Persist(ctx, &rows[i]); err != nil {
			// 送出失敗不中斷 session, 清單維持現狀
			s.mu.Lock()
			s.lastErr = err
			s.mu.Unlock()
			return err
		}
		s.adopt(rows[i])
	}

	return nil
}

// Messages 回傳目前清單的 copy, created_at 升冪
func (s *ChatSession) Messages() []domain.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// State current conversation view state
func (s *ChatSession) State() domain.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err last non-fatal operation error, 清單可能過期但仍可見
func (s *ChatSession) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// ViewerID the local viewer of this session
func (s *ChatSession) ViewerID() string {
	return s.viewerID
}

func (s *ChatSession) otherParty() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.otherPartyLocked()
}

func (s *ChatSession) otherPartyLocked() string {
	if s.viewerID == s.customerID {
		return s.adminID
	}
	return s.customerID
}

// handleIncoming feed 送來 insert 事件.
// 只收當前 pair 的訊息, 容忍 at-least-once 重送,
// optimistic entry 用 id/content 對齊避免重複顯示
func (s *ChatSession) handleIncoming(m domain.Message) {
	s.mu.Lock()

	if s.state != domain.SessionReady {
		// session 已關閉, 不得再改動
		s.mu.Unlock()
		return
	}

	if !m.SamePair(s.customerID, s.adminID) {
		s.mu.Unlock()
		return
	}

	for i := range s.messages {
		// 已收過同一筆 (redelivery)
		if m.ID != 0 && s.messages[i].ID == m.ID {
			s.mu.Unlock()
			return
		}
		// optimistic entry 等到 server 確認, 就地對齊
		if s.messages[i].ID == 0 &&
			s.messages[i].SenderID == m.SenderID &&
			s.messages[i].ReceiverID == m.ReceiverID &&
			s.messages[i].Content == m.Content {
			s.messages[i].ID = m.ID
			s.messages[i].CreatedAt = m.CreatedAt
			s.messages[i].IsRead = m.IsRead
			s.mu.Unlock()
			return
		}
	}

	s.messages = append(s.messages, m)
	// 顯示順序只看 created_at, 不看到達順序
	sort.SliceStable(s.messages, func(i, j int) bool {
		return s.messages[i].CreatedAt.Before(s.messages[j].CreatedAt)
	})

	notify := s.notify
	onUnread := s.onUnread
	viewer := s.viewerID
	s.mu.Unlock()

	if notify != nil {
		notify(m)
	}
	if onUnread != nil && m.ReceiverID == viewer {
		onUnread(m)
	}
}

// adopt persist 回來的 row 帶有 server id, 對齊 optimistic entry.
// feed 事件若先到已經對齊過, 這裡就不動
func (s *ChatSession) adopt(row domain.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.messages {
		if s.messages[i].ID == 0 &&
			s.messages[i].SenderID == row.SenderID &&
			s.messages[i].ReceiverID == row.ReceiverID &&
			s.messages[i].Content == row.Content {
			s.messages[i].ID = row.ID
			s.messages[i].CreatedAt = row.CreatedAt
			return
		}
	}
}
