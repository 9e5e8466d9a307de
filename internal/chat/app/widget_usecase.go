package app

import (
	"context"
	"sync"
	"time"

	"petshop_service/internal/chat/domain"
	"petshop_service/internal/chat/repository"
	"petshop_service/pkg/logger"
)

// CustomerWidget customer 端聊天入口:
// 掛載時解析身分並計算未讀, 開關切換對話, 並向 ChatBus 註冊
// 讓其他流程塞訊息進來, 卸載時解除註冊
type CustomerWidget struct {
	session  *ChatSession
	send     *SendMessageUseCase
	unread   *UnreadUseCase
	profiles repository.ProfileRepository
	bus      *ChatBus

	customerID string

	mu          sync.Mutex
	adminID     string
	adminOnline bool
	open        bool
	unreadCount int
	cancelBus   func()

	onForcedOpen func()
}

// NewCustomerWidget create a CustomerWidget for one customer
func NewCustomerWidget(
	session *ChatSession,
	send *SendMessageUseCase,
	unread *UnreadUseCase,
	profiles repository.ProfileRepository,
	bus *ChatBus,
	customerID string,
) *CustomerWidget {
	return &CustomerWidget{
		session:    session,
		send:       send,
		unread:     unread,
		profiles:   profiles,
		bus:        bus,
		customerID: customerID,
	}
}

// SetOnForcedOpen 外部觸發強制開啟時通知 consumer
func (w *CustomerWidget) SetOnForcedOpen(fn func()) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onForcedOpen = fn
}

// Mount 解析 admin 身分, 計算未讀, 註冊 bus handler
func (w *CustomerWidget) Mount(ctx context.Context) error {
	if w.customerID == "" {
		return domain.ErrIdentityMissing
	}

	admin, err := w.profiles.FindAdmin(ctx)
	if err != nil {
		logger.Log.Errorf("find admin err :", err)
		return domain.ErrIdentityMissing
	}

	count, err := w.unread.CustomerUnread(ctx, w.customerID, admin.ID)
	if err != nil {
		// 未讀數拿不到不擋掛載, 顯示 0
		count = 0
	}

	w.mu.Lock()
	w.adminID = admin.ID
	w.adminOnline = admin.IsOnline
	w.unreadCount = count
	w.cancelBus = w.bus.Subscribe(w.customerID, w.handleTrigger)
	w.mu.Unlock()

	return nil
}

// Unmount 解除 bus 註冊並關閉對話, 不會再有 stale callback
func (w *CustomerWidget) Unmount() {
	w.mu.Lock()
	cancel := w.cancelBus
	w.cancelBus = nil
	w.open = false
	w.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	w.session.Close()
}

// Toggle 切換開關.
// closed→open: 開啟對話 (內含 mark-as-read), 未讀歸零.
// open→closed: 關閉對話並重算未讀
func (w *CustomerWidget) Toggle(ctx context.Context) error {
	w.mu.Lock()
	adminID := w.adminID
	opening := !w.open
	w.mu.Unlock()

	if opening {
		if err := w.session.Open(ctx, w.customerID, adminID); err != nil {
			return err
		}
		w.mu.Lock()
		w.open = true
		w.unreadCount = 0
		w.mu.Unlock()
		return nil
	}

	w.session.Close()
	count, err := w.unread.CustomerUnread(ctx, w.customerID, adminID)
	w.mu.Lock()
	w.open = false
	if err == nil {
		w.unreadCount = count
	}
	w.mu.Unlock()
	return nil
}

// Send 轉送到 session, image 需先經上傳取得 url
func (w *CustomerWidget) Send(ctx context.Context, text, imageURL string) error {
	return w.session.Send(ctx, text, imageURL)
}

// IsOpen widget open state
func (w *CustomerWidget) IsOpen() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.open
}

// UnreadCount 最近一次重算的未讀數
func (w *CustomerWidget) UnreadCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.unreadCount
}

// AdminOnline admin 的在線狀態 (掛載當下)
func (w *CustomerWidget) AdminOnline() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.adminOnline
}

// Session the underlying conversation
func (w *CustomerWidget) Session() *ChatSession {
	return w.session
}

// handleTrigger 外部流程塞訊息: 有 image 就合成一筆 rich row
// (text 可為空), 寫入後強制開啟 widget
func (w *CustomerWidget) handleTrigger(t TriggerMessage) {
	w.mu.Lock()
	adminID := w.adminID
	onForcedOpen := w.onForcedOpen
	w.mu.Unlock()

	if w.customerID == "" || adminID == "" {
		return
	}

	ctx := context.Background()

	content := t.Text
	if t.ImageURL != "" {
		content = domain.ComposeContent(t.Text, t.ImageURL)
	}

	msg := domain.Message{
		SenderID:   w.customerID,
		ReceiverID: adminID,
		Content:    content,
		IsRead:     false,
		CreatedAt:  time.Now(),
	}
	if err := w.send.Persist(ctx, &msg); err != nil {
		logger.Log.Errorf("trigger persist err :", err)
		return
	}

	if err := w.session.Open(ctx, w.customerID, adminID); err != nil {
		logger.Log.Errorf("trigger open err :", err)
		return
	}

	w.mu.Lock()
	w.open = true
	w.unreadCount = 0
	w.mu.Unlock()

	if onForcedOpen != nil {
		onForcedOpen()
	}
}
