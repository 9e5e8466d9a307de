package app

import "sync"

// TriggerMessage 非聊天流程 (例如送養申請) 要塞進對話的內容
type TriggerMessage struct {
	Text     string `json:"text"`
	ImageURL string `json:"image_url"`
}

// ChatBus 讓其他功能觸發聊天, 與 widget 解耦.
// 訂閱以 customer id 分組, 觸發只會落到該 customer 自己的 widget.
// 該 customer 沒有訂閱者時 Publish 靜默略過, 呼叫端流程不受影響
type ChatBus struct {
	mu     sync.Mutex
	nextID int
	subs   map[string]map[int]func(msg TriggerMessage)
}

// NewChatBus create a ChatBus
func NewChatBus() *ChatBus {
	return &ChatBus{subs: make(map[string]map[int]func(msg TriggerMessage))}
}

// Subscribe 註冊 customer 自己的 handler, 回傳的 cancel 負責解除註冊.
// 同一個 customer 允許多個訂閱者 (多分頁/多連線)
func (b *ChatBus) Subscribe(customerID string, fn func(msg TriggerMessage)) (cancel func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	if b.subs[customerID] == nil {
		b.subs[customerID] = make(map[int]func(msg TriggerMessage))
	}
	b.subs[customerID][id] = fn

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs[customerID], id)
		if len(b.subs[customerID]) == 0 {
			delete(b.subs, customerID)
		}
	}
}

// Publish 只廣播給該 customer 的訂閱者
func (b *ChatBus) Publish(customerID string, msg TriggerMessage) {
	b.mu.Lock()
	handlers := make([]func(msg TriggerMessage), 0, len(b.subs[customerID]))
	for _, fn := range b.subs[customerID] {
		handlers = append(handlers, fn)
	}
	b.mu.Unlock()

	for _, fn := range handlers {
		fn(msg)
	}
}

// SubscriberCount 該 customer 目前的訂閱數
func (b *ChatBus) SubscriberCount(customerID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[customerID])
}
