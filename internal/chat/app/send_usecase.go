package app

import (
	"context"
	"encoding/json"
	"time"

	"petshop_service/internal/chat/domain"
	"petshop_service/internal/chat/repository"
	"petshop_service/pkg/logger"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// EventWriter 對外匯出訊息事件 (通知/統計下游)
type EventWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// SendMessageUseCase 負責訊息的寫入與 change feed 發佈
type SendMessageUseCase struct {
	msgRepo repository.MessageRepository
	feed    repository.PubSub
	events  EventWriter
}

// NewSendMessageUseCase init send message use case. events 可為 nil
func NewSendMessageUseCase(
	msgRepo repository.MessageRepository,
	feed repository.PubSub,
	events EventWriter,
) *SendMessageUseCase {
	return &SendMessageUseCase{
		msgRepo: msgRepo,
		feed:    feed,
		events:  events,
	}
}

// Compose 依 customer 端組合規則產生要寫入的 rows.
// text 和 image 都有 -> 合成一筆 rich row, 只有其一 -> 各自一筆,
// 都沒有 -> 空
func (uc *SendMessageUseCase) Compose(senderID, receiverID, text, imageURL string) []domain.Message {
	text = domain.TrimText(text)

	now := time.Now()
	base := domain.Message{
		SenderID:   senderID,
		ReceiverID: receiverID,
		IsRead:     false,
		CreatedAt:  now,
	}

	var rows []domain.Message
	switch {
	case text != "" && imageURL != "":
		m := base
		m.Content = domain.ComposeContent(text, imageURL)
		rows = append(rows, m)
	default:
		if text != "" {
			m := base
			m.Content = text
			rows = append(rows, m)
		}
		if imageURL != "" {
			m := base
			m.Content = imageURL
			rows = append(rows, m)
		}
	}
	return rows
}

// Persist 寫入單筆 row 並發佈 insert 事件, 回填 id
func (uc *SendMessageUseCase) Persist(ctx context.Context, msg *domain.Message) error {
	if err := uc.msgRepo.Insert(ctx, msg); err != nil {
		logger.Log.Errorf("insert message err :", err,
			zap.String("sender_id", msg.SenderID),
			zap.String("receiver_id", msg.ReceiverID),
		)
		return domain.ErrStoreUnavailable
	}

	if err := uc.feed.Publish(domain.ChannelMessageInsert, msg); err != nil {
		logger.Log.Errorf("publish insert event err :", err)
	}

	uc.export(ctx, msg)

	return nil
}

// Execute compose + persist
func (uc *SendMessageUseCase) Execute(ctx context.Context, senderID, receiverID, text, imageURL string) ([]domain.Message, error) {
	rows := uc.Compose(senderID, receiverID, text, imageURL)
	for i := range rows {
		if err := uc.Persist(ctx, &rows[i]); err != nil {
			return rows[:i], err
		}
	}
	return rows, nil
}

// MarkConversationRead 把 sender→receiver 的未讀全部改已讀並發佈 update 事件.
// 重複呼叫安全, 第二次 affected 為 0
func (uc *SendMessageUseCase) MarkConversationRead(ctx context.Context, senderID, receiverID string) (int64, error) {
	affected, err := uc.msgRepo.MarkConversationRead(ctx, senderID, receiverID)
	if err != nil {
		logger.Log.Errorf("mark conversation read err :", err,
			zap.String("sender_id", senderID),
			zap.String("receiver_id", receiverID),
		)
		return 0, domain.ErrStoreUnavailable
	}

	if affected > 0 {
		event := domain.Message{
			SenderID:   senderID,
			ReceiverID: receiverID,
			IsRead:     true,
		}
		if err := uc.feed.Publish(domain.ChannelMessageUpdate, &event); err != nil {
			logger.Log.Errorf("publish update event err :", err)
		}
	}

	return affected, nil
}

// export 失敗只記 log, 不影響聊天主流程
func (uc *SendMessageUseCase) export(ctx context.Context, msg *domain.Message) {
	if uc.events == nil {
		return
	}
	b, err := json.Marshal(msg)
	if err != nil {
		return
	}
	if err := uc.events.WriteMessages(ctx, kafka.Message{
		Key:   []byte(msg.SenderID),
		Value: b,
	}); err != nil {
		logger.Log.Errorf("kafka export err :", err)
	}
}
