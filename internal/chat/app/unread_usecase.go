package app

import (
	"context"

	"petshop_service/internal/chat/domain"
	"petshop_service/internal/chat/repository"
	"petshop_service/pkg/logger"
)

// UnreadUseCase 計算未讀數: customer 端單一計數, admin 端依 customer 分桶
type UnreadUseCase struct {
	msgRepo repository.MessageRepository
}

// NewUnreadUseCase init unread use case
func NewUnreadUseCase(msgRepo repository.MessageRepository) *UnreadUseCase {
	return &UnreadUseCase{msgRepo: msgRepo}
}

// CustomerUnread admin 寄給 customer 的未讀數
func (uc *UnreadUseCase) CustomerUnread(ctx context.Context, customerID, adminID string) (int, error) {
	count, err := uc.msgRepo.CountUnread(ctx, customerID, adminID)
	if err != nil {
		logger.Log.Errorf("count unread err :", err)
		return 0, domain.ErrStoreUnavailable
	}
	return count, nil
}

// AdminUnread 全表掃描一次, 依 sender 分桶.
// 訊息量小, 每次 feed 事件整個重算即可
func (uc *UnreadUseCase) AdminUnread(ctx context.Context, adminID string) (map[string]int, error) {
	messages, err := uc.msgRepo.FindAll(ctx)
	if err != nil {
		logger.Log.Errorf("scan messages err :", err)
		return nil, domain.ErrStoreUnavailable
	}

	unread := make(map[string]int)
	for _, m := range messages {
		if m.SenderID == adminID {
			continue
		}
		if m.ReceiverID == adminID && !m.IsRead {
			unread[m.SenderID]++
		}
	}
	return unread, nil
}
