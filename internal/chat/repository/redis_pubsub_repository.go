package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"petshop_service/internal/chat/domain"
	"petshop_service/pkg/logger"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// PubSub 表示 message store 的 change feed.
// insert / update 各走一個 channel, 訂閱用 ctx 取消釋放
type PubSub interface {
	Publish(channel string, message interface{}) error
	Subscribe(ctx context.Context, channel string, handler func(msg domain.Message)) error
}

// RedisPubSub definition redis pub/sub
type RedisPubSub struct {
	client *redis.Client
	ctx    context.Context
}

// NewRedisPubSub create RedisPubSub
func NewRedisPubSub(client *redis.Client) *RedisPubSub {
	return &RedisPubSub{
		client: client,
		ctx:    context.Background(),
	}
}

// Publish 將 message 序列化後，發布到指定 channel
func (r *RedisPubSub) Publish(channel string, message interface{}) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}
	return r.client.Publish(r.ctx, channel, data).Err()
}

// Subscribe 訂閱 channel，收到訊息後呼叫 handler 處理
func (r *RedisPubSub) Subscribe(ctx context.Context, channel string, handler func(msg domain.Message)) error {
	sub := r.client.Subscribe(r.ctx, channel)
	go func() {
		ch := sub.Channel()

		for {
			select {
			case m, ok := <-ch:
				if !ok {
					return
				}

				var result domain.Message
				if err := json.Unmarshal([]byte(m.Payload), &result); err != nil {
					logger.Log.Error("feed payload err :", zap.String("err", fmt.Sprintf("failed to unmarshal message: %v", err)))
					continue
				}

				handler(result)
			case <-ctx.Done():
				logger.Log.Info(fmt.Sprintf("%s , sub close", channel))
				// ctx 取消時退出循環並關閉訂閱
				sub.Close()
				return
			}
		}
	}()
	return nil
}
