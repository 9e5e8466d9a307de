package repository

import (
	"context"
	"time"

	"petshop_service/pkg/database"
)

// presence key 有 TTL, 斷線沒清掉也會自動過期
const presenceTTL = 5 * time.Minute

// PresenceRepository definition online flag by redis TTL key
type PresenceRepository interface {
	SetOnline(ctx context.Context, memberID string) error
	SetOffline(ctx context.Context, memberID string) error
	Refresh(ctx context.Context, memberID string) error
	IsOnline(ctx context.Context, memberID string) bool
}

type presenceRepository struct {
	redisRepo database.RedisRepository[bool]
}

// NewPresenceRepository create a PresenceRepository
func NewPresenceRepository(redisRepo database.RedisRepository[bool]) PresenceRepository {
	return &presenceRepository{redisRepo: redisRepo}
}

func presenceKey(memberID string) string {
	return "presence:" + memberID
}

func (r *presenceRepository) SetOnline(ctx context.Context, memberID string) error {
	return r.redisRepo.Set(ctx, presenceKey(memberID), true, presenceTTL)
}

func (r *presenceRepository) SetOffline(ctx context.Context, memberID string) error {
	return r.redisRepo.Del(ctx, presenceKey(memberID))
}

func (r *presenceRepository) Refresh(ctx context.Context, memberID string) error {
	return r.redisRepo.ExtendTTL(ctx, presenceKey(memberID), presenceTTL)
}

func (r *presenceRepository) IsOnline(ctx context.Context, memberID string) bool {
	online, err := r.redisRepo.Get(ctx, presenceKey(memberID))
	if err != nil {
		return false
	}
	return online
}
