package app

import (
	"context"
	"io"
	"sync"

	"petshop_service/internal/chat/domain"
	"petshop_service/internal/chat/repository"
	"petshop_service/pkg/logger"
)

// Correspondent admin 收件匣的一列: customer 基本資料 + 未讀數 + 在線
type Correspondent struct {
	Profile domain.Profile `json:"profile"`
	Unread  int            `json:"unread"`
	Online  bool           `json:"online"`
}

// AdminInbox admin 端收件匣: 列出聊過天的 customer,
// 選取後開啟對話, 送訊息規則與 customer 端不同 (image 蓋過 text)
type AdminInbox struct {
	session  *ChatSession
	unread   *UnreadUseCase
	msgRepo  repository.MessageRepository
	profiles repository.ProfileRepository
	presence repository.PresenceRepository
	images   repository.ImageStore

	adminID string

	mu       sync.Mutex
	selected string
}

// NewAdminInbox create a AdminInbox for one admin
func NewAdminInbox(
	session *ChatSession,
	unread *UnreadUseCase,
	msgRepo repository.MessageRepository,
	profiles repository.ProfileRepository,
	presence repository.PresenceRepository,
	images repository.ImageStore,
	adminID string,
) *AdminInbox {
	return &AdminInbox{
		session:  session,
		unread:   unread,
		msgRepo:  msgRepo,
		profiles: profiles,
		presence: presence,
		images:   images,
		adminID:  adminID,
	}
}

// ListCorrespondents 聊過天的 customer 清單 + 未讀分桶 + 在線狀態.
// profile 撈不到的 id 仍要列出 (只有 id), 不可吃掉未讀
func (in *AdminInbox) ListCorrespondents(ctx context.Context) ([]Correspondent, error) {
	if in.adminID == "" {
		return nil, domain.ErrIdentityMissing
	}

	ids, err := in.msgRepo.ListCorrespondentIDs(ctx, in.adminID)
	if err != nil {
		logger.Log.Errorf("list correspondent ids err :", err)
		return nil, domain.ErrStoreUnavailable
	}

	unread, err := in.unread.AdminUnread(ctx, in.adminID)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]domain.Profile, len(ids))
	if len(ids) > 0 {
		profiles, err := in.profiles.FindByIDs(ctx, ids)
		if err != nil {
			logger.Log.Errorf("find profiles err :", err)
		} else {
			for _, p := range profiles {
				byID[p.ID] = p
			}
		}
	}

	roster := make([]Correspondent, 0, len(ids))
	for _, id := range ids {
		p, ok := byID[id]
		if !ok {
			p = domain.Profile{ID: id}
		}
		roster = append(roster, Correspondent{
			Profile: p,
			Unread:  unread[id],
			Online:  in.presence.IsOnline(ctx, id),
		})
	}
	return roster, nil
}

// Select 選取 customer 開啟對話 (內含 mark-as-read),
// 回傳重算後的清單讓該列 badge 歸零
func (in *AdminInbox) Select(ctx context.Context, customerID string) ([]Correspondent, error) {
	if customerID == "" {
		return nil, domain.ErrNoCorrespondent
	}

	if err := in.session.Open(ctx, customerID, in.adminID); err != nil {
		return nil, err
	}

	in.mu.Lock()
	in.selected = customerID
	in.mu.Unlock()

	return in.ListCorrespondents(ctx)
}

// Deselect 關閉目前對話
func (in *AdminInbox) Deselect() {
	in.mu.Lock()
	in.selected = ""
	in.mu.Unlock()
	in.session.Close()
}

// Selected 目前選取的 customer id, 未選取為空字串
func (in *AdminInbox) Selected() string {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.selected
}

// SendAsAdmin admin 送訊息規則: 有 image 只送 image 一筆,
// text 直接忽略, 不做合成
func (in *AdminInbox) SendAsAdmin(ctx context.Context, text, imageURL string) error {
	in.mu.Lock()
	selected := in.selected
	in.mu.Unlock()
	if selected == "" {
		return domain.ErrNoCorrespondent
	}

	if imageURL != "" {
		return in.session.Send(ctx, "", imageURL)
	}
	return in.session.Send(ctx, text, "")
}

// UploadAndSend 先上傳再送出, 上傳失敗整筆中止不寫訊息
func (in *AdminInbox) UploadAndSend(ctx context.Context, filename string, r io.Reader, size int64, contentType string) error {
	url, err := in.images.UploadAdminImage(ctx, filename, r, size, contentType)
	if err != nil {
		logger.Log.Errorf("upload admin image err :", err)
		return domain.ErrUploadFailed
	}
	return in.SendAsAdmin(ctx, "", url)
}

// Session the underlying conversation
func (in *AdminInbox) Session() *ChatSession {
	return in.session
}
