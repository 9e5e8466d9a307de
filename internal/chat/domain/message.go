package domain

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Message 表示 chats table 的一筆訊息
type Message struct {
	ID         int64     `json:"id"`
	SenderID   string    `json:"sender_id"`
	ReceiverID string    `json:"receiver_id"`
	Content    string    `json:"message"`
	IsRead     bool      `json:"is_read"`
	CreatedAt  time.Time `json:"created_at"`
}

// SamePair check message belong to the (userA, userB) conversation,
// direction does not matter
func (m *Message) SamePair(userA, userB string) bool {
	return (m.SenderID == userA && m.ReceiverID == userB) ||
		(m.SenderID == userB && m.ReceiverID == userA)
}

// ContentKind definition message render mode
type ContentKind string

const (
	// ContentText render as plain text
	ContentText ContentKind = "text"
	// ContentImage render as a bare image url
	ContentImage ContentKind = "image"
	// ContentRich render as html fragment (text + inline image)
	ContentRich ContentKind = "rich"
)

// 舊資料沒有 content_type 欄位，只能靠字串判斷
// 規則必須與已存在的資料相容，不可更動
var (
	richPattern  = regexp.MustCompile(`(?is)</?[a-z].*>`)
	imagePattern = regexp.MustCompile(`(?i)\.(jpeg|jpg|gif|png|webp)$`)
)

// ClassifyContent sniff the stored string and decide the render mode.
// contains html-like tag -> rich, ends with image extension -> image,
// else -> text
func ClassifyContent(content string) ContentKind {
	if richPattern.MatchString(content) {
		return ContentRich
	}
	if imagePattern.MatchString(content) {
		return ContentImage
	}
	return ContentText
}

// ComposeContent 將 text + image url 組成一筆 rich 訊息
// 格式沿用既有資料，不可更動
func ComposeContent(text, imageURL string) string {
	return fmt.Sprintf(`%s<br/><img src="%s" style="max-width:100%%;border-radius:8px;margin-top:5px;"/>`, text, imageURL)
}

// ClockLabel format timestamp as HH:MM for display
func ClockLabel(t time.Time) string {
	return t.Format("15:04")
}

// DayKey group messages by day
func DayKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// TrimText normalize user input before the empty-send check
func TrimText(text string) string {
	return strings.TrimSpace(text)
}

// Profile 表示 profiles table 的使用者資料
type Profile struct {
	ID        string `json:"id"`
	FullName  string `json:"full_name"`
	AvatarURL string `json:"avatar_url"`
	Role      string `json:"role"`
	IsOnline  bool   `json:"is_online"`
}
