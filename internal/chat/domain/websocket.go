package domain

// SessionState conversation view state machine
type SessionState string

const (
	// SessionClosed no active conversation
	SessionClosed SessionState = "closed"
	// SessionLoading history query in flight
	SessionLoading SessionState = "loading"
	// SessionReady history loaded, live feed attached
	SessionReady SessionState = "ready"
	// SessionError history query failed, retryable by re-open
	SessionError SessionState = "error"
)

// feed channels, 模擬 store 的 change feed (INSERT / UPDATE)
const (
	// ChannelMessageInsert realtime feed of inserted rows
	ChannelMessageInsert = "chat:events:insert"
	// ChannelMessageUpdate realtime feed of updated rows (mark-as-read)
	ChannelMessageUpdate = "chat:events:update"
)

// Action websocket request action
type Action string

const (
	// OpenChat websocket action open_chat
	OpenChat Action = "open_chat"
	// CloseChat websocket action close_chat
	CloseChat Action = "close_chat"
	// SendMessage websocket action send_message
	SendMessage Action = "send_message"
	// GetUnread websocket action get_unread
	GetUnread Action = "get_unread"
	// ListCorrespondents websocket action list_correspondents
	ListCorrespondents Action = "list_correspondents"
	// SelectCorrespondent websocket action select_correspondent
	SelectCorrespondent Action = "select_correspondent"
	// NotifyMessage websocket action notify_message
	NotifyMessage Action = "notify_message"
	// NotifyRoster websocket action notify_roster
	NotifyRoster Action = "notify_roster"
)

// WSRequest websocket Request
type WSRequest struct {
	Action     string `json:"action"`
	CustomerID string `json:"customer_id"`
	Text       string `json:"text"`
	ImageURL   string `json:"image_url"`
}

// WSResponse websocket Response
type WSResponse struct {
	Action  string                 `json:"action"`
	Success bool                   `json:"success"`
	Payload map[string]interface{} `json:"payload,omitempty"`
	Error   string                 `json:"error,omitempty"`
}

// MessagePayload 前端顯示用的訊息欄位
func MessagePayload(m Message) map[string]interface{} {
	return map[string]interface{}{
		"id":          m.ID,
		"sender_id":   m.SenderID,
		"receiver_id": m.ReceiverID,
		"message":     m.Content,
		"is_read":     m.IsRead,
		"created_at":  m.CreatedAt,
		"render":      string(ClassifyContent(m.Content)),
		"clock":       ClockLabel(m.CreatedAt),
		"day":         DayKey(m.CreatedAt),
	}
}
