package app

import (
	"context"
	"encoding/json"
	"log"
	"strconv"
	"sync"
	"time"

	"petshop_service/internal/chat/domain"
	"petshop_service/internal/chat/repository"
	"petshop_service/pkg/logger"
	"petshop_service/pkg/middlewares"
	"petshop_service/pkg/token"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"
)

// ChatWebsocketHandler 可包含所有需要的 UseCase,
// 每條連線依 role 建立 widget (customer) 或 inbox (admin)
type ChatWebsocketHandler struct {
	send     *SendMessageUseCase
	unreadUC *UnreadUseCase
	msgRepo  repository.MessageRepository
	profiles repository.ProfileRepository
	presence repository.PresenceRepository
	images   repository.ImageStore
	feed     repository.PubSub
	bus      *ChatBus
}

// NewChatWebsocketHandler create ChatWebsocketHandler
func NewChatWebsocketHandler(
	send *SendMessageUseCase,
	unreadUC *UnreadUseCase,
	msgRepo repository.MessageRepository,
	profiles repository.ProfileRepository,
	presence repository.PresenceRepository,
	images repository.ImageStore,
	feed repository.PubSub,
	bus *ChatBus,
) *ChatWebsocketHandler {
	return &ChatWebsocketHandler{
		send:     send,
		unreadUC: unreadUC,
		msgRepo:  msgRepo,
		profiles: profiles,
		presence: presence,
		images:   images,
		feed:     feed,
		bus:      bus,
	}
}

// HandleConnection 是 WebSocket 連線的進入點
func (h *ChatWebsocketHandler) HandleConnection(ctx context.Context, conn *websocket.Conn) {
	tokenMember := conn.Locals(middlewares.TokenMemberID)
	memberID, ok := tokenMember.(string)
	role, _ := conn.Locals(middlewares.TokenRole).(string)
	logger.Log.Info("websocket handle memberID",
		zap.String("userID", memberID),
		zap.String("role", role),
		zap.String("ok", strconv.FormatBool(ok)),
	)
	if memberID == "" {
		h.sendError(conn, domain.ErrIdentityMissing.Error())
		conn.Close()
		return
	}

	ticker := time.NewTicker(10 * time.Minute)
	ctxClose, cancel := context.WithCancel(context.Background())

	// 同條連線的寫入需要序列化, notify callback 與 read loop 會並發寫
	var writeMu sync.Mutex
	write := func(resp domain.WSResponse) {
		writeMu.Lock()
		defer writeMu.Unlock()
		h.sendResponse(conn, resp)
	}

	cs, err := h.attach(ctxClose, memberID, role, write)
	if err != nil {
		h.sendError(conn, err.Error())
		ticker.Stop()
		conn.Close()
		cancel()
		return
	}
	widget, inbox := cs.widget, cs.inbox

	defer func() {
		ticker.Stop()
		logger.Log.Info("websocket close", zap.String("userID", memberID))
		cs.cleanup()
		conn.Close()
		cancel()
	}()

	//client發出close
	//fiber會自動處理(在read msg 回傳err),故需要SetCloseHandler另外接出
	conn.SetCloseHandler(func(code int, text string) error {
		logger.Log.Infof("WebSocket closed:", conn.RemoteAddr())
		return nil
	})

	//server發出ping之後client連線正常會回pong
	//fiber會自動處理回傳pong,故需要SetPongHandler另外接出
	conn.SetPongHandler(func(appData string) error {
		// pong 順便刷新 presence ttl
		if err := h.presence.Refresh(ctxClose, memberID); err != nil {
			logger.Log.Errorf("presence refresh err :", err)
		}
		return nil
	})

	//client發出ping
	//fiber會自動處理ping,故需要SetPingHandler另外接出
	conn.SetPingHandler(func(appData string) error {
		return conn.WriteControl(
			websocket.PongMessage,
			[]byte(appData),
			time.Now().Add(time.Second),
		)
	})

	// 定期發送 Ping
	go func() {
		for {
			select {
			case <-ticker.C:
				pingMsg := "ping message"
				writeMu.Lock()
				err := conn.WriteMessage(websocket.PingMessage, []byte(pingMsg))
				writeMu.Unlock()
				if err != nil {
					logger.Log.Errorf("Ping error:", err)
					return
				}
			case <-ctxClose.Done():
				logger.Log.Infof("Ping goroutine cancelled for member:", memberID)
				return
			}
		}
	}()

	for {
		// 1. 讀取前端訊息
		mt, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived, //1005 c.WriteMessage(websocket.CloseMessage, []byte{})
			) {
				logger.Log.Errorf("Connection closed:", err)
			} else {
				//直接斷線 1006
				logger.Log.Errorf("websocket read error:", err)
			}
			return
		}
		h.execWebsocketAction(ctx, memberID, widget, inbox, write, mt, message)
	}
}

// connSession 一條連線身上的狀態, widget 與 inbox 依 role 擇一
type connSession struct {
	session *ChatSession
	widget  *CustomerWidget
	inbox   *AdminInbox
	cleanup func()
}

// attach 依 role 建 widget/inbox, 成功後才標記上線
// customer Mount 失敗直接回 err, 不能留下 online 狀態
func (h *ChatWebsocketHandler) attach(ctx context.Context, memberID, role string, write func(domain.WSResponse)) (*connSession, error) {
	session := NewChatSession(h.send, h.msgRepo, h.feed, memberID)
	session.SetNotify(func(msg domain.Message) {
		write(domain.WSResponse{
			Action:  string(domain.NotifyMessage),
			Success: true,
			Payload: domain.MessagePayload(msg),
		})
	})

	cs := &connSession{session: session}
	if role == string(token.RoleAdmin) {
		cs.inbox = NewAdminInbox(session, h.unreadUC, h.msgRepo, h.profiles, h.presence, h.images, memberID)
		// admin 收件匣靠 feed 事件刷新 roster (新訊息/已讀都會動到 badge)
		h.subscribeRoster(ctx, cs.inbox, write)
	} else {
		cs.widget = NewCustomerWidget(session, h.send, h.unreadUC, h.profiles, h.bus, memberID)
		if err := cs.widget.Mount(ctx); err != nil {
			return nil, err
		}
		cs.widget.SetOnForcedOpen(func() {
			write(domain.WSResponse{
				Action:  string(domain.OpenChat),
				Success: true,
				Payload: h.sessionPayload(cs.widget.Session()),
			})
		})
		h.subscribeBadge(ctx, cs.widget, memberID, write)
	}

	if err := h.presence.SetOnline(ctx, memberID); err != nil {
		logger.Log.Errorf("presence set online err :", err)
	}
	if err := h.profiles.SetOnline(ctx, memberID, true); err != nil {
		logger.Log.Errorf("profile set online err :", err)
	}

	cs.cleanup = func() {
		if cs.widget != nil {
			cs.widget.Unmount()
		}
		if cs.inbox != nil {
			cs.inbox.Deselect()
		}
		bg := context.Background()
		if err := h.presence.SetOffline(bg, memberID); err != nil {
			logger.Log.Errorf("presence set offline err :", err)
		}
		if err := h.profiles.SetOnline(bg, memberID, false); err != nil {
			logger.Log.Errorf("profile set offline err :", err)
		}
	}
	return cs, nil
}

// subscribeRoster admin 連線期間訂閱 feed, 任何 insert/update 都重算 roster 推給前端
func (h *ChatWebsocketHandler) subscribeRoster(ctx context.Context, inbox *AdminInbox, write func(domain.WSResponse)) {
	refresh := func(msg domain.Message) {
		roster, err := inbox.ListCorrespondents(ctx)
		if err != nil {
			logger.Log.Errorf("refresh roster err :", err)
			return
		}
		write(domain.WSResponse{
			Action:  string(domain.NotifyRoster),
			Success: true,
			Payload: map[string]interface{}{"correspondents": roster},
		})
	}
	if err := h.feed.Subscribe(ctx, domain.ChannelMessageInsert, refresh); err != nil {
		logger.Log.Errorf("subscribe insert feed err :", err)
	}
	if err := h.feed.Subscribe(ctx, domain.ChannelMessageUpdate, refresh); err != nil {
		logger.Log.Errorf("subscribe update feed err :", err)
	}
}

// subscribeBadge customer 關著 widget 時收到新訊息要更新 badge
func (h *ChatWebsocketHandler) subscribeBadge(ctx context.Context, widget *CustomerWidget, memberID string, write func(domain.WSResponse)) {
	handler := func(msg domain.Message) {
		if msg.ReceiverID != memberID || widget.IsOpen() {
			return
		}
		count, err := h.unreadUC.CustomerUnread(ctx, memberID, msg.SenderID)
		if err != nil {
			return
		}
		write(domain.WSResponse{
			Action:  string(domain.GetUnread),
			Success: true,
			Payload: map[string]interface{}{"unread": count},
		})
	}
	if err := h.feed.Subscribe(ctx, domain.ChannelMessageInsert, handler); err != nil {
		logger.Log.Errorf("subscribe insert feed err :", err)
	}
}

func (h *ChatWebsocketHandler) execWebsocketAction(ctx context.Context, memberID string, widget *CustomerWidget, inbox *AdminInbox, write func(domain.WSResponse), mt int, msg []byte) {
	switch mt {
	case websocket.TextMessage:
		h.textMessageAction(ctx, memberID, widget, inbox, write, msg)

	//! close ping pong fiber會自動處理，故需使用setHandler處理
	default:
		write(errorResponse("unknown action"))
	}
}

func (h *ChatWebsocketHandler) textMessageAction(ctx context.Context, memberID string, widget *CustomerWidget, inbox *AdminInbox, write func(domain.WSResponse), msg []byte) {

	var req domain.WSRequest
	if err := json.Unmarshal(msg, &req); err != nil {
		log.Printf("json unmarshal error: %v", err)
		return
	}

	resp := domain.WSResponse{Action: req.Action, Success: false, Payload: map[string]interface{}{}}
	switch req.Action {
	//開啟對話 customer: toggle open / admin 需先 select
	case string(domain.OpenChat):
		if widget == nil {
			resp.Error = domain.ErrNoCorrespondent.Error()
			break
		}
		if !widget.IsOpen() {
			if err := widget.Toggle(ctx); err != nil {
				resp.Error = err.Error()
				break
			}
		}
		resp.Success = true
		for k, v := range h.sessionPayload(widget.Session()) {
			resp.Payload[k] = v
		}

	//關閉對話
	case string(domain.CloseChat):
		switch {
		case widget != nil:
			if widget.IsOpen() {
				if err := widget.Toggle(ctx); err != nil {
					resp.Error = err.Error()
					break
				}
			}
			resp.Success = true
			resp.Payload["unread"] = widget.UnreadCount()
		case inbox != nil:
			inbox.Deselect()
			resp.Success = true
		}

	//傳送訊息 customer 與 admin 的組合規則不同
	case string(domain.SendMessage):
		var err error
		if widget != nil {
			err = widget.Send(ctx, req.Text, req.ImageURL)
		} else {
			err = inbox.SendAsAdmin(ctx, req.Text, req.ImageURL)
		}
		if err != nil {
			resp.Error = err.Error()
		} else {
			resp.Success = true
		}

	//搜尋未讀 customer 單一計數 / admin 依 customer 分桶
	case string(domain.GetUnread):
		if widget != nil {
			resp.Success = true
			resp.Payload["unread"] = widget.UnreadCount()
			break
		}
		unread, err := h.unreadUC.AdminUnread(ctx, memberID)
		if err != nil {
			resp.Error = err.Error()
			break
		}
		resp.Success = true
		for customerID, count := range unread {
			resp.Payload[customerID] = count
		}

	//admin 收件匣清單
	case string(domain.ListCorrespondents):
		if inbox == nil {
			resp.Error = "admin only"
			break
		}
		roster, err := inbox.ListCorrespondents(ctx)
		if err != nil {
			resp.Error = err.Error()
			break
		}
		resp.Success = true
		resp.Payload["correspondents"] = roster

	//admin 選取 customer 開啟對話
	case string(domain.SelectCorrespondent):
		if inbox == nil {
			resp.Error = "admin only"
			break
		}
		roster, err := inbox.Select(ctx, req.CustomerID)
		if err != nil {
			resp.Error = err.Error()
			break
		}
		resp.Success = true
		resp.Payload["correspondents"] = roster
		for k, v := range h.sessionPayload(inbox.Session()) {
			resp.Payload[k] = v
		}

	default:
		write(errorResponse("unknown message types "))
		return
	}

	if resp.Error != "" {
		logger.Log.Error("websocket err ", zap.String("MemberID", memberID), zap.String("Action", req.Action), zap.String("err", resp.Error))
	}
	write(resp)
}

// sessionPayload 開啟對話後回給前端的完整歷史
func (h *ChatWebsocketHandler) sessionPayload(session *ChatSession) map[string]interface{} {
	messages := session.Messages()
	rows := make([]map[string]interface{}, 0, len(messages))
	for _, m := range messages {
		rows = append(rows, domain.MessagePayload(m))
	}
	return map[string]interface{}{
		"state":    string(session.State()),
		"messages": rows,
	}
}

// sendResponse - 發送 JSON 給前端
func (h *ChatWebsocketHandler) sendResponse(conn *websocket.Conn, resp domain.WSResponse) {
	b, _ := json.Marshal(resp)
	if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
		logger.Log.Errorf("write message error:", err)
	}
}

func (h *ChatWebsocketHandler) sendError(conn *websocket.Conn, errorMsg string) {
	h.sendResponse(conn, errorResponse(errorMsg))
}

func errorResponse(errorMsg string) domain.WSResponse {
	return domain.WSResponse{
		Action:  "error",
		Success: false,
		Payload: map[string]interface{}{
			"error": errorMsg,
		},
	}
}
