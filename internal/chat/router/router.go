package router

import (
	"context"

	"petshop_service/internal/chat/app"
	"petshop_service/internal/chat/domain"
	"petshop_service/internal/chat/repository"
	"petshop_service/pkg/logger"
	"petshop_service/pkg/middlewares"
	"petshop_service/pkg/token"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// RegisterRoutes 注册聊天相关的路由
func RegisterRoutes(r *fiber.App, chatWebsocket *app.ChatWebsocketHandler, images repository.ImageStore, bus *app.ChatBus) {
	r.Use(middlewares.JWTMiddleware())

	r.Get("/ws", websocket.New(func(c *websocket.Conn) {
		// 這裡可以建立一個「執行個體」，將 UseCase 等注入
		chatWebsocket.HandleConnection(context.Background(), c)
	}))

	// 圖片先上傳拿 url, 再由 websocket send_message 帶 image_url 送出
	r.Post("/chat/upload", func(c *fiber.Ctx) error {
		role, _ := c.Locals(middlewares.TokenRole).(string)

		fileHeader, err := c.FormFile("image")
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "image file required"})
		}
		file, err := fileHeader.Open()
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		defer file.Close()

		contentType := fileHeader.Header.Get("Content-Type")
		var url string
		if role == string(token.RoleAdmin) {
			url, err = images.UploadAdminImage(c.Context(), fileHeader.Filename, file, fileHeader.Size, contentType)
		} else {
			url, err = images.UploadCustomerImage(c.Context(), fileHeader.Filename, file, fileHeader.Size, contentType)
		}
		if err != nil {
			logger.Log.Errorf("upload image err :", err)
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": domain.ErrUploadFailed.Error()})
		}

		return c.JSON(fiber.Map{"image_url": url})
	})

	// 其他流程 (訂單完成/寵物詢問) 塞訊息進聊天.
	// 只觸發發起請求的 customer 自己的 widget
	r.Post("/chat/trigger", func(c *fiber.Ctx) error {
		memberID, _ := c.Locals(middlewares.TokenMemberID).(string)
		if memberID == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": domain.ErrIdentityMissing.Error()})
		}

		var req struct {
			Text     string `json:"text"`
			ImageURL string `json:"image_url"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		if req.Text == "" && req.ImageURL == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "empty trigger"})
		}

		bus.Publish(memberID, app.TriggerMessage{Text: req.Text, ImageURL: req.ImageURL})
		return c.JSON(fiber.Map{"subscribers": bus.SubscriberCount(memberID)})
	})
}
