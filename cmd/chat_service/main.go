package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"petshop_service/internal/chat/app"
	"petshop_service/internal/chat/repository"
	"petshop_service/internal/chat/router"
	"petshop_service/pkg/config"
	"petshop_service/pkg/database"
	"petshop_service/pkg/logger"

	"github.com/gofiber/fiber/v2"
	fiber_log "github.com/gofiber/fiber/v2/middleware/logger"
	"go.uber.org/zap"
)

func main() {
	logger.Log = logger.Initialize(config.EnvConfig.ChatService, config.EnvConfig.ChatServiceLogPath)
	cfg := config.LoadConfig[config.Chat](config.EnvConfig.ChatService, config.EnvConfig.ChatServiceYAMLPath)

	// 2. 建立 PostgreSQL 連線 (存訊息 & profiles)
	uri := fmt.Sprintf("postgres://%s:%s@%s:%d/%s",
		cfg.PostgreSQL.User, cfg.PostgreSQL.Password, cfg.PostgreSQL.Host, cfg.PostgreSQL.Port, cfg.PostgreSQL.Database)
	pool, err := database.NewDatabaseConnection(database.Connection{
		ConnectStr:    uri,
		RetryCount:    cfg.PostgreSQL.RetryCount,
		RetryInterval: time.Duration(cfg.PostgreSQL.RetryInterval),
	})
	if err != nil {
		logger.Log.Fatal(
			"Unable to connect to database after retries",
			zap.String("address", fmt.Sprintf("[%s:%d]", cfg.PostgreSQL.Host, cfg.PostgreSQL.Port)),
			zap.Error(err),
		)
	}
	defer pool.Close()

	// 3. 建立 Redis 連線 (change feed + presence)
	masterName, sentinel := config.GetRedisSetting()
	redisClient, err := database.NewRedisClient(masterName, sentinel, cfg.Redis.Addr, cfg.Redis.RedisDB)
	if err != nil {
		logger.Log.Fatal(fmt.Sprintf("connect redis err : %v", err))
	}

	// 4. 建立 MinIO 連線 (聊天圖片, customer/admin 各一個 bucket)
	minioClient, err := database.NewMinIOConnection(database.MinIOConnection{
		Endpoint:      cfg.MinIO.Endpoint,
		User:          cfg.MinIO.User,
		Password:      cfg.MinIO.Password,
		Buckets:       []string{cfg.MinIO.CustomerBucket, cfg.MinIO.AdminBucket},
		UseSSL:        cfg.MinIO.UseSSL,
		RetryCount:    cfg.MinIO.RetryCount,
		RetryInterval: time.Duration(cfg.MinIO.RetryInterval),
	})
	if err != nil {
		logger.Log.Fatal(fmt.Sprintf("connect minio err : %v", err))
	}

	// 5. Kafka 匯出訊息事件, 沒設定 brokers 就不啟用
	var events app.EventWriter
	if len(cfg.Kafka.Brokers) > 0 {
		writer, err := database.NewKafkaWriterWithRetry(database.KafkaConnection{
			Brokers:       cfg.Kafka.Brokers,
			Topic:         cfg.Kafka.Topic,
			RetryCount:    cfg.Kafka.RetryCount,
			RetryInterval: time.Duration(cfg.Kafka.RetryInterval),
		})
		if err != nil {
			logger.Log.Errorf("connect kafka err, export disabled :", err)
		} else {
			defer writer.Close()
			events = writer
		}
	}

	// 6. 初始化 Repository
	msgRepo := repository.NewPgMessageRepository(pool)
	profileRepo := repository.NewPgProfileRepository(pool)
	feed := repository.NewRedisPubSub(redisClient)
	presence := repository.NewPresenceRepository(database.NewRedisRepository[bool](redisClient))
	images := repository.NewMinioImageStore(minioClient, cfg.MinIO.CustomerBucket, cfg.MinIO.AdminBucket)

	// 7. 初始化 UseCases
	sendMessageUC := app.NewSendMessageUseCase(msgRepo, feed, events)
	unreadUC := app.NewUnreadUseCase(msgRepo)
	bus := app.NewChatBus()

	// 8. 啟動 Fiber
	r := fiber.New()
	file, err := os.OpenFile(fmt.Sprintf("%s/access.log", config.EnvConfig.ChatServiceLogPath), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0666)
	if err != nil {
		log.Fatalf("Failed to open log file: %v", err)
	}
	defer file.Close()

	r.Use(fiber_log.New(fiber_log.Config{
		Output: file,
	}))

	// 注册路由
	chatWebsocket := app.NewChatWebsocketHandler(sendMessageUC, unreadUC, msgRepo, profileRepo, presence, images, feed, bus)
	router.RegisterRoutes(r, chatWebsocket, images, bus)

	// Listen
	port := ":" + cfg.Port
	log.Printf("Chat Service listening on %s", port)
	if err := r.Listen(port); err != nil {
		log.Fatalf("Failed to start Fiber: %v", err)
	}
}
