package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"tourism_chat_service/internal/chat/app"
	"tourism_chat_service/internal/chat/domain"
	"tourism_chat_service/internal/chat/repository"
	"tourism_chat_service/internal/chat/router"
	"tourism_chat_service/pkg/config"
	"tourism_chat_service/pkg/database"
	"tourism_chat_service/pkg/logger"
	"tourism_chat_service/pkg/test_tool"
	"tourism_chat_service/pkg/token"

	"github.com/gofiber/fiber/v2"
	fiber_log "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

func main() {
	logger.Log = logger.Initialize(config.EnvConfig.ChatService, config.EnvConfig.ChatServiceLogPath)
	defer logger.Log.Sync()

	cfg, err := config.LoadConfig[config.Chat](config.EnvConfig.ChatService, config.EnvConfig.ChatServiceYAMLPath)
	if err != nil {
		logger.Log.Fatal("load config failed", zap.Error(err))
	}
	settings := cfg.Chat.WithDefaults()
	token.SetSecret(config.EnvConfig.JWTSecret)
	testtool.StartPprof()

	ctx := context.Background()

	// 1. mongo: conversations + messages
	uri := fmt.Sprintf("mongodb://%s:%s@%s:%d", cfg.MongoSQL.User, cfg.MongoSQL.Password, cfg.MongoSQL.Host, cfg.MongoSQL.Port)
	mongo, err := database.NewMongoDB(ctx,
		database.Connection{
			ConnectStr:    uri,
			RetryCount:    cfg.MongoSQL.RetryCount,
			RetryInterval: cfg.MongoSQL.RetryDelay(),
		},
		cfg.MongoSQL.Database)
	if err != nil {
		logger.Log.Fatal(
			"Unable to connect to mongoDB database after retries",
			zap.String("address", fmt.Sprintf("[%s:%d]", cfg.MongoSQL.Host, cfg.MongoSQL.Port)),
			zap.Error(err),
		)
	}
	defer mongo.Close(ctx)

	// 2. postgres: users through pgx, bookings through gorm
	pgConn := database.Connection{
		ConnectStr: fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
			cfg.Postgres.User, cfg.Postgres.Password, cfg.Postgres.Host, cfg.Postgres.Port, cfg.Postgres.Database),
		RetryCount:    cfg.Postgres.RetryCount,
		RetryInterval: cfg.Postgres.RetryDelay(),
	}
	pool, err := database.NewDatabaseConnection(pgConn)
	if err != nil {
		logger.Log.Fatal("Unable to connect to postgreSQL database after retries", zap.Error(err))
	}
	defer pool.Close()

	gormDB, err := database.NewGormConnection(pgConn)
	if err != nil {
		logger.Log.Fatal("Unable to open gorm handle", zap.Error(err))
	}

	// 3. redis: presence cache
	masterName, sentinel := config.GetRedisSetting()
	redisClient, err := database.NewRedisClient(masterName, sentinel, cfg.Redis.Addr, cfg.Redis.RedisDB)
	if err != nil {
		logger.Log.Fatal("connect redis failed", zap.Error(err))
	}
	defer redisClient.Close()

	// 4. minio: attachments
	minioClient, err := database.NewMinIOConnection(database.MinIOConnection{
		Endpoint:      cfg.MinIO.Endpoint,
		User:          cfg.MinIO.User,
		Password:      cfg.MinIO.Password,
		BucketName:    cfg.MinIO.Bucket,
		UseSSL:        cfg.MinIO.UseSSL,
		PublicURL:     cfg.MinIO.PublicURL,
		RetryCount:    cfg.MinIO.RetryCount,
		RetryInterval: cfg.MinIO.RetryDelay(),
	})
	if err != nil {
		logger.Log.Fatal("connect minio failed", zap.Error(err))
	}

	// 5. kafka: chat events, optional
	events := repository.NewNopEventPublisher()
	if brokers := lo.Compact(cfg.Kafka.Brokers); len(brokers) > 0 {
		writer, err := database.NewKafkaWriterWithRetry(ctx, database.KafkaConnection{
			Brokers:       brokers,
			Topic:         cfg.Kafka.Topic,
			RetryCount:    5,
			RetryInterval: 2 * time.Second,
		})
		if err != nil {
			logger.Log.Fatal("connect kafka failed", zap.Error(err))
		}
		defer writer.Close()
		events = repository.NewKafkaEventPublisher(writer)
	}

	// 6. repositories
	convRepo := repository.NewMongoConversationRepository(mongo.Database)
	msgRepo := repository.NewMongoChatMessageRepository(mongo.Database)
	if err := convRepo.EnsureIndexes(ctx); err != nil {
		logger.Log.Fatal("conversation indexes", zap.Error(err))
	}
	if err := msgRepo.EnsureIndexes(ctx); err != nil {
		logger.Log.Fatal("message indexes", zap.Error(err))
	}
	userRepo := repository.NewUserRepository(pool)
	bookingRepo := repository.NewBookingRepository(gormDB)
	attachmentRepo := repository.NewMinIOAttachmentRepository(minioClient)
	presenceCache := database.NewRedisRepository[domain.Presence](redisClient)

	// 7. realtime state + use cases
	registry := app.NewConnectionRegistry()
	subs := app.NewSubscriptionTable()
	broadcaster := app.NewBroadcaster(registry, subs)
	presence := app.NewPresenceTracker(userRepo, presenceCache, time.Duration(settings.PresenceTTLSec)*time.Second)

	messageUC := app.NewSendMessageUseCase(convRepo, msgRepo, userRepo, events, broadcaster, app.StubTranslator{})
	convUC := app.NewConversationUseCase(convRepo, msgRepo, userRepo, bookingRepo, presence, settings.HistoryPageSize)
	uploadUC := app.NewUploadUseCase(attachmentRepo, settings.MaxUploadMB)

	wsHandler := app.NewChatWebsocketHandler(registry, subs, broadcaster, presence, messageUC, userRepo, token.Verifier{}, app.SessionConfig{
		DeliveryDelay: time.Duration(settings.DeliveryDelayMs) * time.Millisecond,
		PingInterval:  time.Duration(settings.PingIntervalSec) * time.Second,
		SendBuffer:    settings.SendBuffer,
	})

	// 8. fiber
	r := fiber.New(fiber.Config{
		BodyLimit: (settings.MaxUploadMB + 1) << 20,
	})
	file, err := os.OpenFile(fmt.Sprintf("%s/access.log", config.EnvConfig.ChatServiceLogPath), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0666)
	if err != nil {
		logger.Log.Fatal("Failed to open access log file", zap.Error(err))
	}
	defer file.Close()

	r.Use(fiber_log.New(fiber_log.Config{
		Output: file,
	}))

	router.RegisterRoutes(r, wsHandler, app.NewChatHandler(convUC, messageUC, uploadUC))

	port := ":" + cfg.Port
	if config.EnvConfig.ChatServicePort != "" {
		port = ":" + config.EnvConfig.ChatServicePort
	}
	logger.Log.Info("Chat Service listening", zap.String("port", port))
	if err := r.Listen(port); err != nil {
		logger.Log.Fatal("Failed to start Fiber", zap.Error(err))
	}
}
