package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "community_chat_service/cmd/chat_service/docs"
	accountapp "community_chat_service/internal/account/app"
	accountdomain "community_chat_service/internal/account/domain"
	"community_chat_service/internal/chat/app"
	"community_chat_service/internal/chat/domain"
	"community_chat_service/internal/chat/repository"
	"community_chat_service/internal/chat/router"
	"community_chat_service/pkg/config"
	"community_chat_service/pkg/database"
	"community_chat_service/pkg/logger"
	testtool "community_chat_service/pkg/test_tool"
	"community_chat_service/pkg/token"

	"github.com/go-redis/redis/v8"
	"github.com/gofiber/fiber/v2"
	fiber_log "github.com/gofiber/fiber/v2/middleware/logger"
	"go.uber.org/zap"
)

func main() {
	logger.Log = logger.Initialize(config.EnvConfig.ChatService, config.EnvConfig.ChatServiceLogPath)
	defer logger.Log.Sync()

	cfg := config.LoadConfig[config.Chat](config.EnvConfig.ChatService, config.EnvConfig.ChatServiceYAMLPath)
	cfg.Messaging = cfg.Messaging.WithDefaults()
	if err := token.SetSecret(cfg.JWTSecret); err != nil {
		logger.Log.Fatal("jwt_secret / JWT_SECRET", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. 訊息與房間儲存
	roomRepo, msgRepo, closeStore := openStorage(ctx, cfg)
	defer closeStore()

	// 2. 額度計數
	usageRepo := openUsage(cfg)

	// 3. Redis (Pub/Sub + 帳號快取), 未設定時退回單機
	redisClient := openRedis(cfg)
	var pubsub repository.PubSub = repository.NewLocalPubSub()
	if redisClient != nil {
		defer redisClient.Close()
		pubsub = repository.NewRedisPubSub(redisClient)
	}

	// 4. account_service gRPC
	accounts := openAccounts(cfg, redisClient)

	// 5. RabbitMQ upsell
	var upsell app.UpsellPublisher
	if cfg.RabbitMQ.URL != "" {
		conn, err := database.ConnectRabbitMQWithRetry(database.Connection{
			ConnectStr:    cfg.RabbitMQ.URL,
			RetryCount:    cfg.RabbitMQ.RetryCount,
			RetryInterval: time.Duration(cfg.RabbitMQ.RetryInterval),
		})
		if err != nil {
			logger.Log.Fatal("connect rabbitmq", zap.Error(err))
		}
		defer conn.Close()

		ch, err := database.OpenQueueChannel(conn, cfg.RabbitMQ.Queue)
		if err != nil {
			logger.Log.Fatal("open upsell queue", zap.Error(err))
		}
		defer ch.Close()
		upsell = app.NewRabbitUpsellPublisher(database.NewRabbitRepository(ch), cfg.RabbitMQ.Queue)
	}

	// 6. UseCases
	period, err := domain.PeriodByName(cfg.Messaging.QuotaPeriod)
	if err != nil {
		logger.Log.Fatal("quota period", zap.Error(err))
	}
	gate := app.NewQuotaGate(usageRepo, accounts, upsell, cfg.Messaging.QuotaLimit, period)

	var opts []app.MessageOption
	if cfg.Messaging.EchoDelay > 0 {
		opts = append(opts, app.WithEcho(cfg.Messaging.EchoDelay))
	}
	messageUC := app.NewMessageUseCase(roomRepo, msgRepo, pubsub, gate, cfg.Messaging.EphemeralTTL, opts...)
	bookingUC := app.NewBookingUseCase(messageUC, msgRepo)
	roomUC := app.NewRoomUseCase(roomRepo, messageUC, bookingUC)
	sweeper := app.NewExpirySweeper(msgRepo, cfg.Messaging.SweepInterval)

	// 7. Kafka booking.confirmed
	if len(cfg.Kafka.Brokers) > 0 && cfg.Kafka.Brokers[0] != "" {
		newReader := func() app.MessageReader {
			return database.NewKafkaReader(database.KafkaConnection{
				Brokers: cfg.Kafka.Brokers,
				Topic:   cfg.Kafka.Topic,
				GroupID: cfg.Kafka.GroupID,
			})
		}
		go app.SuperviseBookingConsumer(ctx, newReader, bookingUC, time.Second, time.Minute)
	}

	testtool.StartPprof()

	// 8. 啟動 Fiber
	r := fiber.New()
	file, err := os.OpenFile(fmt.Sprintf("%s/access.log", config.EnvConfig.ChatServiceLogPath), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0666)
	if err != nil {
		logger.Log.Fatal("Failed to open access log", zap.Error(err))
	}
	defer file.Close()

	r.Use(fiber_log.New(fiber_log.Config{
		Output: file,
	}))

	router.RegisterRoutes(r,
		app.NewChatHandler(roomUC, messageUC, bookingUC, gate),
		app.NewChatWebsocketHandler(roomUC, messageUC, bookingUC, sweeper, pubsub),
	)

	go func() {
		<-ctx.Done()
		logger.Log.Info("shutting down chat service")
		if err := r.ShutdownWithTimeout(10 * time.Second); err != nil {
			logger.Log.Error("fiber shutdown", zap.Error(err))
		}
	}()

	port := ":" + cfg.Port
	logger.Log.Info(fmt.Sprintf("Chat Service listening on %s", port))
	if err := r.Listen(port); err != nil {
		logger.Log.Fatal("Failed to start Fiber", zap.Error(err))
	}
}

func openStorage(ctx context.Context, cfg config.Chat) (repository.RoomRepository, repository.MessageRepository, func()) {
	if cfg.Storage != "mongo" {
		logger.Log.Warn("using in-memory conversation storage", zap.String("storage", cfg.Storage))
		return repository.NewMemoryRoomRepository(), repository.NewMemoryMessageRepository(), func() {}
	}

	uri := database.MongoURI(cfg.MongoSQL.User, cfg.MongoSQL.Password, cfg.MongoSQL.Host, cfg.MongoSQL.Port)
	mongo, err := database.NewMongoDB(ctx,
		database.Connection{
			ConnectStr:    uri,
			RetryCount:    cfg.MongoSQL.RetryCount,
			RetryInterval: time.Duration(cfg.MongoSQL.RetryInterval),
		},
		cfg.MongoSQL.Database)
	if err != nil {
		logger.Log.Fatal(
			"Unable to connect to mongoDB database after retries",
			zap.String("host", cfg.MongoSQL.Host),
			zap.Error(err),
		)
	}

	if err := repository.EnsureRoomIndexes(ctx, mongo.Database); err != nil {
		logger.Log.Fatal("ensure room indexes", zap.Error(err))
	}
	if err := repository.EnsureMessageIndexes(ctx, mongo.Database); err != nil {
		logger.Log.Fatal("ensure message indexes", zap.Error(err))
	}

	return repository.NewMongoChatRepository(mongo.Database),
		repository.NewMongoChatMessageRepository(mongo.Database),
		func() { _ = mongo.Close(context.Background()) }
}

func openUsage(cfg config.Chat) repository.UsageRepository {
	if cfg.Usage.Driver == "" || cfg.Usage.Driver == "memory" {
		return repository.NewMemoryUsageRepository()
	}

	db, err := database.NewGormDB(cfg.Usage.Driver, cfg.Usage.DSN)
	if err != nil {
		logger.Log.Fatal("open usage store", zap.String("driver", cfg.Usage.Driver), zap.Error(err))
	}
	if err := repository.MigrateUsage(db); err != nil {
		logger.Log.Fatal("migrate usage counters", zap.Error(err))
	}
	return repository.NewGormUsageRepository(db)
}

func openRedis(cfg config.Chat) *redis.Client {
	masterName, sentinel := config.GetRedisSetting()
	if cfg.Redis.Addr == "" && len(sentinel) == 0 {
		return nil
	}

	client, err := database.NewRedisClient(cfg.Redis.Addr, masterName, sentinel, cfg.Redis.RedisDB)
	if err != nil {
		logger.Log.Fatal(fmt.Sprintf("connect redis err : %v", err))
	}
	return client
}

func openAccounts(cfg config.Chat, redisClient *redis.Client) accountapp.AccountLookup {
	if cfg.AccountService.Name == "" {
		logger.Log.Warn("account service not configured, every business account is metered")
		return nil
	}

	conn, err := database.CreateGRPCClient(cfg.AccountService.Name+":"+cfg.AccountService.Port, 10*time.Second)
	if err != nil {
		logger.Log.Fatal("connect account service", zap.Error(err))
	}

	var lookup accountapp.AccountLookup = accountapp.NewAccountClient(conn)
	if redisClient != nil {
		cache := database.NewRedisRepository[accountdomain.Account](redisClient, "chat:account:")
		lookup = accountapp.NewCachedAccountLookup(lookup, cache, cfg.AccountService.CacheTTL)
	}
	return lookup
}
