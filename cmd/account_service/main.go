package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"

	"community_chat_service/internal/account/app"
	"community_chat_service/internal/account/repository"
	"community_chat_service/pkg/config"
	"community_chat_service/pkg/database"
	"community_chat_service/pkg/logger"
)

func main() {
	logger.Log = logger.Initialize(config.EnvConfig.AccountService, config.EnvConfig.AccountServiceLogPath)
	defer logger.Log.Sync()

	cfg := config.LoadConfig[config.Account](config.EnvConfig.AccountService, config.EnvConfig.AccountServiceYAMLPath)

	sqlParams := database.PostgresURI(cfg.PostgreSQL.User, cfg.PostgreSQL.Password, cfg.PostgreSQL.Host, cfg.PostgreSQL.Port, cfg.PostgreSQL.Database)
	pool, err := database.NewDatabaseConnection(database.Connection{
		ConnectStr:    sqlParams,
		RetryCount:    cfg.PostgreSQL.RetryCount,
		RetryInterval: time.Duration(cfg.PostgreSQL.RetryInterval),
	})
	if err != nil {
		logger.Log.Fatal(
			"Unable to connect to postgreSQL database after retries",
			zap.String("host", cfg.PostgreSQL.Host),
			zap.Error(err),
		)
	}
	defer pool.Close()

	accountRepo := repository.NewAccountRepository(pool)
	if err := accountRepo.Migrate(context.Background()); err != nil {
		logger.Log.Fatal("migrate accounts table", zap.Error(err))
	}
	usecase := app.NewAccountUseCase(accountRepo)

	lis, err := net.Listen("tcp", cfg.IP+":"+cfg.Port)
	if err != nil {
		logger.Log.Fatal(fmt.Sprintf("Failed to listen Port(%s): ", cfg.Port), zap.Error(err))
	}

	// 建立 gRPC 伺服器
	grpcServer := grpc.NewServer()
	app.RegisterAccountServiceServer(grpcServer, &app.AccountGRPCServer{Usecase: usecase})
	logger.Log.Info(fmt.Sprintf("AccountService gRPC server listening on : %s", cfg.Port))

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		logger.Log.Info("shutting down account service")
		grpcServer.GracefulStop()
	}()

	if err := grpcServer.Serve(lis); err != nil {
		logger.Log.Fatal("Failed to serve gRPC server", zap.Error(err))
	}
}
