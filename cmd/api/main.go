package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/krpetrov/svyaz/internal/auth"
	"github.com/krpetrov/svyaz/internal/config"
	"github.com/krpetrov/svyaz/internal/data"
	"github.com/krpetrov/svyaz/internal/db"
	"github.com/krpetrov/svyaz/internal/logging"
	"github.com/krpetrov/svyaz/internal/middleware"
)

const tokenTTL = 24 * time.Hour

func main() {
	configPath := flag.String("config", "", "path to TOML config file (optional)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Development)
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()

	dbClient, err := db.New(ctx, cfg.MongoURI)
	if err != nil {
		logger.Fatal("connecting to mongo failed", zap.Error(err))
	}
	defer func() { _ = dbClient.Close(ctx) }()

	if err := dbClient.CreateIndexes(ctx); err != nil {
		logger.Fatal("creating indexes failed", zap.Error(err))
	}

	if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
		logger.Fatal("creating upload dir failed", zap.String("dir", cfg.UploadDir), zap.Error(err))
	}

	usersStore := data.NewUsersStore(dbClient.UsersCollection())
	chatsStore := data.NewChatsStore(dbClient.ChatsCollection(), dbClient.MessagesCollection(), dbClient.UsersCollection())
	msgsStore := data.NewMessagesStore(dbClient.MessagesCollection())

	jwtMgr := auth.NewJWTManager(cfg.JWTSecret, tokenTTL)

	// Small burst so a couple of quick retries on register/login still pass.
	limiterStore := middleware.NewLimiterStore(cfg.RateLimitRPM, 3, 1*time.Minute)
	defer limiterStore.Stop()

	registry := NewConnectionRegistry()
	presence := NewPresenceTracker(registry, usersStore, logger)
	router := NewMessageRouter(msgsStore, chatsStore, usersStore, registry, presence, logger)

	srv := NewServer(*cfg, usersStore, chatsStore, msgsStore, router, presence, registry, jwtMgr, limiterStore, logger)
	app := srv.App()

	go func() {
		addr := ":" + cfg.Port
		logger.Info("server listening", zap.String("addr", addr))
		if err := app.Listen(addr); err != nil {
			logger.Fatal("server exit", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Error("shutdown failed", zap.Error(err))
	}
}
