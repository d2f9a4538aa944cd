package main // Entry point package

import (
	"log"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/creator-marketplace/internal/auth"
	"github.com/iliyamo/creator-marketplace/internal/chat"
	"github.com/iliyamo/creator-marketplace/internal/config"
	"github.com/iliyamo/creator-marketplace/internal/database"
	"github.com/iliyamo/creator-marketplace/internal/handler"
	"github.com/iliyamo/creator-marketplace/internal/middleware"
	"github.com/iliyamo/creator-marketplace/internal/queue"
	"github.com/iliyamo/creator-marketplace/internal/repository"
	"github.com/iliyamo/creator-marketplace/internal/router"
	"github.com/iliyamo/creator-marketplace/internal/token"
)

func main() {
	cfg := config.Load()

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}

	users := repository.NewUserRepo(db)
	sessions := repository.NewSessionRepo(db)
	recovery := repository.NewRecoveryRepo(db)
	rooms := repository.NewRoomRepo(db)
	messages := repository.NewMessageRepo(db)

	accessCodec := token.NewCodec(cfg.AccessSecret, time.Duration(cfg.AccessTTLMin)*time.Minute)
	refreshCodec := token.NewCodec(cfg.RefreshSecret, time.Duration(cfg.RefreshTTLDays)*24*time.Hour)
	sessionMgr := auth.NewManager(users, sessions, recovery, accessCodec, refreshCodec,
		cfg.BcryptCost, time.Duration(cfg.RecoveryTTLHours)*time.Hour)

	engine := chat.NewEngine(rooms, messages, chat.NewHub())

	// Background notification consumer; reconnects on broker outages.
	go func() {
		if err := queue.StartNotificationConsumer(); err != nil {
			log.Printf("notification consumer stopped: %v", err)
		}
	}()

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis unavailable; rate limiting disabled")
	}
	limiter := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)

	e := echo.New()
	router.RegisterRoutes(e)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, sessionMgr), sessionMgr, limiter)
	router.RegisterChat(e, handler.NewChatHandler(engine), sessionMgr)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)

	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
