package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"heal-engine/internal/config"
	"heal-engine/internal/db"
	"heal-engine/internal/email"
	apihttp "heal-engine/internal/http"
	"heal-engine/internal/llm"
	"heal-engine/internal/repository"
	"heal-engine/internal/service"
)

func main() {
	ctx := context.Background()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	var (
		sessionRepo repository.SessionRepository
		messageRepo repository.MessageRepository
	)
	if cfg.DatabaseURL != "" {
		pool, err := db.NewPool(ctx, cfg)
		if err != nil {
			logger.Fatal("db connect", zap.Error(err))
		}
		defer pool.Close()
		if err := db.Ping(ctx, pool); err != nil {
			logger.Fatal("db ping", zap.Error(err))
		}
		sessionRepo = repository.NewPgSessionRepository(pool)
		messageRepo = repository.NewPgMessageRepository(pool)
	} else {
		logger.Warn("DATABASE_URL not set, using in-memory session store")
		sessionRepo = repository.NewMemorySessionRepository()
		messageRepo = repository.NewMemoryMessageRepository()
	}

	var llmClient llm.LLMClient
	if cfg.LLMAPIKey != "" {
		llmClient = llm.NewHTTPClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel, service.NiaSystemPrompt, zap.NewStdLog(logger))
	} else {
		logger.Warn("LLM_API_KEY not set, replies come from the fallback table only")
	}
	responder := service.NewResponder(llmClient, time.Duration(cfg.LLMTimeoutSeconds)*time.Second, logger)

	ussdTTL := time.Duration(cfg.UssdSessionTTLMinutes) * time.Minute
	var ussdStore service.UssdSessionStore
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := redisClient.Ping(ctxPing).Err()
		cancel()
		if err != nil {
			logger.Warn("redis ping failed, using in-memory ussd store", zap.Error(err))
			ussdStore = service.NewMemoryUssdStore(ussdTTL)
		} else {
			ussdStore = service.NewRedisUssdStore(redisClient, ussdTTL)
		}
	} else {
		ussdStore = service.NewMemoryUssdStore(ussdTTL)
	}

	notifier := email.NewDisabledSender("report notifier not configured")
	if cfg.SMTPHost != "" && cfg.ReportInboxAddr != "" {
		sender, err := email.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom, cfg.SMTPFromName, cfg.SMTPUseTLS, cfg.ReportInboxAddr)
		if err != nil {
			logger.Warn("smtp sender init failed", zap.Error(err))
		} else {
			notifier = sender
		}
	}

	chatSvc := service.NewChatService(logger, sessionRepo, messageRepo, responder)
	ussdSvc := service.NewUssdService(logger, ussdStore, responder, notifier)

	chatHandler := apihttp.NewChatHandler(logger, chatSvc)
	ussdHandler := apihttp.NewUssdHandler(logger, ussdSvc)
	if cfg.IdentityJWTSecret == "" {
		logger.Warn("identity jwt secret not configured, trusting X-User-ID header")
	}
	router := apihttp.NewRouter(logger, cfg.IdentityJWTSecret, chatHandler, ussdHandler)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info("starting server", zap.String("port", cfg.HTTPPort))

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("server error", zap.Error(err))
	}
}
