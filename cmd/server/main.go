package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"time"

	"joeunedu/internal/app"
	"joeunedu/internal/config"
	"joeunedu/internal/intent"
	"joeunedu/internal/server"
	"joeunedu/internal/util"
	"joeunedu/pkg/ai"
	"joeunedu/pkg/storage"
	"joeunedu/pkg/store"
)

func main() {
	cfg, err := config.Load(config.ConfigPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := util.InitLogger(cfg.LogLevel)

	documentStore, err := store.NewGormStore(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to init database: %v", err)
	}

	sessionTTL := time.Duration(cfg.SessionTTLDays) * 24 * time.Hour
	sessions, err := store.NewJWTSessionStore(cfg.SessionSecret, sessionTTL)
	if err != nil {
		log.Fatalf("failed to init session store: %v", err)
	}

	newBucket := func(bucket string) *storage.MinioStore {
		st, err := storage.NewMinioStore(cfg.StorageEndpoint, cfg.StorageAccessKey, cfg.StorageSecretKey, bucket, cfg.StorageUseSSL)
		if err != nil {
			log.Fatalf("failed to init bucket %s: %v", bucket, err)
		}
		return st
	}
	storyFiles := newBucket(cfg.StoriesBucket)
	resourceFiles := newBucket(cfg.ResourcesBucket)

	info := intent.DefaultConsultancyInfo()
	completer := ai.NewOpenAICompatCompleter(ai.Config{
		BaseURL:      cfg.LLMBaseURL,
		APIKey:       cfg.LLMAPIKey,
		Model:        cfg.LLMModel,
		SystemPrompt: intent.SystemPrompt(info),
		SiteURL:      cfg.LLMSiteURL,
		SiteName:     cfg.LLMSiteName,
	})

	appCore, err := app.New(app.Config{
		Store:          documentStore,
		Sessions:       sessions,
		StoryFiles:     storyFiles,
		ResourceFiles:  resourceFiles,
		URLs:           storage.NewFileURLBuilder(cfg.StoragePublicURL, cfg.StorageProject),
		Completer:      completer,
		Intents:        intent.NewResolver(info),
		Buckets:        app.Buckets{Stories: cfg.StoriesBucket, Gallery: cfg.GalleryBucket, Resources: cfg.ResourcesBucket},
		ImageExts:      cfg.AllowedExtensions,
		NewsFetchLimit: cfg.NewsFetchLimit,
		TickerInterval: time.Duration(cfg.NewsTickerIntervalSeconds) * time.Second,
	})
	if err != nil {
		log.Fatalf("failed to init app: %v", err)
	}

	tickerCtx, stopTicker := context.WithCancel(context.Background())
	defer stopTicker()
	go appCore.RunNewsTicker(tickerCtx)

	httpServer, err := server.New(server.Config{
		App:                      appCore,
		RedisAddr:                cfg.RedisAddr,
		RedisPassword:            cfg.RedisPassword,
		ChatRateLimitPerMinute:   cfg.ChatRateLimitPerMinute,
		StoryRateLimitPerMinute:  cfg.StoryRateLimitPerMinute,
		SignupRateLimitPerMinute: cfg.SignupRateLimitPerMinute,
		TrustedProxyCIDRs:        cfg.TrustedProxyCIDRs,
		SessionCookieName:        cfg.SessionCookieName,
		SessionTTL:               sessionTTL,
		SecureCookies:            cfg.SecureCookies,
		MaxUploadBytes:           cfg.MaxUploadBytes,
	})
	if err != nil {
		log.Fatalf("failed to init server: %v", err)
	}

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      httpServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	slog.Info("server listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", "err", err)
	}
}
