// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package main is the entry point for the ProBit CMS server.
// It loads configuration, connects to services, sets up routing, and starts
// the HTTP server with graceful shutdown support.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"probitcms/internal/ai"
	"probitcms/internal/blog"
	"probitcms/internal/cache"
	"probitcms/internal/config"
	"probitcms/internal/contact"
	"probitcms/internal/database"
	"probitcms/internal/handlers"
	"probitcms/internal/mail"
	"probitcms/internal/middleware"
	"probitcms/internal/moderation"
	"probitcms/internal/orders"
	"probitcms/internal/payment"
	"probitcms/internal/publicview"
	"probitcms/internal/render"
	"probitcms/internal/router"
	"probitcms/internal/session"
	"probitcms/internal/storage"
	"probitcms/internal/store"
	"probitcms/web"
)

func main() {
	showUsage := flag.Bool("h", false, "print the environment variables the server reads")
	flag.Parse()
	if *showUsage {
		fmt.Println(config.Usage())
		return
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// JSON logs in production, text in development.
	var handler slog.Handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	if cfg.IsDev() {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	}
	slog.SetDefault(slog.New(handler))

	slog.Info("configuration loaded", "env", cfg.Env, "addr", cfg.Addr())

	ctx := context.Background()

	db, err := database.Connect(cfg.DSN())
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	if cfg.SeedAdminEmail != "" && cfg.SeedAdminPassword != "" {
		err := database.Seed(ctx, db, database.SeedAdmin{
			Email:    cfg.SeedAdminEmail,
			Password: cfg.SeedAdminPassword,
			Name:     "Administrator",
		})
		if err != nil {
			slog.Error("failed to seed database", "error", err)
			os.Exit(1)
		}
	}

	// Valkey backs both sessions and the public page cache.
	valkeyClient, err := cache.ConnectValkey(ctx, cfg.ValkeyAddr(), cfg.ValkeyPassword)
	if err != nil {
		slog.Error("failed to connect to valkey", "error", err)
		os.Exit(1)
	}
	defer valkeyClient.Close()

	sessionStore := session.NewStore(valkeyClient, cfg.SessionTTL, cfg.SecureCookies())
	pageCache := cache.NewPageCache(valkeyClient, cfg.PageTTL)

	renderer, err := render.New(render.Site{
		Company: cfg.CompanyName,
		Phone:   cfg.CompanyPhone,
		BaseURL: cfg.BaseURL,
	})
	if err != nil {
		slog.Error("failed to initialize template renderer", "error", err)
		os.Exit(1)
	}

	userStore := store.NewUserStore(db)
	postStore := store.NewPostStore(db)
	commentStore := store.NewCommentStore(db)
	contactStore := store.NewContactStore(db)
	orderStore := store.NewOrderStore(db)

	blogSvc := blog.NewService(postStore, commentStore, pageCache)
	moderationSvc := moderation.NewService(commentStore, postStore, pageCache)
	viewSvc := publicview.NewService(postStore, moderationSvc)

	if cfg.ResendAPIKey == "" {
		slog.Warn("resend not configured, contact emails will fail and be logged")
	}
	contactSvc := contact.NewService(contactStore,
		mail.NewClient(mail.Config{APIKey: cfg.ResendAPIKey, BaseURL: cfg.ResendBaseURL}),
		mail.NewComposer(mail.Identity{
			Company:     cfg.CompanyName,
			FromAddress: cfg.MailFrom,
			AdminTo:     cfg.AdminEmail,
			SiteURL:     cfg.BaseURL,
			Phone:       cfg.CompanyPhone,
		}),
	)

	if cfg.StripeSecretKey == "" {
		slog.Warn("stripe not configured, checkout will fail")
	}
	orderSvc := orders.NewService(orderStore,
		payment.NewClient(payment.Config{SecretKey: cfg.StripeSecretKey, BaseURL: cfg.StripeBaseURL}),
		cfg.BaseURL, cfg.CompanyName,
	)

	// Media uploads are optional; a nil client leaves the interface nil.
	var media handlers.ImageStore
	storageClient, err := storage.New(storage.Config{
		Endpoint:  cfg.S3Endpoint,
		Region:    cfg.S3Region,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
		Bucket:    cfg.S3Bucket,
		PublicURL: cfg.S3PublicURL,
	})
	switch {
	case err != nil:
		slog.Error("failed to initialize S3 storage", "error", err)
		os.Exit(1)
	case storageClient != nil:
		media = storageClient
		slog.Info("s3 storage connected", "endpoint", cfg.S3Endpoint, "bucket", cfg.S3Bucket)
	default:
		slog.Warn("s3 storage not configured, media uploads disabled")
	}

	aiRegistry := ai.NewRegistry(cfg.AIProvider, map[string]ai.ProviderConfig{
		"openai":  {APIKey: cfg.OpenAIKey, Model: cfg.OpenAIModel, BaseURL: cfg.OpenAIBaseURL},
		"gemini":  {APIKey: cfg.GeminiKey, Model: cfg.GeminiModel, BaseURL: cfg.GeminiBaseURL},
		"claude":  {APIKey: cfg.ClaudeKey, Model: cfg.ClaudeModel, BaseURL: cfg.ClaudeBaseURL},
		"mistral": {APIKey: cfg.MistralKey, Model: cfg.MistralModel, BaseURL: cfg.MistralBaseURL},
	})
	var assistant handlers.Assistant
	aiProvider := ""
	if aiRegistry.Enabled() {
		assistant = ai.NewAssistant(aiRegistry, cfg.CompanyName)
		aiProvider = aiRegistry.ActiveName()
	}
	slog.Info("ai providers initialized", "active", aiProvider, "available", aiRegistry.Available())

	static, err := fs.Sub(web.StaticFS, "static")
	if err != nil {
		slog.Error("failed to open static assets", "error", err)
		os.Exit(1)
	}

	formLimiter := middleware.NewRateLimiter(5, time.Minute)
	defer formLimiter.Stop()
	loginLimiter := middleware.NewRateLimiter(10, time.Minute)
	defer loginLimiter.Stop()

	r := router.New(router.Config{
		Sessions:      sessionStore,
		Public:        handlers.NewPublic(renderer, viewSvc, moderationSvc, contactSvc, orderSvc, pageCache),
		Auth:          handlers.NewAuth(renderer, sessionStore, userStore, cfg.CompanyName),
		Admin:         handlers.NewAdmin(renderer, blogSvc, moderationSvc, contactSvc, orderSvc, media, assistant, aiProvider),
		Static:        static,
		FormLimiter:   formLimiter,
		LoginLimiter:  loginLimiter,
		SecureCookies: cfg.SecureCookies(),
		Health: map[string]router.HealthCheck{
			"database": db.PingContext,
			"valkey":   func(ctx context.Context) error { return valkeyClient.Ping(ctx).Err() },
		},
	})

	// WriteTimeout covers AI endpoints waiting on an LLM response.
	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped gracefully")
}
