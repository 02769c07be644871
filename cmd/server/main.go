package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"smartdocs/docs"
	"smartdocs/internal/auth"
	"smartdocs/internal/cache"
	"smartdocs/internal/config"
	"smartdocs/internal/db"
	"smartdocs/internal/embedding"
	"smartdocs/internal/handler"
	"smartdocs/internal/imageref"
	"smartdocs/internal/logger"
	"smartdocs/internal/repository"
	"smartdocs/internal/router"
	"smartdocs/internal/service"
	"smartdocs/internal/storage"
	"smartdocs/internal/telemetry"
)

// @title Smart Documents API
// @version 1.0
// @description Department-scoped documents with image uploads and semantic search.
// @host localhost:8002
// @BasePath /api
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	cfg := config.Load()

	zl, err := logger.New(cfg.Mode)
	if err != nil {
		log.Fatalf("logger init: %v", err)
	}
	defer func() { _ = zl.Sync() }()
	l := logger.Component(zl, "server")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, cfg.ServiceName, cfg.OTLPEndpoint, !cfg.IsProd())
	if err != nil {
		l.Fatal("telemetry init", zap.Error(err))
	}

	gormDB, err := db.NewPostgres(cfg.DatabaseDSN, zl)
	if err != nil {
		l.Fatal("database init", zap.Error(err))
	}
	if err := db.Migrate(gormDB); err != nil {
		l.Fatal("migrate", zap.Error(err))
	}

	cacheClient := cache.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB, zl)
	if err := cacheClient.Ping(ctx); err != nil {
		l.Warn("redis unavailable, continuing without cache", zap.Error(err))
	}
	defer cacheClient.Close()

	gcsClient, err := storage.NewClient(ctx, storage.ClientOptions{
		Credentials:  cfg.GCSCredentials,
		EmulatorHost: cfg.StorageEmulator,
	})
	if err != nil {
		l.Fatal("storage init", zap.Error(err))
	}
	defer gcsClient.Close()
	documentImages := storage.NewGCSStore(gcsClient, cfg.DocumentBucket, cfg.StoragePublicBase, cfg.StorageEmulator, zl)
	profileImages := storage.NewGCSStore(gcsClient, cfg.ProfileBucket, cfg.StoragePublicBase, cfg.StorageEmulator, zl)

	embedder := embedding.NewOpenAIEmbedder(embedding.Options{
		BaseURL: cfg.EmbeddingBaseURL,
		APIKey:  cfg.EmbeddingAPIKey,
		Model:   cfg.EmbeddingModel,
	}, zl)
	resolver := imageref.NewResolver(documentImages, zl)

	// Initialize repositories
	userRepo := repository.NewUserRepository(gormDB)
	categoryRepo := repository.NewCategoryRepository(gormDB)
	documentRepo := repository.NewDocumentRepository(gormDB)

	// Initialize auth components
	jwtService := auth.NewJWTService(cfg.JWTSecret, cfg.AccessTokenExpiry, cfg.RefreshTokenExpiry)
	tokenStore := auth.NewTokenStore(cacheClient)

	// Initialize services
	authService := service.NewAuthService(userRepo, jwtService, tokenStore)
	userService := service.NewUserService(userRepo, cacheClient, profileImages, zl)
	categoryService := service.NewCategoryService(categoryRepo, documentRepo, zl)
	documentService := service.NewDocumentService(documentRepo, categoryRepo, embedder, resolver, zl)

	e := echo.New()
	e.HideBanner = true
	router.Register(
		e,
		logger.Component(zl, "http"),
		auth.Middleware(jwtService, tokenStore, userService),
		handler.NewAuthHandler(authService),
		handler.NewUserHandler(userService),
		handler.NewDocumentHandler(documentService),
		handler.NewCategoryHandler(categoryService),
	)

	if cfg.SwaggerHost != "" {
		docs.SwaggerInfo.Host = strings.TrimPrefix(strings.TrimPrefix(cfg.SwaggerHost, "https://"), "http://")
	}
	l.Info("swagger documentation available", zap.String("url", swaggerURL(cfg.SwaggerHost, cfg.ServerPort)))

	go func() {
		if err := e.Start(":" + cfg.ServerPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.Fatal("server start", zap.Error(err))
		}
	}()

	<-ctx.Done()
	l.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		l.Error("server shutdown", zap.Error(err))
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		l.Error("tracer shutdown", zap.Error(err))
	}
}

func swaggerURL(host, port string) string {
	switch {
	case host == "":
		return "http://localhost:" + port + "/swagger/index.html"
	case strings.HasPrefix(host, "http://"), strings.HasPrefix(host, "https://"):
		return strings.TrimRight(host, "/") + "/swagger/index.html"
	default:
		return "http://" + host + "/swagger/index.html"
	}
}
