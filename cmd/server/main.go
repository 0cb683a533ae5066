package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	goredis "github.com/redis/go-redis/v9"

	"aura/internal/api"
	"aura/internal/db/postgres"
	redisdb "aura/internal/db/redis"
	"aura/internal/domain/rag"
	"aura/internal/platform/config"
	applog "aura/internal/platform/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Config load failed: %v\n", err)
		os.Exit(1)
	}

	applog.Init(applog.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	})

	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		applog.Fatalf("❌ Failed to connect to database: %v", err)
	}
	defer db.Close()

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(cfg.Database.ConnMaxLifetimeSeconds) * time.Second)

	if err := db.Ping(); err != nil {
		applog.Fatalf("❌ Failed to ping database: %v", err)
	}
	applog.Info("✅ Connected to PostgreSQL")

	repo := postgres.NewRepository(db)

	migrateCtx, migrateCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer migrateCancel()
	if err := repo.EnsureTables(migrateCtx, cfg.RAG.EmbeddingDims); err != nil {
		applog.Fatalf("❌ Failed to ensure knowledge base tables: %v", err)
	}
	applog.Infof("✅ Knowledge base tables ready (embedding dims: %d)", cfg.RAG.EmbeddingDims)

	cache := initAnswerCache(cfg)

	embedder := buildEmbedder(cfg)
	generator := buildGenerator(cfg)

	queryService := rag.NewQueryService(repo, embedder, generator, &cfg.RAG)
	ingestService := rag.NewIngestService(repo, embedder, &cfg.RAG)
	if cache != nil {
		queryService.SetCache(cache)
		ingestService.SetCache(cache)
	}

	serverConfig := api.DefaultServerConfig()
	serverConfig.Host = cfg.Server.Host
	serverConfig.Port = cfg.Server.Port
	serverConfig.ReadTimeout = time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second
	serverConfig.WriteTimeout = time.Duration(cfg.Server.WriteTimeoutSeconds) * time.Second
	serverConfig.JWTSecret = cfg.Auth.JWTSecret
	serverConfig.JWTIssuer = cfg.Auth.JWTIssuer

	server := api.NewServer(serverConfig, repo, repo, queryService, ingestService)
	server.SetHealthProbe("postgres", db.PingContext)
	if cache != nil {
		server.SetHealthProbe("redis", cache.Ping)
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		applog.Info("🔄 Shutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		if err := server.Stop(ctx); err != nil {
			applog.Errorf("❌ Server shutdown error: %v", err)
		}
	}()

	if err := server.Start(); err != nil && err.Error() != "http: Server closed" {
		applog.Fatalf("❌ Server error: %v", err)
	}

	applog.Info("👋 Server stopped")
}

// initAnswerCache 连接 Redis 并初始化答案缓存。
// CACHE_TTL_SECONDS=0 时禁用缓存，服务仍可运行。
func initAnswerCache(cfg *config.AppConfig) *redisdb.AnswerCache {
	if !cfg.RAG.HasCache() {
		applog.Info("ℹ️  Answer cache disabled (CACHE_TTL_SECONDS=0)")
		return nil
	}

	opt, err := goredis.ParseURL(cfg.Redis.URL)
	if err != nil {
		applog.Fatalf("❌ Invalid REDIS_URL: %v", err)
	}

	redisClient := goredis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		applog.Fatalf("❌ Redis connection failed: %v", err)
	}
	applog.Infof("✅ Connected to Redis for answer cache (TTL: %ds)", cfg.RAG.CacheTTL)

	return redisdb.NewAnswerCache(redisClient, cfg.RAG.CacheTTL)
}

// buildEmbedder 按配置选择 embedding 实现
func buildEmbedder(cfg *config.AppConfig) rag.Embedder {
	switch cfg.RAG.EmbeddingProvider {
	case "openai":
		embedder := rag.NewOpenAIEmbedder(rag.OpenAIEmbedderConfig{
			BaseURL: cfg.OpenAI.BaseURL,
			APIKey:  cfg.OpenAI.APIKey,
			Model:   cfg.RAG.EmbeddingModel,
			Dims:    cfg.RAG.EmbeddingDims,
		})
		applog.Infof("✅ Embedder initialized (provider: openai, model: %s, dims: %d)", cfg.RAG.EmbeddingModel, embedder.Dims())
		return embedder
	default:
		embedder := rag.NewHashEmbedder(cfg.RAG.EmbeddingDims)
		applog.Infof("✅ Embedder initialized (provider: stub, dims: %d)", embedder.Dims())
		return embedder
	}
}

// buildGenerator 按配置选择生成器实现
func buildGenerator(cfg *config.AppConfig) rag.Generator {
	switch cfg.RAG.LLMProvider {
	case "openai":
		applog.Infof("✅ Generator initialized (provider: openai, model: %s)", cfg.RAG.LLMModel)
		return rag.NewOpenAIGenerator(rag.OpenAIGeneratorConfig{
			BaseURL: cfg.OpenAI.BaseURL,
			APIKey:  cfg.OpenAI.APIKey,
			Model:   cfg.RAG.LLMModel,
		})
	default:
		applog.Info("✅ Generator initialized (provider: stub)")
		return rag.NewStubGenerator()
	}
}
