package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"aura/internal/domain/rag"
	applog "aura/internal/platform/log"
)

// ServerConfig 服务配置
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	JWTSecret    string // JWT 签名密钥（必填）
	JWTIssuer    string // JWT 签发者（可选）
}

// DefaultServerConfig 默认配置
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Host:         "0.0.0.0",
		Port:         8080,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 2 * time.Minute, // LLM 生成可能较慢
	}
}

// HealthProbe 依赖健康探测
type HealthProbe func(ctx context.Context) error

// Server HTTP 服务器
type Server struct {
	config    *ServerConfig
	store     rag.Store
	directory TenantDirectory
	query     *rag.QueryService
	ingest    *rag.IngestService
	probes    map[string]HealthProbe
	httpSrv   *http.Server
}

// NewServer 创建服务器
func NewServer(config *ServerConfig, store rag.Store, directory TenantDirectory, query *rag.QueryService, ingest *rag.IngestService) *Server {
	if config == nil {
		config = DefaultServerConfig()
	}
	return &Server{
		config:    config,
		store:     store,
		directory: directory,
		query:     query,
		ingest:    ingest,
		probes:    make(map[string]HealthProbe),
	}
}

// SetHealthProbe 注册依赖健康探测（postgres / redis 等）
func (s *Server) SetHealthProbe(name string, probe HealthProbe) {
	s.probes[name] = probe
}

// Start 启动服务器
func (s *Server) Start() error {
	r, err := s.buildRouter()
	if err != nil {
		return err
	}

	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.httpSrv = &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	applog.Infof("🚀 Knowledge assistant API server starting on %s", addr)
	return s.httpSrv.ListenAndServe()
}

// Stop 优雅停机
func (s *Server) Stop(ctx context.Context) error {
	if s.httpSrv != nil {
		return s.httpSrv.Shutdown(ctx)
	}
	return nil
}

// Handler 返回 HTTP Handler（用于测试）
func (s *Server) Handler() http.Handler {
	r, err := s.buildRouter()
	if err != nil {
		panic(err)
	}
	return r
}

func (s *Server) buildRouter() (http.Handler, error) {
	if strings.TrimSpace(s.config.JWTSecret) == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(corsMiddleware)

	r.Get("/health", s.handleHealth)

	tenantHandler := NewTenantHandler(s.directory)
	tenantHandler.RegisterPublicRoutes(r)

	jwtCfg := &JWTConfig{
		Secret: s.config.JWTSecret,
		Issuer: s.config.JWTIssuer,
	}
	authMW := authMiddleware(jwtCfg)

	knowledgeHandler := NewKnowledgeHandler(s.store, s.query, s.ingest)
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(authMW)
		knowledgeHandler.RegisterRoutes(r)
	})

	return r, nil
}

// handleHealth 聚合依赖探测；任一依赖不可用则降级为 degraded
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	status := "ok"
	deps := make(map[string]string, len(s.probes))
	for name, probe := range s.probes {
		if err := probe(ctx); err != nil {
			deps[name] = "unavailable"
			status = "degraded"
			applog.Warn("[Health] Dependency check failed", "dependency", name, "error", err)
		} else {
			deps[name] = "ok"
		}
	}

	code := http.StatusOK
	if status != "ok" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]interface{}{
		"status":       status,
		"dependencies": deps,
	})
}

// corsMiddleware CORS 中间件
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
