package rag

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	applog "aura/internal/platform/log"
)

// QueryService 问答编排器。
// 状态机：CACHE_CHECK → (HIT → AUDIT_CACHED) 或
// (MISS → EMBED → RETRIEVE → GENERATE → AUDIT_FRESH → CACHE_WRITE?)。
// 每次调用恰好产生一条审计记录（缓存命中也不例外）。
type QueryService struct {
	store     Store
	embedder  Embedder
	generator Generator
	cache     AnswerCacheStore // 可选
	config    *Config
}

// NewQueryService 创建问答编排器
func NewQueryService(store Store, embedder Embedder, generator Generator, cfg *Config) *QueryService {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &QueryService{
		store:     store,
		embedder:  embedder,
		generator: generator,
		config:    cfg,
	}
}

// SetCache 设置答案缓存
func (s *QueryService) SetCache(c AnswerCacheStore) {
	s.cache = c
}

// Ask 端到端问答 pipeline
func (s *QueryService) Ask(ctx context.Context, tenantID, question string) (*AskResult, error) {
	start := time.Now()

	if err := s.validateTenant(ctx, tenantID); err != nil {
		return nil, err
	}

	// ── 1. 缓存查询 ───────────────────────────────────────
	if s.cache != nil {
		if cached, ok := s.cache.Get(ctx, tenantID, question); ok {
			return s.answerFromCache(ctx, tenantID, question, cached, start)
		}
	}

	// ── 2. 问题向量化 ─────────────────────────────────────
	vectors, err := s.embedder.Embed(ctx, []string{question})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbedding, err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("%w: expected 1 vector, got %d", ErrEmbedding, len(vectors))
	}

	// ── 3. 租户范围向量检索 ───────────────────────────────
	contexts, err := s.store.SearchChunks(ctx, tenantID, vectors[0], s.config.ScoreThreshold, s.config.TopK)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRetrieval, err)
	}

	applog.Info("[RAG] Chunks retrieved",
		"tenant_id", tenantID,
		"count", len(contexts),
	)

	// ── 4. LLM 生成 ──────────────────────────────────────
	gen, err := s.generator.Generate(ctx, question, contexts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGeneration, err)
	}

	// ── 5. 构造引用来源（excerpt 截断）──────────────────────
	sources := make([]SourceReference, 0, len(contexts))
	for _, c := range contexts {
		sources = append(sources, SourceReference{
			ChunkID:        c.ChunkID,
			DocumentTitle:  c.DocumentTitle,
			RelevanceScore: math.Round(c.Similarity*1e4) / 1e4,
			Excerpt:        truncateRunes(c.Content, s.config.ExcerptLength),
		})
	}

	status := RequestStatusCompleted
	if gen.Refused {
		status = RequestStatusRefused
	}
	latencyMs := time.Since(start).Milliseconds()

	// ── 6. 审计记录 ───────────────────────────────────────
	rec := &RequestRecord{
		ID:            uuid.New().String(),
		TenantID:      tenantID,
		Question:      question,
		Sources:       marshalSources(sources),
		Status:        status,
		RefusedReason: gen.RefusedReason,
		TokenUsage: TokenUsage{
			PromptTokens:     gen.PromptTokens,
			CompletionTokens: gen.CompletionTokens,
			TotalTokens:      gen.TotalTokens,
		},
		Model:     gen.Model,
		LatencyMs: latencyMs,
		Cached:    false,
	}
	if !gen.Refused {
		answer := gen.Answer
		rec.Answer = &answer
	}
	if err := s.store.InsertRequest(ctx, rec); err != nil {
		return nil, fmt.Errorf("write audit record: %w", err)
	}

	result := &AskResult{
		RequestID:     rec.ID,
		Question:      question,
		Answer:        gen.Answer,
		Sources:       sources,
		Status:        status,
		RefusedReason: gen.RefusedReason,
		Cached:        false,
		Model:         gen.Model,
		LatencyMs:     latencyMs,
		TokenUsage:    rec.TokenUsage,
	}

	// ── 7. 缓存写入（只缓存成功答案，拒答不缓存）──────────
	if s.cache != nil && status == RequestStatusCompleted {
		s.cache.Set(ctx, tenantID, question, result)
	}

	return result, nil
}

// answerFromCache 缓存命中：照样写一条审计记录（cached=true），
// request_id/latency/cached 字段按本次请求覆盖。
func (s *QueryService) answerFromCache(ctx context.Context, tenantID, question string, cached *AskResult, start time.Time) (*AskResult, error) {
	rec := &RequestRecord{
		ID:         uuid.New().String(),
		TenantID:   tenantID,
		Question:   question,
		Sources:    marshalSources(cached.Sources),
		Status:     cached.Status,
		TokenUsage: cached.TokenUsage,
		Model:      cached.Model,
		Cached:     true,
	}
	if cached.Answer != "" {
		answer := cached.Answer
		rec.Answer = &answer
	}
	rec.LatencyMs = time.Since(start).Milliseconds()

	if err := s.store.InsertRequest(ctx, rec); err != nil {
		return nil, fmt.Errorf("write audit record: %w", err)
	}

	applog.Info("[RAG] Cache hit", "tenant_id", tenantID, "request_id", rec.ID)

	result := *cached
	result.RequestID = rec.ID
	result.Cached = true
	result.LatencyMs = rec.LatencyMs
	return &result, nil
}

func (s *QueryService) validateTenant(ctx context.Context, tenantID string) error {
	tenant, err := s.store.GetTenant(ctx, tenantID)
	if err != nil {
		return fmt.Errorf("validate tenant: %w", err)
	}
	if tenant == nil || !tenant.IsActive {
		return ErrInvalidTenant
	}
	return nil
}

func marshalSources(sources []SourceReference) json.RawMessage {
	if sources == nil {
		sources = []SourceReference{}
	}
	data, err := json.Marshal(sources)
	if err != nil {
		return json.RawMessage("[]")
	}
	return data
}
