package rag

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	applog "aura/internal/platform/log"
)

// IngestService 文档入库编排器。
// 流程：存文档 → 分块 → 单批 Embedding → 持久化分块（与文档同事务）→ 清租户缓存。
// Embedding 在持久化之前完成，任一步失败都不会留下半截分块。
type IngestService struct {
	store    Store
	embedder Embedder
	chunker  *Chunker
	cache    AnswerCacheStore // 可选
	config   *Config
}

// NewIngestService 创建入库编排器
func NewIngestService(store Store, embedder Embedder, cfg *Config) *IngestService {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &IngestService{
		store:    store,
		embedder: embedder,
		chunker:  NewChunker(cfg.ChunkMaxTokens),
		config:   cfg,
	}
}

// SetCache 设置答案缓存（入库后自动失效）
func (s *IngestService) SetCache(c AnswerCacheStore) {
	s.cache = c
}

// Ingest 入库单个文档
func (s *IngestService) Ingest(ctx context.Context, tenantID string, req *IngestRequest) (*IngestResult, error) {
	start := time.Now()

	if strings.TrimSpace(req.Content) == "" {
		return nil, ErrEmptyDocument
	}
	if err := s.validateTenant(ctx, tenantID); err != nil {
		return nil, err
	}

	docType := req.DocType
	if docType == "" {
		docType = "markdown"
	}

	doc := &Document{
		ID:       uuid.New().String(),
		TenantID: tenantID,
		Title:    req.Title,
		Content:  req.Content,
		DocType:  docType,
		Metadata: req.Metadata,
	}

	// 1. 分块
	texts := s.chunker.Split(req.Content)
	applog.Info("[RAG/Ingest] Document chunked", "title", req.Title, "chunks", len(texts))

	// 2. 单批 Embedding
	vectors, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbedding, err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("%w: expected %d vectors, got %d", ErrEmbedding, len(texts), len(vectors))
	}

	// 维度必须与全语料一致，混合维度是致命入库错误
	dims := s.embedder.Dims()
	for i, v := range vectors {
		if len(v) != dims {
			return nil, fmt.Errorf("%w: chunk %d has %d dims, corpus uses %d", ErrDimensionMismatch, i, len(v), dims)
		}
	}

	// 3. 构造分块行（冗余 tenant_id 与文档标题）
	chunks := make([]*Chunk, len(texts))
	totalTokens := 0
	for i, text := range texts {
		tokens := EstimateTokens(text)
		totalTokens += tokens
		chunks[i] = &Chunk{
			ID:         uuid.New().String(),
			DocumentID: doc.ID,
			TenantID:   tenantID,
			Index:      i,
			Content:    text,
			TokenCount: tokens,
			Embedding:  vectors[i],
			Metadata:   map[string]string{"document_title": req.Title},
		}
	}

	// 4. 原子持久化（文档 + 全部分块一个事务）
	if err := s.store.InsertDocumentWithChunks(ctx, doc, chunks); err != nil {
		return nil, fmt.Errorf("persist document: %w", err)
	}

	// 5. 新知识可能让旧拒答变成可答，同步清掉租户缓存
	if s.cache != nil {
		s.cache.InvalidateTenant(ctx, tenantID)
	}

	applog.Info("[RAG/Ingest] Document ingested",
		"document_id", doc.ID,
		"tenant_id", tenantID,
		"chunks", len(chunks),
		"total_tokens", totalTokens,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	return &IngestResult{
		DocumentID:  doc.ID,
		Title:       req.Title,
		ChunkCount:  len(chunks),
		TotalTokens: totalTokens,
	}, nil
}

// ListDocuments 租户文档列表
func (s *IngestService) ListDocuments(ctx context.Context, tenantID string) ([]*DocumentInfo, error) {
	if err := s.validateTenant(ctx, tenantID); err != nil {
		return nil, err
	}
	docs, err := s.store.ListDocuments(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRetrieval, err)
	}
	return docs, nil
}

// DeleteDocument 删除文档（级联删除分块），并同步清租户缓存
func (s *IngestService) DeleteDocument(ctx context.Context, tenantID, documentID string) (bool, error) {
	if err := s.validateTenant(ctx, tenantID); err != nil {
		return false, err
	}

	deleted, err := s.store.DeleteDocument(ctx, tenantID, documentID)
	if err != nil {
		return false, fmt.Errorf("delete document: %w", err)
	}
	if deleted && s.cache != nil {
		s.cache.InvalidateTenant(ctx, tenantID)
	}
	return deleted, nil
}

func (s *IngestService) validateTenant(ctx context.Context, tenantID string) error {
	tenant, err := s.store.GetTenant(ctx, tenantID)
	if err != nil {
		return fmt.Errorf("validate tenant: %w", err)
	}
	if tenant == nil || !tenant.IsActive {
		return ErrInvalidTenant
	}
	return nil
}
