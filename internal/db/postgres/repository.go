package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"aura/internal/domain/rag"
	applog "aura/internal/platform/log"
)

// Repository PostgreSQL + pgvector 存储，实现 rag.Store。
// 所有查询都带强制 tenant_id 谓词，租户隔离不依赖调用方过滤。
type Repository struct {
	db *sql.DB
}

// NewRepository 创建 PostgreSQL 存储
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// EnsureTables 确保核心表存在（含 pgvector 扩展）
func (r *Repository) EnsureTables(ctx context.Context, embeddingDims int) error {
	if embeddingDims <= 0 {
		embeddingDims = 384
	}

	ddl := fmt.Sprintf(`
	CREATE EXTENSION IF NOT EXISTS vector;

	CREATE TABLE IF NOT EXISTS tenants (
		id         UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		name       VARCHAR(255) NOT NULL,
		slug       VARCHAR(100) NOT NULL UNIQUE,
		is_active  BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS documents (
		id         UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		tenant_id  UUID NOT NULL REFERENCES tenants(id) ON DELETE CASCADE,
		title      VARCHAR(500) NOT NULL,
		content    TEXT NOT NULL,
		doc_type   VARCHAR(50) NOT NULL DEFAULT 'markdown',
		metadata   JSONB NOT NULL DEFAULT '{}',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	CREATE INDEX IF NOT EXISTS idx_documents_tenant ON documents(tenant_id, created_at DESC);

	CREATE TABLE IF NOT EXISTS document_chunks (
		id          UUID PRIMARY KEY,
		document_id UUID NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
		tenant_id   UUID NOT NULL REFERENCES tenants(id) ON DELETE CASCADE,
		chunk_index INTEGER NOT NULL,
		content     TEXT NOT NULL,
		token_count INTEGER NOT NULL DEFAULT 0,
		embedding   vector(%d),
		metadata    JSONB NOT NULL DEFAULT '{}',
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (document_id, chunk_index)
	);
	CREATE INDEX IF NOT EXISTS idx_chunks_tenant ON document_chunks(tenant_id);
	CREATE INDEX IF NOT EXISTS idx_chunks_embedding ON document_chunks
		USING ivfflat (embedding vector_cosine_ops) WITH (lists = 100);

	CREATE TABLE IF NOT EXISTS ai_requests (
		id                UUID PRIMARY KEY,
		tenant_id         UUID NOT NULL REFERENCES tenants(id) ON DELETE CASCADE,
		question          TEXT NOT NULL,
		answer            TEXT,
		sources           JSONB NOT NULL DEFAULT '[]',
		status            VARCHAR(20) NOT NULL,
		refused_reason    TEXT,
		prompt_tokens     INTEGER NOT NULL DEFAULT 0,
		completion_tokens INTEGER NOT NULL DEFAULT 0,
		total_tokens      INTEGER NOT NULL DEFAULT 0,
		model_used        VARCHAR(100),
		latency_ms        BIGINT NOT NULL DEFAULT 0,
		cached            BOOLEAN NOT NULL DEFAULT FALSE,
		created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	CREATE INDEX IF NOT EXISTS idx_requests_tenant ON ai_requests(tenant_id, created_at DESC);

	CREATE TABLE IF NOT EXISTS feedback (
		id         UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		request_id UUID NOT NULL REFERENCES ai_requests(id) ON DELETE CASCADE,
		tenant_id  UUID NOT NULL REFERENCES tenants(id) ON DELETE CASCADE,
		rating     SMALLINT CHECK (rating BETWEEN 1 AND 5),
		comment    TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	`, embeddingDims)

	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

// --- 租户 ---

// GetTenant 按 id 读取租户（不存在返回 nil, nil）
func (r *Repository) GetTenant(ctx context.Context, tenantID string) (*rag.Tenant, error) {
	t := &rag.Tenant{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, slug, is_active, created_at FROM tenants WHERE id = $1`,
		tenantID,
	).Scan(&t.ID, &t.Name, &t.Slug, &t.IsActive, &t.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

// ListActiveTenants 活跃租户列表（按名称排序）
func (r *Repository) ListActiveTenants(ctx context.Context) ([]*rag.Tenant, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, slug, is_active, created_at FROM tenants WHERE is_active ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tenants []*rag.Tenant
	for rows.Next() {
		t := &rag.Tenant{}
		if err := rows.Scan(&t.ID, &t.Name, &t.Slug, &t.IsActive, &t.CreatedAt); err != nil {
			return nil, err
		}
		tenants = append(tenants, t)
	}
	return tenants, rows.Err()
}

// --- 文档 + 分块 ---

// InsertDocumentWithChunks 单事务写入文档与全部分块
func (r *Repository) InsertDocumentWithChunks(ctx context.Context, doc *rag.Document, chunks []*rag.Chunk) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	doc.CreatedAt = now

	_, err = tx.ExecContext(ctx,
		`INSERT INTO documents (id, tenant_id, title, content, doc_type, metadata, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		doc.ID, doc.TenantID, doc.Title, doc.Content, doc.DocType, metadataJSON(doc.Metadata), doc.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO document_chunks (id, document_id, tenant_id, chunk_index, content, token_count, embedding, metadata, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7::vector, $8, $9)`)
	if err != nil {
		return fmt.Errorf("prepare chunk insert: %w", err)
	}
	defer stmt.Close()

	for _, c := range chunks {
		_, err := stmt.ExecContext(ctx,
			c.ID, c.DocumentID, c.TenantID, c.Index, c.Content, c.TokenCount,
			vectorLiteral(c.Embedding), metadataJSON(c.Metadata), now,
		)
		if err != nil {
			return fmt.Errorf("insert chunk %d: %w", c.Index, err)
		}
	}

	return tx.Commit()
}

// SearchChunks 租户范围余弦相似度检索。
// pgvector <=> 为余弦距离，similarity = 1 - distance ∈ [-1, 1]。
// 距离升序 + chunk id 做稳定 tie-break。
func (r *Repository) SearchChunks(ctx context.Context, tenantID string, vector []float32, threshold float64, topK int) ([]rag.RetrievedChunk, error) {
	if topK <= 0 {
		topK = 5
	}
	vec := vectorLiteral(vector)

	rows, err := r.db.QueryContext(ctx,
		`SELECT dc.id, dc.content, d.title, 1 - (dc.embedding <=> $2::vector) AS similarity
		 FROM document_chunks dc
		 JOIN documents d ON d.id = dc.document_id
		 WHERE dc.tenant_id = $1
		   AND 1 - (dc.embedding <=> $2::vector) > $3
		 ORDER BY dc.embedding <=> $2::vector, dc.id
		 LIMIT $4`,
		tenantID, vec, threshold, topK,
	)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	defer rows.Close()

	results := make([]rag.RetrievedChunk, 0, topK)
	for rows.Next() {
		var c rag.RetrievedChunk
		if err := rows.Scan(&c.ChunkID, &c.Content, &c.DocumentTitle, &c.Similarity); err != nil {
			return nil, err
		}
		results = append(results, c)
	}
	return results, rows.Err()
}

// ListDocuments 租户文档列表（含分块数，新→旧）
func (r *Repository) ListDocuments(ctx context.Context, tenantID string) ([]*rag.DocumentInfo, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT d.id, d.title, d.doc_type, d.metadata, d.created_at, COUNT(dc.id) AS chunk_count
		 FROM documents d
		 LEFT JOIN document_chunks dc ON dc.document_id = d.id
		 WHERE d.tenant_id = $1
		 GROUP BY d.id
		 ORDER BY d.created_at DESC`,
		tenantID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []*rag.DocumentInfo
	for rows.Next() {
		d := &rag.DocumentInfo{}
		var meta []byte
		if err := rows.Scan(&d.ID, &d.Title, &d.DocType, &meta, &d.CreatedAt, &d.ChunkCount); err != nil {
			return nil, err
		}
		d.Metadata = parseMetadata(meta)
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// DeleteDocument 租户范围删除文档（分块由外键级联删除）
func (r *Repository) DeleteDocument(ctx context.Context, tenantID, documentID string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM documents WHERE id = $1 AND tenant_id = $2`,
		documentID, tenantID,
	)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// --- 审计 / 反馈 ---

// InsertRequest 追加审计记录
func (r *Repository) InsertRequest(ctx context.Context, rec *rag.RequestRecord) error {
	rec.CreatedAt = time.Now()
	sources := rec.Sources
	if len(sources) == 0 {
		sources = json.RawMessage("[]")
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO ai_requests
		 (id, tenant_id, question, answer, sources, status, refused_reason,
		  prompt_tokens, completion_tokens, total_tokens, model_used, latency_ms, cached, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		rec.ID, rec.TenantID, rec.Question, rec.Answer, []byte(sources), rec.Status,
		nullIfEmpty(rec.RefusedReason),
		rec.TokenUsage.PromptTokens, rec.TokenUsage.CompletionTokens, rec.TokenUsage.TotalTokens,
		nullIfEmpty(rec.Model), rec.LatencyMs, rec.Cached, rec.CreatedAt,
	)
	return err
}

// GetRequest 租户范围读取审计记录（不存在返回 nil, nil）
func (r *Repository) GetRequest(ctx context.Context, tenantID, requestID string) (*rag.RequestRecord, error) {
	rec := &rag.RequestRecord{}
	var answer, refusedReason, model sql.NullString
	var sources []byte
	err := r.db.QueryRowContext(ctx,
		`SELECT id, tenant_id, question, answer, sources, status, refused_reason,
		        prompt_tokens, completion_tokens, total_tokens, model_used, latency_ms, cached, created_at
		 FROM ai_requests WHERE id = $1 AND tenant_id = $2`,
		requestID, tenantID,
	).Scan(
		&rec.ID, &rec.TenantID, &rec.Question, &answer, &sources, &rec.Status, &refusedReason,
		&rec.TokenUsage.PromptTokens, &rec.TokenUsage.CompletionTokens, &rec.TokenUsage.TotalTokens,
		&model, &rec.LatencyMs, &rec.Cached, &rec.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if answer.Valid {
		rec.Answer = &answer.String
	}
	rec.RefusedReason = refusedReason.String
	rec.Model = model.String
	rec.Sources = json.RawMessage(sources)
	return rec, nil
}

// ListRequests 租户审计记录分页（新→旧）
func (r *Repository) ListRequests(ctx context.Context, tenantID string, limit, offset int) ([]*rag.RequestRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, tenant_id, question, answer, sources, status, refused_reason,
		        prompt_tokens, completion_tokens, total_tokens, model_used, latency_ms, cached, created_at
		 FROM ai_requests WHERE tenant_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2 OFFSET $3`,
		tenantID, limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*rag.RequestRecord
	for rows.Next() {
		rec := &rag.RequestRecord{}
		var answer, refusedReason, model sql.NullString
		var sources []byte
		err := rows.Scan(
			&rec.ID, &rec.TenantID, &rec.Question, &answer, &sources, &rec.Status, &refusedReason,
			&rec.TokenUsage.PromptTokens, &rec.TokenUsage.CompletionTokens, &rec.TokenUsage.TotalTokens,
			&model, &rec.LatencyMs, &rec.Cached, &rec.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		if answer.Valid {
			rec.Answer = &answer.String
		}
		rec.RefusedReason = refusedReason.String
		rec.Model = model.String
		rec.Sources = json.RawMessage(sources)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// InsertFeedback 写入人工反馈
func (r *Repository) InsertFeedback(ctx context.Context, fb *rag.Feedback) error {
	fb.CreatedAt = time.Now()
	return r.db.QueryRowContext(ctx,
		`INSERT INTO feedback (request_id, tenant_id, rating, comment, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`,
		fb.RequestID, fb.TenantID, fb.Rating, nullIfEmpty(fb.Comment), fb.CreatedAt,
	).Scan(&fb.ID)
}

// --- helpers ---

// vectorLiteral 将向量编码为 pgvector 文本字面量 "[v1,v2,...]"
func vectorLiteral(vec []float32) string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, v := range vec {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.FormatFloat(float64(v), 'f', -1, 32))
	}
	sb.WriteByte(']')
	return sb.String()
}

func metadataJSON(m map[string]string) []byte {
	if len(m) == 0 {
		return []byte("{}")
	}
	data, err := json.Marshal(m)
	if err != nil {
		applog.Warn("[Storage] Failed to marshal metadata", "error", err)
		return []byte("{}")
	}
	return data
}

func parseMetadata(data []byte) map[string]string {
	if len(data) == 0 {
		return nil
	}
	var m map[string]string
	if err := json.Unmarshal(data, &m); err != nil {
		return nil
	}
	return m
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
