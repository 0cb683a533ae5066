package rag

import "context"

// Store 核心依赖的持久化契约。
// 实现必须在每条查询上强制 tenant 过滤（谓词级，而非结果后过滤）。
type Store interface {
	// GetTenant 返回租户（不存在时返回 nil, nil）
	GetTenant(ctx context.Context, tenantID string) (*Tenant, error)

	// InsertDocumentWithChunks 原子写入文档 + 全部分块（单事务）。
	// 任一步失败不得留下部分分块。
	InsertDocumentWithChunks(ctx context.Context, doc *Document, chunks []*Chunk) error

	// SearchChunks 租户范围内按余弦相似度检索 top-K，
	// 相似度 > threshold，降序返回，相等时按 chunk id 稳定排序。
	// 无命中返回空序列而非错误。
	SearchChunks(ctx context.Context, tenantID string, vector []float32, threshold float64, topK int) ([]RetrievedChunk, error)

	// ListDocuments 租户文档列表（含分块数，新→旧）
	ListDocuments(ctx context.Context, tenantID string) ([]*DocumentInfo, error)

	// DeleteDocument 租户范围删除文档（级联删除分块），返回是否删除
	DeleteDocument(ctx context.Context, tenantID, documentID string) (bool, error)

	// InsertRequest 追加一条审计记录（append-only）
	InsertRequest(ctx context.Context, rec *RequestRecord) error

	// GetRequest 租户范围读取审计记录（不存在时返回 nil, nil）
	GetRequest(ctx context.Context, tenantID, requestID string) (*RequestRecord, error)

	// ListRequests 租户审计记录分页（新→旧）
	ListRequests(ctx context.Context, tenantID string, limit, offset int) ([]*RequestRecord, error)

	// InsertFeedback 写入一条人工反馈
	InsertFeedback(ctx context.Context, fb *Feedback) error
}

// AnswerCacheStore 答案缓存契约（cache-aside）。
// Get/Set 不向调用方抛错：底层故障记日志并按 miss/no-op 处理。
type AnswerCacheStore interface {
	Get(ctx context.Context, tenantID, question string) (*AskResult, bool)
	Set(ctx context.Context, tenantID, question string, result *AskResult)
	// InvalidateTenant 清除该租户全部缓存条目（文档增删后同步调用）
	InvalidateTenant(ctx context.Context, tenantID string)
}
