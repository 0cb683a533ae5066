package rag

import (
	"encoding/json"
	"time"
)

// RequestStatus 问答请求终态
type RequestStatus string

const (
	RequestStatusCompleted RequestStatus = "completed"
	RequestStatusRefused   RequestStatus = "refused"
)

// Tenant 租户（隔离边界），由外部管理端维护，核心只读
type Tenant struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// Document 已入库的知识文档
type Document struct {
	ID        string            `json:"id"`
	TenantID  string            `json:"tenant_id"`
	Title     string            `json:"title"`
	Content   string            `json:"content"`
	DocType   string            `json:"doc_type"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// DocumentInfo 文档列表项（不含正文）
type DocumentInfo struct {
	ID         string            `json:"id"`
	Title      string            `json:"title"`
	DocType    string            `json:"doc_type"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	ChunkCount int               `json:"chunk_count"`
	CreatedAt  time.Time         `json:"created_at"`
}

// Chunk 文档分块 + 向量
// tenant_id 冗余存储，检索时无需 join 即可强制租户过滤；
// metadata 里冗余文档标题，引用来源时同样免 join。
type Chunk struct {
	ID         string            `json:"id"`
	DocumentID string            `json:"document_id"`
	TenantID   string            `json:"tenant_id"`
	Index      int               `json:"chunk_index"`
	Content    string            `json:"content"`
	TokenCount int               `json:"token_count"`
	Embedding  []float32         `json:"embedding,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// RetrievedChunk 单条检索命中（相似度 ∈ [-1, 1]，降序返回）
type RetrievedChunk struct {
	ChunkID       string  `json:"chunk_id"`
	Content       string  `json:"content"`
	DocumentTitle string  `json:"document_title"`
	Similarity    float64 `json:"similarity"`
}

// SourceReference 答案引用来源（excerpt 已截断）
type SourceReference struct {
	ChunkID        string  `json:"chunk_id"`
	DocumentTitle  string  `json:"document_title"`
	RelevanceScore float64 `json:"relevance_score"`
	Excerpt        string  `json:"excerpt"`
}

// TokenUsage Token 使用统计
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// AskResult 问答响应（同时作为缓存 payload）
type AskResult struct {
	RequestID     string            `json:"request_id"`
	Question      string            `json:"question"`
	Answer        string            `json:"answer"`
	Sources       []SourceReference `json:"sources"`
	Status        RequestStatus     `json:"status"`
	RefusedReason string            `json:"refused_reason,omitempty"`
	Cached        bool              `json:"cached"`
	Model         string            `json:"model,omitempty"`
	LatencyMs     int64             `json:"latency_ms"`
	TokenUsage    TokenUsage        `json:"token_usage"`
}

// RequestRecord 审计记录（append-only，核心永不修改/删除）
type RequestRecord struct {
	ID            string          `json:"id"`
	TenantID      string          `json:"tenant_id"`
	Question      string          `json:"question"`
	Answer        *string         `json:"answer,omitempty"` // refused 时为 null
	Sources       json.RawMessage `json:"sources"`
	Status        RequestStatus   `json:"status"`
	RefusedReason string          `json:"refused_reason,omitempty"`
	TokenUsage    TokenUsage      `json:"token_usage"`
	Model         string          `json:"model,omitempty"`
	LatencyMs     int64           `json:"latency_ms"`
	Cached        bool            `json:"cached"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Feedback 人工评分（1-5），仅存储，核心不消费
type Feedback struct {
	ID        string    `json:"id"`
	RequestID string    `json:"request_id"`
	TenantID  string    `json:"tenant_id"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// IngestRequest 文档入库请求
type IngestRequest struct {
	Title    string            `json:"title"`
	Content  string            `json:"content"`
	DocType  string            `json:"doc_type,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// IngestResult 入库结果
type IngestResult struct {
	DocumentID  string `json:"document_id"`
	Title       string `json:"title"`
	ChunkCount  int    `json:"chunk_count"`
	TotalTokens int    `json:"total_tokens"`
}
