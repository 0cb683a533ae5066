package rag

// Config RAG 模块配置
type Config struct {
	// LLM 生成
	LLMProvider string `json:"llm_provider"` // stub | openai
	LLMModel    string `json:"llm_model"`

	// Embedding
	EmbeddingProvider string `json:"embedding_provider"` // stub | openai
	EmbeddingModel    string `json:"embedding_model"`
	EmbeddingDims     int    `json:"embedding_dims"`

	// Chunker 配置
	ChunkMaxTokens int `json:"chunk_max_tokens"`

	// 检索配置
	TopK           int     `json:"top_k"`
	ScoreThreshold float64 `json:"score_threshold"`

	// 引用来源 excerpt 截断长度（字符）
	ExcerptLength int `json:"excerpt_length"`

	// 缓存 TTL（秒），0=禁用
	CacheTTL int `json:"cache_ttl"`
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	return &Config{
		LLMProvider:       "stub",
		LLMModel:          "gpt-4o-mini",
		EmbeddingProvider: "stub",
		EmbeddingModel:    "text-embedding-3-small",
		EmbeddingDims:     384,
		ChunkMaxTokens:    500,
		TopK:              5,
		ScoreThreshold:    0.3,
		ExcerptLength:     300,
		CacheTTL:          3600, // 1小时
	}
}

// HasCache 是否启用答案缓存
func (c *Config) HasCache() bool {
	return c.CacheTTL > 0
}
