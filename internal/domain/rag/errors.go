package rag

import "errors"

var (
	// ErrInvalidTenant 租户不存在或已停用（进入 pipeline 前拦截）
	ErrInvalidTenant = errors.New("tenant not found or inactive")

	// ErrEmbedding 向量生成失败（对当前请求致命，不做内联重试）
	ErrEmbedding = errors.New("embedding failed")

	// ErrRetrieval 向量检索/持久化查询失败
	ErrRetrieval = errors.New("retrieval failed")

	// ErrGeneration 生成服务不可达（结构化输出解析失败不算，在 provider 内部降级）
	ErrGeneration = errors.New("generation failed")

	// ErrEmptyDocument 入库内容为空
	ErrEmptyDocument = errors.New("document content is empty")

	// ErrDimensionMismatch 向量维度与语料维度不一致（入库致命错误）
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)
