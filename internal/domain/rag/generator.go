package rag

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	applog "aura/internal/platform/log"
)

// ── Generator 接口 ─────────────────────────────────────────────

// RefusedReasonNoContext 检索结果为空时的统一拒答原因
const RefusedReasonNoContext = "No relevant context found in the knowledge base to answer this question."

// GenerationResult 生成结果（answer-or-refusal 二选一）
type GenerationResult struct {
	Answer           string   `json:"answer"`
	Refused          bool     `json:"refused"`
	RefusedReason    string   `json:"refused_reason,omitempty"`
	SourcesUsed      []string `json:"sources_used,omitempty"`
	PromptTokens     int      `json:"prompt_tokens"`
	CompletionTokens int      `json:"completion_tokens"`
	TotalTokens      int      `json:"total_tokens"`
	Model            string   `json:"model"`
}

// Generator 答案生成接口。契约：
//   - 上下文为空必须拒答（任何实现都不例外）；
//   - 只依据给定上下文作答，上下文不足时拒答而非编造；
//   - 拒答时 answer 为空且带可读原因。
type Generator interface {
	Generate(ctx context.Context, question string, contexts []RetrievedChunk) (*GenerationResult, error)
}

// ── Stub 实现（确定性，无外部调用）────────────────────────────

// StubModelName Stub 生成器的模型标识
const StubModelName = "stub-model-v1"

// StubGenerator 确定性生成器：拼接上下文摘录合成答案，
// 用于离线测试和本地开发，完整演示拒答契约。
type StubGenerator struct{}

// NewStubGenerator 创建 Stub 生成器
func NewStubGenerator() *StubGenerator {
	return &StubGenerator{}
}

// Generate 从上下文合成确定性答案
func (g *StubGenerator) Generate(_ context.Context, question string, contexts []RetrievedChunk) (*GenerationResult, error) {
	if len(contexts) == 0 {
		return &GenerationResult{
			Refused:       true,
			RefusedReason: RefusedReasonNoContext,
			Model:         StubModelName,
		}, nil
	}

	// 去重标题（保持检索顺序）
	var titles []string
	seen := make(map[string]bool)
	for _, c := range contexts {
		if !seen[c.DocumentTitle] {
			seen[c.DocumentTitle] = true
			titles = append(titles, c.DocumentTitle)
		}
	}

	var excerpts []string
	for i, c := range contexts {
		if i >= 3 {
			break
		}
		excerpts = append(excerpts, "- "+truncateRunes(c.Content, 200))
	}

	answer := fmt.Sprintf(
		"Based on the available documentation (%s), here is what I found regarding your question:\n\n%s",
		strings.Join(titles, ", "),
		strings.Join(excerpts, "\n\n"),
	)

	estimated := len(strings.Fields(answer)) + len(strings.Fields(question))

	return &GenerationResult{
		Answer:           answer,
		SourcesUsed:      titles,
		PromptTokens:     estimated / 2,
		CompletionTokens: estimated / 2,
		TotalTokens:      estimated,
		Model:            StubModelName,
	}, nil
}

// ── OpenAI 兼容实现 ───────────────────────────────────────────

// OpenAIGenerator 调用 OpenAI 兼容 chat completions API，
// 请求严格 JSON 输出；解析失败降级为低置信透传而非报错。
type OpenAIGenerator struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

// OpenAIGeneratorConfig 配置
type OpenAIGeneratorConfig struct {
	BaseURL string
	APIKey  string
	Model   string // e.g. gpt-4o-mini
}

// NewOpenAIGenerator 创建 OpenAI 兼容生成器
func NewOpenAIGenerator(cfg OpenAIGeneratorConfig) *OpenAIGenerator {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}

	return &OpenAIGenerator{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		client:  &http.Client{Timeout: 120 * time.Second},
	}
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature"`
	MaxTokens      int             `json:"max_tokens"`
	ResponseFormat *chatRespFormat `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRespFormat struct {
	Type string `json:"type"` // "json_object"
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
	Model string `json:"model"`
}

// generationPayload LLM 结构化输出 schema
type generationPayload struct {
	Answer        string   `json:"answer"`
	Confidence    string   `json:"confidence"`
	SourcesUsed   []string `json:"sources_used"`
	Refused       bool     `json:"refused"`
	RefusedReason string   `json:"refused_reason"`
}

// Generate 调用远端 LLM 生成答案
func (g *OpenAIGenerator) Generate(ctx context.Context, question string, contexts []RetrievedChunk) (*GenerationResult, error) {
	// 空上下文直接拒答，不浪费一次 API 调用
	if len(contexts) == 0 {
		return &GenerationResult{
			Refused:       true,
			RefusedReason: RefusedReasonNoContext,
			Model:         g.model,
		}, nil
	}

	userPrompt := BuildUserPrompt(question, contexts)

	reqBody := chatRequest{
		Model: g.model,
		Messages: []chatMessage{
			{Role: "system", Content: BuildSystemPrompt()},
			{Role: "user", Content: userPrompt},
		},
		Temperature:    0.1,
		MaxTokens:      1024,
		ResponseFormat: &chatRespFormat{Type: "json_object"},
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", g.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if g.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("chat completion request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("chat completion API error (%d): %s", resp.StatusCode, string(respBody))
	}

	var chatResp chatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	if len(chatResp.Choices) == 0 {
		return nil, fmt.Errorf("chat completion returned no choices")
	}

	raw := chatResp.Choices[0].Message.Content
	result := parseGeneration(raw, g.model)

	// Token 统计：API 有则用 API 的，否则粗估
	result.PromptTokens = chatResp.Usage.PromptTokens
	result.CompletionTokens = chatResp.Usage.CompletionTokens
	result.TotalTokens = chatResp.Usage.TotalTokens
	if result.TotalTokens == 0 {
		result.PromptTokens = EstimateTokens(userPrompt)
		result.CompletionTokens = EstimateTokens(raw)
		result.TotalTokens = result.PromptTokens + result.CompletionTokens
	}

	return result, nil
}

// parseGeneration 解析结构化输出；非法 JSON 降级为低置信透传
func parseGeneration(raw, model string) *GenerationResult {
	var payload generationPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		applog.Warn("[RAG/Generator] Malformed structured output, passing through", "error", err)
		return &GenerationResult{
			Answer: raw,
			Model:  model,
		}
	}

	if payload.Refused {
		reason := payload.RefusedReason
		if reason == "" {
			reason = "The provided context is insufficient to answer the question."
		}
		return &GenerationResult{
			Refused:       true,
			RefusedReason: reason,
			Model:         model,
		}
	}

	answer := payload.Answer
	if answer == "" {
		answer = raw
	}
	return &GenerationResult{
		Answer:      answer,
		SourcesUsed: payload.SourcesUsed,
		Model:       model,
	}
}

// truncateRunes 按字符截断
func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
