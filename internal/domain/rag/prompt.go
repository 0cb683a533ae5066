package rag

import (
	"fmt"
	"strings"
)

// ── Prompt 模板 ───────────────────────────────────────────────
// 反幻觉约束：只允许依据给定上下文作答，上下文不足必须明确拒答，
// 并强制结构化 JSON 输出便于程序消费。

const systemPrompt = `You are an Internal Knowledge Assistant for a company.
Your role is to answer employee questions using ONLY the provided context documents.

## STRICT RULES
1. Answer ONLY based on the provided context. Do NOT use external knowledge.
2. If the context does not contain enough information to answer the question,
   you MUST refuse to answer and explain why.
3. Always cite which document(s) your answer is based on.
4. Keep answers concise, professional, and actionable.
5. Never fabricate information, policies, dates, or numbers.
6. If the question is ambiguous, state your interpretation before answering.

## OUTPUT FORMAT
Respond with valid JSON matching this schema:
{
  "answer": "Your answer text here",
  "confidence": "high | medium | low",
  "sources_used": ["Document Title 1", "Document Title 2"],
  "refused": false,
  "refused_reason": null
}

If you cannot answer from context:
{
  "answer": "",
  "confidence": "none",
  "sources_used": [],
  "refused": true,
  "refused_reason": "Explanation of why the context is insufficient"
}`

// BuildSystemPrompt 系统提示词（行为约束 + 输出格式）
func BuildSystemPrompt() string {
	return systemPrompt
}

// BuildUserPrompt 渲染上下文块 + 问题
func BuildUserPrompt(question string, contexts []RetrievedChunk) string {
	var sb strings.Builder
	for i, c := range contexts {
		title := c.DocumentTitle
		if title == "" {
			title = "Unknown"
		}
		sb.WriteString(fmt.Sprintf("--- Document %d: %s ---\n%s\n\n", i+1, title, c.Content))
	}

	contextBlock := strings.TrimSpace(sb.String())
	if contextBlock == "" {
		contextBlock = "(No context documents available)"
	}

	return fmt.Sprintf(`## CONTEXT DOCUMENTS
%s

## EMPLOYEE QUESTION
%s

Answer the question based ONLY on the context documents above.
If the context is insufficient, refuse and explain why.`, contextBlock, question)
}
