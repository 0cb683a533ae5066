package rag

import (
	"regexp"
	"strings"
)

// Chunker 文档分块器
// 策略：按空行切段落，段落累积到 token 预算后闭合当前块，
// 并把上一块的最后一句前置到下一块，保证跨块语义连续。
type Chunker struct {
	maxTokens int // 每块 token 预算
}

// NewChunker 创建分块器
func NewChunker(maxTokens int) *Chunker {
	if maxTokens <= 0 {
		maxTokens = 500
	}
	return &Chunker{maxTokens: maxTokens}
}

var (
	paragraphSep = regexp.MustCompile(`\n{2,}`)
	sentenceEnd  = regexp.MustCompile(`[.!?]\s+`)
)

// EstimateTokens 粗略估算 token 数（英文约 0.75 词/token）
func EstimateTokens(text string) int {
	n := int(float64(len(strings.Fields(text))) / 0.75)
	if n < 1 {
		return 1
	}
	return n
}

// Split 将文本切分为有序块序列。相同输入结果确定；
// 空白输入返回空序列；单段超预算不再细分（不会产生空块）。
func (c *Chunker) Split(text string) []string {
	paragraphs := splitParagraphs(text)
	if len(paragraphs) == 0 {
		return nil
	}

	var chunks []string
	var current []string
	currentTokens := 0

	for _, para := range paragraphs {
		paraTokens := EstimateTokens(para)

		if currentTokens+paraTokens > c.maxTokens && len(current) > 0 {
			chunks = append(chunks, strings.Join(current, "\n\n"))

			// Overlap：上一块最后一句前置到新块
			overlap := lastSentence(current[len(current)-1])
			if overlap != "" {
				current = []string{overlap, para}
			} else {
				current = []string{para}
			}
			currentTokens = EstimateTokens(strings.Join(current, "\n\n"))
			continue
		}

		current = append(current, para)
		currentTokens += paraTokens
	}

	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, "\n\n"))
	}
	return chunks
}

// splitParagraphs 按空行分段，去掉首尾空白和空段
func splitParagraphs(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var parts []string
	for _, p := range paragraphSep.Split(text, -1) {
		p = strings.TrimSpace(p)
		if p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

// lastSentence 取段落最后一句（按句末标点+空白切分）
func lastSentence(paragraph string) string {
	locs := sentenceEnd.FindAllStringIndex(paragraph, -1)
	if len(locs) == 0 {
		return paragraph
	}
	last := locs[len(locs)-1]
	return paragraph[last[1]:]
}
