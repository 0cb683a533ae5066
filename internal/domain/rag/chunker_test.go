package rag

import (
	"strings"
	"testing"
)

func TestEstimateTokens(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
	}{
		{name: "empty", text: "", want: 1},
		{name: "single word", text: "hello", want: 1},
		{name: "three words", text: "one two three", want: 4},
		{name: "six words", text: "a b c d e f", want: 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EstimateTokens(tt.text); got != tt.want {
				t.Fatalf("EstimateTokens(%q) = %d, want %d", tt.text, got, tt.want)
			}
		})
	}
}

func TestChunkerEmptyInput(t *testing.T) {
	c := NewChunker(500)

	for _, text := range []string{"", "   ", "\n\n\n", "\t\n  \n"} {
		if got := c.Split(text); len(got) != 0 {
			t.Fatalf("Split(%q) = %d chunks, want 0", text, len(got))
		}
	}
}

func TestChunkerSingleParagraph(t *testing.T) {
	c := NewChunker(500)

	chunks := c.Split("  A short internal policy paragraph.  ")
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0] != "A short internal policy paragraph." {
		t.Fatalf("unexpected chunk content: %q", chunks[0])
	}
}

func TestChunkerDeterministic(t *testing.T) {
	c := NewChunker(20)
	text := strings.Repeat("Alpha beta gamma delta epsilon zeta eta theta.\n\n", 10)

	first := c.Split(text)
	second := c.Split(text)

	if len(first) != len(second) {
		t.Fatalf("chunk count differs between runs: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("chunk %d differs between runs", i)
		}
	}
}

func TestChunkerBudgetAndCoverage(t *testing.T) {
	// 每段 9 词 ≈ 12 token，预算 30：每块最多两段出头
	var paragraphs []string
	for i := 0; i < 6; i++ {
		paragraphs = append(paragraphs, "Paragraph body with exactly nine words inside this sentence.")
	}
	text := strings.Join(paragraphs, "\n\n")

	c := NewChunker(30)
	chunks := c.Split(text)

	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, chunk := range chunks {
		if strings.TrimSpace(chunk) == "" {
			t.Fatalf("chunk %d is empty", i)
		}
	}

	// 每个段落必须出现在至少一个块里（内容不丢失）
	joined := strings.Join(chunks, "\n\n")
	for i, p := range paragraphs {
		if !strings.Contains(joined, p) {
			t.Fatalf("paragraph %d missing from chunks", i)
		}
	}
}

func TestChunkerOverlapCarriesLastSentence(t *testing.T) {
	para1 := "First sentence of the opening paragraph. The closing sentence carries over"
	para2 := "Second paragraph continues with more than enough words to overflow"
	text := para1 + "\n\n" + para2

	c := NewChunker(10)
	chunks := c.Split(text)

	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if chunks[0] != para1 {
		t.Fatalf("first chunk = %q, want the opening paragraph", chunks[0])
	}
	if !strings.HasPrefix(chunks[1], "The closing sentence carries over") {
		t.Fatalf("second chunk should start with the overlap sentence, got %q", chunks[1])
	}
	if !strings.Contains(chunks[1], para2) {
		t.Fatalf("second chunk should contain the triggering paragraph")
	}
}

func TestChunkerOversizedParagraphKeptWhole(t *testing.T) {
	big := strings.TrimSpace(strings.Repeat("word ", 100))

	c := NewChunker(10)
	chunks := c.Split(big)

	if len(chunks) != 1 {
		t.Fatalf("oversized paragraph must stay one chunk, got %d", len(chunks))
	}
	if chunks[0] != big {
		t.Fatalf("oversized paragraph must not be truncated")
	}
}
