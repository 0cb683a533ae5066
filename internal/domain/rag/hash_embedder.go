package rag

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"math"
	"math/rand"
	"strings"
)

// HashEmbedder 确定性 Embedder：用文本哈希做随机种子生成伪向量。
// 相同文本永远得到相同向量，不同文本大概率近似正交，
// 离线测试无需外部 API 即可走完整 pipeline。
type HashEmbedder struct {
	dims int
}

// NewHashEmbedder 创建确定性 Embedder
func NewHashEmbedder(dims int) *HashEmbedder {
	if dims <= 0 {
		dims = 384
	}
	return &HashEmbedder{dims: dims}
}

// Dims 返回向量维度
func (e *HashEmbedder) Dims() int {
	return e.dims
}

// Embed 逐条生成确定性向量（L2 归一化）
func (e *HashEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = e.embedOne(text)
	}
	return vectors, nil
}

func (e *HashEmbedder) embedOne(text string) []float32 {
	digest := sha256.Sum256([]byte(strings.TrimSpace(text)))
	seed := int64(binary.BigEndian.Uint64(digest[:8]))
	rng := rand.New(rand.NewSource(seed))

	vec := make([]float64, e.dims)
	var norm float64
	for i := range vec {
		vec[i] = rng.NormFloat64()
		norm += vec[i] * vec[i]
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		norm = 1
	}

	out := make([]float32, e.dims)
	for i, v := range vec {
		out[i] = float32(v / norm)
	}
	return out
}
