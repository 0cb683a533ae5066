package rag

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"testing"
)

// ── 测试替身 ──────────────────────────────────────────────────

type fakeStore struct {
	tenants   map[string]*Tenant
	documents map[string]*Document
	chunks    []*Chunk
	requests  []*RequestRecord
	feedback  []*Feedback
}

func newFakeStore(tenants ...*Tenant) *fakeStore {
	s := &fakeStore{
		tenants:   make(map[string]*Tenant),
		documents: make(map[string]*Document),
	}
	for _, tn := range tenants {
		s.tenants[tn.ID] = tn
	}
	return s
}

func (s *fakeStore) GetTenant(_ context.Context, tenantID string) (*Tenant, error) {
	return s.tenants[tenantID], nil
}

func (s *fakeStore) InsertDocumentWithChunks(_ context.Context, doc *Document, chunks []*Chunk) error {
	s.documents[doc.ID] = doc
	s.chunks = append(s.chunks, chunks...)
	return nil
}

func (s *fakeStore) SearchChunks(_ context.Context, tenantID string, vector []float32, threshold float64, topK int) ([]RetrievedChunk, error) {
	var hits []RetrievedChunk
	for _, c := range s.chunks {
		if c.TenantID != tenantID {
			continue
		}
		sim := cosine(vector, c.Embedding)
		if sim <= threshold {
			continue
		}
		hits = append(hits, RetrievedChunk{
			ChunkID:       c.ID,
			Content:       c.Content,
			DocumentTitle: c.Metadata["document_title"],
			Similarity:    sim,
		})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Similarity != hits[j].Similarity {
			return hits[i].Similarity > hits[j].Similarity
		}
		return hits[i].ChunkID < hits[j].ChunkID
	})
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

func (s *fakeStore) ListDocuments(_ context.Context, tenantID string) ([]*DocumentInfo, error) {
	var infos []*DocumentInfo
	for _, doc := range s.documents {
		if doc.TenantID != tenantID {
			continue
		}
		count := 0
		for _, c := range s.chunks {
			if c.DocumentID == doc.ID {
				count++
			}
		}
		infos = append(infos, &DocumentInfo{
			ID:         doc.ID,
			Title:      doc.Title,
			DocType:    doc.DocType,
			ChunkCount: count,
		})
	}
	return infos, nil
}

func (s *fakeStore) DeleteDocument(_ context.Context, tenantID, documentID string) (bool, error) {
	doc, ok := s.documents[documentID]
	if !ok || doc.TenantID != tenantID {
		return false, nil
	}
	delete(s.documents, documentID)
	kept := s.chunks[:0]
	for _, c := range s.chunks {
		if c.DocumentID != documentID {
			kept = append(kept, c)
		}
	}
	s.chunks = kept
	return true, nil
}

func (s *fakeStore) InsertRequest(_ context.Context, rec *RequestRecord) error {
	s.requests = append(s.requests, rec)
	return nil
}

func (s *fakeStore) GetRequest(_ context.Context, tenantID, requestID string) (*RequestRecord, error) {
	for _, rec := range s.requests {
		if rec.TenantID == tenantID && rec.ID == requestID {
			return rec, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) ListRequests(_ context.Context, tenantID string, limit, offset int) ([]*RequestRecord, error) {
	var out []*RequestRecord
	for i := len(s.requests) - 1; i >= 0; i-- {
		if s.requests[i].TenantID == tenantID {
			out = append(out, s.requests[i])
		}
	}
	if offset < len(out) {
		out = out[offset:]
	} else {
		out = nil
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *fakeStore) InsertFeedback(_ context.Context, fb *Feedback) error {
	s.feedback = append(s.feedback, fb)
	return nil
}

type fakeCache struct {
	entries       map[string]*AskResult
	invalidations int
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string]*AskResult)}
}

func (c *fakeCache) key(tenantID, question string) string {
	return tenantID + "|" + strings.ToLower(strings.TrimSpace(question))
}

func (c *fakeCache) Get(_ context.Context, tenantID, question string) (*AskResult, bool) {
	r, ok := c.entries[c.key(tenantID, question)]
	return r, ok
}

func (c *fakeCache) Set(_ context.Context, tenantID, question string, result *AskResult) {
	c.entries[c.key(tenantID, question)] = result
}

func (c *fakeCache) InvalidateTenant(_ context.Context, tenantID string) {
	c.invalidations++
	for k := range c.entries {
		if strings.HasPrefix(k, tenantID+"|") {
			delete(c.entries, k)
		}
	}
}

// fakeEmbedder 按预置映射返回向量，未知文本返回零向量（相似度 0）
type fakeEmbedder struct {
	dims int
	vecs map[string][]float32
	fail bool
}

func (e *fakeEmbedder) Dims() int { return e.dims }

func (e *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if e.fail {
		return nil, fmt.Errorf("embedding backend down")
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if v, ok := e.vecs[t]; ok {
			out[i] = v
		} else {
			out[i] = make([]float32, e.dims)
		}
	}
	return out, nil
}

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func axisVec(dims, axis int) []float32 {
	v := make([]float32, dims)
	v[axis] = 1
	return v
}

const (
	testTenantA = "11111111-1111-1111-1111-111111111111"
	testTenantB = "22222222-2222-2222-2222-222222222222"
)

func activeTenant(id, name string) *Tenant {
	return &Tenant{ID: id, Name: name, Slug: strings.ToLower(name), IsActive: true}
}

// seedChunk 向 fakeStore 直接塞一个带向量的分块
func seedChunk(s *fakeStore, tenantID, chunkID, title, content string, vec []float32) {
	s.chunks = append(s.chunks, &Chunk{
		ID:         chunkID,
		DocumentID: "doc-" + chunkID,
		TenantID:   tenantID,
		Content:    content,
		Embedding:  vec,
		Metadata:   map[string]string{"document_title": title},
	})
}

// ── QueryService.Ask ──────────────────────────────────────────

func TestAskInvalidTenant(t *testing.T) {
	store := newFakeStore(
		&Tenant{ID: testTenantB, Name: "Dormant", IsActive: false},
	)
	embedder := &fakeEmbedder{dims: 8, vecs: map[string][]float32{}}
	svc := NewQueryService(store, embedder, NewStubGenerator(), DefaultConfig())

	for _, tenantID := range []string{"00000000-0000-0000-0000-000000000000", testTenantB} {
		_, err := svc.Ask(context.Background(), tenantID, "any question at all")
		if !errors.Is(err, ErrInvalidTenant) {
			t.Fatalf("tenant %s: err = %v, want ErrInvalidTenant", tenantID, err)
		}
	}
	if len(store.requests) != 0 {
		t.Fatal("invalid tenant must not produce audit records")
	}
}

func TestAskCompletedThenCached(t *testing.T) {
	const question = "How many days of annual leave do I get?"

	store := newFakeStore(activeTenant(testTenantA, "acme"))
	seedChunk(store, testTenantA, "chunk-1", "Leave Policy",
		"All full-time employees are entitled to 20 days of paid annual leave per calendar year.",
		axisVec(8, 0))
	seedChunk(store, testTenantA, "chunk-2", "IT Security",
		"Passwords must be changed every 90 days.",
		axisVec(8, 1))

	embedder := &fakeEmbedder{dims: 8, vecs: map[string][]float32{question: axisVec(8, 0)}}
	cache := newFakeCache()
	svc := NewQueryService(store, embedder, NewStubGenerator(), DefaultConfig())
	svc.SetCache(cache)

	first, err := svc.Ask(context.Background(), testTenantA, question)
	if err != nil {
		t.Fatalf("ask failed: %v", err)
	}
	if first.Status != RequestStatusCompleted {
		t.Fatalf("status = %s, want completed", first.Status)
	}
	if first.Cached {
		t.Fatal("first answer must not be marked cached")
	}
	if !strings.Contains(first.Answer, "20 days of paid annual leave") {
		t.Fatalf("answer should quote the retrieved chunk, got %q", first.Answer)
	}
	if len(first.Sources) != 1 {
		t.Fatalf("sources = %d, want only the matching chunk (orthogonal chunk is below threshold)", len(first.Sources))
	}

	src := first.Sources[0]
	if src.ChunkID != "chunk-1" || src.DocumentTitle != "Leave Policy" {
		t.Fatalf("unexpected source: %+v", src)
	}
	// 相关度四舍五入到 4 位小数
	if math.Abs(src.RelevanceScore*1e4-math.Round(src.RelevanceScore*1e4)) > 1e-9 {
		t.Fatalf("relevance score not rounded to 4 decimals: %v", src.RelevanceScore)
	}

	if len(store.requests) != 1 {
		t.Fatalf("audit records = %d, want 1", len(store.requests))
	}
	rec := store.requests[0]
	if rec.Cached || rec.Answer == nil || rec.Status != RequestStatusCompleted {
		t.Fatalf("unexpected audit record: %+v", rec)
	}

	// 第二问：缓存命中，答案逐字节一致，request_id 是新的，照样记审计
	second, err := svc.Ask(context.Background(), testTenantA, question)
	if err != nil {
		t.Fatalf("second ask failed: %v", err)
	}
	if !second.Cached {
		t.Fatal("second answer must come from cache")
	}
	if second.Answer != first.Answer {
		t.Fatal("cached answer must be identical to the original")
	}
	if second.RequestID == first.RequestID {
		t.Fatal("cache hit must mint a fresh request id")
	}
	if len(store.requests) != 2 {
		t.Fatalf("audit records = %d, want 2 (cache hits are audited too)", len(store.requests))
	}
	if !store.requests[1].Cached {
		t.Fatal("second audit record must carry cached=true")
	}
}

func TestAskRefusalNotCached(t *testing.T) {
	const question = "What is the payroll schedule?"

	store := newFakeStore(activeTenant(testTenantA, "acme"))
	seedChunk(store, testTenantA, "chunk-1", "Leave Policy", "Annual leave is 20 days.", axisVec(8, 0))

	// 问题向量与语料正交：检索无命中
	embedder := &fakeEmbedder{dims: 8, vecs: map[string][]float32{question: axisVec(8, 3)}}
	cache := newFakeCache()
	svc := NewQueryService(store, embedder, NewStubGenerator(), DefaultConfig())
	svc.SetCache(cache)

	result, err := svc.Ask(context.Background(), testTenantA, question)
	if err != nil {
		t.Fatalf("ask failed: %v", err)
	}
	if result.Status != RequestStatusRefused {
		t.Fatalf("status = %s, want refused", result.Status)
	}
	if result.RefusedReason != RefusedReasonNoContext {
		t.Fatalf("refused reason = %q", result.RefusedReason)
	}
	if result.Answer != "" {
		t.Fatal("refusal must carry no answer")
	}

	if len(store.requests) != 1 {
		t.Fatalf("audit records = %d, want 1 (refusals are audited)", len(store.requests))
	}
	if store.requests[0].Answer != nil {
		t.Fatal("refused audit record must store a null answer")
	}
	if len(cache.entries) != 0 {
		t.Fatal("refusals must never be cached")
	}

	// 再问一次：仍走完整 pipeline，不会从缓存拿到拒答
	if _, err := svc.Ask(context.Background(), testTenantA, question); err != nil {
		t.Fatalf("repeat ask failed: %v", err)
	}
	if len(store.requests) != 2 {
		t.Fatal("repeat refusal must run the pipeline again")
	}
}

func TestAskTenantIsolation(t *testing.T) {
	const question = "How many days of annual leave do I get?"

	store := newFakeStore(
		activeTenant(testTenantA, "acme"),
		activeTenant(testTenantB, "globex"),
	)
	// 语料只属于租户 A
	seedChunk(store, testTenantA, "chunk-1", "Leave Policy", "Annual leave is 20 days.", axisVec(8, 0))

	embedder := &fakeEmbedder{dims: 8, vecs: map[string][]float32{question: axisVec(8, 0)}}
	svc := NewQueryService(store, embedder, NewStubGenerator(), DefaultConfig())

	result, err := svc.Ask(context.Background(), testTenantB, question)
	if err != nil {
		t.Fatalf("ask failed: %v", err)
	}
	if result.Status != RequestStatusRefused {
		t.Fatal("tenant B must not see tenant A's corpus")
	}
	if len(result.Sources) != 0 {
		t.Fatalf("cross-tenant sources leaked: %+v", result.Sources)
	}
}

func TestAskTieBreakByChunkID(t *testing.T) {
	const question = "tie question"

	store := newFakeStore(activeTenant(testTenantA, "acme"))
	// 相同向量 → 相同相似度，应按 chunk id 升序稳定排序
	seedChunk(store, testTenantA, "chunk-b", "Doc", "content b", axisVec(8, 0))
	seedChunk(store, testTenantA, "chunk-a", "Doc", "content a", axisVec(8, 0))

	embedder := &fakeEmbedder{dims: 8, vecs: map[string][]float32{question: axisVec(8, 0)}}
	svc := NewQueryService(store, embedder, NewStubGenerator(), DefaultConfig())

	result, err := svc.Ask(context.Background(), testTenantA, question)
	if err != nil {
		t.Fatalf("ask failed: %v", err)
	}
	if len(result.Sources) != 2 {
		t.Fatalf("sources = %d, want 2", len(result.Sources))
	}
	if result.Sources[0].ChunkID != "chunk-a" || result.Sources[1].ChunkID != "chunk-b" {
		t.Fatalf("tie-break order wrong: %s, %s", result.Sources[0].ChunkID, result.Sources[1].ChunkID)
	}
}

func TestAskEmbedderFailure(t *testing.T) {
	store := newFakeStore(activeTenant(testTenantA, "acme"))
	embedder := &fakeEmbedder{dims: 8, fail: true}
	svc := NewQueryService(store, embedder, NewStubGenerator(), DefaultConfig())

	_, err := svc.Ask(context.Background(), testTenantA, "anything")
	if !errors.Is(err, ErrEmbedding) {
		t.Fatalf("err = %v, want ErrEmbedding", err)
	}
	if len(store.requests) != 0 {
		t.Fatal("fatal pipeline errors must not leave audit records")
	}
}

func TestAskExcerptTruncation(t *testing.T) {
	const question = "long content question"

	store := newFakeStore(activeTenant(testTenantA, "acme"))
	long := strings.Repeat("x", 1000)
	seedChunk(store, testTenantA, "chunk-1", "Doc", long, axisVec(8, 0))

	embedder := &fakeEmbedder{dims: 8, vecs: map[string][]float32{question: axisVec(8, 0)}}
	cfg := DefaultConfig()
	svc := NewQueryService(store, embedder, NewStubGenerator(), cfg)

	result, err := svc.Ask(context.Background(), testTenantA, question)
	if err != nil {
		t.Fatalf("ask failed: %v", err)
	}
	if got := len([]rune(result.Sources[0].Excerpt)); got != cfg.ExcerptLength {
		t.Fatalf("excerpt length = %d, want %d", got, cfg.ExcerptLength)
	}
}
