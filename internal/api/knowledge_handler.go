package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"aura/internal/domain/rag"
	applog "aura/internal/platform/log"
)

// 请求体约束
const (
	minQuestionLen = 3
	maxQuestionLen = 2000
	maxContentLen  = 1 << 20 // 1 MiB 纯文本
)

var allowedDocTypes = map[string]bool{
	"markdown": true,
	"text":     true,
	"html":     true,
}

// KnowledgeHandler 知识库问答与文档管理 API
type KnowledgeHandler struct {
	store  rag.Store
	query  *rag.QueryService
	ingest *rag.IngestService
}

// NewKnowledgeHandler 创建处理器
func NewKnowledgeHandler(store rag.Store, query *rag.QueryService, ingest *rag.IngestService) *KnowledgeHandler {
	return &KnowledgeHandler{
		store:  store,
		query:  query,
		ingest: ingest,
	}
}

// RegisterRoutes 注册路由（需鉴权分组内调用）
func (h *KnowledgeHandler) RegisterRoutes(r chi.Router) {
	r.Post("/ask", h.Ask)

	r.Route("/documents", func(r chi.Router) {
		r.Post("/", h.IngestDocument)
		r.Get("/", h.ListDocuments)
		r.Delete("/{id}", h.DeleteDocument)
	})

	r.Route("/requests", func(r chi.Router) {
		r.Get("/", h.ListRequests)
		r.Post("/{id}/feedback", h.SubmitFeedback)
	})
}

// --- 问答 ---

type askRequest struct {
	Question string `json:"question"`
}

func (h *KnowledgeHandler) Ask(w http.ResponseWriter, r *http.Request) {
	scope := MustScopeFrom(r.Context())

	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	question := strings.TrimSpace(req.Question)
	if len(question) < minQuestionLen {
		writeError(w, http.StatusBadRequest, "question must be at least 3 characters")
		return
	}
	if len(question) > maxQuestionLen {
		writeError(w, http.StatusBadRequest, "question must be at most 2000 characters")
		return
	}

	result, err := h.query.Ask(r.Context(), scope.TenantID, question)
	if err != nil {
		h.writeDomainError(w, err, "ask failed")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// --- 文档管理 ---

func (h *KnowledgeHandler) IngestDocument(w http.ResponseWriter, r *http.Request) {
	scope := MustScopeFrom(r.Context())

	var req rag.IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}
	if len(req.Content) > maxContentLen {
		writeError(w, http.StatusBadRequest, "content exceeds maximum size")
		return
	}
	if req.DocType != "" && !allowedDocTypes[req.DocType] {
		writeError(w, http.StatusBadRequest, "doc_type must be one of: markdown, text, html")
		return
	}

	result, err := h.ingest.Ingest(r.Context(), scope.TenantID, &req)
	if err != nil {
		h.writeDomainError(w, err, "document ingestion failed")
		return
	}

	applog.Info("[API] Document ingested",
		"tenant_id", scope.TenantID,
		"document_id", result.DocumentID,
		"chunks", result.ChunkCount,
	)
	writeJSON(w, http.StatusCreated, result)
}

func (h *KnowledgeHandler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	scope := MustScopeFrom(r.Context())

	docs, err := h.ingest.ListDocuments(r.Context(), scope.TenantID)
	if err != nil {
		h.writeDomainError(w, err, "failed to list documents")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"documents": docs,
		"total":     len(docs),
	})
}

func (h *KnowledgeHandler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	scope := MustScopeFrom(r.Context())
	docID := chi.URLParam(r, "id")
	if _, err := uuid.Parse(docID); err != nil {
		writeError(w, http.StatusBadRequest, "invalid document id")
		return
	}

	deleted, err := h.ingest.DeleteDocument(r.Context(), scope.TenantID, docID)
	if err != nil {
		h.writeDomainError(w, err, "failed to delete document")
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "document not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": docID, "status": "deleted"})
}

// --- 审计与反馈 ---

// requestSummary 审计记录列表项（不含答案正文）
type requestSummary struct {
	ID          string    `json:"id"`
	Question    string    `json:"question"`
	Status      string    `json:"status"`
	Cached      bool      `json:"cached"`
	Model       string    `json:"model,omitempty"`
	TotalTokens int       `json:"total_tokens"`
	LatencyMs   int64     `json:"latency_ms"`
	CreatedAt   time.Time `json:"created_at"`
}

func (h *KnowledgeHandler) ListRequests(w http.ResponseWriter, r *http.Request) {
	scope := MustScopeFrom(r.Context())
	limit := parseIntQuery(r, "limit", 20, 1, 100)
	offset := parseIntQuery(r, "offset", 0, 0, 1<<30)

	records, err := h.store.ListRequests(r.Context(), scope.TenantID, limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list requests")
		return
	}

	summaries := make([]requestSummary, 0, len(records))
	for _, rec := range records {
		summaries = append(summaries, requestSummary{
			ID:          rec.ID,
			Question:    rec.Question,
			Status:      string(rec.Status),
			Cached:      rec.Cached,
			Model:       rec.Model,
			TotalTokens: rec.TokenUsage.TotalTokens,
			LatencyMs:   rec.LatencyMs,
			CreatedAt:   rec.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"requests": summaries,
		"limit":    limit,
		"offset":   offset,
	})
}

type feedbackRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment,omitempty"`
}

func (h *KnowledgeHandler) SubmitFeedback(w http.ResponseWriter, r *http.Request) {
	scope := MustScopeFrom(r.Context())
	requestID := chi.URLParam(r, "id")
	if _, err := uuid.Parse(requestID); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request id")
		return
	}

	var req feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Rating < 1 || req.Rating > 5 {
		writeError(w, http.StatusBadRequest, "rating must be between 1 and 5")
		return
	}

	// 只允许对本租户的请求提交反馈
	rec, err := h.store.GetRequest(r.Context(), scope.TenantID, requestID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load request")
		return
	}
	if rec == nil {
		writeError(w, http.StatusNotFound, "request not found")
		return
	}

	fb := &rag.Feedback{
		ID:        uuid.New().String(),
		RequestID: requestID,
		TenantID:  scope.TenantID,
		Rating:    req.Rating,
		Comment:   req.Comment,
		CreatedAt: time.Now().UTC(),
	}
	if err := h.store.InsertFeedback(r.Context(), fb); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to save feedback")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{
		"id":         fb.ID,
		"request_id": requestID,
		"status":     "recorded",
	})
}

// --- helpers ---

// writeDomainError 领域错误 → HTTP 状态码映射
func (h *KnowledgeHandler) writeDomainError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, rag.ErrInvalidTenant):
		writeError(w, http.StatusForbidden, "tenant not found or inactive")
	case errors.Is(err, rag.ErrEmptyDocument):
		writeError(w, http.StatusBadRequest, "document content must not be empty")
	case errors.Is(err, rag.ErrEmbedding), errors.Is(err, rag.ErrGeneration):
		applog.Error("[API] Upstream model failure", "error", err)
		writeError(w, http.StatusBadGateway, "upstream model request failed")
	default:
		applog.Error("[API] "+fallback, "error", err)
		writeError(w, http.StatusInternalServerError, fallback)
	}
}

func parseIntQuery(r *http.Request, key string, def, min, max int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < min {
		return def
	}
	if v > max {
		return max
	}
	return v
}
