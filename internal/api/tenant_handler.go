package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"aura/internal/domain/rag"
)

// TenantDirectory 租户目录只读接口（公共路由消费，不做管理）
type TenantDirectory interface {
	ListActiveTenants(ctx context.Context) ([]*rag.Tenant, error)
}

// TenantHandler 租户查询 API
type TenantHandler struct {
	directory TenantDirectory
}

// NewTenantHandler 创建租户处理器
func NewTenantHandler(directory TenantDirectory) *TenantHandler {
	return &TenantHandler{directory: directory}
}

// RegisterPublicRoutes 注册公共路由
func (h *TenantHandler) RegisterPublicRoutes(r chi.Router) {
	r.Get("/tenants", h.ListTenants)
}

func (h *TenantHandler) ListTenants(w http.ResponseWriter, r *http.Request) {
	tenants, err := h.directory.ListActiveTenants(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list tenants")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"tenants": tenants,
		"total":   len(tenants),
	})
}
