package persona

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/z-salon/backend/internal/model/persona"
	"github.com/zhouzirui/z-salon/backend/pkg/utils"
)

// Handler persona服务的HTTP处理器
type Handler struct {
	personas *persona.MemoryStore
}

// New 创建persona处理器
func New(personas *persona.MemoryStore) *Handler {
	return &Handler{
		personas: personas,
	}
}

// RegisterRoutes 注册persona相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/personas", h.handleListPersonas)
}

// handleListPersonas 列出persona，可按 kind 过滤
func (h *Handler) handleListPersonas(w http.ResponseWriter, r *http.Request) {
	kind := persona.Kind(strings.TrimSpace(r.URL.Query().Get("kind")))
	switch kind {
	case "":
		utils.RespondJSON(w, http.StatusOK, h.personas.List())
	case persona.KindPhilosopher, persona.KindCompanion:
		utils.RespondJSON(w, http.StatusOK, h.personas.ListKind(kind))
	default:
		utils.RespondError(w, http.StatusBadRequest, "unknown persona kind")
	}
}
