package images

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/z-salon/backend/internal/service/imagegen"
	"github.com/zhouzirui/z-salon/backend/pkg/utils"
)

// Varier 抽象图片变体生成
type Varier interface {
	Vary(ctx context.Context, req imagegen.Request) ([]imagegen.Image, error)
}

// Handler 图片变体的HTTP处理器
type Handler struct {
	svc Varier
}

// New 创建图片处理器
func New(svc Varier) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes 注册图片相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/images/variations", h.handleVariations)
}

func (h *Handler) handleVariations(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, imagegen.MaxImageBytes+1<<20)
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "failed to parse multipart form: "+err.Error())
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, _, err := r.FormFile("image")
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "image file is required")
		return
	}
	data, err := imagegen.ReadImage(file)
	file.Close()
	if err != nil {
		respondVaryError(w, err)
		return
	}

	req := imagegen.Request{Image: data, Size: r.FormValue("size")}
	if raw := r.FormValue("n"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			utils.RespondError(w, http.StatusBadRequest, "n must be an integer")
			return
		}
		req.N = n
	}

	images, err := h.svc.Vary(r.Context(), req)
	if err != nil {
		respondVaryError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]any{"images": images})
}

func respondVaryError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, imagegen.ErrUnsupportedImage),
		errors.Is(err, imagegen.ErrInvalidCount),
		errors.Is(err, imagegen.ErrInvalidSize):
		utils.RespondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, imagegen.ErrImageTooLarge):
		utils.RespondError(w, http.StatusRequestEntityTooLarge, err.Error())
	default:
		log.Printf("[images] variation failed: %v", err)
		utils.RespondError(w, http.StatusBadGateway, "image variation failed")
	}
}
