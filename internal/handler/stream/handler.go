package stream

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/z-salon/backend/internal/model/chat"
	"github.com/zhouzirui/z-salon/backend/internal/model/persona"
	chatService "github.com/zhouzirui/z-salon/backend/internal/service/chat"
	"github.com/zhouzirui/z-salon/backend/pkg/utils"
)

// Handler manages streaming chat replies via Server-Sent Events
type Handler struct {
	chatSvc *chatService.Service
}

// New creates a new stream handler
func New(chatSvc *chatService.Service) *Handler {
	return &Handler{
		chatSvc: chatSvc,
	}
}

// StreamResponse represents a streaming response chunk
type StreamResponse struct {
	Event     string     `json:"event"`
	Content   string     `json:"content,omitempty"`
	SessionID string     `json:"sessionId,omitempty"`
	Rejected  bool       `json:"rejected,omitempty"`
	State     chat.State `json:"state,omitempty"`
	Finished  bool       `json:"finished,omitempty"`
	Error     string     `json:"error,omitempty"`
}

// RegisterRoutes 注册流式聊天路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/stream/{sessionID}", h.handleStream)
}

func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	userMessage := r.URL.Query().Get("message")

	if strings.TrimSpace(userMessage) == "" {
		utils.RespondError(w, http.StatusBadRequest, "message query parameter is required")
		return
	}
	if _, _, err := h.getSessionPersona(r.Context(), sessionID); err != nil {
		utils.RespondError(w, http.StatusNotFound, err.Error())
		return
	}

	if err := h.HandleStreamRequest(r.Context(), w, sessionID, userMessage); err != nil {
		log.Printf("[stream] error handling request: %v", err)
	}
}

// HandleStreamRequest runs one chat turn and streams the reply. Errors after
// the stream has started are reported as an error event.
func (h *Handler) HandleStreamRequest(ctx context.Context, w http.ResponseWriter, sessionID string, userMessage string) error {
	sse, err := utils.NewSSEWriter(w)
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return err
	}

	_, p, err := h.getSessionPersona(ctx, sessionID)
	if err != nil {
		h.sendError(sse, fmt.Sprintf("failed to get session persona: %v", err))
		return err
	}

	if err := sse.Chunk(StreamResponse{
		Event:     "start",
		SessionID: sessionID,
		Content:   p.Name,
	}); err != nil {
		return err
	}

	reply, err := h.chatSvc.SendStream(ctx, sessionID, userMessage, func(delta string) error {
		return sse.Chunk(StreamResponse{
			Event:     "delta",
			SessionID: sessionID,
			Content:   delta,
		})
	})
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			h.sendError(sse, err.Error())
		}
		return err
	}

	event := "message"
	if reply.Rejected {
		event = "rejected"
	}
	if err := sse.Chunk(StreamResponse{
		Event:     event,
		SessionID: sessionID,
		Content:   reply.Content,
		Rejected:  reply.Rejected,
		State:     reply.State,
	}); err != nil {
		return err
	}

	log.Printf("[stream] completed response for session=%s, persona=%s", sessionID, p.ID)
	return sse.Chunk(StreamResponse{
		Event:     "end",
		SessionID: sessionID,
		Finished:  true,
	})
}

// getSessionPersona retrieves session and associated persona information
func (h *Handler) getSessionPersona(ctx context.Context, sessionID string) (*chat.Session, *persona.Persona, error) {
	session, err := h.chatSvc.GetSession(ctx, sessionID)
	if err != nil {
		return nil, nil, fmt.Errorf("session not found: %w", err)
	}

	p, err := h.chatSvc.SessionPersona(ctx, sessionID)
	if err != nil {
		return nil, nil, fmt.Errorf("persona %s not found", session.PersonaID)
	}

	return &session, &p, nil
}

func (h *Handler) sendError(sse *utils.SSEWriter, msg string) {
	if err := sse.Chunk(StreamResponse{Event: "error", Error: msg}); err != nil {
		log.Printf("[stream] failed to send error event: %v", err)
	}
}
