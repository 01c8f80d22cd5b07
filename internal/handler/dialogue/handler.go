// Package dialogue exposes the conversation simulator over HTTP, either as a
// single JSON transcript or as a stream of turn pairs.
package dialogue

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/z-salon/backend/internal/model/persona"
	dialogueService "github.com/zhouzirui/z-salon/backend/internal/service/dialogue"
	"github.com/zhouzirui/z-salon/backend/pkg/utils"
)

// Handler 对话模拟的HTTP处理器
type Handler struct {
	orch          *dialogueService.Orchestrator
	personas      persona.Store
	defaultRounds int
	wordLimit     int
}

// New 创建对话模拟处理器。defaultRounds 与 wordLimit 在请求未指定时使用。
func New(orch *dialogueService.Orchestrator, personas persona.Store, defaultRounds, wordLimit int) *Handler {
	return &Handler{
		orch:          orch,
		personas:      personas,
		defaultRounds: defaultRounds,
		wordLimit:     wordLimit,
	}
}

// RegisterRoutes 注册对话模拟路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/dialogue", h.handleSimulate)
	r.Get("/dialogue/stream", h.handleStream)
}

type simulateRequest struct {
	First     string `json:"first" validate:"required"`
	Second    string `json:"second" validate:"required,nefield=First"`
	Topic     string `json:"topic" validate:"required"`
	Rounds    *int   `json:"rounds" validate:"omitempty,min=0"`
	WordLimit *int   `json:"wordLimit" validate:"omitempty,min=0"`
}

// failedStep describes the call that halted a run.
type failedStep struct {
	Phase   dialogueService.Phase `json:"phase"`
	Round   int                   `json:"round,omitempty"`
	Speaker string                `json:"speaker,omitempty"`
	Emit    bool                  `json:"emit,omitempty"`
}

func (h *Handler) handleSimulate(w http.ResponseWriter, r *http.Request) {
	var payload simulateRequest
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	req, err := h.buildRequest(payload)
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	transcript, err := h.orch.Simulate(r.Context(), req, nil)
	if err != nil {
		var stepErr *dialogueService.StepError
		switch {
		case errors.Is(err, dialogueService.ErrInvalidRequest):
			utils.RespondError(w, http.StatusBadRequest, err.Error())
		case errors.As(err, &stepErr):
			log.Printf("[dialogue] %v", err)
			utils.RespondErrorWith(w, http.StatusBadGateway, "dialogue generation failed", map[string]any{
				"transcript": transcript,
				"failedStep": stepOf(stepErr),
			})
		default:
			utils.RespondError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	utils.RespondJSON(w, http.StatusOK, transcript)
}

// handleStream 以 SSE 推送每一对发言，结束时发送 end 或 error 事件
func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	payload := simulateRequest{
		First:  q.Get("first"),
		Second: q.Get("second"),
		Topic:  q.Get("topic"),
	}
	for key, dst := range map[string]**int{"rounds": &payload.Rounds, "wordLimit": &payload.WordLimit} {
		raw := q.Get(key)
		if raw == "" {
			continue
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			utils.RespondError(w, http.StatusBadRequest, key+" must be an integer")
			return
		}
		*dst = &v
	}
	if err := utils.Validate(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	req, err := h.buildRequest(payload)
	if err == nil {
		err = h.orch.Validate(req)
	}
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	sse, err := utils.NewSSEWriter(w)
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if err := sse.Event("start", map[string]any{
		"first":  req.First,
		"second": req.Second,
		"topic":  req.Topic,
		"rounds": req.Rounds,
	}); err != nil {
		return
	}

	transcript, err := h.orch.Simulate(r.Context(), req, func(pair dialogueService.TurnPair) error {
		return sse.Event("pair", pair)
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		body := map[string]any{"error": err.Error(), "pairs": len(transcript.Pairs)}
		var stepErr *dialogueService.StepError
		if errors.As(err, &stepErr) {
			body["failedStep"] = stepOf(stepErr)
		}
		if sendErr := sse.Event("error", body); sendErr != nil {
			log.Printf("[dialogue] failed to send error event: %v", sendErr)
		}
		return
	}

	if err := sse.Event("end", map[string]any{"pairs": len(transcript.Pairs)}); err != nil {
		log.Printf("[dialogue] failed to send end event: %v", err)
	}
}

func (h *Handler) buildRequest(payload simulateRequest) (dialogueService.Request, error) {
	first, err := dialogueService.ResolveParticipant(h.personas, payload.First)
	if err != nil {
		return dialogueService.Request{}, err
	}
	second, err := dialogueService.ResolveParticipant(h.personas, payload.Second)
	if err != nil {
		return dialogueService.Request{}, err
	}

	req := dialogueService.Request{
		First:     first,
		Second:    second,
		Topic:     payload.Topic,
		Rounds:    h.defaultRounds,
		WordLimit: h.wordLimit,
	}
	if payload.Rounds != nil {
		req.Rounds = *payload.Rounds
	}
	if payload.WordLimit != nil {
		req.WordLimit = *payload.WordLimit
	}
	return req, nil
}

func stepOf(err *dialogueService.StepError) failedStep {
	return failedStep{Phase: err.Phase, Round: err.Round, Speaker: err.Speaker, Emit: err.Emit}
}
