package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/zhouzirui/z-salon/backend/internal/handler/chat"
	"github.com/zhouzirui/z-salon/backend/internal/handler/dialogue"
	"github.com/zhouzirui/z-salon/backend/internal/handler/images"
	"github.com/zhouzirui/z-salon/backend/internal/handler/persona"
	"github.com/zhouzirui/z-salon/backend/internal/handler/speech"
	"github.com/zhouzirui/z-salon/backend/internal/handler/stream"
	"github.com/zhouzirui/z-salon/backend/internal/metrics"
	middlewarePkg "github.com/zhouzirui/z-salon/backend/internal/middleware"
	personaModel "github.com/zhouzirui/z-salon/backend/internal/model/persona"
	chatService "github.com/zhouzirui/z-salon/backend/internal/service/chat"
	dialogueService "github.com/zhouzirui/z-salon/backend/internal/service/dialogue"
	"github.com/zhouzirui/z-salon/backend/internal/service/imagegen"
	speechService "github.com/zhouzirui/z-salon/backend/internal/service/speech"
	"github.com/zhouzirui/z-salon/backend/pkg/utils"
)

// Services groups everything the router exposes. Nil optional services answer
// with 503 instead of being routed.
type Services struct {
	Personas       *personaModel.MemoryStore
	Chat           *chatService.Service
	Dialogue       *dialogueService.Orchestrator
	DialogueRounds int
	WordLimit      int
	Speech         *speechService.Service
	Images         *imagegen.Service
	Metrics        *metrics.Metrics
}

// NewRouter wires HTTP routes to core services.
func NewRouter(svc Services) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", svc.Metrics.Handler())

	r.Route("/api", func(api chi.Router) {
		persona.New(svc.Personas).RegisterRoutes(api)

		chat.New(svc.Chat).RegisterRoutes(api)
		stream.New(svc.Chat).RegisterRoutes(api)

		// Transcriber 为 nil 接口时 websocket 不接受音频
		var transcriber chat.Transcriber
		if svc.Speech != nil {
			transcriber = svc.Speech
		}
		chat.NewWebSocketHandler(svc.Chat, transcriber).RegisterWebSocketRoutes(api)

		if svc.Dialogue != nil {
			dialogue.New(svc.Dialogue, svc.Personas, svc.DialogueRounds, svc.WordLimit).RegisterRoutes(api)
		} else {
			api.HandleFunc("/dialogue", unavailable("dialogue simulator"))
			api.HandleFunc("/dialogue/*", unavailable("dialogue simulator"))
		}

		if svc.Speech != nil {
			speech.New(svc.Speech).RegisterRoutes(api)
		} else {
			api.HandleFunc("/speech/*", unavailable("speech transcription"))
		}

		if svc.Images != nil {
			images.New(svc.Images).RegisterRoutes(api)
		} else {
			api.HandleFunc("/images/*", unavailable("image variation"))
		}
	})

	return r
}

func unavailable(feature string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		utils.RespondError(w, http.StatusServiceUnavailable, feature+" unavailable")
	}
}
