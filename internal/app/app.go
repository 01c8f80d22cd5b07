// Package app assembles the services shared by the API server and the CLI.
package app

import (
	"context"
	"fmt"
	"log"

	"github.com/openai/openai-go/v3"

	"github.com/zhouzirui/z-salon/backend/internal/config"
	"github.com/zhouzirui/z-salon/backend/internal/handler"
	"github.com/zhouzirui/z-salon/backend/internal/metrics"
	"github.com/zhouzirui/z-salon/backend/internal/model/persona"
	"github.com/zhouzirui/z-salon/backend/internal/service/ai"
	"github.com/zhouzirui/z-salon/backend/internal/service/chat"
	"github.com/zhouzirui/z-salon/backend/internal/service/dialogue"
	"github.com/zhouzirui/z-salon/backend/internal/service/imagegen"
	"github.com/zhouzirui/z-salon/backend/internal/service/speech"
)

// App holds the wired services. Speech and Images stay nil without OpenAI
// credentials.
type App struct {
	Config   *config.Config
	Metrics  *metrics.Metrics
	Personas *persona.MemoryStore
	AI       *ai.Service
	Chat     *chat.Service
	Dialogue *dialogue.Orchestrator
	Speech   *speech.Service
	Images   *imagegen.Service
}

// New loads credentials and builds every service. The key file is mandatory
// when the chat provider is OpenAI; with Ark it only gates transcription and
// image variation.
func New(ctx context.Context, cfg *config.Config, m *metrics.Metrics) (*App, error) {
	a := &App{
		Config:   cfg,
		Metrics:  m,
		Personas: persona.NewMemoryStore(persona.Seed()),
	}

	var creds *config.Credentials
	loaded, err := config.LoadCredentials(cfg.AI.KeysFile)
	switch {
	case err == nil:
		creds = &loaded
	case cfg.AI.Provider == config.ProviderArk:
		log.Printf("warning: %v; transcription and image variation disabled", err)
	default:
		return nil, err
	}

	chatModel, err := ai.NewChatModel(ctx, cfg.AI, creds)
	if err != nil {
		return nil, fmt.Errorf("init chat model: %w", err)
	}
	a.AI, err = ai.NewService(ctx, chatModel, m)
	if err != nil {
		return nil, err
	}
	log.Printf("AI service initialized (provider=%s)", providerName(cfg.AI.Provider))

	a.Chat = chat.NewService(a.Personas, a.AI, chat.WithMetrics(m))
	a.Dialogue = dialogue.NewOrchestrator(a.AI,
		dialogue.WithMaxRounds(cfg.Dialogue.MaxRounds),
		dialogue.WithMetrics(m),
	)

	if creds != nil {
		client := cfg.AI.NewOpenAIClient(*creds)
		a.Speech = speech.NewService(client, cfg.Speech, m)
		a.Images = imagegen.NewService(client, cfg.Images, m)
	}
	return a, nil
}

// OpenAIClient builds a client for commands that only need the OpenAI
// endpoints, such as transcription.
func OpenAIClient(cfg *config.Config) (openai.Client, error) {
	creds, err := config.LoadCredentials(cfg.AI.KeysFile)
	if err != nil {
		return openai.Client{}, err
	}
	return cfg.AI.NewOpenAIClient(creds), nil
}

// Services adapts the app for the HTTP router.
func (a *App) Services() handler.Services {
	return handler.Services{
		Personas:       a.Personas,
		Chat:           a.Chat,
		Dialogue:       a.Dialogue,
		DialogueRounds: a.Config.Dialogue.DefaultRounds,
		WordLimit:      a.Config.Dialogue.WordLimit,
		Speech:         a.Speech,
		Images:         a.Images,
		Metrics:        a.Metrics,
	}
}

func providerName(p config.Provider) string {
	if p == "" {
		return string(config.ProviderOpenAI)
	}
	return string(p)
}
