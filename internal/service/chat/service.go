package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"

	"github.com/zhouzirui/z-salon/backend/internal/analysis/sensitive"
	"github.com/zhouzirui/z-salon/backend/internal/metrics"
	"github.com/zhouzirui/z-salon/backend/internal/model/chat"
	"github.com/zhouzirui/z-salon/backend/internal/model/persona"
	"github.com/zhouzirui/z-salon/backend/internal/service/ai"
)

var (
	ErrPersonaRequired       = errors.New("persona id is required")
	ErrPersonaNotFound       = errors.New("persona not found")
	ErrSessionNotFound       = errors.New("session not found")
	ErrEmptyPrompt           = errors.New("prompt is empty")
	ErrGenerationUnavailable = errors.New("generation service unavailable")
)

const operation = "chat"

// Generator is the slice of the AI service the chat loop needs.
type Generator interface {
	Complete(ctx context.Context, operation string, messages []*schema.Message) (*schema.Message, error)
	Stream(ctx context.Context, operation string, messages []*schema.Message) (*schema.StreamReader[*schema.Message], error)
}

// Detector decides whether a prompt must be rejected before it leaves the
// process.
type Detector interface {
	Check(prompt string) bool
}

// Reply is the outcome of one user turn.
type Reply struct {
	SessionID string     `json:"sessionId"`
	Prompt    string     `json:"prompt"`
	Content   string     `json:"reply"`
	Rejected  bool       `json:"rejected"`
	State     chat.State `json:"state"`
}

// Option configures a Service.
type Option func(*Service)

// WithDetector replaces the default SSN filter.
func WithDetector(d Detector) Option {
	return func(s *Service) {
		s.filter = d
	}
}

// WithMetrics records rejected prompts.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// conversation is one session's owned state. mu serializes turns so the
// history stays append-ordered.
type conversation struct {
	mu         sync.Mutex
	session    chat.Session
	persona    persona.Persona
	history    *chat.History
	transcript []chat.Message
}

// Service encapsulates conversation state management.
type Service struct {
	mu       sync.RWMutex
	sessions map[string]*conversation

	personas persona.Store
	gen      Generator
	filter   Detector
	metrics  *metrics.Metrics
}

// NewService bootstraps the in-memory chat service. gen may be nil, in which
// case sessions can be created but turns fail with ErrGenerationUnavailable.
func NewService(personas persona.Store, gen Generator, opts ...Option) *Service {
	s := &Service{
		sessions: make(map[string]*conversation),
		personas: personas,
		gen:      gen,
		filter:   sensitive.Filter{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateSession provisions an anonymous session bound to a persona. Its
// history starts with the persona's system turn.
func (s *Service) CreateSession(_ context.Context, personaID string) (chat.Session, error) {
	personaID = strings.TrimSpace(personaID)
	if personaID == "" {
		return chat.Session{}, ErrPersonaRequired
	}

	p, ok := s.personas.FindByID(personaID)
	if !ok {
		return chat.Session{}, fmt.Errorf("%w: %s", ErrPersonaNotFound, personaID)
	}

	session := chat.Session{
		ID:        uuid.NewString(),
		PersonaID: personaID,
		State:     chat.StateActive,
		CreatedAt: time.Now().UTC(),
	}

	s.mu.Lock()
	s.sessions[session.ID] = &conversation{
		session:    session,
		persona:    p,
		history:    chat.NewHistory(ai.SystemPrompt(p)),
		transcript: make([]chat.Message, 0, 16),
	}
	s.mu.Unlock()

	log.Printf("[chat] session created: id=%s persona=%s", session.ID, personaID)
	return session, nil
}

// GetSession retrieves a session by identifier.
func (s *Service) GetSession(_ context.Context, sessionID string) (chat.Session, error) {
	conv, err := s.lookup(sessionID)
	if err != nil {
		return chat.Session{}, err
	}
	conv.mu.Lock()
	defer conv.mu.Unlock()
	return conv.session, nil
}

// SessionPersona returns the persona bound to a session.
func (s *Service) SessionPersona(_ context.Context, sessionID string) (persona.Persona, error) {
	conv, err := s.lookup(sessionID)
	if err != nil {
		return persona.Persona{}, err
	}
	return conv.persona, nil
}

// Send runs one turn of the chat loop. A prompt that trips the filter is
// answered with the persona's rejection message and never reaches the
// generation service. On a failed call the pending user turn is rolled back.
func (s *Service) Send(ctx context.Context, sessionID, prompt string) (Reply, error) {
	return s.send(ctx, sessionID, prompt, nil)
}

// SendStream is Send with the reply delivered through onDelta as it arrives.
// The full reply is appended to the history only once the stream completes.
func (s *Service) SendStream(ctx context.Context, sessionID, prompt string, onDelta func(string) error) (Reply, error) {
	if onDelta == nil {
		onDelta = func(string) error { return nil }
	}
	return s.send(ctx, sessionID, prompt, onDelta)
}

func (s *Service) send(ctx context.Context, sessionID, prompt string, onDelta func(string) error) (Reply, error) {
	if strings.TrimSpace(prompt) == "" {
		return Reply{}, ErrEmptyPrompt
	}

	conv, err := s.lookup(sessionID)
	if err != nil {
		return Reply{}, err
	}

	conv.mu.Lock()
	defer conv.mu.Unlock()

	if s.filter != nil && s.filter.Check(prompt) {
		s.metrics.PromptRejected()
		rejection := conv.persona.RejectionMessage()
		conv.record(chat.Message{Sender: "user", Content: prompt, Rejected: true})
		conv.record(chat.Message{Sender: "assistant", Content: rejection, Rejected: true})
		log.Printf("[chat] prompt rejected by sensitive-data filter: session=%s", sessionID)
		return Reply{
			SessionID: sessionID,
			Prompt:    prompt,
			Content:   rejection,
			Rejected:  true,
			State:     conv.session.State,
		}, nil
	}

	if s.gen == nil {
		return Reply{}, ErrGenerationUnavailable
	}

	mark := conv.history.Len()
	conv.history.AppendUser(prompt)

	var content string
	if onDelta == nil {
		var reply *schema.Message
		reply, err = s.gen.Complete(ctx, operation, conv.history.Messages())
		if reply != nil {
			content = reply.Content
		}
	} else {
		content, err = s.stream(ctx, conv.history.Messages(), onDelta)
	}
	if err != nil {
		conv.history.Truncate(mark)
		return Reply{}, fmt.Errorf("generate reply: %w", err)
	}

	conv.history.AppendAssistant(content)
	conv.session.State = chat.StateActive
	conv.record(chat.Message{Sender: "user", Content: prompt})
	conv.record(chat.Message{Sender: "assistant", Content: content})

	return Reply{
		SessionID: sessionID,
		Prompt:    prompt,
		Content:   content,
		State:     conv.session.State,
	}, nil
}

func (s *Service) stream(ctx context.Context, messages []*schema.Message, onDelta func(string) error) (string, error) {
	stream, err := s.gen.Stream(ctx, operation, messages)
	if err != nil {
		return "", err
	}
	defer stream.Close()

	var builder strings.Builder
	for {
		chunk, recvErr := stream.Recv()
		if errors.Is(recvErr, io.EOF) {
			break
		}
		if recvErr != nil {
			return "", recvErr
		}
		if chunk == nil || chunk.Content == "" {
			continue
		}
		builder.WriteString(chunk.Content)
		if err := onDelta(chunk.Content); err != nil {
			return "", err
		}
	}

	if strings.TrimSpace(builder.String()) == "" {
		return "", ai.ErrEmptyReply
	}
	return builder.String(), nil
}

// Reset clears the session history back to the persona's system turn.
func (s *Service) Reset(_ context.Context, sessionID string) (chat.Session, error) {
	conv, err := s.lookup(sessionID)
	if err != nil {
		return chat.Session{}, err
	}

	conv.mu.Lock()
	defer conv.mu.Unlock()

	conv.history.Reset()
	conv.transcript = conv.transcript[:0]
	conv.session.State = chat.StateReset

	log.Printf("[chat] session reset: id=%s", sessionID)
	return conv.session, nil
}

// LoadTranscript returns the displayed turns, rejections included.
func (s *Service) LoadTranscript(_ context.Context, sessionID string) ([]chat.Message, error) {
	conv, err := s.lookup(sessionID)
	if err != nil {
		return nil, err
	}

	conv.mu.Lock()
	defer conv.mu.Unlock()

	copied := make([]chat.Message, len(conv.transcript))
	copy(copied, conv.transcript)
	return copied, nil
}

// History returns the turns replayed to the generation service.
func (s *Service) History(_ context.Context, sessionID string) ([]*schema.Message, error) {
	conv, err := s.lookup(sessionID)
	if err != nil {
		return nil, err
	}

	conv.mu.Lock()
	defer conv.mu.Unlock()
	return conv.history.Messages(), nil
}

func (s *Service) lookup(sessionID string) (*conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return conv, nil
}

func (c *conversation) record(msg chat.Message) {
	msg.ID = uuid.NewString()
	msg.SessionID = c.session.ID
	msg.CreatedAt = time.Now().UTC()
	c.transcript = append(c.transcript, msg)
}
