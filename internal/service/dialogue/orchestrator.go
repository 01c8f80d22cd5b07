// Package dialogue simulates a scripted conversation between two personas.
//
// Each participant keeps a private history. The only way content crosses
// from one participant to the other is by copying the latest reply into the
// next prompt, so the two histories never merge.
package dialogue

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/zhouzirui/z-salon/backend/internal/metrics"
	"github.com/zhouzirui/z-salon/backend/internal/model/chat"
)

// ErrInvalidRequest is wrapped by every validation failure.
var ErrInvalidRequest = errors.New("invalid dialogue request")

// DefaultMaxRounds bounds the middle phase when no limit is configured.
const DefaultMaxRounds = 10

// Generator sends one private history and returns the reply. *ai.Service
// satisfies it.
type Generator interface {
	Complete(ctx context.Context, operation string, messages []*schema.Message) (*schema.Message, error)
}

// Participant is one synthetic persona. It does not change during a run.
type Participant struct {
	Name     string `json:"name"`
	Comedian bool   `json:"comedian,omitempty"`
}

// Request describes one simulation.
type Request struct {
	First     Participant
	Second    Participant
	Topic     string
	Rounds    int
	WordLimit int
}

// TurnPair holds both participants' outputs for one phase.
type TurnPair struct {
	Phase  Phase  `json:"phase"`
	Round  int    `json:"round,omitempty"`
	First  string `json:"first"`
	Second string `json:"second"`
}

// Transcript is the ordered list of emitted pairs.
type Transcript struct {
	First  Participant `json:"first"`
	Second Participant `json:"second"`
	Topic  string      `json:"topic"`
	Pairs  []TurnPair  `json:"pairs"`
}

// StepError reports the step that stopped a simulation. Emit is set when the
// pair was generated but the consumer refused it; Speaker is then empty.
type StepError struct {
	Phase   Phase
	Round   int
	Speaker string
	Emit    bool
	Err     error
}

func (e *StepError) Error() string {
	step := string(e.Phase)
	if e.Phase == PhaseRound {
		step = fmt.Sprintf("%s %d", e.Phase, e.Round)
	}
	who := e.Speaker
	if e.Emit {
		who = "emit"
	}
	return fmt.Sprintf("dialogue %s, %s: %v", step, who, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// EmitFunc receives each pair as soon as both sides are generated. Returning
// an error stops the simulation.
type EmitFunc func(TurnPair) error

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithMaxRounds caps the rounds a request may ask for.
func WithMaxRounds(n int) Option {
	return func(o *Orchestrator) {
		if n >= 0 {
			o.maxRounds = n
		}
	}
}

// WithMetrics records emitted pairs and run outcomes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

// Orchestrator drives opening, middle rounds and closing.
type Orchestrator struct {
	gen       Generator
	prompts   *PromptBuilder
	maxRounds int
	metrics   *metrics.Metrics
}

// NewOrchestrator creates an orchestrator that calls gen for every turn.
func NewOrchestrator(gen Generator, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		gen:       gen,
		prompts:   NewPromptBuilder(),
		maxRounds: DefaultMaxRounds,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// MaxRounds reports the configured round cap.
func (o *Orchestrator) MaxRounds() int {
	return o.maxRounds
}

// Validate checks a request without issuing any call.
func (o *Orchestrator) Validate(req Request) error {
	first := strings.TrimSpace(req.First.Name)
	second := strings.TrimSpace(req.Second.Name)
	switch {
	case first == "" || second == "":
		return fmt.Errorf("%w: both participants are required", ErrInvalidRequest)
	case strings.EqualFold(first, second):
		return fmt.Errorf("%w: participants must differ", ErrInvalidRequest)
	case strings.TrimSpace(req.Topic) == "":
		return fmt.Errorf("%w: topic is required", ErrInvalidRequest)
	case req.Rounds < 0:
		return fmt.Errorf("%w: rounds must not be negative", ErrInvalidRequest)
	case req.Rounds > o.maxRounds:
		return fmt.Errorf("%w: rounds must not exceed %d", ErrInvalidRequest, o.maxRounds)
	case req.WordLimit < 0:
		return fmt.Errorf("%w: word limit must not be negative", ErrInvalidRequest)
	}
	return nil
}

// speaker is a participant plus its private history.
type speaker struct {
	Participant
	label   string
	history *chat.History
}

// Simulate runs the dialogue and returns R+2 pairs. Pairs are handed to emit
// (when non-nil) as they complete. On the first failed call the run halts and
// returns the pairs completed so far together with a *StepError.
func (o *Orchestrator) Simulate(ctx context.Context, req Request, emit EmitFunc) (*Transcript, error) {
	if err := o.Validate(req); err != nil {
		return nil, err
	}

	r := &run{
		orch:   o,
		req:    req,
		emit:   emit,
		first:  newSpeaker(req.First),
		second: newSpeaker(req.Second),
		transcript: &Transcript{
			First:  req.First,
			Second: req.Second,
			Topic:  strings.TrimSpace(req.Topic),
			Pairs:  make([]TurnPair, 0, req.Rounds+2),
		},
	}

	log.Printf("[dialogue] starting: first=%s second=%s rounds=%d", req.First.Name, req.Second.Name, req.Rounds)
	err := r.execute(ctx)
	o.metrics.DialogueRun(err)
	if err != nil {
		log.Printf("[dialogue] halted after %d pairs: %v", len(r.transcript.Pairs), err)
		return r.transcript, err
	}

	log.Printf("[dialogue] completed: pairs=%d", len(r.transcript.Pairs))
	return r.transcript, nil
}

func newSpeaker(p Participant) *speaker {
	p.Name = strings.TrimSpace(p.Name)
	return &speaker{
		Participant: p,
		label:       Label(p),
		history:     chat.NewHistory(""),
	}
}

// run carries the state of one Simulate call.
type run struct {
	orch       *Orchestrator
	req        Request
	emit       EmitFunc
	first      *speaker
	second     *speaker
	transcript *Transcript
}

func (r *run) execute(ctx context.Context) error {
	if err := r.phase(ctx, PhaseOpening, 0); err != nil {
		return err
	}
	for round := 1; round <= r.req.Rounds; round++ {
		if err := r.phase(ctx, PhaseRound, round); err != nil {
			return err
		}
	}
	return r.phase(ctx, PhaseClosing, 0)
}

// phase issues exactly two calls, first then second, and emits the pair.
func (r *run) phase(ctx context.Context, phase Phase, round int) error {
	var prior string
	if phase != PhaseOpening {
		prior = lastReply(r.second)
	}

	firstOut, err := r.turn(ctx, phase, round, r.first, r.second, prior, phase == PhaseOpening)
	if err != nil {
		return err
	}

	secondOut, err := r.turn(ctx, phase, round, r.second, r.first, firstOut, false)
	if err != nil {
		return err
	}

	pair := TurnPair{Phase: phase, Round: round, First: firstOut, Second: secondOut}
	r.transcript.Pairs = append(r.transcript.Pairs, pair)
	r.orch.metrics.DialoguePair()

	if r.emit != nil {
		if err := r.emit(pair); err != nil {
			return &StepError{Phase: phase, Round: round, Emit: true, Err: err}
		}
	}
	return nil
}

// turn appends the prompt to the speaker's history, sends the whole history,
// and appends the reply.
func (r *run) turn(ctx context.Context, phase Phase, round int, self, other *speaker, prior string, lead bool) (string, error) {
	fail := func(err error) (string, error) {
		return "", &StepError{Phase: phase, Round: round, Speaker: self.Name, Err: err}
	}

	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	text, err := r.orch.prompts.Build(ctx, PromptFields{
		Phase:     phase,
		Lead:      lead,
		Speaker:   self.label,
		Partner:   other.label,
		Topic:     r.transcript.Topic,
		Prior:     prior,
		WordLimit: r.req.WordLimit,
	})
	if err != nil {
		return fail(err)
	}

	self.history.AppendUser(text)
	reply, err := r.orch.gen.Complete(ctx, "dialogue", self.history.Messages())
	if err != nil {
		return fail(err)
	}

	self.history.AppendAssistant(reply.Content)
	return reply.Content, nil
}

func lastReply(s *speaker) string {
	if last := s.history.Last(); last != nil && last.Role == schema.Assistant {
		return last.Content
	}
	return ""
}
