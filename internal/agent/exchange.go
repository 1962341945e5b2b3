package agent

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/studylock/studylock/internal/domain"
)

// Seed holds the language dependent text an Exchange starts with.
type Seed struct {
	Language domain.Language
	Greeting string
	Fallback string
}

// Option configures an Exchange.
type Option func(*Exchange)

// WithOwner tags recorded results with the owning user and session.
func WithOwner(owner Owner) Option {
	return func(e *Exchange) { e.owner = owner }
}

// WithRecorder reports every completed exchange to r.
func WithRecorder(r Recorder) Option {
	return func(e *Exchange) {
		if r != nil {
			e.recorder = r
		}
	}
}

// WithOnChange calls fn after every transcript or state change.
func WithOnChange(fn func()) Option {
	return func(e *Exchange) { e.onChange = fn }
}

// WithLogger sets the logger used for swallowed provider failures.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Exchange) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// Exchange holds the transcript and runs at most one request at a time.
type Exchange struct {
	mu       sync.Mutex
	turns    []domain.ChatTurn
	state    State
	seed     Seed
	gen      Generator
	owner    Owner
	recorder Recorder
	onChange func()
	logger   *slog.Logger
	now      func() time.Time
}

// NewExchange returns an idle exchange whose transcript holds the greeting.
func NewExchange(gen Generator, seed Seed, opts ...Option) *Exchange {
	if gen == nil {
		gen = UnavailableGenerator{}
	}
	e := &Exchange{
		turns:    []domain.ChatTurn{{Role: domain.RoleAssistant, Text: seed.Greeting}},
		state:    StateIdle,
		seed:     seed,
		gen:      gen,
		recorder: noopRecorder{},
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Pending is a handle on an in-flight exchange.
type Pending struct {
	done chan struct{}
	turn domain.ChatTurn
}

// Done is closed once the assistant turn has been appended.
func (p *Pending) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until the exchange resolves and returns the assistant turn.
func (p *Pending) Wait() domain.ChatTurn {
	<-p.done
	return p.turn
}

// Start appends the user turn and issues the request in the background.
// It fails with domain.ErrEmptyMessage for blank text and with
// domain.ErrExchangePending while a previous request is unresolved; in both
// cases the transcript is untouched and nothing is sent.
//
// The request is detached from ctx cancellation: once issued it always runs
// to completion.
func (e *Exchange) Start(ctx context.Context, text string) (*Pending, error) {
	if strings.TrimSpace(text) == "" {
		return nil, domain.ErrEmptyMessage
	}

	e.mu.Lock()
	if e.state == StatePending {
		e.mu.Unlock()
		return nil, domain.ErrExchangePending
	}
	e.turns = append(e.turns, domain.ChatTurn{Role: domain.RoleUser, Text: text})
	e.state = StatePending
	history := slices.Clone(e.turns)
	e.mu.Unlock()
	e.notify()

	p := &Pending{done: make(chan struct{})}
	go e.run(context.WithoutCancel(ctx), text, history, p)
	return p, nil
}

// Submit is Start followed by Wait.
func (e *Exchange) Submit(ctx context.Context, text string) (domain.ChatTurn, error) {
	p, err := e.Start(ctx, text)
	if err != nil {
		return domain.ChatTurn{}, err
	}
	return p.Wait(), nil
}

func (e *Exchange) run(ctx context.Context, userText string, history []domain.ChatTurn, p *Pending) {
	started := e.now()
	result := Result{
		ExchangeID: uuid.NewString(),
		Owner:      e.owner,
		Language:   e.seed.Language,
		UserText:   userText,
		StartedAt:  started,
	}

	reply, err := e.generate(ctx, history)
	if err == nil && strings.TrimSpace(reply) == "" {
		err = ErrEmptyResponse
	}

	turn := domain.ChatTurn{Role: domain.RoleAssistant, Text: reply}
	result.Outcome = domain.OutcomeReply
	if err != nil {
		e.logger.Warn("Assistant request failed, using fallback",
			"user_id", e.owner.UserID,
			"session_id", e.owner.SessionID,
			"exchange_id", result.ExchangeID,
			"error", err,
		)
		turn.Text = e.seed.Fallback
		result.Outcome = domain.OutcomeFallback
		result.Err = err
	}

	e.mu.Lock()
	e.turns = append(e.turns, turn)
	e.state = StateIdle
	e.mu.Unlock()
	e.notify()

	result.Reply = turn
	result.Latency = e.now().Sub(started)
	e.recorder.Record(ctx, result)

	p.turn = turn
	close(p.done)
}

// generate calls the generator, turning a panic into an error so the
// exchange always leaves the pending state.
func (e *Exchange) generate(ctx context.Context, history []domain.ChatTurn) (reply string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("generator panic: %v", r)
		}
	}()
	return e.gen.Generate(ctx, GenerateRequest{
		SystemInstruction: SystemInstruction,
		Temperature:       Temperature,
		Turns:             history,
	})
}

func (e *Exchange) notify() {
	if e.onChange != nil {
		e.onChange()
	}
}

// Transcript returns a copy of the turns so far.
func (e *Exchange) Transcript() []domain.ChatTurn {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.turns)
}

// State reports whether a request is in flight.
func (e *Exchange) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Language returns the language the exchange was seeded with.
func (e *Exchange) Language() domain.Language {
	return e.seed.Language
}
