// Package service implements the response pipeline of the agent: message
// intake, the should-respond gate, response generation with supersession, and
// post-response evaluators.
package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/baYsed-BuidlAI/luna/internal/actions"
	"github.com/baYsed-BuidlAI/luna/internal/adapter/embedding"
	"github.com/baYsed-BuidlAI/luna/internal/domain"
	"github.com/baYsed-BuidlAI/luna/internal/extract"
	"github.com/baYsed-BuidlAI/luna/internal/generation"
	"github.com/baYsed-BuidlAI/luna/internal/metrics"
	store "github.com/baYsed-BuidlAI/luna/internal/repository"
)

// Delivery sends an agent response to the platform the room lives on.
type Delivery interface {
	Deliver(ctx context.Context, roomID string, response domain.Memory) error
}

// EvaluationInput is handed to evaluators after every handled message.
type EvaluationInput struct {
	RoomID    string
	Message   domain.Memory
	Responses []domain.Memory
	Responded bool
}

// Evaluator runs after a message has been handled, whether or not the agent
// responded. Evaluators gate themselves.
type Evaluator interface {
	Name() string
	Evaluate(ctx context.Context, input EvaluationInput) error
}

// Options configures a Service.
type Options struct {
	AgentID            string
	AgentName          string
	ConversationLength int

	Store      store.Store
	Embedder   embedding.Embedder
	Extractor  *extract.Client
	Executor   *actions.Executor
	Delivery   Delivery
	Evaluators []Evaluator
	Tokens     *generation.Table

	Logger  *zap.Logger
	Metrics *metrics.Metrics
}

// Service is the response orchestrator.
type Service struct {
	agentID            string
	agentName          string
	conversationLength int

	store      store.Store
	embedder   embedding.Embedder
	extractor  *extract.Client
	executor   *actions.Executor
	delivery   Delivery
	evaluators []Evaluator
	tokens     *generation.Table

	logger  *zap.Logger
	metrics *metrics.Metrics
}

// New creates a Service.
func New(opts Options) *Service {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Tokens == nil {
		opts.Tokens = generation.NewTable()
	}
	if opts.ConversationLength <= 0 {
		opts.ConversationLength = 32
	}
	return &Service{
		agentID:            opts.AgentID,
		agentName:          opts.AgentName,
		conversationLength: opts.ConversationLength,
		store:              opts.Store,
		embedder:           opts.Embedder,
		extractor:          opts.Extractor,
		executor:           opts.Executor,
		delivery:           opts.Delivery,
		evaluators:         opts.Evaluators,
		tokens:             opts.Tokens,
		logger:             opts.Logger,
		metrics:            opts.Metrics,
	}
}

// AgentID returns the id the agent acts under.
func (s *Service) AgentID() string {
	return s.agentID
}

// AddEvaluator appends an evaluator. Not safe to call while messages are
// being handled.
func (s *Service) AddEvaluator(e Evaluator) {
	s.evaluators = append(s.evaluators, e)
}

// SetDelivery replaces the delivery target. Not safe to call while messages
// are being handled.
func (s *Service) SetDelivery(d Delivery) {
	s.delivery = d
}
