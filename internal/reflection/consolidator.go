// Package reflection distills conversations into facts and a relationship
// graph between entities.
//
// A pass runs after a message has been handled, once enough messages have
// arrived since the previous pass. Its progress is tracked by a per-room
// checkpoint holding the id of the message that triggered the last completed
// pass.
package reflection

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/baYsed-BuidlAI/luna/internal/adapter/embedding"
	"github.com/baYsed-BuidlAI/luna/internal/adapter/vector"
	"github.com/baYsed-BuidlAI/luna/internal/domain"
	"github.com/baYsed-BuidlAI/luna/internal/extract"
	"github.com/baYsed-BuidlAI/luna/internal/metrics"
	"github.com/baYsed-BuidlAI/luna/internal/prompt"
	store "github.com/baYsed-BuidlAI/luna/internal/repository"
	"github.com/baYsed-BuidlAI/luna/internal/resolver"
	"github.com/baYsed-BuidlAI/luna/internal/service"
)

// Pass statuses.
const (
	StatusCompleted = "completed"
	StatusRejected  = "rejected"
	StatusFailed    = "failed"
)

// Relationship merge operations.
const (
	OpCreated    = "created"
	OpUpdated    = "updated"
	OpUnresolved = "unresolved"
	OpFailed     = "failed"
)

const (
	knownFactsLimit = 30
	recalledFacts   = 5
)

// CheckpointKey is the cache key of a room's reflection checkpoint.
func CheckpointKey(roomID string) string {
	return roomID + "-reflection-last-processed"
}

// Interval is the number of new messages a pass must exceed.
func Interval(conversationLength int) int {
	return (conversationLength + 3) / 4
}

// Options configures a Consolidator.
type Options struct {
	AgentID            string
	AgentName          string
	ConversationLength int

	Store     store.Store
	Embedder  embedding.Embedder
	Facts     *vector.FactIndex
	Extractor *extract.Client

	Logger  *zap.Logger
	Metrics *metrics.Metrics
}

// Consolidator is the reflection evaluator.
type Consolidator struct {
	opts   Options
	logger *zap.Logger
	passes singleflight.Group
}

var _ service.Evaluator = (*Consolidator)(nil)

// New creates a Consolidator.
func New(opts Options) *Consolidator {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.ConversationLength <= 0 {
		opts.ConversationLength = 32
	}
	return &Consolidator{opts: opts, logger: opts.Logger}
}

// Name identifies the evaluator.
func (c *Consolidator) Name() string {
	return "REFLECTION"
}

// Evaluate runs a pass for the room if one is due. Triggers arriving while a
// pass for the same room is running join that pass.
func (c *Consolidator) Evaluate(ctx context.Context, in service.EvaluationInput) error {
	_, err, _ := c.passes.Do(in.RoomID, func() (interface{}, error) {
		due, err := c.Validate(ctx, in.RoomID)
		if err != nil || !due {
			return nil, err
		}
		return nil, c.Run(ctx, in.RoomID, in.Message)
	})
	return err
}

// Validate reports whether more than Interval messages arrived since the
// checkpoint. When the checkpoint is not in the loaded window, the whole
// window counts as new.
func (c *Consolidator) Validate(ctx context.Context, roomID string) (bool, error) {
	history, err := c.opts.Store.GetMemories(ctx, domain.MemoryQuery{
		Table:  domain.MemoryTableMessages,
		RoomID: roomID,
		Count:  c.opts.ConversationLength,
	})
	if err != nil {
		return false, fmt.Errorf("failed to get messages: %w", err)
	}
	checkpoint, _, err := c.opts.Store.GetCache(ctx, CheckpointKey(roomID))
	if err != nil {
		return false, fmt.Errorf("failed to get reflection checkpoint: %w", err)
	}
	return len(sinceCheckpoint(history, checkpoint)) > Interval(c.opts.ConversationLength), nil
}

// sinceCheckpoint returns the memories newer than checkpoint. history is
// most recent first.
func sinceCheckpoint(history []domain.Memory, checkpoint string) []domain.Memory {
	if checkpoint == "" {
		return history
	}
	for i, m := range history {
		if m.ID == checkpoint {
			return history[:i]
		}
	}
	return history
}

type passState struct {
	messages      []domain.Memory
	roster        []domain.Entity
	facts         []domain.Memory
	recalled      []vector.Match
	relationships []domain.Relationship
}

// Run performs one reflection pass triggered by msg. A rejected model output
// leaves all state untouched, including the checkpoint.
func (c *Consolidator) Run(ctx context.Context, roomID string, msg domain.Memory) error {
	log := c.logger.With(zap.String("room_id", roomID), zap.String("message_id", msg.ID))

	state, err := c.load(ctx, roomID, msg)
	if err != nil {
		c.opts.Metrics.ObserveReflection(StatusFailed)
		return err
	}

	text, err := prompt.Render(reflectionTemplate, c.promptData(state, msg))
	if err != nil {
		c.opts.Metrics.ObserveReflection(StatusFailed)
		return err
	}

	res, err := extract.Object[Result](ctx, c.opts.Extractor, extract.Request{
		Prompt: text,
		Tier:   domain.ModelTierLarge,
	})
	if err != nil {
		c.opts.Metrics.ObserveReflection(StatusFailed)
		return err
	}
	if !res.Ok() {
		log.Warn("reflection output rejected", zap.Stringer("status", res.Status), zap.String("reason", res.Reason))
		c.opts.Metrics.ObserveReflection(StatusRejected)
		return nil
	}

	stored := c.storeFacts(ctx, roomID, res.Value.Facts)
	created, updated := c.mergeRelationships(ctx, state.roster, res.Value.Relationships)

	if err := c.opts.Store.SetCache(ctx, CheckpointKey(roomID), msg.ID); err != nil {
		c.opts.Metrics.ObserveReflection(StatusFailed)
		return fmt.Errorf("failed to set reflection checkpoint: %w", err)
	}
	c.opts.Metrics.ObserveReflection(StatusCompleted)
	log.Info("reflection completed",
		zap.Int("facts", stored),
		zap.Int("relationships_created", created),
		zap.Int("relationships_updated", updated))
	return nil
}

func (c *Consolidator) load(ctx context.Context, roomID string, msg domain.Memory) (*passState, error) {
	state := &passState{}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		msgs, err := c.opts.Store.GetMemories(gctx, domain.MemoryQuery{
			Table:  domain.MemoryTableMessages,
			RoomID: roomID,
			Count:  c.opts.ConversationLength,
		})
		if err != nil {
			return fmt.Errorf("failed to get messages: %w", err)
		}
		state.messages = msgs
		return nil
	})
	g.Go(func() error {
		roster, err := c.opts.Store.GetEntitiesForRoom(gctx, roomID)
		if err != nil {
			return fmt.Errorf("failed to get room entities: %w", err)
		}
		state.roster = roster
		return nil
	})
	g.Go(func() error {
		facts, err := c.opts.Store.GetMemories(gctx, domain.MemoryQuery{
			Table:  domain.MemoryTableFacts,
			RoomID: roomID,
			Count:  knownFactsLimit,
			Unique: true,
		})
		if err != nil {
			return fmt.Errorf("failed to get facts: %w", err)
		}
		state.facts = facts
		return nil
	})
	g.Go(func() error {
		rels, err := c.opts.Store.GetRelationships(gctx, msg.EntityID)
		if err != nil {
			return fmt.Errorf("failed to get relationships: %w", err)
		}
		state.relationships = rels
		return nil
	})
	if c.opts.Facts != nil && msg.Content.Text != "" {
		g.Go(func() error {
			matches, err := c.opts.Facts.Search(gctx, roomID, msg.Content.Text, recalledFacts)
			if err != nil {
				// Recall only enriches the prompt.
				c.logger.Warn("fact recall failed", zap.String("room_id", roomID), zap.Error(err))
				return nil
			}
			state.recalled = matches
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return state, nil
}

func (c *Consolidator) promptData(state *passState, msg domain.Memory) promptData {
	names := prompt.NewNames(state.roster, c.opts.AgentID, c.opts.AgentName)

	seen := make(map[string]bool)
	var known []string
	for _, m := range state.recalled {
		if !seen[m.ID] {
			seen[m.ID] = true
			known = append(known, m.Claim)
		}
	}
	for _, f := range state.facts {
		if !seen[f.ID] {
			seen[f.ID] = true
			known = append(known, f.Content.Text)
		}
	}

	rels := make([]string, 0, len(state.relationships))
	for _, r := range state.relationships {
		rels = append(rels, fmt.Sprintf("%s -> %s [%s] (interactions: %d)",
			names.Of(r.SourceEntityID), names.Of(r.TargetEntityID), strings.Join(r.Tags, ", "), r.Interactions()))
	}

	return promptData{
		AgentName:     c.opts.AgentName,
		Sender:        names.Of(msg.EntityID),
		Roster:        prompt.Roster(state.roster),
		KnownFacts:    known,
		Relationships: rels,
		Conversation:  prompt.Messages(state.messages, names),
	}
}

// storeFacts persists new facts and returns how many were stored. Failures
// are logged per fact.
func (c *Consolidator) storeFacts(ctx context.Context, roomID string, facts []ExtractedFact) int {
	stored := 0
	for _, f := range facts {
		if !f.Persistable() {
			continue
		}
		fact := domain.Fact{
			ID:        uuid.New().String(),
			RoomID:    roomID,
			EntityID:  c.opts.AgentID,
			Claim:     strings.TrimSpace(f.Claim),
			Kind:      f.Kind,
			CreatedAt: time.Now(),
		}
		m := fact.ToMemory(c.opts.AgentID)
		log := c.logger.With(zap.String("room_id", roomID), zap.String("fact_id", fact.ID))

		if _, err := embedding.AddEmbedding(ctx, c.opts.Embedder, m); err != nil {
			log.Error("failed to embed fact", zap.Error(err))
			continue
		}
		if err := c.opts.Store.CreateMemory(ctx, domain.MemoryTableFacts, m); err != nil {
			log.Error("failed to store fact", zap.Error(err))
			continue
		}
		stored++
		if c.opts.Facts != nil {
			if err := c.opts.Facts.Add(ctx, m); err != nil {
				log.Warn("failed to index fact", zap.Error(err))
			}
		}
	}
	c.opts.Metrics.AddFacts(stored)
	return stored
}

// mergeRelationships folds extracted edges into the graph. Each resolved
// edge is one observation merged by the store in a single step, so passes of
// different rooms observing the same pair never lose a count.
func (c *Consolidator) mergeRelationships(ctx context.Context, roster []domain.Entity, rels []ExtractedRelationship) (created, updated int) {
	for _, r := range rels {
		log := c.logger.With(zap.String("source_ref", r.SourceEntityID), zap.String("target_ref", r.TargetEntityID))

		source, ok := resolver.Resolve(r.SourceEntityID, roster)
		if !ok {
			log.Info("skipping relationship with unresolved source")
			c.opts.Metrics.ObserveRelationship(OpUnresolved)
			continue
		}
		target, ok := resolver.Resolve(r.TargetEntityID, roster)
		if !ok {
			log.Info("skipping relationship with unresolved target")
			c.opts.Metrics.ObserveRelationship(OpUnresolved)
			continue
		}

		edge := &domain.Relationship{
			SourceEntityID: source,
			TargetEntityID: target,
			AgentID:        c.opts.AgentID,
			Tags:           r.Tags,
			Metadata:       r.Metadata,
		}
		isNew, err := c.opts.Store.MergeRelationship(ctx, edge)
		if err != nil {
			log.Error("failed to merge relationship", zap.Error(err))
			c.opts.Metrics.ObserveRelationship(OpFailed)
			continue
		}
		if isNew {
			created++
			c.opts.Metrics.ObserveRelationship(OpCreated)
			continue
		}
		updated++
		c.opts.Metrics.ObserveRelationship(OpUpdated)
	}
	return created, updated
}
