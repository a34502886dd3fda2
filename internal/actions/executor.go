package actions

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Policy decisions.
const (
	DecisionAllow = "allow"
	DecisionBlock = "block"
)

// Policy decides whether an action may run.
type Policy interface {
	Evaluate(ctx context.Context, input interface{}) (string, string, error)
}

// Executor runs the actions named by a response.
type Executor struct {
	registry *Registry
	policy   Policy
	logger   *zap.Logger
}

// NewExecutor creates an executor. A nil policy allows everything.
func NewExecutor(registry *Registry, policy Policy, logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{registry: registry, policy: policy, logger: logger}
}

// Actions lists the registered action names.
func (e *Executor) Actions() []string {
	return e.registry.Names()
}

// Planned returns the actions a response will run. A response with text and
// no actions replies.
func Planned(call Call) []string {
	seen := make(map[string]bool)
	var names []string
	for _, a := range call.Response.Content.Actions {
		n := Normalize(a)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		names = append(names, n)
	}
	if len(names) == 0 && call.Response.Content.Text != "" {
		names = append(names, ActionReply)
	}
	return names
}

// Execute runs every planned action in order. Blocked and unknown actions are
// skipped; handler errors are joined and do not stop later actions.
func (e *Executor) Execute(ctx context.Context, call Call) error {
	var errs []error
	for _, name := range Planned(call) {
		log := e.logger.With(zap.String("action", name), zap.String("room_id", call.Room.RoomID))

		allowed, err := e.allowed(ctx, name, call)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if !allowed {
			log.Info("action blocked by policy", zap.String("room_type", string(call.Room.Type)))
			continue
		}

		handler, ok := e.registry.Lookup(name)
		if !ok {
			log.Warn("unknown action")
			continue
		}
		if err := handler(ctx, call); err != nil {
			log.Error("action failed", zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

func (e *Executor) allowed(ctx context.Context, name string, call Call) (bool, error) {
	if e.policy == nil {
		return true, nil
	}
	decision, _, err := e.policy.Evaluate(ctx, map[string]interface{}{
		"action":    name,
		"room_id":   call.Room.RoomID,
		"room_type": string(call.Room.Type),
		"agent_id":  call.AgentID,
		"entity_id": call.Message.EntityID,
	})
	if err != nil {
		return false, fmt.Errorf("failed to evaluate policy for %s: %w", name, err)
	}
	return decision != DecisionBlock, nil
}
