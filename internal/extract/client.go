// Package extract turns free-form model output into typed values.
//
// Model and parse failures never escape as errors: they are reported through
// Result. The only error is ErrEmptyPrompt, which is a caller bug.
package extract

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/baYsed-BuidlAI/luna/internal/adapter/llm"
	"github.com/baYsed-BuidlAI/luna/internal/domain"
)

// ErrEmptyPrompt is returned when an extraction is requested without a prompt.
var ErrEmptyPrompt = errors.New("extract: empty prompt")

// DefaultEnumMaxTokens bounds the output of enum extractions.
const DefaultEnumMaxTokens = 16

// Request describes one model call.
type Request struct {
	Prompt    string
	Tier      domain.ModelTier
	MaxTokens int
}

// Client sends prompts to the model and decodes the answers.
type Client struct {
	invoker  llm.Invoker
	validate *validator.Validate
	logger   *zap.Logger
}

// NewClient creates an extraction client.
func NewClient(invoker llm.Invoker, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		invoker:  invoker,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger,
	}
}

// Text returns the raw model output. Model failures yield Empty.
func (c *Client) Text(ctx context.Context, req Request) (Result[string], error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return Result[string]{}, ErrEmptyPrompt
	}
	out, err := c.invoker.Generate(ctx, llm.GenerateRequest{
		Tier:      req.Tier,
		Prompt:    req.Prompt,
		MaxTokens: req.MaxTokens,
	})
	if err != nil {
		c.logger.Error("model call failed", zap.String("tier", string(req.Tier)), zap.Error(err))
		return Empty[string](err.Error()), nil
	}
	if strings.TrimSpace(out) == "" {
		return Empty[string]("model returned no text"), nil
	}
	return Parsed(out), nil
}

// Enum asks the model to pick one of values. An exact match on the trimmed
// output wins; otherwise the output must contain exactly one of the values,
// compared case-insensitively.
func (c *Client) Enum(ctx context.Context, req Request, values []string) (Result[string], error) {
	if req.MaxTokens <= 0 {
		req.MaxTokens = DefaultEnumMaxTokens
	}
	text, err := c.Text(ctx, req)
	if err != nil || !text.Ok() {
		return Result[string]{Status: text.Status, Reason: text.Reason}, err
	}

	res := MatchEnum(text.Value, values)
	if res.Status == StatusInvalid {
		c.logger.Warn("enum output rejected", zap.String("reason", res.Reason))
	}
	return res, nil
}

// MatchEnum resolves output against the allowed values.
func MatchEnum(output string, values []string) Result[string] {
	out := strings.TrimSpace(output)
	if out == "" {
		return Empty[string]("no output")
	}
	for _, v := range values {
		if out == v {
			return Parsed(v)
		}
	}

	lower := strings.ToLower(out)
	var matched []string
	for _, v := range values {
		if v != "" && strings.Contains(lower, strings.ToLower(v)) {
			matched = append(matched, v)
		}
	}
	switch len(matched) {
	case 1:
		return Parsed(matched[0])
	case 0:
		return Invalid[string](fmt.Sprintf("output %q matches none of %v", out, values))
	default:
		return Invalid[string](fmt.Sprintf("output %q is ambiguous between %v", out, matched))
	}
}

// Object asks the model for a JSON object and decodes it into T.
func Object[T any](ctx context.Context, c *Client, req Request) (Result[T], error) {
	text, err := c.Text(ctx, req)
	if err != nil || !text.Ok() {
		return Result[T]{Status: text.Status, Reason: text.Reason}, err
	}
	res := ParseObject[T](text.Value, c.validate)
	c.logResult(req, res.Status, res.Reason)
	return res, nil
}

// Array asks the model for a JSON array and decodes it into []T.
func Array[T any](ctx context.Context, c *Client, req Request) (Result[[]T], error) {
	text, err := c.Text(ctx, req)
	if err != nil || !text.Ok() {
		return Result[[]T]{Status: text.Status, Reason: text.Reason}, err
	}
	res := ParseArray[T](text.Value, c.validate)
	c.logResult(req, res.Status, res.Reason)
	return res, nil
}

func (c *Client) logResult(req Request, status Status, reason string) {
	if status == StatusParsed {
		return
	}
	c.logger.Warn("structured output rejected",
		zap.String("tier", string(req.Tier)),
		zap.Stringer("status", status),
		zap.String("reason", reason))
}
