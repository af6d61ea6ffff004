// Package assistant runs the model-backed operations of the form copilot:
// field label resolution, single-turn field help and the fill-in interview.
package assistant

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"go.uber.org/zap"

	"github.com/a3tai/form-copilot/internal/apperrors"
	"github.com/a3tai/form-copilot/internal/provider"
)

// Assistant is safe for concurrent use. It holds no per-conversation state.
type Assistant struct {
	completer provider.Completer
	logger    *zap.Logger

	labelModel     string
	chatModel      string
	interviewModel string
	timeout        time.Duration

	labelSchema      *jsonschema.Schema
	extractionSchema *jsonschema.Schema
}

type Option func(*Assistant)

// WithModels sets the model used by each operation. Empty names keep the
// completer's default.
func WithModels(label, chat, interview string) Option {
	return func(a *Assistant) {
		a.labelModel = label
		a.chatModel = chat
		a.interviewModel = interview
	}
}

// WithTimeout bounds every model call
func WithTimeout(timeout time.Duration) Option {
	return func(a *Assistant) {
		a.timeout = timeout
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(a *Assistant) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// New creates an assistant around a shared completer
func New(completer provider.Completer, options ...Option) (*Assistant, error) {
	if completer == nil {
		return nil, fmt.Errorf("completer is required")
	}

	a := &Assistant{
		completer: completer,
		logger:    zap.NewNop(),
		timeout:   60 * time.Second,
	}

	for _, option := range options {
		option(a)
	}

	var err error

	if a.labelSchema, err = compileSchema("labels.json", labelSchema); err != nil {
		return nil, err
	}

	if a.extractionSchema, err = compileSchema("extraction.json", extractionSchema); err != nil {
		return nil, err
	}

	return a, nil
}

// complete performs one bounded model call and returns the completion text.
// Failures are KindExternalAPIFailure.
func (a *Assistant) complete(ctx context.Context, operation, model string, messages []provider.Message, format provider.CompletionFormat) (string, error) {
	requestID := uuid.NewString()
	logger := a.logger.With(
		zap.String("req_id", requestID),
		zap.String("operation", operation),
		zap.String("model", model),
	)

	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	start := time.Now()
	completion, err := a.completer.Complete(ctx, messages, &provider.CompleteOptions{
		Model:  model,
		Format: format,
	})
	elapsed := time.Since(start).Milliseconds()

	if err != nil {
		logger.Warn("model call failed", zap.Int64("elapsed_ms", elapsed), zap.Error(err))
		return "", apperrors.Wrap(apperrors.KindExternalAPIFailure, err, operation+" model call failed")
	}

	fields := []zap.Field{zap.Int64("elapsed_ms", elapsed)}
	if completion.Usage != nil {
		fields = append(fields,
			zap.Int("input_tokens", completion.Usage.InputTokens),
			zap.Int("output_tokens", completion.Usage.OutputTokens))
	}
	logger.Info("model call completed", fields...)

	return completion.Text(), nil
}
