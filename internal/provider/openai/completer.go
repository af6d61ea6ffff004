// Package openai adapts any OpenAI-compatible chat completions endpoint
// (OpenAI, Mistral, local gateways) to provider.Completer.
package openai

import (
	"context"
	"errors"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/shared"

	"github.com/a3tai/form-copilot/internal/provider"
)

var _ provider.Completer = (*Completer)(nil)

type Completer struct {
	*Config
	client openai.Client
}

func NewCompleter(url, model string, options ...Option) (*Completer, error) {
	cfg := &Config{
		url:   url,
		model: model,
	}

	for _, option := range options {
		option(cfg)
	}

	return &Completer{
		Config: cfg,
		client: openai.NewClient(cfg.Options()...),
	}, nil
}

func (c *Completer) Complete(ctx context.Context, messages []provider.Message, options *provider.CompleteOptions) (*provider.Completion, error) {
	if options == nil {
		options = new(provider.CompleteOptions)
	}

	req, err := c.convertCompletionRequest(messages, options)

	if err != nil {
		return nil, err
	}

	completion, err := c.client.Chat.Completions.New(ctx, *req)

	if err != nil {
		return nil, err
	}

	if len(completion.Choices) == 0 {
		return nil, errors.New("no choices in completion")
	}

	choice := completion.Choices[0]

	return &provider.Completion{
		ID:    completion.ID,
		Model: completion.Model,

		Reason: toCompletionReason(choice.FinishReason),

		Message: &provider.Message{
			Role: provider.MessageRoleAssistant,

			Content: provider.MessageContent{
				provider.TextContent(choice.Message.Content),
			},
		},

		Usage: &provider.Usage{
			InputTokens:  int(completion.Usage.PromptTokens),
			OutputTokens: int(completion.Usage.CompletionTokens),
		},
	}, nil
}

func (c *Completer) convertCompletionRequest(messages []provider.Message, options *provider.CompleteOptions) (*openai.ChatCompletionNewParams, error) {
	model := options.Model

	if model == "" {
		model = c.model
	}

	if model == "" {
		return nil, errors.New("no model specified")
	}

	req := &openai.ChatCompletionNewParams{
		Model: shared.ChatModel(model),
	}

	if options.MaxTokens != nil {
		req.MaxTokens = openai.Int(int64(*options.MaxTokens))
	}

	if options.Temperature != nil {
		req.Temperature = openai.Float(float64(*options.Temperature))
	}

	if options.Format == provider.CompletionFormatJSON {
		req.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	}

	for _, m := range messages {
		switch m.Role {
		case provider.MessageRoleSystem:
			req.Messages = append(req.Messages, openai.SystemMessage(m.Content.String()))

		case provider.MessageRoleAssistant:
			req.Messages = append(req.Messages, openai.AssistantMessage(m.Content.String()))

		case provider.MessageRoleUser:
			var parts []openai.ChatCompletionContentPartUnionParam

			for _, content := range m.Content {
				if content.Text != "" {
					parts = append(parts, openai.TextContentPart(content.Text))
				}

				if content.Image != nil {
					parts = append(parts, openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
						URL: content.Image.ImageURL,
					}))
				}
			}

			if len(parts) == 0 {
				return nil, errors.New("empty user message")
			}

			req.Messages = append(req.Messages, openai.UserMessage(parts))

		default:
			return nil, errors.New("unsupported message role: " + string(m.Role))
		}
	}

	return req, nil
}

func toCompletionReason(reason string) provider.CompletionReason {
	switch reason {
	case "stop":
		return provider.CompletionReasonStop

	case "length":
		return provider.CompletionReasonLength

	case "content_filter":
		return provider.CompletionReasonFilter
	}

	return ""
}
