package anthropic

import (
	"context"
	"errors"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/a3tai/form-copilot/internal/provider"
)

var _ provider.Completer = (*Completer)(nil)

// jsonInstruction stands in for a response format switch, which the
// Messages API does not have
const jsonInstruction = "Respond with a single valid JSON object and nothing else. Do not wrap it in a code block."

type Completer struct {
	*Config
	messages anthropic.MessageService
}

func NewCompleter(url, model string, options ...Option) (*Completer, error) {
	cfg := &Config{
		url:   url,
		model: model,

		maxTokens: 4096,
	}

	for _, option := range options {
		option(cfg)
	}

	return &Completer{
		Config:   cfg,
		messages: anthropic.NewMessageService(cfg.Options()...),
	}, nil
}

func (c *Completer) Complete(ctx context.Context, messages []provider.Message, options *provider.CompleteOptions) (*provider.Completion, error) {
	if options == nil {
		options = new(provider.CompleteOptions)
	}

	req, err := c.convertMessageRequest(messages, options)

	if err != nil {
		return nil, err
	}

	message, err := c.messages.New(ctx, *req)

	if err != nil {
		return nil, err
	}

	var parts []string

	for _, block := range message.Content {
		switch block := block.AsAny().(type) {
		case anthropic.TextBlock:
			parts = append(parts, block.Text)
		}
	}

	text := strings.Join(parts, "")

	if options.Format == provider.CompletionFormatJSON {
		text = provider.StripCodeFence(text)
	}

	return &provider.Completion{
		ID:    message.ID,
		Model: string(message.Model),

		Reason: toCompletionReason(message.StopReason),

		Message: &provider.Message{
			Role: provider.MessageRoleAssistant,

			Content: provider.MessageContent{
				provider.TextContent(text),
			},
		},

		Usage: &provider.Usage{
			InputTokens:  int(message.Usage.InputTokens),
			OutputTokens: int(message.Usage.OutputTokens),
		},
	}, nil
}

func (c *Completer) convertMessageRequest(messages []provider.Message, options *provider.CompleteOptions) (*anthropic.MessageNewParams, error) {
	model := options.Model

	if model == "" {
		model = c.model
	}

	if model == "" {
		return nil, errors.New("no model specified")
	}

	req := &anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: int64(c.maxTokens),
	}

	if options.MaxTokens != nil {
		req.MaxTokens = int64(*options.MaxTokens)
	}

	if options.Temperature != nil {
		req.Temperature = anthropic.Float(float64(*options.Temperature))
	}

	var system []anthropic.TextBlockParam

	for _, m := range messages {
		switch m.Role {
		case provider.MessageRoleSystem:
			for _, c := range m.Content {
				if c.Text != "" {
					system = append(system, anthropic.TextBlockParam{Text: c.Text})
				}
			}

		case provider.MessageRoleUser:
			var blocks []anthropic.ContentBlockParamUnion

			for _, c := range m.Content {
				if c.Text != "" {
					blocks = append(blocks, anthropic.NewTextBlock(c.Text))
				}

				if c.Image != nil {
					mime, content, err := provider.ParseDataURL(c.Image.ImageURL)

					if err != nil {
						return nil, err
					}

					blocks = append(blocks, anthropic.NewImageBlockBase64(mime, content))
				}
			}

			if len(blocks) == 0 {
				return nil, errors.New("empty user message")
			}

			req.Messages = append(req.Messages, anthropic.NewUserMessage(blocks...))

		case provider.MessageRoleAssistant:
			req.Messages = append(req.Messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content.String())))

		default:
			return nil, errors.New("unsupported message role: " + string(m.Role))
		}
	}

	if options.Format == provider.CompletionFormatJSON {
		system = append(system, anthropic.TextBlockParam{Text: jsonInstruction})
	}

	if len(system) > 0 {
		req.System = system
	}

	return req, nil
}

func toCompletionReason(reason anthropic.StopReason) provider.CompletionReason {
	switch reason {
	case anthropic.StopReasonEndTurn, anthropic.StopReasonStopSequence:
		return provider.CompletionReasonStop

	case anthropic.StopReasonMaxTokens:
		return provider.CompletionReasonLength

	case anthropic.StopReasonRefusal:
		return provider.CompletionReasonFilter
	}

	return ""
}
