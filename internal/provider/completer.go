// Package provider defines the model port used by the assistant: a
// Completer turns a list of messages into a single completion.
package provider

import (
	"context"
	"strings"
)

type Completer interface {
	Complete(ctx context.Context, messages []Message, options *CompleteOptions) (*Completion, error)
}

type Message struct {
	Role MessageRole

	Content MessageContent
}

func SystemMessage(text string) Message {
	return Message{
		Role: MessageRoleSystem,

		Content: MessageContent{
			TextContent(text),
		},
	}
}

func UserMessage(content ...Content) Message {
	return Message{
		Role: MessageRoleUser,

		Content: content,
	}
}

func AssistantMessage(text string) Message {
	return Message{
		Role: MessageRoleAssistant,

		Content: MessageContent{
			TextContent(text),
		},
	}
}

type MessageContent []Content

func (c MessageContent) String() string {
	var parts []string

	for _, content := range c {
		if content.Text != "" {
			parts = append(parts, content.Text)
		}
	}

	return strings.Join(parts, "\n\n")
}

func TextContent(val string) Content {
	return Content{
		Text: val,
	}
}

// ImageURLContent references an image by URL, usually a base64 data URI
func ImageURLContent(url string) Content {
	return Content{
		Image: &ImageContent{
			ImageURL: url,
		},
	}
}

type Content struct {
	Text string

	Image *ImageContent
}

type ImageContent struct {
	ImageURL string
}

type MessageRole string

const (
	MessageRoleSystem    MessageRole = "system"
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
)

type CompleteOptions struct {
	// Model overrides the completer's default model for one call
	Model string

	MaxTokens   *int
	Temperature *float32

	Format CompletionFormat
}

type Completion struct {
	ID    string
	Model string

	Reason CompletionReason

	Message *Message

	Usage *Usage
}

// Text returns the concatenated text of the completion message
func (c *Completion) Text() string {
	if c == nil || c.Message == nil {
		return ""
	}

	return c.Message.Content.String()
}

type Usage struct {
	InputTokens  int
	OutputTokens int
}

type CompletionFormat string

const (
	CompletionFormatJSON CompletionFormat = "json"
)

type CompletionReason string

const (
	CompletionReasonStop   CompletionReason = "stop"
	CompletionReasonLength CompletionReason = "length"
	CompletionReasonFilter CompletionReason = "filter"
)
