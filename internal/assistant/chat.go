package assistant

import (
	"context"

	"github.com/a3tai/form-copilot/internal/provider"
)

// Answer gives single-turn help about one field. The reply is returned as
// the model wrote it.
func (a *Assistant) Answer(ctx context.Context, query, label, explanation string) (string, error) {
	messages := []provider.Message{
		provider.SystemMessage(assistantPrompt(label, explanation)),
		provider.UserMessage(provider.TextContent(query)),
	}

	return a.complete(ctx, "assistant", a.chatModel, messages, "")
}
