package assistant

import (
	"context"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/a3tai/form-copilot/internal/apperrors"
	"github.com/a3tai/form-copilot/internal/form"
	"github.com/a3tai/form-copilot/internal/provider"
)

// StartInterview asks the model for one broad opening question covering the
// fields that have no value yet. It asks even when every field is filled.
func (a *Assistant) StartInterview(ctx context.Context, fields []form.Field) (string, error) {
	labels := []string{}
	for _, f := range fields {
		if f.IsEmpty() {
			labels = append(labels, f.Label)
		}
	}

	messages := []provider.Message{
		provider.UserMessage(provider.TextContent(openingQuestionPrompt(labels))),
	}

	question, err := a.complete(ctx, "start_interview", a.interviewModel, messages, "")
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(question), nil
}

// ProcessAnswer extracts field values from a free-form answer and decides on
// the next question. Values are keyed by the decimal simple_id; keys that do
// not name one of the given fields are dropped.
func (a *Assistant) ProcessAnswer(ctx context.Context, response string, fields []form.Field, previousContext string) (*form.Extraction, error) {
	refs := make([]fieldRef, 0, len(fields))
	known := make(map[int]bool, len(fields))
	for _, f := range fields {
		refs = append(refs, fieldRef{ID: f.SimpleID, Label: f.Label})
		known[f.SimpleID] = true
	}

	messages := []provider.Message{
		provider.UserMessage(provider.TextContent(extractionPrompt(refs, response, previousContext))),
	}

	text, err := a.complete(ctx, "process_interview_answer", a.interviewModel, messages, provider.CompletionFormatJSON)
	if err != nil {
		return nil, err
	}

	doc, err := decodeValidated(a.extractionSchema, []byte(provider.StripCodeFence(text)))
	if err != nil {
		a.logger.Warn("extraction rejected", zap.Error(err), zap.String("content", text))
		return nil, apperrors.Wrap(apperrors.KindMalformedModelOutput, err, "Extraction error")
	}

	extraction := &form.Extraction{
		ExtractedData: map[string]string{},
	}

	data, _ := doc["extracted_data"].(map[string]any)
	exactKeys := make(map[int]bool, len(data))
	for key, value := range data {
		id, exact, ok := parseID(key)
		if !ok || !known[id] {
			a.logger.Debug("dropping unknown field id", zap.String("key", key))
			continue
		}
		if exactKeys[id] && !exact {
			continue
		}
		s, ok := stringify(value)
		if !ok {
			continue
		}
		extraction.ExtractedData[strconv.Itoa(id)] = s
		exactKeys[id] = exact
	}

	if q, ok := doc["next_question"].(string); ok && strings.TrimSpace(q) != "" {
		q = strings.TrimSpace(q)
		extraction.NextQuestion = &q
	}

	return extraction, nil
}

// stringify renders an extracted scalar; null means nothing was extracted
func stringify(value any) (string, bool) {
	switch v := value.(type) {
	case string:
		return v, true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(v), true
	default:
		return "", false
	}
}
