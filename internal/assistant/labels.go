package assistant

import (
	"context"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/a3tai/form-copilot/internal/apperrors"
	"github.com/a3tai/form-copilot/internal/provider"
)

// LabelStatus is the outcome of a label resolution
type LabelStatus string

const (
	LabelsResolved LabelStatus = "resolved"
	LabelsPartial  LabelStatus = "partial"
	LabelsFailed   LabelStatus = "failed"
)

// LabelResult maps display numbers to labels. Err is set when Status is
// LabelsFailed because of an error rather than an empty answer.
type LabelResult struct {
	Status LabelStatus
	Labels map[int]string
	Err    error
}

// ResolveLabels asks the vision model to name each numbered field on the
// annotated page image. It never returns an error: failures are reported
// through the result status and logged.
func (a *Assistant) ResolveLabels(ctx context.Context, imageDataURI string, ids []int) LabelResult {
	result := LabelResult{
		Labels: map[int]string{},
	}

	if len(ids) == 0 {
		result.Status = LabelsResolved
		return result
	}

	messages := []provider.Message{
		provider.UserMessage(
			provider.TextContent(labelPrompt(ids)),
			provider.ImageURLContent(imageDataURI),
		),
	}

	text, err := a.complete(ctx, "labels", a.labelModel, messages, provider.CompletionFormatJSON)
	if err != nil {
		result.Status = LabelsFailed
		result.Err = err
		return result
	}

	doc, err := decodeValidated(a.labelSchema, []byte(provider.StripCodeFence(text)))
	if err != nil {
		a.logger.Warn("label mapping rejected", zap.Error(err), zap.String("content", text))
		result.Status = LabelsFailed
		result.Err = apperrors.Wrap(apperrors.KindMalformedModelOutput, err, "invalid label mapping")
		return result
	}

	requested := make(map[int]bool, len(ids))
	for _, id := range ids {
		requested[id] = true
	}

	exactKeys := make(map[int]bool, len(ids))
	for key, value := range doc {
		id, exact, ok := parseID(key)
		if !ok || !requested[id] || (exactKeys[id] && !exact) {
			continue
		}
		label := strings.TrimSpace(value.(string))
		if label == "" {
			continue
		}
		result.Labels[id] = label
		exactKeys[id] = exact
	}

	switch {
	case len(result.Labels) == len(requested):
		result.Status = LabelsResolved
	case len(result.Labels) > 0:
		result.Status = LabelsPartial
	default:
		result.Status = LabelsFailed
	}

	a.logger.Debug("resolved labels",
		zap.String("status", string(result.Status)),
		zap.Int("requested", len(requested)),
		zap.Int("resolved", len(result.Labels)))

	return result
}

// parseID accepts "3", " 3 " and "#3". exact is true only for the plain
// decimal spelling, which wins when the model returns several spellings of
// one id.
func parseID(key string) (int, bool, bool) {
	id, err := strconv.Atoi(strings.TrimPrefix(strings.TrimSpace(key), "#"))
	if err != nil {
		return 0, false, false
	}
	return id, key == strconv.Itoa(id), true
}
