// Package formmap turns a PDF form into positioned, labelled fields: it
// renders the first page, numbers every widget, and asks a label resolver to
// name them from an annotated copy of the rendering.
package formmap

import (
	"context"
	"image"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/a3tai/form-copilot/internal/apperrors"
	"github.com/a3tai/form-copilot/internal/assistant"
	"github.com/a3tai/form-copilot/internal/form"
	"github.com/a3tai/form-copilot/internal/pdf"
	"github.com/a3tai/form-copilot/internal/pdf/extraction"
	"github.com/a3tai/form-copilot/internal/render"
)

// LabelResolver names numbered fields on an annotated page image
type LabelResolver interface {
	ResolveLabels(ctx context.Context, imageDataURI string, ids []int) assistant.LabelResult
}

// Result is the analysis of one document
type Result struct {
	// ImageData is the unannotated first page as a JPEG data URI
	ImageData string
	Fields    []form.Field

	LabelStatus assistant.LabelStatus
}

// Analyzer is safe for concurrent use
type Analyzer struct {
	validator  *pdf.Validator
	extractor  *extraction.PDFCPUFormExtractor
	rasterizer render.Rasterizer
	resolver   LabelResolver
	scale      float64
	cache      *renderCache
	logger     *zap.Logger
}

type Option func(*Analyzer)

// WithScale sets the rasterization scale (1.0 = 72 DPI)
func WithScale(scale float64) Option {
	return func(a *Analyzer) {
		if scale > 0 {
			a.scale = scale
		}
	}
}

// WithCache keeps the renderings of up to capacity documents so repeated
// uploads skip parsing and rasterization. Labels are resolved on every call.
// Zero disables caching.
func WithCache(capacity int) Option {
	return func(a *Analyzer) {
		if capacity > 0 {
			a.cache = newRenderCache(capacity)
		} else {
			a.cache = nil
		}
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(a *Analyzer) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// NewAnalyzer wires the mapping pipeline
func NewAnalyzer(validator *pdf.Validator, rasterizer render.Rasterizer, resolver LabelResolver, options ...Option) *Analyzer {
	a := &Analyzer{
		validator:  validator,
		rasterizer: rasterizer,
		resolver:   resolver,
		scale:      2.0,
		logger:     zap.NewNop(),
	}

	for _, option := range options {
		option(a)
	}

	a.extractor = extraction.NewPDFCPUFormExtractor(a.logger.Named("extraction"))

	return a
}

// Analyze maps the fields of the document's first page. Label resolution is
// best effort: when it fails the fields keep their placeholder labels.
func (a *Analyzer) Analyze(ctx context.Context, document []byte) (*Result, error) {
	start := time.Now()

	if _, err := a.validator.ValidateBytes(document); err != nil {
		return nil, err
	}

	page, err := a.renderPage(ctx, document)
	if err != nil {
		return nil, err
	}

	result := &Result{
		ImageData:   page.imageData,
		Fields:      page.fields,
		LabelStatus: assistant.LabelsResolved,
	}

	if len(result.Fields) > 0 {
		result.LabelStatus = a.resolveLabels(ctx, page.annotated, result.Fields)
	}

	logFields := []zap.Field{
		zap.Int("pages", page.pages),
		zap.Int("fields", len(result.Fields)),
		zap.String("labels", string(result.LabelStatus)),
		zap.Int64("elapsed_ms", time.Since(start).Milliseconds()),
	}
	if a.cache != nil {
		stats := a.CacheStats()
		logFields = append(logFields,
			zap.Int64("cache_hits", stats.Hits),
			zap.Int64("cache_misses", stats.Misses),
			zap.Int("cache_size", stats.Size))
	}
	a.logger.Info("analyzed document", logFields...)

	return result, nil
}

// CacheStats reports render cache usage; all zero when caching is disabled
func (a *Analyzer) CacheStats() CacheStats {
	if a.cache == nil {
		return CacheStats{}
	}
	return a.cache.stats()
}

// renderPage returns the clean and annotated renderings of the first page
// with placeholder fields, from the cache when possible
func (a *Analyzer) renderPage(ctx context.Context, document []byte) (*rendering, error) {
	var key string
	if a.cache != nil {
		key = documentKey(document)
		if cached, ok := a.cache.get(key); ok {
			a.logger.Debug("rendering served from cache", zap.String("sha256", key))
			return cached, nil
		}
	}

	layout, err := a.extractor.ExtractFirstPage(document)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInvalidDocument, err, "failed to read form fields")
	}

	img, err := a.rasterizer.Rasterize(ctx, document, 1, a.scale)
	if err != nil {
		return nil, err
	}

	imageData, _, err := render.JPEGDataURI(img)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, err, "failed to encode page image")
	}

	fields, markers := mapFields(layout, img.Bounds())

	page := &rendering{
		imageData: imageData,
		fields:    fields,
		pages:     layout.PageCount,
	}

	if len(fields) > 0 {
		annotated, _, err := render.JPEGDataURI(render.Annotate(img, markers, a.scale))
		if err != nil {
			return nil, apperrors.Wrap(apperrors.KindInternal, err, "failed to encode annotated page")
		}
		page.annotated = annotated
	}

	if a.cache != nil {
		a.cache.put(key, page)
	}

	return page, nil
}

// resolveLabels applies whatever labels the resolver returns for the
// annotated page
func (a *Analyzer) resolveLabels(ctx context.Context, annotatedURI string, fields []form.Field) assistant.LabelStatus {
	ids := make([]int, len(fields))
	for i, f := range fields {
		ids[i] = f.SimpleID
	}

	result := a.resolver.ResolveLabels(ctx, annotatedURI, ids)
	if result.Err != nil {
		a.logger.Warn("label resolution failed, keeping placeholders", zap.Error(result.Err))
	}

	for i := range fields {
		if label, ok := result.Labels[fields[i].SimpleID]; ok {
			fields[i].Label = label
			fields[i].Explanation = label
		}
	}

	return result.Status
}

// Fields numbers the widgets of a page layout and positions them in percent
// of the page, with placeholder labels
func Fields(layout *extraction.PageLayout) []form.Field {
	bounds := image.Rect(0, 0, int(math.Ceil(layout.Width())), int(math.Ceil(layout.Height())))
	fields, _ := mapFields(layout, bounds)
	return fields
}

// mapFields numbers the widgets 1..N in page order and computes both the
// percentage boxes and the pixel markers. Markers are relative to the
// image's top-left corner.
func mapFields(layout *extraction.PageLayout, bounds image.Rectangle) ([]form.Field, []render.Marker) {
	fields := make([]form.Field, 0, len(layout.Widgets))
	markers := make([]render.Marker, 0, len(layout.Widgets))

	pageW, pageH := layout.Width(), layout.Height()
	sx := float64(bounds.Dx()) / pageW
	sy := float64(bounds.Dy()) / pageH

	for i, w := range layout.Widgets {
		simpleID := i + 1

		top, height := normalizeSpan(w.Rect.Y, w.Rect.Height, pageH)
		left, width := normalizeSpan(w.Rect.X, w.Rect.Width, pageW)

		fields = append(fields, form.Field{
			ID:          w.ID,
			SimpleID:    simpleID,
			Label:       form.PlaceholderLabel(simpleID),
			Explanation: form.PlaceholderExplanation,
			Top:         top,
			Left:        left,
			Width:       width,
			Height:      height,
			Value:       w.Value,
		})

		markers = append(markers, render.Marker{
			Number: simpleID,
			Bounds: image.Rect(
				int(math.Round(w.Rect.X*sx)),
				int(math.Round(w.Rect.Y*sy)),
				int(math.Round((w.Rect.X+w.Rect.Width)*sx)),
				int(math.Round((w.Rect.Y+w.Rect.Height)*sy)),
			),
		})
	}

	return fields, markers
}

// normalizeSpan converts an offset and length in points into percentages of
// total, clamped so that 0 <= start and start+length <= 100
func normalizeSpan(offset, length, total float64) (float64, float64) {
	if total <= 0 {
		return 0, 0
	}

	start := offset / total * 100
	end := (offset + length) / total * 100

	start = clamp(start, 0, 100)
	end = clamp(end, start, 100)

	return start, end - start
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

