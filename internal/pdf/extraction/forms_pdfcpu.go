package extraction

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"go.uber.org/zap"
)

// maxParentDepth bounds the walk up a field's /Parent chain
const maxParentDepth = 32

// US Letter, used when a page carries no usable box at all
var defaultPageBox = newBoundingBox(0, 0, 612, 792)

// PDFCPUFormExtractor enumerates form widgets using the pdfcpu library
type PDFCPUFormExtractor struct {
	logger *zap.Logger
}

// NewPDFCPUFormExtractor creates a new form extractor using pdfcpu
func NewPDFCPUFormExtractor(logger *zap.Logger) *PDFCPUFormExtractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PDFCPUFormExtractor{
		logger: logger,
	}
}

// ExtractFirstPage reads a document held in memory and returns the widget
// layout of its first page
func (fe *PDFCPUFormExtractor) ExtractFirstPage(data []byte) (*PageLayout, error) {
	return fe.ExtractPage(bytes.NewReader(data), 1)
}

// ExtractPage returns the widget layout of a single page, in /Annots order
func (fe *PDFCPUFormExtractor) ExtractPage(reader io.ReadSeeker, pageNr int) (*PageLayout, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	ctx, err := api.ReadContext(reader, conf)
	if err != nil {
		return nil, fmt.Errorf("failed to read PDF context: %w", err)
	}

	if err := ctx.EnsurePageCount(); err != nil {
		return nil, fmt.Errorf("failed to ensure page count: %w", err)
	}

	if ctx.PageCount < 1 {
		return nil, fmt.Errorf("document has no pages")
	}
	if pageNr < 1 || pageNr > ctx.PageCount {
		return nil, fmt.Errorf("page %d out of range (document has %d pages)", pageNr, ctx.PageCount)
	}

	pageDict, _, _, err := ctx.PageDict(pageNr, false)
	if err != nil {
		return nil, fmt.Errorf("failed to get page %d: %w", pageNr, err)
	}
	if pageDict == nil {
		return nil, fmt.Errorf("page %d has no dictionary", pageNr)
	}

	layout := &PageLayout{
		PageCount: ctx.PageCount,
		Box:       fe.visibleBox(ctx, pageDict),
		Widgets:   []Widget{},
	}

	annotsObj, found := pageDict.Find("Annots")
	if !found {
		return layout, nil
	}

	annots, err := ctx.DereferenceArray(annotsObj)
	if err != nil {
		fe.logger.Debug("unreadable /Annots array", zap.Int("page", pageNr), zap.Error(err))
		return layout, nil
	}

	for i, annotObj := range annots {
		widget, ok := fe.processAnnotation(ctx, annotObj, i)
		if !ok {
			continue
		}
		widget.Rect = toTopLeft(widget.Bounds, layout.Box)
		layout.Widgets = append(layout.Widgets, widget)
	}

	fe.logger.Debug("extracted page widgets",
		zap.Int("page", pageNr),
		zap.Int("widgets", len(layout.Widgets)),
		zap.Float64("width", layout.Box.Width),
		zap.Float64("height", layout.Box.Height))

	return layout, nil
}

// processAnnotation turns one /Annots entry into a widget. Non-widget
// annotations and malformed entries are skipped.
func (fe *PDFCPUFormExtractor) processAnnotation(ctx *model.Context, annotObj types.Object, index int) (Widget, bool) {
	widget := Widget{}

	if ref, ok := annotObj.(types.IndirectRef); ok {
		widget.ObjectNumber = ref.ObjectNumber.Value()
		widget.ID = strconv.Itoa(widget.ObjectNumber)
	} else {
		widget.ID = fmt.Sprintf("annot-%d", index)
	}

	annotDict, err := ctx.DereferenceDict(annotObj)
	if err != nil || annotDict == nil {
		fe.logger.Debug("skipping unreadable annotation", zap.Int("index", index), zap.Error(err))
		return widget, false
	}

	subtypeObj, found := annotDict.Find("Subtype")
	if !found {
		return widget, false
	}
	if subtype, err := ctx.DereferenceName(subtypeObj, model.V10, nil); err != nil || subtype != "Widget" {
		return widget, false
	}

	rectObj, found := annotDict.Find("Rect")
	if !found {
		fe.logger.Debug("skipping widget without /Rect", zap.String("id", widget.ID))
		return widget, false
	}
	bounds, ok := fe.parseRect(ctx, rectObj)
	if !ok {
		fe.logger.Debug("skipping widget with malformed /Rect", zap.String("id", widget.ID))
		return widget, false
	}
	widget.Bounds = bounds

	widget.Name = fe.fullName(ctx, annotDict)
	widget.Type = fe.extractFieldType(ctx, annotDict)

	if valueObj, found := fe.inherited(ctx, annotDict, "V"); found {
		widget.Value = fe.extractFieldValue(ctx, valueObj, widget.Type)
	}

	return widget, true
}

// inherited looks a key up on the dictionary and then along its /Parent chain
func (fe *PDFCPUFormExtractor) inherited(ctx *model.Context, dict types.Dict, key string) (types.Object, bool) {
	for depth := 0; dict != nil && depth < maxParentDepth; depth++ {
		if obj, found := dict.Find(key); found {
			return obj, true
		}
		parentObj, found := dict.Find("Parent")
		if !found {
			return nil, false
		}
		parent, err := ctx.DereferenceDict(parentObj)
		if err != nil {
			return nil, false
		}
		dict = parent
	}
	return nil, false
}

// fullName joins the partial /T names from the root field down to the widget
func (fe *PDFCPUFormExtractor) fullName(ctx *model.Context, dict types.Dict) string {
	var parts []string
	for depth := 0; dict != nil && depth < maxParentDepth; depth++ {
		if nameObj, found := dict.Find("T"); found {
			if name, err := ctx.DereferenceStringOrHexLiteral(nameObj, model.V10, nil); err == nil && name != "" {
				parts = append([]string{name}, parts...)
			}
		}
		parentObj, found := dict.Find("Parent")
		if !found {
			break
		}
		parent, err := ctx.DereferenceDict(parentObj)
		if err != nil {
			break
		}
		dict = parent
	}
	return strings.Join(parts, ".")
}

// extractFieldType determines the field type from the FT entry
func (fe *PDFCPUFormExtractor) extractFieldType(ctx *model.Context, fieldDict types.Dict) FormFieldType {
	ftObj, found := fe.inherited(ctx, fieldDict, "FT")
	if !found {
		return FormFieldTypeUnknown
	}

	ftName, err := ctx.DereferenceName(ftObj, model.V10, nil)
	if err != nil {
		return FormFieldTypeUnknown
	}

	switch ftName {
	case "Btn":
		if flagsObj, found := fe.inherited(ctx, fieldDict, "Ff"); found {
			if flags, err := ctx.DereferenceInteger(flagsObj); err == nil && flags != nil {
				flagValue := *flags
				if (flagValue & (1 << 15)) != 0 { // Bit 16: Radio
					return FormFieldTypeRadio
				} else if (flagValue & (1 << 16)) != 0 { // Bit 17: Pushbutton
					return FormFieldTypeButton
				}
			}
		}
		return FormFieldTypeCheckbox
	case "Tx":
		return FormFieldTypeText
	case "Ch":
		return FormFieldTypeSelect
	case "Sig":
		return FormFieldTypeSignature
	default:
		return FormFieldTypeUnknown
	}
}

// extractFieldValue renders a /V entry as text. Button states come back as
// their appearance name ("Yes", "Off", ...).
func (fe *PDFCPUFormExtractor) extractFieldValue(ctx *model.Context, valueObj types.Object, fieldType FormFieldType) *string {
	obj, err := ctx.Dereference(valueObj)
	if err != nil || obj == nil {
		return nil
	}

	switch fieldType {
	case FormFieldTypeCheckbox, FormFieldTypeRadio, FormFieldTypeButton:
		if name, err := ctx.DereferenceName(obj, model.V10, nil); err == nil {
			s := string(name)
			return &s
		}
	case FormFieldTypeSelect:
		if arr, ok := obj.(types.Array); ok {
			var values []string
			for _, item := range arr {
				if str, err := ctx.DereferenceStringOrHexLiteral(item, model.V10, nil); err == nil {
					values = append(values, str)
				}
			}
			s := strings.Join(values, ", ")
			return &s
		}
	}

	if str, err := ctx.DereferenceStringOrHexLiteral(obj, model.V10, nil); err == nil {
		return &str
	}
	if name, ok := obj.(types.Name); ok {
		s := string(name)
		return &s
	}
	return nil
}

// parseRect parses a four-number rectangle array
func (fe *PDFCPUFormExtractor) parseRect(ctx *model.Context, rectObj types.Object) (BoundingBox, bool) {
	rectArray, err := ctx.DereferenceArray(rectObj)
	if err != nil || len(rectArray) != 4 {
		return BoundingBox{}, false
	}

	coords := make([]float64, 4)
	for i, coord := range rectArray {
		f, err := ctx.DereferenceNumber(coord)
		if err != nil {
			return BoundingBox{}, false
		}
		coords[i] = f
	}

	return newBoundingBox(coords[0], coords[1], coords[2], coords[3]), true
}

// visibleBox returns the page's CropBox clipped to its MediaBox. Both entries
// are inheritable from the page tree.
func (fe *PDFCPUFormExtractor) visibleBox(ctx *model.Context, pageDict types.Dict) BoundingBox {
	media, ok := fe.inheritedBox(ctx, pageDict, "MediaBox")
	if !ok {
		fe.logger.Debug("page has no MediaBox, assuming US Letter")
		media = defaultPageBox
	}

	crop, ok := fe.inheritedBox(ctx, pageDict, "CropBox")
	if !ok {
		return media
	}

	x0 := max(crop.LowerLeft.X, media.LowerLeft.X)
	y0 := max(crop.LowerLeft.Y, media.LowerLeft.Y)
	x1 := min(crop.UpperRight.X, media.UpperRight.X)
	y1 := min(crop.UpperRight.Y, media.UpperRight.Y)
	if x1 <= x0 || y1 <= y0 {
		return media
	}
	return newBoundingBox(x0, y0, x1, y1)
}

func (fe *PDFCPUFormExtractor) inheritedBox(ctx *model.Context, pageDict types.Dict, key string) (BoundingBox, bool) {
	obj, found := fe.inherited(ctx, pageDict, key)
	if !found {
		return BoundingBox{}, false
	}
	box, ok := fe.parseRect(ctx, obj)
	if !ok || box.Width <= 0 || box.Height <= 0 {
		return BoundingBox{}, false
	}
	return box, true
}

// toTopLeft converts PDF user space (bottom-left origin) into a rectangle
// relative to the page box with a top-left origin
func toTopLeft(b BoundingBox, page BoundingBox) Rect {
	return Rect{
		X:      b.LowerLeft.X - page.LowerLeft.X,
		Y:      page.UpperRight.Y - b.UpperRight.Y,
		Width:  b.Width,
		Height: b.Height,
	}
}
