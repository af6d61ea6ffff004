package extraction

import (
	"bytes"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/form-copilot/internal/pdf/pdftest"
)

func TestPDFCPUFormExtractor_ExtractFirstPage(t *testing.T) {
	data := pdftest.FormPDF(pdftest.Letter,
		pdftest.Field{Name: "first_name", FT: "Tx", Rect: [4]float64{100, 700, 300, 720}},
		pdftest.Field{Name: "last_name", FT: "Tx", Rect: [4]float64{100, 650, 300, 670}, Value: "Doe"},
		pdftest.Field{Name: "agree", FT: "Btn", Rect: [4]float64{50, 600, 62, 612}, Value: "Yes"},
	)

	extractor := NewPDFCPUFormExtractor(nil)
	layout, err := extractor.ExtractFirstPage(data)
	require.NoError(t, err)

	assert.Equal(t, 1, layout.PageCount)
	assert.InDelta(t, 612, layout.Width(), 0.001)
	assert.InDelta(t, 792, layout.Height(), 0.001)
	require.Len(t, layout.Widgets, 3)

	// Annotations are objects 5, 6 and 7 in /Annots order
	for i, w := range layout.Widgets {
		assert.Equal(t, strconv.Itoa(5+i), w.ID)
		assert.Equal(t, 5+i, w.ObjectNumber)
	}

	first := layout.Widgets[0]
	assert.Equal(t, "first_name", first.Name)
	assert.Equal(t, FormFieldTypeText, first.Type)
	assert.Nil(t, first.Value)
	assert.InDelta(t, 100, first.Rect.X, 0.001)
	assert.InDelta(t, 72, first.Rect.Y, 0.001)
	assert.InDelta(t, 200, first.Rect.Width, 0.001)
	assert.InDelta(t, 20, first.Rect.Height, 0.001)

	require.NotNil(t, layout.Widgets[1].Value)
	assert.Equal(t, "Doe", *layout.Widgets[1].Value)

	agree := layout.Widgets[2]
	assert.Equal(t, FormFieldTypeCheckbox, agree.Type)
	require.NotNil(t, agree.Value)
	assert.Equal(t, "Yes", *agree.Value)
}

func TestPDFCPUFormExtractor_SkipsNonWidgetAnnotations(t *testing.T) {
	data := pdftest.FormPDF(pdftest.Letter,
		pdftest.Field{Subtype: "Link", Rect: [4]float64{10, 10, 20, 20}},
		pdftest.Field{Name: "city", FT: "Tx", Rect: [4]float64{100, 500, 200, 520}},
	)

	layout, err := NewPDFCPUFormExtractor(nil).ExtractFirstPage(data)
	require.NoError(t, err)
	require.Len(t, layout.Widgets, 1)
	assert.Equal(t, "city", layout.Widgets[0].Name)
	assert.Equal(t, "6", layout.Widgets[0].ID)
}

func TestPDFCPUFormExtractor_NoWidgets(t *testing.T) {
	layout, err := NewPDFCPUFormExtractor(nil).ExtractFirstPage(pdftest.BlankPDF())
	require.NoError(t, err)
	assert.NotNil(t, layout.Widgets)
	assert.Empty(t, layout.Widgets)
}

func TestPDFCPUFormExtractor_FieldTypes(t *testing.T) {
	tests := []struct {
		name  string
		field pdftest.Field
		want  FormFieldType
	}{
		{
			name:  "text",
			field: pdftest.Field{FT: "Tx"},
			want:  FormFieldTypeText,
		},
		{
			name:  "checkbox",
			field: pdftest.Field{FT: "Btn"},
			want:  FormFieldTypeCheckbox,
		},
		{
			name:  "radio",
			field: pdftest.Field{FT: "Btn", Flags: 1 << 15},
			want:  FormFieldTypeRadio,
		},
		{
			name:  "push button",
			field: pdftest.Field{FT: "Btn", Flags: 1 << 16},
			want:  FormFieldTypeButton,
		},
		{
			name:  "choice",
			field: pdftest.Field{FT: "Ch"},
			want:  FormFieldTypeSelect,
		},
		{
			name:  "missing type",
			field: pdftest.Field{},
			want:  FormFieldTypeUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.field.Rect = [4]float64{10, 10, 50, 30}
			layout, err := NewPDFCPUFormExtractor(nil).ExtractFirstPage(pdftest.FormPDF(pdftest.Letter, tt.field))
			require.NoError(t, err)
			require.Len(t, layout.Widgets, 1)
			assert.Equal(t, tt.want, layout.Widgets[0].Type)
		})
	}
}

func TestPDFCPUFormExtractor_OffsetMediaBox(t *testing.T) {
	data := pdftest.FormPDF([4]float64{100, 100, 400, 500},
		pdftest.Field{FT: "Tx", Rect: [4]float64{150, 450, 250, 480}},
	)

	layout, err := NewPDFCPUFormExtractor(nil).ExtractFirstPage(data)
	require.NoError(t, err)
	require.Len(t, layout.Widgets, 1)

	rect := layout.Widgets[0].Rect
	assert.InDelta(t, 50, rect.X, 0.001)
	assert.InDelta(t, 20, rect.Y, 0.001)
	assert.InDelta(t, 300, layout.Width(), 0.001)
	assert.InDelta(t, 400, layout.Height(), 0.001)
}

func TestPDFCPUFormExtractor_ExtractPageOutOfRange(t *testing.T) {
	extractor := NewPDFCPUFormExtractor(nil)

	_, err := extractor.ExtractPage(bytes.NewReader(pdftest.MultiPagePDF(2)), 3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of range")

	layout, err := extractor.ExtractPage(bytes.NewReader(pdftest.MultiPagePDF(2)), 2)
	require.NoError(t, err)
	assert.Equal(t, 2, layout.PageCount)
	assert.InDelta(t, 612, layout.Width(), 0.001)
}

func TestPDFCPUFormExtractor_InvalidInput(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{name: "empty", data: nil},
		{name: "not a pdf", data: []byte("hello world")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPDFCPUFormExtractor(nil).ExtractFirstPage(tt.data)
			assert.Error(t, err)
		})
	}
}
