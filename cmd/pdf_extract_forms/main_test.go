package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/form-copilot/internal/pdf/pdftest"
)

func writeForm(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "form.pdf")
	doc := pdftest.FormPDF(pdftest.Letter,
		pdftest.Field{Name: "first_name", FT: "Tx", Rect: [4]float64{72, 700, 300, 720}},
		pdftest.Field{Name: "agree", FT: "Btn", Rect: [4]float64{72, 650, 84, 662}, Value: "Yes"},
	)
	require.NoError(t, os.WriteFile(path, doc, 0o644))
	return path
}

func TestRun_JSON(t *testing.T) {
	path := writeForm(t)

	var stdout, stderr bytes.Buffer
	code := run([]string{"--format", "json", path}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())

	var result FormExtractionResult
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &result))

	assert.Equal(t, path, result.FilePath)
	assert.Equal(t, 1, result.PageCount)
	assert.InDelta(t, 612, result.PageWidth, 0.001)
	require.Equal(t, 2, result.FieldCount)
	require.Len(t, result.Fields, 2)

	first := result.Fields[0]
	assert.Equal(t, 1, first.SimpleID)
	assert.Equal(t, "first_name", first.Name)
	assert.Equal(t, "text", string(first.Type))
	assert.Nil(t, first.Value)
	assert.InDelta(t, 72.0/792*100, first.Top, 0.001)
	assert.InDelta(t, 72.0/612*100, first.Left, 0.001)

	second := result.Fields[1]
	assert.Equal(t, 2, second.SimpleID)
	assert.Equal(t, "checkbox", string(second.Type))
	require.NotNil(t, second.Value)
	assert.Equal(t, "Yes", *second.Value)
}

func TestRun_Text(t *testing.T) {
	path := writeForm(t)

	var stdout, stderr bytes.Buffer
	code := run([]string{path}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())

	out := stdout.String()
	assert.Contains(t, out, "2 form fields")
	assert.Contains(t, out, "[1] first_name")
	assert.Contains(t, out, "[2] agree")
	assert.Contains(t, out, "Value: Yes")
}

func TestRun_NoFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blank.pdf")
	require.NoError(t, os.WriteFile(path, pdftest.BlankPDF(), 0o644))

	var stdout, stderr bytes.Buffer
	code := run([]string{path}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())
	assert.Contains(t, stdout.String(), "No form fields detected")
}

func TestRun_Errors(t *testing.T) {
	path := writeForm(t)

	tests := []struct {
		name string
		args []string
		code int
	}{
		{name: "no path", args: nil, code: 1},
		{name: "missing file", args: []string{filepath.Join(t.TempDir(), "absent.pdf")}, code: 1},
		{name: "unknown format", args: []string{"--format", "xml", path}, code: 1},
		{name: "too large", args: []string{"--maxfilesize", "10", path}, code: 1},
		{name: "unknown flag", args: []string{"--bogus", path}, code: 2},
		{name: "help", args: []string{"--help"}, code: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			assert.Equal(t, tt.code, run(tt.args, &stdout, &stderr))
		})
	}
}
