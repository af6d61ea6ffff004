package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/a3tai/form-copilot/internal/config"
	"github.com/a3tai/form-copilot/internal/formmap"
	"github.com/a3tai/form-copilot/internal/pdf"
	"github.com/a3tai/form-copilot/internal/pdf/extraction"
)

// FormExtractionResult is the field map of a document's first page
type FormExtractionResult struct {
	FilePath   string       `json:"file_path"`
	PageCount  int          `json:"page_count"`
	PageWidth  float64      `json:"page_width"`
	PageHeight float64      `json:"page_height"`
	FieldCount int          `json:"field_count"`
	Fields     []FieldEntry `json:"fields"`
}

// FieldEntry joins a widget with its position on the page
type FieldEntry struct {
	SimpleID int                      `json:"simple_id"`
	ID       string                   `json:"id"`
	Name     string                   `json:"name,omitempty"`
	Type     extraction.FormFieldType `json:"type"`
	Value    *string                  `json:"value"`
	Top      float64                  `json:"top"`
	Left     float64                  `json:"left"`
	Width    float64                  `json:"width"`
	Height   float64                  `json:"height"`
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	flags := pflag.NewFlagSet("pdf_extract_forms", pflag.ContinueOnError)
	flags.SetOutput(stderr)

	outputFormat := flags.String("format", "text", "Output format: text, json")
	verbose := flags.Bool("verbose", false, "Log extraction details to stderr")
	maxFileSize := flags.Int64("maxfilesize", config.DefaultMaxFileSize, "Maximum PDF file size in bytes")

	flags.Usage = func() {
		fmt.Fprintln(stderr, "PDF Extract Forms - print the field map of a PDF form's first page")
		fmt.Fprintln(stderr)
		fmt.Fprintln(stderr, "USAGE:")
		fmt.Fprintln(stderr, "  pdf_extract_forms [OPTIONS] <pdf_file>")
		fmt.Fprintln(stderr)
		fmt.Fprintln(stderr, "OPTIONS:")
		flags.PrintDefaults()
	}

	if err := flags.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return 0
		}
		return 2
	}

	if flags.NArg() == 0 {
		fmt.Fprintf(stderr, "Error: PDF file path required\n\n")
		flags.Usage()
		return 1
	}

	logger := zap.NewNop()
	if *verbose {
		zc := zap.NewDevelopmentConfig()
		zc.OutputPaths = []string{"stderr"}
		if l, err := zc.Build(); err == nil {
			logger = l
		}
	}
	defer logger.Sync()

	result, err := extractForms(flags.Arg(0), *maxFileSize, logger)
	if err != nil {
		fmt.Fprintf(stderr, "Error extracting forms: %v\n", err)
		return 1
	}

	if err := outputResults(stdout, *outputFormat, result); err != nil {
		fmt.Fprintf(stderr, "Error outputting results: %v\n", err)
		return 1
	}

	return 0
}

func extractForms(pdfPath string, maxFileSize int64, logger *zap.Logger) (*FormExtractionResult, error) {
	absPath, err := filepath.Abs(pdfPath)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	data, err := pdf.NewValidator(maxFileSize).ReadFile(absPath)
	if err != nil {
		return nil, err
	}

	layout, err := extraction.NewPDFCPUFormExtractor(logger).ExtractFirstPage(data)
	if err != nil {
		return nil, err
	}

	fields := formmap.Fields(layout)

	result := &FormExtractionResult{
		FilePath:   absPath,
		PageCount:  layout.PageCount,
		PageWidth:  layout.Width(),
		PageHeight: layout.Height(),
		FieldCount: len(fields),
		Fields:     make([]FieldEntry, 0, len(fields)),
	}

	for i, f := range fields {
		w := layout.Widgets[i]
		result.Fields = append(result.Fields, FieldEntry{
			SimpleID: f.SimpleID,
			ID:       f.ID,
			Name:     w.Name,
			Type:     w.Type,
			Value:    f.Value,
			Top:      f.Top,
			Left:     f.Left,
			Width:    f.Width,
			Height:   f.Height,
		})
	}

	return result, nil
}

func outputResults(w io.Writer, format string, result *FormExtractionResult) error {
	switch format {
	case "json":
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(result)
	case "text":
		return outputText(w, result)
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

func outputText(w io.Writer, result *FormExtractionResult) error {
	fmt.Fprintf(w, "%s (%d pages, first page %.0fx%.0f pt)\n", result.FilePath, result.PageCount, result.PageWidth, result.PageHeight)

	if result.FieldCount == 0 {
		fmt.Fprintln(w, "No form fields detected on the first page")
		return nil
	}

	fmt.Fprintf(w, "%d form fields\n\n", result.FieldCount)

	for _, field := range result.Fields {
		name := field.Name
		if name == "" {
			name = "(unnamed)"
		}
		fmt.Fprintf(w, "[%d] %s\n", field.SimpleID, name)
		fmt.Fprintf(w, "    ID: %s\n", field.ID)
		fmt.Fprintf(w, "    Type: %s\n", field.Type)
		if field.Value != nil {
			fmt.Fprintf(w, "    Value: %s\n", *field.Value)
		}
		fmt.Fprintf(w, "    Position: top %.2f%%, left %.2f%%, %.2f%% x %.2f%%\n",
			field.Top, field.Left, field.Width, field.Height)
		fmt.Fprintln(w)
	}

	return nil
}
