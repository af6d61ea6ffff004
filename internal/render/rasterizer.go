// Package render rasterizes PDF pages and draws field markers on the result.
package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/a3tai/form-copilot/internal/apperrors"
)

// PointsPerInch is the PDF user space resolution
const PointsPerInch = 72.0

// Rasterizer renders a single page of a PDF document to an image. A scale of
// 1.0 maps one PDF point to one pixel.
type Rasterizer interface {
	Rasterize(ctx context.Context, document []byte, page int, scale float64) (image.Image, error)
}

// Poppler rasterizes pages by running poppler's pdftoppm
type Poppler struct {
	binary  string
	timeout time.Duration
	logger  *zap.Logger
}

// PopplerOption configures a Poppler rasterizer
type PopplerOption func(*Poppler)

// WithBinary sets the pdftoppm executable name or path
func WithBinary(binary string) PopplerOption {
	return func(p *Poppler) {
		if binary != "" {
			p.binary = binary
		}
	}
}

// WithTimeout bounds a single rasterization
func WithTimeout(timeout time.Duration) PopplerOption {
	return func(p *Poppler) {
		p.timeout = timeout
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) PopplerOption {
	return func(p *Poppler) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewPoppler creates a pdftoppm backed rasterizer
func NewPoppler(options ...PopplerOption) *Poppler {
	p := &Poppler{
		binary:  "pdftoppm",
		timeout: 30 * time.Second,
		logger:  zap.NewNop(),
	}
	for _, option := range options {
		option(p)
	}
	return p
}

// Available reports whether the pdftoppm binary can be found
func (p *Poppler) Available() bool {
	_, err := exec.LookPath(p.binary)
	return err == nil
}

// Rasterize renders one page to an in-memory image
func (p *Poppler) Rasterize(ctx context.Context, document []byte, page int, scale float64) (image.Image, error) {
	if page < 1 {
		return nil, apperrors.Newf(apperrors.KindInvalidRequest, "invalid page number: %d", page)
	}
	if scale <= 0 {
		return nil, apperrors.Newf(apperrors.KindInvalidRequest, "invalid render scale: %v", scale)
	}

	workDir, err := os.MkdirTemp("", "form-copilot-render-*")
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, err, "failed to create render directory")
	}
	defer os.RemoveAll(workDir)

	input := filepath.Join(workDir, "input.pdf")
	if err := os.WriteFile(input, document, 0o600); err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, err, "failed to stage document")
	}

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	prefix := filepath.Join(workDir, "page")
	pageArg := strconv.Itoa(page)
	args := []string{
		"-png",
		"-r", strconv.FormatFloat(PointsPerInch*scale, 'f', -1, 64),
		"-f", pageArg,
		"-l", pageArg,
		"-singlefile",
		input,
		prefix,
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, p.binary, args...)
	cmd.Stderr = &stderr

	start := time.Now()
	if err := cmd.Run(); err != nil {
		switch {
		case errors.Is(err, exec.ErrNotFound):
			return nil, apperrors.Wrap(apperrors.KindInternal, err, fmt.Sprintf("%s not found", p.binary))
		case ctx.Err() != nil:
			return nil, apperrors.Wrap(apperrors.KindInternal, ctx.Err(), "page rasterization timed out")
		default:
			msg := strings.TrimSpace(stderr.String())
			if msg == "" {
				msg = err.Error()
			}
			return nil, apperrors.Newf(apperrors.KindInvalidDocument, "failed to render page %d: %s", page, msg)
		}
	}

	img, err := loadPNG(prefix + ".png")
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, err, "failed to load rendered page")
	}

	p.logger.Debug("rasterized page",
		zap.Int("page", page),
		zap.Float64("scale", scale),
		zap.Int("width", img.Bounds().Dx()),
		zap.Int("height", img.Bounds().Dy()),
		zap.Int64("elapsed_ms", time.Since(start).Milliseconds()))

	return img, nil
}

func loadPNG(path string) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return png.Decode(file)
}
