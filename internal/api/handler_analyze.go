package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/a3tai/form-copilot/internal/apperrors"
)

// multipartOverhead is the allowance for multipart headers on top of the
// document size limit
const multipartOverhead = 64 * 1024

func (h *Handler) handleAnalyzeDoc(w http.ResponseWriter, r *http.Request) {
	limit := h.maxFileSize + multipartOverhead
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) || r.ContentLength > limit {
			h.writeError(w, http.StatusRequestEntityTooLarge, fmt.Errorf("file too large (max: %d bytes)", h.maxFileSize))
			return
		}

		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Errorf("missing file: %w", err))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	h.analyze(w, r, data)
}

func (h *Handler) handleLoadExample(w http.ResponseWriter, r *http.Request) {
	data, err := h.validator.ReadFile(h.exampleFile)
	if err != nil {
		if apperrors.IsKind(err, apperrors.KindNotFound) {
			h.writeError(w, http.StatusNotFound, fmt.Errorf("Example file '%s' not found on server.", h.exampleFile))
			return
		}

		h.writeError(w, statusCode(err), err)
		return
	}

	h.analyze(w, r, data)
}

func (h *Handler) analyze(w http.ResponseWriter, r *http.Request, data []byte) {
	result, err := h.analyzer.Analyze(r.Context(), data)
	if err != nil {
		h.writeError(w, statusCode(err), err)
		return
	}

	writeJson(w, AnalyzeResponse{
		ImageData: result.ImageData,
		Analysis: Analysis{
			Fields: result.Fields,
		},
	})
}
