package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/form-copilot/internal/apperrors"
	"github.com/a3tai/form-copilot/internal/form"
	"github.com/a3tai/form-copilot/internal/formmap"
	"github.com/a3tai/form-copilot/internal/pdf/pdftest"
)

type fakeAnalyzer struct {
	result *formmap.Result
	err    error
	got    []byte
}

func (f *fakeAnalyzer) Analyze(_ context.Context, document []byte) (*formmap.Result, error) {
	f.got = document
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeAssistant struct {
	reply      string
	question   string
	extraction *form.Extraction
	err        error

	query, label, explanation string
	fields                    []form.Field
	response, context         string
}

func (f *fakeAssistant) Answer(_ context.Context, query, label, explanation string) (string, error) {
	f.query, f.label, f.explanation = query, label, explanation
	return f.reply, f.err
}

func (f *fakeAssistant) StartInterview(_ context.Context, fields []form.Field) (string, error) {
	f.fields = fields
	return f.question, f.err
}

func (f *fakeAssistant) ProcessAnswer(_ context.Context, response string, fields []form.Field, previousContext string) (*form.Extraction, error) {
	f.response, f.fields, f.context = response, fields, previousContext
	if f.err != nil {
		return nil, f.err
	}
	return f.extraction, nil
}

func strPtr(s string) *string { return &s }

func sampleResult() *formmap.Result {
	return &formmap.Result{
		ImageData: "data:image/jpeg;base64,QUJD",
		Fields: []form.Field{
			{ID: "5", SimpleID: 1, Label: "First Name", Explanation: "First Name", Top: 10, Left: 5, Width: 30, Height: 2},
		},
	}
}

func serve(h *Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)
	return rec
}

func uploadRequest(t *testing.T, field string, data []byte) *http.Request {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile(field, "form.pdf")
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/analyze-doc", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func jsonRequest(path, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeDetail(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Detail
}

func TestHealth(t *testing.T) {
	h := New(&fakeAnalyzer{}, &fakeAssistant{})

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestAnalyzeDoc(t *testing.T) {
	analyzer := &fakeAnalyzer{result: sampleResult()}
	h := New(analyzer, &fakeAssistant{})

	doc := pdftest.BlankPDF()
	rec := serve(h, uploadRequest(t, "file", doc))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, doc, analyzer.got)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp struct {
		ImageData string `json:"image_data"`
		Analysis  struct {
			Fields []map[string]any `json:"fields"`
		} `json:"analysis"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "data:image/jpeg;base64,QUJD", resp.ImageData)
	require.Len(t, resp.Analysis.Fields, 1)

	field := resp.Analysis.Fields[0]
	assert.Equal(t, "5", field["id"])
	assert.Equal(t, float64(1), field["simple_id"])
	assert.Equal(t, "First Name", field["label"])
	assert.Nil(t, field["value"])
	assert.Equal(t, false, field["isAutoFilled"])
}

func TestAnalyzeDoc_NoFieldsIsEmptyArray(t *testing.T) {
	analyzer := &fakeAnalyzer{result: &formmap.Result{ImageData: "data:image/jpeg;base64,QUJD", Fields: []form.Field{}}}
	h := New(analyzer, &fakeAssistant{})

	rec := serve(h, uploadRequest(t, "file", pdftest.BlankPDF()))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"fields":[]`)
}

func TestAnalyzeDoc_Errors(t *testing.T) {
	tests := []struct {
		name       string
		request    func(t *testing.T) *http.Request
		analyzeErr error
		maxSize    int64
		wantStatus int
		wantDetail string
	}{
		{
			name: "not multipart",
			request: func(t *testing.T) *http.Request {
				return jsonRequest("/analyze-doc", `{}`)
			},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "missing file part",
			request: func(t *testing.T) *http.Request {
				return uploadRequest(t, "document", pdftest.BlankPDF())
			},
			wantStatus: http.StatusBadRequest,
			wantDetail: "missing file",
		},
		{
			name: "invalid document",
			request: func(t *testing.T) *http.Request {
				return uploadRequest(t, "file", []byte("hello"))
			},
			analyzeErr: apperrors.New(apperrors.KindInvalidDocument, "not a PDF document"),
			wantStatus: http.StatusInternalServerError,
			wantDetail: "not a PDF document",
		},
		{
			name: "too large",
			request: func(t *testing.T) *http.Request {
				return uploadRequest(t, "file", pdftest.BlankPDF())
			},
			analyzeErr: apperrors.New(apperrors.KindTooLarge, "file too large"),
			maxSize:    16,
			wantStatus: http.StatusRequestEntityTooLarge,
		},
		{
			name: "rasterizer failure",
			request: func(t *testing.T) *http.Request {
				return uploadRequest(t, "file", pdftest.BlankPDF())
			},
			analyzeErr: apperrors.Wrap(apperrors.KindInternal, errors.New("exec: not found"), "pdftoppm unavailable"),
			wantStatus: http.StatusInternalServerError,
			wantDetail: "pdftoppm unavailable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			options := []Option{}
			if tt.maxSize > 0 {
				options = append(options, WithMaxFileSize(tt.maxSize))
			}
			h := New(&fakeAnalyzer{err: tt.analyzeErr}, &fakeAssistant{}, options...)

			rec := serve(h, tt.request(t))

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Contains(t, decodeDetail(t, rec), tt.wantDetail)
		})
	}
}

func TestAnalyzeDoc_BodyOverLimit(t *testing.T) {
	h := New(&fakeAnalyzer{result: sampleResult()}, &fakeAssistant{}, WithMaxFileSize(1024))

	big := append(pdftest.BlankPDF(), bytes.Repeat([]byte("x"), 2*multipartOverhead)...)
	rec := serve(h, uploadRequest(t, "file", big))

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestLoadExample(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "example.pdf")
	doc := pdftest.FormPDF(pdftest.Letter, pdftest.Field{Name: "name", FT: "Tx", Rect: [4]float64{72, 700, 300, 720}})
	require.NoError(t, os.WriteFile(path, doc, 0o644))

	analyzer := &fakeAnalyzer{result: sampleResult()}
	h := New(analyzer, &fakeAssistant{}, WithExampleFile(path))

	rec := serve(h, httptest.NewRequest(http.MethodPost, "/load-example", nil))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, doc, analyzer.got)
	assert.Contains(t, rec.Body.String(), `"image_data":"data:image/jpeg;base64,QUJD"`)
}

func TestLoadExample_Missing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.pdf")
	analyzer := &fakeAnalyzer{result: sampleResult()}
	h := New(analyzer, &fakeAssistant{}, WithExampleFile(path))

	rec := serve(h, httptest.NewRequest(http.MethodPost, "/load-example", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Example file '"+path+"' not found on server.", decodeDetail(t, rec))
	assert.Nil(t, analyzer.got)
}

func TestAskAssistant(t *testing.T) {
	assistant := &fakeAssistant{reply: "Enter your 14-digit SIRET."}
	h := New(&fakeAnalyzer{}, assistant)

	rec := serve(h, jsonRequest("/ask-assistant",
		`{"user_query":"What goes here?","current_field_label":"SIRET","current_field_explanation":"Company number"}`))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"reply":"Enter your 14-digit SIRET."}`, rec.Body.String())
	assert.Equal(t, "What goes here?", assistant.query)
	assert.Equal(t, "SIRET", assistant.label)
	assert.Equal(t, "Company number", assistant.explanation)
}

func TestAskAssistant_Errors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		err        error
		wantStatus int
	}{
		{name: "undecodable body", body: `{"user_query":`, wantStatus: http.StatusBadRequest},
		{name: "empty query", body: `{"user_query":"  ","current_field_label":"x"}`, wantStatus: http.StatusBadRequest},
		{
			name:       "model failure",
			body:       `{"user_query":"help","current_field_label":"x"}`,
			err:        apperrors.Wrap(apperrors.KindExternalAPIFailure, errors.New("timeout"), "model call failed"),
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := New(&fakeAnalyzer{}, &fakeAssistant{err: tt.err})

			rec := serve(h, jsonRequest("/ask-assistant", tt.body))

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.NotEmpty(t, decodeDetail(t, rec))
		})
	}
}

func TestStartInterview(t *testing.T) {
	assistant := &fakeAssistant{question: "Tell me about yourself."}
	h := New(&fakeAnalyzer{}, assistant)

	rec := serve(h, jsonRequest("/start-interview",
		`{"fields":[{"id":"5","simple_id":1,"label":"First Name","value":null},{"id":"6","simple_id":"2","label":"Agree","value":true}]}`))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"question":"Tell me about yourself."}`, rec.Body.String())

	require.Len(t, assistant.fields, 2)
	assert.Nil(t, assistant.fields[0].Value)
	assert.Equal(t, 2, assistant.fields[1].SimpleID)
	assert.Equal(t, strPtr("true"), assistant.fields[1].Value)
}

func TestStartInterview_BadBody(t *testing.T) {
	h := New(&fakeAnalyzer{}, &fakeAssistant{})

	rec := serve(h, jsonRequest("/start-interview", `{"fields":[{"value":{"nested":1}}]}`))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProcessInterviewAnswer(t *testing.T) {
	tests := []struct {
		name       string
		extraction *form.Extraction
		want       string
	}{
		{
			name:       "values and next question",
			extraction: &form.Extraction{ExtractedData: map[string]string{"1": "Thomas"}, NextQuestion: strPtr("And your last name?")},
			want:       `{"extracted_data":{"1":"Thomas"},"next_question":"And your last name?"}`,
		},
		{
			name:       "done",
			extraction: &form.Extraction{ExtractedData: map[string]string{"2": "Martin"}},
			want:       `{"extracted_data":{"2":"Martin"},"next_question":null}`,
		},
		{
			name:       "nothing extracted",
			extraction: &form.Extraction{NextQuestion: strPtr("Could you tell me your name?")},
			want:       `{"extracted_data":{},"next_question":"Could you tell me your name?"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assistant := &fakeAssistant{extraction: tt.extraction}
			h := New(&fakeAnalyzer{}, assistant)

			rec := serve(h, jsonRequest("/process-interview-answer",
				`{"user_response":"I am Thomas","fields":[{"simple_id":1,"label":"First Name"}],"previous_context":"Q: Who are you?"}`))

			require.Equal(t, http.StatusOK, rec.Code)
			assert.JSONEq(t, tt.want, rec.Body.String())
			assert.Equal(t, "I am Thomas", assistant.response)
			assert.Equal(t, "Q: Who are you?", assistant.context)
			require.Len(t, assistant.fields, 1)
			assert.Equal(t, "First Name", assistant.fields[0].Label)
		})
	}
}

func TestProcessInterviewAnswer_MalformedModelOutput(t *testing.T) {
	err := apperrors.Wrap(apperrors.KindMalformedModelOutput, errors.New("invalid character"), "Extraction error")
	h := New(&fakeAnalyzer{}, &fakeAssistant{err: err})

	rec := serve(h, jsonRequest("/process-interview-answer", `{"user_response":"x","fields":[]}`))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.True(t, strings.HasPrefix(decodeDetail(t, rec), "Extraction error"))
}

func TestCORS(t *testing.T) {
	h := New(&fakeAnalyzer{}, &fakeAssistant{}, WithCORSOrigins([]string{"http://localhost:3000"}))

	req := httptest.NewRequest(http.MethodOptions, "/ask-assistant", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)

	rec := serve(h, req)

	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
}
