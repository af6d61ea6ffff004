package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/a3tai/form-copilot/internal/config"
	"github.com/a3tai/form-copilot/internal/descriptions"
	"github.com/a3tai/form-copilot/internal/form"
	"github.com/a3tai/form-copilot/internal/formmap"
	"github.com/a3tai/form-copilot/internal/pdf"
	"github.com/a3tai/form-copilot/internal/pdf/security"
	"github.com/a3tai/form-copilot/internal/provider"
)

type Analyzer interface {
	Analyze(ctx context.Context, document []byte) (*formmap.Result, error)
}

type Assistant interface {
	Answer(ctx context.Context, query, label, explanation string) (string, error)
	StartInterview(ctx context.Context, fields []form.Field) (string, error)
	ProcessAnswer(ctx context.Context, response string, fields []form.Field, previousContext string) (*form.Extraction, error)
}

// Server represents the MCP server instance
type Server struct {
	config    *config.Config
	analyzer  Analyzer
	assistant Assistant
	paths     *security.PathValidator
	validator *pdf.Validator
	search    *pdf.Search
	mcpServer *server.MCPServer
	logger    *zap.Logger
}

// NewServer creates a new MCP server instance
func NewServer(cfg *config.Config, analyzer Analyzer, assistant Assistant, logger *zap.Logger) (*Server, error) {
	if analyzer == nil {
		return nil, fmt.Errorf("analyzer cannot be nil")
	}
	if assistant == nil {
		return nil, fmt.Errorf("assistant cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	paths, err := security.NewPathValidator(cfg.PDFDirectory)
	if err != nil {
		return nil, err
	}

	mcpServer := server.NewMCPServer(
		cfg.ServerName,
		cfg.Version,
		server.WithToolCapabilities(false),
	)

	s := &Server{
		config:    cfg,
		analyzer:  analyzer,
		assistant: assistant,
		paths:     paths,
		validator: pdf.NewValidator(cfg.MaxFileSize),
		search:    pdf.NewSearch(cfg.MaxFileSize),
		mcpServer: mcpServer,
		logger:    logger,
	}

	s.registerTools()

	return s, nil
}

// registerTools registers all available MCP tools
func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool(
		"list_forms",
		mcp.WithDescription(descriptions.GetToolDescription("list_forms")),
		mcp.WithString("query",
			mcp.Description("Optional search query for fuzzy matching on file names"),
		),
	), s.handleListForms)

	s.mcpServer.AddTool(mcp.NewTool(
		"analyze_form",
		mcp.WithDescription(descriptions.GetToolDescription("analyze_form")),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Path of the PDF form, relative to the configured directory or absolute within it"),
		),
	), s.handleAnalyzeForm)

	s.mcpServer.AddTool(mcp.NewTool(
		"ask_assistant",
		mcp.WithDescription(descriptions.GetToolDescription("ask_assistant")),
		mcp.WithString("user_query",
			mcp.Required(),
			mcp.Description("The user's question"),
		),
		mcp.WithString("current_field_label",
			mcp.Required(),
			mcp.Description("Label of the field the question is about"),
		),
		mcp.WithString("current_field_explanation",
			mcp.Description("Explanation of the field, if known"),
		),
	), s.handleAskAssistant)

	s.mcpServer.AddTool(mcp.NewTool(
		"start_interview",
		mcp.WithDescription(descriptions.GetToolDescription("start_interview")),
		mcp.WithString("fields",
			mcp.Required(),
			mcp.Description("JSON array of fields as returned by analyze_form"),
		),
	), s.handleStartInterview)

	s.mcpServer.AddTool(mcp.NewTool(
		"process_interview_answer",
		mcp.WithDescription(descriptions.GetToolDescription("process_interview_answer")),
		mcp.WithString("user_response",
			mcp.Required(),
			mcp.Description("The user's answer, verbatim"),
		),
		mcp.WithString("fields",
			mcp.Required(),
			mcp.Description("JSON array of fields as returned by analyze_form"),
		),
		mcp.WithString("previous_context",
			mcp.Description("Earlier questions and answers"),
		),
	), s.handleProcessInterviewAnswer)
}

// Handler functions
func (s *Server) handleListForms(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := s.search.FindForms(s.paths.Directory(), optionalString(request, "query"))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if result.TotalCount == 0 {
		text := fmt.Sprintf("No PDF forms found in directory: %s", result.Directory)
		if result.SearchQuery != "" {
			text += fmt.Sprintf(" (searched for: %s)", result.SearchQuery)
		}
		return mcp.NewToolResultText(text), nil
	}

	return mcp.NewToolResultText(formatSearchResult(result)), nil
}

func (s *Server) handleAnalyzeForm(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	resolved, err := s.paths.Resolve(path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	data, err := s.validator.ReadFile(resolved)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.analyzer.Analyze(ctx, data)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	text, err := formatAnalysis(resolved, result)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	mimeType, payload, err := provider.ParseDataURL(result.ImageData)
	if err != nil {
		s.logger.Warn("page image not attached", zap.Error(err))
		return mcp.NewToolResultText(text), nil
	}

	return mcp.NewToolResultImage(text, payload, mimeType), nil
}

func (s *Server) handleAskAssistant(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("user_query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	label, err := request.RequireString("current_field_label")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	explanation := optionalString(request, "current_field_explanation")

	reply, err := s.assistant.Answer(ctx, query, label, explanation)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(reply), nil
}

func (s *Server) handleStartInterview(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	fields, err := requireFields(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	question, err := s.assistant.StartInterview(ctx, fields)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(question), nil
}

func (s *Server) handleProcessInterviewAnswer(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	response, err := request.RequireString("user_response")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	fields, err := requireFields(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	extraction, err := s.assistant.ProcessAnswer(ctx, response, fields, optionalString(request, "previous_context"))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if extraction.ExtractedData == nil {
		extraction.ExtractedData = map[string]string{}
	}

	out, err := json.MarshalIndent(extraction, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(string(out)), nil
}

func requireFields(request mcp.CallToolRequest) ([]form.Field, error) {
	raw, err := request.RequireString("fields")
	if err != nil {
		return nil, err
	}

	var fields []form.Field
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return nil, fmt.Errorf("fields must be a JSON array of fields: %w", err)
	}

	return fields, nil
}

func optionalString(request mcp.CallToolRequest, key string) string {
	if v, ok := request.GetArguments()[key].(string); ok {
		return v
	}
	return ""
}

// Formatting methods
func formatSearchResult(result *pdf.SearchResult) string {
	text := fmt.Sprintf("Found %d PDF form(s) in directory: %s\n", result.TotalCount, result.Directory)
	if result.SearchQuery != "" {
		text += fmt.Sprintf("Search query: %s\n", result.SearchQuery)
	}
	text += "\nFiles:\n"

	for i, file := range result.Files {
		rel, err := filepath.Rel(result.Directory, file.Path)
		if err != nil {
			rel = file.Path
		}
		text += fmt.Sprintf("%d. %s\n", i+1, rel)
		text += fmt.Sprintf("   Size: %d bytes\n", file.Size)
		text += fmt.Sprintf("   Modified: %s\n", file.ModifiedTime)
	}

	return text
}

func formatAnalysis(path string, result *formmap.Result) (string, error) {
	out, err := json.MarshalIndent(struct {
		Path        string       `json:"path"`
		LabelStatus string       `json:"label_status"`
		Fields      []form.Field `json:"fields"`
	}{
		Path:        path,
		LabelStatus: string(result.LabelStatus),
		Fields:      result.Fields,
	}, "", "  ")
	if err != nil {
		return "", err
	}

	return string(out), nil
}

// Run serves the tools over stdio until the client disconnects
func (s *Server) Run(_ context.Context) error {
	s.logger.Info("serving MCP tools over stdio", zap.String("dir", s.config.PDFDirectory))

	if err := server.ServeStdio(s.mcpServer); err != nil {
		return fmt.Errorf("failed to serve stdio: %w", err)
	}
	return nil
}
