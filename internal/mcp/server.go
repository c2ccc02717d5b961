package mcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/a3tai/mcp-tax-filer/internal/config"
	"github.com/a3tai/mcp-tax-filer/internal/descriptions"
	"github.com/a3tai/mcp-tax-filer/internal/filing"
	"github.com/a3tai/mcp-tax-filer/internal/security"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/phuslu/log"
)

const shutdownTimeout = 5 * time.Second

var (
	stdin  io.Reader = os.Stdin
	stdout io.Writer = os.Stdout
)

// Server represents the MCP server instance
type Server struct {
	config    *config.Config
	service   *filing.Service
	documents *security.PathValidator
	outputs   *security.PathValidator
	mcpServer *server.MCPServer
	logger    *log.Logger
}

// NewServer creates a new MCP server instance. Tool arguments that name
// files are confined to the document directory; everything the tools write
// goes under the output directory.
func NewServer(cfg *config.Config, service *filing.Service) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if service == nil {
		return nil, fmt.Errorf("filing service cannot be nil")
	}

	documents, err := security.NewPathValidator(cfg.DocumentDirectory)
	if err != nil {
		return nil, fmt.Errorf("invalid document directory: %w", err)
	}
	outputs, err := security.NewPathValidator(cfg.OutputDirectory)
	if err != nil {
		return nil, fmt.Errorf("invalid output directory: %w", err)
	}

	mcpServer := server.NewMCPServer(
		cfg.ServerName,
		cfg.Version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)

	s := &Server{
		config:    cfg,
		service:   service,
		documents: documents,
		outputs:   outputs,
		mcpServer: mcpServer,
		logger:    service.Logger(),
	}

	s.registerTools()

	return s, nil
}

// MCPServer returns the underlying protocol server
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

func profileOptions() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithArray("documents",
			mcp.Required(),
			mcp.Description("Statement PDF paths (W-2, 1099-INT, 1099-NEC), relative to the document directory"),
			mcp.Items(map[string]any{"type": "string"}),
		),
		mcp.WithArray("document_types",
			mcp.Description("Declared type for each entry of documents, in the same order (W2, 1099-INT, 1099-NEC, or empty to detect)"),
			mcp.Items(map[string]any{"type": "string", "enum": []string{"", "W2", "1099-INT", "1099-NEC"}}),
		),
		mcp.WithObject("profile",
			mcp.Description("Filer profile: filing_status (required), age, dependents, first_name, last_name, ssn, address"),
		),
		mcp.WithString("profile_path",
			mcp.Description("Path to a filer profile JSON file, used when profile is not given"),
		),
	}
}

// registerTools registers all available MCP tools
func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool(descriptions.ToolExtractDocument,
		mcp.WithDescription(descriptions.ExtractDocumentDescription),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Path to the statement PDF"),
		),
		mcp.WithString("document_type",
			mcp.Description("Declared document type, checked against the text"),
			mcp.Enum("W2", "1099-INT", "1099-NEC"),
		),
	), s.handleExtractDocument)

	s.mcpServer.AddTool(mcp.NewTool(descriptions.ToolListDocuments,
		mcp.WithDescription(descriptions.ListDocumentsDescription),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("query",
			mcp.Description("Optional case-insensitive substring of the file name"),
		),
	), s.handleListDocuments)

	compute := append(profileOptions(),
		mcp.WithDescription(descriptions.ComputeDescription),
		mcp.WithString("template", mcp.Description("Blank Form 1040 PDF to fill (defaults to the configured template)")),
		mcp.WithString("output", mcp.Description("Where to write the filled form, relative to the output directory")),
		mcp.WithString("worksheet", mcp.Description("Where to write an .xlsx worksheet, relative to the output directory")),
	)
	s.mcpServer.AddTool(mcp.NewTool(descriptions.ToolCompute, compute...), s.handleCompute)

	fill := append(profileOptions(),
		mcp.WithDescription(descriptions.FillFormDescription),
		mcp.WithString("template", mcp.Description("Blank Form 1040 PDF (defaults to the configured template)")),
		mcp.WithString("output", mcp.Required(), mcp.Description("Where to write the filled form, relative to the output directory")),
	)
	s.mcpServer.AddTool(mcp.NewTool(descriptions.ToolFillForm, fill...), s.handleFillForm)

	s.mcpServer.AddTool(mcp.NewTool(descriptions.ToolTemplateFields,
		mcp.WithDescription(descriptions.TemplateFieldsDescription),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("path",
			mcp.Description("Blank form PDF (defaults to the configured template)"),
		),
	), s.handleTemplateFields)

	s.mcpServer.AddTool(mcp.NewTool(descriptions.ToolServerInfo,
		mcp.WithDescription(descriptions.ServerInfoDescription),
		mcp.WithReadOnlyHintAnnotation(true),
	), s.handleServerInfo)
}

// Run starts the MCP server in the configured mode
func (s *Server) Run(ctx context.Context) error {
	if s.config.IsServerMode() {
		return s.runServerMode(ctx)
	}
	return s.runStdioMode(ctx)
}

// runStdioMode serves the protocol on stdin/stdout until ctx ends or stdin
// closes
func (s *Server) runStdioMode(ctx context.Context) error {
	s.logger.Debug().
		Str("documents", s.config.DocumentDirectory).
		Str("outputs", s.config.OutputDirectory).
		Msg("Starting tax filer MCP server in stdio mode")

	if err := ctx.Err(); err != nil {
		return err
	}

	stdio := server.NewStdioServer(s.mcpServer)
	if err := stdio.Listen(ctx, stdin, stdout); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("failed to serve stdio: %w", err)
	}
	return ctx.Err()
}

// runServerMode serves the protocol over SSE until ctx ends
func (s *Server) runServerMode(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	addr := s.config.Address()
	httpServer := &http.Server{Addr: addr, ReadHeaderTimeout: 10 * time.Second}
	sse := server.NewSSEServer(s.mcpServer,
		server.WithBaseURL("http://"+addr),
		server.WithKeepAlive(true),
		server.WithHTTPServer(httpServer),
	)
	httpServer.Handler = sse

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("address", addr).Msg("Starting tax filer MCP server in SSE mode")
		errCh <- sse.Start(addr)
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("SSE server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := sse.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("SSE server shutdown failed: %w", err)
		}
		s.logger.Info().Msg("SSE server stopped")
		return ctx.Err()
	}
}
