package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/folio"
	"github.com/aretw0/folio/internal/logging"
	httpadapter "github.com/aretw0/folio/pkg/adapters/http"
	"github.com/aretw0/folio/pkg/codec"
	"github.com/aretw0/folio/pkg/domain"
	"github.com/aretw0/folio/pkg/exporter"
	"github.com/aretw0/folio/pkg/importer"
	"github.com/aretw0/folio/pkg/workspace"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// TypesURI names the resource listing the registered node types.
const TypesURI = "folio://types"

// EditResponse is the structured result of the editing tools.
type EditResponse struct {
	ID      string `json:"id" jsonschema_description:"The document that was edited"`
	Key     string `json:"key,omitempty" jsonschema_description:"Key of the node created by the edit"`
	Version uint64 `json:"version" jsonschema_description:"Version of the committed snapshot"`
}

type appendArgs struct {
	ID   string `json:"id"`
	Text string `json:"text"`
	Tag  string `json:"tag"`
}

type importArgs struct {
	ID      string `json:"id"`
	Kind    string `json:"kind"`
	Content string `json:"content"`
}

// Server exposes a document workspace as an MCP server.
type Server struct {
	workspace *workspace.Manager
	types     func() []string
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// Option configures a Server.
type Option func(*Server)

// WithTypes sets the source of the folio://types resource.
func WithTypes(fn func() []string) Option {
	return func(s *Server) { s.types = fn }
}

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// NewServer creates a new MCP Server instance.
func NewServer(ws *workspace.Manager, opts ...Option) *Server {
	s := &Server{
		workspace: ws,
		logger:    logging.NewNop(),
		mcpServer: server.NewMCPServer("folio-mcp", strings.TrimSpace(folio.Version),
			server.WithToolCapabilities(false),
			server.WithResourceCapabilities(false, false),
		),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves the SSE transport on addr until ctx is cancelled.
func (s *Server) ServeSSE(ctx context.Context, addr string) error {
	baseURL := "http://localhost" + addr
	if !strings.HasPrefix(addr, ":") {
		baseURL = "http://" + addr
	}
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("list_documents",
		mcp.WithDescription("List the IDs of the stored documents."),
	), s.handleListDocuments)

	s.mcpServer.AddTool(mcp.NewTool("get_document",
		mcp.WithDescription("Get a stored document in its serialized form."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Document ID")),
		mcp.WithString("format", mcp.Description("json (default) or yaml"), mcp.Enum("json", "yaml")),
	), s.handleGetDocument)

	s.mcpServer.AddTool(mcp.NewTool("export_markdown",
		mcp.WithDescription("Render a stored document as Markdown."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Document ID")),
	), s.handleExportMarkdown)

	s.mcpServer.AddTool(mcp.NewTool("append_paragraph",
		mcp.WithDescription("Append a paragraph to a document, creating the document when missing. Newlines become line breaks."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Document ID")),
		mcp.WithString("text", mcp.Required(), mcp.Description("Paragraph text")),
		mcp.WithString("tag", mcp.Description("Commit tag recorded on the snapshot (optional)")),
		mcp.WithOutputSchema[EditResponse](),
	), mcp.NewStructuredToolHandler(s.handleAppendParagraph))

	s.mcpServer.AddTool(mcp.NewTool("import_document",
		mcp.WithDescription("Replace a document with imported Markdown or HTML."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Document ID")),
		mcp.WithString("kind", mcp.Description("markdown (default) or html"), mcp.Enum("markdown", "html")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Source text")),
		mcp.WithOutputSchema[EditResponse](),
	), mcp.NewStructuredToolHandler(s.handleImport))
}

func (s *Server) handleListDocuments(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ids, err := s.workspace.List(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("list failed: %v", err)), nil
	}
	if ids == nil {
		ids = []string{}
	}
	data, _ := json.Marshal(ids)
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) handleGetDocument(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	f := codec.Format(request.GetString("format", string(codec.FormatJSON)))
	ed, err := s.editor(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	data, err := ed.Encode(f)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encode failed: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) handleExportMarkdown(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	ed, err := s.editor(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, err := exporter.Markdown(ed.CurrentSnapshot())
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("export failed: %v", err)), nil
	}
	return mcp.NewToolResultText(out), nil
}

func (s *Server) handleAppendParagraph(ctx context.Context, request mcp.CallToolRequest, args appendArgs) (EditResponse, error) {
	if args.ID == "" {
		return EditResponse{}, errors.New("id is required")
	}
	var key domain.NodeKey
	snap, err := s.workspace.Edit(ctx, args.ID, func(ctx context.Context, tx *folio.Tx) error {
		var err error
		key, err = httpadapter.AppendParagraph(tx, args.Text)
		return err
	}, folio.WithTag(args.Tag))
	if err != nil {
		s.logger.Warn("MCP append_paragraph failed", "document_id", args.ID, "err", err)
		return EditResponse{}, fmt.Errorf("append failed: %w", err)
	}
	return EditResponse{ID: args.ID, Key: string(key), Version: snap.Version()}, nil
}

func (s *Server) handleImport(ctx context.Context, request mcp.CallToolRequest, args importArgs) (EditResponse, error) {
	if args.ID == "" {
		return EditResponse{}, errors.New("id is required")
	}
	kind := importer.Kind(args.Kind)
	if kind == "" {
		kind = importer.KindMarkdown
	}
	var version uint64
	err := s.workspace.Do(ctx, args.ID, func(ctx context.Context, ed *folio.Editor) error {
		if err := importer.Import(ctx, ed, kind, []byte(args.Content)); err != nil {
			return err
		}
		version = ed.CurrentSnapshot().Version()
		return nil
	})
	if err != nil {
		return EditResponse{}, fmt.Errorf("import failed: %w", err)
	}
	return EditResponse{ID: args.ID, Version: version}, nil
}

// editor opens a stored document without creating it.
func (s *Server) editor(ctx context.Context, id string) (*folio.Editor, error) {
	if _, err := s.workspace.Store().Load(ctx, id); err != nil {
		return nil, err
	}
	return s.workspace.Open(ctx, id)
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(TypesURI, "Registered node types",
		mcp.WithMIMEType("application/json"),
	), s.readTypes)
}

func (s *Server) readTypes(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	tags := []string{}
	if s.types != nil {
		tags = s.types()
	}
	data, _ := json.Marshal(tags)
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      TypesURI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
