// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the agora read side and import trigger via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/flancian/agora-import/internal/apperr"
	"github.com/flancian/agora-import/internal/importer"
	"github.com/flancian/agora-import/internal/models"
	"github.com/flancian/agora-import/internal/nodeservice"
)

// ContractURI is the resource URI of the note format contract.
const ContractURI = "agora://note-format"

// Importer runs an import pass over every configured garden.
type Importer interface {
	ImportAll(ctx context.Context) ([]importer.Report, error)
}

// Server wraps the MCP server with agora tools.
type Server struct {
	mcp *server.MCPServer
	svc *nodeservice.Service
	imp Importer
}

// New creates a new MCP server with all tools registered. imp may be nil,
// in which case import_gardens is not offered.
func New(svc *nodeservice.Service, imp Importer, version string) *Server {
	s := &Server{svc: svc, imp: imp}

	s.mcp = server.NewMCPServer(
		"agora-import",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_subnodes",
		mcp.WithDescription("Full-text search through every user's subnodes."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchSubnodes)

	s.mcp.AddTool(mcp.NewTool("get_node",
		mcp.WithDescription("Read a node: every user's subnode for a title, plus backlinks and pushes."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Node title, matched case-insensitively")),
	), s.getNode)

	s.mcp.AddTool(mcp.NewTool("get_backlinks",
		mcp.WithDescription("Find all subnodes that link to the given title."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Title to find backlinks for")),
	), s.getBacklinks)

	s.mcp.AddTool(mcp.NewTool("list_user_subnodes",
		mcp.WithDescription("List the titles one user has written."),
		mcp.WithString("user", mcp.Required(), mcp.Description("Garden owner")),
	), s.listUserSubnodes)

	s.mcp.AddTool(mcp.NewTool("get_note_contract",
		mcp.WithDescription("Returns the Markdown conventions used by gardens: titles, [[links]] and #push entries."),
	), s.getNoteContract)

	if imp != nil {
		s.mcp.AddTool(mcp.NewTool("import_gardens",
			mcp.WithDescription("Import every configured garden now and report what changed."),
		), s.importGardens)
	}

	// Resource: note format contract.
	s.mcp.AddResource(
		mcp.NewResource(ContractURI, "Note Format Contract",
			mcp.WithResourceDescription("Markdown conventions the importer reads from gardens."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readNoteFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) searchSubnodes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(results)
}

func (s *Server) getNode(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	node, err := s.svc.GetNode(ctx, title)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("not found: %s", title)), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(node)
}

func (s *Server) getBacklinks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	refs, err := s.svc.Backlinks(ctx, title)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(refs) == 0 {
		return mcp.NewToolResultText("no backlinks found"), nil
	}
	return mcp.NewToolResultText(formatRefs(refs)), nil
}

func (s *Server) listUserSubnodes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	user, err := req.RequireString("user")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	refs, err := s.svc.ListUser(ctx, user)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(refs) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("no subnodes for %s", user)), nil
	}
	titles := make([]string, len(refs))
	for i, r := range refs {
		titles[i] = r.Title
	}
	return mcp.NewToolResultText(strings.Join(titles, "\n")), nil
}

func (s *Server) importGardens(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	reports, err := s.imp.ImportAll(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(reports)
}

func (s *Server) getNoteContract(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(NoteFormatContract), nil
}

func (s *Server) readNoteFormatResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      ContractURI,
			MIMEType: "text/markdown",
			Text:     NoteFormatContract,
		},
	}, nil
}

// formatRefs renders refs one per line as user/title.
func formatRefs(refs []models.Ref) string {
	lines := make([]string, len(refs))
	for i, r := range refs {
		lines[i] = r.User + "/" + r.Title
	}
	return strings.Join(lines, "\n")
}
