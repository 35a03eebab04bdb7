// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Notebot tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/notebot/internal/notebook"
	"github.com/starford/notebot/internal/parser"
)

// Server wraps the MCP server with Notebot tools.
type Server struct {
	mcp *server.MCPServer
	nb  *notebook.Notebook
}

// noteSummary is the tool-facing shape for listings and search hits.
type noteSummary struct {
	ID      string   `json:"id"`
	Title   string   `json:"title"`
	Preview string   `json:"preview"`
	Tags    []string `json:"tags"`
	Pinned  bool     `json:"pinned,omitempty"`
}

// New creates a new MCP server with all Notebot tools registered.
func New(nb *notebook.Notebook) *Server {
	s := &Server{nb: nb}

	s.mcp = server.NewMCPServer(
		"Notebot",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_notes",
		mcp.WithDescription("List active notes, pinned first then most recently updated."),
	), s.listNotes)

	s.mcp.AddTool(mcp.NewTool("search_notes",
		mcp.WithDescription("Case-insensitive substring search over note titles, content, and tags."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search term")),
	), s.searchNotes)

	s.mcp.AddTool(mcp.NewTool("read_note",
		mcp.WithDescription("Read the full Markdown content of a note (active or archived) by id."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note id")),
	), s.readNote)

	s.mcp.AddTool(mcp.NewTool("create_note",
		mcp.WithDescription("Create a new Markdown note. The note becomes the current selection."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Note title")),
		mcp.WithString("content", mcp.Description("Markdown body")),
		mcp.WithString("tags", mcp.Description("Comma-separated tags")),
	), s.createNote)

	s.mcp.AddTool(mcp.NewTool("archive_note",
		mcp.WithDescription("Move an active note to the archive by id."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note id")),
	), s.archiveNote)

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

func (s *Server) listNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.renderSummaries(""), nil
}

func (s *Server) searchNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return s.renderSummaries(query), nil
}

func (s *Server) renderSummaries(filter string) *mcp.CallToolResult {
	notes := s.nb.List(filter)
	summaries := make([]noteSummary, 0, len(notes))
	for _, n := range notes {
		summaries = append(summaries, noteSummary{
			ID:      n.ID,
			Title:   n.Title,
			Preview: parser.Preview(n.Content, parser.ListPreviewBudget),
			Tags:    n.Tags,
			Pinned:  n.Pinned,
		})
	}
	out, _ := json.MarshalIndent(summaries, "", "  ")
	return mcp.NewToolResultText(string(out))
}

func (s *Server) readNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	for _, n := range s.nb.List("") {
		if n.ID == id {
			return mcp.NewToolResultText(n.Content), nil
		}
	}
	for _, n := range s.nb.Archived() {
		if n.ID == id {
			return mcp.NewToolResultText(n.Content), nil
		}
	}
	return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
}

func (s *Server) createNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content := ""
	if v, cErr := req.RequireString("content"); cErr == nil {
		content = v
	}
	var tags []string
	if v, tErr := req.RequireString("tags"); tErr == nil {
		tags = parser.TagsFromInput(v)
	}

	n, err := s.nb.Create(title, content, tags)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s", n.ID)), nil
}

// archiveNote selects, stages, and confirms in one step. The two-phase
// confirmation exists for interactive clients; a tool call is already
// an explicit instruction.
func (s *Server) archiveNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.nb.Select(id); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
	}
	if _, err := s.nb.RequestArchive(); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if _, err := s.nb.Confirm(); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("archived: %s", id)), nil
}
