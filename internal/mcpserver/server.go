// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes one user's mind maps as tools over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/mindmaps/internal/apperr"
	"github.com/starford/mindmaps/internal/mapservice"
	"github.com/starford/mindmaps/internal/models"
)

// Server wraps the MCP server with mind-map tools bound to one owner.
type Server struct {
	mcp   *server.MCPServer
	maps  *mapservice.Service
	owner *models.User
}

// New creates a new MCP server acting as owner.
func New(maps *mapservice.Service, owner *models.User) *Server {
	s := &Server{maps: maps, owner: owner}

	s.mcp = server.NewMCPServer(
		"Mindmaps",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_maps",
		mcp.WithDescription("List the owner's mind maps (id, title, last update)."),
	), s.listMaps)

	s.mcp.AddTool(mcp.NewTool("read_map",
		mcp.WithDescription("Read a mind map, including its JSON document."),
		mcp.WithNumber("id", mcp.Required(), mcp.Description("Mind map id")),
	), s.readMap)

	s.mcp.AddTool(mcp.NewTool("create_map",
		mcp.WithDescription("Create a new mind map. "+
			"The data MUST follow the mind map document format. Read it first via "+
			"the get_map_format tool or the "+MapFormatURI+" resource."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Title, 1 to 200 characters")),
		mcp.WithString("data", mcp.Required(), mcp.Description("JSON document serialized as a string")),
	), s.createMap)

	s.mcp.AddTool(mcp.NewTool("copy_map",
		mcp.WithDescription("Duplicate a mind map under a prefixed title."),
		mcp.WithNumber("id", mcp.Required(), mcp.Description("Mind map id to copy")),
	), s.copyMap)

	s.mcp.AddTool(mcp.NewTool("search_maps",
		mcp.WithDescription("Search titles, node names and descriptions of the owner's mind maps."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of results (default 20)")),
	), s.searchMaps)

	s.mcp.AddTool(mcp.NewTool("validate_map",
		mcp.WithDescription("Check a JSON document against the mind map rules without saving it."),
		mcp.WithString("data", mcp.Required(), mcp.Description("JSON document serialized as a string")),
	), s.validateMap)

	s.mcp.AddTool(mcp.NewTool("get_map_format",
		mcp.WithDescription("Returns the mind map document format. "+
			"Call this before creating maps to ensure correct structure."),
	), s.getMapFormat)

	s.mcp.AddResource(
		mcp.NewResource(MapFormatURI, "Mind Map Document Format",
			mcp.WithResourceDescription("JSON document format every mind map must follow."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readMapFormatResource,
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

// toolError turns a service error into a tool error result. Internal
// failures are logged and reported generically.
func toolError(op string, err error) *mcp.CallToolResult {
	var ve *apperr.ValidationError
	switch {
	case errors.As(err, &ve),
		errors.Is(err, apperr.ErrNotFound),
		errors.Is(err, apperr.ErrMalformedJSON),
		errors.Is(err, apperr.ErrDescriptionTooLong):
		return mcp.NewToolResultError(err.Error())
	default:
		slog.Error("mcp "+op+" failed", slog.String("error", err.Error()))
		return mcp.NewToolResultError(apperr.ErrInternal.Error())
	}
}

func jsonResult(v any) *mcp.CallToolResult {
	out, _ := json.MarshalIndent(v, "", "  ")
	return mcp.NewToolResultText(string(out))
}

type mapListItem struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (s *Server) listMaps(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	maps, err := s.maps.List(ctx, s.owner)
	if err != nil {
		return toolError("list_maps", err), nil
	}
	items := make([]mapListItem, 0, len(maps))
	for _, m := range maps {
		items = append(items, mapListItem{ID: m.ID, Title: m.Title, UpdatedAt: m.UpdatedAt})
	}
	return jsonResult(items), nil
}

func (s *Server) readMap(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireInt("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	m, err := s.maps.Get(ctx, s.owner, int64(id))
	if err != nil {
		return toolError("read_map", err), nil
	}
	return jsonResult(m), nil
}

func (s *Server) createMap(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	data, err := req.RequireString("data")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	m, err := s.maps.Create(ctx, s.owner, mapservice.CreateInput{Title: title, Data: data})
	if err != nil {
		return toolError("create_map", err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %d", m.ID)), nil
}

func (s *Server) copyMap(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireInt("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	m, err := s.maps.Copy(ctx, s.owner, int64(id))
	if err != nil {
		return toolError("copy_map", err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("copied: %d -> %d (%s)", id, m.ID, m.Title)), nil
}

func (s *Server) searchMaps(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	limit := req.GetInt("limit", 0)
	hits, err := s.maps.Search(ctx, s.owner, query, limit)
	if err != nil {
		return toolError("search_maps", err), nil
	}
	return jsonResult(hits), nil
}

func (s *Server) validateMap(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	data, err := req.RequireString("data")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.maps.ValidateData(data); err != nil {
		return toolError("validate_map", err), nil
	}
	return mcp.NewToolResultText("valid"), nil
}

func (s *Server) getMapFormat(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(MapFormatContract(s.maps.MaxDescriptionLength())), nil
}

func (s *Server) readMapFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      MapFormatURI,
			MIMEType: "text/markdown",
			Text:     MapFormatContract(s.maps.MaxDescriptionLength()),
		},
	}, nil
}
