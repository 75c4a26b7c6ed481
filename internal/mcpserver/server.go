// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the Raido record store for LLM integration via stdio
// transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/raido/internal/record"
	"github.com/starford/raido/internal/recordservice"
)

// Server wraps the MCP server with record-store tools.
type Server struct {
	mcp *server.MCPServer
	svc *recordservice.Service
}

// New creates a new MCP server with all record tools registered.
func New(svc *recordservice.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Raido",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_records",
		mcp.WithDescription("List all records in the active backend, most recently updated first."),
	), s.listRecords)

	s.mcp.AddTool(mcp.NewTool("read_record",
		mcp.WithDescription("Read a single record by id."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Record id")),
	), s.readRecord)

	s.mcp.AddTool(mcp.NewTool("create_record",
		mcp.WithDescription("Create a new record with a title and body. Returns the stored record including its generated id."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Record title")),
		mcp.WithString("body", mcp.Description("Record body text")),
	), s.createRecord)

	s.mcp.AddTool(mcp.NewTool("update_record",
		mcp.WithDescription("Update the title and/or body of an existing record. Omitted attributes are left unchanged."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Record id")),
		mcp.WithString("title", mcp.Description("New title")),
		mcp.WithString("body", mcp.Description("New body text")),
	), s.updateRecord)

	s.mcp.AddTool(mcp.NewTool("delete_record",
		mcp.WithDescription("Delete a record by id. Deleting a nonexistent id succeeds."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Record id")),
	), s.deleteRecord)

	s.mcp.AddTool(mcp.NewTool("search_records",
		mcp.WithDescription("Case-insensitive substring search over record titles."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchRecords)

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

func (s *Server) listRecords(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	records, _, err := s.svc.List(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(records, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) readRecord(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	r, ok, err := s.svc.Get(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
	}
	out, _ := json.MarshalIndent(r, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) createRecord(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	body := ""
	if b, err := req.RequireString("body"); err == nil {
		body = b
	}
	r, err := s.svc.Add(ctx, record.Fields{Title: title, Body: body})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(r, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) updateRecord(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var patch record.Patch
	if t, err := req.RequireString("title"); err == nil {
		patch.Title = &t
	}
	if b, err := req.RequireString("body"); err == nil {
		patch.Body = &b
	}
	if patch.Title == nil && patch.Body == nil {
		return mcp.NewToolResultError("at least one of title or body is required"), nil
	}
	r, err := s.svc.Update(ctx, id, patch, "")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(r, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) deleteRecord(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.svc.Delete(ctx, id); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("deleted: %s", id)), nil
}

func (s *Server) searchRecords(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	records, _, err := s.svc.Search(ctx, query)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(records, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}
