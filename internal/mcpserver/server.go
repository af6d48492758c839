// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the record store to LLM agents via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/ferrows/mnemo/internal/api"
	"github.com/ferrows/mnemo/internal/models"
	"github.com/ferrows/mnemo/internal/relevance"
	"github.com/ferrows/mnemo/internal/store"
)

// Server wraps the MCP server with the memory tools.
type Server struct {
	mcp *server.MCPServer
	svc *api.Service
}

// New creates an MCP server with all memory tools registered.
func New(svc *api.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Mnemo",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("memory_save",
		mcp.WithDescription("Save a record to the active memory scope. "+
			"Omit id to derive one from the type and title; passing an existing "+
			"id updates that record. Read the contract first via the "+
			"get_record_contract tool or the mnemo://record-format resource."),
		mcp.WithString("type", mcp.Required(), mcp.Description("Record type: decision, learning, artifact, gotcha, breadcrumb, hub")),
		mcp.WithString("title", mcp.Required(), mcp.Description("Human-readable title")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Markdown body; this text is embedded and searched")),
		mcp.WithString("id", mcp.Description("Optional record id ({type}-{slug}); derived when empty")),
		mcp.WithString("tags", mcp.Description("Optional comma-separated tags")),
		mcp.WithString("severity", mcp.Description("Optional severity: low, medium, high, critical")),
		mcp.WithBoolean("auto_link", mcp.Description("Link highly similar records automatically")),
	), s.saveRecord)

	s.mcp.AddTool(mcp.NewTool("memory_get",
		mcp.WithDescription("Read the full content of a record, including its backlinks."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Record id (e.g. gotcha-sqlite-wal-locking)")),
	), s.getRecord)

	s.mcp.AddTool(mcp.NewTool("memory_list",
		mcp.WithDescription("List records in the active scope, most recently updated first."),
		mcp.WithString("type", mcp.Description("Optional type filter")),
		mcp.WithString("tag", mcp.Description("Optional tag filter")),
	), s.listRecords)

	s.mcp.AddTool(mcp.NewTool("memory_delete",
		mcp.WithDescription("Delete a record and all of its graph edges."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Record id to delete")),
	), s.deleteRecord)

	s.mcp.AddTool(mcp.NewTool("memory_link",
		mcp.WithDescription("Create a directed relation between two records."),
		mcp.WithString("source", mcp.Required(), mcp.Description("Source record id")),
		mcp.WithString("target", mcp.Required(), mcp.Description("Target record id")),
		mcp.WithString("relation", mcp.Description("relates-to (default), implements, supersedes, blocked-by, informs, exemplifies")),
	), s.linkRecords)

	s.mcp.AddTool(mcp.NewTool("memory_search",
		mcp.WithDescription("Semantic search over stored records. Returns ids, titles, and similarity scores."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Free-text query")),
		mcp.WithString("type", mcp.Description("Optional comma-separated type filter")),
	), s.search)

	s.mcp.AddTool(mcp.NewTool("memory_context",
		mcp.WithDescription("Select records relevant to what you are about to do. "+
			"Pass the code or prompt you are working with; records already "+
			"surfaced this session are not repeated."),
		mcp.WithString("content", mcp.Required(), mcp.Description("The triggering content (file excerpt, command, prompt)")),
		mcp.WithString("action", mcp.Description("What you are doing: read, edit, write, execute (default read)")),
	), s.injectContext)

	s.mcp.AddTool(mcp.NewTool("memory_rebuild",
		mcp.WithDescription("Re-derive the scope index from the record files on disk."),
	), s.rebuild)

	s.mcp.AddTool(mcp.NewTool("memory_doctor",
		mcp.WithDescription("Validate the scope's structural health and report a 0-100 score."),
	), s.doctor)

	s.mcp.AddTool(mcp.NewTool("get_record_contract",
		mcp.WithDescription("Returns the canonical record format contract. "+
			"Call this before saving records to ensure correct structure."),
	), s.getRecordContract)

	// Resource: record format contract.
	s.mcp.AddResource(
		mcp.NewResource("mnemo://record-format", "Record Format Contract",
			mcp.WithResourceDescription("Canonical record format that all stored records must follow."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readRecordFormatResource,
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

func (s *Server) saveRecord(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	typ, err := req.RequireString("type")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	save := api.SaveRecordRequest{
		ID:       req.GetString("id", ""),
		Type:     models.RecordType(typ),
		Title:    title,
		Content:  content,
		Severity: models.Severity(req.GetString("severity", "")),
		AutoLink: req.GetBool("auto_link", false),
	}
	if tags := req.GetString("tags", ""); tags != "" {
		for _, t := range strings.Split(tags, ",") {
			if t = strings.TrimSpace(t); t != "" {
				save.Tags = append(save.Tags, t)
			}
		}
	}

	res, err := s.svc.SaveRecord(ctx, save)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(res)
}

func (s *Server) getRecord(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	detail, err := s.svc.GetRecord(id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
	}
	return jsonResult(detail)
}

func (s *Server) listRecords(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	items, total, err := s.svc.ListRecords(store.ListFilter{
		Type: models.RecordType(req.GetString("type", "")),
		Tag:  req.GetString("tag", ""),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]any{"records": items, "total": total})
}

func (s *Server) deleteRecord(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.svc.DeleteRecord(id); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("deleted: %s", id)), nil
}

func (s *Server) linkRecords(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	source, err := req.RequireString("source")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	target, err := req.RequireString("target")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.svc.LinkRecords(source, target, models.Relation(req.GetString("relation", "")))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(res)
}

func (s *Server) search(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var types []models.RecordType
	if t := req.GetString("type", ""); t != "" {
		for _, part := range strings.Split(t, ",") {
			types = append(types, models.RecordType(strings.TrimSpace(part)))
		}
	}
	results, err := s.svc.SearchSemantic(ctx, query, types, 0, 0)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(results) == 0 {
		return mcp.NewToolResultText("no matching records"), nil
	}
	return jsonResult(results)
}

func (s *Server) injectContext(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	trig := relevance.Trigger{
		Content: content,
		Action:  relevance.ActionKind(req.GetString("action", string(relevance.ActionRead))),
	}
	sels, err := s.svc.InjectContext(ctx, trig)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(sels) == 0 {
		return mcp.NewToolResultText("no relevant records"), nil
	}
	return jsonResult(sels)
}

func (s *Server) rebuild(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res, err := s.svc.Rebuild(false)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(res)
}

func (s *Server) doctor(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	report, err := s.svc.CheckHealth()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(report)
}

func (s *Server) getRecordContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(RecordFormatContract), nil
}

func (s *Server) readRecordFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "mnemo://record-format",
			MIMEType: "text/markdown",
			Text:     RecordFormatContract,
		},
	}, nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, _ := json.MarshalIndent(v, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}
