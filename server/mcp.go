package server

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/snapdeck/deckpdf"
	"github.com/hazyhaar/snapdeck/kit"
	"github.com/hazyhaar/snapdeck/store"
)

// RegisterMCP registers all snapdeck tools on an MCP server.
func (s *Service) RegisterMCP(srv *mcp.Server) {
	s.registerCapture(srv)
	s.registerListProjects(srv)
	s.registerListCaptures(srv)
	s.registerExportPDF(srv)
}

// toolChain wraps a tool endpoint with the shared middleware stack:
// invocation logging outermost, panic recovery innermost.
func (s *Service) toolChain(name string, endpoint kit.Endpoint) kit.Endpoint {
	logging := func(next kit.Endpoint) kit.Endpoint {
		return func(ctx context.Context, req any) (any, error) {
			start := time.Now()
			resp, err := next(ctx, req)
			if err != nil {
				s.log.Warn("mcp: tool failed", "tool", name,
					"duration", time.Since(start), "error", err)
			} else {
				s.log.Info("mcp: tool done", "tool", name,
					"duration", time.Since(start))
			}
			return resp, err
		}
	}
	recovery := func(next kit.Endpoint) kit.Endpoint {
		return func(ctx context.Context, req any) (resp any, err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("tool %s panicked: %v", name, r)
				}
			}()
			return next(ctx, req)
		}
	}
	return kit.Chain(logging, recovery)(endpoint)
}

func inputSchema(properties map[string]any, required []string) map[string]any {
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func mcpCtx(ctx context.Context) context.Context {
	return kit.WithTransport(ctx, "mcp")
}

func (s *Service) registerCapture(srv *mcp.Server) {
	type req struct {
		URL       string `json:"url"`
		Project   string `json:"project"`
		DraftNote bool   `json:"draft_note"`
	}

	tool := &mcp.Tool{
		Name:        "snapdeck_capture",
		Description: "Capture a URL as a 1920x1080 screenshot into a project",
		InputSchema: inputSchema(map[string]any{
			"url":        map[string]any{"type": "string", "description": "Page URL to capture"},
			"project":    map[string]any{"type": "string", "description": "Project name (default: default)"},
			"draft_note": map[string]any{"type": "boolean", "description": "Draft a note from the page content"},
		}, []string{"url"}),
	}

	endpoint := func(ctx context.Context, r any) (any, error) {
		p := r.(*req)
		project := store.SanitizeProject(p.Project)
		return s.captureInto(ctx, project, captureRequest{URL: p.URL, DraftNote: p.DraftNote})
	}

	decode := func(r *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var p req
		if err := json.Unmarshal(r.Params.Arguments, &p); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &p, EnrichCtx: mcpCtx}, nil
	}

	kit.RegisterMCPTool(srv, tool, s.toolChain(tool.Name, endpoint), decode)
}

func (s *Service) registerListProjects(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "snapdeck_projects",
		Description: "List all capture projects",
		InputSchema: inputSchema(map[string]any{}, nil),
	}

	endpoint := func(ctx context.Context, _ any) (any, error) {
		projects, err := s.st.Projects()
		if err != nil {
			return nil, err
		}
		return map[string]any{"projects": projects}, nil
	}

	decode := func(r *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		return &kit.MCPDecodeResult{Request: struct{}{}, EnrichCtx: mcpCtx}, nil
	}

	kit.RegisterMCPTool(srv, tool, s.toolChain(tool.Name, endpoint), decode)
}

func (s *Service) registerListCaptures(srv *mcp.Server) {
	type req struct {
		Project string `json:"project"`
	}

	tool := &mcp.Tool{
		Name:        "snapdeck_captures",
		Description: "List captures of a project in deck order",
		InputSchema: inputSchema(map[string]any{
			"project": map[string]any{"type": "string", "description": "Project name"},
		}, []string{"project"}),
	}

	endpoint := func(ctx context.Context, r any) (any, error) {
		p := r.(*req)
		records, err := s.st.ReadCaptures(store.SanitizeProject(p.Project))
		if err != nil {
			return nil, err
		}
		return map[string]any{"captures": records}, nil
	}

	decode := func(r *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var p req
		if err := json.Unmarshal(r.Params.Arguments, &p); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &p, EnrichCtx: mcpCtx}, nil
	}

	kit.RegisterMCPTool(srv, tool, s.toolChain(tool.Name, endpoint), decode)
}

func (s *Service) registerExportPDF(srv *mcp.Server) {
	type req struct {
		Project string `json:"project"`
	}

	tool := &mcp.Tool{
		Name:        "snapdeck_export_pdf",
		Description: "Export a project's deck as a PDF, one capture per page",
		InputSchema: inputSchema(map[string]any{
			"project": map[string]any{"type": "string", "description": "Project name"},
		}, []string{"project"}),
	}

	endpoint := func(ctx context.Context, r any) (any, error) {
		p := r.(*req)
		project := store.SanitizeProject(p.Project)
		path, err := deckpdf.Export(s.st, project, s.log)
		if err != nil {
			return nil, err
		}
		return map[string]string{"path": path, "url": deckpdf.ExportURL(project)}, nil
	}

	decode := func(r *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var p req
		if err := json.Unmarshal(r.Params.Arguments, &p); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &p, EnrichCtx: mcpCtx}, nil
	}

	kit.RegisterMCPTool(srv, tool, s.toolChain(tool.Name, endpoint), decode)
}
