package api

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kalambet/vscpp/internal/actions"
)

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Actions *actions.Service
	Version string
}

// NewMCPServer creates an MCP server exposing the blame and cleanup actions as tools.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	version := deps.Version
	if version == "" {
		version = "dev"
	}
	s := server.NewMCPServer(
		"vscpp",
		version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("vscpp writes p4 annotate and git blame output for a file into a temporary directory and manages that directory."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("p4_annotate",
			mcp.WithDescription("Run `p4 annotate -c -u` on a file and save the output as <name>.blame. Returns the artifact path."),
			mcp.WithString("path", mcp.Description("Absolute path of the file in a Perforce workspace"), mcp.Required()),
			mcp.WithBoolean("dirty", mcp.Description("Set when the editor has unsaved changes for the file")),
		),
		mcpAnnotate(deps),
	)

	s.AddTool(
		mcp.NewTool("git_blame",
			mcp.WithDescription("Run `git blame` on a file and save one line per source line as <commit> <author> <code>. Returns the artifact path."),
			mcp.WithString("path", mcp.Description("Absolute path of a tracked file in a git repository"), mcp.Required()),
			mcp.WithBoolean("dirty", mcp.Description("Set when the editor has unsaved changes for the file")),
		),
		mcpBlame(deps),
	)

	s.AddTool(
		mcp.NewTool("cleanup_temp",
			mcp.WithDescription("Delete every generated artifact. Without confirm=true only reports what would be deleted."),
			mcp.WithBoolean("confirm", mcp.Description("Actually delete the files")),
		),
		mcpCleanup(deps),
	)

	s.AddTool(
		mcp.NewTool("temp_status",
			mcp.WithDescription("Report the artifact directory, its total size and per-category usage as JSON."),
		),
		mcpStatus(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"vscpp://history",
			"Artifact History",
			mcp.WithResourceDescription("The 20 most recently generated artifacts"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceHistory(deps),
	)

	return s
}

func mcpAnnotate(deps MCPDeps) server.ToolHandlerFunc {
	return mcpTargetTool(deps.Actions.P4Annotate)
}

func mcpBlame(deps MCPDeps) server.ToolHandlerFunc {
	return mcpTargetTool(deps.Actions.GitBlame)
}

func mcpTargetTool(run func(context.Context, actions.Target) actions.Notice) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		path, err := req.RequireString("path")
		if err != nil {
			return mcpError("path is required"), nil
		}
		n := run(ctx, actions.Target{Path: path, Dirty: req.GetBool("dirty", false)})
		return mcpNotice(n), nil
	}
}

func mcpCleanup(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		n := deps.Actions.Cleanup(ctx, req.GetBool("confirm", false))
		return mcpNotice(n), nil
	}
}

func mcpStatus(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		st, err := deps.Actions.Status(ctx)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to read store: %v", err)), nil
		}

		b, err := json.Marshal(st)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal status: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpResourceHistory(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		rows, err := deps.Actions.History(ctx, "", 20)
		if err != nil {
			return nil, fmt.Errorf("failed to list history: %w", err)
		}

		type entry struct {
			Category     string `json:"category"`
			SourcePath   string `json:"source_path"`
			ArtifactPath string `json:"artifact_path"`
			CreatedAt    string `json:"created_at"`
		}

		entries := make([]entry, len(rows))
		for i, a := range rows {
			entries[i] = entry{
				Category:     a.Category,
				SourcePath:   a.SourcePath,
				ArtifactPath: a.ArtifactPath,
				CreatedAt:    a.CreatedAt.Format(time.RFC3339),
			}
		}

		b, err := json.Marshal(entries)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal history: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpNotice(n actions.Notice) *mcp.CallToolResult {
	if n.Failed() {
		return mcpError(n.Message)
	}
	return mcpText(n.Message)
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
