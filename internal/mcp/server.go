// Package mcp exposes the scoring engine to AI agents as MCP tools.
//
// Each tool follows the same shape: a struct holding its dependencies, a
// Definition returning the mcp.Tool schema and a Handle processing calls.
// Tool errors are returned as error results, never as Go errors, so the
// calling agent can read them.
package mcp

import (
	"net/http"

	"github.com/mark3labs/mcp-go/server"

	"github.com/lifelock-app/lifelock/internal/app/rewards"
)

const (
	ServerName    = "lifelock-mcp"
	ServerVersion = "0.3.0"
)

// NewServer creates an MCP server with every LifeLock tool registered.
func NewServer(svc *rewards.Service) *server.MCPServer {
	s := server.NewMCPServer(
		ServerName,
		ServerVersion,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(instructions),
	)

	importance := NewImportanceTool()
	s.AddTool(importance.Definition(), importance.Handle)

	preview := NewPreviewTool(svc)
	s.AddTool(preview.Definition(), preview.Handle)

	level := NewLevelTool()
	s.AddTool(level.Definition(), level.Handle)

	progress := NewProgressTool(svc)
	s.AddTool(progress.Definition(), progress.Handle)

	return s
}

// HTTPHandler serves s over the Streamable HTTP transport.
func HTTPHandler(s *server.MCPServer) http.Handler {
	return server.NewStreamableHTTPServer(s)
}

// ServeStdio serves s over stdin/stdout until the client disconnects.
func ServeStdio(s *server.MCPServer) error {
	return server.ServeStdio(s)
}

const instructions = `LifeLock scores completed tasks with experience points (XP).
Use analyze_task_importance to infer a priority from task text,
preview_task_xp to estimate a task's reward before doing it,
level_for_xp to translate XP into a level, and user_progress to read
a user's level, streak and daily challenge.`
