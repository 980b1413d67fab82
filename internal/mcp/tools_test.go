package mcp

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/lifelock-app/lifelock/internal/app/rewards"
	"github.com/lifelock-app/lifelock/internal/domain"
	"github.com/lifelock-app/lifelock/internal/infra/sqlite"
)

// ─── Test helpers ────────────────────────────────────────────────────────────

func newTestService(t *testing.T) *rewards.Service {
	t.Helper()
	db, err := sqlite.Open(t.TempDir())
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	return rewards.NewService(rewards.Options{Store: db, Now: func() time.Time { return now }})
}

// makeReq builds a mcp.CallToolRequest with the given arguments.
func makeReq(args map[string]interface{}) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

// resultText extracts the text content from a tool result.
func resultText(r *mcp.CallToolResult) string {
	if r == nil || len(r.Content) == 0 {
		return ""
	}
	for _, c := range r.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

// ─── Server ──────────────────────────────────────────────────────────────────

func TestNewServer_RegistersTools(t *testing.T) {
	s := NewServer(newTestService(t))
	tools := s.ListTools()
	for _, name := range []string{"analyze_task_importance", "preview_task_xp", "level_for_xp", "user_progress"} {
		if _, ok := tools[name]; !ok {
			t.Errorf("tool %s not registered", name)
		}
	}
}

// ─── ImportanceTool ─────────────────────────────────────────────────────────

func TestImportanceTool(t *testing.T) {
	tool := NewImportanceTool()
	if tool.Definition().Name != "analyze_task_importance" {
		t.Errorf("unexpected name %q", tool.Definition().Name)
	}

	res, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"title": "Production outage in checkout",
	}))
	if err != nil {
		t.Fatalf("Handle() error: %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected error result: %s", resultText(res))
	}
	if !strings.Contains(resultText(res), "CRITICAL") {
		t.Errorf("expected CRITICAL priority, got:\n%s", resultText(res))
	}
}

func TestImportanceTool_MissingTitle(t *testing.T) {
	res, _ := NewImportanceTool().Handle(context.Background(), makeReq(map[string]interface{}{}))
	if !res.IsError {
		t.Error("expected error result for missing title")
	}
}

// ─── PreviewTool ────────────────────────────────────────────────────────────

func TestPreviewTool(t *testing.T) {
	tool := NewPreviewTool(newTestService(t))
	res, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"title":             "Refactor billing module",
		"priority":          "high",
		"work_type":         "DEEP",
		"estimated_minutes": float64(90),
		"in_focus":          true,
	}))
	if err != nil {
		t.Fatalf("Handle() error: %v", err)
	}
	text := resultText(res)
	if res.IsError || !strings.Contains(text, "Estimated XP") || !strings.Contains(text, "Priority HIGH") {
		t.Errorf("unexpected preview:\n%s", text)
	}
}

// ─── LevelTool ──────────────────────────────────────────────────────────────

func TestLevelTool(t *testing.T) {
	tool := NewLevelTool()
	res, _ := tool.Handle(context.Background(), makeReq(map[string]interface{}{"xp": float64(100)}))
	if !strings.HasPrefix(resultText(res), "Level 2") {
		t.Errorf("unexpected result: %s", resultText(res))
	}

	res, _ = tool.Handle(context.Background(), makeReq(map[string]interface{}{"xp": float64(-1)}))
	if !res.IsError {
		t.Error("expected error for negative xp")
	}
}

// ─── ProgressTool ───────────────────────────────────────────────────────────

func TestProgressTool(t *testing.T) {
	svc := newTestService(t)
	if _, err := svc.CompleteTask(context.Background(), "ana", domain.TaskScoringInput{ID: "t1", Title: "Write tests"}, false); err != nil {
		t.Fatalf("CompleteTask() error: %v", err)
	}

	res, err := NewProgressTool(svc).Handle(context.Background(), makeReq(map[string]interface{}{"user_id": "ana"}))
	if err != nil {
		t.Fatalf("Handle() error: %v", err)
	}
	text := resultText(res)
	if res.IsError || !strings.Contains(text, "Progress for ana") || !strings.Contains(text, "Daily challenge") {
		t.Errorf("unexpected progress:\n%s", text)
	}
}
