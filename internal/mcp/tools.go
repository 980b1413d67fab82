package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/lifelock-app/lifelock/internal/app/engagement"
	"github.com/lifelock-app/lifelock/internal/app/rewards"
	"github.com/lifelock-app/lifelock/internal/domain"
)

// ─── analyze_task_importance ────────────────────────────────────────────────

// ImportanceTool handles the analyze_task_importance MCP tool.
type ImportanceTool struct{}

// NewImportanceTool creates an ImportanceTool.
func NewImportanceTool() *ImportanceTool { return &ImportanceTool{} }

// Definition returns the MCP tool definition for analyze_task_importance.
func (t *ImportanceTool) Definition() mcp.Tool {
	return mcp.NewTool("analyze_task_importance",
		mcp.WithDescription("Infer priority, complexity, learning value and strategic importance from a task's title and description."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Task title")),
		mcp.WithString("description", mcp.Description("Optional task description")),
	)
}

// Handle processes the analyze_task_importance tool call.
func (t *ImportanceTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	a := engagement.AnalyzeImportance(title, req.GetString("description", ""))

	var sb strings.Builder
	sb.WriteString("## Importance Analysis\n\n")
	sb.WriteString(fmt.Sprintf("- **Priority**: %s\n", a.Priority))
	sb.WriteString(fmt.Sprintf("- **Complexity**: %d/10\n", a.Complexity))
	sb.WriteString(fmt.Sprintf("- **Learning value**: %d/10\n", a.LearningValue))
	sb.WriteString(fmt.Sprintf("- **Strategic importance**: %d/10\n", a.StrategicImportance))
	if len(a.Reasoning) > 0 {
		sb.WriteString("\n### Reasoning\n")
		for _, r := range a.Reasoning {
			sb.WriteString("- " + r + "\n")
		}
	}
	return mcp.NewToolResultText(sb.String()), nil
}

// ─── preview_task_xp ────────────────────────────────────────────────────────

// PreviewTool handles the preview_task_xp MCP tool.
type PreviewTool struct {
	svc *rewards.Service
}

// NewPreviewTool creates a PreviewTool.
func NewPreviewTool(svc *rewards.Service) *PreviewTool { return &PreviewTool{svc: svc} }

// Definition returns the MCP tool definition for preview_task_xp.
func (t *PreviewTool) Definition() mcp.Tool {
	return mcp.NewTool("preview_task_xp",
		mcp.WithDescription("Estimate the XP a task would award, with a min/max range and ways to earn more. Read-only."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Task title")),
		mcp.WithString("description", mcp.Description("Task description")),
		mcp.WithString("priority", mcp.Description("Priority; inferred from the text when omitted"),
			mcp.Enum("CRITICAL", "URGENT", "HIGH", "MEDIUM", "LOW")),
		mcp.WithString("work_type", mcp.Description("Kind of work (default LIGHT)"),
			mcp.Enum("DEEP", "LIGHT", "MORNING")),
		mcp.WithString("difficulty", mcp.Description("Difficulty; inferred from complexity when omitted"),
			mcp.Enum("TRIVIAL", "EASY", "MODERATE", "HARD", "EXPERT")),
		mcp.WithNumber("estimated_minutes", mcp.Description("Estimated duration in minutes")),
		mcp.WithString("user_id", mcp.Description("Personalise with this user's streak and combo")),
		mcp.WithBoolean("in_focus", mcp.Description("Completed inside a focus session")),
	)
}

// Handle processes the preview_task_xp tool call.
func (t *PreviewTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	task := domain.TaskScoringInput{
		Title:       title,
		Description: req.GetString("description", ""),
		Priority:    domain.Priority(strings.ToUpper(req.GetString("priority", ""))),
		WorkType:    domain.WorkType(strings.ToUpper(req.GetString("work_type", ""))),
		Difficulty:  domain.Difficulty(strings.ToUpper(req.GetString("difficulty", ""))),
	}
	if m := intArg(req, "estimated_minutes", -1); m >= 0 {
		task.EstimatedDurationMinutes = domain.Ptr(m)
	}

	p, err := t.svc.Preview(ctx, req.GetString("user_id", ""), task, boolArg(req, "in_focus", false))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to preview task: %v", err)), nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## %s\n\n", p.MotivationMessage))
	sb.WriteString(fmt.Sprintf("- **Estimated XP**: %d (range %d–%d)\n", p.EstimatedXP, p.MinXP, p.MaxXP))
	sb.WriteString(fmt.Sprintf("- **Priority**: %s (%s)\n", p.Priority, p.PriorityReason))
	sb.WriteString(fmt.Sprintf("- **Confidence**: %d%%\n", p.ConfidenceScore))
	sb.WriteString("\n### Breakdown\n")
	for _, line := range p.Breakdown {
		sb.WriteString("- " + line + "\n")
	}
	if len(p.BonusOpportunities) > 0 {
		sb.WriteString("\n### Bonus opportunities\n")
		for _, b := range p.BonusOpportunities {
			sb.WriteString("- " + b + "\n")
		}
	}
	return mcp.NewToolResultText(sb.String()), nil
}

// ─── level_for_xp ───────────────────────────────────────────────────────────

// LevelTool handles the level_for_xp MCP tool.
type LevelTool struct{}

// NewLevelTool creates a LevelTool.
func NewLevelTool() *LevelTool { return &LevelTool{} }

// Definition returns the MCP tool definition for level_for_xp.
func (t *LevelTool) Definition() mcp.Tool {
	return mcp.NewTool("level_for_xp",
		mcp.WithDescription("Translate a total XP amount into a level and progress toward the next one."),
		mcp.WithNumber("xp", mcp.Required(), mcp.Description("Total XP (>= 0)")),
	)
}

// Handle processes the level_for_xp tool call.
func (t *LevelTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	xp := intArg(req, "xp", -1)
	if xp < 0 {
		return mcp.NewToolResultError("xp must be a non-negative number"), nil
	}
	info := engagement.CalculateLevel(xp)

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Level %d\n", info.Level))
	if info.XPForNextLevel == 0 {
		sb.WriteString("Maximum level reached.\n")
	} else {
		sb.WriteString(fmt.Sprintf("%d XP into the level, %d XP to level %d (%.0f%%)\n",
			info.XPInLevel, info.XPForNextLevel, info.Level+1, engagement.LevelProgressPct(xp)))
	}
	if unlocks := engagement.UnlocksForLevel(info.Level); len(unlocks) > 0 {
		sb.WriteString("Unlocked at this level: " + strings.Join(unlocks, ", ") + "\n")
	}
	return mcp.NewToolResultText(sb.String()), nil
}

// ─── user_progress ──────────────────────────────────────────────────────────

// ProgressTool handles the user_progress MCP tool.
type ProgressTool struct {
	svc *rewards.Service
}

// NewProgressTool creates a ProgressTool.
func NewProgressTool(svc *rewards.Service) *ProgressTool { return &ProgressTool{svc: svc} }

// Definition returns the MCP tool definition for user_progress.
func (t *ProgressTool) Definition() mcp.Tool {
	return mcp.NewTool("user_progress",
		mcp.WithDescription("Show a user's level, XP, streak, achievements and today's challenge."),
		mcp.WithString("user_id", mcp.Required(), mcp.Description("User identifier")),
	)
}

// Handle processes the user_progress tool call.
func (t *ProgressTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	userID, err := req.RequireString("user_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	stats, err := t.svc.Stats(ctx, userID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to get stats: %v", err)), nil
	}
	challenge, err := t.svc.TodayChallenge(ctx, userID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to get challenge: %v", err)), nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## Progress for %s\n\n", userID))
	sb.WriteString(fmt.Sprintf("- **Level**: %d (%d XP total, %d to next)\n", stats.Level, stats.TotalXP, stats.XPForNextLevel))
	sb.WriteString(fmt.Sprintf("- **Streak**: %d days (best %d)\n", stats.CurrentStreak, stats.LongestStreak))
	sb.WriteString(fmt.Sprintf("- **Today**: %d tasks, %d XP\n", stats.TasksCompletedToday, stats.XPEarnedToday))
	sb.WriteString(fmt.Sprintf("- **Achievements**: %d unlocked, %d points\n", len(stats.UnlockedAchievements), stats.TotalAchievementPoints))

	status := "in progress"
	if challenge.Completed {
		status = "completed"
	}
	sb.WriteString(fmt.Sprintf("\n### Daily challenge: %s %s\n", challenge.Emoji, challenge.Name))
	sb.WriteString(fmt.Sprintf("%s: %d/%d (%s, +%d XP)\n",
		challenge.Description, challenge.CurrentProgress, challenge.TargetValue, status, challenge.XPReward))
	return mcp.NewToolResultText(sb.String()), nil
}

// ─── Helpers ────────────────────────────────────────────────────────────────

// intArg extracts an integer argument, returning defaultVal when the key is
// missing or not a number (JSON numbers are float64).
func intArg(req mcp.CallToolRequest, key string, defaultVal int) int {
	v, ok := req.GetArguments()[key].(float64)
	if !ok {
		return defaultVal
	}
	return int(v)
}

// boolArg extracts a boolean argument from a tool request.
func boolArg(req mcp.CallToolRequest, key string, defaultVal bool) bool {
	v, ok := req.GetArguments()[key].(bool)
	if !ok {
		return defaultVal
	}
	return v
}
