package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/lifelock-app/lifelock/internal/app/engagement"
	"github.com/lifelock-app/lifelock/internal/app/rewards"
	"github.com/lifelock-app/lifelock/internal/domain"
)

type body[T any] struct {
	Body T `json:"body"`
}

type userPath struct {
	UserID string `path:"user_id" minLength:"1" maxLength:"128"`
}

// ─── Scoring ────────────────────────────────────────────────────────────────

func registerScoring(api huma.API, svc *rewards.Service) {
	huma.Register(api, huma.Operation{
		OperationID: "analyze-importance",
		Method:      http.MethodPost,
		Path:        "/importance",
		Summary:     "Infer priority and quality scores from task text",
		Tags:        []string{"scoring"},
	}, func(ctx context.Context, input *body[ImportanceRequest]) (*body[domain.ImportanceAnalysis], error) {
		return &body[domain.ImportanceAnalysis]{
			Body: engagement.AnalyzeImportance(input.Body.Title, input.Body.Description),
		}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "calculate-xp",
		Method:      http.MethodPost,
		Path:        "/xp",
		Summary:     "Score a task under an explicit modifier context",
		Tags:        []string{"scoring"},
	}, func(ctx context.Context, input *body[XPRequest]) (*body[domain.XPResult], error) {
		result := svc.Calculator().CalculateIntelligentXP(input.Body.Task, input.Body.Context.toDomain())
		return &body[domain.XPResult]{Body: result}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "level-for-xp",
		Method:      http.MethodGet,
		Path:        "/levels/{xp}",
		Summary:     "Level, in-level progress and unlocks for an XP total",
		Tags:        []string{"scoring"},
	}, func(ctx context.Context, input *struct {
		XP int `path:"xp" minimum:"0"`
	}) (*body[LevelResponse], error) {
		info := engagement.CalculateLevel(input.XP)
		return &body[LevelResponse]{Body: LevelResponse{
			LevelInfo:   info,
			TotalXP:     input.XP,
			ProgressPct: engagement.LevelProgressPct(input.XP),
			Unlocks:     engagement.UnlocksForLevel(info.Level),
		}}, nil
	})
}

// ─── Previews ───────────────────────────────────────────────────────────────

func registerPreviews(api huma.API, svc *rewards.Service) {
	huma.Register(api, huma.Operation{
		OperationID: "preview-task",
		Method:      http.MethodPost,
		Path:        "/previews",
		Summary:     "Estimate a task's XP before completion",
		Tags:        []string{"previews"},
	}, func(ctx context.Context, input *body[PreviewRequest]) (*body[domain.XPPreview], error) {
		p, err := svc.Preview(ctx, input.Body.UserID, input.Body.Task, input.Body.InFocus)
		if err != nil {
			return nil, handleError(err)
		}
		return &body[domain.XPPreview]{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "preview-task-contextual",
		Method:      http.MethodPost,
		Path:        "/previews/contextual",
		Summary:     "Preview a task now, in the morning, in focus and with a longer streak",
		Tags:        []string{"previews"},
	}, func(ctx context.Context, input *body[PreviewRequest]) (*body[domain.ContextualPreviews], error) {
		p, err := svc.ContextualPreviews(ctx, input.Body.UserID, input.Body.Task)
		if err != nil {
			return nil, handleError(err)
		}
		return &body[domain.ContextualPreviews]{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "preview-task-list",
		Method:      http.MethodPost,
		Path:        "/previews/list",
		Summary:     "Preview several tasks, highest XP first",
		Tags:        []string{"previews"},
	}, func(ctx context.Context, input *body[PreviewListRequest]) (*body[[]domain.XPPreview], error) {
		list, err := svc.PreviewList(ctx, input.Body.UserID, input.Body.Tasks)
		if err != nil {
			return nil, handleError(err)
		}
		return &body[[]domain.XPPreview]{Body: list}, nil
	})
}

// ─── Users ──────────────────────────────────────────────────────────────────

func registerUsers(api huma.API, svc *rewards.Service) {
	huma.Register(api, huma.Operation{
		OperationID: "get-stats",
		Method:      http.MethodGet,
		Path:        "/users/{user_id}/stats",
		Summary:     "User progress snapshot",
		Tags:        []string{"users"},
	}, func(ctx context.Context, input *userPath) (*body[domain.UserStats], error) {
		stats, err := svc.Stats(ctx, input.UserID)
		if err != nil {
			return nil, handleError(err)
		}
		return &body[domain.UserStats]{Body: stats}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "complete-task",
		Method:      http.MethodPost,
		Path:        "/users/{user_id}/completions",
		Summary:     "Award XP for a completed task",
		Tags:        []string{"users"},
	}, func(ctx context.Context, input *struct {
		userPath
		Body CompletionRequest `json:"body"`
	}) (*body[domain.CompletionOutcome], error) {
		out, err := svc.CompleteTask(ctx, input.UserID, input.Body.Task, input.Body.InFocus)
		if err != nil {
			return nil, handleError(err)
		}
		return &body[domain.CompletionOutcome]{Body: out}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-achievements",
		Method:      http.MethodGet,
		Path:        "/users/{user_id}/achievements",
		Summary:     "Achievement catalog with the user's progress",
		Tags:        []string{"users"},
	}, func(ctx context.Context, input *userPath) (*body[[]domain.AchievementStatus], error) {
		board, err := svc.Achievements(ctx, input.UserID)
		if err != nil {
			return nil, handleError(err)
		}
		return &body[[]domain.AchievementStatus]{Body: board}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-challenge",
		Method:      http.MethodGet,
		Path:        "/users/{user_id}/challenge",
		Summary:     "Today's daily challenge",
		Tags:        []string{"users"},
	}, func(ctx context.Context, input *userPath) (*body[ChallengeResponse], error) {
		c, err := svc.TodayChallenge(ctx, input.UserID)
		if err != nil {
			return nil, handleError(err)
		}
		return &body[ChallengeResponse]{Body: ChallengeResponse{
			DailyChallenge: c,
			ProgressPct:    c.ProgressPct(),
			Expired:        c.IsExpired(svc.Now()),
		}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-history",
		Method:      http.MethodGet,
		Path:        "/users/{user_id}/history",
		Summary:     "XP ledger, newest first",
		Tags:        []string{"users"},
	}, func(ctx context.Context, input *struct {
		userPath
		Limit int `query:"limit" minimum:"0" maximum:"500" default:"50"`
	}) (*body[[]domain.XPEvent], error) {
		events, err := svc.History(ctx, input.UserID, input.Limit)
		if err != nil {
			return nil, handleError(err)
		}
		if events == nil {
			events = []domain.XPEvent{}
		}
		return &body[[]domain.XPEvent]{Body: events}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-notifications",
		Method:      http.MethodGet,
		Path:        "/users/{user_id}/notifications",
		Summary:     "Pending notifications, oldest first",
		Tags:        []string{"users"},
	}, func(ctx context.Context, input *struct {
		userPath
		Limit int `query:"limit" minimum:"0" maximum:"100" default:"20"`
	}) (*body[[]domain.Notification], error) {
		notes, err := svc.Notifications(ctx, input.UserID, input.Limit)
		if err != nil {
			return nil, handleError(err)
		}
		if notes == nil {
			notes = []domain.Notification{}
		}
		return &body[[]domain.Notification]{Body: notes}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "mark-notification-shown",
		Method:        http.MethodPost,
		Path:          "/users/{user_id}/notifications/{id}/shown",
		Summary:       "Acknowledge a notification",
		Tags:          []string{"users"},
		DefaultStatus: http.StatusNoContent,
	}, func(ctx context.Context, input *struct {
		userPath
		ID int64 `path:"id" minimum:"1"`
	}) (*struct{}, error) {
		if err := svc.MarkNotificationShown(ctx, input.UserID, input.ID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}
