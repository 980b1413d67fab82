// Package rewards is the application layer around the scoring engine: it
// loads a user's snapshot, runs the completion pipeline, persists the result
// and fans out events, metrics and notifications.
package rewards

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lifelock-app/lifelock/internal/app/engagement"
	"github.com/lifelock-app/lifelock/internal/domain"
	"github.com/lifelock-app/lifelock/internal/infra/metrics"
)

// DefaultHistoryLimit bounds History when the caller passes no limit.
const DefaultHistoryLimit = 50

// Options wires a Service. Store is required; everything else has a default.
type Options struct {
	Store      domain.Store
	Challenges domain.ChallengeStore // nil keeps challenges in Store
	Events     domain.EventPublisher // nil disables publishing
	Calculator *engagement.Calculator
	Policy     domain.NotificationPolicy
	Location   *time.Location
	Logger     *slog.Logger
	Now        func() time.Time
}

// Service coordinates task completions and read models for all users.
// Completions for one user are serialized in-process; the store makes each
// snapshot update atomic across processes.
type Service struct {
	store      domain.Store
	challenges domain.ChallengeStore
	events     domain.EventPublisher
	calc       *engagement.Calculator
	notifier   *Notifier
	loc        *time.Location
	logger     *slog.Logger
	now        func() time.Time

	// sharedChallenges is set when challenges live in store, so a
	// completion can update both in one transaction.
	sharedChallenges bool

	locks sync.Map // userID → *sync.Mutex
}

// NewService creates a rewards service.
func NewService(opts Options) *Service {
	s := &Service{
		store:      opts.Store,
		challenges: opts.Challenges,
		events:     opts.Events,
		calc:       opts.Calculator,
		loc:        opts.Location,
		logger:     opts.Logger,
		now:        opts.Now,
	}
	if s.challenges == nil || any(s.challenges) == any(opts.Store) {
		s.challenges = opts.Store
		s.sharedChallenges = true
	}
	if s.calc == nil {
		s.calc = engagement.DefaultCalculator()
	}
	if s.loc == nil {
		s.loc = time.UTC
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	policy := opts.Policy
	if policy == (domain.NotificationPolicy{}) {
		policy = domain.DefaultNotificationPolicy()
	}
	s.notifier = NewNotifier(opts.Store, policy, s.loc)
	return s
}

// Calculator returns the scoring engine the service uses.
func (s *Service) Calculator() *engagement.Calculator {
	return s.calc
}

// Now returns the service clock in the configured location.
func (s *Service) Now() time.Time {
	return s.now().In(s.loc)
}

func (s *Service) lockUser(userID string) func() {
	v, _ := s.locks.LoadOrStore(userID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

func validUser(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return fmt.Errorf("%w: user id is required", domain.ErrInvalidInput)
	}
	return nil
}

// ─── Reads ──────────────────────────────────────────────────────────────────

// Stats returns the user's snapshot; unknown users get a fresh level-1 one.
func (s *Service) Stats(ctx context.Context, userID string) (domain.UserStats, error) {
	if err := validUser(userID); err != nil {
		return domain.UserStats{}, err
	}
	stats, err := s.store.GetStats(ctx, userID)
	if errors.Is(err, domain.ErrUserNotFound) {
		stats = domain.NewUserStats(userID)
		info := engagement.CalculateLevel(0)
		stats.XPForNextLevel = info.XPForNextLevel
		return stats, nil
	}
	if err != nil {
		return domain.UserStats{}, fmt.Errorf("get stats %s: %w", userID, err)
	}
	return stats, nil
}

// TodayChallenge returns the user's challenge for the current day, creating
// it on first access.
func (s *Service) TodayChallenge(ctx context.Context, userID string) (domain.DailyChallenge, error) {
	stats, err := s.Stats(ctx, userID)
	if err != nil {
		return domain.DailyChallenge{}, err
	}
	return s.challengeFor(ctx, stats, s.now().In(s.loc))
}

func (s *Service) challengeFor(ctx context.Context, stats domain.UserStats, now time.Time) (domain.DailyChallenge, error) {
	day := now.Format(domain.DateLayout)
	c, err := s.challenges.GetOrCreateChallenge(ctx, stats.UserID, day, func() domain.DailyChallenge {
		return engagement.GenerateDailyChallenge(stats, now)
	})
	if err != nil {
		return domain.DailyChallenge{}, fmt.Errorf("daily challenge %s/%s: %w", stats.UserID, day, err)
	}
	return c, nil
}

// Achievements returns the catalog annotated with the user's progress.
func (s *Service) Achievements(ctx context.Context, userID string) ([]domain.AchievementStatus, error) {
	stats, err := s.Stats(ctx, userID)
	if err != nil {
		return nil, err
	}
	return engagement.AchievementBoard(stats), nil
}

// History returns the newest XP ledger entries.
func (s *Service) History(ctx context.Context, userID string, limit int) ([]domain.XPEvent, error) {
	if err := validUser(userID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return s.store.ListXPEvents(ctx, userID, limit)
}

// Notifications returns the user's unshown notifications.
func (s *Service) Notifications(ctx context.Context, userID string, limit int) ([]domain.Notification, error) {
	if err := validUser(userID); err != nil {
		return nil, err
	}
	return s.notifier.Pending(ctx, userID, limit)
}

// MarkNotificationShown acknowledges one notification.
func (s *Service) MarkNotificationShown(ctx context.Context, userID string, id int64) error {
	if err := validUser(userID); err != nil {
		return err
	}
	return s.notifier.MarkShown(ctx, userID, id)
}

// ─── Previews ───────────────────────────────────────────────────────────────

// modifierContext returns the preview context for userID, or nil for an
// anonymous preview.
func (s *Service) modifierContext(ctx context.Context, userID string, inFocus bool) (*domain.UserModifierContext, error) {
	if userID == "" {
		return nil, nil
	}
	stats, err := s.Stats(ctx, userID)
	if err != nil {
		return nil, err
	}
	mc := s.calc.ModifierContextFor(stats, s.now().In(s.loc), inFocus)
	return &mc, nil
}

// Preview estimates a task's XP for userID (anonymous when empty).
func (s *Service) Preview(ctx context.Context, userID string, task domain.TaskScoringInput, inFocus bool) (domain.XPPreview, error) {
	mc, err := s.modifierContext(ctx, userID, inFocus)
	if err != nil {
		return domain.XPPreview{}, err
	}
	metrics.PreviewsServed.WithLabelValues("single").Inc()
	return s.calc.GenerateTaskPreview(task, mc), nil
}

// ContextualPreviews shows a task under the now/morning/focus/streak variants.
func (s *Service) ContextualPreviews(ctx context.Context, userID string, task domain.TaskScoringInput) (domain.ContextualPreviews, error) {
	mc, err := s.modifierContext(ctx, userID, false)
	if err != nil {
		return domain.ContextualPreviews{}, err
	}
	base := domain.UserModifierContext{UserLevel: 1}
	if mc != nil {
		base = *mc
	}
	metrics.PreviewsServed.WithLabelValues("contextual").Inc()
	return s.calc.GetContextualPreviews(task, base), nil
}

// PreviewList previews tasks, highest estimated XP first.
func (s *Service) PreviewList(ctx context.Context, userID string, tasks []domain.TaskScoringInput) ([]domain.XPPreview, error) {
	mc, err := s.modifierContext(ctx, userID, false)
	if err != nil {
		return nil, err
	}
	base := domain.UserModifierContext{UserLevel: 1}
	if mc != nil {
		base = *mc
	}
	metrics.PreviewsServed.WithLabelValues("list").Inc()
	return s.calc.GenerateTaskListPreview(tasks, base), nil
}

// ─── Completion ─────────────────────────────────────────────────────────────

// maxCompletionAttempts bounds retries when another instance moves the
// daily challenge between read and write.
const maxCompletionAttempts = 3

// CompleteTask scores a finished task, persists the new snapshot, ledger rows
// and challenge state, then publishes events and raises notifications.
// Publishing and notification failures are logged, never returned.
func (s *Service) CompleteTask(ctx context.Context, userID string, task domain.TaskScoringInput, inFocus bool) (domain.CompletionOutcome, error) {
	if err := validUser(userID); err != nil {
		return domain.CompletionOutcome{}, err
	}
	start := time.Now()
	unlock := s.lockUser(userID)
	defer unlock()

	now := s.now().In(s.loc)
	var (
		out domain.CompletionOutcome
		err error
	)
	for attempt := 1; ; attempt++ {
		out, err = s.completeOnce(ctx, userID, task, inFocus, now)
		if !errors.Is(err, domain.ErrChallengeConflict) || attempt == maxCompletionAttempts {
			break
		}
		s.logger.Debug("daily challenge changed, retrying completion", "user_id", userID, "attempt", attempt)
	}
	if err != nil {
		return domain.CompletionOutcome{}, fmt.Errorf("complete task for %s: %w", userID, err)
	}

	s.record(out)
	s.notify(ctx, userID, out, now)
	s.publish(ctx, userID, out, now)

	metrics.CompletionLatency.Observe(time.Since(start).Seconds())
	s.logger.Info("task completed",
		"user_id", userID,
		"task_id", task.ID,
		"xp", out.XP.FinalXP,
		"bonus_xp", out.ChallengeBonusXP,
		"level", out.Stats.Level,
		"confidence", out.XP.ConfidenceScore,
	)
	return out, nil
}

// completeOnce applies one completion. The challenge transition commits
// together with the stats: inside the store transaction when both share a
// store, otherwise by compare-and-set before the stats commit.
func (s *Service) completeOnce(ctx context.Context, userID string, task domain.TaskScoringInput, inFocus bool, now time.Time) (domain.CompletionOutcome, error) {
	stats, err := s.Stats(ctx, userID)
	if err != nil {
		return domain.CompletionOutcome{}, err
	}
	challenge, err := s.challengeFor(ctx, stats, now)
	if err != nil {
		return domain.CompletionOutcome{}, err
	}

	var out domain.CompletionOutcome
	apply := func(cur domain.UserStats, c *domain.DailyChallenge) {
		out = s.calc.ApplyCompletion(cur, task, engagement.CompletionOptions{
			Now:            now,
			InFocusSession: inFocus,
			Challenge:      c,
		})
	}

	if s.sharedChallenges {
		_, err = s.store.UpdateProgress(ctx, userID, challenge.Date, func(cur domain.UserStats, c *domain.DailyChallenge) (domain.ProgressUpdate, error) {
			apply(cur, c)
			upd := domain.ProgressUpdate{Stats: out.Stats, Events: ledgerRows(userID, task, out, now)}
			if c != nil && out.Challenge != nil && *out.Challenge != *c {
				upd.Challenge = out.Challenge
			}
			return upd, nil
		})
		return out, err
	}

	swapped := false
	_, err = s.store.UpdateStats(ctx, userID, func(cur domain.UserStats) (domain.UserStats, []domain.XPEvent, error) {
		c := challenge
		apply(cur, &c)
		if out.Challenge != nil && *out.Challenge != challenge {
			if err := s.challenges.SwapChallenge(ctx, challenge, *out.Challenge); err != nil {
				return domain.UserStats{}, nil, fmt.Errorf("save challenge %s: %w", challenge.ID, err)
			}
			swapped = true
		}
		return out.Stats, ledgerRows(userID, task, out, now), nil
	})
	if err != nil && swapped {
		if rerr := s.challenges.SwapChallenge(ctx, *out.Challenge, challenge); rerr != nil {
			s.logger.Error("restore challenge failed", "user_id", userID, "challenge_id", challenge.ID, "error", rerr)
		}
	}
	return out, err
}

func ledgerRows(userID string, task domain.TaskScoringInput, out domain.CompletionOutcome, now time.Time) []domain.XPEvent {
	rows := []domain.XPEvent{{
		UserID:    userID,
		Source:    domain.XPTaskCompleted,
		SourceID:  task.ID,
		Amount:    out.XP.FinalXP,
		Breakdown: out.XP.Breakdown,
		CreatedAt: now,
	}}
	if out.ChallengeBonusXP > 0 && out.Challenge != nil {
		rows = append(rows, domain.XPEvent{
			UserID:    userID,
			Source:    domain.XPChallengeCompleted,
			SourceID:  out.Challenge.ID,
			Amount:    out.ChallengeBonusXP,
			Breakdown: []string{fmt.Sprintf("Daily challenge %q completed: +%d", out.Challenge.Name, out.ChallengeBonusXP)},
			CreatedAt: now,
		})
	}
	return rows
}

func (s *Service) record(out domain.CompletionOutcome) {
	metrics.XPAwarded.WithLabelValues(string(out.XP.WorkType)).Add(float64(out.XP.FinalXP))
	metrics.TasksCompleted.WithLabelValues(string(out.XP.Priority)).Inc()
	metrics.XPConfidence.Observe(float64(out.XP.ConfidenceScore))
	if out.LeveledUp {
		metrics.LevelUps.Inc()
	}
	for _, a := range out.NewAchievements {
		metrics.AchievementsUnlocked.WithLabelValues(a.ID).Inc()
	}
	if out.ChallengeCompleted && out.Challenge != nil {
		metrics.XPAwarded.WithLabelValues("challenge").Add(float64(out.ChallengeBonusXP))
		metrics.ChallengesCompleted.WithLabelValues(string(out.Challenge.Kind)).Inc()
	}
}

func (s *Service) notify(ctx context.Context, userID string, out domain.CompletionOutcome, now time.Time) {
	var notes []domain.Notification
	if out.LeveledUp {
		body := fmt.Sprintf("You reached level %d.", out.Stats.Level)
		if unlocks := engagement.UnlocksForLevel(out.Stats.Level); len(unlocks) > 0 {
			body += " Unlocked: " + strings.Join(unlocks, ", ") + "."
		}
		notes = append(notes, domain.Notification{Type: domain.NotifyLevelUp, Title: fmt.Sprintf("Level %d!", out.Stats.Level), Body: body})
	}
	for _, a := range out.NewAchievements {
		notes = append(notes, domain.Notification{
			Type:  domain.NotifyAchievement,
			Title: fmt.Sprintf("%s %s", a.Emoji, a.Name),
			Body:  fmt.Sprintf("%s (+%d points)", a.Description, a.Points),
		})
	}
	if out.ChallengeCompleted && out.Challenge != nil {
		notes = append(notes, domain.Notification{
			Type:  domain.NotifyChallengeComplete,
			Title: fmt.Sprintf("%s %s complete", out.Challenge.Emoji, out.Challenge.Name),
			Body:  fmt.Sprintf("Daily challenge done: +%d XP", out.ChallengeBonusXP),
		})
	}
	if out.PerfectDay {
		notes = append(notes, domain.Notification{Type: domain.NotifyPerfectDay, Title: "Perfect day", Body: "You hit today's task target."})
	}

	for _, n := range notes {
		n.UserID, n.CreatedAt = userID, now
		if _, err := s.notifier.Create(ctx, n); err != nil {
			s.logger.Warn("notification failed", "user_id", userID, "type", n.Type, "error", err)
		}
	}
}

func (s *Service) publish(ctx context.Context, userID string, out domain.CompletionOutcome, now time.Time) {
	if s.events == nil {
		return
	}
	evts := []domain.Event{newEvent(domain.EventXPAwarded, userID, now, map[string]any{
		"xp":         out.XP.FinalXP,
		"bonus_xp":   out.ChallengeBonusXP,
		"total_xp":   out.Stats.TotalXP,
		"priority":   out.XP.Priority,
		"work_type":  out.XP.WorkType,
		"confidence": out.XP.ConfidenceScore,
	})}
	if out.LeveledUp {
		evts = append(evts, newEvent(domain.EventLevelUp, userID, now, map[string]any{
			"from": out.PreviousLevel,
			"to":   out.Stats.Level,
		}))
	}
	for _, a := range out.NewAchievements {
		evts = append(evts, newEvent(domain.EventAchievementUnlocked, userID, now, map[string]any{
			"achievement_id": a.ID,
			"points":         a.Points,
			"rarity":         a.Rarity,
		}))
	}
	if out.ChallengeCompleted && out.Challenge != nil {
		evts = append(evts, newEvent(domain.EventChallengeCompleted, userID, now, map[string]any{
			"challenge_id": out.Challenge.ID,
			"kind":         out.Challenge.Kind,
			"bonus_xp":     out.ChallengeBonusXP,
		}))
	}

	for _, evt := range evts {
		if err := s.events.Publish(ctx, evt); err != nil {
			metrics.EventsPublished.WithLabelValues(string(evt.Type), "error").Inc()
			s.logger.Warn("publish event failed", "user_id", userID, "type", evt.Type, "error", err)
			continue
		}
		metrics.EventsPublished.WithLabelValues(string(evt.Type), "ok").Inc()
	}
}

func newEvent(t domain.EventType, userID string, at time.Time, payload map[string]any) domain.Event {
	return domain.Event{
		ID:         uuid.NewString(),
		Type:       t,
		UserID:     userID,
		OccurredAt: at,
		Payload:    payload,
	}
}
