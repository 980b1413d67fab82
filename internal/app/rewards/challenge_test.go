package rewards_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/lifelock-app/lifelock/internal/app/rewards"
	"github.com/lifelock-app/lifelock/internal/domain"
	"github.com/lifelock-app/lifelock/internal/infra/sqlite"
)

func sprint(userID string) domain.DailyChallenge {
	return domain.DailyChallenge{
		ID:          "sprint-1",
		UserID:      userID,
		Date:        "2026-03-02",
		Kind:        domain.ChallengeTaskSprint,
		Name:        "Task Sprint",
		Description: "Complete 1 task today",
		TargetValue: 1,
		XPReward:    50,
		ExpiresAt:   time.Date(2026, 3, 2, 23, 59, 59, 0, time.UTC),
	}
}

// memChallenges is an in-memory challenge store standing in for Redis.
type memChallenges struct {
	mu        sync.Mutex
	byKey     map[string]domain.DailyChallenge
	err       error // returned by every write
	conflicts int   // leading SwapChallenge calls that report a conflict
	swaps     int
}

func newMemChallenges(seed ...domain.DailyChallenge) *memChallenges {
	m := &memChallenges{byKey: map[string]domain.DailyChallenge{}}
	for _, c := range seed {
		m.byKey[c.UserID+"|"+c.Date] = c
	}
	return m
}

func (m *memChallenges) GetOrCreateChallenge(_ context.Context, userID, date string, gen func() domain.DailyChallenge) (domain.DailyChallenge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := userID + "|" + date
	if c, ok := m.byKey[k]; ok {
		return c, nil
	}
	c := gen()
	m.byKey[k] = c
	return c, nil
}

func (m *memChallenges) SaveChallenge(_ context.Context, c domain.DailyChallenge) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.byKey[c.UserID+"|"+c.Date] = c
	return nil
}

func (m *memChallenges) SwapChallenge(_ context.Context, old, next domain.DailyChallenge) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.swaps++
	if m.err != nil {
		return m.err
	}
	if m.conflicts > 0 {
		m.conflicts--
		return domain.ErrChallengeConflict
	}
	k := next.UserID + "|" + next.Date
	cur, ok := m.byKey[k]
	if !ok {
		return domain.ErrChallengeNotFound
	}
	if cur.CurrentProgress != old.CurrentProgress || cur.Completed != old.Completed {
		return domain.ErrChallengeConflict
	}
	m.byKey[k] = next
	return nil
}

func (m *memChallenges) get(userID, date string) domain.DailyChallenge {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byKey[userID+"|"+date]
}

func newServiceWith(t *testing.T, challenges domain.ChallengeStore, policy domain.NotificationPolicy) (*rewards.Service, *sqlite.DB) {
	t.Helper()
	db, err := sqlite.Open(t.TempDir())
	if err != nil {
		t.Fatalf("sqlite.Open() error: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	clk := &clock{t: time.Date(2026, 3, 2, 14, 0, 0, 0, time.UTC)}
	svc := rewards.NewService(rewards.Options{
		Store:      db,
		Challenges: challenges,
		Policy:     policy,
		Now:        clk.Now,
	})
	return svc, db
}

func challengeRows(t *testing.T, svc *rewards.Service, userID string) int {
	t.Helper()
	events, err := svc.History(context.Background(), userID, 100)
	if err != nil {
		t.Fatalf("History() error: %v", err)
	}
	n := 0
	for _, e := range events {
		if e.Source == domain.XPChallengeCompleted {
			n++
		}
	}
	return n
}

func TestCompleteTask_ChallengeBonusOnce_SharedStore(t *testing.T) {
	svc, db := newServiceWith(t, nil, domain.NotificationPolicy{})
	ctx := context.Background()
	if _, err := db.GetOrCreateChallenge(ctx, "ana", "2026-03-02", func() domain.DailyChallenge { return sprint("ana") }); err != nil {
		t.Fatalf("seed challenge: %v", err)
	}

	bonuses := 0
	for i := range 3 {
		out, err := svc.CompleteTask(ctx, "ana", task(string(rune('a'+i)), domain.WorkLight, domain.PriorityLow), false)
		if err != nil {
			t.Fatalf("CompleteTask() error: %v", err)
		}
		bonuses += out.ChallengeBonusXP
	}

	stats, _ := svc.Stats(ctx, "ana")
	if stats.ChallengesCompleted != 1 || bonuses != 50 {
		t.Errorf("challenges_completed = %d, bonus = %d; want 1, 50", stats.ChallengesCompleted, bonuses)
	}
	if n := challengeRows(t, svc, "ana"); n != 1 {
		t.Errorf("challenge ledger rows = %d, want 1", n)
	}
	c, _ := svc.TodayChallenge(ctx, "ana")
	if !c.Completed {
		t.Errorf("stored challenge not completed: %+v", c)
	}
}

func TestCompleteTask_ChallengeBonusOnce_SeparateStore(t *testing.T) {
	mem := newMemChallenges(sprint("ana"))
	svc, _ := newServiceWith(t, mem, domain.NotificationPolicy{})
	ctx := context.Background()

	for i := range 3 {
		if _, err := svc.CompleteTask(ctx, "ana", task(string(rune('a'+i)), domain.WorkLight, domain.PriorityLow), false); err != nil {
			t.Fatalf("CompleteTask() error: %v", err)
		}
	}

	stats, _ := svc.Stats(ctx, "ana")
	if stats.ChallengesCompleted != 1 {
		t.Errorf("challenges_completed = %d, want 1", stats.ChallengesCompleted)
	}
	if n := challengeRows(t, svc, "ana"); n != 1 {
		t.Errorf("challenge ledger rows = %d, want 1", n)
	}
	if !mem.get("ana", "2026-03-02").Completed {
		t.Error("challenge store not updated")
	}
}

func TestCompleteTask_ChallengeWriteFailureIsReturned(t *testing.T) {
	boom := errors.New("challenge store down")
	mem := newMemChallenges(sprint("ana"))
	mem.err = boom
	svc, _ := newServiceWith(t, mem, domain.NotificationPolicy{})
	ctx := context.Background()

	for i := range 3 {
		_, err := svc.CompleteTask(ctx, "ana", task(string(rune('a'+i)), domain.WorkLight, domain.PriorityLow), false)
		if !errors.Is(err, boom) {
			t.Fatalf("CompleteTask() error = %v, want %v", err, boom)
		}
	}

	stats, _ := svc.Stats(ctx, "ana")
	if stats.ChallengesCompleted != 0 || stats.TotalXP != 0 {
		t.Errorf("stats committed despite failed challenge write: %+v", stats)
	}
	if n := challengeRows(t, svc, "ana"); n != 0 {
		t.Errorf("challenge ledger rows = %d, want 0", n)
	}
}

func TestCompleteTask_RetriesChallengeConflict(t *testing.T) {
	mem := newMemChallenges(sprint("ana"))
	mem.conflicts = 1
	svc, _ := newServiceWith(t, mem, domain.NotificationPolicy{})
	ctx := context.Background()

	out, err := svc.CompleteTask(ctx, "ana", task("a", domain.WorkLight, domain.PriorityLow), false)
	if err != nil {
		t.Fatalf("CompleteTask() error: %v", err)
	}
	if !out.ChallengeCompleted {
		t.Error("expected the retry to complete the challenge")
	}
	stats, _ := svc.Stats(ctx, "ana")
	if stats.TotalTasksCompleted != 1 || stats.ChallengesCompleted != 1 {
		t.Errorf("tasks = %d, challenges = %d; want 1, 1", stats.TotalTasksCompleted, stats.ChallengesCompleted)
	}
}

func TestCompleteTask_PersistentConflictGivesUp(t *testing.T) {
	mem := newMemChallenges(sprint("ana"))
	mem.conflicts = 100
	svc, _ := newServiceWith(t, mem, domain.NotificationPolicy{})

	_, err := svc.CompleteTask(context.Background(), "ana", task("a", domain.WorkLight, domain.PriorityLow), false)
	if !errors.Is(err, domain.ErrChallengeConflict) {
		t.Fatalf("CompleteTask() error = %v, want ErrChallengeConflict", err)
	}
	if mem.swaps != 3 {
		t.Errorf("swap attempts = %d, want 3", mem.swaps)
	}
}

func TestNewService_ZeroNotificationCap(t *testing.T) {
	policy := domain.NotificationPolicy{MaxPerDay: 0, QuietStart: "22:00", QuietEnd: "08:00"}
	svc, _ := newServiceWith(t, nil, policy)
	ctx := context.Background()

	if _, err := svc.CompleteTask(ctx, "ana", task("t1", domain.WorkDeep, domain.PriorityCritical), false); err != nil {
		t.Fatalf("CompleteTask() error: %v", err)
	}
	notes, err := svc.Notifications(ctx, "ana", 10)
	if err != nil {
		t.Fatalf("Notifications() error: %v", err)
	}
	if len(notes) != 0 {
		t.Errorf("stored %d notifications with a cap of 0", len(notes))
	}
}
