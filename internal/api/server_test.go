package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/lifelock-app/lifelock/internal/app/rewards"
	"github.com/lifelock-app/lifelock/internal/health"
	"github.com/lifelock-app/lifelock/internal/infra/sqlite"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	db, err := sqlite.Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	now := time.Date(2026, 3, 2, 14, 0, 0, 0, time.UTC)
	svc := rewards.NewService(rewards.Options{Store: db, Now: func() time.Time { return now }})
	checker := health.NewChecker(0, health.PingCheck("store", db, false))
	checker.RunOnce(t.Context())

	srv := NewServer(svc, checker, nil)
	srv.EnableMetrics()
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func do(t *testing.T, ts *httptest.Server, method, path, body string) (int, map[string]any) {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req, _ := http.NewRequest(method, ts.URL+path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	var out map[string]any
	if len(raw) > 0 && raw[0] == '{' {
		if err := json.Unmarshal(raw, &out); err != nil {
			t.Fatalf("decode %s: %v\n%s", path, err, raw)
		}
	}
	return resp.StatusCode, out
}

// ─── Infrastructure Routes ──────────────────────────────────────────────────

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	code, body := do(t, ts, http.MethodGet, "/health", "")
	if code != http.StatusOK {
		t.Fatalf("status = %d, want 200", code)
	}
	if body["status"] != "ok" {
		t.Errorf("status = %v", body["status"])
	}
	if checks, _ := body["checks"].([]any); len(checks) != 1 {
		t.Errorf("checks = %v", body["checks"])
	}
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(raw), "lifelock_health_check_status") {
		t.Error("expected lifelock metrics in /metrics output")
	}
}

func TestOpenAPIDocument(t *testing.T) {
	ts := newTestServer(t)
	code, body := do(t, ts, http.MethodGet, "/openapi.json", "")
	if code != http.StatusOK {
		t.Fatalf("status = %d, want 200", code)
	}
	paths, _ := body["paths"].(map[string]any)
	for _, p := range []string{"/v1/xp", "/v1/users/{user_id}/completions", "/v1/levels/{xp}"} {
		if _, ok := paths[p]; !ok {
			t.Errorf("openapi missing %s", p)
		}
	}
}

// ─── Scoring Routes ─────────────────────────────────────────────────────────

func TestAnalyzeImportance(t *testing.T) {
	ts := newTestServer(t)
	code, body := do(t, ts, http.MethodPost, "/v1/importance",
		`{"title":"Fix production outage","description":"customers blocked"}`)
	if code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (%v)", code, body)
	}
	if body["priority"] != "CRITICAL" {
		t.Errorf("priority = %v, want CRITICAL", body["priority"])
	}
}

func TestAnalyzeImportance_MissingTitle(t *testing.T) {
	ts := newTestServer(t)
	code, body := do(t, ts, http.MethodPost, "/v1/importance", `{"description":"x"}`)
	if code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", code)
	}
	errBody, _ := body["error"].(map[string]any)
	if errBody["code"] != "bad_request" {
		t.Errorf("error envelope = %v", body)
	}
}

func TestErrorEnvelope_SeveralServers(t *testing.T) {
	first := newTestServer(t)
	second := newTestServer(t)
	for i, ts := range []*httptest.Server{first, second, first} {
		code, body := do(t, ts, http.MethodPost, "/v1/importance", `{"description":"x"}`)
		errBody, _ := body["error"].(map[string]any)
		if code != http.StatusBadRequest || errBody["code"] != "bad_request" {
			t.Errorf("server %d: status %d body %v", i, code, body)
		}
	}
}

func TestCalculateXP(t *testing.T) {
	ts := newTestServer(t)
	code, body := do(t, ts, http.MethodPost, "/v1/xp",
		`{"task":{"title":"Design schema","priority":"HIGH","work_type":"DEEP","difficulty":"HARD"},"context":{"current_streak_days":3}}`)
	if code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (%v)", code, body)
	}
	if xp, _ := body["final_xp"].(float64); xp <= 0 {
		t.Errorf("final_xp = %v", body["final_xp"])
	}
	if lines, _ := body["breakdown"].([]any); len(lines) != 9 {
		t.Errorf("breakdown has %d lines, want 9", len(lines))
	}
}

func TestLevelForXP(t *testing.T) {
	ts := newTestServer(t)
	code, body := do(t, ts, http.MethodGet, "/v1/levels/100", "")
	if code != http.StatusOK {
		t.Fatalf("status = %d, want 200", code)
	}
	if body["level"] != float64(2) || body["xp_in_level"] != float64(0) {
		t.Errorf("body = %v, want level 2 with 0 xp in level", body)
	}

	code, _ = do(t, ts, http.MethodGet, "/v1/levels/-5", "")
	if code != http.StatusBadRequest {
		t.Errorf("negative xp status = %d, want 400", code)
	}
}

// ─── User Routes ────────────────────────────────────────────────────────────

func TestCompleteTaskFlow(t *testing.T) {
	ts := newTestServer(t)

	code, body := do(t, ts, http.MethodPost, "/v1/users/ana/completions",
		`{"task":{"id":"t1","title":"Write report","work_type":"DEEP","priority":"HIGH"}}`)
	if code != http.StatusOK {
		t.Fatalf("complete status = %d (%v)", code, body)
	}
	stats, _ := body["stats"].(map[string]any)
	if stats["total_tasks_completed"] != float64(1) {
		t.Errorf("stats = %v", stats)
	}

	code, body = do(t, ts, http.MethodGet, "/v1/users/ana/stats", "")
	if code != http.StatusOK || body["total_xp"] == float64(0) {
		t.Errorf("stats after completion: %d %v", code, body)
	}

	code, _ = do(t, ts, http.MethodGet, "/v1/users/ana/history", "")
	if code != http.StatusOK {
		t.Errorf("history status = %d", code)
	}
	code, body = do(t, ts, http.MethodGet, "/v1/users/ana/challenge", "")
	if code != http.StatusOK || body["date"] != "2026-03-02" {
		t.Errorf("challenge: %d %v", code, body)
	}
}

func TestMarkNotificationShown_Unknown(t *testing.T) {
	ts := newTestServer(t)
	code, body := do(t, ts, http.MethodPost, "/v1/users/ana/notifications/999/shown", "")
	if code != http.StatusNotFound {
		t.Errorf("status = %d, want 404 (%v)", code, body)
	}
}

func TestPreviewList(t *testing.T) {
	ts := newTestServer(t)
	req := `{"tasks":[{"id":"a","title":"tidy inbox","priority":"LOW"},{"id":"b","title":"ship release","priority":"CRITICAL","work_type":"DEEP"}]}`
	resp, err := http.Post(ts.URL+"/v1/previews/list", "application/json", strings.NewReader(req))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var list []map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(list) != 2 || list[0]["task_id"] != "b" {
		t.Errorf("list = %v", list)
	}
}
