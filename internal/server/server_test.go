package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nshaw/storydrip/internal/domain"
	"github.com/nshaw/storydrip/internal/repository/sqlite"
	"github.com/nshaw/storydrip/internal/service"
)

var serverTestStart = time.Date(2026, time.March, 1, 21, 0, 0, 0, time.UTC)

type stubClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *stubClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *stubClock) Set(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

type stubTransport struct{}

func (stubTransport) Send(ctx context.Context, toName, toEmail, subject, html string) (string, error) {
	return "stub", nil
}

func newTestRouter(t *testing.T) (*gin.Engine, *stubClock) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})

	stageRepo := sqlite.NewStageRepository(db)
	sessionRepo := sqlite.NewSessionRepository(db)

	seeds := []domain.StageSeed{
		{
			Definition: domain.StageDefinition{
				Slug: "night-1", Label: "Dusk", DayPart: domain.DayPartNight,
				UnlockOffsetMinutes: 0, OrderIndex: 1,
			},
			Content: domain.StageContent{
				VideoURL: "https://cdn.example/night-1.mp4", ImageURL: "https://cdn.example/night-1.jpg",
				MessageText: "Sleep well, {{name}}.",
			},
		},
		{
			Definition: domain.StageDefinition{
				Slug: "morning-1", Label: "First Light", DayPart: domain.DayPartMorning,
				UnlockOffsetMinutes: 360, OrderIndex: 2,
			},
			Content: domain.StageContent{
				VideoURL: "https://cdn.example/morning-1.mp4", ImageURL: "https://cdn.example/morning-1.jpg",
				MessageText: "Rise and shine.",
			},
		},
	}
	if err := stageRepo.Seed(context.Background(), seeds); err != nil {
		t.Fatalf("seed catalog: %v", err)
	}

	clock := &stubClock{now: serverTestStart}
	logger := zap.NewNop()
	trackerURL := func(token string) string { return "http://test.local/tracker/" + token }

	signup := service.NewSignupService(stageRepo, sessionRepo, stubTransport{}, clock, logger, trackerURL, time.Second)
	tracker := service.NewTrackerService(stageRepo, sessionRepo, clock)

	srv := New(signup, tracker, logger)
	return srv.Router(6000, 1000, false), clock
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func signupForToken(t *testing.T, router *gin.Engine) string {
	t.Helper()

	w := doJSON(t, router, http.MethodPost, "/api/signup", map[string]string{
		"name":  "Ada",
		"email": "ada@example.com",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("signup status = %d, body %s", w.Code, w.Body.String())
	}

	var resp struct {
		TrackerToken string `json:"trackerToken"`
		TrackerURL   string `json:"trackerUrl"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode signup response: %v", err)
	}
	if resp.TrackerToken == "" || resp.TrackerURL == "" {
		t.Fatalf("incomplete signup response: %s", w.Body.String())
	}
	return resp.TrackerToken
}

func TestSignupEndpoint(t *testing.T) {
	t.Parallel()

	router, _ := newTestRouter(t)
	signupForToken(t, router)
}

func TestSignupEndpointRejectsMissingFields(t *testing.T) {
	t.Parallel()

	router, _ := newTestRouter(t)
	w := doJSON(t, router, http.MethodPost, "/api/signup", map[string]string{"name": "Ada"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestTrackerViewEndpoint(t *testing.T) {
	t.Parallel()

	router, clock := newTestRouter(t)
	token := signupForToken(t, router)

	w := doJSON(t, router, http.MethodGet, "/api/tracker/"+token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	var view struct {
		UserName string `json:"userName"`
		Stages   []struct {
			Slug       string          `json:"slug"`
			IsUnlocked bool            `json:"isUnlocked"`
			Content    json.RawMessage `json:"content"`
		} `json:"stages"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &view); err != nil {
		t.Fatalf("decode view: %v", err)
	}
	if view.UserName != "Ada" {
		t.Fatalf("userName = %q, want Ada", view.UserName)
	}
	if len(view.Stages) != 2 {
		t.Fatalf("stages = %d, want 2", len(view.Stages))
	}
	if !view.Stages[0].IsUnlocked {
		t.Fatal("night-1 should be unlocked")
	}
	if view.Stages[1].IsUnlocked {
		t.Fatal("morning-1 should be locked")
	}
	if string(view.Stages[1].Content) != "null" {
		t.Fatalf("locked stage content = %s, want null", view.Stages[1].Content)
	}

	// After the last unlock everything is readable.
	clock.Set(serverTestStart.Add(360 * time.Minute))
	w = doJSON(t, router, http.MethodGet, "/api/tracker/"+token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if err := json.Unmarshal(w.Body.Bytes(), &view); err != nil {
		t.Fatalf("decode view: %v", err)
	}
	if !view.Stages[1].IsUnlocked {
		t.Fatal("morning-1 should be unlocked at T+360m")
	}
	if string(view.Stages[1].Content) == "null" {
		t.Fatal("unlocked stage should include content")
	}
}

func TestTrackerViewUnknownToken(t *testing.T) {
	t.Parallel()

	router, _ := newTestRouter(t)
	w := doJSON(t, router, http.MethodGet, "/api/tracker/doesnotexist", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestStageCompleteEndpoint(t *testing.T) {
	t.Parallel()

	router, clock := newTestRouter(t)
	token := signupForToken(t, router)

	// Locked stage rejected with 400.
	url := fmt.Sprintf("/api/tracker/%s/stage/morning-1/complete", token)
	w := doJSON(t, router, http.MethodPost, url, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("locked complete status = %d, want 400", w.Code)
	}

	// Unlocked stage succeeds.
	clock.Set(serverTestStart.Add(360 * time.Minute))
	w = doJSON(t, router, http.MethodPost, url, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("complete status = %d, body %s", w.Code, w.Body.String())
	}

	// Unknown stage is a 404.
	w = doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/tracker/%s/stage/nope/complete", token), nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("unknown stage status = %d, want 404", w.Code)
	}
}

func TestStageViewEndpoint(t *testing.T) {
	t.Parallel()

	router, _ := newTestRouter(t)
	token := signupForToken(t, router)

	w := doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/tracker/%s/stage/night-1/view", token), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("view status = %d, body %s", w.Code, w.Body.String())
	}
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	router, _ := newTestRouter(t)
	w := doJSON(t, router, http.MethodGet, "/healthz", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("healthz status = %d, want 200", w.Code)
	}
}

func TestSignupRateLimit(t *testing.T) {
	t.Parallel()

	// A tight limiter rejects the burst-exceeding request.
	limiter := NewIPRateLimiter(1, 1)
	rl := gin.New()
	rl.POST("/limited", limiter.Middleware(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	first := httptest.NewRecorder()
	rl.ServeHTTP(first, httptest.NewRequest(http.MethodPost, "/limited", nil))
	if first.Code != http.StatusOK {
		t.Fatalf("first request status = %d, want 200", first.Code)
	}

	second := httptest.NewRecorder()
	rl.ServeHTTP(second, httptest.NewRequest(http.MethodPost, "/limited", nil))
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("second request status = %d, want 429", second.Code)
	}
}
