package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"tradearena/internal/agents"
	"tradearena/internal/auth"
	"tradearena/internal/match"
	"tradearena/internal/models"
	memrepository "tradearena/internal/repository/memory"
	"tradearena/internal/service"
	"tradearena/internal/warroom"
)

func newTestRouter(t *testing.T) (*gin.Engine, *memrepository.Store) {
	t.Helper()
	t.Setenv("TA_AUTH_DISABLED", "true")
	gin.SetMode(gin.TestMode)

	repo := memrepository.New()
	matchService := &service.MatchService{
		Repo:     repo,
		Registry: agents.Default(),
		Machine:  &match.StateMachine{},
		Windows:  &match.WindowTracker{},
		Guard:    match.NewGuard(),
	}
	warRoomService := &service.WarRoomService{
		Repo: repo,
		Seq:  &warroom.Sequencer{Repo: repo, Gen: warroom.ScriptGenerator{}},
	}

	engine := gin.New()
	engine.Use(auth.RequireBearerMiddleware())
	(&MatchHandler{Service: matchService}).Register(engine)
	(&WarRoomHandler{Service: warRoomService}).Register(engine)
	return engine, repo
}

func postJSON(t *testing.T, engine *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(auth.UserHeader, "owner-1")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func battleMatch(t *testing.T, repo *memrepository.Store) *models.Match {
	t.Helper()
	m := &models.Match{
		ID:        "44444444-4444-4444-4444-444444444444",
		UserID:    "owner-1",
		Pair:      "BTC-USDT",
		Timeframe: "1h",
		Phase:     models.PhaseBattle,
	}
	if err := repo.CreateMatch(context.Background(), m); err != nil {
		t.Fatalf("create match: %v", err)
	}
	return m
}

// A zero window index must reach the tracker's range check, not die in
// request binding as a generic bad-request.
func TestSubmitWindow_IndexZeroGetsRangeError(t *testing.T) {
	engine, repo := newTestRouter(t)
	m := battleMatch(t, repo)

	rec := postJSON(t, engine, "/api/v1/matches/"+m.ID+"/windows",
		map[string]any{"index": 0, "action": "BUY", "price": 100})

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusBadRequest, rec.Body.String())
	}
	body := rec.Body.String()
	if !strings.Contains(body, "not in [1,") {
		t.Fatalf("want the range message, got %s", body)
	}
	if strings.Contains(body, "invalid request") {
		t.Fatalf("zero index rejected by the binder: %s", body)
	}
}

// A zero round must reach the sequencer's ordering check and come back as a
// conflict, not a binding failure.
func TestGenerateRound_RoundZeroGetsSequenceError(t *testing.T) {
	engine, repo := newTestRouter(t)
	m := battleMatch(t, repo)

	rec := postJSON(t, engine, "/api/v1/matches/"+m.ID+"/warroom/rounds",
		map[string]any{"round": 0})

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusConflict, rec.Body.String())
	}
	body := rec.Body.String()
	if !strings.Contains(body, "not in [1,") {
		t.Fatalf("want the sequence message, got %s", body)
	}
	if strings.Contains(body, "invalid request") {
		t.Fatalf("zero round rejected by the binder: %s", body)
	}
}
