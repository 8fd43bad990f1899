package service

import (
	"context"
	"errors"
	"testing"

	"tradearena/internal/live"
	"tradearena/internal/models"
	"tradearena/internal/repository"
	memrepository "tradearena/internal/repository/memory"
)

func TestCloseStale_SweepsOrphanedRows(t *testing.T) {
	repo := memrepository.New()
	manager := live.NewManager(nil, 4)
	svc := &LiveService{Repo: repo, Live: manager}

	// A session this process hosts: registered in the manager and persisted.
	owned := &models.Match{ID: "aaaaaaaa-0000-0000-0000-000000000001", UserID: "owner-1", Pair: "BTC-USDT", Timeframe: "1h", Phase: models.PhaseBattle}
	if err := repo.CreateMatch(context.Background(), owned); err != nil {
		t.Fatalf("create match: %v", err)
	}
	session, err := svc.CreateSession(context.Background(), "owner-1", owned.ID)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	// A row left open by a previous process: no in-memory registration.
	stale := &models.LiveSession{ID: "stale-session-1", MatchID: "aaaaaaaa-0000-0000-0000-000000000002", OwnerID: "owner-2", Pair: "ETH-USDT", Open: true}
	if err := repo.CreateLiveSession(context.Background(), stale); err != nil {
		t.Fatalf("seed stale row: %v", err)
	}

	if n := svc.CloseStale(context.Background()); n != 1 {
		t.Fatalf("closed %d stale sessions, want 1", n)
	}

	if _, err := repo.GetOpenLiveSessionByMatch(context.Background(), stale.MatchID); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("stale row still open: err = %v", err)
	}
	if _, err := repo.GetOpenLiveSessionByMatch(context.Background(), owned.ID); err != nil {
		t.Fatalf("hosted session was swept: %v", err)
	}
	if _, ok := manager.Lookup(session.ID); !ok {
		t.Fatalf("hosted session lost its registration")
	}

	// Nothing stale left; the sweep is idempotent.
	if n := svc.CloseStale(context.Background()); n != 0 {
		t.Fatalf("second sweep closed %d sessions", n)
	}
}
