package main

import (
	"path/filepath"
	"testing"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestCreatePlayerAndStats(t *testing.T) {
	db := openTestDB(t)
	id, err := db.CreatePlayer("alice", "hash")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	p, err := db.GetPlayerByUsername("alice")
	if err != nil || p == nil {
		t.Fatalf("lookup: %v", err)
	}
	if p.ID != id || p.PassHash != "hash" {
		t.Errorf("unexpected row %+v", p)
	}
	if missing, err := db.GetPlayerByUsername("bob"); err != nil || missing != nil {
		t.Errorf("expected nil for unknown user, got %+v, %v", missing, err)
	}

	s, err := db.GetStats(id)
	if err != nil || s == nil {
		t.Fatalf("stats: %v", err)
	}
	if s.Games != 0 || s.BestScore != 0 {
		t.Errorf("fresh stats not zero: %+v", s)
	}

	if _, err := db.CreatePlayer("alice", "other"); err == nil {
		t.Error("duplicate username accepted")
	}
	if ok, _ := db.UsernameExists("alice"); !ok {
		t.Error("UsernameExists should report alice")
	}
}

func TestRecordLifeKeepsBestScore(t *testing.T) {
	db := openTestDB(t)
	id, _ := db.CreatePlayer("alice", "hash")

	if err := db.RecordLife(id, 500, 3, 60); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := db.RecordLife(id, 200, 1, 30); err != nil {
		t.Fatalf("record: %v", err)
	}

	s, _ := db.GetStats(id)
	if s.BestScore != 500 {
		t.Errorf("best score %f, want 500", s.BestScore)
	}
	if s.Kills != 4 || s.Deaths != 2 || s.Games != 2 || s.Playtime != 90 {
		t.Errorf("unexpected totals %+v", s)
	}
}

func TestLeaderboardOrdering(t *testing.T) {
	db := openTestDB(t)
	a, _ := db.CreatePlayer("alice", "h")
	b, _ := db.CreatePlayer("bob", "h")
	db.RecordLife(a, 100, 10, 10)
	db.RecordLife(b, 900, 1, 10)

	byScore, err := db.GetLeaderboard("score", 10)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(byScore) != 2 || byScore[0].Username != "bob" || byScore[0].Rank != 1 {
		t.Errorf("unexpected score order %+v", byScore)
	}

	byKills, _ := db.GetLeaderboard("kills", 10)
	if byKills[0].Username != "alice" {
		t.Errorf("expected alice first by kills, got %s", byKills[0].Username)
	}

	// unknown columns fall back to score
	fallback, err := db.GetLeaderboard("1; DROP TABLE players", 1)
	if err != nil {
		t.Fatalf("fallback: %v", err)
	}
	if len(fallback) != 1 || fallback[0].Username != "bob" {
		t.Errorf("unexpected fallback %+v", fallback)
	}
}

func TestSettingsTable(t *testing.T) {
	db := openTestDB(t)
	if v := db.GetSetting("missing"); v != "" {
		t.Errorf("expected empty value, got %q", v)
	}
	if err := db.SetSetting("k", "one"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := db.SetSetting("k", "two"); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	if v := db.GetSetting("k"); v != "two" {
		t.Errorf("expected two, got %q", v)
	}
}

func TestAnalyticsFlushesOnStop(t *testing.T) {
	db := openTestDB(t)
	a := NewAnalytics(db)
	a.Track(EvtPlayerJoin, 1, "w", map[string]interface{}{"pid": 3})
	a.Track(EvtPlayerDeath, 1, "w", nil)
	a.Track(EvtPlayerDeath, 2, "w", nil)
	a.Stop()

	counts, err := a.EventCounts(1)
	if err != nil {
		t.Fatalf("counts: %v", err)
	}
	if counts[EvtPlayerJoin] != 1 || counts[EvtPlayerDeath] != 2 {
		t.Errorf("unexpected counts %v", counts)
	}
	if dau, _ := a.DAUCount(); dau != 2 {
		t.Errorf("expected 2 daily actives, got %d", dau)
	}
}

func TestNilAnalyticsIsSafe(t *testing.T) {
	var a *Analytics
	a.Track(EvtPlayerJoin, 1, "w", nil)
	a.SetLive(1, 1)
	a.Stop()
	if p, w := a.GetLiveMetrics(); p != 0 || w != 0 {
		t.Error("nil analytics should report zeros")
	}
}
