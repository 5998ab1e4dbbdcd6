package main

import (
	"database/sql"
	"encoding/json"
	"sync"
	"time"
)

// Event types for analytics tracking
const (
	EvtWorldCreated = "world_created"
	EvtWorldRemoved = "world_removed"
	EvtPlayerJoin   = "player_join"
	EvtPlayerSpawn  = "player_spawn"
	EvtPlayerDeath  = "player_death"
	EvtPlayerLeave  = "player_leave"
)

// AnalyticsEvent represents a single trackable event
type AnalyticsEvent struct {
	Type      string
	PlayerID  int64
	WorldID   string
	Data      map[string]interface{}
	Timestamp time.Time
}

// Analytics handles event tracking with batched background writes. A nil
// *Analytics drops every event.
type Analytics struct {
	db     *DB
	events chan AnalyticsEvent
	stop   chan struct{}
	wg     sync.WaitGroup

	mu           sync.RWMutex
	livePlayers  int
	activeWorlds int
}

// NewAnalytics creates and starts the analytics background writer
func NewAnalytics(db *DB) *Analytics {
	a := &Analytics{
		db:     db,
		events: make(chan AnalyticsEvent, 1024),
		stop:   make(chan struct{}),
	}
	a.wg.Add(1)
	go a.writer()
	return a
}

// Track enqueues an event for async persistence (non-blocking)
func (a *Analytics) Track(evtType string, playerID int64, worldID string, data map[string]interface{}) {
	if a == nil {
		return
	}
	select {
	case a.events <- AnalyticsEvent{
		Type:      evtType,
		PlayerID:  playerID,
		WorldID:   worldID,
		Data:      data,
		Timestamp: time.Now().UTC(),
	}:
	default:
		// Channel full, drop event rather than blocking the tick
	}
}

// SetLive updates the live player and world counts
func (a *Analytics) SetLive(players, worlds int) {
	if a == nil {
		return
	}
	a.mu.Lock()
	a.livePlayers, a.activeWorlds = players, worlds
	a.mu.Unlock()
}

// GetLiveMetrics returns current live metrics
func (a *Analytics) GetLiveMetrics() (players, worlds int) {
	if a == nil {
		return 0, 0
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.livePlayers, a.activeWorlds
}

// Stop gracefully shuts down the analytics writer
func (a *Analytics) Stop() {
	if a == nil {
		return
	}
	close(a.stop)
	a.wg.Wait()
}

// writer is the background goroutine that batches and writes events to DB
func (a *Analytics) writer() {
	defer a.wg.Done()

	batch := make([]AnalyticsEvent, 0, 64)
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case evt := <-a.events:
			batch = append(batch, evt)
			if len(batch) >= 50 {
				a.flush(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				a.flush(batch)
				batch = batch[:0]
			}
		case <-a.stop:
			for {
				select {
				case evt := <-a.events:
					batch = append(batch, evt)
				default:
					a.flush(batch)
					return
				}
			}
		}
	}
}

// flush writes a batch of events to the database
func (a *Analytics) flush(events []AnalyticsEvent) {
	if a.db == nil || len(events) == 0 {
		return
	}
	tx, err := a.db.conn.Begin()
	if err != nil {
		Log.Errorw("analytics: begin tx", "error", err)
		return
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO analytics_events (event_type, player_id, world_id, data, created_at) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		Log.Errorw("analytics: prepare", "error", err)
		return
	}
	defer stmt.Close()

	for _, evt := range events {
		pid := sql.NullInt64{Int64: evt.PlayerID, Valid: evt.PlayerID > 0}
		wid := sql.NullString{String: evt.WorldID, Valid: evt.WorldID != ""}
		var data sql.NullString
		if len(evt.Data) > 0 {
			if b, err := json.Marshal(evt.Data); err == nil {
				data = sql.NullString{String: string(b), Valid: true}
			}
		}
		if _, err := stmt.Exec(evt.Type, pid, wid, data, evt.Timestamp.Format(time.RFC3339)); err != nil {
			Log.Errorw("analytics: insert", "error", err)
		}
	}
	if err := tx.Commit(); err != nil {
		Log.Errorw("analytics: commit", "error", err)
	}
}

// --- Query methods for the API ---

// DAUCount returns number of distinct accounts active today
func (a *Analytics) DAUCount() (int, error) {
	return a.activeSince("start of day")
}

// WAUCount returns number of distinct accounts active in the last 7 days
func (a *Analytics) WAUCount() (int, error) {
	return a.activeSince("-7 days")
}

// MAUCount returns number of distinct accounts active in the last 30 days
func (a *Analytics) MAUCount() (int, error) {
	return a.activeSince("-30 days")
}

func (a *Analytics) activeSince(modifier string) (int, error) {
	if a == nil || a.db == nil {
		return 0, nil
	}
	var count int
	err := a.db.conn.QueryRow(`
		SELECT COUNT(DISTINCT player_id) FROM analytics_events
		WHERE player_id IS NOT NULL AND created_at >= date('now', ?)
	`, modifier).Scan(&count)
	return count, err
}

// EventCounts returns counts of each event type for the last N days
func (a *Analytics) EventCounts(days int) (map[string]int, error) {
	if a == nil || a.db == nil {
		return nil, nil
	}
	rows, err := a.db.conn.Query(`
		SELECT event_type, COUNT(*) FROM analytics_events
		WHERE created_at >= date('now', '-' || ? || ' days')
		GROUP BY event_type ORDER BY COUNT(*) DESC
	`, days)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string]int)
	for rows.Next() {
		var evtType string
		var count int
		if err := rows.Scan(&evtType, &count); err != nil {
			continue
		}
		result[evtType] = count
	}
	return result, rows.Err()
}
