package arena

import "time"

// WorldStats is the aggregate a world reports to its manager and clients
type WorldStats struct {
	Limit      int     `msgpack:"limit" json:"limit"`
	Internal   int     `msgpack:"internal" json:"internal"`
	External   int     `msgpack:"external" json:"external"`
	Playing    int     `msgpack:"playing" json:"playing"`
	Spectating int     `msgpack:"spectating" json:"spectating"`
	Name       string  `msgpack:"name" json:"name"`
	Gamemode   string  `msgpack:"gamemode" json:"gamemode"`
	LoadTime   float64 `msgpack:"load" json:"load"`
	Uptime     int64   `msgpack:"uptime" json:"uptime"`
}

// TimingMatrix is the per-stage cost of the last tick in milliseconds, plus
// the counters the broad phase produced
type TimingMatrix struct {
	TickCells       float64 `json:"tick_cells"`
	SpawnCells      float64 `json:"spawn_cells"`
	BoostCells      float64 `json:"boost_cells"`
	PlayerCells     float64 `json:"player_cells"`
	SortCells       float64 `json:"sort_cells"`
	Query           float64 `json:"query"`
	Rigid           float64 `json:"rigid"`
	Eat             float64 `json:"eat"`
	ViewArea        float64 `json:"view_area"`
	Total           float64 `json:"total"`
	Insides         int     `json:"insides"`
	Queries         int     `json:"queries"`
	MaxQueryPerCell int     `json:"max_query_per_cell"`
	TotalCells      int     `json:"total_cells"`
}

// Stats returns the statistics compiled at the end of the last tick
func (w *World) Stats() WorldStats { return w.stats }

// Timing returns the last tick's stage breakdown
func (w *World) Timing() TimingMatrix { return w.timing }

// Leaderboard returns the ranking compiled at the end of the last tick
func (w *World) Leaderboard() []LeaderboardEntry { return w.leaderboard }

func (w *World) compileStatistics() {
	st := WorldStats{
		Limit:    w.settings.WorldMaxPlayers,
		Name:     w.settings.ServerName,
		Gamemode: w.gamemode.Name(),
		Uptime:   int64(time.Since(w.startTime) / time.Second),
	}
	for _, p := range w.players {
		if !p.IsExternal() {
			st.Internal++
			continue
		}
		st.External++
		switch p.State {
		case StateAlive:
			st.Playing++
		case StateSpec, StateRoam:
			st.Spectating++
		}
	}
	if w.ctx.TickDelay > 0 {
		budget := float64(w.ctx.TickDelay) / float64(time.Millisecond)
		st.LoadTime = w.timing.Total / budget * 100 / w.ctx.StepMult
	}
	w.stats = st
}

// stopwatch hands out the milliseconds elapsed since the previous lap
type stopwatch struct {
	start, mark time.Time
}

func newStopwatch() stopwatch {
	now := time.Now()
	return stopwatch{start: now, mark: now}
}

func (s *stopwatch) lap() float64 {
	now := time.Now()
	d := now.Sub(s.mark)
	s.mark = now
	return float64(d.Microseconds()) / 1000
}

func (s *stopwatch) total() float64 {
	return float64(time.Since(s.start).Microseconds()) / 1000
}
