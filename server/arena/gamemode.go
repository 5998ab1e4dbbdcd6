package arena

import (
	"math"
	"sort"
)

// LeaderboardEntry is one ranked row
type LeaderboardEntry struct {
	PlayerID PlayerID `msgpack:"pid" json:"pid"`
	Position int      `msgpack:"pos" json:"pos"`
	Name     string   `msgpack:"name" json:"name"`
	CellID   CellID   `msgpack:"cell" json:"cell"`
	Score    float64  `msgpack:"score" json:"score"`
}

// Gamemode is the rule policy a world consults at fixed points of its tick.
// Hooks may change player or score state but must only spawn or remove cells
// through the World API.
type Gamemode interface {
	Name() string
	CanEat(w *World, a, b *Cell) bool
	DecayMultiplier(w *World, c *Cell) float64
	OnWorldTick(w *World)
	OnNewCell(w *World, c *Cell)
	OnCellRemove(w *World, c *Cell)
	OnPlayerJoinWorld(w *World, p *Player)
	OnPlayerLeaveWorld(w *World, p *Player)
	OnPlayerSpawnRequest(w *World, p *Player, name, skin string)
	OnPlayerPressQ(w *World, p *Player)
	CompileLeaderboard(w *World) []LeaderboardEntry
}

// BaseGamemode implements the hooks every mode shares
type BaseGamemode struct{}

func (BaseGamemode) Name() string                          { return "base" }
func (BaseGamemode) CanEat(w *World, a, b *Cell) bool      { return true }
func (BaseGamemode) OnWorldTick(w *World)                  {}
func (BaseGamemode) OnNewCell(w *World, c *Cell)           {}
func (BaseGamemode) OnCellRemove(w *World, c *Cell)        {}
func (BaseGamemode) OnPlayerJoinWorld(w *World, p *Player) {}

func (BaseGamemode) OnPlayerLeaveWorld(w *World, p *Player) {}

func (BaseGamemode) OnPlayerSpawnRequest(w *World, p *Player, name, skin string) {}

func (BaseGamemode) CompileLeaderboard(w *World) []LeaderboardEntry { return nil }

// OnPlayerPressQ toggles between spectating and roaming
func (BaseGamemode) OnPlayerPressQ(w *World, p *Player) {
	p.updateState(w, StateRoam)
}

// DecayMultiplier grows cubically once the owner passes 250k mass
func (BaseGamemode) DecayMultiplier(w *World, c *Cell) float64 {
	base := w.settings.PlayerDecayMult
	if c.Kind != KindPlayer {
		return base
	}
	mass := c.Mass()
	if p := w.playerIndex[c.OwnerID]; p != nil && p.Score > mass {
		mass = p.Score
	}
	if mass > 250000 {
		return base * math.Pow(mass/250000, 3) * 10
	}
	return base
}

// FFA is free-for-all: everyone eats everyone, spawns are random
type FFA struct {
	BaseGamemode
}

func (FFA) Name() string { return "FFA" }

// CanEat protects players that spawned less than SpawnProtection ticks ago
func (FFA) CanEat(w *World, a, b *Cell) bool {
	if a.Kind != KindPlayer || b.Kind != KindPlayer || b.OwnerID == 0 || a.OwnerID == b.OwnerID {
		return true
	}
	if w.teammates(a.OwnerID, b.OwnerID) {
		return true
	}
	victim := w.playerIndex[b.OwnerID]
	if victim == nil {
		return true
	}
	return w.tick-victim.JoinTick >= uint64(w.settings.SpawnProtection)
}

func (FFA) OnPlayerSpawnRequest(w *World, p *Player, name, skin string) {
	if p.spawnCooldownEnd > 0 {
		if w.tick < p.spawnCooldownEnd {
			return
		}
		p.spawnCooldownEnd = 0
	}
	if p.world != w {
		return
	}

	nearDeath := p.JustDied && p.State != StateAlive
	if p.State == StateAlive {
		if !w.settings.RespawnEnabled {
			return
		}
		nearDeath = false
		w.KillPlayer(p, false)
	}
	p.JustDied = false

	size := w.settings.MinionSpawnSize
	switch p.Router.Type {
	case RouterPlayer:
		size = w.settings.PlayerSpawnSize
	case RouterBot:
		size = w.settings.BotSpawnSize
	}

	var (
		x, y float64
		ok   bool
	)
	if nearDeath {
		x, y, size, ok = w.GetPlayerSpawnNearPoint(p.lastDeathX, p.lastDeathY, size)
	} else {
		x, y, size, ok = w.GetPlayerSpawn(size)
	}
	if !ok {
		w.ctx.Log.Debugw("no safe spawn position, retrying next tick", "player", p.ID)
		p.Router.requeueSpawn(name, skin)
		return
	}

	p.CellName, p.ChatName, p.LeaderboardName = name, name, name
	p.Skin = skin
	p.Color = w.ctx.randomColor()
	w.SpawnPlayer(p, x, y, size)
}

// CompileLeaderboard ranks regular players with a positive score
func (FFA) CompileLeaderboard(w *World) []LeaderboardEntry {
	var ranked []*Player
	for _, p := range w.players {
		if p.Type == PlayerRegular && p.Score > 0 {
			ranked = append(ranked, p)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Score > ranked[j].Score })

	entries := make([]LeaderboardEntry, 0, len(ranked))
	for i, p := range ranked {
		e := LeaderboardEntry{PlayerID: p.ID, Position: i + 1, Name: p.LeaderboardName, Score: p.Score}
		if len(p.OwnedCells) > 0 {
			e.CellID = p.OwnedCells[0].ID
		}
		entries = append(entries, e)
	}
	return entries
}
