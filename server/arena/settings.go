package arena

import (
	"math"

	"go.uber.org/zap"
)

// Settings is the flat constants table a world is built from. Each world keeps
// its own copy for its whole lifetime.
type Settings struct {
	ServerName      string `yaml:"server_name"`
	ServerFrequency int    `yaml:"server_frequency"`
	PhysicsThreads  int    `yaml:"physics_threads"`
	RespawnEnabled  bool   `yaml:"respawn_enabled"`

	WorldMapX                   float64 `yaml:"world_map_x"`
	WorldMapY                   float64 `yaml:"world_map_y"`
	WorldMapW                   float64 `yaml:"world_map_w"`
	WorldMapH                   float64 `yaml:"world_map_h"`
	WorldFinderMaxLevel         int     `yaml:"world_finder_max_level"`
	WorldFinderMaxItems         int     `yaml:"world_finder_max_items"`
	WorldFinderMaxSearch        int     `yaml:"world_finder_max_search"`
	WorldSafeSpawnTries         int     `yaml:"world_safe_spawn_tries"`
	WorldPlayerDisposeDelay     int     `yaml:"world_player_dispose_delay"`
	WorldCellDisposeDelay       int     `yaml:"world_cell_dispose_delay"`
	WorldEatMult                float64 `yaml:"world_eat_mult"`
	WorldEatOverlapDiv          float64 `yaml:"world_eat_overlap_div"`
	WorldRespawnNearDeathRadius float64 `yaml:"world_respawn_near_death_radius"`
	WorldMaxPlayers             int     `yaml:"world_max_players"`
	WorldMinCount               int     `yaml:"world_min_count"`
	WorldMaxCount               int     `yaml:"world_max_count"`

	PelletMinSize   float64 `yaml:"pellet_min_size"`
	PelletMaxSize   float64 `yaml:"pellet_max_size"`
	PelletGrowTicks int     `yaml:"pellet_grow_ticks"`
	PelletCount     int     `yaml:"pellet_count"`

	VirusMinCount     int     `yaml:"virus_min_count"`
	VirusMaxCount     int     `yaml:"virus_max_count"`
	VirusSize         float64 `yaml:"virus_size"`
	VirusFeedTimes    int     `yaml:"virus_feed_times"`
	VirusPushing      bool    `yaml:"virus_pushing"`
	VirusSplitBoost   float64 `yaml:"virus_split_boost"`
	VirusPushBoost    float64 `yaml:"virus_push_boost"`
	VirusMonotonePops bool    `yaml:"virus_monotone_pops"`

	EjectedSize      float64 `yaml:"ejected_size"`
	EjectingLoss     float64 `yaml:"ejecting_loss"`
	EjectDispersion  float64 `yaml:"eject_dispersion"`
	EjectedCellBoost float64 `yaml:"ejected_cell_boost"`

	MothercellSize               float64 `yaml:"mothercell_size"`
	MothercellCount              int     `yaml:"mothercell_count"`
	MothercellPassiveSpawnChance float64 `yaml:"mothercell_passive_spawn_chance"`
	MothercellActiveSpawnSpeed   float64 `yaml:"mothercell_active_spawn_speed"`
	MothercellPelletBoost        float64 `yaml:"mothercell_pellet_boost"`
	MothercellMaxPellets         int     `yaml:"mothercell_max_pellets"`
	MothercellMaxSize            float64 `yaml:"mothercell_max_size"`

	PlayerRoamSpeed         float64 `yaml:"player_roam_speed"`
	PlayerRoamViewScale     float64 `yaml:"player_roam_view_scale"`
	PlayerViewScaleMult     float64 `yaml:"player_view_scale_mult"`
	PlayerMinViewScale      float64 `yaml:"player_min_view_scale"`
	PlayerMaxNameLength     int     `yaml:"player_max_name_length"`
	PlayerMinSize           float64 `yaml:"player_min_size"`
	PlayerSpawnSize         float64 `yaml:"player_spawn_size"`
	PlayerMaxSize           float64 `yaml:"player_max_size"`
	PlayerMinSplitSize      float64 `yaml:"player_min_split_size"`
	PlayerMinEjectSize      float64 `yaml:"player_min_eject_size"`
	PlayerSplitCap          int     `yaml:"player_split_cap"`
	PlayerEjectDelay        int     `yaml:"player_eject_delay"`
	PlayerMaxCells          int     `yaml:"player_max_cells"`
	PlayerMoveMult          float64 `yaml:"player_move_mult"`
	PlayerSplitSizeDiv      float64 `yaml:"player_split_size_div"`
	PlayerSplitDistance     float64 `yaml:"player_split_distance"`
	PlayerSplitBoost        float64 `yaml:"player_split_boost"`
	PlayerNoCollideDelay    float64 `yaml:"player_no_collide_delay"`
	PlayerNoMergeDelay      float64 `yaml:"player_no_merge_delay"`
	PlayerMergeNewVersion   bool    `yaml:"player_merge_new_version"`
	PlayerMergeTime         float64 `yaml:"player_merge_time"`
	PlayerMergeTimeIncrease float64 `yaml:"player_merge_time_increase"`
	PlayerDecayMult         float64 `yaml:"player_decay_mult"`

	RestartMulti    float64 `yaml:"restart_multi"`
	KillOversize    bool    `yaml:"kill_oversize"`
	SpawnProtection int     `yaml:"spawn_protection"`
	MinionSpawnSize float64 `yaml:"minion_spawn_size"`
	BotSpawnSize    float64 `yaml:"bot_spawn_size"`
}

// DefaultSettings returns the stock FFA configuration
func DefaultSettings() Settings {
	return Settings{
		ServerName:      "An unnamed server",
		ServerFrequency: 25,
		PhysicsThreads:  6,
		RespawnEnabled:  true,

		WorldMapW:                   7071,
		WorldMapH:                   7071,
		WorldFinderMaxLevel:         16,
		WorldFinderMaxItems:         16,
		WorldFinderMaxSearch:        0,
		WorldSafeSpawnTries:         128,
		WorldPlayerDisposeDelay:     100,
		WorldCellDisposeDelay:       100,
		WorldEatMult:                1.140175425099138,
		WorldEatOverlapDiv:          3,
		WorldRespawnNearDeathRadius: 500,
		WorldMaxPlayers:             50,
		WorldMinCount:               0,
		WorldMaxCount:               2,

		PelletMinSize:   10,
		PelletMaxSize:   20,
		PelletGrowTicks: 1500,
		PelletCount:     100,

		VirusMinCount:   30,
		VirusMaxCount:   90,
		VirusSize:       100,
		VirusFeedTimes:  7,
		VirusSplitBoost: 780,
		VirusPushBoost:  120,

		EjectedSize:      38,
		EjectingLoss:     43,
		EjectDispersion:  0.3,
		EjectedCellBoost: 780,

		MothercellSize:               149,
		MothercellCount:              0,
		MothercellPassiveSpawnChance: 0.05,
		MothercellActiveSpawnSpeed:   1,
		MothercellPelletBoost:        90,
		MothercellMaxPellets:         96,
		MothercellMaxSize:            65535,

		PlayerRoamSpeed:         32,
		PlayerRoamViewScale:     0.4,
		PlayerViewScaleMult:     1,
		PlayerMinViewScale:      0.01,
		PlayerMaxNameLength:     16,
		PlayerMinSize:           32,
		PlayerSpawnSize:         32,
		PlayerMaxSize:           1500,
		PlayerMinSplitSize:      60,
		PlayerMinEjectSize:      60,
		PlayerSplitCap:          255,
		PlayerEjectDelay:        2,
		PlayerMaxCells:          16,
		PlayerMoveMult:          1,
		PlayerSplitSizeDiv:      1.414213562373095,
		PlayerSplitDistance:     40,
		PlayerSplitBoost:        780,
		PlayerNoCollideDelay:    14,
		PlayerNoMergeDelay:      0.5,
		PlayerMergeTime:         30,
		PlayerMergeTimeIncrease: 0.02,
		PlayerDecayMult:         0.001,

		RestartMulti:    0.75,
		SpawnProtection: 40,
		MinionSpawnSize: 32,
		BotSpawnSize:    32,
	}
}

// Sanitize replaces malformed values with their defaults and logs a warning
// for each key it had to fix. It never fails.
func (s *Settings) Sanitize(log *zap.SugaredLogger) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	d := DefaultSettings()

	positive := func(key string, v *float64, def float64) {
		if math.IsNaN(*v) || math.IsInf(*v, 0) || *v <= 0 {
			log.Warnw("malformed setting, using default", "key", key, "value", *v, "default", def)
			*v = def
		}
	}
	nonNegative := func(key string, v *float64, def float64) {
		if math.IsNaN(*v) || math.IsInf(*v, 0) || *v < 0 {
			log.Warnw("malformed setting, using default", "key", key, "value", *v, "default", def)
			*v = def
		}
	}
	finite := func(key string, v *float64, def float64) {
		if math.IsNaN(*v) || math.IsInf(*v, 0) {
			log.Warnw("malformed setting, using default", "key", key, "value", *v, "default", def)
			*v = def
		}
	}
	atLeast := func(key string, v *int, min, def int) {
		if *v < min {
			log.Warnw("malformed setting, using default", "key", key, "value", *v, "default", def)
			*v = def
		}
	}

	if s.ServerName == "" {
		s.ServerName = d.ServerName
	}
	atLeast("server_frequency", &s.ServerFrequency, 1, d.ServerFrequency)
	atLeast("physics_threads", &s.PhysicsThreads, 1, d.PhysicsThreads)

	finite("world_map_x", &s.WorldMapX, d.WorldMapX)
	finite("world_map_y", &s.WorldMapY, d.WorldMapY)
	positive("world_map_w", &s.WorldMapW, d.WorldMapW)
	positive("world_map_h", &s.WorldMapH, d.WorldMapH)
	atLeast("world_finder_max_level", &s.WorldFinderMaxLevel, 1, d.WorldFinderMaxLevel)
	atLeast("world_finder_max_items", &s.WorldFinderMaxItems, 1, d.WorldFinderMaxItems)
	atLeast("world_finder_max_search", &s.WorldFinderMaxSearch, 0, d.WorldFinderMaxSearch)
	atLeast("world_safe_spawn_tries", &s.WorldSafeSpawnTries, 1, d.WorldSafeSpawnTries)
	atLeast("world_player_dispose_delay", &s.WorldPlayerDisposeDelay, 0, d.WorldPlayerDisposeDelay)
	atLeast("world_cell_dispose_delay", &s.WorldCellDisposeDelay, 0, d.WorldCellDisposeDelay)
	positive("world_eat_mult", &s.WorldEatMult, d.WorldEatMult)
	positive("world_eat_overlap_div", &s.WorldEatOverlapDiv, d.WorldEatOverlapDiv)
	positive("world_respawn_near_death_radius", &s.WorldRespawnNearDeathRadius, d.WorldRespawnNearDeathRadius)
	atLeast("world_max_players", &s.WorldMaxPlayers, 1, d.WorldMaxPlayers)
	atLeast("world_min_count", &s.WorldMinCount, 0, d.WorldMinCount)
	atLeast("world_max_count", &s.WorldMaxCount, 1, d.WorldMaxCount)

	positive("pellet_min_size", &s.PelletMinSize, d.PelletMinSize)
	positive("pellet_max_size", &s.PelletMaxSize, d.PelletMaxSize)
	if s.PelletMaxSize < s.PelletMinSize {
		log.Warnw("pellet_max_size below pellet_min_size, clamping", "min", s.PelletMinSize, "max", s.PelletMaxSize)
		s.PelletMaxSize = s.PelletMinSize
	}
	atLeast("pellet_grow_ticks", &s.PelletGrowTicks, 1, d.PelletGrowTicks)
	atLeast("pellet_count", &s.PelletCount, 0, d.PelletCount)

	atLeast("virus_min_count", &s.VirusMinCount, 0, d.VirusMinCount)
	atLeast("virus_max_count", &s.VirusMaxCount, 0, d.VirusMaxCount)
	positive("virus_size", &s.VirusSize, d.VirusSize)
	atLeast("virus_feed_times", &s.VirusFeedTimes, 1, d.VirusFeedTimes)
	nonNegative("virus_split_boost", &s.VirusSplitBoost, d.VirusSplitBoost)
	nonNegative("virus_push_boost", &s.VirusPushBoost, d.VirusPushBoost)

	positive("ejected_size", &s.EjectedSize, d.EjectedSize)
	positive("ejecting_loss", &s.EjectingLoss, d.EjectingLoss)
	nonNegative("eject_dispersion", &s.EjectDispersion, d.EjectDispersion)
	nonNegative("ejected_cell_boost", &s.EjectedCellBoost, d.EjectedCellBoost)

	positive("mothercell_size", &s.MothercellSize, d.MothercellSize)
	atLeast("mothercell_count", &s.MothercellCount, 0, d.MothercellCount)
	nonNegative("mothercell_passive_spawn_chance", &s.MothercellPassiveSpawnChance, d.MothercellPassiveSpawnChance)
	nonNegative("mothercell_active_spawn_speed", &s.MothercellActiveSpawnSpeed, d.MothercellActiveSpawnSpeed)
	nonNegative("mothercell_pellet_boost", &s.MothercellPelletBoost, d.MothercellPelletBoost)
	atLeast("mothercell_max_pellets", &s.MothercellMaxPellets, 0, d.MothercellMaxPellets)
	positive("mothercell_max_size", &s.MothercellMaxSize, d.MothercellMaxSize)

	positive("player_roam_speed", &s.PlayerRoamSpeed, d.PlayerRoamSpeed)
	positive("player_roam_view_scale", &s.PlayerRoamViewScale, d.PlayerRoamViewScale)
	positive("player_view_scale_mult", &s.PlayerViewScaleMult, d.PlayerViewScaleMult)
	positive("player_min_view_scale", &s.PlayerMinViewScale, d.PlayerMinViewScale)
	atLeast("player_max_name_length", &s.PlayerMaxNameLength, 1, d.PlayerMaxNameLength)
	positive("player_min_size", &s.PlayerMinSize, d.PlayerMinSize)
	positive("player_spawn_size", &s.PlayerSpawnSize, d.PlayerSpawnSize)
	positive("player_max_size", &s.PlayerMaxSize, d.PlayerMaxSize)
	positive("player_min_split_size", &s.PlayerMinSplitSize, d.PlayerMinSplitSize)
	positive("player_min_eject_size", &s.PlayerMinEjectSize, d.PlayerMinEjectSize)
	atLeast("player_split_cap", &s.PlayerSplitCap, 0, d.PlayerSplitCap)
	atLeast("player_eject_delay", &s.PlayerEjectDelay, 0, d.PlayerEjectDelay)
	atLeast("player_max_cells", &s.PlayerMaxCells, 1, d.PlayerMaxCells)
	positive("player_move_mult", &s.PlayerMoveMult, d.PlayerMoveMult)
	if math.IsNaN(s.PlayerSplitSizeDiv) || s.PlayerSplitSizeDiv <= 1 {
		log.Warnw("malformed setting, using default", "key", "player_split_size_div", "value", s.PlayerSplitSizeDiv, "default", d.PlayerSplitSizeDiv)
		s.PlayerSplitSizeDiv = d.PlayerSplitSizeDiv
	}
	nonNegative("player_split_distance", &s.PlayerSplitDistance, d.PlayerSplitDistance)
	nonNegative("player_split_boost", &s.PlayerSplitBoost, d.PlayerSplitBoost)
	nonNegative("player_no_collide_delay", &s.PlayerNoCollideDelay, d.PlayerNoCollideDelay)
	nonNegative("player_no_merge_delay", &s.PlayerNoMergeDelay, d.PlayerNoMergeDelay)
	nonNegative("player_merge_time", &s.PlayerMergeTime, d.PlayerMergeTime)
	nonNegative("player_merge_time_increase", &s.PlayerMergeTimeIncrease, d.PlayerMergeTimeIncrease)
	nonNegative("player_decay_mult", &s.PlayerDecayMult, d.PlayerDecayMult)

	positive("restart_multi", &s.RestartMulti, d.RestartMulti)
	atLeast("spawn_protection", &s.SpawnProtection, 0, d.SpawnProtection)
	positive("minion_spawn_size", &s.MinionSpawnSize, d.MinionSpawnSize)
	positive("bot_spawn_size", &s.BotSpawnSize, d.BotSpawnSize)
}
