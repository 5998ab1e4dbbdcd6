package main

import (
	"encoding/binary"
	"encoding/json"
	"errors"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/vfxecho/Aetlis/server/arena"
)

// Client -> Server message types
const (
	MsgJoin       = "join"
	MsgLeave      = "leave"
	MsgList       = "list" // list worlds
	MsgSpawn      = "spawn"
	MsgSpectate   = "spectate"
	MsgQ          = "q"
	MsgSplit      = "split"
	MsgEject      = "eject"
	MsgLinelock   = "linelock"
	MsgDualCreate = "dual_create"
	MsgDualToggle = "dual_toggle"
	MsgRegister   = "register"
	MsgLogin      = "login"
	MsgAuth       = "auth"
	MsgProfile    = "profile"
)

// Server -> Client message types
const (
	MsgWelcome     = "welcome"
	MsgSpawned     = "spawned"
	MsgDeath       = "death"
	MsgWorlds      = "worlds"
	MsgWorldClosed = "world_closed"
	MsgError       = "error"
	MsgAuthOK      = "auth_ok"
	MsgProfileData = "profile_data"
)

// OpMouse is the first byte of a binary pointer update: op, x int32, y int32
const (
	OpMouse      byte = 0x10
	mouseMsgSize      = 9
)

// Envelope wraps all outgoing messages with a type field
type Envelope struct {
	T    string      `json:"t"`
	Data interface{} `json:"d,omitempty"`
}

// InEnvelope is used for incoming messages; json.RawMessage avoids double-unmarshal
type InEnvelope struct {
	T string          `json:"t"`
	D json.RawMessage `json:"d,omitempty"`
}

// JoinMsg asks for a world. An empty SessionID means matchmaking.
type JoinMsg struct {
	SessionID string `json:"sid"`
}

// SpawnMsg asks to enter play
type SpawnMsg struct {
	Name string `json:"name"`
	Skin string `json:"skin"`
}

// SpectateMsg asks to follow a player; zero follows the largest one
type SpectateMsg struct {
	PlayerID uint32 `json:"pid"`
}

// QMsg carries the Q key state
type QMsg struct {
	Down bool `json:"down"`
}

// EjectMsg ejects once, or switches the eject macro
type EjectMsg struct {
	Macro *bool `json:"macro,omitempty"`
}

// AuthMsg is used for register and login
type AuthMsg struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// TokenMsg restores a session from a stored token
type TokenMsg struct {
	Token string `json:"token"`
}

// WelcomeMsg is sent to a player when they join a world
type WelcomeMsg struct {
	PlayerID uint32     `json:"pid"`
	World    WorldInfo  `json:"world"`
	Border   [4]float64 `json:"border"` // x, y, half width, half height
}

// DeathMsg notifies a player they died
type DeathMsg struct {
	Score float64 `json:"score"`
	Kills int     `json:"kills"`
}

// SpawnedMsg confirms a spawn
type SpawnedMsg struct {
	Name  string `json:"name"`
	Color uint32 `json:"color"`
}

// AuthOKMsg is sent after register, login or token restore
type AuthOKMsg struct {
	Token     string `json:"token,omitempty"`
	Username  string `json:"username"`
	AccountID int64  `json:"account"`
}

// ProfileDataMsg is an account's lifetime stats
type ProfileDataMsg struct {
	Username  string  `json:"username"`
	BestScore float64 `json:"best_score"`
	Kills     int     `json:"kills"`
	Deaths    int     `json:"deaths"`
	Games     int     `json:"games"`
	Playtime  int64   `json:"playtime"`
}

// ErrorMsg sends error to client
type ErrorMsg struct {
	Msg string `json:"msg"`
}

// WorldInfo is used in the world list and the HTTP API
type WorldInfo struct {
	ID          string                   `json:"id"`
	Tick        uint64                   `json:"tick"`
	Cells       int                      `json:"cells"`
	Stats       arena.WorldStats         `json:"stats"`
	Timing      arena.TimingMatrix       `json:"timing"`
	Leaderboard []arena.LeaderboardEntry `json:"leaderboard,omitempty"`
}

// CellState is one visible cell in a frame
type CellState struct {
	ID    uint64  `msgpack:"id"`
	Kind  uint8   `msgpack:"k"`
	X     float64 `msgpack:"x"`
	Y     float64 `msgpack:"y"`
	Size  float64 `msgpack:"s"`
	Color uint32  `msgpack:"c"`
	Name  string  `msgpack:"n,omitempty"`
	Skin  string  `msgpack:"sk,omitempty"`
	Owner uint32  `msgpack:"o,omitempty"`
}

// ViewState is the camera the frame was cut with
type ViewState struct {
	X     float64 `msgpack:"x"`
	Y     float64 `msgpack:"y"`
	W     float64 `msgpack:"w"`
	H     float64 `msgpack:"h"`
	Scale float64 `msgpack:"s"`
}

// WorldFrame is the binary per-tick update a player receives
type WorldFrame struct {
	Tick        uint64                   `msgpack:"tick"`
	Self        uint32                   `msgpack:"self"`
	State       uint8                    `msgpack:"st"`
	Score       float64                  `msgpack:"sc"`
	View        ViewState                `msgpack:"v"`
	Cells       []CellState              `msgpack:"c"`
	Leaderboard []arena.LeaderboardEntry `msgpack:"lb,omitempty"`
	Stats       *arena.WorldStats        `msgpack:"stats,omitempty"`
}

var errBadMouse = errors.New("malformed mouse message")

// decodeMouse reads a binary pointer update
func decodeMouse(b []byte) (x, y float64, err error) {
	if len(b) != mouseMsgSize || b[0] != OpMouse {
		return 0, 0, errBadMouse
	}
	x = float64(int32(binary.BigEndian.Uint32(b[1:5])))
	y = float64(int32(binary.BigEndian.Uint32(b[5:9])))
	return x, y, nil
}

// encodeMouse is the inverse of decodeMouse
func encodeMouse(x, y int32) []byte {
	b := make([]byte, mouseMsgSize)
	b[0] = OpMouse
	binary.BigEndian.PutUint32(b[1:5], uint32(x))
	binary.BigEndian.PutUint32(b[5:9], uint32(y))
	return b
}

// buildFrame cuts p's view out of its world. Call it between ticks only.
func buildFrame(w *arena.World, p *arena.Player, buf []*arena.Cell, withBoard bool) (WorldFrame, []*arena.Cell) {
	buf = w.VisibleCells(p, buf[:0])
	f := WorldFrame{
		Tick:  w.Tick(),
		Self:  uint32(p.ID),
		State: uint8(p.State),
		Score: p.Score,
		View:  ViewState{X: p.View.X, Y: p.View.Y, W: p.View.W, H: p.View.H, Scale: p.View.S},
		Cells: make([]CellState, 0, len(buf)),
	}
	for _, c := range buf {
		f.Cells = append(f.Cells, CellState{
			ID:    uint64(c.ID),
			Kind:  uint8(c.Kind),
			X:     c.X,
			Y:     c.Y,
			Size:  c.Size,
			Color: c.Color,
			Name:  c.Name,
			Skin:  c.Skin,
			Owner: uint32(c.OwnerID),
		})
	}
	if withBoard {
		f.Leaderboard = w.Leaderboard()
		st := w.Stats()
		f.Stats = &st
	}
	return f, buf
}

func encodeFrame(f WorldFrame) ([]byte, error) {
	return msgpack.Marshal(&f)
}
