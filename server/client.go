package main

import (
	"encoding/json"
	"errors"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/vfxecho/Aetlis/server/arena"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBufSize    = 256
)

// Client represents a WebSocket connection. It also receives the router
// notifications of the player it drives.
type Client struct {
	hub        *Hub
	conn       *websocket.Conn
	send       chan []byte
	remoteAddr string
	limiter    *rate.Limiter

	// Owned by the read pump, handed to the hub on unregister
	router *arena.Router

	frameDue  atomic.Bool
	spawnedAt time.Time // tick goroutine only

	// nil while playing as a guest
	account atomic.Pointer[Account]
}

// NewClient creates a new Client
func NewClient(hub *Hub, conn *websocket.Conn, remoteAddr string) *Client {
	perSec := hub.cfg.MessagesPerSec
	return &Client{
		hub:        hub,
		conn:       conn,
		send:       make(chan []byte, sendBufSize),
		remoteAddr: remoteAddr,
		limiter:    rate.NewLimiter(rate.Limit(perSec), perSec),
	}
}

// ReadPump reads messages from the WebSocket connection
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Release(c.remoteAddr)
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		msgType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				Log.Debugw("ws read error", "addr", c.remoteAddr, "error", err)
			}
			break
		}

		if !c.limiter.Allow() {
			Log.Warnw("rate limit exceeded, disconnecting", "addr", c.remoteAddr)
			break
		}

		if msgType == websocket.BinaryMessage {
			c.handleBinary(message)
		} else {
			c.handleMessage(message)
		}
	}
}

// WritePump writes messages to the WebSocket connection
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			// Check for binary marker (0xFF prefix from SendBinary)
			var err error
			if len(message) > 0 && message[0] == 0xFF {
				err = c.conn.WriteMessage(websocket.BinaryMessage, message[1:])
			} else {
				err = c.conn.WriteMessage(websocket.TextMessage, message)
			}
			if err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// SendJSON sends a JSON message to the client
func (c *Client) SendJSON(msg interface{}) {
	data, err := json.Marshal(msg)
	if err != nil {
		Log.Errorw("marshal error", "error", err)
		return
	}
	c.SendRaw(data)
}

// SendRaw sends pre-marshaled bytes as a text message to the client
func (c *Client) SendRaw(data []byte) {
	defer func() { recover() }()
	select {
	case c.send <- data:
	default:
		// Client too slow, drop message
	}
}

// SendBinary sends pre-marshaled bytes as a binary WebSocket message
// Prefixes with 0xFF marker byte so WritePump can distinguish from text
func (c *Client) SendBinary(data []byte) {
	defer func() { recover() }()
	msg := make([]byte, len(data)+1)
	msg[0] = 0xFF // binary marker
	copy(msg[1:], data)
	select {
	case c.send <- msg:
	default:
	}
}

// TakeFrame implements Viewer
func (c *Client) TakeFrame() bool { return c.frameDue.Swap(false) }

// OnVisibleCellsChanged implements arena.RouterHooks
func (c *Client) OnVisibleCellsChanged(p *arena.Player) { c.frameDue.Store(true) }

// OnSpawned implements arena.RouterHooks
func (c *Client) OnSpawned(p *arena.Player) {
	c.spawnedAt = time.Now()
	c.SendJSON(Envelope{T: MsgSpawned, Data: SpawnedMsg{Name: p.CellName, Color: p.Color}})
	worldID := ""
	if w := p.World(); w != nil {
		worldID = w.ID
	}
	c.hub.analytics.Track(EvtPlayerSpawn, c.accountID(), worldID, map[string]interface{}{"pid": p.ID})
}

// OnDead implements arena.RouterHooks
func (c *Client) OnDead(p *arena.Player) {
	score, kills := p.MaxScore, p.KillCount
	c.SendJSON(Envelope{T: MsgDeath, Data: DeathMsg{Score: score, Kills: kills}})
	worldID := ""
	if w := p.World(); w != nil {
		worldID = w.ID
	}
	account := c.accountID()
	c.hub.analytics.Track(EvtPlayerDeath, account, worldID, map[string]interface{}{
		"pid":   p.ID,
		"score": score,
		"kills": kills,
	})
	if account != 0 && !c.spawnedAt.IsZero() {
		playtime := time.Since(c.spawnedAt)
		go c.hub.recordLife(account, score, kills, playtime)
	}
	c.spawnedAt = time.Time{}
}

// handleMessage routes incoming messages (single-pass decode via InEnvelope)
func (c *Client) handleMessage(raw []byte) {
	var env InEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		Log.Debugw("unmarshal error", "addr", c.remoteAddr, "error", err)
		return
	}

	switch env.T {
	case MsgList:
		c.handleList()
	case MsgJoin:
		c.handleJoin(env.D)
	case MsgLeave:
		c.handleLeave()
	case MsgSpawn, MsgSpectate, MsgQ, MsgSplit, MsgEject, MsgLinelock, MsgDualCreate, MsgDualToggle:
		c.handleIntent(env.T, env.D)
	case MsgRegister:
		c.handleRegister(env.D)
	case MsgLogin:
		c.handleLogin(env.D)
	case MsgAuth:
		c.handleResume(env.D)
	case MsgProfile:
		c.handleProfile()
	}
}

func (c *Client) sendError(msg string) {
	c.SendJSON(Envelope{T: MsgError, Data: ErrorMsg{Msg: msg}})
}

func (c *Client) handleList() {
	c.SendJSON(Envelope{T: MsgWorlds, Data: c.hub.game.Worlds()})
}

func (c *Client) handleJoin(data json.RawMessage) {
	var msg JoinMsg
	if len(data) > 0 {
		if err := json.Unmarshal(data, &msg); err != nil {
			return
		}
	}
	if c.router != nil {
		c.hub.game.Leave(c.router)
		c.router = nil
	}
	r, welcome, err := c.hub.game.Join(c, msg.SessionID)
	if err != nil {
		switch {
		case errors.Is(err, ErrWorldNotFound):
			c.sendError("world not found")
		case errors.Is(err, ErrWorldFull):
			c.sendError("world full")
		default:
			c.sendError("no world available")
		}
		return
	}
	c.router = r
	c.SendJSON(Envelope{T: MsgWelcome, Data: welcome})
}

func (c *Client) handleLeave() {
	if c.router == nil {
		return
	}
	c.hub.game.Leave(c.router)
	c.router = nil
}

// handleBinary decodes a pointer update
func (c *Client) handleBinary(msg []byte) {
	if c.router == nil {
		return
	}
	x, y, err := decodeMouse(msg)
	if err != nil {
		return
	}
	c.router.SetPointer(x, y)
}

// handleIntent forwards a control message to the router. The world picks it
// up on its next tick.
func (c *Client) handleIntent(t string, data json.RawMessage) {
	r := c.router
	if r == nil {
		return
	}
	switch t {
	case MsgSpawn:
		var msg SpawnMsg
		if len(data) > 0 && json.Unmarshal(data, &msg) != nil {
			return
		}
		r.RequestSpawn(msg.Name, trimRunes(msg.Skin, 32))
	case MsgSpectate:
		var msg SpectateMsg
		if len(data) > 0 && json.Unmarshal(data, &msg) != nil {
			return
		}
		r.RequestSpectate(arena.PlayerID(msg.PlayerID))
	case MsgQ:
		var msg QMsg
		if json.Unmarshal(data, &msg) != nil {
			return
		}
		r.SetPressingQ(msg.Down)
	case MsgSplit:
		r.RequestSplit()
	case MsgEject:
		var msg EjectMsg
		if len(data) > 0 && json.Unmarshal(data, &msg) != nil {
			return
		}
		if msg.Macro != nil {
			r.SetEjectMacro(*msg.Macro)
		} else {
			r.RequestEject()
		}
	case MsgLinelock:
		r.ToggleLinelock()
	case MsgDualCreate:
		r.RequestDualCreate()
	case MsgDualToggle:
		r.ToggleDual()
	}
}

func (c *Client) accountID() int64 {
	if acc := c.account.Load(); acc != nil {
		return acc.ID
	}
	return 0
}

// signIn binds acc to this connection. A connection already holding the
// account is signed out: lives are credited to one connection at a time.
func (c *Client) signIn(acc Account, token string) {
	c.account.Store(&acc)
	if prev := c.hub.BindAccount(acc.ID, c); prev != nil {
		prev.signOut(acc.ID)
	}
	c.SendJSON(Envelope{T: MsgAuthOK, Data: AuthOKMsg{
		Token:     token,
		Username:  acc.Name,
		AccountID: acc.ID,
	}})
}

func (c *Client) signOut(id int64) {
	if acc := c.account.Load(); acc != nil && acc.ID == id && c.account.CompareAndSwap(acc, nil) {
		c.sendError("signed in elsewhere")
	}
}

// authError maps account failures to the message shown to the player
func authError(err error) string {
	switch {
	case errors.Is(err, ErrBadUsername), errors.Is(err, ErrShortPassword),
		errors.Is(err, ErrUsernameTaken), errors.Is(err, ErrBadCredentials),
		errors.Is(err, ErrLoginThrottled):
		return err.Error()
	}
	Log.Errorw("account request failed", "error", err)
	return "internal error"
}

func (c *Client) handleRegister(data json.RawMessage) {
	if c.hub.auth == nil {
		c.sendError("accounts disabled")
		return
	}
	var msg AuthMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	acc, token, err := c.hub.auth.Register(msg.Username, msg.Password)
	if err != nil {
		c.sendError(authError(err))
		return
	}
	c.signIn(acc, token)
}

func (c *Client) handleLogin(data json.RawMessage) {
	if c.hub.auth == nil {
		c.sendError("accounts disabled")
		return
	}
	var msg AuthMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	acc, token, err := c.hub.auth.Login(msg.Username, msg.Password, c.remoteAddr)
	if err != nil {
		c.sendError(authError(err))
		return
	}
	c.signIn(acc, token)
}

func (c *Client) handleResume(data json.RawMessage) {
	if c.hub.auth == nil {
		c.sendError("accounts disabled")
		return
	}
	var msg TokenMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	acc, err := c.hub.auth.Resume(msg.Token)
	if err != nil {
		c.sendError(ErrBadToken.Error())
		return
	}
	c.signIn(acc, msg.Token)
}

func (c *Client) handleProfile() {
	acc := c.account.Load()
	if c.hub.db == nil || acc == nil {
		c.sendError("not authenticated")
		return
	}
	stats, err := c.hub.db.GetStats(acc.ID)
	if err != nil || stats == nil {
		c.sendError("profile not found")
		return
	}
	c.SendJSON(Envelope{T: MsgProfileData, Data: ProfileDataMsg{
		Username:  acc.Name,
		BestScore: stats.BestScore,
		Kills:     stats.Kills,
		Deaths:    stats.Deaths,
		Games:     stats.Games,
		Playtime:  stats.Playtime,
	}})
}
