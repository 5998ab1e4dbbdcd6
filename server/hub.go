package main

import (
	"sync"
	"time"
)

// Hub owns the set of live connections. It admits sockets under the
// connection caps, detaches departing clients from their world and keeps
// each account bound to at most one connection.
type Hub struct {
	mu         sync.RWMutex
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	game       *Game
	cfg        ServerConfig

	// accessed from HTTP handlers
	connMu     sync.Mutex
	ipConns    map[string]int
	totalConns int

	db        *DB
	auth      *Auth
	analytics *Analytics

	accMu    sync.Mutex
	accounts map[int64]*Client
}

// NewHub creates a Hub. db and analytics may be nil; accounts are disabled
// without a database.
func NewHub(game *Game, db *DB, analytics *Analytics, cfg ServerConfig) *Hub {
	h := &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client, 64),
		unregister: make(chan *Client, 64),
		game:       game,
		cfg:        cfg,
		ipConns:    make(map[string]int),
		db:         db,
		analytics:  analytics,
		accounts:   make(map[int64]*Client),
	}
	if db != nil {
		h.auth = NewAuth(db)
	}
	return h
}

// Admit reserves a connection slot for ip, or reports that a cap is reached.
// Every admitted connection must be handed back with Release.
func (h *Hub) Admit(ip string) bool {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	if h.totalConns >= h.cfg.MaxTotalConns || h.ipConns[ip] >= h.cfg.MaxConnsPerIP {
		return false
	}
	h.ipConns[ip]++
	h.totalConns++
	return true
}

// Release frees a slot taken by Admit
func (h *Hub) Release(ip string) {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	h.ipConns[ip]--
	if h.ipConns[ip] <= 0 {
		delete(h.ipConns, ip)
	}
	h.totalConns--
}

// Run processes register/unregister events
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			// out of the world before the send channel closes
			if client.router != nil {
				h.game.Disconnect(client.router)
			}
			if id := client.accountID(); id != 0 {
				h.ReleaseAccount(id, client)
			}
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
		}
	}
}

// BindAccount makes c the connection for account id and returns the
// connection that held it before, if any
func (h *Hub) BindAccount(id int64, c *Client) *Client {
	h.accMu.Lock()
	defer h.accMu.Unlock()
	prev := h.accounts[id]
	h.accounts[id] = c
	if prev == c {
		return nil
	}
	return prev
}

// ReleaseAccount unbinds id if c still holds it
func (h *Hub) ReleaseAccount(id int64, c *Client) {
	h.accMu.Lock()
	defer h.accMu.Unlock()
	if h.accounts[id] == c {
		delete(h.accounts, id)
	}
}

// AccountsOnline returns the number of signed-in connections
func (h *Hub) AccountsOnline() int {
	h.accMu.Lock()
	defer h.accMu.Unlock()
	return len(h.accounts)
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// TotalConns returns the number of admitted connections
func (h *Hub) TotalConns() int {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	return h.totalConns
}

// recordLife persists one finished life of an account
func (h *Hub) recordLife(accountID int64, score float64, kills int, playtime time.Duration) {
	if h.db == nil || accountID == 0 {
		return
	}
	if err := h.db.RecordLife(accountID, score, kills, int64(playtime/time.Second)); err != nil {
		Log.Errorw("record life", "account", accountID, "error", err)
	}
}
