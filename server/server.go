package main

import (
	"encoding/json"
	"net/http"
	"net/url"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/skip2/go-qrcode"
)

var uuidPathRe = regexp.MustCompile(`^/[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true // Non-browser clients don't send Origin
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return u.Host == r.Host
	},
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		Log.Debugw("write json", "error", err)
	}
}

// SetupRoutes configures HTTP routes. An empty clientDir serves only the API.
func SetupRoutes(hub *Hub, clientDir string) *http.ServeMux {
	mux := http.NewServeMux()

	if clientDir != "" {
		// Serve static files with no-cache so browsers always revalidate
		fs := http.FileServer(http.Dir(clientDir))
		mux.Handle("/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "no-cache")
			// SPA: serve index.html for root and world invite paths
			if r.URL.Path == "/" || uuidPathRe.MatchString(r.URL.Path) {
				http.ServeFile(w, r, filepath.Join(clientDir, "index.html"))
				return
			}
			fs.ServeHTTP(w, r)
		}))
	}

	// WebSocket endpoint
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		ip := extractIP(r)
		if !hub.Admit(ip) {
			http.Error(w, "too many connections", http.StatusServiceUnavailable)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			hub.Release(ip)
			Log.Debugw("upgrade error", "addr", ip, "error", err)
			return
		}

		client := NewClient(hub, conn, ip)
		hub.register <- client

		go client.WritePump()
		go client.ReadPump()
	})

	mux.HandleFunc("GET /api/worlds", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, hub.game.Worlds())
	})

	mux.HandleFunc("GET /api/worlds/{id}", func(w http.ResponseWriter, r *http.Request) {
		info, ok := hub.game.World(r.PathValue("id"))
		if !ok {
			http.Error(w, "world not found", http.StatusNotFound)
			return
		}
		writeJSON(w, info)
	})

	// QR code pointing at the world's join link
	mux.HandleFunc("GET /api/worlds/{id}/invite.png", func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		if _, ok := hub.game.World(id); !ok {
			http.Error(w, "world not found", http.StatusNotFound)
			return
		}
		link := strings.TrimRight(hub.cfg.PublicURL, "/") + "/" + id
		png, err := qrcode.Encode(link, qrcode.Medium, 256)
		if err != nil {
			Log.Errorw("qrcode encode", "world", id, "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write(png)
	})

	mux.HandleFunc("GET /api/leaderboard", func(w http.ResponseWriter, r *http.Request) {
		if hub.db == nil {
			http.Error(w, "no database", http.StatusServiceUnavailable)
			return
		}
		limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
		if err != nil || limit < 1 || limit > 100 {
			limit = 20
		}
		entries, err := hub.db.GetLeaderboard(r.URL.Query().Get("by"), limit)
		if err != nil {
			Log.Errorw("leaderboard query", "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		if entries == nil {
			entries = []LeaderboardEntry{}
		}
		writeJSON(w, entries)
	})

	mux.HandleFunc("GET /api/stats", func(w http.ResponseWriter, r *http.Request) {
		players, worlds := hub.analytics.GetLiveMetrics()
		resp := map[string]interface{}{
			"clients":  hub.ClientCount(),
			"accounts": hub.AccountsOnline(),
			"players":  players,
			"worlds":   worlds,
		}
		if hub.analytics != nil {
			dau, _ := hub.analytics.DAUCount()
			wau, _ := hub.analytics.WAUCount()
			mau, _ := hub.analytics.MAUCount()
			events, _ := hub.analytics.EventCounts(7)
			resp["dau"], resp["wau"], resp["mau"] = dau, wau, mau
			resp["events"] = events
		}
		writeJSON(w, resp)
	})

	return mux
}
