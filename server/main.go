package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config (defaults are used when empty)")
	addr := flag.String("addr", "", "HTTP listen address, overrides the config")
	clientDir := flag.String("client", "", "Path to client directory, overrides the config")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	// stderr until the config names a log file
	InitLogger("", *debug)

	cfg := DefaultConfig()
	if *configPath != "" {
		var err error
		if cfg, err = LoadConfig(*configPath); err != nil {
			Log.Fatalw("load config", "error", err)
		}
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	if *clientDir != "" {
		cfg.Server.ClientDir = *clientDir
	}
	if *debug {
		cfg.Server.Debug = true
	}

	if err := InitLogger(cfg.Server.LogPath, cfg.Server.Debug); err != nil {
		panic(err)
	}
	defer SyncLogger()

	var db *DB
	if cfg.Server.DBPath != "" {
		var err error
		if db, err = OpenDB(cfg.Server.DBPath); err != nil {
			Log.Fatalw("open database", "path", cfg.Server.DBPath, "error", err)
		}
		defer db.Close()
	}

	var analytics *Analytics
	if db != nil {
		analytics = NewAnalytics(db)
	}
	var tickLog *TickLogger
	if cfg.Server.TickLogDir != "" {
		tickLog = NewTickLogger(cfg.Server.TickLogDir)
	}

	game := NewGame(cfg, analytics, tickLog)
	go game.Run()

	hub := NewHub(game, db, analytics, cfg.Server)
	go hub.Run()

	mux := SetupRoutes(hub, cfg.Server.ClientDir)
	server := &http.Server{Addr: cfg.Server.Addr, Handler: mux}

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		Log.Infow("server starting", "addr", cfg.Server.Addr, "client", cfg.Server.ClientDir,
			"frequency", cfg.Arena.ServerFrequency, "max_worlds", cfg.Arena.WorldMaxCount)
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			Log.Fatalw("ListenAndServe", "error", err)
		}
	}()

	<-stop
	Log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		Log.Warnw("http shutdown", "error", err)
	}
	game.Stop()
	analytics.Stop()
	if err := tickLog.Close(); err != nil {
		Log.Warnw("close tick log", "error", err)
	}
}
