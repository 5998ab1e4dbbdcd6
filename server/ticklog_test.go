package main

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zstd"
)

func TestTickLoggerWritesCompressedLines(t *testing.T) {
	dir := t.TempDir()
	l := NewTickLogger(dir)
	sm := newTestManager(nil)
	s, _ := sm.Create()

	for i := 0; i < 3; i++ {
		s.World.Update()
		l.Record(s)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	files, err := filepath.Glob(filepath.Join(dir, "ticks", "ticks-*.jsonl.zst"))
	if err != nil || len(files) != 1 {
		t.Fatalf("expected one log file, got %v (%v)", files, err)
	}
	f, err := os.Open(files[0])
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		t.Fatal(err)
	}
	defer dec.Close()

	var entries []TickLogEntry
	sc := bufio.NewScanner(dec)
	for sc.Scan() {
		var e TickLogEntry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			t.Fatalf("decode line: %v", err)
		}
		entries = append(entries, e)
	}
	if err := sc.Err(); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	for i, e := range entries {
		if e.World != s.ID || e.Tick != uint64(i+1) {
			t.Errorf("entry %d: world %s tick %d", i, e.World, e.Tick)
		}
	}
}

func TestNilTickLogger(t *testing.T) {
	var l *TickLogger
	l.Record(nil)
	if err := l.Close(); err != nil {
		t.Errorf("nil close: %v", err)
	}
}
