package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/vfxecho/Aetlis/server/arena"
)

// jsonlWriter appends JSON lines to an hourly zstd-compressed file
type jsonlWriter struct {
	dir    string
	prefix string

	mu   sync.Mutex
	hour string
	f    *os.File
	enc  *zstd.Encoder
	buf  *bufio.Writer
}

func newJSONLWriter(dir, prefix string) *jsonlWriter {
	return &jsonlWriter{dir: dir, prefix: prefix}
}

func (w *jsonlWriter) Write(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	hour := time.Now().UTC().Format("2006-01-02-15")
	if hour != w.hour {
		if err := w.rotate(hour); err != nil {
			return err
		}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	b = append(b, '\n')
	if _, err := w.buf.Write(b); err != nil {
		return err
	}
	return w.buf.Flush()
}

func (w *jsonlWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeFile()
}

func (w *jsonlWriter) rotate(hour string) error {
	if err := w.closeFile(); err != nil {
		return err
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return err
	}
	path := filepath.Join(w.dir, fmt.Sprintf("%s-%s.jsonl.zst", w.prefix, hour))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	w.f, w.enc, w.hour = f, enc, hour
	w.buf = bufio.NewWriterSize(enc, 64*1024)
	return nil
}

func (w *jsonlWriter) closeFile() error {
	var err error
	if w.buf != nil {
		_ = w.buf.Flush()
		w.buf = nil
	}
	if w.enc != nil {
		err = w.enc.Close()
		w.enc = nil
	}
	if w.f != nil {
		_ = w.f.Close()
		w.f = nil
	}
	w.hour = ""
	return err
}

// TickLogEntry is one sampled world tick
type TickLogEntry struct {
	Time   time.Time          `json:"time"`
	World  string             `json:"world"`
	Tick   uint64             `json:"tick"`
	Cells  int                `json:"cells"`
	Stats  arena.WorldStats   `json:"stats"`
	Timing arena.TimingMatrix `json:"timing"`
}

// TickLogger samples world ticks to compressed JSONL files. A nil
// *TickLogger drops everything.
type TickLogger struct{ w *jsonlWriter }

// NewTickLogger writes under dir/ticks
func NewTickLogger(dir string) *TickLogger {
	return &TickLogger{w: newJSONLWriter(filepath.Join(dir, "ticks"), "ticks")}
}

// Record writes s's last tick
func (l *TickLogger) Record(s *Session) {
	if l == nil {
		return
	}
	err := l.w.Write(TickLogEntry{
		Time:   time.Now().UTC(),
		World:  s.ID,
		Tick:   s.World.Tick(),
		Cells:  len(s.World.Cells()),
		Stats:  s.World.Stats(),
		Timing: s.World.Timing(),
	})
	if err != nil {
		Log.Warnw("tick log write failed", "world", s.ID, "error", err)
	}
}

func (l *TickLogger) Close() error {
	if l == nil {
		return nil
	}
	return l.w.Close()
}
