// Package journal persists loading events to a rotating JSONL file and reads
// them back for reporting.
package journal

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/kilianp07/lazyload/core/events"
	"github.com/kilianp07/lazyload/core/logger"
	"github.com/kilianp07/lazyload/internal/eventbus"
)

// Config controls the journal file and its rotation.
type Config struct {
	Path       string `json:"path" yaml:"path"`
	MaxSizeMB  int    `json:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int    `json:"max_backups" yaml:"max_backups"`
	MaxAgeDays int    `json:"max_age_days" yaml:"max_age_days"`
}

// SetDefaults fills rotation limits left at zero.
func (c *Config) SetDefaults() {
	if c.MaxSizeMB <= 0 {
		c.MaxSizeMB = 10
	}
	if c.MaxBackups <= 0 {
		c.MaxBackups = 3
	}
	if c.MaxAgeDays <= 0 {
		c.MaxAgeDays = 7
	}
}

// Query filters journal entries. Zero fields match everything.
type Query struct {
	Start   time.Time
	End     time.Time
	Feature string
	Kinds   []events.Kind
}

func (q Query) match(e events.Event) bool {
	if !q.Start.IsZero() && e.Time.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && e.Time.After(q.End) {
		return false
	}
	if q.Feature != "" && e.Feature != q.Feature {
		return false
	}
	if len(q.Kinds) == 0 {
		return true
	}
	for _, k := range q.Kinds {
		if k == e.Kind {
			return true
		}
	}
	return false
}

// Journal appends events as JSON lines with size based rotation.
type Journal struct {
	mu   sync.Mutex
	out  *lumberjack.Logger
	path string
	log  logger.Logger
}

// Open creates the journal directory if needed.
func Open(cfg Config, log logger.Logger) (*Journal, error) {
	cfg.SetDefaults()
	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	lj := &lumberjack.Logger{
		Filename:   cfg.Path,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
	}
	return &Journal{out: lj, path: cfg.Path, log: logger.OrNop(log)}, nil
}

// Append writes one event.
func (j *Journal) Append(e events.Event) error {
	if e.Err != nil && e.Error == "" {
		e.Error = e.Err.Error()
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	return json.NewEncoder(j.out).Encode(e)
}

// Observe implements events.Observer. Write errors are logged.
func (j *Journal) Observe(e events.Event) {
	if err := j.Append(e); err != nil {
		j.log.Warnw("journal append failed", map[string]any{"error": err, "event": e.Kind.String()})
	}
}

// Follow appends every event published on bus until ctx ends.
func (j *Journal) Follow(ctx context.Context, bus *eventbus.TypedBus[events.Event]) <-chan struct{} {
	ch := bus.Subscribe()
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer bus.Unsubscribe(ch)
		for {
			select {
			case <-ctx.Done():
				return
			case e, ok := <-ch:
				if !ok {
					return
				}
				j.Observe(e)
			}
		}
	}()
	return done
}

// Query reads the active file and its rotated backups.
func (j *Journal) Query(ctx context.Context, q Query) ([]events.Event, error) {
	return Read(ctx, j.path, q)
}

// Close closes the current file.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.out.Close()
}

// Read scans path and its rotated backups without opening a writer. Results
// are ordered by event time. Malformed lines are skipped.
func Read(ctx context.Context, path string, q Query) ([]events.Event, error) {
	files, err := filepath.Glob(backupPattern(path))
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); err == nil {
		files = append(files, path)
	}
	var res []events.Event
	for _, name := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		f, err := os.Open(name)
		if err != nil {
			continue
		}
		sc := bufio.NewScanner(f)
		sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
		for sc.Scan() {
			var e events.Event
			if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
				continue
			}
			if q.match(e) {
				res = append(res, e)
			}
		}
		_ = f.Close()
	}
	sort.SliceStable(res, func(a, b int) bool { return res[a].Time.Before(res[b].Time) })
	return res, nil
}

// backupPattern matches lumberjack's <name>-<timestamp><ext> backups.
func backupPattern(path string) string {
	ext := filepath.Ext(path)
	base := path[:len(path)-len(ext)]
	return base + "-*" + ext
}
