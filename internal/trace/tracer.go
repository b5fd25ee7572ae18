package trace

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// Tracer is the interface passes use to emit trace events.
type Tracer interface {
	// Emit records a trace event. Must be goroutine-safe.
	Emit(ev Event)
	// Flush ensures all buffered events are written.
	Flush() error
	// Level returns the current tracing level.
	Level() Level
	// Enabled reports whether tracing is active (Level > LevelOff).
	Enabled() bool
}

// Config configures a stream Tracer.
type Config struct {
	Level      Level
	Output     io.Writer // if nil, OutputPath is used
	OutputPath string    // "-" or "" means stderr
}

// New builds a Tracer from cfg, or the Nop tracer if cfg.Level is LevelOff.
func New(cfg Config) (Tracer, error) {
	if cfg.Level == LevelOff {
		return Nop, nil
	}
	w := cfg.Output
	if w == nil {
		if cfg.OutputPath == "" || cfg.OutputPath == "-" {
			w = os.Stderr
		} else {
			f, err := os.Create(cfg.OutputPath)
			if err != nil {
				return nil, fmt.Errorf("open trace output: %w", err)
			}
			w = f
		}
	}
	return NewStreamTracer(w, cfg.Level), nil
}

// StreamTracer writes one line per event immediately as it is emitted.
type StreamTracer struct {
	mu    sync.Mutex
	w     io.Writer
	level Level
}

// NewStreamTracer wraps w as a Tracer at the given level.
func NewStreamTracer(w io.Writer, level Level) *StreamTracer {
	return &StreamTracer{w: w, level: level}
}

func (t *StreamTracer) Emit(ev Event) {
	if !t.level.ShouldEmit(ev.Scope) {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	line := fmt.Sprintf("%s seq=%d span=%d parent=%d scope=%s %s", ev.Kind, ev.Seq, ev.SpanID, ev.ParentID, ev.Scope, ev.Name)
	if ev.Detail != "" {
		line += " // " + ev.Detail
	}
	fmt.Fprintln(t.w, line)
}

func (t *StreamTracer) Flush() error {
	if f, ok := t.w.(interface{ Sync() error }); ok {
		return f.Sync()
	}
	return nil
}

func (t *StreamTracer) Level() Level   { return t.level }
func (t *StreamTracer) Enabled() bool  { return t.level > LevelOff }
