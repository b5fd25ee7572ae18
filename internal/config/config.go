package config

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"

	"loomcc/internal/trace"
)

// Tunables holds knobs for the middle end's pass pipeline, loaded from
// loomcc.toml's [middleend] table. Zero-valued fields mean "use the
// default" except where noted.
type Tunables struct {
	// SimplifyMaxPasses bounds the fixpoint loop the simplifier runs over
	// a rewritten subtree before giving up and returning the best-effort
	// result. 0 means Defaults().SimplifyMaxPasses.
	SimplifyMaxPasses int `toml:"simplify_max_passes"`

	// StrengthenLoopBounds switches the slide-and-fold pass from the
	// ignore_loop_max substitution workaround to feeding the enclosing
	// loop's bound to prove_true as an extra fact. Both are sound; this
	// only affects how many slides the prover manages to discharge.
	StrengthenLoopBounds bool `toml:"strengthen_loop_bounds"`

	// EnableScopeReduction toggles the reduce_scopes post-pass.
	EnableScopeReduction bool `toml:"enable_scope_reduction"`

	// EnableBufferAliasing toggles the alias_buffers post-pass.
	EnableBufferAliasing bool `toml:"enable_buffer_aliasing"`

	// TraceLevel parses into trace.Level ("off", "pass", "buffer", "node").
	TraceLevel string `toml:"trace_level"`

	// PlanCacheDir is where compiled plans are cached, keyed by content
	// hash. Empty disables the cache.
	PlanCacheDir string `toml:"plan_cache_dir"`
}

// Defaults returns the tunables used when loomcc.toml is absent or a field
// is left unset.
func Defaults() Tunables {
	return Tunables{
		SimplifyMaxPasses:    8,
		StrengthenLoopBounds: false,
		EnableScopeReduction: true,
		EnableBufferAliasing: true,
		TraceLevel:           "off",
		PlanCacheDir:         "",
	}
}

type fileConfig struct {
	MiddleEnd Tunables `toml:"middleend"`
}

// Load reads loomcc.toml from path, filling in any fields left at their
// zero value with Defaults. A missing [middleend] table yields Defaults()
// unchanged.
func Load(path string) (Tunables, error) {
	def := Defaults()
	var fc fileConfig
	fc.MiddleEnd = def
	meta, err := toml.DecodeFile(path, &fc)
	if err != nil {
		return Tunables{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	t := fc.MiddleEnd
	if !meta.IsDefined("middleend", "simplify_max_passes") || t.SimplifyMaxPasses <= 0 {
		t.SimplifyMaxPasses = def.SimplifyMaxPasses
	}
	if !meta.IsDefined("middleend", "trace_level") || strings.TrimSpace(t.TraceLevel) == "" {
		t.TraceLevel = def.TraceLevel
	}
	return t, nil
}

// ParseTraceLevel resolves the configured trace level, defaulting to
// trace.LevelOff on a malformed value.
func (t Tunables) ParseTraceLevel() trace.Level {
	lvl, err := trace.ParseLevel(strings.TrimSpace(strings.ToLower(t.TraceLevel)))
	if err != nil {
		return trace.LevelOff
	}
	return lvl
}
