// Package resolver computes the effective executor configuration from the
// user's selections and the layered fallback sources. Every function here is
// pure: the same inputs always give the same result.
package resolver

import (
	"github.com/kandev/executorconfig/internal/executorconfig/models"
	"github.com/kandev/executorconfig/internal/profiles"
	"github.com/kandev/executorconfig/pkg/executor"
	"github.com/kandev/executorconfig/pkg/optional"
)

// Sources are the read-only inputs supplied by the surrounding application.
type Sources struct {
	// Catalog is nil while the profile catalog is loading.
	Catalog *profiles.Catalog
	// Scratch is unset while loading and null when no draft exists.
	Scratch optional.Field[executor.Config]
	// LastUsed is nil when nothing has been submitted yet.
	LastUsed *executor.Config
	// ConfigDefault is nil when no default profile is configured.
	ConfigDefault *executor.ProfileRef
	// Preset is the preset bundle for the resolved executor and variant.
	// Ignored when a PresetFunc is passed to Resolve.
	Preset *executor.Config
}

// PresetFunc looks up the preset bundle for an executor/variant pair.
type PresetFunc func(id executor.ExecutorID, variant optional.Field[string]) *executor.Config

// ExecutorResult is the output of ResolveExecutor. An empty Effective means
// no executor could be resolved.
type ExecutorResult struct {
	Effective executor.ExecutorID   `json:"effective"`
	Options   []executor.ExecutorID `json:"options"`
}

// VariantResult is the output of ResolveVariant. Resolved is either null or
// a variant name.
type VariantResult struct {
	Resolved        optional.Field[string] `json:"resolved"`
	Options         []string               `json:"options"`
	WasUserSelected bool                   `json:"was_user_selected"`
}

// State bundles every resolved value for one set of inputs.
type State struct {
	Executor ExecutorResult   `json:"executor"`
	Variant  VariantResult    `json:"variant"`
	Config   *executor.Config `json:"config"`
	Preset   *executor.Config `json:"preset"`
}

// ProfileKey returns executor:variant for the resolved pair, or "" when no
// executor is resolved.
func (s State) ProfileKey() string {
	if s.Executor.Effective == "" {
		return ""
	}
	return executor.ProfileKey(s.Executor.Effective, s.Variant.Resolved)
}

// Resolve runs the executor, variant and override resolvers in order. When
// presets is non-nil it supplies the preset for the resolved pair, otherwise
// src.Preset is used as given.
func Resolve(sel models.Selections, src Sources, mode models.SelectionMode, presets PresetFunc) State {
	exec := ResolveExecutor(sel, src, mode)
	variant := ResolveVariant(sel, src, mode, exec.Effective)

	preset := src.Preset
	if presets != nil {
		preset = nil
		if exec.Effective != "" {
			preset = presets(exec.Effective, variant.Resolved)
		}
	}

	cfg := ResolveOverrides(OverrideInput{
		Executor:               exec.Effective,
		Variant:                variant.Resolved,
		Selections:             sel,
		Scratch:                src.Scratch,
		LastUsed:               src.LastUsed,
		Preset:                 preset,
		VariantWasUserSelected: variant.WasUserSelected,
		Mode:                   mode,
	})

	return State{Executor: exec, Variant: variant, Config: cfg, Preset: preset}
}

// ResolveExecutor picks the effective executor.
//
// Explicit mode only reads the user selection. Resume mode takes the first
// executor found in the user selection, scratch draft, last-used config,
// configured default and finally the first catalog entry.
func ResolveExecutor(sel models.Selections, src Sources, mode models.SelectionMode) ExecutorResult {
	options := src.Catalog.Executors()

	var effective optional.Field[executor.ExecutorID]
	if mode == models.ModeExplicit {
		effective = sel.Executor
	} else {
		effective = optional.FirstOf(
			optional.Const(sel.Executor),
			func() optional.Field[executor.ExecutorID] {
				scratch, ok := src.Scratch.Get()
				if !ok {
					return optional.Unset[executor.ExecutorID]()
				}
				return idField(scratch.Executor)
			},
			func() optional.Field[executor.ExecutorID] {
				if src.LastUsed == nil {
					return optional.Unset[executor.ExecutorID]()
				}
				return idField(src.LastUsed.Executor)
			},
			func() optional.Field[executor.ExecutorID] {
				if src.ConfigDefault == nil {
					return optional.Unset[executor.ExecutorID]()
				}
				return idField(src.ConfigDefault.Executor)
			},
			func() optional.Field[executor.ExecutorID] {
				if len(options) == 0 {
					return optional.Unset[executor.ExecutorID]()
				}
				return idField(options[0])
			},
		)
	}

	return ExecutorResult{Effective: effective.ValueOr(""), Options: options}
}

// ResolveVariant picks the effective variant for the resolved executor.
//
// A variant inherited from scratch, last-used or the configured default is
// only taken when that source names the same executor, so variant names never
// leak across executor namespaces.
func ResolveVariant(sel models.Selections, src Sources, mode models.SelectionMode, effective executor.ExecutorID) VariantResult {
	res := VariantResult{
		Options:         []string{},
		WasUserSelected: sel.Variant.IsSet(),
		Resolved:        optional.Null[string](),
	}
	if effective == "" {
		return res
	}
	res.Options = src.Catalog.Variants(effective)

	switch {
	case res.WasUserSelected:
		res.Resolved = sel.Variant
	case mode == models.ModeExplicit:
	default:
		res.Resolved = inheritedVariant(src, effective, res.Options)
	}
	if !res.Resolved.IsSet() {
		res.Resolved = optional.Null[string]()
	}
	return res
}

func inheritedVariant(src Sources, effective executor.ExecutorID, options []string) optional.Field[string] {
	if scratch, ok := src.Scratch.Get(); ok && scratch.Executor == effective && scratch.Variant.IsSet() {
		return scratch.Variant
	}
	if src.LastUsed != nil && src.LastUsed.Executor == effective {
		return src.LastUsed.Variant
	}
	if src.ConfigDefault != nil && src.ConfigDefault.Executor == effective {
		return src.ConfigDefault.Variant
	}
	for _, name := range options {
		if name == executor.DefaultVariant {
			return optional.Of(name)
		}
	}
	if len(options) > 0 {
		return optional.Of(options[0])
	}
	return optional.Null[string]()
}

// OverrideInput carries everything ResolveOverrides reads.
type OverrideInput struct {
	Executor               executor.ExecutorID
	Variant                optional.Field[string]
	Selections             models.Selections
	Scratch                optional.Field[executor.Config]
	LastUsed               *executor.Config
	Preset                 *executor.Config
	VariantWasUserSelected bool
	Mode                   models.SelectionMode
}

// ResolveOverrides builds the full configuration for the resolved executor
// and variant, or nil when no executor is resolved.
//
// Each override field is resolved on its own. A scratch or last-used value is
// only taken when that source has the same profile key. The preset is only
// consulted when the variant was picked by the user. reasoning_id is resolved
// after model_id and a source's reasoning_id only counts when its model_id
// equals the model already resolved.
func ResolveOverrides(in OverrideInput) *executor.Config {
	if in.Executor == "" {
		return nil
	}
	out := &executor.Config{Executor: in.Executor, Variant: in.Variant}
	key := executor.ProfileKey(in.Executor, in.Variant)

	var scratch *executor.Config
	if cfg, ok := in.Scratch.Get(); ok {
		scratch = &cfg
	}
	r := overrideResolver{in: in, key: key, scratch: scratch, out: out}

	out.ModelID = resolveField(r, accessors[string]{
		sel: func(s models.Selections) optional.Field[string] { return s.ModelID },
		cfg: func(c *executor.Config) optional.Field[string] { return c.ModelID },
	})
	out.AgentID = resolveField(r, accessors[string]{
		sel: func(s models.Selections) optional.Field[string] { return s.AgentID },
		cfg: func(c *executor.Config) optional.Field[string] { return c.AgentID },
	})
	out.ReasoningID = resolveField(r, accessors[string]{
		sel:          func(s models.Selections) optional.Field[string] { return s.ReasoningID },
		cfg:          func(c *executor.Config) optional.Field[string] { return c.ReasoningID },
		matchesModel: true,
	})
	out.PermissionPolicy = resolveField(r, accessors[executor.PermissionPolicy]{
		sel: func(s models.Selections) optional.Field[executor.PermissionPolicy] { return s.PermissionPolicy },
		cfg: func(c *executor.Config) optional.Field[executor.PermissionPolicy] { return c.PermissionPolicy },
	})
	return out
}

type overrideResolver struct {
	in      OverrideInput
	key     string
	scratch *executor.Config
	out     *executor.Config
}

type accessors[T any] struct {
	sel func(models.Selections) optional.Field[T]
	cfg func(*executor.Config) optional.Field[T]
	// matchesModel requires a source's model_id to equal the resolved one.
	matchesModel bool
}

// qualifies reports whether c may contribute a value to the field.
func (r overrideResolver) qualifies(c *executor.Config, matchesModel bool) bool {
	if c == nil || c.ProfileKey() != r.key {
		return false
	}
	return !matchesModel || optional.Equal(c.ModelID, r.out.ModelID)
}

func resolveField[T any](r overrideResolver, a accessors[T]) optional.Field[T] {
	if v := a.sel(r.in.Selections); v.IsSet() {
		return v
	}
	if r.in.Mode == models.ModeExplicit {
		return optional.Unset[T]()
	}
	return optional.FirstOf(
		func() optional.Field[T] {
			if !r.qualifies(r.scratch, a.matchesModel) {
				return optional.Unset[T]()
			}
			return a.cfg(r.scratch)
		},
		func() optional.Field[T] {
			if !r.qualifies(r.in.LastUsed, a.matchesModel) {
				return optional.Unset[T]()
			}
			return a.cfg(r.in.LastUsed)
		},
		func() optional.Field[T] {
			if !r.in.VariantWasUserSelected || r.in.Preset == nil {
				return optional.Unset[T]()
			}
			return a.cfg(r.in.Preset)
		},
	)
}

func idField(id executor.ExecutorID) optional.Field[executor.ExecutorID] {
	if id == "" {
		return optional.Unset[executor.ExecutorID]()
	}
	return optional.Of(id)
}
