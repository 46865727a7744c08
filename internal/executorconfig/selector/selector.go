// Package selector holds the user's selections for one editing session and
// exposes the mutation API on top of the resolvers.
package selector

import (
	"sync"

	"go.uber.org/zap"

	"github.com/kandev/executorconfig/internal/common/logger"
	"github.com/kandev/executorconfig/internal/executorconfig/models"
	"github.com/kandev/executorconfig/internal/executorconfig/resolver"
	"github.com/kandev/executorconfig/pkg/executor"
	"github.com/kandev/executorconfig/pkg/optional"
)

// PersistFunc receives the configuration to persist after a mutation.
type PersistFunc func(cfg executor.Config)

// ResetFunc is told when a profile key change pruned stale overrides.
type ResetFunc func(from, to string)

// Option configures a Selector.
type Option func(*Selector)

// WithPersist sets the callback invoked after every mutation.
func WithPersist(fn PersistFunc) Option {
	return func(s *Selector) { s.onPersist = fn }
}

// WithPresetLookup makes the selector fetch the preset for the resolved
// executor and variant itself instead of reading Sources.Preset.
func WithPresetLookup(fn resolver.PresetFunc) Option {
	return func(s *Selector) { s.presets = fn }
}

// WithResetHook sets a callback for automatic resets.
func WithResetHook(fn ResetFunc) Option {
	return func(s *Selector) { s.onReset = fn }
}

// WithLogger sets the logger.
func WithLogger(log *logger.Logger) Option {
	return func(s *Selector) { s.logger = log }
}

// Selector is the selection store for one editing session.
//
// Reads and mutations are serialized by an internal mutex. The persist
// callback runs after the lock is released and is never retried. Each
// mutation carries a sequence number; a persist that arrives after a newer
// one has already been delivered is dropped.
type Selector struct {
	mu         sync.Mutex
	mode       models.SelectionMode
	sources    resolver.Sources
	selections models.Selections
	lastKey    string
	state      resolver.State
	seq        uint64

	persistMu sync.Mutex
	persisted uint64

	presets   resolver.PresetFunc
	onPersist PersistFunc
	onReset   ResetFunc
	logger    *logger.Logger
}

// New creates a selector with empty selections.
func New(mode models.SelectionMode, sources resolver.Sources, opts ...Option) *Selector {
	if !mode.Valid() {
		mode = models.ModeResume
	}
	s := &Selector{mode: mode, sources: sources}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Default()
	}
	s.state = s.compute()
	s.lastKey = s.state.ProfileKey()
	return s
}

// Mode returns the fixed selection mode.
func (s *Selector) Mode() models.SelectionMode {
	return s.mode
}

// State returns the current resolved state.
func (s *Selector) State() resolver.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Selections returns a copy of the current user selections.
func (s *Selector) Selections() models.Selections {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selections
}

// Snapshot returns the selections and the state resolved from them.
func (s *Selector) Snapshot() (models.Selections, resolver.State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selections, s.state
}

// Sources returns a copy of the current sources.
func (s *Selector) Sources() resolver.Sources {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sources
}

// UpdateSources applies fn to the sources and re-resolves. A resulting
// profile key change prunes the selections to executor and variant.
func (s *Selector) UpdateSources(fn func(*resolver.Sources)) resolver.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.sources)
	s.refreshLocked()
	return s.state
}

// SetExecutor replaces the selections with the given executor and its
// default variant: the first catalog variant in resume mode, null in explicit
// mode. Prior variant and override selections are discarded.
func (s *Selector) SetExecutor(id executor.ExecutorID) resolver.State {
	s.mu.Lock()
	variant := optional.Null[string]()
	if s.mode == models.ModeResume {
		if names := s.sources.Catalog.Variants(id); len(names) > 0 {
			variant = optional.Of(names[0])
		}
	}
	s.selections = models.Selections{
		Executor: optional.Of(id),
		Variant:  variant,
	}
	s.refreshLocked()
	state := s.state
	seq := s.nextSeqLocked()
	s.mu.Unlock()

	s.persist(seq, &executor.Config{Executor: id, Variant: variant})
	return state
}

// SetVariant replaces the selections with the current effective executor and
// the given variant. An unset variant is treated as null. Nothing is
// persisted while no executor is resolved.
func (s *Selector) SetVariant(variant optional.Field[string]) resolver.State {
	if !variant.IsSet() {
		variant = optional.Null[string]()
	}

	s.mu.Lock()
	effective := s.state.Executor.Effective
	exec := optional.Null[executor.ExecutorID]()
	if effective != "" {
		exec = optional.Of(effective)
	}
	s.selections = models.Selections{Executor: exec, Variant: variant}
	s.refreshLocked()
	state := s.state
	seq := s.nextSeqLocked()
	s.mu.Unlock()

	if effective != "" {
		s.persist(seq, &executor.Config{Executor: effective, Variant: variant})
	}
	return state
}

// SetOverrides merges the present fields into the selections and persists
// the freshly resolved configuration.
func (s *Selector) SetOverrides(o models.Overrides) resolver.State {
	s.mu.Lock()
	s.selections = o.MergeInto(s.selections)
	s.refreshLocked()
	state := s.state
	seq := s.nextSeqLocked()
	s.mu.Unlock()

	s.persist(seq, state.Config)
	return state
}

func (s *Selector) nextSeqLocked() uint64 {
	s.seq++
	return s.seq
}

func (s *Selector) persist(seq uint64, cfg *executor.Config) {
	if s.onPersist == nil || cfg == nil {
		return
	}
	s.persistMu.Lock()
	defer s.persistMu.Unlock()
	if seq <= s.persisted {
		s.logger.Debug("dropped stale persist",
			zap.Uint64("seq", seq),
			zap.Uint64("persisted", s.persisted))
		return
	}
	s.persisted = seq
	s.onPersist(*cfg)
}

func (s *Selector) compute() resolver.State {
	return resolver.Resolve(s.selections, s.sources, s.mode, s.presets)
}

// refreshLocked re-resolves and applies the automatic reset. The guard is the
// key string, so source changes that keep executor and variant do not prune.
func (s *Selector) refreshLocked() {
	state := s.compute()
	key := state.ProfileKey()
	if key != s.lastKey {
		prev := s.lastKey
		s.lastKey = key
		if s.selections.HasOverrides() {
			s.selections = s.selections.ProfileOnly()
			state = s.compute()
			s.logger.Debug("profile changed, dropped stale overrides",
				zap.String("from", prev),
				zap.String("to", key))
			if s.onReset != nil {
				s.onReset(prev, key)
			}
		}
	}
	s.state = state
}
