package selector

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kandev/executorconfig/internal/common/logger"
	"github.com/kandev/executorconfig/internal/executorconfig/models"
	"github.com/kandev/executorconfig/internal/executorconfig/resolver"
	"github.com/kandev/executorconfig/internal/profiles"
	"github.com/kandev/executorconfig/pkg/executor"
	"github.com/kandev/executorconfig/pkg/optional"
)

func testCatalog() *profiles.Catalog {
	return profiles.NewCatalog([]profiles.ExecutorProfile{
		{Executor: "A", Variants: []profiles.Variant{
			{Name: "DEFAULT"},
			{Name: "fast", Preset: profiles.Preset{ModelID: optional.Of("fast-model")}},
		}},
		{Executor: "B", Variants: []profiles.Variant{
			{Name: "v1", Preset: profiles.Preset{AgentID: optional.Of("b-agent")}},
			{Name: "v2"},
		}},
	})
}

type recorder struct {
	mu    sync.Mutex
	calls []executor.Config
}

func (r *recorder) persist(cfg executor.Config) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, cfg)
}

func (r *recorder) last(t *testing.T) executor.Config {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	require.NotEmpty(t, r.calls)
	return r.calls[len(r.calls)-1]
}

func newSelector(mode models.SelectionMode, src resolver.Sources, rec *recorder, opts ...Option) *Selector {
	catalog := src.Catalog
	opts = append([]Option{
		WithPersist(rec.persist),
		WithLogger(logger.Nop()),
		WithPresetLookup(func(id executor.ExecutorID, v optional.Field[string]) *executor.Config {
			return catalog.Preset(id, v)
		}),
	}, opts...)
	return New(mode, src, opts...)
}

func TestSetExecutorResetsSelections(t *testing.T) {
	rec := &recorder{}
	s := newSelector(models.ModeResume, resolver.Sources{Catalog: testCatalog()}, rec)

	s.SetExecutor("A")
	s.SetVariant(optional.Of("fast"))
	s.SetOverrides(models.Overrides{ModelID: optional.Of("m1")})
	require.Equal(t, "m1", s.Selections().ModelID.ValueOr(""))

	state := s.SetExecutor("B")

	sel := s.Selections()
	assert.Equal(t, optional.Of[executor.ExecutorID]("B"), sel.Executor)
	assert.Equal(t, optional.Of("v1"), sel.Variant)
	assert.False(t, sel.ModelID.IsSet())
	assert.Equal(t, "B:v1", state.ProfileKey())

	persisted := rec.last(t)
	assert.Equal(t, executor.Config{Executor: "B", Variant: optional.Of("v1")}, persisted)
}

func TestSetExecutorExplicitUsesNullVariant(t *testing.T) {
	rec := &recorder{}
	s := newSelector(models.ModeExplicit, resolver.Sources{Catalog: testCatalog()}, rec)

	state := s.SetExecutor("B")
	assert.True(t, s.Selections().Variant.IsNull())
	assert.True(t, state.Variant.Resolved.IsNull())
	assert.Equal(t, executor.Config{Executor: "B", Variant: optional.Null[string]()}, rec.last(t))
}

func TestSetExecutorUnknownHasNullVariant(t *testing.T) {
	rec := &recorder{}
	s := newSelector(models.ModeResume, resolver.Sources{Catalog: testCatalog()}, rec)
	s.SetExecutor("Z")
	assert.True(t, s.Selections().Variant.IsNull())
	assert.Empty(t, s.State().Variant.Options)
}

func TestSetVariantKeepsEffectiveExecutor(t *testing.T) {
	rec := &recorder{}
	src := resolver.Sources{
		Catalog:  testCatalog(),
		LastUsed: &executor.Config{Executor: "A", Variant: optional.Of("DEFAULT"), AgentID: optional.Of("old")},
	}
	s := newSelector(models.ModeResume, src, rec)
	s.SetOverrides(models.Overrides{PermissionPolicy: optional.Of(executor.PermissionPlan)})

	state := s.SetVariant(optional.Of("fast"))
	sel := s.Selections()
	assert.Equal(t, optional.Of[executor.ExecutorID]("A"), sel.Executor)
	assert.Equal(t, optional.Of("fast"), sel.Variant)
	assert.False(t, sel.PermissionPolicy.IsSet())

	// a user-picked variant pulls in its preset
	require.NotNil(t, state.Config)
	assert.Equal(t, "fast-model", state.Config.ModelID.ValueOr(""))
	assert.Equal(t, executor.Config{Executor: "A", Variant: optional.Of("fast")}, rec.last(t))
}

func TestSetVariantUnsetIsNull(t *testing.T) {
	rec := &recorder{}
	s := newSelector(models.ModeResume, resolver.Sources{Catalog: testCatalog()}, rec)
	s.SetVariant(optional.Unset[string]())
	assert.True(t, s.Selections().Variant.IsNull())
	assert.Equal(t, "A:DEFAULT", s.State().ProfileKey())
}

func TestSetVariantWithoutExecutorDoesNotPersist(t *testing.T) {
	rec := &recorder{}
	s := newSelector(models.ModeExplicit, resolver.Sources{Catalog: testCatalog()}, rec)
	s.SetVariant(optional.Of("fast"))
	assert.Empty(t, rec.calls)
	assert.Nil(t, s.State().Config)
}

func TestSetOverridesModelClearsReasoning(t *testing.T) {
	rec := &recorder{}
	s := newSelector(models.ModeResume, resolver.Sources{Catalog: testCatalog()}, rec)
	s.SetOverrides(models.Overrides{ModelID: optional.Of("m1"), ReasoningID: optional.Of("r1")})
	require.Equal(t, "r1", s.Selections().ReasoningID.ValueOr(""))

	s.SetOverrides(models.Overrides{ModelID: optional.Of("m2")})
	sel := s.Selections()
	assert.Equal(t, "m2", sel.ModelID.ValueOr(""))
	assert.False(t, sel.ReasoningID.IsSet())

	persisted := rec.last(t)
	assert.Equal(t, "m2", persisted.ModelID.ValueOr(""))
	assert.False(t, persisted.ReasoningID.IsSet())
}

func TestSetOverridesEmptyIsNoop(t *testing.T) {
	rec := &recorder{}
	src := resolver.Sources{
		Catalog:  testCatalog(),
		LastUsed: &executor.Config{Executor: "A", Variant: optional.Of("fast"), ModelID: optional.Of("gpt")},
	}
	s := newSelector(models.ModeResume, src, rec)
	before := s.State()
	after := s.SetOverrides(models.Overrides{})
	assert.Equal(t, before, after)
	assert.Equal(t, *before.Config, rec.last(t))
}

func TestAutoResetOnSourceChange(t *testing.T) {
	rec := &recorder{}
	var resets []string
	s := newSelector(models.ModeResume, resolver.Sources{Catalog: testCatalog()}, rec,
		WithResetHook(func(from, to string) { resets = append(resets, from+"->"+to) }))

	s.SetOverrides(models.Overrides{AgentID: optional.Of("stale")})
	require.Equal(t, "A:DEFAULT", s.State().ProfileKey())

	// scratch arrives late and points elsewhere
	state := s.UpdateSources(func(src *resolver.Sources) {
		src.Scratch = optional.Of(executor.Config{Executor: "B", Variant: optional.Of("v2")})
	})
	assert.Equal(t, "B:v2", state.ProfileKey())
	assert.False(t, s.Selections().AgentID.IsSet())
	assert.False(t, state.Config.AgentID.IsSet())
	assert.Equal(t, []string{"A:DEFAULT->B:v2"}, resets)
}

func TestNoResetWhenKeyUnchanged(t *testing.T) {
	rec := &recorder{}
	s := newSelector(models.ModeResume, resolver.Sources{Catalog: testCatalog()}, rec)
	s.SetOverrides(models.Overrides{AgentID: optional.Of("keep")})

	s.UpdateSources(func(src *resolver.Sources) {
		src.ConfigDefault = &executor.ProfileRef{Executor: "A", Variant: optional.Null[string]()}
	})
	assert.Equal(t, "keep", s.Selections().AgentID.ValueOr(""))
}

func TestCatalogLoadingTransition(t *testing.T) {
	rec := &recorder{}
	s := newSelector(models.ModeResume, resolver.Sources{}, rec)
	assert.Nil(t, s.State().Config)
	assert.Empty(t, s.State().Executor.Options)

	state := s.UpdateSources(func(src *resolver.Sources) { src.Catalog = testCatalog() })
	assert.Equal(t, executor.ExecutorID("A"), state.Executor.Effective)
	assert.Equal(t, []executor.ExecutorID{"A", "B"}, state.Executor.Options)
}

func TestPersistRunsOutsideLock(t *testing.T) {
	var s *Selector
	var seen resolver.State
	s = New(models.ModeResume, resolver.Sources{Catalog: testCatalog()},
		WithLogger(logger.Nop()),
		WithPersist(func(executor.Config) { seen = s.State() }))

	s.SetExecutor("B")
	assert.Equal(t, "B:v1", seen.ProfileKey())
}

func TestStalePersistIsDropped(t *testing.T) {
	rec := &recorder{}
	s := newSelector(models.ModeResume, resolver.Sources{Catalog: testCatalog()}, rec)

	newer := executor.Config{Executor: "B", Variant: optional.Of("v2")}
	older := executor.Config{Executor: "A", Variant: optional.Of("fast")}
	s.persist(2, &newer)
	s.persist(1, &older)

	require.Len(t, rec.calls, 1)
	assert.Equal(t, newer, rec.last(t))
}

func TestConcurrentMutationsPersistLatestState(t *testing.T) {
	rec := &recorder{}
	s := newSelector(models.ModeResume, resolver.Sources{Catalog: testCatalog()}, rec)

	var wg sync.WaitGroup
	for _, m := range []string{"m1", "m2", "m3", "m4", "m5", "m6", "m7", "m8"} {
		wg.Add(1)
		go func(m string) {
			defer wg.Done()
			s.SetOverrides(models.Overrides{ModelID: optional.Of(m)})
		}(m)
	}
	wg.Wait()

	final := s.State()
	require.NotNil(t, final.Config)
	assert.Equal(t, *final.Config, rec.last(t))
}

