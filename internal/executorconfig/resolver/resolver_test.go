package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kandev/executorconfig/internal/executorconfig/models"
	"github.com/kandev/executorconfig/internal/profiles"
	"github.com/kandev/executorconfig/pkg/executor"
	"github.com/kandev/executorconfig/pkg/optional"
)

func testCatalog() *profiles.Catalog {
	return profiles.NewCatalog([]profiles.ExecutorProfile{
		{Executor: "A", Variants: []profiles.Variant{
			{Name: "DEFAULT"},
			{Name: "fast", Preset: profiles.Preset{ModelID: optional.Of("preset-model"), ReasoningID: optional.Of("low")}},
		}},
		{Executor: "B", Variants: []profiles.Variant{{Name: "v1"}, {Name: "v2"}}},
		{Executor: "C", Variants: []profiles.Variant{{Name: "DEFAULT"}}},
	})
}

func cfg(id executor.ExecutorID, variant string) executor.Config {
	return executor.Config{Executor: id, Variant: optional.Of(variant)}
}

func ptr(c executor.Config) *executor.Config { return &c }

func TestResolveExecutorPriority(t *testing.T) {
	src := Sources{
		Catalog:       testCatalog(),
		Scratch:       optional.Of(cfg("A", "DEFAULT")),
		LastUsed:      ptr(cfg("B", "v1")),
		ConfigDefault: &executor.ProfileRef{Executor: "C"},
	}
	sel := models.Selections{}

	assert.Equal(t, executor.ExecutorID("A"), ResolveExecutor(sel, src, models.ModeResume).Effective)

	src.Scratch = optional.Null[executor.Config]()
	assert.Equal(t, executor.ExecutorID("B"), ResolveExecutor(sel, src, models.ModeResume).Effective)

	src.LastUsed = nil
	assert.Equal(t, executor.ExecutorID("C"), ResolveExecutor(sel, src, models.ModeResume).Effective)

	src.ConfigDefault = nil
	assert.Equal(t, executor.ExecutorID("A"), ResolveExecutor(sel, src, models.ModeResume).Effective, "falls back to first catalog entry")

	sel.Executor = optional.Of[executor.ExecutorID]("C")
	assert.Equal(t, executor.ExecutorID("C"), ResolveExecutor(sel, src, models.ModeResume).Effective)
}

func TestResolveExecutorNullSelectionFallsThrough(t *testing.T) {
	src := Sources{Catalog: testCatalog(), LastUsed: ptr(cfg("B", "v1"))}
	sel := models.Selections{Executor: optional.Null[executor.ExecutorID]()}
	assert.Equal(t, executor.ExecutorID("B"), ResolveExecutor(sel, src, models.ModeResume).Effective)
}

func TestResolveExecutorWithoutCatalog(t *testing.T) {
	res := ResolveExecutor(models.Selections{}, Sources{}, models.ModeResume)
	assert.Empty(t, res.Effective)
	assert.Empty(t, res.Options)
	assert.NotNil(t, res.Options)
}

func TestExplicitModeIsolation(t *testing.T) {
	sel := models.Selections{
		Executor: optional.Of[executor.ExecutorID]("B"),
		ModelID:  optional.Of("m1"),
	}
	variants := []Sources{
		{Catalog: testCatalog()},
		{
			Catalog:       testCatalog(),
			Scratch:       optional.Of(executor.Config{Executor: "B", Variant: optional.Of("v2"), AgentID: optional.Of("x")}),
			LastUsed:      &executor.Config{Executor: "B", Variant: optional.Of("v1"), ReasoningID: optional.Of("r")},
			ConfigDefault: &executor.ProfileRef{Executor: "A", Variant: optional.Of("fast")},
		},
		{
			Catalog:       testCatalog(),
			Scratch:       optional.Null[executor.Config](),
			ConfigDefault: &executor.ProfileRef{Executor: "B", Variant: optional.Of("v2")},
		},
	}

	want := Resolve(sel, variants[0], models.ModeExplicit, nil)
	for _, src := range variants[1:] {
		got := Resolve(sel, src, models.ModeExplicit, nil)
		assert.Equal(t, want.Executor.Effective, got.Executor.Effective)
		assert.Equal(t, want.Variant.Resolved, got.Variant.Resolved)
		assert.Equal(t, want.Config, got.Config)
	}

	require.NotNil(t, want.Config)
	assert.True(t, want.Config.Variant.IsNull())
	assert.Equal(t, "m1", want.Config.ModelID.ValueOr(""))
	assert.False(t, want.Config.AgentID.IsSet())
}

func TestExplicitModeWithoutExecutor(t *testing.T) {
	src := Sources{Catalog: testCatalog(), LastUsed: ptr(cfg("A", "fast"))}
	st := Resolve(models.Selections{}, src, models.ModeExplicit, nil)
	assert.Empty(t, st.Executor.Effective)
	assert.True(t, st.Variant.Resolved.IsNull())
	assert.Nil(t, st.Config)
	assert.Empty(t, st.ProfileKey())
}

func TestResolveVariant(t *testing.T) {
	catalog := testCatalog()
	tests := []struct {
		name     string
		sel      models.Selections
		src      Sources
		mode     models.SelectionMode
		exec     executor.ExecutorID
		want     optional.Field[string]
		wantUser bool
	}{
		{
			name:     "user selection wins",
			sel:      models.Selections{Variant: optional.Of("fast")},
			src:      Sources{Catalog: catalog, LastUsed: ptr(cfg("A", "DEFAULT"))},
			mode:     models.ModeResume,
			exec:     "A",
			want:     optional.Of("fast"),
			wantUser: true,
		},
		{
			name:     "explicit null selection is user selected",
			sel:      models.Selections{Variant: optional.Null[string]()},
			src:      Sources{Catalog: catalog, LastUsed: ptr(cfg("A", "fast"))},
			mode:     models.ModeResume,
			exec:     "A",
			want:     optional.Null[string](),
			wantUser: true,
		},
		{
			name: "explicit mode without selection is null",
			src:  Sources{Catalog: catalog, LastUsed: ptr(cfg("A", "fast"))},
			mode: models.ModeExplicit,
			exec: "A",
			want: optional.Null[string](),
		},
		{
			name: "scratch for same executor",
			src:  Sources{Catalog: catalog, Scratch: optional.Of(cfg("A", "fast")), LastUsed: ptr(cfg("A", "DEFAULT"))},
			mode: models.ModeResume,
			exec: "A",
			want: optional.Of("fast"),
		},
		{
			name: "scratch with null variant counts as defined",
			src: Sources{
				Catalog:  catalog,
				Scratch:  optional.Of(executor.Config{Executor: "A", Variant: optional.Null[string]()}),
				LastUsed: ptr(cfg("A", "fast")),
			},
			mode: models.ModeResume,
			exec: "A",
			want: optional.Null[string](),
		},
		{
			name: "scratch without variant falls to last used",
			src: Sources{
				Catalog:  catalog,
				Scratch:  optional.Of(executor.Config{Executor: "A"}),
				LastUsed: ptr(cfg("A", "fast")),
			},
			mode: models.ModeResume,
			exec: "A",
			want: optional.Of("fast"),
		},
		{
			name: "scratch for other executor is ignored",
			src:  Sources{Catalog: catalog, Scratch: optional.Of(cfg("B", "v9"))},
			mode: models.ModeResume,
			exec: "A",
			want: optional.Of("DEFAULT"),
		},
		{
			name: "config default for same executor",
			src:  Sources{Catalog: catalog, LastUsed: ptr(cfg("C", "DEFAULT")), ConfigDefault: &executor.ProfileRef{Executor: "B", Variant: optional.Of("v2")}},
			mode: models.ModeResume,
			exec: "B",
			want: optional.Of("v2"),
		},
		{
			name: "first option when no DEFAULT",
			src:  Sources{Catalog: catalog},
			mode: models.ModeResume,
			exec: "B",
			want: optional.Of("v1"),
		},
		{
			name: "null when executor has no variants",
			src:  Sources{Catalog: catalog},
			mode: models.ModeResume,
			exec: "UNKNOWN",
			want: optional.Null[string](),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveVariant(tt.sel, tt.src, tt.mode, tt.exec)
			assert.Equal(t, tt.want, got.Resolved)
			assert.Equal(t, tt.wantUser, got.WasUserSelected)
		})
	}
}

func TestVariantNamespaceGuard(t *testing.T) {
	src := Sources{Catalog: testCatalog(), Scratch: optional.Of(cfg("B", "v9"))}
	got := ResolveVariant(models.Selections{}, src, models.ModeResume, "A")
	assert.NotEqual(t, optional.Of("v9"), got.Resolved)
	assert.Equal(t, []string{"DEFAULT", "fast"}, got.Options)
}

func TestResolveOverridesProfileKeyMatch(t *testing.T) {
	scratch := executor.Config{Executor: "A", Variant: optional.Of("fast"), AgentID: optional.Of("scratch-agent")}
	lastUsed := &executor.Config{Executor: "A", Variant: optional.Null[string](), AgentID: optional.Of("last-agent")}

	got := ResolveOverrides(OverrideInput{
		Executor: "A",
		Variant:  optional.Of("DEFAULT"),
		Scratch:  optional.Of(scratch),
		LastUsed: lastUsed,
		Mode:     models.ModeResume,
	})
	require.NotNil(t, got)
	// null variant keys as DEFAULT, so last used matches and scratch does not
	assert.Equal(t, "last-agent", got.AgentID.ValueOr(""))
	assert.False(t, got.ModelID.IsSet())
}

func TestResolveOverridesReasoningRequiresModelMatch(t *testing.T) {
	scratch := executor.Config{
		Executor:    "A",
		Variant:     optional.Of("DEFAULT"),
		ModelID:     optional.Of("m1"),
		ReasoningID: optional.Of("r1"),
	}
	in := OverrideInput{
		Executor:   "A",
		Variant:    optional.Of("DEFAULT"),
		Selections: models.Selections{ModelID: optional.Of("m2")},
		Scratch:    optional.Of(scratch),
		Mode:       models.ModeResume,
	}
	got := ResolveOverrides(in)
	require.NotNil(t, got)
	assert.Equal(t, "m2", got.ModelID.ValueOr(""))
	assert.False(t, got.ReasoningID.IsSet())

	in.Selections = models.Selections{}
	got = ResolveOverrides(in)
	assert.Equal(t, "m1", got.ModelID.ValueOr(""))
	assert.Equal(t, "r1", got.ReasoningID.ValueOr(""))
}

func TestResolveOverridesPresetOnlyWhenUserSelected(t *testing.T) {
	preset := &executor.Config{Executor: "A", Variant: optional.Of("fast"), ModelID: optional.Of("preset-model"), ReasoningID: optional.Of("low")}
	in := OverrideInput{
		Executor: "A",
		Variant:  optional.Of("fast"),
		Preset:   preset,
		Mode:     models.ModeResume,
	}
	got := ResolveOverrides(in)
	assert.False(t, got.ModelID.IsSet())

	in.VariantWasUserSelected = true
	got = ResolveOverrides(in)
	assert.Equal(t, "preset-model", got.ModelID.ValueOr(""))
	assert.Equal(t, "low", got.ReasoningID.ValueOr(""))
}

func TestResolveOverridesNullFallsThroughSources(t *testing.T) {
	in := OverrideInput{
		Executor: "A",
		Variant:  optional.Of("fast"),
		Scratch:  optional.Of(executor.Config{Executor: "A", Variant: optional.Of("fast"), AgentID: optional.Null[string]()}),
		LastUsed: &executor.Config{Executor: "A", Variant: optional.Of("fast"), AgentID: optional.Of("last")},
		Mode:     models.ModeResume,
	}
	assert.Equal(t, "last", ResolveOverrides(in).AgentID.ValueOr(""))

	// null ?? undefined is undefined
	in.LastUsed = nil
	assert.False(t, ResolveOverrides(in).AgentID.IsSet())

	in.Selections = models.Selections{AgentID: optional.Null[string]()}
	in.LastUsed = &executor.Config{Executor: "A", Variant: optional.Of("fast"), AgentID: optional.Of("last")}
	assert.True(t, ResolveOverrides(in).AgentID.IsNull(), "a user null is an explicit clear")
}

func TestResolveOverridesNullFromLastSource(t *testing.T) {
	in := OverrideInput{
		Executor:               "A",
		Variant:                optional.Of("fast"),
		Scratch:                optional.Null[executor.Config](),
		Preset:                 &executor.Config{Executor: "A", Variant: optional.Of("fast"), AgentID: optional.Null[string]()},
		VariantWasUserSelected: true,
		Mode:                   models.ModeResume,
	}
	got := ResolveOverrides(in)
	require.NotNil(t, got)
	assert.True(t, got.AgentID.IsNull())
	assert.False(t, got.ModelID.IsSet())
}

func TestResolveIdempotent(t *testing.T) {
	sel := models.Selections{Variant: optional.Of("fast")}
	src := Sources{Catalog: testCatalog(), LastUsed: ptr(cfg("A", "DEFAULT"))}
	presets := func(id executor.ExecutorID, v optional.Field[string]) *executor.Config {
		return src.Catalog.Preset(id, v)
	}
	first := Resolve(sel, src, models.ModeResume, presets)
	second := Resolve(sel, src, models.ModeResume, presets)
	assert.Equal(t, first, second)
	assert.Equal(t, "preset-model", first.Config.ModelID.ValueOr(""))
}

func TestResolveEndToEnd(t *testing.T) {
	src := Sources{
		Catalog: profiles.NewCatalog([]profiles.ExecutorProfile{
			{Executor: "A", Variants: []profiles.Variant{{Name: "DEFAULT"}, {Name: "fast"}}},
		}),
		LastUsed: &executor.Config{Executor: "A", Variant: optional.Of("fast"), ModelID: optional.Of("gpt")},
	}
	st := Resolve(models.Selections{}, src, models.ModeResume, nil)
	assert.Equal(t, executor.ExecutorID("A"), st.Executor.Effective)
	assert.Equal(t, optional.Of("fast"), st.Variant.Resolved)
	require.NotNil(t, st.Config)
	assert.Equal(t, "gpt", st.Config.ModelID.ValueOr(""))
	assert.Equal(t, "A:fast", st.ProfileKey())
}
