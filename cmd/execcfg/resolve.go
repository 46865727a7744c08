package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kandev/executorconfig/internal/executorconfig/models"
	"github.com/kandev/executorconfig/internal/executorconfig/resolver"
	"github.com/kandev/executorconfig/internal/profiles"
	"github.com/kandev/executorconfig/pkg/executor"
	"github.com/kandev/executorconfig/pkg/optional"
)

// resolveInputs is the document read by `execcfg resolve`. A missing scratch
// key means the draft is still loading; null means there is none. When preset
// is omitted it is looked up in the catalog.
type resolveInputs struct {
	Mode          models.SelectionMode            `json:"mode"`
	Selections    models.Selections               `json:"selections"`
	Catalog       []profiles.ExecutorProfile      `json:"catalog"`
	Scratch       optional.Field[executor.Config] `json:"scratch,omitzero"`
	LastUsed      *executor.Config                `json:"last_used"`
	ConfigDefault *executor.ProfileRef            `json:"config_default"`
	Preset        *executor.Config                `json:"preset"`
}

type resolveOutput struct {
	ProfileKey string         `json:"profile_key"`
	State      resolver.State `json:"state"`
}

func newResolveCommand() *cobra.Command {
	var inputsPath, mode, overlayPath string
	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve selections and sources into an executor config",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(inputsPath)
			if err != nil {
				return fmt.Errorf("failed to read inputs: %w", err)
			}
			var in resolveInputs
			if err := json.Unmarshal(data, &in); err != nil {
				return fmt.Errorf("invalid inputs: %w", err)
			}
			if mode != "" {
				in.Mode = models.SelectionMode(mode)
			}
			if in.Mode == "" {
				in.Mode = models.ModeResume
			}
			if !in.Mode.Valid() {
				return fmt.Errorf("unknown mode %q", in.Mode)
			}

			catalog, err := loadCatalog(overlayPath)
			if err != nil {
				return err
			}
			if in.Catalog != nil {
				catalog = profiles.NewCatalog(in.Catalog)
			}

			state := runResolve(in, catalog)
			return writeJSON(cmd, resolveOutput{ProfileKey: state.ProfileKey(), State: state})
		},
	}
	cmd.Flags().StringVarP(&inputsPath, "inputs", "i", "", "JSON file with selections and sources")
	cmd.Flags().StringVar(&mode, "mode", "", "selection mode: resume or explicit (overrides the file)")
	cmd.Flags().StringVar(&overlayPath, "overlay", "", "profile overlay applied to the built-in catalog")
	_ = cmd.MarkFlagRequired("inputs")
	return cmd
}

func runResolve(in resolveInputs, catalog *profiles.Catalog) resolver.State {
	src := resolver.Sources{
		Catalog:       catalog,
		Scratch:       in.Scratch,
		LastUsed:      in.LastUsed,
		ConfigDefault: in.ConfigDefault,
		Preset:        in.Preset,
	}
	var presets resolver.PresetFunc
	if in.Preset == nil {
		presets = catalog.Preset
	}
	return resolver.Resolve(in.Selections, src, in.Mode, presets)
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
