package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kandev/executorconfig/internal/profiles"
)

func newProfilesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profiles",
		Short: "Inspect the executor profile catalog",
	}
	cmd.AddCommand(newProfilesListCommand(), newProfilesValidateCommand())
	return cmd
}

func newProfilesListCommand() *cobra.Command {
	var overlayPath string
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List executors and their variants",
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := loadCatalog(overlayPath)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, catalog.Profiles())
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "EXECUTOR\tVARIANTS")
			for _, p := range catalog.Profiles() {
				fmt.Fprintf(w, "%s\t%s\n", p.Executor, strings.Join(p.VariantNames(), ", "))
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&overlayPath, "overlay", "", "profile overlay applied to the built-in catalog")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the catalog as JSON")
	return cmd
}

func newProfilesValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <path>",
		Short: "Check that an overlay file parses and report the merged catalog size",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if _, err := os.Stat(path); err != nil {
				return fmt.Errorf("overlay %s: %w", path, err)
			}
			catalog, err := loadCatalog(path)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: ok (%d executors)\n", filepath.Base(path), catalog.Len())
			return nil
		},
	}
}

// loadCatalog returns the built-in catalog with the overlay at path applied.
func loadCatalog(path string) (*profiles.Catalog, error) {
	base, err := profiles.Defaults()
	if err != nil {
		return nil, err
	}
	if path == "" {
		return base, nil
	}
	overlay, err := profiles.LoadOverlayFile(path)
	if err != nil {
		return nil, err
	}
	return profiles.Apply(base, overlay), nil
}
