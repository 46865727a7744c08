package profiles

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kandev/executorconfig/pkg/executor"
)

//go:embed default_profiles.json
var defaultProfilesJSON []byte

// ErrInvalidOverlay is returned when an overlay document cannot be parsed.
var ErrInvalidOverlay = errors.New("invalid profile overlay")

type catalogDocument struct {
	Executors []ExecutorProfile `json:"executors"`
}

// Defaults returns the embedded default catalog.
func Defaults() (*Catalog, error) {
	var doc catalogDocument
	if err := json.Unmarshal(defaultProfilesJSON, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse embedded profiles: %w", err)
	}
	return NewCatalog(doc.Executors), nil
}

// Overlay is a partial diff applied on top of the default catalog.
//
// For each executor, a variant mapped to a preset adds or replaces it and a
// variant mapped to null removes it. Executors missing from the defaults are
// only added when the overlay defines their DEFAULT variant.
type Overlay struct {
	Executors map[executor.ExecutorID]ExecutorOverlay `json:"executors"`
}

// ExecutorOverlay holds the variant changes for one executor.
type ExecutorOverlay struct {
	Variants map[string]*Preset `json:"variants"`
}

// ParseOverlay decodes an overlay document. YAML input goes through a generic
// map first so that explicit nulls survive into the typed structure.
func ParseOverlay(data []byte, format string) (*Overlay, error) {
	jsonData := data
	if format == "yaml" || format == "yml" {
		var generic any
		if err := yaml.Unmarshal(data, &generic); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidOverlay, err)
		}
		converted, err := json.Marshal(generic)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidOverlay, err)
		}
		jsonData = converted
	}
	var overlay Overlay
	if err := json.Unmarshal(jsonData, &overlay); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidOverlay, err)
	}
	return &overlay, nil
}

// LoadOverlayFile reads an overlay from path; the extension picks the format.
// A missing file yields an empty overlay.
func LoadOverlayFile(path string) (*Overlay, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return &Overlay{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read overlay %s: %w", path, err)
	}
	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	return ParseOverlay(data, format)
}

// Apply returns a new catalog with overlay applied to base. base is not
// modified.
func Apply(base *Catalog, overlay *Overlay) *Catalog {
	profiles := base.Profiles()
	if overlay == nil || len(overlay.Executors) == 0 {
		return NewCatalog(profiles)
	}

	ids := make([]executor.ExecutorID, 0, len(overlay.Executors))
	for id := range overlay.Executors {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	for _, id := range ids {
		change := overlay.Executors[id]
		idx := slices.IndexFunc(profiles, func(p ExecutorProfile) bool { return p.Executor == id })
		if idx >= 0 {
			profiles[idx].Variants = applyVariants(profiles[idx].Variants, change.Variants)
			continue
		}
		if p, ok := newProfileFromOverlay(id, change); ok {
			profiles = append(profiles, p)
		}
	}
	return NewCatalog(profiles)
}

func applyVariants(variants []Variant, changes map[string]*Preset) []Variant {
	for _, name := range sortedKeys(changes) {
		preset := changes[name]
		idx := slices.IndexFunc(variants, func(v Variant) bool { return v.Name == name })
		switch {
		case preset == nil && idx >= 0:
			variants = slices.Delete(variants, idx, idx+1)
		case preset == nil:
		case idx >= 0:
			variants[idx].Preset = *preset
		default:
			variants = append(variants, Variant{Name: name, Preset: *preset})
		}
	}
	return variants
}

func newProfileFromOverlay(id executor.ExecutorID, change ExecutorOverlay) (ExecutorProfile, bool) {
	def, ok := change.Variants[executor.DefaultVariant]
	if !ok || def == nil {
		return ExecutorProfile{}, false
	}
	p := ExecutorProfile{
		Executor: id,
		Variants: []Variant{{Name: executor.DefaultVariant, Preset: *def}},
	}
	for _, name := range sortedKeys(change.Variants) {
		preset := change.Variants[name]
		if name == executor.DefaultVariant || preset == nil {
			continue
		}
		p.Variants = append(p.Variants, Variant{Name: name, Preset: *preset})
	}
	return p, true
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
