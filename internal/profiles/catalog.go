// Package profiles holds the executor profile catalog: which executors exist,
// which variants each one offers and the preset override values bundled with
// every variant.
package profiles

import (
	"github.com/kandev/executorconfig/pkg/executor"
	"github.com/kandev/executorconfig/pkg/optional"
)

// Preset is the default bundle of override values for one variant.
type Preset struct {
	ModelID          optional.Field[string]                    `json:"model_id,omitzero"`
	AgentID          optional.Field[string]                    `json:"agent_id,omitzero"`
	ReasoningID      optional.Field[string]                    `json:"reasoning_id,omitzero"`
	PermissionPolicy optional.Field[executor.PermissionPolicy] `json:"permission_policy,omitzero"`
}

// Variant is a named preset under an executor.
type Variant struct {
	Name   string `json:"name"`
	Preset Preset `json:"preset"`
}

// ExecutorProfile lists the variants available for one executor, in order.
type ExecutorProfile struct {
	Executor executor.ExecutorID `json:"executor"`
	Variants []Variant           `json:"variants"`
}

// VariantNames returns the variant names in catalog order.
func (p *ExecutorProfile) VariantNames() []string {
	names := make([]string, 0, len(p.Variants))
	for _, v := range p.Variants {
		names = append(names, v.Name)
	}
	return names
}

// Variant looks up a variant by name.
func (p *ExecutorProfile) Variant(name string) (*Variant, bool) {
	for i := range p.Variants {
		if p.Variants[i].Name == name {
			return &p.Variants[i], true
		}
	}
	return nil, false
}

// Catalog is an immutable, ordered mapping of executor to profile. A nil
// *Catalog represents a catalog that has not loaded yet and answers every
// query with empty results.
type Catalog struct {
	profiles []ExecutorProfile
	index    map[executor.ExecutorID]int
}

// NewCatalog builds a catalog from profiles. Later duplicates of an executor
// replace earlier ones in place.
func NewCatalog(profiles []ExecutorProfile) *Catalog {
	c := &Catalog{index: make(map[executor.ExecutorID]int, len(profiles))}
	for _, p := range profiles {
		p.Variants = append([]Variant(nil), p.Variants...)
		if i, ok := c.index[p.Executor]; ok {
			c.profiles[i] = p
			continue
		}
		c.index[p.Executor] = len(c.profiles)
		c.profiles = append(c.profiles, p)
	}
	return c
}

// Executors returns the executor IDs in catalog order.
func (c *Catalog) Executors() []executor.ExecutorID {
	if c == nil {
		return []executor.ExecutorID{}
	}
	ids := make([]executor.ExecutorID, 0, len(c.profiles))
	for _, p := range c.profiles {
		ids = append(ids, p.Executor)
	}
	return ids
}

// Profile returns the profile for id.
func (c *Catalog) Profile(id executor.ExecutorID) (*ExecutorProfile, bool) {
	if c == nil {
		return nil, false
	}
	i, ok := c.index[id]
	if !ok {
		return nil, false
	}
	return &c.profiles[i], true
}

// Variants returns the variant names declared under id, or an empty list.
func (c *Catalog) Variants(id executor.ExecutorID) []string {
	p, ok := c.Profile(id)
	if !ok {
		return []string{}
	}
	return p.VariantNames()
}

// Profiles returns a copy of all profiles in order.
func (c *Catalog) Profiles() []ExecutorProfile {
	if c == nil {
		return nil
	}
	out := make([]ExecutorProfile, len(c.profiles))
	for i, p := range c.profiles {
		p.Variants = append([]Variant(nil), p.Variants...)
		out[i] = p
	}
	return out
}

// Len returns the number of executors.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.profiles)
}

// Preset returns the preset bundle for (id, variant) as a config, or nil when
// either is unknown. A null variant resolves to DEFAULT.
func (c *Catalog) Preset(id executor.ExecutorID, variant optional.Field[string]) *executor.Config {
	p, ok := c.Profile(id)
	if !ok {
		return nil
	}
	v, ok := p.Variant(variant.ValueOr(executor.DefaultVariant))
	if !ok {
		return nil
	}
	return &executor.Config{
		Executor:         id,
		Variant:          variant,
		ModelID:          v.Preset.ModelID,
		AgentID:          v.Preset.AgentID,
		ReasoningID:      v.Preset.ReasoningID,
		PermissionPolicy: v.Preset.PermissionPolicy,
	}
}
