package models

import (
	"time"

	"github.com/kandev/executorconfig/pkg/executor"
	"github.com/kandev/executorconfig/pkg/optional"
)

// SelectionMode picks which sources the resolvers consult.
type SelectionMode string

const (
	// ModeResume consults the full fallback chain.
	ModeResume SelectionMode = "resume"
	// ModeExplicit consults only the user selections.
	ModeExplicit SelectionMode = "explicit"
)

// Valid reports whether m is a known mode.
func (m SelectionMode) Valid() bool {
	return m == ModeResume || m == ModeExplicit
}

// GlobalScope is the last-used scope used when the caller supplies none.
const GlobalScope = "global"

// Selections is the sparse record of explicit choices made while editing.
// An unset field falls through to other sources; a null field is an explicit
// clear.
type Selections struct {
	Executor         optional.Field[executor.ExecutorID]       `json:"executor,omitzero"`
	Variant          optional.Field[string]                    `json:"variant,omitzero"`
	ModelID          optional.Field[string]                    `json:"model_id,omitzero"`
	AgentID          optional.Field[string]                    `json:"agent_id,omitzero"`
	ReasoningID      optional.Field[string]                    `json:"reasoning_id,omitzero"`
	PermissionPolicy optional.Field[executor.PermissionPolicy] `json:"permission_policy,omitzero"`
}

// ProfileOnly returns the selections pruned to executor and variant.
func (s Selections) ProfileOnly() Selections {
	return Selections{Executor: s.Executor, Variant: s.Variant}
}

// HasOverrides reports whether any override field is present.
func (s Selections) HasOverrides() bool {
	return s.ModelID.IsSet() || s.AgentID.IsSet() || s.ReasoningID.IsSet() || s.PermissionPolicy.IsSet()
}

// Overrides is a partial update of the override fields.
type Overrides struct {
	ModelID          optional.Field[string]                    `json:"model_id,omitzero"`
	AgentID          optional.Field[string]                    `json:"agent_id,omitzero"`
	ReasoningID      optional.Field[string]                    `json:"reasoning_id,omitzero"`
	PermissionPolicy optional.Field[executor.PermissionPolicy] `json:"permission_policy,omitzero"`
}

// MergeInto applies the present fields of o onto s. Setting a model without
// a reasoning id drops any previously selected reasoning id.
func (o Overrides) MergeInto(s Selections) Selections {
	if o.ModelID.IsSet() {
		s.ModelID = o.ModelID
		if !o.ReasoningID.IsSet() {
			s.ReasoningID = optional.Unset[string]()
		}
	}
	if o.AgentID.IsSet() {
		s.AgentID = o.AgentID
	}
	if o.ReasoningID.IsSet() {
		s.ReasoningID = o.ReasoningID
	}
	if o.PermissionPolicy.IsSet() {
		s.PermissionPolicy = o.PermissionPolicy
	}
	return s
}

// ScratchConfig is the stored draft for one compose context.
type ScratchConfig struct {
	ContextID string          `json:"context_id" db:"context_id"`
	Config    executor.Config `json:"config" db:"-"`
	UpdatedAt time.Time       `json:"updated_at" db:"updated_at"`
}

// LastUsedConfig is the most recently submitted config for a scope.
type LastUsedConfig struct {
	Scope     string          `json:"scope" db:"scope"`
	Config    executor.Config `json:"config" db:"-"`
	UpdatedAt time.Time       `json:"updated_at" db:"updated_at"`
}
