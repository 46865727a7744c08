// Package executor defines the launchable coding-agent configuration shared by
// the profile catalog, the resolvers and the API surface.
package executor

import (
	"strings"

	"github.com/kandev/executorconfig/pkg/optional"
)

// ExecutorID identifies a coding-agent backend. The empty ID means "none".
type ExecutorID string

const (
	ClaudeCode  ExecutorID = "CLAUDE_CODE"
	Amp         ExecutorID = "AMP"
	Gemini      ExecutorID = "GEMINI"
	Codex       ExecutorID = "CODEX"
	Opencode    ExecutorID = "OPENCODE"
	CursorAgent ExecutorID = "CURSOR_AGENT"
	QwenCode    ExecutorID = "QWEN_CODE"
	Copilot     ExecutorID = "COPILOT"
	Droid       ExecutorID = "DROID"
	Kimi        ExecutorID = "KIMI"
	AwsBedrock  ExecutorID = "AWS_BEDROCK"
)

var known = map[ExecutorID]struct{}{
	ClaudeCode: {}, Amp: {}, Gemini: {}, Codex: {}, Opencode: {}, CursorAgent: {},
	QwenCode: {}, Copilot: {}, Droid: {}, Kimi: {}, AwsBedrock: {},
}

// IsKnown reports whether id is one of the built-in agents. Catalogs may still
// declare other executors; nothing rejects them.
func (id ExecutorID) IsKnown() bool {
	_, ok := known[id]
	return ok
}

// Normalize upper-cases and converts dashes so "claude-code" maps to CLAUDE_CODE.
func Normalize(raw string) ExecutorID {
	s := strings.TrimSpace(raw)
	s = strings.ReplaceAll(s, "-", "_")
	return ExecutorID(strings.ToUpper(s))
}

// PermissionPolicy controls how an agent asks for approval.
type PermissionPolicy string

const (
	PermissionAuto       PermissionPolicy = "AUTO"
	PermissionSupervised PermissionPolicy = "SUPERVISED"
	PermissionPlan       PermissionPolicy = "PLAN"
)

// Valid reports whether p is a recognised policy.
func (p PermissionPolicy) Valid() bool {
	switch p {
	case PermissionAuto, PermissionSupervised, PermissionPlan:
		return true
	}
	return false
}

// DefaultVariant is the variant name used when a variant is null.
const DefaultVariant = "DEFAULT"

// Config is a launchable executor configuration. Override fields are
// tri-state: absent means "not set at this layer", null means "explicitly
// cleared".
type Config struct {
	Executor         ExecutorID                       `json:"executor"`
	Variant          optional.Field[string]           `json:"variant,omitzero"`
	ModelID          optional.Field[string]           `json:"model_id,omitzero"`
	AgentID          optional.Field[string]           `json:"agent_id,omitzero"`
	ReasoningID      optional.Field[string]           `json:"reasoning_id,omitzero"`
	PermissionPolicy optional.Field[PermissionPolicy] `json:"permission_policy,omitzero"`
}

// Clone returns a copy of c; nil stays nil.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	cp := *c
	return &cp
}

// ProfileKey returns the composite executor:variant identity of c.
func (c *Config) ProfileKey() string {
	if c == nil {
		return ""
	}
	return ProfileKey(c.Executor, c.Variant)
}

// ProfileRef is an executor/variant pair, used for the configured default
// profile.
type ProfileRef struct {
	Executor ExecutorID             `json:"executor"`
	Variant  optional.Field[string] `json:"variant,omitzero"`
}

// ProfileKey builds "executor:variant", substituting DEFAULT for a null or
// absent variant.
func ProfileKey(id ExecutorID, variant optional.Field[string]) string {
	return string(id) + ":" + variant.ValueOr(DefaultVariant)
}
