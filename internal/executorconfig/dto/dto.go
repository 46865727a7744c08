package dto

import (
	"time"

	"github.com/kandev/executorconfig/internal/executorconfig/models"
	"github.com/kandev/executorconfig/internal/executorconfig/service"
	"github.com/kandev/executorconfig/internal/profiles"
	"github.com/kandev/executorconfig/pkg/executor"
	"github.com/kandev/executorconfig/pkg/optional"
)

// SessionDTO is the wire shape of an editing session.
type SessionDTO struct {
	SessionID              string                 `json:"session_id"`
	ContextID              string                 `json:"context_id"`
	Scope                  string                 `json:"scope"`
	Mode                   models.SelectionMode   `json:"mode"`
	Selections             models.Selections      `json:"selections"`
	Executor               executor.ExecutorID    `json:"executor"`
	ExecutorOptions        []executor.ExecutorID  `json:"executor_options"`
	Variant                optional.Field[string] `json:"variant"`
	VariantOptions         []string               `json:"variant_options"`
	VariantWasUserSelected bool                   `json:"variant_was_user_selected"`
	ProfileKey             string                 `json:"profile_key"`
	Config                 *executor.Config       `json:"config"`
	Preset                 *executor.Config       `json:"preset"`
}

type ExecutorProfilesResponse struct {
	Executors []profiles.ExecutorProfile `json:"executors"`
	Total     int                        `json:"total"`
}

type LastUsedDTO struct {
	Scope     string          `json:"scope"`
	Config    executor.Config `json:"config"`
	UpdatedAt string          `json:"updated_at"`
}

type SubmitResponse struct {
	SessionID string          `json:"session_id"`
	Config    executor.Config `json:"config"`
}

type OpenSessionRequest struct {
	ContextID string               `json:"context_id"`
	Mode      models.SelectionMode `json:"mode,omitempty"`
	Scope     string               `json:"scope,omitempty"`
}

type SetExecutorRequest struct {
	Executor string `json:"executor"`
}

// SetVariantRequest distinguishes an explicit null variant from a missing one;
// both end up as null.
type SetVariantRequest struct {
	Variant optional.Field[string] `json:"variant"`
}

type SetOverridesRequest = models.Overrides

func FromSessionState(state *service.SessionState) SessionDTO {
	resolved := state.Resolved
	return SessionDTO{
		SessionID:              state.SessionID,
		ContextID:              state.ContextID,
		Scope:                  state.Scope,
		Mode:                   state.Mode,
		Selections:             state.Selections,
		Executor:               resolved.Executor.Effective,
		ExecutorOptions:        nonNil(resolved.Executor.Options),
		Variant:                resolved.Variant.Resolved,
		VariantOptions:         nonNil(resolved.Variant.Options),
		VariantWasUserSelected: resolved.Variant.WasUserSelected,
		ProfileKey:             resolved.ProfileKey(),
		Config:                 resolved.Config,
		Preset:                 resolved.Preset,
	}
}

func FromCatalog(catalog *profiles.Catalog) ExecutorProfilesResponse {
	list := catalog.Profiles()
	if list == nil {
		list = []profiles.ExecutorProfile{}
	}
	return ExecutorProfilesResponse{Executors: list, Total: len(list)}
}

func FromLastUsed(lastUsed *models.LastUsedConfig) LastUsedDTO {
	return LastUsedDTO{
		Scope:     lastUsed.Scope,
		Config:    lastUsed.Config,
		UpdatedAt: lastUsed.UpdatedAt.Format(time.RFC3339),
	}
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
