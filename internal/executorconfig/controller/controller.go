package controller

import (
	"context"

	"github.com/kandev/executorconfig/internal/executorconfig/dto"
	"github.com/kandev/executorconfig/internal/executorconfig/service"
	"github.com/kandev/executorconfig/pkg/executor"
)

type Controller struct {
	svc *service.Service
}

func NewController(svc *service.Service) *Controller {
	return &Controller{svc: svc}
}

func (c *Controller) ListProfiles(ctx context.Context) dto.ExecutorProfilesResponse {
	return dto.FromCatalog(c.svc.Catalog())
}

func (c *Controller) OpenSession(ctx context.Context, req dto.OpenSessionRequest) (dto.SessionDTO, error) {
	state, err := c.svc.OpenSession(ctx, service.OpenSessionRequest{
		ContextID: req.ContextID,
		Mode:      req.Mode,
		Scope:     req.Scope,
	})
	if err != nil {
		return dto.SessionDTO{}, err
	}
	return dto.FromSessionState(state), nil
}

func (c *Controller) GetSession(ctx context.Context, sessionID string) (dto.SessionDTO, error) {
	return sessionResult(c.svc.GetSession(ctx, sessionID))
}

func (c *Controller) SetExecutor(ctx context.Context, sessionID string, req dto.SetExecutorRequest) (dto.SessionDTO, error) {
	return sessionResult(c.svc.SetExecutor(ctx, sessionID, executor.ExecutorID(req.Executor)))
}

func (c *Controller) SetVariant(ctx context.Context, sessionID string, req dto.SetVariantRequest) (dto.SessionDTO, error) {
	return sessionResult(c.svc.SetVariant(ctx, sessionID, req.Variant))
}

func (c *Controller) SetOverrides(ctx context.Context, sessionID string, req dto.SetOverridesRequest) (dto.SessionDTO, error) {
	return sessionResult(c.svc.SetOverrides(ctx, sessionID, req))
}

func (c *Controller) Submit(ctx context.Context, sessionID string) (dto.SubmitResponse, error) {
	cfg, err := c.svc.Submit(ctx, sessionID)
	if err != nil {
		return dto.SubmitResponse{}, err
	}
	return dto.SubmitResponse{SessionID: sessionID, Config: *cfg}, nil
}

func (c *Controller) CloseSession(ctx context.Context, sessionID string) error {
	return c.svc.CloseSession(ctx, sessionID)
}

func (c *Controller) GetLastUsed(ctx context.Context, scope string) (dto.LastUsedDTO, error) {
	lastUsed, err := c.svc.GetLastUsed(ctx, scope)
	if err != nil {
		return dto.LastUsedDTO{}, err
	}
	return dto.FromLastUsed(lastUsed), nil
}

func sessionResult(state *service.SessionState, err error) (dto.SessionDTO, error) {
	if err != nil {
		return dto.SessionDTO{}, err
	}
	return dto.FromSessionState(state), nil
}
