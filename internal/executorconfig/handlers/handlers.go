package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/kandev/executorconfig/internal/common/logger"
	"github.com/kandev/executorconfig/internal/executorconfig/controller"
	"github.com/kandev/executorconfig/internal/executorconfig/dto"
	ws "github.com/kandev/executorconfig/pkg/websocket"
)

type Handlers struct {
	controller *controller.Controller
	logger     *logger.Logger
}

func NewHandlers(ctrl *controller.Controller, log *logger.Logger) *Handlers {
	return &Handlers{
		controller: ctrl,
		logger:     log.WithFields(zap.String("component", "executor-config-handlers")),
	}
}

func RegisterRoutes(router *gin.Engine, dispatcher *ws.Dispatcher, ctrl *controller.Controller, log *logger.Logger) {
	h := NewHandlers(ctrl, log)
	h.registerHTTP(router)
	h.registerWS(dispatcher)
}

func (h *Handlers) registerHTTP(router *gin.Engine) {
	api := router.Group("/api/v1")
	api.GET("/executor-profiles", h.httpListProfiles)
	api.GET("/executor-config/last-used", h.httpGetLastUsed)

	sessions := api.Group("/executor-config/sessions")
	sessions.POST("", h.httpOpenSession)
	sessions.GET("/:id", h.httpGetSession)
	sessions.PUT("/:id/executor", h.httpSetExecutor)
	sessions.PUT("/:id/variant", h.httpSetVariant)
	sessions.PATCH("/:id/overrides", h.httpSetOverrides)
	sessions.POST("/:id/submit", h.httpSubmit)
	sessions.DELETE("/:id", h.httpCloseSession)
}

func (h *Handlers) registerWS(dispatcher *ws.Dispatcher) {
	dispatcher.RegisterFunc(ws.ActionExecutorProfilesList, h.wsListProfiles)
	dispatcher.RegisterFunc(ws.ActionExecutorConfigOpen, h.wsOpenSession)
	dispatcher.RegisterFunc(ws.ActionExecutorConfigGet, h.wsGetSession)
	dispatcher.RegisterFunc(ws.ActionExecutorConfigSetExecutor, h.wsSetExecutor)
	dispatcher.RegisterFunc(ws.ActionExecutorConfigSetVariant, h.wsSetVariant)
	dispatcher.RegisterFunc(ws.ActionExecutorConfigSetOverrides, h.wsSetOverrides)
	dispatcher.RegisterFunc(ws.ActionExecutorConfigSubmit, h.wsSubmit)
	dispatcher.RegisterFunc(ws.ActionExecutorConfigClose, h.wsCloseSession)
	dispatcher.RegisterFunc(ws.ActionExecutorConfigLastUsed, h.wsGetLastUsed)
}

// HTTP

func (h *Handlers) httpListProfiles(c *gin.Context) {
	c.JSON(http.StatusOK, h.controller.ListProfiles(c.Request.Context()))
}

func (h *Handlers) httpOpenSession(c *gin.Context) {
	var body dto.OpenSessionRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	resp, err := h.controller.OpenSession(c.Request.Context(), body)
	if err != nil {
		handleError(c, h.logger, err, "session not found")
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *Handlers) httpGetSession(c *gin.Context) {
	resp, err := h.controller.GetSession(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, h.logger, err, "session not found")
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handlers) httpSetExecutor(c *gin.Context) {
	var body dto.SetExecutorRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	resp, err := h.controller.SetExecutor(c.Request.Context(), c.Param("id"), body)
	if err != nil {
		handleError(c, h.logger, err, "session not found")
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handlers) httpSetVariant(c *gin.Context) {
	var body dto.SetVariantRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	resp, err := h.controller.SetVariant(c.Request.Context(), c.Param("id"), body)
	if err != nil {
		handleError(c, h.logger, err, "session not found")
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handlers) httpSetOverrides(c *gin.Context) {
	var body dto.SetOverridesRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	resp, err := h.controller.SetOverrides(c.Request.Context(), c.Param("id"), body)
	if err != nil {
		handleError(c, h.logger, err, "session not found")
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handlers) httpSubmit(c *gin.Context) {
	resp, err := h.controller.Submit(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, h.logger, err, "session not found")
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handlers) httpCloseSession(c *gin.Context) {
	if err := h.controller.CloseSession(c.Request.Context(), c.Param("id")); err != nil {
		handleError(c, h.logger, err, "session not found")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handlers) httpGetLastUsed(c *gin.Context) {
	resp, err := h.controller.GetLastUsed(c.Request.Context(), c.Query("scope"))
	if err != nil {
		handleError(c, h.logger, err, "no last used config")
		return
	}
	c.JSON(http.StatusOK, resp)
}

// WebSocket

type wsSessionRequest struct {
	SessionID string `json:"session_id"`
}

// wsHandleSession reads session_id from the payload and runs fn with it.
// Callers decode any other fields from the same payload first.
func (h *Handlers) wsHandleSession(
	ctx context.Context,
	msg *ws.Message,
	errMsg string,
	fn func(ctx context.Context, sessionID string) (any, error),
) (*ws.Message, error) {
	var req wsSessionRequest
	if err := msg.ParsePayload(&req); err != nil {
		return ws.NewError(msg.ID, msg.Action, ws.ErrorCodeBadRequest, "Invalid payload: "+err.Error(), nil)
	}
	if req.SessionID == "" {
		return ws.NewError(msg.ID, msg.Action, ws.ErrorCodeValidation, "session_id is required", nil)
	}
	resp, err := fn(ctx, req.SessionID)
	if err != nil {
		return wsError(msg, h.logger, err, errMsg)
	}
	return ws.NewResponse(msg.ID, msg.Action, resp)
}

func (h *Handlers) wsListProfiles(ctx context.Context, msg *ws.Message) (*ws.Message, error) {
	return ws.NewResponse(msg.ID, msg.Action, h.controller.ListProfiles(ctx))
}

func (h *Handlers) wsOpenSession(ctx context.Context, msg *ws.Message) (*ws.Message, error) {
	var req dto.OpenSessionRequest
	if err := msg.ParsePayload(&req); err != nil {
		return ws.NewError(msg.ID, msg.Action, ws.ErrorCodeBadRequest, "Invalid payload: "+err.Error(), nil)
	}
	resp, err := h.controller.OpenSession(ctx, req)
	if err != nil {
		return wsError(msg, h.logger, err, "Failed to open session")
	}
	return ws.NewResponse(msg.ID, msg.Action, resp)
}

func (h *Handlers) wsGetSession(ctx context.Context, msg *ws.Message) (*ws.Message, error) {
	return h.wsHandleSession(ctx, msg, "Session not found", func(ctx context.Context, id string) (any, error) {
		return h.controller.GetSession(ctx, id)
	})
}

func (h *Handlers) wsSetExecutor(ctx context.Context, msg *ws.Message) (*ws.Message, error) {
	var req dto.SetExecutorRequest
	if err := msg.ParsePayload(&req); err != nil {
		return ws.NewError(msg.ID, msg.Action, ws.ErrorCodeBadRequest, "Invalid payload: "+err.Error(), nil)
	}
	return h.wsHandleSession(ctx, msg, "Session not found", func(ctx context.Context, id string) (any, error) {
		return h.controller.SetExecutor(ctx, id, req)
	})
}

func (h *Handlers) wsSetVariant(ctx context.Context, msg *ws.Message) (*ws.Message, error) {
	var req dto.SetVariantRequest
	if err := msg.ParsePayload(&req); err != nil {
		return ws.NewError(msg.ID, msg.Action, ws.ErrorCodeBadRequest, "Invalid payload: "+err.Error(), nil)
	}
	return h.wsHandleSession(ctx, msg, "Session not found", func(ctx context.Context, id string) (any, error) {
		return h.controller.SetVariant(ctx, id, req)
	})
}

func (h *Handlers) wsSetOverrides(ctx context.Context, msg *ws.Message) (*ws.Message, error) {
	var req struct {
		Overrides dto.SetOverridesRequest `json:"overrides"`
	}
	if err := msg.ParsePayload(&req); err != nil {
		return ws.NewError(msg.ID, msg.Action, ws.ErrorCodeBadRequest, "Invalid payload: "+err.Error(), nil)
	}
	return h.wsHandleSession(ctx, msg, "Session not found", func(ctx context.Context, id string) (any, error) {
		return h.controller.SetOverrides(ctx, id, req.Overrides)
	})
}

func (h *Handlers) wsSubmit(ctx context.Context, msg *ws.Message) (*ws.Message, error) {
	return h.wsHandleSession(ctx, msg, "Session not found", func(ctx context.Context, id string) (any, error) {
		return h.controller.Submit(ctx, id)
	})
}

func (h *Handlers) wsCloseSession(ctx context.Context, msg *ws.Message) (*ws.Message, error) {
	return h.wsHandleSession(ctx, msg, "Session not found", func(ctx context.Context, id string) (any, error) {
		if err := h.controller.CloseSession(ctx, id); err != nil {
			return nil, err
		}
		return map[string]interface{}{"success": true, "session_id": id}, nil
	})
}

func (h *Handlers) wsGetLastUsed(ctx context.Context, msg *ws.Message) (*ws.Message, error) {
	var req struct {
		Scope string `json:"scope"`
	}
	if err := msg.ParsePayload(&req); err != nil {
		return ws.NewError(msg.ID, msg.Action, ws.ErrorCodeBadRequest, "Invalid payload: "+err.Error(), nil)
	}
	resp, err := h.controller.GetLastUsed(ctx, req.Scope)
	if err != nil {
		return wsError(msg, h.logger, err, "No last used config")
	}
	return ws.NewResponse(msg.ID, msg.Action, resp)
}
