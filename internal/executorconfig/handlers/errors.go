package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/kandev/executorconfig/internal/common/logger"
	"github.com/kandev/executorconfig/internal/executorconfig/service"
	"github.com/kandev/executorconfig/internal/executorconfig/store"
	ws "github.com/kandev/executorconfig/pkg/websocket"
)

// httpStatus maps service errors to a status code and client message.
func httpStatus(err error, fallback string) (int, string) {
	switch {
	case errors.Is(err, service.ErrSessionNotFound), errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, fallback
	case errors.Is(err, service.ErrInvalidRequest):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, service.ErrNoExecutor):
		return http.StatusConflict, err.Error()
	default:
		return http.StatusInternalServerError, "request failed"
	}
}

func handleError(c *gin.Context, log *logger.Logger, err error, fallback string) {
	status, msg := httpStatus(err, fallback)
	if status == http.StatusInternalServerError {
		log.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.JSON(status, gin.H{"error": msg})
}

func wsError(msg *ws.Message, log *logger.Logger, err error, fallback string) (*ws.Message, error) {
	status, text := httpStatus(err, fallback)
	code := ws.ErrorCodeInternalError
	switch status {
	case http.StatusNotFound:
		code = ws.ErrorCodeNotFound
	case http.StatusBadRequest:
		code = ws.ErrorCodeValidation
	case http.StatusConflict:
		code = ws.ErrorCodeConflict
	default:
		log.Error(fallback, zap.String("action", msg.Action), zap.Error(err))
	}
	return ws.NewError(msg.ID, msg.Action, code, text, nil)
}
