package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/wabahub/internal/apperr"
	"github.com/mamadbah2/wabahub/internal/service/onboarding"
)

type errorBody struct {
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Fields  []string `json:"fields,omitempty"`
	Step    string   `json:"step,omitempty"`
}

var kindStatus = map[apperr.Kind]int{
	apperr.KindValidation:     http.StatusBadRequest,
	apperr.KindConfig:         http.StatusConflict,
	apperr.KindProvider:       http.StatusBadGateway,
	apperr.KindNotFound:       http.StatusNotFound,
	apperr.KindUnsupported:    http.StatusBadRequest,
	apperr.KindPersistence:    http.StatusInternalServerError,
	apperr.KindReconciliation: http.StatusUnprocessableEntity,
}

// statusOf maps err onto an HTTP status and response body.
func statusOf(err error) (int, errorBody) {
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		return http.StatusInternalServerError, errorBody{Code: "INTERNAL", Message: "internal error"}
	}

	status, ok := kindStatus[appErr.Kind]
	if !ok {
		status = http.StatusInternalServerError
	}
	if errors.Is(appErr, apperr.ErrConfigNotFound) {
		status = http.StatusNotFound
	}

	body := errorBody{Code: appErr.Code, Message: appErr.Message, Fields: appErr.Fields}
	var stepErr *onboarding.StepError
	if errors.As(err, &stepErr) {
		body.Step = stepErr.Step
	}
	return status, body
}

func respondError(c *gin.Context, logger *zap.Logger, err error) {
	status, body := statusOf(err)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	} else {
		logger.Warn("request rejected", zap.String("path", c.FullPath()), zap.String("code", body.Code), zap.Error(err))
	}
	c.AbortWithStatusJSON(status, gin.H{"error": body})
}

func bindJSON(c *gin.Context, logger *zap.Logger, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		respondError(c, logger, apperr.ErrValidation.WithMessage("invalid request body").WithCause(err))
		return false
	}
	return true
}
