package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/EternisAI/panoptes/internal/api/http/dto"
	"github.com/EternisAI/panoptes/internal/credentials"
	"github.com/EternisAI/panoptes/internal/health"
	"github.com/EternisAI/panoptes/internal/monitor"
	"github.com/EternisAI/panoptes/internal/plume"
	"github.com/EternisAI/panoptes/internal/token"
	"github.com/gin-gonic/gin"
)

type errorClass struct {
	target  error
	status  int
	code    string
	message string
}

// Order matters: credential errors surface wrapped in plume.ErrUnauthenticated.
var errorClasses = []errorClass{
	{token.ErrNotConfigured, http.StatusPreconditionFailed, "not_configured", "Plume credentials are not configured"},
	{token.ErrExchangeFailed, http.StatusBadGateway, "token_exchange_failed", "Plume token exchange failed"},
	{token.ErrMalformedTokenResponse, http.StatusBadGateway, "malformed_token_response", "Plume returned a malformed token response"},
	{context.DeadlineExceeded, http.StatusGatewayTimeout, "upstream_timeout", "Plume did not respond in time"},
	{plume.ErrMissingPrincipal, http.StatusBadRequest, "invalid_argument", "principal id is required"},
	{plume.ErrInvalidArgument, http.StatusBadRequest, "invalid_argument", "customer and location ids are required"},
	{credentials.ErrMissingPrincipal, http.StatusBadRequest, "invalid_argument", "principal id is required"},
	{monitor.ErrInvalidWatch, http.StatusBadRequest, "invalid_argument", "customer and location ids are required"},
	{health.ErrUnknownTimeRange, http.StatusBadRequest, "invalid_argument", "unknown time range"},
	{plume.ErrTimeout, http.StatusGatewayTimeout, "upstream_timeout", "Plume did not respond in time"},
	{plume.ErrAuthRejected, http.StatusBadGateway, "auth_rejected", "Plume rejected the credentials"},
	{plume.ErrHTTPStatus, http.StatusBadGateway, "upstream_status", "Plume returned an error"},
	{plume.ErrMalformedResponse, http.StatusBadGateway, "malformed_response", "Plume returned a malformed response"},
	{health.ErrUnusableInput, http.StatusBadGateway, "malformed_response", "Plume returned data in an unexpected shape"},
	{plume.ErrTransport, http.StatusBadGateway, "upstream_unreachable", "Plume could not be reached"},
	{plume.ErrUnauthenticated, http.StatusBadGateway, "unauthenticated", "Could not obtain a Plume token"},
}

func classify(err error) (int, dto.ErrorResponse) {
	for _, ec := range errorClasses {
		if errors.Is(err, ec.target) {
			return ec.status, dto.ErrorResponse{Error: ec.message, Code: ec.code}
		}
	}
	return http.StatusInternalServerError, dto.ErrorResponse{Error: "internal error", Code: "internal"}
}

func respondError(ctx *gin.Context, err error) {
	status, body := classify(err)
	attrs := []any{"path", ctx.FullPath(), "status", status, "code", body.Code, "error", err}
	if status >= http.StatusInternalServerError {
		slog.Error("Request failed", attrs...)
	} else {
		slog.Warn("Request failed", attrs...)
	}
	_ = ctx.Error(err)
	ctx.JSON(status, body)
}
