package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/EternisAI/panoptes/internal/api/http/dto"
	"github.com/EternisAI/panoptes/internal/auth"
	"github.com/gin-gonic/gin"
)

type AdminHandler struct {
	jwtConfig auth.JWTConfig
}

func NewAdminHandler(jwtConfig auth.JWTConfig) *AdminHandler {
	return &AdminHandler{
		jwtConfig: jwtConfig,
	}
}

// IssueToken mints a principal token for the chat-side identity in the path.
func (h *AdminHandler) IssueToken(ctx *gin.Context) {
	principalID := strings.TrimSpace(ctx.Param("id"))

	token, expiresAt, err := auth.GenerateToken(h.jwtConfig, principalID)
	if err != nil {
		if errors.Is(err, auth.ErrMissingPrincipal) {
			ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error(), Code: "invalid_argument"})
			return
		}
		slog.Error("Failed to generate principal token", "principal_id", principalID, "error", err)
		ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "failed to generate token", Code: "internal"})
		return
	}

	slog.Info("Principal token issued", "principal_id", principalID, "expires_at", expiresAt)
	ctx.JSON(http.StatusCreated, dto.IssueTokenResponse{
		PrincipalID: principalID,
		Token:       token,
		ExpiresAt:   expiresAt,
	})
}
