package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/EternisAI/panoptes/internal/api/http/dto"
	"github.com/EternisAI/panoptes/internal/api/http/middleware"
	"github.com/EternisAI/panoptes/internal/credentials"
	"github.com/gin-gonic/gin"
)

type TokenEnsurer interface {
	EnsureValidToken(ctx context.Context, principalID string) (string, error)
}

type WatchRemover interface {
	RemovePrincipal(principalID string) int
}

type CredentialsHandler struct {
	store   *credentials.Store
	tokens  TokenEnsurer
	watches WatchRemover
}

func NewCredentialsHandler(store *credentials.Store, tokens TokenEnsurer, watches WatchRemover) *CredentialsHandler {
	return &CredentialsHandler{
		store:   store,
		tokens:  tokens,
		watches: watches,
	}
}

// Put replaces the caller's Plume credentials. With verify set, one token
// exchange runs before responding.
func (h *CredentialsHandler) Put(ctx *gin.Context) {
	var req dto.PutCredentialsRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error(), Code: "invalid_argument"})
		return
	}

	principalID := middleware.PrincipalID(ctx)
	rec, err := h.store.Put(credentials.Record{
		PrincipalID: principalID,
		AuthHeader:  req.AuthHeader,
		PartnerID:   req.PartnerID,
		SSOEndpoint: req.SSOEndpoint,
		APIBase:     req.APIBase,
		ReportsBase: req.ReportsBase,
	})
	if err != nil {
		respondError(ctx, err)
		return
	}

	resp := dto.CredentialsResponse{Status: rec.Status(time.Now())}
	if req.Verify {
		if _, err := h.tokens.EnsureValidToken(ctx.Request.Context(), principalID); err != nil {
			respondError(ctx, err)
			return
		}
		if current, ok := h.store.Get(principalID); ok {
			resp.Status = current.Status(time.Now())
		}
		resp.Verified = true
		slog.Info("Credentials verified", "principal_id", principalID)
	}

	ctx.JSON(http.StatusOK, resp)
}

func (h *CredentialsHandler) Get(ctx *gin.Context) {
	rec, ok := h.store.Get(middleware.PrincipalID(ctx))
	if !ok {
		ctx.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "no credentials stored", Code: "not_found"})
		return
	}
	ctx.JSON(http.StatusOK, dto.CredentialsResponse{Status: rec.Status(time.Now())})
}

// Delete forgets the caller's credentials and stops monitoring their locations.
func (h *CredentialsHandler) Delete(ctx *gin.Context) {
	principalID := middleware.PrincipalID(ctx)
	if !h.store.Delete(principalID) {
		ctx.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "no credentials stored", Code: "not_found"})
		return
	}

	removed := 0
	if h.watches != nil {
		removed = h.watches.RemovePrincipal(principalID)
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "Credentials removed", "watches_removed": removed})
}
