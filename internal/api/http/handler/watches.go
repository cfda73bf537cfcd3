package handler

import (
	"net/http"

	"github.com/EternisAI/panoptes/internal/api/http/dto"
	"github.com/EternisAI/panoptes/internal/api/http/middleware"
	"github.com/EternisAI/panoptes/internal/monitor"
	"github.com/gin-gonic/gin"
)

type WatchHandler struct {
	monitor *monitor.Monitor
}

func NewWatchHandler(m *monitor.Monitor) *WatchHandler {
	return &WatchHandler{
		monitor: m,
	}
}

func (h *WatchHandler) List(ctx *gin.Context) {
	watches := h.monitor.List(middleware.PrincipalID(ctx))
	ctx.JSON(http.StatusOK, dto.WatchesResponse{
		Watches: watches,
		Count:   len(watches),
	})
}

func (h *WatchHandler) Add(ctx *gin.Context) {
	var req dto.WatchRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error(), Code: "invalid_argument"})
		return
	}

	w, err := h.monitor.Add(middleware.PrincipalID(ctx), req.CustomerID, req.LocationID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, w)
}

func (h *WatchHandler) Remove(ctx *gin.Context) {
	if !h.monitor.Remove(middleware.PrincipalID(ctx), ctx.Param("customer_id"), ctx.Param("location_id")) {
		ctx.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "watch not found", Code: "not_found"})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "Watch removed"})
}
