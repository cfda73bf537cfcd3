package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/EternisAI/panoptes/internal/api/http/dto"
	"github.com/EternisAI/panoptes/internal/api/http/middleware"
	"github.com/EternisAI/panoptes/internal/health"
	"github.com/EternisAI/panoptes/internal/history"
	"github.com/EternisAI/panoptes/internal/plume"
	"github.com/EternisAI/panoptes/internal/reports"
	"github.com/gin-gonic/gin"
)

type rawQuery func(ctx context.Context, principalID, customerID, locationID string) (any, error)

type LocationHandler struct {
	reports *reports.Service
	client  *plume.Client
	history history.Recorder
}

func NewLocationHandler(reportService *reports.Service, client *plume.Client, recorder history.Recorder) *LocationHandler {
	return &LocationHandler{
		reports: reportService,
		client:  client,
		history: recorder,
	}
}

func locationParams(ctx *gin.Context) (string, string, string) {
	return middleware.PrincipalID(ctx), ctx.Param("customer_id"), ctx.Param("location_id")
}

// Health runs the full location health check and keeps a snapshot of the verdict.
func (h *LocationHandler) Health(ctx *gin.Context) {
	principalID, customerID, locationID := locationParams(ctx)

	report, err := h.reports.LocationHealth(ctx.Request.Context(), principalID, customerID, locationID)
	if err != nil {
		respondError(ctx, err)
		return
	}

	if h.history != nil {
		snap := history.NewSnapshot(principalID, customerID, locationID, report.Health, time.Now())
		if err := h.history.Record(ctx.Request.Context(), snap); err != nil {
			slog.Warn("Failed to record health snapshot", "location_id", locationID, "error", err)
		}
	}

	ctx.JSON(http.StatusOK, report)
}

func (h *LocationHandler) Wan(ctx *gin.Context) {
	r, ok := h.timeRange(ctx)
	if !ok {
		return
	}
	principalID, customerID, locationID := locationParams(ctx)

	report, err := h.reports.WanConsumption(ctx.Request.Context(), principalID, customerID, locationID, r)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, report)
}

func (h *LocationHandler) OnlineStats(ctx *gin.Context) {
	r, ok := h.timeRange(ctx)
	if !ok {
		return
	}
	principalID, customerID, locationID := locationParams(ctx)

	report, err := h.reports.OnlineStats(ctx.Request.Context(), principalID, customerID, locationID, r)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, report)
}

func (h *LocationHandler) Nodes(ctx *gin.Context) {
	h.raw(ctx, h.client.Nodes)
}

func (h *LocationHandler) Devices(ctx *gin.Context) {
	h.raw(ctx, h.client.Devices)
}

func (h *LocationHandler) WifiNetworks(ctx *gin.Context) {
	h.raw(ctx, h.client.WifiNetworks)
}

func (h *LocationHandler) History(ctx *gin.Context) {
	var q dto.HistoryQuery
	if err := ctx.ShouldBindQuery(&q); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error(), Code: "invalid_argument"})
		return
	}
	principalID, customerID, locationID := locationParams(ctx)

	snaps, err := h.history.List(ctx.Request.Context(), principalID, customerID, locationID, q.Limit)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.HistoryResponse{Snapshots: snaps, Count: len(snaps)})
}

func (h *LocationHandler) raw(ctx *gin.Context, query rawQuery) {
	principalID, customerID, locationID := locationParams(ctx)

	data, err := query(ctx.Request.Context(), principalID, customerID, locationID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.RawResponse{
		CustomerID: customerID,
		LocationID: locationID,
		Data:       data,
	})
}

func (h *LocationHandler) timeRange(ctx *gin.Context) (health.TimeRange, bool) {
	var q dto.RangeQuery
	_ = ctx.ShouldBindQuery(&q)
	if q.Range == "" {
		q.Range = health.DefaultTimeRange
	}

	r, err := health.ParseTimeRange(q.Range)
	if err != nil {
		respondError(ctx, err)
		return health.TimeRange{}, false
	}
	return r, true
}
