package dto

import (
	"github.com/EternisAI/panoptes/internal/history"
	"github.com/EternisAI/panoptes/internal/monitor"
)

type RawResponse struct {
	CustomerID string `json:"customer_id"`
	LocationID string `json:"location_id"`
	Data       any    `json:"data"`
}

type HistoryResponse struct {
	Snapshots []history.Snapshot `json:"snapshots"`
	Count     int                `json:"count"`
}

type WatchRequest struct {
	CustomerID string `json:"customer_id" binding:"required"`
	LocationID string `json:"location_id" binding:"required"`
}

type WatchesResponse struct {
	Watches []monitor.Watch `json:"watches"`
	Count   int             `json:"count"`
}

type HistoryQuery struct {
	Limit int `form:"limit" binding:"omitempty,min=1,max=500"`
}

type RangeQuery struct {
	Range string `form:"range"`
}
