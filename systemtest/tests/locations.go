package tests

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/EternisAI/panoptes/internal/api/http/dto"
	"github.com/EternisAI/panoptes/internal/health"
	"github.com/EternisAI/panoptes/internal/reports"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const locationPath = "/api/v1/customers/c1/locations/l1"

// TestLocationFlow walks a principal through setup, a health check and the
// persisted history of that check.
func TestLocationFlow(t *testing.T, router *gin.Engine, adminKey string, plume *FakePlume) {
	rr := doAdmin(router, "POST", "/admin/principals/1001/token", adminKey)
	require.Equal(t, http.StatusCreated, rr.Code)
	var issued dto.IssueTokenResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &issued))
	bearer := issued.Token

	t.Run("not configured before setup", func(t *testing.T) {
		rr := doJSON(router, "GET", locationPath+"/health", bearer, nil)
		assert.Equal(t, http.StatusPreconditionFailed, rr.Code)
		assert.Zero(t, plume.SSOCalls.Load())
	})

	t.Run("setup with verification", func(t *testing.T) {
		rr := doJSON(router, "PUT", "/api/v1/credentials", bearer, dto.PutCredentialsRequest{
			AuthHeader: "Basic c3lzdGVt",
			PartnerID:  "partner-system",
			Verify:     true,
		})
		require.Equal(t, http.StatusOK, rr.Code)
		assert.NotContains(t, rr.Body.String(), "c3lzdGVt")
		assert.EqualValues(t, 1, plume.SSOCalls.Load())
	})

	t.Run("health check is orange with a disconnected pod", func(t *testing.T) {
		rr := doJSON(router, "GET", locationPath+"/health", bearer, nil)
		require.Equal(t, http.StatusOK, rr.Code)

		var report reports.LocationHealthReport
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &report))
		assert.Equal(t, "Office", report.LocationName)
		assert.Equal(t, health.SeverityOrange, report.Health.Severity)
		assert.Equal(t, []string{"Attic"}, report.Health.DisconnectedNodeNames)
		assert.EqualValues(t, 1, plume.SSOCalls.Load())
	})

	t.Run("history is persisted", func(t *testing.T) {
		rr := doJSON(router, "GET", locationPath+"/history", bearer, nil)
		require.Equal(t, http.StatusOK, rr.Code)

		var hist dto.HistoryResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &hist))
		require.Equal(t, 1, hist.Count)
		assert.Equal(t, health.SeverityOrange, hist.Snapshots[0].Severity)
		assert.Equal(t, 1, hist.Snapshots[0].IssueCount)
	})
}
