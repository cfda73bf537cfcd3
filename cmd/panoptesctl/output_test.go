package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/EternisAI/panoptes/internal/health"
	"github.com/EternisAI/panoptes/internal/reports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func sampleHealth() reports.LocationHealthReport {
	return reports.LocationHealthReport{
		CustomerID:   "c1",
		LocationID:   "l1",
		LocationName: "Home",
		Inventory:    health.Inventory{Nodes: 2, NodesOnline: 1, Devices: 3, DevicesConnected: 3},
		Health: health.HealthReport{
			Online:                true,
			Issues:                []string{"Pod 'Hall' is disconnected"},
			DisconnectedNodeNames: []string{"Hall"},
			Severity:              health.SeverityOrange,
			Summary:               health.Summary(health.SeverityOrange),
		},
	}
}

func TestValidateOutputFormat(t *testing.T) {
	for _, f := range []string{"table", "json", "yaml"} {
		assert.NoError(t, ValidateOutputFormat(f))
	}
	assert.Error(t, ValidateOutputFormat("xml"))
}

func TestRenderHealthTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, renderHealth(&buf, OutputFormatTable, sampleHealth()))

	out := buf.String()
	assert.Contains(t, out, "Home (l1)")
	assert.Contains(t, out, "SERVICE DISRUPTED")
	assert.Contains(t, out, "Pod 'Hall' is disconnected")
	assert.Contains(t, out, "1/2 online")
}

func TestRenderHealthJSONAndYAMLShareFieldNames(t *testing.T) {
	var jsonBuf, yamlBuf bytes.Buffer
	require.NoError(t, renderHealth(&jsonBuf, OutputFormatJSON, sampleHealth()))
	require.NoError(t, renderHealth(&yamlBuf, OutputFormatYAML, sampleHealth()))

	var fromJSON, fromYAML map[string]any
	require.NoError(t, json.Unmarshal(jsonBuf.Bytes(), &fromJSON))
	require.NoError(t, yaml.Unmarshal(yamlBuf.Bytes(), &fromYAML))

	assert.Equal(t, "Home", fromJSON["location_name"])
	assert.Equal(t, "Home", fromYAML["location_name"])
	assert.Equal(t, "ORANGE", fromJSON["health"].(map[string]any)["severity"])
	assert.Equal(t, "ORANGE", fromYAML["health"].(map[string]any)["severity"])
}

func TestRenderWanTable(t *testing.T) {
	p95 := 20.0
	r := reports.WanReport{
		RangeLabel: "Last 24 hours",
		Analysis: health.WanAnalysis{
			PeakRx:             &health.Peak{Value: 20},
			AvgRx:              15,
			P95Rx:              &p95,
			TotalDownloadBytes: 3_600_000,
			DataQualityRatio:   0.97,
			SampleCount:        100,
			ValidSampleCount:   97,
			ActivityWindows: []health.ActivityWindow{
				{Level: health.ActivityHigh, AvgMbps: 30, Ratio: 2},
			},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, renderWan(&buf, OutputFormatTable, r))
	out := buf.String()
	assert.Contains(t, out, "Last 24 hours")
	assert.Contains(t, out, "3.6MB")
	assert.Contains(t, out, "97%")
	assert.Contains(t, out, "n/a")
	assert.Contains(t, out, "High activity")
}

func TestHealthCommandAgainstFakePlume(t *testing.T) {
	var ssoCalls atomic.Int32
	sso := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ssoCalls.Add(1)
		_, _ = io.WriteString(w, `{"access_token":"tok","expires_in":3600}`)
	}))
	defer sso.Close()

	payloads := map[string]string{
		"/api/Customers/c1/locations/l1":              `{"name":"Home"}`,
		"/api/Customers/c1/locations/l1/serviceLevel": `{"connectionState":"connected"}`,
		"/api/Customers/c1/locations/l1/nodes":        `[{"id":"n1","connectionState":"connected"}]`,
		"/api/Customers/c1/locations/l1/devices":      `[]`,
	}
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := payloads[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = io.WriteString(w, body)
	}))
	defer api.Close()

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{
		"health", "c1", "l1",
		"--auth-header", "Basic abc",
		"--partner-id", "partner-0001",
		"--sso-endpoint", sso.URL,
		"--api-base", api.URL + "/api/",
		"-o", "json",
	})
	require.NoError(t, rootCmd.Execute())

	var report reports.LocationHealthReport
	require.NoError(t, json.Unmarshal(out.Bytes(), &report))
	assert.Equal(t, "Home", report.LocationName)
	assert.Equal(t, health.SeverityGreen, report.Health.Severity)
	assert.EqualValues(t, 1, ssoCalls.Load())
}
