package health

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeJSON(t *testing.T, s string) any {
	t.Helper()
	var v any
	require.NoError(t, json.Unmarshal([]byte(s), &v))
	return v
}

func healthyInput(t *testing.T) HealthInput {
	return HealthInput{
		Location:     decodeJSON(t, `{"id":"l1","name":"Home"}`),
		ServiceLevel: decodeJSON(t, `{"connectionState":"connected"}`),
		Nodes: decodeJSON(t, `[
			{"id":"n1","nickname":"Living Room","connectionState":"connected","health":{"status":"excellent"}},
			{"id":"n2","connectionState":"online","health":"good"}
		]`),
		Devices: decodeJSON(t, `{"devices":[
			{"mac":"aa:bb","nickname":"Phone","connectionState":"connected"},
			{"mac":"cc:dd","connected":true}
		]}`),
		QoE: decodeJSON(t, `{"trafficClassStats":[
			{"trafficClass":"video","health":"good"},
			{"trafficClass":"gaming","qualityIndicator":"excellent"}
		]}`),
	}
}

func TestAnalyzeHealthyLocationIsGreen(t *testing.T) {
	report, err := AnalyzeLocationHealth(healthyInput(t), HealthOptions{})
	require.NoError(t, err)

	assert.True(t, report.Online)
	assert.Equal(t, SeverityGreen, report.Severity)
	assert.Equal(t, Summary(SeverityGreen), report.Summary)
	assert.Empty(t, report.Issues)
	assert.Empty(t, report.Warnings)
	assert.Empty(t, report.DisconnectedNodeNames)
	assert.Empty(t, report.DisconnectedDevices)
	assert.Empty(t, report.PoorQoETrafficClasses)
}

func TestAnalyzeOfflineAlwaysRed(t *testing.T) {
	inputs := map[string]HealthInput{
		"offline only": {
			ServiceLevel: decodeJSON(t, `{"connectionState":"disconnected"}`),
		},
		"offline with everything broken": {
			ServiceLevel: decodeJSON(t, `{"connectionState":"offline"}`),
			Nodes:        decodeJSON(t, `[{"id":"n1","connectionState":"disconnected"}]`),
			Devices:      decodeJSON(t, `[{"mac":"aa","connected":false}]`),
			QoE:          decodeJSON(t, `{"trafficClassStats":[{"trafficClass":"video","health":"poor"}]}`),
		},
		"no status at all": {},
	}
	for name, in := range inputs {
		t.Run(name, func(t *testing.T) {
			report, err := AnalyzeLocationHealth(in, HealthOptions{})
			require.NoError(t, err)
			assert.False(t, report.Online)
			assert.Equal(t, SeverityRed, report.Severity)
			assert.Equal(t, Summary(SeverityRed), report.Summary)
		})
	}
}

func TestAnalyzeOfflineStillPopulatesLists(t *testing.T) {
	in := HealthInput{
		ServiceLevel: decodeJSON(t, `{"connectionState":"offline"}`),
		Nodes:        decodeJSON(t, `[{"id":"n1","connectionState":"disconnected"}]`),
		Devices:      decodeJSON(t, `[{"mac":"aa:bb","nickname":"TV","connected":false}]`),
	}
	report, err := AnalyzeLocationHealth(in, HealthOptions{})
	require.NoError(t, err)

	assert.Equal(t, []string{"n1"}, report.DisconnectedNodeNames)
	assert.Equal(t, []string{"TV (aa:bb)"}, report.DisconnectedDevices)
}

func TestAnalyzeDisconnectedNodeIsOrange(t *testing.T) {
	in := healthyInput(t)
	in.Nodes = decodeJSON(t, `[
		{"id":"n1","nickname":"Office","connectionState":"disconnected"},
		{"id":"n2","connectionState":"connected"},
		{"connectionState":"offline"}
	]`)

	report, err := AnalyzeLocationHealth(in, HealthOptions{})
	require.NoError(t, err)

	assert.Equal(t, SeverityOrange, report.Severity)
	assert.Equal(t, []string{"Office", "Unknown Pod"}, report.DisconnectedNodeNames)
	assert.Len(t, report.Issues, 2)
}

func TestAnalyzePoorNodeHealthIsWarning(t *testing.T) {
	in := healthyInput(t)
	in.Nodes = decodeJSON(t, `[{"id":"n1","connectionState":"connected","health":{"status":"Poor"}}]`)

	report, err := AnalyzeLocationHealth(in, HealthOptions{})
	require.NoError(t, err)

	assert.Equal(t, SeverityYellow, report.Severity)
	assert.Empty(t, report.Issues)
	assert.Len(t, report.Warnings, 1)

	report, err = AnalyzeLocationHealth(in, HealthOptions{NodeWarningGrades: []string{"fair"}})
	require.NoError(t, err)
	assert.Equal(t, SeverityGreen, report.Severity)
}

func TestAnalyzeDisconnectedDeviceIsYellow(t *testing.T) {
	in := healthyInput(t)
	in.Devices = decodeJSON(t, `[
		{"mac":"aa:bb","nickname":"Laptop","connectionState":"disconnected"},
		{"mac":"aa:bb","nickname":"Laptop","connectionState":"disconnected"},
		{"mac":"cc:dd","status":"connected"}
	]`)

	report, err := AnalyzeLocationHealth(in, HealthOptions{})
	require.NoError(t, err)

	assert.Equal(t, SeverityYellow, report.Severity)
	assert.Equal(t, []string{"Laptop (aa:bb)"}, report.DisconnectedDevices)
	assert.Equal(t, []string{"Device 'Laptop' is disconnected"}, report.Warnings)
}

func TestAnalyzePoorQoE(t *testing.T) {
	in := healthyInput(t)
	in.QoE = decodeJSON(t, `{"trafficClassStats":[
		{"trafficClass":"video","health":"POOR"},
		{"trafficClass":"voice","qualityIndicator":"very poor"},
		{"trafficClass":"web","health":"good","score":2.5}
	]}`)

	report, err := AnalyzeLocationHealth(in, HealthOptions{})
	require.NoError(t, err)
	assert.Equal(t, SeverityYellow, report.Severity)
	assert.Equal(t, []string{"video", "voice"}, report.PoorQoETrafficClasses)

	report, err = AnalyzeLocationHealth(in, HealthOptions{QoEGoodScore: 3})
	require.NoError(t, err)
	assert.Equal(t, []string{"video", "voice", "web"}, report.PoorQoETrafficClasses)
}

func TestAnalyzeIsPure(t *testing.T) {
	in := healthyInput(t)
	in.Nodes = decodeJSON(t, `[{"id":"n1","connectionState":"disconnected"}]`)
	in.Devices = decodeJSON(t, `[{"mac":"aa","connected":false}]`)

	first, err := AnalyzeLocationHealth(in, HealthOptions{})
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := AnalyzeLocationHealth(in, HealthOptions{})
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestAnalyzeSkipsMalformedRecords(t *testing.T) {
	in := healthyInput(t)
	in.Nodes = decodeJSON(t, `[
		"garbage",
		42,
		{"id":"n1","connectionState":{"nested":true}},
		{"id":"n2"},
		{"id":"n3","connectionState":"disconnected"}
	]`)
	in.Devices = decodeJSON(t, `[null, {"mac":"aa"}, {"mac":"bb","connected":"false"}]`)

	report, err := AnalyzeLocationHealth(in, HealthOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"n2", "n3"}, report.DisconnectedNodeNames)
	assert.Equal(t, []string{"bb (bb)"}, report.DisconnectedDevices)
}

func TestAnalyzeNodeWithoutStateIsDisconnected(t *testing.T) {
	in := healthyInput(t)
	in.Nodes = decodeJSON(t, `[{"id":"n1","nickname":"Kitchen"}]`)

	report, err := AnalyzeLocationHealth(in, HealthOptions{})
	require.NoError(t, err)
	assert.Equal(t, SeverityOrange, report.Severity)
	assert.Equal(t, []string{"Kitchen"}, report.DisconnectedNodeNames)
	assert.Contains(t, report.Issues, "Pod 'Kitchen' is disconnected")
}

func TestAnalyzeRejectsNonSequence(t *testing.T) {
	in := healthyInput(t)
	in.Nodes = "not a list"

	_, err := AnalyzeLocationHealth(in, HealthOptions{})
	assert.ErrorIs(t, err, ErrUnusableInput)

	in = healthyInput(t)
	in.Devices = decodeJSON(t, `{"unexpected":[]}`)
	_, err = AnalyzeLocationHealth(in, HealthOptions{})
	assert.ErrorIs(t, err, ErrUnusableInput)
}

func TestOnlineFallsBackToLocation(t *testing.T) {
	in := HealthInput{Location: decodeJSON(t, `{"connectionState":"ONLINE"}`)}

	report, err := AnalyzeLocationHealth(in, HealthOptions{})
	require.NoError(t, err)
	assert.True(t, report.Online)
	assert.Equal(t, SeverityGreen, report.Severity)

	in = HealthInput{Location: decodeJSON(t, `{"id":"l1","onlineState":"online"}`)}
	report, err = AnalyzeLocationHealth(in, HealthOptions{})
	require.NoError(t, err)
	assert.True(t, report.Online)
}

func TestHealthReportJSON(t *testing.T) {
	report, err := AnalyzeLocationHealth(healthyInput(t), HealthOptions{})
	require.NoError(t, err)

	raw, err := json.Marshal(report)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"severity":"GREEN"`)
	assert.Contains(t, string(raw), `"disconnected_nodes":[]`)
}

func TestParseSeverity(t *testing.T) {
	sev, err := ParseSeverity("orange")
	require.NoError(t, err)
	assert.Equal(t, SeverityOrange, sev)

	_, err = ParseSeverity("purple")
	assert.Error(t, err)
}

func TestCountInventory(t *testing.T) {
	in := healthyInput(t)
	in.Nodes = decodeJSON(t, `[{"id":"n1","connectionState":"connected"},{"id":"n2","connectionState":"disconnected"},{"id":"n3"},"junk"]`)

	inv, err := CountInventory(in, HealthOptions{})
	require.NoError(t, err)
	assert.Equal(t, Inventory{Nodes: 3, NodesOnline: 1, Devices: 2, DevicesConnected: 2}, inv)
}
