package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/EternisAI/panoptes/internal/credentials"
	"github.com/EternisAI/panoptes/internal/health"
	"github.com/EternisAI/panoptes/internal/reports"
	"github.com/docker/go-units"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"gopkg.in/yaml.v3"
)

type OutputFormat string

const (
	OutputFormatTable OutputFormat = "table"
	OutputFormatJSON  OutputFormat = "json"
	OutputFormatYAML  OutputFormat = "yaml"
)

func ValidateOutputFormat(format string) error {
	switch OutputFormat(format) {
	case OutputFormatTable, OutputFormatJSON, OutputFormatYAML:
		return nil
	default:
		return fmt.Errorf("unsupported output format: %q (valid: table, json, yaml)", format)
	}
}

// renderStructured writes v as JSON or YAML. YAML goes through JSON first so
// both formats share the json field names.
func renderStructured(w io.Writer, format OutputFormat, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	if format == OutputFormatJSON {
		_, err = fmt.Fprintln(w, string(data))
		return err
	}

	var generic any
	if err := json.Unmarshal(data, &generic); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	out, err := yaml.Marshal(generic)
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	_, err = w.Write(out)
	return err
}

func newTable(w io.Writer, title string) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.SetTitle(title)
	return t
}

func severityColor(s health.Severity) text.Colors {
	switch s {
	case health.SeverityGreen:
		return text.Colors{text.FgGreen}
	case health.SeverityYellow:
		return text.Colors{text.FgYellow}
	case health.SeverityOrange:
		return text.Colors{text.FgHiYellow, text.Bold}
	default:
		return text.Colors{text.FgRed, text.Bold}
	}
}

func renderToken(w io.Writer, format OutputFormat, status credentials.Status, accessToken string) error {
	if format != OutputFormatTable {
		return renderStructured(w, format, struct {
			credentials.Status
			AccessToken string `json:"access_token,omitempty"`
		}{status, accessToken})
	}

	t := newTable(w, "Plume token")
	t.AppendRow(table.Row{"Partner", status.PartnerID})
	t.AppendRow(table.Row{"SSO endpoint", status.SSOEndpoint})
	t.AppendRow(table.Row{"Token valid", status.TokenValid})
	if status.TokenExpiry != nil {
		t.AppendRow(table.Row{"Expires", status.TokenExpiry.Format(time.RFC3339)})
	}
	if accessToken != "" {
		t.AppendRow(table.Row{"Access token", accessToken})
	}
	t.Render()
	return nil
}

func renderRaw(w io.Writer, format OutputFormat, raw any) error {
	if format == OutputFormatTable {
		format = OutputFormatYAML
	}
	return renderStructured(w, format, raw)
}

func renderHealth(w io.Writer, format OutputFormat, r reports.LocationHealthReport) error {
	if format != OutputFormatTable {
		return renderStructured(w, format, r)
	}

	h := r.Health
	t := newTable(w, fmt.Sprintf("%s (%s)", r.LocationName, r.LocationID))
	t.AppendRow(table.Row{"Status", severityColor(h.Severity).Sprint(h.Summary)})
	t.AppendRow(table.Row{"Online", h.Online})
	t.AppendRow(table.Row{"Pods", fmt.Sprintf("%d/%d online", r.Inventory.NodesOnline, r.Inventory.Nodes)})
	t.AppendRow(table.Row{"Devices", fmt.Sprintf("%d/%d connected", r.Inventory.DevicesConnected, r.Inventory.Devices)})
	if !r.QoEAvailable {
		t.AppendRow(table.Row{"QoE", text.FgHiBlack.Sprint("unavailable")})
	}
	t.AppendSeparator()
	for _, issue := range h.Issues {
		t.AppendRow(table.Row{text.FgRed.Sprint("Issue"), issue})
	}
	for _, warning := range h.Warnings {
		t.AppendRow(table.Row{text.FgYellow.Sprint("Warning"), warning})
	}
	if len(h.Issues) == 0 && len(h.Warnings) == 0 {
		t.AppendRow(table.Row{"Findings", "none"})
	}
	t.Render()
	return nil
}

func formatRate(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.2f Mbps", *v)
}

func formatPeak(p *health.Peak) string {
	if p == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.2f Mbps at %s", p.Value, p.Timestamp.Format("Jan 02 15:04"))
}

func renderWan(w io.Writer, format OutputFormat, r reports.WanReport) error {
	if format != OutputFormatTable {
		return renderStructured(w, format, r)
	}

	a := r.Analysis
	t := newTable(w, fmt.Sprintf("WAN consumption, %s", r.RangeLabel))
	t.AppendHeader(table.Row{"", "Download", "Upload"})
	t.AppendRow(table.Row{"Total", units.HumanSize(a.TotalDownloadBytes), units.HumanSize(a.TotalUploadBytes)})
	t.AppendRow(table.Row{"Average", fmt.Sprintf("%.2f Mbps", a.AvgRx), fmt.Sprintf("%.2f Mbps", a.AvgTx)})
	t.AppendRow(table.Row{"95th percentile", formatRate(a.P95Rx), formatRate(a.P95Tx)})
	t.AppendRow(table.Row{"Peak", formatPeak(a.PeakRx), formatPeak(a.PeakTx)})
	t.AppendFooter(table.Row{"Data quality", fmt.Sprintf("%.0f%%", a.DataQualityRatio*100),
		fmt.Sprintf("%d/%d samples", a.ValidSampleCount, a.SampleCount)})
	t.Render()

	if len(a.ActivityWindows) > 0 {
		aw := newTable(w, "High activity")
		aw.AppendHeader(table.Row{"Hour", "Level", "Avg", "x baseline"})
		for _, win := range a.ActivityWindows {
			level := strings.ToUpper(string(win.Level))
			if win.Level == health.ActivityHigh {
				level = text.FgRed.Sprint(level)
			}
			aw.AppendRow(table.Row{win.Timestamp.Format("Jan 02 15:04"), level,
				fmt.Sprintf("%.2f Mbps", win.AvgMbps), fmt.Sprintf("%.1f", win.Ratio)})
		}
		aw.Render()
	}
	return nil
}

func renderOnline(w io.Writer, format OutputFormat, r reports.OnlineReport) error {
	if format != OutputFormatTable {
		return renderStructured(w, format, r)
	}

	m := r.Metrics
	t := newTable(w, fmt.Sprintf("%s uptime, %s", r.LocationName, m.TimeRangeLabel))
	t.AppendRow(table.Row{"Uptime", fmt.Sprintf("%.2f%%", m.UptimePercentage)})
	t.AppendRow(table.Row{"Status", m.StatusLabel})
	t.AppendRow(table.Row{"Incidents", m.Incidents})
	t.AppendRow(table.Row{"Trend", m.Trend})
	t.AppendRow(table.Row{"Samples", fmt.Sprintf("%d online, %d offline, %d intermittent", m.OnlineCount, m.OfflineCount, m.IntermittentCount)})
	for _, start := range m.IncidentStarts {
		t.AppendRow(table.Row{text.FgRed.Sprint("Offline since"), start.Format(time.RFC3339)})
	}
	t.Render()
	return nil
}
