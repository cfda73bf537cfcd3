package health

import (
	"fmt"
	"log/slog"
	"strings"
)

// HealthOptions holds the classification thresholds. Zero values take the
// defaults from DefaultHealthOptions.
type HealthOptions struct {
	OnlineStates      []string `mapstructure:"online_states"`
	NodeWarningGrades []string `mapstructure:"node_warning_grades"`
	PoorQoEMarkers    []string `mapstructure:"poor_qoe_markers"`
	// QoEGoodScore flags a traffic class whose numeric score is below it.
	// Zero disables score based flagging.
	QoEGoodScore float64 `mapstructure:"qoe_good_score"`
}

func DefaultHealthOptions() HealthOptions {
	return HealthOptions{
		OnlineStates:      []string{"online", "connected"},
		NodeWarningGrades: []string{"poor"},
		PoorQoEMarkers:    []string{"poor"},
	}
}

func (o HealthOptions) withDefaults() HealthOptions {
	d := DefaultHealthOptions()
	if len(o.OnlineStates) == 0 {
		o.OnlineStates = d.OnlineStates
	}
	if len(o.NodeWarningGrades) == 0 {
		o.NodeWarningGrades = d.NodeWarningGrades
	}
	if len(o.PoorQoEMarkers) == 0 {
		o.PoorQoEMarkers = d.PoorQoEMarkers
	}
	return o
}

// HealthInput carries the raw decoded payloads of the location endpoints.
// QoE and ServiceLevel may be nil.
type HealthInput struct {
	Location     any
	ServiceLevel any
	Nodes        any
	Devices      any
	QoE          any
}

type HealthReport struct {
	Online                bool     `json:"online"`
	Issues                []string `json:"issues"`
	Warnings              []string `json:"warnings"`
	DisconnectedNodeNames []string `json:"disconnected_nodes"`
	DisconnectedDevices   []string `json:"disconnected_devices"`
	PoorQoETrafficClasses []string `json:"poor_qoe_traffic"`
	Severity              Severity `json:"severity"`
	Summary               string   `json:"summary"`
}

type connectionStatus struct {
	ConnectionState string `mapstructure:"connectionState"`
	Status          string `mapstructure:"status"`
	State           string `mapstructure:"state"`
	OnlineState     string `mapstructure:"onlineState"`
}

func (c connectionStatus) value() string {
	return firstNonEmpty(c.ConnectionState, c.Status, c.OnlineState, c.State)
}

type Node struct {
	ID              string `mapstructure:"id"`
	Nickname        string `mapstructure:"nickname"`
	Name            string `mapstructure:"name"`
	ConnectionState string `mapstructure:"connectionState"`
	Status          string `mapstructure:"status"`
	// Health is either a grade string or an object with a status field.
	Health any `mapstructure:"health"`
}

func (n Node) DisplayName() string {
	if name := firstNonEmpty(n.Nickname, n.Name, n.ID); name != "" {
		return name
	}
	return "Unknown Pod"
}

func (n Node) state() string {
	return firstNonEmpty(n.ConnectionState, n.Status)
}

func (n Node) grade() string {
	switch h := n.Health.(type) {
	case string:
		return strings.TrimSpace(h)
	case map[string]any:
		for _, k := range []string{"status", "grade", "health"} {
			if s, ok := h[k].(string); ok {
				return strings.TrimSpace(s)
			}
		}
	}
	return ""
}

type Device struct {
	MAC             string `mapstructure:"mac"`
	Nickname        string `mapstructure:"nickname"`
	Name            string `mapstructure:"name"`
	HostName        string `mapstructure:"hostName"`
	Connected       *bool  `mapstructure:"connected"`
	ConnectionState string `mapstructure:"connectionState"`
	Status          string `mapstructure:"status"`
}

// Descriptor renders the device as "name (MAC)".
func (d Device) Descriptor() string {
	mac := firstNonEmpty(d.MAC, "Unknown")
	name := firstNonEmpty(d.Nickname, d.Name, d.HostName, mac)
	return fmt.Sprintf("%s (%s)", name, mac)
}

func (d Device) displayName() string {
	return firstNonEmpty(d.Nickname, d.Name, d.HostName, d.MAC, "Unknown")
}

// connected reports the device state; ok is false when the record carries no
// connectivity signal at all.
func (d Device) connected(onlineStates []string) (connected bool, ok bool) {
	if d.Connected != nil {
		return *d.Connected, true
	}
	state := firstNonEmpty(d.ConnectionState, d.Status)
	if state == "" {
		return false, false
	}
	return containsFold(onlineStates, state), true
}

type QoEStat struct {
	TrafficClass     string   `mapstructure:"trafficClass"`
	Health           string   `mapstructure:"health"`
	QualityIndicator string   `mapstructure:"qualityIndicator"`
	Score            *float64 `mapstructure:"score"`
}

func (q QoEStat) poor(opts HealthOptions) bool {
	indicator := strings.ToLower(firstNonEmpty(q.Health, q.QualityIndicator))
	for _, marker := range opts.PoorQoEMarkers {
		if marker != "" && strings.Contains(indicator, strings.ToLower(marker)) {
			return true
		}
	}
	return opts.QoEGoodScore > 0 && q.Score != nil && *q.Score < opts.QoEGoodScore
}

// AnalyzeLocationHealth classifies a location from its raw payloads. It has no
// side effects; the same input always yields the same report.
func AnalyzeLocationHealth(in HealthInput, opts HealthOptions) (HealthReport, error) {
	opts = opts.withDefaults()

	nodes, err := asList(in.Nodes, "nodes")
	if err != nil {
		return HealthReport{}, fmt.Errorf("nodes: %w", err)
	}
	devices, err := asList(in.Devices, "devices")
	if err != nil {
		return HealthReport{}, fmt.Errorf("devices: %w", err)
	}
	var qoeStats []any
	if in.QoE != nil {
		qoeStats, err = asList(in.QoE, "trafficClassStats")
		if err != nil {
			return HealthReport{}, fmt.Errorf("qoe: %w", err)
		}
	}

	report := HealthReport{
		Online:   locationOnline(in, opts),
		Issues:   []string{},
		Warnings: []string{},
	}
	if !report.Online {
		report.Issues = append(report.Issues, "Location is offline")
	}

	disconnectedNodes := newOrderedSet()
	for i, raw := range nodes {
		var n Node
		if err := decodeRecord(raw, &n); err != nil {
			slog.Debug("Skipping node record", "index", i, "error", err)
			continue
		}
		state := n.state()
		name := n.DisplayName()
		// A pod that reports no state is not reachable.
		if state == "" || !containsFold(opts.OnlineStates, state) {
			if disconnectedNodes.add(name) {
				report.Issues = append(report.Issues, fmt.Sprintf("Pod '%s' is disconnected", name))
			}
			continue
		}
		if grade := n.grade(); grade != "" && containsFold(opts.NodeWarningGrades, grade) {
			report.Warnings = append(report.Warnings, fmt.Sprintf("Pod '%s' health is %s", name, strings.ToLower(grade)))
		}
	}

	disconnectedDevices := newOrderedSet()
	for i, raw := range devices {
		var d Device
		if err := decodeRecord(raw, &d); err != nil {
			slog.Debug("Skipping device record", "index", i, "error", err)
			continue
		}
		connected, ok := d.connected(opts.OnlineStates)
		if !ok {
			slog.Debug("Skipping device record without state", "index", i)
			continue
		}
		if !connected && disconnectedDevices.add(d.Descriptor()) {
			report.Warnings = append(report.Warnings, fmt.Sprintf("Device '%s' is disconnected", d.displayName()))
		}
	}

	poorQoE := newOrderedSet()
	for i, raw := range qoeStats {
		var q QoEStat
		if err := decodeRecord(raw, &q); err != nil || strings.TrimSpace(q.TrafficClass) == "" {
			slog.Debug("Skipping QoE record", "index", i, "error", err)
			continue
		}
		if q.poor(opts) && poorQoE.add(q.TrafficClass) {
			report.Warnings = append(report.Warnings, fmt.Sprintf("Poor QoE detected for %s traffic", q.TrafficClass))
		}
	}

	report.DisconnectedNodeNames = disconnectedNodes.items
	report.DisconnectedDevices = disconnectedDevices.items
	report.PoorQoETrafficClasses = poorQoE.items

	switch {
	case !report.Online:
		report.Severity = SeverityRed
	case len(report.DisconnectedNodeNames) > 0:
		report.Severity = SeverityOrange
	case len(report.Warnings) > 0:
		report.Severity = SeverityYellow
	default:
		report.Severity = SeverityGreen
	}
	report.Summary = Summary(report.Severity)

	return report, nil
}

// locationOnline prefers the service level state and falls back to the
// location record itself.
func locationOnline(in HealthInput, opts HealthOptions) bool {
	for _, src := range []any{in.ServiceLevel, in.Location} {
		if src == nil {
			continue
		}
		var cs connectionStatus
		if err := decodeRecord(src, &cs); err != nil {
			continue
		}
		if v := cs.value(); v != "" {
			return containsFold(opts.OnlineStates, v)
		}
	}
	return false
}

// Inventory counts the nodes and devices a location reports.
type Inventory struct {
	Nodes            int `json:"nodes"`
	NodesOnline      int `json:"nodes_online"`
	Devices          int `json:"devices"`
	DevicesConnected int `json:"devices_connected"`
}

// CountInventory tallies decodable node and device records. Records without a
// state count toward the totals only.
func CountInventory(in HealthInput, opts HealthOptions) (Inventory, error) {
	opts = opts.withDefaults()

	nodes, err := asList(in.Nodes, "nodes")
	if err != nil {
		return Inventory{}, fmt.Errorf("nodes: %w", err)
	}
	devices, err := asList(in.Devices, "devices")
	if err != nil {
		return Inventory{}, fmt.Errorf("devices: %w", err)
	}

	var inv Inventory
	for _, raw := range nodes {
		var n Node
		if decodeRecord(raw, &n) != nil {
			continue
		}
		inv.Nodes++
		if containsFold(opts.OnlineStates, n.state()) {
			inv.NodesOnline++
		}
	}
	for _, raw := range devices {
		var d Device
		if decodeRecord(raw, &d) != nil {
			continue
		}
		inv.Devices++
		if connected, ok := d.connected(opts.OnlineStates); ok && connected {
			inv.DevicesConnected++
		}
	}
	return inv, nil
}
