package health

import (
	"fmt"
	"strings"
)

type Severity int

const (
	SeverityGreen Severity = iota
	SeverityYellow
	SeverityOrange
	SeverityRed
)

var severityNames = map[Severity]string{
	SeverityGreen:  "GREEN",
	SeverityYellow: "YELLOW",
	SeverityOrange: "ORANGE",
	SeverityRed:    "RED",
}

var summaries = map[Severity]string{
	SeverityGreen:  "ALL SYSTEMS OPERATIONAL - No issues detected",
	SeverityYellow: "DEGRADED SERVICE - Some devices disconnected or poor QoE",
	SeverityOrange: "SERVICE DISRUPTED - Pods are disconnected",
	SeverityRed:    "LOCATION IS OFFLINE - Service is unavailable",
}

func (s Severity) String() string {
	if name, ok := severityNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Severity(%d)", int(s))
}

func (s Severity) MarshalText() ([]byte, error) {
	if _, ok := severityNames[s]; !ok {
		return nil, fmt.Errorf("unknown severity %d", int(s))
	}
	return []byte(s.String()), nil
}

func (s *Severity) UnmarshalText(text []byte) error {
	parsed, err := ParseSeverity(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

func ParseSeverity(name string) (Severity, error) {
	for sev, n := range severityNames {
		if strings.EqualFold(n, strings.TrimSpace(name)) {
			return sev, nil
		}
	}
	return SeverityGreen, fmt.Errorf("unknown severity %q", name)
}

// Summary is the fixed human-readable line for a severity.
func Summary(s Severity) string {
	return summaries[s]
}
