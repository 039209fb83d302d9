package entities

import (
	"encoding/json"
	"fmt"
	"strings"
)

// SeverityLevel is the ordered water-quality scale, best first
type SeverityLevel int

const (
	Excellent SeverityLevel = iota
	Good
	Warning
	Danger
)

// SeverityLevels lists every level from best to worst
var SeverityLevels = []SeverityLevel{Excellent, Good, Warning, Danger}

func (l SeverityLevel) String() string {
	switch l {
	case Excellent:
		return "excellent"
	case Good:
		return "good"
	case Warning:
		return "warning"
	case Danger:
		return "danger"
	default:
		return fmt.Sprintf("severity(%d)", int(l))
	}
}

// Title returns the English badge text used on gauges
func (l SeverityLevel) Title() string {
	switch l {
	case Excellent:
		return "Excellent"
	case Good:
		return "Good"
	case Warning:
		return "Warning"
	case Danger:
		return "Danger"
	default:
		return "Unknown"
	}
}

// Label returns the Indonesian status chip text used in the history table
func (l SeverityLevel) Label() string {
	switch l {
	case Excellent:
		return "Sangat Baik"
	case Good:
		return "Baik"
	case Warning:
		return "Peringatan"
	default:
		return "Bahaya"
	}
}

// Worse reports whether l is more severe than other
func (l SeverityLevel) Worse(other SeverityLevel) bool {
	return l > other
}

// ParseSeverityLevel parses the lowercase level name
func ParseSeverityLevel(s string) (SeverityLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "excellent":
		return Excellent, nil
	case "good":
		return Good, nil
	case "warning":
		return Warning, nil
	case "danger":
		return Danger, nil
	}
	return Danger, fmt.Errorf("unknown severity level %q", s)
}

func (l SeverityLevel) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.String())
}

func (l *SeverityLevel) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseSeverityLevel(s)
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// OverallStatus summarises the four metric levels of a reading. It is derived, never stored.
type OverallStatus struct {
	Level   SeverityLevel `json:"level"`
	Message string        `json:"message"`
}
