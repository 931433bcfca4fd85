package instances

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// InstancesList is the top-level document served by the instances API.
// Each element is a two-item array: [name, details].
type InstancesList []Instance

// Instance is one decoded [name, details] pair.
type Instance struct {
	Name    string
	Details Details
}

// Details carries the fields the health filter looks at. Unknown fields are ignored.
type Details struct {
	URI     string   `json:"uri"`
	Type    string   `json:"type"`
	Monitor *Monitor `json:"monitor"`
}

// Monitor is the uptime monitor block; it is null for unmonitored instances.
type Monitor struct {
	StatusClass string       `json:"statusClass"`
	DailyRatios []DailyRatio `json:"dailyRatios"`
}

// DailyRatio is one day's uptime percentage (0-100).
type DailyRatio struct {
	Ratio Ratio  `json:"ratio"`
	Label string `json:"label,omitempty"`
}

// Ratio accepts both "99.87" and 99.87.
type Ratio float64

func (r *Ratio) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		*r = 0
		return nil
	}
	s = strings.Trim(s, `"`)
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("invalid ratio %s: %w", string(b), err)
	}
	*r = Ratio(f)
	return nil
}

func (i *Instance) UnmarshalJSON(b []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(b, &pair); err != nil {
		return fmt.Errorf("instance entry is not an array: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("instance entry has %d elements, want 2", len(pair))
	}
	if err := json.Unmarshal(pair[0], &i.Name); err != nil {
		return fmt.Errorf("invalid instance name: %w", err)
	}
	if err := json.Unmarshal(pair[1], &i.Details); err != nil {
		return fmt.Errorf("invalid details for %s: %w", i.Name, err)
	}
	return nil
}

// StaticConfig is the YAML format accepted by FileLoader.
//
//	endpoints:
//	  - yewtu.be
//	  - https://inv.example.org
type StaticConfig struct {
	Endpoints []string `yaml:"endpoints"`
}
