package analytics

import (
	"encoding/json"
	"fmt"
)

// Metric is a numeric result that may be mathematically undefined for the
// given input (e.g. a ratio over a zero denominator). Undefined metrics carry
// a reason and are non-aggregable; they are never reported as zero.
type Metric struct {
	Value   float64
	Defined bool
	Reason  string
}

// DefinedMetric wraps a computed value
func DefinedMetric(v float64) Metric {
	return Metric{Value: v, Defined: true}
}

// UndefinedMetric marks a metric as undefined with the given reason
func UndefinedMetric(reason string) Metric {
	return Metric{Reason: reason}
}

func (m Metric) String() string {
	if !m.Defined {
		return fmt.Sprintf("undefined (%s)", m.Reason)
	}
	return fmt.Sprintf("%.2f", m.Value)
}

// MarshalJSON encodes a defined metric as {"value":x} and an undefined one
// as {"undefined":true,"reason":"..."} so downstream consumers cannot
// mistake an undefined metric for a numeric zero.
func (m Metric) MarshalJSON() ([]byte, error) {
	if m.Defined {
		return json.Marshal(struct {
			Value float64 `json:"value"`
		}{m.Value})
	}
	return json.Marshal(struct {
		Undefined bool   `json:"undefined"`
		Reason    string `json:"reason"`
	}{true, m.Reason})
}

// UnmarshalJSON restores a Metric from either encoding
func (m *Metric) UnmarshalJSON(data []byte) error {
	var probe struct {
		Value     *float64 `json:"value"`
		Undefined bool     `json:"undefined"`
		Reason    string   `json:"reason"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}
	if probe.Undefined || probe.Value == nil {
		*m = UndefinedMetric(probe.Reason)
		return nil
	}
	*m = DefinedMetric(*probe.Value)
	return nil
}

// ratio returns num/den as a defined metric, or an undefined metric naming
// the zero denominator
func ratio(num, den float64, denName string) Metric {
	if den == 0 {
		return UndefinedMetric(fmt.Sprintf("%s is zero for the window", denName))
	}
	return DefinedMetric(num / den)
}
