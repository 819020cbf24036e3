package loader

import (
	"slices"
	"strings"

	"github.com/roman-kulish/linkmap/internal/survey"
)

// Columns maps record fields to candidate CSV header names. Header names are
// compared after normalization (lower case, letters and digits only), so
// "Signal Level" matches "signalLevel". The first candidate present in the
// header wins.
type Columns struct {
	Timestamp  []string            `yaml:"datetime"`
	Latitude   []string            `yaml:"latitude"`
	Longitude  []string            `yaml:"longitude"`
	Metrics    map[string][]string `yaml:"metrics"`    // keyed by metric name, e.g. "wireless_signal"
	Attributes map[string][]string `yaml:"attributes"` // keyed by attribute name, e.g. "wireless_channel"
}

// DefaultColumns covers the wireless_* router export and the HaLow link logger
// export.
func DefaultColumns() Columns {
	return Columns{
		Timestamp: []string{"datetime", "timestamp", "time"},
		Latitude:  []string{"latitude", "lat"},
		Longitude: []string{"longitude", "lon", "lng"},
		Metrics: map[string][]string{
			survey.Signal.String():   {"wireless_signal", "signalLevel", "signal"},
			survey.Noise.String():    {"wireless_noisef", "noiseLevel", "noise"},
			survey.RSSI.String():     {"wireless_rssi", "rssi"},
			survey.TxPower.String():  {"wireless_txpower", "txpower"},
			survey.Distance.String(): {"wireless_distance", "distance"},
			survey.CCQ.String():      {"wireless_ccq", "ccq"},
			survey.TxRate.String():   {"wireless_txrate", "txbitrate"},
			survey.RxRate.String():   {"wireless_rxrate", "rxbitrate"},
			survey.Heading.String():  {"heading"},
		},
		Attributes: map[string][]string{
			survey.Channel.String():   {"wireless_channel", "channel"},
			survey.Frequency.String(): {"wireless_frequency", "frequency"},
			survey.OpMode.String():    {"wireless_opmode", "opmode", "mode"},
		},
	}
}

// Merge returns a copy of c where candidates from other take precedence.
func (c Columns) Merge(other Columns) Columns {
	merged := Columns{
		Timestamp:  append(slices.Clone(other.Timestamp), c.Timestamp...),
		Latitude:   append(slices.Clone(other.Latitude), c.Latitude...),
		Longitude:  append(slices.Clone(other.Longitude), c.Longitude...),
		Metrics:    make(map[string][]string, len(c.Metrics)),
		Attributes: make(map[string][]string, len(c.Attributes)),
	}
	for k, v := range c.Metrics {
		merged.Metrics[k] = append(slices.Clone(other.Metrics[k]), v...)
	}
	for k, v := range other.Metrics {
		if _, ok := merged.Metrics[k]; !ok {
			merged.Metrics[k] = slices.Clone(v)
		}
	}
	for k, v := range c.Attributes {
		merged.Attributes[k] = append(slices.Clone(other.Attributes[k]), v...)
	}
	for k, v := range other.Attributes {
		if _, ok := merged.Attributes[k]; !ok {
			merged.Attributes[k] = slices.Clone(v)
		}
	}
	return merged
}

// mapping holds resolved column indexes, -1 for absent columns.
type mapping struct {
	timestamp, latitude, longitude int
	metrics                        [survey.NumMetrics]int
	attributes                     [survey.NumAttributes]int
}

func normalizeHeaderToken(value string) string {
	var b strings.Builder
	b.Grow(len(value))
	for _, r := range strings.ToLower(strings.TrimSpace(value)) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func (c Columns) resolve(header []string) mapping {
	normalized := make(map[string]int, len(header))
	for i, h := range header {
		token := normalizeHeaderToken(h)
		if _, ok := normalized[token]; !ok {
			normalized[token] = i
		}
	}

	find := func(candidates []string) int {
		for _, name := range candidates {
			if idx, ok := normalized[normalizeHeaderToken(name)]; ok {
				return idx
			}
		}
		return -1
	}

	m := mapping{
		timestamp: find(c.Timestamp),
		latitude:  find(c.Latitude),
		longitude: find(c.Longitude),
	}
	for _, metric := range survey.Metrics() {
		m.metrics[metric] = find(c.Metrics[metric.String()])
	}
	for _, attr := range survey.Attributes() {
		m.attributes[attr] = find(c.Attributes[attr.String()])
	}
	return m
}
