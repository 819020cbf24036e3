package survey

import (
	"math"
	"time"

	"github.com/paulmach/orb"
)

// Metric identifies a numeric radio link measurement carried by every Sample.
type Metric int

const (
	Signal   Metric = iota // Signal level in dBm
	Noise                  // Noise floor in dBm
	RSSI                   // Received signal strength indicator
	TxPower                // Transmit power in dBm
	Distance               // Estimated link distance in meters
	CCQ                    // Client connection quality in percent
	TxRate                 // Transmit bitrate in Mb/s
	RxRate                 // Receive bitrate in Mb/s
	Heading                // Antenna heading in degrees

	NumMetrics = int(Heading) + 1
)

// Attribute identifies a categorical measurement; aggregates take it from the
// earliest sample of a window.
type Attribute int

const (
	Channel   Attribute = iota // Wireless channel number
	Frequency                  // Channel center frequency in MHz
	OpMode                     // Operating mode (e.g. "ap", "sta")

	NumAttributes = int(OpMode) + 1
)

var metricNames = [NumMetrics]string{
	Signal:   "wireless_signal",
	Noise:    "wireless_noisef",
	RSSI:     "wireless_rssi",
	TxPower:  "wireless_txpower",
	Distance: "wireless_distance",
	CCQ:      "wireless_ccq",
	TxRate:   "wireless_txrate",
	RxRate:   "wireless_rxrate",
	Heading:  "heading",
}

var metricUnits = [NumMetrics]string{
	Signal:   "dBm",
	Noise:    "dBm",
	TxPower:  "dBm",
	Distance: "m",
	CCQ:      "%",
	TxRate:   "Mb/s",
	RxRate:   "Mb/s",
	Heading:  "degrees",
}

var attributeNames = [NumAttributes]string{
	Channel:   "wireless_channel",
	Frequency: "wireless_frequency",
	OpMode:    "wireless_opmode",
}

// Metrics returns all numeric metrics in declaration order.
func Metrics() []Metric {
	m := make([]Metric, NumMetrics)
	for i := range m {
		m[i] = Metric(i)
	}
	return m
}

// Attributes returns all categorical attributes in declaration order.
func Attributes() []Attribute {
	a := make([]Attribute, NumAttributes)
	for i := range a {
		a[i] = Attribute(i)
	}
	return a
}

func (m Metric) String() string {
	if m < 0 || int(m) >= NumMetrics {
		return "unknown"
	}
	return metricNames[m]
}

// Unit returns the display unit of the metric, empty when dimensionless.
func (m Metric) Unit() string {
	if m < 0 || int(m) >= NumMetrics {
		return ""
	}
	return metricUnits[m]
}

func (a Attribute) String() string {
	if a < 0 || int(a) >= NumAttributes {
		return "unknown"
	}
	return attributeNames[a]
}

// Location is an exact coordinate pair. It is comparable, so two locations are
// equal only when both floats are bitwise equal (no tolerance).
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Point returns the location as an orb point (longitude first).
func (l Location) Point() orb.Point {
	return orb.Point{l.Longitude, l.Latitude}
}

// Sample represents a single timestamped, geolocated radio link measurement.
// Samples are never mutated after loading.
type Sample struct {
	Timestamp  time.Time             `json:"timestamp"`
	Latitude   float64               `json:"latitude"`
	Longitude  float64               `json:"longitude"`
	Metrics    [NumMetrics]*float64  `json:"metrics"`    // nil if missing or non-numeric
	Attributes [NumAttributes]string `json:"attributes"` // empty if missing
}

// Location returns the exact coordinate pair of the sample.
func (s *Sample) Location() Location {
	return Location{Latitude: s.Latitude, Longitude: s.Longitude}
}

// Value returns the metric value, nil if missing.
func (s *Sample) Value(m Metric) *float64 {
	return s.Metrics[m]
}

// Attribute returns the categorical value, empty if missing.
func (s *Sample) Attribute(a Attribute) string {
	return s.Attributes[a]
}

// Stat holds the reduction of one metric across a window. Each field is nil
// when no sample in the window carried a value for the metric.
type Stat struct {
	Mean *float64 `json:"mean,omitempty"`
	Min  *float64 `json:"min,omitempty"`
	Max  *float64 `json:"max,omitempty"`
}

// Valid reports whether at least one value contributed to the statistic.
func (s Stat) Valid() bool {
	return s.Mean != nil
}

// AggregateRecord is the reduction of one merge window: samples taken at the
// same location within the merge threshold of the window's earliest sample.
type AggregateRecord struct {
	Timestamp     time.Time             `json:"timestamp"` // Earliest timestamp in the window
	Latitude      float64               `json:"latitude"`
	Longitude     float64               `json:"longitude"`
	Stats         [NumMetrics]Stat      `json:"stats"`
	Attributes    [NumAttributes]string `json:"attributes"`    // Taken from the earliest sample
	SamplesMerged int                   `json:"samplesMerged"` // Number of samples in the window, at least 1
}

// Location returns the exact coordinate pair of the record.
func (r *AggregateRecord) Location() Location {
	return Location{Latitude: r.Latitude, Longitude: r.Longitude}
}

// Stat returns the reduction of the given metric.
func (r *AggregateRecord) Stat(m Metric) Stat {
	return r.Stats[m]
}

// Attribute returns the categorical value of the record.
func (r *AggregateRecord) Attribute(a Attribute) string {
	return r.Attributes[a]
}

// FromSample builds the single-sample aggregate of s. It is used where samples
// are rendered without merging.
func FromSample(s *Sample) AggregateRecord {
	r := AggregateRecord{
		Timestamp:     s.Timestamp,
		Latitude:      s.Latitude,
		Longitude:     s.Longitude,
		Attributes:    s.Attributes,
		SamplesMerged: 1,
	}
	for i, v := range s.Metrics {
		if v == nil {
			continue
		}
		val := *v
		r.Stats[i] = Stat{Mean: &val, Min: &val, Max: &val}
	}
	return r
}

// Float returns a pointer to v, or nil when v is NaN or infinite.
func Float(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
