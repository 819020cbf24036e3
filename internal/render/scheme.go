package render

import (
	"fmt"
	"strings"

	"github.com/roman-kulish/linkmap/internal/survey"
)

// Scheme selects which metric drives the marker color.
type Scheme string

const (
	SchemeAuto     Scheme = "auto"     // SchemeBitrate when bitrates are present, SchemeRelative otherwise
	SchemeSignal   Scheme = "signal"   // Mean signal level
	SchemeRelative Scheme = "relative" // Mean signal minus mean noise
	SchemeBitrate  Scheme = "bitrate"  // Minimum rx bitrate, Wi-Fi buckets
	SchemeHaLow    Scheme = "halow"    // Mean tx bitrate, HaLow buckets
)

// ParseScheme converts a scheme name. The empty string selects SchemeAuto.
func ParseScheme(name string) (Scheme, error) {
	switch s := Scheme(strings.ToLower(strings.TrimSpace(name))); s {
	case "":
		return SchemeAuto, nil
	case SchemeAuto, SchemeSignal, SchemeRelative, SchemeBitrate, SchemeHaLow:
		return s, nil
	default:
		return "", fmt.Errorf("unknown color scheme '%s'", name)
	}
}

// Resolve replaces SchemeAuto with a concrete scheme.
func (s Scheme) Resolve(hasBitrates bool) Scheme {
	if s != SchemeAuto && s != "" {
		return s
	}
	if hasBitrates {
		return SchemeBitrate
	}
	return SchemeRelative
}

// Color returns the marker color of a record. SchemeAuto must be resolved first;
// unresolved it behaves like SchemeRelative.
func (s Scheme) Color(r *survey.AggregateRecord) Color {
	switch s {
	case SchemeSignal:
		return SignalColor(r.Stat(survey.Signal).Mean)
	case SchemeBitrate:
		return BitrateColor(r.Stat(survey.RxRate).Min)
	case SchemeHaLow:
		return HaLowBitrateColor(r.Stat(survey.TxRate).Mean)
	default:
		return RelativeSignalColor(r.Stat(survey.Signal).Mean, r.Stat(survey.Noise).Mean)
	}
}

// LegendEntry describes one color bucket.
type LegendEntry struct {
	Color Color
	Label string
}

// Legend lists the buckets of the scheme from best to worst, followed by the
// zero and missing colors.
func (s Scheme) Legend() []LegendEntry {
	var buckets []bucket
	var unit string

	switch s {
	case SchemeSignal:
		buckets, unit = signalBuckets, "dBm"
	case SchemeBitrate:
		buckets, unit = bitrateBuckets, "Mb/s"
	case SchemeHaLow:
		buckets, unit = haLowBitrateBuckets, "Mb/s"
	default:
		buckets, unit = relativeSignalBuckets, "dB"
	}

	entries := make([]LegendEntry, 0, len(buckets)+3)
	for _, b := range buckets {
		entries = append(entries, LegendEntry{Color: b.Color, Label: fmt.Sprintf("≥ %g %s", b.Min, unit)})
	}
	last := buckets[len(buckets)-1]
	entries = append(entries,
		LegendEntry{Color: DarkRed, Label: fmt.Sprintf("< %g %s", last.Min, unit)},
		LegendEntry{Color: Black, Label: "0"},
		LegendEntry{Color: Gray, Label: "n/a"},
	)
	return entries
}

// Title returns a human-readable description of the scheme.
func (s Scheme) Title() string {
	switch s {
	case SchemeSignal:
		return "Signal level"
	case SchemeBitrate:
		return "Rx bitrate (min)"
	case SchemeHaLow:
		return "HaLow tx bitrate"
	default:
		return "Signal to noise"
	}
}
