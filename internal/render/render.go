package render

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/paulmach/orb"

	"github.com/roman-kulish/linkmap/internal/survey"
)

// ErrNoData is returned when there are no records to render.
var ErrNoData = errors.New("no records to render")

const defaultDatetimeFormat = time.DateTime

// Format is an output format of the renderer.
type Format string

const (
	FormatHTML    Format = "html"
	FormatGeoJSON Format = "geojson"
	FormatPNG     Format = "png"
)

// ParseFormat converts a format name. The empty string selects FormatHTML.
func ParseFormat(name string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(name))); f {
	case "":
		return FormatHTML, nil
	case FormatHTML, FormatGeoJSON, FormatPNG:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format '%s'", name)
	}
}

// Extension returns the file extension for the format, without a dot.
func (f Format) Extension() string {
	return string(f)
}

// Config holds the options shared by all renderers
type Config struct {
	Scheme      Scheme         // Color scheme, SchemeAuto is resolved with HasBitrates
	HasBitrates bool           // Input carried both rx and tx bitrate columns
	Raw         bool           // Records are unmerged samples
	Title       string         // Document title, usually the input file name
	Location    *time.Location // Timezone for time display

	// DatetimeFormat is the layout for timestamps in popups and labels
	DatetimeFormat string

	// PNG only
	Width    int     // Plot width in pixels, excluding borders
	FontSize float64 // Font size in points
}

func (c *Config) withDefaults() Config {
	cfg := *c
	cfg.Scheme = cfg.Scheme.Resolve(cfg.HasBitrates)
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.DatetimeFormat == "" {
		cfg.DatetimeFormat = defaultDatetimeFormat
	}
	if cfg.Title == "" {
		cfg.Title = "Wireless link map"
	}
	if cfg.Width <= 0 {
		cfg.Width = defaultPlotWidth
	}
	if cfg.FontSize <= 0 {
		cfg.FontSize = fontSize
	}
	return cfg
}

// heading returns the heading of an unmerged sample. Merged records have no
// meaningful single heading, so nil is returned for them.
func (c *Config) heading(r *survey.AggregateRecord) *float64 {
	if !c.Raw {
		return nil
	}
	return r.Stat(survey.Heading).Mean
}

// Renderer writes records in one output format.
type Renderer interface {
	// Render writes the records to w. ErrNoData is returned for an empty slice
	// and nothing is written.
	Render(w io.Writer, records []survey.AggregateRecord) error

	// Format returns the output format of the renderer.
	Format() Format
}

// New creates a renderer for the given format.
func New(format Format, config Config) (Renderer, error) {
	cfg := config.withDefaults()

	switch format {
	case FormatHTML, "":
		return newMapRenderer(cfg)
	case FormatGeoJSON:
		return &GeoJSONRenderer{config: cfg}, nil
	case FormatPNG:
		return newPlotRenderer(cfg)
	default:
		return nil, fmt.Errorf("unknown output format '%s'", format)
	}
}

// extent returns the bounding box of the records and the mean of their
// coordinates.
func extent(records []survey.AggregateRecord) (orb.Bound, orb.Point) {
	points := make(orb.MultiPoint, len(records))

	var sumLat, sumLon float64
	for i := range records {
		points[i] = records[i].Location().Point()
		sumLat += records[i].Latitude
		sumLon += records[i].Longitude
	}

	n := float64(len(records))
	return points.Bound(), orb.Point{sumLon / n, sumLat / n}
}

// timeRange returns the earliest and latest record timestamps.
func timeRange(records []survey.AggregateRecord) (time.Time, time.Time) {
	start, end := records[0].Timestamp, records[0].Timestamp
	for i := range records[1:] {
		ts := records[i+1].Timestamp
		if ts.Before(start) {
			start = ts
		}
		if ts.After(end) {
			end = ts
		}
	}
	return start, end
}

// samplesMerged returns the total number of samples behind the records.
func samplesMerged(records []survey.AggregateRecord) int {
	var n int
	for i := range records {
		n += records[i].SamplesMerged
	}
	return n
}
