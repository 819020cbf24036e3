package render

import (
	"fmt"
	"io"
	"time"

	"github.com/paulmach/orb/geojson"

	"github.com/roman-kulish/linkmap/internal/survey"
)

// GeoJSONRenderer writes records as a FeatureCollection of points. Statistics
// become properties named <metric>, <metric>_min and <metric>_max; missing
// values are omitted. "marker-color" follows the simplestyle convention.
type GeoJSONRenderer struct {
	config Config
}

func (r *GeoJSONRenderer) Format() Format {
	return FormatGeoJSON
}

func (r *GeoJSONRenderer) Render(w io.Writer, records []survey.AggregateRecord) error {
	if len(records) == 0 {
		return ErrNoData
	}

	fc := geojson.NewFeatureCollection()
	for i := range records {
		fc.Append(r.feature(&records[i]))
	}

	data, err := fc.MarshalJSON()
	if err != nil {
		return fmt.Errorf("marshaling feature collection: %w", err)
	}

	_, err = w.Write(data)
	return err
}

func (r *GeoJSONRenderer) feature(rec *survey.AggregateRecord) *geojson.Feature {
	f := geojson.NewFeature(rec.Location().Point())

	f.Properties["datetime"] = rec.Timestamp.In(r.config.Location).Format(time.RFC3339Nano)
	f.Properties["samples_merged"] = rec.SamplesMerged
	f.Properties["marker-color"] = r.config.Scheme.Color(rec).Hex()

	for _, m := range survey.Metrics() {
		s := rec.Stat(m)
		if s.Mean != nil {
			f.Properties[m.String()] = *s.Mean
		}
		if r.config.Raw {
			continue
		}
		if s.Min != nil {
			f.Properties[m.String()+"_min"] = *s.Min
		}
		if s.Max != nil {
			f.Properties[m.String()+"_max"] = *s.Max
		}
	}

	for _, a := range survey.Attributes() {
		if v := rec.Attribute(a); v != "" {
			f.Properties[a.String()] = v
		}
	}

	return f
}
