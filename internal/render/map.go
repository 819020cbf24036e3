package render

import (
	"bytes"
	"fmt"
	"html/template"
	"io"

	"github.com/roman-kulish/linkmap/internal/survey"
)

const (
	mapZoom          = 13
	markerRadius     = 5
	arrowSize        = 20
	markerOpacity    = 0.85
	leafletVersion   = "1.9.4"
	openStreetMapURL = "https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png"
)

const mapTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>{{.Title}}</title>
<link rel="stylesheet" href="https://unpkg.com/leaflet@{{.LeafletVersion}}/dist/leaflet.css">
<script src="https://unpkg.com/leaflet@{{.LeafletVersion}}/dist/leaflet.js"></script>
<style>
html, body, #map { height: 100%; margin: 0; }
.legend { background: white; padding: 6px 8px; font: 12px sans-serif; line-height: 18px; }
.arrow { background: none; border: none; }
.legend i { width: 12px; height: 12px; float: left; margin: 3px 6px 0 0; border-radius: 6px; }
</style>
</head>
<body>
<div id="map"></div>
<script>
const map = L.map('map').setView([{{.CenterLat}}, {{.CenterLon}}], {{.Zoom}});
L.tileLayer({{.TileURL}}, {
  maxZoom: 19,
  attribution: '&copy; OpenStreetMap contributors'
}).addTo(map);

function arrowIcon(color, heading) {
  const size = {{.ArrowSize}};
  return L.divIcon({
    className: 'arrow',
    html: '<svg width="' + size + '" height="' + size + '" viewBox="0 0 20 20" style="transform: rotate(' + heading + 'deg)">' +
      '<path d="M10 1 L17 19 L10 14 L3 19 Z" fill="' + color + '" stroke="black" stroke-width="0.5"/></svg>',
    iconSize: [size, size],
    iconAnchor: [size / 2, size / 2]
  });
}

const markers = {{.Markers}};
for (const m of markers) {
  const marker = m.heading === undefined
    ? L.circleMarker([m.lat, m.lon], {
        radius: {{.Radius}},
        color: m.color,
        fill: true,
        fillOpacity: {{.Opacity}}
      })
    : L.marker([m.lat, m.lon], {icon: arrowIcon(m.color, m.heading)});
  marker.bindPopup(m.popup).addTo(map);
}

const legend = L.control({position: 'bottomright'});
legend.onAdd = function () {
  const div = L.DomUtil.create('div', 'legend');
  div.innerHTML = '<b>' + {{.Scheme}} + '</b>';
  for (const e of {{.Legend}}) {
    div.innerHTML += '<br><i style="background:' + e.color + '"></i>' + e.label;
  }
  return div;
};
legend.addTo(map);
</script>
</body>
</html>
`

type mapMarker struct {
	Lat     float64  `json:"lat"`
	Lon     float64  `json:"lon"`
	Color   string   `json:"color"`
	Popup   string   `json:"popup"`
	Heading *float64 `json:"heading,omitempty"` // degrees clockwise from north, drawn as an arrow
}

type mapLegendEntry struct {
	Color string `json:"color"`
	Label string `json:"label"`
}

type mapData struct {
	Title          string
	LeafletVersion string
	TileURL        string
	CenterLat      float64
	CenterLon      float64
	Zoom           int
	Radius         int
	ArrowSize      int
	Opacity        float64
	Scheme         string
	Markers        []mapMarker
	Legend         []mapLegendEntry
}

// MapRenderer writes a standalone Leaflet page with one marker per record: a
// circle, or an arrow rotated to the heading of an unmerged sample.
type MapRenderer struct {
	config Config
	tmpl   *template.Template
}

func newMapRenderer(config Config) (*MapRenderer, error) {
	tmpl, err := template.New("map").Parse(mapTemplate)
	if err != nil {
		return nil, fmt.Errorf("parsing map template: %w", err)
	}
	return &MapRenderer{config: config, tmpl: tmpl}, nil
}

func (r *MapRenderer) Format() Format {
	return FormatHTML
}

func (r *MapRenderer) Render(w io.Writer, records []survey.AggregateRecord) error {
	if len(records) == 0 {
		return ErrNoData
	}

	_, center := extent(records)

	data := mapData{
		Title:          r.config.Title,
		LeafletVersion: leafletVersion,
		TileURL:        openStreetMapURL,
		CenterLat:      center.Lat(),
		CenterLon:      center.Lon(),
		Zoom:           mapZoom,
		Radius:         markerRadius,
		ArrowSize:      arrowSize,
		Opacity:        markerOpacity,
		Scheme:         r.config.Scheme.Title(),
		Markers:        make([]mapMarker, len(records)),
	}

	for i := range records {
		rec := &records[i]
		data.Markers[i] = mapMarker{
			Lat:     rec.Latitude,
			Lon:     rec.Longitude,
			Color:   string(r.config.Scheme.Color(rec)),
			Popup:   r.config.Popup(rec),
			Heading: r.config.heading(rec),
		}
	}
	for _, e := range r.config.Scheme.Legend() {
		data.Legend = append(data.Legend, mapLegendEntry{Color: string(e.Color), Label: e.Label})
	}

	// a failed template leaves w untouched
	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, data); err != nil {
		return fmt.Errorf("executing map template: %w", err)
	}

	_, err := buf.WriteTo(w)
	return err
}
