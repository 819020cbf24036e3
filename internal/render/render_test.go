package render

import (
	"bytes"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"math"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/paulmach/orb/geojson"

	"github.com/roman-kulish/linkmap/internal/survey"
)

func f(v float64) *float64 {
	return &v
}

func record(lat, lon float64, signal, noise, rxMin *float64) survey.AggregateRecord {
	r := survey.AggregateRecord{
		Timestamp:     time.Date(2024, 5, 12, 14, 30, 0, 0, time.UTC),
		Latitude:      lat,
		Longitude:     lon,
		SamplesMerged: 3,
	}
	r.Stats[survey.Signal] = survey.Stat{Mean: signal, Min: signal, Max: signal}
	r.Stats[survey.Noise] = survey.Stat{Mean: noise, Min: noise, Max: noise}
	r.Stats[survey.RxRate] = survey.Stat{Mean: rxMin, Min: rxMin, Max: rxMin}
	r.Attributes = [survey.NumAttributes]string{"36", "5180", "sta"}
	return r
}

func testRecords() []survey.AggregateRecord {
	return []survey.AggregateRecord{
		record(51.5000, -0.1200, f(-55), f(-95), f(72)),
		record(51.5010, -0.1210, f(-75), f(-90), f(12)),
		record(51.5020, -0.1190, nil, f(-92), nil),
	}
}

func TestColors(t *testing.T) {
	testCases := []struct {
		name     string
		actual   Color
		expected Color
	}{
		{"signal missing", SignalColor(nil), Gray},
		{"signal zero", SignalColor(f(0)), Black},
		{"signal -50", SignalColor(f(-50)), Green},
		{"signal -50.1", SignalColor(f(-50.1)), LightGreen},
		{"signal -70", SignalColor(f(-70)), Orange},
		{"signal -80", SignalColor(f(-80)), Red},
		{"signal -80.5", SignalColor(f(-80.5)), DarkRed},
		{"relative 40", RelativeSignalColor(f(-50), f(-90)), Green},
		{"relative 25", RelativeSignalColor(f(-65), f(-90)), Yellow},
		{"relative 5", RelativeSignalColor(f(-85), f(-90)), Red},
		{"relative 4", RelativeSignalColor(f(-86), f(-90)), DarkRed},
		{"relative zero", RelativeSignalColor(f(-90), f(-90)), Black},
		{"relative no noise", RelativeSignalColor(f(-50), nil), Gray},
		{"bitrate 50", BitrateColor(f(50)), Green},
		{"bitrate 35", BitrateColor(f(35)), Yellow},
		{"bitrate 9.9", BitrateColor(f(9.9)), DarkRed},
		{"bitrate zero", BitrateColor(f(0)), Black},
		{"halow 29", HaLowBitrateColor(f(29)), Green},
		{"halow 15", HaLowBitrateColor(f(15)), Yellow},
		{"halow 4", HaLowBitrateColor(f(4)), DarkRed},
		{"halow missing", HaLowBitrateColor(nil), Gray},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if tc.actual != tc.expected {
				t.Errorf("Expected %s, got %s", tc.expected, tc.actual)
			}
		})
	}

	if Green.Hex() != "#008000" || Color("unknown").Hex() != Gray.Hex() {
		t.Errorf("Unexpected hex values: %s, %s", Green.Hex(), Color("unknown").Hex())
	}
}

func TestScheme(t *testing.T) {
	if s, err := ParseScheme(""); err != nil || s != SchemeAuto {
		t.Errorf("Expected auto scheme, got %s, %v", s, err)
	}
	if _, err := ParseScheme("rainbow"); err == nil {
		t.Error("Expected error for unknown scheme")
	}

	if s := SchemeAuto.Resolve(true); s != SchemeBitrate {
		t.Errorf("Expected bitrate scheme, got %s", s)
	}
	if s := SchemeAuto.Resolve(false); s != SchemeRelative {
		t.Errorf("Expected relative scheme, got %s", s)
	}
	if s := SchemeSignal.Resolve(true); s != SchemeSignal {
		t.Errorf("Expected explicit scheme to be kept, got %s", s)
	}

	r := testRecords()[1]
	if c := SchemeBitrate.Color(&r); c != Red {
		t.Errorf("Expected red for 12 Mb/s, got %s", c)
	}
	if c := SchemeRelative.Color(&r); c != Orange {
		t.Errorf("Expected orange for 15 dB, got %s", c)
	}

	legend := SchemeRelative.Legend()
	if len(legend) != len(relativeSignalBuckets)+3 || legend[len(legend)-1].Color != Gray {
		t.Errorf("Unexpected legend: %+v", legend)
	}
}

func TestPopup(t *testing.T) {
	cfg := (&Config{HasBitrates: true, Location: time.UTC}).withDefaults()
	r := testRecords()[0]
	r.Attributes[survey.OpMode] = "<sta>"

	popup := cfg.Popup(&r)
	for _, expected := range []string{
		"<b>Date/Time:</b> 2024-05-12 14:30:00",
		"<b>Mode:</b> &lt;sta&gt;",
		"<b>Signal Avg:</b> -55.0 dBm",
		"<b>Rx Bitrate Min:</b> 72 Mb/s",
		"<b>Tx Bitrate Min:</b> n/a",
		"<b>Samples Merged:</b> 3",
	} {
		if !strings.Contains(popup, expected) {
			t.Errorf("Expected popup to contain %q, got %s", expected, popup)
		}
	}

	cfg.HasBitrates = false
	if popup = cfg.Popup(&r); strings.Contains(popup, "Bitrate") {
		t.Errorf("Expected no bitrate fields, got %s", popup)
	}

	cfg.Raw = true
	popup = cfg.Popup(&r)
	if !strings.Contains(popup, "<b>Heading:</b> n/a") || strings.Contains(popup, "Samples Merged") {
		t.Errorf("Unexpected raw popup: %s", popup)
	}
}

func TestRenderers_NoData(t *testing.T) {
	for _, format := range []Format{FormatHTML, FormatGeoJSON, FormatPNG} {
		t.Run(string(format), func(t *testing.T) {
			r, err := New(format, Config{})
			if err != nil {
				t.Fatalf("Failed to create renderer: %v", err)
			}

			var buf bytes.Buffer
			if err = r.Render(&buf, nil); !errors.Is(err, ErrNoData) {
				t.Errorf("Expected ErrNoData, got %v", err)
			}
			if buf.Len() != 0 {
				t.Errorf("Expected no output, got %d bytes", buf.Len())
			}
		})
	}
}

func TestMapRenderer(t *testing.T) {
	r, err := New(FormatHTML, Config{HasBitrates: true, Title: "drive.csv"})
	if err != nil {
		t.Fatalf("Failed to create renderer: %v", err)
	}

	var buf bytes.Buffer
	if err = r.Render(&buf, testRecords()); err != nil {
		t.Fatalf("Failed to render: %v", err)
	}

	page := buf.String()
	for _, expected := range []string{
		"<title>drive.csv</title>",
		"leaflet@1.9.4/dist/leaflet.js",
		"L.circleMarker",
		`"color":"green"`,
		`"color":"red"`,
		`"color":"gray"`,
	} {
		if !strings.Contains(page, expected) {
			t.Errorf("Expected page to contain %q", expected)
		}
	}

	if strings.Contains(page, `"heading":`) {
		t.Error("Expected no heading arrows for merged records")
	}

	_, center := extent(testRecords())
	if math.Abs(center.Lat()-51.501) > 1e-9 || math.Abs(center.Lon()+0.12) > 1e-9 {
		t.Errorf("Expected center at the mean coordinate, got %v", center)
	}
}

func headingRecords() []survey.AggregateRecord {
	records := testRecords()[:2]
	records[0].Stats[survey.Heading] = survey.Stat{Mean: f(90), Min: f(90), Max: f(90)}
	return records
}

func TestMapRenderer_Heading(t *testing.T) {
	r, err := New(FormatHTML, Config{Raw: true, Location: time.UTC})
	if err != nil {
		t.Fatalf("Failed to create renderer: %v", err)
	}

	var buf bytes.Buffer
	if err = r.Render(&buf, headingRecords()); err != nil {
		t.Fatalf("Failed to render: %v", err)
	}

	page := buf.String()
	for _, expected := range []string{"L.divIcon", "rotate(", `"heading":90`} {
		if !strings.Contains(page, expected) {
			t.Errorf("Expected page to contain %q", expected)
		}
	}
	// the record without a heading stays a circle
	if n := strings.Count(page, `"heading":`); n != 1 {
		t.Errorf("Expected one marker with a heading, got %d", n)
	}
}

func TestGeoJSONRenderer(t *testing.T) {
	r, err := New(FormatGeoJSON, Config{Scheme: SchemeSignal, Location: time.UTC})
	if err != nil {
		t.Fatalf("Failed to create renderer: %v", err)
	}

	var buf bytes.Buffer
	if err = r.Render(&buf, testRecords()); err != nil {
		t.Fatalf("Failed to render: %v", err)
	}

	fc, err := geojson.UnmarshalFeatureCollection(buf.Bytes())
	if err != nil {
		t.Fatalf("Failed to parse output: %v", err)
	}
	if len(fc.Features) != 3 {
		t.Fatalf("Expected 3 features, got %d", len(fc.Features))
	}

	first := fc.Features[0]
	if first.Point().Lat() != 51.5 || first.Point().Lon() != -0.12 {
		t.Errorf("Unexpected point: %v", first.Point())
	}
	if v := first.Properties.MustFloat64(survey.Signal.String()); v != -55 {
		t.Errorf("Expected signal -55, got %v", v)
	}
	if v := first.Properties.MustString("marker-color"); v != LightGreen.Hex() {
		t.Errorf("Expected %s, got %s", LightGreen.Hex(), v)
	}
	if v := first.Properties.MustString("datetime"); v != "2024-05-12T14:30:00Z" {
		t.Errorf("Unexpected datetime %s", v)
	}

	// missing statistics are omitted, not null
	third := fc.Features[2]
	if _, ok := third.Properties[survey.Signal.String()]; ok {
		t.Error("Expected missing signal to be omitted")
	}
	if !json.Valid(buf.Bytes()) {
		t.Error("Expected valid JSON")
	}
}

func TestPlotRenderer(t *testing.T) {
	r, err := New(FormatPNG, Config{Width: 400, Location: time.UTC})
	if err != nil {
		t.Fatalf("Failed to create renderer: %v", err)
	}

	var buf bytes.Buffer
	if err = r.Render(&buf, testRecords()); err != nil {
		t.Fatalf("Failed to render: %v", err)
	}

	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("Failed to decode png: %v", err)
	}

	size := img.Bounds().Size()
	if size.X != 400+defaultLeftBorder+defaultRightBorder {
		t.Errorf("Unexpected image width %d", size.X)
	}
	if size.Y < minPlotHeight+defaultTopBorder+defaultBottomBorder {
		t.Errorf("Unexpected image height %d", size.Y)
	}

	// a single record still gets a non-degenerate plot area
	single := testRecords()[:1]
	plot := r.(*PlotRenderer)
	area := newPlotArea(single, 400, plot.borders)
	p := area.project(single[0].Location().Point())
	if !p.In(area.rect) {
		t.Errorf("Expected %v inside %v", p, area.rect)
	}
}

func TestWriteIndex(t *testing.T) {
	root := filepath.Join("surveys")
	files := []string{
		filepath.Join(root, "b", "drive.csv.html"),
		filepath.Join(root, "a.csv.html"),
	}

	var buf bytes.Buffer
	if err := WriteIndex(&buf, root, files); err != nil {
		t.Fatalf("Failed to write index: %v", err)
	}

	page := buf.String()
	first := strings.Index(page, `<a href="a.csv.html">a.csv.html</a>`)
	second := strings.Index(page, `<a href="b/drive.csv.html">drive.csv.html</a>`)
	if first < 0 || second < 0 || first > second {
		t.Errorf("Unexpected index page: %s", page)
	}
}

func TestPlotRenderer_Heading(t *testing.T) {
	white := color.RGBAModel.Convert(color.White)

	tests := []struct {
		name    string
		raw     bool
		stroked bool
	}{
		{"raw sample", true, true},
		{"merged record", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := New(FormatPNG, Config{Raw: tt.raw, Width: 400, Location: time.UTC})
			if err != nil {
				t.Fatalf("Failed to create renderer: %v", err)
			}
			plot := r.(*PlotRenderer)

			records := headingRecords()
			img, err := plot.Draw(records)
			if err != nil {
				t.Fatalf("Failed to draw: %v", err)
			}

			// heading 90 points east, past the edge of the dot
			area := newPlotArea(records, plot.config.Width, plot.borders)
			p := area.project(records[0].Location().Point()).Add(image.Pt(markerRadius+4, 0))

			stroked := img.At(p.X, p.Y) != white
			if stroked != tt.stroked {
				t.Errorf("Expected stroke %v at %v, got %v", tt.stroked, p, stroked)
			}
		})
	}
}
