package app

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/paulmach/orb/geojson"

	"github.com/roman-kulish/linkmap/internal/render"
	"github.com/roman-kulish/linkmap/internal/storage"
	"github.com/roman-kulish/linkmap/internal/survey"
)

const driveLog = `datetime,latitude,longitude,wireless_signal,wireless_noisef,wireless_txrate,wireless_rxrate,wireless_channel
2024-05-12 14:30:00,51.5007,-0.1246,-55,-95,72.2,65,36
2024-05-12 14:30:03,51.5007,-0.1246,-57,-96,65,58.5,36
2024-05-12 14:30:06,51.5007,-0.1246,-59,-96,58.5,52,36
2024-05-12 14:30:07,51.5007,-0.1246,-61,-97,52,39,36
2024-05-12 14:30:10,51.5010,-0.1250,-70,-97,26,19.5,36
`

// header only, every row dropped
const emptyLog = `datetime,latitude,longitude,wireless_signal
not a date,51.5,-0.12,-60
`

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() *Config {
	c := NewConfig()
	c.TimeZone = time.UTC
	return c
}

func TestRun_File(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "drive.csv")
	writeFile(t, input, driveLog)

	config := testConfig()
	config.Input = input
	config.Output = filepath.Join(dir, "drive.geojson")
	config.Format = render.FormatGeoJSON

	if err := Run(context.Background(), config, testLogger()); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	data, err := os.ReadFile(config.Output)
	if err != nil {
		t.Fatalf("Failed to read output: %v", err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		t.Fatalf("Failed to parse output: %v", err)
	}

	// two windows at the first location, one at the second
	if len(fc.Features) != 3 {
		t.Fatalf("Expected 3 features, got %d", len(fc.Features))
	}

	merged := fc.Features[0].Properties.MustFloat64("samples_merged", 0)
	if merged != 3 {
		t.Errorf("Expected 3 samples merged into the first record, got %v", merged)
	}
	if mean := fc.Features[0].Properties.MustFloat64(survey.Signal.String(), 0); mean != -57 {
		t.Errorf("Expected mean signal -57, got %v", mean)
	}
	if merged = fc.Features[1].Properties.MustFloat64("samples_merged", 0); merged != 1 {
		t.Errorf("Expected a single sample in the second record, got %v", merged)
	}
}

func TestRun_NoMerge(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "drive.csv")
	writeFile(t, input, driveLog)

	config := testConfig()
	config.Input = input
	config.Output = filepath.Join(dir, "drive.geojson")
	config.Format = render.FormatGeoJSON
	config.NoMerge = true

	if err := Run(context.Background(), config, testLogger()); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	data, err := os.ReadFile(config.Output)
	if err != nil {
		t.Fatalf("Failed to read output: %v", err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		t.Fatalf("Failed to parse output: %v", err)
	}
	if len(fc.Features) != 5 {
		t.Errorf("Expected every sample as a feature, got %d", len(fc.Features))
	}
}

func TestRun_NoData(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "empty.csv")
	writeFile(t, input, emptyLog)

	config := testConfig()
	config.Input = input
	config.Output = filepath.Join(dir, "empty.html")

	if err := Run(context.Background(), config, testLogger()); err != nil {
		t.Fatalf("Expected no data to be reported without error, got %v", err)
	}
	if _, err := os.Stat(config.Output); !os.IsNotExist(err) {
		t.Errorf("Expected no output file, got %v", err)
	}
}

func TestRun_Directory(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "monday", "drive.csv"), driveLog)
	writeFile(t, filepath.Join(root, "tuesday.csv"), driveLog)
	writeFile(t, filepath.Join(root, "empty.csv"), emptyLog)
	writeFile(t, filepath.Join(root, "broken.csv"), "foo,bar\n1,2\n")

	config := testConfig()
	config.Input = root
	config.Index = true

	err := Run(context.Background(), config, testLogger())
	if err == nil || !strings.Contains(err.Error(), "missing required column") {
		t.Fatalf("Expected the broken file to be reported, got %v", err)
	}

	for _, name := range []string{"monday/drive.csv.html", "tuesday.csv.html"} {
		if _, err = os.Stat(filepath.Join(root, name)); err != nil {
			t.Errorf("Expected %s to be generated: %v", name, err)
		}
	}
	if _, err = os.Stat(filepath.Join(root, "empty.csv.html")); !os.IsNotExist(err) {
		t.Errorf("Expected no map for a file without data, got %v", err)
	}

	index, err := os.ReadFile(filepath.Join(root, indexFileName))
	if err != nil {
		t.Fatalf("Failed to read index: %v", err)
	}
	for _, link := range []string{"monday/drive.csv.html", "tuesday.csv.html"} {
		if !strings.Contains(string(index), link) {
			t.Errorf("Expected index to link %s", link)
		}
	}
	if strings.Contains(string(index), "empty.csv.html") {
		t.Error("Expected index to skip files without data")
	}
}

func TestRun_Session(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "survey.db")

	base := time.Date(2024, 5, 12, 14, 30, 0, 0, time.UTC)
	samples := make([]survey.Sample, 4)
	for i := range samples {
		samples[i] = survey.Sample{
			Timestamp: base.Add(time.Duration(i*4) * time.Second),
			Latitude:  51.5,
			Longitude: -0.12,
		}
		samples[i].Metrics[survey.Signal] = survey.Float(float64(-60 - i))
	}

	store := storage.NewSqliteStore(dbPath)
	id, err := store.CreateSession(ctx, "drive.csv", nil)
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}
	if err = store.StoreSamples(ctx, id, samples); err != nil {
		t.Fatalf("Failed to store samples: %v", err)
	}
	empty, err := store.CreateSession(ctx, "empty.csv", nil)
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}
	if err = store.Close(); err != nil {
		t.Fatalf("Failed to close store: %v", err)
	}

	config := testConfig()
	config.DBPath = dbPath
	config.SessionID = id
	config.Output = filepath.Join(dir, "session.geojson")
	config.Format = render.FormatGeoJSON

	if err = Run(ctx, config, testLogger()); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	data, err := os.ReadFile(config.Output)
	if err != nil {
		t.Fatalf("Failed to read output: %v", err)
	}
	var fc struct {
		Features []json.RawMessage `json:"features"`
	}
	if err = json.Unmarshal(data, &fc); err != nil {
		t.Fatalf("Failed to parse output: %v", err)
	}
	// 0s, 4s merge; 8s, 12s merge
	if len(fc.Features) != 2 {
		t.Errorf("Expected 2 features, got %d", len(fc.Features))
	}

	config.SessionID = empty
	config.Output = filepath.Join(dir, "empty.geojson")
	if err = Run(ctx, config, testLogger()); err != nil {
		t.Errorf("Expected an empty session to be reported without error, got %v", err)
	}

	config.DBPath = filepath.Join(dir, "missing.db")
	if err = Run(ctx, config, testLogger()); err == nil {
		t.Error("Expected error for a missing database")
	}
}
