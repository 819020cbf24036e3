package loader

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"golang.org/x/text/encoding/charmap"

	"github.com/roman-kulish/linkmap/internal/survey"
)

const routerExport = `datetime,latitude,longitude,wireless_signal,wireless_noisef,wireless_rssi,wireless_txpower,wireless_distance,wireless_ccq,wireless_txrate,wireless_rxrate,wireless_channel,wireless_frequency,wireless_opmode
2024-05-12 14:30:00,51.5007,-0.1246,-55,-95,40,20,150,98,72.2,65,36,5180,sta
2024-05-12 14:30:02,51.5007,-0.1246,-57,-96,,20,150,97,n/a,65,36,5180,sta
not a date,51.5007,-0.1246,-57,-96,39,20,150,97,72.2,65,36,5180,sta
2024-05-12 14:30:04,,-0.1246,-57,-96,39,20,150,97,72.2,65,36,5180,sta
2024-05-12 14:30:06,51.5008,abc,-57,-96,39,20,150,97,72.2,65,36,5180,sta
`

func TestLoader_RouterExport(t *testing.T) {
	result, err := New().Load(strings.NewReader(routerExport))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if result.Rows != 5 {
		t.Errorf("Expected 5 rows, got %d", result.Rows)
	}
	if result.Dropped != 3 {
		t.Errorf("Expected 3 dropped rows, got %d", result.Dropped)
	}
	if len(result.Samples) != 2 {
		t.Fatalf("Expected 2 samples, got %d", len(result.Samples))
	}
	if !result.HasBitrates {
		t.Error("Expected bitrate columns to be detected")
	}
	if result.Encoding != "utf-8" {
		t.Errorf("Expected utf-8 encoding, got %s", result.Encoding)
	}

	s := result.Samples[0]
	expectedTime := time.Date(2024, 5, 12, 14, 30, 0, 0, time.UTC)
	if !s.Timestamp.Equal(expectedTime) {
		t.Errorf("Expected timestamp %s, got %s", expectedTime, s.Timestamp)
	}
	if s.Latitude != 51.5007 || s.Longitude != -0.1246 {
		t.Errorf("Unexpected coordinates: %v, %v", s.Latitude, s.Longitude)
	}
	if v := s.Value(survey.Signal); v == nil || *v != -55 {
		t.Errorf("Unexpected signal: %v", v)
	}
	if v := s.Value(survey.TxRate); v == nil || *v != 72.2 {
		t.Errorf("Unexpected tx rate: %v", v)
	}
	if s.Value(survey.Heading) != nil {
		t.Error("Expected missing heading")
	}
	if s.Attribute(survey.Channel) != "36" || s.Attribute(survey.Frequency) != "5180" || s.Attribute(survey.OpMode) != "sta" {
		t.Errorf("Unexpected attributes: %v", s.Attributes)
	}

	// empty and non-numeric values are missing, not fatal
	s = result.Samples[1]
	if s.Value(survey.RSSI) != nil {
		t.Error("Expected missing rssi")
	}
	if s.Value(survey.TxRate) != nil {
		t.Error("Expected missing tx rate")
	}
}

func TestLoader_HaLowExport(t *testing.T) {
	const input = `datetime;latitude;longitude;channel;frequency;rxbitrate;txbitrate;signalLevel;noiseLevel;heading;txpower
2024-05-12T14:30:00Z;51.5;-0.12;1;916;7.8;15.6;-71;-98;270;30
`
	result, err := New().Load(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(result.Samples) != 1 {
		t.Fatalf("Expected 1 sample, got %d", len(result.Samples))
	}

	s := result.Samples[0]
	testCases := []struct {
		metric   survey.Metric
		expected float64
	}{
		{survey.Signal, -71},
		{survey.Noise, -98},
		{survey.RxRate, 7.8},
		{survey.TxRate, 15.6},
		{survey.Heading, 270},
		{survey.TxPower, 30},
	}
	for _, tc := range testCases {
		t.Run(tc.metric.String(), func(t *testing.T) {
			v := s.Value(tc.metric)
			if v == nil || *v != tc.expected {
				t.Errorf("Expected %v, got %v", tc.expected, v)
			}
		})
	}
	if s.Attribute(survey.Frequency) != "916" {
		t.Errorf("Expected frequency 916, got %q", s.Attribute(survey.Frequency))
	}
}

func TestLoader_CustomColumns(t *testing.T) {
	const input = "when,y,x,level\n1715524200,1.5,2.5,-60\n"

	l := New(WithColumns(Columns{
		Timestamp: []string{"when"},
		Latitude:  []string{"y"},
		Longitude: []string{"x"},
		Metrics:   map[string][]string{survey.Signal.String(): {"level"}},
	}))

	result, err := l.Load(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(result.Samples) != 1 {
		t.Fatalf("Expected 1 sample, got %d", len(result.Samples))
	}
	if result.HasBitrates {
		t.Error("Expected no bitrate columns")
	}

	s := result.Samples[0]
	if !s.Timestamp.Equal(time.Unix(1715524200, 0)) {
		t.Errorf("Unexpected timestamp %s", s.Timestamp)
	}
	if v := s.Value(survey.Signal); v == nil || *v != -60 {
		t.Errorf("Unexpected signal: %v", v)
	}
}

func TestLoader_Errors(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected error
	}{
		{"empty", "", ErrEmptyInput},
		{"no datetime", "latitude,longitude\n1,2\n", ErrMissingColumn},
		{"no longitude", "datetime,latitude\n2024-01-01 00:00:00,1\n", ErrMissingColumn},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New().Load(strings.NewReader(tc.input))
			if !errors.Is(err, tc.expected) {
				t.Errorf("Expected %v, got %v", tc.expected, err)
			}
		})
	}
}

func TestLoader_LoadFileEncodings(t *testing.T) {
	tests := []struct {
		name     string
		mode     string
		encoder  *charmap.Charmap
		encoding string
	}{
		{"latin1", "Zürich", charmap.ISO8859_1, "latin1"},
		// 0xE8 is è in Latin-1 and č in Windows-1250
		{"latin1 above 0xA0", "Crèvecoeur", charmap.ISO8859_1, "latin1"},
		// 0x9A is š in Windows-1250 and a control code in Latin-1
		{"windows-1250", "Košice", charmap.Windows1250, "windows-1250"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text := "datetime,latitude,longitude,wireless_opmode\n2024-05-12 14:30:00,1,2," + tt.mode + "\n"
			encoded, err := tt.encoder.NewEncoder().String(text)
			if err != nil {
				t.Fatalf("Failed to encode input: %v", err)
			}

			path := filepath.Join(t.TempDir(), "survey.csv")
			if err = os.WriteFile(path, []byte(encoded), 0o644); err != nil {
				t.Fatalf("Failed to write input: %v", err)
			}

			result, err := New().LoadFile(path)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if result.Encoding != tt.encoding {
				t.Errorf("Expected %s encoding, got %s", tt.encoding, result.Encoding)
			}
			if len(result.Samples) != 1 || result.Samples[0].Attribute(survey.OpMode) != tt.mode {
				t.Errorf("Unexpected samples: %+v", result.Samples)
			}
		})
	}
}

func TestParseTime(t *testing.T) {
	expected := time.Date(2024, 5, 12, 14, 30, 0, 0, time.UTC)

	testCases := []string{
		"2024-05-12T14:30:00Z",
		"2024-05-12 14:30:00",
		"2024-05-12 14:30:00+00:00",
		"2024-05-12T14:30:00",
		"2024/05/12 14:30:00",
		"05/12/2024 14:30:00",
		"1715524200",
	}

	for _, tc := range testCases {
		t.Run(tc, func(t *testing.T) {
			ts, err := parseTime(tc, time.UTC)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if !ts.Equal(expected) {
				t.Errorf("Expected %s, got %s", expected, ts)
			}
		})
	}

	if _, err := parseTime("yesterday", time.UTC); err == nil {
		t.Error("Expected error for invalid timestamp")
	}
}
