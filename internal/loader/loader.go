package loader

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"github.com/roman-kulish/linkmap/internal/survey"
)

var (
	// ErrMissingColumn is returned when a required column is not present in the header
	ErrMissingColumn = errors.New("missing required column")

	// ErrEmptyInput is returned when the input has no header line
	ErrEmptyInput = errors.New("empty input")
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// timestamp layouts tried in order; zone-less layouts are parsed in the loader's location
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006/01/02 15:04:05",
	"01/02/2006 15:04:05",
	time.DateOnly,
}

// Result holds the outcome of loading one CSV input.
type Result struct {
	Samples     []survey.Sample // Valid samples in input order
	Rows        int             // Data rows read, excluding the header
	Dropped     int             // Rows without a parsable timestamp or coordinate
	HasBitrates bool            // Both tx and rx rate columns are present
	Encoding    string          // Character encoding the input was decoded with
}

// WithColumns sets the column mapping, merged over DefaultColumns.
func WithColumns(columns Columns) func(*Loader) {
	return func(l *Loader) {
		l.columns = DefaultColumns().Merge(columns)
	}
}

// WithLocation sets the time zone for timestamps without zone information.
func WithLocation(loc *time.Location) func(*Loader) {
	return func(l *Loader) {
		if loc != nil {
			l.location = loc
		}
	}
}

// WithLogger sets the logger for the loader
func WithLogger(logger *slog.Logger) func(*Loader) {
	return func(l *Loader) {
		l.logger = logger
	}
}

// Loader parses tabular survey logs into samples. Malformed rows are dropped,
// never fatal.
type Loader struct {
	columns  Columns
	location *time.Location
	logger   *slog.Logger
}

// New creates a new Loader with default columns, UTC and a discard logger
func New(options ...func(*Loader)) *Loader {
	l := Loader{
		columns:  DefaultColumns(),
		location: time.UTC,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, option := range options {
		option(&l)
	}

	return &l
}

// LoadFile reads and parses the CSV file at path.
func (l *Loader) LoadFile(path string) (*Result, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}

	result, err := l.parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parsing '%s': %w", path, err)
	}
	return result, nil
}

// Load reads and parses CSV data from r.
func (l *Loader) Load(r io.Reader) (*Result, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading input: %w", err)
	}
	return l.parse(raw)
}

func (l *Loader) parse(raw []byte) (*Result, error) {
	text, encoding, err := decode(bytes.TrimPrefix(raw, utf8BOM))
	if err != nil {
		return nil, err
	}

	reader := csv.NewReader(strings.NewReader(text))
	reader.Comma = detectDelimiter(text)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.ReuseRecord = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyInput
		}
		return nil, fmt.Errorf("reading header: %w", err)
	}

	m := l.columns.resolve(header)
	switch {
	case m.timestamp < 0:
		return nil, fmt.Errorf("%w: datetime", ErrMissingColumn)
	case m.latitude < 0:
		return nil, fmt.Errorf("%w: latitude", ErrMissingColumn)
	case m.longitude < 0:
		return nil, fmt.Errorf("%w: longitude", ErrMissingColumn)
	}

	result := Result{
		Encoding:    encoding,
		HasBitrates: m.metrics[survey.TxRate] >= 0 && m.metrics[survey.RxRate] >= 0,
	}

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// csv.ParseError is per line; keep going like any other malformed row
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				result.Rows++
				result.Dropped++
				l.logger.Warn(fmt.Sprintf("dropping malformed row: %s", err.Error()))
				continue
			}
			return nil, fmt.Errorf("reading row: %w", err)
		}

		result.Rows++

		sample, err := l.parseRecord(record, &m)
		if err != nil {
			result.Dropped++
			l.logger.Debug(fmt.Sprintf("dropping row: %s", err.Error()), slog.Int("row", result.Rows))
			continue
		}
		result.Samples = append(result.Samples, sample)
	}

	return &result, nil
}

func (l *Loader) parseRecord(record []string, m *mapping) (survey.Sample, error) {
	var s survey.Sample

	ts, err := parseTime(field(record, m.timestamp), l.location)
	if err != nil {
		return s, err
	}

	lat := parseFloat(field(record, m.latitude))
	if lat == nil {
		return s, errors.New("invalid latitude")
	}
	lon := parseFloat(field(record, m.longitude))
	if lon == nil {
		return s, errors.New("invalid longitude")
	}

	s.Timestamp = ts
	s.Latitude = *lat
	s.Longitude = *lon

	for i, idx := range m.metrics {
		s.Metrics[i] = parseFloat(field(record, idx))
	}
	for i, idx := range m.attributes {
		s.Attributes[i] = field(record, idx)
	}

	return s, nil
}

func field(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}

// parseFloat returns nil for empty, non-numeric, NaN and infinite values.
func parseFloat(value string) *float64 {
	if value == "" {
		return nil
	}
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil
	}
	return survey.Float(v)
}

// parseTime accepts the layouts in timeLayouts and Unix epoch seconds.
func parseTime(value string, loc *time.Location) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty timestamp")
	}

	for _, layout := range timeLayouts {
		if ts, err := time.ParseInLocation(layout, value, loc); err == nil {
			return ts, nil
		}
	}

	if secs, err := strconv.ParseFloat(value, 64); err == nil && !math.IsNaN(secs) && !math.IsInf(secs, 0) {
		whole, frac := math.Modf(secs)
		return time.Unix(int64(whole), int64(frac*1e9)).In(loc), nil
	}

	return time.Time{}, fmt.Errorf("invalid timestamp %q", value)
}

// detectDelimiter picks ';' when the header line has more semicolons than commas.
func detectDelimiter(text string) rune {
	line, _, _ := strings.Cut(text, "\n")
	if strings.Count(line, ";") > strings.Count(line, ",") {
		return ';'
	}
	return ','
}

type textDecoder struct {
	name   string
	decode func([]byte) (string, error)
}

func decodeUTF8(data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", errors.New("invalid utf-8")
	}
	return string(data), nil
}

// decodeWindows1250 accepts only data with bytes in 0x80-0x9F. Those are
// letters and punctuation in Windows-1250 but control codes in Latin-1; any
// other data is left to Latin-1, which differs from Windows-1250 above 0xA0.
func decodeWindows1250(data []byte) (string, error) {
	if !slices.ContainsFunc(data, func(b byte) bool { return b >= 0x80 && b <= 0x9f }) {
		return "", errors.New("no windows-1250 specific bytes")
	}
	return charmap.Windows1250.NewDecoder().String(string(data))
}

func defaultTextDecoders() []textDecoder {
	return []textDecoder{
		{name: "utf-8", decode: decodeUTF8},
		{name: "windows-1250", decode: decodeWindows1250},
		{name: "latin1", decode: func(b []byte) (string, error) { return charmap.ISO8859_1.NewDecoder().String(string(b)) }},
	}
}

func decode(data []byte) (string, string, error) {
	for _, dec := range defaultTextDecoders() {
		text, err := dec.decode(data)
		if err != nil {
			continue
		}
		return text, dec.name, nil
	}
	return "", "", errors.New("unable to decode input with supported encodings")
}
