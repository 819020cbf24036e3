package app

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roman-kulish/linkmap/internal/aggregate"
	"github.com/roman-kulish/linkmap/internal/loader"
	"github.com/roman-kulish/linkmap/internal/render"
)

const (
	defaultOutputName = "wireless_map"
	indexFileName     = "index.html"
)

// Duration is a time.Duration written as a Go duration string, e.g. "6s".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	duration, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("app.Duration: failed to parse: %s", err)
	}

	*d = Duration(duration)
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return d.String(), nil
}

func (d Duration) String() string {
	return time.Duration(d).String()
}

// FileConfig is the optional YAML configuration. Command line flags take
// precedence over it.
type FileConfig struct {
	Format      string         `yaml:"format"`
	Scheme      string         `yaml:"scheme"`
	MergeWindow *Duration      `yaml:"mergeWindow"`
	NoMerge     bool           `yaml:"noMerge"`
	Workers     int            `yaml:"workers"`
	TimeZone    string         `yaml:"timezone"`
	Index       bool           `yaml:"index"`
	Columns     loader.Columns `yaml:"columns"`
}

// Config holds the resolved settings of a run.
type Config struct {
	Input       string // CSV file or directory
	Output      string // Output file, single file input only
	DBPath      string // Read samples from a database instead of CSV
	SessionID   int64
	Format      render.Format
	Scheme      render.Scheme
	MergeWindow time.Duration
	NoMerge     bool
	Workers     int
	TimeZone    *time.Location
	Index       bool
	Verbose     bool
	Columns     loader.Columns
}

func NewConfig() *Config {
	return &Config{
		Format:      render.FormatHTML,
		Scheme:      render.SchemeAuto,
		MergeWindow: aggregate.DefaultMergeWindow,
		Workers:     1,
		TimeZone:    time.UTC,
	}
}

// LoadFileConfig reads the YAML configuration at path.
func LoadFileConfig(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var fc FileConfig
	if err = yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &fc, nil
}

// NewConfigFromCLI parses args, without the program name. Values from the file
// given with -c are applied first, then every flag set explicitly.
func NewConfigFromCLI(args []string, output io.Writer) (*Config, error) {
	c := NewConfig()

	fs := flag.NewFlagSet("radiomap", flag.ContinueOnError)
	fs.SetOutput(output)

	var configPath, format, scheme, timeZone string
	var mergeWindow time.Duration
	fs.StringVar(&c.Input, "i", "", "Path to the input CSV file or a directory to scan recursively")
	fs.StringVar(&c.Output, "o", "", "Path to the output file (single input file only)")
	fs.StringVar(&c.DBPath, "db", "", "Path to a database created by ingest, used instead of -i")
	fs.Int64Var(&c.SessionID, "s", 0, "Session ID to read from the database")
	fs.StringVar(&format, "f", string(render.FormatHTML), "Output format. [html, geojson, png]")
	fs.StringVar(&scheme, "scheme", string(render.SchemeAuto), "Marker color scheme. [auto, signal, relative, bitrate, halow]")
	fs.DurationVar(&mergeWindow, "merge-window", aggregate.DefaultMergeWindow, "Samples at one location within this time of the first sample are merged")
	fs.BoolVar(&c.NoMerge, "no-merge", false, "Plot every sample as logged")
	fs.IntVar(&c.Workers, "workers", 1, "Number of goroutines aggregating location groups")
	fs.StringVar(&timeZone, "tz", "", "Time zone for timestamps without zone information and for display (default UTC)")
	fs.BoolVar(&c.Index, "index", false, "Write index.html linking every generated map (directory input only)")
	fs.StringVar(&configPath, "c", "", "Path to an optional YAML configuration file")
	fs.BoolVar(&c.Verbose, "verbose", false, "Enable more verbose output")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) {
		set[f.Name] = true
	})

	if configPath != "" {
		fc, err := LoadFileConfig(configPath)
		if err != nil {
			return nil, err
		}
		c.Columns = fc.Columns
		if !set["f"] && fc.Format != "" {
			format = fc.Format
		}
		if !set["scheme"] && fc.Scheme != "" {
			scheme = fc.Scheme
		}
		if !set["merge-window"] && fc.MergeWindow != nil {
			mergeWindow = time.Duration(*fc.MergeWindow)
		}
		if !set["no-merge"] {
			c.NoMerge = fc.NoMerge
		}
		if !set["workers"] && fc.Workers > 0 {
			c.Workers = fc.Workers
		}
		if !set["tz"] && fc.TimeZone != "" {
			timeZone = fc.TimeZone
		}
		if !set["index"] {
			c.Index = fc.Index
		}
	}

	var err error
	if c.Format, err = render.ParseFormat(format); err != nil {
		return nil, err
	}
	if c.Scheme, err = render.ParseScheme(scheme); err != nil {
		return nil, err
	}
	if timeZone != "" {
		if c.TimeZone, err = time.LoadLocation(timeZone); err != nil {
			return nil, fmt.Errorf("loading time zone: %w", err)
		}
	}
	c.MergeWindow = mergeWindow

	switch {
	case c.Input == "" && c.DBPath == "":
		err = errors.New("input path or database is required")
	case c.Input != "" && c.DBPath != "":
		err = errors.New("input path and database are mutually exclusive")
	case c.DBPath != "" && c.SessionID <= 0:
		err = errors.New("session id is required")
	case c.MergeWindow <= 0:
		err = fmt.Errorf("invalid merge window: %s", c.MergeWindow)
	case c.Workers <= 0:
		err = fmt.Errorf("invalid number of workers: %d", c.Workers)
	}

	if err != nil {
		fs.Usage()
		return nil, err
	}

	return c, nil
}
