package render

import (
	"html"
	"strconv"
	"strings"
	"time"

	"github.com/roman-kulish/linkmap/internal/survey"
)

const missingValue = "n/a"

type popupField struct {
	label string
	value string
}

func formatFloat(v *float64, precision int) string {
	if v == nil {
		return missingValue
	}
	return strconv.FormatFloat(*v, 'f', precision, 64)
}

func withUnit(value, unit string) string {
	if value == missingValue || unit == "" {
		return value
	}
	return value + " " + unit
}

func orMissing(s string) string {
	if s == "" {
		return missingValue
	}
	return s
}

// popupFields lists the fields shown for one record. Merged records show window
// statistics; raw records show the sample as logged.
func (c *Config) popupFields(r *survey.AggregateRecord) []popupField {
	fields := []popupField{
		{"Date/Time", c.formatTime(r.Timestamp)},
		{"Channel", orMissing(r.Attribute(survey.Channel))},
		{"Frequency", withUnit(orMissing(r.Attribute(survey.Frequency)), "MHz")},
	}

	stat := func(m survey.Metric) survey.Stat { return r.Stat(m) }

	if c.Raw {
		return append(fields,
			popupField{"Rx Bitrate", withUnit(formatFloat(stat(survey.RxRate).Mean, -1), survey.RxRate.Unit())},
			popupField{"Tx Bitrate", withUnit(formatFloat(stat(survey.TxRate).Mean, -1), survey.TxRate.Unit())},
			popupField{"Signal", withUnit(formatFloat(stat(survey.Signal).Mean, -1), survey.Signal.Unit())},
			popupField{"Noise", withUnit(formatFloat(stat(survey.Noise).Mean, -1), survey.Noise.Unit())},
			popupField{"Heading", withUnit(formatFloat(stat(survey.Heading).Mean, -1), survey.Heading.Unit())},
			popupField{"Tx Power", withUnit(formatFloat(stat(survey.TxPower).Mean, -1), survey.TxPower.Unit())},
		)
	}

	fields = append(fields,
		popupField{"Mode", orMissing(r.Attribute(survey.OpMode))},
		popupField{"Signal Avg", withUnit(formatFloat(stat(survey.Signal).Mean, 1), survey.Signal.Unit())},
	)

	if c.HasBitrates {
		for _, m := range []survey.Metric{survey.RxRate, survey.TxRate} {
			name := "Rx Bitrate"
			if m == survey.TxRate {
				name = "Tx Bitrate"
			}
			s := stat(m)
			fields = append(fields,
				popupField{name + " Min", withUnit(formatFloat(s.Min, -1), m.Unit())},
				popupField{name + " Max", withUnit(formatFloat(s.Max, -1), m.Unit())},
				popupField{name + " Avg", withUnit(formatFloat(s.Mean, 1), m.Unit())},
			)
		}
	}

	signal, noise := stat(survey.Signal), stat(survey.Noise)
	return append(fields,
		popupField{"Signal Min", withUnit(formatFloat(signal.Min, -1), survey.Signal.Unit())},
		popupField{"Signal Max", withUnit(formatFloat(signal.Max, -1), survey.Signal.Unit())},
		popupField{"Noise Min", withUnit(formatFloat(noise.Min, -1), survey.Noise.Unit())},
		popupField{"Noise Max", withUnit(formatFloat(noise.Max, -1), survey.Noise.Unit())},
		popupField{"Samples Merged", strconv.Itoa(r.SamplesMerged)},
	)
}

// Popup returns the HTML popup body of a record. All values are escaped.
func (c *Config) Popup(r *survey.AggregateRecord) string {
	var sb strings.Builder
	for i, f := range c.popupFields(r) {
		if i > 0 {
			sb.WriteString("<br>")
		}
		sb.WriteString("<b>")
		sb.WriteString(html.EscapeString(f.label))
		sb.WriteString(":</b> ")
		sb.WriteString(html.EscapeString(f.value))
	}
	return sb.String()
}

// formatTime formats t for labels and properties
func (c *Config) formatTime(t time.Time) string {
	return t.In(c.Location).Format(c.DatetimeFormat)
}
