package render

import (
	"image/color"

	"github.com/lucasb-eyer/go-colorful"
)

// Color is a named marker color. The names are understood by Leaflet and CSS.
type Color string

const (
	Green      Color = "green"
	LightGreen Color = "lightgreen"
	Yellow     Color = "yellow"
	Orange     Color = "orange"
	Red        Color = "red"
	DarkRed    Color = "darkred"
	Gray       Color = "gray"  // Value missing
	Black      Color = "black" // Value exactly zero, usually a dropped link
)

var palette = map[Color]colorful.Color{
	Green:      colorful.Color{R: 0, G: 0.5, B: 0},
	LightGreen: colorful.Color{R: 0.565, G: 0.933, B: 0.565},
	Yellow:     colorful.Color{R: 1, G: 1, B: 0},
	Orange:     colorful.Color{R: 1, G: 0.647, B: 0},
	Red:        colorful.Color{R: 1, G: 0, B: 0},
	DarkRed:    colorful.Color{R: 0.545, G: 0, B: 0},
	Gray:       colorful.Color{R: 0.5, G: 0.5, B: 0.5},
	Black:      colorful.Color{R: 0, G: 0, B: 0},
}

// Hex returns the color as #rrggbb. Unknown names map to gray.
func (c Color) Hex() string {
	return c.toColorful().Hex()
}

// NRGBA returns the color with the given opacity in [0, 1].
func (c Color) NRGBA(opacity float64) color.NRGBA {
	r, g, b := c.toColorful().RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: uint8(opacity*255 + 0.5)}
}

func (c Color) toColorful() colorful.Color {
	if cc, ok := palette[c]; ok {
		return cc
	}
	return palette[Gray]
}

// bucket assigns Color to values greater than or equal to Min
type bucket struct {
	Min   float64
	Color Color
}

var (
	signalBuckets = []bucket{
		{-50, Green},
		{-60, LightGreen},
		{-70, Orange},
		{-80, Red},
	}

	relativeSignalBuckets = []bucket{
		{40, Green},
		{30, LightGreen},
		{20, Yellow},
		{10, Orange},
		{5, Red},
	}

	bitrateBuckets = []bucket{
		{50, Green},
		{40, LightGreen},
		{30, Yellow},
		{20, Orange},
		{10, Red},
	}

	haLowBitrateBuckets = []bucket{
		{29, Green},
		{20, LightGreen},
		{15, Yellow},
		{10, Orange},
		{5, Red},
	}
)

// classify walks buckets from the highest threshold down. Values below every
// threshold are DarkRed.
func classify(v *float64, buckets []bucket) Color {
	switch {
	case v == nil:
		return Gray
	case *v == 0:
		return Black
	}

	for _, b := range buckets {
		if *v >= b.Min {
			return b.Color
		}
	}
	return DarkRed
}

// SignalColor colors an absolute signal level in dBm.
func SignalColor(signal *float64) Color {
	return classify(signal, signalBuckets)
}

// RelativeSignalColor colors the signal to noise margin in dB.
func RelativeSignalColor(signal, noise *float64) Color {
	if signal == nil || noise == nil {
		return Gray
	}
	level := *signal - *noise
	return classify(&level, relativeSignalBuckets)
}

// BitrateColor colors a Wi-Fi link bitrate in Mb/s.
func BitrateColor(bitrate *float64) Color {
	return classify(bitrate, bitrateBuckets)
}

// HaLowBitrateColor colors a Wi-Fi HaLow (802.11ah) link bitrate in Mb/s.
func HaLowBitrateColor(bitrate *float64) Color {
	return classify(bitrate, haLowBitrateBuckets)
}
