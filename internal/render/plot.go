package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"

	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"github.com/paulmach/orb"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/roman-kulish/linkmap/internal/survey"
)

const (
	defaultPlotWidth = 1024
	minPlotHeight    = 200
	maxPlotAspect    = 4 // height is at most 4 times the width

	// Default border sizes in pixels
	defaultTopBorder    = 20
	defaultLeftBorder   = 20
	defaultBottomBorder = 90 // info bar and legend
	defaultRightBorder  = 20

	// minimum padding around the points, in degrees
	boundPadding = 0.0002

	headingLength = 3 * markerRadius
)

var frameColor = color.RGBA{R: 0xdd, G: 0xdd, B: 0xdd, A: 0xff}

// BorderConfig defines the sizes of white space around the plot
type BorderConfig struct {
	Top    int
	Left   int
	Bottom int // Space for the information bar
	Right  int
}

// PlotRenderer draws records as colored dots on an equirectangular projection
// of their bounding box, without map tiles.
type PlotRenderer struct {
	config  Config
	borders BorderConfig
	font    *truetype.Font
}

func newPlotRenderer(config Config) (*PlotRenderer, error) {
	parsedFont, err := freetype.ParseFont(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parsing font: %w", err)
	}

	return &PlotRenderer{
		config: config,
		borders: BorderConfig{
			Top:    defaultTopBorder,
			Left:   defaultLeftBorder,
			Bottom: defaultBottomBorder,
			Right:  defaultRightBorder,
		},
		font: parsedFont,
	}, nil
}

func (r *PlotRenderer) Format() Format {
	return FormatPNG
}

func (r *PlotRenderer) Render(w io.Writer, records []survey.AggregateRecord) error {
	img, err := r.Draw(records)
	if err != nil {
		return err
	}
	if err = png.Encode(w, img); err != nil {
		return fmt.Errorf("encoding png: %w", err)
	}
	return nil
}

// plotArea maps coordinates to pixels of the plot area
type plotArea struct {
	bound orb.Bound
	rect  image.Rectangle
}

func newPlotArea(records []survey.AggregateRecord, width int, borders BorderConfig) plotArea {
	bound, _ := extent(records)

	pad := math.Max(boundPadding, math.Max(bound.Max.X()-bound.Min.X(), bound.Max.Y()-bound.Min.Y())*0.05)
	bound = bound.Pad(pad)

	// equirectangular: one degree of longitude shrinks with the cosine of the latitude
	xScale := math.Cos(bound.Center().Lat() * math.Pi / 180)
	widthDeg := (bound.Max.Lon() - bound.Min.Lon()) * xScale
	heightDeg := bound.Max.Lat() - bound.Min.Lat()

	height := int(math.Round(float64(width) * heightDeg / widthDeg))
	height = min(max(height, minPlotHeight), width*maxPlotAspect)

	return plotArea{
		bound: bound,
		rect:  image.Rect(borders.Left, borders.Top, borders.Left+width, borders.Top+height),
	}
}

func (a plotArea) project(p orb.Point) image.Point {
	xRatio := (p.Lon() - a.bound.Min.Lon()) / (a.bound.Max.Lon() - a.bound.Min.Lon())
	yRatio := (a.bound.Max.Lat() - p.Lat()) / (a.bound.Max.Lat() - a.bound.Min.Lat())

	return image.Point{
		X: a.rect.Min.X + int(math.Round(xRatio*float64(a.rect.Dx()-1))),
		Y: a.rect.Min.Y + int(math.Round(yRatio*float64(a.rect.Dy()-1))),
	}
}

// Draw renders the records into a new image.
func (r *PlotRenderer) Draw(records []survey.AggregateRecord) (*image.RGBA, error) {
	if len(records) == 0 {
		return nil, ErrNoData
	}

	area := newPlotArea(records, r.config.Width, r.borders)

	fullWidth := area.rect.Dx() + r.borders.Left + r.borders.Right
	fullHeight := area.rect.Dy() + r.borders.Top + r.borders.Bottom
	img := image.NewRGBA(image.Rect(0, 0, fullWidth, fullHeight))

	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)
	drawFrame(img, area.rect.Inset(-1), frameColor)

	for i := range records {
		rec := &records[i]
		center := area.project(rec.Location().Point())
		c := r.config.Scheme.Color(rec)

		d := &disc{center: center, radius: markerRadius}
		draw.DrawMask(img, d.Bounds(), image.NewUniform(c.NRGBA(markerOpacity)), image.Point{}, d, d.Bounds().Min, draw.Over)

		if h := r.config.heading(rec); h != nil {
			drawHeading(img, center, *h, headingLength, c.NRGBA(1))
		}
	}

	ann, err := newAnnotator(r.font, r.config, r.borders)
	if err != nil {
		return nil, fmt.Errorf("creating annotator: %w", err)
	}
	defer ann.Close()

	if err = ann.annotate(img, area, records); err != nil {
		return nil, fmt.Errorf("drawing annotations: %w", err)
	}

	return img, nil
}

func drawFrame(img *image.RGBA, rect image.Rectangle, c color.Color) {
	for x := rect.Min.X; x < rect.Max.X; x++ {
		img.Set(x, rect.Min.Y, c)
		img.Set(x, rect.Max.Y-1, c)
	}
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		img.Set(rect.Min.X, y, c)
		img.Set(rect.Max.X-1, y, c)
	}
}

// drawHeading draws a stroke of length pixels from center towards heading,
// in degrees clockwise from north.
func drawHeading(img *image.RGBA, center image.Point, heading float64, length int, c color.Color) {
	sin, cos := math.Sincos(heading * math.Pi / 180)
	for i := 0; i <= length; i++ {
		x := center.X + int(math.Round(float64(i)*sin))
		y := center.Y - int(math.Round(float64(i)*cos))
		img.Set(x, y, c)
		img.Set(x+1, y, c)
	}
}

// disc is an alpha mask of a filled circle
type disc struct {
	center image.Point
	radius int
}

func (d *disc) ColorModel() color.Model {
	return color.AlphaModel
}

func (d *disc) Bounds() image.Rectangle {
	return image.Rect(d.center.X-d.radius, d.center.Y-d.radius, d.center.X+d.radius+1, d.center.Y+d.radius+1)
}

func (d *disc) At(x, y int) color.Color {
	dx, dy := x-d.center.X, y-d.center.Y
	if dx*dx+dy*dy <= d.radius*d.radius {
		return color.Opaque
	}
	return color.Transparent
}
