package render

import (
	"errors"
	"fmt"
	"image"
	"image/draw"

	"github.com/dustin/go-humanize"
	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"golang.org/x/image/font"

	"github.com/roman-kulish/linkmap/internal/survey"
)

const (
	dpi           = 72.0
	fontSize      = 12.0
	lineSpacing   = 1.5
	legendSwatch  = 10
	legendSpacing = 18
)

type annotator struct {
	context  *freetype.Context
	config   Config
	borders  BorderConfig
	fontFace font.Face
}

func newAnnotator(parsedFont *truetype.Font, config Config, borders BorderConfig) (*annotator, error) {
	if parsedFont == nil {
		return nil, errors.New("font required")
	}

	ctx := freetype.NewContext()
	ctx.SetDPI(dpi)
	ctx.SetFont(parsedFont)
	ctx.SetFontSize(config.FontSize)
	ctx.SetHinting(font.HintingNone)
	ctx.SetSrc(image.Black)

	return &annotator{
		context: ctx,
		config:  config,
		borders: borders,
		fontFace: truetype.NewFace(parsedFont, &truetype.Options{
			Size:    config.FontSize,
			DPI:     dpi,
			Hinting: font.HintingNone,
		}),
	}, nil
}

func (a *annotator) Close() error {
	if a.fontFace != nil {
		return a.fontFace.Close()
	}
	return nil
}

func (a *annotator) annotate(img *image.RGBA, area plotArea, records []survey.AggregateRecord) error {
	a.context.SetClip(img.Bounds())
	a.context.SetDst(img)

	metrics := a.fontFace.Metrics()
	lineHeight := int(float64((metrics.Ascent + metrics.Descent).Round()) * lineSpacing)
	top := area.rect.Max.Y + metrics.Ascent.Round() + 8

	if err := a.drawInfoBar(area, records, top, lineHeight); err != nil {
		return fmt.Errorf("drawing info bar: %w", err)
	}
	if err := a.drawLegend(img, top+2*lineHeight); err != nil {
		return fmt.Errorf("drawing legend: %w", err)
	}
	return nil
}

func (a *annotator) drawInfoBar(area plotArea, records []survey.AggregateRecord, top, lineHeight int) error {
	start, end := timeRange(records)

	// ground distance across the plot at its center latitude
	lat := area.bound.Center().Lat()
	meters := geo.Distance(orb.Point{area.bound.Min.Lon(), lat}, orb.Point{area.bound.Max.Lon(), lat})

	lines := []string{
		fmt.Sprintf("%s records from %s samples; Time: %s - %s",
			humanize.Comma(int64(len(records))),
			humanize.Comma(int64(samplesMerged(records))),
			a.config.formatTime(start),
			a.config.formatTime(end)),
		fmt.Sprintf("Lat %.5f to %.5f; Lon %.5f to %.5f; 1px = %s",
			area.bound.Min.Lat(), area.bound.Max.Lat(),
			area.bound.Min.Lon(), area.bound.Max.Lon(),
			humanMeters(meters/float64(area.rect.Dx()))),
	}

	pt := freetype.Pt(a.borders.Left, top)
	for _, s := range lines {
		if _, err := a.context.DrawString(s, pt); err != nil {
			return fmt.Errorf("drawing info text: %w", err)
		}
		pt.Y += a.context.PointToFixed(float64(lineHeight))
	}
	return nil
}

func (a *annotator) drawLegend(img *image.RGBA, baseline int) error {
	x := a.borders.Left

	label := a.config.Scheme.Title() + ":"
	if _, err := a.context.DrawString(label, freetype.Pt(x, baseline)); err != nil {
		return fmt.Errorf("drawing legend title: %w", err)
	}
	x += font.MeasureString(a.fontFace, label).Round() + legendSpacing/2

	for _, e := range a.config.Scheme.Legend() {
		swatch := image.Rect(x, baseline-legendSwatch, x+legendSwatch, baseline)
		draw.Draw(img, swatch, image.NewUniform(e.Color.NRGBA(1)), image.Point{}, draw.Src)
		x += legendSwatch + 4

		if _, err := a.context.DrawString(e.Label, freetype.Pt(x, baseline)); err != nil {
			return fmt.Errorf("drawing legend label: %w", err)
		}
		x += font.MeasureString(a.fontFace, e.Label).Round() + legendSpacing
	}
	return nil
}

func humanMeters(m float64) string {
	v, suffix := humanize.ComputeSI(m)
	return fmt.Sprintf("%0.2f %sm", v, suffix)
}
