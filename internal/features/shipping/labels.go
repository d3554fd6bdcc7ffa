// Copyright (c) 2026 Opsdash. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package shipping implements the shipping_label_generator screen.

An uploaded sheet of (order #, name) pairs becomes a PDF with one label per
page: the order number in the top half, a divider, and the upper-cased
customer name in the bottom half. Text is sized to the largest font that
fits its half. Large uploads are split into batches of [BatchSize] labels
and returned as a zip.
*/
package shipping

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/taibuivan/opsdash/internal/platform/constants"
	"github.com/taibuivan/opsdash/internal/platform/validate"
)

// # Layout

const (
	// FontAdjustment is subtracted from every fitted font size.
	FontAdjustment = 2

	// MinSpacingRatio is the share of the label height kept free around the divider.
	MinSpacingRatio = 0.1

	// BatchSize is the maximum number of labels per PDF.
	BatchSize = 500

	DefaultWidthMM  = 50.0
	DefaultHeightMM = 30.0
	MinDimensionMM  = 10.0
	MaxDimensionMM  = 500.0

	// MaxFontOverride bounds the manual size correction in both directions.
	MaxFontOverride = 5

	// DefaultFont is used when no font is chosen.
	DefaultFont = "Courier-Bold"

	// linePadding separates wrapped lines, in points.
	linePadding = 2

	// edgePadding is kept free on each side of text and divider, in points.
	edgePadding = 2

	pointsPerMM = 72 / 25.4
)

// Fonts lists the selectable faces, default first.
var Fonts = []string{DefaultFont, "Helvetica", "Helvetica-Bold", "Times-Roman", "Times-Bold", "Courier"}

// Label is one order/name pair.
type Label struct {
	OrderNo string `json:"order_no"`
	Name    string `json:"name"`
}

// Options controls the page size and typography of a run.
type Options struct {
	WidthMM      float64 `json:"width_mm"`
	HeightMM     float64 `json:"height_mm"`
	Font         string  `json:"font"`
	FontOverride int     `json:"font_override"`
}

// DefaultOptions returns a 50x30 mm Courier-Bold layout.
func DefaultOptions() Options {
	return Options{WidthMM: DefaultWidthMM, HeightMM: DefaultHeightMM, Font: DefaultFont}
}

// Validate checks dimensions, font and override.
func (o Options) Validate() error {
	validator := &validate.Validator{}
	validator.Custom("width_mm", o.WidthMM < MinDimensionMM || o.WidthMM > MaxDimensionMM,
		fmt.Sprintf("Must be between %.0f and %.0f mm", MinDimensionMM, MaxDimensionMM))
	validator.Custom("height_mm", o.HeightMM < MinDimensionMM || o.HeightMM > MaxDimensionMM,
		fmt.Sprintf("Must be between %.0f and %.0f mm", MinDimensionMM, MaxDimensionMM))
	validator.OneOf("font", o.Font, Fonts...)
	validator.Range("font_override", o.FontOverride, -MaxFontOverride, MaxFontOverride)
	return validator.Err()
}

// fontFace splits a face name such as "Times-Bold" into an fpdf family and style.
func fontFace(name string) (family, style string) {
	family, variant, _ := strings.Cut(name, "-")
	if variant == "Bold" {
		style = "B"
	}
	return family, style
}

/*
Render draws labels into a single PDF, one label per page.

Parameters:
  - labels: []Label in print order
  - opts: Options already validated

Returns:
  - []byte: The PDF document
  - error: Rendering failures
*/
func Render(labels []Label, opts Options) ([]byte, error) {
	width, height := opts.WidthMM*pointsPerMM, opts.HeightMM*pointsPerMM

	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           fpdf.SizeType{Wd: width, Ht: height},
	})
	pdf.SetCreator(constants.AppName, true)
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)

	family, style := fontFace(opts.Font)
	pdf.SetFont(family, style, 12)

	page := &canvas{
		pdf:    pdf,
		family: family,
		style:  style,
		encode: pdf.UnicodeTranslatorFromDescriptor(""),
		upper:  cases.Upper(language.Und),
	}

	for _, label := range labels {
		pdf.AddPage()
		page.draw(label, width, height, opts.FontOverride)
	}

	var out bytes.Buffer
	if err := pdf.Output(&out); err != nil {
		return nil, fmt.Errorf("shipping_render_failed: %w", err)
	}
	return out.Bytes(), nil
}

// canvas measures and draws text in one face. Coordinates passed to the
// layout helpers grow upwards from the bottom edge.
type canvas struct {
	pdf    *fpdf.Fpdf
	family string
	style  string
	encode func(string) string
	upper  cases.Caser
}

// width is the advance of text at size points.
func (c *canvas) width(text string, size float64) float64 {
	_, current := c.pdf.GetFontSize()
	return c.pdf.GetStringWidth(text) * size / current
}

// wrap breaks text on spaces so that each line fits maxWidth at size.
func (c *canvas) wrap(text string, size, maxWidth float64) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return []string{""}
	}

	lines := []string{}
	current := words[0]
	for _, word := range words[1:] {
		candidate := current + " " + word
		if c.width(candidate, size) <= maxWidth {
			current = candidate
			continue
		}
		lines = append(lines, current)
		current = word
	}
	return append(lines, current)
}

// blockHeight is the height of n lines at size.
func blockHeight(n int, size float64) float64 {
	return float64(n)*size + float64(n-1)*linePadding
}

// fitSize is the largest whole point size at which lines, wrapped to
// maxWidth, stay inside the padded box. It is at least 1.
func (c *canvas) fitSize(lines []string, maxWidth, maxHeight float64) float64 {
	for size := 1.0; ; size++ {
		var wrapped []string
		for _, line := range lines {
			wrapped = append(wrapped, c.wrap(line, size, maxWidth)...)
		}

		widest := 0.0
		for _, line := range wrapped {
			widest = max(widest, c.width(line, size))
		}

		if widest > maxWidth-2*edgePadding || blockHeight(len(wrapped), size) > maxHeight-2*edgePadding {
			return max(size-1, 1)
		}
	}
}

func adjust(size float64, override int) float64 {
	return max(size-FontAdjustment+float64(override), 1)
}

// text draws line centred horizontally with its baseline y points above the bottom edge.
func (c *canvas) text(line string, size, y, width, height float64) {
	c.pdf.SetFont(c.family, c.style, size)
	x := (width - c.width(line, size)) / 2
	c.pdf.Text(x, height-y, line)
}

func (c *canvas) draw(label Label, width, height float64, override int) {
	spacing := height * MinSpacingRatio
	half := (height - spacing) / 2

	// Top half: order number.
	order := c.encode("#" + strings.TrimSpace(label.OrderNo))
	orderSize := adjust(c.fitSize([]string{order}, width, half), override)
	orderLines := c.wrap(order, orderSize, width)

	top := height - half + (half-blockHeight(len(orderLines), orderSize))/2
	for i, line := range orderLines {
		c.text(line, orderSize, top+float64(len(orderLines)-i-1)*(orderSize+linePadding), width, height)
	}

	// Divider.
	divider := height - (half + spacing/2)
	c.pdf.SetLineWidth(0.5)
	c.pdf.Line(edgePadding, divider, width-edgePadding, divider)

	// Bottom half: customer name, one word per line when it has exactly two.
	name := c.encode(c.upper.String(strings.TrimSpace(label.Name)))
	nameLines := []string{name}
	if words := strings.Fields(name); len(words) == 2 {
		nameLines = words
	}

	sizes := make([]float64, len(nameLines))
	total := float64(len(nameLines)-1) * linePadding
	for i, line := range nameLines {
		sizes[i] = adjust(c.fitSize([]string{line}, width, half/float64(len(nameLines))), override)
		total += sizes[i]
	}

	bottom := (half - total) / 2
	for i, line := range nameLines {
		c.text(line, sizes[i], bottom+float64(len(nameLines)-i-1)*(sizes[i]+linePadding), width, height)
	}
}
