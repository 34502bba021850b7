// Package render draws detections onto images and cuts detections out of them.
package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strings"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/Tutortoise/face-mask-service/models"
)

const (
	BoxThickness  = 2
	LabelPadding  = 10 // extra height of the label background above the text
	LabelBaseline = 5  // distance of the text baseline above the box top
)

var (
	DefaultColor = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	LabelColor   = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
)

// ColorTable maps class names to box colors.
type ColorTable map[string]color.NRGBA

// MaskColors is the color table for the mask classes.
var MaskColors = ColorTable{
	models.ClassWithMask:      {R: 0, G: 255, B: 0, A: 255},
	models.ClassWithoutMask:   {R: 255, G: 0, B: 0, A: 255},
	models.ClassMaskIncorrect: {R: 255, G: 255, B: 0, A: 255},
}

// Lookup returns the color for class, or DefaultColor for unknown classes.
func (t ColorTable) Lookup(class string) color.NRGBA {
	if c, ok := t[class]; ok {
		return c
	}
	return DefaultColor
}

type Annotator struct {
	Colors ColorTable
	Face   font.Face
}

func NewAnnotator() *Annotator {
	return &Annotator{
		Colors: MaskColors,
		Face:   basicfont.Face7x13,
	}
}

// Annotate returns a copy of img with a box and a label drawn for every
// detection, in order. img itself is left untouched.
func (a *Annotator) Annotate(img image.Image, detections []models.Detection) *image.NRGBA {
	dst := imaging.Clone(img)
	for _, d := range detections {
		a.drawDetection(dst, d)
	}
	return dst
}

func (a *Annotator) drawDetection(dst *image.NRGBA, d models.Detection) {
	c := a.Colors.Lookup(d.Class)
	box := image.Rect(d.BBox.X, d.BBox.Y, d.BBox.X+d.BBox.Width, d.BBox.Y+d.BBox.Height)
	strokeRect(dst, box, BoxThickness, c)

	label := Label(d)
	textW := font.MeasureString(a.Face, label).Ceil()
	textH := a.Face.Metrics().Ascent.Ceil()

	background := image.Rect(box.Min.X, box.Min.Y-textH-LabelPadding, box.Min.X+textW, box.Min.Y)
	fillRect(dst, background, c)

	drawer := font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(LabelColor),
		Face: a.Face,
		Dot:  fixed.P(box.Min.X, box.Min.Y-LabelBaseline),
	}
	drawer.DrawString(label)
}

// Label is the caption drawn above a detection, e.g. "with mask 0.87".
func Label(d models.Detection) string {
	return fmt.Sprintf("%s %.2f", strings.ReplaceAll(d.Class, "_", " "), d.Confidence)
}

// strokeRect draws the outline of r with the given thickness, centered on its edges.
func strokeRect(dst draw.Image, r image.Rectangle, thickness int, c color.Color) {
	half := thickness / 2
	outer := image.Rect(r.Min.X-half, r.Min.Y-half, r.Max.X+thickness-half, r.Max.Y+thickness-half)

	fillRect(dst, image.Rect(outer.Min.X, outer.Min.Y, outer.Max.X, outer.Min.Y+thickness), c)
	fillRect(dst, image.Rect(outer.Min.X, outer.Max.Y-thickness, outer.Max.X, outer.Max.Y), c)
	fillRect(dst, image.Rect(outer.Min.X, outer.Min.Y, outer.Min.X+thickness, outer.Max.Y), c)
	fillRect(dst, image.Rect(outer.Max.X-thickness, outer.Min.Y, outer.Max.X, outer.Max.Y), c)
}

func fillRect(dst draw.Image, r image.Rectangle, c color.Color) {
	r = r.Intersect(dst.Bounds())
	if r.Empty() {
		return
	}
	draw.Draw(dst, r, image.NewUniform(c), image.Point{}, draw.Src)
}
