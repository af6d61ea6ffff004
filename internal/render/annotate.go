package render

import (
	"image"
	"image/color"
	"image/draw"
	"math"
	"strconv"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Marker sizes in PDF points, multiplied by the render scale
const (
	markerStrokeWidth = 1.5
	markerFontSize    = 12.0
	markerMinBaseline = 10.0
)

// MarkerColor is the color of field outlines and numbers
var MarkerColor = color.RGBA{R: 255, A: 255}

// Marker is one numbered field outline in pixel space
type Marker struct {
	Number int
	Bounds image.Rectangle
}

// cloneRGBA returns an independent RGBA copy of img
func cloneRGBA(img image.Image) *image.RGBA {
	b := img.Bounds()
	clone := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(clone, clone.Bounds(), img, b.Min, draw.Src)
	return clone
}

// Annotate returns a copy of img with a red outline around each marker and
// its "#n" label drawn near the top-left corner. img is not modified.
func Annotate(img image.Image, markers []Marker, scale float64) *image.RGBA {
	if scale <= 0 {
		scale = 1
	}
	dst := cloneRGBA(img)

	stroke := max(1, int(math.Round(markerStrokeWidth*scale)))
	glyphFactor := max(1, int(math.Round(markerFontSize*scale/float64(basicfont.Face7x13.Height))))
	minBaseline := int(math.Round(markerMinBaseline * scale))

	for _, m := range markers {
		drawOutline(dst, m.Bounds, stroke, MarkerColor)
		x := max(0, m.Bounds.Min.X)
		y := max(minBaseline, m.Bounds.Min.Y)
		drawLabel(dst, "#"+strconv.Itoa(m.Number), image.Pt(x, y), glyphFactor, MarkerColor)
	}

	return dst
}

// drawOutline strokes r with the given width, centred on the rectangle edge
func drawOutline(dst draw.Image, r image.Rectangle, width int, c color.Color) {
	r = r.Canon()
	if r.Empty() {
		return
	}
	src := image.NewUniform(c)
	inner := width / 2
	outer := width - inner

	edges := []image.Rectangle{
		image.Rect(r.Min.X-outer, r.Min.Y-outer, r.Max.X+outer, r.Min.Y+inner), // top
		image.Rect(r.Min.X-outer, r.Max.Y-inner, r.Max.X+outer, r.Max.Y+outer), // bottom
		image.Rect(r.Min.X-outer, r.Min.Y-outer, r.Min.X+inner, r.Max.Y+outer), // left
		image.Rect(r.Max.X-inner, r.Min.Y-outer, r.Max.X+outer, r.Max.Y+outer), // right
	}
	for _, e := range edges {
		draw.Draw(dst, e.Intersect(dst.Bounds()), src, image.Point{}, draw.Src)
	}
}

// drawLabel draws text with its baseline starting at origin. The bitmap face
// is rendered once and enlarged by an integer factor.
func drawLabel(dst draw.Image, text string, origin image.Point, factor int, c color.Color) {
	face := basicfont.Face7x13
	width := font.MeasureString(face, text).Ceil()
	glyphs := image.NewRGBA(image.Rect(0, 0, width, face.Height))

	d := &font.Drawer{
		Dst:  glyphs,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.P(0, face.Ascent),
	}
	d.DrawString(text)

	target := image.Rect(
		origin.X,
		origin.Y-face.Ascent*factor,
		origin.X+width*factor,
		origin.Y+(face.Height-face.Ascent)*factor,
	)
	xdraw.NearestNeighbor.Scale(dst, target, glyphs, glyphs.Bounds(), xdraw.Over, nil)
}
