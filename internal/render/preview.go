package render

import (
	"errors"
	"image"
	"io"
	"math"

	"github.com/chai2010/webp"
	"github.com/paulmach/orb"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/vector"
)

const (
	previewPadding = 8   // px around the data extent
	pointRadius    = 3.0 // px, added to the stroke weight
	pointSegments  = 16
)

// projector maps data coordinates to pixel space, keeping the aspect ratio.
// Coordinates are plotted as-is; no map projection is applied.
type projector struct {
	minX, maxY float64
	scale      float64
	offX, offY float64
}

func newProjector(e Extent, width, height int) projector {
	w := math.Max(e.MaxX-e.MinX, 1e-12)
	h := math.Max(e.MaxY-e.MinY, 1e-12)
	availW := float64(width - 2*previewPadding)
	availH := float64(height - 2*previewPadding)
	scale := math.Min(availW/w, availH/h)

	return projector{
		minX:  e.MinX,
		maxY:  e.MaxY,
		scale: scale,
		offX:  previewPadding + (availW-w*scale)/2,
		offY:  previewPadding + (availH-h*scale)/2,
	}
}

func (p projector) project(pt orb.Point) (float32, float32) {
	x := p.offX + (pt[0]-p.minX)*p.scale
	y := p.offY + (p.maxY-pt[1])*p.scale
	return float32(x), float32(y)
}

// Rasterize draws the view into a new image of the given size on a white background.
func Rasterize(view RenderedView, width, height int) (*image.RGBA, error) {
	if width <= 2*previewPadding || height <= 2*previewPadding {
		return nil, errors.New("preview size too small")
	}
	if len(view.Features) == 0 {
		return nil, ErrEmptyCollection
	}

	fill, err := ParseColor(view.Style.FillColor)
	if err != nil {
		return nil, err
	}
	stroke, err := ParseColor(view.Style.Color)
	if err != nil {
		return nil, err
	}
	fill.A = uint8(math.Round(view.Style.FillOpacity * 255))
	stroke.A = uint8(math.Round(view.Style.Opacity * 255))

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	xdraw.Draw(dst, dst.Bounds(), image.White, image.Point{}, xdraw.Src)

	d := &drawer{
		dst:    dst,
		z:      vector.NewRasterizer(width, height),
		proj:   newProjector(view.Bounds, width, height),
		weight: float32(math.Max(view.Style.Weight, 1)),
		fill:   image.NewUniform(fill),
		stroke: image.NewUniform(stroke),
	}
	for _, f := range view.Features {
		d.geometry(f.Geometry)
	}

	return dst, nil
}

// EncodePreview writes img as lossy WebP.
func EncodePreview(w io.Writer, img image.Image) error {
	return webp.Encode(w, img, &webp.Options{Lossless: false, Quality: 85})
}

type drawer struct {
	dst    *image.RGBA
	z      *vector.Rasterizer
	proj   projector
	weight float32
	fill   image.Image
	stroke image.Image
}

func (d *drawer) geometry(g orb.Geometry) {
	switch g := g.(type) {
	case orb.Point:
		d.point(g)
	case orb.MultiPoint:
		for _, p := range g {
			d.point(p)
		}
	case orb.LineString:
		d.line(g)
	case orb.MultiLineString:
		for _, ls := range g {
			d.line(ls)
		}
	case orb.Polygon:
		d.polygon(g)
	case orb.MultiPolygon:
		for _, p := range g {
			d.polygon(p)
		}
	}
}

// polygon fills all rings in one pass so holes cancel out, then strokes each ring.
func (d *drawer) polygon(p orb.Polygon) {
	d.reset()
	for _, r := range p {
		d.path(r)
	}
	d.paint(d.fill)

	for _, r := range p {
		d.line(orb.LineString(r))
	}
}

func (d *drawer) line(ls orb.LineString) {
	d.reset()
	half := d.weight / 2
	for i := 1; i < len(ls); i++ {
		x0, y0 := d.proj.project(ls[i-1])
		x1, y1 := d.proj.project(ls[i])
		dx, dy := x1-x0, y1-y0
		n := float32(math.Hypot(float64(dx), float64(dy)))
		if n == 0 {
			continue
		}
		nx, ny := -dy/n*half, dx/n*half

		d.z.MoveTo(x0+nx, y0+ny)
		d.z.LineTo(x1+nx, y1+ny)
		d.z.LineTo(x1-nx, y1-ny)
		d.z.LineTo(x0-nx, y0-ny)
		d.z.ClosePath()
	}
	d.paint(d.stroke)
}

func (d *drawer) point(p orb.Point) {
	d.reset()
	cx, cy := d.proj.project(p)
	r := float32(pointRadius) + d.weight
	for i := 0; i < pointSegments; i++ {
		a := 2 * math.Pi * float64(i) / pointSegments
		x := cx + r*float32(math.Cos(a))
		y := cy + r*float32(math.Sin(a))
		if i == 0 {
			d.z.MoveTo(x, y)
		} else {
			d.z.LineTo(x, y)
		}
	}
	d.z.ClosePath()
	d.paint(d.fill)
}

func (d *drawer) path(r orb.Ring) {
	for i, pt := range r {
		x, y := d.proj.project(pt)
		if i == 0 {
			d.z.MoveTo(x, y)
		} else {
			d.z.LineTo(x, y)
		}
	}
	d.z.ClosePath()
}

func (d *drawer) reset() {
	b := d.dst.Bounds()
	d.z.Reset(b.Dx(), b.Dy())
	d.z.DrawOp = xdraw.Over
}

func (d *drawer) paint(src image.Image) {
	d.z.Draw(d.dst, d.dst.Bounds(), src, image.Point{})
}
