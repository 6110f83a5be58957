package overlay

import (
	"image"

	"gocv.io/x/gocv"
)

const (
	pointRadius = 4
	lineWidth   = 2
)

// Draw renders scene onto mat. The frame is shown as a mirror image, so x is
// flipped: a normalized x lands at (1-x)*width.
func Draw(mat *gocv.Mat, scene Scene) {
	if mat == nil || mat.Empty() || scene.Empty() {
		return
	}

	width, height := mat.Cols(), mat.Rows()
	for _, layer := range scene.Layers {
		c := Palette[layer.Source]
		for _, s := range layer.Segments {
			gocv.Line(mat, Pixel(s.From, width, height), Pixel(s.To, width, height), c, lineWidth)
		}
		for _, p := range layer.Points {
			gocv.Circle(mat, Pixel(p, width, height), pointRadius, c, -1)
		}
	}
}

// Pixel maps a normalized point to mirrored pixel coordinates.
func Pixel(p Point, width, height int) image.Point {
	return image.Pt(
		int((1-p.X)*float64(width)),
		int(p.Y*float64(height)),
	)
}
