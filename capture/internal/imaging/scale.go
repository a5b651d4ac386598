package imaging

import (
	"image"
	"image/color"
	"image/draw"

	xdraw "golang.org/x/image/draw"
)

// FitInto scales src to fit a width×height canvas, preserving aspect ratio,
// centred on a white background. Used to bring a rasterized print page into
// the fixed capture viewport.
func FitInto(src image.Image, width, height int) image.Image {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)

	sb := src.Bounds()
	if sb.Dx() == 0 || sb.Dy() == 0 {
		return dst
	}

	scale := min(float64(width)/float64(sb.Dx()), float64(height)/float64(sb.Dy()))
	w := int(float64(sb.Dx()) * scale)
	h := int(float64(sb.Dy()) * scale)
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	x0 := (width - w) / 2
	y0 := (height - h) / 2

	xdraw.ApproxBiLinear.Scale(dst, image.Rect(x0, y0, x0+w, y0+h), src, sb, xdraw.Over, nil)
	return dst
}
