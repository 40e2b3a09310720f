package image

import (
	"image"

	xdraw "golang.org/x/image/draw"
)

// FitWithin halves each axis independently until it is no larger than limit.
// A non-positive limit leaves the size unchanged.
func FitWithin(w, h, limit int) (int, int) {
	if limit <= 0 {
		return w, h
	}
	for w > limit {
		w = (w + 1) / 2
	}
	for h > limit {
		h = (h + 1) / 2
	}
	return w, h
}

// Downscale resamples premultiplied src to w x h. src is returned
// unchanged when it already has that size.
func Downscale(src *image.RGBA, w, h int) *image.RGBA {
	if src.Rect.Dx() == w && src.Rect.Dy() == h {
		return src
	}
	dst := &image.RGBA{
		Pix:    defaultPool.Get(w * h * 4),
		Stride: w * 4,
		Rect:   image.Rect(0, 0, w, h),
	}
	xdraw.CatmullRom.Scale(dst, dst.Rect, src, src.Bounds(), xdraw.Src, nil)
	return dst
}
