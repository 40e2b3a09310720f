package glscene

// NinePatch is the geometry of a nine-patch draw: a 22-vertex triangle
// strip covering the 3x3 grid, with texture coordinates for each vertex.
type NinePatch struct {
	Positions [44]float32
	UVs       [44]float32
}

// NinePatchGeometry lays out a w x h nine-patch at (x, y) from a texture of
// size tw x th. x1, y1, x2, y2 are the left, top, right and bottom insets in
// pixels, used both for the texture and for the destination.
//
// Insets are clamped so the grid stays monotonic: texture coordinates to
// [0, 1] and sorted, destination insets to [0, w] and scaled down together
// when they would cross.
func NinePatchGeometry(x, y, w, h, x1, y1, x2, y2 float32, tw, th int) NinePatch {
	tw2, th2 := float32(max(tw, 1)), float32(max(th, 1))

	ou1, ou2 := float32(0), float32(1)
	iu1 := clamp01(x1 / tw2)
	iu2 := clamp01((tw2 - x2) / tw2)
	if iu1 > iu2 {
		iu1, iu2 = iu2, iu1
	}

	// v runs bottom to top in the stored texture.
	ov1, ov2 := float32(1), float32(0)
	iv1 := clamp01(1 - y1/th2)
	iv2 := clamp01(y2 / th2)
	if iv1 < iv2 {
		iv1, iv2 = iv2, iv1
	}

	l, r := insetPair(x1, x2, w)
	t, b := insetPair(y1, y2, h)

	ox1, ix1, ix2, ox2 := x, x+l, x+w-r, x+w
	oy1, iy1, iy2, oy2 := y, y+t, y+h-b, y+h

	var np NinePatch
	np.Positions = [44]float32{
		ox1, oy1,
		ix1, oy1,
		ox1, iy1,
		ix1, iy1,
		ox1, iy2,
		ix1, iy2,
		ox1, oy2,
		ix1, oy2,
		ix2, oy2,
		ix1, iy2,
		ix2, iy2,
		ix1, iy1,
		ix2, iy1,
		ix1, oy1,
		ix2, oy1,
		ox2, oy1,
		ix2, iy1,
		ox2, iy1,
		ix2, iy2,
		ox2, iy2,
		ix2, oy2,
		ox2, oy2,
	}
	np.UVs = [44]float32{
		ou1, ov1,
		iu1, ov1,
		ou1, iv1,
		iu1, iv1,
		ou1, iv2,
		iu1, iv2,
		ou1, ov2,
		iu1, ov2,
		iu2, ov2,
		iu1, iv2,
		iu2, iv2,
		iu1, iv1,
		iu2, iv1,
		iu1, ov1,
		iu2, ov1,
		ou2, ov1,
		iu2, iv1,
		ou2, iv1,
		iu2, iv2,
		ou2, iv2,
		iu2, ov2,
		ou2, ov2,
	}
	return np
}

// insetPair clamps a pair of opposing insets to [0, size] and scales them
// so they do not overlap.
func insetPair(a, b, size float32) (float32, float32) {
	a = min(max(a, 0), size)
	b = min(max(b, 0), size)
	if sum := a + b; sum > size && sum > 0 {
		a = a * size / sum
		b = size - a
	}
	return a, b
}

func clamp01(v float32) float32 {
	return min(max(v, 0), 1)
}
