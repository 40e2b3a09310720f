package glscene

import (
	"math"
	"testing"
)

// Vertex indices of the grid lines in the strip.
const (
	npOuterLeft  = 0  // ox1, oy1
	npInnerLeft  = 1  // ix1, oy1
	npInnerTop   = 2  // ox1, iy1
	npInnerBot   = 4  // ox1, iy2
	npOuterBot   = 6  // ox1, oy2
	npInnerRight = 14 // ix2, oy1
	npOuterRight = 15 // ox2, oy1
)

func nineX(v [44]float32, i int) float32 { return v[i*2] }
func nineY(v [44]float32, i int) float32 { return v[i*2+1] }

func TestNinePatchGeometry(t *testing.T) {
	np := NinePatchGeometry(0, 0, 90, 60, 10, 10, 10, 10, 30, 30)

	checks := []struct {
		name string
		got  float32
		want float32
	}{
		{"ix1", nineX(np.Positions, npInnerLeft), 10},
		{"ix2", nineX(np.Positions, npInnerRight), 80},
		{"ox2", nineX(np.Positions, npOuterRight), 90},
		{"iy1", nineY(np.Positions, npInnerTop), 10},
		{"iy2", nineY(np.Positions, npInnerBot), 50},
		{"oy2", nineY(np.Positions, npOuterBot), 60},
		{"iu1", nineX(np.UVs, npInnerLeft), 1.0 / 3},
		{"iu2", nineX(np.UVs, npInnerRight), 2.0 / 3},
		{"ov1", nineY(np.UVs, npOuterLeft), 1},
		{"iv1", nineY(np.UVs, npInnerTop), 2.0 / 3},
		{"iv2", nineY(np.UVs, npInnerBot), 1.0 / 3},
		{"ov2", nineY(np.UVs, npOuterBot), 0},
	}
	for _, c := range checks {
		if math.Abs(float64(c.got-c.want)) > 1e-6 {
			t.Errorf("%s = %v, want %v", c.name, c.got, c.want)
		}
	}
}

func TestNinePatchAsymmetricInsets(t *testing.T) {
	// Top inset 5, bottom inset 15 on a 40px tall texture.
	np := NinePatchGeometry(0, 0, 100, 100, 0, 5, 0, 15, 40, 40)

	if got := nineY(np.UVs, npInnerTop); math.Abs(float64(got-0.875)) > 1e-6 {
		t.Errorf("iv1 = %v, want 0.875", got)
	}
	if got := nineY(np.UVs, npInnerBot); math.Abs(float64(got-0.375)) > 1e-6 {
		t.Errorf("iv2 = %v, want 0.375", got)
	}
	if got := nineY(np.Positions, npInnerTop); got != 5 {
		t.Errorf("iy1 = %v, want 5", got)
	}
	if got := nineY(np.Positions, npInnerBot); got != 85 {
		t.Errorf("iy2 = %v, want 85", got)
	}
}

func TestNinePatchStaysMonotonic(t *testing.T) {
	tests := []struct {
		name           string
		w, h           float32
		x1, y1, x2, y2 float32
		tw, th         int
	}{
		{"normal", 90, 60, 10, 10, 10, 10, 30, 30},
		{"overlapping", 20, 20, 15, 15, 15, 15, 30, 30},
		{"larger than texture", 200, 200, 50, 50, 50, 50, 30, 30},
		{"negative insets", 50, 50, -10, -5, -1, -20, 30, 30},
		{"huge left", 40, 40, 1000, 0, 5, 0, 30, 30},
		{"zero texture", 40, 40, 5, 5, 5, 5, 0, 0},
		{"one pixel", 1, 1, 3, 3, 3, 3, 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			np := NinePatchGeometry(0, 0, tt.w, tt.h, tt.x1, tt.y1, tt.x2, tt.y2, tt.tw, tt.th)

			xs := []float32{
				nineX(np.Positions, npOuterLeft), nineX(np.Positions, npInnerLeft),
				nineX(np.Positions, npInnerRight), nineX(np.Positions, npOuterRight),
			}
			ys := []float32{
				nineY(np.Positions, npOuterLeft), nineY(np.Positions, npInnerTop),
				nineY(np.Positions, npInnerBot), nineY(np.Positions, npOuterBot),
			}
			us := []float32{
				nineX(np.UVs, npOuterLeft), nineX(np.UVs, npInnerLeft),
				nineX(np.UVs, npInnerRight), nineX(np.UVs, npOuterRight),
			}
			vs := []float32{
				nineY(np.UVs, npOuterLeft), nineY(np.UVs, npInnerTop),
				nineY(np.UVs, npInnerBot), nineY(np.UVs, npOuterBot),
			}
			for i := 1; i < 4; i++ {
				if xs[i] < xs[i-1] {
					t.Errorf("x not monotonic: %v", xs)
				}
				if ys[i] < ys[i-1] {
					t.Errorf("y not monotonic: %v", ys)
				}
				if us[i] < us[i-1] {
					t.Errorf("u not monotonic: %v", us)
				}
				if vs[i] > vs[i-1] {
					t.Errorf("v not monotonic: %v", vs)
				}
			}
			if xs[3] != tt.w || ys[3] != tt.h {
				t.Errorf("outer corner = %v,%v, want %v,%v", xs[3], ys[3], tt.w, tt.h)
			}
			for i, v := range np.UVs {
				if v < 0 || v > 1 || math.IsNaN(float64(v)) {
					t.Fatalf("UVs[%d] = %v outside [0, 1]", i, v)
				}
			}
		})
	}
}
