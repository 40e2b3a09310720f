package glscene

import "math"

// Matrix4 is a 4x4 transform in column-major order, the layout the
// device's matrix uniform expects:
//
//	| m[0] m[4] m[8]  m[12] |
//	| m[1] m[5] m[9]  m[13] |
//	| m[2] m[6] m[10] m[14] |
//	| m[3] m[7] m[11] m[15] |
type Matrix4 [16]float32

// Identity4 returns the identity matrix.
func Identity4() Matrix4 {
	return Matrix4{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// Translate4 creates a translation matrix.
func Translate4(x, y, z float32) Matrix4 {
	m := Identity4()
	m[12], m[13], m[14] = x, y, z
	return m
}

// Scale4 creates a scaling matrix.
func Scale4(x, y, z float32) Matrix4 {
	m := Identity4()
	m[0], m[5], m[10] = x, y, z
	return m
}

// RotateZ4 creates a rotation about the Z axis (angle in radians).
func RotateZ4(angle float64) Matrix4 {
	c := float32(math.Cos(angle))
	s := float32(math.Sin(angle))
	m := Identity4()
	m[0], m[1] = c, s
	m[4], m[5] = -s, c
	return m
}

// Multiply returns m * other.
func (m Matrix4) Multiply(other Matrix4) Matrix4 {
	var r Matrix4
	for c := range 4 {
		for row := range 4 {
			var sum float32
			for k := range 4 {
				sum += m[k*4+row] * other[c*4+k]
			}
			r[c*4+row] = sum
		}
	}
	return r
}

// Transform applies m to the point (x, y, 0, 1) and returns x', y' and w.
func (m Matrix4) Transform(x, y float32) (float32, float32, float32) {
	return m[0]*x + m[4]*y + m[12],
		m[1]*x + m[5]*y + m[13],
		m[3]*x + m[7]*y + m[15]
}

// IsIdentity returns true if m is the identity matrix.
func (m Matrix4) IsIdentity() bool {
	return m == Identity4()
}
