package accel

import (
	"github.com/chewxy/math32"
)

// Transform is a column-major 4x4 affine matrix, indexed [column][row]. The translation lives in
// column 3.
type Transform [4][4]float32

// Identity returns the identity transform
func Identity() Transform {
	return Transform{
		{1, 0, 0, 0},
		{0, 1, 0, 0},
		{0, 0, 1, 0},
		{0, 0, 0, 1},
	}
}

// Translation returns a transform that moves points by (x, y, z)
func Translation(x, y, z float32) Transform {
	t := Identity()
	t[3][0] = x
	t[3][1] = y
	t[3][2] = z
	return t
}

// Scaling returns a transform that scales each axis independently
func Scaling(x, y, z float32) Transform {
	t := Identity()
	t[0][0] = x
	t[1][1] = y
	t[2][2] = z
	return t
}

// RotationY returns a right-handed rotation of radians about the y axis
func RotationY(radians float32) Transform {
	sin, cos := math32.Sincos(radians)

	t := Identity()
	t[0][0] = cos
	t[0][2] = -sin
	t[2][0] = sin
	t[2][2] = cos
	return t
}

// Mul returns t * other, the transform that applies other first and then t
func (t Transform) Mul(other Transform) Transform {
	var out Transform
	for col := 0; col < 4; col++ {
		for row := 0; row < 4; row++ {
			var sum float32
			for k := 0; k < 4; k++ {
				sum += t[k][row] * other[col][k]
			}
			out[col][row] = sum
		}
	}

	return out
}

// Apply transforms a point
func (t Transform) Apply(point [3]float32) [3]float32 {
	var out [3]float32
	for row := 0; row < 3; row++ {
		out[row] = t[0][row]*point[0] + t[1][row]*point[1] + t[2][row]*point[2] + t[3][row]
	}

	return out
}

// rowMajor3x4 transposes the upper three rows into the layout instance descriptors use
func (t Transform) rowMajor3x4() [3][4]float32 {
	var out [3][4]float32
	for row := 0; row < 3; row++ {
		for col := 0; col < 4; col++ {
			out[row][col] = t[col][row]
		}
	}

	return out
}

// TransformFromRowMajor3x4 rebuilds a Transform from an instance descriptor's matrix. The
// bottom row is always (0, 0, 0, 1).
func TransformFromRowMajor3x4(m [3][4]float32) Transform {
	t := Identity()
	for row := 0; row < 3; row++ {
		for col := 0; col < 4; col++ {
			t[col][row] = m[row][col]
		}
	}

	return t
}

// ApproxEqual reports whether every element of t is within epsilon of the matching element of other
func (t Transform) ApproxEqual(other Transform, epsilon float32) bool {
	for col := 0; col < 4; col++ {
		for row := 0; row < 4; row++ {
			if math32.Abs(t[col][row]-other[col][row]) > epsilon {
				return false
			}
		}
	}

	return true
}
