// Package mathx holds the 2D helpers the pose engine builds on top of mgl32.
// Angles are in degrees.
package mathx

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Cos of deg degrees, the radians are computed in float64.
func Cos(deg float32) float32 {
	return float32(math.Cos(float64(deg) * math.Pi / 180))
}

// Sin of deg degrees.
func Sin(deg float32) float32 {
	return float32(math.Sin(float64(deg) * math.Pi / 180))
}

// Atan2 returns the angle of (x, y) in degrees.
func Atan2(y, x float32) float32 {
	return mgl32.RadToDeg(float32(math.Atan2(float64(y), float64(x))))
}

// Sqrt is math.Sqrt on float32.
func Sqrt(v float32) float32 {
	return float32(math.Sqrt(float64(v)))
}

// Abs is math.Abs on float32.
func Abs(v float32) float32 {
	return float32(math.Abs(float64(v)))
}

// Rotate builds the rotation matrix of deg degrees.
func Rotate(deg float32) mgl32.Mat2 {
	cos, sin := Cos(deg), Sin(deg)
	return mgl32.Mat2{cos, sin, -sin, cos}
}

// Scale builds a diagonal scale matrix.
func Scale(scale mgl32.Vec2) mgl32.Mat2 {
	return mgl32.Diag2(scale)
}

// GetRotate 取 x 轴的旋转量
func GetRotate(m mgl32.Mat2) float32 {
	return Atan2(m[1], m[0])
}

// GetScale 取两个轴的长度，不含翻转
func GetScale(m mgl32.Mat2) mgl32.Vec2 {
	return mgl32.Vec2{m.Col(0).Len(), m.Col(1).Len()}
}

// Affine packs a linear part and a translation into a column major 3x3 matrix.
func Affine(m mgl32.Mat2, pos mgl32.Vec2) mgl32.Mat3 {
	return mgl32.Mat3{m[0], m[1], 0, m[2], m[3], 0, pos[0], pos[1], 1}
}

// Lerp interpolates between a and b.
func Lerp(a, b, rate float32) float32 {
	return a + (b-a)*rate
}

// WrapDegrees maps deg into [-180, 180].
func WrapDegrees(deg float32) float32 {
	deg = float32(math.Mod(float64(deg), 360))
	if deg > 180 {
		deg -= 360
	} else if deg < -180 {
		deg += 360
	}
	return deg
}

// LerpRotation 走最短的弧
func LerpRotation(a, b, rate float32) float32 {
	return a + WrapDegrees(b-a)*rate
}

// Vec2Lerp interpolates each component.
func Vec2Lerp(a, b mgl32.Vec2, rate float32) mgl32.Vec2 {
	return mgl32.Vec2{Lerp(a[0], b[0], rate), Lerp(a[1], b[1], rate)}
}

// Vec2Mul multiplies component by component.
func Vec2Mul(v1, v2 mgl32.Vec2) mgl32.Vec2 {
	return mgl32.Vec2{v1[0] * v2[0], v1[1] * v2[1]}
}

// Vec2Div leaves a component untouched when its divisor is 0.
func Vec2Div(v1, v2 mgl32.Vec2) mgl32.Vec2 {
	res := v1
	for i := range res {
		if v2[i] != 0 {
			res[i] /= v2[i]
		}
	}
	return res
}

// Vec4Lerp interpolates each component.
func Vec4Lerp(a, b mgl32.Vec4, rate float32) mgl32.Vec4 {
	return mgl32.Vec4{Lerp(a[0], b[0], rate), Lerp(a[1], b[1], rate), Lerp(a[2], b[2], rate), Lerp(a[3], b[3], rate)}
}

// Vec4Mul multiplies component by component, e.g. two tint colors.
func Vec4Mul(v1, v2 mgl32.Vec4) mgl32.Vec4 {
	return mgl32.Vec4{v1[0] * v2[0], v1[1] * v2[1], v1[2] * v2[2], v1[3] * v2[3]}
}

// Mod is a floored modulo, the result has the sign of n.
func Mod(v, n float32) float32 {
	res := float32(math.Mod(float64(v), float64(n)))
	if res < 0 {
		res += n
	}
	return res
}
