package mathx

import (
	"math/rand"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestRotateAndScale(t *testing.T) {
	rnd := rand.New(rand.NewSource(1))
	mat2 := mgl32.Ident2()
	rotate := float32(0)
	scale := mgl32.Vec2{1, 1}
	for i := 0; i < 100; i++ {
		temp := rnd.Float32()
		// 等比缩放与旋转顺序无关
		uniform := rnd.Float32()/5 + 0.9
		rotate += temp
		scale = Vec2Mul(scale, mgl32.Vec2{uniform, uniform})
		mat2 = mat2.Mul2(Rotate(temp)).Mul2(Scale(mgl32.Vec2{uniform, uniform}))
	}
	want := Rotate(rotate).Mul2(Scale(scale))
	if !mat2.ApproxEqualThreshold(want, 1e-4) {
		t.Errorf("accumulated = %v, want %v", mat2, want)
	}
}

func TestQuarterTurns(t *testing.T) {
	tests := []struct {
		deg      float32
		cos, sin float32
	}{
		{0, 1, 0}, {90, 0, 1}, {180, -1, 0}, {270, 0, -1}, {-90, 0, -1},
	}
	for _, tt := range tests {
		// 直角处误差必须远小于 float32 的 DegToRad 舍入
		if got := Cos(tt.deg); Abs(got-tt.cos) > 1e-12 {
			t.Errorf("Cos(%v) = %v, want %v", tt.deg, got, tt.cos)
		}
		if got := Sin(tt.deg); Abs(got-tt.sin) > 1e-12 {
			t.Errorf("Sin(%v) = %v, want %v", tt.deg, got, tt.sin)
		}
	}
	got := Rotate(90).Mul2x1(mgl32.Vec2{0, 50})
	if Abs(got.X()+50) > 1e-9 || Abs(got.Y()) > 1e-9 {
		t.Errorf("Rotate(90) * (0,50) = %v, want [-50 0]", got)
	}
}

func TestGetRotateAndScale(t *testing.T) {
	m := Rotate(30).Mul2(Scale(mgl32.Vec2{2, 3}))
	if got := GetRotate(m); !mgl32.FloatEqualThreshold(got, 30, 1e-4) {
		t.Errorf("GetRotate = %v, want 30", got)
	}
	if got := GetScale(m); !got.ApproxEqualThreshold(mgl32.Vec2{2, 3}, 1e-5) {
		t.Errorf("GetScale = %v, want [2 3]", got)
	}
}

func TestWrapDegrees(t *testing.T) {
	tests := []struct{ in, want float32 }{
		{0, 0}, {180, 180}, {190, -170}, {-190, 170}, {540, 180}, {-725, -5},
	}
	for _, tt := range tests {
		if got := WrapDegrees(tt.in); !mgl32.FloatEqualThreshold(got, tt.want, 1e-4) {
			t.Errorf("WrapDegrees(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
	if got := LerpRotation(170, -170, 0.5); !mgl32.FloatEqualThreshold(WrapDegrees(got), 180, 1e-4) {
		t.Errorf("LerpRotation(170, -170) = %v, want 180", got)
	}
}

func TestAffine(t *testing.T) {
	m := Affine(Rotate(90), mgl32.Vec2{5, 6})
	got := m.Mul3x1(mgl32.Vec3{1, 0, 1}).Vec2()
	if !got.ApproxEqualThreshold(mgl32.Vec2{5, 7}, 1e-5) {
		t.Errorf("Affine * (1,0) = %v, want [5 7]", got)
	}
}

func TestMod(t *testing.T) {
	if got := Mod(-0.5, 2); got != 1.5 {
		t.Errorf("Mod(-0.5, 2) = %v", got)
	}
	if got := Mod(5, 2); got != 1 {
		t.Errorf("Mod(5, 2) = %v", got)
	}
	if got := Vec2Div(mgl32.Vec2{4, 4}, mgl32.Vec2{2, 0}); got != (mgl32.Vec2{2, 4}) {
		t.Errorf("Vec2Div = %v", got)
	}
}
