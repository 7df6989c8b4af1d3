package pose

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/sk2233/spinal/skeleton"
)

func TestCurveValue(t *testing.T) {
	bezier := &skeleton.Curve{Kind: skeleton.CurveBezier, Beziers: []skeleton.Bezier{{CX1: 0.25, CY1: 0.1, CX2: 0.25, CY2: 1}}}
	ease := &skeleton.Curve{Kind: skeleton.CurveBezier, Beziers: []skeleton.Bezier{{CX1: 0.42, CY1: 0, CX2: 0.58, CY2: 1}}}
	tests := []struct {
		name  string
		curve *skeleton.Curve
		rate  float32
		want  float32
	}{
		{"linear", &skeleton.Curve{Kind: skeleton.CurveLinear}, 0.5, 0.5},
		{"stepped", &skeleton.Curve{Kind: skeleton.CurveStepped}, 0.9, 0},
		{"bezier start", bezier, 0, 0},
		{"bezier end", bezier, 1, 1},
		{"bezier before start", bezier, -0.5, 0},
		{"bezier after end", bezier, 1.5, 1},
		{"symmetric midpoint", ease, 0.5, 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := curveValue(tt.curve, 0, tt.rate)
			if tt.name == "symmetric midpoint" {
				if !mgl32.FloatEqualThreshold(got, tt.want, 1e-3) {
					t.Errorf("curveValue() = %v, want %v", got, tt.want)
				}
				return
			}
			if got != tt.want {
				t.Errorf("curveValue() = %v, want exactly %v", got, tt.want)
			}
		})
	}
	// 缓入曲线在前半段落后于线性
	if got := curveValue(ease, 0, 0.25); got >= 0.25 || got <= 0 {
		t.Errorf("ease in at 0.25 = %v", got)
	}
}

func TestCurveChannels(t *testing.T) {
	curve := &skeleton.Curve{Kind: skeleton.CurveBezier, Beziers: []skeleton.Bezier{
		{CX1: 0.42, CY1: 0, CX2: 0.58, CY2: 1},
		{CX1: 0, CY1: 0, CX2: 1, CY2: 1}, // 退化为线性
	}}
	if got := curveValue(curve, 1, 0.25); !mgl32.FloatEqualThreshold(got, 0.25, 1e-3) {
		t.Errorf("second channel = %v, want 0.25", got)
	}
	// 单条曲线的形变时间轴所有通道共用
	if a, b := curveValue(curve, 0, 0.3), curveValue(curve, 0, 0.3); a != b {
		t.Errorf("curve evaluation is not deterministic: %v != %v", a, b)
	}
}

func TestSample(t *testing.T) {
	frames := []skeleton.Keyframe{
		{Time: 1, Values: []float32{0, 10}, Curve: &skeleton.Curve{Kind: skeleton.CurveLinear}},
		{Time: 3, Values: []float32{10, 20}, Curve: &skeleton.Curve{Kind: skeleton.CurveStepped}},
		{Time: 4, Values: []float32{-10, 0}},
	}
	if _, ok := sample(frames, 0.5); ok {
		t.Error("sample before the first keyframe should not apply")
	}
	tests := []struct {
		time float32
		want []float32
	}{
		{1, []float32{0, 10}},
		{2, []float32{5, 15}},
		{3.5, []float32{10, 20}},
		{4, []float32{-10, 0}},
		{9, []float32{-10, 0}},
	}
	for _, tt := range tests {
		got, ok := sample(frames, tt.time)
		if !ok {
			t.Fatalf("sample(%v) did not apply", tt.time)
		}
		for i := range tt.want {
			if !near(got[i], tt.want[i]) {
				t.Errorf("sample(%v) = %v, want %v", tt.time, got, tt.want)
				break
			}
		}
	}
	// 取样结果不能与关键帧共享内存
	got, _ := sample(frames, 9)
	got[0] = 100
	if frames[2].Values[0] != -10 {
		t.Error("sample aliased keyframe values")
	}
}
