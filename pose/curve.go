package pose

import (
	"github.com/sk2233/spinal/internal/mathx"
	"github.com/sk2233/spinal/skeleton"
)

const (
	bezierEpsilon = 0.00001
	bezierSteps   = 64 // 二分次数上限
)

// frameIndex returns the last keyframe starting at or before curr, -1 before the first one.
func frameIndex(count int, timeAt func(int) float32, curr float32) int {
	for i := count - 1; i >= 0; i-- {
		if curr >= timeAt(i) {
			return i
		}
	}
	return -1
}

func evalX(curve skeleton.Bezier, rate float32) float32 {
	rate2 := rate * rate
	rate3 := rate2 * rate
	invRate := 1 - rate
	invRate2 := invRate * invRate
	return rate3 + 3*rate2*invRate*curve.CX2 + 3*rate*invRate2*curve.CX1
}

func evalY(curve skeleton.Bezier, rate float32) float32 {
	rate2 := rate * rate
	rate3 := rate2 * rate
	invRate := 1 - rate
	invRate2 := invRate * invRate
	return rate3 + 3*rate2*invRate*curve.CY2 + 3*rate*invRate2*curve.CY1
}

// findX 二分查找 x(t) == rate 的 t，x(t) 在单位区间上单调
func findX(curve skeleton.Bezier, rate float32) float32 {
	start := float32(0)
	stop := float32(1)
	res := float32(0.5)
	x := evalX(curve, res)
	for i := 0; i < bezierSteps && mathx.Abs(rate-x) > bezierEpsilon; i++ {
		if rate < x {
			stop = res
		} else {
			start = res
		}
		res = (stop + start) * 0.5
		x = evalX(curve, res)
	}
	return res
}

// curveValue maps the time fraction of a keyframe interval to a value fraction.
func curveValue(curve *skeleton.Curve, channel int, rate float32) float32 {
	if curve == nil {
		return 0
	}
	switch curve.Kind {
	case skeleton.CurveStepped:
		return 0
	case skeleton.CurveBezier:
		if rate <= 0 {
			return 0
		}
		if rate >= 1 {
			return 1
		}
		if len(curve.Beziers) == 0 {
			return rate
		}
		bezier := curve.Beziers[min(channel, len(curve.Beziers)-1)]
		return evalY(bezier, findX(bezier, rate))
	default:
		return rate
	}
}

// sample evaluates every channel of frames at curr. ok is false before the
// first keyframe, the timeline then leaves the setup pose alone.
func sample(frames []skeleton.Keyframe, curr float32) ([]float32, bool) {
	idx := frameIndex(len(frames), func(i int) float32 { return frames[i].Time }, curr)
	if idx < 0 {
		return nil, false
	}
	frame := frames[idx]
	res := make([]float32, len(frame.Values))
	copy(res, frame.Values)
	if idx == len(frames)-1 {
		return res, true
	}
	next := frames[idx+1]
	span := next.Time - frame.Time
	rate := float32(1)
	if span > 0 {
		rate = (curr - frame.Time) / span
	}
	for i := range res {
		if i < len(next.Values) {
			res[i] = mathx.Lerp(frame.Values[i], next.Values[i], curveValue(frame.Curve, i, rate))
		}
	}
	return res, true
}
