package pose

import (
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/sk2233/spinal/internal/mathx"
	"github.com/sk2233/spinal/skeleton"
)

type constraintKind uint8

const (
	constraintIK constraintKind = iota
	constraintTransform
	constraintPath
)

type constraintRef struct {
	Kind  constraintKind
	Index int
	Order int
}

// constraintOrder lists every constraint active under skin, sorted by order.
func constraintOrder(skel *skeleton.Skeleton, skin *skeleton.Skin) []constraintRef {
	res := make([]constraintRef, 0, len(skel.IK)+len(skel.Transforms)+len(skel.Paths))
	for i, item := range skel.IK {
		if !item.SkinRequired || skinHas(skin, func(s *skeleton.Skin) []int { return s.IK }, i) {
			res = append(res, constraintRef{Kind: constraintIK, Index: i, Order: item.Order})
		}
	}
	for i, item := range skel.Transforms {
		if !item.SkinRequired || skinHas(skin, func(s *skeleton.Skin) []int { return s.Transforms }, i) {
			res = append(res, constraintRef{Kind: constraintTransform, Index: i, Order: item.Order})
		}
	}
	for i, item := range skel.Paths {
		if !item.SkinRequired || skinHas(skin, func(s *skeleton.Skin) []int { return s.Paths }, i) {
			res = append(res, constraintRef{Kind: constraintPath, Index: i, Order: item.Order})
		}
	}
	sort.SliceStable(res, func(i, j int) bool {
		return res[i].Order < res[j].Order
	})
	return res
}

func skinHas(skin *skeleton.Skin, list func(*skeleton.Skin) []int, idx int) bool {
	if skin == nil {
		return false
	}
	for _, item := range list(skin) {
		if item == idx {
			return true
		}
	}
	return false
}

// ikMix 动画可以改变的约束参数
type ikMix struct {
	Mix          float32
	Softness     float32
	BendPositive bool
	Compress     bool
	Stretch      bool
}

// transformMix holds mixRotate mixX mixY mixScaleX mixScaleY mixShearY.
type transformMix [6]float32

func (p *poser) updateConstraints() {
	for _, item := range constraintOrder(p.skel, p.skin) {
		switch item.Kind {
		case constraintIK:
			p.updateIK(item.Index)
		case constraintTransform:
			p.updateTransform(item.Index)
		case constraintPath:
			p.state.warnOnce("path:"+p.skel.Paths[item.Index].Name, "path constraint is not supported, skipped")
		}
	}
}

func (p *poser) updateIK(idx int) {
	constraint := p.skel.IK[idx]
	mix := p.layer.IK[idx]
	if len(constraint.Bones) != 1 {
		p.state.warnOnce("ik:"+constraint.Name, "two bone ik is not supported, skipped")
		return
	}
	if mix.Mix == 0 {
		return
	}
	target := p.bones[constraint.Target].WorldPos
	p.applyIK(constraint.Bones[0], target, mix, constraint.Uniform)
	p.updateChildren(constraint.Bones[0])
}

// applyIK rotates a single bone to point at target, optionally scaling it to reach.
func (p *poser) applyIK(idx int, target mgl32.Vec2, mix ikMix, uniform bool) {
	data := p.skel.Bones[idx]
	bone := &p.bones[idx]
	local := bone.Local
	parent := &boneState{Mat2: mgl32.Ident2()}
	if data.Parent >= 0 {
		parent = &p.bones[data.Parent]
	}
	pa, pc, pb, pd := parent.Mat2[0], parent.Mat2[1], parent.Mat2[2], parent.Mat2[3]
	rotationIK := -local.Shear.X() - local.Rotation
	var tx, ty float32
	switch data.Transform {
	case skeleton.TransformOnlyTranslation:
		tx = target.X() - bone.WorldPos.X()
		ty = target.Y() - bone.WorldPos.Y()
	case skeleton.TransformNoRotationOrReflection:
		s := mathx.Abs(pa*pd-pb*pc) / max(0.0001, pa*pa+pc*pc)
		pb = -pc * s
		pd = pa * s
		rotationIK += mathx.Atan2(pc, pa)
		fallthrough
	default:
		x := target.X() - parent.WorldPos.X()
		y := target.Y() - parent.WorldPos.Y()
		if d := pa*pd - pb*pc; mathx.Abs(d) > 0.0001 {
			tx = (x*pd-y*pb)/d - local.Position.X()
			ty = (y*pa-x*pc)/d - local.Position.Y()
		}
	}
	rotationIK += mathx.Atan2(ty, tx)
	if local.Scale.X() < 0 {
		rotationIK += 180
	}
	rotationIK = mathx.WrapDegrees(rotationIK)
	scale := local.Scale
	if mix.Compress || mix.Stretch {
		switch data.Transform {
		case skeleton.TransformNoScale, skeleton.TransformNoScaleOrReflection:
			tx = target.X() - bone.WorldPos.X()
			ty = target.Y() - bone.WorldPos.Y()
		}
		b := data.Length * scale.X()
		dd := mathx.Sqrt(tx*tx + ty*ty)
		if b > 0.0001 && ((mix.Compress && dd < b) || (mix.Stretch && dd > b)) {
			s := (dd/b-1)*mix.Mix + 1
			scale[0] *= s
			if uniform {
				scale[1] *= s
			}
		}
	}
	bone.Local.Rotation += rotationIK * mix.Mix
	bone.Local.Scale = scale
	p.updateBone(idx)
}

func (p *poser) updateTransform(idx int) {
	constraint := p.skel.Transforms[idx]
	mix := p.layer.Transforms[idx]
	if constraint.Local {
		p.state.warnOnce("transform:"+constraint.Name, "local transform constraint is not supported, skipped")
		return
	}
	target := &p.bones[constraint.Target]
	for _, item := range constraint.Bones {
		if constraint.Relative {
			p.applyRelativeWorld(constraint, mix, target, &p.bones[item])
		} else {
			p.applyAbsoluteWorld(constraint, mix, target, &p.bones[item])
		}
		p.updateChildren(item)
	}
}

func wrapRadians(r float64) float64 {
	if r > math.Pi {
		r -= 2 * math.Pi
	} else if r < -math.Pi {
		r += 2 * math.Pi
	}
	return r
}

func rotateMat2(m mgl32.Mat2, r float64) mgl32.Mat2 {
	cos, sin := float32(math.Cos(r)), float32(math.Sin(r))
	a, c, b, d := m[0], m[1], m[2], m[3]
	return mgl32.Mat2{cos*a - sin*c, sin*a + cos*c, cos*b - sin*d, sin*b + cos*d}
}

func atan2(y, x float32) float64 {
	return math.Atan2(float64(y), float64(x))
}

// reflect 目标镜像时偏移角度取反
func reflect(target *boneState) float64 {
	ta, tc, tb, td := target.Mat2[0], target.Mat2[1], target.Mat2[2], target.Mat2[3]
	if ta*td-tb*tc > 0 {
		return math.Pi / 180
	}
	return -math.Pi / 180
}

// applyAbsoluteWorld pulls bone towards the target's world transform plus the offsets.
func (p *poser) applyAbsoluteWorld(constraint *skeleton.TransformConstraint, mix transformMix, target, bone *boneState) {
	ta, tc, tb, td := target.Mat2[0], target.Mat2[1], target.Mat2[2], target.Mat2[3]
	degRad := reflect(target)
	if mix[0] != 0 {
		r := atan2(tc, ta) - atan2(bone.Mat2[1], bone.Mat2[0]) + float64(constraint.OffsetRotation)*degRad
		r = wrapRadians(r) * float64(mix[0])
		bone.Mat2 = rotateMat2(bone.Mat2, r)
		bone.Rotation += float32(r * 180 / math.Pi)
	}
	if mix[1] != 0 || mix[2] != 0 {
		temp := target.localToWorld(constraint.Offset)
		bone.WorldPos[0] += (temp.X() - bone.WorldPos.X()) * mix[1]
		bone.WorldPos[1] += (temp.Y() - bone.WorldPos.Y()) * mix[2]
	}
	if mix[3] != 0 {
		s := mathx.Sqrt(bone.Mat2[0]*bone.Mat2[0] + bone.Mat2[1]*bone.Mat2[1])
		if s != 0 {
			s = (s + (mathx.Sqrt(ta*ta+tc*tc)-s+constraint.OffsetScale.X())*mix[3]) / s
		}
		bone.Mat2[0] *= s
		bone.Mat2[1] *= s
	}
	if mix[4] != 0 {
		s := mathx.Sqrt(bone.Mat2[2]*bone.Mat2[2] + bone.Mat2[3]*bone.Mat2[3])
		if s != 0 {
			s = (s + (mathx.Sqrt(tb*tb+td*td)-s+constraint.OffsetScale.Y())*mix[4]) / s
		}
		bone.Mat2[2] *= s
		bone.Mat2[3] *= s
	}
	if mix[5] > 0 {
		b, d := bone.Mat2[2], bone.Mat2[3]
		by := atan2(d, b)
		r := atan2(td, tb) - atan2(tc, ta) - (by - atan2(bone.Mat2[1], bone.Mat2[0]))
		r = by + (wrapRadians(r)+float64(constraint.OffsetShearY)*degRad)*float64(mix[5])
		s := float64(mathx.Sqrt(b*b + d*d))
		bone.Mat2[2] = float32(math.Cos(r) * s)
		bone.Mat2[3] = float32(math.Sin(r) * s)
	}
}

// applyRelativeWorld adds the target's world transform on top of the bone's.
func (p *poser) applyRelativeWorld(constraint *skeleton.TransformConstraint, mix transformMix, target, bone *boneState) {
	ta, tc, tb, td := target.Mat2[0], target.Mat2[1], target.Mat2[2], target.Mat2[3]
	degRad := reflect(target)
	if mix[0] != 0 {
		r := wrapRadians(atan2(tc, ta)+float64(constraint.OffsetRotation)*degRad) * float64(mix[0])
		bone.Mat2 = rotateMat2(bone.Mat2, r)
		bone.Rotation += float32(r * 180 / math.Pi)
	}
	if mix[1] != 0 || mix[2] != 0 {
		temp := target.localToWorld(constraint.Offset)
		bone.WorldPos[0] += temp.X() * mix[1]
		bone.WorldPos[1] += temp.Y() * mix[2]
	}
	if mix[3] != 0 {
		s := (mathx.Sqrt(ta*ta+tc*tc)-1+constraint.OffsetScale.X())*mix[3] + 1
		bone.Mat2[0] *= s
		bone.Mat2[1] *= s
	}
	if mix[4] != 0 {
		s := (mathx.Sqrt(tb*tb+td*td)-1+constraint.OffsetScale.Y())*mix[4] + 1
		bone.Mat2[2] *= s
		bone.Mat2[3] *= s
	}
	if mix[5] > 0 {
		r := wrapRadians(atan2(td, tb) - atan2(tc, ta))
		b, d := bone.Mat2[2], bone.Mat2[3]
		r = atan2(d, b) + (r-math.Pi/2+float64(constraint.OffsetShearY)*degRad)*float64(mix[5])
		s := float64(mathx.Sqrt(b*b + d*d))
		bone.Mat2[2] = float32(math.Cos(r) * s)
		bone.Mat2[3] = float32(math.Sin(r) * s)
	}
}
