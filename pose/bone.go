package pose

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/sk2233/spinal/internal/mathx"
	"github.com/sk2233/spinal/skeleton"
)

// transform is a bone local transform after every layer has been applied.
type transform struct {
	Rotation float32
	Position mgl32.Vec2
	Scale    mgl32.Vec2
	Shear    mgl32.Vec2
}

func setupTransform(bone *skeleton.Bone) transform {
	return transform{Rotation: bone.Rotation, Position: bone.Position, Scale: bone.Scale, Shear: bone.Shear}
}

// mat2 builds the local linear part, shear skews each axis on its own.
func (t transform) mat2() mgl32.Mat2 {
	return localMat2(t.Rotation+t.Shear.X(), t.Rotation+90+t.Shear.Y(), t.Scale)
}

func localMat2(rx, ry float32, scale mgl32.Vec2) mgl32.Mat2 {
	return mgl32.Mat2{
		mathx.Cos(rx) * scale.X(), mathx.Sin(rx) * scale.X(),
		mathx.Cos(ry) * scale.Y(), mathx.Sin(ry) * scale.Y(),
	}
}

type boneState struct {
	Local    transform
	Mat2     mgl32.Mat2 // 列主序 a c b d
	WorldPos mgl32.Vec2
	Rotation float32 // 单独累计的世界旋转，非等比缩放下无法从矩阵还原
}

func (b *boneState) world() mgl32.Mat3 {
	return mathx.Affine(b.Mat2, b.WorldPos)
}

func (b *boneState) localToWorld(pos mgl32.Vec2) mgl32.Vec2 {
	return b.Mat2.Mul2x1(pos).Add(b.WorldPos)
}

// updateBone computes the world transform of one bone from its parent.
func (p *poser) updateBone(idx int) {
	bone := p.skel.Bones[idx]
	state := &p.bones[idx]
	local := state.Local
	if bone.Parent < 0 { // 没有父节点局部坐标就是世界坐标
		state.WorldPos = local.Position
		state.Mat2 = local.mat2()
		state.Rotation = local.Rotation
		return
	}
	parent := &p.bones[bone.Parent] // 坐标计算毕竟是在父坐标系还是会受影响的
	state.WorldPos = parent.localToWorld(local.Position)
	pa, pc, pb, pd := parent.Mat2[0], parent.Mat2[1], parent.Mat2[2], parent.Mat2[3]
	switch bone.Transform {
	case skeleton.TransformNormal:
		state.Mat2 = parent.Mat2.Mul2(local.mat2())
		state.Rotation = parent.Rotation + local.Rotation
	case skeleton.TransformOnlyTranslation:
		state.Mat2 = local.mat2()
		state.Rotation = local.Rotation
	case skeleton.TransformNoRotationOrReflection:
		// 移除父对象的旋转量，保留其缩放
		var prx float32
		if s := pa*pa + pc*pc; s > 0.0001 {
			s = mathx.Abs(pa*pd-pb*pc) / s
			pb = pc * s
			pd = pa * s
			prx = mathx.Atan2(pc, pa)
		} else {
			pa, pc = 0, 0
			prx = 90 - mathx.Atan2(pd, pb)
		}
		rx := local.Rotation + local.Shear.X() - prx
		ry := local.Rotation + local.Shear.Y() - prx + 90
		l := localMat2(rx, ry, local.Scale)
		la, lc, lb, ld := l[0], l[1], l[2], l[3]
		state.Mat2 = mgl32.Mat2{pa*la - pb*lc, pc*la + pd*lc, pa*lb - pb*ld, pc*lb + pd*ld}
		state.Rotation = local.Rotation
	case skeleton.TransformNoScale, skeleton.TransformNoScaleOrReflection:
		// 移除父对象的缩放量，旋转方向仍取自父对象
		cos, sin := mathx.Cos(local.Rotation), mathx.Sin(local.Rotation)
		za := pa*cos + pb*sin
		zc := pc*cos + pd*sin
		s := mathx.Sqrt(za*za + zc*zc)
		if s > 0.00001 {
			s = 1 / s
		}
		za *= s
		zc *= s
		s = mathx.Sqrt(za*za + zc*zc)
		if bone.Transform == skeleton.TransformNoScale && pa*pd-pb*pc < 0 {
			s = -s
		}
		r := math.Pi/2 + math.Atan2(float64(zc), float64(za))
		zb := float32(math.Cos(r)) * s
		zd := float32(math.Sin(r)) * s
		l := localMat2(local.Shear.X(), 90+local.Shear.Y(), local.Scale)
		la, lc, lb, ld := l[0], l[1], l[2], l[3]
		state.Mat2 = mgl32.Mat2{za*la + zb*lc, zc*la + zd*lc, za*lb + zb*ld, zc*lb + zd*ld}
		state.Rotation = parent.Rotation + local.Rotation
	default:
		// Build 已校验过，到这里说明引擎自身有缺陷
		panic(fmt.Sprintf("invalid transform mode: %v", bone.Transform))
	}
}

// updateTree walks idx and its descendants depth first.
func (p *poser) updateTree(idx int) {
	p.updateBone(idx)
	for _, child := range p.skel.Children(idx) {
		p.updateTree(child)
	}
}

// updateChildren re-walks the descendants of a bone whose world transform
// was changed directly by a constraint.
func (p *poser) updateChildren(idx int) {
	for _, child := range p.skel.Children(idx) {
		p.updateTree(child)
	}
}
