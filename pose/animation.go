package pose

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/sk2233/spinal/skeleton"
)

// boneDelta 动画或用户对骨骼的修改，旋转平移错切相加，缩放相乘
type boneDelta struct {
	Rotation float32
	Position mgl32.Vec2
	Scale    mgl32.Vec2
	Shear    mgl32.Vec2
}

func identityDelta() boneDelta {
	return boneDelta{Scale: mgl32.Vec2{1, 1}}
}

func (d boneDelta) applyTo(t transform) transform {
	t.Rotation += d.Rotation
	t.Position = t.Position.Add(d.Position)
	t.Scale = mgl32.Vec2{t.Scale.X() * d.Scale.X(), t.Scale.Y() * d.Scale.Y()}
	t.Shear = t.Shear.Add(d.Shear)
	return t
}

type slotLayer struct {
	Attachment *string
	Color      mgl32.Vec4
	Dark       *mgl32.Vec4
}

// deform is the vertex data a deform timeline produced for one attachment.
type deform struct {
	Skin       int
	Attachment string
	Values     []float32
}

// sequenceFrame 帧序号需要 Sequence.Count，解析附件时再换算
type sequenceFrame struct {
	Skin       int
	Attachment string
	Frame      skeleton.SequenceKeyframe
	Elapsed    float32 // 距该关键帧的时间
}

// layer is everything the active animation changes for one pose.
type layer struct {
	Bones      []boneDelta
	Slots      []slotLayer
	IK         []ikMix
	Transforms []transformMix
	Deforms    [][]deform
	Sequences  [][]sequenceFrame
	DrawOrder  []int // nil 表示 setup 顺序
}

func setupLayer(skel *skeleton.Skeleton) *layer {
	res := &layer{
		Bones:      make([]boneDelta, len(skel.Bones)),
		Slots:      make([]slotLayer, len(skel.Slots)),
		IK:         make([]ikMix, len(skel.IK)),
		Transforms: make([]transformMix, len(skel.Transforms)),
		Deforms:    make([][]deform, len(skel.Slots)),
		Sequences:  make([][]sequenceFrame, len(skel.Slots)),
	}
	for i := range res.Bones {
		res.Bones[i] = identityDelta()
	}
	for i, slot := range skel.Slots {
		res.Slots[i] = slotLayer{Attachment: slot.Attachment, Color: slot.Color}
		if slot.Dark != nil {
			dark := *slot.Dark
			res.Slots[i].Dark = &dark
		}
	}
	for i, item := range skel.IK {
		res.IK[i] = ikMix{Mix: item.Mix, Softness: item.Softness, BendPositive: item.BendPositive,
			Compress: item.Compress, Stretch: item.Stretch}
	}
	for i, item := range skel.Transforms {
		res.Transforms[i] = transformMix{item.MixRotate, item.MixX, item.MixY, item.MixScaleX, item.MixScaleY, item.MixShearY}
	}
	return res
}

// applyAnimation samples every timeline of anim at curr into the layer.
func (l *layer) applyAnimation(anim *skeleton.Animation, curr float32) {
	for _, item := range anim.Bones {
		l.applyBone(item, curr)
	}
	for _, item := range anim.Slots {
		l.applySlot(item, curr)
	}
	for _, item := range anim.IK {
		idx := frameIndex(len(item.Keyframes), func(i int) float32 { return item.Keyframes[i].Time }, curr)
		if idx < 0 || item.Constraint >= len(l.IK) {
			continue
		}
		frames := make([]skeleton.Keyframe, len(item.Keyframes))
		for i, frame := range item.Keyframes {
			frames[i] = frame.Keyframe
		}
		values, _ := sample(frames, curr)
		frame := item.Keyframes[idx]
		mix := &l.IK[item.Constraint]
		mix.Mix = values[0]
		if len(values) > 1 {
			mix.Softness = values[1]
		}
		// 布尔值不插值，取前一帧
		mix.BendPositive, mix.Compress, mix.Stretch = frame.BendPositive, frame.Compress, frame.Stretch
	}
	for _, item := range anim.Transforms {
		values, ok := sample(item.Keyframes, curr)
		if !ok || item.Constraint >= len(l.Transforms) {
			continue
		}
		copy(l.Transforms[item.Constraint][:], values)
	}
	for _, item := range anim.Deforms {
		values, ok := sample(item.Keyframes, curr)
		if !ok || item.Slot >= len(l.Deforms) {
			continue
		}
		l.Deforms[item.Slot] = append(l.Deforms[item.Slot], deform{Skin: item.Skin, Attachment: item.Attachment, Values: values})
	}
	for _, item := range anim.Sequences {
		l.applySequence(item, curr)
	}
	if idx := frameIndex(len(anim.DrawOrder), func(i int) float32 { return anim.DrawOrder[i].Time }, curr); idx >= 0 {
		l.DrawOrder = anim.DrawOrder[idx].Order
	}
}

func (l *layer) applyBone(timeline skeleton.BoneTimeline, curr float32) {
	values, ok := sample(timeline.Keyframes, curr)
	if !ok || timeline.Bone >= len(l.Bones) {
		return
	}
	delta := &l.Bones[timeline.Bone]
	switch timeline.Kind {
	case skeleton.BoneRotate:
		delta.Rotation += values[0]
	case skeleton.BoneTranslate:
		delta.Position = delta.Position.Add(mgl32.Vec2{values[0], values[1]})
	case skeleton.BoneTranslateX:
		delta.Position[0] += values[0]
	case skeleton.BoneTranslateY:
		delta.Position[1] += values[0]
	case skeleton.BoneScale:
		delta.Scale = mgl32.Vec2{delta.Scale.X() * values[0], delta.Scale.Y() * values[1]}
	case skeleton.BoneScaleX:
		delta.Scale[0] *= values[0]
	case skeleton.BoneScaleY:
		delta.Scale[1] *= values[0]
	case skeleton.BoneShear:
		delta.Shear = delta.Shear.Add(mgl32.Vec2{values[0], values[1]})
	case skeleton.BoneShearX:
		delta.Shear[0] += values[0]
	case skeleton.BoneShearY:
		delta.Shear[1] += values[0]
	}
}

func (l *layer) applySlot(timeline skeleton.SlotTimeline, curr float32) {
	if timeline.Slot >= len(l.Slots) {
		return
	}
	slot := &l.Slots[timeline.Slot]
	if timeline.Kind == skeleton.SlotAttachment {
		frames := timeline.Attachments
		if idx := frameIndex(len(frames), func(i int) float32 { return frames[i].Time }, curr); idx >= 0 {
			slot.Attachment = frames[idx].Attachment
		}
		return
	}
	values, ok := sample(timeline.Keyframes, curr)
	if !ok {
		return
	}
	switch timeline.Kind {
	case skeleton.SlotRGBA:
		slot.Color = mgl32.Vec4{values[0], values[1], values[2], values[3]}
	case skeleton.SlotRGB:
		slot.Color = mgl32.Vec4{values[0], values[1], values[2], slot.Color.W()}
	case skeleton.SlotAlpha:
		slot.Color[3] = values[0]
	case skeleton.SlotRGBA2:
		slot.Color = mgl32.Vec4{values[0], values[1], values[2], values[3]}
		slot.Dark = &mgl32.Vec4{values[4], values[5], values[6], 1}
	case skeleton.SlotRGB2:
		slot.Color = mgl32.Vec4{values[0], values[1], values[2], slot.Color.W()}
		slot.Dark = &mgl32.Vec4{values[3], values[4], values[5], 1}
	}
}

func (l *layer) applySequence(timeline skeleton.SequenceTimeline, curr float32) {
	frames := timeline.Keyframes
	idx := frameIndex(len(frames), func(i int) float32 { return frames[i].Time }, curr)
	if idx < 0 || timeline.Slot >= len(l.Sequences) {
		return
	}
	l.Sequences[timeline.Slot] = append(l.Sequences[timeline.Slot], sequenceFrame{
		Skin:       timeline.Skin,
		Attachment: timeline.Attachment,
		Frame:      frames[idx],
		Elapsed:    curr - frames[idx].Time,
	})
}
