package pose

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/sk2233/spinal/internal/mathx"
	"github.com/sk2233/spinal/skeleton"
)

// resolveAttachment looks name up in the active skin first, then the default skin.
// skin is the index of the skin it was found in, -1 for the default skin.
func (p *poser) resolveAttachment(slot int, name string) (skeleton.Attachment, int) {
	if p.skin != nil && p.skin != p.skel.DefaultSkin {
		if res := p.skin.Attachment(slot, name); res != nil {
			return res, p.skinIndex
		}
	}
	if res := p.skel.DefaultSkin.Attachment(slot, name); res != nil {
		return res, -1
	}
	return nil, 0
}

func (p *poser) updateSlot(idx int) SlotPose {
	slot := p.skel.Slots[idx]
	state := p.layer.Slots[idx]
	res := SlotPose{
		Slot:       idx,
		Name:       slot.Name,
		Bone:       slot.Bone,
		Color:      state.Color,
		Dark:       state.Dark,
		Blend:      slot.Blend,
		AtlasIndex: -1,
	}
	bone := &p.bones[slot.Bone]
	res.World = bone.world()
	if state.Attachment == nil {
		return res
	}
	res.AttachmentName = *state.Attachment
	attachment, skin := p.resolveAttachment(idx, res.AttachmentName)
	if attachment == nil { // 没有匹配的附件就不展示，不是错误
		return res
	}
	res.Attachment = attachment
	res.Visible = true
	switch item := attachment.(type) {
	case *skeleton.RegionAttachment:
		local := mathx.Rotate(item.Rotation).Mul2(mathx.Scale(item.Scale))
		mat2 := bone.Mat2.Mul2(local)
		worldPos := bone.localToWorld(item.Position)
		res.World = mathx.Affine(mat2, worldPos)
		w, h := item.Size.X(), item.Size.Y()
		res.Vertices = []mgl32.Vec2{
			mat2.Mul2x1(mgl32.Vec2{-w / 2, h / 2}).Add(worldPos),
			mat2.Mul2x1(mgl32.Vec2{w / 2, h / 2}).Add(worldPos),
			mat2.Mul2x1(mgl32.Vec2{w / 2, -h / 2}).Add(worldPos),
			mat2.Mul2x1(mgl32.Vec2{-w / 2, -h / 2}).Add(worldPos),
		}
		res.Color = mathx.Vec4Mul(res.Color, item.Color)
		res.Region = p.regionName(idx, skin, res.AttachmentName, item.Path, item.Sequence)
	case *skeleton.MeshAttachment:
		res.Vertices = p.worldVertices(idx, skin, res.AttachmentName, slot.Bone, item.Vertices)
		res.Color = mathx.Vec4Mul(res.Color, item.Color)
		res.Region = p.regionName(idx, skin, res.AttachmentName, item.Path, item.Sequence)
	case *skeleton.LinkedMeshAttachment:
		// 继承父网格的时间轴时按父网格名查找形变与序列帧
		timeline, timelineSkin := res.AttachmentName, skin
		if item.InheritTimelines {
			timeline, timelineSkin = item.Parent, -1
			if item.Skin != "" {
				timelineSkin, _ = p.skel.FindSkin(item.Skin)
			}
		}
		if item.Mesh != nil {
			res.Vertices = p.worldVertices(idx, timelineSkin, timeline, slot.Bone, item.Mesh.Vertices)
		}
		res.Color = mathx.Vec4Mul(res.Color, item.Color)
		res.Region = p.regionName(idx, timelineSkin, timeline, item.Path, item.Sequence)
	case *skeleton.PointAttachment:
		res.Vertices = []mgl32.Vec2{bone.localToWorld(item.Position)}
		res.World = mathx.Affine(bone.Mat2.Mul2(mathx.Rotate(item.Rotation)), res.Vertices[0])
	default:
		vertices, _ := skeleton.AttachmentVertices(attachment)
		res.Vertices = p.worldVertices(idx, skin, res.AttachmentName, slot.Bone, vertices)
	}
	if res.Region != "" && p.state.regions != nil {
		res.AtlasIndex = p.state.regions.RegionIndex(res.Region)
	}
	return res
}

// findDeform returns the deformed floats for an attachment, nil when no deform timeline matches.
func (p *poser) findDeform(slot, skin int, attachment string) []float32 {
	for _, item := range p.layer.Deforms[slot] {
		if item.Attachment == attachment && item.Skin == skin {
			return item.Values
		}
	}
	return nil
}

// worldVertices transforms plain vertices by the slot bone and sums weighted
// vertices over their bones. Deform values replace the setup floats.
func (p *poser) worldVertices(slot, skin int, attachment string, boneIdx int, vertices skeleton.Vertices) []mgl32.Vec2 {
	values := p.findDeform(slot, skin, attachment)
	if values != nil && len(values) != vertices.DeformLen() {
		p.state.warnOnce(fmt.Sprintf("deform:%d:%s", slot, attachment), "deform length does not match the attachment, ignored")
		values = nil
	}
	res := make([]mgl32.Vec2, 0, vertices.Len())
	if !vertices.IsWeighted() {
		bone := &p.bones[boneIdx]
		for i, pos := range vertices.Positions {
			if values != nil {
				pos = mgl32.Vec2{values[i*2], values[i*2+1]}
			}
			res = append(res, bone.localToWorld(pos))
		}
		return res
	}
	k := 0
	for _, weights := range vertices.Weighted {
		pos := mgl32.Vec2{}
		for _, item := range weights {
			offset := item.Offset
			if values != nil { // 带权重时形变是相对偏移
				offset = offset.Add(mgl32.Vec2{values[k], values[k+1]})
			}
			k += 2
			pos = pos.Add(p.bones[item.Bone].localToWorld(offset).Mul(item.Weight))
		}
		res = append(res, pos)
	}
	return res
}

// regionName is the atlas key of a textured attachment, with the frame
// number appended for sequences.
func (p *poser) regionName(slot, skin int, attachment, path string, sequence *skeleton.Sequence) string {
	if sequence == nil {
		return path
	}
	index := sequence.SetupIndex
	for _, item := range p.layer.Sequences[slot] {
		if item.Attachment == attachment && item.Skin == skin {
			index = sequenceFrameIndex(item, sequence.Count)
			break
		}
	}
	return fmt.Sprintf("%s%0*d", path, sequence.Digits, sequence.Start+index)
}

func sequenceFrameIndex(item sequenceFrame, count int) int {
	frame := item.Frame
	index := frame.Index
	if frame.Mode == skeleton.SequenceHold || count <= 0 {
		return index
	}
	if frame.Delay > 0 {
		index += int(item.Elapsed/frame.Delay + 0.0001)
	}
	switch frame.Mode {
	case skeleton.SequenceOnce:
		index = min(count-1, index)
	case skeleton.SequenceLoop:
		index %= count
	case skeleton.SequencePingPong:
		n := count*2 - 2
		if n == 0 {
			index = 0
		} else {
			index %= n
		}
		if index >= count {
			index = n - index
		}
	case skeleton.SequenceOnceReverse:
		index = max(count-1-index, 0)
	case skeleton.SequenceLoopReverse:
		index = count - 1 - index%count
	case skeleton.SequencePingPongReverse:
		n := count*2 - 2
		if n == 0 {
			index = 0
		} else {
			index = (index + count - 1) % n
		}
		if index >= count {
			index = n - index
		}
	}
	return index
}

// drawOrder returns slot indices in the order they are drawn.
func (p *poser) drawOrder() []int {
	if p.layer.DrawOrder != nil {
		res := make([]int, len(p.layer.DrawOrder))
		copy(res, p.layer.DrawOrder)
		return res
	}
	res := make([]int, len(p.skel.Slots))
	for i := range res {
		res[i] = i
	}
	return res
}
