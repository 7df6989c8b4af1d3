// Package binary decodes skeletons exported in the Spine 4.1 binary format.
package binary

import (
	"fmt"
	"strconv"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/rs/zerolog"
	"github.com/sk2233/spinal/skeleton"
)

type options struct {
	log zerolog.Logger
}

type Option func(*options)

// WithLogger receives debug output about decoded sections.
func WithLogger(log zerolog.Logger) Option {
	return func(o *options) {
		o.log = log
	}
}

// Parse decodes a full skeleton. Malformed input yields a *skeleton.DecodeError,
// *skeleton.ReferenceError or *skeleton.StructuralError, never a panic.
func Parse(data []byte, opts ...Option) (*skeleton.Skeleton, error) {
	o := options{log: zerolog.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	r := &reader{data: data}
	skel := &skeleton.Skeleton{}
	var err error
	if skel.Info, err = parseInfo(r); err != nil {
		return nil, fmt.Errorf("info: %w", err)
	}
	if skel.Strings, err = parseStrings(r); err != nil {
		return nil, fmt.Errorf("strings: %w", err)
	}
	nonessential := skel.Info.Nonessential
	if skel.Bones, err = parseBones(r, nonessential); err != nil {
		return nil, fmt.Errorf("bones: %w", err)
	}
	if skel.Slots, err = parseSlots(r, skel.Strings, len(skel.Bones)); err != nil {
		return nil, fmt.Errorf("slots: %w", err)
	}
	if err = skel.Build(); err != nil { // 尽早拒绝非法的骨骼树
		return nil, err
	}
	if skel.IK, err = parseIKConstraints(r, len(skel.Bones)); err != nil {
		return nil, fmt.Errorf("ik constraints: %w", err)
	}
	if skel.Transforms, err = parseTransformConstraints(r, len(skel.Bones)); err != nil {
		return nil, fmt.Errorf("transform constraints: %w", err)
	}
	if skel.Paths, err = parsePathConstraints(r, len(skel.Bones), len(skel.Slots)); err != nil {
		return nil, fmt.Errorf("path constraints: %w", err)
	}
	o.log.Debug().Str("version", skel.Info.Version).Int("bones", len(skel.Bones)).Int("slots", len(skel.Slots)).
		Int("ik", len(skel.IK)).Int("transform", len(skel.Transforms)).Int("path", len(skel.Paths)).Msg("decoded setup pose")
	if skel.DefaultSkin, skel.Skins, err = parseSkins(r, skel, nonessential); err != nil {
		return nil, fmt.Errorf("skins: %w", err)
	}
	if err = skel.ResolveLinkedMeshes(); err != nil {
		return nil, fmt.Errorf("skins: %w", err)
	}
	if skel.Events, err = parseEvents(r, skel.Strings); err != nil {
		return nil, fmt.Errorf("events: %w", err)
	}
	if skel.Animations, err = parseAnimations(r, skel); err != nil {
		return nil, fmt.Errorf("animations: %w", err)
	}
	o.log.Debug().Int("skins", len(skel.Skins)).Int("events", len(skel.Events)).
		Int("animations", len(skel.Animations)).Msg("decoded skeleton")
	if r.off != len(r.data) {
		o.log.Warn().Int("offset", r.off).Int("size", len(r.data)).Msg("trailing bytes after animations")
	}
	return skel, nil
}

func parseInfo(r *reader) (skeleton.Info, error) {
	res := skeleton.Info{}
	hash, err := r.u64("hash")
	if err != nil {
		return res, err
	}
	if hash != 0 {
		res.Hash = strconv.FormatInt(int64(hash), 16)
	}
	if res.Version, err = r.strOr("version", ""); err != nil {
		return res, err
	}
	if res.Origin, err = r.vec2("origin"); err != nil {
		return res, err
	}
	if res.Size, err = r.vec2("size"); err != nil {
		return res, err
	}
	if res.Nonessential, err = r.boolean("nonessential"); err != nil {
		return res, err
	}
	if !res.Nonessential {
		return res, nil
	}
	fps, err := r.f32("fps")
	if err != nil {
		return res, err
	}
	res.FPS = &fps
	if res.ImagesPath, err = r.str("images path"); err != nil {
		return res, err
	}
	res.AudioPath, err = r.str("audio path")
	return res, err
}

func parseStrings(r *reader) ([]string, error) {
	count, err := r.count("string count")
	if err != nil {
		return nil, err
	}
	res := make([]string, 0, count)
	for i := 0; i < count; i++ {
		item, err := r.strOr("string", "")
		if err != nil {
			return nil, err
		}
		res = append(res, item)
	}
	return res, nil
}

func parseBones(r *reader, nonessential bool) ([]*skeleton.Bone, error) {
	count, err := r.count("bone count")
	if err != nil {
		return nil, err
	}
	res := make([]*skeleton.Bone, 0, count)
	for i := 0; i < count; i++ {
		bone, err := parseBone(r, i == 0, nonessential)
		if err != nil {
			return nil, err
		}
		res = append(res, bone)
	}
	return res, nil
}

func parseBone(r *reader, first bool, nonessential bool) (*skeleton.Bone, error) {
	res := &skeleton.Bone{Parent: -1, Color: skeleton.BoneColor}
	var err error
	if res.Name, err = r.strOr("bone name", ""); err != nil {
		return nil, err
	}
	if !first { // 根节点没有 parent 字段
		parent, err := r.varint("bone parent")
		if err != nil {
			return nil, err
		}
		res.Parent = int(parent)
	}
	values, err := r.floats(8, "bone transform")
	if err != nil {
		return nil, err
	}
	res.Rotation = values[0]
	res.Position = mgl32.Vec2{values[1], values[2]}
	res.Scale = mgl32.Vec2{values[3], values[4]}
	res.Shear = mgl32.Vec2{values[5], values[6]}
	res.Length = values[7]
	mode, err := r.tag("bone transform mode", 5)
	if err != nil {
		return nil, err
	}
	res.Transform = skeleton.TransformMode(mode)
	if res.SkinRequired, err = r.boolean("bone skin required"); err != nil {
		return nil, err
	}
	if nonessential {
		if res.Color, err = r.color("bone color"); err != nil {
			return nil, err
		}
	}
	return res, nil
}

func parseSlots(r *reader, strings []string, boneCount int) ([]*skeleton.Slot, error) {
	count, err := r.count("slot count")
	if err != nil {
		return nil, err
	}
	res := make([]*skeleton.Slot, 0, count)
	for i := 0; i < count; i++ {
		slot, err := parseSlot(r, strings, boneCount)
		if err != nil {
			return nil, err
		}
		res = append(res, slot)
	}
	return res, nil
}

func parseSlot(r *reader, strings []string, boneCount int) (*skeleton.Slot, error) {
	res := &skeleton.Slot{}
	var err error
	if res.Name, err = r.strOr("slot name", ""); err != nil {
		return nil, err
	}
	if res.Bone, err = r.index("slot bone", "bone", boneCount); err != nil {
		return nil, err
	}
	if res.Color, err = r.color("slot color"); err != nil {
		return nil, err
	}
	dark, err := r.u32("slot dark color")
	if err != nil {
		return nil, err
	}
	if dark != 0xFFFFFFFF { // -1 表示没有暗色
		res.Dark = &mgl32.Vec4{
			float32(dark>>16&0xFF) / 0xFF,
			float32(dark>>8&0xFF) / 0xFF,
			float32(dark&0xFF) / 0xFF,
			1,
		}
	}
	if res.Attachment, err = r.stringRef(strings, "slot attachment"); err != nil {
		return nil, err
	}
	blend, err := r.tag("slot blend mode", 4)
	if err != nil {
		return nil, err
	}
	res.Blend = skeleton.BlendMode(blend)
	return res, nil
}

// parseConstraintHead reads the name, order, skin flag and bones shared by all constraint kinds.
func parseConstraintHead(r *reader, boneCount int) (string, int, bool, []int, error) {
	name, err := r.strOr("constraint name", "")
	if err != nil {
		return "", 0, false, nil, err
	}
	order, err := r.varint("constraint order")
	if err != nil {
		return "", 0, false, nil, err
	}
	skinRequired, err := r.boolean("constraint skin required")
	if err != nil {
		return "", 0, false, nil, err
	}
	bones, err := parseIndices(r, "constraint bones", "bone", boneCount)
	if err != nil {
		return "", 0, false, nil, err
	}
	return name, int(order), skinRequired, bones, nil
}

func parseIndices(r *reader, field, kind string, limit int) ([]int, error) {
	count, err := r.count(field)
	if err != nil {
		return nil, err
	}
	res := make([]int, 0, count)
	for i := 0; i < count; i++ {
		idx, err := r.index(field, kind, limit)
		if err != nil {
			return nil, err
		}
		res = append(res, idx)
	}
	return res, nil
}

func parseIKConstraints(r *reader, boneCount int) ([]*skeleton.IKConstraint, error) {
	count, err := r.count("ik count")
	if err != nil {
		return nil, err
	}
	res := make([]*skeleton.IKConstraint, 0, count)
	for i := 0; i < count; i++ {
		item := &skeleton.IKConstraint{}
		start := r.off
		if item.Name, item.Order, item.SkinRequired, item.Bones, err = parseConstraintHead(r, boneCount); err != nil {
			return nil, err
		}
		if len(item.Bones) < 1 || len(item.Bones) > 2 {
			return nil, &skeleton.DecodeError{Offset: start, Field: "ik bones", Err: skeleton.ErrInvalidValue}
		}
		if item.Target, err = r.index("ik target", "bone", boneCount); err != nil {
			return nil, err
		}
		if item.Mix, err = r.f32("ik mix"); err != nil {
			return nil, err
		}
		if item.Softness, err = r.f32("ik softness"); err != nil {
			return nil, err
		}
		bend, err := r.i8("ik bend direction")
		if err != nil {
			return nil, err
		}
		item.BendPositive = bend > 0
		if item.Compress, err = r.boolean("ik compress"); err != nil {
			return nil, err
		}
		if item.Stretch, err = r.boolean("ik stretch"); err != nil {
			return nil, err
		}
		if item.Uniform, err = r.boolean("ik uniform"); err != nil {
			return nil, err
		}
		res = append(res, item)
	}
	return res, nil
}

func parseTransformConstraints(r *reader, boneCount int) ([]*skeleton.TransformConstraint, error) {
	count, err := r.count("transform count")
	if err != nil {
		return nil, err
	}
	res := make([]*skeleton.TransformConstraint, 0, count)
	for i := 0; i < count; i++ {
		item := &skeleton.TransformConstraint{}
		if item.Name, item.Order, item.SkinRequired, item.Bones, err = parseConstraintHead(r, boneCount); err != nil {
			return nil, err
		}
		if item.Target, err = r.index("transform target", "bone", boneCount); err != nil {
			return nil, err
		}
		if item.Local, err = r.boolean("transform local"); err != nil {
			return nil, err
		}
		if item.Relative, err = r.boolean("transform relative"); err != nil {
			return nil, err
		}
		values, err := r.floats(12, "transform values")
		if err != nil {
			return nil, err
		}
		item.OffsetRotation = values[0]
		item.Offset = mgl32.Vec2{values[1], values[2]}
		item.OffsetScale = mgl32.Vec2{values[3], values[4]}
		item.OffsetShearY = values[5]
		item.MixRotate, item.MixX, item.MixY = values[6], values[7], values[8]
		item.MixScaleX, item.MixScaleY, item.MixShearY = values[9], values[10], values[11]
		res = append(res, item)
	}
	return res, nil
}

func parsePathConstraints(r *reader, boneCount, slotCount int) ([]*skeleton.PathConstraint, error) {
	count, err := r.count("path count")
	if err != nil {
		return nil, err
	}
	res := make([]*skeleton.PathConstraint, 0, count)
	for i := 0; i < count; i++ {
		item := &skeleton.PathConstraint{}
		if item.Name, item.Order, item.SkinRequired, item.Bones, err = parseConstraintHead(r, boneCount); err != nil {
			return nil, err
		}
		if item.Target, err = r.index("path target", "slot", slotCount); err != nil {
			return nil, err
		}
		position, err := r.tag("path position mode", 2)
		if err != nil {
			return nil, err
		}
		spacing, err := r.tag("path spacing mode", 4)
		if err != nil {
			return nil, err
		}
		rotate, err := r.tag("path rotate mode", 3)
		if err != nil {
			return nil, err
		}
		item.PositionMode = skeleton.PositionMode(position)
		item.SpacingMode = skeleton.SpacingMode(spacing)
		item.RotateMode = skeleton.RotateMode(rotate)
		values, err := r.floats(6, "path values")
		if err != nil {
			return nil, err
		}
		item.OffsetRotation, item.Position, item.Spacing = values[0], values[1], values[2]
		item.MixRotate, item.MixX, item.MixY = values[3], values[4], values[5]
		res = append(res, item)
	}
	return res, nil
}

func parseEvents(r *reader, strings []string) ([]*skeleton.EventData, error) {
	count, err := r.count("event count")
	if err != nil {
		return nil, err
	}
	res := make([]*skeleton.EventData, 0, count)
	for i := 0; i < count; i++ {
		item := &skeleton.EventData{Volume: 1}
		name, err := r.stringRef(strings, "event name")
		if err != nil {
			return nil, err
		}
		if name != nil {
			item.Name = *name
		}
		if item.Int, err = r.signedVarint("event int"); err != nil {
			return nil, err
		}
		if item.Float, err = r.f32("event float"); err != nil {
			return nil, err
		}
		if item.String, err = r.strOr("event string", ""); err != nil {
			return nil, err
		}
		if item.AudioPath, err = r.str("event audio path"); err != nil {
			return nil, err
		}
		if item.AudioPath != nil {
			if item.Volume, err = r.f32("event volume"); err != nil {
				return nil, err
			}
			if item.Balance, err = r.f32("event balance"); err != nil {
				return nil, err
			}
		}
		res = append(res, item)
	}
	return res, nil
}
