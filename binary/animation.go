package binary

import (
	"github.com/sk2233/spinal/skeleton"
)

const (
	curveLinear  = 0
	curveStepped = 1
	curveBezier  = 2
)

const (
	attachmentDeform   = 0
	attachmentSequence = 1
)

func parseAnimations(r *reader, skel *skeleton.Skeleton) ([]*skeleton.Animation, error) {
	count, err := r.count("animation count")
	if err != nil {
		return nil, err
	}
	res := make([]*skeleton.Animation, 0, count)
	for i := 0; i < count; i++ {
		name, err := r.strOr("animation name", "")
		if err != nil {
			return nil, err
		}
		animation, err := parseAnimation(r, skel, name)
		if err != nil {
			return nil, err
		}
		res = append(res, animation)
	}
	return res, nil
}

func parseAnimation(r *reader, skel *skeleton.Skeleton, name string) (*skeleton.Animation, error) {
	res := &skeleton.Animation{Name: name}
	if _, err := r.varint("timeline count"); err != nil { // 仅用于预分配
		return nil, err
	}
	var err error
	if res.Slots, err = parseSlotTimelines(r, skel); err != nil {
		return nil, err
	}
	if res.Bones, err = parseBoneTimelines(r, len(skel.Bones)); err != nil {
		return nil, err
	}
	if res.IK, err = parseIKTimelines(r, len(skel.IK)); err != nil {
		return nil, err
	}
	if res.Transforms, err = parseTransformTimelines(r, len(skel.Transforms)); err != nil {
		return nil, err
	}
	if res.Paths, err = parsePathTimelines(r, len(skel.Paths)); err != nil {
		return nil, err
	}
	if res.Deforms, res.Sequences, err = parseAttachmentTimelines(r, skel); err != nil {
		return nil, err
	}
	if res.DrawOrder, err = parseDrawOrder(r, len(skel.Slots)); err != nil {
		return nil, err
	}
	if res.Events, err = parseEventKeyframes(r, skel.Events); err != nil {
		return nil, err
	}
	res.ComputeDuration()
	return res, nil
}

// parseCurve reads the descriptor stored after the next keyframe's values, one Bezier per channel.
func parseCurve(r *reader, time1, time2 float32, values1, values2 []float32) (*skeleton.Curve, error) {
	start := r.off
	kind, err := r.u8("curve type")
	if err != nil {
		return nil, err
	}
	switch kind {
	case curveLinear:
		return &skeleton.Curve{Kind: skeleton.CurveLinear}, nil
	case curveStepped:
		return &skeleton.Curve{Kind: skeleton.CurveStepped}, nil
	case curveBezier:
		points, err := r.floats(len(values1)*4, "bezier")
		if err != nil {
			return nil, err
		}
		res := &skeleton.Curve{Kind: skeleton.CurveBezier, Beziers: make([]skeleton.Bezier, len(values1))}
		for i := range res.Beziers {
			p := points[i*4 : i*4+4]
			res.Beziers[i] = skeleton.NormalizeBezier(time1, values1[i], time2, values2[i], p[0], p[1], p[2], p[3])
		}
		return res, nil
	default:
		return nil, &skeleton.DecodeError{Offset: start, Field: "curve type", Err: skeleton.ErrUnknownTag}
	}
}

// parseKeyframes reads `t0 v0 [extra0] (t1 v1 curve0 [extra1])...`; extra may be nil.
func parseKeyframes(r *reader, frameCount int, values func() ([]float32, error), extra func() error) ([]skeleton.Keyframe, error) {
	if frameCount == 0 {
		return nil, r.fail("keyframe count", skeleton.ErrInvalidValue)
	}
	res := make([]skeleton.Keyframe, 0, frameCount)
	time, err := r.f32("keyframe time")
	if err != nil {
		return nil, err
	}
	vals, err := values()
	if err != nil {
		return nil, err
	}
	for frame := 0; ; frame++ {
		if extra != nil {
			if err = extra(); err != nil {
				return nil, err
			}
		}
		item := skeleton.Keyframe{Time: time, Values: vals}
		if frame == frameCount-1 { // 最后一帧没有曲线
			res = append(res, item)
			return res, nil
		}
		time2, err := r.f32("keyframe time")
		if err != nil {
			return nil, err
		}
		vals2, err := values()
		if err != nil {
			return nil, err
		}
		if item.Curve, err = parseCurve(r, time, time2, vals, vals2); err != nil {
			return nil, err
		}
		res = append(res, item)
		time, vals = time2, vals2
	}
}

func floatValues(r *reader, count int) func() ([]float32, error) {
	return func() ([]float32, error) {
		return r.floats(count, "keyframe value")
	}
}

// byteValues reads color channels stored as unsigned bytes.
func byteValues(r *reader, count int) func() ([]float32, error) {
	return func() ([]float32, error) {
		bs, err := r.bytes(count, "keyframe color")
		if err != nil {
			return nil, err
		}
		res := make([]float32, count)
		for i, b := range bs {
			res[i] = float32(b) / 0xFF
		}
		return res, nil
	}
}

func parseSlotTimelines(r *reader, skel *skeleton.Skeleton) ([]skeleton.SlotTimeline, error) {
	count, err := r.count("slot timeline count")
	if err != nil {
		return nil, err
	}
	res := make([]skeleton.SlotTimeline, 0, count)
	for i := 0; i < count; i++ { // 多个 slot 分组
		slot, err := r.index("slot timeline slot", "slot", len(skel.Slots))
		if err != nil {
			return nil, err
		}
		timelineCount, err := r.count("slot timeline count")
		if err != nil {
			return nil, err
		}
		for j := 0; j < timelineCount; j++ { // 每个 slot 多个 timeline
			start := r.off
			kind, err := r.u8("slot timeline type")
			if err != nil {
				return nil, err
			}
			item := skeleton.SlotTimeline{Slot: slot, Kind: skeleton.SlotTimelineKind(kind)}
			if !item.Kind.Valid() {
				return nil, &skeleton.DecodeError{Offset: start, Field: "slot timeline type", Err: skeleton.ErrUnknownTag}
			}
			frameCount, err := r.count("slot keyframe count")
			if err != nil {
				return nil, err
			}
			if item.Kind == skeleton.SlotAttachment {
				item.Attachments = make([]skeleton.AttachmentKeyframe, 0, frameCount)
				for k := 0; k < frameCount; k++ {
					time, err := r.f32("attachment keyframe time")
					if err != nil {
						return nil, err
					}
					name, err := r.stringRef(skel.Strings, "attachment keyframe name")
					if err != nil {
						return nil, err
					}
					item.Attachments = append(item.Attachments, skeleton.AttachmentKeyframe{Time: time, Attachment: name})
				}
			} else {
				if _, err = r.varint("bezier count"); err != nil {
					return nil, err
				}
				if item.Keyframes, err = parseKeyframes(r, frameCount, byteValues(r, item.Kind.Channels()), nil); err != nil {
					return nil, err
				}
			}
			res = append(res, item)
		}
	}
	return res, nil
}

func parseBoneTimelines(r *reader, boneCount int) ([]skeleton.BoneTimeline, error) {
	count, err := r.count("bone timeline count")
	if err != nil {
		return nil, err
	}
	res := make([]skeleton.BoneTimeline, 0, count)
	for i := 0; i < count; i++ { // 多个 bone 分组
		bone, err := r.index("bone timeline bone", "bone", boneCount)
		if err != nil {
			return nil, err
		}
		timelineCount, err := r.count("bone timeline count")
		if err != nil {
			return nil, err
		}
		for j := 0; j < timelineCount; j++ {
			start := r.off
			kind, err := r.u8("bone timeline type")
			if err != nil {
				return nil, err
			}
			item := skeleton.BoneTimeline{Bone: bone, Kind: skeleton.BoneTimelineKind(kind)}
			if !item.Kind.Valid() {
				return nil, &skeleton.DecodeError{Offset: start, Field: "bone timeline type", Err: skeleton.ErrUnknownTag}
			}
			frameCount, err := r.count("bone keyframe count")
			if err != nil {
				return nil, err
			}
			if _, err = r.varint("bezier count"); err != nil {
				return nil, err
			}
			if item.Keyframes, err = parseKeyframes(r, frameCount, floatValues(r, item.Kind.Channels()), nil); err != nil {
				return nil, err
			}
			res = append(res, item)
		}
	}
	return res, nil
}

func parseIKTimelines(r *reader, ikCount int) ([]skeleton.IKTimeline, error) {
	count, err := r.count("ik timeline count")
	if err != nil {
		return nil, err
	}
	res := make([]skeleton.IKTimeline, 0, count)
	for i := 0; i < count; i++ {
		index, err := r.index("ik timeline constraint", "ik constraint", ikCount)
		if err != nil {
			return nil, err
		}
		frameCount, err := r.count("ik keyframe count")
		if err != nil {
			return nil, err
		}
		if _, err = r.varint("bezier count"); err != nil {
			return nil, err
		}
		type flags struct{ bend, compress, stretch bool }
		extras := make([]flags, 0, frameCount)
		extra := func() error { // bend compress stretch 在数值之后
			bend, err := r.i8("ik keyframe bend")
			if err != nil {
				return err
			}
			compress, err := r.boolean("ik keyframe compress")
			if err != nil {
				return err
			}
			stretch, err := r.boolean("ik keyframe stretch")
			if err != nil {
				return err
			}
			extras = append(extras, flags{bend > 0, compress, stretch})
			return nil
		}
		frames, err := parseKeyframes(r, frameCount, floatValues(r, 2), extra)
		if err != nil {
			return nil, err
		}
		item := skeleton.IKTimeline{Constraint: index, Keyframes: make([]skeleton.IKKeyframe, len(frames))}
		for k, frame := range frames {
			item.Keyframes[k] = skeleton.IKKeyframe{
				Keyframe:     frame,
				BendPositive: extras[k].bend,
				Compress:     extras[k].compress,
				Stretch:      extras[k].stretch,
			}
		}
		res = append(res, item)
	}
	return res, nil
}

func parseTransformTimelines(r *reader, transformCount int) ([]skeleton.TransformTimeline, error) {
	count, err := r.count("transform timeline count")
	if err != nil {
		return nil, err
	}
	res := make([]skeleton.TransformTimeline, 0, count)
	for i := 0; i < count; i++ {
		index, err := r.index("transform timeline constraint", "transform constraint", transformCount)
		if err != nil {
			return nil, err
		}
		frameCount, err := r.count("transform keyframe count")
		if err != nil {
			return nil, err
		}
		if _, err = r.varint("bezier count"); err != nil {
			return nil, err
		}
		frames, err := parseKeyframes(r, frameCount, floatValues(r, 6), nil)
		if err != nil {
			return nil, err
		}
		res = append(res, skeleton.TransformTimeline{Constraint: index, Keyframes: frames})
	}
	return res, nil
}

func parsePathTimelines(r *reader, pathCount int) ([]skeleton.PathTimeline, error) {
	count, err := r.count("path timeline count")
	if err != nil {
		return nil, err
	}
	res := make([]skeleton.PathTimeline, 0, count)
	for i := 0; i < count; i++ {
		index, err := r.index("path timeline constraint", "path constraint", pathCount)
		if err != nil {
			return nil, err
		}
		timelineCount, err := r.count("path timeline count")
		if err != nil {
			return nil, err
		}
		for j := 0; j < timelineCount; j++ {
			start := r.off
			kind, err := r.u8("path timeline type")
			if err != nil {
				return nil, err
			}
			if kind > uint8(skeleton.PathMix) {
				return nil, &skeleton.DecodeError{Offset: start, Field: "path timeline type", Err: skeleton.ErrUnknownTag}
			}
			item := skeleton.PathTimeline{Constraint: index, Kind: skeleton.PathTimelineKind(kind)}
			frameCount, err := r.count("path keyframe count")
			if err != nil {
				return nil, err
			}
			if _, err = r.varint("bezier count"); err != nil {
				return nil, err
			}
			if item.Keyframes, err = parseKeyframes(r, frameCount, floatValues(r, item.Kind.Channels()), nil); err != nil {
				return nil, err
			}
			res = append(res, item)
		}
	}
	return res, nil
}

// skinAt maps a binary skin index, where the default skin occupies index 0 when present.
func skinAt(skel *skeleton.Skeleton, index int) (int, *skeleton.Skin) {
	if skel.DefaultSkin != nil {
		if index == 0 {
			return -1, skel.DefaultSkin
		}
		index--
	}
	if index < 0 || index >= len(skel.Skins) {
		return index, nil
	}
	return index, skel.Skins[index]
}

func parseAttachmentTimelines(r *reader, skel *skeleton.Skeleton) ([]skeleton.DeformTimeline, []skeleton.SequenceTimeline, error) {
	var deforms []skeleton.DeformTimeline
	var sequences []skeleton.SequenceTimeline
	skinCount, err := r.count("attachment timeline skin count")
	if err != nil {
		return nil, nil, err
	}
	for i := 0; i < skinCount; i++ { // 按 skin 分组
		raw, err := r.varint("attachment timeline skin")
		if err != nil {
			return nil, nil, err
		}
		skinIndex, skin := skinAt(skel, int(min(raw, 1<<30)))
		if skin == nil {
			return nil, nil, &skeleton.ReferenceError{Kind: "skin", Index: int(raw)}
		}
		slotCount, err := r.count("attachment timeline slot count")
		if err != nil {
			return nil, nil, err
		}
		for j := 0; j < slotCount; j++ { // 按 slot 分组
			slot, err := r.index("attachment timeline slot", "slot", len(skel.Slots))
			if err != nil {
				return nil, nil, err
			}
			attachmentCount, err := r.count("attachment timeline count")
			if err != nil {
				return nil, nil, err
			}
			for k := 0; k < attachmentCount; k++ { // 按 attachment 分组
				name, err := r.stringRef(skel.Strings, "attachment timeline name")
				if err != nil {
					return nil, nil, err
				}
				if name == nil {
					return nil, nil, r.fail("attachment timeline name", skeleton.ErrInvalidValue)
				}
				attachment := skin.Attachment(slot, *name)
				if attachment == nil {
					return nil, nil, &skeleton.ReferenceError{Kind: "attachment", Name: *name}
				}
				start := r.off
				kind, err := r.u8("attachment timeline type")
				if err != nil {
					return nil, nil, err
				}
				frameCount, err := r.count("attachment keyframe count")
				if err != nil {
					return nil, nil, err
				}
				switch kind {
				case attachmentDeform:
					vertices, ok := skeleton.AttachmentVertices(attachment)
					if !ok {
						return nil, nil, &skeleton.DecodeError{Offset: start, Field: "deform attachment", Err: skeleton.ErrInvalidValue}
					}
					frames, err := parseDeformKeyframes(r, frameCount, vertices)
					if err != nil {
						return nil, nil, err
					}
					deforms = append(deforms, skeleton.DeformTimeline{Skin: skinIndex, Slot: slot, Attachment: *name, Keyframes: frames})
				case attachmentSequence:
					frames, err := parseSequenceKeyframes(r, frameCount)
					if err != nil {
						return nil, nil, err
					}
					sequences = append(sequences, skeleton.SequenceTimeline{Skin: skinIndex, Slot: slot, Attachment: *name, Keyframes: frames})
				default:
					return nil, nil, &skeleton.DecodeError{Offset: start, Field: "attachment timeline type", Err: skeleton.ErrUnknownTag}
				}
			}
		}
	}
	return deforms, sequences, nil
}

// parseDeformKeyframes stores each frame as absolute vertex floats (offsets for weighted vertices).
func parseDeformKeyframes(r *reader, frameCount int, vertices skeleton.Vertices) ([]skeleton.Keyframe, error) {
	if _, err := r.varint("bezier count"); err != nil {
		return nil, err
	}
	if frameCount == 0 {
		return nil, r.fail("deform keyframe count", skeleton.ErrInvalidValue)
	}
	setup := vertices.Flatten()
	weighted := vertices.IsWeighted()
	deform := func() ([]float32, error) {
		res := make([]float32, len(setup))
		end, err := r.varint("deform end")
		if err != nil {
			return nil, err
		}
		if end == 0 { // 没有偏移
			if !weighted {
				copy(res, setup)
			}
			return res, nil
		}
		start, err := r.varint("deform start")
		if err != nil {
			return nil, err
		}
		if int64(start)+int64(end) > int64(len(res)) {
			return nil, r.fail("deform range", skeleton.ErrInvalidValue)
		}
		values, err := r.floats(int(end), "deform values")
		if err != nil {
			return nil, err
		}
		copy(res[start:], values)
		if !weighted {
			for i := range res {
				res[i] += setup[i]
			}
		}
		return res, nil
	}
	res := make([]skeleton.Keyframe, 0, frameCount)
	time, err := r.f32("deform time")
	if err != nil {
		return nil, err
	}
	for frame := 0; ; frame++ {
		values, err := deform()
		if err != nil {
			return nil, err
		}
		item := skeleton.Keyframe{Time: time, Values: values}
		if frame == frameCount-1 {
			return append(res, item), nil
		}
		time2, err := r.f32("deform time")
		if err != nil {
			return nil, err
		}
		// 顶点整体按 0~1 插值，只有一个曲线通道
		if item.Curve, err = parseCurve(r, time, time2, []float32{0}, []float32{1}); err != nil {
			return nil, err
		}
		res = append(res, item)
		time = time2
	}
}

func parseSequenceKeyframes(r *reader, frameCount int) ([]skeleton.SequenceKeyframe, error) {
	res := make([]skeleton.SequenceKeyframe, 0, frameCount)
	for i := 0; i < frameCount; i++ {
		time, err := r.f32("sequence time")
		if err != nil {
			return nil, err
		}
		start := r.off
		modeAndIndex, err := r.i32("sequence mode")
		if err != nil {
			return nil, err
		}
		mode := skeleton.SequenceMode(modeAndIndex & 0xF)
		if int(mode) > int(skeleton.SequencePingPongReverse) {
			return nil, &skeleton.DecodeError{Offset: start, Field: "sequence mode", Err: skeleton.ErrUnknownTag}
		}
		delay, err := r.f32("sequence delay")
		if err != nil {
			return nil, err
		}
		res = append(res, skeleton.SequenceKeyframe{Time: time, Mode: mode, Index: int(modeAndIndex >> 4), Delay: delay})
	}
	return res, nil
}

// parseDrawOrder 先分配有偏移的 slot，剩下的按原顺序补齐
func parseDrawOrder(r *reader, slotCount int) ([]skeleton.DrawOrderKeyframe, error) {
	count, err := r.count("draw order count")
	if err != nil {
		return nil, err
	}
	res := make([]skeleton.DrawOrderKeyframe, 0, count)
	for i := 0; i < count; i++ {
		time, err := r.f32("draw order time")
		if err != nil {
			return nil, err
		}
		offsetCount, err := r.count("draw order offset count")
		if err != nil {
			return nil, err
		}
		if offsetCount > slotCount {
			return nil, r.fail("draw order offset count", skeleton.ErrInvalidValue)
		}
		order := make([]int, slotCount)
		for j := range order {
			order[j] = -1
		}
		unchanged := make([]int, 0, slotCount-offsetCount)
		original := 0
		for j := 0; j < offsetCount; j++ {
			slot, err := r.index("draw order slot", "slot", slotCount)
			if err != nil {
				return nil, err
			}
			if slot < original {
				return nil, r.fail("draw order slot", skeleton.ErrInvalidValue)
			}
			for original != slot {
				unchanged = append(unchanged, original)
				original++
			}
			raw, err := r.varint("draw order offset")
			if err != nil {
				return nil, err
			}
			target := original + int(int32(raw)) // 保留负号
			if target < 0 || target >= slotCount || order[target] != -1 {
				return nil, r.fail("draw order offset", skeleton.ErrInvalidValue)
			}
			order[target] = original
			original++
		}
		for original < slotCount {
			unchanged = append(unchanged, original)
			original++
		}
		for j := slotCount - 1; j >= 0; j-- {
			if order[j] != -1 {
				continue
			}
			if len(unchanged) == 0 {
				return nil, r.fail("draw order", skeleton.ErrInvalidValue)
			}
			order[j] = unchanged[len(unchanged)-1]
			unchanged = unchanged[:len(unchanged)-1]
		}
		res = append(res, skeleton.DrawOrderKeyframe{Time: time, Order: order})
	}
	return res, nil
}

func parseEventKeyframes(r *reader, events []*skeleton.EventData) ([]skeleton.EventKeyframe, error) {
	count, err := r.count("event keyframe count")
	if err != nil {
		return nil, err
	}
	res := make([]skeleton.EventKeyframe, 0, count)
	for i := 0; i < count; i++ {
		item := skeleton.EventKeyframe{}
		if item.Time, err = r.f32("event time"); err != nil {
			return nil, err
		}
		if item.Event, err = r.index("event index", "event", len(events)); err != nil {
			return nil, err
		}
		data := events[item.Event]
		if item.Int, err = r.signedVarint("event int"); err != nil {
			return nil, err
		}
		if item.Float, err = r.f32("event float"); err != nil {
			return nil, err
		}
		hasString, err := r.boolean("event has string")
		if err != nil {
			return nil, err
		}
		item.String = data.String
		if hasString {
			if item.String, err = r.strOr("event string", ""); err != nil {
				return nil, err
			}
		}
		item.Volume, item.Balance = data.Volume, data.Balance
		if data.AudioPath != nil {
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
