package skeljson

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/sk2233/spinal/skeleton"
)

func parseAnimations(skel *skeleton.Skeleton, items object[jsonAnimation]) ([]*skeleton.Animation, error) {
	res := make([]*skeleton.Animation, 0, len(items))
	for _, item := range items {
		animation, err := parseAnimation(skel, item.Key, item.Value)
		if err != nil {
			return nil, fmt.Errorf("animation %q: %w", item.Key, err)
		}
		res = append(res, animation)
	}
	return res, nil
}

func parseAnimation(skel *skeleton.Skeleton, name string, item jsonAnimation) (*skeleton.Animation, error) {
	res := &skeleton.Animation{Name: name}
	var err error
	if res.Slots, err = parseSlotTimelines(skel, item.Slots); err != nil {
		return nil, err
	}
	if res.Bones, err = parseBoneTimelines(skel, item.Bones); err != nil {
		return nil, err
	}
	if res.IK, err = parseIKTimelines(skel, item.IK); err != nil {
		return nil, err
	}
	if res.Transforms, err = parseTransformTimelines(skel, item.Transform); err != nil {
		return nil, err
	}
	if res.Paths, err = parsePathTimelines(skel, item.Path); err != nil {
		return nil, err
	}
	if res.Deforms, res.Sequences, err = parseAttachmentTimelines(skel, item.Attachments); err != nil {
		return nil, err
	}
	for _, skinItem := range item.Deform {
		for _, slotItem := range skinItem.Value {
			for _, attachmentItem := range slotItem.Value {
				deform, err := parseDeform(skel, skinItem.Key, slotItem.Key, attachmentItem.Key, attachmentItem.Value)
				if err != nil {
					return nil, err
				}
				if deform != nil {
					res.Deforms = append(res.Deforms, *deform)
				}
			}
		}
	}
	if res.DrawOrder, err = parseDrawOrder(skel, item.DrawOrder); err != nil {
		return nil, err
	}
	if res.Events, err = parseEventKeyframes(skel, item.Events); err != nil {
		return nil, err
	}
	res.ComputeDuration()
	return res, nil
}

// sortFrames orders keyframes by time, ties keep document order.
func sortFrames(frames []jsonFrame) {
	sort.SliceStable(frames, func(i, j int) bool {
		return frames[i].Time < frames[j].Time
	})
}

// parseCurve maps a `"stepped"` string or an absolute `cx1 cy1 cx2 cy2` array
// per channel onto a unit square curve. A missing curve is linear.
func parseCurve(raw json.RawMessage, time1, time2 float32, values1, values2 []float32) (*skeleton.Curve, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return &skeleton.Curve{Kind: skeleton.CurveLinear}, nil
	}
	if raw[0] == '"' {
		kind := ""
		if err := json.Unmarshal(raw, &kind); err != nil {
			return nil, invalid("curve", err)
		}
		if kind != "stepped" {
			return nil, invalid("curve", skeleton.ErrUnknownTag)
		}
		return &skeleton.Curve{Kind: skeleton.CurveStepped}, nil
	}
	var points []float32
	if err := json.Unmarshal(raw, &points); err != nil {
		return nil, invalid("curve", err)
	}
	if len(points) < len(values1)*4 {
		return nil, invalid("curve", skeleton.ErrInvalidValue)
	}
	res := &skeleton.Curve{Kind: skeleton.CurveBezier, Beziers: make([]skeleton.Bezier, len(values1))}
	for i := range res.Beziers {
		p := points[i*4 : i*4+4]
		res.Beziers[i] = skeleton.NormalizeBezier(time1, values1[i], time2, values2[i], p[0], p[1], p[2], p[3])
	}
	return res, nil
}

func parseKeyframes(frames []jsonFrame, values func(frame *jsonFrame) ([]float32, error)) ([]skeleton.Keyframe, error) {
	sortFrames(frames)
	res := make([]skeleton.Keyframe, len(frames))
	for i := range frames {
		vals, err := values(&frames[i])
		if err != nil {
			return nil, err
		}
		res[i] = skeleton.Keyframe{Time: frames[i].Time, Values: vals}
	}
	for i := 0; i < len(res)-1; i++ {
		curve, err := parseCurve(frames[i].Curve, res[i].Time, res[i+1].Time, res[i].Values, res[i+1].Values)
		if err != nil {
			return nil, err
		}
		res[i].Curve = curve
	}
	return res, nil
}

func frameColor(field, hex string, size int) ([]float32, error) {
	if len(hex) != size {
		return nil, invalid(field, skeleton.ErrInvalidValue)
	}
	color, err := parseColor(field, hex, skeleton.White)
	if err != nil {
		return nil, err
	}
	return color[:size/2], nil
}

func slotValues(kind skeleton.SlotTimelineKind) func(frame *jsonFrame) ([]float32, error) {
	return func(frame *jsonFrame) ([]float32, error) {
		switch kind {
		case skeleton.SlotRGBA:
			return frameColor("rgba color", frame.Color, 8)
		case skeleton.SlotRGB:
			return frameColor("rgb color", frame.Color, 6)
		case skeleton.SlotAlpha:
			return []float32{or(frame.Value, 0)}, nil
		}
		lightSize := 8
		if kind == skeleton.SlotRGB2 {
			lightSize = 6
		}
		light, err := frameColor("light color", frame.Light, lightSize)
		if err != nil {
			return nil, err
		}
		dark, err := frameColor("dark color", frame.Dark, 6)
		if err != nil {
			return nil, err
		}
		return append(light, dark...), nil
	}
}

func parseSlotTimelines(skel *skeleton.Skeleton, items object[object[[]jsonFrame]]) ([]skeleton.SlotTimeline, error) {
	res := make([]skeleton.SlotTimeline, 0)
	for _, slotItem := range items {
		slot, err := lookup("slot", slotItem.Key, skel.FindSlot)
		if err != nil {
			return nil, err
		}
		for _, timelineItem := range slotItem.Value {
			kind, ok := skeleton.ParseSlotTimelineKind(timelineItem.Key)
			if !ok {
				return nil, invalid(fmt.Sprintf("slot %q timeline %q", slotItem.Key, timelineItem.Key), skeleton.ErrUnknownTag)
			}
			frames := timelineItem.Value
			if len(frames) == 0 {
				continue
			}
			timeline := skeleton.SlotTimeline{Slot: slot, Kind: kind}
			if kind == skeleton.SlotAttachment {
				sortFrames(frames)
				for _, frame := range frames {
					timeline.Attachments = append(timeline.Attachments, skeleton.AttachmentKeyframe{Time: frame.Time, Attachment: frame.Name})
				}
			} else if timeline.Keyframes, err = parseKeyframes(frames, slotValues(kind)); err != nil {
				return nil, fmt.Errorf("slot %q %s: %w", slotItem.Key, kind, err)
			}
			res = append(res, timeline)
		}
	}
	return res, nil
}

func boneValues(kind skeleton.BoneTimelineKind) func(frame *jsonFrame) ([]float32, error) {
	def := float32(0)
	switch kind {
	case skeleton.BoneScale, skeleton.BoneScaleX, skeleton.BoneScaleY:
		def = 1
	}
	return func(frame *jsonFrame) ([]float32, error) {
		switch kind {
		case skeleton.BoneRotate:
			return []float32{or(frame.Value, or(frame.Angle, 0))}, nil
		case skeleton.BoneTranslate, skeleton.BoneScale, skeleton.BoneShear:
			return []float32{or(frame.X, def), or(frame.Y, def)}, nil
		default:
			return []float32{or(frame.Value, def)}, nil
		}
	}
}

func parseBoneTimelines(skel *skeleton.Skeleton, items object[object[[]jsonFrame]]) ([]skeleton.BoneTimeline, error) {
	res := make([]skeleton.BoneTimeline, 0)
	for _, boneItem := range items {
		bone, err := lookup("bone", boneItem.Key, skel.FindBone)
		if err != nil {
			return nil, err
		}
		for _, timelineItem := range boneItem.Value {
			kind, ok := skeleton.ParseBoneTimelineKind(timelineItem.Key)
			if !ok {
				return nil, invalid(fmt.Sprintf("bone %q timeline %q", boneItem.Key, timelineItem.Key), skeleton.ErrUnknownTag)
			}
			if len(timelineItem.Value) == 0 {
				continue
			}
			keyframes, err := parseKeyframes(timelineItem.Value, boneValues(kind))
			if err != nil {
				return nil, fmt.Errorf("bone %q %s: %w", boneItem.Key, kind, err)
			}
			res = append(res, skeleton.BoneTimeline{Bone: bone, Kind: kind, Keyframes: keyframes})
		}
	}
	return res, nil
}

func parseIKTimelines(skel *skeleton.Skeleton, items object[[]jsonFrame]) ([]skeleton.IKTimeline, error) {
	res := make([]skeleton.IKTimeline, 0, len(items))
	for _, item := range items {
		constraint, err := lookup("ik", item.Key, skel.FindIK)
		if err != nil {
			return nil, err
		}
		if len(item.Value) == 0 {
			continue
		}
		frames := item.Value
		keyframes, err := parseKeyframes(frames, func(frame *jsonFrame) ([]float32, error) {
			return []float32{or(frame.Mix, 1), frame.Softness}, nil
		})
		if err != nil {
			return nil, fmt.Errorf("ik %q: %w", item.Key, err)
		}
		timeline := skeleton.IKTimeline{Constraint: constraint, Keyframes: make([]skeleton.IKKeyframe, len(keyframes))}
		for i, keyframe := range keyframes {
			timeline.Keyframes[i] = skeleton.IKKeyframe{
				Keyframe:     keyframe,
				BendPositive: or(frames[i].BendPositive, true),
				Compress:     frames[i].Compress,
				Stretch:      frames[i].Stretch,
			}
		}
		res = append(res, timeline)
	}
	return res, nil
}

func parseTransformTimelines(skel *skeleton.Skeleton, items object[[]jsonFrame]) ([]skeleton.TransformTimeline, error) {
	res := make([]skeleton.TransformTimeline, 0, len(items))
	for _, item := range items {
		constraint, err := lookup("transform", item.Key, skel.FindTransform)
		if err != nil {
			return nil, err
		}
		if len(item.Value) == 0 {
			continue
		}
		keyframes, err := parseKeyframes(item.Value, func(frame *jsonFrame) ([]float32, error) {
			mixX, mixScaleX := or(frame.MixX, 1), or(frame.MixScaleX, 1)
			return []float32{
				or(frame.MixRotate, 1), mixX, or(frame.MixY, mixX),
				mixScaleX, or(frame.MixScaleY, mixScaleX), or(frame.MixShearY, 1),
			}, nil
		})
		if err != nil {
			return nil, fmt.Errorf("transform %q: %w", item.Key, err)
		}
		res = append(res, skeleton.TransformTimeline{Constraint: constraint, Keyframes: keyframes})
	}
	return res, nil
}

func parsePathTimelines(skel *skeleton.Skeleton, items object[object[[]jsonFrame]]) ([]skeleton.PathTimeline, error) {
	res := make([]skeleton.PathTimeline, 0)
	for _, pathItem := range items {
		constraint, err := lookup("path", pathItem.Key, skel.FindPath)
		if err != nil {
			return nil, err
		}
		for _, timelineItem := range pathItem.Value {
			var kind skeleton.PathTimelineKind
			switch timelineItem.Key {
			case "position":
				kind = skeleton.PathPosition
			case "spacing":
				kind = skeleton.PathSpacing
			case "mix":
				kind = skeleton.PathMix
			default:
				return nil, invalid(fmt.Sprintf("path %q timeline %q", pathItem.Key, timelineItem.Key), skeleton.ErrUnknownTag)
			}
			if len(timelineItem.Value) == 0 {
				continue
			}
			keyframes, err := parseKeyframes(timelineItem.Value, func(frame *jsonFrame) ([]float32, error) {
				if kind != skeleton.PathMix {
					return []float32{or(frame.Value, 0)}, nil
				}
				mixX := or(frame.MixX, 1)
				return []float32{or(frame.MixRotate, 1), mixX, or(frame.MixY, mixX)}, nil
			})
			if err != nil {
				return nil, fmt.Errorf("path %q %s: %w", pathItem.Key, kind, err)
			}
			res = append(res, skeleton.PathTimeline{Constraint: constraint, Kind: kind, Keyframes: keyframes})
		}
	}
	return res, nil
}

// findSkin resolves a skin name, -1 is the default skin.
func findSkin(skel *skeleton.Skeleton, name string) (int, *skeleton.Skin, error) {
	idx, ok := skel.FindSkin(name)
	if !ok {
		return 0, nil, &skeleton.ReferenceError{Kind: "skin", Name: name, Index: -1}
	}
	return idx, skel.Skin(idx), nil
}

func parseAttachmentTimelines(skel *skeleton.Skeleton, items object[object[object[object[[]jsonFrame]]]]) ([]skeleton.DeformTimeline, []skeleton.SequenceTimeline, error) {
	deforms := make([]skeleton.DeformTimeline, 0)
	sequences := make([]skeleton.SequenceTimeline, 0)
	for _, skinItem := range items {
		for _, slotItem := range skinItem.Value {
			for _, attachmentItem := range slotItem.Value {
				for _, timelineItem := range attachmentItem.Value {
					switch timelineItem.Key {
					case "deform":
						deform, err := parseDeform(skel, skinItem.Key, slotItem.Key, attachmentItem.Key, timelineItem.Value)
						if err != nil {
							return nil, nil, err
						}
						if deform != nil {
							deforms = append(deforms, *deform)
						}
					case "sequence":
						sequence, err := parseSequenceTimeline(skel, skinItem.Key, slotItem.Key, attachmentItem.Key, timelineItem.Value)
						if err != nil {
							return nil, nil, err
						}
						if sequence != nil {
							sequences = append(sequences, *sequence)
						}
					default:
						return nil, nil, invalid(fmt.Sprintf("attachment %q timeline %q", attachmentItem.Key, timelineItem.Key), skeleton.ErrUnknownTag)
					}
				}
			}
		}
	}
	return deforms, sequences, nil
}

func parseDeform(skel *skeleton.Skeleton, skinName, slotName, attachmentName string, frames []jsonFrame) (*skeleton.DeformTimeline, error) {
	skinIdx, skin, err := findSkin(skel, skinName)
	if err != nil {
		return nil, err
	}
	slot, err := lookup("slot", slotName, skel.FindSlot)
	if err != nil {
		return nil, err
	}
	vertices, ok := skeleton.AttachmentVertices(skin.Attachment(slot, attachmentName))
	if !ok {
		return nil, &skeleton.ReferenceError{Kind: "attachment", Name: attachmentName, Index: -1}
	}
	if len(frames) == 0 {
		return nil, nil
	}
	sortFrames(frames)
	setup := vertices.Flatten()
	weighted := vertices.IsWeighted()
	res := &skeleton.DeformTimeline{Skin: skinIdx, Slot: slot, Attachment: attachmentName}
	for _, frame := range frames {
		values := make([]float32, len(setup))
		if frame.Offset < 0 || frame.Offset+len(frame.Vertices) > len(values) {
			return nil, invalid(fmt.Sprintf("deform %q vertices", attachmentName), skeleton.ErrInvalidValue)
		}
		copy(values[frame.Offset:], frame.Vertices)
		if !weighted {
			for i := range values {
				values[i] += setup[i]
			}
		}
		res.Keyframes = append(res.Keyframes, skeleton.Keyframe{Time: frame.Time, Values: values})
	}
	for i := 0; i < len(res.Keyframes)-1; i++ {
		// 顶点整体按 0~1 插值，只有一个曲线通道
		curve, err := parseCurve(frames[i].Curve, res.Keyframes[i].Time, res.Keyframes[i+1].Time, []float32{0}, []float32{1})
		if err != nil {
			return nil, err
		}
		res.Keyframes[i].Curve = curve
	}
	return res, nil
}

func parseSequenceTimeline(skel *skeleton.Skeleton, skinName, slotName, attachmentName string, frames []jsonFrame) (*skeleton.SequenceTimeline, error) {
	skinIdx, skin, err := findSkin(skel, skinName)
	if err != nil {
		return nil, err
	}
	slot, err := lookup("slot", slotName, skel.FindSlot)
	if err != nil {
		return nil, err
	}
	if skin.Attachment(slot, attachmentName) == nil {
		return nil, &skeleton.ReferenceError{Kind: "attachment", Name: attachmentName, Index: -1}
	}
	if len(frames) == 0 {
		return nil, nil
	}
	sortFrames(frames)
	res := &skeleton.SequenceTimeline{Skin: skinIdx, Slot: slot, Attachment: attachmentName}
	for _, frame := range frames {
		item := skeleton.SequenceKeyframe{Time: frame.Time, Index: frame.Index, Delay: frame.Delay}
		if frame.Mode != "" {
			var ok bool
			if item.Mode, ok = skeleton.ParseSequenceMode(frame.Mode); !ok {
				return nil, invalid("sequence mode", skeleton.ErrUnknownTag)
			}
		}
		res.Keyframes = append(res.Keyframes, item)
	}
	return res, nil
}

func parseDrawOrder(skel *skeleton.Skeleton, frames []jsonFrame) ([]skeleton.DrawOrderKeyframe, error) {
	sortFrames(frames)
	slotCount := len(skel.Slots)
	res := make([]skeleton.DrawOrderKeyframe, 0, len(frames))
	for _, frame := range frames {
		item := skeleton.DrawOrderKeyframe{Time: frame.Time}
		if frame.Offsets == nil {
			res = append(res, item)
			continue
		}
		if len(frame.Offsets) > slotCount {
			return nil, invalid("draw order offsets", skeleton.ErrInvalidValue)
		}
		order := make([]int, slotCount)
		for i := range order {
			order[i] = -1
		}
		unchanged := make([]int, 0, slotCount-len(frame.Offsets))
		original := 0
		for _, offset := range frame.Offsets {
			slot, err := lookup("slot", offset.Slot, skel.FindSlot)
			if err != nil {
				return nil, err
			}
			if slot < original {
				return nil, invalid("draw order slot", skeleton.ErrInvalidValue)
			}
			for original != slot {
				unchanged = append(unchanged, original)
				original++
			}
			target := original + offset.Offset
			if target < 0 || target >= slotCount || order[target] != -1 {
				return nil, invalid("draw order offset", skeleton.ErrInvalidValue)
			}
			order[target] = original
			original++
		}
		for original < slotCount {
			unchanged = append(unchanged, original)
			original++
		}
		for i := slotCount - 1; i >= 0; i-- {
			if order[i] != -1 {
				continue
			}
			if len(unchanged) == 0 {
				return nil, invalid("draw order", skeleton.ErrInvalidValue)
			}
			order[i] = unchanged[len(unchanged)-1]
			unchanged = unchanged[:len(unchanged)-1]
		}
		item.Order = order
		res = append(res, item)
	}
	return res, nil
}

func parseEventKeyframes(skel *skeleton.Skeleton, frames []jsonFrame) ([]skeleton.EventKeyframe, error) {
	sortFrames(frames)
	res := make([]skeleton.EventKeyframe, 0, len(frames))
	for _, frame := range frames {
		name := or(frame.Name, "")
		event, err := lookup("event", name, skel.FindEvent)
		if err != nil {
			return nil, err
		}
		data := skel.Events[event]
		item := skeleton.EventKeyframe{
			Time:    frame.Time,
			Event:   event,
			Int:     or(frame.Int, data.Int),
			Float:   or(frame.Float, data.Float),
			String:  or(frame.String, data.String),
			Volume:  data.Volume,
			Balance: data.Balance,
		}
		if data.AudioPath != nil {
			item.Volume = or(frame.Volume, 1)
			item.Balance = or(frame.Balance, 0)
		}
		res = append(res, item)
	}
	return res, nil
}
