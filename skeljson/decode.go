// Package skeljson decodes skeletons exported in the Spine 4.1 JSON format
// into the same index based model the binary decoder produces.
package skeljson

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/rs/zerolog"

	"github.com/sk2233/spinal/skeleton"
)

type options struct {
	log zerolog.Logger
}

type Option func(*options)

func WithLogger(log zerolog.Logger) Option {
	return func(o *options) {
		o.log = log
	}
}

// Parse decodes a JSON skeleton. Every name based reference is resolved to an
// index; unknown names fail with a *skeleton.ReferenceError.
func Parse(data []byte, opts ...Option) (*skeleton.Skeleton, error) {
	o := options{log: zerolog.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	doc := jsonSkeleton{Skeleton: jsonInfo{FPS: 30}}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, syntaxError(err)
	}
	skel := &skeleton.Skeleton{Info: parseInfo(doc.Skeleton)}
	var err error
	if skel.Bones, err = parseBones(doc.Bones); err != nil {
		return nil, fmt.Errorf("bones: %w", err)
	}
	if skel.Slots, err = parseSlots(skel, doc.Slots); err != nil {
		return nil, fmt.Errorf("slots: %w", err)
	}
	if err = skel.Build(); err != nil {
		return nil, fmt.Errorf("bones: %w", err)
	}
	if skel.IK, err = parseIKConstraints(skel, doc.IK); err != nil {
		return nil, fmt.Errorf("ik: %w", err)
	}
	if skel.Transforms, err = parseTransformConstraints(skel, doc.Transform); err != nil {
		return nil, fmt.Errorf("transform: %w", err)
	}
	if skel.Paths, err = parsePathConstraints(skel, doc.Path); err != nil {
		return nil, fmt.Errorf("path: %w", err)
	}
	if skel.DefaultSkin, skel.Skins, err = parseSkins(skel, doc.Skins); err != nil {
		return nil, fmt.Errorf("skins: %w", err)
	}
	if err = skel.ResolveLinkedMeshes(); err != nil {
		return nil, fmt.Errorf("skins: %w", err)
	}
	skel.Events = parseEvents(doc.Events)
	if skel.Animations, err = parseAnimations(skel, doc.Animations); err != nil {
		return nil, fmt.Errorf("animations: %w", err)
	}
	o.log.Debug().
		Str("version", skel.Info.Version).
		Int("bones", len(skel.Bones)).
		Int("slots", len(skel.Slots)).
		Int("skins", len(skel.Skins)).
		Int("animations", len(skel.Animations)).
		Msg("json skeleton decoded")
	return skel, nil
}

func syntaxError(err error) error {
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return &skeleton.DecodeError{Offset: int(syntaxErr.Offset), Field: "json", Err: err}
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return &skeleton.DecodeError{Offset: int(typeErr.Offset), Field: typeErr.Field, Err: err}
	}
	return &skeleton.DecodeError{Offset: -1, Field: "json", Err: err}
}

func invalid(field string, err error) error {
	return &skeleton.DecodeError{Offset: -1, Field: field, Err: err}
}

func lookup(kind, name string, find func(string) int) (int, error) {
	idx := find(name)
	if idx < 0 {
		return 0, &skeleton.ReferenceError{Kind: kind, Name: name, Index: -1}
	}
	return idx, nil
}

func lookupAll(kind string, names []string, find func(string) int) ([]int, error) {
	res := make([]int, 0, len(names))
	for _, name := range names {
		idx, err := lookup(kind, name, find)
		if err != nil {
			return nil, err
		}
		res = append(res, idx)
	}
	return res, nil
}

func parseColor(field, hex string, def mgl32.Vec4) (mgl32.Vec4, error) {
	if hex == "" {
		return def, nil
	}
	res, err := skeleton.ParseColor(hex)
	if err != nil {
		return mgl32.Vec4{}, invalid(field, err)
	}
	return res, nil
}

func parseInfo(info jsonInfo) skeleton.Info {
	fps := info.FPS
	return skeleton.Info{
		Hash:         info.Hash,
		Version:      info.Spine,
		Origin:       mgl32.Vec2{info.X, info.Y},
		Size:         mgl32.Vec2{info.Width, info.Height},
		Nonessential: true,
		FPS:          &fps,
		ImagesPath:   info.Images,
		AudioPath:    info.Audio,
	}
}

func parseBones(items []jsonBone) ([]*skeleton.Bone, error) {
	res := make([]*skeleton.Bone, 0, len(items))
	names := make(map[string]int, len(items))
	for i, item := range items {
		bone := &skeleton.Bone{
			Name:         item.Name,
			Parent:       -1,
			Rotation:     item.Rotation,
			Position:     mgl32.Vec2{item.X, item.Y},
			Scale:        mgl32.Vec2{item.ScaleX, item.ScaleY},
			Shear:        mgl32.Vec2{item.ShearX, item.ShearY},
			Length:       item.Length,
			SkinRequired: item.Skin,
		}
		if item.Parent != nil {
			parent, ok := names[*item.Parent]
			if !ok {
				if contains(items[i:], *item.Parent) {
					return nil, &skeleton.StructuralError{Bone: item.Name, Index: i,
						Reason: fmt.Sprintf("parent %q is not defined before the bone", *item.Parent)}
				}
				return nil, &skeleton.ReferenceError{Kind: "bone", Name: *item.Parent, Index: -1}
			}
			bone.Parent = parent
		}
		var ok bool
		if bone.Transform, ok = skeleton.ParseTransformMode(item.Transform); !ok {
			return nil, invalid(fmt.Sprintf("bone %q transform", item.Name), skeleton.ErrUnknownTag)
		}
		var err error
		if bone.Color, err = parseColor(fmt.Sprintf("bone %q color", item.Name), item.Color, skeleton.BoneColor); err != nil {
			return nil, err
		}
		names[item.Name] = i
		res = append(res, bone)
	}
	return res, nil
}

func contains(items []jsonBone, name string) bool {
	for _, item := range items {
		if item.Name == name {
			return true
		}
	}
	return false
}

func parseSlots(skel *skeleton.Skeleton, items []jsonSlot) ([]*skeleton.Slot, error) {
	res := make([]*skeleton.Slot, 0, len(items))
	for _, item := range items {
		slot := &skeleton.Slot{Name: item.Name, Attachment: item.Attachment}
		var err error
		if slot.Bone, err = lookup("bone", item.Bone, skel.FindBone); err != nil {
			return nil, err
		}
		if slot.Color, err = parseColor(fmt.Sprintf("slot %q color", item.Name), item.Color, skeleton.White); err != nil {
			return nil, err
		}
		if item.Dark != nil {
			dark, err := parseColor(fmt.Sprintf("slot %q dark", item.Name), *item.Dark, skeleton.White)
			if err != nil {
				return nil, err
			}
			dark[3] = 1
			slot.Dark = &dark
		}
		var ok bool
		if slot.Blend, ok = skeleton.ParseBlendMode(item.Blend); !ok {
			return nil, invalid(fmt.Sprintf("slot %q blend", item.Name), skeleton.ErrUnknownTag)
		}
		res = append(res, slot)
	}
	return res, nil
}

func parseIKConstraints(skel *skeleton.Skeleton, items []jsonIK) ([]*skeleton.IKConstraint, error) {
	res := make([]*skeleton.IKConstraint, 0, len(items))
	for _, item := range items {
		if len(item.Bones) < 1 || len(item.Bones) > 2 {
			return nil, invalid(fmt.Sprintf("ik %q bones", item.Name), skeleton.ErrInvalidValue)
		}
		ik := &skeleton.IKConstraint{
			Name:         item.Name,
			Order:        item.Order,
			SkinRequired: item.Skin,
			Mix:          item.Mix,
			Softness:     item.Softness,
			BendPositive: item.BendPositive,
			Compress:     item.Compress,
			Stretch:      item.Stretch,
			Uniform:      item.Uniform,
		}
		var err error
		if ik.Bones, err = lookupAll("bone", item.Bones, skel.FindBone); err != nil {
			return nil, err
		}
		if ik.Target, err = lookup("bone", item.Target, skel.FindBone); err != nil {
			return nil, err
		}
		res = append(res, ik)
	}
	return res, nil
}

func parseTransformConstraints(skel *skeleton.Skeleton, items []jsonTransform) ([]*skeleton.TransformConstraint, error) {
	res := make([]*skeleton.TransformConstraint, 0, len(items))
	for _, item := range items {
		constraint := &skeleton.TransformConstraint{
			Name:           item.Name,
			Order:          item.Order,
			SkinRequired:   item.Skin,
			Local:          item.Local,
			Relative:       item.Relative,
			OffsetRotation: item.Rotation,
			Offset:         mgl32.Vec2{item.X, item.Y},
			OffsetScale:    mgl32.Vec2{item.ScaleX, item.ScaleY},
			OffsetShearY:   item.ShearY,
			MixRotate:      item.MixRotate,
			MixX:           item.MixX,
			MixY:           *item.MixY,
			MixScaleX:      item.MixScaleX,
			MixScaleY:      *item.MixScaleY,
			MixShearY:      item.MixShearY,
		}
		var err error
		if constraint.Bones, err = lookupAll("bone", item.Bones, skel.FindBone); err != nil {
			return nil, err
		}
		if constraint.Target, err = lookup("bone", item.Target, skel.FindBone); err != nil {
			return nil, err
		}
		res = append(res, constraint)
	}
	return res, nil
}

func parsePathConstraints(skel *skeleton.Skeleton, items []jsonPath) ([]*skeleton.PathConstraint, error) {
	res := make([]*skeleton.PathConstraint, 0, len(items))
	for _, item := range items {
		constraint := &skeleton.PathConstraint{
			Name:           item.Name,
			Order:          item.Order,
			SkinRequired:   item.Skin,
			OffsetRotation: item.Rotation,
			Position:       item.Position,
			Spacing:        item.Spacing,
			MixRotate:      item.MixRotate,
			MixX:           item.MixX,
			MixY:           *item.MixY,
		}
		var ok bool
		if constraint.PositionMode, ok = skeleton.ParsePositionMode(item.PositionMode); !ok {
			return nil, invalid(fmt.Sprintf("path %q positionMode", item.Name), skeleton.ErrUnknownTag)
		}
		if constraint.SpacingMode, ok = skeleton.ParseSpacingMode(item.SpacingMode); !ok {
			return nil, invalid(fmt.Sprintf("path %q spacingMode", item.Name), skeleton.ErrUnknownTag)
		}
		if constraint.RotateMode, ok = skeleton.ParseRotateMode(item.RotateMode); !ok {
			return nil, invalid(fmt.Sprintf("path %q rotateMode", item.Name), skeleton.ErrUnknownTag)
		}
		var err error
		if constraint.Bones, err = lookupAll("bone", item.Bones, skel.FindBone); err != nil {
			return nil, err
		}
		if constraint.Target, err = lookup("slot", item.Target, skel.FindSlot); err != nil {
			return nil, err
		}
		res = append(res, constraint)
	}
	return res, nil
}

func parseEvents(items object[jsonEvent]) []*skeleton.EventData {
	res := make([]*skeleton.EventData, 0, len(items))
	for _, item := range items {
		res = append(res, &skeleton.EventData{
			Name:      item.Key,
			Int:       item.Value.Int,
			Float:     item.Value.Float,
			String:    item.Value.String,
			AudioPath: item.Value.Audio,
			Volume:    item.Value.Volume,
			Balance:   item.Value.Balance,
		})
	}
	return res
}
