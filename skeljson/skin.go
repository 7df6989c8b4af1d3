package skeljson

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/sk2233/spinal/skeleton"
)

func parseSkins(skel *skeleton.Skeleton, items []jsonSkin) (*skeleton.Skin, []*skeleton.Skin, error) {
	var def *skeleton.Skin
	res := make([]*skeleton.Skin, 0, len(items))
	for _, item := range items {
		skin, err := parseSkin(skel, item)
		if err != nil {
			return nil, nil, fmt.Errorf("skin %q: %w", item.Name, err)
		}
		if item.Name == "default" {
			def = skin
			continue
		}
		res = append(res, skin)
	}
	return def, res, nil
}

func parseSkin(skel *skeleton.Skeleton, item jsonSkin) (*skeleton.Skin, error) {
	res := &skeleton.Skin{Name: item.Name}
	var err error
	if res.Bones, err = lookupAll("bone", item.Bones, skel.FindBone); err != nil {
		return nil, err
	}
	if res.IK, err = lookupAll("ik", item.IK, skel.FindIK); err != nil {
		return nil, err
	}
	if res.Transforms, err = lookupAll("transform", item.Transform, skel.FindTransform); err != nil {
		return nil, err
	}
	if res.Paths, err = lookupAll("path", item.Path, skel.FindPath); err != nil {
		return nil, err
	}
	for _, slotItem := range item.Attachments {
		slot, err := lookup("slot", slotItem.Key, skel.FindSlot)
		if err != nil {
			return nil, err
		}
		entries := make([]skeleton.SkinEntry, 0, len(slotItem.Value))
		for _, attachmentItem := range slotItem.Value {
			attachment, err := parseAttachment(skel, attachmentItem.Key, attachmentItem.Value)
			if err != nil {
				return nil, fmt.Errorf("attachment %q: %w", attachmentItem.Key, err)
			}
			entries = append(entries, skeleton.SkinEntry{Name: attachmentItem.Key, Attachment: attachment})
		}
		res.Slots = append(res.Slots, skeleton.SkinSlot{Slot: slot, Attachments: entries})
	}
	return res, nil
}

func parseAttachment(skel *skeleton.Skeleton, placeholder string, item jsonAttachment) (skeleton.Attachment, error) {
	name := item.Name
	if name == "" {
		name = placeholder
	}
	path := item.Path
	if path == "" {
		path = name
	}
	kind, ok := skeleton.ParseAttachmentType(item.Type)
	if !ok {
		return nil, invalid("attachment type", skeleton.ErrUnknownTag)
	}
	switch kind {
	case skeleton.AttachmentRegion:
		color, err := parseColor("region color", item.Color, skeleton.White)
		if err != nil {
			return nil, err
		}
		return &skeleton.RegionAttachment{
			Name:     name,
			Path:     path,
			Rotation: item.Rotation,
			Position: mgl32.Vec2{item.X, item.Y},
			Scale:    mgl32.Vec2{item.ScaleX, item.ScaleY},
			Size:     mgl32.Vec2{item.Width, item.Height},
			Color:    color,
			Sequence: parseSequence(item.Sequence),
		}, nil
	case skeleton.AttachmentBoundingBox:
		res := &skeleton.BoundingBoxAttachment{Name: name}
		var err error
		if res.Vertices, err = parseVertices(item.Vertices, item.VertexCount, len(skel.Bones)); err != nil {
			return nil, err
		}
		if res.Color, err = parseColor("bounding box color", item.Color, skeleton.BoundingBoxColor); err != nil {
			return nil, err
		}
		return res, nil
	case skeleton.AttachmentMesh:
		return parseMesh(skel, name, path, item)
	case skeleton.AttachmentLinkedMesh:
		color, err := parseColor("linked mesh color", item.Color, skeleton.White)
		if err != nil {
			return nil, err
		}
		return &skeleton.LinkedMeshAttachment{
			Name:             name,
			Path:             path,
			Color:            color,
			Skin:             item.Skin,
			Parent:           item.Parent,
			InheritTimelines: or(item.Timelines, or(item.Deform, true)),
			Size:             mgl32.Vec2{item.Width, item.Height},
			Sequence:         parseSequence(item.Sequence),
		}, nil
	case skeleton.AttachmentPath:
		res := &skeleton.PathAttachment{Name: name, Closed: item.Closed, ConstantSpeed: item.ConstantSpeed, Lengths: item.Lengths}
		var err error
		if res.Vertices, err = parseVertices(item.Vertices, item.VertexCount, len(skel.Bones)); err != nil {
			return nil, err
		}
		if res.Color, err = parseColor("path color", item.Color, skeleton.PathColor); err != nil {
			return nil, err
		}
		return res, nil
	case skeleton.AttachmentPoint:
		color, err := parseColor("point color", item.Color, skeleton.PointColor)
		if err != nil {
			return nil, err
		}
		return &skeleton.PointAttachment{
			Name:     name,
			Rotation: item.Rotation,
			Position: mgl32.Vec2{item.X, item.Y},
			Color:    color,
		}, nil
	default: // skeleton.AttachmentClipping
		res := &skeleton.ClippingAttachment{Name: name, EndSlot: -1}
		var err error
		if item.End != nil {
			if res.EndSlot, err = lookup("slot", *item.End, skel.FindSlot); err != nil {
				return nil, err
			}
		}
		if res.Vertices, err = parseVertices(item.Vertices, item.VertexCount, len(skel.Bones)); err != nil {
			return nil, err
		}
		if res.Color, err = parseColor("clipping color", item.Color, skeleton.ClippingColor); err != nil {
			return nil, err
		}
		return res, nil
	}
}

func parseMesh(skel *skeleton.Skeleton, name, path string, item jsonAttachment) (*skeleton.MeshAttachment, error) {
	if len(item.UVs)%2 != 0 {
		return nil, invalid("mesh uvs", skeleton.ErrInvalidValue)
	}
	res := &skeleton.MeshAttachment{
		Name:       name,
		Path:       path,
		UVs:        make([]mgl32.Vec2, len(item.UVs)/2),
		Triangles:  item.Triangles,
		HullLength: item.Hull,
		Edges:      item.Edges,
		Size:       mgl32.Vec2{item.Width, item.Height},
		Sequence:   parseSequence(item.Sequence),
	}
	for i := range res.UVs {
		res.UVs[i] = mgl32.Vec2{item.UVs[i*2], item.UVs[i*2+1]}
	}
	for _, idx := range item.Triangles {
		if int(idx) >= len(res.UVs) {
			return nil, invalid("mesh triangles", skeleton.ErrInvalidValue)
		}
	}
	var err error
	if res.Vertices, err = parseVertices(item.Vertices, len(res.UVs), len(skel.Bones)); err != nil {
		return nil, err
	}
	if res.Color, err = parseColor("mesh color", item.Color, skeleton.White); err != nil {
		return nil, err
	}
	return res, nil
}

func parseSequence(item *jsonSequence) *skeleton.Sequence {
	if item == nil {
		return nil
	}
	return &skeleton.Sequence{Count: item.Count, Start: item.Start, Digits: item.Digits, SetupIndex: item.Setup}
}

// parseVertices reads plain x,y pairs when the array holds exactly two
// values per vertex, otherwise `boneCount (bone x y weight)...` per vertex.
func parseVertices(values []float32, count, boneCount int) (skeleton.Vertices, error) {
	if len(values) == count*2 {
		res := make([]mgl32.Vec2, count)
		for i := range res {
			res[i] = mgl32.Vec2{values[i*2], values[i*2+1]}
		}
		return skeleton.Vertices{Positions: res}, nil
	}
	res := make([][]skeleton.BoneWeight, 0, count)
	for i := 0; len(res) < count; {
		if i >= len(values) {
			return skeleton.Vertices{}, invalid("vertices", skeleton.ErrTruncated)
		}
		influences := int(values[i])
		i++
		if influences < 0 || i+influences*4 > len(values) {
			return skeleton.Vertices{}, invalid("vertices", skeleton.ErrInvalidValue)
		}
		items := make([]skeleton.BoneWeight, 0, influences)
		for j := 0; j < influences; j++ {
			bone := int(values[i])
			if bone < 0 || bone >= boneCount {
				return skeleton.Vertices{}, &skeleton.ReferenceError{Kind: "bone", Index: bone}
			}
			items = append(items, skeleton.BoneWeight{
				Bone:   bone,
				Offset: mgl32.Vec2{values[i+1], values[i+2]},
				Weight: values[i+3],
			})
			i += 4
		}
		res = append(res, items)
	}
	return skeleton.Vertices{Weighted: res}, nil
}
