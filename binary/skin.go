package binary

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/sk2233/spinal/skeleton"
)

func parseSkins(r *reader, skel *skeleton.Skeleton, nonessential bool) (*skeleton.Skin, []*skeleton.Skin, error) {
	var def *skeleton.Skin
	slotCount, err := r.count("default skin slot count")
	if err != nil {
		return nil, nil, err
	}
	if slotCount > 0 { // 0 表示没有默认皮肤
		def = &skeleton.Skin{Name: "default"}
		if def.Slots, err = parseSkinSlots(r, skel, slotCount, nonessential); err != nil {
			return nil, nil, err
		}
	}
	count, err := r.count("skin count")
	if err != nil {
		return nil, nil, err
	}
	skins := make([]*skeleton.Skin, 0, count)
	for i := 0; i < count; i++ {
		skin, err := parseSkin(r, skel, nonessential)
		if err != nil {
			return nil, nil, err
		}
		skins = append(skins, skin)
	}
	return def, skins, nil
}

func parseSkin(r *reader, skel *skeleton.Skeleton, nonessential bool) (*skeleton.Skin, error) {
	res := &skeleton.Skin{}
	name, err := r.stringRef(skel.Strings, "skin name")
	if err != nil {
		return nil, err
	}
	if name != nil {
		res.Name = *name
	}
	if res.Bones, err = parseIndices(r, "skin bones", "bone", len(skel.Bones)); err != nil {
		return nil, err
	}
	if res.IK, err = parseIndices(r, "skin ik", "ik constraint", len(skel.IK)); err != nil {
		return nil, err
	}
	if res.Transforms, err = parseIndices(r, "skin transforms", "transform constraint", len(skel.Transforms)); err != nil {
		return nil, err
	}
	if res.Paths, err = parseIndices(r, "skin paths", "path constraint", len(skel.Paths)); err != nil {
		return nil, err
	}
	slotCount, err := r.count("skin slot count")
	if err != nil {
		return nil, err
	}
	if res.Slots, err = parseSkinSlots(r, skel, slotCount, nonessential); err != nil {
		return nil, err
	}
	return res, nil
}

func parseSkinSlots(r *reader, skel *skeleton.Skeleton, slotCount int, nonessential bool) ([]skeleton.SkinSlot, error) {
	res := make([]skeleton.SkinSlot, 0, slotCount)
	for i := 0; i < slotCount; i++ {
		slot, err := r.index("skin slot", "slot", len(skel.Slots))
		if err != nil {
			return nil, err
		}
		count, err := r.count("skin attachment count")
		if err != nil {
			return nil, err
		}
		item := skeleton.SkinSlot{Slot: slot, Attachments: make([]skeleton.SkinEntry, 0, count)}
		for j := 0; j < count; j++ {
			placeholder, err := r.stringRef(skel.Strings, "attachment placeholder")
			if err != nil {
				return nil, err
			}
			if placeholder == nil {
				return nil, r.fail("attachment placeholder", skeleton.ErrInvalidValue)
			}
			attachment, err := parseAttachment(r, skel, *placeholder, nonessential)
			if err != nil {
				return nil, err
			}
			item.Attachments = append(item.Attachments, skeleton.SkinEntry{Name: *placeholder, Attachment: attachment})
		}
		res = append(res, item)
	}
	return res, nil
}

// parseAttachment reads the override name and dispatches on the type byte.
func parseAttachment(r *reader, skel *skeleton.Skeleton, placeholder string, nonessential bool) (skeleton.Attachment, error) {
	name, err := r.stringRef(skel.Strings, "attachment name")
	if err != nil {
		return nil, err
	}
	attachmentName := placeholder // 没有名字就使用占位名
	if name != nil {
		attachmentName = *name
	}
	start := r.off
	kind, err := r.u8("attachment type")
	if err != nil {
		return nil, err
	}
	switch skeleton.AttachmentType(kind) {
	case skeleton.AttachmentRegion:
		return parseRegion(r, skel.Strings, attachmentName)
	case skeleton.AttachmentBoundingBox:
		return parseBoundingBox(r, len(skel.Bones), attachmentName, nonessential)
	case skeleton.AttachmentMesh:
		return parseMesh(r, skel.Strings, len(skel.Bones), attachmentName, nonessential)
	case skeleton.AttachmentLinkedMesh:
		return parseLinkedMesh(r, skel.Strings, attachmentName, nonessential)
	case skeleton.AttachmentPath:
		return parsePath(r, len(skel.Bones), attachmentName, nonessential)
	case skeleton.AttachmentPoint:
		return parsePoint(r, attachmentName, nonessential)
	case skeleton.AttachmentClipping:
		return parseClipping(r, len(skel.Slots), len(skel.Bones), attachmentName, nonessential)
	default:
		return nil, &skeleton.DecodeError{Offset: start, Field: "attachment type", Err: skeleton.ErrUnknownTag}
	}
}

func refOr(ref *string, def string) string {
	if ref == nil {
		return def
	}
	return *ref
}

func parseRegion(r *reader, strings []string, name string) (*skeleton.RegionAttachment, error) {
	path, err := r.stringRef(strings, "region path")
	if err != nil {
		return nil, err
	}
	values, err := r.floats(7, "region transform")
	if err != nil {
		return nil, err
	}
	res := &skeleton.RegionAttachment{
		Name:     name,
		Path:     refOr(path, name),
		Rotation: values[0],
		Position: mgl32.Vec2{values[1], values[2]},
		Scale:    mgl32.Vec2{values[3], values[4]},
		Size:     mgl32.Vec2{values[5], values[6]},
	}
	if res.Color, err = r.color("region color"); err != nil {
		return nil, err
	}
	if res.Sequence, err = parseSequence(r); err != nil {
		return nil, err
	}
	return res, nil
}

func parseBoundingBox(r *reader, boneCount int, name string, nonessential bool) (*skeleton.BoundingBoxAttachment, error) {
	res := &skeleton.BoundingBoxAttachment{Name: name, Color: skeleton.BoundingBoxColor}
	count, err := r.count("bounding box vertex count")
	if err != nil {
		return nil, err
	}
	if res.Vertices, err = parseVertices(r, count, boneCount); err != nil {
		return nil, err
	}
	if nonessential {
		if res.Color, err = r.color("bounding box color"); err != nil {
			return nil, err
		}
	}
	return res, nil
}

func parseMesh(r *reader, strings []string, boneCount int, name string, nonessential bool) (*skeleton.MeshAttachment, error) {
	path, err := r.stringRef(strings, "mesh path")
	if err != nil {
		return nil, err
	}
	res := &skeleton.MeshAttachment{Name: name, Path: refOr(path, name)}
	if res.Color, err = r.color("mesh color"); err != nil {
		return nil, err
	}
	count, err := r.count("mesh vertex count")
	if err != nil {
		return nil, err
	}
	uvs, err := r.floats(count*2, "mesh uvs")
	if err != nil {
		return nil, err
	}
	res.UVs = make([]mgl32.Vec2, count)
	for i := range res.UVs {
		res.UVs[i] = mgl32.Vec2{uvs[i*2], uvs[i*2+1]}
	}
	if res.Triangles, err = parseShorts(r, "mesh triangles"); err != nil {
		return nil, err
	}
	if res.Vertices, err = parseVertices(r, count, boneCount); err != nil {
		return nil, err
	}
	hull, err := r.varint("mesh hull length")
	if err != nil {
		return nil, err
	}
	res.HullLength = int(hull)
	if res.Sequence, err = parseSequence(r); err != nil {
		return nil, err
	}
	if nonessential {
		if res.Edges, err = parseShorts(r, "mesh edges"); err != nil {
			return nil, err
		}
		if res.Size, err = r.vec2("mesh size"); err != nil {
			return nil, err
		}
	}
	return res, nil
}

func parseLinkedMesh(r *reader, strings []string, name string, nonessential bool) (*skeleton.LinkedMeshAttachment, error) {
	path, err := r.stringRef(strings, "linked mesh path")
	if err != nil {
		return nil, err
	}
	res := &skeleton.LinkedMeshAttachment{Name: name, Path: refOr(path, name)}
	if res.Color, err = r.color("linked mesh color"); err != nil {
		return nil, err
	}
	skin, err := r.stringRef(strings, "linked mesh skin")
	if err != nil {
		return nil, err
	}
	res.Skin = refOr(skin, "")
	parent, err := r.stringRef(strings, "linked mesh parent")
	if err != nil {
		return nil, err
	}
	res.Parent = refOr(parent, "")
	if res.InheritTimelines, err = r.boolean("linked mesh inherit timelines"); err != nil {
		return nil, err
	}
	if res.Sequence, err = parseSequence(r); err != nil {
		return nil, err
	}
	if nonessential {
		if res.Size, err = r.vec2("linked mesh size"); err != nil {
			return nil, err
		}
	}
	return res, nil
}

func parsePath(r *reader, boneCount int, name string, nonessential bool) (*skeleton.PathAttachment, error) {
	res := &skeleton.PathAttachment{Name: name, Color: skeleton.PathColor}
	var err error
	if res.Closed, err = r.boolean("path closed"); err != nil {
		return nil, err
	}
	if res.ConstantSpeed, err = r.boolean("path constant speed"); err != nil {
		return nil, err
	}
	count, err := r.count("path vertex count")
	if err != nil {
		return nil, err
	}
	if res.Vertices, err = parseVertices(r, count, boneCount); err != nil {
		return nil, err
	}
	if res.Lengths, err = r.floats(count/3, "path lengths"); err != nil {
		return nil, err
	}
	if nonessential {
		if res.Color, err = r.color("path color"); err != nil {
			return nil, err
		}
	}
	return res, nil
}

func parsePoint(r *reader, name string, nonessential bool) (*skeleton.PointAttachment, error) {
	values, err := r.floats(3, "point transform")
	if err != nil {
		return nil, err
	}
	res := &skeleton.PointAttachment{
		Name:     name,
		Rotation: values[0],
		Position: mgl32.Vec2{values[1], values[2]},
		Color:    skeleton.PointColor,
	}
	if nonessential {
		if res.Color, err = r.color("point color"); err != nil {
			return nil, err
		}
	}
	return res, nil
}

func parseClipping(r *reader, slotCount, boneCount int, name string, nonessential bool) (*skeleton.ClippingAttachment, error) {
	res := &skeleton.ClippingAttachment{Name: name, Color: skeleton.ClippingColor}
	var err error
	if res.EndSlot, err = r.index("clipping end slot", "slot", slotCount); err != nil {
		return nil, err
	}
	count, err := r.count("clipping vertex count")
	if err != nil {
		return nil, err
	}
	if res.Vertices, err = parseVertices(r, count, boneCount); err != nil {
		return nil, err
	}
	if nonessential {
		if res.Color, err = r.color("clipping color"); err != nil {
			return nil, err
		}
	}
	return res, nil
}

func parseSequence(r *reader) (*skeleton.Sequence, error) {
	ok, err := r.boolean("sequence")
	if err != nil || !ok {
		return nil, err
	}
	values := [4]uint32{}
	for i := range values {
		if values[i], err = r.varint("sequence"); err != nil {
			return nil, err
		}
	}
	return &skeleton.Sequence{
		Count:      int(values[0]),
		Start:      int(values[1]),
		Digits:     int(values[2]),
		SetupIndex: int(values[3]),
	}, nil
}

func parseShorts(r *reader, field string) ([]uint16, error) {
	count, err := r.count(field)
	if err != nil {
		return nil, err
	}
	res := make([]uint16, count)
	for i := range res {
		if res[i], err = r.u16(field); err != nil {
			return nil, err
		}
	}
	return res, nil
}

func parseVertices(r *reader, count, boneCount int) (skeleton.Vertices, error) {
	weighted, err := r.boolean("vertices weighted")
	if err != nil {
		return skeleton.Vertices{}, err
	}
	if !weighted {
		values, err := r.floats(count*2, "vertices")
		if err != nil {
			return skeleton.Vertices{}, err
		}
		res := make([]mgl32.Vec2, count)
		for i := range res {
			res[i] = mgl32.Vec2{values[i*2], values[i*2+1]}
		}
		return skeleton.Vertices{Positions: res}, nil
	}
	res := make([][]skeleton.BoneWeight, 0, count)
	for i := 0; i < count; i++ {
		influences, err := r.count("vertex bone count")
		if err != nil {
			return skeleton.Vertices{}, err
		}
		items := make([]skeleton.BoneWeight, 0, influences)
		for j := 0; j < influences; j++ {
			bone, err := r.index("vertex bone", "bone", boneCount)
			if err != nil {
				return skeleton.Vertices{}, err
			}
			values, err := r.floats(3, "vertex weight")
			if err != nil {
				return skeleton.Vertices{}, err
			}
			items = append(items, skeleton.BoneWeight{
				Bone:   bone,
				Offset: mgl32.Vec2{values[0], values[1]},
				Weight: values[2],
			})
		}
		res = append(res, items)
	}
	return skeleton.Vertices{Weighted: res}, nil
}
