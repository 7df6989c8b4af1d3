package skeleton

import "github.com/go-gl/mathgl/mgl32"

type AttachmentType uint8

const (
	AttachmentRegion AttachmentType = iota
	AttachmentBoundingBox
	AttachmentMesh
	AttachmentLinkedMesh
	AttachmentPath
	AttachmentPoint
	AttachmentClipping
)

var attachmentTypeNames = []string{"region", "boundingbox", "mesh", "linkedmesh", "path", "point", "clipping"}

func (t AttachmentType) String() string { return enumName(attachmentTypeNames, int(t)) }

func ParseAttachmentType(name string) (AttachmentType, bool) {
	idx := indexOf(attachmentTypeNames, name)
	return AttachmentType(max(idx, 0)), idx >= 0
}

// Attachment is one of the *XxxAttachment types below.
type Attachment interface {
	Type() AttachmentType
	AttachmentName() string
}

type BoneWeight struct {
	Bone   int        // 受那个骨骼影响
	Offset mgl32.Vec2 // 相对于骨骼位置偏移的大小
	Weight float32    // 受骨骼影响的权重
}

// Vertices holds either plain positions or per-vertex bone influences.
type Vertices struct {
	Positions []mgl32.Vec2
	Weighted  [][]BoneWeight
}

func (v Vertices) IsWeighted() bool {
	return v.Weighted != nil
}

func (v Vertices) Len() int {
	if v.IsWeighted() {
		return len(v.Weighted)
	}
	return len(v.Positions)
}

// DeformLen is the number of floats a deform keyframe covers.
func (v Vertices) DeformLen() int {
	if !v.IsWeighted() {
		return len(v.Positions) * 2
	}
	res := 0
	for _, items := range v.Weighted {
		res += len(items) * 2
	}
	return res
}

// Flatten returns x,y pairs in deform order.
func (v Vertices) Flatten() []float32 {
	res := make([]float32, 0, v.DeformLen())
	if v.IsWeighted() {
		for _, items := range v.Weighted {
			for _, item := range items {
				res = append(res, item.Offset.X(), item.Offset.Y())
			}
		}
		return res
	}
	for _, pos := range v.Positions {
		res = append(res, pos.X(), pos.Y())
	}
	return res
}

type SequenceMode uint8

const (
	SequenceHold SequenceMode = iota
	SequenceOnce
	SequenceLoop
	SequencePingPong
	SequenceOnceReverse
	SequenceLoopReverse
	SequencePingPongReverse
)

var sequenceModeNames = []string{"hold", "once", "loop", "pingpong", "onceReverse", "loopReverse", "pingpongReverse"}

func (m SequenceMode) String() string { return enumName(sequenceModeNames, int(m)) }

func ParseSequenceMode(name string) (SequenceMode, bool) {
	idx := indexOf(sequenceModeNames, name)
	return SequenceMode(max(idx, 0)), idx >= 0
}

// Sequence 帧序列，图片路径为 path + 补零的 index
type Sequence struct {
	Count      int
	Start      int
	Digits     int
	SetupIndex int
}

type RegionAttachment struct {
	Name     string
	Path     string
	Rotation float32
	Position mgl32.Vec2
	Scale    mgl32.Vec2
	Size     mgl32.Vec2 // 用来确定中心点
	Color    mgl32.Vec4
	Sequence *Sequence
}

func (a *RegionAttachment) Type() AttachmentType   { return AttachmentRegion }
func (a *RegionAttachment) AttachmentName() string { return a.Name }

type BoundingBoxAttachment struct {
	Name     string
	Vertices Vertices
	Color    mgl32.Vec4
}

func (a *BoundingBoxAttachment) Type() AttachmentType   { return AttachmentBoundingBox }
func (a *BoundingBoxAttachment) AttachmentName() string { return a.Name }

type MeshAttachment struct {
	Name       string
	Path       string
	Color      mgl32.Vec4
	UVs        []mgl32.Vec2
	Triangles  []uint16
	Vertices   Vertices
	HullLength int
	Edges      []uint16   // 非必要数据
	Size       mgl32.Vec2 // 非必要数据
	Sequence   *Sequence
}

func (a *MeshAttachment) Type() AttachmentType   { return AttachmentMesh }
func (a *MeshAttachment) AttachmentName() string { return a.Name }

// LinkedMeshAttachment shares geometry with Parent, resolved into Mesh after decoding.
type LinkedMeshAttachment struct {
	Name             string
	Path             string
	Color            mgl32.Vec4
	Skin             string // 空表示默认皮肤
	Parent           string
	InheritTimelines bool
	Size             mgl32.Vec2
	Sequence         *Sequence
	Mesh             *MeshAttachment
}

func (a *LinkedMeshAttachment) Type() AttachmentType   { return AttachmentLinkedMesh }
func (a *LinkedMeshAttachment) AttachmentName() string { return a.Name }

type PathAttachment struct {
	Name          string
	Closed        bool
	ConstantSpeed bool
	Vertices      Vertices
	Lengths       []float32
	Color         mgl32.Vec4
}

func (a *PathAttachment) Type() AttachmentType   { return AttachmentPath }
func (a *PathAttachment) AttachmentName() string { return a.Name }

type PointAttachment struct {
	Name     string
	Rotation float32
	Position mgl32.Vec2
	Color    mgl32.Vec4
}

func (a *PointAttachment) Type() AttachmentType   { return AttachmentPoint }
func (a *PointAttachment) AttachmentName() string { return a.Name }

type ClippingAttachment struct {
	Name     string
	EndSlot  int // 到该 slot 结束裁剪
	Vertices Vertices
	Color    mgl32.Vec4
}

func (a *ClippingAttachment) Type() AttachmentType   { return AttachmentClipping }
func (a *ClippingAttachment) AttachmentName() string { return a.Name }

// AttachmentVertices returns the vertex data of attachments that have any.
func AttachmentVertices(attachment Attachment) (Vertices, bool) {
	switch item := attachment.(type) {
	case *BoundingBoxAttachment:
		return item.Vertices, true
	case *MeshAttachment:
		return item.Vertices, true
	case *LinkedMeshAttachment:
		if item.Mesh == nil {
			return Vertices{}, false
		}
		return item.Mesh.Vertices, true
	case *PathAttachment:
		return item.Vertices, true
	case *ClippingAttachment:
		return item.Vertices, true
	default:
		return Vertices{}, false
	}
}
