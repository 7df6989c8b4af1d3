package skeleton

type CurveKind uint8

const (
	CurveLinear CurveKind = iota
	CurveStepped
	CurveBezier
)

func (k CurveKind) String() string { return enumName([]string{"linear", "stepped", "bezier"}, int(k)) }

// Bezier control points mapped into the unit square of one keyframe interval.
type Bezier struct {
	CX1, CY1, CX2, CY2 float32
}

// Curve describes the transition from a keyframe to the next one.
type Curve struct {
	Kind    CurveKind
	Beziers []Bezier // 每个通道一条
}

// Keyframe 最后一帧 Curve 为 nil
type Keyframe struct {
	Time   float32
	Values []float32
	Curve  *Curve
}

type BoneTimelineKind uint8

const (
	BoneRotate BoneTimelineKind = iota
	BoneTranslate
	BoneTranslateX
	BoneTranslateY
	BoneScale
	BoneScaleX
	BoneScaleY
	BoneShear
	BoneShearX
	BoneShearY
)

var boneTimelineNames = []string{"rotate", "translate", "translatex", "translatey", "scale", "scalex", "scaley", "shear", "shearx", "sheary"}

func (k BoneTimelineKind) String() string { return enumName(boneTimelineNames, int(k)) }

func (k BoneTimelineKind) Valid() bool { return int(k) < len(boneTimelineNames) }

func ParseBoneTimelineKind(name string) (BoneTimelineKind, bool) {
	idx := indexOf(boneTimelineNames, name)
	return BoneTimelineKind(max(idx, 0)), idx >= 0
}

func (k BoneTimelineKind) Channels() int {
	switch k {
	case BoneTranslate, BoneScale, BoneShear:
		return 2
	default:
		return 1
	}
}

type BoneTimeline struct {
	Bone      int
	Kind      BoneTimelineKind
	Keyframes []Keyframe
}

type SlotTimelineKind uint8

const (
	SlotAttachment SlotTimelineKind = iota
	SlotRGBA
	SlotRGB
	SlotRGBA2
	SlotRGB2
	SlotAlpha
)

var slotTimelineNames = []string{"attachment", "rgba", "rgb", "rgba2", "rgb2", "alpha"}

func (k SlotTimelineKind) String() string { return enumName(slotTimelineNames, int(k)) }

func (k SlotTimelineKind) Valid() bool { return int(k) < len(slotTimelineNames) }

func ParseSlotTimelineKind(name string) (SlotTimelineKind, bool) {
	idx := indexOf(slotTimelineNames, name)
	return SlotTimelineKind(max(idx, 0)), idx >= 0
}

func (k SlotTimelineKind) Channels() int {
	return [...]int{0, 4, 3, 7, 6, 1}[k]
}

type AttachmentKeyframe struct {
	Time       float32
	Attachment *string // nil 表示隐藏
}

type SlotTimeline struct {
	Slot        int
	Kind        SlotTimelineKind
	Attachments []AttachmentKeyframe // SlotAttachment
	Keyframes   []Keyframe           // 颜色通道 r g b [a] [r2 g2 b2]
}

type IKKeyframe struct {
	Keyframe // mix softness
	BendPositive bool
	Compress     bool
	Stretch      bool
}

type IKTimeline struct {
	Constraint int
	Keyframes  []IKKeyframe
}

// TransformTimeline keyframes carry mixRotate mixX mixY mixScaleX mixScaleY mixShearY.
type TransformTimeline struct {
	Constraint int
	Keyframes  []Keyframe
}

type PathTimelineKind uint8

const (
	PathPosition PathTimelineKind = iota
	PathSpacing
	PathMix
)

func (k PathTimelineKind) String() string {
	return enumName([]string{"position", "spacing", "mix"}, int(k))
}

func (k PathTimelineKind) Channels() int {
	if k == PathMix {
		return 3
	}
	return 1
}

type PathTimeline struct {
	Constraint int
	Kind       PathTimelineKind
	Keyframes  []Keyframe
}

// DeformTimeline keyframes hold absolute vertex floats and a single curve channel.
type DeformTimeline struct {
	Skin       int // -1 默认皮肤
	Slot       int
	Attachment string
	Keyframes  []Keyframe
}

type SequenceKeyframe struct {
	Time  float32
	Mode  SequenceMode
	Index int
	Delay float32
}

type SequenceTimeline struct {
	Skin       int
	Slot       int
	Attachment string
	Keyframes  []SequenceKeyframe
}

type DrawOrderKeyframe struct {
	Time  float32
	Order []int // Order[i] 为第 i 个绘制的 slot，nil 表示恢复默认顺序
}

type EventKeyframe struct {
	Time    float32
	Event   int
	Int     int32
	Float   float32
	String  string
	Volume  float32
	Balance float32
}

type Animation struct {
	Name       string
	Duration   float32
	Bones      []BoneTimeline
	Slots      []SlotTimeline
	IK         []IKTimeline
	Transforms []TransformTimeline
	Paths      []PathTimeline
	Deforms    []DeformTimeline
	Sequences  []SequenceTimeline
	DrawOrder  []DrawOrderKeyframe
	Events     []EventKeyframe
}

// ComputeDuration sets Duration to the time of the latest keyframe.
func (a *Animation) ComputeDuration() {
	duration := float32(0)
	last := func(frames []Keyframe) {
		if len(frames) > 0 {
			duration = max(duration, frames[len(frames)-1].Time)
		}
	}
	for _, item := range a.Bones {
		last(item.Keyframes)
	}
	for _, item := range a.Slots {
		last(item.Keyframes)
		if len(item.Attachments) > 0 {
			duration = max(duration, item.Attachments[len(item.Attachments)-1].Time)
		}
	}
	for _, item := range a.IK {
		if len(item.Keyframes) > 0 {
			duration = max(duration, item.Keyframes[len(item.Keyframes)-1].Time)
		}
	}
	for _, item := range a.Transforms {
		last(item.Keyframes)
	}
	for _, item := range a.Paths {
		last(item.Keyframes)
	}
	for _, item := range a.Deforms {
		last(item.Keyframes)
	}
	for _, item := range a.Sequences {
		if len(item.Keyframes) > 0 {
			duration = max(duration, item.Keyframes[len(item.Keyframes)-1].Time)
		}
	}
	if len(a.DrawOrder) > 0 {
		duration = max(duration, a.DrawOrder[len(a.DrawOrder)-1].Time)
	}
	if len(a.Events) > 0 {
		duration = max(duration, a.Events[len(a.Events)-1].Time)
	}
	a.Duration = duration
}

// NormalizeBezier maps absolute control points of the interval
// (t1,v1)-(t2,v2) into the unit square. A zero-length axis maps to 0.
func NormalizeBezier(t1, v1, t2, v2, cx1, cy1, cx2, cy2 float32) Bezier {
	nx := func(x float32) float32 {
		if t2 == t1 {
			return 0
		}
		return (x - t1) / (t2 - t1)
	}
	ny := func(y float32) float32 {
		if v2 == v1 {
			return 0
		}
		return (y - v1) / (v2 - v1)
	}
	return Bezier{CX1: nx(cx1), CY1: ny(cy1), CX2: nx(cx2), CY2: ny(cy2)}
}
