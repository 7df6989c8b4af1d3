package skeleton

import "github.com/go-gl/mathgl/mgl32"

type IKConstraint struct {
	Name         string
	Order        int
	SkinRequired bool
	Bones        []int // 1~2 个
	Target       int
	Mix          float32
	Softness     float32
	BendPositive bool
	Compress     bool
	Stretch      bool
	Uniform      bool
}

type TransformConstraint struct {
	Name           string
	Order          int
	SkinRequired   bool
	Bones          []int
	Target         int
	Local          bool
	Relative       bool
	OffsetRotation float32
	Offset         mgl32.Vec2
	OffsetScale    mgl32.Vec2
	OffsetShearY   float32
	MixRotate      float32
	MixX           float32
	MixY           float32
	MixScaleX      float32
	MixScaleY      float32
	MixShearY      float32
}

type PositionMode uint8

const (
	PositionFixed PositionMode = iota
	PositionPercent
)

var positionModeNames = []string{"fixed", "percent"}

func (m PositionMode) String() string { return enumName(positionModeNames, int(m)) }

func ParsePositionMode(name string) (PositionMode, bool) {
	idx := indexOf(positionModeNames, name)
	return PositionMode(max(idx, 0)), idx >= 0
}

type SpacingMode uint8

const (
	SpacingLength SpacingMode = iota
	SpacingFixed
	SpacingPercent
	SpacingProportional
)

var spacingModeNames = []string{"length", "fixed", "percent", "proportional"}

func (m SpacingMode) String() string { return enumName(spacingModeNames, int(m)) }

func ParseSpacingMode(name string) (SpacingMode, bool) {
	idx := indexOf(spacingModeNames, name)
	return SpacingMode(max(idx, 0)), idx >= 0
}

type RotateMode uint8

const (
	RotateTangent RotateMode = iota
	RotateChain
	RotateChainScale
)

var rotateModeNames = []string{"tangent", "chain", "chainScale"}

func (m RotateMode) String() string { return enumName(rotateModeNames, int(m)) }

func ParseRotateMode(name string) (RotateMode, bool) {
	idx := indexOf(rotateModeNames, name)
	return RotateMode(max(idx, 0)), idx >= 0
}

type PathConstraint struct {
	Name           string
	Order          int
	SkinRequired   bool
	Bones          []int
	Target         int // slot
	PositionMode   PositionMode
	SpacingMode    SpacingMode
	RotateMode     RotateMode
	OffsetRotation float32
	Position       float32
	Spacing        float32
	MixRotate      float32
	MixX           float32
	MixY           float32
}

type EventData struct {
	Name      string
	Int       int32
	Float     float32
	String    string
	AudioPath *string // 非 nil 时事件帧才带 volume balance
	Volume    float32
	Balance   float32
}

func enumName(names []string, v int) string {
	if v >= 0 && v < len(names) {
		return names[v]
	}
	return "unknown"
}
