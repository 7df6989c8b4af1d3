package skeleton

import "github.com/go-gl/mathgl/mgl32"

// TransformMode 继承父节点那些变换属性
type TransformMode uint8

const (
	TransformNormal TransformMode = iota
	TransformOnlyTranslation
	TransformNoRotationOrReflection
	TransformNoScale
	TransformNoScaleOrReflection
)

var transformModeNames = []string{"normal", "onlyTranslation", "noRotationOrReflection", "noScale", "noScaleOrReflection"}

func (m TransformMode) String() string {
	if int(m) < len(transformModeNames) {
		return transformModeNames[m]
	}
	return "unknown"
}

func (m TransformMode) Valid() bool {
	return int(m) < len(transformModeNames)
}

func ParseTransformMode(name string) (TransformMode, bool) {
	idx := indexOf(transformModeNames, name)
	return TransformMode(max(idx, 0)), idx >= 0
}

type Bone struct {
	Name         string
	Parent       int // -1 表示根节点
	Rotation     float32
	Position     mgl32.Vec2
	Scale        mgl32.Vec2
	Shear        mgl32.Vec2
	Length       float32
	Transform    TransformMode
	SkinRequired bool
	Color        mgl32.Vec4
}

type BlendMode uint8

const (
	BlendNormal BlendMode = iota
	BlendAdditive
	BlendMultiply
	BlendScreen
)

var blendModeNames = []string{"normal", "additive", "multiply", "screen"}

func (m BlendMode) String() string {
	if int(m) < len(blendModeNames) {
		return blendModeNames[m]
	}
	return "unknown"
}

func (m BlendMode) Valid() bool {
	return int(m) < len(blendModeNames)
}

func ParseBlendMode(name string) (BlendMode, bool) {
	idx := indexOf(blendModeNames, name)
	return BlendMode(max(idx, 0)), idx >= 0
}

type Slot struct {
	Name       string
	Bone       int
	Color      mgl32.Vec4
	Dark       *mgl32.Vec4 // 双色染色，nil 表示未使用
	Attachment *string     // 默认附件
	Blend      BlendMode
}

func indexOf(names []string, name string) int {
	for i, item := range names {
		if item == name {
			return i
		}
	}
	return -1
}
