package pose

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/sk2233/spinal/skeleton"
)

type BonePose struct {
	Name     string     `json:"name" yaml:"name" toml:"name"`
	Index    int        `json:"index" yaml:"index" toml:"index"`
	World    mgl32.Mat3 `json:"world" yaml:"world" toml:"world"` // 列主序仿射矩阵
	Rotation float32    `json:"rotation" yaml:"rotation" toml:"rotation"`
	Position mgl32.Vec2 `json:"position" yaml:"position" toml:"position"`
	Active   bool       `json:"active" yaml:"active" toml:"active"`
}

type SlotPose struct {
	Slot           int                 `json:"slot" yaml:"slot" toml:"slot"`
	Name           string              `json:"name" yaml:"name" toml:"name"`
	Bone           int                 `json:"bone" yaml:"bone" toml:"bone"`
	AttachmentName string              `json:"attachment,omitempty" yaml:"attachment,omitempty" toml:"attachment,omitempty"`
	Attachment     skeleton.Attachment `json:"-" yaml:"-" toml:"-"`
	Visible        bool                `json:"visible" yaml:"visible" toml:"visible"`
	World          mgl32.Mat3          `json:"world" yaml:"world" toml:"world"`
	Vertices       []mgl32.Vec2        `json:"vertices,omitempty" yaml:"vertices,omitempty" toml:"vertices,omitempty"`
	Color          mgl32.Vec4          `json:"color" yaml:"color" toml:"color"`
	Dark           *mgl32.Vec4         `json:"dark,omitempty" yaml:"dark,omitempty" toml:"dark,omitempty"`
	Blend          skeleton.BlendMode  `json:"blend" yaml:"blend" toml:"blend"`
	Region         string              `json:"region,omitempty" yaml:"region,omitempty" toml:"region,omitempty"`
	AtlasIndex     int                 `json:"atlasIndex" yaml:"atlasIndex" toml:"atlasIndex"`
}

type FiredEvent struct {
	Name    string  `json:"name" yaml:"name" toml:"name"`
	Time    float32 `json:"time" yaml:"time" toml:"time"`
	Int     int32   `json:"int" yaml:"int" toml:"int"`
	Float   float32 `json:"float" yaml:"float" toml:"float"`
	String  string  `json:"string" yaml:"string" toml:"string"`
	Volume  float32 `json:"volume" yaml:"volume" toml:"volume"`
	Balance float32 `json:"balance" yaml:"balance" toml:"balance"`
}

// Snapshot is the full result of one Pose call. Slots are in slot order,
// DrawOrder lists slot indices back to front.
type Snapshot struct {
	Time      float32      `json:"time" yaml:"time" toml:"time"`
	Animation string       `json:"animation" yaml:"animation" toml:"animation"`
	Bones     []BonePose   `json:"bones" yaml:"bones" toml:"bones"`
	Slots     []SlotPose   `json:"slots" yaml:"slots" toml:"slots"`
	DrawOrder []int        `json:"drawOrder" yaml:"drawOrder" toml:"drawOrder"`
	Events    []FiredEvent `json:"events,omitempty" yaml:"events,omitempty" toml:"events,omitempty"`
}

func (s Snapshot) Bone(name string) (BonePose, bool) {
	for _, item := range s.Bones {
		if item.Name == name {
			return item, true
		}
	}
	return BonePose{}, false
}

func (s Snapshot) Slot(name string) (SlotPose, bool) {
	for _, item := range s.Slots {
		if item.Name == name {
			return item, true
		}
	}
	return SlotPose{}, false
}

// poser holds the scratch data of a single Pose call.
type poser struct {
	state     *State
	skel      *skeleton.Skeleton
	skin      *skeleton.Skin
	skinIndex int
	layer     *layer
	bones     []boneState
}

// Pose evaluates the active animation at the current time and returns the
// resulting snapshot. Posing twice without advancing gives the same result.
func (s *State) Pose(skel *skeleton.Skeleton) Snapshot {
	p := &poser{state: s, skel: skel, layer: setupLayer(skel), bones: make([]boneState, len(skel.Bones))}
	if s.skin != "" {
		if idx, ok := skel.FindSkin(s.skin); ok {
			p.skinIndex, p.skin = idx, skel.Skin(idx)
		} else {
			s.warnOnce("skin:"+s.skin, "active skin is missing from the skeleton")
		}
	}
	res := Snapshot{Animation: s.animation}
	var anim *skeleton.Animation
	if s.animation != "" {
		if anim = skel.FindAnimation(s.animation); anim == nil {
			s.warnOnce("animation:"+s.animation, "active animation is missing from the skeleton")
		}
	}
	if anim != nil {
		res.Time = s.localTime(anim.Duration)
		p.layer.applyAnimation(anim, res.Time)
		res.Events = s.firedEvents(skel, anim)
	}
	p.applyOverrides()
	for i, bone := range skel.Bones {
		p.bones[i].Local = p.layer.Bones[i].applyTo(setupTransform(bone))
	}
	if len(skel.Bones) > 0 {
		p.updateTree(0)
		p.updateConstraints()
	}
	res.Bones = make([]BonePose, len(skel.Bones))
	for i, bone := range skel.Bones {
		state := &p.bones[i]
		res.Bones[i] = BonePose{
			Name:     bone.Name,
			Index:    i,
			World:    state.world(),
			Rotation: state.Rotation,
			Position: state.WorldPos,
			Active:   !bone.SkinRequired || skinHas(p.skin, func(s *skeleton.Skin) []int { return s.Bones }, i),
		}
	}
	res.Slots = make([]SlotPose, len(skel.Slots))
	for i := range skel.Slots {
		res.Slots[i] = p.updateSlot(i)
	}
	res.DrawOrder = p.drawOrder()
	return res
}

// applyOverrides layers the host's overrides on top of the animation.
func (p *poser) applyOverrides() {
	for i, bone := range p.skel.Bones {
		delta := &p.layer.Bones[i]
		if rotation, ok := p.state.rotations[bone.Name]; ok {
			delta.Rotation += rotation
		}
		if translation, ok := p.state.translations[bone.Name]; ok {
			delta.Position = delta.Position.Add(translation)
		}
		if scale, ok := p.state.scales[bone.Name]; ok {
			delta.Scale = mgl32.Vec2{delta.Scale.X() * scale.X(), delta.Scale.Y() * scale.Y()}
		}
	}
	for i, slot := range p.skel.Slots {
		if attachment, ok := p.state.attachments[slot.Name]; ok {
			p.layer.Slots[i].Attachment = attachment
		}
	}
}
