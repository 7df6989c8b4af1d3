// Package pose turns a decoded skeleton plus the elapsed time of an
// animation into world transforms and per-slot render data.
//
// A State is the only mutable piece. It never keeps a reference to the
// skeleton: every call takes it explicitly, so one State can be re-posed
// against a freshly reloaded skeleton.
package pose

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/rs/zerolog"

	"github.com/sk2233/spinal/internal/mathx"
	"github.com/sk2233/spinal/skeleton"
)

// LoopMode decides how time past the end of an animation maps back onto it.
type LoopMode uint8

const (
	Loop LoopMode = iota
	Clamp
	PingPong
)

var loopModeNames = []string{"loop", "clamp", "pingpong"}

func (m LoopMode) String() string {
	if int(m) < len(loopModeNames) {
		return loopModeNames[m]
	}
	return "unknown"
}

func ParseLoopMode(name string) (LoopMode, error) {
	for i, item := range loopModeNames {
		if item == name {
			return LoopMode(i), nil
		}
	}
	return Loop, fmt.Errorf("unknown loop mode %q", name)
}

// RegionLookup maps a region name to the host's atlas index, -1 when unknown.
// *atlas.Atlas implements it.
type RegionLookup interface {
	RegionIndex(name string) int
}

type Option func(*State)

func WithLogger(log zerolog.Logger) Option {
	return func(s *State) {
		s.log = log
	}
}

func WithLoop(mode LoopMode) Option {
	return func(s *State) {
		s.loop = mode
	}
}

func WithRegions(regions RegionLookup) Option {
	return func(s *State) {
		s.regions = regions
	}
}

// State is the per instance pose state. It is not safe for concurrent use.
type State struct {
	log     zerolog.Logger
	loop    LoopMode
	regions RegionLookup

	animation string
	time      float32
	// 上一次 AdvanceTime 的时间窗口，用于触发事件
	from, to  float32
	inclusive bool
	fresh     bool

	skin         string
	rotations    map[string]float32
	translations map[string]mgl32.Vec2
	scales       map[string]mgl32.Vec2
	attachments  map[string]*string
	warned       map[string]bool
}

func NewState(opts ...Option) *State {
	res := &State{
		log:          zerolog.Nop(),
		rotations:    make(map[string]float32),
		translations: make(map[string]mgl32.Vec2),
		scales:       make(map[string]mgl32.Vec2),
		attachments:  make(map[string]*string),
		warned:       make(map[string]bool),
	}
	for _, opt := range opts {
		opt(res)
	}
	return res
}

// SetActiveAnimation switches to the named animation and rewinds to 0.
// An empty name leaves the skeleton in its setup pose.
func (s *State) SetActiveAnimation(skel *skeleton.Skeleton, name string) error {
	if name != "" && skel.FindAnimation(name) == nil {
		return &skeleton.ReferenceError{Kind: "animation", Name: name, Index: -1}
	}
	s.animation = name
	s.time, s.from, s.to = 0, 0, 0
	s.inclusive = false
	s.fresh = true
	s.log.Debug().Str("animation", name).Msg("active animation changed")
	return nil
}

func (s *State) ActiveAnimation() string {
	return s.animation
}

// AdvanceTime moves the playhead. Time never goes below 0.
func (s *State) AdvanceTime(delta float32) {
	s.from = s.time
	s.time = max(s.time+delta, 0)
	s.to = s.time
	// 切换动画后的第一个窗口包含起点，0 时刻的事件才能触发
	s.inclusive = s.fresh
	s.fresh = false
}

// Time is the total time advanced since the animation was set, before looping.
func (s *State) Time() float32 {
	return s.time
}

func (s *State) localTime(duration float32) float32 {
	if duration <= 0 {
		return 0
	}
	switch s.loop {
	case Clamp:
		return min(s.time, duration)
	case PingPong:
		res := mathx.Mod(s.time, duration*2)
		if res > duration {
			res = duration*2 - res
		}
		return res
	default:
		if s.time == 0 {
			return 0
		}
		res := mathx.Mod(s.time, duration)
		if res == 0 { // 恰好播完一轮停在最后一帧
			return duration
		}
		return res
	}
}

// OverrideBoneRotation adds degrees on top of the setup and animated rotation.
func (s *State) OverrideBoneRotation(bone string, degrees float32) {
	s.rotations[bone] = degrees
}

func (s *State) OverrideBoneTranslation(bone string, x, y float32) {
	s.translations[bone] = mgl32.Vec2{x, y}
}

// OverrideBoneScale multiplies the setup and animated scale.
func (s *State) OverrideBoneScale(bone string, x, y float32) {
	s.scales[bone] = mgl32.Vec2{x, y}
}

// ClearOverrides drops every bone and attachment override.
func (s *State) ClearOverrides() {
	clear(s.rotations)
	clear(s.translations)
	clear(s.scales)
	clear(s.attachments)
}

// SetSkin activates a named skin; attachments missing from it fall back to
// the default skin. An empty name uses the default skin only.
func (s *State) SetSkin(skel *skeleton.Skeleton, name string) error {
	if name != "" {
		if _, ok := skel.FindSkin(name); !ok {
			return &skeleton.ReferenceError{Kind: "skin", Name: name, Index: -1}
		}
	}
	s.skin = name
	return nil
}

func (s *State) Skin() string {
	return s.skin
}

// SetAttachment forces the attachment shown by slot, overriding the setup
// pose and the animation. An empty attachment hides the slot.
func (s *State) SetAttachment(skel *skeleton.Skeleton, slot, attachment string) error {
	if skel.FindSlot(slot) < 0 {
		return &skeleton.ReferenceError{Kind: "slot", Name: slot, Index: -1}
	}
	if attachment == "" {
		s.attachments[slot] = nil
	} else {
		s.attachments[slot] = &attachment
	}
	return nil
}

func (s *State) warnOnce(key, msg string) {
	if s.warned[key] {
		return
	}
	s.warned[key] = true
	s.log.Warn().Str("key", key).Msg(msg)
}
