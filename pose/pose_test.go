package pose

import (
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/go-cmp/cmp"

	"github.com/sk2233/spinal/internal/mathx"
	"github.com/sk2233/spinal/skeleton"
)

const epsilon = 1e-4

func ptr[T any](v T) *T {
	return &v
}

func bone(name string, parent int, x, y, rotation float32) *skeleton.Bone {
	return &skeleton.Bone{Name: name, Parent: parent, Position: mgl32.Vec2{x, y}, Rotation: rotation, Scale: mgl32.Vec2{1, 1}}
}

func build(t *testing.T, skel *skeleton.Skeleton) *skeleton.Skeleton {
	t.Helper()
	if err := skel.Build(); err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	return skel
}

func twoBones(t *testing.T) *skeleton.Skeleton {
	return build(t, &skeleton.Skeleton{Bones: []*skeleton.Bone{
		bone("root", -1, 0, 0, 0),
		bone("child", 0, 0, 50, 30),
	}})
}

// near compares with an absolute tolerance, mgl32's relative compare is too strict around 0.
func near(got, want float32) bool {
	return mathx.Abs(got-want) <= epsilon
}

func assertVec2(t *testing.T, name string, got, want mgl32.Vec2) {
	t.Helper()
	if !near(got.X(), want.X()) || !near(got.Y(), want.Y()) {
		t.Errorf("%s = %v, want %v", name, got, want)
	}
}

func assertFloat(t *testing.T, name string, got, want float32) {
	t.Helper()
	if !near(got, want) {
		t.Errorf("%s = %v, want %v", name, got, want)
	}
}

func TestTwoBoneSetupPose(t *testing.T) {
	skel := twoBones(t)
	snapshot := NewState().Pose(skel)
	child, ok := snapshot.Bone("child")
	if !ok {
		t.Fatal("child bone missing from snapshot")
	}
	assertFloat(t, "child rotation", child.Rotation, 30)
	assertVec2(t, "child position", child.Position, mgl32.Vec2{0, 50})
	// 矩阵的 x 轴与累计的旋转一致
	x := child.World.Mul3x1(mgl32.Vec3{1, 0, 1}).Vec2().Sub(child.Position)
	assertFloat(t, "world x axis angle", mathx.Atan2(x.Y(), x.X()), 30)
}

func TestOverrides(t *testing.T) {
	skel := twoBones(t)
	state := NewState()
	state.OverrideBoneRotation("root", 90)
	snapshot := state.Pose(skel)
	child, _ := snapshot.Bone("child")
	assertFloat(t, "child rotation", child.Rotation, 120)
	assertVec2(t, "child position", child.Position, mgl32.Vec2{-50, 0})

	state.ClearOverrides()
	state.OverrideBoneTranslation("child", 10, 0)
	state.OverrideBoneScale("root", 2, 2)
	snapshot = state.Pose(skel)
	child, _ = snapshot.Bone("child")
	assertVec2(t, "scaled child position", child.Position, mgl32.Vec2{20, 100})
	// 未知骨骼忽略
	state.OverrideBoneRotation("missing", 45)
	state.Pose(skel)
}

func TestTransformModes(t *testing.T) {
	tests := []struct {
		mode     skeleton.TransformMode
		rotation float32
		scale    mgl32.Vec2
	}{
		{skeleton.TransformNormal, 120, mgl32.Vec2{2, 2}},
		{skeleton.TransformOnlyTranslation, 30, mgl32.Vec2{1, 1}},
		{skeleton.TransformNoRotationOrReflection, 30, mgl32.Vec2{2, 2}},
		{skeleton.TransformNoScale, 120, mgl32.Vec2{1, 1}},
		{skeleton.TransformNoScaleOrReflection, 120, mgl32.Vec2{1, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.mode.String(), func(t *testing.T) {
			root := bone("root", -1, 0, 0, 90)
			root.Scale = mgl32.Vec2{2, 2}
			child := bone("child", 0, 10, 0, 30)
			child.Transform = tt.mode
			skel := build(t, &skeleton.Skeleton{Bones: []*skeleton.Bone{root, child}})
			got, _ := NewState().Pose(skel).Bone("child")
			assertVec2(t, "position", got.Position, mgl32.Vec2{0, 20})
			assertFloat(t, "rotation", got.Rotation, tt.rotation)
			m := mgl32.Mat2{got.World[0], got.World[1], got.World[3], got.World[4]}
			assertFloat(t, "matrix rotation", mathx.GetRotate(m), tt.rotation)
			assertVec2(t, "scale", mathx.GetScale(m), tt.scale)
		})
	}
}

func TestShear(t *testing.T) {
	root := bone("root", -1, 0, 0, 0)
	root.Shear = mgl32.Vec2{0, 45}
	skel := build(t, &skeleton.Skeleton{Bones: []*skeleton.Bone{root}})
	got, _ := NewState().Pose(skel).Bone("root")
	y := got.World.Mul3x1(mgl32.Vec3{0, 1, 1}).Vec2()
	assertVec2(t, "sheared y axis", y, mgl32.Vec2{-mathx.Sin(45), mathx.Cos(45)})
}

func animated(t *testing.T) *skeleton.Skeleton {
	skel := twoBones(t)
	skel.Animations = []*skeleton.Animation{{
		Name:     "swing",
		Duration: 1,
		Bones: []skeleton.BoneTimeline{
			{Bone: 1, Kind: skeleton.BoneRotate, Keyframes: []skeleton.Keyframe{
				{Time: 0, Values: []float32{0}, Curve: &skeleton.Curve{Kind: skeleton.CurveLinear}},
				{Time: 1, Values: []float32{90}},
			}},
			{Bone: 0, Kind: skeleton.BoneTranslate, Keyframes: []skeleton.Keyframe{
				{Time: 0.5, Values: []float32{10, 0}, Curve: &skeleton.Curve{Kind: skeleton.CurveStepped}},
				{Time: 1, Values: []float32{20, 0}},
			}},
			{Bone: 0, Kind: skeleton.BoneScale, Keyframes: []skeleton.Keyframe{
				{Time: 0, Values: []float32{1, 1}},
			}},
		},
	}}
	return skel
}

func TestAnimation(t *testing.T) {
	skel := animated(t)
	state := NewState()
	if err := state.SetActiveAnimation(skel, "swing"); err != nil {
		t.Fatalf("SetActiveAnimation() error = %v", err)
	}
	state.AdvanceTime(0.25)
	snapshot := state.Pose(skel)
	child, _ := snapshot.Bone("child")
	root, _ := snapshot.Bone("root")
	assertFloat(t, "child rotation at 0.25", child.Rotation, 30+22.5)
	// 第一帧之前不修改 setup 值
	assertVec2(t, "root position at 0.25", root.Position, mgl32.Vec2{})

	state.AdvanceTime(0.5)
	snapshot = state.Pose(skel)
	child, _ = snapshot.Bone("child")
	root, _ = snapshot.Bone("root")
	assertFloat(t, "child rotation at 0.75", child.Rotation, 30+67.5)
	assertVec2(t, "stepped root position at 0.75", root.Position, mgl32.Vec2{10, 0})
	assertFloat(t, "snapshot time", snapshot.Time, 0.75)

	// 用户修改叠加在动画之上
	state.OverrideBoneRotation("child", 10)
	child, _ = state.Pose(skel).Bone("child")
	assertFloat(t, "overridden rotation", child.Rotation, 30+67.5+10)
}

func TestSetActiveAnimation(t *testing.T) {
	skel := animated(t)
	state := NewState()
	err := state.SetActiveAnimation(skel, "missing")
	var refErr *skeleton.ReferenceError
	if !errors.As(err, &refErr) || refErr.Name != "missing" {
		t.Fatalf("SetActiveAnimation(missing) error = %v, want ReferenceError", err)
	}
	if err := state.SetActiveAnimation(skel, "swing"); err != nil {
		t.Fatal(err)
	}
	state.AdvanceTime(0.5)
	if err := state.SetActiveAnimation(skel, ""); err != nil {
		t.Fatal(err)
	}
	if state.ActiveAnimation() != "" || state.Time() != 0 {
		t.Errorf("cleared state = %q at %v", state.ActiveAnimation(), state.Time())
	}
	child, _ := state.Pose(skel).Bone("child")
	assertFloat(t, "setup rotation", child.Rotation, 30)
}

func TestPoseDeterministic(t *testing.T) {
	skel := animated(t)
	state := NewState()
	if err := state.SetActiveAnimation(skel, "swing"); err != nil {
		t.Fatal(err)
	}
	state.AdvanceTime(0.3)
	first := state.Pose(skel)
	second := state.Pose(skel)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("poses differ (-first +second):\n%s", diff)
	}
	other := NewState()
	if err := other.SetActiveAnimation(skel, "swing"); err != nil {
		t.Fatal(err)
	}
	other.AdvanceTime(0.3)
	if diff := cmp.Diff(first, other.Pose(skel)); diff != "" {
		t.Errorf("independent states differ (-first +other):\n%s", diff)
	}
}

func TestLocalTime(t *testing.T) {
	tests := []struct {
		loop LoopMode
		time float32
		want float32
	}{
		{Loop, 0, 0},
		{Loop, 1, 1},
		{Loop, 2, 2},
		{Loop, 3, 1},
		{Clamp, 3, 2},
		{Clamp, 1.5, 1.5},
		{PingPong, 1, 1},
		{PingPong, 3, 1},
		{PingPong, 4.5, 0.5},
	}
	for _, tt := range tests {
		state := NewState(WithLoop(tt.loop))
		state.time = tt.time
		assertFloat(t, tt.loop.String(), state.localTime(2), tt.want)
	}
	if got := NewState().localTime(0); got != 0 {
		t.Errorf("localTime of an empty animation = %v", got)
	}
}

func TestParseLoopMode(t *testing.T) {
	for _, mode := range []LoopMode{Loop, Clamp, PingPong} {
		got, err := ParseLoopMode(mode.String())
		if err != nil || got != mode {
			t.Errorf("ParseLoopMode(%q) = %v, %v", mode.String(), got, err)
		}
	}
	if _, err := ParseLoopMode("bounce"); err == nil {
		t.Error("ParseLoopMode(bounce) succeeded")
	}
}

func TestEvents(t *testing.T) {
	skel := twoBones(t)
	skel.Events = []*skeleton.EventData{{Name: "step"}, {Name: "land"}}
	skel.Animations = []*skeleton.Animation{{
		Name:     "walk",
		Duration: 1,
		Events: []skeleton.EventKeyframe{
			{Time: 0, Event: 0, Int: 1},
			{Time: 0.5, Event: 1, String: "dust"},
		},
	}}
	state := NewState()
	if err := state.SetActiveAnimation(skel, "walk"); err != nil {
		t.Fatal(err)
	}
	names := func() []string {
		var res []string
		for _, item := range state.Pose(skel).Events {
			res = append(res, item.Name)
		}
		return res
	}
	steps := []struct {
		delta float32
		want  []string
	}{
		{0.25, []string{"step"}},
		{0.5, []string{"land"}},
		{0.5, []string{"step"}},
		{0, nil},
		{3, []string{"land", "step"}},
	}
	for i, tt := range steps {
		state.AdvanceTime(tt.delta)
		if diff := cmp.Diff(tt.want, names()); diff != "" {
			t.Errorf("step %d events mismatch (-want +got):\n%s", i, diff)
		}
	}
	// 同一窗口重复 Pose 不重复触发也不丢失
	if diff := cmp.Diff([]string{"land", "step"}, names()); diff != "" {
		t.Errorf("repeated pose events mismatch (-want +got):\n%s", diff)
	}
	state.AdvanceTime(0.25)
	events := state.Pose(skel).Events
	if len(events) != 1 || events[0].String != "dust" {
		t.Errorf("events = %+v, want the land event payload", events)
	}
}

func TestClampEvents(t *testing.T) {
	skel := twoBones(t)
	skel.Events = []*skeleton.EventData{{Name: "end"}}
	skel.Animations = []*skeleton.Animation{{
		Name: "once", Duration: 1,
		Events: []skeleton.EventKeyframe{{Time: 1, Event: 0}},
	}}
	state := NewState(WithLoop(Clamp))
	if err := state.SetActiveAnimation(skel, "once"); err != nil {
		t.Fatal(err)
	}
	state.AdvanceTime(2)
	if got := len(state.Pose(skel).Events); got != 1 {
		t.Errorf("first window fired %d events, want 1", got)
	}
	state.AdvanceTime(2)
	if got := len(state.Pose(skel).Events); got != 0 {
		t.Errorf("clamped window fired %d events, want 0", got)
	}
}
