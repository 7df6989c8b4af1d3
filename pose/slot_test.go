package pose

import (
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/go-cmp/cmp"

	"github.com/sk2233/spinal/skeleton"
)

type regionMap map[string]int

func (m regionMap) RegionIndex(name string) int {
	if idx, ok := m[name]; ok {
		return idx
	}
	return -1
}

func region(name string, w, h float32) *skeleton.RegionAttachment {
	return &skeleton.RegionAttachment{Name: name, Path: name, Scale: mgl32.Vec2{1, 1}, Size: mgl32.Vec2{w, h}, Color: skeleton.White}
}

func skinned(t *testing.T) *skeleton.Skeleton {
	return build(t, &skeleton.Skeleton{
		Bones: []*skeleton.Bone{
			bone("root", -1, 0, 0, 0),
			bone("arm", 0, 0, 50, 0),
		},
		Slots: []*skeleton.Slot{
			{Name: "body", Bone: 0, Color: skeleton.White, Attachment: ptr("body")},
			{Name: "bag", Bone: 1, Color: mgl32.Vec4{1, 0, 0, 1}, Attachment: ptr("bag")},
			{Name: "empty", Bone: 0, Color: skeleton.White, Attachment: ptr("nothing")},
		},
		DefaultSkin: &skeleton.Skin{Name: "default", Slots: []skeleton.SkinSlot{
			{Slot: 0, Attachments: []skeleton.SkinEntry{{Name: "body", Attachment: region("body", 20, 10)}}},
			{Slot: 1, Attachments: []skeleton.SkinEntry{{Name: "bag", Attachment: &skeleton.MeshAttachment{
				Name:     "bag",
				Path:     "bag",
				Color:    mgl32.Vec4{1, 1, 1, 0.5},
				Vertices: skeleton.Vertices{Positions: []mgl32.Vec2{{0, 0}, {10, 0}, {0, 10}}},
			}}}},
		}},
		Skins: []*skeleton.Skin{{Name: "big", Slots: []skeleton.SkinSlot{
			{Slot: 0, Attachments: []skeleton.SkinEntry{{Name: "body", Attachment: region("body-big", 40, 20)}}},
		}}},
	})
}

func TestRegionVertices(t *testing.T) {
	skel := skinned(t)
	attachment := skel.DefaultSkin.Slots[0].Attachments[0].Attachment.(*skeleton.RegionAttachment)
	attachment.Position = mgl32.Vec2{5, 0}
	state := NewState(WithRegions(regionMap{"body": 7}))
	body, ok := state.Pose(skel).Slot("body")
	if !ok || !body.Visible {
		t.Fatalf("body slot = %+v, want visible", body)
	}
	want := []mgl32.Vec2{{-5, 5}, {15, 5}, {15, -5}, {-5, -5}}
	for i := range want {
		assertVec2(t, "corner", body.Vertices[i], want[i])
	}
	if body.Region != "body" || body.AtlasIndex != 7 {
		t.Errorf("region = %q (%d), want body (7)", body.Region, body.AtlasIndex)
	}
	assertVec2(t, "region origin", body.World.Mul3x1(mgl32.Vec3{0, 0, 1}).Vec2(), mgl32.Vec2{5, 0})
}

func TestMeshVerticesAndColor(t *testing.T) {
	skel := skinned(t)
	state := NewState()
	state.OverrideBoneRotation("arm", 90)
	bag, _ := state.Pose(skel).Slot("bag")
	want := []mgl32.Vec2{{0, 50}, {0, 60}, {-10, 50}}
	for i := range want {
		assertVec2(t, "mesh vertex", bag.Vertices[i], want[i])
	}
	if bag.Color != (mgl32.Vec4{1, 0, 0, 0.5}) {
		t.Errorf("color = %v, want slot tint times attachment color", bag.Color)
	}
	if bag.AtlasIndex != -1 {
		t.Errorf("atlas index without lookup = %d", bag.AtlasIndex)
	}
}

func TestMissingAttachment(t *testing.T) {
	skel := skinned(t)
	empty, _ := NewState().Pose(skel).Slot("empty")
	if empty.Visible || empty.Attachment != nil || empty.AttachmentName != "nothing" {
		t.Errorf("empty slot = %+v, want an invisible slot", empty)
	}
}

func TestSetAttachment(t *testing.T) {
	skel := skinned(t)
	state := NewState()
	if err := state.SetAttachment(skel, "body", ""); err != nil {
		t.Fatal(err)
	}
	if body, _ := state.Pose(skel).Slot("body"); body.Visible {
		t.Error("hidden slot is visible")
	}
	if err := state.SetAttachment(skel, "empty", "body"); err != nil {
		t.Fatal(err)
	}
	// empty slot 下没有 body 附件
	if empty, _ := state.Pose(skel).Slot("empty"); empty.Visible {
		t.Error("slot resolved an attachment of another slot")
	}
	var refErr *skeleton.ReferenceError
	if err := state.SetAttachment(skel, "missing", "body"); !errors.As(err, &refErr) {
		t.Errorf("SetAttachment(missing) error = %v, want ReferenceError", err)
	}
	state.ClearOverrides()
	if body, _ := state.Pose(skel).Slot("body"); !body.Visible {
		t.Error("cleared override still hides the slot")
	}
}

func TestSetSkin(t *testing.T) {
	skel := skinned(t)
	state := NewState()
	if err := state.SetSkin(skel, "big"); err != nil {
		t.Fatal(err)
	}
	snapshot := state.Pose(skel)
	body, _ := snapshot.Slot("body")
	if body.Region != "body-big" {
		t.Errorf("body region = %q, want the active skin's attachment", body.Region)
	}
	// 当前皮肤没有时回退到默认皮肤
	if bag, _ := snapshot.Slot("bag"); !bag.Visible || bag.Region != "bag" {
		t.Errorf("bag = %+v, want the default skin attachment", bag)
	}
	var refErr *skeleton.ReferenceError
	if err := state.SetSkin(skel, "missing"); !errors.As(err, &refErr) {
		t.Errorf("SetSkin(missing) error = %v, want ReferenceError", err)
	}
	if err := state.SetSkin(skel, ""); err != nil || state.Skin() != "" {
		t.Errorf("SetSkin(\"\") = %v, skin %q", err, state.Skin())
	}
}

func TestWeightedDeform(t *testing.T) {
	skel := build(t, &skeleton.Skeleton{
		Bones: []*skeleton.Bone{bone("root", -1, 0, 0, 0), bone("tip", 0, 0, 50, 0)},
		Slots: []*skeleton.Slot{{Name: "skin", Bone: 0, Color: skeleton.White, Attachment: ptr("skin")}},
		DefaultSkin: &skeleton.Skin{Name: "default", Slots: []skeleton.SkinSlot{{Slot: 0, Attachments: []skeleton.SkinEntry{
			{Name: "skin", Attachment: &skeleton.MeshAttachment{Name: "skin", Path: "skin", Color: skeleton.White,
				Vertices: skeleton.Vertices{Weighted: [][]skeleton.BoneWeight{
					{{Bone: 0, Offset: mgl32.Vec2{10, 0}, Weight: 0.5}, {Bone: 1, Offset: mgl32.Vec2{10, 0}, Weight: 0.5}},
					{{Bone: 1, Offset: mgl32.Vec2{0, 0}, Weight: 1}},
				}},
			}},
		}}}},
		Animations: []*skeleton.Animation{{Name: "wobble", Duration: 1, Deforms: []skeleton.DeformTimeline{
			{Skin: -1, Slot: 0, Attachment: "skin", Keyframes: []skeleton.Keyframe{
				{Time: 0, Values: []float32{0, 0, 0, 0, 4, 2}},
			}},
		}}},
	})
	state := NewState()
	slot, _ := state.Pose(skel).Slot("skin")
	assertVec2(t, "blended vertex", slot.Vertices[0], mgl32.Vec2{10, 25})
	assertVec2(t, "tip vertex", slot.Vertices[1], mgl32.Vec2{0, 50})

	if err := state.SetActiveAnimation(skel, "wobble"); err != nil {
		t.Fatal(err)
	}
	slot, _ = state.Pose(skel).Slot("skin")
	assertVec2(t, "deformed tip vertex", slot.Vertices[1], mgl32.Vec2{4, 52})
}

func TestUnweightedDeform(t *testing.T) {
	skel := skinned(t)
	skel.Animations = []*skeleton.Animation{{Name: "squash", Duration: 1, Deforms: []skeleton.DeformTimeline{
		{Skin: -1, Slot: 1, Attachment: "bag", Keyframes: []skeleton.Keyframe{
			{Time: 0, Values: []float32{0, 0, 20, 0, 0, 5}},
		}},
		// 长度不符的形变被忽略
		{Skin: -1, Slot: 0, Attachment: "body", Keyframes: []skeleton.Keyframe{{Time: 0, Values: []float32{1}}}},
	}}}
	state := NewState()
	if err := state.SetActiveAnimation(skel, "squash"); err != nil {
		t.Fatal(err)
	}
	bag, _ := state.Pose(skel).Slot("bag")
	want := []mgl32.Vec2{{0, 50}, {20, 50}, {0, 55}}
	for i := range want {
		assertVec2(t, "deformed vertex", bag.Vertices[i], want[i])
	}
}

func TestSlotAnimation(t *testing.T) {
	skel := skinned(t)
	skel.Animations = []*skeleton.Animation{{
		Name:     "flash",
		Duration: 1,
		Slots: []skeleton.SlotTimeline{
			{Slot: 0, Kind: skeleton.SlotAttachment, Attachments: []skeleton.AttachmentKeyframe{{Time: 0, Attachment: nil}}},
			{Slot: 1, Kind: skeleton.SlotRGB2, Keyframes: []skeleton.Keyframe{{Time: 0, Values: []float32{0, 1, 0, 0.5, 0.5, 0.5}}}},
		},
		DrawOrder: []skeleton.DrawOrderKeyframe{{Time: 0.5, Order: []int{2, 1, 0}}},
	}}
	state := NewState()
	if err := state.SetActiveAnimation(skel, "flash"); err != nil {
		t.Fatal(err)
	}
	snapshot := state.Pose(skel)
	if body, _ := snapshot.Slot("body"); body.Visible {
		t.Error("attachment keyframe did not hide the slot")
	}
	bag, _ := snapshot.Slot("bag")
	if bag.Color != (mgl32.Vec4{0, 1, 0, 0.5}) || bag.Dark == nil || *bag.Dark != (mgl32.Vec4{0.5, 0.5, 0.5, 1}) {
		t.Errorf("bag colors = %v %v", bag.Color, bag.Dark)
	}
	if diff := cmp.Diff([]int{0, 1, 2}, snapshot.DrawOrder); diff != "" {
		t.Errorf("draw order before the keyframe (-want +got):\n%s", diff)
	}
	state.AdvanceTime(0.75)
	if diff := cmp.Diff([]int{2, 1, 0}, state.Pose(skel).DrawOrder); diff != "" {
		t.Errorf("animated draw order (-want +got):\n%s", diff)
	}
	// 动画之上仍可以强制显示附件
	if err := state.SetAttachment(skel, "body", "body"); err != nil {
		t.Fatal(err)
	}
	if body, _ := state.Pose(skel).Slot("body"); !body.Visible {
		t.Error("user attachment did not override the animation")
	}
}

func TestSequenceFrameIndex(t *testing.T) {
	tests := []struct {
		mode    skeleton.SequenceMode
		index   int
		elapsed float32
		want    int
	}{
		{skeleton.SequenceHold, 2, 5, 2},
		{skeleton.SequenceOnce, 0, 0.15, 1},
		{skeleton.SequenceOnce, 0, 5, 3},
		{skeleton.SequenceLoop, 0, 0.55, 1},
		{skeleton.SequencePingPong, 0, 0.45, 2},
		{skeleton.SequenceOnceReverse, 0, 0.1, 2},
		{skeleton.SequenceOnceReverse, 0, 5, 0},
		{skeleton.SequenceLoopReverse, 0, 0.1, 2},
		{skeleton.SequencePingPongReverse, 0, 0, 3},
	}
	for _, tt := range tests {
		item := sequenceFrame{Frame: skeleton.SequenceKeyframe{Mode: tt.mode, Index: tt.index, Delay: 0.1}, Elapsed: tt.elapsed}
		if got := sequenceFrameIndex(item, 4); got != tt.want {
			t.Errorf("%v index %d after %v = %d, want %d", tt.mode, tt.index, tt.elapsed, got, tt.want)
		}
	}
}

func TestSequenceRegion(t *testing.T) {
	skel := skinned(t)
	attachment := skel.DefaultSkin.Slots[0].Attachments[0].Attachment.(*skeleton.RegionAttachment)
	attachment.Path = "run"
	attachment.Sequence = &skeleton.Sequence{Count: 4, Start: 1, Digits: 2}
	skel.Animations = []*skeleton.Animation{{Name: "run", Duration: 1, Sequences: []skeleton.SequenceTimeline{
		{Skin: -1, Slot: 0, Attachment: "body", Keyframes: []skeleton.SequenceKeyframe{{Time: 0, Mode: skeleton.SequenceLoop, Delay: 0.1}}},
	}}}
	state := NewState(WithRegions(regionMap{"run01": 0, "run03": 2}))
	if body, _ := state.Pose(skel).Slot("body"); body.Region != "run01" || body.AtlasIndex != 0 {
		t.Errorf("setup region = %q (%d), want run01 (0)", body.Region, body.AtlasIndex)
	}
	if err := state.SetActiveAnimation(skel, "run"); err != nil {
		t.Fatal(err)
	}
	state.AdvanceTime(0.25)
	if body, _ := state.Pose(skel).Slot("body"); body.Region != "run03" || body.AtlasIndex != 2 {
		t.Errorf("animated region = %q (%d), want run03 (2)", body.Region, body.AtlasIndex)
	}
}
