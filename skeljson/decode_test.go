package skeljson

import (
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/go-cmp/cmp"

	"github.com/sk2233/spinal/skeleton"
)

const fixture = `{
	"skeleton": { "hash": "abc", "spine": "4.1.17", "x": -10, "y": -5, "width": 100, "height": 200 },
	"bones": [
		{ "name": "root" },
		{ "name": "hip", "parent": "root", "x": 10, "rotation": 30, "transform": "noScale" },
		{ "name": "leg", "parent": "hip", "length": 40, "scaleX": 2, "color": "FF000080" }
	],
	"slots": [
		{ "name": "body", "bone": "hip", "attachment": "body" },
		{ "name": "shoe", "bone": "leg", "color": "FF0000FF", "dark": "00FF00", "blend": "additive" },
		{ "name": "clip", "bone": "root", "attachment": "clip" }
	],
	"ik": [
		{ "name": "leg-ik", "bones": [ "leg" ], "target": "hip" }
	],
	"transform": [
		{ "name": "follow", "order": 1, "bones": [ "leg" ], "target": "hip", "mixX": 0.5, "mixScaleX": 0.25 }
	],
	"path": [
		{ "name": "rail", "order": 2, "bones": [ "leg" ], "target": "clip" }
	],
	"skins": [
		{
			"name": "default",
			"attachments": {
				"body": {
					"body": { "x": 1, "y": 2, "width": 20, "height": 30 },
					"bag": { "type": "mesh", "uvs": [ 0, 0, 1, 0, 1, 1 ], "triangles": [ 0, 1, 2 ], "vertices": [ 0, 0, 10, 0, 10, 10 ], "hull": 3 }
				},
				"clip": {
					"clip": { "type": "clipping", "end": "shoe", "vertexCount": 2, "vertices": [ 1, 0, 1, 2, 0.5, 1, 2, 3, 4, 1 ] },
					"box": { "type": "boundingbox", "vertexCount": 1, "vertices": [ 5, 6 ] }
				}
			}
		},
		{
			"name": "red",
			"bones": [ "leg" ],
			"attachments": {
				"body": {
					"body": { "type": "linkedmesh", "name": "body-red", "parent": "bag", "skin": "default" }
				}
			}
		}
	],
	"events": {
		"step": { "int": 3, "string": "left" },
		"sound": { "audio": "step.ogg" }
	},
	"animations": {
		"walk": {
			"bones": {
				"hip": {
					"rotate": [
						{ "value": 0, "curve": [ 0.25, 0, 0.75, 90 ] },
						{ "time": 1, "value": 90 }
					],
					"scale": [ { "time": 0.5 } ]
				}
			},
			"slots": {
				"body": {
					"attachment": [ { "time": 0.5, "name": null } ],
					"rgba": [ { "color": "FFFFFFFF", "curve": "stepped" }, { "time": 0.5, "color": "00000000" } ]
				}
			},
			"transform": { "follow": [ { "mixX": 0.5 } ] },
			"attachments": {
				"default": {
					"body": {
						"bag": {
							"deform": [ { "time": 0 }, { "time": 1, "offset": 2, "vertices": [ 1, 1 ] } ]
						}
					}
				}
			},
			"drawOrder": [
				{ "time": 0.25, "offsets": [ { "slot": "body", "offset": 2 } ] },
				{ "time": 0.75 }
			],
			"events": [
				{ "time": 0.1, "name": "step" },
				{ "time": 0.2, "name": "sound", "float": 1.5 }
			]
		}
	}
}`

func TestParseFixture(t *testing.T) {
	skel, err := Parse([]byte(fixture))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if skel.Info.Version != "4.1.17" || skel.Info.Hash != "abc" || *skel.Info.FPS != 30 {
		t.Errorf("Info = %+v", skel.Info)
	}

	root, hip, leg := skel.Bones[0], skel.Bones[1], skel.Bones[2]
	if root.Parent != -1 || hip.Parent != 0 || leg.Parent != 1 {
		t.Errorf("parents = %d %d %d", root.Parent, hip.Parent, leg.Parent)
	}
	if root.Scale != (mgl32.Vec2{1, 1}) || root.Color != skeleton.BoneColor || root.Transform != skeleton.TransformNormal {
		t.Errorf("root defaults = %+v", root)
	}
	if hip.Transform != skeleton.TransformNoScale || leg.Scale != (mgl32.Vec2{2, 1}) {
		t.Errorf("hip = %+v, leg = %+v", hip, leg)
	}
	if diff := cmp.Diff([]int{1}, skel.Children(0)); diff != "" {
		t.Errorf("Children(0) mismatch (-want +got):\n%s", diff)
	}

	body, shoe := skel.Slots[0], skel.Slots[1]
	if body.Color != skeleton.White || body.Dark != nil || body.Blend != skeleton.BlendNormal || *body.Attachment != "body" {
		t.Errorf("body slot = %+v", body)
	}
	if shoe.Attachment != nil || shoe.Blend != skeleton.BlendAdditive || *shoe.Dark != (mgl32.Vec4{0, 1, 0, 1}) {
		t.Errorf("shoe slot = %+v", shoe)
	}

	ik := skel.IK[0]
	if ik.Mix != 1 || !ik.BendPositive || ik.Target != 1 {
		t.Errorf("ik = %+v", ik)
	}
	follow := skel.Transforms[0]
	if follow.MixRotate != 1 || follow.MixX != 0.5 || follow.MixY != 0.5 || follow.MixScaleY != 0.25 || follow.MixShearY != 1 {
		t.Errorf("transform = %+v", follow)
	}
	rail := skel.Paths[0]
	if rail.PositionMode != skeleton.PositionPercent || rail.SpacingMode != skeleton.SpacingLength ||
		rail.RotateMode != skeleton.RotateTangent || rail.Target != 2 || rail.MixY != 1 {
		t.Errorf("path = %+v", rail)
	}

	region, ok := skel.DefaultSkin.Attachment(0, "body").(*skeleton.RegionAttachment)
	if !ok || region.Path != "body" || region.Scale != (mgl32.Vec2{1, 1}) || region.Size != (mgl32.Vec2{20, 30}) {
		t.Errorf("region = %+v", region)
	}
	clip, ok := skel.DefaultSkin.Attachment(2, "clip").(*skeleton.ClippingAttachment)
	if !ok || clip.EndSlot != 1 || !clip.Vertices.IsWeighted() || clip.Color != skeleton.ClippingColor {
		t.Fatalf("clip = %+v", clip)
	}
	wantWeights := [][]skeleton.BoneWeight{
		{{Bone: 0, Offset: mgl32.Vec2{1, 2}, Weight: 0.5}},
		{{Bone: 2, Offset: mgl32.Vec2{3, 4}, Weight: 1}},
	}
	if diff := cmp.Diff(wantWeights, clip.Vertices.Weighted); diff != "" {
		t.Errorf("clip weights mismatch (-want +got):\n%s", diff)
	}
	box, ok := skel.DefaultSkin.Attachment(2, "box").(*skeleton.BoundingBoxAttachment)
	if !ok || box.Color != skeleton.BoundingBoxColor || box.Vertices.IsWeighted() {
		t.Errorf("box = %+v", box)
	}

	if len(skel.Skins) != 1 || skel.Skins[0].Name != "red" {
		t.Fatalf("Skins = %+v", skel.Skins)
	}
	linked, ok := skel.Skins[0].Attachment(0, "body").(*skeleton.LinkedMeshAttachment)
	if !ok || linked.Mesh == nil || !linked.InheritTimelines || linked.Path != "body-red" {
		t.Errorf("linked = %+v", linked)
	}

	if len(skel.Events) != 2 || skel.Events[0].Name != "step" || skel.Events[1].Volume != 1 {
		t.Errorf("Events = %+v", skel.Events)
	}
}

func TestParseAnimation(t *testing.T) {
	skel, err := Parse([]byte(fixture))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	walk := skel.FindAnimation("walk")
	if walk == nil || walk.Duration != 1 {
		t.Fatalf("walk = %+v", walk)
	}

	rotate := walk.Bones[0]
	if rotate.Bone != 1 || rotate.Kind != skeleton.BoneRotate || len(rotate.Keyframes) != 2 {
		t.Fatalf("rotate = %+v", rotate)
	}
	want := skeleton.Bezier{CX1: 0.25, CY1: 0, CX2: 0.75, CY2: 1}
	if curve := rotate.Keyframes[0].Curve; curve.Kind != skeleton.CurveBezier || curve.Beziers[0] != want {
		t.Errorf("rotate curve = %+v", curve)
	}
	if rotate.Keyframes[1].Curve != nil {
		t.Error("last keyframe carries a curve")
	}
	if scale := walk.Bones[1]; scale.Kind != skeleton.BoneScale || scale.Keyframes[0].Values[0] != 1 {
		t.Errorf("scale = %+v", scale)
	}

	attachment := walk.Slots[0]
	if attachment.Kind != skeleton.SlotAttachment || attachment.Attachments[0].Attachment != nil {
		t.Errorf("attachment timeline = %+v", attachment)
	}
	rgba := walk.Slots[1]
	if rgba.Keyframes[0].Curve.Kind != skeleton.CurveStepped || len(rgba.Keyframes[1].Values) != 4 {
		t.Errorf("rgba timeline = %+v", rgba)
	}

	if diff := cmp.Diff([]float32{1, 0.5, 0.5, 1, 1, 1}, walk.Transforms[0].Keyframes[0].Values); diff != "" {
		t.Errorf("transform values mismatch (-want +got):\n%s", diff)
	}

	deform := walk.Deforms[0]
	if deform.Skin != -1 || deform.Slot != 0 || deform.Attachment != "bag" {
		t.Fatalf("deform = %+v", deform)
	}
	if diff := cmp.Diff([]float32{0, 0, 11, 1, 10, 10}, deform.Keyframes[1].Values); diff != "" {
		t.Errorf("deform values mismatch (-want +got):\n%s", diff)
	}

	if diff := cmp.Diff([]int{1, 2, 0}, walk.DrawOrder[0].Order); diff != "" {
		t.Errorf("draw order mismatch (-want +got):\n%s", diff)
	}
	if walk.DrawOrder[1].Order != nil {
		t.Errorf("reset draw order = %v", walk.DrawOrder[1].Order)
	}

	step, sound := walk.Events[0], walk.Events[1]
	if step.Int != 3 || step.String != "left" || step.Volume != 1 {
		t.Errorf("step event = %+v", step)
	}
	if sound.Event != 1 || sound.Float != 1.5 || sound.Volume != 1 || sound.Balance != 0 {
		t.Errorf("sound event = %+v", sound)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name   string
		doc    string
		target any
	}{
		{
			name:   "syntax",
			doc:    `{"bones": [`,
			target: new(*skeleton.DecodeError),
		},
		{
			name:   "unknown parent",
			doc:    `{"bones": [{"name": "root"}, {"name": "a", "parent": "nope"}]}`,
			target: new(*skeleton.ReferenceError),
		},
		{
			name:   "forward parent",
			doc:    `{"bones": [{"name": "root"}, {"name": "a", "parent": "b"}, {"name": "b", "parent": "root"}]}`,
			target: new(*skeleton.StructuralError),
		},
		{
			name:   "duplicate root",
			doc:    `{"bones": [{"name": "root"}, {"name": "a"}]}`,
			target: new(*skeleton.StructuralError),
		},
		{
			name:   "unknown slot bone",
			doc:    `{"bones": [{"name": "root"}], "slots": [{"name": "s", "bone": "nope"}]}`,
			target: new(*skeleton.ReferenceError),
		},
		{
			name:   "bad color",
			doc:    `{"bones": [{"name": "root", "color": "zz"}]}`,
			target: new(*skeleton.DecodeError),
		},
		{
			name:   "unknown transform mode",
			doc:    `{"bones": [{"name": "root", "transform": "sideways"}]}`,
			target: new(*skeleton.DecodeError),
		},
		{
			name: "unknown attachment type",
			doc: `{"bones": [{"name": "root"}], "slots": [{"name": "s", "bone": "root"}],
				"skins": [{"name": "default", "attachments": {"s": {"a": {"type": "sprite"}}}}]}`,
			target: new(*skeleton.DecodeError),
		},
		{
			name: "missing parent mesh",
			doc: `{"bones": [{"name": "root"}], "slots": [{"name": "s", "bone": "root"}],
				"skins": [{"name": "default", "attachments": {"s": {"a": {"type": "linkedmesh", "parent": "nope"}}}}]}`,
			target: new(*skeleton.ReferenceError),
		},
		{
			name:   "unknown event",
			doc:    `{"bones": [{"name": "root"}], "animations": {"a": {"events": [{"name": "nope"}]}}}`,
			target: new(*skeleton.ReferenceError),
		},
		{
			name:   "unknown timeline",
			doc:    `{"bones": [{"name": "root"}], "animations": {"a": {"bones": {"root": {"wobble": [{}]}}}}}`,
			target: new(*skeleton.DecodeError),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			if err == nil {
				t.Fatal("Parse() succeeded")
			}
			if !errors.As(err, tt.target) {
				t.Errorf("Parse() error = %v (%T)", err, errors.Unwrap(err))
			}
		})
	}
}

func TestParseKeepsDocumentOrder(t *testing.T) {
	doc := `{"bones": [{"name": "root"}], "events": {"z": {}, "a": {}, "m": {}},
		"animations": {"run": {}, "idle": {}, "jump": {}}}`
	skel, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	names := []string{}
	for _, item := range skel.Events {
		names = append(names, item.Name)
	}
	for _, item := range skel.Animations {
		names = append(names, item.Name)
	}
	if diff := cmp.Diff([]string{"z", "a", "m", "run", "idle", "jump"}, names); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
}
