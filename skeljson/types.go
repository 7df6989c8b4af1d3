package skeljson

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/sk2233/spinal/skeleton"
)

// entry keeps one key of a JSON object, object keeps them in document order.
type entry[T any] struct {
	Key   string
	Value T
}

type object[T any] []entry[T]

func (o *object[T]) UnmarshalJSON(data []byte) error {
	if string(bytes.TrimSpace(data)) == "null" {
		*o = nil
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("expected object, got %v: %w", tok, skeleton.ErrInvalidValue)
	}
	res := object[T]{}
	for dec.More() {
		tok, err = dec.Token()
		if err != nil {
			return err
		}
		key, _ := tok.(string)
		var value T
		if err = dec.Decode(&value); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		res = append(res, entry[T]{Key: key, Value: value})
	}
	if _, err = dec.Token(); err != nil {
		return err
	}
	*o = res
	return nil
}

type jsonSkeleton struct {
	Skeleton   jsonInfo              `json:"skeleton"`
	Bones      []jsonBone            `json:"bones"`
	Slots      []jsonSlot            `json:"slots"`
	IK         []jsonIK              `json:"ik"`
	Transform  []jsonTransform       `json:"transform"`
	Path       []jsonPath            `json:"path"`
	Skins      []jsonSkin            `json:"skins"`
	Events     object[jsonEvent]     `json:"events"`
	Animations object[jsonAnimation] `json:"animations"`
}

type jsonInfo struct {
	Hash   string  `json:"hash"`
	Spine  string  `json:"spine"`
	X      float32 `json:"x"`
	Y      float32 `json:"y"`
	Width  float32 `json:"width"`
	Height float32 `json:"height"`
	FPS    float32 `json:"fps"`
	Images *string `json:"images"`
	Audio  *string `json:"audio"`
}

func (i *jsonInfo) UnmarshalJSON(data []byte) error {
	type plain jsonInfo
	res := plain{FPS: 30}
	if err := json.Unmarshal(data, &res); err != nil {
		return err
	}
	*i = jsonInfo(res)
	return nil
}

type jsonBone struct {
	Name      string  `json:"name"`
	Parent    *string `json:"parent"`
	Length    float32 `json:"length"`
	Transform string  `json:"transform"`
	Skin      bool    `json:"skin"`
	X         float32 `json:"x"`
	Y         float32 `json:"y"`
	Rotation  float32 `json:"rotation"`
	ScaleX    float32 `json:"scaleX"`
	ScaleY    float32 `json:"scaleY"`
	ShearX    float32 `json:"shearX"`
	ShearY    float32 `json:"shearY"`
	Color     string  `json:"color"`
}

func (b *jsonBone) UnmarshalJSON(data []byte) error {
	type plain jsonBone
	res := plain{Transform: "normal", ScaleX: 1, ScaleY: 1, Color: "989898FF"}
	if err := json.Unmarshal(data, &res); err != nil {
		return err
	}
	*b = jsonBone(res)
	return nil
}

type jsonSlot struct {
	Name       string  `json:"name"`
	Bone       string  `json:"bone"`
	Color      string  `json:"color"`
	Dark       *string `json:"dark"`
	Attachment *string `json:"attachment"`
	Blend      string  `json:"blend"`
}

func (s *jsonSlot) UnmarshalJSON(data []byte) error {
	type plain jsonSlot
	res := plain{Color: "FFFFFFFF", Blend: "normal"}
	if err := json.Unmarshal(data, &res); err != nil {
		return err
	}
	*s = jsonSlot(res)
	return nil
}

type jsonIK struct {
	Name         string   `json:"name"`
	Order        int      `json:"order"`
	Skin         bool     `json:"skin"`
	Bones        []string `json:"bones"`
	Target       string   `json:"target"`
	Mix          float32  `json:"mix"`
	Softness     float32  `json:"softness"`
	BendPositive bool     `json:"bendPositive"`
	Compress     bool     `json:"compress"`
	Stretch      bool     `json:"stretch"`
	Uniform      bool     `json:"uniform"`
}

func (c *jsonIK) UnmarshalJSON(data []byte) error {
	type plain jsonIK
	res := plain{Mix: 1, BendPositive: true}
	if err := json.Unmarshal(data, &res); err != nil {
		return err
	}
	*c = jsonIK(res)
	return nil
}

type jsonTransform struct {
	Name      string   `json:"name"`
	Order     int      `json:"order"`
	Skin      bool     `json:"skin"`
	Bones     []string `json:"bones"`
	Target    string   `json:"target"`
	Local     bool     `json:"local"`
	Relative  bool     `json:"relative"`
	Rotation  float32  `json:"rotation"`
	X         float32  `json:"x"`
	Y         float32  `json:"y"`
	ScaleX    float32  `json:"scaleX"`
	ScaleY    float32  `json:"scaleY"`
	ShearY    float32  `json:"shearY"`
	MixRotate float32  `json:"mixRotate"`
	MixX      float32  `json:"mixX"`
	MixY      *float32 `json:"mixY"`
	MixScaleX float32  `json:"mixScaleX"`
	MixScaleY *float32 `json:"mixScaleY"`
	MixShearY float32  `json:"mixShearY"`
}

func (c *jsonTransform) UnmarshalJSON(data []byte) error {
	type plain jsonTransform
	res := plain{MixRotate: 1, MixX: 1, MixScaleX: 1, MixShearY: 1}
	if err := json.Unmarshal(data, &res); err != nil {
		return err
	}
	// mixY mixScaleY 缺省时跟随 x
	if res.MixY == nil {
		res.MixY = &res.MixX
	}
	if res.MixScaleY == nil {
		res.MixScaleY = &res.MixScaleX
	}
	*c = jsonTransform(res)
	return nil
}

type jsonPath struct {
	Name         string   `json:"name"`
	Order        int      `json:"order"`
	Skin         bool     `json:"skin"`
	Bones        []string `json:"bones"`
	Target       string   `json:"target"`
	PositionMode string   `json:"positionMode"`
	SpacingMode  string   `json:"spacingMode"`
	RotateMode   string   `json:"rotateMode"`
	Rotation     float32  `json:"rotation"`
	Position     float32  `json:"position"`
	Spacing      float32  `json:"spacing"`
	MixRotate    float32  `json:"mixRotate"`
	MixX         float32  `json:"mixX"`
	MixY         *float32 `json:"mixY"`
}

func (c *jsonPath) UnmarshalJSON(data []byte) error {
	type plain jsonPath
	res := plain{PositionMode: "percent", SpacingMode: "length", RotateMode: "tangent", MixRotate: 1, MixX: 1}
	if err := json.Unmarshal(data, &res); err != nil {
		return err
	}
	if res.MixY == nil {
		res.MixY = &res.MixX
	}
	*c = jsonPath(res)
	return nil
}

type jsonSkin struct {
	Name        string                         `json:"name"`
	Bones       []string                       `json:"bones"`
	IK          []string                       `json:"ik"`
	Transform   []string                       `json:"transform"`
	Path        []string                       `json:"path"`
	Attachments object[object[jsonAttachment]] `json:"attachments"`
}

type jsonSequence struct {
	Count  int `json:"count"`
	Start  int `json:"start"`
	Digits int `json:"digits"`
	Setup  int `json:"setup"`
}

func (s *jsonSequence) UnmarshalJSON(data []byte) error {
	type plain jsonSequence
	res := plain{Start: 1}
	if err := json.Unmarshal(data, &res); err != nil {
		return err
	}
	*s = jsonSequence(res)
	return nil
}

// jsonAttachment is the union of every attachment type's keys.
// Color stays empty when omitted since its default depends on Type.
type jsonAttachment struct {
	Type     string  `json:"type"`
	Name     string  `json:"name"`
	Path     string  `json:"path"`
	Color    string  `json:"color"`
	X        float32 `json:"x"`
	Y        float32 `json:"y"`
	Rotation float32 `json:"rotation"`
	ScaleX   float32 `json:"scaleX"`
	ScaleY   float32 `json:"scaleY"`
	Width    float32 `json:"width"`
	Height   float32 `json:"height"`
	// mesh
	UVs       []float32 `json:"uvs"`
	Triangles []uint16  `json:"triangles"`
	Vertices  []float32 `json:"vertices"`
	Hull      int       `json:"hull"`
	Edges     []uint16  `json:"edges"`
	// linkedmesh
	Skin      string `json:"skin"`
	Parent    string `json:"parent"`
	Timelines *bool  `json:"timelines"`
	Deform    *bool  `json:"deform"` // 旧版本字段名
	// boundingbox path clipping
	VertexCount   int       `json:"vertexCount"`
	Closed        bool      `json:"closed"`
	ConstantSpeed bool      `json:"constantSpeed"`
	Lengths       []float32 `json:"lengths"`
	End           *string   `json:"end"`

	Sequence *jsonSequence `json:"sequence"`
}

func (a *jsonAttachment) UnmarshalJSON(data []byte) error {
	type plain jsonAttachment
	res := plain{Type: "region", ScaleX: 1, ScaleY: 1, ConstantSpeed: true}
	if err := json.Unmarshal(data, &res); err != nil {
		return err
	}
	*a = jsonAttachment(res)
	return nil
}

type jsonEvent struct {
	Int     int32   `json:"int"`
	Float   float32 `json:"float"`
	String  string  `json:"string"`
	Audio   *string `json:"audio"`
	Volume  float32 `json:"volume"`
	Balance float32 `json:"balance"`
}

func (e *jsonEvent) UnmarshalJSON(data []byte) error {
	type plain jsonEvent
	res := plain{Volume: 1}
	if err := json.Unmarshal(data, &res); err != nil {
		return err
	}
	*e = jsonEvent(res)
	return nil
}

type jsonAnimation struct {
	Slots       object[object[[]jsonFrame]]                 `json:"slots"`
	Bones       object[object[[]jsonFrame]]                 `json:"bones"`
	IK          object[[]jsonFrame]                         `json:"ik"`
	Transform   object[[]jsonFrame]                         `json:"transform"`
	Path        object[object[[]jsonFrame]]                 `json:"path"`
	Attachments object[object[object[object[[]jsonFrame]]]] `json:"attachments"`
	Deform      object[object[object[[]jsonFrame]]]         `json:"deform"` // 旧版本只有 deform
	DrawOrder   []jsonFrame                                 `json:"drawOrder"`
	Events      []jsonFrame                                 `json:"events"`
}

type jsonOffset struct {
	Slot   string `json:"slot"`
	Offset int    `json:"offset"`
}

// jsonFrame is the union of every keyframe's keys. Pointers mark keys whose
// default depends on the timeline kind.
type jsonFrame struct {
	Time  float32         `json:"time"`
	Curve json.RawMessage `json:"curve"`
	Value *float32        `json:"value"`
	Angle *float32        `json:"angle"` // 旧版本 rotate 使用
	X     *float32        `json:"x"`
	Y     *float32        `json:"y"`
	Name  *string         `json:"name"`
	Color string          `json:"color"`
	Light string          `json:"light"`
	Dark  string          `json:"dark"`
	// ik
	Mix          *float32 `json:"mix"`
	Softness     float32  `json:"softness"`
	BendPositive *bool    `json:"bendPositive"`
	Compress     bool     `json:"compress"`
	Stretch      bool     `json:"stretch"`
	// transform path
	MixRotate *float32 `json:"mixRotate"`
	MixX      *float32 `json:"mixX"`
	MixY      *float32 `json:"mixY"`
	MixScaleX *float32 `json:"mixScaleX"`
	MixScaleY *float32 `json:"mixScaleY"`
	MixShearY *float32 `json:"mixShearY"`
	// deform
	Offset   int       `json:"offset"`
	Vertices []float32 `json:"vertices"`
	// sequence
	Mode  string  `json:"mode"`
	Index int     `json:"index"`
	Delay float32 `json:"delay"`
	// draw order
	Offsets []jsonOffset `json:"offsets"`
	// event
	Int     *int32   `json:"int"`
	Float   *float32 `json:"float"`
	String  *string  `json:"string"`
	Volume  *float32 `json:"volume"`
	Balance *float32 `json:"balance"`
}

func or[T any](v *T, def T) T {
	if v == nil {
		return def
	}
	return *v
}
