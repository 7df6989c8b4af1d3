package skeleton

import (
	"fmt"
	"strconv"

	"github.com/go-gl/mathgl/mgl32"
)

var (
	White            = mgl32.Vec4{1, 1, 1, 1}
	BoneColor        = mustColor("989898FF")
	BoundingBoxColor = mustColor("60F000FF")
	PathColor        = mustColor("FF7F00FF")
	PointColor       = mustColor("F1F100FF")
	ClippingColor    = mustColor("CE3A3AFF")
)

// ColorFromRGBA8888 unpacks 0xRRGGBBAA into [0,1] channels.
func ColorFromRGBA8888(v uint32) mgl32.Vec4 {
	return mgl32.Vec4{
		float32(v>>24&0xFF) / 0xFF,
		float32(v>>16&0xFF) / 0xFF,
		float32(v>>8&0xFF) / 0xFF,
		float32(v&0xFF) / 0xFF,
	}
}

// ParseColor reads RRGGBB or RRGGBBAA, alpha defaults to opaque.
func ParseColor(hex string) (mgl32.Vec4, error) {
	if len(hex) != 6 && len(hex) != 8 {
		return mgl32.Vec4{}, fmt.Errorf("color %q: %w", hex, ErrInvalidValue)
	}
	res := mgl32.Vec4{0, 0, 0, 1}
	for i := 0; i < len(hex)/2; i++ {
		v, err := strconv.ParseUint(hex[i*2:i*2+2], 16, 8)
		if err != nil {
			return mgl32.Vec4{}, fmt.Errorf("color %q: %w", hex, ErrInvalidValue)
		}
		res[i] = float32(v) / 0xFF
	}
	return res, nil
}

func mustColor(hex string) mgl32.Vec4 {
	res, err := ParseColor(hex)
	if err != nil {
		panic(err)
	}
	return res
}
