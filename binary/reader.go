package binary

import (
	"encoding/binary"
	"math"
	"unicode/utf8"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/sk2233/spinal/skeleton"
)

// reader walks a byte slice and reports errors with the offset they occurred at.
type reader struct {
	data []byte
	off  int
}

func (r *reader) fail(field string, err error) error {
	return &skeleton.DecodeError{Offset: r.off, Field: field, Err: err}
}

func (r *reader) bytes(count int, field string) ([]byte, error) {
	if count < 0 || len(r.data)-r.off < count {
		return nil, r.fail(field, skeleton.ErrTruncated)
	}
	res := r.data[r.off : r.off+count]
	r.off += count
	return res, nil
}

func (r *reader) u8(field string) (uint8, error) {
	bs, err := r.bytes(1, field)
	if err != nil {
		return 0, err
	}
	return bs[0], nil
}

func (r *reader) i8(field string) (int8, error) {
	v, err := r.u8(field)
	return int8(v), err
}

func (r *reader) boolean(field string) (bool, error) {
	v, err := r.u8(field)
	if err != nil {
		return false, err
	}
	if v > 1 {
		r.off--
		return false, r.fail(field, skeleton.ErrInvalidValue)
	}
	return v == 1, nil
}

func (r *reader) u16(field string) (uint16, error) {
	bs, err := r.bytes(2, field)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(bs), nil
}

func (r *reader) u32(field string) (uint32, error) {
	bs, err := r.bytes(4, field)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(bs), nil
}

func (r *reader) i32(field string) (int32, error) {
	v, err := r.u32(field)
	return int32(v), err
}

func (r *reader) u64(field string) (uint64, error) {
	bs, err := r.bytes(8, field)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(bs), nil
}

func (r *reader) f32(field string) (float32, error) {
	v, err := r.u32(field)
	return math.Float32frombits(v), err
}

func (r *reader) vec2(field string) (mgl32.Vec2, error) {
	x, err := r.f32(field)
	if err != nil {
		return mgl32.Vec2{}, err
	}
	y, err := r.f32(field)
	return mgl32.Vec2{x, y}, err
}

func (r *reader) color(field string) (mgl32.Vec4, error) {
	v, err := r.u32(field)
	return skeleton.ColorFromRGBA8888(v), err
}

func (r *reader) varint(field string) (uint32, error) {
	res, n := DecodeVarint(r.data[r.off:])
	if n == 0 {
		return 0, r.fail(field, skeleton.ErrTruncated)
	}
	r.off += n
	return res, nil
}

func (r *reader) signedVarint(field string) (int32, error) {
	v, err := r.varint(field)
	return zigzag(v), err
}

// count reads a varint used as a length and rejects values the remaining data cannot hold.
func (r *reader) count(field string) (int, error) {
	start := r.off
	v, err := r.varint(field)
	if err != nil {
		return 0, err
	}
	if int64(v) > int64(len(r.data)-r.off) {
		r.off = start
		return 0, r.fail(field, skeleton.ErrTruncated)
	}
	return int(v), nil
}

// index reads a varint and checks it against [0, limit).
func (r *reader) index(field, kind string, limit int) (int, error) {
	v, err := r.varint(field)
	if err != nil {
		return 0, err
	}
	if int64(v) >= int64(limit) {
		return 0, &skeleton.ReferenceError{Kind: kind, Index: int(v)}
	}
	return int(v), nil
}

// tag reads a varint discriminant in [0, limit).
func (r *reader) tag(field string, limit int) (int, error) {
	start := r.off
	v, err := r.varint(field)
	if err != nil {
		return 0, err
	}
	if int64(v) >= int64(limit) {
		r.off = start
		return 0, r.fail(field, skeleton.ErrUnknownTag)
	}
	return int(v), nil
}

// str 0 为 nil，1 为空串，n 为 n-1 个字节
func (r *reader) str(field string) (*string, error) {
	start := r.off
	count, err := r.varint(field)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, nil
	}
	if int64(count-1) > int64(len(r.data)-r.off) {
		r.off = start
		return nil, r.fail(field, skeleton.ErrTruncated)
	}
	bs, _ := r.bytes(int(count-1), field)
	if !utf8.Valid(bs) {
		r.off = start
		return nil, r.fail(field, skeleton.ErrInvalidUTF8)
	}
	res := string(bs)
	return &res, nil
}

func (r *reader) strOr(field, def string) (string, error) {
	res, err := r.str(field)
	if err != nil || res == nil {
		return def, err
	}
	return *res, nil
}

// stringRef 0 为 nil，n 为 table[n-1]
func (r *reader) stringRef(table []string, field string) (*string, error) {
	v, err := r.varint(field)
	if err != nil {
		return nil, err
	}
	if v == 0 {
		return nil, nil
	}
	if int64(v) > int64(len(table)) {
		return nil, &skeleton.ReferenceError{Kind: "string", Index: int(v - 1)}
	}
	return &table[v-1], nil
}

func (r *reader) floats(count int, field string) ([]float32, error) {
	if count < 0 || int64(count)*4 > int64(len(r.data)-r.off) {
		return nil, r.fail(field, skeleton.ErrTruncated)
	}
	res := make([]float32, count)
	for i := range res {
		res[i], _ = r.f32(field)
	}
	return res, nil
}

// DecodeVarint decodes an unsigned varint of at most 5 bytes and returns
// the value and the number of bytes consumed, 0 when data is truncated.
func DecodeVarint(data []byte) (uint32, int) {
	res := uint32(0)
	for i := 0; i < 5; i++ {
		if i >= len(data) {
			return 0, 0
		}
		b := data[i]
		res |= uint32(b&0x7F) << (7 * i)
		if b&0x80 == 0 {
			return res, i + 1
		}
	}
	return res, 5 // 第 5 个字节后直接结束，多余位丢弃
}

func DecodeSignedVarint(data []byte) (int32, int) {
	v, n := DecodeVarint(data)
	return zigzag(v), n
}

func AppendVarint(dst []byte, v uint32) []byte {
	for v >= 0x80 {
		dst = append(dst, byte(v)|0x80)
		v >>= 7
	}
	return append(dst, byte(v))
}

func AppendSignedVarint(dst []byte, v int32) []byte {
	return AppendVarint(dst, uint32(v<<1)^uint32(v>>31))
}

func zigzag(v uint32) int32 {
	if v&1 != 0 {
		return -int32(v>>1) - 1
	}
	return int32(v >> 1)
}
