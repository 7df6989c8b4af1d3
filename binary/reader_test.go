package binary

import (
	"errors"
	"testing"
	"testing/quick"

	"github.com/sk2233/spinal/skeleton"
)

func TestDecodeVarint(t *testing.T) {
	tests := []struct {
		name  string
		data  []byte
		want  uint32
		count int
	}{
		{"single byte", []byte{0x7F}, 0x7F, 1},
		{"two bytes", []byte{0xFF, 0x7F}, 0x3FFF, 2},
		{"four bytes", []byte{0xFF, 0xFF, 0xFF, 0x7F}, 0xFFFFFFF, 4},
		{"five bytes low", []byte{0xFF, 0xFF, 0xFF, 0xFF, 0x01}, 0x1FFFFFFF, 5},
		{"five bytes", []byte{0xFF, 0xFF, 0xFF, 0xFF, 0x03}, 0x3FFFFFFF, 5},
		{"five bytes max", []byte{0xFF, 0xFF, 0xFF, 0xFF, 0x7F}, 0xFFFFFFFF, 5},
		{"stops after five", []byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0x01}, 0xFFFFFFFF, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, n := DecodeVarint(tt.data)
			if got != tt.want || n != tt.count {
				t.Errorf("DecodeVarint(%x) = %#x, %d; want %#x, %d", tt.data, got, n, tt.want, tt.count)
			}
		})
	}
}

func TestDecodeSignedVarint(t *testing.T) {
	tests := []struct {
		data []byte
		want int32
	}{
		{[]byte{0x00}, 0},
		{[]byte{0x01}, -1},
		{[]byte{0x02}, 1},
		{[]byte{0x03}, -2},
		{[]byte{0x7E}, 63},
		{[]byte{0x7F}, -64},
		{[]byte{0xFF, 0xFF, 0xFF, 0x7F}, -0x8000000},
		{[]byte{0xFE, 0xFF, 0xFF, 0x7F}, 0x7FFFFFF},
		{[]byte{0xFE, 0xFF, 0xFF, 0xFF, 0xFF}, 0x7FFFFFFF},
	}
	for _, tt := range tests {
		if got, _ := DecodeSignedVarint(tt.data); got != tt.want {
			t.Errorf("DecodeSignedVarint(%x) = %d, want %d", tt.data, got, tt.want)
		}
	}
}

func TestVarintRoundTrip(t *testing.T) {
	unsigned := func(v uint32) bool {
		data := AppendVarint(nil, v)
		got, n := DecodeVarint(data)
		return got == v && n == len(data)
	}
	if err := quick.Check(unsigned, nil); err != nil {
		t.Error(err)
	}
	signed := func(v int32) bool {
		data := AppendSignedVarint(nil, v)
		got, n := DecodeSignedVarint(data)
		return got == v && n == len(data)
	}
	if err := quick.Check(signed, nil); err != nil {
		t.Error(err)
	}
	for _, v := range []int32{0, -1, 1, 1<<31 - 1, -1 << 31} {
		if !signed(v) {
			t.Errorf("signed round trip failed for %d", v)
		}
	}
}

func TestVarintTruncated(t *testing.T) {
	r := &reader{data: []byte{0x80, 0x80}}
	_, err := r.varint("count")
	var decodeErr *skeleton.DecodeError
	if !errors.As(err, &decodeErr) || !errors.Is(err, skeleton.ErrTruncated) {
		t.Fatalf("varint() error = %v, want truncated DecodeError", err)
	}
	if decodeErr.Field != "count" || decodeErr.Offset != 0 {
		t.Errorf("DecodeError = %+v", decodeErr)
	}
}

func TestReaderStr(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		want    *string
		wantErr error
	}{
		{"null", []byte{0}, nil, nil},
		{"empty", []byte{1}, ptr(""), nil},
		{"ascii", []byte{4, 'a', 'b', 'c'}, ptr("abc"), nil},
		{"utf8", append([]byte{4}, "é!"...), ptr("é!"), nil},
		{"invalid utf8", []byte{3, 0xC3, 0x28}, nil, skeleton.ErrInvalidUTF8},
		{"truncated", []byte{5, 'a'}, nil, skeleton.ErrTruncated},
		{"huge length", []byte{0xFF, 0xFF, 0xFF, 0xFF, 0x0F}, nil, skeleton.ErrTruncated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &reader{data: tt.data}
			got, err := r.str("name")
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("str() error = %v, want %v", err, tt.wantErr)
			}
			if (got == nil) != (tt.want == nil) || (got != nil && *got != *tt.want) {
				t.Errorf("str() = %v, want %v", got, tt.want)
			}
			if err == nil && r.off != len(tt.data) {
				t.Errorf("offset = %d, want %d", r.off, len(tt.data))
			}
			if err != nil && r.off != 0 {
				t.Errorf("offset after error = %d, want 0", r.off)
			}
		})
	}
}

// 字符串恰好落在数据末尾
func TestReaderStrAtEnd(t *testing.T) {
	r := &reader{data: []byte{2, 'x', 3, 'y', 'z', 1}}
	for _, want := range []string{"x", "yz", ""} {
		got, err := r.str("name")
		if err != nil || got == nil || *got != want {
			t.Fatalf("str() = %v, %v; want %q", got, err, want)
		}
	}
}

func TestReaderStringRef(t *testing.T) {
	table := []string{"a", "b"}
	r := &reader{data: []byte{0, 1, 2, 3}}
	if got, err := r.stringRef(table, "ref"); err != nil || got != nil {
		t.Fatalf("ref 0 = %v, %v; want nil", got, err)
	}
	if got, err := r.stringRef(table, "ref"); err != nil || *got != "a" {
		t.Fatalf("ref 1 = %v, %v; want a", got, err)
	}
	if got, err := r.stringRef(table, "ref"); err != nil || *got != "b" {
		t.Fatalf("ref 2 = %v, %v; want b", got, err)
	}
	_, err := r.stringRef(table, "ref")
	var refErr *skeleton.ReferenceError
	if !errors.As(err, &refErr) || refErr.Index != 2 {
		t.Fatalf("ref 3 error = %v, want ReferenceError", err)
	}
}

func TestReaderBoolean(t *testing.T) {
	r := &reader{data: []byte{1, 0, 2}}
	for _, want := range []bool{true, false} {
		if got, err := r.boolean("flag"); err != nil || got != want {
			t.Fatalf("boolean() = %v, %v; want %v", got, err, want)
		}
	}
	if _, err := r.boolean("flag"); !errors.Is(err, skeleton.ErrInvalidValue) {
		t.Fatalf("boolean(2) error = %v, want ErrInvalidValue", err)
	}
}

func ptr(s string) *string {
	return &s
}
