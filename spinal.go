// Package spinal loads Spine 4.1 skeletons (binary or JSON) and texture
// atlases, and poses them over time.
//
// The decoders live in the binary, skeljson and atlas packages and the pose
// engine in pose; this package wraps them behind one error type.
package spinal

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/sk2233/spinal/atlas"
	"github.com/sk2233/spinal/binary"
	"github.com/sk2233/spinal/pose"
	"github.com/sk2233/spinal/skeleton"
	"github.com/sk2233/spinal/skeljson"
)

// Error is returned by every function of this package. errors.As reaches the
// typed cause, e.g. *skeleton.DecodeError.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("spinal: %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

type options struct {
	log zerolog.Logger
}

type Option func(*options)

func WithLogger(log zerolog.Logger) Option {
	return func(o *options) {
		o.log = log
	}
}

func newOptions(opts []Option) options {
	res := options{log: zerolog.Nop()}
	for _, opt := range opts {
		opt(&res)
	}
	return res
}

func ParseBinary(data []byte, opts ...Option) (*skeleton.Skeleton, error) {
	o := newOptions(opts)
	res, err := binary.Parse(data, binary.WithLogger(o.log))
	if err != nil {
		return nil, &Error{Op: "parse binary", Err: err}
	}
	return res, nil
}

func ParseJSON(data []byte, opts ...Option) (*skeleton.Skeleton, error) {
	o := newOptions(opts)
	res, err := skeljson.Parse(data, skeljson.WithLogger(o.log))
	if err != nil {
		return nil, &Error{Op: "parse json", Err: err}
	}
	return res, nil
}

func ParseAtlas(text string, opts ...Option) (*atlas.Atlas, error) {
	o := newOptions(opts)
	res, err := atlas.Parse(text, atlas.WithLogger(o.log))
	if err != nil {
		return nil, &Error{Op: "parse atlas", Err: err}
	}
	return res, nil
}

func NewState(opts ...pose.Option) *pose.State {
	return pose.NewState(opts...)
}

// Load reads a skeleton file, .json files are decoded as JSON and anything
// else as binary.
func Load(path string, opts ...Option) (*skeleton.Skeleton, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &Error{Op: "load", Err: err}
	}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return ParseJSON(data, opts...)
	}
	return ParseBinary(data, opts...)
}

func LoadAtlas(path string, opts ...Option) (*atlas.Atlas, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &Error{Op: "load atlas", Err: err}
	}
	return ParseAtlas(string(data), opts...)
}

// Project pairs a skeleton with the atlas its attachments are packed in.
type Project struct {
	Skeleton *skeleton.Skeleton
	Atlas    *atlas.Atlas
}

func LoadProject(skelPath, atlasPath string, opts ...Option) (*Project, error) {
	skel, err := Load(skelPath, opts...)
	if err != nil {
		return nil, err
	}
	atl, err := LoadAtlas(atlasPath, opts...)
	if err != nil {
		return nil, err
	}
	return &Project{Skeleton: skel, Atlas: atl}, nil
}

// NewState creates a pose state whose slots resolve atlas indices against the project atlas.
func (p *Project) NewState(opts ...pose.Option) *pose.State {
	return pose.NewState(append([]pose.Option{pose.WithRegions(p.Atlas)}, opts...)...)
}
