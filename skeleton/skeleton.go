// Package skeleton holds the decoded, read-only skeleton data shared by
// the binary and JSON decoders and the pose engine.
package skeleton

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

type Info struct {
	Hash         string // 校验文件
	Version      string // 校验版本
	Origin       mgl32.Vec2
	Size         mgl32.Vec2
	Nonessential bool
	FPS          *float32
	ImagesPath   *string
	AudioPath    *string
}

// Skeleton is never modified once a decoder returns it.
type Skeleton struct {
	Info        Info
	Strings     []string // 仅二进制格式使用
	Bones       []*Bone
	Slots       []*Slot
	IK          []*IKConstraint
	Transforms  []*TransformConstraint
	Paths       []*PathConstraint
	DefaultSkin *Skin
	Skins       []*Skin
	Events      []*EventData
	Animations  []*Animation

	children [][]int
}

// Build checks the bone hierarchy and slot bone references, then builds the
// parent->children adjacency list. Decoders call it once before returning.
func (s *Skeleton) Build() error {
	children := make([][]int, len(s.Bones))
	for i, bone := range s.Bones {
		switch {
		case i == 0 && bone.Parent != -1:
			return &StructuralError{Bone: bone.Name, Index: i, Reason: "first bone must be the root"}
		case i > 0 && bone.Parent == -1:
			return &StructuralError{Bone: bone.Name, Index: i, Reason: "duplicate root"}
		case i > 0 && (bone.Parent < 0 || bone.Parent >= i):
			return &StructuralError{Bone: bone.Name, Index: i,
				Reason: fmt.Sprintf("parent %d is not defined before the bone", bone.Parent)}
		case !bone.Transform.Valid():
			return &StructuralError{Bone: bone.Name, Index: i,
				Reason: fmt.Sprintf("unknown transform mode %d", bone.Transform)}
		}
		if i > 0 {
			children[bone.Parent] = append(children[bone.Parent], i)
		}
	}
	for _, slot := range s.Slots {
		if slot.Bone < 0 || slot.Bone >= len(s.Bones) {
			return &ReferenceError{Kind: "bone", Index: slot.Bone}
		}
	}
	s.children = children
	return nil
}

// Children of bone in definition order.
func (s *Skeleton) Children(bone int) []int {
	if bone < 0 || bone >= len(s.children) {
		return nil
	}
	return s.children[bone]
}

func (s *Skeleton) FindBone(name string) int {
	for i, item := range s.Bones {
		if item.Name == name {
			return i
		}
	}
	return -1
}

func (s *Skeleton) FindSlot(name string) int {
	for i, item := range s.Slots {
		if item.Name == name {
			return i
		}
	}
	return -1
}

// FindSkin returns -1 with ok for the default skin.
func (s *Skeleton) FindSkin(name string) (int, bool) {
	if name == "default" && s.DefaultSkin != nil {
		return -1, true
	}
	for i, item := range s.Skins {
		if item.Name == name {
			return i, true
		}
	}
	return 0, false
}

// Skin resolves a FindSkin index.
func (s *Skeleton) Skin(index int) *Skin {
	if index < 0 || index >= len(s.Skins) {
		return s.DefaultSkin
	}
	return s.Skins[index]
}

func (s *Skeleton) FindAnimation(name string) *Animation {
	for _, item := range s.Animations {
		if item.Name == name {
			return item
		}
	}
	return nil
}

func (s *Skeleton) FindEvent(name string) int {
	for i, item := range s.Events {
		if item.Name == name {
			return i
		}
	}
	return -1
}

func (s *Skeleton) FindIK(name string) int {
	for i, item := range s.IK {
		if item.Name == name {
			return i
		}
	}
	return -1
}

func (s *Skeleton) FindTransform(name string) int {
	for i, item := range s.Transforms {
		if item.Name == name {
			return i
		}
	}
	return -1
}

func (s *Skeleton) FindPath(name string) int {
	for i, item := range s.Paths {
		if item.Name == name {
			return i
		}
	}
	return -1
}

// ResolveLinkedMeshes points every linked mesh at its parent mesh. The parent
// is looked up in the named skin (or the default skin) under the same slot.
func (s *Skeleton) ResolveLinkedMeshes() error {
	var err error
	resolve := func(slot int, entry SkinEntry) {
		linked, ok := entry.Attachment.(*LinkedMeshAttachment)
		if !ok || err != nil {
			return
		}
		skin := s.DefaultSkin
		if linked.Skin != "" {
			idx, found := s.FindSkin(linked.Skin)
			if !found {
				err = &ReferenceError{Kind: "skin", Name: linked.Skin}
				return
			}
			skin = s.Skin(idx)
		}
		mesh, ok := skin.Attachment(slot, linked.Parent).(*MeshAttachment)
		if !ok {
			err = &ReferenceError{Kind: "parent mesh", Name: linked.Parent}
			return
		}
		linked.Mesh = mesh
	}
	s.DefaultSkin.Each(resolve)
	for _, skin := range s.Skins {
		skin.Each(resolve)
	}
	return err
}
