// Package ir defines the canonical, format-agnostic scene description
// produced by format parsers and consumed once by the scene compiler.
//
// Entities refer to each other through typed optional indices (Ref).
// Parsers do not have to check them; Scene.Validate does.
package ir

import (
	"errors"
	"fmt"

	"golang.org/x/image/math/f32"
)

// ErrInvalidRef is matched by every RefError.
var ErrInvalidRef = errors.New("ir: invalid reference")

// RefError reports a reference that is set but not below the length
// of the referenced slice.
type RefError struct {
	Kind  string // kind of the referenced entity
	Owner string // entity holding the reference, if known
	Index int
	Len   int
}

func (e *RefError) Error() string {
	if e.Owner == "" {
		return fmt.Sprintf("ir: %s index %d out of range [0,%d)", e.Kind, e.Index, e.Len)
	}
	return fmt.Sprintf("ir: %s: %s index %d out of range [0,%d)", e.Owner, e.Kind, e.Index, e.Len)
}

// Is reports whether target is ErrInvalidRef.
func (e *RefError) Is(target error) bool { return target == ErrInvalidRef }

// Mesh is an indexed triangle list with a single material.
// Normals and UVs are optional; when present they have one entry
// per position.
type Mesh struct {
	Name      string
	Positions []f32.Vec3
	Normals   []f32.Vec3
	UVs       []f32.Vec2
	Indices   []uint32
	Material  Ref[Material]
}

// Transform is a 4×3 affine transform stored column-major:
// three basis columns followed by the translation.
type Transform = f32.Aff4

// Identity is the identity Transform.
var Identity = Transform{1, 0, 0, 0, 1, 0, 0, 0, 1, 0, 0, 0}

// Instance places a mesh in the world.
type Instance struct {
	Mesh      Ref[Mesh]
	Transform Transform
}

// Scene is the whole IR handed to the compiler.
type Scene struct {
	Textures  []Texture
	Materials []Material
	Meshes    []Mesh
	Instances []Instance
}

// Validate checks that every set reference in s is in range and that
// optional mesh attributes match the position count.
func (s *Scene) Validate() error {
	for i := range s.Materials {
		m := &s.Materials[i]
		for _, p := range m.Properties {
			tr, ok := p.Value.(TextureRef)
			if !ok {
				continue
			}
			if _, err := tr.Texture.Resolve(s.Textures); err != nil {
				return ownedBy(err, fmt.Sprintf("material %d %s", i, p.Semantic))
			}
		}
	}
	for i := range s.Meshes {
		m := &s.Meshes[i]
		if _, err := m.Material.Resolve(s.Materials); err != nil {
			return ownedBy(err, fmt.Sprintf("mesh %d", i))
		}
		n := len(m.Positions)
		if len(m.Normals) != 0 && len(m.Normals) != n {
			return fmt.Errorf("ir: mesh %d: %d normals for %d positions", i, len(m.Normals), n)
		}
		if len(m.UVs) != 0 && len(m.UVs) != n {
			return fmt.Errorf("ir: mesh %d: %d UVs for %d positions", i, len(m.UVs), n)
		}
		if len(m.Indices)%3 != 0 {
			return fmt.Errorf("ir: mesh %d: index count %d is not a multiple of 3", i, len(m.Indices))
		}
	}
	for i := range s.Instances {
		in := &s.Instances[i]
		if !in.Mesh.Valid() {
			return fmt.Errorf("ir: instance %d: mesh reference is unset", i)
		}
		if _, err := in.Mesh.Resolve(s.Meshes); err != nil {
			return ownedBy(err, fmt.Sprintf("instance %d", i))
		}
	}
	return nil
}

func ownedBy(err error, owner string) error {
	var re *RefError
	if errors.As(err, &re) {
		re.Owner = owner
	}
	return err
}
