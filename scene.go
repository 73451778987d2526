package assetc

import (
	"errors"
	"fmt"
	"unsafe"

	"github.com/gogpu/gputypes"
	"golang.org/x/image/math/f32"

	"github.com/gogpu/assetc/attrib"
	"github.com/gogpu/assetc/imageproc"
	"github.com/gogpu/assetc/ir"
)

// ErrInvalidScene is matched by every error returned from Scene.Validate.
var ErrInvalidScene = errors.New("assetc: invalid compiled scene")

// Texture is a compiled texture. Materials share *Texture values: two
// materials using the same source, or the same constant, hold the same
// pointer.
type Texture struct {
	Width, Height int
	Format        gputypes.TextureFormat
	// MinAlpha and MaxAlpha are the tracked alpha range in [0, 1].
	MinAlpha, MaxAlpha float32
	Payload            []byte
}

func fromProcessed(t *imageproc.Texture) *Texture {
	return &Texture{
		Width:    t.Width,
		Height:   t.Height,
		Format:   t.Format,
		MinAlpha: t.MinAlpha,
		MaxAlpha: t.MaxAlpha,
		Payload:  t.Payload,
	}
}

// Extent returns the texture size as a gputypes.Extent3D.
func (t *Texture) Extent() gputypes.Extent3D {
	return gputypes.Extent3D{Width: uint32(t.Width), Height: uint32(t.Height), DepthOrArrayLayers: 1}
}

// Channel is one of the texture slots of a compiled material.
type Channel uint8

// Material channels.
const (
	// ChannelBaseColor holds RGB color and alpha.
	ChannelBaseColor Channel = iota
	// ChannelNormal holds a tangent-space normal map.
	ChannelNormal
	// ChannelMetalRough holds roughness in G and metalness in B.
	ChannelMetalRough
	ChannelEmissive
	ChannelTransmission

	// NumChannels is the number of material channels.
	NumChannels = 5
)

// String implements fmt.Stringer.
func (c Channel) String() string {
	switch c {
	case ChannelBaseColor:
		return "base-color"
	case ChannelNormal:
		return "normal"
	case ChannelMetalRough:
		return "metal-rough"
	case ChannelEmissive:
		return "emissive"
	case ChannelTransmission:
		return "transmission"
	default:
		return "[!] invalid Channel value"
	}
}

// Material is a compiled material. Every channel is resolved: Textures
// never holds nil.
type Material struct {
	Name        string
	Textures    [NumChannels]*Texture
	AlphaCutoff float32
	// AlphaMask is set when the material asked for masking or when the
	// base color alpha drops below AlphaCutoff.
	AlphaMask bool
	// AlphaBlend is set for unmasked materials whose base color is not
	// fully opaque.
	AlphaBlend bool
}

// Texture returns the texture bound to channel c.
func (m *Material) Texture(c Channel) *Texture {
	return m.Textures[c]
}

// Submesh is a contiguous index range of a mesh drawn with one material.
// Indices in the range are relative to VertexOffset and address vertices
// up to MaxVertex inclusive.
type Submesh struct {
	VertexOffset uint32
	MaxVertex    uint32
	FirstIndex   uint32
	IndexCount   uint32
	Material     *Material
}

// Mesh is a compiled mesh. Positions and Attributes are parallel vertex
// streams; see VertexLayouts.
type Mesh struct {
	Name       string
	Positions  []f32.Vec3
	Attributes []attrib.Packed
	Indices    []uint32
	Submeshes  []Submesh
}

// Vertex stream shader locations.
const (
	PositionLocation   = 0
	AttributesLocation = 1
)

// VertexLayouts describes the two vertex buffers of m: tightly packed
// positions and packed shading attributes, read by the shader as
// two 32-bit words (see attrib.Packed for the bit layout).
func (m *Mesh) VertexLayouts() []gputypes.VertexBufferLayout {
	return []gputypes.VertexBufferLayout{
		{
			ArrayStride: uint64(unsafe.Sizeof(f32.Vec3{})),
			StepMode:    gputypes.VertexStepModeVertex,
			Attributes: []gputypes.VertexAttribute{
				{Format: gputypes.VertexFormatFloat32x3, Offset: 0, ShaderLocation: PositionLocation},
			},
		},
		{
			ArrayStride: uint64(unsafe.Sizeof(attrib.Packed(0))),
			StepMode:    gputypes.VertexStepModeVertex,
			Attributes: []gputypes.VertexAttribute{
				{Format: gputypes.VertexFormatUint32x2, Offset: 0, ShaderLocation: AttributesLocation},
			},
		},
	}
}

// IndexFormat returns the format of m.Indices.
func (m *Mesh) IndexFormat() gputypes.IndexFormat {
	return gputypes.IndexFormatUint32
}

// Instance places a compiled mesh in the world. Instances of the same IR
// mesh share one *Mesh.
type Instance struct {
	Mesh      *Mesh
	Transform ir.Transform
}

// Scene is the output of a compile.
type Scene struct {
	// Textures lists every texture referenced by a material, in order of
	// first reference.
	Textures  []*Texture
	Materials []*Material
	Meshes    []*Mesh
	Instances []Instance
}

// Validate checks the structural invariants of s: every material channel
// is bound to a texture of s, vertex streams have equal length, and every
// submesh range and index stays within its mesh.
func (s *Scene) Validate() error {
	textures := make(map[*Texture]bool, len(s.Textures))
	for _, t := range s.Textures {
		textures[t] = true
	}
	materials := make(map[*Material]bool, len(s.Materials))
	for i, m := range s.Materials {
		materials[m] = true
		for c, t := range m.Textures {
			if !textures[t] {
				return fmt.Errorf("%w: material %d: %s texture is not in the scene", ErrInvalidScene, i, Channel(c))
			}
		}
	}
	meshes := make(map[*Mesh]bool, len(s.Meshes))
	for i, m := range s.Meshes {
		meshes[m] = true
		if err := m.validate(materials); err != nil {
			return fmt.Errorf("%w: mesh %d: %w", ErrInvalidScene, i, err)
		}
	}
	for i, in := range s.Instances {
		if !meshes[in.Mesh] {
			return fmt.Errorf("%w: instance %d: mesh is not in the scene", ErrInvalidScene, i)
		}
	}
	return nil
}

func (m *Mesh) validate(materials map[*Material]bool) error {
	if len(m.Attributes) != len(m.Positions) {
		return fmt.Errorf("%d attributes for %d positions", len(m.Attributes), len(m.Positions))
	}
	for j, sm := range m.Submeshes {
		if !materials[sm.Material] {
			return fmt.Errorf("submesh %d: material is not in the scene", j)
		}
		end := uint64(sm.FirstIndex) + uint64(sm.IndexCount)
		if end > uint64(len(m.Indices)) {
			return fmt.Errorf("submesh %d: indices [%d,%d) out of range [0,%d)", j, sm.FirstIndex, end, len(m.Indices))
		}
		if sm.IndexCount == 0 {
			continue
		}
		if sm.VertexOffset > sm.MaxVertex || int(sm.MaxVertex) >= len(m.Positions) {
			return fmt.Errorf("submesh %d: vertices [%d,%d] out of range [0,%d)", j, sm.VertexOffset, sm.MaxVertex, len(m.Positions))
		}
		for _, idx := range m.Indices[sm.FirstIndex:end] {
			if v := uint64(sm.VertexOffset) + uint64(idx); v > uint64(sm.MaxVertex) {
				return fmt.Errorf("submesh %d: index %d addresses vertex %d past %d", j, idx, v, sm.MaxVertex)
			}
		}
	}
	return nil
}
