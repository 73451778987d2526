package assetc

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// Magic starts every serialized scene.
const Magic = "ASC1"

// sceneWriter appends little-endian values to a buffer.
type sceneWriter struct {
	buf []byte
}

func (w *sceneWriter) u8(v uint8)    { w.buf = append(w.buf, v) }
func (w *sceneWriter) u32(v uint32)  { w.buf = binary.LittleEndian.AppendUint32(w.buf, v) }
func (w *sceneWriter) u64(v uint64)  { w.buf = binary.LittleEndian.AppendUint64(w.buf, v) }
func (w *sceneWriter) f32(v float32) { w.u32(math.Float32bits(v)) }
func (w *sceneWriter) count(n int)   { w.u32(uint32(n)) }

func (w *sceneWriter) bytes(b []byte) {
	w.count(len(b))
	w.buf = append(w.buf, b...)
}

func (w *sceneWriter) str(s string) {
	w.count(len(s))
	w.buf = append(w.buf, s...)
}

// Material flag bits in the serialized form.
const (
	flagAlphaMask  = 1 << 0
	flagAlphaBlend = 1 << 1
)

// WriteTo writes s in a deterministic little-endian binary form: the magic,
// then textures, materials, meshes and instances, each section prefixed by
// its element count. Entities refer to each other by position in s.
// Compiling the same IR twice with the same options writes the same bytes.
func (s *Scene) WriteTo(dst io.Writer) (int64, error) {
	textures := make(map[*Texture]uint32, len(s.Textures))
	for i, t := range s.Textures {
		textures[t] = uint32(i)
	}
	materials := make(map[*Material]uint32, len(s.Materials))
	for i, m := range s.Materials {
		materials[m] = uint32(i)
	}
	meshes := make(map[*Mesh]uint32, len(s.Meshes))
	for i, m := range s.Meshes {
		meshes[m] = uint32(i)
	}

	w := &sceneWriter{buf: []byte(Magic)}

	w.count(len(s.Textures))
	for _, t := range s.Textures {
		w.u32(uint32(t.Width))
		w.u32(uint32(t.Height))
		w.u32(uint32(t.Format))
		w.f32(t.MinAlpha)
		w.f32(t.MaxAlpha)
		w.bytes(t.Payload)
	}

	w.count(len(s.Materials))
	for i, m := range s.Materials {
		w.str(m.Name)
		for c, t := range m.Textures {
			idx, ok := textures[t]
			if !ok {
				return 0, fmt.Errorf("%w: material %d: %s texture is not in the scene", ErrInvalidScene, i, Channel(c))
			}
			w.u32(idx)
		}
		w.f32(m.AlphaCutoff)
		var flags uint8
		if m.AlphaMask {
			flags |= flagAlphaMask
		}
		if m.AlphaBlend {
			flags |= flagAlphaBlend
		}
		w.u8(flags)
	}

	w.count(len(s.Meshes))
	for i, m := range s.Meshes {
		w.str(m.Name)
		w.count(len(m.Positions))
		for _, p := range m.Positions {
			w.f32(p[0])
			w.f32(p[1])
			w.f32(p[2])
		}
		for _, a := range m.Attributes {
			w.u64(uint64(a))
		}
		w.count(len(m.Indices))
		for _, idx := range m.Indices {
			w.u32(idx)
		}
		w.count(len(m.Submeshes))
		for j, sm := range m.Submeshes {
			mat, ok := materials[sm.Material]
			if !ok {
				return 0, fmt.Errorf("%w: mesh %d: submesh %d material is not in the scene", ErrInvalidScene, i, j)
			}
			w.u32(sm.VertexOffset)
			w.u32(sm.MaxVertex)
			w.u32(sm.FirstIndex)
			w.u32(sm.IndexCount)
			w.u32(mat)
		}
	}

	w.count(len(s.Instances))
	for i, in := range s.Instances {
		mesh, ok := meshes[in.Mesh]
		if !ok {
			return 0, fmt.Errorf("%w: instance %d: mesh is not in the scene", ErrInvalidScene, i)
		}
		w.u32(mesh)
		for _, v := range in.Transform {
			w.f32(v)
		}
	}

	n, err := dst.Write(w.buf)
	return int64(n), err
}
