// Package attrib synthesizes per-vertex tangent frames and packs them,
// together with texture coordinates, into 64-bit shading attributes.
//
// Normals use signed-octahedron encoding and tangents use diamond
// encoding, both quantized to 10 bits by truncation; texture coordinates
// are stored as half floats. See Packed for the bit layout.
//
// Processing is deterministic: the same input always yields the same
// output bits.
package attrib

import (
	"errors"
	"fmt"

	"golang.org/x/image/math/f32"

	"github.com/gogpu/assetc/strided"
)

// ErrIndexCount is returned when the index count is not a multiple of 3.
var ErrIndexCount = errors.New("attrib: index count is not a multiple of 3")

// Input is the geometry of one mesh.
// Normals and UVs are optional: an empty region means absent.
type Input struct {
	Positions strided.Region[f32.Vec3]
	Normals   strided.Region[f32.Vec3]
	UVs       strided.Region[f32.Vec2]
	Indices   strided.Region[uint32]
}

// Frame is an orthonormal tangent frame.
type Frame struct {
	Normal    f32.Vec3
	Tangent   f32.Vec3
	Bitangent f32.Vec3
}

// Processor holds the scratch buffers used while processing a mesh.
// A Processor must not be used by more than one goroutine at a time;
// give each worker its own.
type Processor struct {
	normals    []f32.Vec3
	tangents   []f32.Vec3
	bitangents []f32.Vec3
}

// NewProcessor returns a Processor with empty scratch buffers.
func NewProcessor() *Processor {
	return &Processor{}
}

// Process computes the tangent frame of every vertex in in and writes one
// Packed record per vertex to out.
func (p *Processor) Process(in Input, out strided.Region[Packed]) error {
	n := in.Positions.Len()
	if out.Len() < n {
		return fmt.Errorf("attrib: output region: %w", &strided.BoundsError{Index: n - 1, Count: out.Len()})
	}
	if err := p.accumulate(in); err != nil {
		return err
	}
	hasUV := in.UVs.Len() != 0
	for i := range n {
		f := p.frame(i)
		var uv f32.Vec2
		if hasUV {
			v, err := in.UVs.Get(i)
			if err != nil {
				return fmt.Errorf("attrib: uv: %w", err)
			}
			uv = *v
		}
		if err := out.Set(i, Encode(f.Normal, f.Tangent, uv)); err != nil {
			return err
		}
	}
	return nil
}

// Frames computes the tangent frame of every vertex without encoding it.
func (p *Processor) Frames(in Input) ([]Frame, error) {
	if err := p.accumulate(in); err != nil {
		return nil, err
	}
	frames := make([]Frame, in.Positions.Len())
	for i := range frames {
		frames[i] = p.frame(i)
	}
	return frames, nil
}

func (p *Processor) reset(n int) {
	p.normals = resize(p.normals, n)
	p.tangents = resize(p.tangents, n)
	p.bitangents = resize(p.bitangents, n)
}

func resize(s []f32.Vec3, n int) []f32.Vec3 {
	if cap(s) < n {
		return make([]f32.Vec3, n)
	}
	s = s[:n]
	clear(s)
	return s
}

// accumulate sums area-weighted face normals (when the input has none),
// tangents and bitangents into the scratch buffers.
func (p *Processor) accumulate(in Input) error {
	n := in.Positions.Len()
	if in.Normals.Len() != 0 && in.Normals.Len() != n {
		return fmt.Errorf("attrib: %d normals for %d positions", in.Normals.Len(), n)
	}
	if in.UVs.Len() != 0 && in.UVs.Len() != n {
		return fmt.Errorf("attrib: %d UVs for %d positions", in.UVs.Len(), n)
	}
	if in.Indices.Len()%3 != 0 {
		return fmt.Errorf("%w: %d", ErrIndexCount, in.Indices.Len())
	}
	p.reset(n)

	hasNormals := in.Normals.Len() != 0
	hasUV := in.UVs.Len() != 0
	if hasNormals {
		for i := range n {
			v, err := in.Normals.Get(i)
			if err != nil {
				return fmt.Errorf("attrib: normal: %w", err)
			}
			p.normals[i] = *v
		}
	}

	var (
		idx [3]int
		pos [3]f32.Vec3
		uv  [3]f32.Vec2
	)
	for t := 0; t < in.Indices.Len(); t += 3 {
		for k := range 3 {
			ip, err := in.Indices.Get(t + k)
			if err != nil {
				return fmt.Errorf("attrib: index: %w", err)
			}
			idx[k] = int(*ip)
			pp, err := in.Positions.Get(idx[k])
			if err != nil {
				return fmt.Errorf("attrib: triangle %d: %w", t/3, err)
			}
			pos[k] = *pp
			if hasUV {
				up, err := in.UVs.Get(idx[k])
				if err != nil {
					return fmt.Errorf("attrib: triangle %d: %w", t/3, err)
				}
				uv[k] = *up
			}
		}

		e1 := sub(pos[1], pos[0])
		e2 := sub(pos[2], pos[0])
		fn := cross(e1, e2)
		area := length(fn) / 2
		if !usable(area) {
			// Zero-area triangles have no orientation; skip them so they
			// contribute nothing to their vertices.
			continue
		}

		if !hasNormals {
			fn = scale(normalize(fn), area)
			for _, i := range idx {
				p.normals[i] = add(p.normals[i], fn)
			}
		}

		if !hasUV {
			continue
		}
		du1, dv1 := uv[1][0]-uv[0][0], uv[1][1]-uv[0][1]
		du2, dv2 := uv[2][0]-uv[0][0], uv[2][1]-uv[0][1]
		det := du1*dv2 - du2*dv1
		if !usable(abs(det)) {
			continue
		}
		r := 1 / det
		tan := normalize(scale(sub(scale(e1, dv2), scale(e2, dv1)), r))
		bit := normalize(scale(sub(scale(e2, du1), scale(e1, du2)), r))
		tan = scale(tan, area)
		bit = scale(bit, area)
		for _, i := range idx {
			p.tangents[i] = add(p.tangents[i], tan)
			p.bitangents[i] = add(p.bitangents[i], bit)
		}
	}
	return nil
}

// up is the normal of vertices that no usable triangle touches.
var up = f32.Vec3{0, 0, 1}

// frame finalizes the accumulated frame of vertex i.
func (p *Processor) frame(i int) Frame {
	nrm := normalize(p.normals[i])
	if nrm == (f32.Vec3{}) {
		nrm = up
	}
	tan := orthogonalize(p.tangents[i], nrm)
	if tan == (f32.Vec3{}) {
		tan = fallbackTangent(nrm)
	}
	bit := normalize(p.bitangents[i])
	if bit == (f32.Vec3{}) {
		bit = cross(nrm, tan)
	}
	return Frame{Normal: nrm, Tangent: tan, Bitangent: bit}
}

// orthogonalize removes the n component from t (Gram-Schmidt) and
// normalizes the result. It returns the zero vector when t is zero,
// NaN, infinite or parallel to n.
func orthogonalize(t, n f32.Vec3) f32.Vec3 {
	return normalize(sub(t, scale(n, dot(n, t))))
}

// fallbackTangent returns +X orthogonalized against n, or +Y when n is
// too close to the X axis for that to be stable.
func fallbackTangent(n f32.Vec3) f32.Vec3 {
	if abs(n[0]) < 0.9 {
		return orthogonalize(f32.Vec3{1, 0, 0}, n)
	}
	return orthogonalize(f32.Vec3{0, 1, 0}, n)
}
