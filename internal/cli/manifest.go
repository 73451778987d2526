package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/image/math/f32"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/gogpu/assetc/ir"
)

// Manifest is the YAML form of an IR scene. Entities refer to each other
// by name; relative texture paths are resolved against the manifest's
// directory.
type Manifest struct {
	Textures  []TextureSpec  `yaml:"textures"`
	Materials []MaterialSpec `yaml:"materials"`
	Meshes    []MeshSpec     `yaml:"meshes"`
	Instances []InstanceSpec `yaml:"instances"`
}

// TextureSpec names exactly one source: File is processed from disk,
// Embedded is read by the loader and handed over as bytes, Raw gives
// pixels inline.
type TextureSpec struct {
	Name     string   `yaml:"name"`
	File     string   `yaml:"file"`
	Embedded string   `yaml:"embedded"`
	Raw      *RawSpec `yaml:"raw"`
}

// RawSpec is an inline pixel buffer.
type RawSpec struct {
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
	Format string `yaml:"format"` // "rgba8" | "rgb8" | "gray8"
	Pixels []byte `yaml:"pixels"`
}

// MaterialSpec is a named, ordered property list.
type MaterialSpec struct {
	Name       string         `yaml:"name"`
	Properties []PropertySpec `yaml:"properties"`
}

// PropertySpec holds one of Texture, Value (1 to 4 components) or Bool.
type PropertySpec struct {
	Semantic string    `yaml:"semantic"`
	Texture  string    `yaml:"texture"`
	Swizzle  string    `yaml:"swizzle"`
	Value    []float32 `yaml:"value"`
	Bool     *bool     `yaml:"bool"`
}

// MeshSpec is an indexed triangle list.
type MeshSpec struct {
	Name      string       `yaml:"name"`
	Positions [][3]float32 `yaml:"positions"`
	Normals   [][3]float32 `yaml:"normals"`
	UVs       [][2]float32 `yaml:"uvs"`
	Indices   []uint32     `yaml:"indices"`
	Material  string       `yaml:"material"`
}

// InstanceSpec places a mesh. An empty transform is the identity.
type InstanceSpec struct {
	Mesh      string    `yaml:"mesh"`
	Transform []float32 `yaml:"transform"`
}

// LoadManifest reads and converts a scene manifest.
func LoadManifest(path string) (*ir.Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	var m Manifest
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", path, err)
	}
	return m.Scene(filepath.Dir(path))
}

// Scene converts m to an IR scene, reading embedded textures relative to
// baseDir concurrently.
func (m *Manifest) Scene(baseDir string) (*ir.Scene, error) {
	s := &ir.Scene{
		Textures:  make([]ir.Texture, len(m.Textures)),
		Materials: make([]ir.Material, len(m.Materials)),
		Meshes:    make([]ir.Mesh, len(m.Meshes)),
		Instances: make([]ir.Instance, len(m.Instances)),
	}
	resolve := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(baseDir, p)
	}

	textures, err := index(m.Textures, func(t TextureSpec) string { return t.Name }, "texture")
	if err != nil {
		return nil, err
	}
	materials, err := index(m.Materials, func(t MaterialSpec) string { return t.Name }, "material")
	if err != nil {
		return nil, err
	}
	meshes, err := index(m.Meshes, func(t MeshSpec) string { return t.Name }, "mesh")
	if err != nil {
		return nil, err
	}

	var g errgroup.Group
	for i, spec := range m.Textures {
		src, err := textureSource(spec, resolve)
		if err != nil {
			return nil, err
		}
		s.Textures[i] = ir.Texture{Name: spec.Name, Source: src}
		if spec.Embedded == "" {
			continue
		}
		g.Go(func() error {
			data, err := os.ReadFile(resolve(spec.Embedded))
			if err != nil {
				return fmt.Errorf("texture %q: %w", spec.Name, err)
			}
			s.Textures[i].Source = ir.EmbeddedSource{Name: spec.Name, Data: data}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i, spec := range m.Materials {
		mat := ir.Material{Name: spec.Name}
		for _, p := range spec.Properties {
			sem, ok := ir.ParseSemantic(p.Semantic)
			if !ok {
				return nil, fmt.Errorf("material %q: unknown semantic %q", spec.Name, p.Semantic)
			}
			v, err := propertyValue(p, textures)
			if err != nil {
				return nil, fmt.Errorf("material %q: %s: %w", spec.Name, p.Semantic, err)
			}
			mat.Set(sem, v)
		}
		s.Materials[i] = mat
	}

	for i, spec := range m.Meshes {
		mesh := ir.Mesh{
			Name:      spec.Name,
			Positions: make([]f32.Vec3, len(spec.Positions)),
			Indices:   spec.Indices,
			Material:  ir.None[ir.Material](),
		}
		for j, p := range spec.Positions {
			mesh.Positions[j] = f32.Vec3(p)
		}
		if len(spec.Normals) > 0 {
			mesh.Normals = make([]f32.Vec3, len(spec.Normals))
			for j, n := range spec.Normals {
				mesh.Normals[j] = f32.Vec3(n)
			}
		}
		if len(spec.UVs) > 0 {
			mesh.UVs = make([]f32.Vec2, len(spec.UVs))
			for j, uv := range spec.UVs {
				mesh.UVs[j] = f32.Vec2(uv)
			}
		}
		if spec.Material != "" {
			j, ok := materials[spec.Material]
			if !ok {
				return nil, fmt.Errorf("mesh %q: unknown material %q", spec.Name, spec.Material)
			}
			mesh.Material = ir.RefTo[ir.Material](j)
		}
		s.Meshes[i] = mesh
	}

	for i, spec := range m.Instances {
		j, ok := meshes[spec.Mesh]
		if !ok {
			return nil, fmt.Errorf("instance %d: unknown mesh %q", i, spec.Mesh)
		}
		in := ir.Instance{Mesh: ir.RefTo[ir.Mesh](j), Transform: ir.Identity}
		switch len(spec.Transform) {
		case 0:
		case len(in.Transform):
			copy(in.Transform[:], spec.Transform)
		default:
			return nil, fmt.Errorf("instance %d: transform has %d values, want %d", i, len(spec.Transform), len(in.Transform))
		}
		s.Instances[i] = in
	}
	return s, nil
}

// index maps entity names to positions, rejecting duplicates.
func index[T any](items []T, name func(T) string, kind string) (map[string]int, error) {
	out := make(map[string]int, len(items))
	for i, it := range items {
		n := name(it)
		if n == "" {
			continue
		}
		if _, dup := out[n]; dup {
			return nil, fmt.Errorf("duplicate %s name %q", kind, n)
		}
		out[n] = i
	}
	return out, nil
}

func textureSource(spec TextureSpec, resolve func(string) string) (ir.Source, error) {
	set := 0
	for _, ok := range []bool{spec.File != "", spec.Embedded != "", spec.Raw != nil} {
		if ok {
			set++
		}
	}
	if set != 1 {
		return nil, fmt.Errorf("texture %q: exactly one of file, embedded or raw must be set", spec.Name)
	}
	switch {
	case spec.File != "":
		return ir.FileSource{Path: resolve(spec.File)}, nil
	case spec.Embedded != "":
		// Filled in by the loader.
		return nil, nil
	}
	var format ir.PixelFormat
	switch spec.Raw.Format {
	case "", "rgba8":
		format = ir.PixelRGBA8
	case "rgb8":
		format = ir.PixelRGB8
	case "gray8":
		format = ir.PixelGray8
	default:
		return nil, fmt.Errorf("texture %q: unknown raw format %q", spec.Name, spec.Raw.Format)
	}
	return ir.RawSource{
		Name:   spec.Name,
		Width:  spec.Raw.Width,
		Height: spec.Raw.Height,
		Format: format,
		Pixels: spec.Raw.Pixels,
	}, nil
}

func propertyValue(p PropertySpec, textures map[string]int) (ir.Value, error) {
	switch {
	case p.Texture != "":
		i, ok := textures[p.Texture]
		if !ok {
			return nil, fmt.Errorf("unknown texture %q", p.Texture)
		}
		return ir.TextureRef{Texture: ir.RefTo[ir.Texture](i), Swizzle: ir.Swizzle(p.Swizzle)}, nil
	case p.Bool != nil:
		return ir.Bool(*p.Bool), nil
	}
	v := p.Value
	switch len(v) {
	case 1:
		return ir.Scalar(v[0]), nil
	case 2:
		return ir.Vec2{v[0], v[1]}, nil
	case 3:
		return ir.Vec3{v[0], v[1], v[2]}, nil
	case 4:
		return ir.Vec4{v[0], v[1], v[2], v[3]}, nil
	default:
		return nil, fmt.Errorf("value has %d components, want 1 to 4 or a texture or bool", len(v))
	}
}
