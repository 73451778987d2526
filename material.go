package assetc

import (
	"math"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/assetc/cache"
	"github.com/gogpu/assetc/imageproc"
	"github.com/gogpu/assetc/ir"
)

// Channel defaults, as RGBA in [0, 1].
var (
	defaultBaseColor = ir.Vec4{1, 0, 1, 1}     // magenta
	defaultNormal    = ir.Vec4{0.5, 0.5, 1, 1} // flat, pointing up
	defaultBlack     = ir.Vec4{0, 0, 0, 1}
)

// Metal/roughness factors used when a material has none.
const (
	defaultMetallic    = 0
	defaultRoughness   = 0.5
	defaultAlphaCutoff = 0.5
)

// textureKey identifies one processed variant of an IR texture. Channels
// that need different processing of the same texture get separate
// variants, so settings of one channel never show up in another.
type textureKey struct {
	index  int
	flags  imageproc.Flags
	invert imageproc.Channel
}

// channelKey returns the variant of texture i that channel c samples.
func channelKey(i int, c Channel, normalInvert imageproc.Channel) textureKey {
	k := textureKey{index: i}
	switch c {
	case ChannelBaseColor:
		k.flags = imageproc.TrackAlpha
	case ChannelNormal:
		k.invert = normalInvert
	}
	return k
}

// textureUsage returns the texture variants sampled by material channels,
// in material then channel order, without duplicates.
func textureUsage(scene *ir.Scene, normalInvert imageproc.Channel) []textureKey {
	var keys []textureKey
	seen := make(map[textureKey]bool)
	use := func(tr ir.TextureRef, c Channel) {
		i, ok := tr.Texture.Index()
		if !ok {
			return
		}
		k := channelKey(i, c, normalInvert)
		if !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}

	for i := range scene.Materials {
		m := &scene.Materials[i]
		if tr, ok := ir.Find[ir.TextureRef](m, ir.BaseColor); ok {
			use(tr, ChannelBaseColor)
		}
		if tr, ok := ir.Find[ir.TextureRef](m, ir.Normal); ok {
			use(tr, ChannelNormal)
		}
		if tr, ok := metalRoughTexture(m); ok {
			use(tr, ChannelMetalRough)
		}
		if tr, ok := ir.Find[ir.TextureRef](m, ir.Emissive); ok {
			use(tr, ChannelEmissive)
		}
		if tr, ok := ir.Find[ir.TextureRef](m, ir.Transmission); ok {
			use(tr, ChannelTransmission)
		}
	}
	return keys
}

// metalRoughTexture returns the combined metal/roughness map of m: the
// metallic texture, provided the specular-color property samples the
// same texture.
func metalRoughTexture(m *ir.Material) (ir.TextureRef, bool) {
	metal, ok := ir.Find[ir.TextureRef](m, ir.Metallic)
	if !ok {
		return ir.TextureRef{}, false
	}
	spec, ok := ir.Find[ir.TextureRef](m, ir.SpecularColor)
	if !ok || !spec.Texture.Valid() || spec.Texture != metal.Texture {
		return ir.TextureRef{}, false
	}
	return metal, true
}

// resolver turns IR materials into compiled materials. It is safe for
// concurrent use once built.
type resolver struct {
	// textures holds the successfully processed texture variants.
	textures     map[textureKey]*Texture
	normalInvert imageproc.Channel
	// constants interns single-pixel textures by packed RGBA8 value.
	constants *cache.Interner[uint32, *Texture]
}

func newResolver(textures map[textureKey]*Texture, normalInvert imageproc.Channel) *resolver {
	return &resolver{
		textures:     textures,
		normalInvert: normalInvert,
		constants:    cache.NewInterner[uint32, *Texture](cache.Uint32Hasher),
	}
}

// resolve compiles m. Each channel takes, in order: a usable texture, a
// constant property, the channel default.
func (r *resolver) resolve(m *ir.Material) *Material {
	out := &Material{Name: m.Name, AlphaCutoff: defaultAlphaCutoff}

	out.Textures[ChannelBaseColor] = r.channel(m, ChannelBaseColor, ir.BaseColor, defaultBaseColor)
	out.Textures[ChannelNormal] = r.channel(m, ChannelNormal, ir.Normal, defaultNormal)
	out.Textures[ChannelEmissive] = r.channel(m, ChannelEmissive, ir.Emissive, defaultBlack)
	out.Textures[ChannelTransmission] = r.channel(m, ChannelTransmission, ir.Transmission, defaultBlack)

	if tr, ok := metalRoughTexture(m); ok {
		out.Textures[ChannelMetalRough] = r.texture(tr, ChannelMetalRough)
	}
	if out.Textures[ChannelMetalRough] == nil {
		metal, rough := ir.Scalar(defaultMetallic), ir.Scalar(defaultRoughness)
		if v, ok := ir.Find[ir.Scalar](m, ir.Metallic); ok {
			metal = v
		}
		if v, ok := ir.Find[ir.Scalar](m, ir.Roughness); ok {
			rough = v
		}
		out.Textures[ChannelMetalRough] = r.constant(ir.Vec4{0, float32(rough), float32(metal), 1})
	}

	if v, ok := ir.Find[ir.Scalar](m, ir.AlphaCutoff); ok {
		out.AlphaCutoff = float32(v)
	}
	explicit, _ := ir.Find[ir.Bool](m, ir.AlphaMask)
	minAlpha := out.Textures[ChannelBaseColor].MinAlpha
	out.AlphaMask = bool(explicit) || minAlpha < out.AlphaCutoff
	out.AlphaBlend = !out.AlphaMask && minAlpha < 1
	return out
}

// channel resolves channel c of m from the properties with semantic s.
func (r *resolver) channel(m *ir.Material, c Channel, s ir.Semantic, def ir.Vec4) *Texture {
	if tr, ok := ir.Find[ir.TextureRef](m, s); ok {
		if t := r.texture(tr, c); t != nil {
			return t
		}
	}
	if c, ok := constant(m, s); ok {
		return r.constant(c)
	}
	return r.constant(def)
}

// texture returns the variant of the texture sampled by tr that was
// processed for channel c, or nil if it is missing or empty.
func (r *resolver) texture(tr ir.TextureRef, c Channel) *Texture {
	i, ok := tr.Texture.Index()
	if !ok {
		return nil
	}
	t := r.textures[channelKey(i, c, r.normalInvert)]
	if t == nil || t.Width == 0 || t.Height == 0 || len(t.Payload) == 0 {
		return nil
	}
	return t
}

// constant returns the shared single-pixel texture holding c.
func (r *resolver) constant(c ir.Vec4) *Texture {
	px := [4]byte{unorm8(c[0]), unorm8(c[1]), unorm8(c[2]), unorm8(c[3])}
	key := uint32(px[0]) | uint32(px[1])<<8 | uint32(px[2])<<16 | uint32(px[3])<<24
	return r.constants.GetOrCreate(key, func() *Texture {
		a := float32(px[3]) / 255
		return &Texture{
			Width:    1,
			Height:   1,
			Format:   gputypes.TextureFormatRGBA8Unorm,
			MinAlpha: a,
			MaxAlpha: a,
			Payload:  px[:],
		}
	})
}

// constant returns the first constant property of m with semantic s,
// widened to RGBA: scalars are broadcast to RGB, missing components are
// zero and a missing alpha is 1.
func constant(m *ir.Material, s ir.Semantic) (ir.Vec4, bool) {
	for _, p := range m.Properties {
		if p.Semantic != s {
			continue
		}
		switch v := p.Value.(type) {
		case ir.Scalar:
			f := float32(v)
			return ir.Vec4{f, f, f, 1}, true
		case ir.Vec2:
			return ir.Vec4{v[0], v[1], 0, 1}, true
		case ir.Vec3:
			return ir.Vec4{v[0], v[1], v[2], 1}, true
		case ir.Vec4:
			return v, true
		}
	}
	return ir.Vec4{}, false
}

// unorm8 converts f to an 8-bit unsigned normalized value, rounding to
// nearest. NaN maps to 0.
func unorm8(f float32) byte {
	if !(f > 0) {
		return 0
	}
	if f >= 1 {
		return 255
	}
	return byte(math.Round(float64(f) * 255))
}
