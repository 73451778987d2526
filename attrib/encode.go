package attrib

import (
	"math"

	"github.com/x448/float16"
	"golang.org/x/image/math/f32"
)

// Quantization parameters.
const (
	// Bits is the width of every quantized direction component.
	Bits = 10

	// maxQ is the largest quantized value.
	maxQ = 1<<Bits - 1
)

// Packed is the 64-bit shading attribute of one vertex.
//
// Bit layout, least significant first:
//
//	 0..9   octahedral normal x
//	10..19  octahedral normal y
//	20      normal hemisphere (1 = z > 0)
//	21..30  diamond-encoded tangent
//	31      tangent basis choice (1 = basis with z zeroed)
//	32..47  U as IEEE 754 half
//	48..63  V as IEEE 754 half
type Packed uint64

// Fields is the unpacked form of Packed.
type Fields struct {
	NormalX, NormalY uint16
	NormalSign       bool
	Tangent          uint16
	TangentBasis     bool
	U, V             float16.Float16
}

// Pack assembles a Packed from its fields.
// Direction fields are masked to Bits bits.
func Pack(f Fields) Packed {
	p := uint64(f.NormalX&maxQ) |
		uint64(f.NormalY&maxQ)<<10 |
		uint64(f.Tangent&maxQ)<<21 |
		uint64(f.U.Bits())<<32 |
		uint64(f.V.Bits())<<48
	if f.NormalSign {
		p |= 1 << 20
	}
	if f.TangentBasis {
		p |= 1 << 31
	}
	return Packed(p)
}

// Unpack splits p into its fields.
func (p Packed) Unpack() Fields {
	return Fields{
		NormalX:      uint16(p & maxQ),
		NormalY:      uint16(p >> 10 & maxQ),
		NormalSign:   p>>20&1 != 0,
		Tangent:      uint16(p >> 21 & maxQ),
		TangentBasis: p>>31&1 != 0,
		U:            float16.Frombits(uint16(p >> 32)),
		V:            float16.Frombits(uint16(p >> 48)),
	}
}

// Normal decodes the normal stored in p.
func (p Packed) Normal() f32.Vec3 {
	f := p.Unpack()
	return DecodeNormal(f.NormalX, f.NormalY, f.NormalSign)
}

// Tangent decodes the tangent stored in p against the decoded normal.
func (p Packed) Tangent() f32.Vec3 {
	f := p.Unpack()
	return DecodeTangent(DecodeNormal(f.NormalX, f.NormalY, f.NormalSign), f.Tangent, f.TangentBasis)
}

// UV decodes the texture coordinates stored in p.
func (p Packed) UV() f32.Vec2 {
	f := p.Unpack()
	return f32.Vec2{f.U.Float32(), f.V.Float32()}
}

// quantize truncates v in [0,1] to Bits bits.
func quantize(v float32) uint16 {
	q := v * maxQ
	if !(q > 0) {
		return 0
	}
	if q >= maxQ {
		return maxQ
	}
	return uint16(q)
}

func dequantize(q uint16) float32 {
	return float32(q) / maxQ
}

// EncodeNormal maps the unit vector n to signed-octahedron coordinates.
// n is projected onto the octahedron (divided by its L1 norm) and the
// upper and lower halves are folded onto the same square; sign records
// which hemisphere n came from.
func EncodeNormal(n f32.Vec3) (x, y uint16, sign bool) {
	l1 := abs(n[0]) + abs(n[1]) + abs(n[2])
	if l1 == 0 {
		return quantize(0.5), quantize(0.5), true
	}
	nx, ny := n[0]/l1, n[1]/l1
	ey := ny*0.5 + 0.5
	ex := nx*0.5 + ey
	ey = nx*-0.5 + ey
	return quantize(ex), quantize(ey), n[2] > 0
}

// DecodeNormal inverts EncodeNormal, returning a unit vector.
func DecodeNormal(x, y uint16, sign bool) f32.Vec3 {
	ex, ey := dequantize(x), dequantize(y)
	var n f32.Vec3
	n[0] = ex - ey
	n[1] = ex + ey - 1
	n[2] = max(0, 1-abs(n[0])-abs(n[1]))
	if !sign {
		n[2] = -n[2]
	}
	return normalize(n)
}

// tangentBasis returns the canonical orthonormal basis of the plane
// perpendicular to n. With zeroZ the first vector has z = 0, otherwise
// y = 0; callers choose zeroZ when |n.y| > |n.z|.
func tangentBasis(n f32.Vec3, zeroZ bool) (t1, t2 f32.Vec3) {
	if zeroZ {
		t1 = f32.Vec3{n[1], -n[0], 0}
	} else {
		t1 = f32.Vec3{n[2], 0, -n[0]}
	}
	t1 = normalize(t1)
	t2 = cross(t1, n)
	return t1, t2
}

// encodeDiamond maps a 2D direction to [0,1] through the unit diamond.
// Directions with y >= 0 land in [0.5,1], the others in [0,0.5).
func encodeDiamond(px, py float32) float32 {
	x := px / (abs(px) + abs(py))
	s := float32(1)
	if py < 0 {
		s = -1
	}
	return -s*0.25*x + 0.5 + s*0.25
}

func decodeDiamond(p float32) (float32, float32) {
	s := float32(1)
	if p < 0.5 {
		s = -1
	}
	x := -s*4*p + 1 + s*2
	y := s * (1 - abs(x))
	l := float32(math.Hypot(float64(x), float64(y)))
	return x / l, y / l
}

// EncodeTangent encodes the unit tangent t, orthogonal to the unit
// normal n, as a single quantized angle. basis records which canonical
// basis was used so decoding does not depend on the quantized normal.
func EncodeTangent(n, t f32.Vec3) (q uint16, basis bool) {
	basis = abs(n[1]) > abs(n[2])
	t1, t2 := tangentBasis(n, basis)
	px, py := dot(t, t1), dot(t, t2)
	if px == 0 && py == 0 {
		return quantize(0.5), basis
	}
	return quantize(encodeDiamond(px, py)), basis
}

// DecodeTangent inverts EncodeTangent using the (decoded) normal n.
func DecodeTangent(n f32.Vec3, q uint16, basis bool) f32.Vec3 {
	t1, t2 := tangentBasis(n, basis)
	px, py := decodeDiamond(dequantize(q))
	return normalize(add(scale(t1, px), scale(t2, py)))
}

// Encode packs a tangent frame and texture coordinates.
// n and t must be unit length and orthogonal.
func Encode(n, t f32.Vec3, uv f32.Vec2) Packed {
	nx, ny, ns := EncodeNormal(n)
	tq, tb := EncodeTangent(n, t)
	return Pack(Fields{
		NormalX:      nx,
		NormalY:      ny,
		NormalSign:   ns,
		Tangent:      tq,
		TangentBasis: tb,
		U:            float16.Fromfloat32(uv[0]),
		V:            float16.Fromfloat32(uv[1]),
	})
}
