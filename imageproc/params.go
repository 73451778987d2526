package imageproc

import (
	"encoding/binary"

	"github.com/gogpu/assetc/cache"
)

// Channel selects one RGBA channel.
type Channel uint8

// Channels. ChannelNone disables inversion.
const (
	ChannelNone Channel = iota
	ChannelR
	ChannelG
	ChannelB
	ChannelA
)

// String implements fmt.Stringer.
func (c Channel) String() string {
	switch c {
	case ChannelNone:
		return "none"
	case ChannelR:
		return "r"
	case ChannelG:
		return "g"
	case ChannelB:
		return "b"
	case ChannelA:
		return "a"
	default:
		return "[!] invalid Channel value"
	}
}

// Compression is the output encoding of a processed texture.
type Compression uint8

// Compressions.
const (
	// CompressionNone keeps tightly packed RGBA8 texels.
	CompressionNone Compression = iota
	// CompressionBC3 encodes 4×4 blocks as BC3 (DXT5).
	CompressionBC3
)

// Flags modify processing.
type Flags uint8

const (
	// TrackAlpha records the minimum and maximum alpha of the texture.
	// Without it both are reported as 1.
	TrackAlpha Flags = 1 << iota
)

// Params is the full set of processing parameters.
// Two calls with equal Params and the same file path share a cache entry.
type Params struct {
	// MaxDimension bounds the larger side of the output; 0 means no bound.
	MaxDimension int
	Flags        Flags
	// Invert replaces one channel c by 255-c.
	Invert      Channel
	Compression Compression
	// Cache persists the result on disk. Only file sources can be cached.
	Cache bool
}

const cacheDomain = "assetc/texture/v1"

// CacheKey returns the content address of the result of processing the
// file at path with p. The Cache field itself is not part of the key.
func CacheKey(path string, p Params) string {
	var dim [4]byte
	binary.LittleEndian.PutUint32(dim[:], uint32(p.MaxDimension))
	return cache.Key(cacheDomain,
		[]byte(path),
		dim[:],
		[]byte{byte(p.Flags), byte(p.Invert), byte(p.Compression)},
	)
}
