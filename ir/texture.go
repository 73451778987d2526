package ir

// Texture is an image referenced by materials.
// Exactly one Source describes where its pixels come from.
type Texture struct {
	Name   string
	Source Source
}

// Source is the data source of a Texture: a FileSource, an
// EmbeddedSource or a RawSource.
type Source interface {
	// ID identifies the source in logs and errors.
	ID() string
	isSource()
}

// FileSource refers to an encoded image on disk.
type FileSource struct {
	Path string
}

// EmbeddedSource holds an encoded image (PNG, JPEG, ...) in memory,
// for instance a buffer view of a binary glTF.
type EmbeddedSource struct {
	Name string
	Data []byte
}

// PixelFormat describes the layout of RawSource pixels.
type PixelFormat uint8

// Raw pixel formats.
const (
	PixelRGBA8 PixelFormat = iota
	PixelRGB8
	PixelGray8
)

// BytesPerPixel returns the size of one pixel in bytes.
func (f PixelFormat) BytesPerPixel() int {
	switch f {
	case PixelRGBA8:
		return 4
	case PixelRGB8:
		return 3
	case PixelGray8:
		return 1
	default:
		return 0
	}
}

// RawSource holds already decoded pixels, tightly packed.
type RawSource struct {
	Name   string
	Width  int
	Height int
	Format PixelFormat
	Pixels []byte
}

func (s FileSource) ID() string     { return s.Path }
func (s EmbeddedSource) ID() string { return "embedded:" + s.Name }
func (s RawSource) ID() string      { return "raw:" + s.Name }

func (FileSource) isSource()     {}
func (EmbeddedSource) isSource() {}
func (RawSource) isSource()      {}
