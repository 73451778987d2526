package assetc

import "github.com/gogpu/assetc/imageproc"

// Stage is a phase of a compile. Stages run strictly in declaration order.
type Stage uint8

// Compile stages.
const (
	StageTextures Stage = iota
	StageMaterials
	StageMeshes
	StageInstances
)

// String implements fmt.Stringer.
func (s Stage) String() string {
	switch s {
	case StageTextures:
		return "textures"
	case StageMaterials:
		return "materials"
	case StageMeshes:
		return "meshes"
	case StageInstances:
		return "instances"
	default:
		return "[!] invalid Stage value"
	}
}

// ProgressFunc observes compile progress. It is called once with done == 0
// when a stage starts and once after every finished item. Calls are
// serialized, but may come from any goroutine.
type ProgressFunc func(stage Stage, done, total int)

// Option configures a Compiler.
//
// Example:
//
//	c := assetc.NewCompiler(
//	    assetc.WithMaxDimension(2048),
//	    assetc.WithCacheDir(".assetc-cache"),
//	)
type Option func(*options)

type options struct {
	workers      int
	maxDimension int
	cacheDir     string
	compression  imageproc.Compression
	normalInvert imageproc.Channel
	progress     ProgressFunc
}

// defaultOptions returns the default compiler options: GOMAXPROCS workers,
// no size limit, no disk cache, BC3 compression.
func defaultOptions() options {
	return options{
		compression: imageproc.CompressionBC3,
	}
}

// WithWorkers sets the number of workers used for textures, materials and
// meshes. Zero or a negative value means GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

// WithMaxDimension bounds the larger side of every processed texture.
// Zero disables downsampling.
func WithMaxDimension(px int) Option {
	return func(o *options) {
		o.maxDimension = max(px, 0)
	}
}

// WithCacheDir enables the on-disk texture cache in dir. Only textures
// read from files are cached.
func WithCacheDir(dir string) Option {
	return func(o *options) {
		o.cacheDir = dir
	}
}

// WithCompression sets the payload encoding of processed textures.
func WithCompression(c imageproc.Compression) Option {
	return func(o *options) {
		o.compression = c
	}
}

// WithNormalInvert inverts channel c of every texture used as a normal map,
// e.g. imageproc.ChannelG to convert DirectX-style normal maps.
func WithNormalInvert(c imageproc.Channel) Option {
	return func(o *options) {
		o.normalInvert = c
	}
}

// WithProgress installs a progress observer.
func WithProgress(fn ProgressFunc) Option {
	return func(o *options) {
		o.progress = fn
	}
}
