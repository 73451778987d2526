// Package imageproc turns texture sources into GPU-ready payloads.
//
// A Processor decodes a file, embedded or raw source to RGBA8, optionally
// downsamples it to fit a maximum dimension, records its alpha range,
// inverts one channel and block-compresses it. Results for file sources
// can be persisted in a content-addressed disk cache (see CacheKey).
//
// Decode and missing-file failures are returned as *DecodeError and
// *MissingFileError; the processor never substitutes defaults itself.
package imageproc

import (
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"math"
	"os"
	"sync"
	"sync/atomic"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/assetc/cache"
	"github.com/gogpu/assetc/internal/bc"
	"github.com/gogpu/assetc/ir"
)

// Texture is a processed texture.
type Texture struct {
	Width, Height int
	Format        gputypes.TextureFormat
	// MinAlpha and MaxAlpha are the tracked alpha range in [0, 1].
	MinAlpha, MaxAlpha float32
	Payload            []byte
}

// Extent returns the texture size as a gputypes.Extent3D.
func (t *Texture) Extent() gputypes.Extent3D {
	return gputypes.Extent3D{Width: uint32(t.Width), Height: uint32(t.Height), DepthOrArrayLayers: 1}
}

// Empty reports whether t has no texels.
func (t *Texture) Empty() bool {
	return t == nil || t.Width == 0 || t.Height == 0 || len(t.Payload) == 0
}

// Stats counts what a Processor has done.
type Stats struct {
	// Decodes counts executions of the decode/compress path.
	Decodes uint64
	// CacheReads counts results served from the disk cache.
	CacheReads uint64
	// CacheWrites counts results stored in the disk cache.
	CacheWrites uint64
}

// Option configures a Processor.
type Option func(*Processor)

// WithCache enables disk caching through d. Several processors may share
// one cache.Disk; concurrent requests for the same entry are collapsed.
func WithCache(d *cache.Disk) Option {
	return func(p *Processor) { p.disk = d }
}

// WithLogger sets the logger used for cache diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(p *Processor) {
		if l != nil {
			p.logger = l
		}
	}
}

// Processor processes textures one at a time.
// Its methods are safe for concurrent use, but calls are serialized by a
// single mutex; use one Processor per worker for parallelism.
type Processor struct {
	mu     sync.Mutex
	disk   *cache.Disk
	logger *slog.Logger

	decodes     atomic.Uint64
	cacheReads  atomic.Uint64
	cacheWrites atomic.Uint64
}

// NewProcessor creates a Processor. Without WithCache, requesting
// caching fails with a *ConfigurationError.
func NewProcessor(opts ...Option) *Processor {
	p := &Processor{logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Stats returns a snapshot of the processor's counters.
func (p *Processor) Stats() Stats {
	return Stats{
		Decodes:     p.decodes.Load(),
		CacheReads:  p.cacheReads.Load(),
		CacheWrites: p.cacheWrites.Load(),
	}
}

// Process processes src with params and blocks until done.
func (p *Processor) Process(src ir.Source, params Params) (*Texture, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if src == nil {
		return nil, &DecodeError{Source: "<nil>", Err: errNoSource}
	}
	if !params.Cache {
		return p.build(src, params)
	}

	fsrc, ok := src.(ir.FileSource)
	if !ok {
		return nil, &ConfigurationError{Source: src.ID(), Reason: "caching requested for an in-memory source"}
	}
	if p.disk == nil {
		return nil, &ConfigurationError{Source: src.ID(), Reason: "caching requested without a cache directory"}
	}

	key := CacheKey(fsrc.Path, params)
	data, origin, err := p.disk.GetOrFill(key, func() ([]byte, error) {
		t, err := p.build(src, params)
		if err != nil {
			return nil, err
		}
		return marshalEntry(t), nil
	})
	switch {
	case errors.Is(err, cache.ErrWrite):
		p.logger.Warn("imageproc: cache write failed", "source", fsrc.Path, "err", err)
	case err != nil:
		return nil, err
	case origin == cache.FromDisk:
		p.cacheReads.Add(1)
		p.logger.Debug("imageproc: cache hit", "source", fsrc.Path, "entry", p.disk.Path(key))
	case origin == cache.Filled:
		p.cacheWrites.Add(1)
		p.logger.Debug("imageproc: cache miss", "source", fsrc.Path, "entry", p.disk.Path(key))
	default:
		p.logger.Debug("imageproc: cache fill shared", "source", fsrc.Path, "entry", p.disk.Path(key))
	}

	t, err := unmarshalEntry(data)
	if err != nil {
		return nil, &DecodeError{Source: p.disk.Path(key), Err: err}
	}
	return t, nil
}

// build runs the full decode/process/compress path.
func (p *Processor) build(src ir.Source, params Params) (*Texture, error) {
	p.decodes.Add(1)

	img, err := load(src)
	if err != nil {
		return nil, err
	}
	img = downsample(img, params.MaxDimension)

	t := &Texture{
		Width:    img.Rect.Dx(),
		Height:   img.Rect.Dy(),
		MinAlpha: 1,
		MaxAlpha: 1,
	}
	if params.Flags&TrackAlpha != 0 {
		t.MinAlpha, t.MaxAlpha = alphaRange(img)
	}
	invert(img, params.Invert)

	switch params.Compression {
	case CompressionBC3:
		t.Format = gputypes.TextureFormatBC3RGBAUnorm
		t.Payload = bc.Encode(img.Pix, t.Width, t.Height)
	default:
		t.Format = gputypes.TextureFormatRGBA8Unorm
		t.Payload = img.Pix
	}
	return t, nil
}

func load(src ir.Source) (*image.NRGBA, error) {
	switch s := src.(type) {
	case ir.FileSource:
		data, err := os.ReadFile(s.Path)
		if err != nil {
			return nil, &MissingFileError{Path: s.Path, Err: err}
		}
		return decode(s.Path, data)
	case ir.EmbeddedSource:
		return decode(s.ID(), s.Data)
	case ir.RawSource:
		return fromRaw(s)
	case nil:
		return nil, &DecodeError{Source: "<nil>", Err: errNoSource}
	default:
		return nil, &DecodeError{Source: src.ID(), Err: fmt.Errorf("unsupported source %T", src)}
	}
}

// Cache entry layout, little endian:
//
//	width u32 | height u32 | format u32 | min-alpha f32 | max-alpha f32 | payload-size u32 | payload
const headerSize = 24

var (
	errShortEntry = errors.New("cache entry truncated")
	errNoSource   = errors.New("texture has no source")
)

func marshalEntry(t *Texture) []byte {
	buf := make([]byte, headerSize+len(t.Payload))
	binary.LittleEndian.PutUint32(buf[0:], uint32(t.Width))
	binary.LittleEndian.PutUint32(buf[4:], uint32(t.Height))
	binary.LittleEndian.PutUint32(buf[8:], uint32(t.Format))
	binary.LittleEndian.PutUint32(buf[12:], math.Float32bits(t.MinAlpha))
	binary.LittleEndian.PutUint32(buf[16:], math.Float32bits(t.MaxAlpha))
	binary.LittleEndian.PutUint32(buf[20:], uint32(len(t.Payload)))
	copy(buf[headerSize:], t.Payload)
	return buf
}

func unmarshalEntry(buf []byte) (*Texture, error) {
	if len(buf) < headerSize {
		return nil, errShortEntry
	}
	size := binary.LittleEndian.Uint32(buf[20:])
	if uint64(len(buf)-headerSize) < uint64(size) {
		return nil, errShortEntry
	}
	return &Texture{
		Width:    int(binary.LittleEndian.Uint32(buf[0:])),
		Height:   int(binary.LittleEndian.Uint32(buf[4:])),
		Format:   gputypes.TextureFormat(binary.LittleEndian.Uint32(buf[8:])),
		MinAlpha: math.Float32frombits(binary.LittleEndian.Uint32(buf[12:])),
		MaxAlpha: math.Float32frombits(binary.LittleEndian.Uint32(buf[16:])),
		Payload:  buf[headerSize : headerSize+int(size)],
	}, nil
}
