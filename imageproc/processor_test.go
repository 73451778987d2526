package imageproc

import (
	"bytes"
	"encoding/binary"
	"errors"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/assetc/cache"
	"github.com/gogpu/assetc/internal/bc"
	"github.com/gogpu/assetc/ir"
)

// pattern returns a w×h image whose texel (x, y) is (x*10, y*10, 7, alpha(x, y)).
func pattern(w, h int, alpha func(x, y int) uint8) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 10), G: uint8(y * 10), B: 7, A: alpha(x, y)})
		}
	}
	return img
}

func opaque(int, int) uint8 { return 255 }

func encodePNG(t testing.TB, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func writePNG(t testing.TB, dir, name string, img image.Image) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, encodePNG(t, img), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func newDisk(t testing.TB) *cache.Disk {
	t.Helper()
	d, err := cache.NewDisk(filepath.Join(t.TempDir(), "cache"), ".tex")
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func TestProcessFileUncompressed(t *testing.T) {
	img := pattern(3, 2, opaque)
	path := writePNG(t, t.TempDir(), "a.png", img)

	tex, err := NewProcessor().Process(ir.FileSource{Path: path}, Params{})
	if err != nil {
		t.Fatal(err)
	}
	if tex.Width != 3 || tex.Height != 2 {
		t.Errorf("size = %dx%d, want 3x2", tex.Width, tex.Height)
	}
	if tex.Format != gputypes.TextureFormatRGBA8Unorm {
		t.Errorf("Format = %v, want RGBA8Unorm", tex.Format)
	}
	if !bytes.Equal(tex.Payload, img.Pix) {
		t.Errorf("Payload = %v, want %v", tex.Payload, img.Pix)
	}
	if tex.MinAlpha != 1 || tex.MaxAlpha != 1 {
		t.Errorf("untracked alpha range = [%v, %v], want [1, 1]", tex.MinAlpha, tex.MaxAlpha)
	}
	if ext := tex.Extent(); ext != (gputypes.Extent3D{Width: 3, Height: 2, DepthOrArrayLayers: 1}) {
		t.Errorf("Extent() = %+v", ext)
	}
}

func TestProcessEmbedded(t *testing.T) {
	img := pattern(4, 4, func(x, y int) uint8 { return uint8(100 + x*y*5) })
	src := ir.EmbeddedSource{Name: "img0", Data: encodePNG(t, img)}

	tex, err := NewProcessor().Process(src, Params{Flags: TrackAlpha})
	if err != nil {
		t.Fatal(err)
	}
	if want := float32(100) / 255; tex.MinAlpha != want {
		t.Errorf("MinAlpha = %v, want %v", tex.MinAlpha, want)
	}
	if want := float32(145) / 255; tex.MaxAlpha != want {
		t.Errorf("MaxAlpha = %v, want %v", tex.MaxAlpha, want)
	}
}

func TestProcessErrors(t *testing.T) {
	p := NewProcessor()

	_, err := p.Process(ir.EmbeddedSource{Name: "bad", Data: []byte("not an image")}, Params{})
	var de *DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("corrupt data: err = %v, want *DecodeError", err)
	}
	if de.Source != "embedded:bad" {
		t.Errorf("DecodeError.Source = %q", de.Source)
	}

	_, err = p.Process(ir.EmbeddedSource{Name: "empty"}, Params{})
	if !errors.Is(err, ErrEmptyData) {
		t.Errorf("empty data: err = %v, want ErrEmptyData", err)
	}

	missing := filepath.Join(t.TempDir(), "missing.png")
	_, err = p.Process(ir.FileSource{Path: missing}, Params{})
	var me *MissingFileError
	if !errors.As(err, &me) || me.Path != missing {
		t.Errorf("missing file: err = %v, want *MissingFileError for %s", err, missing)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing file error does not wrap os.ErrNotExist: %v", err)
	}

	_, err = p.Process(nil, Params{})
	if !errors.As(err, &de) {
		t.Errorf("nil source: err = %v, want *DecodeError", err)
	}
}

func TestCacheConfigurationErrors(t *testing.T) {
	var ce *ConfigurationError

	p := NewProcessor(WithCache(newDisk(t)))
	_, err := p.Process(ir.EmbeddedSource{Name: "x", Data: []byte{1}}, Params{Cache: true})
	if !errors.As(err, &ce) {
		t.Errorf("caching embedded source: err = %v, want *ConfigurationError", err)
	}
	_, err = p.Process(ir.RawSource{Name: "r", Width: 1, Height: 1, Pixels: []byte{1, 2, 3, 4}}, Params{Cache: true})
	if !errors.As(err, &ce) {
		t.Errorf("caching raw source: err = %v, want *ConfigurationError", err)
	}

	_, err = NewProcessor().Process(ir.FileSource{Path: "a.png"}, Params{Cache: true})
	if !errors.As(err, &ce) {
		t.Errorf("caching without disk: err = %v, want *ConfigurationError", err)
	}
}

func TestCacheHit(t *testing.T) {
	path := writePNG(t, t.TempDir(), "a.png", pattern(8, 8, func(x, y int) uint8 { return uint8(200 + x) }))
	disk := newDisk(t)
	p := NewProcessor(WithCache(disk))
	params := Params{MaxDimension: 4, Flags: TrackAlpha, Compression: CompressionBC3, Cache: true}

	first, err := p.Process(ir.FileSource{Path: path}, params)
	if err != nil {
		t.Fatal(err)
	}
	second, err := p.Process(ir.FileSource{Path: path}, params)
	if err != nil {
		t.Fatal(err)
	}

	if got := p.Stats(); got != (Stats{Decodes: 1, CacheReads: 1, CacheWrites: 1}) {
		t.Errorf("Stats() = %+v, want one decode, one cache read, one cache write", got)
	}
	if first.Width != second.Width || first.Height != second.Height ||
		first.Format != second.Format || first.MinAlpha != second.MinAlpha ||
		first.MaxAlpha != second.MaxAlpha || !bytes.Equal(first.Payload, second.Payload) {
		t.Errorf("cached result differs:\n first %+v\nsecond %+v", first, second)
	}

	// The entry has the documented header.
	raw, err := os.ReadFile(disk.Path(CacheKey(path, params)))
	if err != nil {
		t.Fatal(err)
	}
	le := binary.LittleEndian
	if w, h := le.Uint32(raw[0:]), le.Uint32(raw[4:]); w != 4 || h != 4 {
		t.Errorf("header size = %dx%d, want 4x4", w, h)
	}
	if f := gputypes.TextureFormat(le.Uint32(raw[8:])); f != gputypes.TextureFormatBC3RGBAUnorm {
		t.Errorf("header format = %v", f)
	}
	if lo := math.Float32frombits(le.Uint32(raw[12:])); lo != first.MinAlpha {
		t.Errorf("header min alpha = %v, want %v", lo, first.MinAlpha)
	}
	if hi := math.Float32frombits(le.Uint32(raw[16:])); hi != first.MaxAlpha {
		t.Errorf("header max alpha = %v, want %v", hi, first.MaxAlpha)
	}
	if n := le.Uint32(raw[20:]); int(n) != bc.EncodedSize(4, 4) || len(raw) != headerSize+int(n) {
		t.Errorf("header payload size = %d, file size %d", n, len(raw))
	}
}

func TestCacheKeyCoversParams(t *testing.T) {
	base := Params{MaxDimension: 512, Flags: TrackAlpha, Compression: CompressionBC3}
	variants := []Params{
		{MaxDimension: 256, Flags: TrackAlpha, Compression: CompressionBC3},
		{MaxDimension: 512, Compression: CompressionBC3},
		{MaxDimension: 512, Flags: TrackAlpha},
		{MaxDimension: 512, Flags: TrackAlpha, Compression: CompressionBC3, Invert: ChannelG},
	}
	k := CacheKey("a.png", base)
	if k != CacheKey("a.png", Params{MaxDimension: 512, Flags: TrackAlpha, Compression: CompressionBC3, Cache: true}) {
		t.Error("Cache flag changed the key")
	}
	if k == CacheKey("b.png", base) {
		t.Error("path not part of the key")
	}
	for _, v := range variants {
		if CacheKey("a.png", v) == k {
			t.Errorf("params %+v share a key with %+v", v, base)
		}
	}
}

func TestConcurrentProcessorsShareCache(t *testing.T) {
	path := writePNG(t, t.TempDir(), "a.png", pattern(16, 16, opaque))
	disk := newDisk(t)
	params := Params{Compression: CompressionBC3, Cache: true}

	const workers = 8
	procs := make([]*Processor, workers)
	results := make([]*Texture, workers)
	var wg sync.WaitGroup
	for i := range procs {
		procs[i] = NewProcessor(WithCache(disk))
		wg.Add(1)
		go func() {
			defer wg.Done()
			tex, err := procs[i].Process(ir.FileSource{Path: path}, params)
			if err != nil {
				t.Error(err)
				return
			}
			results[i] = tex
		}()
	}
	wg.Wait()

	for i := 1; i < workers; i++ {
		if results[i] == nil || results[0] == nil {
			t.Fatal("missing result")
		}
		if !bytes.Equal(results[i].Payload, results[0].Payload) {
			t.Errorf("worker %d payload differs", i)
		}
	}

	// Every stored entry comes from a decode by the same processor. A
	// processor that received another one's fill counts neither.
	var stats Stats
	for _, p := range procs {
		s := p.Stats()
		stats.Decodes += s.Decodes
		stats.CacheReads += s.CacheReads
		stats.CacheWrites += s.CacheWrites
	}
	if stats.CacheWrites != stats.Decodes || stats.CacheWrites == 0 {
		t.Errorf("cache writes = %d, decodes = %d, want equal and non-zero", stats.CacheWrites, stats.Decodes)
	}
	if stats.CacheReads+stats.CacheWrites > workers {
		t.Errorf("reads + writes = %d, want at most %d", stats.CacheReads+stats.CacheWrites, workers)
	}
}

func TestDownsample(t *testing.T) {
	// 10×7 with max 4: factor floor(10/4) = 2, output 5×3. Source row 6
	// is a remainder and must not influence the output.
	src := pattern(10, 7, opaque)
	for x := range 10 {
		src.SetNRGBA(x, 6, color.NRGBA{R: 255, G: 255, B: 255, A: 0})
	}
	dst := downsample(src, 4)
	if dst.Rect.Dx() != 5 || dst.Rect.Dy() != 3 {
		t.Fatalf("downsample size = %dx%d, want 5x3", dst.Rect.Dx(), dst.Rect.Dy())
	}
	for y := range 3 {
		for x := range 5 {
			got := dst.NRGBAAt(x, y)
			// Average of x*2*10 and (x*2+1)*10, truncated.
			want := color.NRGBA{R: uint8(x*20 + 5), G: uint8(y*20 + 5), B: 7, A: 255}
			if got != want {
				t.Errorf("texel (%d,%d) = %v, want %v", x, y, got, want)
			}
		}
	}
}

func TestDownsampleSmallRatioKeepsSize(t *testing.T) {
	// floor(6/4) = 1: no downsampling even though 6 > 4.
	src := pattern(6, 6, opaque)
	if dst := downsample(src, 4); dst != src {
		t.Errorf("downsample(6x6, 4) = %dx%d, want the source unchanged", dst.Rect.Dx(), dst.Rect.Dy())
	}
	if dst := downsample(src, 0); dst != src {
		t.Error("downsample with no limit changed the image")
	}
}

func TestDownsampleThinImage(t *testing.T) {
	src := pattern(16, 2, opaque)
	dst := downsample(src, 2)
	if dst.Rect.Dx() != 2 || dst.Rect.Dy() != 1 {
		t.Fatalf("downsample size = %dx%d, want 2x1", dst.Rect.Dx(), dst.Rect.Dy())
	}
}

func TestInvert(t *testing.T) {
	src := ir.RawSource{Name: "n", Width: 2, Height: 1, Format: ir.PixelRGBA8, Pixels: []byte{10, 20, 30, 40, 50, 60, 70, 80}}
	tex, err := NewProcessor().Process(src, Params{Invert: ChannelG})
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{10, 235, 30, 40, 50, 195, 70, 80}
	if !bytes.Equal(tex.Payload, want) {
		t.Errorf("Payload = %v, want %v", tex.Payload, want)
	}
	// The source buffer is untouched.
	if src.Pixels[1] != 20 {
		t.Error("inversion modified the raw source")
	}
}

func TestAlphaTrackedBeforeInversion(t *testing.T) {
	src := ir.RawSource{Name: "a", Width: 2, Height: 1, Format: ir.PixelRGBA8, Pixels: []byte{0, 0, 0, 51, 0, 0, 0, 255}}
	tex, err := NewProcessor().Process(src, Params{Flags: TrackAlpha, Invert: ChannelA})
	if err != nil {
		t.Fatal(err)
	}
	if tex.MinAlpha != 0.2 || tex.MaxAlpha != 1 {
		t.Errorf("alpha range = [%v, %v], want [0.2, 1]", tex.MinAlpha, tex.MaxAlpha)
	}
}

func TestRawFormats(t *testing.T) {
	tests := []struct {
		name string
		src  ir.RawSource
		want []byte
	}{
		{"rgb", ir.RawSource{Width: 1, Height: 2, Format: ir.PixelRGB8, Pixels: []byte{1, 2, 3, 4, 5, 6}},
			[]byte{1, 2, 3, 255, 4, 5, 6, 255}},
		{"gray", ir.RawSource{Width: 2, Height: 1, Format: ir.PixelGray8, Pixels: []byte{9, 200}},
			[]byte{9, 9, 9, 255, 200, 200, 200, 255}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tex, err := NewProcessor().Process(tt.src, Params{})
			if err != nil {
				t.Fatal(err)
			}
			if !bytes.Equal(tex.Payload, tt.want) {
				t.Errorf("Payload = %v, want %v", tex.Payload, tt.want)
			}
		})
	}

	_, err := NewProcessor().Process(ir.RawSource{Name: "short", Width: 2, Height: 2, Pixels: []byte{1}}, Params{})
	var de *DecodeError
	if !errors.As(err, &de) {
		t.Errorf("short raw buffer: err = %v, want *DecodeError", err)
	}
}

func TestCompressBC3(t *testing.T) {
	src := ir.RawSource{Name: "c", Width: 5, Height: 3, Format: ir.PixelRGBA8, Pixels: bytes.Repeat([]byte{255, 0, 255, 255}, 15)}
	tex, err := NewProcessor().Process(src, Params{Compression: CompressionBC3})
	if err != nil {
		t.Fatal(err)
	}
	if tex.Format != gputypes.TextureFormatBC3RGBAUnorm {
		t.Errorf("Format = %v", tex.Format)
	}
	if len(tex.Payload) != bc.EncodedSize(5, 3) {
		t.Errorf("len(Payload) = %d, want %d", len(tex.Payload), bc.EncodedSize(5, 3))
	}
	if got := bc.Decode(tex.Payload, 5, 3); !bytes.Equal(got, src.Pixels) {
		t.Error("BC3 payload does not decode to the constant source")
	}
}

func TestEntryRoundTripTruncated(t *testing.T) {
	entry := marshalEntry(&Texture{Width: 1, Height: 1, Format: gputypes.TextureFormatRGBA8Unorm, MinAlpha: 0.5, MaxAlpha: 1, Payload: []byte{1, 2, 3, 4}})
	if _, err := unmarshalEntry(entry[:len(entry)-1]); err == nil {
		t.Error("truncated entry accepted")
	}
	if _, err := unmarshalEntry(entry[:10]); err == nil {
		t.Error("truncated header accepted")
	}
	got, err := unmarshalEntry(entry)
	if err != nil {
		t.Fatal(err)
	}
	if got.MinAlpha != 0.5 || !bytes.Equal(got.Payload, []byte{1, 2, 3, 4}) {
		t.Errorf("unmarshalEntry = %+v", got)
	}
}
