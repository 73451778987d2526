package imageproc

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"  // register GIF decoder
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder

	"golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"  // register BMP decoder
	_ "golang.org/x/image/tiff" // register TIFF decoder
	_ "golang.org/x/image/webp" // register WebP decoder

	"github.com/gogpu/assetc/ir"
)

// decode decodes an encoded image, auto-detecting the format, into
// non-premultiplied RGBA8.
func decode(id string, data []byte) (*image.NRGBA, error) {
	if len(data) == 0 {
		return nil, &DecodeError{Source: id, Err: ErrEmptyData}
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, &DecodeError{Source: id, Err: err}
	}
	return toNRGBA(img), nil
}

// toNRGBA converts img to *image.NRGBA with origin (0, 0).
func toNRGBA(img image.Image) *image.NRGBA {
	b := img.Bounds()

	// Fast path for NRGBA images
	if n, ok := img.(*image.NRGBA); ok && b.Min == (image.Point{}) && n.Stride == 4*b.Dx() {
		return n
	}

	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}

// fromRaw expands tightly packed raw pixels to RGBA8.
func fromRaw(s ir.RawSource) (*image.NRGBA, error) {
	bpp := s.Format.BytesPerPixel()
	if bpp == 0 || s.Width <= 0 || s.Height <= 0 {
		return nil, &DecodeError{Source: s.ID(), Err: fmt.Errorf("invalid raw image %dx%d format %d", s.Width, s.Height, s.Format)}
	}
	if want := s.Width * s.Height * bpp; len(s.Pixels) != want {
		return nil, &DecodeError{Source: s.ID(), Err: fmt.Errorf("raw image has %d bytes, want %d", len(s.Pixels), want)}
	}

	dst := image.NewNRGBA(image.Rect(0, 0, s.Width, s.Height))
	switch s.Format {
	case ir.PixelRGBA8:
		copy(dst.Pix, s.Pixels)
	case ir.PixelRGB8:
		for i, j := 0, 0; i < len(dst.Pix); i, j = i+4, j+3 {
			dst.Pix[i], dst.Pix[i+1], dst.Pix[i+2], dst.Pix[i+3] = s.Pixels[j], s.Pixels[j+1], s.Pixels[j+2], 255
		}
	case ir.PixelGray8:
		for i, j := 0, 0; i < len(dst.Pix); i, j = i+4, j+1 {
			g := s.Pixels[j]
			dst.Pix[i], dst.Pix[i+1], dst.Pix[i+2], dst.Pix[i+3] = g, g, g, 255
		}
	}
	return dst, nil
}

// downsample shrinks src so that its larger side fits maxDim.
//
// The scale factor is the integer floor(max(w, h) / maxDim) and each side
// becomes floor(side / factor). Every output texel is the average of its
// factor×factor source block. Source texels past the last whole block are
// dropped, not blended, so the result may still be larger than maxDim
// when the ratio is below 2.
func downsample(src *image.NRGBA, maxDim int) *image.NRGBA {
	w, h := src.Rect.Dx(), src.Rect.Dy()
	if maxDim <= 0 || max(w, h) <= maxDim {
		return src
	}
	f := max(w, h) / maxDim
	if f <= 1 {
		return src
	}
	dw, dh := max(1, w/f), max(1, h/f)

	dst := image.NewNRGBA(image.Rect(0, 0, dw, dh))
	for dy := range dh {
		for dx := range dw {
			var sum [4]int
			n := 0
			// A side shorter than f still yields one texel averaging what exists.
			for sy := dy * f; sy < min(dy*f+f, h); sy++ {
				row := src.Pix[sy*src.Stride:]
				for sx := dx * f; sx < min(dx*f+f, w); sx++ {
					p := row[sx*4 : sx*4+4]
					sum[0] += int(p[0])
					sum[1] += int(p[1])
					sum[2] += int(p[2])
					sum[3] += int(p[3])
					n++
				}
			}
			o := dst.PixOffset(dx, dy)
			for c := range 4 {
				dst.Pix[o+c] = byte(sum[c] / n)
			}
		}
	}
	return dst
}

// alphaRange returns the minimum and maximum alpha of img in [0, 1].
func alphaRange(img *image.NRGBA) (lo, hi float32) {
	minA, maxA := byte(255), byte(0)
	for i := 3; i < len(img.Pix); i += 4 {
		minA = min(minA, img.Pix[i])
		maxA = max(maxA, img.Pix[i])
	}
	return float32(minA) / 255, float32(maxA) / 255
}

// invert replaces channel c of every texel by its complement.
func invert(img *image.NRGBA, c Channel) {
	if c == ChannelNone || c > ChannelA {
		return
	}
	off := int(c) - 1
	for i := off; i < len(img.Pix); i += 4 {
		img.Pix[i] = 255 - img.Pix[i]
	}
}
