// Package bc implements the BC3 (DXT5) block-compressed texture format.
//
// A BC3 block stores 4×4 RGBA8 texels in 16 bytes: an 8-byte alpha block
// (two 8-bit endpoints and 3-bit indices) followed by an 8-byte color
// block (two RGB565 endpoints and 2-bit indices). Images whose sides are
// not multiples of 4 are padded by repeating their last row and column.
//
// The encoder fits endpoints to the bounding box of each block. It is
// fast and fully deterministic rather than optimal.
package bc

// BlockSize is the size of one encoded 4×4 block in bytes.
const BlockSize = 16

// Blocks returns the number of blocks along a side of n texels.
func Blocks(n int) int { return (n + 3) / 4 }

// EncodedSize returns the size of a w×h image encoded as BC3.
func EncodedSize(w, h int) int { return Blocks(w) * Blocks(h) * BlockSize }

// Encode compresses a tightly packed w×h RGBA8 image.
func Encode(rgba []byte, w, h int) []byte {
	out := make([]byte, EncodedSize(w, h))
	var block [16][4]byte
	o := 0
	for by := 0; by < h; by += 4 {
		for bx := 0; bx < w; bx += 4 {
			for i := range 16 {
				x := min(bx+i%4, w-1)
				y := min(by+i/4, h-1)
				copy(block[i][:], rgba[(y*w+x)*4:])
			}
			encodeAlpha(out[o:o+8], &block)
			encodeColor(out[o+8:o+16], &block)
			o += BlockSize
		}
	}
	return out
}

func encodeAlpha(dst []byte, block *[16][4]byte) {
	lo, hi := byte(255), byte(0)
	for i := range block {
		a := block[i][3]
		lo = min(lo, a)
		hi = max(hi, a)
	}
	dst[0], dst[1] = hi, lo
	for i := 2; i < 8; i++ {
		dst[i] = 0
	}
	if hi == lo {
		return
	}
	pal := alphaPalette(hi, lo)
	var bits uint64
	for i := range block {
		a := int(block[i][3])
		best, bestD := 0, 1<<30
		for j, p := range pal {
			d := a - int(p)
			if d < 0 {
				d = -d
			}
			if d < bestD {
				best, bestD = j, d
			}
		}
		bits |= uint64(best) << (3 * i)
	}
	for i := range 6 {
		dst[2+i] = byte(bits >> (8 * i))
	}
}

// alphaPalette returns the eight-level alpha palette for a0 > a1.
func alphaPalette(a0, a1 byte) [8]byte {
	var p [8]byte
	p[0], p[1] = a0, a1
	for i := 1; i <= 6; i++ {
		p[i+1] = byte(((7-i)*int(a0) + i*int(a1)) / 7)
	}
	return p
}

func to565(r, g, b byte) uint16 {
	return uint16(r>>3)<<11 | uint16(g>>2)<<5 | uint16(b>>3)
}

func from565(c uint16) [3]int {
	r := int(c>>11) & 31
	g := int(c>>5) & 63
	b := int(c) & 31
	return [3]int{r<<3 | r>>2, g<<2 | g>>4, b<<3 | b>>2}
}

func encodeColor(dst []byte, block *[16][4]byte) {
	var lo, hi [3]byte
	lo = [3]byte{255, 255, 255}
	for i := range block {
		for c := range 3 {
			lo[c] = min(lo[c], block[i][c])
			hi[c] = max(hi[c], block[i][c])
		}
	}
	c0 := to565(hi[0], hi[1], hi[2])
	c1 := to565(lo[0], lo[1], lo[2])
	if c0 < c1 {
		c0, c1 = c1, c0
	}
	dst[0], dst[1] = byte(c0), byte(c0>>8)
	dst[2], dst[3] = byte(c1), byte(c1>>8)
	dst[4], dst[5], dst[6], dst[7] = 0, 0, 0, 0
	if c0 == c1 {
		return
	}
	pal := colorPalette(c0, c1)
	var bits uint32
	for i := range block {
		best, bestD := 0, 1<<30
		for j, p := range pal {
			d := 0
			for c := range 3 {
				e := int(block[i][c]) - p[c]
				d += e * e
			}
			if d < bestD {
				best, bestD = j, d
			}
		}
		bits |= uint32(best) << (2 * i)
	}
	dst[4], dst[5], dst[6], dst[7] = byte(bits), byte(bits>>8), byte(bits>>16), byte(bits>>24)
}

// colorPalette returns the four-color palette for c0 > c1.
func colorPalette(c0, c1 uint16) [4][3]int {
	a, b := from565(c0), from565(c1)
	var p [4][3]int
	p[0], p[1] = a, b
	for c := range 3 {
		p[2][c] = (2*a[c] + b[c]) / 3
		p[3][c] = (a[c] + 2*b[c]) / 3
	}
	return p
}

// Decode expands BC3 data back to a tightly packed w×h RGBA8 image.
func Decode(data []byte, w, h int) []byte {
	out := make([]byte, w*h*4)
	o := 0
	for by := 0; by < h; by += 4 {
		for bx := 0; bx < w; bx += 4 {
			blk := data[o : o+BlockSize]
			o += BlockSize
			alpha := decodeAlpha(blk[:8])
			color := decodeColor(blk[8:])
			for i := range 16 {
				x, y := bx+i%4, by+i/4
				if x >= w || y >= h {
					continue
				}
				p := out[(y*w+x)*4:]
				p[0], p[1], p[2] = byte(color[i][0]), byte(color[i][1]), byte(color[i][2])
				p[3] = alpha[i]
			}
		}
	}
	return out
}

func decodeAlpha(blk []byte) [16]byte {
	a0, a1 := blk[0], blk[1]
	var pal [8]byte
	if a0 > a1 {
		pal = alphaPalette(a0, a1)
	} else {
		pal[0], pal[1] = a0, a1
		for i := 1; i <= 4; i++ {
			pal[i+1] = byte(((5-i)*int(a0) + i*int(a1)) / 5)
		}
		pal[6], pal[7] = 0, 255
	}
	var bits uint64
	for i := range 6 {
		bits |= uint64(blk[2+i]) << (8 * i)
	}
	var out [16]byte
	for i := range out {
		out[i] = pal[bits>>(3*i)&7]
	}
	return out
}

func decodeColor(blk []byte) [16][3]int {
	c0 := uint16(blk[0]) | uint16(blk[1])<<8
	c1 := uint16(blk[2]) | uint16(blk[3])<<8
	pal := colorPalette(c0, c1)
	bits := uint32(blk[4]) | uint32(blk[5])<<8 | uint32(blk[6])<<16 | uint32(blk[7])<<24
	var out [16][3]int
	for i := range out {
		out[i] = pal[bits>>(2*i)&3]
	}
	return out
}
