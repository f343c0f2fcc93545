package qoi

import (
	"image/color"
)

const (
	opIndex byte = 0x00 // 00xxxxxx
	opDiff  byte = 0x40 // 01xxxxxx
	opLuma  byte = 0x80 // 10xxxxxx
	opRun   byte = 0xc0 // 11xxxxxx
	opRGB   byte = 0xfe // 11111110
	opRGBA  byte = 0xff // 11111111

	opMask2 byte = 0xc0 // 11000000

	// Run lengths are stored biased by one; stored values 62 and 63 would
	// collide with the opRGB/opRGBA tag bytes, so runs cap at 62 pixels.
	maxRun = 62
)

type desc struct {
	Magic                [4]byte
	Width, Height        uint32
	Channels, Colorspace uint8
}

var (
	Magic = string(magicBytes[:])

	magicBytes = [4]byte{'q', 'o', 'i', 'f'}
	footer     = [8]byte{0, 0, 0, 0, 0, 0, 0, 1}
	opaque     = color.NRGBA{0, 0, 0, 255}
)

// hash is the color index position for px. The byte multiplications wrap
// mod 256, which preserves the result mod 64.
func hash(px color.NRGBA) uint8 {
	return (px.R*3 + px.G*5 + px.B*7 + px.A*11) % 64
}

// near reports whether px may join a run anchored at prev: every color
// channel within tolerance, alpha exactly equal.
func near(px, prev color.NRGBA, tolerance int) bool {
	return absDiff(px.R, prev.R) <= tolerance &&
		absDiff(px.G, prev.G) <= tolerance &&
		absDiff(px.B, prev.B) <= tolerance &&
		px.A == prev.A
}

func absDiff(a, b uint8) int {
	d := int(a) - int(b)
	if d < 0 {
		return -d
	}
	return d
}
