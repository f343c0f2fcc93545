package qoi

import (
	"bufio"
	"encoding/binary"
	"image"
	"image/color"
	"io"
)

// Encode writes img to w in the QOI format, losslessly.
func Encode(w io.Writer, img image.Image) error {
	return EncodeLossy(w, img, 0)
}

// EncodeLossy writes img to w, folding consecutive pixels whose color
// channels each lie within tolerance of the pixel that started the current
// run into that run. Alpha must match exactly for a pixel to join a run.
// Folded pixels decode to the run's first pixel, so tolerance 0 is
// equivalent to Encode.
func EncodeLossy(w io.Writer, img image.Image, tolerance int) error {
	b := img.Bounds()
	desc := desc{
		Magic:    magicBytes,
		Width:    uint32(b.Dx()),
		Height:   uint32(b.Dy()),
		Channels: channels(img),
	}
	if err := binary.Write(w, binary.BigEndian, desc); err != nil {
		return err
	}

	enc := NewLossyEncoder(w, tolerance)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if err := enc.Encode(img.At(x, y)); err != nil {
				return err
			}
		}
	}
	if err := enc.Finish(); err != nil {
		return err
	}

	return binary.Write(w, binary.BigEndian, footer)
}

// channels picks the header's channel count. The byte is informational
// only; the opcode stream does not depend on it.
func channels(img image.Image) uint8 {
	if o, ok := img.(interface{ Opaque() bool }); ok && o.Opaque() {
		return 3
	}
	return 4
}

type Encoder struct {
	w *bufio.Writer

	prev      color.NRGBA
	run       int
	index     [64]color.NRGBA
	tolerance int

	err error
}

func NewEncoder(w io.Writer) *Encoder {
	return NewLossyEncoder(w, 0)
}

func NewLossyEncoder(w io.Writer, tolerance int) *Encoder {
	if tolerance < 0 {
		tolerance = 0
	}
	return &Encoder{
		w:         bufio.NewWriter(w),
		prev:      opaque,
		tolerance: tolerance,
	}
}

func (e *Encoder) Encode(c color.Color) error {
	px := color.NRGBAModel.Convert(c).(color.NRGBA)

	// A near pixel extends the current run. e.prev stays the pixel that
	// started the run: merged pixels all decode to that anchor, and the
	// tolerance box cannot drift along a gradient.
	if near(px, e.prev, e.tolerance) {
		e.run++
		if e.run == maxRun {
			e.writeByte(opRun | byte(e.run-1))
			e.run = 0
		}
		return e.err
	}

	if e.run > 0 {
		e.writeByte(opRun | byte(e.run-1))
		e.run = 0
	}

	pos := hash(px)
	if e.index[pos] == px {
		e.writeByte(opIndex | pos)
		e.prev = px
		return e.err
	}
	e.index[pos] = px

	dr := int(px.R) - int(e.prev.R)
	dg := int(px.G) - int(e.prev.G)
	db := int(px.B) - int(e.prev.B)

	switch {
	case px.A != e.prev.A:
		e.writeByte(opRGBA)
		e.writeByte(px.R)
		e.writeByte(px.G)
		e.writeByte(px.B)
		e.writeByte(px.A)

	case dr >= -2 && dr <= 1 &&
		dg >= -2 && dg <= 1 &&
		db >= -2 && db <= 1:
		e.writeByte(opDiff | byte(dr+2)<<4 | byte(dg+2)<<2 | byte(db+2))

	case dg >= -32 && dg <= 31 &&
		dr-dg >= -8 && dr-dg <= 7 &&
		db-dg >= -8 && db-dg <= 7:
		e.writeByte(opLuma | byte(dg+32))
		e.writeByte(byte(dr-dg+8)<<4 | byte(db-dg+8))

	default:
		e.writeByte(opRGB)
		e.writeByte(px.R)
		e.writeByte(px.G)
		e.writeByte(px.B)
	}

	e.prev = px
	return e.err
}

// Finish flushes a pending run and the underlying buffer. It must be called
// exactly once, after the last pixel and before any trailer is written.
func (e *Encoder) Finish() error {
	if e.run > 0 {
		e.writeByte(opRun | byte(e.run-1))
		e.run = 0
	}
	if e.err != nil {
		return e.err
	}
	return e.w.Flush()
}

func (e *Encoder) writeByte(b byte) {
	if e.err != nil {
		return
	}
	e.err = e.w.WriteByte(b)
}
