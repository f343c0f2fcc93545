package qoi

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
)

var ErrBadMagic = errors.New("bad magic value")

func init() {
	image.RegisterFormat("qoi", Magic, Decode, DecodeConfig)
}

func Decode(r io.Reader) (image.Image, error) {
	desc, err := readDesc(r)
	if err != nil {
		return nil, err
	}
	img := image.NewNRGBA(image.Rect(0, 0, int(desc.Width), int(desc.Height)))
	d := NewDecoder(r)

	// The chunk stream is not self-terminating (the footer bytes alias
	// INDEX opcodes), so read exactly width*height pixels and stop.
	n := int(desc.Width) * int(desc.Height)
	for i := 0; i < n; i++ {
		if !d.Next() {
			err := d.Err()
			if err == nil || errors.Is(err, io.EOF) {
				err = io.ErrUnexpectedEOF
			}
			return nil, err
		}
		c := d.Current()
		img.Pix[i*4+0] = c.R
		img.Pix[i*4+1] = c.G
		img.Pix[i*4+2] = c.B
		img.Pix[i*4+3] = c.A
	}
	return img, nil
}

func DecodeConfig(r io.Reader) (image.Config, error) {
	desc, err := readDesc(r)
	if err != nil {
		return image.Config{}, err
	}
	return image.Config{
		ColorModel: color.NRGBAModel,
		Width:      int(desc.Width),
		Height:     int(desc.Height),
	}, nil
}

func readDesc(r io.Reader) (desc desc, err error) {
	err = binary.Read(r, binary.BigEndian, &desc)
	if err != nil {
		return
	}
	if desc.Magic != magicBytes {
		return desc, ErrBadMagic
	}
	if desc.Channels < 3 || desc.Channels > 4 {
		return desc, fmt.Errorf("bad channels: %d", desc.Channels)
	}
	return
}

type Decoder struct {
	r   *bufio.Reader
	cur color.NRGBA

	index [64]color.NRGBA
	run   int

	err error
}

func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{
		r:   bufio.NewReader(r),
		cur: opaque,
	}
}

func (p *Decoder) read8() (b byte, ok bool) {
	b, p.err = p.r.ReadByte()
	return b, p.err == nil
}

func (p *Decoder) Next() bool {
	// we're inside a run; no need to read more data
	if p.run > 0 {
		p.run--
		return true
	}

	if p.err != nil {
		return false
	}

	b1, ok := p.read8()
	if !ok {
		return false
	}

	switch {
	case b1 == opRGB:
		if p.cur.R, ok = p.read8(); !ok {
			return false
		}
		if p.cur.G, ok = p.read8(); !ok {
			return false
		}
		if p.cur.B, ok = p.read8(); !ok {
			return false
		}

	case b1 == opRGBA:
		if p.cur.R, ok = p.read8(); !ok {
			return false
		}
		if p.cur.G, ok = p.read8(); !ok {
			return false
		}
		if p.cur.B, ok = p.read8(); !ok {
			return false
		}
		if p.cur.A, ok = p.read8(); !ok {
			return false
		}

	case (b1 & opMask2) == opIndex:
		p.cur = p.index[b1&0x3f]

	case (b1 & opMask2) == opDiff:
		p.cur.R += ((b1 >> 4) & 0x03) - 2
		p.cur.G += ((b1 >> 2) & 0x03) - 2
		p.cur.B += (b1 & 0x03) - 2

	case (b1 & opMask2) == opLuma:
		b2, ok := p.read8()
		if !ok {
			return false
		}
		dg := (b1 & 0x3f) - 32
		p.cur.R += dg - 8 + (b2 >> 4)
		p.cur.G += dg
		p.cur.B += dg - 8 + (b2 & 0x0f)

	case (b1 & opMask2) == opRun:
		p.run = int(b1 & 0x3f)
	}

	// Stored once per chunk, never per run-folded pixel, mirroring the
	// encoder's index updates.
	p.index[hash(p.cur)] = p.cur
	return true
}

func (p *Decoder) Current() color.NRGBA {
	return p.cur
}

func (p *Decoder) Err() error {
	return p.err
}
