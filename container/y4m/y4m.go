/*
DESCRIPTION
  y4m.go provides a muxer writing decoded av1dec frames as a YUV4MPEG2
  stream.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package y4m provides writing of YUV4MPEG2 streams.
package y4m

import (
	"fmt"
	"io"

	"github.com/pkg/errors"

	"github.com/ausocean/av1/codec/av1/av1dec"
)

const (
	streamMagic = "YUV4MPEG2"
	frameMagic  = "FRAME\n"
)

var ErrFormatChange = errors.New("frame format differs from stream format")

// Encoder writes frames to a YUV4MPEG2 stream. The stream header is written
// with the first frame, whose geometry and format all later frames must
// share.
type Encoder struct {
	dst io.Writer

	// Frame rate as num/den frames per second.
	rateNum, rateDen uint64

	// highBitDepth keeps samples wider than 8 bits. Otherwise they are
	// truncated to 8 bits.
	highBitDepth bool

	started       bool
	width, height int
	layout        av1dec.PixelLayout
	bitDepth      int
	buf           []byte
}

// NewEncoder returns a new Encoder writing to dst at the frame rate
// num/den.
func NewEncoder(dst io.Writer, num, den uint64, highBitDepth bool) *Encoder {
	if num == 0 || den == 0 {
		num, den = 30, 1
	}
	return &Encoder{dst: dst, rateNum: num, rateDen: den, highBitDepth: highBitDepth}
}

// Colorspace returns the C parameter for a stream of the given layout and
// output bit depth.
func Colorspace(layout av1dec.PixelLayout, bitDepth int) (string, error) {
	var cs string
	switch layout {
	case av1dec.PixelLayoutI400:
		if bitDepth > 8 {
			return fmt.Sprintf("mono%d", bitDepth), nil
		}
		return "mono", nil
	case av1dec.PixelLayoutI420:
		cs = "420"
		if bitDepth == 8 {
			return "420jpeg", nil
		}
	case av1dec.PixelLayoutI422:
		cs = "422"
	case av1dec.PixelLayoutI444:
		cs = "444"
	default:
		return "", errors.Errorf("unknown pixel layout %d", layout)
	}
	if bitDepth > 8 {
		cs += fmt.Sprintf("p%d", bitDepth)
	}
	return cs, nil
}

// outDepth returns the bit depth written for frames of bit depth d.
func (e *Encoder) outDepth(d int) int {
	if e.highBitDepth {
		return d
	}
	return 8
}

// writeHeader writes the stream header for frames formatted as f.
func (e *Encoder) writeHeader(f *av1dec.Frame) error {
	cs, err := Colorspace(f.Layout, e.outDepth(f.BitDepth))
	if err != nil {
		return err
	}
	y := f.Planes[0]
	_, err = fmt.Fprintf(e.dst, "%s W%d H%d F%d:%d Ip A0:0 C%s\n", streamMagic, y.Width, y.Height, e.rateNum, e.rateDen, cs)
	if err != nil {
		return errors.Wrap(err, "could not write stream header")
	}
	e.started = true
	e.width, e.height = y.Width, y.Height
	e.layout, e.bitDepth = f.Layout, f.BitDepth
	return nil
}

// Write writes f as the next frame of the stream.
func (e *Encoder) Write(f *av1dec.Frame) error {
	if !e.started {
		err := e.writeHeader(f)
		if err != nil {
			return err
		}
	}
	y := f.Planes[0]
	if y.Width != e.width || y.Height != e.height || f.Layout != e.layout || f.BitDepth != e.bitDepth {
		return errors.Wrapf(ErrFormatChange, "got %dx%d %v %d-bit, want %dx%d %v %d-bit",
			y.Width, y.Height, f.Layout, f.BitDepth, e.width, e.height, e.layout, e.bitDepth)
	}

	_, err := io.WriteString(e.dst, frameMagic)
	if err != nil {
		return errors.Wrap(err, "could not write frame header")
	}
	for i := range f.Planes {
		p := &f.Planes[i]
		if p.Data == nil {
			continue
		}
		for row := 0; row < p.Height; row++ {
			_, err = e.dst.Write(e.samples(p.Row(row), p.BytesPerSample, f.BitDepth))
			if err != nil {
				return errors.Wrapf(err, "could not write row %d of plane %d", row, i)
			}
		}
	}
	return nil
}

// samples returns the output bytes for a row of samples of the given depth.
func (e *Encoder) samples(row []byte, bps, depth int) []byte {
	if bps == 1 || e.highBitDepth {
		return row
	}
	n := len(row) / 2
	if cap(e.buf) < n {
		e.buf = make([]byte, n)
	}
	out := e.buf[:n]
	shift := uint(depth - 8)
	for i := range out {
		v := uint16(row[2*i]) | uint16(row[2*i+1])<<8
		out[i] = byte(v >> shift)
	}
	return out
}
