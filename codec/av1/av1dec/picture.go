/*
DESCRIPTION
  picture.go provides the Frame and Plane types holding decoded pictures.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package av1dec

// Plane is one plane of a picture. Samples wider than 8 bits are stored as
// two bytes, little-endian.
type Plane struct {
	Data           []byte
	Stride         int // In bytes.
	Width, Height  int // In samples.
	BytesPerSample int
}

// Row returns the bytes of row y of the plane.
func (p *Plane) Row(y int) []byte {
	off := y * p.Stride
	return p.Data[off : off+p.Width*p.BytesPerSample]
}

// Frame is a decoded picture.
type Frame struct {
	// Planes holds the Y, U and V planes. The chroma planes are empty for
	// monochrome pictures.
	Planes [3]Plane

	Layout   PixelLayout
	BitDepth int

	FrameType FrameType

	// PTS and Duration are carried over from the packet the frame was
	// decoded from.
	PTS      int64
	Duration int64

	SeqHdr   *SequenceHeader
	FrameHdr *FrameHeader

	// FilmGrain holds the grain synthesis parameters of the frame when film
	// grain application is enabled and the frame carries grain.
	FilmGrain *FilmGrainData
}

// newFrame allocates a picture with the geometry of hdr, filled with
// mid-grey.
func newFrame(seq *SequenceHeader, hdr *FrameHeader) *Frame {
	f := &Frame{
		Layout:    seq.Layout,
		BitDepth:  seq.BitDepth(),
		FrameType: hdr.FrameType,
		SeqHdr:    seq,
		FrameHdr:  hdr,
	}

	bps := 1
	if f.BitDepth > 8 {
		bps = 2
	}
	mid := 1 << uint(f.BitDepth-1)

	w, h := hdr.Width[1], hdr.Height
	for i := range f.Planes {
		pw, ph := w, h
		if i > 0 {
			if seq.Layout == PixelLayoutI400 {
				break
			}
			pw = (w + seq.SSHor) >> uint(seq.SSHor)
			ph = (h + seq.SSVer) >> uint(seq.SSVer)
		}
		p := &f.Planes[i]
		p.Width, p.Height = pw, ph
		p.BytesPerSample = bps
		p.Stride = pw * bps
		p.Data = make([]byte, p.Stride*ph)
		if bps == 1 {
			fill(p.Data, byte(mid))
		} else {
			for j := 0; j < len(p.Data); j += 2 {
				p.Data[j] = byte(mid)
				p.Data[j+1] = byte(mid >> 8)
			}
		}
	}
	return f
}
