/*
DESCRIPTION
  encoder.go provides an Encoder writing AV1 temporal units to an IVF stream.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package ivf

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"

	"github.com/ausocean/av1/codec/av1/av1dec"
)

// Encoder writes an IVF stream. Each call to Write is given one temporal unit
// and writes it as one frame, with timestamps counting frames from 0.
type Encoder struct {
	dst      io.Writer
	timeBase Rational

	width, height int
	frames        int
	started       bool
}

// NewEncoder returns an Encoder writing to dst with the given time base.
func NewEncoder(dst io.Writer, timeBase Rational) *Encoder {
	return &Encoder{dst: dst, timeBase: timeBase}
}

// Write implements io.Writer. The file header is written before the first
// frame, taking the frame size from the first unit holding a sequence header.
func (e *Encoder) Write(tu []byte) (int, error) {
	if e.width == 0 {
		e.width, e.height = sequenceSize(tu)
	}
	if !e.started {
		err := e.writeHeader()
		if err != nil {
			return 0, err
		}
	}

	err := binary.Write(e.dst, binary.LittleEndian, frameHeader{Size: uint32(len(tu)), PTS: uint64(e.frames)})
	if err != nil {
		return 0, errors.Wrap(err, "could not write frame header")
	}
	n, err := e.dst.Write(tu)
	if err != nil {
		return n, errors.Wrap(err, "could not write frame")
	}
	e.frames++
	return n, nil
}

// Frames returns the number of frames written.
func (e *Encoder) Frames() int { return e.frames }

func (e *Encoder) writeHeader() error {
	hdr := fileHeader{
		Version:    0,
		HeaderSize: FileHeaderSize,
		Width:      uint16(e.width),
		Height:     uint16(e.height),
		Rate:       uint32(e.timeBase.Den),
		Scale:      uint32(e.timeBase.Num),
		NumFrames:  uint32(e.frames),
	}
	copy(hdr.Signature[:], Signature)
	copy(hdr.FourCC[:], FourCCAV1)
	err := binary.Write(e.dst, binary.LittleEndian, hdr)
	if err != nil {
		return errors.Wrap(err, "could not write file header")
	}
	e.started = true
	return nil
}

// Close completes the stream. If dst can seek, the file header is rewritten
// with the frame count; otherwise the count is left as zero. dst is not
// closed.
func (e *Encoder) Close() error {
	if !e.started {
		return e.writeHeader()
	}
	ws, ok := e.dst.(io.WriteSeeker)
	if !ok {
		return nil
	}
	_, err := ws.Seek(0, io.SeekStart)
	if err != nil {
		return nil // Pipes can't seek.
	}
	err = e.writeHeader()
	if err != nil {
		return err
	}
	_, err = ws.Seek(0, io.SeekEnd)
	return err
}

// sequenceSize returns the maximum frame size given by the first sequence
// header in tu, or zeros if there is none.
func sequenceSize(tu []byte) (width, height int) {
	for len(tu) > 0 {
		h, err := av1dec.ParseOBUHeader(tu)
		if err != nil || h.HeaderSize+h.Size > len(tu) {
			return 0, 0
		}
		payload := tu[h.HeaderSize : h.HeaderSize+h.Size]
		if h.Type == av1dec.OBUSeqHdr {
			seq, err := av1dec.ParseSequenceHeader(payload)
			if err != nil {
				return 0, 0
			}
			return seq.MaxWidth, seq.MaxHeight
		}
		tu = tu[h.HeaderSize+h.Size:]
	}
	return 0, 0
}
