/*
DESCRIPTION
  ivf.go provides a demuxer for IVF files holding AV1 video, producing
  packets for the av1dec decoder.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package ivf provides reading of IVF files.
package ivf

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"

	"github.com/ausocean/av1/codec/av1/av1dec"
)

// Sizes of the file and frame headers.
const (
	FileHeaderSize  = 32
	FrameHeaderSize = 12
)

// Signature starts every IVF file and FourCCAV1 identifies AV1 content.
const (
	Signature = "DKIF"
	FourCCAV1 = "AV01"
)

// maxFrameSize bounds the size field of a frame header.
const maxFrameSize = 256 << 20

var (
	ErrNotIVF         = errors.New("not an IVF file")
	ErrVersion        = errors.New("unsupported IVF version")
	ErrCodec          = errors.New("IVF file does not hold AV1")
	ErrFrameTooLarge  = errors.New("IVF frame too large")
	ErrTruncatedFrame = errors.New("truncated IVF frame")
)

// Rational is a fraction num/den.
type Rational struct {
	Num, Den uint64
}

// VideoDetails describes the video held in an IVF file. TimeBase is the
// duration of one timestamp tick in seconds.
type VideoDetails struct {
	FourCC        string
	Width, Height int
	TimeBase      Rational
	NumFrames     int
}

// FrameRate returns the number of timestamp ticks per second.
func (v VideoDetails) FrameRate() Rational {
	return Rational{Num: v.TimeBase.Den, Den: v.TimeBase.Num}
}

// fileHeader is the layout of the IVF file header.
type fileHeader struct {
	Signature  [4]byte
	Version    uint16
	HeaderSize uint16
	FourCC     [4]byte
	Width      uint16
	Height     uint16
	Rate       uint32
	Scale      uint32
	NumFrames  uint32
	_          uint32
}

// frameHeader is the layout of the header preceding each frame.
type frameHeader struct {
	Size uint32
	PTS  uint64
}

// Demuxer reads AV1 packets from an IVF stream.
type Demuxer struct {
	src     io.Reader
	details VideoDetails
	opened  bool
}

// NewDemuxer returns a new Demuxer reading from src.
func NewDemuxer(src io.Reader) *Demuxer {
	return &Demuxer{src: src}
}

// Open reads the file header and returns the video details. Files whose
// fourcc is not AV01 are rejected.
func (d *Demuxer) Open() (VideoDetails, error) {
	var hdr fileHeader
	err := binary.Read(d.src, binary.LittleEndian, &hdr)
	if err != nil {
		return VideoDetails{}, errors.Wrap(err, "could not read file header")
	}
	if string(hdr.Signature[:]) != Signature {
		return VideoDetails{}, ErrNotIVF
	}
	if hdr.Version != 0 {
		return VideoDetails{}, errors.Wrapf(ErrVersion, "version %d", hdr.Version)
	}
	if string(hdr.FourCC[:]) != FourCCAV1 {
		return VideoDetails{}, errors.Wrapf(ErrCodec, "fourcc %q", hdr.FourCC[:])
	}

	// Skip any header extension.
	if hdr.HeaderSize > FileHeaderSize {
		_, err = io.CopyN(io.Discard, d.src, int64(hdr.HeaderSize-FileHeaderSize))
		if err != nil {
			return VideoDetails{}, errors.Wrap(err, "could not skip header extension")
		}
	}

	d.details = VideoDetails{
		FourCC:    string(hdr.FourCC[:]),
		Width:     int(hdr.Width),
		Height:    int(hdr.Height),
		TimeBase:  Rational{Num: uint64(hdr.Scale), Den: uint64(hdr.Rate)},
		NumFrames: int(hdr.NumFrames),
	}
	d.opened = true
	return d.details, nil
}

// Read returns the next frame as a packet. io.EOF is returned once the stream
// ends cleanly between frames.
func (d *Demuxer) Read() (*av1dec.Packet, error) {
	if !d.opened {
		return nil, errors.New("demuxer not opened")
	}

	var hdr frameHeader
	err := binary.Read(d.src, binary.LittleEndian, &hdr)
	switch {
	case err == io.EOF:
		return nil, io.EOF
	case err != nil:
		return nil, errors.Wrap(ErrTruncatedFrame, err.Error())
	}
	if hdr.Size > maxFrameSize {
		return nil, errors.Wrapf(ErrFrameTooLarge, "size %d", hdr.Size)
	}

	data := make([]byte, hdr.Size)
	_, err = io.ReadFull(d.src, data)
	if err != nil {
		return nil, errors.Wrap(ErrTruncatedFrame, err.Error())
	}
	return &av1dec.Packet{Data: data, PTS: int64(hdr.PTS)}, nil
}

// Skip discards the next n frames.
func (d *Demuxer) Skip(n int) error {
	for i := 0; i < n; i++ {
		_, err := d.Read()
		if err != nil {
			return errors.Wrapf(err, "could not skip frame %d", i)
		}
	}
	return nil
}
