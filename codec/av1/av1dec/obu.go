/*
DESCRIPTION
  obu.go provides parsing of OBU headers and dispatch of OBU payloads to the
  sequence header, frame header and tile group parsers.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package av1dec

import (
	"github.com/pkg/errors"

	"github.com/ausocean/av1/codec/av1/av1dec/bits"
)

// OBUHeader is the header of an open bitstream unit.
type OBUHeader struct {
	Type         OBUType
	HasExtension bool
	HasSizeField bool

	// TemporalID and SpatialID come from the extension header, and are zero
	// without one.
	TemporalID int
	SpatialID  int

	// HeaderSize is the number of bytes taken by the header and size field.
	HeaderSize int

	// Size is the payload size in bytes.
	Size int
}

// ParseOBUHeader parses the OBU header at the start of data. Without a size
// field the payload is taken to fill the rest of data. The caller checks
// that the payload fits in data.
func ParseOBUHeader(data []byte) (OBUHeader, error) {
	var h OBUHeader
	br := bits.NewBitReader(data)

	if br.ReadFlag() {
		return h, invalidf("OBU forbidden bit set")
	}
	h.Type = OBUType(br.ReadBits(4))
	h.HasExtension = br.ReadFlag()
	h.HasSizeField = br.ReadFlag()
	br.ReadBits(1) // Reserved.

	if h.HasExtension {
		h.TemporalID = int(br.ReadBits(3))
		h.SpatialID = int(br.ReadBits(2))
		br.ReadBits(3) // Reserved.
	}

	if h.HasSizeField {
		h.Size = int(br.ReadULEB128())
	} else {
		ext := 0
		if h.HasExtension {
			ext = 1
		}
		h.Size = len(data) - 1 - ext
	}
	if br.Err() != nil {
		return h, errors.Wrap(ErrInvalidData, "OBU header overrun")
	}
	if h.Size < 0 {
		return h, invalidf("negative OBU size")
	}
	h.HeaderSize = br.BytePos()
	return h, nil
}

// parseOBU parses the OBU starting at byte off of data and returns the offset
// of the next OBU.
func (d *Decoder) parseOBU(data []byte, off int) (int, error) {
	h, err := ParseOBUHeader(data[off:])
	if err != nil {
		return 0, err
	}
	start := off + h.HeaderSize
	if h.Size > len(data)-start {
		return 0, invalidf("%v size %d exceeds remaining %d bytes", h.Type, h.Size, len(data)-start)
	}
	next := start + h.Size
	payload := data[start:next]

	if h.Type != OBUSeqHdr && h.Type != OBUTemporalDelimiter && h.HasExtension && d.opIDC != 0 {
		inTemporal := (d.opIDC>>uint(h.TemporalID))&1 != 0
		inSpatial := (d.opIDC>>uint(h.SpatialID+8))&1 != 0
		if !inTemporal || !inSpatial {
			d.log.Debug("dropping OBU outside operating point", "type", h.Type.String(), "tid", h.TemporalID, "sid", h.SpatialID)
			return next, nil
		}
	}

	switch h.Type {
	case OBUSeqHdr:
		seq, err := ParseSequenceHeader(payload)
		if err != nil {
			return 0, errors.Wrap(err, "could not parse sequence header")
		}
		d.onSequenceHeader(seq)

	case OBUTemporalDelimiter:
		d.frameHdr = nil
		d.tiles = d.tiles[:0]
		d.nTiles = 0

	case OBURedundantFrameHdr:
		if d.frameHdr != nil {
			return next, nil
		}
		fallthrough

	case OBUFrameHdr, OBUFrame:
		err = d.parseFrameOBU(h, payload, start)
		if err != nil {
			return 0, err
		}

	case OBUTileGrp:
		if d.frameHdr == nil {
			return 0, invalidf("tile group without frame header")
		}
		err = d.parseTileGroup(bits.NewBitReader(payload), payload, start)
		if err != nil {
			return 0, err
		}

	case OBUMetadata, OBUPadding, OBUTileList:
		d.log.Debug("skipping OBU", "type", h.Type.String(), "size", h.Size)

	default:
		d.log.Debug("unknown OBU type", "type", h.Type.String(), "size", h.Size)
	}
	return next, nil
}

// parseFrameOBU parses a frame header, redundant frame header or frame OBU.
// start is the offset of payload within its packet.
func (d *Decoder) parseFrameOBU(h OBUHeader, payload []byte, start int) error {
	if d.seqHdr == nil {
		return invalidf("%v without sequence header", h.Type)
	}

	var refs [NumRefFrames]*FrameHeader
	for i := range d.refs {
		refs[i] = d.refs[i].hdr
	}

	br := bits.NewBitReader(payload)
	hdr, err := parseFrameHeader(br, d.seqHdr, &refs, h.TemporalID, h.SpatialID)
	if err != nil {
		return errors.Wrap(err, "could not parse frame header")
	}

	if h.Type == OBUFrame {
		br.ByteAlignment()
	} else if !br.TrailingBits() || br.Err() != nil {
		return invalidf("bad trailing bits in frame header")
	}

	if hdr.ShowExistingFrame {
		if h.Type == OBUFrame {
			return invalidf("frame OBU with show existing frame")
		}
		d.frameHdr = nil
		return d.showExisting(hdr)
	}

	d.frameHdr = hdr
	d.tiles = d.tiles[:0]
	d.nTiles = 0

	if h.Type != OBUFrame {
		return nil
	}
	return d.parseTileGroup(br, payload, start)
}

// parseTileGroup parses a tile group header from br and records the tile data
// that follows it. The frame is submitted once all of its tiles are held.
func (d *Decoder) parseTileGroup(br *bits.BitReader, payload []byte, start int) error {
	hdr := d.frameHdr
	g, err := parseTileGroupHeader(br, &hdr.Tiling, d.nTiles)
	if err != nil {
		return errors.Wrap(err, "could not parse tile group")
	}
	g.Data = payload[br.BytePos():]
	g.Offset = start + br.BytePos()
	d.tiles = append(d.tiles, g)
	d.nTiles = g.End + 1

	if d.nTiles < hdr.Tiling.NumTiles() {
		return nil
	}
	err = d.submitFrame()
	d.frameHdr = nil
	d.tiles = d.tiles[:0]
	d.nTiles = 0
	return err
}
