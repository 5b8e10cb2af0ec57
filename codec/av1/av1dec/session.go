/*
DESCRIPTION
  session.go provides the Decoder type, which accepts packets of OBUs and
  produces decoded frames, and keeps the reference state carried between
  frames.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package av1dec

import (
	"math/bits"

	"github.com/ausocean/utils/logging"
	"github.com/pkg/errors"

	"github.com/ausocean/av1/codec/av1/av1dec/config"
)

// Packet is a unit of compressed data holding one or more whole OBUs.
type Packet struct {
	Data     []byte
	PTS      int64
	Duration int64

	// Offset is the parse position within Data.
	Offset int
}

// refSlot is a reference frame slot.
type refSlot struct {
	hdr *FrameHeader
	pic *Frame
}

// Decoder is an AV1 decoding session. Packets are given to SendPacket and
// frames taken with ReceiveFrame. A Decoder holds at most one packet at a
// time.
type Decoder struct {
	cfg config.Config
	log logging.Logger

	nFC, nTC int
	fc       *FrameContext

	seqHdr   *SequenceHeader
	frameHdr *FrameHeader
	tiles    []TileGroup
	nTiles   int

	// opIDC is the operating_point_idc of the selected operating point and
	// maxSpatialID the highest spatial layer it includes.
	opIDC        uint16
	maxSpatialID int

	refs [NumRefFrames]refSlot

	pkt      *Packet
	out      *Frame
	draining bool
}

// NewDecoder returns a new Decoder using the configuration c.
func NewDecoder(c config.Config) (*Decoder, error) {
	if c.Logger == nil {
		return nil, errors.New("no logger in config")
	}
	err := c.Validate()
	if err != nil {
		return nil, errors.Wrap(err, "config struct is bad")
	}
	c.Logger.SetLevel(c.LogLevel)

	d := &Decoder{
		cfg: c,
		log: c.Logger,
		nFC: int(c.FrameThreads),
		nTC: int(c.Threads),
	}
	d.fc = newFrameContext(d.nTC, nil)
	return d, nil
}

// SetSuperblockDecoder sets the decoder used to decode and reconstruct the
// superblocks of each frame. Without one, frames are parsed and their
// pictures left at their initial value.
func (d *Decoder) SetSuperblockDecoder(sb SuperblockDecoder) {
	d.fc.sb = sb
}

// SequenceHeader returns the sequence header in use, or nil if none has been
// seen.
func (d *Decoder) SequenceHeader() *SequenceHeader {
	return d.seqHdr
}

// SendPacket gives p to the decoder. A nil p signals the end of the stream.
// StatusNeedMoreData is returned for an empty packet and StatusEnoughData if
// a packet is already held, in which case p is not taken and ReceiveFrame
// must be called first.
func (d *Decoder) SendPacket(p *Packet) error {
	if p == nil {
		d.draining = true
		return nil
	}
	if len(p.Data) == 0 {
		return StatusNeedMoreData
	}
	if d.pkt != nil {
		return StatusEnoughData
	}
	d.pkt = p
	return nil
}

// ReceiveFrame parses OBUs from the held packet until a frame is output or
// the packet is exhausted. StatusNeedMoreData is returned when a new packet is
// needed, StatusLimitReached once the decoder is draining and StatusFailure if
// the stream could not be decoded, in which case the rest of the packet is
// discarded.
func (d *Decoder) ReceiveFrame() (*Frame, error) {
	if d.draining {
		return nil, StatusLimitReached
	}
	if d.pkt == nil {
		return nil, StatusNeedMoreData
	}

	for d.pkt.Offset < len(d.pkt.Data) {
		next, err := d.parseOBU(d.pkt.Data, d.pkt.Offset)
		if err != nil {
			d.log.Warning("discarding packet", "offset", d.pkt.Offset, "error", err.Error())
			d.pkt = nil
			d.out = nil
			return nil, StatusFailure
		}
		d.pkt.Offset = next

		if d.out != nil {
			f := d.out
			d.out = nil
			if d.pkt.Offset >= len(d.pkt.Data) {
				d.pkt = nil
			}
			return f, nil
		}
	}
	d.pkt = nil
	return nil, StatusNeedMoreData
}

// Flush puts the decoder into draining mode. Any held packet is dropped, and
// ReceiveFrame returns StatusLimitReached from then on.
func (d *Decoder) Flush() {
	d.draining = true
	d.pkt = nil
	d.out = nil
}

// onSequenceHeader makes seq the sequence header in use. An equal header
// keeps the existing one and only drops the frame in progress; a different
// one also empties the reference slots.
func (d *Decoder) onSequenceHeader(seq *SequenceHeader) {
	op := int(d.cfg.OperatingPoint)
	if op >= seq.NumOperatingPoints {
		op = 0
	}
	d.opIDC = seq.OperatingPoints[op].IDC
	d.maxSpatialID = 0
	if spatialMask := d.opIDC >> 8; spatialMask != 0 {
		d.maxSpatialID = bits.Len16(spatialMask) - 1
	}

	d.frameHdr = nil
	d.tiles = d.tiles[:0]
	d.nTiles = 0

	if d.seqHdr.Equal(seq) {
		return
	}
	if d.seqHdr != nil {
		d.log.Info("sequence header changed", "width", seq.MaxWidth, "height", seq.MaxHeight, "profile", seq.Profile)
	}
	d.seqHdr = seq
	d.refs = [NumRefFrames]refSlot{}
}

// showExisting outputs the picture held in the slot named by hdr. A key frame
// shown this way refreshes every slot.
func (d *Decoder) showExisting(hdr *FrameHeader) error {
	slot := d.refs[hdr.ExistingFrameIdx]
	if slot.pic == nil {
		return invalidf("show existing frame from empty slot %d", hdr.ExistingFrameIdx)
	}

	if slot.hdr.FrameType == FrameTypeKey {
		for i := range d.refs {
			d.refs[i] = slot
		}
	}

	pic := *slot.pic
	pic.PTS, pic.Duration = d.pkt.PTS, d.pkt.Duration
	d.output(&pic, hdr.SpatialID)
	return nil
}

// submitFrame decodes the frame whose header and tiles are held, updates the
// reference slots and outputs the picture if it is shown.
func (d *Decoder) submitFrame() error {
	f, seq, hdr := d.fc, d.seqHdr, d.frameHdr

	f.SeqHdr, f.FrameHdr = seq, hdr
	f.Tiles = d.tiles
	f.RefHdrs = [RefsPerFrame]*FrameHeader{}
	if !hdr.FrameType.IsIntra() {
		for i, slot := range hdr.RefIdx {
			f.RefHdrs[i] = d.refs[slot].hdr
		}
	}

	f.Pic = newFrame(seq, hdr)
	f.Pic.PTS, f.Pic.Duration = d.pkt.PTS, d.pkt.Duration
	if d.cfg.ApplyGrain && hdr.FilmGrain.Present {
		f.Pic.FilmGrain = &hdr.FilmGrain.Data
	}

	err := f.decodeFrame(d.nFC)
	if err != nil {
		return errors.Wrap(err, "could not decode frame")
	}

	for i := range d.refs {
		if hdr.RefreshFrameFlags&(1<<uint(i)) != 0 {
			d.refs[i] = refSlot{hdr: hdr, pic: f.Pic}
		}
	}

	if hdr.ShowFrame {
		d.output(f.Pic, hdr.SpatialID)
	}
	f.Tiles = nil
	return nil
}

// output makes pic the next frame returned by ReceiveFrame, unless the OBU
// carrying it, of spatial layer sid, is not in the selected layer.
func (d *Decoder) output(pic *Frame, sid int) {
	if !d.cfg.AllLayers && d.opIDC != 0 && sid != d.maxSpatialID {
		d.log.Debug("dropping lower spatial layer frame", "sid", sid)
		return
	}
	d.out = pic
}
