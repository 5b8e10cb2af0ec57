/*
DESCRIPTION
  session_test.go provides testing for the decoding session found in
  session.go and OBU dispatch found in obu.go.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package av1dec

import (
	"bytes"
	"testing"

	"github.com/ausocean/utils/logging"

	"github.com/ausocean/av1/codec/av1/av1dec/config"
)

var smallSeq = seqParams{width: 64, height: 48}

// newTestDecoder returns a decoder logging to t.
func newTestDecoder(t *testing.T, c config.Config) *Decoder {
	t.Helper()
	c.Logger = (*logging.TestLogger)(t)
	c.LogLevel = logging.Debug
	d, err := NewDecoder(c)
	if err != nil {
		t.Fatalf("could not create decoder: %v", err)
	}
	return d
}

// concat joins OBUs into one packet payload.
func concat(obus ...[]byte) []byte {
	return bytes.Join(obus, nil)
}

// frameHdrOBU returns a frame header OBU for a key frame of p.
func frameHdrOBU(typ OBUType, p seqParams, f frameParams) []byte {
	w := &bitWriter{}
	writeKeyFrameHdr(w, p, f)
	return obu(typ, w.trailing().bytes())
}

// decodeOne sends data to d and returns the result of one ReceiveFrame call.
func decodeOne(t *testing.T, d *Decoder, data []byte, pts int64) (*Frame, error) {
	t.Helper()
	err := d.SendPacket(&Packet{Data: data, PTS: pts})
	if err != nil {
		t.Fatalf("could not send packet: %v", err)
	}
	return d.ReceiveFrame()
}

func TestSendPacketStatus(t *testing.T) {
	d := newTestDecoder(t, config.Config{})

	if _, err := d.ReceiveFrame(); err != StatusNeedMoreData {
		t.Errorf("expected need more data from idle decoder, got: %v", err)
	}
	if err := d.SendPacket(&Packet{}); err != StatusNeedMoreData {
		t.Errorf("expected need more data for empty packet, got: %v", err)
	}
	if err := d.SendPacket(&Packet{Data: []byte{0x12, 0x00}}); err != nil {
		t.Errorf("did not expect error for first packet: %v", err)
	}
	if err := d.SendPacket(&Packet{Data: []byte{0x12, 0x00}}); err != StatusEnoughData {
		t.Errorf("expected enough data for second packet, got: %v", err)
	}

	// A temporal delimiter alone produces nothing.
	if _, err := d.ReceiveFrame(); err != StatusNeedMoreData {
		t.Errorf("expected need more data after temporal delimiter, got: %v", err)
	}
	if err := d.SendPacket(&Packet{Data: []byte{0x12, 0x00}}); err != nil {
		t.Errorf("did not expect error after packet was drained: %v", err)
	}

	d.Flush()
	if _, err := d.ReceiveFrame(); err != StatusLimitReached {
		t.Errorf("expected limit reached after flush, got: %v", err)
	}

	d = newTestDecoder(t, config.Config{})
	if err := d.SendPacket(nil); err != nil {
		t.Errorf("did not expect error for end of stream: %v", err)
	}
	if _, err := d.ReceiveFrame(); err != StatusLimitReached {
		t.Errorf("expected limit reached at end of stream, got: %v", err)
	}
}

func TestReceiveKeyFrame(t *testing.T) {
	d := newTestDecoder(t, config.Config{})
	data := concat(
		obu(OBUTemporalDelimiter, nil),
		obu(OBUSeqHdr, writeSeqHdr(smallSeq)),
		keyFrameOBU(smallSeq, frameParams{qidx: 30}, []byte{0xaa}),
	)

	f, err := decodeOne(t, d, data, 42)
	if err != nil {
		t.Fatalf("could not receive frame: %v", err)
	}
	if f.PTS != 42 || f.FrameType != FrameTypeKey || f.Layout != PixelLayoutI420 || f.BitDepth != 8 {
		t.Errorf("unexpected frame: pts %d type %v layout %v depth %d", f.PTS, f.FrameType, f.Layout, f.BitDepth)
	}
	wantDims := [3][2]int{{64, 48}, {32, 24}, {32, 24}}
	for i, p := range f.Planes {
		if p.Width != wantDims[i][0] || p.Height != wantDims[i][1] || p.Stride != p.Width || p.BytesPerSample != 1 {
			t.Errorf("unexpected geometry for plane %d: %+v", i, p)
		}
		if !bytes.Equal(p.Row(p.Height-1), bytes.Repeat([]byte{128}, p.Width)) {
			t.Errorf("unexpected samples in plane %d", i)
		}
	}

	if _, err := d.ReceiveFrame(); err != StatusNeedMoreData {
		t.Errorf("expected need more data after packet, got: %v", err)
	}
	for i, r := range d.refs {
		if r.pic != f || r.hdr != f.FrameHdr {
			t.Errorf("reference slot %d not refreshed", i)
		}
	}
}

func TestReceiveHighBitDepthFrame(t *testing.T) {
	p := seqParams{width: 16, height: 16, highBitDepth: true, mono: true}
	d := newTestDecoder(t, config.Config{})
	f, err := decodeOne(t, d, concat(obu(OBUSeqHdr, writeSeqHdr(p)), keyFrameOBU(p, frameParams{qidx: 1}, []byte{0})), 0)
	if err != nil {
		t.Fatalf("could not receive frame: %v", err)
	}
	y := f.Planes[0]
	if f.BitDepth != 10 || y.BytesPerSample != 2 || y.Stride != 32 {
		t.Errorf("unexpected frame format: depth %d plane %+v", f.BitDepth, y)
	}
	if y.Data[0] != 0x00 || y.Data[1] != 0x02 {
		t.Errorf("unexpected first sample: %#x %#x", y.Data[0], y.Data[1])
	}
	if f.Planes[1].Data != nil || f.Planes[2].Data != nil {
		t.Error("expected empty chroma planes for monochrome frame")
	}
}

func TestReceiveFramesFromOnePacket(t *testing.T) {
	d := newTestDecoder(t, config.Config{})
	data := concat(
		obu(OBUSeqHdr, writeSeqHdr(smallSeq)),
		keyFrameOBU(smallSeq, frameParams{qidx: 30}, []byte{1}),
		obu(OBUTemporalDelimiter, nil),
		keyFrameOBU(smallSeq, frameParams{qidx: 40}, []byte{2}),
	)
	err := d.SendPacket(&Packet{Data: data})
	if err != nil {
		t.Fatalf("could not send packet: %v", err)
	}

	for _, want := range []int{30, 40} {
		f, err := d.ReceiveFrame()
		if err != nil {
			t.Fatalf("could not receive frame with qidx %d: %v", want, err)
		}
		if f.FrameHdr.Quant.YAC != want {
			t.Errorf("unexpected frame: got qidx %d, want %d", f.FrameHdr.Quant.YAC, want)
		}
	}
	if _, err := d.ReceiveFrame(); err != StatusNeedMoreData {
		t.Errorf("expected need more data, got: %v", err)
	}
}

func TestReceiveFrameSkipsOBUs(t *testing.T) {
	d := newTestDecoder(t, config.Config{})
	data := concat(
		obu(OBUSeqHdr, writeSeqHdr(smallSeq)),
		obu(OBUPadding, []byte{0xff, 0xff}),
		obu(OBUMetadata, []byte{0x01, 0x02}),
		obu(OBUType(9), []byte{0x03}),
		frameHdrOBU(OBUFrameHdr, smallSeq, frameParams{qidx: 30}),
		frameHdrOBU(OBURedundantFrameHdr, smallSeq, frameParams{qidx: 99}),
		obu(OBUTileGrp, []byte{0x55}),
	)
	f, err := decodeOne(t, d, data, 0)
	if err != nil {
		t.Fatalf("could not receive frame: %v", err)
	}
	if f.FrameHdr.Quant.YAC != 30 {
		t.Errorf("redundant frame header replaced frame header: qidx %d", f.FrameHdr.Quant.YAC)
	}
}

func TestReceiveFrameFailure(t *testing.T) {
	seq := obu(OBUSeqHdr, writeSeqHdr(smallSeq))
	tests := []struct {
		name string
		data []byte
	}{
		{name: "forbidden bit", data: []byte{0x80, 0x00}},
		{name: "size overrun", data: []byte{0x0a, 0x7f, 0x00}},
		{name: "bad sequence header", data: obu(OBUSeqHdr, binToSlice("011 00"))},
		{name: "frame header without sequence header", data: keyFrameOBU(smallSeq, frameParams{qidx: 1}, []byte{0})},
		{name: "tile group without frame header", data: concat(seq, obu(OBUTileGrp, []byte{0}))},
		{
			name: "temporal delimiter drops frame header",
			data: concat(seq, frameHdrOBU(OBUFrameHdr, smallSeq, frameParams{qidx: 30}), obu(OBUTemporalDelimiter, nil), obu(OBUTileGrp, []byte{0})),
		},
		{name: "show existing from empty slot", data: concat(seq, obu(OBUFrameHdr, binToSlice("1 000 1000")))},
	}

	for _, test := range tests {
		d := newTestDecoder(t, config.Config{})
		_, err := decodeOne(t, d, concat(test.data, keyFrameOBU(smallSeq, frameParams{qidx: 1}, []byte{0})), 0)
		if err != StatusFailure {
			t.Errorf("expected failure for test %q, got: %v", test.name, err)
			continue
		}

		// The rest of the packet is discarded and the session is usable.
		if _, err := d.ReceiveFrame(); err != StatusNeedMoreData {
			t.Errorf("expected need more data after failure for test %q, got: %v", test.name, err)
		}
		_, err = decodeOne(t, d, concat(seq, keyFrameOBU(smallSeq, frameParams{qidx: 1}, []byte{0})), 0)
		if err != nil {
			t.Errorf("could not decode after failure for test %q: %v", test.name, err)
		}
	}
}

func TestSequenceHeaderChange(t *testing.T) {
	d := newTestDecoder(t, config.Config{})
	seq := obu(OBUSeqHdr, writeSeqHdr(smallSeq))

	_, err := decodeOne(t, d, concat(seq, keyFrameOBU(smallSeq, frameParams{qidx: 1}, []byte{0})), 0)
	if err != nil {
		t.Fatalf("could not receive frame: %v", err)
	}
	first := d.SequenceHeader()

	// An equal header keeps the held instance and references.
	d.frameHdr = &FrameHeader{}
	_, err = decodeOne(t, d, seq, 0)
	if err != StatusNeedMoreData {
		t.Fatalf("expected need more data, got: %v", err)
	}
	if d.SequenceHeader() != first {
		t.Error("equal sequence header replaced held instance")
	}
	if d.frameHdr != nil {
		t.Error("expected frame header to be cleared")
	}
	if d.refs[0].pic == nil {
		t.Error("equal sequence header cleared references")
	}

	// A different header replaces it and clears the references.
	other := smallSeq
	other.width = 128
	_, err = decodeOne(t, d, obu(OBUSeqHdr, writeSeqHdr(other)), 0)
	if err != StatusNeedMoreData {
		t.Fatalf("expected need more data, got: %v", err)
	}
	if d.SequenceHeader() == first || d.SequenceHeader().MaxWidth != 128 {
		t.Error("different sequence header not used")
	}
	for i, r := range d.refs {
		if r.pic != nil || r.hdr != nil {
			t.Errorf("reference slot %d not cleared", i)
		}
	}
}

func TestShowExistingFrame(t *testing.T) {
	d := newTestDecoder(t, config.Config{})
	key, err := decodeOne(t, d, concat(obu(OBUSeqHdr, writeSeqHdr(smallSeq)), keyFrameOBU(smallSeq, frameParams{qidx: 1}, []byte{0})), 1)
	if err != nil {
		t.Fatalf("could not receive key frame: %v", err)
	}

	in := binToSlice("1" + // u(1) show_existing_frame = 1
		"010" + // u(3) frame_to_show_map_idx = 2
		"1000") // trailing bits
	f, err := decodeOne(t, d, obu(OBUFrameHdr, in), 2)
	if err != nil {
		t.Fatalf("could not receive existing frame: %v", err)
	}
	if f == key || f.PTS != 2 || key.PTS != 1 {
		t.Errorf("unexpected existing frame pts %d, key frame pts %d", f.PTS, key.PTS)
	}
	if &f.Planes[0].Data[0] != &key.Planes[0].Data[0] || f.FrameHdr != key.FrameHdr {
		t.Error("expected existing frame to share the key frame picture")
	}
}

func TestOperatingPointLayers(t *testing.T) {
	key := func(tid, sid int) []byte {
		w := &bitWriter{}
		writeKeyFrameHdr(w, smallSeq, frameParams{qidx: 1})
		w.align()
		return obuExt(OBUFrame, tid, sid, append(w.bytes(), 0))
	}

	tests := []struct {
		name      string
		idc       uint16
		allLayers bool
		tid, sid  int
		want      bool
	}{
		{name: "selected layer", idc: 0x101, tid: 0, sid: 0, want: true},
		{name: "dropped temporal layer", idc: 0x101, tid: 1, sid: 0, want: false},
		{name: "dropped spatial layer", idc: 0x101, tid: 0, sid: 1, want: false},
		{name: "all layers idc", idc: 0, tid: 3, sid: 2, want: true},
		{name: "lower spatial layer not output", idc: 0x301, tid: 0, sid: 0, want: false},
		{name: "highest spatial layer", idc: 0x301, tid: 0, sid: 1, want: true},
		{name: "lower spatial layer with all layers", idc: 0x301, allLayers: true, tid: 0, sid: 0, want: true},
	}

	for _, test := range tests {
		p := smallSeq
		p.idc = []uint16{test.idc}
		d := newTestDecoder(t, config.Config{AllLayers: test.allLayers})
		f, err := decodeOne(t, d, concat(obu(OBUSeqHdr, writeSeqHdr(p)), key(test.tid, test.sid)), 0)
		switch {
		case test.want && err != nil:
			t.Errorf("expected frame for test %q, got: %v", test.name, err)
		case !test.want && err != StatusNeedMoreData:
			t.Errorf("expected need more data for test %q, got frame %v, err %v", test.name, f, err)
		}
	}
}

func TestOperatingPointSelection(t *testing.T) {
	p := smallSeq
	p.idc = []uint16{0x303, 0x101}
	seq := writeSeqHdr(p)

	tests := []struct {
		op      uint
		wantIDC uint16
		wantSID int
	}{
		{op: 0, wantIDC: 0x303, wantSID: 1},
		{op: 1, wantIDC: 0x101, wantSID: 0},
		{op: 5, wantIDC: 0x303, wantSID: 1},
	}
	for _, test := range tests {
		d := newTestDecoder(t, config.Config{OperatingPoint: test.op})
		_, err := decodeOne(t, d, obu(OBUSeqHdr, seq), 0)
		if err != StatusNeedMoreData {
			t.Fatalf("expected need more data, got: %v", err)
		}
		if d.opIDC != test.wantIDC || d.maxSpatialID != test.wantSID {
			t.Errorf("unexpected selection for operating point %d: idc %#x max sid %d", test.op, d.opIDC, d.maxSpatialID)
		}
	}
}

func TestShowExistingFrameLayers(t *testing.T) {
	p := smallSeq
	p.idc = []uint16{0x301}
	key := func(sid int) []byte {
		w := &bitWriter{}
		writeKeyFrameHdr(w, p, frameParams{qidx: 1})
		w.align()
		return obuExt(OBUFrame, 0, sid, append(w.bytes(), 0))
	}
	in := binToSlice("1" + // u(1) show_existing_frame = 1
		"000" + // u(3) frame_to_show_map_idx = 0
		"1000") // trailing bits

	tests := []struct {
		name            string
		keySID, showSID int
		want            bool
	}{
		{name: "lower layer frame shown from highest layer", keySID: 0, showSID: 1, want: true},
		{name: "highest layer frame shown from lower layer", keySID: 1, showSID: 0, want: false},
	}

	for _, test := range tests {
		d := newTestDecoder(t, config.Config{})
		_, err := decodeOne(t, d, concat(obu(OBUSeqHdr, writeSeqHdr(p)), key(test.keySID)), 0)
		if (err == nil) != (test.keySID == 1) {
			t.Errorf("unexpected key frame result for test %q: %v", test.name, err)
		}

		f, err := decodeOne(t, d, obuExt(OBUFrameHdr, 0, test.showSID, in), 1)
		switch {
		case test.want && err != nil:
			t.Errorf("expected frame for test %q, got: %v", test.name, err)
		case test.want && f.FrameHdr.SpatialID != test.keySID:
			t.Errorf("unexpected frame for test %q: sid %d", test.name, f.FrameHdr.SpatialID)
		case !test.want && err != StatusNeedMoreData:
			t.Errorf("expected need more data for test %q, got frame %v, err %v", test.name, f, err)
		}
	}
}
