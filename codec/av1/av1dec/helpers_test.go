/*
DESCRIPTION
  helpers_test.go provides a bit writer and bitstream builders used to create
  test fixtures for the av1dec package.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package av1dec

import "github.com/ausocean/av1/codec/av1/av1dec/bits"

// binToSlice converts a string of binary digits into a byte slice, ignoring
// spaces and padding the last byte with zeros.
func binToSlice(s string) []byte {
	var (
		a   byte = 0x80
		cur byte
		b   []byte
	)
	for _, c := range s {
		switch c {
		case ' ':
			continue
		case '1':
			cur |= a
		}
		a >>= 1
		if a == 0 {
			b = append(b, cur)
			cur = 0
			a = 0x80
		}
	}
	if a != 0x80 {
		b = append(b, cur)
	}
	return b
}

// bitWriter writes values MSB first.
type bitWriter struct {
	buf []byte
	n   int
}

func (w *bitWriter) put(n int, v uint64) *bitWriter {
	for i := n - 1; i >= 0; i-- {
		if w.n%8 == 0 {
			w.buf = append(w.buf, 0)
		}
		if (v>>uint(i))&1 != 0 {
			w.buf[len(w.buf)-1] |= 0x80 >> uint(w.n%8)
		}
		w.n++
	}
	return w
}

// bin writes a string of binary digits, ignoring spaces.
func (w *bitWriter) bin(s string) *bitWriter {
	for _, c := range s {
		switch c {
		case '0':
			w.put(1, 0)
		case '1':
			w.put(1, 1)
		}
	}
	return w
}

func (w *bitWriter) flag(b bool) *bitWriter {
	if b {
		return w.put(1, 1)
	}
	return w.put(1, 0)
}

// su writes v as an n+1 bit two's complement value.
func (w *bitWriter) su(n int, v int) *bitWriter {
	return w.put(n+1, uint64(v)&(1<<uint(n+1)-1))
}

// uniform writes v in [0, n) using the ns(n) code.
func (w *bitWriter) uniform(n, v int) *bitWriter {
	if n <= 1 {
		return w
	}
	l := 0
	for 1<<uint(l) <= n {
		l++
	}
	m := 1<<uint(l) - n
	if v < m {
		return w.put(l-1, uint64(v))
	}
	return w.put(l-1, uint64((v+m)>>1)).put(1, uint64((v+m)&1))
}

func (w *bitWriter) align() *bitWriter {
	for w.n%8 != 0 {
		w.put(1, 0)
	}
	return w
}

func (w *bitWriter) trailing() *bitWriter {
	w.put(1, 1)
	return w.align()
}

func (w *bitWriter) bytes() []byte { return w.buf }

func leb128(v int) []byte {
	var b []byte
	for {
		c := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b = append(b, c|0x80)
			continue
		}
		return append(b, c)
	}
}

// obu returns an OBU of type typ with a size field.
func obu(typ OBUType, payload []byte) []byte {
	b := []byte{byte(typ)<<3 | 0x02}
	b = append(b, leb128(len(payload))...)
	return append(b, payload...)
}

// obuExt returns an OBU of type typ with an extension header and size field.
func obuExt(typ OBUType, tid, sid int, payload []byte) []byte {
	b := []byte{byte(typ)<<3 | 0x06, byte(tid<<5 | sid<<3)}
	b = append(b, leb128(len(payload))...)
	return append(b, payload...)
}

// seqParams selects the coding tools of a test sequence header.
type seqParams struct {
	profile       int
	reduced       bool
	idc           []uint16
	timing        bool
	width, height int
	sb128         bool
	orderHint     bool
	superRes      bool
	cdef          bool
	restoration   bool
	highBitDepth  bool
	mono          bool
	filmGrain     bool

	// colorDesc holds the color primaries, transfer characteristics and
	// matrix coefficients, if present.
	colorDesc []int
}

// writeSeqHdr returns a sequence header payload. Without operating points a
// single one with idc 0 is written. Profile 2 streams are 8 or 10 bit.
func writeSeqHdr(p seqParams) []byte {
	w := &bitWriter{}
	w.put(3, uint64(p.profile)).flag(p.reduced).flag(p.reduced)
	if p.reduced {
		w.put(5, 0)
	} else {
		w.flag(p.timing)
		if p.timing {
			// One tick per picture, no decoder model.
			w.put(32, 1).put(32, 30).flag(true).put(1, 1)
			w.flag(false)
		}
		w.flag(false) // initial_display_delay_present_flag.
		idc := p.idc
		if len(idc) == 0 {
			idc = []uint16{0}
		}
		w.put(5, uint64(len(idc)-1))
		for _, v := range idc {
			w.put(12, uint64(v)).put(5, 0)
		}
	}

	w.put(4, 15).put(4, 15)
	w.put(16, uint64(p.width-1)).put(16, uint64(p.height-1))
	if !p.reduced {
		w.flag(false) // frame_id_numbers_present_flag.
	}
	w.flag(p.sb128).flag(false).flag(false)
	if !p.reduced {
		w.put(4, 0) // Inter tools.
		w.flag(p.orderHint)
		if p.orderHint {
			w.flag(false).flag(false)
		}
		w.flag(true).flag(true) // Choose screen content tools and integer mv.
		if p.orderHint {
			w.put(3, 6)
		}
	}
	w.flag(p.superRes).flag(p.cdef).flag(p.restoration)

	w.flag(p.highBitDepth)
	if p.profile == 2 && p.highBitDepth {
		w.flag(false) // twelve_bit.
	}
	if p.profile != 1 {
		w.flag(p.mono)
	}
	w.flag(len(p.colorDesc) == 3)
	for _, v := range p.colorDesc {
		w.put(8, uint64(v))
	}
	srgb := len(p.colorDesc) == 3 && p.colorDesc[0] == 1 && p.colorDesc[1] == 13 && p.colorDesc[2] == 0
	switch {
	case p.mono:
		w.flag(false) // color_range.
	case srgb:
	default:
		w.flag(false) // color_range.
		if p.profile == 0 {
			w.put(2, 0) // chroma_sample_position.
		}
	}
	if !p.mono {
		w.flag(false) // separate_uv_delta_q.
	}
	w.flag(p.filmGrain)
	return w.trailing().bytes()
}

// frameParams selects the contents of a test key frame header.
type frameParams struct {
	qidx        int
	lfLevel     int
	cdefBits    int
	lrType      [3]int // Coded lr_type per plane.
	lrUVShift   bool
	txSelect    bool
	segQDelta   []int
	uniformCols []bool
	uniformRows []bool

	// Explicit tile sizes in superblocks, with the maximum size of each
	// tile, for non-uniform tiling.
	colWidths, maxColWidths   []int
	rowHeights, maxRowHeights []int

	// Context update tile and size field width, written for frames with
	// more than one tile.
	tileUpdateBits int
	tileUpdate     int
	tileSizeBytes  int
}

// writeKeyFrameHdr writes a shown key frame header for the sequence p to w,
// stopping after the film grain params.
func writeKeyFrameHdr(w *bitWriter, p seqParams, f frameParams) {
	if !p.reduced {
		// Not show existing, key frame, shown.
		w.flag(false).put(2, 0).flag(true)
	}
	w.flag(false) // disable_cdf_update.
	w.flag(false) // allow_screen_content_tools.
	if !p.reduced {
		w.flag(false) // frame_size_override_flag.
		if p.orderHint {
			w.put(7, 0)
		}
	}
	if p.superRes {
		w.flag(false)
	}
	w.flag(false) // render_and_frame_size_different.
	if !p.reduced {
		w.flag(false) // disable_frame_end_update_cdf.
	}

	// Tile info.
	if f.colWidths != nil {
		w.flag(false)
		for i, v := range f.colWidths {
			w.uniform(f.maxColWidths[i], v-1)
		}
		for i, v := range f.rowHeights {
			w.uniform(f.maxRowHeights[i], v-1)
		}
	} else {
		w.flag(true)
		for _, b := range f.uniformCols {
			w.flag(b)
		}
		for _, b := range f.uniformRows {
			w.flag(b)
		}
	}
	if f.tileUpdateBits > 0 {
		w.put(f.tileUpdateBits, uint64(f.tileUpdate)).put(2, uint64(f.tileSizeBytes-1))
	}

	// Quantization params.
	w.put(8, uint64(f.qidx)).flag(false)
	if !p.mono {
		w.flag(false).flag(false)
	}
	w.flag(false)

	// Segmentation.
	w.flag(len(f.segQDelta) > 0)
	if len(f.segQDelta) > 0 {
		for i := 0; i < MaxSegments; i++ {
			if i < len(f.segQDelta) {
				w.flag(true).su(8, f.segQDelta[i])
			} else {
				w.flag(false)
			}
			w.put(4, 0) // Loop filter deltas.
			w.put(3, 0) // Ref, skip, global mv.
		}
	}

	if f.qidx != 0 {
		w.flag(false) // delta_q_present.
	}

	lossless := true
	for i := 0; i < MaxSegments; i++ {
		d := 0
		if i < len(f.segQDelta) {
			d = f.segQDelta[i]
		}
		if clipQIdx(f.qidx+d) != 0 {
			lossless = false
		}
	}
	if !lossless {
		w.put(6, uint64(f.lfLevel)).put(6, uint64(f.lfLevel))
		if !p.mono && f.lfLevel != 0 {
			w.put(6, uint64(f.lfLevel)).put(6, uint64(f.lfLevel))
		}
		w.put(3, 0).flag(false)
		if p.cdef {
			w.put(2, 1).put(2, uint64(f.cdefBits))
			for i := 0; i < 1<<uint(f.cdefBits); i++ {
				w.put(6, uint64(i+1))
				if !p.mono {
					w.put(6, uint64(i+2))
				}
			}
		}
	}
	if p.restoration && !lossless {
		w.put(2, uint64(f.lrType[0]))
		if !p.mono {
			w.put(2, uint64(f.lrType[1])).put(2, uint64(f.lrType[2]))
		}
		if f.lrType != [3]int{} {
			w.flag(true)
			if !p.sb128 {
				w.flag(false)
			}
			if p.profile == 0 && !p.mono && (f.lrType[1] != 0 || f.lrType[2] != 0) {
				w.flag(f.lrUVShift) // lr_uv_shift.
			}
		}
	}
	if !lossless {
		w.flag(f.txSelect)
	}
	w.flag(false) // reduced_tx_set.
	if p.filmGrain {
		w.flag(false) // apply_grain.
	}
}

// keyFrameOBU returns a frame OBU holding a key frame header for the
// sequence p, with a single tile holding tile.
func keyFrameOBU(p seqParams, f frameParams, tile []byte) []byte {
	w := &bitWriter{}
	writeKeyFrameHdr(w, p, f)
	w.align()
	return obu(OBUFrame, append(w.bytes(), tile...))
}

// interParams selects the contents of a test inter or switch frame header,
// written for a sequence with 7 bit order hints and no other inter tools.
type interParams struct {
	frameType  FrameType
	orderHint  int
	primaryRef int
	refIdx     [RefsPerFrame]int

	// refSelect is written as reference_select, and skipMode as
	// skip_mode_present when skipAllowed is set.
	refSelect   bool
	skipAllowed bool
	skipMode    bool

	// gm and grain write the global motion and film grain params. Without
	// gm every reference has identity motion. grain must be set for
	// sequences with film grain.
	gm    func(w *bitWriter)
	grain func(w *bitWriter)
}

// writeInterFrameHdr writes a shown inter frame header, or a switch frame
// header coding a 64x48 frame size, to w for a 4:2:0 sequence, followed by
// trailing bits.
func writeInterFrameHdr(w *bitWriter, f interParams) {
	sw := f.frameType == FrameTypeSwitch
	w.flag(false).put(2, uint64(f.frameType)).flag(true)
	if !sw {
		w.flag(false) // error_resilient_mode.
	}
	w.flag(false) // disable_cdf_update.
	w.flag(false) // allow_screen_content_tools.
	if !sw {
		w.flag(false) // frame_size_override_flag.
	}
	w.put(7, uint64(f.orderHint))
	if sw {
		for i := 0; i < NumRefFrames; i++ {
			w.put(7, 0) // ref_order_hint.
		}
	} else {
		w.put(3, uint64(f.primaryRef))
		w.put(8, 0x01) // refresh_frame_flags.
	}

	w.flag(false) // frame_refs_short_signaling.
	for _, idx := range f.refIdx {
		w.put(3, uint64(idx))
	}
	if sw {
		w.put(16, 63).put(16, 47)
	}
	w.flag(false) // render_and_frame_size_different.
	w.flag(true)  // allow_high_precision_mv.
	w.flag(true)  // is_filter_switchable.
	w.flag(false) // is_motion_mode_switchable.
	w.flag(false) // disable_frame_end_update_cdf.

	// One tile, base_q_idx 60 without deltas or matrices, no segmentation,
	// no delta q and no loop filter.
	w.flag(true)
	w.put(8, 60).put(3, 0).flag(false)
	w.flag(false).flag(false)
	w.put(6, 0).put(6, 0).put(3, 0).flag(false)
	w.flag(false) // tx_mode_select.
	w.flag(f.refSelect)
	if f.skipAllowed {
		w.flag(f.skipMode)
	}
	w.flag(true) // reduced_tx_set.

	if f.gm != nil {
		f.gm(w)
	} else {
		w.put(RefsPerFrame, 0)
	}
	if f.grain != nil {
		f.grain(w)
	}
	w.trailing()
}

// testRefs returns reference slots holding shown key frames with the given
// order hints.
func testRefs(hints ...int) *[NumRefFrames]*FrameHeader {
	var refs [NumRefFrames]*FrameHeader
	for i, h := range hints {
		refs[i] = &FrameHeader{FrameType: FrameTypeKey, FrameOffset: h}
		refs[i].LoopFilter.ModeRefDeltas = defaultModeRefDeltas
		for j := range refs[i].GMV {
			refs[i].GMV[j] = defaultWarpedMotion
		}
	}
	return &refs
}

// identityRefs maps inter reference i to slot i.
var identityRefs = [RefsPerFrame]int{0, 1, 2, 3, 4, 5, 6}

// parseInterFrame writes an inter frame header for the sequence p and f and
// parses it back with refs.
func parseInterFrame(p seqParams, f interParams, refs *[NumRefFrames]*FrameHeader) (*FrameHeader, error) {
	seq, err := ParseSequenceHeader(writeSeqHdr(p))
	if err != nil {
		return nil, err
	}
	w := &bitWriter{}
	writeInterFrameHdr(w, f)
	return parseFrameHeader(bits.NewBitReader(w.bytes()), seq, refs, 0, 0)
}
