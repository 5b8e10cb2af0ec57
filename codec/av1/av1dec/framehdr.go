/*
DESCRIPTION
  framehdr.go provides a FrameHeader type and parsing of the
  uncompressed_header syntax defined in section 5.9 of the AV1 specification.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package av1dec

import (
	"github.com/ausocean/av1/codec/av1/av1dec/bits"
	"github.com/pkg/errors"
)

// SuperResInfo holds the super-resolution parameters of a frame.
type SuperResInfo struct {
	Enabled bool

	// WidthScaleDenominator is 8 when disabled, otherwise 9 to 16.
	WidthScaleDenominator int
}

// QuantInfo holds the quantization_params of a frame. Deltas are relative to
// YAC, the base_q_idx.
type QuantInfo struct {
	YAC      int
	YDCDelta int
	UDCDelta int
	UACDelta int
	VDCDelta int
	VACDelta int

	// QM is true when quantizer matrices are used, with the matrix level for
	// each plane in QMY, QMU and QMV.
	QM            bool
	QMY, QMU, QMV int
}

// DeltaInfo holds the delta_q_params and delta_lf_params of a frame.
type DeltaInfo struct {
	Q struct {
		Present bool
		ResLog2 int
	}
	LF struct {
		Present bool
		ResLog2 int
		Multi   bool
	}
}

// FrameHeader holds the fields of an AV1 frame header along with values
// derived from it.
type FrameHeader struct {
	FrameType FrameType

	// Width holds the coded width at index 0 and the upscaled width at index
	// 1. They differ only when super-resolution is enabled.
	Width  [2]int
	Height int

	// FrameOffset is the order_hint of the frame.
	FrameOffset int

	TemporalID, SpatialID int

	ShowExistingFrame      bool
	ExistingFrameIdx       int
	FrameID                int
	FramePresentationDelay int

	ShowFrame               bool
	ShowableFrame           bool
	ErrorResilientMode      bool
	DisableCDFUpdate        bool
	AllowScreenContentTools bool
	ForceIntegerMV          bool
	FrameSizeOverride       bool

	// PrimaryRefFrame indexes RefIdx, or is PrimaryRefNone.
	PrimaryRefFrame int

	BufferRemovalTimePresent bool
	BufferRemovalTime        [MaxOperatingPoints]int

	// RefreshFrameFlags has bit i set if reference slot i is replaced by this
	// frame.
	RefreshFrameFlags uint8

	HaveRenderSize            bool
	RenderWidth, RenderHeight int
	SuperRes                  SuperResInfo

	AllowIntraBC           bool
	FrameRefShortSignaling bool

	// RefIdx maps each of the seven inter references to a reference slot.
	RefIdx [RefsPerFrame]int

	HP                   bool
	SubpelFilterMode     FilterMode
	SwitchableMotionMode bool
	UseRefFrameMVs       bool
	RefreshContext       bool

	Tiling       TilingInfo
	Quant        QuantInfo
	Segmentation SegmentationInfo
	Delta        DeltaInfo

	// AllLossless is true when every segment is coded losslessly.
	AllLossless bool

	LoopFilter  LoopFilterInfo
	CDEF        CDEFInfo
	Restoration RestorationInfo

	TxfmMode           TxfmMode
	SwitchableCompRefs bool
	SkipModeAllowed    bool
	SkipModeEnabled    bool

	// SkipModeRefs are the indices into RefIdx of the two skip mode
	// references.
	SkipModeRefs [2]int

	WarpMotion     bool
	ReducedTxtpSet bool
	GMV            [RefsPerFrame]WarpedMotionParams

	FilmGrain FilmGrainInfo
}

// frameHeaderParser carries the state needed while parsing a frame header.
type frameHeaderParser struct {
	br   *bits.BitReader
	seq  *SequenceHeader
	refs *[NumRefFrames]*FrameHeader
	hdr  *FrameHeader
}

// readN reads n bits, where n may be zero.
func readN(br *bits.BitReader, n int) int {
	if n == 0 {
		return 0
	}
	return int(br.ReadBits(n))
}

// parseFrameHeader parses an uncompressed_header from br. refs holds the
// frame headers held in each reference slot, which may be nil. The temporal
// and spatial ids come from the OBU extension header.
func parseFrameHeader(br *bits.BitReader, seq *SequenceHeader, refs *[NumRefFrames]*FrameHeader, temporalID, spatialID int) (*FrameHeader, error) {
	p := &frameHeaderParser{
		br:   br,
		seq:  seq,
		refs: refs,
		hdr:  &FrameHeader{TemporalID: temporalID, SpatialID: spatialID},
	}
	err := p.parse()
	if err != nil {
		return nil, err
	}
	if br.Err() != nil {
		return nil, errors.Wrap(ErrInvalidData, "frame header overrun")
	}
	return p.hdr, nil
}

// refHdr returns the frame header held in the slot used by inter reference
// i, or an error if the slot is empty.
func (p *frameHeaderParser) refHdr(i int) (*FrameHeader, error) {
	slot := p.hdr.RefIdx[i]
	if p.refs == nil || p.refs[slot] == nil {
		return nil, errors.Wrapf(ErrUnsupported, "inheriting from empty reference slot %d", slot)
	}
	return p.refs[slot], nil
}

// primaryRef returns the frame header that values are inherited from, or nil
// if the frame has no primary reference.
func (p *frameHeaderParser) primaryRef() (*FrameHeader, error) {
	if p.hdr.PrimaryRefFrame == PrimaryRefNone {
		return nil, nil
	}
	return p.refHdr(p.hdr.PrimaryRefFrame)
}

func (p *frameHeaderParser) parse() error {
	br, seq, hdr := p.br, p.seq, p.hdr

	if seq.ReducedStillPictureHeader {
		hdr.FrameType = FrameTypeKey
		hdr.ShowFrame = true
		hdr.ErrorResilientMode = true
	} else {
		hdr.ShowExistingFrame = br.ReadFlag()
		if hdr.ShowExistingFrame {
			hdr.ExistingFrameIdx = int(br.ReadBits(3))
			if seq.DecoderModelInfoPresent && !seq.EqualPictureInterval {
				hdr.FramePresentationDelay = int(br.ReadBits(seq.FramePresentationDelayLength))
			}
			if seq.FrameIDNumbersPresent {
				hdr.FrameID = int(br.ReadBits(seq.FrameIDNBits))
			}
			return nil
		}

		hdr.FrameType = FrameType(br.ReadBits(2))
		hdr.ShowFrame = br.ReadFlag()
		if hdr.ShowFrame && seq.DecoderModelInfoPresent && !seq.EqualPictureInterval {
			hdr.FramePresentationDelay = int(br.ReadBits(seq.FramePresentationDelayLength))
		}
		if hdr.ShowFrame {
			hdr.ShowableFrame = hdr.FrameType != FrameTypeKey
		} else {
			hdr.ShowableFrame = br.ReadFlag()
		}
		hdr.ErrorResilientMode = (hdr.FrameType == FrameTypeKey && hdr.ShowFrame) ||
			hdr.FrameType == FrameTypeSwitch || br.ReadFlag()
	}

	hdr.DisableCDFUpdate = br.ReadFlag()
	if seq.ScreenContentTools == Adaptive {
		hdr.AllowScreenContentTools = br.ReadFlag()
	} else {
		hdr.AllowScreenContentTools = seq.ScreenContentTools == On
	}
	if hdr.AllowScreenContentTools {
		if seq.ForceIntegerMV == Adaptive {
			hdr.ForceIntegerMV = br.ReadFlag()
		} else {
			hdr.ForceIntegerMV = seq.ForceIntegerMV == On
		}
	}
	if hdr.FrameType.IsIntra() {
		hdr.ForceIntegerMV = true
	}

	if seq.FrameIDNumbersPresent {
		hdr.FrameID = int(br.ReadBits(seq.FrameIDNBits))
	}

	switch {
	case seq.ReducedStillPictureHeader:
	case hdr.FrameType == FrameTypeSwitch:
		hdr.FrameSizeOverride = true
	default:
		hdr.FrameSizeOverride = br.ReadFlag()
	}

	hdr.FrameOffset = readN(br, seq.OrderHintNBits)

	if hdr.FrameType.IsIntra() || hdr.ErrorResilientMode {
		hdr.PrimaryRefFrame = PrimaryRefNone
	} else {
		hdr.PrimaryRefFrame = int(br.ReadBits(3))
	}

	if seq.DecoderModelInfoPresent {
		hdr.BufferRemovalTimePresent = br.ReadFlag()
		if hdr.BufferRemovalTimePresent {
			for i := 0; i < seq.NumOperatingPoints; i++ {
				op := &seq.OperatingPoints[i]
				if !op.DecoderModelParamPresent {
					continue
				}
				inTemporal := (op.IDC>>uint(hdr.TemporalID))&1 == 1
				inSpatial := (op.IDC>>uint(hdr.SpatialID+8))&1 == 1
				if op.IDC == 0 || (inTemporal && inSpatial) {
					hdr.BufferRemovalTime[i] = int(br.ReadBits(seq.BufferRemovalDelayLength))
				}
			}
		}
	}

	if hdr.FrameType == FrameTypeSwitch || (hdr.FrameType == FrameTypeKey && hdr.ShowFrame) {
		hdr.RefreshFrameFlags = 0xff
	} else {
		hdr.RefreshFrameFlags = uint8(br.ReadBits(8))
	}
	if hdr.FrameType == FrameTypeIntra && hdr.RefreshFrameFlags == 0xff {
		return invalidf("intra only frame refreshes all reference slots")
	}
	if (!hdr.FrameType.IsIntra() || hdr.RefreshFrameFlags != 0xff) && hdr.ErrorResilientMode && seq.OrderHint {
		for i := 0; i < NumRefFrames; i++ {
			br.ReadBits(seq.OrderHintNBits)
		}
	}

	var err error
	if hdr.FrameType.IsIntra() {
		err = p.parseFrameSize(false)
		if err != nil {
			return err
		}
		if hdr.AllowScreenContentTools && hdr.Width[0] == hdr.Width[1] {
			hdr.AllowIntraBC = br.ReadFlag()
		}
	} else {
		err = p.parseInterRefs()
		if err != nil {
			return err
		}
	}

	hdr.RefreshContext = !seq.ReducedStillPictureHeader && !hdr.DisableCDFUpdate && !br.ReadFlag()

	err = p.parseTileInfo()
	if err != nil {
		return err
	}
	p.parseQuant()
	err = p.parseSegmentation()
	if err != nil {
		return err
	}
	p.parseDelta()
	p.deriveLossless()
	err = p.parseLoopFilter()
	if err != nil {
		return err
	}
	p.parseCDEF()
	p.parseRestoration()

	switch {
	case hdr.AllLossless:
		hdr.TxfmMode = Tx4x4Only
	case br.ReadFlag():
		hdr.TxfmMode = TxSwitchable
	default:
		hdr.TxfmMode = TxLargest
	}

	if !hdr.FrameType.IsIntra() {
		hdr.SwitchableCompRefs = br.ReadFlag()
	}
	err = p.parseSkipMode()
	if err != nil {
		return err
	}

	if !hdr.ErrorResilientMode && !hdr.FrameType.IsIntra() && seq.WarpedMotion {
		hdr.WarpMotion = br.ReadFlag()
	}
	hdr.ReducedTxtpSet = br.ReadFlag()

	err = p.parseGlobalMotion()
	if err != nil {
		return err
	}
	return p.parseFilmGrain()
}

// parseInterRefs parses the reference selection, frame size and motion
// vector tools of an inter or switch frame.
func (p *frameHeaderParser) parseInterRefs() error {
	br, seq, hdr := p.br, p.seq, p.hdr

	hdr.FrameRefShortSignaling = seq.OrderHint && br.ReadFlag()
	if hdr.FrameRefShortSignaling {
		return unsupported("frame_refs_short_signaling")
	}
	for i := 0; i < RefsPerFrame; i++ {
		hdr.RefIdx[i] = int(br.ReadBits(3))
		if seq.FrameIDNumbersPresent {
			br.ReadBits(seq.DeltaFrameIDNBits)
		}
	}

	err := p.parseFrameSize(!hdr.ErrorResilientMode && hdr.FrameSizeOverride)
	if err != nil {
		return err
	}

	hdr.HP = !hdr.ForceIntegerMV && br.ReadFlag()
	if br.ReadFlag() {
		hdr.SubpelFilterMode = FilterSwitchable
	} else {
		hdr.SubpelFilterMode = FilterMode(br.ReadBits(2))
	}
	hdr.SwitchableMotionMode = br.ReadFlag()
	hdr.UseRefFrameMVs = !hdr.ErrorResilientMode && seq.RefFrameMVs && seq.OrderHint && br.ReadFlag()
	return nil
}

// parseFrameSize parses frame_size, superres_params and render_size, or
// frame_size_with_refs if useRef is set.
func (p *frameHeaderParser) parseFrameSize(useRef bool) error {
	br, seq, hdr := p.br, p.seq, p.hdr

	if useRef {
		for i := 0; i < RefsPerFrame; i++ {
			if br.ReadFlag() {
				return unsupported("frame size from reference")
			}
		}
	}

	if hdr.FrameSizeOverride {
		hdr.Width[1] = int(br.ReadBits(seq.WidthNBits)) + 1
		hdr.Height = int(br.ReadBits(seq.HeightNBits)) + 1
	} else {
		hdr.Width[1] = seq.MaxWidth
		hdr.Height = seq.MaxHeight
	}

	hdr.SuperRes.Enabled = seq.SuperRes && br.ReadFlag()
	if hdr.SuperRes.Enabled {
		d := 9 + int(br.ReadBits(3))
		hdr.SuperRes.WidthScaleDenominator = d
		hdr.Width[0] = max((hdr.Width[1]*8+(d>>1))/d, min(16, hdr.Width[1]))
	} else {
		hdr.SuperRes.WidthScaleDenominator = 8
		hdr.Width[0] = hdr.Width[1]
	}

	hdr.HaveRenderSize = br.ReadFlag()
	if hdr.HaveRenderSize {
		hdr.RenderWidth = int(br.ReadBits(16)) + 1
		hdr.RenderHeight = int(br.ReadBits(16)) + 1
	} else {
		hdr.RenderWidth = hdr.Width[1]
		hdr.RenderHeight = hdr.Height
	}
	return nil
}

// parseQuant parses quantization_params.
func (p *frameHeaderParser) parseQuant() {
	br, seq, q := p.br, p.seq, &p.hdr.Quant

	q.YAC = int(br.ReadBits(8))
	q.YDCDelta = readDeltaQ(br)
	if !seq.Monochrome {
		diffUV := seq.SeparateUVDeltaQ && br.ReadFlag()
		q.UDCDelta = readDeltaQ(br)
		q.UACDelta = readDeltaQ(br)
		if diffUV {
			q.VDCDelta = readDeltaQ(br)
			q.VACDelta = readDeltaQ(br)
		} else {
			q.VDCDelta = q.UDCDelta
			q.VACDelta = q.UACDelta
		}
	}

	q.QM = br.ReadFlag()
	if q.QM {
		q.QMY = int(br.ReadBits(4))
		q.QMU = int(br.ReadBits(4))
		if seq.SeparateUVDeltaQ {
			q.QMV = int(br.ReadBits(4))
		} else {
			q.QMV = q.QMU
		}
	}
}

func readDeltaQ(br *bits.BitReader) int {
	if br.ReadFlag() {
		return int(br.ReadSBits(6))
	}
	return 0
}

// parseDelta parses delta_q_params and delta_lf_params.
func (p *frameHeaderParser) parseDelta() {
	br, hdr := p.br, p.hdr
	d := &hdr.Delta

	d.Q.Present = hdr.Quant.YAC != 0 && br.ReadFlag()
	if d.Q.Present {
		d.Q.ResLog2 = int(br.ReadBits(2))
	}
	d.LF.Present = d.Q.Present && !hdr.AllowIntraBC && br.ReadFlag()
	if d.LF.Present {
		d.LF.ResLog2 = int(br.ReadBits(2))
		d.LF.Multi = br.ReadFlag()
	}
}

// parseSkipMode derives whether skip mode is allowed from the order hints of
// the references and, if so, reads skip_mode_present.
func (p *frameHeaderParser) parseSkipMode() error {
	br, seq, hdr := p.br, p.seq, p.hdr

	if hdr.FrameType.IsIntra() || !hdr.SwitchableCompRefs || !seq.OrderHint {
		return nil
	}

	var hints [RefsPerFrame]int
	for i := range hints {
		ref, err := p.refHdr(i)
		if err != nil {
			return err
		}
		hints[i] = ref.FrameOffset
	}

	nbits := seq.OrderHintNBits
	fwdIdx, bwdIdx := -1, -1
	var fwdHint, bwdHint int
	for i, h := range hints {
		d := relativeDist(nbits, h, hdr.FrameOffset)
		switch {
		case d < 0:
			if fwdIdx < 0 || relativeDist(nbits, h, fwdHint) > 0 {
				fwdIdx, fwdHint = i, h
			}
		case d > 0:
			if bwdIdx < 0 || relativeDist(nbits, h, bwdHint) < 0 {
				bwdIdx, bwdHint = i, h
			}
		}
	}

	switch {
	case fwdIdx < 0:
	case bwdIdx >= 0:
		hdr.SkipModeAllowed = true
		hdr.SkipModeRefs = [2]int{min(fwdIdx, bwdIdx), max(fwdIdx, bwdIdx)}
	default:
		fwd2Idx := -1
		var fwd2Hint int
		for i, h := range hints {
			if relativeDist(nbits, h, fwdHint) < 0 {
				if fwd2Idx < 0 || relativeDist(nbits, h, fwd2Hint) > 0 {
					fwd2Idx, fwd2Hint = i, h
				}
			}
		}
		if fwd2Idx >= 0 {
			hdr.SkipModeAllowed = true
			hdr.SkipModeRefs = [2]int{min(fwdIdx, fwd2Idx), max(fwdIdx, fwd2Idx)}
		}
	}

	if hdr.SkipModeAllowed {
		hdr.SkipModeEnabled = br.ReadFlag()
	}
	return nil
}

// relativeDist returns the signed distance from order hint b to a, modulo
// the order hint range.
func relativeDist(nbits, a, b int) int {
	if nbits == 0 {
		return 0
	}
	m := 1 << uint(nbits-1)
	diff := a - b
	return (diff & (m - 1)) - (diff & m)
}
