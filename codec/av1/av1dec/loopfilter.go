/*
DESCRIPTION
  loopfilter.go provides parsing of the in-loop filter parameters of a frame
  header: loop_filter_params, cdef_params and lr_params.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package av1dec

// LoopFilterModeRefDeltas holds the loop filter level adjustments per
// reference frame and per prediction mode.
type LoopFilterModeRefDeltas struct {
	ModeDelta [2]int
	RefDelta  [TotalRefsPerFrame]int
}

// defaultModeRefDeltas are the deltas in effect for a frame with no primary
// reference.
var defaultModeRefDeltas = LoopFilterModeRefDeltas{
	RefDelta: [TotalRefsPerFrame]int{1, 0, 0, 0, -1, 0, -1, -1},
}

// LoopFilterInfo holds the loop_filter_params of a frame.
type LoopFilterInfo struct {
	// LevelY holds the vertical and horizontal edge filter levels for luma.
	LevelY [2]int
	LevelU int
	LevelV int

	Sharpness           int
	ModeRefDeltaEnabled bool
	ModeRefDeltaUpdate  bool
	ModeRefDeltas       LoopFilterModeRefDeltas
}

// CDEFInfo holds the cdef_params of a frame. Strengths combine the primary
// strength in the upper 4 bits with the secondary strength in the lower 2.
type CDEFInfo struct {
	Damping    int
	NBits      int
	YStrength  [MaxCDEFStrengths]int
	UVStrength [MaxCDEFStrengths]int
}

// RestorationInfo holds the lr_params of a frame.
type RestorationInfo struct {
	Type [3]RestorationType

	// UnitSize holds the log2 restoration unit size for luma and chroma.
	UnitSize [2]int
}

// parseLoopFilter parses loop_filter_params. Frames that are lossless or use
// intra block copy carry no loop filter syntax.
func (p *frameHeaderParser) parseLoopFilter() error {
	br, seq, hdr := p.br, p.seq, p.hdr
	lf := &hdr.LoopFilter

	if hdr.AllLossless || hdr.AllowIntraBC {
		lf.ModeRefDeltaEnabled = true
		lf.ModeRefDeltaUpdate = true
		lf.ModeRefDeltas = defaultModeRefDeltas
		return nil
	}

	lf.LevelY[0] = int(br.ReadBits(6))
	lf.LevelY[1] = int(br.ReadBits(6))
	if !seq.Monochrome && (lf.LevelY[0] != 0 || lf.LevelY[1] != 0) {
		lf.LevelU = int(br.ReadBits(6))
		lf.LevelV = int(br.ReadBits(6))
	}
	lf.Sharpness = int(br.ReadBits(3))

	ref, err := p.primaryRef()
	if err != nil {
		return err
	}
	if ref == nil {
		lf.ModeRefDeltas = defaultModeRefDeltas
	} else {
		lf.ModeRefDeltas = ref.LoopFilter.ModeRefDeltas
	}

	lf.ModeRefDeltaEnabled = br.ReadFlag()
	if !lf.ModeRefDeltaEnabled {
		return nil
	}
	lf.ModeRefDeltaUpdate = br.ReadFlag()
	if !lf.ModeRefDeltaUpdate {
		return nil
	}
	for i := range lf.ModeRefDeltas.RefDelta {
		if br.ReadFlag() {
			lf.ModeRefDeltas.RefDelta[i] = int(br.ReadSBits(6))
		}
	}
	for i := range lf.ModeRefDeltas.ModeDelta {
		if br.ReadFlag() {
			lf.ModeRefDeltas.ModeDelta[i] = int(br.ReadSBits(6))
		}
	}
	return nil
}

// parseCDEF parses cdef_params.
func (p *frameHeaderParser) parseCDEF() {
	br, seq, hdr := p.br, p.seq, p.hdr
	c := &hdr.CDEF

	if hdr.AllLossless || !seq.CDEF || hdr.AllowIntraBC {
		c.Damping = 3
		return
	}

	c.Damping = int(br.ReadBits(2)) + 3
	c.NBits = int(br.ReadBits(2))
	for i := 0; i < 1<<uint(c.NBits); i++ {
		c.YStrength[i] = int(br.ReadBits(6))
		if !seq.Monochrome {
			c.UVStrength[i] = int(br.ReadBits(6))
		}
	}
}

// parseRestoration parses lr_params.
func (p *frameHeaderParser) parseRestoration() {
	br, seq, hdr := p.br, p.seq, p.hdr
	r := &hdr.Restoration

	if (hdr.AllLossless && !hdr.SuperRes.Enabled) || !seq.Restoration || hdr.AllowIntraBC {
		return
	}

	// RestorationType follows the coded lr_type order.
	r.Type[0] = RestorationType(br.ReadBits(2))
	if !seq.Monochrome {
		r.Type[1] = RestorationType(br.ReadBits(2))
		r.Type[2] = RestorationType(br.ReadBits(2))
	}

	if r.Type == [3]RestorationType{} {
		r.UnitSize[0] = 8
		return
	}

	r.UnitSize[0] = 6
	if seq.SB128 {
		r.UnitSize[0]++
	}
	if br.ReadFlag() {
		r.UnitSize[0]++
		if !seq.SB128 && br.ReadFlag() {
			r.UnitSize[0]++
		}
	}
	r.UnitSize[1] = r.UnitSize[0]
	if (r.Type[1] != RestorationNone || r.Type[2] != RestorationNone) && seq.SSHor == 1 && seq.SSVer == 1 {
		if br.ReadFlag() {
			r.UnitSize[1]--
		}
	}
}
