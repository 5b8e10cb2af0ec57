/*
DESCRIPTION
  gmv.go provides parsing of the global_motion_params syntax, coded relative
  to the parameters of the primary reference frame.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package av1dec

import "github.com/ausocean/av1/codec/av1/av1dec/bits"

// Global motion precision, from section 3 of the AV1 specification.
const (
	warpedModelPrecBits = 16
	gmAbsAlphaBits      = 12
	gmAlphaPrecBits     = 15
	gmAbsTransOnlyBits  = 9
	gmTransOnlyPrecBits = 3
	gmAbsTransBits      = 12
	gmTransPrecBits     = 6
)

// WarpedMotionParams is a global motion model. Matrix holds the translation
// in entries 0 and 1 and the 2x2 affine part in entries 2 to 5, with 16
// fractional bits.
type WarpedMotionParams struct {
	Type   WarpedMotionType
	Matrix [6]int32
}

// defaultWarpedMotion is the identity model.
var defaultWarpedMotion = WarpedMotionParams{
	Type:   WMTypeIdentity,
	Matrix: [6]int32{0, 0, 1 << 16, 0, 0, 1 << 16},
}

// parseGlobalMotion parses global_motion_params for each inter reference.
func (p *frameHeaderParser) parseGlobalMotion() error {
	br, hdr := p.br, p.hdr

	for i := range hdr.GMV {
		hdr.GMV[i] = defaultWarpedMotion
	}
	if hdr.FrameType.IsIntra() {
		return nil
	}

	prev, err := p.primaryRef()
	if err != nil {
		return err
	}

	for i := range hdr.GMV {
		gm := &hdr.GMV[i]
		switch {
		case !br.ReadFlag():
			gm.Type = WMTypeIdentity
			continue
		case br.ReadFlag():
			gm.Type = WMTypeRotZoom
		case br.ReadFlag():
			gm.Type = WMTypeTranslation
		default:
			gm.Type = WMTypeAffine
		}

		ref := &defaultWarpedMotion.Matrix
		if prev != nil {
			ref = &prev.GMV[i].Matrix
		}

		if gm.Type >= WMTypeRotZoom {
			gm.Matrix[2] = readGlobalParam(br, gm.Type, hdr.HP, 2, ref)
			gm.Matrix[3] = readGlobalParam(br, gm.Type, hdr.HP, 3, ref)
			if gm.Type == WMTypeAffine {
				gm.Matrix[4] = readGlobalParam(br, gm.Type, hdr.HP, 4, ref)
				gm.Matrix[5] = readGlobalParam(br, gm.Type, hdr.HP, 5, ref)
			} else {
				gm.Matrix[4] = -gm.Matrix[3]
				gm.Matrix[5] = gm.Matrix[2]
			}
		}
		gm.Matrix[0] = readGlobalParam(br, gm.Type, hdr.HP, 0, ref)
		gm.Matrix[1] = readGlobalParam(br, gm.Type, hdr.HP, 1, ref)
	}
	return nil
}

// readGlobalParam reads entry idx of a global motion matrix as described in
// section 5.9.25.
func readGlobalParam(br *bits.BitReader, typ WarpedMotionType, hp bool, idx int, ref *[6]int32) int32 {
	absBits, precBits := gmAbsAlphaBits, gmAlphaPrecBits
	if idx < 2 {
		if typ == WMTypeTranslation {
			lp := 0
			if !hp {
				lp = 1
			}
			absBits = gmAbsTransOnlyBits - lp
			precBits = gmTransOnlyPrecBits - lp
		} else {
			absBits = gmAbsTransBits
			precBits = gmTransPrecBits
		}
	}
	precDiff := warpedModelPrecBits - precBits
	var round, sub int
	if idx%3 == 2 {
		round = 1 << warpedModelPrecBits
		sub = 1 << uint(precBits)
	}
	mx := 1 << uint(absBits)
	r := (int(ref[idx]) >> uint(precDiff)) - sub
	v := readSignedSubexpWithRef(br, -mx, mx+1, r)
	return int32(v<<uint(precDiff) + round)
}

// readSignedSubexpWithRef reads a value in [low, high) coded relative to r.
func readSignedSubexpWithRef(br *bits.BitReader, low, high, r int) int {
	return readUnsignedSubexpWithRef(br, high-low, r-low) + low
}

func readUnsignedSubexpWithRef(br *bits.BitReader, mx, r int) int {
	v := readSubexp(br, mx)
	if r<<1 <= mx {
		return inverseRecenter(r, v)
	}
	return mx - 1 - inverseRecenter(mx-1-r, v)
}

// readSubexp reads a sub-exponentially coded value in [0, numSyms).
func readSubexp(br *bits.BitReader, numSyms int) int {
	const k = 3
	var i, mk int
	for {
		b2 := k
		if i != 0 {
			b2 = k + i - 1
		}
		a := 1 << uint(b2)
		if numSyms <= mk+3*a {
			return int(br.ReadUniform(uint32(numSyms-mk))) + mk
		}
		if !br.ReadFlag() {
			return int(br.ReadBits(b2)) + mk
		}
		i++
		mk += a
	}
}

func inverseRecenter(r, v int) int {
	switch {
	case v > 2*r:
		return v
	case v&1 == 0:
		return (v >> 1) + r
	default:
		return r - ((v + 1) >> 1)
	}
}
