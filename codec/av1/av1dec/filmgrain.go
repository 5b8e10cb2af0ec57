/*
DESCRIPTION
  filmgrain.go provides parsing of the film_grain_params syntax.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package av1dec

// FilmGrainData holds the parameters of the film grain synthesis process.
type FilmGrainData struct {
	Seed uint16

	NumYPoints int
	YPoints    [14][2]int // Value, scaling.

	ChromaScalingFromLuma bool
	NumUVPoints           [2]int
	UVPoints              [2][10][2]int

	ScalingShift    int
	ARCoeffLag      int
	ARCoeffsY       [24]int
	ARCoeffsUV      [2][25]int
	ARCoeffShift    int
	GrainScaleShift int

	UVMult     [2]int
	UVLumaMult [2]int
	UVOffset   [2]int

	OverlapFlag           bool
	ClipToRestrictedRange bool
}

// FilmGrainInfo holds whether grain is applied to a frame and with what
// parameters.
type FilmGrainInfo struct {
	Present bool
	Update  bool
	Data    FilmGrainData
}

// parseFilmGrain parses film_grain_params. Parameters may be copied from one
// of the frame's references, keeping the newly coded seed.
func (p *frameHeaderParser) parseFilmGrain() error {
	br, seq, hdr := p.br, p.seq, p.hdr
	fg := &hdr.FilmGrain

	fg.Present = seq.FilmGrainPresent && (hdr.ShowFrame || hdr.ShowableFrame) && br.ReadFlag()
	if !fg.Present {
		return nil
	}

	seed := uint16(br.ReadBits(16))
	fg.Update = hdr.FrameType != FrameTypeInter || br.ReadFlag()
	if !fg.Update {
		slot := int(br.ReadBits(3))
		var found bool
		for _, idx := range hdr.RefIdx {
			if idx == slot {
				found = true
				break
			}
		}
		if !found {
			return invalidf("film grain reference slot %d is not a reference of the frame", slot)
		}
		if p.refs == nil || p.refs[slot] == nil {
			return unsupported("film grain from empty reference slot")
		}
		fg.Data = p.refs[slot].FilmGrain.Data
		fg.Data.Seed = seed
		return nil
	}

	d := &fg.Data
	d.Seed = seed

	d.NumYPoints = int(br.ReadBits(4))
	if d.NumYPoints > len(d.YPoints) {
		return invalidf("too many film grain luma points: %d", d.NumYPoints)
	}
	for i := 0; i < d.NumYPoints; i++ {
		d.YPoints[i][0] = int(br.ReadBits(8))
		if i > 0 && d.YPoints[i-1][0] >= d.YPoints[i][0] {
			return invalidf("film grain luma points not increasing")
		}
		d.YPoints[i][1] = int(br.ReadBits(8))
	}

	d.ChromaScalingFromLuma = !seq.Monochrome && br.ReadFlag()
	if !seq.Monochrome && !d.ChromaScalingFromLuma && !(seq.SSHor == 1 && seq.SSVer == 1 && d.NumYPoints == 0) {
		for pl := 0; pl < 2; pl++ {
			d.NumUVPoints[pl] = int(br.ReadBits(4))
			if d.NumUVPoints[pl] > len(d.UVPoints[pl]) {
				return invalidf("too many film grain chroma points: %d", d.NumUVPoints[pl])
			}
			for i := 0; i < d.NumUVPoints[pl]; i++ {
				d.UVPoints[pl][i][0] = int(br.ReadBits(8))
				if i > 0 && d.UVPoints[pl][i-1][0] >= d.UVPoints[pl][i][0] {
					return invalidf("film grain chroma points not increasing")
				}
				d.UVPoints[pl][i][1] = int(br.ReadBits(8))
			}
		}
	}
	if seq.SSHor == 1 && seq.SSVer == 1 && (d.NumUVPoints[0] == 0) != (d.NumUVPoints[1] == 0) {
		return invalidf("film grain chroma points must be coded for both or neither chroma plane")
	}

	d.ScalingShift = int(br.ReadBits(2)) + 8
	d.ARCoeffLag = int(br.ReadBits(2))
	numYPos := 2 * d.ARCoeffLag * (d.ARCoeffLag + 1)
	numUVPos := numYPos
	if d.NumYPoints != 0 {
		numUVPos++
		for i := 0; i < numYPos; i++ {
			d.ARCoeffsY[i] = int(br.ReadBits(8)) - 128
		}
	}
	for pl := 0; pl < 2; pl++ {
		if d.NumUVPoints[pl] != 0 || d.ChromaScalingFromLuma {
			for i := 0; i < numUVPos; i++ {
				d.ARCoeffsUV[pl][i] = int(br.ReadBits(8)) - 128
			}
		}
	}
	d.ARCoeffShift = int(br.ReadBits(2)) + 6
	d.GrainScaleShift = int(br.ReadBits(2))
	for pl := 0; pl < 2; pl++ {
		if d.NumUVPoints[pl] != 0 {
			d.UVMult[pl] = int(br.ReadBits(8)) - 128
			d.UVLumaMult[pl] = int(br.ReadBits(8)) - 128
			d.UVOffset[pl] = int(br.ReadBits(9)) - 256
		}
	}
	d.OverlapFlag = br.ReadFlag()
	d.ClipToRestrictedRange = br.ReadFlag()
	return nil
}
