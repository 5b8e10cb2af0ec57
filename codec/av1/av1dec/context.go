/*
DESCRIPTION
  context.go provides the BlockContext type holding per column block state
  used as the left and above context while decoding superblocks, and the
  policy for resetting it.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package av1dec

// BlockContext holds block state for each 4 sample unit along one edge of a
// 128 sample wide superblock column (or two 64 sample superblocks).
type BlockContext struct {
	Mode      [32]uint8 // Luma intra mode or inter mode.
	LCoef     [32]uint8
	CCoef     [2][32]uint8
	SegPred   [32]uint8
	Skip      [32]uint8
	SkipMode  [32]uint8
	Intra     [32]uint8
	CompType  [32]uint8
	Ref       [2][32]int8 // -1 for intra.
	Filter    [2][32]uint8
	TxIntra   [32]int8
	Tx        [32]int8
	TxLpfY    [32]uint8
	TxLpfUV   [32]uint8
	Partition [16]uint8
	UVMode    [32]uint8
	PalSz     [32]uint8
}

// Context reset defaults.
const (
	coefCtxDefault = 0x40
	txLpfYDefault  = 2
	txLpfUVDefault = 1
)

func fill[T any](s []T, v T) {
	for i := range s {
		s[i] = v
	}
}

// resetContext resets c for a new superblock row or pass. Pass 2 only
// reconstructs and so keeps all symbol parsing state.
func resetContext(c *BlockContext, keyframe bool, pass int) {
	var intra uint8
	if keyframe {
		intra = 1
	}
	fill(c.Intra[:], intra)
	fill(c.UVMode[:], uint8(DCPred))
	if keyframe {
		fill(c.Mode[:], uint8(DCPred))
	}

	if pass == 2 {
		return
	}

	fill(c.Partition[:], 0)
	fill(c.Skip[:], 0)
	fill(c.SkipMode[:], 0)
	fill(c.TxLpfY[:], txLpfYDefault)
	fill(c.TxLpfUV[:], txLpfUVDefault)
	fill(c.TxIntra[:], -1)
	fill(c.Tx[:], int8(Tx64x64))
	if !keyframe {
		fill(c.Ref[0][:], -1)
		fill(c.Ref[1][:], -1)
		fill(c.CompType[:], 0)
		fill(c.Mode[:], uint8(NearestMV))
	}
	fill(c.LCoef[:], coefCtxDefault)
	fill(c.CCoef[0][:], coefCtxDefault)
	fill(c.CCoef[1][:], coefCtxDefault)
	fill(c.Filter[0][:], uint8(NumSwitchableFilters))
	fill(c.Filter[1][:], uint8(NumSwitchableFilters))
	fill(c.SegPred[:], 0)
	fill(c.PalSz[:], 0)
}
