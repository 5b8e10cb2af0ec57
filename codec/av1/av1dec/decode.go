/*
DESCRIPTION
  decode.go provides the per-frame decode state and the loop driving the
  decoding of tiles and superblock rows of a frame.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package av1dec provides a decoder front end for AV1 bitstreams. It parses
// OBUs into sequence and frame headers, locates tile data and drives the
// per-tile superblock decode loop.
package av1dec

import "github.com/pkg/errors"

// SuperblockDecoder decodes and reconstructs the blocks of a frame. The frame
// loop calls DecodeSuperblock for each superblock of a tile row, in raster
// order within the tile, with the tile and block context state set up for
// it, and FilterRow once a superblock row is complete across all tile
// columns.
type SuperblockDecoder interface {
	DecodeSuperblock(f *FrameContext, t *TileContext) error
	FilterRow(f *FrameContext, sby int) error
}

// TileState is the state of one tile of a frame.
type TileState struct {
	// Row and Col are the position of the tile in the tile grid.
	Row, Col int

	// The tile rectangle, in 4 sample units.
	ColStart, ColEnd int
	RowStart, RowEnd int

	// Data is the coded data of the tile.
	Data []byte

	// LastQIdx and LastDeltaLF carry the quantizer index and loop filter
	// deltas from one superblock to the next.
	LastQIdx    int
	LastDeltaLF [4]int
}

// TileContext is the state of a tile decoding thread.
type TileContext struct {
	// By and Bx are the position of the current superblock in 4 sample
	// units.
	By, Bx int

	// L is the left block context of the current superblock row.
	L BlockContext

	// A indexes the above block context of the current superblock in
	// FrameContext.A.
	A int

	PalSzUV [2][32]uint8

	TS *TileState
}

// LoopFilterSizes holds the sizes of the loop filter buffers of a frame.
type LoopFilterSizes struct {
	LineSz   int
	MaskSz   int
	LRMaskSz int
	ReSz     int

	// StartOfTileRow holds, for each superblock row, the tile row it starts
	// or 0 if it does not start one.
	StartOfTileRow []int
}

// FrameContext holds the decode state of one frame.
type FrameContext struct {
	SeqHdr   *SequenceHeader
	FrameHdr *FrameHeader

	// RefHdrs holds the frame headers of the seven inter references.
	RefHdrs [RefsPerFrame]*FrameHeader

	// Tiles holds the tile groups of the frame.
	Tiles []TileGroup

	TS []TileState
	TC []TileContext

	// Frame dimensions in 4 sample units, and in 8 sample units times 2.
	W4, H4   int
	BW, BH   int
	B4Stride int

	// Superblock grid dimensions.
	SB128W, SB128H int
	SRSB128W       int
	SBH            int
	SBShift        int
	SBStep         int

	// DQ holds the dequantization factors of each segment, indexed by
	// [segment][plane][0: DC, 1: AC].
	DQ [MaxSegments][3][2]uint16

	// QM holds the quantizer matrix level of each plane, or -1 for flat
	// quantization.
	QM [3]int

	// JntWeights holds the distance weights of compound reference pairs.
	JntWeights [RefsPerFrame][RefsPerFrame]uint8

	// A holds the above block contexts, one per 128 sample superblock
	// column per tile row.
	A []BlockContext

	LF LoopFilterSizes

	// UpdateSet is true once the tile used for context updates has been
	// set up.
	UpdateSet bool

	// Pass is the current decode pass. Pass 0 parses and reconstructs, pass
	// 1 only parses and pass 2 only reconstructs.
	Pass int

	// RowsDone counts superblock rows completed in the last pass.
	RowsDone int

	Pic *Frame

	nTC int
	sb  SuperblockDecoder
}

// newFrameContext returns a FrameContext for nTC tile threads.
func newFrameContext(nTC int, sb SuperblockDecoder) *FrameContext {
	return &FrameContext{nTC: nTC, sb: sb, TC: make([]TileContext, 1)}
}

// setGeometry derives the block and superblock grid of the frame.
func (f *FrameContext) setGeometry() {
	hdr := f.FrameHdr
	sb128 := 0
	if f.SeqHdr.SB128 {
		sb128 = 1
	}

	f.W4 = (hdr.Width[0] + 3) >> 2
	f.H4 = (hdr.Height + 3) >> 2
	f.BW = ((hdr.Width[0] + 7) >> 3) << 1
	f.BH = ((hdr.Height + 7) >> 3) << 1
	f.B4Stride = (f.BW + 31) &^ 31
	f.SB128W = (f.BW + 31) >> 5
	f.SB128H = (f.BH + 31) >> 5
	f.SBShift = 4 + sb128
	f.SBStep = 16 << uint(sb128)
	f.SBH = (f.BH + f.SBStep - 1) >> uint(f.SBShift)
	f.SRSB128W = ((((hdr.Width[1] + 7) >> 3) << 1) + 31) >> 5
}

// decodeFrame decodes all tiles of the frame, with nFC frame contexts in use
// by the session.
func (f *FrameContext) decodeFrame(nFC int) error {
	seq, hdr := f.SeqHdr, f.FrameHdr
	if f.nTC > 1 {
		return unsupported("tile threading")
	}
	if nFC > 1 {
		return unsupported("frame threading")
	}

	f.setGeometry()

	nTS := hdr.Tiling.NumTiles()
	if nTS > len(f.TS) {
		f.TS = make([]TileState, nTS)
	}
	if aSz := f.SB128W * hdr.Tiling.Rows; aSz > len(f.A) {
		f.A = make([]BlockContext, aSz)
	}

	hbd := 0
	if seq.HBD > 0 {
		hbd = 1
	}
	f.LF.LineSz = f.B4Stride << uint(hbd)
	f.LF.MaskSz = f.SB128W * f.SB128H
	f.LF.LRMaskSz = f.SRSB128W * f.SB128H
	f.LF.ReSz = f.SB128H * hdr.Tiling.Cols
	if f.SBH > len(f.LF.StartOfTileRow) {
		f.LF.StartOfTileRow = make([]int, f.SBH)
	}
	sby := 0
	for tileRow := 0; tileRow < hdr.Tiling.Rows && sby < f.SBH; tileRow++ {
		f.LF.StartOfTileRow[sby] = tileRow
		sby++
		for sby < hdr.Tiling.RowStartSB[tileRow+1] && sby < f.SBH {
			f.LF.StartOfTileRow[sby] = 0
			sby++
		}
	}

	initQuantTables(seq, hdr, hdr.Quant.YAC, &f.DQ)
	f.QM = [3]int{-1, -1, -1}
	if hdr.Quant.QM {
		f.QM = [3]int{hdr.Quant.QMY, hdr.Quant.QMU, hdr.Quant.QMV}
	}

	if hdr.SwitchableCompRefs {
		err := f.initJntWeights()
		if err != nil {
			return err
		}
	}

	f.UpdateSet = false
	for i := range f.Tiles {
		tiles, err := locateTiles(&hdr.Tiling, &f.Tiles[i])
		if err != nil {
			return err
		}
		for j, tile := range tiles {
			idx := f.Tiles[i].Start + j
			err = f.setupTile(&f.TS[idx], tile)
			if err != nil {
				return err
			}
			if idx == hdr.Tiling.Update && hdr.RefreshContext {
				f.UpdateSet = true
			}
		}
	}

	usesTwoPass := 0
	if nFC > 1 && hdr.RefreshContext {
		usesTwoPass = 1
	}
	for f.Pass = usesTwoPass; f.Pass <= 2*usesTwoPass; f.Pass++ {
		for n := 0; n < f.SB128W*hdr.Tiling.Rows; n++ {
			resetContext(&f.A[n], hdr.FrameType.IsIntra(), f.Pass)
		}
		err := f.decodeRows()
		if err != nil {
			return err
		}
	}
	return nil
}

// decodeRows decodes the frame one superblock row at a time. Within a tile
// row, each superblock row is decoded across every tile column before
// moving down, so that filtering can follow on each completed row.
func (f *FrameContext) decodeRows() error {
	seq, hdr := f.SeqHdr, f.FrameHdr
	t := &f.TC[0]
	f.RowsDone = 0

	sb128 := 0
	if seq.SB128 {
		sb128 = 1
	}

	for tileRow := 0; tileRow < hdr.Tiling.Rows; tileRow++ {
		sbhEnd := min(hdr.Tiling.RowStartSB[tileRow+1], f.SBH)
		for sby := hdr.Tiling.RowStartSB[tileRow]; sby < sbhEnd; sby++ {
			t.By = sby << uint(4+sb128)
			for tileCol := 0; tileCol < hdr.Tiling.Cols; tileCol++ {
				t.TS = &f.TS[tileRow*hdr.Tiling.Cols+tileCol]
				err := f.decodeTileSBRow(t)
				if err != nil {
					return errors.Wrapf(err, "could not decode tile %d,%d superblock row %d", tileRow, tileCol, sby)
				}
			}

			if f.Pass != 1 && f.sb != nil {
				err := f.sb.FilterRow(f, sby)
				if err != nil {
					return errors.Wrapf(err, "could not filter superblock row %d", sby)
				}
			}
			f.RowsDone++
		}
	}
	return nil
}

// setupTile records the rectangle and data of a tile and resets its carried
// state.
func (f *FrameContext) setupTile(ts *TileState, tile Tile) error {
	hdr := f.FrameHdr
	tl := &hdr.Tiling

	ts.Row, ts.Col = tile.Row, tile.Col
	ts.Data = tile.Data
	ts.LastQIdx = hdr.Quant.YAC
	ts.LastDeltaLF = [4]int{}

	ts.ColStart = tl.ColStartSB[tile.Col] << uint(f.SBShift)
	ts.ColEnd = min(tl.ColStartSB[tile.Col+1]<<uint(f.SBShift), f.BW)
	ts.RowStart = tl.RowStartSB[tile.Row] << uint(f.SBShift)
	ts.RowEnd = min(tl.RowStartSB[tile.Row+1]<<uint(f.SBShift), f.BH)

	if hdr.SuperRes.Enabled {
		for _, typ := range hdr.Restoration.Type {
			if typ != RestorationNone {
				return unsupported("loop restoration with super-resolution")
			}
		}
	}
	return nil
}

// decodeTileSBRow decodes one superblock row of the tile t.TS.
func (f *FrameContext) decodeTileSBRow(t *TileContext) error {
	seq, hdr := f.SeqHdr, f.FrameHdr
	ts := t.TS

	resetContext(&t.L, hdr.FrameType.IsIntra(), f.Pass)
	fill(t.PalSzUV[1][:], 0)

	colSB128Start := hdr.Tiling.ColStartSB[ts.Col]
	if !seq.SB128 {
		colSB128Start >>= 1
	}
	t.A = colSB128Start + ts.Row*f.SB128W

	for t.Bx = ts.ColStart; t.Bx < ts.ColEnd; t.Bx += f.SBStep {
		if f.sb != nil {
			err := f.sb.DecodeSuperblock(f, t)
			if err != nil {
				return err
			}
		}
		if t.Bx&16 != 0 || seq.SB128 {
			t.A++
		}
	}
	return nil
}

var (
	quantDistWeight = [3][2]int{{2, 3}, {2, 5}, {2, 7}}
	quantDistLookup = [4][2]uint8{{9, 7}, {11, 5}, {12, 4}, {13, 3}}
)

// initJntWeights derives the distance weights used by compound prediction
// for each pair of references.
func (f *FrameContext) initJntWeights() error {
	nbits := f.SeqHdr.OrderHintNBits
	cur := f.FrameHdr.FrameOffset
	for i := 0; i < RefsPerFrame; i++ {
		if f.RefHdrs[i] == nil {
			return unsupported("compound weights for empty reference")
		}
	}
	for i := 0; i < RefsPerFrame; i++ {
		d1 := min(abs(relativeDist(nbits, f.RefHdrs[i].FrameOffset, cur)), 31)
		for j := i + 1; j < RefsPerFrame; j++ {
			d0 := min(abs(relativeDist(nbits, f.RefHdrs[j].FrameOffset, cur)), 31)
			order := 0
			if d0 <= d1 {
				order = 1
			}
			k := 0
			for ; k < 3; k++ {
				c0 := quantDistWeight[k][order]
				c1 := quantDistWeight[k][1-order]
				if (d0 > d1 && d0*c0 < d1*c1) || (d0 <= d1 && d0*c0 > d1*c1) {
					break
				}
			}
			f.JntWeights[i][j] = quantDistLookup[k][order]
		}
	}
	return nil
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
