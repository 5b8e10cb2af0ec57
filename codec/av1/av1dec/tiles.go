/*
DESCRIPTION
  tiles.go provides parsing of the tile_info syntax of a frame header, the
  tile group OBU header, and splitting of a tile group payload into the coded
  data of each tile.

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
)

// Tile size limits from section A.3 of the AV1 specification.
const (
	maxTileWidth = 4096
	maxTileArea  = 4096 * 2304
)

// TilingInfo describes the tile grid of a frame. Start tables are in units of
// superblocks, and each has one entry past the last tile holding the grid
// size.
type TilingInfo struct {
	Uniform bool

	// NBytes is the byte width of tile size fields in tile groups.
	NBytes int

	MinLog2Cols, MaxLog2Cols, Log2Cols, Cols int
	MinLog2Rows, MaxLog2Rows, Log2Rows, Rows int

	ColStartSB [MaxTileCols + 1]int
	RowStartSB [MaxTileRows + 1]int

	// Update is the context_update_tile_id.
	Update int
}

// NumTiles returns the number of tiles in the grid.
func (t *TilingInfo) NumTiles() int { return t.Cols * t.Rows }

// tileLog2 returns the smallest k such that blkSize<<k >= target.
func tileLog2(blkSize, target int) int {
	var k int
	for blkSize<<uint(k) < target {
		k++
	}
	return k
}

// parseTileInfo parses tile_info and derives the tile grid.
func (p *frameHeaderParser) parseTileInfo() error {
	br, seq, hdr := p.br, p.seq, p.hdr
	t := &hdr.Tiling

	sbLog2 := 6
	if seq.SB128 {
		sbLog2 = 7
	}
	sbSzMin1 := 1<<uint(sbLog2) - 1
	sbw := (hdr.Width[0] + sbSzMin1) >> uint(sbLog2)
	sbh := (hdr.Height + sbSzMin1) >> uint(sbLog2)
	maxTileWidthSB := maxTileWidth >> uint(sbLog2)
	maxTileAreaSB := maxTileArea >> uint(2*sbLog2)

	t.MinLog2Cols = tileLog2(maxTileWidthSB, sbw)
	t.MaxLog2Cols = tileLog2(1, min(sbw, MaxTileCols))
	t.MaxLog2Rows = tileLog2(1, min(sbh, MaxTileRows))
	minLog2Tiles := max(tileLog2(maxTileAreaSB, sbw*sbh), t.MinLog2Cols)

	t.Uniform = br.ReadFlag()
	if t.Uniform {
		for t.Log2Cols = t.MinLog2Cols; t.Log2Cols < t.MaxLog2Cols && br.ReadFlag(); t.Log2Cols++ {
		}
		tileW := 1 + ((sbw - 1) >> uint(t.Log2Cols))
		t.Cols = 0
		for sbx := 0; sbx < sbw; sbx += tileW {
			if t.Cols == MaxTileCols {
				return invalidf("too many tile columns")
			}
			t.ColStartSB[t.Cols] = sbx
			t.Cols++
		}

		t.MinLog2Rows = max(minLog2Tiles-t.Log2Cols, 0)
		for t.Log2Rows = t.MinLog2Rows; t.Log2Rows < t.MaxLog2Rows && br.ReadFlag(); t.Log2Rows++ {
		}
		tileH := 1 + ((sbh - 1) >> uint(t.Log2Rows))
		t.Rows = 0
		for sby := 0; sby < sbh; sby += tileH {
			if t.Rows == MaxTileRows {
				return invalidf("too many tile rows")
			}
			t.RowStartSB[t.Rows] = sby
			t.Rows++
		}
	} else {
		t.Cols = 0
		widest := 0
		for sbx := 0; sbx < sbw && t.Cols < MaxTileCols; t.Cols++ {
			widthSB := min(sbw-sbx, maxTileWidthSB)
			w := 1
			if widthSB > 1 {
				w += int(br.ReadUniform(uint32(widthSB)))
			}
			t.ColStartSB[t.Cols] = sbx
			sbx += w
			widest = max(widest, w)
		}
		t.Log2Cols = tileLog2(1, t.Cols)

		areaSB := sbw * sbh
		if minLog2Tiles > 0 {
			areaSB >>= uint(minLog2Tiles + 1)
		}
		maxTileHeightSB := max(areaSB/widest, 1)

		t.Rows = 0
		for sby := 0; sby < sbh && t.Rows < MaxTileRows; t.Rows++ {
			heightSB := min(sbh-sby, maxTileHeightSB)
			h := 1
			if heightSB > 1 {
				h += int(br.ReadUniform(uint32(heightSB)))
			}
			t.RowStartSB[t.Rows] = sby
			sby += h
		}
		t.Log2Rows = tileLog2(1, t.Rows)
	}
	t.ColStartSB[t.Cols] = sbw
	t.RowStartSB[t.Rows] = sbh

	if t.Log2Cols != 0 || t.Log2Rows != 0 {
		t.Update = int(br.ReadBits(t.Log2Cols + t.Log2Rows))
		if t.Update >= t.NumTiles() {
			return invalidf("context update tile %d out of range", t.Update)
		}
		t.NBytes = int(br.ReadBits(2)) + 1
	}
	return nil
}

// TileGroup is the payload of a tile group OBU, holding the coded data of the
// tiles Start to End inclusive.
type TileGroup struct {
	// Data is the tile data following the tile group header.
	Data []byte

	// Offset is the byte offset of Data within its packet.
	Offset int

	Start, End int
}

// parseTileGroupHeader parses the tile_start_and_end_present_flag and tile
// range of a tile group, followed by byte alignment. The returned group's
// tiles must continue on from the nTiles tiles already seen for the frame.
func parseTileGroupHeader(br *bits.BitReader, t *TilingInfo, nTiles int) (TileGroup, error) {
	var g TileGroup
	n := t.NumTiles()
	g.End = n - 1
	if n > 1 && br.ReadFlag() {
		nbits := t.Log2Cols + t.Log2Rows
		g.Start = int(br.ReadBits(nbits))
		g.End = int(br.ReadBits(nbits))
	}
	br.ByteAlignment()

	if br.Err() != nil {
		return g, invalidf("tile group header overrun")
	}
	if g.Start > g.End || g.End >= n {
		return g, invalidf("invalid tile range %d to %d for %d tiles", g.Start, g.End, n)
	}
	if g.Start != nTiles {
		return g, invalidf("tile group starts at tile %d, expected %d", g.Start, nTiles)
	}
	return g, nil
}

// Tile is the coded data of a single tile.
type Tile struct {
	Row, Col int
	Data     []byte
}

// locateTiles splits the data of g into tiles. Every tile except the last is
// preceded by a little-endian size field of t.NBytes bytes holding its size
// minus one; the last tile takes the remaining bytes.
func locateTiles(t *TilingInfo, g *TileGroup) ([]Tile, error) {
	tiles := make([]Tile, 0, g.End-g.Start+1)
	data := g.Data
	row, col := g.Start/t.Cols, g.Start%t.Cols
	for i := g.Start; i <= g.End; i++ {
		sz := len(data)
		if i != g.End {
			if t.NBytes > len(data) {
				return nil, invalidf("tile %d size field overruns tile group", i)
			}
			sz = int(bits.NewBitReader(data[:t.NBytes]).ReadLE(t.NBytes)) + 1
			data = data[t.NBytes:]
			if sz > len(data) {
				return nil, invalidf("tile %d size %d exceeds remaining %d bytes", i, sz, len(data))
			}
		}
		tiles = append(tiles, Tile{Row: row, Col: col, Data: data[:sz]})
		data = data[sz:]

		col++
		if col == t.Cols {
			col = 0
			row++
		}
	}
	return tiles, nil
}
