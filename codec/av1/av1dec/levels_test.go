/*
DESCRIPTION
  levels_test.go checks the enumerations and lookup tables found in
  levels.go.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package av1dec

import "testing"

func TestTxfmDimensions(t *testing.T) {
	for tx := RTx4x4; tx < NumRectTxSizes; tx++ {
		d := tx.Dimensions()
		if d.W == 0 || d.H == 0 {
			t.Errorf("missing dimensions for transform %d", tx)
			continue
		}
		if 1<<d.LW != d.W || 1<<d.LH != d.H {
			t.Errorf("log2 size mismatch for transform %d: %+v", tx, d)
		}
		lmin, lmax := min(d.LW, d.LH), max(d.LW, d.LH)
		if d.Min != TxfmSize(lmin) || d.Max != TxfmSize(lmax) {
			t.Errorf("bounding square sizes wrong for transform %d: %+v", tx, d)
		}
		if tx < RectTxfmSize(NumTxSizes) && d.W != d.H {
			t.Errorf("square transform %d is not square: %+v", tx, d)
		}
	}
}

func TestBlockDimensions(t *testing.T) {
	seen := map[[2]int]bool{}
	for bs := BS128x128; bs < NumBlockSizes; bs++ {
		w, h := bs.Size4()
		d := blockDimensions[bs]
		if w == 0 || h == 0 || 1<<d[2] != d[0] || 1<<d[3] != d[1] {
			t.Errorf("bad dimensions for block size %d: %v", bs, d)
		}
		if seen[[2]int{w, h}] {
			t.Errorf("duplicate dimensions for block size %d: %dx%d", bs, w, h)
		}
		seen[[2]int{w, h}] = true
		if w > 4*h || h > 4*w {
			t.Errorf("aspect ratio of block size %d exceeds 4:1: %dx%d", bs, w, h)
		}
	}

	for bl := BL128x128; bl < NumBlockLevels; bl++ {
		if got, want := bl.Size4(), 32>>bl; got != int(want) {
			t.Errorf("unexpected size for level %d: got %d, want %d", bl, got, want)
		}
	}
}

func TestFrameType(t *testing.T) {
	tests := []struct {
		in    FrameType
		intra bool
		str   string
	}{
		{FrameTypeKey, true, "key"},
		{FrameTypeInter, false, "inter"},
		{FrameTypeIntra, true, "intra"},
		{FrameTypeSwitch, false, "switch"},
	}
	for _, test := range tests {
		if test.in.IsIntra() != test.intra || test.in.String() != test.str {
			t.Errorf("unexpected properties for frame type %d: intra %v string %s", test.in, test.in.IsIntra(), test.in.String())
		}
	}
}

func TestPixelLayoutString(t *testing.T) {
	want := map[PixelLayout]string{
		PixelLayoutI400: "mono",
		PixelLayoutI420: "420",
		PixelLayoutI422: "422",
		PixelLayoutI444: "444",
		PixelLayout(7):  "unknown",
	}
	for l, s := range want {
		if l.String() != s {
			t.Errorf("unexpected string for layout %d: got %s, want %s", l, l.String(), s)
		}
	}
}
