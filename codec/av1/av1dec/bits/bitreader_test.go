/*
DESCRIPTION
  bitreader_test.go provides testing for functionality defined in
  bitreader.go.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package bits

import (
	"math"
	"math/rand"
	"testing"
)

func TestReadBits(t *testing.T) {
	tests := []struct {
		in   []byte
		n    []int
		want []uint32
	}{
		{
			in:   []byte{0x8f, 0xe3},
			n:    []int{4, 2, 4, 6},
			want: []uint32{0x8, 0x3, 0xf, 0x23},
		},
		{
			in:   []byte{0x12, 0x34, 0x56, 0x78, 0x9a},
			n:    []int{32, 8},
			want: []uint32{0x12345678, 0x9a},
		},
		{
			in:   []byte{0xff},
			n:    []int{1, 1, 1, 5},
			want: []uint32{1, 1, 1, 0x1f},
		},
	}

	for i, test := range tests {
		br := NewBitReader(test.in)
		for j, n := range test.n {
			got := br.ReadBits(n)
			if got != test.want[j] {
				t.Errorf("did not get expected result for test %d read %d.\nGot: %#x\nWant: %#x\n", i, j, got, test.want[j])
			}
		}
		if err := br.Err(); err != nil {
			t.Errorf("did not expect error for test %d: %v", i, err)
		}
	}
}

// TestReadBitsConsistent checks that reading the same bits from a fresh
// reader at the same offset gives the same value, and that the position
// is the sum of the widths read.
func TestReadBitsConsistent(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	buf := make([]byte, 80)
	rng.Read(buf)

	br := NewBitReader(buf)
	var pos int
	for n := 1; n <= 32; n++ {
		got := br.ReadBits(n)

		fresh := NewBitReader(buf)
		for skip := pos; skip > 0; {
			w := skip
			if w > 32 {
				w = 32
			}
			fresh.ReadBits(w)
			skip -= w
		}
		if again := fresh.ReadBits(n); again != got {
			t.Errorf("inconsistent read of %d bits at %d: got %#x and %#x", n, pos, got, again)
		}

		pos += n
		if br.Pos() != pos {
			t.Errorf("unexpected position after reading %d bits, got: %d, want: %d", n, br.Pos(), pos)
		}
	}
}

func TestOverrunLatches(t *testing.T) {
	br := NewBitReader([]byte{0xa5})
	if got := br.ReadBits(8); got != 0xa5 {
		t.Fatalf("unexpected value, got: %#x, want: 0xa5", got)
	}
	if err := br.Err(); err != nil {
		t.Fatalf("did not expect error after reading exactly to end: %v", err)
	}
	if got := br.ReadBits(4); got != 0 {
		t.Errorf("expected zero padding past end, got: %#x", got)
	}
	if br.Err() == nil {
		t.Fatal("expected error after reading past end")
	}
	br.ReadBits(1)
	if br.Err() == nil {
		t.Error("expected error to remain latched")
	}
}

func TestReadSBits(t *testing.T) {
	tests := []struct {
		in   []byte
		n    int
		want int32
	}{
		{in: []byte{0xfc}, n: 6, want: -2}, // 1111 110
		{in: []byte{0x04}, n: 6, want: 2},  // 0000 010
		{in: []byte{0x80}, n: 0, want: -1}, // 1
		{in: []byte{0x80, 0x00}, n: 6, want: -64},
	}

	for i, test := range tests {
		got := NewBitReader(test.in).ReadSBits(test.n)
		if got != test.want {
			t.Errorf("did not get expected result for test %d, got: %d, want: %d", i, got, test.want)
		}
	}
}

func TestReadSU(t *testing.T) {
	tests := []struct {
		in   []byte
		n    int
		want int32
	}{
		{in: []byte{0xf0}, n: 4, want: -1},
		{in: []byte{0x70}, n: 4, want: 7},
		{in: []byte{0x80}, n: 4, want: -8},
	}

	for i, test := range tests {
		got := NewBitReader(test.in).ReadSU(test.n)
		if got != test.want {
			t.Errorf("did not get expected result for test %d, got: %d, want: %d", i, got, test.want)
		}
	}
}

func TestReadULEB128(t *testing.T) {
	tests := []struct {
		name    string
		in      []byte
		want    uint32
		wantErr bool
		wantPos int
	}{
		{name: "single byte", in: []byte{0x05}, want: 5, wantPos: 8},
		{name: "300", in: []byte{0xac, 0x02}, want: 300, wantPos: 16},
		{name: "max 32 bit", in: []byte{0xff, 0xff, 0xff, 0xff, 0x0f}, want: math.MaxUint32, wantPos: 40},
		{name: "padded zero groups", in: []byte{0x81, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x00}, want: 1, wantPos: 64},
		{name: "out of range fifth group", in: []byte{0xff, 0xff, 0xff, 0xff, 0x1f}, wantErr: true},
		{name: "eighth group continues", in: []byte{0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x00}, wantErr: true},
	}

	for _, test := range tests {
		br := NewBitReader(test.in)
		got := br.ReadULEB128()
		if test.wantErr {
			if br.Err() == nil {
				t.Errorf("expected error for %s", test.name)
			}
			continue
		}
		if br.Err() != nil {
			t.Errorf("did not expect error for %s: %v", test.name, br.Err())
		}
		if got != test.want {
			t.Errorf("unexpected value for %s, got: %d, want: %d", test.name, got, test.want)
		}
		if br.Pos() != test.wantPos {
			t.Errorf("unexpected position for %s, got: %d, want: %d", test.name, br.Pos(), test.wantPos)
		}
	}
}

func TestReadUniform(t *testing.T) {
	// ns(5): w = 3, m = 3. Values below 3 take 2 bits, the rest 3 bits.
	tests := []struct {
		in      string
		n       uint32
		want    uint32
		wantPos int
	}{
		{in: "00", n: 5, want: 0, wantPos: 2},
		{in: "10", n: 5, want: 2, wantPos: 2},
		{in: "110", n: 5, want: 3, wantPos: 3},
		{in: "111", n: 5, want: 4, wantPos: 3},
		{in: "", n: 1, want: 0, wantPos: 0},
		{in: "101", n: 8, want: 5, wantPos: 3},
	}

	for i, test := range tests {
		br := NewBitReader(binToSlice(test.in))
		got := br.ReadUniform(test.n)
		if got != test.want {
			t.Errorf("unexpected value for test %d, got: %d, want: %d", i, got, test.want)
		}
		if br.Pos() != test.wantPos {
			t.Errorf("unexpected position for test %d, got: %d, want: %d", i, br.Pos(), test.wantPos)
		}
	}
}

func TestReadLE(t *testing.T) {
	br := NewBitReader([]byte{0x34, 0x12, 0x01})
	if got := br.ReadLE(2); got != 0x1234 {
		t.Errorf("unexpected value, got: %#x, want: 0x1234", got)
	}

	br = NewBitReader([]byte{0xff, 0xff})
	br.ReadBits(3)
	br.ReadLE(1)
	if br.Err() == nil {
		t.Error("expected error for unaligned little-endian read")
	}
}

func TestReadUVLC(t *testing.T) {
	tests := []struct {
		in   string
		want uint32
	}{
		{in: "1", want: 0},
		{in: "010", want: 1},
		{in: "011", want: 2},
		{in: "00100", want: 3},
		{in: "0001000", want: 7},
	}

	for i, test := range tests {
		br := NewBitReader(binToSlice(test.in))
		if got := br.ReadUVLC(); got != test.want {
			t.Errorf("unexpected value for test %d, got: %d, want: %d", i, got, test.want)
		}
	}

	br := NewBitReader(make([]byte, 8))
	if got := br.ReadUVLC(); got != math.MaxUint32 || br.Err() == nil {
		t.Errorf("expected saturated value and error for long zero run, got: %d, err: %v", got, br.Err())
	}
}

func TestTrailingBits(t *testing.T) {
	br := NewBitReader([]byte{0xb0}) // 101 | 1 000
	br.ReadBits(3)
	if !br.TrailingBits() {
		t.Error("expected valid trailing bits")
	}
	if br.Pos() != 8 {
		t.Errorf("unexpected position, got: %d, want: 8", br.Pos())
	}

	br = NewBitReader([]byte{0xb1})
	br.ReadBits(3)
	if br.TrailingBits() {
		t.Error("expected invalid trailing bits")
	}
}

func TestByteAlignment(t *testing.T) {
	br := NewBitReader([]byte{0xff, 0x42})
	br.ReadBits(3)
	br.ByteAlignment()
	if !br.ByteAligned() || br.Pos() != 8 {
		t.Fatalf("expected byte alignment at position 8, got: %d", br.Pos())
	}
	br.ByteAlignment()
	if br.Pos() != 8 {
		t.Errorf("aligned reader should not move, got: %d", br.Pos())
	}
	if got := br.ReadBits(8); got != 0x42 {
		t.Errorf("unexpected value after alignment, got: %#x", got)
	}
}

// binToSlice converts a string of binary into a corresponding byte slice,
// e.g. "0100 0001 1000 1100" => {0x41,0x8c}. Spaces are ignored and the
// final byte is zero padded.
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
