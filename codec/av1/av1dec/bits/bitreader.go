/*
DESCRIPTION
  bitreader.go provides an MSB-first bit reader over an in-memory byte slice,
  with the descriptor readers used by the AV1 OBU syntax (f(n), su(n), ns(n),
  le(n), leb128() and uvlc()).

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package bits provides a bit reader implementation for reading AV1 syntax
// elements from a byte slice.
package bits

import (
	"math"

	"github.com/pkg/errors"
)

// ErrOverrun is returned by Err once a read has gone past the end of the
// source more than the zero padding allows, or a malformed variable length
// code was encountered.
var ErrOverrun = errors.New("bit reader overrun or malformed code")

// BitReader reads bits from a byte slice. Bits are kept left-justified in a
// 64 bit accumulator, which is only refilled when a read asks for more bits
// than are available. Reads beyond the end of the source return zero bits;
// once the source has been exhausted and a further refill is needed, the
// error flag latches and is never cleared.
type BitReader struct {
	buf   []byte
	off   int    // Byte offset of the next byte to load.
	state uint64 // Accumulator, valid bits are left-justified.
	bits  int    // Number of valid bits in state.
	eof   bool
	err   bool
}

// NewBitReader returns a new BitReader reading from buf.
func NewBitReader(buf []byte) *BitReader {
	return &BitReader{buf: buf}
}

func (br *BitReader) refill(n int) {
	var state uint64
	for n > br.bits {
		state <<= 8
		br.bits += 8
		if !br.eof {
			if br.off < len(br.buf) {
				state |= uint64(br.buf[br.off])
				br.off++
			}
		}
		if br.off >= len(br.buf) {
			br.err = br.err || br.eof
			br.eof = true
		}
	}
	br.state |= state << uint(64-br.bits)
}

// ReadBits returns the next n bits, with 1 <= n <= 32, in the least
// significant part of the result.
// For example, with a source as []byte{0x8f,0xe3} (1000 1111, 1110 0011), we
// would get the following results for consecutive reads with n values:
// n = 4, res = 0x8 (1000)
// n = 2, res = 0x3 (0011)
// n = 4, res = 0xf (1111)
// n = 6, res = 0x23 (0010 0011)
func (br *BitReader) ReadBits(n int) uint32 {
	if n <= 0 || n > 32 {
		panic("bits: invalid read width")
	}
	if n > br.bits {
		br.refill(n)
	}
	r := br.state >> uint(64-n)
	br.state <<= uint(n)
	br.bits -= n
	return uint32(r)
}

// ReadFlag reads a single bit and returns true if it was set.
func (br *BitReader) ReadFlag() bool {
	return br.ReadBits(1) == 1
}

// ReadSBits reads an (n+1)-bit field and sign extends it from bit n.
func (br *BitReader) ReadSBits(n int) int32 {
	shift := uint(31 - n)
	return int32(br.ReadBits(n+1)<<shift) >> shift
}

// ReadSU reads the su(n) descriptor, an n-bit two's complement value.
func (br *BitReader) ReadSU(n int) int32 {
	shift := uint(32 - n)
	return int32(br.ReadBits(n)<<shift) >> shift
}

// ReadULEB128 reads an unsigned LEB128 value. At most 8 groups are read, and
// bits beyond the 32 bit result range in the fifth group or any bits at all
// in later groups are treated as malformed and latch the error flag.
func (br *BitReader) ReadULEB128() uint32 {
	var val uint32
	for i := 0; ; i++ {
		more := br.ReadBits(1)
		bits := br.ReadBits(7)
		if i <= 3 || (i == 4 && bits < 1<<4) {
			val |= bits << uint(i*7)
		} else if bits != 0 {
			br.err = true
			return 0
		}
		if more == 0 {
			return val
		}
		if i == 7 {
			br.err = true
			return 0
		}
	}
}

// ReadUniform reads the ns(n) descriptor, a non-symmetric unsigned value in
// the range [0, n).
func (br *BitReader) ReadUniform(n uint32) uint32 {
	if n <= 1 {
		return 0
	}
	l := ulog2(n) + 1
	m := (uint32(1) << uint(l)) - n
	v := br.readBitsOrZero(l - 1)
	if v < m {
		return v
	}
	return (v << 1) - m + br.ReadBits(1)
}

// ReadLE reads an n byte little-endian value. The reader must be byte
// aligned.
func (br *BitReader) ReadLE(n int) uint32 {
	if !br.ByteAligned() {
		br.err = true
		return 0
	}
	var t uint32
	for i := 0; i < n; i++ {
		t |= br.ReadBits(8) << uint(i*8)
	}
	return t
}

// ReadUVLC reads the uvlc() descriptor. A run of 32 or more leading zeros
// yields math.MaxUint32 and latches the error flag.
func (br *BitReader) ReadUVLC() uint32 {
	var lz int
	for br.ReadBits(1) == 0 {
		lz++
		if lz >= 32 || br.err {
			br.err = true
			return math.MaxUint32
		}
	}
	return br.readBitsOrZero(lz) + (uint32(1) << uint(lz)) - 1
}

// TrailingBits consumes the trailing_one_bit and any zero bits that follow
// it up to the next byte boundary. It reports false if the stop bit was not
// set or any padding bit was non-zero.
func (br *BitReader) TrailingBits() bool {
	if br.ReadBits(1) != 1 {
		return false
	}
	ok := true
	for !br.ByteAligned() {
		if br.ReadBits(1) != 0 {
			ok = false
		}
	}
	return ok
}

// ByteAlignment consumes bits up to the next byte boundary.
func (br *BitReader) ByteAlignment() {
	if n := br.Pos() & 7; n != 0 {
		br.ReadBits(8 - n)
	}
}

// ByteAligned returns true if the reader position is at the start of a byte.
func (br *BitReader) ByteAligned() bool {
	return br.Pos()&7 == 0
}

// Pos returns the absolute bit position from the start of the source.
func (br *BitReader) Pos() int {
	return br.off*8 - br.bits
}

// BytePos returns the byte offset of the reader, rounded down.
func (br *BitReader) BytePos() int {
	return br.Pos() >> 3
}

// EOF returns true once the reader has loaded the last byte of the source.
func (br *BitReader) EOF() bool {
	return br.eof
}

// Err returns ErrOverrun if the error flag has latched, and nil otherwise.
func (br *BitReader) Err() error {
	if br.err {
		return ErrOverrun
	}
	return nil
}

func (br *BitReader) readBitsOrZero(n int) uint32 {
	if n == 0 {
		return 0
	}
	return br.ReadBits(n)
}

// ulog2 returns floor(log2(v)) for v > 0.
func ulog2(v uint32) int {
	var n int
	for v > 1 {
		v >>= 1
		n++
	}
	return n
}
