/*
DESCRIPTION
  lex.go provides a lexer splitting a low overhead AV1 OBU bytestream into
  temporal units.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package av1 provides an AV1 OBU bytestream lexer.
package av1

import (
	"io"
	"time"

	"github.com/pkg/errors"

	"github.com/ausocean/av1/codec/av1/av1dec"
	"github.com/ausocean/av1/codec/codecutil"
)

var noDelay = make(chan time.Time)

func init() {
	close(noDelay)
}

// maxLEB128Bytes is the longest size field accepted.
const maxLEB128Bytes = 8

var (
	ErrNoSizeField  = errors.New("OBU without size field in bytestream")
	ErrForbiddenBit = errors.New("OBU forbidden bit set")
	ErrBadSize      = errors.New("bad OBU size field")
)

// Scanner reads temporal units from a low overhead OBU bytestream. Each unit
// starts with a temporal delimiter OBU and every OBU must carry a size field.
type Scanner struct {
	c    *codecutil.ByteScanner
	next []byte // Temporal delimiter starting the next unit.
	pts  int64
}

// NewScanner returns a new Scanner reading from src.
func NewScanner(src io.Reader) *Scanner {
	return &Scanner{c: codecutil.NewByteScanner(src, make([]byte, 4<<10))} // Standard file buffer size.
}

// readOBU returns the next whole OBU and its type.
func (s *Scanner) readOBU() ([]byte, av1dec.OBUType, error) {
	h, err := s.c.ReadByte()
	if err != nil {
		return nil, 0, err
	}
	if h&0x80 != 0 {
		return nil, 0, ErrForbiddenBit
	}
	if h&0x02 == 0 {
		return nil, 0, ErrNoSizeField
	}
	typ := av1dec.OBUType(h>>3&0xf)

	obu := []byte{h}
	if h&0x04 != 0 {
		obu, err = s.c.ReadN(obu, 1)
		if err != nil {
			return nil, 0, unexpected(err)
		}
	}

	var size uint64
	for i := 0; ; i++ {
		if i == maxLEB128Bytes {
			return nil, 0, ErrBadSize
		}
		b, err := s.c.ReadByte()
		if err != nil {
			return nil, 0, unexpected(err)
		}
		obu = append(obu, b)
		size |= uint64(b&0x7f) << (7 * uint(i))
		if b&0x80 == 0 {
			break
		}
	}
	if size > 1<<31 {
		return nil, 0, errors.Wrapf(ErrBadSize, "size %d", size)
	}

	obu, err = s.c.ReadN(obu, int(size))
	if err != nil {
		return nil, 0, err
	}
	return obu, typ, nil
}

// Next returns the next temporal unit. io.EOF is returned at the end of the
// stream.
func (s *Scanner) Next() ([]byte, error) {
	tu := s.next
	s.next = nil
	for {
		obu, typ, err := s.readOBU()
		if err == io.EOF {
			if len(tu) == 0 {
				return nil, io.EOF
			}
			return tu, nil
		}
		if err != nil {
			return nil, errors.Wrapf(err, "bad OBU at offset %d", s.c.Consumed())
		}
		if typ == av1dec.OBUTemporalDelimiter && len(tu) != 0 {
			s.next = obu
			return tu, nil
		}
		tu = append(tu, obu...)
	}
}

// Read returns the next temporal unit as a packet. Timestamps count temporal
// units from 0.
func (s *Scanner) Read() (*av1dec.Packet, error) {
	tu, err := s.Next()
	if err != nil {
		return nil, err
	}
	p := &av1dec.Packet{Data: tu, PTS: s.pts}
	s.pts++
	return p, nil
}

// Lex lexes AV1 temporal units read from src into separate writes to dst with
// successive writes being performed not earlier than the specified delay.
func Lex(dst io.Writer, src io.Reader, delay time.Duration) error {
	var tick <-chan time.Time
	if delay == 0 {
		tick = noDelay
	} else {
		ticker := time.NewTicker(delay)
		defer ticker.Stop()
		tick = ticker.C
	}

	s := NewScanner(src)
	for {
		tu, err := s.Next()
		if err != nil {
			return err
		}
		<-tick
		_, err = dst.Write(tu)
		if err != nil {
			return err
		}
	}
}

func unexpected(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}
