/*
DESCRIPTION
  bytescanner.go provides a buffered byte scanner used by the stream lexers
  to read length-prefixed units.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package codecutil provides utilities shared by the codec packages.
package codecutil

import "io"

// ByteScanner is a byte scanner.
type ByteScanner struct {
	buf []byte
	off int

	// n is the number of bytes consumed so far.
	n int64

	// r is the source of data for the scanner.
	r io.Reader
}

// NewByteScanner returns a scanner initialised with an io.Reader and a read buffer.
func NewByteScanner(r io.Reader, buf []byte) *ByteScanner {
	return &ByteScanner{r: r, buf: buf[:0]}
}

// ReadByte reads and returns the next byte.
func (c *ByteScanner) ReadByte() (byte, error) {
	if c.off >= len(c.buf) {
		err := c.reload()
		if err != nil {
			return 0, err
		}
	}
	b := c.buf[c.off]
	c.off++
	c.n++
	return b, nil
}

// ReadN appends the next n bytes to dst. If the source ends first, the bytes
// read are appended and io.ErrUnexpectedEOF is returned.
func (c *ByteScanner) ReadN(dst []byte, n int) ([]byte, error) {
	for n > 0 {
		if c.off >= len(c.buf) {
			err := c.reload()
			if err == io.EOF {
				return dst, io.ErrUnexpectedEOF
			}
			if err != nil {
				return dst, err
			}
		}
		m := min(n, len(c.buf)-c.off)
		dst = append(dst, c.buf[c.off:c.off+m]...)
		c.off += m
		c.n += int64(m)
		n -= m
	}
	return dst, nil
}

// Consumed returns the number of bytes read from the scanner.
func (c *ByteScanner) Consumed() int64 {
	return c.n
}

// maxEmptyReads is the number of successive empty reads after which reload
// gives up with io.ErrNoProgress.
const maxEmptyReads = 100

// reload re-fills the scanner's buffer. Data read along with an error is
// kept and the error reported by the next reload.
func (c *ByteScanner) reload() error {
	for i := 0; i < maxEmptyReads; i++ {
		n, err := c.r.Read(c.buf[:cap(c.buf)])
		c.buf = c.buf[:n]
		c.off = 0
		if n > 0 {
			return nil
		}
		if err != nil {
			return err
		}
	}
	return io.ErrNoProgress
}
