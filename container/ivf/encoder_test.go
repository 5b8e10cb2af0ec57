/*
DESCRIPTION
  encoder_test.go provides testing for the IVF Encoder found in encoder.go.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package ivf

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	// Reduced still picture sequence header OBU for 16x16 video.
	seqOBU = []byte{0x0a, 0x06, 0x18, 0x0c, 0xff, 0xc0, 0x00, 0x80}

	tdOBU = []byte{0x12, 0x00}
)

// readAll opens an IVF stream from r and returns its details and frames.
func readAll(t *testing.T, r io.Reader) (VideoDetails, [][]byte) {
	t.Helper()
	d := NewDemuxer(r)
	details, err := d.Open()
	require.NoError(t, err)

	var frames [][]byte
	for i := int64(0); ; i++ {
		p, err := d.Read()
		if err == io.EOF {
			return details, frames
		}
		require.NoError(t, err)
		assert.Equal(t, i, p.PTS)
		frames = append(frames, p.Data)
	}
}

func TestEncoder(t *testing.T) {
	units := [][]byte{append(append([]byte{}, tdOBU...), seqOBU...), tdOBU, {}}

	var buf bytes.Buffer
	e := NewEncoder(&buf, Rational{Num: 1, Den: 25})
	for _, u := range units {
		n, err := e.Write(u)
		require.NoError(t, err)
		assert.Equal(t, len(u), n)
	}
	require.NoError(t, e.Close())

	details, frames := readAll(t, &buf)
	assert.Equal(t, VideoDetails{
		FourCC:   FourCCAV1,
		Width:    16,
		Height:   16,
		TimeBase: Rational{Num: 1, Den: 25},
	}, details)
	assert.Equal(t, units, frames)
}

func TestEncoderFrameCount(t *testing.T) {
	f, err := os.Create(filepath.Join(t.TempDir(), "out.ivf"))
	require.NoError(t, err)
	defer f.Close()

	e := NewEncoder(f, Rational{Num: 1, Den: 30})
	for i := 0; i < 3; i++ {
		_, err = e.Write(tdOBU)
		require.NoError(t, err)
	}
	require.NoError(t, e.Close())

	_, err = f.Seek(0, io.SeekStart)
	require.NoError(t, err)
	details, frames := readAll(t, f)
	assert.Equal(t, 3, details.NumFrames)
	assert.Equal(t, 0, details.Width)
	assert.Len(t, frames, 3)
}

func TestEncoderEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewEncoder(&buf, Rational{Num: 1, Den: 30}).Close())
	assert.Equal(t, FileHeaderSize, buf.Len())

	_, frames := readAll(t, &buf)
	assert.Empty(t, frames)
}

func TestSequenceSize(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		w, h int
	}{
		{name: "sequence header after delimiter", in: append(append([]byte{}, tdOBU...), seqOBU...), w: 16, h: 16},
		{name: "no sequence header", in: tdOBU},
		{name: "truncated OBU", in: []byte{0x0a, 0x06, 0x18}},
		{name: "bad sequence header", in: []byte{0x0a, 0x01, 0xe0}},
	}
	for _, test := range tests {
		w, h := sequenceSize(test.in)
		assert.Equal(t, test.w, w, test.name)
		assert.Equal(t, test.h, h, test.name)
	}
}
