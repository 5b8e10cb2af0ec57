/*
DESCRIPTION
  seqhdr.go provides a SequenceHeader type and parsing of the
  sequence_header_obu syntax defined in section 5.5 of the AV1 specification.

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
	"github.com/pkg/errors"
)

// OperatingPoint describes one operating point of a coded sequence.
type OperatingPoint struct {
	// MajorLevel and MinorLevel make up the seq_level_idx of the point.
	MajorLevel, MinorLevel int

	// InitialDisplayDelay is the number of decoded frames to buffer before
	// display, defaulting to 10.
	InitialDisplayDelay int

	// IDC is the operating_point_idc. Bits 0 to 7 select temporal layers and
	// bits 8 to 11 select spatial layers. Zero means all layers.
	IDC uint16

	Tier                     bool
	DecoderModelParamPresent bool
	DisplayModelParamPresent bool
}

// OperatingParameterInfo holds the decoder model parameters of an operating
// point.
type OperatingParameterInfo struct {
	DecoderBufferDelay uint32
	EncoderBufferDelay uint32
	LowDelayMode       bool
}

// SequenceHeader describes a coded video sequence. A parsed SequenceHeader is
// never modified; sessions and frames share it by pointer.
type SequenceHeader struct {
	// Profile is the seq_profile, 0 to 2.
	Profile int

	// MaxWidth and MaxHeight are the largest frame dimensions used in the
	// sequence.
	MaxWidth, MaxHeight int

	Layout PixelLayout
	Pri    ColorPrimaries
	TRC    TransferCharacteristics
	Mtrx   MatrixCoefficients
	Chr    ChromaSamplePosition

	// HBD is the high bit depth index, 0, 1 or 2 for 8, 10 or 12 bits.
	HBD int

	// ColorRange is true for full swing samples.
	ColorRange bool

	NumOperatingPoints int
	OperatingPoints    [MaxOperatingPoints]OperatingPoint

	StillPicture              bool
	ReducedStillPictureHeader bool

	// Timing info.
	TimingInfoPresent    bool
	NumUnitsInTick       uint32
	TimeScale            uint32
	EqualPictureInterval bool
	NumTicksPerPicture   uint32

	// Decoder model info.
	DecoderModelInfoPresent         bool
	EncoderDecoderBufferDelayLength int
	NumUnitsInDecodingTick          uint32
	BufferRemovalDelayLength        int
	FramePresentationDelayLength    int

	DisplayModelInfoPresent bool

	// WidthNBits and HeightNBits are the field widths of frame sizes coded
	// in frame headers.
	WidthNBits, HeightNBits int

	FrameIDNumbersPresent bool
	DeltaFrameIDNBits     int
	FrameIDNBits          int

	// SB128 is true when superblocks are 128x128 rather than 64x64.
	SB128 bool

	FilterIntra        bool
	IntraEdgeFilter    bool
	InterIntra         bool
	MaskedCompound     bool
	WarpedMotion       bool
	DualFilter         bool
	OrderHint          bool
	JntComp            bool
	RefFrameMVs        bool
	ScreenContentTools AdaptiveBoolean
	ForceIntegerMV     AdaptiveBoolean
	OrderHintNBits     int
	SuperRes           bool
	CDEF               bool
	Restoration        bool

	// SSHor and SSVer are the chroma subsampling shifts.
	SSHor, SSVer int

	Monochrome              bool
	ColorDescriptionPresent bool
	SeparateUVDeltaQ        bool
	FilmGrainPresent        bool

	OperatingParameterInfo [MaxOperatingPoints]OperatingParameterInfo
}

// Equal returns true if h and o describe the same sequence. Every field is
// compared.
func (h *SequenceHeader) Equal(o *SequenceHeader) bool {
	if h == nil || o == nil {
		return h == o
	}
	return *h == *o
}

// BitDepth returns the sample bit depth of the sequence.
func (h *SequenceHeader) BitDepth() int {
	return 8 + 2*h.HBD
}

// ParseSequenceHeader parses a sequence header OBU payload, including its
// trailing bits.
func ParseSequenceHeader(payload []byte) (*SequenceHeader, error) {
	br := bits.NewBitReader(payload)
	h, err := parseSequenceHeader(br)
	if err != nil {
		return nil, err
	}
	if !br.TrailingBits() {
		return nil, invalidf("bad trailing bits in sequence header")
	}
	if br.Err() != nil {
		return nil, errors.Wrap(ErrInvalidData, "sequence header overrun")
	}
	return h, nil
}

// parseSequenceHeader parses the sequence_header_obu syntax from br, stopping
// before the trailing bits.
func parseSequenceHeader(br *bits.BitReader) (*SequenceHeader, error) {
	h := &SequenceHeader{}

	h.Profile = int(br.ReadBits(3))
	if h.Profile > 2 {
		return nil, invalidf("invalid sequence profile %d", h.Profile)
	}

	h.StillPicture = br.ReadFlag()
	h.ReducedStillPictureHeader = br.ReadFlag()
	if h.ReducedStillPictureHeader && !h.StillPicture {
		return nil, invalidf("reduced still picture header set without still picture")
	}

	if h.ReducedStillPictureHeader {
		h.NumOperatingPoints = 1
		op := &h.OperatingPoints[0]
		op.MajorLevel = 2 + int(br.ReadBits(3))
		op.MinorLevel = int(br.ReadBits(2))
		op.InitialDisplayDelay = 10
	} else {
		h.TimingInfoPresent = br.ReadFlag()
		if h.TimingInfoPresent {
			h.NumUnitsInTick = br.ReadBits(32)
			h.TimeScale = br.ReadBits(32)
			h.EqualPictureInterval = br.ReadFlag()
			if h.EqualPictureInterval {
				v := br.ReadUVLC()
				if v == 0xffffffff {
					return nil, invalidf("num_ticks_per_picture out of range")
				}
				h.NumTicksPerPicture = v + 1
			}

			h.DecoderModelInfoPresent = br.ReadFlag()
			if h.DecoderModelInfoPresent {
				h.EncoderDecoderBufferDelayLength = int(br.ReadBits(5)) + 1
				h.NumUnitsInDecodingTick = br.ReadBits(32)
				h.BufferRemovalDelayLength = int(br.ReadBits(5)) + 1
				h.FramePresentationDelayLength = int(br.ReadBits(5)) + 1
			}
		}

		h.DisplayModelInfoPresent = br.ReadFlag()
		h.NumOperatingPoints = int(br.ReadBits(5)) + 1
		for i := 0; i < h.NumOperatingPoints; i++ {
			op := &h.OperatingPoints[i]
			op.IDC = uint16(br.ReadBits(12))
			if op.IDC != 0 && (op.IDC&0xff == 0 || op.IDC&0xf00 == 0) {
				return nil, invalidf("operating point %d idc %#x selects no layers", i, op.IDC)
			}
			op.MajorLevel = 2 + int(br.ReadBits(3))
			op.MinorLevel = int(br.ReadBits(2))
			if op.MajorLevel > 3 {
				op.Tier = br.ReadFlag()
			}
			if h.DecoderModelInfoPresent {
				op.DecoderModelParamPresent = br.ReadFlag()
				if op.DecoderModelParamPresent {
					opi := &h.OperatingParameterInfo[i]
					n := h.EncoderDecoderBufferDelayLength
					opi.DecoderBufferDelay = br.ReadBits(n)
					opi.EncoderBufferDelay = br.ReadBits(n)
					opi.LowDelayMode = br.ReadFlag()
				}
			}
			if h.DisplayModelInfoPresent {
				op.DisplayModelParamPresent = br.ReadFlag()
			}
			op.InitialDisplayDelay = 10
			if op.DisplayModelParamPresent {
				op.InitialDisplayDelay = int(br.ReadBits(4)) + 1
			}
		}
	}

	h.WidthNBits = int(br.ReadBits(4)) + 1
	h.HeightNBits = int(br.ReadBits(4)) + 1
	h.MaxWidth = int(br.ReadBits(h.WidthNBits)) + 1
	h.MaxHeight = int(br.ReadBits(h.HeightNBits)) + 1

	if !h.ReducedStillPictureHeader {
		h.FrameIDNumbersPresent = br.ReadFlag()
		if h.FrameIDNumbersPresent {
			h.DeltaFrameIDNBits = int(br.ReadBits(4)) + 2
			h.FrameIDNBits = int(br.ReadBits(3)) + h.DeltaFrameIDNBits + 1
		}
	}

	h.SB128 = br.ReadFlag()
	h.FilterIntra = br.ReadFlag()
	h.IntraEdgeFilter = br.ReadFlag()

	if h.ReducedStillPictureHeader {
		h.ScreenContentTools = Adaptive
		h.ForceIntegerMV = Adaptive
	} else {
		h.InterIntra = br.ReadFlag()
		h.MaskedCompound = br.ReadFlag()
		h.WarpedMotion = br.ReadFlag()
		h.DualFilter = br.ReadFlag()
		h.OrderHint = br.ReadFlag()
		if h.OrderHint {
			h.JntComp = br.ReadFlag()
			h.RefFrameMVs = br.ReadFlag()
		}

		h.ScreenContentTools = readAdaptive(br)
		h.ForceIntegerMV = Adaptive
		if h.ScreenContentTools != Off {
			h.ForceIntegerMV = readAdaptive(br)
		}

		if h.OrderHint {
			h.OrderHintNBits = int(br.ReadBits(3)) + 1
		}
	}

	h.SuperRes = br.ReadFlag()
	h.CDEF = br.ReadFlag()
	h.Restoration = br.ReadFlag()

	err := h.parseColorConfig(br)
	if err != nil {
		return nil, err
	}

	h.FilmGrainPresent = br.ReadFlag()

	if br.Err() != nil {
		return nil, errors.Wrap(ErrInvalidData, "sequence header overrun")
	}
	return h, nil
}

// readAdaptive reads a choose flag followed, if the choice is not deferred to
// frame headers, by the fixed value.
func readAdaptive(br *bits.BitReader) AdaptiveBoolean {
	if br.ReadFlag() {
		return Adaptive
	}
	return AdaptiveBoolean(br.ReadBits(1))
}

// parseColorConfig parses the color_config syntax of section 5.5.2.
func (h *SequenceHeader) parseColorConfig(br *bits.BitReader) error {
	if br.ReadFlag() {
		h.HBD = 1
		if h.Profile == 2 && br.ReadFlag() {
			h.HBD = 2
		}
	}

	if h.Profile != 1 {
		h.Monochrome = br.ReadFlag()
	}

	h.ColorDescriptionPresent = br.ReadFlag()
	if h.ColorDescriptionPresent {
		h.Pri = ColorPrimaries(br.ReadBits(8))
		h.TRC = TransferCharacteristics(br.ReadBits(8))
		h.Mtrx = MatrixCoefficients(br.ReadBits(8))
	} else {
		h.Pri = ColorPriUnknown
		h.TRC = TRCUnknown
		h.Mtrx = MCUnknown
	}

	switch {
	case h.Monochrome:
		h.ColorRange = br.ReadFlag()
		h.Layout = PixelLayoutI400
		h.SSHor, h.SSVer = 1, 1
		h.Chr = ChrUnknown
		return nil

	case h.Pri == ColorPriBT709 && h.TRC == TRCSRGB && h.Mtrx == MCIdentity:
		h.Layout = PixelLayoutI444
		h.ColorRange = true
		if h.Profile != 1 && !(h.Profile == 2 && h.HBD == 2) {
			return invalidf("sRGB requires 4:4:4 support in profile %d", h.Profile)
		}

	default:
		h.ColorRange = br.ReadFlag()
		switch h.Profile {
		case 0:
			h.Layout = PixelLayoutI420
			h.SSHor, h.SSVer = 1, 1
		case 1:
			h.Layout = PixelLayoutI444
		case 2:
			if h.HBD == 2 {
				if br.ReadFlag() {
					h.SSHor = 1
					if br.ReadFlag() {
						h.SSVer = 1
					}
				}
			} else {
				h.SSHor = 1
			}
			switch {
			case h.SSHor == 0:
				h.Layout = PixelLayoutI444
			case h.SSVer == 1:
				h.Layout = PixelLayoutI420
			default:
				h.Layout = PixelLayoutI422
			}
		}
		if h.SSHor == 1 && h.SSVer == 1 {
			h.Chr = ChromaSamplePosition(br.ReadBits(2))
		}
		if h.Mtrx == MCIdentity && h.Layout != PixelLayoutI444 {
			return invalidf("identity matrix requires 4:4:4")
		}
	}

	h.SeparateUVDeltaQ = br.ReadFlag()
	return nil
}
