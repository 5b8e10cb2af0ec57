/*
DESCRIPTION
  levels.go provides the enumerations and fixed lookup tables shared by the
  AV1 header parsers and the block level decode state.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package av1dec

import "fmt"

// Constants from section 3 of the AV1 specification.
const (
	MaxCDEFStrengths   = 8
	MaxOperatingPoints = 32
	MaxTileCols        = 64
	MaxTileRows        = 64
	MaxSegments        = 8
	NumRefFrames       = 8
	PrimaryRefNone     = 7
	RefsPerFrame       = 7
	TotalRefsPerFrame  = RefsPerFrame + 1
)

// OBUType is the type of an open bitstream unit.
type OBUType uint8

// OBU types as defined in section 6.2.2 of the AV1 specification.
const (
	OBUSeqHdr            OBUType = 1
	OBUTemporalDelimiter OBUType = 2
	OBUFrameHdr          OBUType = 3
	OBUTileGrp           OBUType = 4
	OBUMetadata          OBUType = 5
	OBUFrame             OBUType = 6
	OBURedundantFrameHdr OBUType = 7
	OBUTileList          OBUType = 8
	OBUPadding           OBUType = 15
)

func (t OBUType) String() string {
	switch t {
	case OBUSeqHdr:
		return "OBU_SEQ_HDR"
	case OBUTemporalDelimiter:
		return "OBU_TD"
	case OBUFrameHdr:
		return "OBU_FRAME_HDR"
	case OBUTileGrp:
		return "OBU_TILE_GRP"
	case OBUMetadata:
		return "OBU_METADATA"
	case OBUFrame:
		return "OBU_FRAME"
	case OBURedundantFrameHdr:
		return "OBU_REDUNDANT_FRAME_HDR"
	case OBUTileList:
		return "OBU_TILE_LIST"
	case OBUPadding:
		return "OBU_PADDING"
	default:
		return fmt.Sprintf("OBU_RESERVED(%d)", uint8(t))
	}
}

// FrameType is the coded frame type.
type FrameType uint8

const (
	FrameTypeKey FrameType = iota
	FrameTypeInter
	FrameTypeIntra
	FrameTypeSwitch
)

func (t FrameType) String() string {
	switch t {
	case FrameTypeKey:
		return "key"
	case FrameTypeInter:
		return "inter"
	case FrameTypeIntra:
		return "intra"
	case FrameTypeSwitch:
		return "switch"
	default:
		return "unknown"
	}
}

// IsIntra returns true for key and intra-only frames.
func (t FrameType) IsIntra() bool { return t&1 == 0 }

// PixelLayout is the chroma subsampling layout of a picture.
type PixelLayout uint8

const (
	PixelLayoutI400 PixelLayout = iota // Monochrome.
	PixelLayoutI420
	PixelLayoutI422
	PixelLayoutI444
)

func (l PixelLayout) String() string {
	switch l {
	case PixelLayoutI400:
		return "mono"
	case PixelLayoutI420:
		return "420"
	case PixelLayoutI422:
		return "422"
	case PixelLayoutI444:
		return "444"
	default:
		return "unknown"
	}
}

// AdaptiveBoolean is a sequence level tool setting that may be fixed on,
// fixed off, or left to each frame header.
type AdaptiveBoolean uint8

const (
	Off AdaptiveBoolean = iota
	On
	Adaptive
)

// FilterMode is a subpixel interpolation filter.
type FilterMode uint8

const (
	Filter8TapRegular FilterMode = iota
	Filter8TapSmooth
	Filter8TapSharp
	FilterBilinear // Also the number of switchable filters.
	FilterSwitchable
)

// NumSwitchableFilters is the number of filters selectable per block, and the
// sentinel used in block filter contexts.
const NumSwitchableFilters = FilterBilinear

// TxfmMode is the frame level transform size selection mode.
type TxfmMode uint8

const (
	Tx4x4Only TxfmMode = iota
	TxLargest
	TxSwitchable
)

// RestorationType is a loop restoration filter type.
type RestorationType uint8

const (
	RestorationNone RestorationType = iota
	RestorationSwitchable
	RestorationWiener
	RestorationSGRProj
)

// WarpedMotionType is the global motion model of a reference.
type WarpedMotionType uint8

const (
	WMTypeIdentity WarpedMotionType = iota
	WMTypeTranslation
	WMTypeRotZoom
	WMTypeAffine
)

// ColorPrimaries as defined in section 6.4.2 of the AV1 specification.
type ColorPrimaries uint8

const (
	ColorPriBT709   ColorPrimaries = 1
	ColorPriUnknown ColorPrimaries = 2
	ColorPriBT2020  ColorPrimaries = 9
)

// TransferCharacteristics as defined in section 6.4.2.
type TransferCharacteristics uint8

const (
	TRCBT709   TransferCharacteristics = 1
	TRCUnknown TransferCharacteristics = 2
	TRCSRGB    TransferCharacteristics = 13
)

// MatrixCoefficients as defined in section 6.4.2.
type MatrixCoefficients uint8

const (
	MCIdentity MatrixCoefficients = 0
	MCBT709    MatrixCoefficients = 1
	MCUnknown  MatrixCoefficients = 2
)

// ChromaSamplePosition as defined in section 6.4.2.
type ChromaSamplePosition uint8

const (
	ChrUnknown ChromaSamplePosition = iota
	ChrVertical
	ChrColocated
)

// TxfmSize is a square transform size.
type TxfmSize uint8

const (
	Tx4x4 TxfmSize = iota
	Tx8x8
	Tx16x16
	Tx32x32
	Tx64x64
	NumTxSizes
)

// RectTxfmSize is a square or rectangular transform size.
type RectTxfmSize uint8

const (
	RTx4x4 RectTxfmSize = iota
	RTx8x8
	RTx16x16
	RTx32x32
	RTx64x64
	RTx4x8
	RTx8x4
	RTx8x16
	RTx16x8
	RTx16x32
	RTx32x16
	RTx32x64
	RTx64x32
	RTx4x16
	RTx16x4
	RTx8x32
	RTx32x8
	RTx16x64
	RTx64x16
	NumRectTxSizes
)

// TxfmDimensions holds the size of a transform in 4 sample units, its log2
// size, and the square transforms bounding it.
type TxfmDimensions struct {
	W, H     uint8 // In 4 sample units.
	LW, LH   uint8 // log2 of W and H.
	Min, Max TxfmSize
}

// txfmDimensions is indexed by RectTxfmSize.
var txfmDimensions = [NumRectTxSizes]TxfmDimensions{
	RTx4x4:   {W: 1, H: 1, LW: 0, LH: 0, Min: Tx4x4, Max: Tx4x4},
	RTx8x8:   {W: 2, H: 2, LW: 1, LH: 1, Min: Tx8x8, Max: Tx8x8},
	RTx16x16: {W: 4, H: 4, LW: 2, LH: 2, Min: Tx16x16, Max: Tx16x16},
	RTx32x32: {W: 8, H: 8, LW: 3, LH: 3, Min: Tx32x32, Max: Tx32x32},
	RTx64x64: {W: 16, H: 16, LW: 4, LH: 4, Min: Tx64x64, Max: Tx64x64},
	RTx4x8:   {W: 1, H: 2, LW: 0, LH: 1, Min: Tx4x4, Max: Tx8x8},
	RTx8x4:   {W: 2, H: 1, LW: 1, LH: 0, Min: Tx4x4, Max: Tx8x8},
	RTx8x16:  {W: 2, H: 4, LW: 1, LH: 2, Min: Tx8x8, Max: Tx16x16},
	RTx16x8:  {W: 4, H: 2, LW: 2, LH: 1, Min: Tx8x8, Max: Tx16x16},
	RTx16x32: {W: 4, H: 8, LW: 2, LH: 3, Min: Tx16x16, Max: Tx32x32},
	RTx32x16: {W: 8, H: 4, LW: 3, LH: 2, Min: Tx16x16, Max: Tx32x32},
	RTx32x64: {W: 8, H: 16, LW: 3, LH: 4, Min: Tx32x32, Max: Tx64x64},
	RTx64x32: {W: 16, H: 8, LW: 4, LH: 3, Min: Tx32x32, Max: Tx64x64},
	RTx4x16:  {W: 1, H: 4, LW: 0, LH: 2, Min: Tx4x4, Max: Tx16x16},
	RTx16x4:  {W: 4, H: 1, LW: 2, LH: 0, Min: Tx4x4, Max: Tx16x16},
	RTx8x32:  {W: 2, H: 8, LW: 1, LH: 3, Min: Tx8x8, Max: Tx32x32},
	RTx32x8:  {W: 8, H: 2, LW: 3, LH: 1, Min: Tx8x8, Max: Tx32x32},
	RTx16x64: {W: 4, H: 16, LW: 2, LH: 4, Min: Tx16x16, Max: Tx64x64},
	RTx64x16: {W: 16, H: 4, LW: 4, LH: 2, Min: Tx16x16, Max: Tx64x64},
}

// Dimensions returns the dimensions of the transform size t. It is used by
// SuperblockDecoder implementations.
func (t RectTxfmSize) Dimensions() TxfmDimensions {
	return txfmDimensions[t]
}

// BlockLevel is a level of the partition tree.
type BlockLevel uint8

const (
	BL128x128 BlockLevel = iota
	BL64x64
	BL32x32
	BL16x16
	BL8x8
	NumBlockLevels
)

// Size4 returns the width of a square block at level l in 4 sample units.
func (l BlockLevel) Size4() int { return 32 >> l }

// BlockSize is a block size.
type BlockSize uint8

const (
	BS128x128 BlockSize = iota
	BS128x64
	BS64x128
	BS64x64
	BS64x32
	BS64x16
	BS32x64
	BS32x32
	BS32x16
	BS32x8
	BS16x64
	BS16x32
	BS16x16
	BS16x8
	BS16x4
	BS8x32
	BS8x16
	BS8x8
	BS8x4
	BS4x16
	BS4x8
	BS4x4
	NumBlockSizes
)

// blockDimensions holds width and height in 4 sample units followed by their
// log2, indexed by BlockSize.
var blockDimensions = [NumBlockSizes][4]uint8{
	BS128x128: {32, 32, 5, 5},
	BS128x64:  {32, 16, 5, 4},
	BS64x128:  {16, 32, 4, 5},
	BS64x64:   {16, 16, 4, 4},
	BS64x32:   {16, 8, 4, 3},
	BS64x16:   {16, 4, 4, 2},
	BS32x64:   {8, 16, 3, 4},
	BS32x32:   {8, 8, 3, 3},
	BS32x16:   {8, 4, 3, 2},
	BS32x8:    {8, 2, 3, 1},
	BS16x64:   {4, 16, 2, 4},
	BS16x32:   {4, 8, 2, 3},
	BS16x16:   {4, 4, 2, 2},
	BS16x8:    {4, 2, 2, 1},
	BS16x4:    {4, 1, 2, 0},
	BS8x32:    {2, 8, 1, 3},
	BS8x16:    {2, 4, 1, 2},
	BS8x8:     {2, 2, 1, 1},
	BS8x4:     {2, 1, 1, 0},
	BS4x16:    {1, 4, 0, 2},
	BS4x8:     {1, 2, 0, 1},
	BS4x4:     {1, 1, 0, 0},
}

// Size4 returns the width and height of b in 4 sample units. It is used by
// SuperblockDecoder implementations.
func (b BlockSize) Size4() (w, h int) {
	d := blockDimensions[b]
	return int(d[0]), int(d[1])
}

// IntraPredMode is a luma or chroma intra prediction mode.
type IntraPredMode uint8

const (
	DCPred IntraPredMode = iota
	VertPred
	HorPred
	DiagDownLeftPred
	DiagDownRightPred
	VertRightPred
	HorDownPred
	HorUpPred
	VertLeftPred
	SmoothPred
	SmoothVPred
	SmoothHPred
	PaethPred
	NumIntraPredModes
	CFLPred = NumIntraPredModes
)

// InterPredMode is a single reference inter prediction mode.
type InterPredMode uint8

const (
	NearestMV InterPredMode = iota
	NearMV
	GlobalMV
	NewMV
	NumInterPredModes
)
