/*
DESCRIPTION
  segment.go provides parsing of the segmentation_params syntax and the
  derivation of per-segment quantizer indices and lossless flags.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package av1dec

// SegmentationData holds the feature values of one segment.
type SegmentationData struct {
	DeltaQ    int
	DeltaLFYV int
	DeltaLFYH int
	DeltaLFU  int
	DeltaLFV  int

	// Ref is the reference frame of the segment, or -1 if the feature is
	// disabled.
	Ref      int
	Skip     bool
	GlobalMV bool
}

// SegmentationDataSet holds the feature values of every segment.
type SegmentationDataSet struct {
	D [MaxSegments]SegmentationData

	// Preskip is true if any segment uses the reference, skip or global
	// motion features.
	Preskip bool

	// LastActiveSegID is the highest segment id with an enabled feature, or
	// -1 if none.
	LastActiveSegID int
}

// SegmentationInfo holds the segmentation_params of a frame and the values
// derived from them.
type SegmentationInfo struct {
	Enabled    bool
	UpdateMap  bool
	Temporal   bool
	UpdateData bool
	Data       SegmentationDataSet

	// QIdx holds the effective base quantizer index of each segment.
	QIdx [MaxSegments]int

	// Lossless is true for segments coded losslessly.
	Lossless [MaxSegments]bool
}

// segFeatureMax is the clamp applied to signalled values of the five
// numeric features.
var segFeatureMax = [5]int{255, 63, 63, 63, 63}

// defaultSegmentationData returns a data set with all features disabled.
func defaultSegmentationData() SegmentationDataSet {
	var d SegmentationDataSet
	for i := range d.D {
		d.D[i].Ref = -1
	}
	d.LastActiveSegID = -1
	return d
}

// parseSegmentation parses segmentation_params. When the segment data is not
// updated it is inherited from the primary reference.
func (p *frameHeaderParser) parseSegmentation() error {
	br, hdr := p.br, p.hdr
	s := &hdr.Segmentation

	s.Enabled = br.ReadFlag()
	if !s.Enabled {
		s.Data = defaultSegmentationData()
		return nil
	}

	if hdr.PrimaryRefFrame == PrimaryRefNone {
		s.UpdateMap = true
		s.UpdateData = true
	} else {
		s.UpdateMap = br.ReadFlag()
		if s.UpdateMap {
			s.Temporal = br.ReadFlag()
		}
		s.UpdateData = br.ReadFlag()
	}

	if !s.UpdateData {
		ref, err := p.primaryRef()
		if err != nil {
			return err
		}
		s.Data = ref.Segmentation.Data
		return nil
	}

	s.Data = defaultSegmentationData()
	for i := range s.Data.D {
		seg := &s.Data.D[i]
		vals := [5]*int{&seg.DeltaQ, &seg.DeltaLFYV, &seg.DeltaLFYH, &seg.DeltaLFU, &seg.DeltaLFV}
		for j, v := range vals {
			if !br.ReadFlag() {
				continue
			}
			n := 6
			if j == 0 {
				n = 8
			}
			*v = clip(int(br.ReadSBits(n)), -segFeatureMax[j], segFeatureMax[j])
			s.Data.LastActiveSegID = i
		}
		if br.ReadFlag() {
			seg.Ref = int(br.ReadBits(3))
			s.Data.LastActiveSegID = i
			s.Data.Preskip = true
		}
		seg.Skip = br.ReadFlag()
		if seg.Skip {
			s.Data.LastActiveSegID = i
			s.Data.Preskip = true
		}
		seg.GlobalMV = br.ReadFlag()
		if seg.GlobalMV {
			s.Data.LastActiveSegID = i
			s.Data.Preskip = true
		}
	}
	return nil
}

// deriveLossless computes the per-segment quantizer indices and whether each
// segment, and the frame as a whole, is lossless.
func (p *frameHeaderParser) deriveLossless() {
	hdr := p.hdr
	q := &hdr.Quant
	s := &hdr.Segmentation

	noDelta := q.YDCDelta == 0 && q.UDCDelta == 0 && q.UACDelta == 0 &&
		q.VDCDelta == 0 && q.VACDelta == 0

	hdr.AllLossless = true
	for i := 0; i < MaxSegments; i++ {
		if s.Enabled {
			s.QIdx[i] = clipQIdx(q.YAC + s.Data.D[i].DeltaQ)
		} else {
			s.QIdx[i] = q.YAC
		}
		s.Lossless[i] = s.QIdx[i] == 0 && noDelta
		hdr.AllLossless = hdr.AllLossless && s.Lossless[i]
	}
}

func clip(v, lo, hi int) int {
	switch {
	case v < lo:
		return lo
	case v > hi:
		return hi
	}
	return v
}
