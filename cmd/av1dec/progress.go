/*
DESCRIPTION
  progress.go provides decoding progress reporting for av1dec.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package main

import (
	"fmt"
	"time"

	"github.com/ausocean/av1/codec/av1/av1dec"
)

// progress counts decoded frames by type.
type progress struct {
	total   int // Expected number of frames, 0 if unknown.
	start   time.Time
	now     func() time.Time
	decoded int
	byType  [4]int
}

func newProgress(total int) *progress {
	return &progress{total: total, start: time.Now(), now: time.Now}
}

func (p *progress) add(f *av1dec.Frame) {
	p.decoded++
	if int(f.FrameType) < len(p.byType) {
		p.byType[f.FrameType]++
	}
}

// fps returns the decoding rate so far.
func (p *progress) fps() float64 {
	d := p.now().Sub(p.start).Seconds()
	if d <= 0 {
		return 0
	}
	return float64(p.decoded) / d
}

func (p *progress) String() string {
	if p.total == 0 {
		return fmt.Sprintf("decoded %d frames, %.3f fps", p.decoded, p.fps())
	}
	var eta float64
	if fps := p.fps(); fps > 0 && p.total > p.decoded {
		eta = float64(p.total-p.decoded) / fps
	}
	return fmt.Sprintf("decoded %d/%d frames, %.3f fps, est. time: %.0f s", p.decoded, p.total, p.fps(), eta)
}

// summary returns the number of frames of each type.
func (p *progress) summary() string {
	return fmt.Sprintf("Key: %6d, Inter: %6d, Intra_Only: %6d, Switch: %6d",
		p.byType[av1dec.FrameTypeKey], p.byType[av1dec.FrameTypeInter],
		p.byType[av1dec.FrameTypeIntra], p.byType[av1dec.FrameTypeSwitch])
}
