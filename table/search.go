package table

import (
	"fmt"
	"io"
	"math"
)

// depthMax bounds the neighbor expansion depth of the boundary search.
const depthMax = 2

// A Search derives a coding table from a histogram by hill climbing over
// the class boundary positions, minimizing the total encoded bit length:
// raw offset bits plus the class-index entropy with probabilities quantized
// to 10-bit fixed point. The search is a pure function of the histogram and
// configuration; equal scores never replace the incumbent, so the traversal
// order fixes the result.
type Search struct {
	// Bits is the symbol width of the alphabet.
	Bits uint8
	// Classes is the number of table classes; DefaultClasses when 0.
	Classes int
	// Trace, when non-nil, receives progress lines as the search improves.
	Trace io.Writer
}

// pte is a scratch boundary entry used during the search. The slice form
// has Classes+1 entries; the last is the sentinel holding the exclusive
// alphabet bound.
type pte struct {
	vmin  int
	off   uint8
	abits float64
	obits float64
	vcnt  uint64
}

// Optimize derives a coding table for hist over b-bit symbols with the
// given number of classes.
func Optimize(hist Hist, b uint8, classes int) (*Table, error) {
	s := &Search{Bits: b, Classes: classes}
	return s.Run(hist)
}

// Run searches for the class boundaries minimizing the encoded size of
// hist and returns the resulting table.
func (s *Search) Run(hist Hist) (*Table, error) {
	classes := s.Classes
	if classes == 0 {
		classes = DefaultClasses
	}
	size := 1 << s.Bits
	if len(hist) != size {
		return nil, fmt.Errorf("table.Search: histogram length %d; expected %d for %d-bit symbols", len(hist), size, s.Bits)
	}
	if classes < 1 || classes > size {
		return nil, fmt.Errorf("table.Search: %d classes over an alphabet of %d symbols", classes, size)
	}
	if hist.Total() == 0 {
		return nil, fmt.Errorf("table.Search: %w", ErrEmptyHist)
	}

	best := s.initTable(classes, size)
	score := s.encodedSize(hist, best)
	s.tracef("ENCODED: %.6f", score)
	for {
		prev := score
		trial := clonePt(best)
		s.try(hist, trial, &score, best, depthMax, -2)
		s.tracef("ENCODED: %.6f", score)
		if prev == 0 || score/prev > 0.99 {
			break
		}
	}
	// Rescore the winner so counts and offsets reflect its final shape.
	s.encodedSize(hist, best)
	s.traceFinal(best)
	return s.emit(hist, best), nil
}

// initTable returns the uniform partition the search starts from.
func (s *Search) initTable(classes, size int) []pte {
	pt := make([]pte, classes+1)
	vstep := size / classes
	for i := range pt {
		pt[i].vmin = i * vstep
	}
	setOffsets(pt)
	return pt
}

// setOffsets recomputes the offset length of every class from the current
// boundary positions.
func setOffsets(pt []pte) {
	for i := 0; i < len(pt)-1; i++ {
		pt[i].off = lg(pt[i+1].vmin - pt[i].vmin)
	}
}

// quantLog2 returns log2 of p after quantizing p to 10-bit fixed point, or
// 0 when the quantized probability underflows to zero. This mirrors the
// cost the codec actually pays at runtime.
func quantLog2(p float64) float64 {
	q := math.Round(p*ProbScale) / ProbScale
	if q == 0 {
		return 0
	}
	return math.Log2(q)
}

// encodedSize scores a candidate partition against hist: the raw offset
// bits of every symbol plus the quantized class-index entropy. Per-class
// counts and bit tallies are left on pt as a side effect.
func (s *Search) encodedSize(hist Hist, pt []pte) float64 {
	setOffsets(pt)
	var (
		ototal float64
		ptotal uint64
	)
	for i := 0; i < len(pt)-1; i++ {
		var cnt uint64
		for v := pt[i].vmin; v < pt[i+1].vmin; v++ {
			cnt += hist[v]
		}
		pt[i].vcnt = cnt
		pt[i].obits = float64(cnt) * float64(pt[i].off)
		ototal += pt[i].obits
		ptotal += cnt
	}
	var btotal float64
	for i := 0; i < len(pt)-1; i++ {
		p := float64(pt[i].vcnt) / float64(ptotal)
		l := quantLog2(p)
		btotal += float64(pt[i].vcnt) * l
		pt[i].abits = math.Round(-float64(pt[i].vcnt) * l)
	}
	return ototal - btotal
}

// try sweeps every eligible interior boundary of a copy of trialIn one step
// at a time, recursing while depth allows and otherwise scoring each
// candidate, adopting it into best on strict improvement. When around is
// non-negative only the boundaries adjacent to it are eligible; the top
// level passes around = -2, enabling all boundaries.
func (s *Search) try(hist Hist, trialIn []pte, score *float64, best []pte, depth, around int) {
	trial := clonePt(trialIn)
	for c := 1; c < len(trial)-1; c++ {
		if around >= 0 && abs(c-around) != 1 {
			continue
		}
		for trial[c].vmin > trial[c-1].vmin {
			trial[c].vmin--
			s.consider(hist, trial, score, best, depth, c)
		}
		for trial[c].vmin < trial[c+1].vmin {
			trial[c].vmin++
			s.consider(hist, trial, score, best, depth, c)
		}
	}
}

// consider recurses on the moved boundary or scores the candidate,
// replacing best only on strict improvement.
func (s *Search) consider(hist Hist, trial []pte, score *float64, best []pte, depth, c int) {
	if depth < depthMax {
		s.try(hist, trial, score, best, depth+1, c)
		return
	}
	if sc := s.encodedSize(hist, trial); sc < *score {
		copy(best, trial)
		*score = sc
		s.traceBest(best)
	}
}

// emit converts the winning partition into a coding table, deriving the
// cumulative probability bounds from the final class counts with the last
// bound pinned to ProbScale so the partition covers [0, ProbScale) exactly.
// Quantizing the cumulative sums can leave a low-mass class with an empty
// probability range, which the encoder could never code; every class with
// mass is therefore guaranteed at least one slot, reserved out of the
// classes that follow it.
func (s *Search) emit(hist Hist, pt []pte) *Table {
	total := hist.Total()
	classes := len(pt) - 1
	// massy[i] counts the classes at or after i that carry mass.
	massy := make([]int, classes+1)
	for i := classes - 1; i >= 0; i-- {
		massy[i] = massy[i+1]
		if pt[i].vcnt > 0 {
			massy[i]++
		}
	}
	t := &Table{Bits: s.Bits, Entries: make([]Entry, classes)}
	var (
		cum  uint64
		tlow uint32
	)
	for i := 0; i < classes; i++ {
		e := &t.Entries[i]
		e.VMin = pt[i].vmin
		e.VMax = pt[i+1].vmin - 1
		e.OL = pt[i].off
		e.Count = pt[i].vcnt
		e.P = float64(pt[i].vcnt) / float64(total)
		cum += pt[i].vcnt
		thigh := uint32(ProbScale)
		if i < classes-1 {
			thigh = uint32(math.Round(float64(cum) / float64(total) * ProbScale))
			if pt[i].vcnt > 0 && thigh < tlow+1 {
				thigh = tlow + 1
			}
			if thigh < tlow {
				thigh = tlow
			}
			if max := uint32(ProbScale - massy[i+1]); thigh > max {
				thigh = max
			}
		}
		e.TLow, e.THigh = tlow, thigh
		tlow = thigh
	}
	return t
}

func clonePt(pt []pte) []pte {
	out := make([]pte, len(pt))
	copy(out, pt)
	return out
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func (s *Search) tracef(format string, args ...interface{}) {
	if s.Trace != nil {
		fmt.Fprintf(s.Trace, format+"\n", args...)
	}
}

// traceBest prints the incumbent partition in the compact boundary form.
func (s *Search) traceBest(pt []pte) {
	if s.Trace == nil {
		return
	}
	fmt.Fprint(s.Trace, "PTBEST:")
	for i := range pt {
		fmt.Fprintf(s.Trace, " [%d, %d (%d)]", pt[i].vmin, pt[i].off, pt[i].vcnt)
	}
	fmt.Fprintln(s.Trace)
}

// traceFinal prints the per-class bit accounting of the winning partition.
func (s *Search) traceFinal(pt []pte) {
	if s.Trace == nil {
		return
	}
	var tbits float64
	for i := range pt {
		tbits += pt[i].abits + pt[i].obits
	}
	fmt.Fprintln(s.Trace, "PT_FINAL: vmin off abits obits vcnt")
	for i := range pt {
		fmt.Fprintf(s.Trace, "[%3d, %2d] : %10.0f %10.0f %10d\n", pt[i].vmin, pt[i].off, pt[i].abits, pt[i].obits, pt[i].vcnt)
	}
	fmt.Fprintf(s.Trace, "TOTAL: %.0f bits\n", tbits)
}
