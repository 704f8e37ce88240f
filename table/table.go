// Package table implements the Atalanta coding table: an ordered partition
// of the symbol alphabet into classes, each carrying a cumulative
// probability range in 10-bit fixed point and a fixed offset width for the
// residual in-class bits.
package table

import (
	"errors"
	"fmt"
	mathbits "math/bits"
)

// Fixed-point probability scale shared by the optimizer and the codec.
// Changing it is an incompatible protocol change.
const (
	ProbBits  = 10
	ProbScale = 1 << ProbBits
)

// DefaultClasses is the number of classes of the reference configuration.
const DefaultClasses = 16

var (
	// ErrSymbolOutOfRange is returned when a symbol lies outside the coded
	// alphabet.
	ErrSymbolOutOfRange = errors.New("symbol outside the coded alphabet")

	// ErrRangeLookup is returned when a scaled value matches no class
	// probability range; it indicates a bitstream/table mismatch.
	ErrRangeLookup = errors.New("scaled value matches no class range")

	// ErrEmptyHist is returned by the optimizer when the histogram carries
	// no mass.
	ErrEmptyHist = errors.New("histogram has no mass")
)

// An Entry describes one class of the coding table.
type Entry struct {
	// VMin and VMax bound the symbol values of the class, inclusive.
	VMin int
	VMax int
	// OL is the offset length: the number of raw bits needed to
	// distinguish symbols within the class. A singleton class has OL 0.
	OL uint8
	// TLow and THigh bound the cumulative class probability in 10-bit
	// fixed point; the class owns [TLow, THigh).
	TLow  uint32
	THigh uint32
	// P is the informational class probability.
	P float64
	// Count is the histogram mass the optimizer observed in the class.
	Count uint64
}

// Width returns the number of symbol values the class spans.
func (e Entry) Width() int {
	return e.VMax - e.VMin + 1
}

// A Table is an immutable coding table over the alphabet [0, 1<<Bits). It
// is shared by the encoder and decoder of a stream and never mutated after
// the optimizer emits it.
type Table struct {
	// Bits is the symbol width in bits.
	Bits uint8
	// Entries holds one entry per class, ordered by VMin.
	Entries []Entry
}

// Classes returns the number of classes.
func (t *Table) Classes() int {
	return len(t.Entries)
}

// AlphabetSize returns the number of symbol values the table covers.
func (t *Table) AlphabetSize() int {
	return 1 << t.Bits
}

// Entry returns the i'th class entry.
func (t *Table) Entry(i int) *Entry {
	return &t.Entries[i]
}

// ClassOfSymbol returns the unique entry whose symbol range contains s.
func (t *Table) ClassOfSymbol(s int) (*Entry, error) {
	if s < 0 || s >= t.AlphabetSize() {
		return nil, fmt.Errorf("table.ClassOfSymbol: symbol %d outside alphabet [0, %d): %w", s, t.AlphabetSize(), ErrSymbolOutOfRange)
	}
	for i := range t.Entries {
		e := &t.Entries[i]
		if e.VMin <= s && s <= e.VMax {
			return e, nil
		}
	}
	return nil, fmt.Errorf("table.ClassOfSymbol: symbol %d covered by no class: %w", s, ErrSymbolOutOfRange)
}

// ClassOfScaled returns the unique entry whose probability range contains
// the scaled value sv.
func (t *Table) ClassOfScaled(sv uint32) (*Entry, error) {
	if sv >= ProbScale {
		return nil, fmt.Errorf("table.ClassOfScaled: scaled value %d outside [0, %d): %w", sv, ProbScale, ErrRangeLookup)
	}
	for i := range t.Entries {
		e := &t.Entries[i]
		if e.TLow <= sv && sv < e.THigh {
			return e, nil
		}
	}
	return nil, fmt.Errorf("table.ClassOfScaled: scaled value %d matches no class: %w", sv, ErrRangeLookup)
}

// lg returns the number of bits needed to distinguish n values.
func lg(n int) uint8 {
	if n <= 1 {
		return 0
	}
	return uint8(mathbits.Len(uint(n - 1)))
}

// Validate checks the table invariants: classes tile the alphabet in
// increasing symbol order, offset lengths are derived from the class
// widths, and the probability ranges are contiguous, cover [0, ProbScale)
// and end pinned to ProbScale. A class may span zero symbols only when it
// carries zero probability; such classes match no symbol and no scaled
// value, so they are never selected by a well-formed input.
func (t *Table) Validate() error {
	if len(t.Entries) == 0 {
		return errors.New("table.Validate: no classes")
	}
	if t.Entries[0].VMin != 0 {
		return fmt.Errorf("table.Validate: first class starts at %d; expected 0", t.Entries[0].VMin)
	}
	if last := t.Entries[len(t.Entries)-1]; last.VMax != t.AlphabetSize()-1 {
		return fmt.Errorf("table.Validate: last class ends at %d; expected %d", last.VMax, t.AlphabetSize()-1)
	}
	if t.Entries[0].TLow != 0 {
		return fmt.Errorf("table.Validate: first class probability starts at %d; expected 0", t.Entries[0].TLow)
	}
	if last := t.Entries[len(t.Entries)-1]; last.THigh != ProbScale {
		return fmt.Errorf("table.Validate: last class probability ends at %d; expected %d", last.THigh, ProbScale)
	}
	for i := range t.Entries {
		e := &t.Entries[i]
		if e.VMax < e.VMin-1 {
			return fmt.Errorf("table.Validate: class %d has inverted symbol range [%d, %d]", i, e.VMin, e.VMax)
		}
		if e.VMax < e.VMin && e.TLow != e.THigh {
			return fmt.Errorf("table.Validate: class %d spans no symbols but carries probability [%d, %d)", i, e.TLow, e.THigh)
		}
		if want := lg(e.Width()); e.OL != want {
			return fmt.Errorf("table.Validate: class %d offset length %d; expected %d for width %d", i, e.OL, want, e.Width())
		}
		if e.THigh < e.TLow {
			return fmt.Errorf("table.Validate: class %d probability range [%d, %d) is inverted", i, e.TLow, e.THigh)
		}
		if i > 0 {
			prev := &t.Entries[i-1]
			if e.VMin != prev.VMax+1 {
				return fmt.Errorf("table.Validate: class %d starts at %d; expected %d", i, e.VMin, prev.VMax+1)
			}
			if e.TLow != prev.THigh {
				return fmt.Errorf("table.Validate: class %d probability starts at %d; expected %d", i, e.TLow, prev.THigh)
			}
		}
	}
	return nil
}
