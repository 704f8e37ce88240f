package atalanta

import (
	mathbits "math/bits"

	"github.com/pkg/errors"

	"github.com/rano-dipa/atalanta/internal/bits"
	"github.com/rano-dipa/atalanta/table"
)

// Range register bounds and renormalization thresholds of the 16-bit coder.
// Together with the 10-bit probability scale of package table these fix the
// wire format; changing any of them is an incompatible protocol change.
const (
	regMask = 0xFFFF
	half    = 0x8000
	quart   = 0x4000
	quart3  = 0xC000
)

// An Encoder arithmetic-codes byte symbols against a coding table. Each
// symbol narrows the 16-bit range [low, high] by the cumulative probability
// bounds of its class and appends the renormalization bits to the symbol
// bitstream; the in-class offset and its width go to the parallel offset
// streams. An encoder serves a single stream and is discarded after Flush.
type Encoder struct {
	tbl *table.Table
	// Range registers.
	low, high uint32
	// Pending underflow bits; their value is decided by the next resolved
	// MSB-agree renormalization.
	ubc int
	// Output streams.
	sw         *bits.Writer
	offsets    []uint32
	offsetLens []uint8
	// Number of symbols written.
	n int
}

// NewEncoder returns an encoder over tbl.
func NewEncoder(tbl *table.Table) *Encoder {
	return &Encoder{
		tbl:  tbl,
		low:  0x0000,
		high: 0xFFFF,
		sw:   bits.NewWriter(),
	}
}

// WriteSymbol codes one symbol: it appends the in-class offset to the
// offset streams, narrows the range by the class probability bounds and
// renormalizes, emitting bits until the range is active again.
func (e *Encoder) WriteSymbol(s byte) error {
	ent, err := e.tbl.ClassOfSymbol(int(s))
	if err != nil {
		return err
	}

	offset := uint32(int(s) - ent.VMin)
	if mathbits.Len32(offset) > int(ent.OL) {
		return errors.Wrapf(ErrOffsetTooLarge, "atalanta.Encoder.WriteSymbol: offset %d of symbol %d needs %d bits; class allots %d", offset, s, mathbits.Len32(offset), ent.OL)
	}
	e.offsets = append(e.offsets, offset)
	e.offsetLens = append(e.offsetLens, ent.OL)

	r := uint64(e.high - e.low + 1)
	e.high = e.low + uint32(r*uint64(ent.THigh)>>table.ProbBits) - 1
	e.low = e.low + uint32(r*uint64(ent.TLow)>>table.ProbBits)

	for {
		switch {
		case e.high < half:
			// MSB of low and high agree on 0.
			if err := e.emit(0); err != nil {
				return err
			}
			e.shift()
		case e.low >= half:
			// MSB of low and high agree on 1.
			if err := e.emit(1); err != nil {
				return err
			}
			e.shift()
		case e.low >= quart && e.high < quart3:
			// Near convergence; the eventual bit direction is unknown, so
			// track it and drop the second-most-significant bit.
			e.ubc++
			e.low = (e.low << 1) & 0x7FFF
			e.high = (e.high<<1)&regMask | 0x8001
		default:
			e.n++
			return nil
		}
	}
}

// shift moves both range registers left one bit, bringing in 0 to low and
// 1 to high.
func (e *Encoder) shift() {
	e.low = (e.low << 1) & regMask
	e.high = (e.high<<1 | 1) & regMask
}

// emit writes b followed by the pending underflow bits, which carry the
// opposite value.
func (e *Encoder) emit(b uint8) error {
	if err := e.sw.WriteBit(b); err != nil {
		return err
	}
	for ; e.ubc > 0; e.ubc-- {
		if err := e.sw.WriteBit(1 - b); err != nil {
			return err
		}
	}
	return nil
}

// Flush finalizes the symbol bitstream and returns the coded streams. After
// the last symbol it commits enough bits that any 16-bit value within
// [low, high] is disambiguated; an encoder that saw no symbols returns
// empty streams. The encoder must not be used after Flush.
func (e *Encoder) Flush() (*Code, error) {
	if e.n > 0 {
		e.ubc++
		b := uint8(0)
		if e.low >= quart {
			b = 1
		}
		if err := e.emit(b); err != nil {
			return nil, err
		}
	}
	v, err := e.sw.Vector()
	if err != nil {
		return nil, err
	}
	return &Code{SymbolBits: v, Offsets: e.offsets, OffsetLens: e.offsetLens}, nil
}

// Encode codes data against tbl and returns the output streams. The input
// is never mutated; an empty input yields empty streams.
func Encode(data []byte, tbl *table.Table) (*Code, error) {
	enc := NewEncoder(tbl)
	for _, b := range data {
		if err := enc.WriteSymbol(b); err != nil {
			return nil, err
		}
	}
	return enc.Flush()
}
