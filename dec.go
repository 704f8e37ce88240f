package atalanta

import (
	"github.com/pkg/errors"

	"github.com/rano-dipa/atalanta/internal/bits"
	"github.com/rano-dipa/atalanta/table"
)

// A Decoder reconstructs symbols from the coded streams of a Code. It
// mirrors the encoder: a 16-bit window over the symbol bitstream is
// projected into the probability space to select the class of each symbol,
// and the paired offset streams supply the residual position within the
// class. Once the bitstream is exhausted the window shifts in zeros; the
// encoder finalization commits only as many bits as disambiguation needs,
// so decoding is terminated by the symbol count, never by the bit supply.
type Decoder struct {
	tbl  *table.Table
	code *Code
	// Range registers and bitstream window.
	low, high, value uint32
	sr               *bits.Reader
	// Index of the next symbol, addressing the offset streams.
	n int
}

// NewDecoder returns a decoder over the streams of c, seeded with the first
// 16 bits of the symbol bitstream. A code whose bitstream is empty cannot
// seed the window and yields ErrShortStream.
func NewDecoder(c *Code, tbl *table.Table) (*Decoder, error) {
	if c.SymbolBits.Len() == 0 {
		return nil, errors.Wrap(ErrShortStream, "atalanta.NewDecoder: empty symbol bitstream")
	}
	d := &Decoder{
		tbl:  tbl,
		code: c,
		low:  0x0000,
		high: 0xFFFF,
		sr:   bits.NewReader(c.SymbolBits),
	}
	for i := 0; i < 16; i++ {
		d.value = (d.value<<1 | uint32(d.sr.ReadBit())) & regMask
	}
	return d, nil
}

// ReadSymbol reconstructs the next symbol: it projects the window into the
// [0, ProbScale) probability space, selects the matching class, combines
// the class base with the symbol's offset from the paired streams, and
// renormalizes the range alongside the encoder.
func (d *Decoder) ReadSymbol() (byte, error) {
	r := int64(d.high) - int64(d.low) + 1
	sv := ((int64(d.value)-int64(d.low)+1)*table.ProbScale - 1) / r
	if sv < 0 || sv >= table.ProbScale {
		return 0, errors.Wrapf(table.ErrRangeLookup, "atalanta.Decoder.ReadSymbol: scaled value %d at symbol %d", sv, d.n)
	}
	ent, err := d.tbl.ClassOfScaled(uint32(sv))
	if err != nil {
		return 0, err
	}

	if d.n >= len(d.code.Offsets) || d.n >= len(d.code.OffsetLens) {
		return 0, errors.Wrapf(ErrShortStream, "atalanta.Decoder.ReadSymbol: offset streams exhausted at symbol %d", d.n)
	}
	offset, ol := d.code.Offsets[d.n], d.code.OffsetLens[d.n]
	if ol != ent.OL || int(offset) > ent.VMax-ent.VMin {
		return 0, errors.Wrapf(ErrOffsetTooLarge, "atalanta.Decoder.ReadSymbol: offset %d width %d against class [%d, %d] width %d", offset, ol, ent.VMin, ent.VMax, ent.OL)
	}
	s := byte(ent.VMin + int(offset))
	d.n++

	ur := uint64(r)
	d.high = d.low + uint32(ur*uint64(ent.THigh)>>table.ProbBits) - 1
	d.low = d.low + uint32(ur*uint64(ent.TLow)>>table.ProbBits)

	for {
		switch {
		case d.high < half:
			d.shift()
		case d.low >= half:
			d.shift()
		case d.low >= quart && d.high < quart3:
			d.low = (d.low << 1) & 0x7FFF
			d.high = (d.high<<1)&regMask | 0x8001
			d.value = (d.value<<1|uint32(d.sr.ReadBit()))&regMask ^ half
		default:
			return s, nil
		}
	}
}

// shift moves the range registers left one bit and pulls the next
// bitstream bit into the window.
func (d *Decoder) shift() {
	d.low = (d.low << 1) & regMask
	d.high = (d.high<<1 | 1) & regMask
	d.value = (d.value<<1 | uint32(d.sr.ReadBit())) & regMask
}

// Decode reconstructs the first n symbols of the stream coded in c. The
// caller carries n alongside the streams; with n == 0 no bits are read and
// an empty sequence is returned.
func Decode(c *Code, tbl *table.Table, n int) ([]byte, error) {
	if n == 0 {
		return []byte{}, nil
	}
	d, err := NewDecoder(c, tbl)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, n)
	for i := 0; i < n; i++ {
		s, err := d.ReadSymbol()
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}
