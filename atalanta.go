// Package atalanta implements a table-driven arithmetic codec for
// byte-valued streams, such as quantized neural network weights and
// activations. Symbols are grouped into the classes of a coding table (see
// package table); the encoder range-codes the class index of each symbol
// into a bitstream and stores the residual position within the class as a
// fixed-width offset in a parallel stream. The coding table is derived per
// corpus from an empirical histogram by table.Optimize.
//
// The codec is strictly lossless and purely computational: encoders and
// decoders are per-stream, share no state and perform no I/O. Decoding is
// length-driven; the original symbol count is carried alongside the coded
// streams.
package atalanta

import (
	"github.com/rano-dipa/atalanta/internal/bits"
)

// A Code holds the three parallel streams produced by the encoder: the
// range-coded class-index bits, and the per-symbol in-class offsets with
// their bit widths. Offsets and OffsetLens hold one entry per input symbol.
type Code struct {
	// SymbolBits is the range-coded class-index bitstream.
	SymbolBits bits.Vector
	// Offsets holds the in-class offset of each symbol.
	Offsets []uint32
	// OffsetLens holds the bit width of each offset.
	OffsetLens []uint8
}

// CompressedBits returns the coded size in bits: the symbol bitstream plus
// the raw offset bits.
func (c *Code) CompressedBits() int {
	n := c.SymbolBits.Len()
	for _, ol := range c.OffsetLens {
		n += int(ol)
	}
	return n
}

// Ratio returns the compression ratio achieved against an n-byte input.
func (c *Code) Ratio(n int) float64 {
	cb := c.CompressedBits()
	if cb == 0 {
		return 0
	}
	return float64(8*n) / float64(cb)
}

// Equal reports whether c and d hold identical streams.
func (c *Code) Equal(d *Code) bool {
	if !c.SymbolBits.Equal(d.SymbolBits) {
		return false
	}
	if len(c.Offsets) != len(d.Offsets) || len(c.OffsetLens) != len(d.OffsetLens) {
		return false
	}
	for i := range c.Offsets {
		if c.Offsets[i] != d.Offsets[i] {
			return false
		}
	}
	for i := range c.OffsetLens {
		if c.OffsetLens[i] != d.OffsetLens[i] {
			return false
		}
	}
	return true
}

// A Stream is the per-layer artifact produced by the offline pipeline: the
// coded streams for one byte stream of a quantized model, together with the
// metadata identifying it and the original length required to terminate
// decoding.
type Stream struct {
	// Model, Layer and Type identify the source byte stream and key its
	// coding table.
	Model string
	Layer string
	Type  string
	// N is the original symbol count; decoding is length-driven.
	N int
	// Code holds the coded streams.
	Code *Code
}

// Key returns the identifier under which the stream's coding table is
// stored by the pipeline.
func (s *Stream) Key() string {
	return s.Model + "_" + s.Layer + "_" + s.Type
}

// Ratio returns the compression ratio of the stream.
func (s *Stream) Ratio() float64 {
	return s.Code.Ratio(s.N)
}
