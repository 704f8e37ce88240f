package atalanta_test

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/rano-dipa/atalanta"
	"github.com/rano-dipa/atalanta/internal/bits"
	"github.com/rano-dipa/atalanta/table"
)

// roundTrip encodes data against tbl, decodes it back and fails the test on
// any mismatch.
func roundTrip(t *testing.T, data []byte, tbl *table.Table) {
	t.Helper()
	code, err := atalanta.Encode(data, tbl)
	if err != nil {
		t.Fatalf("error encoding: %v", err)
	}
	got, err := atalanta.Decode(code, tbl, len(data))
	if err != nil {
		t.Fatalf("error decoding: %v", err)
	}
	if len(got) != len(data) {
		t.Fatalf("length mismatch; expected %d, got %d", len(data), len(got))
	}
	for i := range got {
		if got[i] != data[i] {
			t.Fatalf("symbol %d mismatch; expected %d, got %d", i, data[i], got[i])
		}
	}
}

func TestRoundTripSmallest(t *testing.T) {
	// Histogram with one count of each of {0, 1, 2, 3}.
	h := table.HistOf([]byte{0, 1, 2, 3})
	tbl, err := table.Optimize(h, 8, 16)
	if err != nil {
		t.Fatalf("error optimizing table: %v", err)
	}
	roundTrip(t, []byte{0, 1, 2, 3}, tbl)
}

func TestRoundTripUniformInput(t *testing.T) {
	data := []byte{0, 0, 0, 0, 0, 0, 0, 0}
	tbl, err := table.Optimize(table.HistOf(data), 8, 16)
	if err != nil {
		t.Fatalf("error optimizing table: %v", err)
	}
	code, err := atalanta.Encode(data, tbl)
	if err != nil {
		t.Fatalf("error encoding: %v", err)
	}
	// One dominant class: nothing but finalization bits and zero-width
	// offsets, so the ratio clears 8 easily.
	if ratio := code.Ratio(len(data)); ratio <= 8 {
		t.Errorf("ratio mismatch; expected > 8, got %g", ratio)
	}
	got, err := atalanta.Decode(code, tbl, len(data))
	if err != nil {
		t.Fatalf("error decoding: %v", err)
	}
	if string(got) != string(data) {
		t.Errorf("round trip mismatch; expected %v, got %v", data, got)
	}
}

func TestRoundTripRamp(t *testing.T) {
	data := make([]byte, 256)
	for i := range data {
		data[i] = byte(i)
	}
	tbl, err := table.Optimize(table.HistOf(data), 8, 16)
	if err != nil {
		t.Fatalf("error optimizing table: %v", err)
	}
	code, err := atalanta.Encode(data, tbl)
	if err != nil {
		t.Fatalf("error encoding: %v", err)
	}
	// A uniform 8-bit alphabet is incompressible; the coded size is
	// bounded below by 8 bits per symbol.
	if code.CompressedBits() < 8*len(data) {
		t.Errorf("compressed size mismatch; expected >= %d bits, got %d", 8*len(data), code.CompressedBits())
	}
	got, err := atalanta.Decode(code, tbl, len(data))
	if err != nil {
		t.Fatalf("error decoding: %v", err)
	}
	if string(got) != string(data) {
		t.Errorf("round trip mismatch")
	}
}

func TestRoundTripSingleSymbol(t *testing.T) {
	roundTrip(t, []byte{42}, uniformTable())
}

func TestRoundTripNearUnderflow(t *testing.T) {
	// A table whose middle class straddles the 0x4000/0xC000 thresholds;
	// repeated picks of it drive the near-convergence renormalization.
	tbl := &table.Table{
		Bits: 8,
		Entries: []table.Entry{
			{VMin: 0, VMax: 85, OL: 7, TLow: 0, THigh: 340, P: 340.0 / 1024},
			{VMin: 86, VMax: 170, OL: 7, TLow: 340, THigh: 684, P: 344.0 / 1024},
			{VMin: 171, VMax: 255, OL: 7, TLow: 684, THigh: 1024, P: 340.0 / 1024},
		},
	}
	if err := tbl.Validate(); err != nil {
		t.Fatalf("invalid table: %v", err)
	}
	data := make([]byte, 0, 200)
	for i := 0; i < 64; i++ {
		data = append(data, 128)
	}
	for i := 0; i < 64; i++ {
		data = append(data, 128, byte(i%80), byte(200+i%50))
	}
	roundTrip(t, data, tbl)
}

func TestRoundTripRandom(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for trial := 0; trial < 20; trial++ {
		n := 1 + rng.Intn(2000)
		data := make([]byte, n)
		for i := range data {
			// Skewed alphabet to exercise uneven class probabilities.
			data[i] = byte(rng.Intn(1 << (1 + rng.Intn(8))))
		}
		tbl, err := table.Optimize(table.HistOf(data), 8, 16)
		if err != nil {
			t.Fatalf("trial %d: error optimizing table: %v", trial, err)
		}
		roundTrip(t, data, tbl)
	}
}

func TestDecodeZeroLength(t *testing.T) {
	// With n == 0 the decoder reads no bits, even from an empty code.
	got, err := atalanta.Decode(&atalanta.Code{}, uniformTable(), 0)
	if err != nil {
		t.Fatalf("error decoding: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("length mismatch; expected 0, got %d", len(got))
	}
}

func TestDecodeShortStream(t *testing.T) {
	// An empty symbol bitstream cannot seed the decoder window.
	if _, err := atalanta.Decode(&atalanta.Code{}, uniformTable(), 1); !errors.Is(err, atalanta.ErrShortStream) {
		t.Errorf("error mismatch; expected ErrShortStream, got %v", err)
	}
}

func TestDecodeCorruptOffsetLength(t *testing.T) {
	tbl := uniformTable()
	data := []byte{10, 20, 30}
	code, err := atalanta.Encode(data, tbl)
	if err != nil {
		t.Fatalf("error encoding: %v", err)
	}
	code.OffsetLens[1] = 7
	if _, err := atalanta.Decode(code, tbl, len(data)); !errors.Is(err, atalanta.ErrOffsetTooLarge) {
		t.Errorf("error mismatch; expected ErrOffsetTooLarge, got %v", err)
	}
}

func TestDecodeExhaustedOffsets(t *testing.T) {
	tbl := uniformTable()
	code, err := atalanta.Encode([]byte{1, 2, 3}, tbl)
	if err != nil {
		t.Fatalf("error encoding: %v", err)
	}
	// Asking for more symbols than the offset streams carry is a stream
	// mismatch.
	if _, err := atalanta.Decode(code, tbl, 10); err == nil {
		t.Errorf("expected error decoding past the offset streams, got none")
	}
}

func TestDecodeRangeLookupMismatch(t *testing.T) {
	// A table whose probability partition leaves the high end to an empty
	// class paired with a bitstream pointing there; build the mismatch by
	// decoding a stream of one-bits against a table that concentrates all
	// probability low.
	w := bits.NewWriter()
	for i := 0; i < 32; i++ {
		w.WriteBit(1)
	}
	v, err := w.Vector()
	if err != nil {
		t.Fatalf("error building vector: %v", err)
	}
	tbl := &table.Table{
		Bits: 8,
		Entries: []table.Entry{
			{VMin: 0, VMax: 254, OL: 8, TLow: 0, THigh: 512, P: 0.5},
			{VMin: 255, VMax: 255, OL: 0, TLow: 512, THigh: 512, P: 0},
			{VMin: 256, VMax: 255, OL: 0, TLow: 512, THigh: 1024, P: 0.5},
		},
	}
	code := &atalanta.Code{
		SymbolBits: v,
		Offsets:    []uint32{0, 0},
		OffsetLens: []uint8{8, 8},
	}
	// The window projects above every inhabited range: the zero-width
	// class at [512, 512) can never match, and the phantom third class
	// covers [512, 1024) with an empty symbol span, so the decoded offset
	// cannot be applied.
	if _, err := atalanta.Decode(code, tbl, 2); err == nil {
		t.Errorf("expected error decoding mismatched stream, got none")
	}
}
