package table_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/rano-dipa/atalanta/table"
)

// testTable returns a hand-built 4-class table over the 8-bit alphabet.
func testTable() *table.Table {
	return &table.Table{
		Bits: 8,
		Entries: []table.Entry{
			{VMin: 0, VMax: 0, OL: 0, TLow: 0, THigh: 512, P: 0.5},
			{VMin: 1, VMax: 8, OL: 3, TLow: 512, THigh: 768, P: 0.25},
			{VMin: 9, VMax: 127, OL: 7, TLow: 768, THigh: 1000, P: 0.2265625},
			{VMin: 128, VMax: 255, OL: 7, TLow: 1000, THigh: 1024, P: 0.0234375},
		},
	}
}

func TestValidate(t *testing.T) {
	if err := testTable().Validate(); err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}
}

func TestValidateInvalid(t *testing.T) {
	golden := []struct {
		name   string
		mutate func(tbl *table.Table)
	}{
		{"first class not at zero", func(tbl *table.Table) { tbl.Entries[0].VMin = 1 }},
		{"last class short of alphabet", func(tbl *table.Table) { tbl.Entries[3].VMax = 254 }},
		{"symbol gap", func(tbl *table.Table) { tbl.Entries[2].VMin = 10 }},
		{"wrong offset length", func(tbl *table.Table) { tbl.Entries[1].OL = 2 }},
		{"probability gap", func(tbl *table.Table) { tbl.Entries[2].TLow = 769 }},
		{"probability not pinned", func(tbl *table.Table) { tbl.Entries[3].THigh = 1023 }},
		{"inverted probability", func(tbl *table.Table) { tbl.Entries[1].THigh = 500 }},
		{"probability not from zero", func(tbl *table.Table) {
			tbl.Entries[0].TLow = 1
		}},
	}
	for _, g := range golden {
		tbl := testTable()
		g.mutate(tbl)
		if err := tbl.Validate(); err == nil {
			t.Errorf("%s: expected validation error, got none", g.name)
		}
	}
}

func TestClassOfSymbol(t *testing.T) {
	tbl := testTable()
	golden := []struct {
		s    int
		want int // class index
	}{
		{0, 0},
		{1, 1},
		{8, 1},
		{9, 2},
		{127, 2},
		{128, 3},
		{255, 3},
	}
	for _, g := range golden {
		e, err := tbl.ClassOfSymbol(g.s)
		if err != nil {
			t.Errorf("symbol %d: unexpected error: %v", g.s, err)
			continue
		}
		if e != tbl.Entry(g.want) {
			t.Errorf("symbol %d: class mismatch; expected entry %d, got [%d, %d]", g.s, g.want, e.VMin, e.VMax)
		}
	}
	for _, s := range []int{-1, 256, 1000} {
		if _, err := tbl.ClassOfSymbol(s); !errors.Is(err, table.ErrSymbolOutOfRange) {
			t.Errorf("symbol %d: error mismatch; expected ErrSymbolOutOfRange, got %v", s, err)
		}
	}
}

func TestClassOfScaled(t *testing.T) {
	tbl := testTable()
	golden := []struct {
		sv   uint32
		want int
	}{
		{0, 0},
		{511, 0},
		{512, 1},
		{767, 1},
		{768, 2},
		{999, 2},
		{1000, 3},
		{1023, 3},
	}
	for _, g := range golden {
		e, err := tbl.ClassOfScaled(g.sv)
		if err != nil {
			t.Errorf("scaled value %d: unexpected error: %v", g.sv, err)
			continue
		}
		if e != tbl.Entry(g.want) {
			t.Errorf("scaled value %d: class mismatch; expected entry %d, got [%d, %d)", g.sv, g.want, e.TLow, e.THigh)
		}
	}
	for _, sv := range []uint32{1024, 4096} {
		if _, err := tbl.ClassOfScaled(sv); !errors.Is(err, table.ErrRangeLookup) {
			t.Errorf("scaled value %d: error mismatch; expected ErrRangeLookup, got %v", sv, err)
		}
	}
}

func TestEntryWidth(t *testing.T) {
	tbl := testTable()
	want := []int{1, 8, 119, 128}
	for i, w := range want {
		if got := tbl.Entry(i).Width(); got != w {
			t.Errorf("class %d width mismatch; expected %d, got %d", i, w, got)
		}
	}
}

func TestCSVRoundTrip(t *testing.T) {
	tbl := testTable()
	buf := new(bytes.Buffer)
	if err := tbl.WriteCSV(buf); err != nil {
		t.Fatalf("error writing CSV: %v", err)
	}
	got, err := table.ParseCSV(buf, 8)
	if err != nil {
		t.Fatalf("error parsing CSV: %v", err)
	}
	if got.Bits != tbl.Bits || got.Classes() != tbl.Classes() {
		t.Fatalf("shape mismatch; expected %d classes of %d-bit symbols, got %d of %d", tbl.Classes(), tbl.Bits, got.Classes(), got.Bits)
	}
	for i := range tbl.Entries {
		want, have := tbl.Entries[i], got.Entries[i]
		// Count is not part of the interop form.
		want.Count = 0
		if have != want {
			t.Errorf("class %d mismatch; expected %+v, got %+v", i, want, have)
		}
	}
}

func TestParseCSVInvalid(t *testing.T) {
	golden := []struct {
		name string
		csv  string
	}{
		{"no rows", "v_min,v_max,OL,t_low,t_high,p\n"},
		{"short row", "0,255,8,0\n"},
		{"bad v_min", "x,255,8,0,1024,1\n"},
		{"bad table", "0,255,8,0,1000,1\n"}, // probability not pinned to 1024.
	}
	for _, g := range golden {
		if _, err := table.ParseCSV(bytes.NewReader([]byte(g.csv)), 8); err == nil {
			t.Errorf("%s: expected parse error, got none", g.name)
		}
	}
}
