package table

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// csvHeader is the interop column layout, one row per class. TLow and THigh
// are authoritative; p is informational.
var csvHeader = []string{"v_min", "v_max", "OL", "t_low", "t_high", "p"}

// WriteCSV writes the table in the interop CSV form, one row per class.
// The sentinel entry is implicit; its v_min is the alphabet size.
func (t *Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for i := range t.Entries {
		e := &t.Entries[i]
		row := []string{
			strconv.Itoa(e.VMin),
			strconv.Itoa(e.VMax),
			strconv.Itoa(int(e.OL)),
			strconv.FormatUint(uint64(e.TLow), 10),
			strconv.FormatUint(uint64(e.THigh), 10),
			strconv.FormatFloat(e.P, 'g', -1, 64),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ParseCSV reads a table in the interop CSV form for b-bit symbols and
// validates it.
func ParseCSV(r io.Reader, b uint8) (*Table, error) {
	cr := csv.NewReader(r)
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("table.ParseCSV: %v", err)
	}
	if len(records) > 0 && records[0][0] == csvHeader[0] {
		records = records[1:]
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("table.ParseCSV: no class rows")
	}
	t := &Table{Bits: b, Entries: make([]Entry, len(records))}
	for i, record := range records {
		if len(record) != len(csvHeader) {
			return nil, fmt.Errorf("table.ParseCSV: row %d has %d columns; expected %d", i, len(record), len(csvHeader))
		}
		e := &t.Entries[i]
		e.VMin, err = strconv.Atoi(record[0])
		if err != nil {
			return nil, fmt.Errorf("table.ParseCSV: row %d: invalid v_min %q", i, record[0])
		}
		e.VMax, err = strconv.Atoi(record[1])
		if err != nil {
			return nil, fmt.Errorf("table.ParseCSV: row %d: invalid v_max %q", i, record[1])
		}
		ol, err := strconv.ParseUint(record[2], 10, 8)
		if err != nil {
			return nil, fmt.Errorf("table.ParseCSV: row %d: invalid OL %q", i, record[2])
		}
		e.OL = uint8(ol)
		tlow, err := strconv.ParseUint(record[3], 10, 32)
		if err != nil {
			return nil, fmt.Errorf("table.ParseCSV: row %d: invalid t_low %q", i, record[3])
		}
		e.TLow = uint32(tlow)
		thigh, err := strconv.ParseUint(record[4], 10, 32)
		if err != nil {
			return nil, fmt.Errorf("table.ParseCSV: row %d: invalid t_high %q", i, record[4])
		}
		e.THigh = uint32(thigh)
		p, err := strconv.ParseFloat(record[5], 64)
		if err != nil {
			return nil, fmt.Errorf("table.ParseCSV: row %d: invalid p %q", i, record[5])
		}
		e.P = p
	}
	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("table.ParseCSV: %v", err)
	}
	return t, nil
}
