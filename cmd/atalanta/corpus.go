package main

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pkg/errors"

	"github.com/rano-dipa/atalanta/table"
)

// A corpusRow is one byte stream of the corpus: a model/layer/type key and
// the raw float values to quantize.
type corpusRow struct {
	model, layer, typ string
	values            []float64
}

// key returns the identifier under which the row's coding table is stored.
func (r *corpusRow) key() string {
	return r.model + "_" + r.layer + "_" + r.typ
}

// readCorpus reads a corpus CSV: a header row followed by rows of the form
// model,layer,type,v0,v1,...
func readCorpus(path string) ([]corpusRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if len(records) < 1 {
		return nil, errors.Errorf("corpus %q is empty", path)
	}
	// Skip the header row.
	records = records[1:]

	rows := make([]corpusRow, 0, len(records))
	for i, record := range records {
		if len(record) < 3 {
			return nil, errors.Errorf("corpus %q: row %d has %d columns; expected at least 3", path, i, len(record))
		}
		row := corpusRow{
			model:  record[0],
			layer:  record[1],
			typ:    record[2],
			values: make([]float64, 0, len(record)-3),
		}
		for _, field := range record[3:] {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, errors.Errorf("corpus %q: row %d: invalid value %q", path, i, field)
			}
			row.values = append(row.values, v)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// tablePath returns the location of the coding table for key within dir.
func tablePath(dir, key string) string {
	return filepath.Join(dir, "pt_"+key+".csv")
}

// loadTable reads and validates the coding table stored for key within dir.
func loadTable(dir, key string) (*table.Table, error) {
	f, err := os.Open(tablePath(dir, key))
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer f.Close()
	tbl, err := table.ParseCSV(f, 8)
	if err != nil {
		return nil, errors.Wrapf(err, "table for %q", key)
	}
	return tbl, nil
}
