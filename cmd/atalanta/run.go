package main

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/rano-dipa/atalanta"
	"github.com/rano-dipa/atalanta/internal/quant"
	"github.com/rano-dipa/atalanta/table"
)

// runTable derives a coding table for every corpus row and stores each as
// pt_<key>.csv in the output directory.
func runTable(ctx *cli.Context) error {
	rows, err := readCorpus(ctx.String("input"))
	if err != nil {
		return err
	}
	outDir := ctx.String("out")
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return errors.WithStack(err)
	}
	search := &table.Search{Bits: 8, Classes: ctx.Int("classes")}
	if ctx.Bool("v") {
		search.Trace = os.Stderr
	}
	for i := range rows {
		row := &rows[i]
		data := quant.Bytes(row.values)
		tbl, err := search.Run(table.HistOf(data))
		if err != nil {
			return errors.Wrapf(err, "stream %q", row.key())
		}
		f, err := os.Create(tablePath(outDir, row.key()))
		if err != nil {
			return errors.WithStack(err)
		}
		err = tbl.WriteCSV(f)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return errors.Wrapf(err, "stream %q", row.key())
		}
	}
	fmt.Printf("derived %d coding tables in %s\n", len(rows), outDir)
	return nil
}

// runEncode encodes every corpus row against its coding table and writes
// the coded streams as one artifact CSV.
func runEncode(ctx *cli.Context) error {
	rows, err := readCorpus(ctx.String("input"))
	if err != nil {
		return err
	}
	tableDir := ctx.String("tables")
	streams := make([]*atalanta.Stream, 0, len(rows))
	for i := range rows {
		row := &rows[i]
		tbl, err := loadTable(tableDir, row.key())
		if err != nil {
			return err
		}
		data := quant.Bytes(row.values)
		code, err := atalanta.Encode(data, tbl)
		if err != nil {
			return errors.Wrapf(err, "stream %q", row.key())
		}
		streams = append(streams, &atalanta.Stream{
			Model: row.model,
			Layer: row.layer,
			Type:  row.typ,
			N:     len(data),
			Code:  code,
		})
	}
	f, err := os.Create(ctx.String("out"))
	if err != nil {
		return errors.WithStack(err)
	}
	err = atalanta.WriteStreams(f, streams)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}
	fmt.Printf("encoded %d streams to %s\n", len(streams), ctx.String("out"))
	return nil
}

// runDecode reconstructs every artifact stream and writes the byte values
// as CSV rows of the form model,layer,type,b0,b1,...
func runDecode(ctx *cli.Context) error {
	f, err := os.Open(ctx.String("input"))
	if err != nil {
		return errors.WithStack(err)
	}
	streams, err := atalanta.ReadStreams(f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}
	tableDir := ctx.String("tables")

	out, err := os.Create(ctx.String("out"))
	if err != nil {
		return errors.WithStack(err)
	}
	defer out.Close()
	cw := csv.NewWriter(out)
	for _, s := range streams {
		tbl, err := loadTable(tableDir, s.Key())
		if err != nil {
			return err
		}
		data, err := atalanta.Decode(s.Code, tbl, s.N)
		if err != nil {
			return errors.Wrapf(err, "stream %q", s.Key())
		}
		record := make([]string, 0, 3+len(data))
		record = append(record, s.Model, s.Layer, s.Type)
		for _, b := range data {
			record = append(record, strconv.Itoa(int(b)))
		}
		if err := cw.Write(record); err != nil {
			return errors.WithStack(err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return errors.WithStack(err)
	}
	fmt.Printf("decoded %d streams to %s\n", len(streams), ctx.String("out"))
	return nil
}

// runSummary prints the compression accounting of an artifact CSV and
// optionally writes it as a summary CSV.
func runSummary(ctx *cli.Context) error {
	f, err := os.Open(ctx.String("input"))
	if err != nil {
		return errors.WithStack(err)
	}
	streams, err := atalanta.ReadStreams(f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}

	header := []string{"Model", "Layer", "Type", "N", "Symbol Bits", "Offset Bits", "Compressed Bits", "Ratio"}
	records := make([][]string, 0, len(streams))
	for _, s := range streams {
		symBits := s.Code.SymbolBits.Len()
		total := s.Code.CompressedBits()
		records = append(records, []string{
			s.Model,
			s.Layer,
			s.Type,
			strconv.Itoa(s.N),
			strconv.Itoa(symBits),
			strconv.Itoa(total - symBits),
			strconv.Itoa(total),
			strconv.FormatFloat(s.Ratio(), 'f', 3, 64),
		})
	}

	tw := tablewriter.NewWriter(os.Stdout)
	tw.SetHeader(header)
	tw.AppendBulk(records)
	tw.Render()

	if out := ctx.String("out"); out != "" {
		f, err := os.Create(out)
		if err != nil {
			return errors.WithStack(err)
		}
		cw := csv.NewWriter(f)
		err = cw.Write(header)
		for _, record := range records {
			if err == nil {
				err = cw.Write(record)
			}
		}
		cw.Flush()
		if err == nil {
			err = cw.Error()
		}
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return errors.WithStack(err)
		}
	}
	return nil
}
