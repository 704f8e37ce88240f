package atalanta

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/rano-dipa/atalanta/internal/bits"
)

// streamHeader is the artifact CSV column layout, one row per coded stream.
// The symbol bitstream is serialized as "<bit count>:<hex>"; the offset
// streams are space-separated integers.
var streamHeader = []string{"Model_Name", "Layer", "Type", "N", "Symbol_Stream", "Offset_Stream", "Offset_Length_Stream"}

// WriteStreams writes the coded stream artifacts in the pipeline CSV form.
func WriteStreams(w io.Writer, streams []*Stream) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(streamHeader); err != nil {
		return errors.WithStack(err)
	}
	for _, s := range streams {
		offsets := make([]string, len(s.Code.Offsets))
		for i, off := range s.Code.Offsets {
			offsets[i] = strconv.FormatUint(uint64(off), 10)
		}
		lens := make([]string, len(s.Code.OffsetLens))
		for i, ol := range s.Code.OffsetLens {
			lens[i] = strconv.Itoa(int(ol))
		}
		row := []string{
			s.Model,
			s.Layer,
			s.Type,
			strconv.Itoa(s.N),
			s.Code.SymbolBits.Hex(),
			strings.Join(offsets, " "),
			strings.Join(lens, " "),
		}
		if err := cw.Write(row); err != nil {
			return errors.WithStack(err)
		}
	}
	cw.Flush()
	return errors.WithStack(cw.Error())
}

// ReadStreams reads coded stream artifacts in the pipeline CSV form.
func ReadStreams(r io.Reader) ([]*Stream, error) {
	cr := csv.NewReader(r)
	records, err := cr.ReadAll()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if len(records) > 0 && records[0][0] == streamHeader[0] {
		records = records[1:]
	}
	streams := make([]*Stream, 0, len(records))
	for i, record := range records {
		if len(record) != len(streamHeader) {
			return nil, errors.Errorf("atalanta.ReadStreams: row %d has %d columns; expected %d", i, len(record), len(streamHeader))
		}
		n, err := strconv.Atoi(record[3])
		if err != nil || n < 0 {
			return nil, errors.Errorf("atalanta.ReadStreams: row %d: invalid symbol count %q", i, record[3])
		}
		sym, err := bits.ParseHex(record[4])
		if err != nil {
			return nil, errors.Wrapf(err, "atalanta.ReadStreams: row %d", i)
		}
		offsets, err := parseUint32s(record[5])
		if err != nil {
			return nil, errors.Wrapf(err, "atalanta.ReadStreams: row %d: offset stream", i)
		}
		lens, err := parseUint8s(record[6])
		if err != nil {
			return nil, errors.Wrapf(err, "atalanta.ReadStreams: row %d: offset length stream", i)
		}
		if len(offsets) != len(lens) {
			return nil, errors.Errorf("atalanta.ReadStreams: row %d: %d offsets against %d offset lengths", i, len(offsets), len(lens))
		}
		streams = append(streams, &Stream{
			Model: record[0],
			Layer: record[1],
			Type:  record[2],
			N:     n,
			Code:  &Code{SymbolBits: sym, Offsets: offsets, OffsetLens: lens},
		})
	}
	return streams, nil
}

func parseUint32s(s string) ([]uint32, error) {
	fields := strings.Fields(s)
	out := make([]uint32, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseUint(f, 10, 32)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		out[i] = uint32(v)
	}
	return out, nil
}

func parseUint8s(s string) ([]uint8, error) {
	fields := strings.Fields(s)
	out := make([]uint8, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseUint(f, 10, 8)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		out[i] = uint8(v)
	}
	return out, nil
}
