// Command wav2atl demonstrates the codec on audio: it quantizes the PCM
// samples of a WAV file onto the byte alphabet, derives a coding table from
// their histogram, encodes the stream and verifies the round trip, writing
// the coding table and coded artifact beside the input.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/mewkiz/pkg/osutil"
	"github.com/mewkiz/pkg/pathutil"
	"github.com/pkg/errors"

	"github.com/rano-dipa/atalanta"
	"github.com/rano-dipa/atalanta/internal/quant"
	"github.com/rano-dipa/atalanta/table"
)

func main() {
	// Parse command line arguments.
	var (
		// force overwrite output files if already present.
		force bool
	)
	flag.BoolVar(&force, "f", false, "force overwrite")
	flag.Parse()
	for _, wavPath := range flag.Args() {
		if err := wav2atl(wavPath, force); err != nil {
			log.Fatalf("%+v", err)
		}
	}
}

func wav2atl(wavPath string, force bool) error {
	// Decode WAV samples.
	r, err := os.Open(wavPath)
	if err != nil {
		return errors.WithStack(err)
	}
	defer r.Close()
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return errors.Errorf("invalid WAV file %q", wavPath)
	}
	if err := dec.FwdToPCM(); err != nil {
		return errors.WithStack(err)
	}
	var values []float64
	buf := &audio.IntBuffer{Format: dec.Format(), Data: make([]int, 4096)}
	for {
		n, err := dec.PCMBuffer(buf)
		if err != nil {
			return errors.WithStack(err)
		}
		if n == 0 {
			break
		}
		for _, v := range buf.Data[:n] {
			values = append(values, float64(v))
		}
	}

	// Quantize the samples onto the byte alphabet.
	data := quant.Bytes(values)
	if len(data) == 0 {
		return errors.Errorf("WAV file %q holds no samples", wavPath)
	}

	tablePath := pathutil.TrimExt(wavPath) + ".pt.csv"
	atlPath := pathutil.TrimExt(wavPath) + ".atl.csv"
	if !force {
		for _, path := range []string{tablePath, atlPath} {
			if osutil.Exists(path) {
				return errors.Errorf("output file %q already present; use -f flag to force overwrite", path)
			}
		}
	}

	// Derive the coding table and encode.
	tbl, err := table.Optimize(table.HistOf(data), 8, table.DefaultClasses)
	if err != nil {
		return errors.WithStack(err)
	}
	code, err := atalanta.Encode(data, tbl)
	if err != nil {
		return errors.WithStack(err)
	}

	// Verify the round trip before writing anything.
	decoded, err := atalanta.Decode(code, tbl, len(data))
	if err != nil {
		return errors.WithStack(err)
	}
	if !bytes.Equal(decoded, data) {
		return errors.Errorf("round trip mismatch for %q", wavPath)
	}

	if err := writeTable(tablePath, tbl); err != nil {
		return err
	}
	stream := &atalanta.Stream{
		Model: pathutil.TrimExt(filepath.Base(wavPath)),
		Layer: "0",
		Type:  "pcm",
		N:     len(data),
		Code:  code,
	}
	if err := writeStream(atlPath, stream); err != nil {
		return err
	}

	fmt.Printf("%s: %d samples, %d coded bits, ratio %.3f\n", wavPath, len(data), code.CompressedBits(), code.Ratio(len(data)))
	return nil
}

func writeTable(path string, tbl *table.Table) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.WithStack(err)
	}
	err = tbl.WriteCSV(f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return errors.WithStack(err)
}

func writeStream(path string, stream *atalanta.Stream) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.WithStack(err)
	}
	err = atalanta.WriteStreams(f, []*atalanta.Stream{stream})
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return errors.WithStack(err)
}
