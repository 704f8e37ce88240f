// Command atalanta drives the offline compression pipeline: it derives
// per-stream coding tables from a corpus of quantized model values, encodes
// the corpus against them, decodes artifacts back for verification and
// reports compression accounting.
package main

import (
	"log"
	"os"

	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "atalanta",
		Usage: "table-driven arithmetic compression of quantized model streams",
		Commands: []*cli.Command{
			tableCommand,
			encodeCommand,
			decodeCommand,
			summaryCommand,
		},
	}
	if err := app.Run(os.Args); err != nil {
		log.Fatalf("%+v", err)
	}
}

var tableCommand = &cli.Command{
	Name:      "table",
	Usage:     "derive coding tables from a corpus CSV",
	ArgsUsage: "-input corpus.csv -out dir",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "input", Usage: "corpus CSV (model,layer,type,v0,v1,...)", Required: true},
		&cli.StringFlag{Name: "out", Usage: "directory receiving pt_<key>.csv tables", Required: true},
		&cli.IntFlag{Name: "classes", Usage: "number of table classes", Value: 16},
		&cli.BoolFlag{Name: "v", Usage: "trace the boundary search"},
	},
	Action: runTable,
}

var encodeCommand = &cli.Command{
	Name:      "encode",
	Usage:     "encode a corpus CSV against its coding tables",
	ArgsUsage: "-input corpus.csv -tables dir -out encoded.csv",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "input", Usage: "corpus CSV (model,layer,type,v0,v1,...)", Required: true},
		&cli.StringFlag{Name: "tables", Usage: "directory holding pt_<key>.csv tables", Required: true},
		&cli.StringFlag{Name: "out", Usage: "encoded artifact CSV", Required: true},
	},
	Action: runEncode,
}

var decodeCommand = &cli.Command{
	Name:      "decode",
	Usage:     "decode an artifact CSV back into byte streams",
	ArgsUsage: "-input encoded.csv -tables dir -out decoded.csv",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "input", Usage: "encoded artifact CSV", Required: true},
		&cli.StringFlag{Name: "tables", Usage: "directory holding pt_<key>.csv tables", Required: true},
		&cli.StringFlag{Name: "out", Usage: "decoded byte stream CSV", Required: true},
	},
	Action: runDecode,
}

var summaryCommand = &cli.Command{
	Name:      "summary",
	Usage:     "print compression accounting for an artifact CSV",
	ArgsUsage: "-input encoded.csv [-out summary.csv]",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "input", Usage: "encoded artifact CSV", Required: true},
		&cli.StringFlag{Name: "out", Usage: "also write the accounting as CSV"},
	},
	Action: runSummary,
}
