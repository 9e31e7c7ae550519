// Command relindexctl is a developer inspection tool, not part of the
// engine's external interface (spec.md section 6: "the core exposes no
// CLI"). It builds an in-memory index from a CSV of integer or string
// columns, prints its row count and descriptor, and reports searchCost
// per column — the same
// kind of ambient tooling the teacher ships as cmd/mysqldef and
// cmd/fix-tests. It never imports index/store/hashindex/valuepool as
// anything but a leaf consumer.
package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"

	"github.com/jessevdk/go-flags"
	"github.com/k0kubun/pp/v3"
	"golang.org/x/term"

	"github.com/relindex/relindex/index"
	"github.com/relindex/relindex/internal/config"
	"github.com/relindex/relindex/internal/rlog"
	"github.com/relindex/relindex/store"
	"github.com/relindex/relindex/store/memstore"
)

type options struct {
	File    string `short:"f" long:"file" description:"CSV file to index, rather than stdin" value-name:"csv_file"`
	Column  int    `short:"c" long:"column" description:"0-based column to build the index over" default:"0"`
	String  bool   `long:"string" description:"treat the indexed column as a string instead of an int64"`
	Config  string `long:"config" description:"YAML file with engine tunables (probe_depth, ...)"`
	NoColor bool   `long:"no-color" description:"disable colorized output even on a terminal"`
	Help    bool   `long:"help" description:"show this help"`
}

func parseOptions(args []string) (opts options, rest []string) {
	parser := flags.NewParser(&opts, flags.None)
	parser.Usage = "[options] [csv_file]"
	rest, err := parser.ParseArgs(args)
	if err != nil {
		log.Fatal(err)
	}
	if opts.Help {
		parser.WriteHelp(os.Stdout)
		os.Exit(0)
	}
	return opts, rest
}

func main() {
	rlog.Init()
	opts, rest := parseOptions(os.Args[1:])

	fileConfig, err := config.ParseFile(opts.Config)
	if err != nil {
		log.Fatal(err)
	}
	cfg := config.Merge(config.Default(), fileConfig)

	source := os.Stdin
	if opts.File != "" {
		f, err := os.Open(opts.File)
		if err != nil {
			log.Fatal(err)
		}
		defer f.Close()
		source = f
	} else if len(rest) > 0 {
		f, err := os.Open(rest[0])
		if err != nil {
			log.Fatal(err)
		}
		defer f.Close()
		source = f
	}

	values, err := readColumn(source, opts.Column, opts.String)
	if err != nil {
		log.Fatal(err)
	}

	st := memstore.New(1)
	colType := store.TypeInt64
	if opts.String {
		colType = store.TypeString
	}
	d, err := index.NewDescriptor(index.DescriptorConfig{
		Name:          fmt.Sprintf("col%d", opts.Column),
		ColumnIndexes: []int{0},
		ColumnTypes:   []store.ColumnType{colType},
		Descending:    []bool{false},
		NullsLast:     []bool{false},
	})
	if err != nil {
		log.Fatal(err)
	}
	tr := index.NewTree(d)
	for _, v := range values {
		row := st.NewRow([]any{v})
		if err := tr.Insert(st, nil, row); err != nil {
			log.Fatal(err)
		}
	}

	colorize := !opts.NoColor && term.IsTerminal(int(os.Stdout.Fd()))
	printer := pp.New()
	printer.SetColoringEnabled(colorize)

	fmt.Printf("rows: %d\n", tr.Size(st, nil))
	_, _ = printer.Println("descriptor:", d)

	costs := tr.SearchCost(st, nil, cfg.ProbeDepth)
	fmt.Printf("searchCost(probeDepth=%d): %v\n", cfg.ProbeDepth, costs)
}

// readColumn extracts column col from a headerless CSV, parsing each
// cell as int64 unless asString is set.
func readColumn(r io.Reader, col int, asString bool) ([]any, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	var out []any
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("relindexctl: read csv: %w", err)
		}
		if col >= len(record) {
			continue
		}
		cell := record[col]
		if asString {
			out = append(out, cell)
			continue
		}
		v, err := strconv.ParseInt(cell, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("relindexctl: parse %q as int64: %w", cell, err)
		}
		out = append(out, v)
	}
	return out, nil
}
