// Diagnostic tool for inspecting CBVS datasets
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/robert-malhotra/go-cbvs/cbvs"
	"github.com/robert-malhotra/go-cbvs/internal/config"
	"github.com/robert-malhotra/go-cbvs/internal/log"
	"github.com/robert-malhotra/go-cbvs/internal/storage"
	"github.com/robert-malhotra/go-cbvs/internal/superblock"
	"github.com/robert-malhotra/go-cbvs/posinfo"
	"github.com/robert-malhotra/go-cbvs/seis"
	"github.com/robert-malhotra/go-cbvs/survey"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type flags struct {
	configFile string
	envFile    string
	catalog    string
	traces     int
	samples    int
	inline     int
	lines      bool
}

func rootCmd() *cobra.Command {
	var f flags
	cmd := &cobra.Command{
		Use:   "diagnose <dataset>",
		Short: "Dump the header, geometry and traces of a CBVS dataset",
		Long: `diagnose opens a CBVS dataset, by path or by catalog id, and prints its
files, components, sampling and stored positions. With --traces it also
prints the first traces.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.OutOrStdout(), args[0], f)
		},
	}
	cmd.Flags().StringVar(&f.configFile, "config", "", "YAML config file")
	cmd.Flags().StringVar(&f.envFile, "env-file", "", ".env file")
	cmd.Flags().StringVar(&f.catalog, "catalog", "", "dataset catalog; the argument is then a dataset id")
	cmd.Flags().IntVarP(&f.traces, "traces", "n", 0, "number of traces to print")
	cmd.Flags().IntVar(&f.samples, "samples", 5, "samples printed per component")
	cmd.Flags().IntVar(&f.inline, "inline", 0, "print traces of this inline only")
	cmd.Flags().BoolVar(&f.lines, "lines", false, "print the segments of every line")
	return cmd
}

func run(w io.Writer, arg string, f flags) error {
	cfg, err := config.LoadConfig(f.configFile, f.envFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := cfg.Logger()
	if f.catalog == "" {
		f.catalog = cfg.Catalog
	}
	ds, err := resolve(arg, f.catalog)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "=== Analyzing %s ===\n\n", ds.Path)
	rm, err := storage.OpenDataset(ds.Path, logger)
	if err != nil {
		return fmt.Errorf("open dataset: %w", err)
	}
	dumpHeader(w, rm)
	dumpGeometry(w, rm.Geometry(), f.lines)
	_, crl := rm.Geometry().Ranges()
	if err := rm.Close(); err != nil {
		return err
	}

	if f.traces > 0 {
		var sel seis.Selection = seis.AllPositions{}
		if f.inline != 0 {
			sel = seis.NewRangeBox(posinfo.BinID{Inl: f.inline, Crl: crl[0]},
				posinfo.BinID{Inl: f.inline, Crl: crl[1]}, posinfo.BinID{Inl: 1, Crl: 1})
		}
		return dumpTraces(w, ds, sel, cfg, logger, f)
	}
	return nil
}

func resolve(arg, catalog string) (survey.Dataset, error) {
	if catalog == "" {
		return survey.Dataset{ID: arg, Path: arg}, nil
	}
	cat, err := survey.LoadCatalog(catalog)
	if err != nil {
		return survey.Dataset{}, err
	}
	return cat.Resolve(arg)
}

func dumpHeader(w io.Writer, rm *storage.ReadManager) {
	pre := rm.Preamble()
	info := rm.Info()
	fmt.Fprintf(w, "Preamble version: %d\n", pre.Version)
	fmt.Fprintf(w, "Byte order: %v\n", pre.ByteOrder)
	fmt.Fprintf(w, "Dataset id: %s\n", pre.DatasetID)
	fmt.Fprintf(w, "Files: %d\n", rm.Files())
	fmt.Fprintf(w, "Kind: %s\n", kind(pre))
	if !info.Brick.IsVertical() {
		fmt.Fprintln(w, "Layout: trace major")
	} else {
		fmt.Fprintf(w, "Layout: vertical bricks %s\n", info.Brick)
	}
	fmt.Fprintf(w, "Sampling: start %g step %g, %d samples\n", info.ZStart, info.ZStep, info.NrSamples)
	fmt.Fprintf(w, "Traces per position: %d\n", rm.TracesPerPos())
	if info.Transform != nil {
		fmt.Fprintf(w, "Transform: x=%v y=%v\n", info.Transform.X, info.Transform.Y)
	}
	if info.Text != "" {
		fmt.Fprintf(w, "Text: %q\n", info.Text)
	}
	fmt.Fprintf(w, "Components: %d\n", len(info.Components))
	for i, c := range info.Components {
		order := "little"
		if c.BigEndian {
			order = "big"
		}
		fmt.Fprintf(w, "  [%d] %q %v %s-endian role %v\n", i, c.Name, c.Kind, order, seis.Role(c.Role))
	}
	fmt.Fprintln(w)
}

func kind(pre *superblock.Preamble) string {
	var parts []string
	if pre.Has(superblock.Flag2D) {
		parts = append(parts, "2D")
	} else {
		parts = append(parts, "3D")
	}
	if pre.Has(superblock.FlagPrestack) {
		parts = append(parts, "pre-stack")
	}
	return strings.Join(parts, " ")
}

func dumpGeometry(w io.Writer, cd *posinfo.CubeData, lines bool) {
	inl, inlReg := cd.InlRange()
	crl, crlReg := cd.CrlRange()
	fmt.Fprintf(w, "Lines: %d\n", cd.Size())
	fmt.Fprintf(w, "Positions: %d\n", cd.TotalSize())
	fmt.Fprintf(w, "Inline range: %v regular=%v reversed=%v\n", inl, inlReg, cd.IsInlReversed())
	fmt.Fprintf(w, "Crossline range: %v regular=%v reversed=%v\n", crl, crlReg, cd.IsCrlReversed())
	if err := cd.Validate(); err != nil {
		fmt.Fprintf(w, "WARNING: %v\n", err)
	}
	if lines {
		for _, ld := range cd.Lines {
			fmt.Fprintf(w, "  %d: %v\n", ld.Line, ld.Segments)
		}
	}
	fmt.Fprintln(w)
}

func dumpTraces(w io.Writer, ds survey.Dataset, sel seis.Selection, cfg *config.Config, logger *log.Logger, f flags) error {
	copts, err := cfg.CodecOptions(logger)
	if err != nil {
		return err
	}
	sopts, err := cfg.SeisOptions(logger)
	if err != nil {
		return err
	}
	r, err := cbvs.OpenRead(ds, sel, copts, sopts...)
	if err != nil {
		return err
	}
	defer r.Close()

	comps := r.Components()
	for n := 0; n < f.traces; n++ {
		hdr, err := r.NextHeader()
		if errors.Is(err, seis.ErrEndOfData) {
			break
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "Trace %d at %v (%.2f, %.2f)", hdr.SeqNr, hdr.Pos, hdr.Coord.X, hdr.Coord.Y)
		if hdr.Filler {
			fmt.Fprint(w, " [filler]")
		}
		if hdr.Offset != 0 {
			fmt.Fprintf(w, " offset %g", hdr.Offset)
		}
		fmt.Fprintln(w)
		trc, err := r.ReadSamples()
		if err != nil {
			return err
		}
		for c, data := range trc.Data {
			fmt.Fprintf(w, "  %s: %v\n", comps[c].Name, data[:min(f.samples, len(data))])
		}
	}
	return nil
}
