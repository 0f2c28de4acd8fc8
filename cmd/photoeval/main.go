package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"runtime"

	"github.com/forcepho-go/kernel/photkernel"
	"github.com/forcepho-go/kernel/photlog"
	"github.com/forcepho-go/kernel/photpatch"
)

func main() {
	var (
		workers = flag.Int("workers", runtime.GOMAXPROCS(0), "Number of pixel-level worker lanes per band")
		verbose = flag.Bool("verbose", false, "Enable verbose logging")
		version = flag.Bool("version", false, "Show version information")
	)
	flag.Parse()

	if *version {
		fmt.Println("photoeval - patch chi-square evaluator v1.0.0")
		fmt.Printf("Built with Go %s\n", runtime.Version())
		return
	}

	args := flag.Args()
	if len(args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] <patch.bin> <proposal.bin>\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(1)
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := photlog.New(os.Stderr, level)

	patchPath, proposalPath := args[0], args[1]

	patchData, err := os.ReadFile(patchPath)
	if err != nil {
		log.Fatalf("Failed to read patch file: %v", err)
	}
	var patch photpatch.Patch
	if err := patch.UnmarshalBinary(patchData); err != nil {
		log.Fatalf("Failed to decode patch: %v", err)
	}

	proposalData, err := os.ReadFile(proposalPath)
	if err != nil {
		log.Fatalf("Failed to read proposal file: %v", err)
	}
	proposal, err := decodeProposal(proposalData)
	if err != nil {
		log.Fatalf("Failed to decode proposal: %v", err)
	}

	logger.Debug("loaded patch",
		slog.Int("bands", patch.NBands),
		slog.Int("sources", patch.NSources),
		slog.Int("pixels", patch.NumPixels()))

	opts := photkernel.Options{Workers: *workers}
	responses := photkernel.EvaluateProposal(&patch, proposal, opts)

	for b, resp := range responses {
		fmt.Printf("band %d: chi2=%g\n", b, resp.Chi2)
		for si := range proposal {
			base := si * photpatch.NParams
			fmt.Printf("  source %d: dchi2/dparam = %v\n", si, resp.DChi2DParam[base:base+photpatch.NParams])
		}
	}
}

// decodeProposal reads a sequence of fixed-size Source records, the
// active-source analogue of Patch's own flat binary layout.
func decodeProposal(data []byte) ([]photpatch.Source, error) {
	recSize := photpatch.SourceRecordSize()
	if len(data)%recSize != 0 {
		return nil, fmt.Errorf("proposal file length %d is not a multiple of the source record size %d", len(data), recSize)
	}
	sources := make([]photpatch.Source, len(data)/recSize)
	for i := range sources {
		if err := sources[i].UnmarshalBinary(data[i*recSize : (i+1)*recSize]); err != nil {
			return nil, err
		}
	}
	return sources, nil
}
