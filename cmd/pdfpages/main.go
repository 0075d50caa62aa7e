package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/joseph-ayodele/procurement-extractor/internal/common"
	"github.com/joseph-ayodele/procurement-extractor/internal/ingest"
	"github.com/joseph-ayodele/procurement-extractor/internal/ocr"
)

func main() {
	var (
		configPath = flag.String("config", "", "config file (yaml, toml or json)")
		root       = flag.String("root", "", "input root directory (overrides input.root)")
		districts  = flag.String("districts", "", "comma separated district names (default: all)")
	)
	flag.Parse()

	cfg, err := common.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if *root != "" {
		cfg.Input.Root = *root
	}
	logger, closeLog, err := common.NewLogger(common.LogConfig{Level: "warn", Format: cfg.Log.Format})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = closeLog() }()

	renderer := ocr.NewRenderer(cfg.Render.Scale, logger)
	defer renderer.Close()
	scanner := ingest.NewScanner(cfg.Input.Root, renderer, logger)

	all, err := scanner.Districts()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	var names []string
	for _, n := range strings.Split(*districts, ",") {
		if n = strings.TrimSpace(n); n != "" {
			names = append(names, n)
		}
	}
	selected := scanner.FilterDistricts(all, names)

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "DISTRICT\tROUND\tFOLDER\tPDFS\tPAGES")
	var totalPDFs, totalPages int
	for _, d := range selected {
		folders, err := scanner.RoundFolders(d)
		if err != nil {
			logger.Warn("ingest.rounds.error", "district", d, "error", err)
			continue
		}
		for _, f := range folders {
			inv, err := scanner.Inventory(f.Dir, 0)
			if err != nil {
				logger.Warn("ingest.inventory.error", "dir", f.Dir, "error", err)
				continue
			}
			totalPDFs += inv.TotalPDFs
			totalPages += inv.TotalPages
			_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\n", d, f.Round, f.Name, inv.TotalPDFs, inv.TotalPages)
		}
	}
	_, _ = fmt.Fprintf(tw, "TOTAL\t\t\t%d\t%d\n", totalPDFs, totalPages)
	_ = tw.Flush()
}
