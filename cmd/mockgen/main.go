package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"cyclecast/cmd/mockgen/engine"
)

func main() {
	scenario := flag.String("scenario", "steady", "Scenario to generate: steady, volatile")
	cycles := flag.Int("cycles", 8, "Number of completed cycles to generate")
	outDir := flag.String("out", ".", "Data directory for the generated database")
	seed := flag.Int64("seed", 42, "Random seed")
	flag.Parse()

	cfg := engine.GeneratorConfig{
		Scenario: *scenario,
		Cycles:   *cycles,
		Seed:     *seed,
		Now:      time.Now(),
	}

	fmt.Printf("Generating scenario '%s' (%d cycles) into %s...\n", cfg.Scenario, cfg.Cycles, *outDir)

	ds := engine.Generate(cfg)
	if err := engine.Save(*outDir, ds); err != nil {
		fmt.Printf("Failed to save mock data: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Done: %d issues across %d cycles.\n", len(ds.Issues), len(ds.Cycles))
}
