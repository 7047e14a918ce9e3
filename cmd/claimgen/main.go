// Harrier - Claims fraud screening that deploys in 60 seconds.
// Copyright (c) 2025 opensource.insurance
// Licensed under the Apache License 2.0

// claimgen produces a labeled synthetic claims dataset for model
// development. Output is deterministic for a given seed.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/opensource-insurance/harrier/internal/synthetic"
)

func main() {
	var (
		samples = flag.Int("samples", 3000, "claims to generate per line of business")
		start   = flag.String("start", "2020-01-01", "earliest claim date (YYYY-MM-DD)")
		end     = flag.String("end", "2025-09-15", "latest claim date (YYYY-MM-DD)")
		seed    = flag.Int64("seed", 42, "random seed")
		out     = flag.String("out", "claims_dataset.csv", "output CSV path")
	)
	flag.Parse()

	startDate, err := time.Parse("2006-01-02", *start)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid -start date: %v\n", err)
		os.Exit(1)
	}
	endDate, err := time.Parse("2006-01-02", *end)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid -end date: %v\n", err)
		os.Exit(1)
	}

	cfg := synthetic.Config{
		SamplesPerType: *samples,
		StartDate:      startDate,
		EndDate:        endDate,
		Seed:           *seed,
	}

	began := time.Now()
	rows, err := synthetic.NewGenerator(cfg).Generate()
	if err != nil {
		fmt.Fprintf(os.Stderr, "generation failed: %v\n", err)
		os.Exit(1)
	}

	if err := synthetic.WriteCSV(*out, rows); err != nil {
		fmt.Fprintf(os.Stderr, "write failed: %v\n", err)
		os.Exit(1)
	}

	fraud := 0
	byLine := map[string]int{}
	for _, row := range rows {
		byLine[row.PolicyType]++
		if row.IsFraudulent == 1 {
			fraud++
		}
	}

	fmt.Printf("wrote %d claims to %s in %s\n", len(rows), *out, time.Since(began).Round(time.Millisecond))
	for _, line := range []string{"auto", "health", "property"} {
		fmt.Printf("  %-8s %d\n", line, byLine[line])
	}
	fmt.Printf("fraud rate: %.2f%% (%d claims)\n", 100*float64(fraud)/float64(len(rows)), fraud)
}
