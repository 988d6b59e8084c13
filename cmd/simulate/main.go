// Package main runs scripted pool scenarios and verifies accounting
// invariants, printing a per-step report or JSON results.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"strings"

	"github.com/CarbonSustain/OffsetZap-sub000/internal/domain"
	"github.com/CarbonSustain/OffsetZap-sub000/internal/pool"
	"github.com/CarbonSustain/OffsetZap-sub000/internal/scenario"
)

func main() {
	scenarioPath := flag.String("scenario", "", "Path to a scenario JSON file (required)")
	mintPolicy := flag.String("mint-policy", "", "Override mint policy: FLAT_UNIT or PROPORTIONAL")
	outputJSON := flag.Bool("json", false, "Output results as JSON")

	flag.Parse()

	logger := log.New(os.Stderr, "[simulate] ", log.LstdFlags)

	if *scenarioPath == "" {
		logger.Fatal("--scenario is required")
	}

	sc, err := scenario.Load(*scenarioPath)
	if err != nil {
		logger.Fatalf("Failed to load scenario: %v", err)
	}

	if *mintPolicy != "" {
		policy := domain.MintPolicy(strings.ToUpper(*mintPolicy))
		if !policy.Valid() {
			logger.Fatalf("Unknown mint policy %q", *mintPolicy)
		}
		sc.MintPolicy = policy
	}

	runner := scenario.NewRunner(pool.DefaultConfig())
	results, err := runner.Run(context.Background(), sc)
	if err != nil {
		logger.Fatalf("Scenario failed to run: %v", err)
	}

	if *outputJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(results); err != nil {
			logger.Fatalf("Failed to encode results: %v", err)
		}
	} else {
		printReport(results)
	}

	if !results.OK() {
		os.Exit(1)
	}
}

func printReport(results *scenario.Results) {
	log.SetFlags(0)
	log.SetOutput(os.Stdout)

	log.Printf("Scenario: %s", results.Scenario)
	for _, step := range results.Steps {
		switch {
		case step.Err != nil && step.Rejected:
			log.Printf("  step %2d %-10s rejected as scripted: %v", step.Step, step.Op, step.Err)
		case step.Err != nil:
			log.Printf("  step %2d %-10s FAILED: %v", step.Step, step.Op, step.Err)
		default:
			log.Printf("  step %2d %-10s units=%d reserve=%d", step.Step, step.Op, step.Units, step.Reserve)
		}
	}

	for _, d := range results.Divergences {
		log.Printf("  DIVERGENCE %s", d)
	}

	log.Printf("Final state: reserve=%d units=%d", results.FinalReserve, results.FinalUnits)
	if results.OK() {
		log.Print("Result: OK")
	} else {
		log.Print("Result: FAILED")
	}
}
