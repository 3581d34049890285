// Command genmock scores a grid of suitability requests and writes the result
// as a JSON fixture for client and regression test suites. It uses the actual
// domain package so the fixture matches what the API returns.
//
// Usage:
//
//	go run ./cmd/genmock -out data/mock/suitability_scenarios.json
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/couchcryptid/crop-advisor-service/internal/scenario"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "", "output path for the scored scenario fixture")
	flag.Parse()

	if *out == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out")
	}

	fixture, err := scenario.Generate()
	if err != nil {
		return fmt.Errorf("generating scenarios: %w", err)
	}
	log.Printf("scored %d scenarios", len(fixture))

	if err := writeJSON(*out, fixture); err != nil {
		return fmt.Errorf("writing fixture: %w", err)
	}
	log.Printf("wrote fixture: %s", *out)

	printStats(scenario.Summarize(fixture))
	return nil
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o600)
}

func printStats(st scenario.Stats) {
	fmt.Println("\n=== Stats for updating test assertions ===")
	fmt.Printf("Total: %d\n", st.Total)
	fmt.Printf("Compatible crop/soil pairs: %d\n", st.Compatible)
	fmt.Printf("Probability: min=%.4f, max=%.4f, mean=%.4f\n", st.Min, st.Max, st.Mean)
	fmt.Printf("Clamped: at 0=%d, at 1=%d\n", st.ClampedZero, st.ClampedOne)

	crops := make([]string, 0, len(st.ByCrop))
	for c := range st.ByCrop {
		crops = append(crops, c)
	}
	sort.Strings(crops)
	fmt.Printf("By crop:")
	for _, c := range crops {
		fmt.Printf(" %s=%d", c, st.ByCrop[c])
	}
	fmt.Println()

	fmt.Println("\nDistribution:")
	for i, n := range st.Distribution {
		bar := strings.Repeat("#", n*50/max(st.Total, 1))
		fmt.Printf("  [%.1f, %.1f) %6d %s\n", float64(i)/10, float64(i+1)/10, n, bar)
	}
}
