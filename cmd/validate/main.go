// Command validate re-scores a suitability fixture produced by genmock and
// checks it end to end: reproducibility of every record, range of every
// probability and canonical field, ID stability, soil health monotonicity,
// and the hand-computed reference scenarios.
//
// Usage:
//
//	go run ./cmd/validate -fixture data/mock/suitability_scenarios.json
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/couchcryptid/crop-advisor-service/internal/scenario"
)

func main() {
	fixturePath := flag.String("fixture", "", "path to the scored scenario fixture")
	flag.Parse()

	if *fixturePath == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*fixturePath); code != 0 {
		os.Exit(code)
	}
}

func run(fixturePath string) int {
	fmt.Println("=== Suitability Fixture Validation ===")
	fmt.Println()

	fixture, err := loadJSON[scenario.Scenario](fixturePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load fixture: %v\n", err)
		return 1
	}
	if len(fixture) == 0 {
		fmt.Fprintln(os.Stderr, "FATAL: fixture is empty")
		return 1
	}

	phases := scenario.Validate(fixture)

	// ── Report results ──
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.Passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.Errors))
			allPassed = false
		}
		fmt.Printf("  %-46s %s\n", p.Name, status)
	}

	fmt.Println()
	fmt.Printf("Records: %d\n", len(fixture))

	for _, p := range phases {
		if p.Passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.Name)
		for i, e := range p.Errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

func loadJSON[T any](path string) ([]T, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, err
	}
	return items, nil
}
