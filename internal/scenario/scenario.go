// Package scenario builds and checks scored suitability fixtures. A fixture is
// a grid of probability requests together with the canonical conditions,
// deterministic ID, and probability the domain produced for each.
package scenario

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"github.com/couchcryptid/crop-advisor-service/internal/domain"
)

// Params mirrors the params object of a probability request.
type Params struct {
	PH          float64 `json:"ph"`
	SoilHealth  float64 `json:"soilHealth"`
	Groundwater float64 `json:"groundwater"`
	Weather     string  `json:"weather"`
}

// Input is a probability request body as a client would send it.
type Input struct {
	Crop      string   `json:"crop"`
	Soil      string   `json:"soil"`
	Params    Params   `json:"params"`
	Practices []string `json:"practices"`
}

// Request converts the input into the untrusted request form the API decodes.
func (in Input) Request() (domain.SuitabilityRequest, error) {
	data, err := json.Marshal(in)
	if err != nil {
		return domain.SuitabilityRequest{}, fmt.Errorf("marshal input: %w", err)
	}
	var req domain.SuitabilityRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return domain.SuitabilityRequest{}, fmt.Errorf("unmarshal request: %w", err)
	}
	return req, nil
}

// Scenario is one scored fixture record.
type Scenario struct {
	ID          string            `json:"id"`
	Input       Input             `json:"input"`
	Conditions  domain.Conditions `json:"conditions"`
	Compatible  bool              `json:"compatible"`
	Probability float64           `json:"probability"`
}

// Evaluate scores an input through the same path the API uses.
func Evaluate(in Input) (Scenario, error) {
	req, err := in.Request()
	if err != nil {
		return Scenario{}, err
	}
	a, err := domain.Assess(req)
	if err != nil {
		return Scenario{}, fmt.Errorf("assess %s/%s: %w", in.Crop, in.Soil, err)
	}
	return Scenario{
		ID:          domain.AssessmentID(a.Crop, a.Conditions),
		Input:       in,
		Conditions:  a.Conditions,
		Compatible:  domain.IsCompatible(a.Conditions.Soil, a.Crop),
		Probability: a.Probability,
	}, nil
}

// Grid dimensions. Crops include ones outside the compatibility table.
var (
	GridCrops        = []string{"rice", "wheat", "maize", "potato", "tea", "corn", "quinoa"}
	GridSoils        = []string{"alluvial", "mountain"}
	GridWeather      = []string{"normal", "drought", "flood", "hail"}
	GridPH           = []float64{5.0, 6.5, 8.0}
	GridSoilHealth   = []float64{0.2, 0.7, 1.0}
	GridGroundwater  = []float64{0.1, 0.6, 0.95}
	GridPracticeSets = [][]string{
		{},
		{"mulching"},
		{"drip-irrigation", "compost"},
		{"mulching", "dripIrrigation", "compost"},
		{"excess-chemical-fertilizer"},
		{"compost", "excessChemicalFertilizer"},
	}
)

// Grid returns every combination of the grid dimensions in a stable order.
func Grid() []Input {
	n := len(GridCrops) * len(GridSoils) * len(GridWeather) * len(GridPH) *
		len(GridSoilHealth) * len(GridGroundwater) * len(GridPracticeSets)
	inputs := make([]Input, 0, n)
	for _, crop := range GridCrops {
		for _, soil := range GridSoils {
			for _, weather := range GridWeather {
				for _, ph := range GridPH {
					for _, health := range GridSoilHealth {
						for _, gw := range GridGroundwater {
							for _, practices := range GridPracticeSets {
								inputs = append(inputs, Input{
									Crop: crop,
									Soil: soil,
									Params: Params{
										PH:          ph,
										SoilHealth:  health,
										Groundwater: gw,
										Weather:     weather,
									},
									Practices: append([]string{}, practices...),
								})
							}
						}
					}
				}
			}
		}
	}
	return inputs
}

// Generate evaluates the full grid.
func Generate() ([]Scenario, error) {
	inputs := Grid()
	out := make([]Scenario, 0, len(inputs))
	for _, in := range inputs {
		s, err := Evaluate(in)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// Phase collects the failures found by one validation pass.
type Phase struct {
	Name   string
	Errors []string
}

func (p *Phase) errorf(format string, args ...any) {
	p.Errors = append(p.Errors, fmt.Sprintf(format, args...))
}

// Passed reports whether the phase found no failures.
func (p *Phase) Passed() bool { return len(p.Errors) == 0 }

// Validate runs every check against a fixture.
func Validate(fixture []Scenario) []*Phase {
	return []*Phase{
		CheckReproducible(fixture),
		CheckBounds(fixture),
		CheckIDs(fixture),
		CheckSoilHealthMonotonic(fixture),
		CheckReferenceScenarios(),
	}
}

// CheckReproducible re-scores each input and compares it with the recorded result.
func CheckReproducible(fixture []Scenario) *Phase {
	p := &Phase{Name: "Phase 1: Reproducibility (re-score)"}
	for i := range fixture {
		want := fixture[i]
		got, err := Evaluate(want.Input)
		if err != nil {
			p.errorf("record %d: %v", i, err)
			continue
		}
		if got.ID != want.ID {
			p.errorf("record %d: id: expected %s, got %s", i, want.ID, got.ID)
		}
		if got.Conditions != want.Conditions {
			p.errorf("record %d (ID %s): conditions: expected %+v, got %+v", i, want.ID, want.Conditions, got.Conditions)
		}
		if !floatEq(got.Probability, want.Probability) {
			p.errorf("record %d (ID %s): probability: expected %g, got %g", i, want.ID, want.Probability, got.Probability)
		}
	}
	return p
}

// CheckBounds verifies that probabilities and conditions lie within their domains.
func CheckBounds(fixture []Scenario) *Phase {
	p := &Phase{Name: "Phase 2: Bounds (probability and conditions)"}
	for i := range fixture {
		s := &fixture[i]
		if s.Probability < 0 || s.Probability > 1 || math.IsNaN(s.Probability) {
			p.errorf("record %d (ID %s): probability %g outside [0, 1]", i, s.ID, s.Probability)
		}
		for _, v := range s.Conditions.Violations() {
			p.errorf("record %d (ID %s): %s", i, s.ID, v)
		}
	}
	return p
}

// CheckIDs verifies that IDs are present and that two records share an ID
// only when their crop and conditions are identical.
func CheckIDs(fixture []Scenario) *Phase {
	p := &Phase{Name: "Phase 3: ID Stability (content addressing)"}
	seen := map[string]*Scenario{}
	for i := range fixture {
		s := &fixture[i]
		if s.ID == "" {
			p.errorf("record %d: missing ID", i)
			continue
		}
		prev, ok := seen[s.ID]
		if !ok {
			seen[s.ID] = s
			continue
		}
		if prev.Input.Crop != s.Input.Crop || prev.Conditions != s.Conditions {
			p.errorf("record %d: ID %s collides with a different scenario", i, s.ID)
		}
	}
	return p
}

// CheckSoilHealthMonotonic verifies that, with everything else fixed,
// probability rises with soil health wherever neither value is clamped.
func CheckSoilHealthMonotonic(fixture []Scenario) *Phase {
	p := &Phase{Name: "Phase 4: Soil Health Monotonicity"}

	groups := map[string][]*Scenario{}
	for i := range fixture {
		s := &fixture[i]
		c := s.Conditions
		c.SoilHealth = 0
		key := domain.AssessmentID(s.Input.Crop, c)
		groups[key] = append(groups[key], s)
	}

	for _, group := range groups {
		sort.Slice(group, func(i, j int) bool {
			return group[i].Conditions.SoilHealth < group[j].Conditions.SoilHealth
		})
		for i := 1; i < len(group); i++ {
			lo, hi := group[i-1], group[i]
			if lo.Conditions.SoilHealth == hi.Conditions.SoilHealth || clamped(lo.Probability) || clamped(hi.Probability) {
				continue
			}
			if hi.Probability <= lo.Probability {
				p.errorf("ID %s -> %s: soil health %g -> %g but probability %g -> %g",
					lo.ID, hi.ID, lo.Conditions.SoilHealth, hi.Conditions.SoilHealth, lo.Probability, hi.Probability)
			}
		}
	}
	return p
}

// referenceScenarios are hand-computed results the scoring rules must reproduce.
var referenceScenarios = []struct {
	input Input
	want  float64
}{
	{
		input: Input{Crop: "rice", Soil: "alluvial", Params: Params{PH: 6.5, SoilHealth: 0.7, Groundwater: 0.6, Weather: "normal"}, Practices: []string{}},
		want:  0.92,
	},
	{
		input: Input{Crop: "tea", Soil: "alluvial", Params: Params{PH: 6.5, SoilHealth: 0.7, Groundwater: 0.6, Weather: "normal"}, Practices: []string{"excess-chemical-fertilizer"}},
		want:  0.42,
	},
}

// CheckReferenceScenarios scores the hand-computed reference inputs.
func CheckReferenceScenarios() *Phase {
	p := &Phase{Name: "Phase 5: Reference Scenarios"}
	for _, ref := range referenceScenarios {
		s, err := Evaluate(ref.input)
		if err != nil {
			p.errorf("%s/%s: %v", ref.input.Crop, ref.input.Soil, err)
			continue
		}
		if math.Abs(s.Probability-ref.want) > 1e-9 {
			p.errorf("%s/%s: expected %g, got %g", ref.input.Crop, ref.input.Soil, ref.want, s.Probability)
		}
	}
	return p
}

// Stats summarizes a fixture for reporting.
type Stats struct {
	Total        int
	Compatible   int
	Min, Max     float64
	Mean         float64
	ClampedZero  int
	ClampedOne   int
	ByCrop       map[string]int
	Distribution [10]int // counts per 0.1-wide probability bucket
}

// Summarize computes Stats over a fixture.
func Summarize(fixture []Scenario) Stats {
	st := Stats{Total: len(fixture), Min: 1, ByCrop: map[string]int{}}
	if len(fixture) == 0 {
		st.Min = 0
		return st
	}
	var sum float64
	for i := range fixture {
		s := &fixture[i]
		pr := s.Probability
		sum += pr
		st.Min = math.Min(st.Min, pr)
		st.Max = math.Max(st.Max, pr)
		st.ByCrop[s.Input.Crop]++
		if s.Compatible {
			st.Compatible++
		}
		switch pr {
		case 0:
			st.ClampedZero++
		case 1:
			st.ClampedOne++
		}
		st.Distribution[min(int(pr*10), 9)]++
	}
	st.Mean = sum / float64(len(fixture))
	return st
}

func clamped(v float64) bool { return v <= 0 || v >= 1 }

func floatEq(a, b float64) bool {
	return math.Abs(a-b) < 1e-12
}
