package domain

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrInvalidCrop is returned when the crop field is missing, not a string, or empty.
	ErrInvalidCrop = errors.New("invalid crop parameter")
	// ErrInvalidSoil is returned when the soil field is present but not a known soil type.
	ErrInvalidSoil = errors.New("invalid soil parameter")
)

// Soil is a validated soil type.
type Soil string

const (
	SoilAlluvial Soil = "alluvial"
	SoilMountain Soil = "mountain"
)

// Weather is a validated weather label.
type Weather string

const (
	WeatherNormal  Weather = "normal"
	WeatherDrought Weather = "drought"
	WeatherFlood   Weather = "flood"
	WeatherHail    Weather = "hail"
)

// Adverse reports whether the weather carries a scoring penalty.
func (w Weather) Adverse() bool {
	switch w {
	case WeatherDrought, WeatherFlood, WeatherHail:
		return true
	default:
		return false
	}
}

// SuitabilityRequest is the untrusted probability request body. Fields stay
// raw so that type mismatches can be told apart from absent keys.
type SuitabilityRequest struct {
	Crop      json.RawMessage `json:"crop"`
	Soil      json.RawMessage `json:"soil"`
	Params    json.RawMessage `json:"params"`
	Practices json.RawMessage `json:"practices"`
}

// UnmarshalJSON picks the request fields by exact key. "Crop" or "SOIL" are
// unknown keys, not aliases.
func (r *SuitabilityRequest) UnmarshalJSON(data []byte) error {
	m, err := objectMembers(data)
	if err != nil {
		return err
	}
	*r = SuitabilityRequest{
		Crop:      m["crop"],
		Soil:      m["soil"],
		Params:    m["params"],
		Practices: m["practices"],
	}
	return nil
}

// PracticeFlags records which scored cultivation practices are in use.
type PracticeFlags struct {
	Mulching                 bool `json:"mulching"`
	DripIrrigation           bool `json:"drip_irrigation"`
	Compost                  bool `json:"compost"`
	ExcessChemicalFertilizer bool `json:"excess_chemical_fertilizer"`
}

// Conditions is the canonical, in-domain form of a suitability request.
type Conditions struct {
	Soil        Soil          `json:"soil"`
	PH          float64       `json:"ph"`
	SoilHealth  float64       `json:"soil_health"`
	Groundwater float64       `json:"groundwater"`
	Weather     Weather       `json:"weather"`
	Practices   PracticeFlags `json:"practices"`
}

// DefaultConditions returns the conditions used when a request supplies no params.
func DefaultConditions(soil Soil) Conditions {
	return Conditions{
		Soil:        soil,
		PH:          defaultPH,
		SoilHealth:  defaultSoilHealth,
		Groundwater: defaultGroundwater,
		Weather:     WeatherNormal,
	}
}

// Violations lists the fields of c that fall outside their declared domains.
// Normalized conditions never have any.
func (c Conditions) Violations() []string {
	var out []string
	if c.Soil != SoilAlluvial && c.Soil != SoilMountain {
		out = append(out, fmt.Sprintf("soil %q is not a known soil", c.Soil))
	}
	if c.PH < minPH || c.PH > maxPH {
		out = append(out, fmt.Sprintf("ph %g outside [%g, %g]", c.PH, minPH, maxPH))
	}
	if c.SoilHealth < 0 || c.SoilHealth > 1 {
		out = append(out, fmt.Sprintf("soil_health %g outside [0, 1]", c.SoilHealth))
	}
	if c.Groundwater < 0 || c.Groundwater > 1 {
		out = append(out, fmt.Sprintf("groundwater %g outside [0, 1]", c.Groundwater))
	}
	switch c.Weather {
	case WeatherNormal, WeatherDrought, WeatherFlood, WeatherHail:
	default:
		out = append(out, fmt.Sprintf("weather %q is not a known weather", c.Weather))
	}
	return out
}

// Assessment is the outcome of scoring one request.
type Assessment struct {
	Crop        string     `json:"crop"`
	Conditions  Conditions `json:"conditions"`
	Probability float64    `json:"probability"`
}

// compatibleCrops maps each soil to the crops that naturally suit it.
// Read-only after init.
var compatibleCrops = map[Soil]map[string]struct{}{
	SoilAlluvial: {"rice": {}, "wheat": {}, "maize": {}, "potato": {}},
	SoilMountain: {"tea": {}, "wheat": {}, "potato": {}},
}

// IsCompatible reports whether crop is listed as suited to soil.
func IsCompatible(soil Soil, crop string) bool {
	_, ok := compatibleCrops[soil][crop]
	return ok
}

// Assess validates a request and scores it.
func Assess(req SuitabilityRequest) (Assessment, error) {
	crop, cond, err := Normalize(req)
	if err != nil {
		return Assessment{}, err
	}
	return Assessment{
		Crop:        crop,
		Conditions:  cond,
		Probability: Score(crop, cond),
	}, nil
}
