package domain

import (
	"bytes"
	"encoding/json"
)

const (
	minPH, maxPH       = 3.5, 9.0
	defaultPH          = 6.5
	defaultSoilHealth  = 0.7
	defaultGroundwater = 0.6
)

// Practice tag spellings accepted from callers.
const (
	practiceMulching         = "mulching"
	practiceDripHyphen       = "drip-irrigation"
	practiceDripCamel        = "dripIrrigation"
	practiceCompost          = "compost"
	practiceExcessChemHyphen = "excess-chemical-fertilizer"
	practiceExcessChemCamel  = "excessChemicalFertilizer"
)

// Normalize validates crop and soil and coerces everything else into
// canonical conditions. Only ErrInvalidCrop and ErrInvalidSoil are returned;
// malformed params and practices fall back to defaults.
func Normalize(req SuitabilityRequest) (string, Conditions, error) {
	crop, ok := parseString(req.Crop)
	if !ok || crop == "" {
		return "", Conditions{}, ErrInvalidCrop
	}

	soil, err := normalizeSoil(req.Soil)
	if err != nil {
		return "", Conditions{}, err
	}

	params := parseObject(req.Params)
	cond := Conditions{
		Soil:        soil,
		PH:          boundedOr(params["ph"], minPH, maxPH, defaultPH),
		SoilHealth:  boundedOr(params["soilHealth"], 0, 1, defaultSoilHealth),
		Groundwater: boundedOr(params["groundwater"], 0, 1, defaultGroundwater),
		Weather:     normalizeWeather(params["weather"]),
		Practices:   normalizePractices(req.Practices),
	}
	return crop, cond, nil
}

// normalizeSoil defaults an absent soil to alluvial. A present value of any
// other kind, including null, is rejected.
func normalizeSoil(raw json.RawMessage) (Soil, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return SoilAlluvial, nil
	}
	s, ok := parseString(raw)
	if !ok {
		return "", ErrInvalidSoil
	}
	switch Soil(s) {
	case SoilAlluvial, SoilMountain:
		return Soil(s), nil
	default:
		return "", ErrInvalidSoil
	}
}

func normalizeWeather(raw json.RawMessage) Weather {
	s, _ := parseString(raw)
	switch w := Weather(s); w {
	case WeatherNormal, WeatherDrought, WeatherFlood, WeatherHail:
		return w
	default:
		return WeatherNormal
	}
}

func normalizePractices(raw json.RawMessage) PracticeFlags {
	var entries []any
	if err := json.Unmarshal(raw, &entries); err != nil {
		return PracticeFlags{}
	}

	var flags PracticeFlags
	for _, e := range entries {
		tag, ok := e.(string)
		if !ok {
			continue
		}
		switch tag {
		case practiceMulching:
			flags.Mulching = true
		case practiceDripHyphen, practiceDripCamel:
			flags.DripIrrigation = true
		case practiceCompost:
			flags.Compost = true
		case practiceExcessChemHyphen, practiceExcessChemCamel:
			flags.ExcessChemicalFertilizer = true
		}
	}
	return flags
}

// boundedOr returns the JSON number in raw if it lies within [lo, hi],
// otherwise def. Booleans, strings and null are not numbers here.
func boundedOr(raw json.RawMessage, lo, hi, def float64) float64 {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return def
	}
	f, ok := v.(float64)
	if !ok || f < lo || f > hi {
		return def
	}
	return f
}

func parseString(raw json.RawMessage) (string, bool) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// objectMembers decodes data as a JSON object without the case-insensitive
// key matching that struct decoding applies.
func objectMembers(data []byte) (map[string]json.RawMessage, error) {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// parseObject decodes raw as a JSON object. Anything else yields an empty map.
func parseObject(raw json.RawMessage) map[string]json.RawMessage {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil || m == nil {
		return map[string]json.RawMessage{}
	}
	return m
}
