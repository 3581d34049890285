package domain

import "math"

const (
	baseScore = 0.55

	compatibilityWeight = 0.15
	phWeight            = 0.10
	phSweetLow          = 6.0
	phSweetHigh         = 7.0

	soilHealthMidpoint = 0.5
	soilHealthWeight   = 0.3

	groundwaterOptimum = 0.6
	groundwaterWeight  = 0.2
	groundwaterOffset  = 0.06

	adverseWeatherPenalty = 0.15

	mulchingBonus         = 0.05
	dripIrrigationBonus   = 0.07
	compostBonus          = 0.07
	excessChemicalPenalty = 0.20
)

// Score returns the suitability probability of crop under cond, in [0, 1].
// Terms are applied in a fixed order so results are reproducible bit for bit.
func Score(crop string, cond Conditions) float64 {
	base := baseScore

	if IsCompatible(cond.Soil, crop) {
		base += compatibilityWeight
	} else {
		base -= compatibilityWeight
	}

	if cond.PH >= phSweetLow && cond.PH <= phSweetHigh {
		base += phWeight
	} else {
		base -= phWeight
	}

	// Explicit float64 conversions keep the compiler from fusing the
	// multiply-adds, which would change the low bits on some architectures.
	base += float64((cond.SoilHealth - soilHealthMidpoint) * soilHealthWeight)

	base += float64((groundwaterOptimum-math.Abs(cond.Groundwater-groundwaterOptimum))*groundwaterWeight) - groundwaterOffset

	if cond.Weather.Adverse() {
		base -= adverseWeatherPenalty
	}

	if cond.Practices.Mulching {
		base += mulchingBonus
	}
	if cond.Practices.DripIrrigation {
		base += dripIrrigationBonus
	}
	if cond.Practices.Compost {
		base += compostBonus
	}
	if cond.Practices.ExcessChemicalFertilizer {
		base -= excessChemicalPenalty
	}

	return clamp(base, 0, 1)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
