// Package domain holds the agronomy rules behind the advisor API: crop
// suitability scoring, mentor request shaping, and the daily price simulator.
//
// # Suitability Scoring
//
// Scoring is a two-stage pipeline. [Normalize] turns an untrusted
// [SuitabilityRequest] into [Conditions], a canonical value whose fields are
// always inside their domains. [Score] is a total function over that value.
// [Assess] chains the two.
//
// Validation is deliberately asymmetric:
//
//	crop    missing, non-string or empty   → ErrInvalidCrop
//	soil    present but not an enum value  → ErrInvalidSoil (absent → alluvial)
//	params  anything malformed             → silently defaulted
//
// Canonical domains and defaults:
//
//	ph           [3.5, 9.0]   default 6.5
//	soilHealth   [0.0, 1.0]   default 0.7
//	groundwater  [0.0, 1.0]   default 0.6
//	weather      normal | drought | flood | hail   default normal
//
// Practice tags are matched by exact spelling. Drip irrigation and excess
// chemical fertilizer each accept a hyphenated and a camelCase spelling
// ("drip-irrigation"/"dripIrrigation",
// "excess-chemical-fertilizer"/"excessChemicalFertilizer"). Unknown tags are
// ignored.
//
// The score starts at 0.55 and applies, in order:
//
//	compatibility   +0.15 if the crop suits the soil, else -0.15
//	pH              +0.10 inside [6.0, 7.0], else -0.10
//	soil health     +(soilHealth - 0.5) * 0.3
//	groundwater     +(0.6 - |groundwater - 0.6|) * 0.2 - 0.06
//	weather         -0.15 for drought, flood or hail
//	practices       mulching +0.05, drip +0.07, compost +0.07, excess fertilizer -0.20
//
// and clamps the result to [0, 1]. The groundwater offset means the optimum
// (0.6) still nets +0.06 rather than +0.12; the constant is kept as is.
//
// Crop/soil compatibility:
//
//	alluvial  rice, wheat, maize, potato
//	mountain  tea, wheat, potato
//
// # Prices
//
// [PriceSimulator] jitters a per-crop base price by ±10% plus up to ±1.5,
// rounds to two decimals and floors at 1. Unknown crops use a base of 20.
//
// # Events
//
// Assessments and price quotes can be emitted as [Event] values for the
// optional event stream. Assessment IDs are deterministic SHA-256 hashes of
// the crop and canonical conditions, so replaying the same request yields the
// same ID.
package domain
