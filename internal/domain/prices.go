package domain

import (
	"encoding/json"
	"math"
	"math/rand/v2"

	"github.com/shopspring/decimal"
)

const (
	unknownCropBasePrice = 20
	priceFluctuation     = 0.1
	priceJitter          = 1.5
	minPrice             = 1

	// float64Exponent is small enough that decimal conversion keeps every
	// binary digit of a float64.
	float64Exponent = -1074
)

// basePrices are approximate INR/kg baselines. Read-only.
var basePrices = map[string]float64{
	"rice":   35,
	"wheat":  25,
	"potato": 20,
	"corn":   28,
	"maize":  28,
	"tea":    250,
}

// defaultPriceCrops is the crop list quoted when a request names none.
var defaultPriceCrops = []string{"rice", "wheat", "potato", "corn", "maize", "tea"}

// PriceRequest is the untrusted prices request body.
type PriceRequest struct {
	Crops json.RawMessage `json:"crops"`
}

// UnmarshalJSON picks the crops field by exact key.
func (r *PriceRequest) UnmarshalJSON(data []byte) error {
	m, err := objectMembers(data)
	if err != nil {
		return err
	}
	*r = PriceRequest{Crops: m["crops"]}
	return nil
}

// CropList returns the requested crops, or the default list when the field is
// absent, not an array, or holds a non-string entry. An explicit empty array
// yields an empty list.
func (r PriceRequest) CropList() []string {
	var entries []any
	if err := json.Unmarshal(r.Crops, &entries); err != nil || entries == nil {
		return DefaultPriceCrops()
	}
	crops := make([]string, 0, len(entries))
	for _, e := range entries {
		s, ok := e.(string)
		if !ok {
			return DefaultPriceCrops()
		}
		crops = append(crops, s)
	}
	return crops
}

// DefaultPriceCrops returns a copy of the built-in crop list.
func DefaultPriceCrops() []string {
	return append([]string(nil), defaultPriceCrops...)
}

// BasePrice returns the baseline price for crop.
func BasePrice(crop string) float64 {
	if p, ok := basePrices[crop]; ok {
		return p
	}
	return unknownCropBasePrice
}

// PriceSimulator produces jittered daily prices. Safe for concurrent use when
// its random source is.
type PriceSimulator struct {
	random func() float64
}

// NewPriceSimulator creates a simulator drawing from random, which must return
// values in [0, 1). Pass nil to use the global math/rand/v2 source.
func NewPriceSimulator(random func() float64) *PriceSimulator {
	if random == nil {
		random = rand.Float64
	}
	return &PriceSimulator{random: random}
}

// Quote returns a price per crop. Duplicate crops collapse into one entry.
func (s *PriceSimulator) Quote(crops []string) map[string]float64 {
	prices := make(map[string]float64, len(crops))
	for _, c := range crops {
		base := BasePrice(c)
		prices[c] = jitteredPrice(base, s.uniform(-priceFluctuation, priceFluctuation), s.uniform(-priceJitter, priceJitter))
	}
	return prices
}

// jitteredPrice applies a proportional fluctuation and an additive jitter to
// base, rounds to cents and floors at minPrice.
func jitteredPrice(base, fluct, jitter float64) float64 {
	return math.Max(minPrice, round2(base+base*fluct+jitter))
}

func (s *PriceSimulator) uniform(lo, hi float64) float64 {
	return lo + (hi-lo)*s.random()
}

// round2 rounds the exact binary value of v to cents, ties to even. 2.675 is
// stored as 2.67499999... and so rounds down.
func round2(v float64) float64 {
	return decimal.NewFromFloatWithExponent(v, float64Exponent).RoundBank(2).InexactFloat64()
}
