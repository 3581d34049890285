package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// EventType labels an event on the outbound stream.
type EventType string

const (
	EventSuitabilityAssessed EventType = "suitability_assessed"
	EventPricesQuoted        EventType = "prices_quoted"
)

// Event is an outbound record of something the API computed.
type Event struct {
	ID         string    `json:"id"`
	Type       EventType `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
	Payload    any       `json:"payload"`
}

// NewAssessmentEvent wraps an assessment for the event stream.
func NewAssessmentEvent(a Assessment) Event {
	return Event{
		ID:         AssessmentID(a.Crop, a.Conditions),
		Type:       EventSuitabilityAssessed,
		OccurredAt: clock.Now().UTC(),
		Payload:    a,
	}
}

// NewPriceEvent wraps a price quote for the event stream. Quotes from the
// same UTC day share an ID prefix.
func NewPriceEvent(prices map[string]float64) Event {
	now := clock.Now().UTC()
	return Event{
		ID:         fmt.Sprintf("prices-%s-%d", now.Format("20060102"), now.UnixNano()),
		Type:       EventPricesQuoted,
		OccurredAt: now,
		Payload:    prices,
	}
}

// AssessmentID derives a deterministic ID from the crop and canonical
// conditions, so identical requests map to the same ID.
func AssessmentID(crop string, c Conditions) string {
	input := fmt.Sprintf("%s|%s|%g|%g|%g|%s|%t|%t|%t|%t",
		crop, c.Soil, c.PH, c.SoilHealth, c.Groundwater, c.Weather,
		c.Practices.Mulching, c.Practices.DripIrrigation, c.Practices.Compost, c.Practices.ExcessChemicalFertilizer,
	)
	hash := sha256.Sum256([]byte(input))
	return "suitability-" + hex.EncodeToString(hash[:8])
}
