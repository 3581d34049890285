package httpadapter

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/couchcryptid/crop-advisor-service/internal/domain"
	"github.com/gin-gonic/gin"
)

// Client-facing error strings for rejected suitability requests.
const (
	msgInvalidCrop = "Invalid crop parameter"
	msgInvalidSoil = "Invalid soil parameter"
)

// EventPublisher accepts events for asynchronous delivery.
type EventPublisher interface {
	Publish(event domain.Event) bool
}

// decodeBody reads the request body into T. A missing, empty, or malformed
// body yields the zero value so every field falls back to its default.
func decodeBody[T any](c *gin.Context) T {
	var v T
	data, err := c.GetRawData()
	if err != nil || len(data) == 0 {
		return v
	}
	if err := json.Unmarshal(data, &v); err != nil {
		var zero T
		return zero
	}
	return v
}

func (s *Server) handleProbability(c *gin.Context) {
	req := decodeBody[domain.SuitabilityRequest](c)

	assessment, err := domain.Assess(req)
	switch {
	case errors.Is(err, domain.ErrInvalidCrop):
		s.metrics.ProbabilityRequests.WithLabelValues("invalid_crop").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": msgInvalidCrop})
		return
	case errors.Is(err, domain.ErrInvalidSoil):
		s.metrics.ProbabilityRequests.WithLabelValues("invalid_soil").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": msgInvalidSoil})
		return
	case err != nil:
		s.logger.Error("assess suitability", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": http.StatusText(http.StatusInternalServerError)})
		return
	}

	s.metrics.ProbabilityRequests.WithLabelValues("ok").Inc()
	s.metrics.ProbabilityScores.Observe(assessment.Probability)
	s.publish(domain.NewAssessmentEvent(assessment))

	c.JSON(http.StatusOK, gin.H{"probability": assessment.Probability})
}

func (s *Server) handleMentor(c *gin.Context) {
	req := domain.NormalizeMentorRequest(decodeBody[domain.MentorRequest](c))

	advice := s.advisor.Advise(c.Request.Context(), req)
	s.metrics.AdviceRequests.WithLabelValues(string(advice.Source)).Inc()

	c.JSON(http.StatusOK, gin.H{"answer": advice.Answer})
}

func (s *Server) handlePrices(c *gin.Context) {
	req := decodeBody[domain.PriceRequest](c)

	prices := s.prices.Quote(req.CropList())
	s.metrics.PricesQuoted.Add(float64(len(prices)))
	s.publish(domain.NewPriceEvent(prices))

	c.JSON(http.StatusOK, gin.H{"prices": prices})
}

func (s *Server) publish(event domain.Event) {
	if s.events == nil {
		return
	}
	s.events.Publish(event)
}
