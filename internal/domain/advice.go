package domain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidContextParams is returned by AdviceRequest.Validate when the
// context carries a params value that is not an object.
var ErrInvalidContextParams = errors.New("mentor context params is not an object")

const (
	// DefaultQuestion replaces a missing or blank mentor question.
	DefaultQuestion = "Give sustainable farming advice for alluvial soil today."

	// FallbackUnconfigured is answered when no remote model is configured.
	FallbackUnconfigured = "Tip: Prioritize natural fertilizers (compost, green manure), maintain pH 6.0–7.0, " +
		"use drip irrigation to conserve groundwater, and rotate crops (e.g., legumes) " +
		"to restore soil health. Monitor weather; pause fertilizer before heavy rain."

	// FallbackFailed is answered when the remote model was called but gave no usable text.
	FallbackFailed = "Use compost and mulching; adjust irrigation to maintain optimal moisture and prevent runoff."
)

// AdviceSource records where an answer came from.
type AdviceSource string

const (
	AdviceRemote       AdviceSource = "remote"
	AdviceCached       AdviceSource = "cache"
	AdviceUnconfigured AdviceSource = "unconfigured"
	AdviceFailed       AdviceSource = "failed"
)

// Advice is a mentor answer and its provenance.
type Advice struct {
	Answer string
	Source AdviceSource
}

// UnconfiguredAdvice is the answer given when no remote model is set up.
func UnconfiguredAdvice() Advice {
	return Advice{Answer: FallbackUnconfigured, Source: AdviceUnconfigured}
}

// FailedAdvice is the answer given when a remote call fails or returns no text.
func FailedAdvice() Advice {
	return Advice{Answer: FallbackFailed, Source: AdviceFailed}
}

// Advisor answers mentor questions. Implementations never fail; they degrade
// to one of the fallback answers instead.
type Advisor interface {
	Advise(ctx context.Context, req AdviceRequest) Advice
}

// MentorRequest is the untrusted mentor request body.
type MentorRequest struct {
	Question json.RawMessage `json:"question"`
	Context  json.RawMessage `json:"context"`
}

// UnmarshalJSON picks the request fields by exact key.
func (r *MentorRequest) UnmarshalJSON(data []byte) error {
	m, err := objectMembers(data)
	if err != nil {
		return err
	}
	*r = MentorRequest{Question: m["question"], Context: m["context"]}
	return nil
}

// AdviceRequest is a cleaned mentor request.
type AdviceRequest struct {
	Question string
	Context  map[string]any
}

// NormalizeMentorRequest substitutes the default question for a missing or
// blank one and an empty context for a non-object one.
func NormalizeMentorRequest(req MentorRequest) AdviceRequest {
	question, ok := parseString(req.Question)
	if !ok || strings.TrimSpace(question) == "" {
		question = DefaultQuestion
	}

	var ctx map[string]any
	if err := json.Unmarshal(req.Context, &ctx); err != nil || ctx == nil {
		ctx = map[string]any{}
	}
	return AdviceRequest{Question: question, Context: ctx}
}

// Validate reports whether the request can be rendered into a remote prompt.
// A params entry, when present, must be an object; null counts as present.
func (r AdviceRequest) Validate() error {
	p, ok := r.Context["params"]
	if !ok {
		return nil
	}
	if _, isObject := p.(map[string]any); !isObject {
		return ErrInvalidContextParams
	}
	return nil
}

// Prompt renders the text sent to the remote model. It is deterministic for a
// given request and doubles as the answer cache key.
func (r AdviceRequest) Prompt() string {
	soil := r.contextValue("soil", string(SoilAlluvial))
	params := r.contextValue("params", map[string]any{})
	practices := r.contextValue("practices", map[string]any{})

	weather := any(string(WeatherNormal))
	if p, ok := r.Context["params"].(map[string]any); ok {
		if w, ok := p["weather"]; ok {
			weather = w
		}
	}

	return fmt.Sprintf(
		"%s\n\nYou are a sustainable farming mentor. Soil: %s. Params: %s. "+
			"Practices: %s. Weather: %s. "+
			"Give concise, practical advice (3-5 sentences).",
		r.Question, promptValue(soil), promptValue(params), promptValue(practices), promptValue(weather),
	)
}

func (r AdviceRequest) contextValue(key string, def any) any {
	if v, ok := r.Context[key]; ok {
		return v
	}
	return def
}

// promptValue prints strings verbatim and everything else as compact JSON.
// encoding/json sorts map keys, which keeps prompts stable.
func promptValue(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}
