package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const mentorInstruction = "Give concise, practical advice (3-5 sentences)."

func decodeMentor(t *testing.T, body string) AdviceRequest {
	t.Helper()
	var req MentorRequest
	require.NoError(t, json.Unmarshal([]byte(body), &req))
	return NormalizeMentorRequest(req)
}

func TestNormalizeMentorRequest_Question(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"kept", `{"question":"When should I sow wheat?"}`, "When should I sow wheat?"},
		{"missing", `{}`, DefaultQuestion},
		{"blank", `{"question":"   \n"}`, DefaultQuestion},
		{"non-string", `{"question":7}`, DefaultQuestion},
		{"null", `{"question":null}`, DefaultQuestion},
		{"mis-cased key", `{"Question":"When should I sow wheat?"}`, DefaultQuestion},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, decodeMentor(t, tt.body).Question)
		})
	}
}

func TestNormalizeMentorRequest_Context(t *testing.T) {
	t.Run("object kept", func(t *testing.T) {
		req := decodeMentor(t, `{"context":{"soil":"mountain"}}`)
		assert.Equal(t, map[string]any{"soil": "mountain"}, req.Context)
	})

	for _, body := range []string{`{}`, `{"context":null}`, `{"context":"alluvial"}`, `{"context":[1]}`, `{"Context":{"soil":"mountain"}}`} {
		t.Run(body, func(t *testing.T) {
			req := decodeMentor(t, body)
			assert.NotNil(t, req.Context)
			assert.Empty(t, req.Context)
		})
	}
}

func TestAdviceRequest_Prompt(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		req := decodeMentor(t, `{"question":"How do I improve yield?"}`)
		want := "How do I improve yield?\n\n" +
			"You are a sustainable farming mentor. Soil: alluvial. Params: {}. " +
			"Practices: {}. Weather: normal. " + mentorInstruction
		assert.Equal(t, want, req.Prompt())
	})

	t.Run("context values rendered", func(t *testing.T) {
		req := decodeMentor(t, `{
			"question":"Is my field ok?",
			"context":{
				"soil":"mountain",
				"params":{"weather":"drought","ph":6.2},
				"practices":{"compost":true,"mulching":false}
			}
		}`)
		want := "Is my field ok?\n\n" +
			`You are a sustainable farming mentor. Soil: mountain. Params: {"ph":6.2,"weather":"drought"}. ` +
			`Practices: {"compost":true,"mulching":false}. Weather: drought. ` + mentorInstruction
		assert.Equal(t, want, req.Prompt())
	})

	t.Run("non-object params leave weather at normal", func(t *testing.T) {
		req := decodeMentor(t, `{"question":"q","context":{"params":"wet"}}`)
		assert.Contains(t, req.Prompt(), "Params: wet.")
		assert.Contains(t, req.Prompt(), "Weather: normal.")
	})

	t.Run("stable across key order", func(t *testing.T) {
		a := decodeMentor(t, `{"question":"q","context":{"params":{"ph":6,"weather":"hail"}}}`)
		b := decodeMentor(t, `{"question":"q","context":{"params":{"weather":"hail","ph":6}}}`)
		assert.Equal(t, a.Prompt(), b.Prompt())
	})
}

func TestAdviceRequest_Validate(t *testing.T) {
	valid := []string{`{}`, `{"context":{}}`, `{"context":{"params":{}}}`, `{"context":{"soil":"mountain","params":{"ph":6}}}`}
	for _, body := range valid {
		t.Run(body, func(t *testing.T) {
			assert.NoError(t, decodeMentor(t, body).Validate())
		})
	}

	invalid := []string{`{"context":{"params":"wet"}}`, `{"context":{"params":[1]}}`, `{"context":{"params":null}}`, `{"context":{"params":3}}`}
	for _, body := range invalid {
		t.Run(body, func(t *testing.T) {
			assert.ErrorIs(t, decodeMentor(t, body).Validate(), ErrInvalidContextParams)
		})
	}
}

func TestFallbackAdviceDistinct(t *testing.T) {
	u := UnconfiguredAdvice()
	f := FailedAdvice()

	assert.Equal(t, AdviceUnconfigured, u.Source)
	assert.Equal(t, AdviceFailed, f.Source)
	assert.NotEqual(t, u.Answer, f.Answer)
	assert.Contains(t, u.Answer, "Prioritize natural fertilizers")
	assert.Contains(t, f.Answer, "Use compost and mulching")
}
