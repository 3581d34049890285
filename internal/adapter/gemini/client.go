package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/couchcryptid/crop-advisor-service/internal/domain"
	"github.com/couchcryptid/crop-advisor-service/internal/observability"
	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"
)

// DefaultBaseURL is the public Generative Language API root.
const DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// answerPath locates the first candidate's first text part in a generateContent response.
const answerPath = "candidates.0.content.parts.0.text"

var errEmptyAnswer = errors.New("no answer text in response")

// Options configures a Client.
type Options struct {
	APIKey     string
	Model      string
	BaseURL    string
	Timeout    time.Duration
	RetryCount int
}

// Client implements domain.Advisor using the Gemini generateContent API.
type Client struct {
	apiKey  string
	model   string
	http    *resty.Client
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewClient creates a Gemini advice client. An empty APIKey yields a client
// that always answers with the unconfigured fallback.
func NewClient(opts Options, metrics *observability.Metrics, logger *slog.Logger) *Client {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(opts.Timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetRetryCount(opts.RetryCount).
		SetRetryWaitTime(200 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second)
	httpClient.AddRetryCondition(retryCondition)

	return &Client{
		apiKey:  opts.APIKey,
		model:   opts.Model,
		http:    httpClient,
		metrics: metrics,
		logger:  logger,
	}
}

// Advise asks the model for an answer to the rendered prompt. Transport
// errors, non-2xx responses, and responses without text all degrade to the
// failed fallback.
func (c *Client) Advise(ctx context.Context, req domain.AdviceRequest) domain.Advice {
	if c.apiKey == "" {
		return domain.UnconfiguredAdvice()
	}
	if err := req.Validate(); err != nil {
		c.logger.Warn("gemini advice skipped", "error", err)
		return domain.FailedAdvice()
	}

	answer, err := c.generate(ctx, req.Prompt())
	if err != nil {
		c.logger.Warn("gemini advice failed", "model", c.model, "error", err)
		return domain.FailedAdvice()
	}
	return domain.Advice{Answer: answer, Source: domain.AdviceRemote}
}

func (c *Client) generate(ctx context.Context, prompt string) (string, error) {
	body := generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
	}

	start := time.Now()
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("key", c.apiKey).
		SetBody(body).
		Post(fmt.Sprintf("/models/%s:generateContent", url.PathEscape(c.model)))
	c.metrics.AdviceAPIDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		// url.Error carries the request URL, which includes the API key.
		var uerr *url.Error
		if errors.As(err, &uerr) {
			err = uerr.Err
		}
		return "", fmt.Errorf("generate content request: %w", err)
	}

	if resp.StatusCode() != http.StatusOK {
		return "", fmt.Errorf("gemini API error: status %d", resp.StatusCode())
	}

	raw := resp.Body()
	if !gjson.ValidBytes(raw) {
		return "", errors.New("decode response: invalid JSON")
	}
	text := gjson.GetBytes(raw, answerPath)
	if text.Type != gjson.String || strings.TrimSpace(text.String()) == "" {
		return "", errEmptyAnswer
	}
	return text.String(), nil
}

// retryCondition retries transport errors, server errors, and throttling.
func retryCondition(r *resty.Response, err error) bool {
	if err != nil {
		return true
	}
	if r == nil {
		return false
	}
	code := r.StatusCode()
	return code >= 500 || code == http.StatusTooManyRequests || code == http.StatusRequestTimeout
}

// Gemini API request types.

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}
