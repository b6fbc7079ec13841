// Package painter calls the generative edit API. An edit submits the base
// image plus an optional mask and receives a regenerated image back; the
// API's response shape varies by provider, so parsing accepts every shape
// seen in the wild.
package painter

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

var (
	// ErrNotConfigured indicates the edit URL or token is missing.
	ErrNotConfigured = errors.New("painter: not configured (need edit URL and token)")
	// ErrMissingOutput indicates a 200 response with no usable output item.
	ErrMissingOutput = errors.New("painter: edit response missing output")
)

// DefaultNegativePrompt is applied when the caller supplies no negative
// prompt of its own.
const DefaultNegativePrompt = "watermark, text overlay, subtitles, low quality, blurry, ugly, deformed, " +
	"extra limbs, bad anatomy"

// Retry policy for transient API failures.
const (
	DefaultMaxAttempts = 3
	DefaultTimeout     = 300 * time.Second
	fetchTimeout       = 60 * time.Second
	maxBackoff         = 12 * time.Second
)

// retryableStatus lists HTTP statuses worth another attempt.
var retryableStatus = map[int]bool{
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
	520:                            true, // Cloudflare origin error
}

// EditParams carries one edit request. Zero-valued numeric fields are sent
// as zero; callers are expected to fill them from the level presets.
type EditParams struct {
	Prompt         string
	NegativePrompt string
	GuidanceScale  float64
	InferenceSteps int
	PromptStrength float64
	OutputFormat   string
	// Mask restricts the edit to its white region. Nil means a full-image
	// edit.
	Mask []byte
}

// Client talks to the generative edit API with retry and rate limiting.
type Client struct {
	editURL     string
	token       string
	model       string
	maxAttempts int
	httpClient  *http.Client
	limiter     *rate.Limiter
	// sleep is swapped out in tests to avoid real backoff waits.
	sleep func(ctx context.Context, d time.Duration) error
}

// Options tune the client beyond its required endpoint settings.
type Options struct {
	// MaxAttempts caps retries per edit. Zero means DefaultMaxAttempts.
	MaxAttempts int
	// Timeout bounds a single HTTP round trip. Zero means DefaultTimeout.
	Timeout time.Duration
	// RequestsPerSecond throttles outbound edits across goroutines.
	// Zero disables throttling.
	RequestsPerSecond float64
	// Burst allows short bursts above the sustained rate. Zero means 1.
	Burst int
}

// NewClient returns a painter client. The model name is sent with every
// request so the provider routes to the right backend.
func NewClient(editURL, token, model string, opts Options) *Client {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Burst <= 0 {
		opts.Burst = 1
	}
	limiter := rate.NewLimiter(rate.Inf, opts.Burst)
	if opts.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), opts.Burst)
	}
	return &Client{
		editURL:     editURL,
		token:       token,
		model:       model,
		maxAttempts: opts.MaxAttempts,
		httpClient:  &http.Client{Timeout: opts.Timeout},
		limiter:     limiter,
		sleep:       sleepContext,
	}
}

// Configured reports whether the client has both an endpoint and a token.
func (c *Client) Configured() bool {
	return c.editURL != "" && c.token != ""
}

// Edit submits the image for regeneration and returns the resulting image
// bytes. Transient failures are retried with jittered exponential backoff.
func (c *Client) Edit(ctx context.Context, imageBytes []byte, params EditParams) ([]byte, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}
	if len(imageBytes) == 0 {
		return nil, errors.New("painter: empty input image")
	}

	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("painter: rate limit wait: %w", err)
		}

		output, retryable, err := c.editOnce(ctx, imageBytes, params)
		if err == nil {
			return output, nil
		}
		lastErr = err
		if !retryable || attempt >= c.maxAttempts {
			return nil, err
		}
		if err := c.sleep(ctx, c.backoff(attempt)); err != nil {
			return nil, err
		}
	}
	return nil, lastErr
}

// backoff grows linearly with jitter and is capped at maxBackoff. Jitter
// comes from the global rand source, which is safe for the concurrent
// retries the worker pool produces.
func (c *Client) backoff(attempt int) time.Duration {
	base := 0.8 * float64(attempt)
	jitter := rand.Float64() * 0.6 * float64(attempt)
	d := time.Duration((base + jitter) * float64(time.Second))
	if d > maxBackoff {
		d = maxBackoff
	}
	return d
}

// editOnce performs a single request. The bool result reports whether the
// failure is worth retrying.
func (c *Client) editOnce(ctx context.Context, imageBytes []byte, params EditParams) ([]byte, bool, error) {
	body, contentType, err := c.buildForm(imageBytes, params)
	if err != nil {
		return nil, false, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.editURL, body)
	if err != nil {
		return nil, false, fmt.Errorf("painter: build request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Connection-level failures (resets, timeouts) are transient.
		if ctx.Err() != nil {
			return nil, false, fmt.Errorf("painter: request failed: %w", err)
		}
		return nil, true, fmt.Errorf("painter: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		err := fmt.Errorf("painter: edit failed status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(data)))
		return nil, retryableStatus[resp.StatusCode], err
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, fmt.Errorf("painter: read response: %w", err)
	}

	item, err := extractOutputItem(data)
	if err != nil {
		return nil, false, err
	}
	out, err := c.resolveOutput(ctx, item)
	if err != nil {
		return nil, false, err
	}
	return out, false, nil
}

func (c *Client) buildForm(imageBytes []byte, params EditParams) (*bytes.Buffer, string, error) {
	negative := strings.TrimSpace(params.NegativePrompt)
	if negative == "" {
		negative = DefaultNegativePrompt
	}
	format := params.OutputFormat
	if format == "" {
		format = "png"
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("image", "input.png")
	if err != nil {
		return nil, "", fmt.Errorf("painter: build form: %w", err)
	}
	if _, err := part.Write(imageBytes); err != nil {
		return nil, "", fmt.Errorf("painter: build form: %w", err)
	}
	if params.Mask != nil {
		part, err := writer.CreateFormFile("mask", "mask.png")
		if err != nil {
			return nil, "", fmt.Errorf("painter: build form: %w", err)
		}
		if _, err := part.Write(params.Mask); err != nil {
			return nil, "", fmt.Errorf("painter: build form: %w", err)
		}
	}

	fields := map[string]string{
		"model":               c.model,
		"prompt":              params.Prompt,
		"negative_prompt":     negative,
		"guidance_scale":      strconv.FormatFloat(params.GuidanceScale, 'f', -1, 64),
		"num_inference_steps": strconv.Itoa(params.InferenceSteps),
		"prompt_strength":     strconv.FormatFloat(params.PromptStrength, 'f', -1, 64),
		"output_format":       format,
	}
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			return nil, "", fmt.Errorf("painter: build form: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("painter: build form: %w", err)
	}
	return &buf, writer.FormDataContentType(), nil
}

// resolveOutput turns the output item into image bytes. The item is a URL
// to fetch, a data URI, or raw base64.
func (c *Client) resolveOutput(ctx context.Context, item string) ([]byte, error) {
	switch {
	case strings.HasPrefix(item, "http://") || strings.HasPrefix(item, "https://"):
		return c.fetchURL(ctx, item)
	case strings.HasPrefix(item, "data:image"):
		idx := strings.Index(item, ",")
		if idx < 0 {
			return nil, fmt.Errorf("painter: malformed data URI in output")
		}
		data, err := base64.StdEncoding.DecodeString(item[idx+1:])
		if err != nil {
			return nil, fmt.Errorf("painter: decode output data URI: %w", err)
		}
		return data, nil
	default:
		data, err := base64.StdEncoding.DecodeString(item)
		if err != nil {
			return nil, fmt.Errorf("painter: decode output base64: %w", err)
		}
		return data, nil
	}
}

func (c *Client) fetchURL(ctx context.Context, url string) ([]byte, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(fetchCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("painter: build fetch request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("painter: fetch output: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("painter: fetch output status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
