// Package matting calls the subject segmentation service. For each source
// image the service returns the cut-out subject (RGBA) and a confidence
// mask (grayscale, 255 = subject).
package matting

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"restager/imaging"
)

var (
	// ErrEmptyResponse indicates the service replied without either payload.
	ErrEmptyResponse = errors.New("matting: empty response payload")
)

// DefaultTimeout covers the full segmentation round trip. Large product
// photos on a cold model can take well over a minute.
const DefaultTimeout = 180 * time.Second

// Result holds one segmentation outcome.
type Result struct {
	// Subject is the cut-out subject with transparency outside it.
	Subject *image.RGBA
	// Foreground is the per-pixel confidence mask, 255 = subject.
	Foreground *image.Gray
}

// Client talks to the segmentation service over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient returns a client for the service at baseURL.
// A zero timeout falls back to DefaultTimeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// response mirrors the service's JSON body. Both fields are base64-encoded
// PNGs, optionally carrying a data-URI prefix.
type response struct {
	SubjectPNGB64 string `json:"rgba_png_b64"`
	MaskPNGB64    string `json:"mask_png_b64"`
}

// Segment uploads the encoded image and returns the subject cut-out and
// confidence mask at the source resolution.
func (c *Client) Segment(ctx context.Context, imageBytes []byte, filename string) (*Result, error) {
	if len(imageBytes) == 0 {
		return nil, errors.New("matting: empty input image")
	}
	if filename == "" {
		filename = "image.png"
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("image", filename)
	if err != nil {
		return nil, fmt.Errorf("matting: build form: %w", err)
	}
	if _, err := part.Write(imageBytes); err != nil {
		return nil, fmt.Errorf("matting: build form: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("matting: build form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/matting", &body)
	if err != nil {
		return nil, fmt.Errorf("matting: build request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("matting: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("matting: service returned status %d", resp.StatusCode)
	}

	var payload response
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("matting: decode response: %w", err)
	}
	if payload.SubjectPNGB64 == "" || payload.MaskPNGB64 == "" {
		return nil, ErrEmptyResponse
	}

	subjectImg, err := decodeBase64Image(payload.SubjectPNGB64)
	if err != nil {
		return nil, fmt.Errorf("matting: decode subject: %w", err)
	}
	maskImg, err := decodeBase64Image(payload.MaskPNGB64)
	if err != nil {
		return nil, fmt.Errorf("matting: decode mask: %w", err)
	}

	return &Result{
		Subject:    imaging.ToRGBA(subjectImg),
		Foreground: imaging.ToGray(maskImg),
	}, nil
}

// decodeBase64Image accepts a raw base64 string or a data URI
// ("data:image/png;base64,...") and decodes the embedded image.
func decodeBase64Image(b64 string) (image.Image, error) {
	if idx := strings.Index(b64, ","); idx >= 0 && strings.HasPrefix(b64, "data:") {
		b64 = b64[idx+1:]
	}
	data, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, err
	}
	return imaging.Decode(data)
}
