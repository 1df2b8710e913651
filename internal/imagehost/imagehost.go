// Package imagehost uploads screenshots to freeimage.host.
package imagehost

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"regexp"

	"github.com/pbaille/autojournal/internal/breaker"
)

const freeImageAPI = "https://freeimage.host/api/1/upload"

// minPayload is the shortest base64 payload accepted for upload.
const minPayload = 100

// ErrInvalidImage is returned for payloads too short to be an image.
var ErrInvalidImage = errors.New("invalid image data")

var dataURIPrefix = regexp.MustCompile(`^data:image/(png|jpe?g|gif|webp);base64,`)

// StripDataURI removes a recognised "data:image/...;base64," prefix.
func StripDataURI(s string) string {
	return dataURIPrefix.ReplaceAllString(s, "")
}

// Client uploads images
type Client struct {
	apiKey  string
	baseURL string
	client  *http.Client
	guard   *breaker.Guard
}

// New creates a Client. guard may be nil.
func New(apiKey, baseURL string, guard *breaker.Guard) *Client {
	if baseURL == "" {
		baseURL = freeImageAPI
	}
	return &Client{
		apiKey:  apiKey,
		baseURL: baseURL,
		client:  &http.Client{},
		guard:   guard,
	}
}

// Enabled reports whether an API key is configured.
func (c *Client) Enabled() bool {
	return c.apiKey != ""
}

type uploadResponse struct {
	StatusCode int `json:"status_code"`
	Image      *struct {
		URL string `json:"url"`
	} `json:"image"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Upload sends a base64 image (data URI prefix allowed) and returns its
// hosted URL.
func (c *Client) Upload(ctx context.Context, image string) (string, error) {
	image = StripDataURI(image)
	if len(image) < minPayload {
		return "", ErrInvalidImage
	}
	if !c.Enabled() {
		return "", fmt.Errorf("image host api key not set")
	}
	if c.guard == nil {
		return c.upload(ctx, image)
	}
	return breaker.Call(ctx, c.guard, func(ctx context.Context) (string, error) {
		return c.upload(ctx, image)
	})
}

func (c *Client) upload(ctx context.Context, image string) (string, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for _, f := range [][2]string{
		{"key", c.apiKey},
		{"source", image},
		{"action", "upload"},
		{"format", "json"},
	} {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return "", breaker.Permanent(fmt.Errorf("write form: %w", err))
		}
	}
	if err := w.Close(); err != nil {
		return "", breaker.Permanent(fmt.Errorf("close form: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, &body)
	if err != nil {
		return "", breaker.Permanent(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("upload failed (status %d): %s", resp.StatusCode, string(raw))
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return "", breaker.Permanent(err)
		}
		return "", err
	}

	var out uploadResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}
	if out.Image == nil || out.Image.URL == "" {
		if out.Error != nil {
			return "", fmt.Errorf("unexpected response: %s", out.Error.Message)
		}
		return "", fmt.Errorf("unexpected response: no image url")
	}
	return out.Image.URL, nil
}
