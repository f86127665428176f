// Package speech is the client for the external text-to-speech service. The
// call is charge-free and gated only by authentication.
package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

type Client struct {
	baseURL    string
	httpClient *retryablehttp.Client
}

type Result struct {
	Audio       []byte
	ContentType string
}

func NewClient(baseURL string) *Client {
	httpClient := retryablehttp.NewClient()
	httpClient.RetryMax = 2
	httpClient.RetryWaitMin = 100 * time.Millisecond
	httpClient.RetryWaitMax = time.Second
	httpClient.HTTPClient.Timeout = 10 * time.Second
	httpClient.Logger = nil
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

func (c *Client) Synthesize(ctx context.Context, text string) (Result, error) {
	if c == nil || c.baseURL == "" {
		return Result{}, fmt.Errorf("speech client not configured")
	}

	body, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return Result{}, fmt.Errorf("encode request: %w", err)
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/synthesize", bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}
	audio, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return Result{}, fmt.Errorf("read response: %w", err)
	}
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "audio/mpeg"
	}
	return Result{Audio: audio, ContentType: contentType}, nil
}
