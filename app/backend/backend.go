package backend

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"
)

var (
	ErrNotConfigured      = errors.New("backend endpoint is not configured")
	ErrBackendUnavailable = errors.New("backend call failed")
)

// Poster sends a JSON body to a URL and returns the response body on 2xx.
// The outbox dispatcher reuses it to replay stored webhook forwards.
type Poster struct {
	client  *http.Client
	headers http.Header
}

func NewPoster(timeout time.Duration, headers http.Header) *Poster {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if headers == nil {
		headers = http.Header{}
	}
	return &Poster{
		client:  &http.Client{Timeout: timeout},
		headers: headers.Clone(),
	}
}

func (p *Poster) PostJSON(ctx context.Context, targetURL string, body []byte) ([]byte, error) {
	targetURL = strings.TrimSpace(targetURL)
	if targetURL == "" {
		return nil, ErrNotConfigured
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, targetURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for key, values := range p.headers {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: status=%d body=%s", ErrBackendUnavailable, resp.StatusCode, truncate(string(respBody), 512))
	}

	return respBody, nil
}

// truncate cuts value to at most max bytes without splitting a rune.
func truncate(value string, max int) string {
	if len(value) <= max {
		return value
	}
	for max > 0 && !utf8.RuneStart(value[max]) {
		max--
	}
	return value[:max]
}
