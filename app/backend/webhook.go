package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"
)

type WebhookClient struct {
	url    string
	poster *Poster
}

func NewWebhookClient(url, apiKey string, timeout time.Duration) *WebhookClient {
	headers := http.Header{}
	if key := strings.TrimSpace(apiKey); key != "" {
		headers.Set("X-API-Key", key)
	}
	return &WebhookClient{
		url:    strings.TrimSpace(url),
		poster: NewPoster(timeout, headers),
	}
}

func (c *WebhookClient) URL() string {
	return c.url
}

func (c *WebhookClient) Poster() *Poster {
	return c.poster
}

// Forward posts payload to the backend webhook. A non-JSON reply is returned
// as a JSON string.
func (c *WebhookClient) Forward(ctx context.Context, payload []byte) (json.RawMessage, error) {
	body, err := c.poster.PostJSON(ctx, c.url, payload)
	if err != nil {
		return nil, err
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil, nil
	}
	if json.Valid(body) {
		return json.RawMessage(body), nil
	}
	encoded, _ := json.Marshal(string(body))
	return json.RawMessage(encoded), nil
}
