package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

type Label struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

type ClassifierClient interface {
	Classify(ctx context.Context, imageURL string) ([]Label, error)
}

type ClassifierConfig struct {
	URL     string
	APIKey  string
	Timeout time.Duration
}

type classifierClient struct {
	url    string
	apiKey string
	client *http.Client
}

// NewClassifierClient returns nil when no endpoint is configured.
func NewClassifierClient(config ClassifierConfig) ClassifierClient {
	if config.URL == "" {
		return nil
	}
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &classifierClient{
		url:    config.URL,
		apiKey: config.APIKey,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

type classifyRequest struct {
	ImageURL string `json:"image_url"`
}

type classifyResponse struct {
	Labels []Label `json:"labels"`
}

func (c *classifierClient) Classify(ctx context.Context, imageURL string) ([]Label, error) {
	body, err := json.Marshal(classifyRequest{ImageURL: imageURL})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "HelpLink-Dashboard/1.0")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("classifier returned status %d: %s", resp.StatusCode, string(msg))
	}

	var data classifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("decode JSON: %w", err)
	}

	return data.Labels, nil
}
