package checkout

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// HTTPProcessor confirms payments against the processor's REST endpoint.
type HTTPProcessor struct {
	baseURL    string
	httpClient *http.Client
}

func NewHTTPProcessor(baseURL string) *HTTPProcessor {
	return &HTTPProcessor{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

func (p *HTTPProcessor) Confirm(ctx context.Context, clientSecret, method string) (*Confirmation, error) {
	body, err := json.Marshal(map[string]string{
		"client_secret":  clientSecret,
		"payment_method": method,
	})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/confirm", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	var conf Confirmation
	if err := json.NewDecoder(resp.Body).Decode(&conf); err != nil {
		return nil, fmt.Errorf("decode response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode >= 400 && conf.Status == "" {
		conf.Status = "failed"
	}
	return &conf, nil
}
