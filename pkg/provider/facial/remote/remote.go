// Package remote implements facial.Analyzer against an HTTP vision service.
//
// The service accepts a JPEG frame and responds with a JSON document using
// the same field names as metrics.FacialMetrics. Any vision stack can sit
// behind the endpoint as long as it speaks this contract.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/podiumlabs/podium/pkg/metrics"
	"github.com/podiumlabs/podium/pkg/provider/facial"
)

// defaultTimeout bounds one analysis round trip. Frame analysis that takes
// longer than this is useless to the real-time loop anyway.
const defaultTimeout = 2 * time.Second

// Analyzer implements facial.Analyzer using an HTTP vision service.
type Analyzer struct {
	client   *http.Client
	endpoint string
}

// config holds optional configuration for the analyzer.
type config struct {
	timeout time.Duration
	client  *http.Client
}

// Option is a functional option for Analyzer.
type Option func(*config)

// WithTimeout sets the per-request timeout. Ignored when WithHTTPClient is
// also given.
func WithTimeout(d time.Duration) Option {
	return func(c *config) { c.timeout = d }
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *config) { c.client = client }
}

// New creates an Analyzer posting frames to the given endpoint URL.
func New(endpoint string, opts ...Option) (*Analyzer, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("facial: endpoint must not be empty")
	}

	cfg := &config{timeout: defaultTimeout}
	for _, o := range opts {
		o(cfg)
	}

	client := cfg.client
	if client == nil {
		client = &http.Client{Timeout: cfg.timeout}
	}
	return &Analyzer{client: client, endpoint: endpoint}, nil
}

// AnalyzeFrame implements facial.Analyzer.
func (a *Analyzer) AnalyzeFrame(ctx context.Context, frameJPEG []byte) (metrics.FacialMetrics, error) {
	if len(frameJPEG) == 0 {
		return metrics.FacialMetrics{}, fmt.Errorf("facial: empty frame")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint, bytes.NewReader(frameJPEG))
	if err != nil {
		return metrics.FacialMetrics{}, fmt.Errorf("facial: build request: %w", err)
	}
	req.Header.Set("Content-Type", "image/jpeg")

	resp, err := a.client.Do(req)
	if err != nil {
		return metrics.FacialMetrics{}, fmt.Errorf("facial: analyze frame: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return metrics.FacialMetrics{}, fmt.Errorf("facial: service returned %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}

	var m metrics.FacialMetrics
	if err := json.NewDecoder(resp.Body).Decode(&m); err != nil {
		return metrics.FacialMetrics{}, fmt.Errorf("facial: decode response: %w", err)
	}
	if m.Emotion == "" {
		m.Emotion = metrics.EmotionUnknown
	}
	return m, nil
}

// Ensure Analyzer implements facial.Analyzer at compile time.
var _ facial.Analyzer = (*Analyzer)(nil)
