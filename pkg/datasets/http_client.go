package datasets

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	dashboard "github.com/goliatone/go-reports-dashboard/components/dashboard"
)

// maxErrorBody caps how much of a failed response ends up in the error.
const maxErrorBody = 4 << 10

// HTTPConfig configures the HTTP dataset client.
type HTTPConfig struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

// HTTPClient fetches datasets from a remote reporting API.
type HTTPClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

var _ dashboard.DatasetProvider = (*HTTPClient)(nil)

// NewHTTPClient builds a client for GET {base}/datasets/{source}.
func NewHTTPClient(cfg HTTPConfig) (*HTTPClient, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("datasets: base url is required")
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		client:  httpClient,
	}, nil
}

type datasetPoint struct {
	Name  string      `json:"name"`
	Value json.Number `json:"value"`
	Fill  string      `json:"fill,omitempty"`
}

// Dataset implements dashboard.DatasetProvider.
func (c *HTTPClient) Dataset(ctx context.Context, source dashboard.DataSource) ([]dashboard.DataPoint, error) {
	endpoint := c.baseURL + "/datasets/" + url.PathEscape(string(source))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("datasets: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("datasets: http request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSource, source)
	}
	if resp.StatusCode >= 300 {
		var buf bytes.Buffer
		_, _ = buf.ReadFrom(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("datasets: remote error %d: %s", resp.StatusCode, strings.TrimSpace(buf.String()))
	}
	var raw []datasetPoint
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("datasets: decode %s: %w", source, err)
	}
	points := make([]dashboard.DataPoint, 0, len(raw))
	for _, item := range raw {
		value, err := item.Value.Float64()
		if err != nil {
			return nil, fmt.Errorf("datasets: %s point %q has non-numeric value %q", source, item.Name, item.Value)
		}
		points = append(points, dashboard.DataPoint{Name: item.Name, Value: value, Fill: item.Fill})
	}
	return points, nil
}
