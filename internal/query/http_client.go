package query

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/harborai/beacon/internal/domain"
)

const defaultRequestTimeout = 10 * time.Second

// HTTPClient looks up progress records over the REST surface, for pollers
// running in a different process than the store.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

// NewHTTPClient creates a client against a beacon server, e.g.
// "http://localhost:8080". A nil httpClient uses a default with a 10s timeout.
func NewHTTPClient(baseURL string, httpClient *http.Client) *HTTPClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultRequestTimeout}
	}
	return &HTTPClient{baseURL: baseURL, client: httpClient}
}

// progressResponse mirrors the wire contract: absence of state denotes a key
// that is not yet visible, not an error.
type progressResponse struct {
	State *domain.ProgressState `json:"state,omitempty"`
	Error *string               `json:"error,omitempty"`
	Data  json.RawMessage       `json:"data,omitempty"`
}

// Lookup fetches GET /api/v1/progress?key=K.
func (c *HTTPClient) Lookup(ctx context.Context, key domain.ProgressKey) (*domain.ProgressRecord, bool, error) {
	u := fmt.Sprintf("%s/api/v1/progress?key=%s", c.baseURL, url.QueryEscape(string(key)))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, false, fmt.Errorf("progress request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, false, fmt.Errorf("progress request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, false, fmt.Errorf("progress request: unexpected status %d", resp.StatusCode)
	}

	var body progressResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, false, fmt.Errorf("progress response: %w", err)
	}
	if body.State == nil {
		return nil, false, nil
	}

	return &domain.ProgressRecord{
		State: *body.State,
		Error: body.Error,
		Data:  body.Data,
	}, true, nil
}
