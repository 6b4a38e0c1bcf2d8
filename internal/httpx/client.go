// Package httpx is the outbound HTTP client behind every node that talks to
// a provider's REST API directly instead of through an SDK. Non-2xx responses
// come back as classified provider errors with the upstream status and body
// kept verbatim.
package httpx

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

	"github.com/rs/zerolog"

	"github.com/nodeloom/nodeloom/pkg/domain"
)

const defaultTimeout = 30 * time.Second

type ClientDependencies struct {
	HTTPClient *http.Client
	Logger     zerolog.Logger
}

type Client struct {
	httpClient *http.Client
	service    string
	logger     zerolog.Logger
}

func NewClient(deps ClientDependencies) *Client {
	httpClient := deps.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}

	return &Client{
		httpClient: httpClient,
		logger:     deps.Logger,
	}
}

var _ domain.HTTPDoer = (*Client)(nil)

// ForService returns a view of the client that tags provider errors with the
// given service name. The underlying transport is shared.
func (c *Client) ForService(service string) *Client {
	tagged := *c
	tagged.service = service
	return &tagged
}

func (c *Client) Get(ctx context.Context, url string, headers map[string]string) (map[string]any, error) {
	return c.do(ctx, http.MethodGet, url, nil, headers)
}

func (c *Client) Post(ctx context.Context, url string, body any, headers map[string]string) (map[string]any, error) {
	return c.do(ctx, http.MethodPost, url, body, headers)
}

func (c *Client) PostForm(ctx context.Context, target string, form url.Values, headers map[string]string) (map[string]any, error) {
	merged := map[string]string{"Content-Type": "application/x-www-form-urlencoded"}
	for key, value := range headers {
		merged[key] = value
	}
	return c.doRaw(ctx, http.MethodPost, target, strings.NewReader(form.Encode()), merged)
}

func (c *Client) Put(ctx context.Context, url string, body any, headers map[string]string) (map[string]any, error) {
	return c.do(ctx, http.MethodPut, url, body, headers)
}

func (c *Client) Patch(ctx context.Context, url string, body any, headers map[string]string) (map[string]any, error) {
	return c.do(ctx, http.MethodPatch, url, body, headers)
}

func (c *Client) Delete(ctx context.Context, url string, headers map[string]string) (map[string]any, error) {
	return c.do(ctx, http.MethodDelete, url, nil, headers)
}

func (c *Client) do(ctx context.Context, method, url string, body any, headers map[string]string) (map[string]any, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(encoded)

		merged := map[string]string{"Content-Type": "application/json"}
		for key, value := range headers {
			merged[key] = value
		}
		headers = merged
	}

	return c.doRaw(ctx, method, url, reader, headers)
}

func (c *Client) doRaw(ctx context.Context, method, url string, body io.Reader, headers map[string]string) (map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &domain.ProviderError{Service: c.service, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.ProviderError{Service: c.service, StatusCode: resp.StatusCode, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Debug().
			Str("service", c.service).
			Str("method", method).
			Int("status_code", resp.StatusCode).
			Msg("Provider request failed")

		return nil, &domain.ProviderError{
			Service:    c.service,
			StatusCode: resp.StatusCode,
			Body:       string(respBody),
		}
	}

	return decodeResponse(respBody), nil
}

// decodeResponse normalizes whatever the provider sent into a map. JSON
// objects pass through; arrays and scalars are wrapped under "data"; anything
// that is not JSON comes back raw.
func decodeResponse(body []byte) map[string]any {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return map[string]any{}
	}

	var decoded any
	if err := json.Unmarshal(trimmed, &decoded); err != nil {
		return map[string]any{"raw": string(body)}
	}

	if object, ok := decoded.(map[string]any); ok {
		return object
	}

	return map[string]any{"data": decoded}
}
