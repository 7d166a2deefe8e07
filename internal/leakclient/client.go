// Package leakclient is a thin HTTP client for the leak-delivery server's
// three endpoints, used by cmd/leakdemo.
package leakclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/arc-self/leakchef-server/internal/httpapi"
)

// Client talks to a leak-delivery server on behalf of one customer.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// New constructs a Client. apiKey is the raw UUID bearer token; the
// "Bearer:" prefix is added on every request.
func New(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// LeakParams are the query parameters shared by GetLatestLeak and GetLeak.
type LeakParams struct {
	SupportedIdentifiers []string
	Filter               string
	Limit                int
}

func (p LeakParams) queryString() string {
	q := url.Values{}
	if len(p.SupportedIdentifiers) > 0 {
		q.Set("supported_identifiers", strings.Join(p.SupportedIdentifiers, ","))
	}
	if p.Filter != "" {
		q.Set("filter", p.Filter)
	}
	q.Set("limit", strconv.Itoa(p.Limit))
	return q.Encode()
}

// GetLatestLeak calls GET /leak.
func (c *Client) GetLatestLeak(ctx context.Context, params LeakParams) (httpapi.NormalReply, error) {
	return c.getLeak(ctx, "/leak", params)
}

// GetLeak calls GET /leak/{leak_id}.
func (c *Client) GetLeak(ctx context.Context, leakID string, params LeakParams) (httpapi.NormalReply, error) {
	return c.getLeak(ctx, "/leak/"+url.PathEscape(leakID), params)
}

func (c *Client) getLeak(ctx context.Context, path string, params LeakParams) (httpapi.NormalReply, error) {
	fullURL := c.baseURL + path + "?" + params.queryString()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return httpapi.NormalReply{}, fmt.Errorf("leakclient: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer:"+c.apiKey)

	var response httpapi.Response
	if err := c.do(req, &response); err != nil {
		return httpapi.NormalReply{}, err
	}

	if response.Reply.Kind != httpapi.ReplyKindNormal || response.Reply.Normal == nil {
		return httpapi.NormalReply{}, fmt.Errorf("leakclient: unexpected reply kind %q — check your api key", response.Reply.Kind)
	}
	return *response.Reply.Normal, nil
}

// SendResult calls POST /result.
func (c *Client) SendResult(ctx context.Context, leakID string, receivedIdentities, numberOfMatches uint32) error {
	body, err := json.Marshal(map[string]interface{}{
		"leak_id":             leakID,
		"received_identities": receivedIdentities,
		"number_of_matches":   numberOfMatches,
	})
	if err != nil {
		return fmt.Errorf("leakclient: marshal result body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/result", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("leakclient: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer:"+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	var response httpapi.Response
	return c.do(req, &response)
}

func (c *Client) do(req *http.Request, out *httpapi.Response) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("leakclient: send request: %w", err)
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("leakclient: decode response body: %w", err)
	}
	return nil
}
