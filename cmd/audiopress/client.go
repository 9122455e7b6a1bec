package main

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

	"audiopress/internal/api"
	"audiopress/internal/config"
)

// daemonClient talks to a running audiopressd over its HTTP API.
type daemonClient struct {
	baseURL string
	http    *http.Client
}

func newDaemonClient(cfg *config.Config) *daemonClient {
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if strings.HasPrefix(bind, ":") {
		bind = "127.0.0.1" + bind
	}
	return &daemonClient{
		baseURL: "http://" + bind,
		// Conversions run inside the request, so the client waits as
		// long as the daemon allows the job to run.
		http: &http.Client{Timeout: 16 * time.Minute},
	}
}

func (c *daemonClient) convert(ctx context.Context, payload api.ConvertRequest) (api.ConvertResponse, error) {
	var out api.ConvertResponse
	body, err := json.Marshal(payload)
	if err != nil {
		return out, err
	}
	err = c.do(ctx, http.MethodPost, "/api/convert", bytes.NewReader(body), &out)
	return out, err
}

func (c *daemonClient) metadata(ctx context.Context, rawURL string) (api.MetadataResponse, error) {
	var out api.MetadataResponse
	err := c.do(ctx, http.MethodGet, "/api/metadata?url="+url.QueryEscape(rawURL), nil, &out)
	return out, err
}

func (c *daemonClient) recent(ctx context.Context, limit int) (api.RecentResponse, error) {
	var out api.RecentResponse
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/recent?limit=%d", limit), nil, &out)
	return out, err
}

func (c *daemonClient) status(ctx context.Context) (api.StatusResponse, error) {
	var out api.StatusResponse
	err := c.do(ctx, http.MethodGet, "/api/status", nil, &out)
	return out, err
}

func (c *daemonClient) do(ctx context.Context, method, path string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("daemon unreachable at %s (is audiopressd running?): %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		var apiErr api.ErrorResponse
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s", apiErr.Error)
		}
		return fmt.Errorf("daemon returned %s", resp.Status)
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(data, out)
}
