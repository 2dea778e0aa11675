// Package vast is a minimal client for the Vast.ai rental API: offer
// search, instance launch with an onstart bootstrap script, run-state
// polling with a health gate, and teardown.
package vast

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"
)

// DefaultAPIBase is the production Vast.ai REST endpoint.
const DefaultAPIBase = "https://console.vast.ai/api/v0"

// Client talks to the Vast.ai REST API.
type Client struct {
	apiKey string
	base   string
	http   *http.Client
}

// New builds a client against the production API.
func New(apiKey string) *Client { return NewWithBase(apiKey, DefaultAPIBase) }

// NewWithBase builds a client against a custom endpoint (tests).
func NewWithBase(apiKey, base string) *Client {
	return &Client{
		apiKey: apiKey,
		base:   strings.TrimRight(base, "/"),
		http:   &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rdr)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("vast API %s %s: %s: %s", method, path, resp.Status, strings.TrimSpace(string(b)))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// VerifyAuth checks the API key against the current-user endpoint.
func (c *Client) VerifyAuth(ctx context.Context) error {
	if c.apiKey == "" {
		return fmt.Errorf("vast API key not configured")
	}
	return c.do(ctx, http.MethodGet, "/users/current/", nil, &struct{}{})
}

// Offer is one rentable machine offer.
type Offer struct {
	ID           int64   `json:"id"`
	GPUName      string  `json:"gpu_name"`
	NumGPUs      int     `json:"num_gpus"`
	GPURamMB     float64 `json:"gpu_ram"`
	PricePerHour float64 `json:"dph_total"`
	Reliability  float64 `json:"reliability2"`
}

// OfferQuery filters the offer search. GPUType uses underscore naming
// ("RTX_3090"); it is normalized to the market's spaced form.
type OfferQuery struct {
	GPUType       string
	GPUCount      int
	MinGPURamGB   int
	Interruptible bool
}

// SearchOffers lists matching verified offers sorted by price ascending.
func (c *Client) SearchOffers(ctx context.Context, q OfferQuery) ([]Offer, error) {
	gpuName := strings.ReplaceAll(q.GPUType, "_", " ")
	count := q.GPUCount
	if count == 0 {
		count = 1
	}
	rentType := "on-demand"
	if q.Interruptible {
		rentType = "bid"
	}
	filter := map[string]any{
		"verified":     map[string]any{"eq": true},
		"rentable":     map[string]any{"eq": true},
		"gpu_name":     map[string]any{"eq": gpuName},
		"num_gpus":     map[string]any{"eq": count},
		"gpu_ram":      map[string]any{"gte": q.MinGPURamGB * 1024},
		"disk_space":   map[string]any{"gte": 20},
		"inet_down":    map[string]any{"gte": 200},
		"reliability2": map[string]any{"gte": 0.85},
		"type":         rentType,
	}
	fb, err := json.Marshal(filter)
	if err != nil {
		return nil, err
	}

	var payload struct {
		Offers []Offer `json:"offers"`
	}
	path := "/bundles?q=" + url.QueryEscape(string(fb))
	if err := c.do(ctx, http.MethodGet, path, nil, &payload); err != nil {
		return nil, err
	}

	// The market occasionally returns near-misses; re-filter locally.
	offers := payload.Offers[:0]
	for _, o := range payload.Offers {
		if o.GPUName != gpuName || o.NumGPUs != count {
			continue
		}
		if o.GPURamMB/1024 < float64(q.MinGPURamGB) {
			continue
		}
		offers = append(offers, o)
	}
	sort.Slice(offers, func(i, j int) bool { return offers[i].PricePerHour < offers[j].PricePerHour })
	return offers, nil
}

// LaunchRequest describes the instance to create on an accepted offer.
type LaunchRequest struct {
	Image   string
	DiskGB  float64
	Onstart string
}

// LaunchInstance accepts an offer and returns the new instance id.
func (c *Client) LaunchInstance(ctx context.Context, offerID int64, req LaunchRequest) (int64, error) {
	if req.DiskGB == 0 {
		req.DiskGB = 40
	}
	payload := map[string]any{
		"client_id":       "me",
		"image":           req.Image,
		"env":             map[string]string{},
		"disk":            req.DiskGB,
		"onstart":         req.Onstart,
		"runtype":         "ssh",
		"use_jupyter_lab": false,
	}
	var out struct {
		Success     bool  `json:"success"`
		NewContract int64 `json:"new_contract"`
		ID          int64 `json:"id"`
	}
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/asks/%d/", offerID), payload, &out); err != nil {
		return 0, err
	}
	if !out.Success {
		return 0, fmt.Errorf("vast launch on offer %d rejected", offerID)
	}
	if out.NewContract != 0 {
		return out.NewContract, nil
	}
	return out.ID, nil
}

// Instance is the live view of a rented machine.
type Instance struct {
	ID           int64                    `json:"id"`
	ActualStatus string                   `json:"actual_status"`
	PublicIP     string                   `json:"public_ipaddr"`
	PricePerHour float64                  `json:"dph_total"`
	GPUName      string                   `json:"gpu_name"`
	NumGPUs      int                      `json:"num_gpus"`
	Ports        map[string][]portBinding `json:"ports"`
}

type portBinding struct {
	HostPort string `json:"HostPort"`
}

// APIURL resolves the externally mapped address of the serving port, or
// "" while the mapping is not yet published.
func (i Instance) APIURL() string {
	bindings := i.Ports[fmt.Sprintf("%d/tcp", 8000)]
	if len(bindings) == 0 || i.PublicIP == "" {
		return ""
	}
	return fmt.Sprintf("http://%s:%s", i.PublicIP, bindings[0].HostPort)
}

// GetInstance fetches the current state of one instance.
func (c *Client) GetInstance(ctx context.Context, id int64) (*Instance, error) {
	var payload struct {
		Instances []Instance `json:"instances"`
	}
	if err := c.do(ctx, http.MethodGet, "/instances", nil, &payload); err != nil {
		return nil, err
	}
	for i := range payload.Instances {
		if payload.Instances[i].ID == id {
			return &payload.Instances[i], nil
		}
	}
	return nil, fmt.Errorf("instance %d not found", id)
}

// WaitRunning polls until the instance is running with a published API
// port, then returns it. Health gating of the application itself is the
// caller's responsibility (bootstrap.WaitHealthy).
func (c *Client) WaitRunning(ctx context.Context, id int64, timeout time.Duration) (*Instance, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		inst, err := c.GetInstance(ctx, id)
		if err == nil && inst.ActualStatus == "running" && inst.APIURL() != "" {
			return inst, nil
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("instance %d not running within %s", id, timeout)
		case <-ticker.C:
		}
	}
}

// DestroyInstance tears down a rented instance. Best-effort on the
// server side; an API error is still reported to the caller.
func (c *Client) DestroyInstance(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/instances/%d/", id), nil, nil)
}
