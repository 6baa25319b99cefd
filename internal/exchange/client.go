package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/amirphl/price-feed/internal/utils"
)

// Router holds the process-wide gateway configuration and the per-host
// rotation state. With no gateways configured every request goes out
// directly.
type Router struct {
	mu    sync.Mutex
	urls  []string
	key   string
	hosts map[string]int
}

func NewRouter() *Router {
	return &Router{hosts: map[string]int{}}
}

// Configure replaces the gateway endpoint list and validation key. An empty
// list clears the configuration and resets rotation state.
func (r *Router) Configure(urls []string, validationKey string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hosts = map[string]int{}
	if len(urls) == 0 {
		r.urls, r.key = nil, ""
		return
	}
	r.urls = append([]string(nil), urls...)
	r.key = validationKey
}

// Clear removes any configured gateways.
func (r *Router) Clear() {
	r.Configure(nil, "")
}

// route picks the gateway for the destination host. Hosts keep a sticky
// index that advances round-robin on every subsequent request.
func (r *Router) route(rawURL string) (gateway, key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.urls) == 0 {
		return "", ""
	}
	if len(r.urls) == 1 {
		return r.urls[0], r.key
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return r.urls[0], r.key
	}
	idx, seen := r.hosts[u.Host]
	if !seen {
		r.hosts[u.Host] = 0
		return r.urls[0], r.key
	}
	idx = (idx + 1) % len(r.urls)
	r.hosts[u.Host] = idx
	return r.urls[idx], r.key
}

// forget drops the rotation entry for a host after a successful request.
func (r *Router) forget(rawURL string) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return
	}
	r.mu.Lock()
	delete(r.hosts, u.Host)
	r.mu.Unlock()
}

// Client is the shared outbound dispatch layer: one pooled http.Client and
// the gateway router. Per-request timeouts come from the caller's context.
type Client struct {
	httpClient *http.Client
	router     *Router
}

func NewClient(router *Router) *Client {
	if router == nil {
		router = NewRouter()
	}
	return &Client{
		httpClient: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 50,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		router: router,
	}
}

// GetJSON performs a GET against rawURL, routed through a gateway when one
// is configured, and decodes the JSON body into out.
func (c *Client) GetJSON(ctx context.Context, rawURL string, out any) error {
	gateway, key := c.router.route(rawURL)
	requestURL := rawURL
	if gateway != "" {
		requestURL = gateway + "/gateway?url=" + url.QueryEscape(rawURL)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return fmt.Errorf("building request %s: %w", rawURL, err)
	}
	if gateway != "" && key != "" {
		req.Header.Set("x-gateway-validation", key)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", rawURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("request %s: unexpected status %d", rawURL, resp.StatusCode)
	}
	c.router.forget(rawURL)
	if elapsed := time.Since(start); elapsed > time.Second {
		utils.GetLogger().Printf("Exchange | Request to %s took %v", rawURL, elapsed)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s: %w", rawURL, err)
	}
	return nil
}
