// Package registry is an HTTP client for contractor license registry APIs.
// It implements resolve.RegistryClient over a simple JSON lookup surface.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/leadscope/lead-qualifier/internal/util"
	"github.com/leadscope/lead-qualifier/pkg/enrich"
	"github.com/leadscope/lead-qualifier/pkg/resolve"
)

// Client is a minimal HTTP client for the registry lookup endpoints used by
// the identity resolver.
type Client struct {
	baseURL *url.URL
	token   string
	http    *http.Client
}

// NewClient constructs a client for a registry base URL, e.g.
// "https://registry.example/api". token is optional; when set it is sent as a
// bearer token.
func NewClient(baseURL, token string) (*Client, error) {
	base, err := parseBaseURL(baseURL)
	if err != nil {
		return nil, err
	}
	return &Client{
		baseURL: base,
		token:   strings.TrimSpace(token),
		http:    &http.Client{Timeout: 30 * time.Second},
	}, nil
}

func parseBaseURL(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("registry base URL is required")
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse registry base URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("registry base URL must include a host (got %q)", raw)
	}
	// Ensure the base path ends with a slash so ResolveReference treats it
	// as a directory.
	u.Path = strings.TrimRight(u.Path, "/") + "/"
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}

// licenseResponse is the registry's record shape. Additional fields are
// intentionally ignored.
type licenseResponse struct {
	LicenseNumber string `json:"license_number"`
	HolderName    string `json:"holder_name"`
	Status        string `json:"status"`
}

// ByLicenseNumber looks up a record by its license number. A 404 response is
// reported as enrich.ErrUnavailable so the resolver treats the rung as a
// miss, not an abort.
func (c *Client) ByLicenseNumber(ctx context.Context, number string) (resolve.Record, error) {
	return c.lookup(ctx, "licenses/by-number", url.Values{"number": {number}})
}

// ByBusinessName looks up a record by normalized business name. The query may
// carry "name locality" when the caller scopes the search to a locality.
func (c *Client) ByBusinessName(ctx context.Context, name string) (resolve.Record, error) {
	return c.lookup(ctx, "licenses/by-business", url.Values{"name": {name}})
}

// ByOwnerName looks up a record by normalized owner name.
func (c *Client) ByOwnerName(ctx context.Context, name string) (resolve.Record, error) {
	return c.lookup(ctx, "licenses/by-owner", url.Values{"name": {name}})
}

func (c *Client) lookup(ctx context.Context, relPath string, q url.Values) (resolve.Record, error) {
	u := c.resolve(relPath)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return resolve.Record{}, err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return resolve.Record{}, fmt.Errorf("%w: %s", enrich.ErrUnavailable, util.RedactSecrets(err.Error()))
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return resolve.Record{}, err
	}
	if resp.StatusCode == http.StatusNotFound {
		// Not in this registry: the resolver moves to the next rung.
		return resolve.Record{}, nil
	}
	if resp.StatusCode/100 != 2 {
		return resolve.Record{}, newHTTPError(relPath, resp, b)
	}

	var out licenseResponse
	if err := json.Unmarshal(b, &out); err != nil {
		return resolve.Record{}, fmt.Errorf("parse registry response: %w", err)
	}
	return resolve.Record{
		Number:     strings.TrimSpace(out.LicenseNumber),
		HolderName: strings.TrimSpace(out.HolderName),
		Status:     strings.TrimSpace(out.Status),
	}, nil
}

func (c *Client) resolve(relPath string) *url.URL {
	relPath = strings.TrimPrefix(relPath, "/")
	return c.baseURL.ResolveReference(&url.URL{Path: relPath})
}
