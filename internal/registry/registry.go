// Package registry is a read-only browser for a Docker registry's catalog,
// used by the dashboard's registry page.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultTimeout = 10 * time.Second

// Client reads the catalog of one container registry.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a registry client; baseURL may be empty, in which case the
// registry is reported unavailable.
func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http: &http.Client{
			Timeout: defaultTimeout,
		},
	}
}

// Available reports whether a registry is configured.
func (c *Client) Available() bool {
	return c.baseURL != ""
}

// Repository is one catalog entry with its tags.
type Repository struct {
	Name string
	Tags []string
}

// Catalog lists the repository names via GET /v2/_catalog.
func (c *Client) Catalog(ctx context.Context) ([]string, error) {
	var out struct {
		Repositories []string `json:"repositories"`
	}

	if err := c.getJSON(ctx, "/v2/_catalog", &out); err != nil {
		return nil, fmt.Errorf("fetch catalog: %w", err)
	}

	return out.Repositories, nil
}

// Tags lists the tags of one repository via GET /v2/{repo}/tags/list.
func (c *Client) Tags(ctx context.Context, repo string) ([]string, error) {
	var out struct {
		Tags []string `json:"tags"`
	}

	if err := c.getJSON(ctx, "/v2/"+repo+"/tags/list", &out); err != nil {
		return nil, fmt.Errorf("fetch tags for %s: %w", repo, err)
	}

	return out.Tags, nil
}

// List returns the full catalog with tags, best-effort per repository.
func (c *Client) List(ctx context.Context) ([]Repository, error) {
	names, err := c.Catalog(ctx)
	if err != nil {
		return nil, err
	}

	repos := make([]Repository, 0, len(names))

	for _, name := range names {
		// A repository whose tag list fails still shows up, tagless.
		tags, _ := c.Tags(ctx, name)
		repos = append(repos, Repository{Name: name, Tags: tags})
	}

	return repos, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("registry request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)

		return fmt.Errorf("registry returned %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode registry response: %w", err)
	}

	return nil
}
