// Package nodeclient is the in-process proxy for one remote node agent. Each
// client owns its HTTP transport and tracks its own liveness; every operation
// is a single attempt with a bounded timeout, retries are the caller's call.
package nodeclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	corev1 "k8s.io/api/core/v1"
)

// DefaultTimeout bounds every request to a node agent.
const DefaultTimeout = 10 * time.Second

// Client talks to a single node agent over its REST API and tracks the
// node's liveness as observed by Ping.
type Client struct {
	name    string
	address string
	http    *http.Client

	// Liveness state is per-client so concurrent pings and reads for one
	// node never block unrelated nodes. Ping is the only mutator.
	mu       sync.Mutex
	healthy  bool
	lastPing time.Time
}

// New creates a client for the agent at address. A freshly constructed
// client is considered healthy until the first ping says otherwise.
func New(name, address string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Client{
		name:    name,
		address: address,
		http: &http.Client{
			Timeout: timeout,
		},
		healthy: true,
	}
}

// Name returns the node name, the stable registry key.
func (c *Client) Name() string {
	return c.name
}

// Address returns the agent base URL.
func (c *Client) Address() string {
	return c.address
}

// IsHealthy reports the liveness observed by the most recent ping.
func (c *Client) IsHealthy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.healthy
}

// LastPing returns the time of the last successful ping, zero if none yet.
func (c *Client) LastPing() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.lastPing
}

// Ping probes GET /healthz and updates the liveness state: any 2xx marks the
// node healthy, everything else (including transport errors) marks it
// unhealthy and returns an UnreachableError.
func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.get(ctx, "/healthz")
	if err != nil {
		c.setHealthy(false, time.Time{})

		return &UnreachableError{Node: c.name, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.setHealthy(false, time.Time{})

		return &UnreachableError{
			Node: c.name,
			Err:  fmt.Errorf("health check returned %d", resp.StatusCode),
		}
	}

	c.setHealthy(true, time.Now())

	return nil
}

// ListPods fetches all pods the agent runs.
func (c *Client) ListPods(ctx context.Context) (*corev1.PodList, error) {
	var list corev1.PodList
	if err := c.getJSON(ctx, "/api/v1/pods", &list); err != nil {
		return nil, err
	}

	return &list, nil
}

// GetPod fetches one pod by namespace and name.
func (c *Client) GetPod(ctx context.Context, namespace, name string) (*corev1.Pod, error) {
	var pod corev1.Pod

	path := fmt.Sprintf("/api/v1/namespaces/%s/pods/%s", namespace, name)
	if err := c.getJSON(ctx, path, &pod); err != nil {
		return nil, err
	}

	return &pod, nil
}

// CreatePod posts the pod to the agent's namespaced pods endpoint and returns
// the agent's canonical representation, which may differ from the input.
func (c *Client) CreatePod(ctx context.Context, pod *corev1.Pod) (*corev1.Pod, error) {
	path := fmt.Sprintf("/api/v1/namespaces/%s/pods", pod.Namespace)

	var created corev1.Pod
	if err := c.postJSON(ctx, path, pod, &created); err != nil {
		return nil, err
	}

	return &created, nil
}

// DeletePod removes one pod; any non-error status counts as success.
func (c *Client) DeletePod(ctx context.Context, namespace, name string) error {
	path := fmt.Sprintf("/api/v1/namespaces/%s/pods/%s", namespace, name)

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.address+path, nil)
	if err != nil {
		return fmt.Errorf("build delete request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &UnreachableError{Node: c.name, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return c.upstreamError(resp)
	}

	return nil
}

// PodLog fetches the raw log text of a pod.
func (c *Client) PodLog(ctx context.Context, namespace, name string) (string, error) {
	path := fmt.Sprintf("/api/v1/namespaces/%s/pods/%s/log", namespace, name)

	return c.getText(ctx, path)
}

// ContainerLog fetches the raw log text of one container in a pod.
func (c *Client) ContainerLog(ctx context.Context, namespace, pod, container string) (string, error) {
	path := fmt.Sprintf("/api/v1/namespaces/%s/pods/%s/log?container=%s", namespace, pod, container)

	return c.getText(ctx, path)
}

// GetNode fetches the agent's view of its own node object.
func (c *Client) GetNode(ctx context.Context) (*corev1.Node, error) {
	var node corev1.Node

	path := fmt.Sprintf("/api/v1/nodes/%s", c.name)
	if err := c.getJSON(ctx, path, &node); err != nil {
		return nil, err
	}

	return &node, nil
}

// WatchPods opens the agent's pod watch. The response body is a sequence of
// newline-delimited JSON change records; parsing is left to the caller, which
// also owns closing the body. Agents without watch support answer with an
// error status, surfaced as an UpstreamError like any other call.
func (c *Client) WatchPods(ctx context.Context) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.address+"/api/v1/pods?watch=true", nil)
	if err != nil {
		return nil, fmt.Errorf("build watch request: %w", err)
	}

	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &UnreachableError{Node: c.name, Err: err}
	}

	if resp.StatusCode >= 400 {
		defer resp.Body.Close()

		return nil, c.upstreamError(resp)
	}

	return resp, nil
}

func (c *Client) setHealthy(healthy bool, pingedAt time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.healthy = healthy

	if !pingedAt.IsZero() {
		c.lastPing = pingedAt
	}
}

func (c *Client) get(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.address+path, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("Accept", "application/json")

	return c.http.Do(req)
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	resp, err := c.get(ctx, path)
	if err != nil {
		return &UnreachableError{Node: c.name, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return c.upstreamError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}

	return nil
}

func (c *Client) getText(ctx context.Context, path string) (string, error) {
	resp, err := c.get(ctx, path)
	if err != nil {
		return "", &UnreachableError{Node: c.name, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", c.upstreamError(resp)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read %s response: %w", path, err)
	}

	return string(body), nil
}

func (c *Client) postJSON(ctx context.Context, path string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode %s request: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.address+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return &UnreachableError{Node: c.name, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return c.upstreamError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}

	return nil
}

func (c *Client) upstreamError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)

	return &UpstreamError{
		Node:   c.name,
		Status: resp.StatusCode,
		Body:   string(bytes.TrimSpace(body)),
	}
}
