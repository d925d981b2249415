// Package cluster aggregates the fleet of node agents into one consistent
// cluster view: fan-out reads, routed writes, least-pods scheduling and the
// background health checker.
package cluster

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"
	corev1 "k8s.io/api/core/v1"

	"github.com/mkube/mkube-console/internal/infra/metrics"
	"github.com/mkube/mkube-console/internal/nodeclient"
)

// OwnerAnnotation records which node produced a pod. It is the sole link
// from a pod back to its owning node; the aggregator keeps no pod state.
const OwnerAnnotation = "mkube.io/node"

// Aggregator owns the registry of node clients. It holds no pod or node
// state: every read re-queries the relevant agents. The registry lock only
// guards snapshotting the client collection, never a network call.
type Aggregator struct {
	logger *slog.Logger

	mu      sync.RWMutex
	clients map[string]*nodeclient.Client
}

// NewAggregator builds the registry from the statically configured clients.
// Nodes cannot be added or removed at runtime.
func NewAggregator(logger *slog.Logger, clients []*nodeclient.Client) *Aggregator {
	m := make(map[string]*nodeclient.Client, len(clients))
	for _, c := range clients {
		m[c.Name()] = c
	}

	return &Aggregator{
		logger:  logger,
		clients: m,
	}
}

// ListAllPods queries every node concurrently and merges the successes. A
// failing node is logged and omitted; the call itself never fails, it only
// returns an empty list when every node fails. Every returned pod carries
// the owning-node annotation.
func (a *Aggregator) ListAllPods(ctx context.Context) []corev1.Pod {
	clients := a.snapshot()
	results := make([][]corev1.Pod, len(clients))

	var g errgroup.Group

	for i, c := range clients {
		g.Go(func() error {
			list, err := c.ListPods(ctx)
			if err != nil {
				a.logger.WarnContext(ctx, "error listing pods from node",
					"node", c.Name(),
					"reason", err,
				)
				metrics.RecordFanoutNodeError(c.Name(), "list_pods")

				return nil
			}

			results[i] = list.Items

			return nil
		})
	}

	// Per-node errors are swallowed above, so Wait only joins.
	_ = g.Wait()

	var all []corev1.Pod

	for i, items := range results {
		for j := range items {
			stampOwner(&items[j], clients[i].Name())
			all = append(all, items[j])
		}
	}

	return all
}

// ListAllNodes queries every node concurrently for its node object and
// merges the successes, with the same failure policy as ListAllPods.
func (a *Aggregator) ListAllNodes(ctx context.Context) []corev1.Node {
	clients := a.snapshot()
	results := make([]*corev1.Node, len(clients))

	var g errgroup.Group

	for i, c := range clients {
		g.Go(func() error {
			node, err := c.GetNode(ctx)
			if err != nil {
				a.logger.WarnContext(ctx, "error getting node object",
					"node", c.Name(),
					"reason", err,
				)
				metrics.RecordFanoutNodeError(c.Name(), "get_node")

				return nil
			}

			results[i] = node

			return nil
		})
	}

	_ = g.Wait()

	var nodes []corev1.Node

	for _, n := range results {
		if n != nil {
			nodes = append(nodes, *n)
		}
	}

	return nodes
}

// GetPod probes nodes one at a time until one reports the pod, returning the
// annotated pod and the owning node name. Probing is deliberately sequential:
// most pods are found quickly and a point lookup should not fan out across
// the whole fleet. Probe order is the snapshot order (sorted by node name),
// an arbitrary but per-process-deterministic choice.
func (a *Aggregator) GetPod(ctx context.Context, namespace, name string) (*corev1.Pod, string, error) {
	for _, c := range a.snapshot() {
		pod, err := c.GetPod(ctx, namespace, name)
		if err != nil {
			continue
		}

		stampOwner(pod, c.Name())

		return pod, c.Name(), nil
	}

	return nil, "", fmt.Errorf("get pod %s/%s: %w", namespace, name, ErrPodNotFound)
}

// CreatePod places the pod: routed directly when spec.nodeName is set,
// otherwise scheduled onto the healthy node reporting the fewest pods.
// Unhealthy nodes are skipped entirely regardless of load; ties break to the
// lexicographically smallest node name.
func (a *Aggregator) CreatePod(ctx context.Context, pod *corev1.Pod) (*corev1.Pod, error) {
	if pod.Spec.NodeName != "" {
		c := a.client(pod.Spec.NodeName)
		if c == nil {
			return nil, fmt.Errorf("create pod: node %q: %w", pod.Spec.NodeName, ErrNodeNotFound)
		}

		created, err := c.CreatePod(ctx, pod)
		if err != nil {
			return nil, fmt.Errorf("create pod on %s: %w", c.Name(), err)
		}

		metrics.RecordPodScheduled(c.Name(), "explicit")

		return created, nil
	}

	target, err := a.leastLoadedNode(ctx)
	if err != nil {
		return nil, fmt.Errorf("create pod: %w", err)
	}

	created, err := target.CreatePod(ctx, pod)
	if err != nil {
		return nil, fmt.Errorf("create pod on %s: %w", target.Name(), err)
	}

	metrics.RecordPodScheduled(target.Name(), "least-pods")

	return created, nil
}

// DeletePod resolves the owning node via GetPod, then issues exactly one
// delete against that node.
func (a *Aggregator) DeletePod(ctx context.Context, namespace, name string) error {
	_, owner, err := a.GetPod(ctx, namespace, name)
	if err != nil {
		return fmt.Errorf("delete pod: %w", err)
	}

	c := a.client(owner)
	if c == nil {
		return fmt.Errorf("delete pod: node %q: %w", owner, ErrNodeNotFound)
	}

	if err := c.DeletePod(ctx, namespace, name); err != nil {
		return fmt.Errorf("delete pod on %s: %w", owner, err)
	}

	return nil
}

// PodLog resolves the owning node via GetPod, then fetches the pod log from
// that node.
func (a *Aggregator) PodLog(ctx context.Context, namespace, name string) (string, error) {
	_, owner, err := a.GetPod(ctx, namespace, name)
	if err != nil {
		return "", fmt.Errorf("get pod log: %w", err)
	}

	c := a.client(owner)
	if c == nil {
		return "", fmt.Errorf("get pod log: node %q: %w", owner, ErrNodeNotFound)
	}

	log, err := c.PodLog(ctx, namespace, name)
	if err != nil {
		return "", fmt.Errorf("get pod log from %s: %w", owner, err)
	}

	return log, nil
}

// ContainerLog resolves the owning node via GetPod, then fetches one
// container's log from that node.
func (a *Aggregator) ContainerLog(ctx context.Context, namespace, pod, container string) (string, error) {
	_, owner, err := a.GetPod(ctx, namespace, pod)
	if err != nil {
		return "", fmt.Errorf("get container log: %w", err)
	}

	c := a.client(owner)
	if c == nil {
		return "", fmt.Errorf("get container log: node %q: %w", owner, ErrNodeNotFound)
	}

	log, err := c.ContainerLog(ctx, namespace, pod, container)
	if err != nil {
		return "", fmt.Errorf("get container log from %s: %w", owner, err)
	}

	return log, nil
}

// GetNode fetches the node object from the named node's agent.
func (a *Aggregator) GetNode(ctx context.Context, name string) (*corev1.Node, error) {
	c := a.client(name)
	if c == nil {
		return nil, fmt.Errorf("get node %q: %w", name, ErrNodeNotFound)
	}

	node, err := c.GetNode(ctx)
	if err != nil {
		return nil, fmt.Errorf("get node %s: %w", name, err)
	}

	return node, nil
}

// Summary visits every node sequentially and aggregates a best-effort
// cluster overview. A node whose pod list fails contributes a zero pod
// count; the summary itself always completes.
func (a *Aggregator) Summary(ctx context.Context) *ClusterSummary {
	clients := a.snapshot()

	summary := &ClusterSummary{
		NodeCount: len(clients),
		Nodes:     make([]NodeSummary, 0, len(clients)),
	}

	for _, c := range clients {
		ns := NodeSummary{
			Name:     c.Name(),
			Healthy:  c.IsHealthy(),
			LastPing: c.LastPing(),
		}

		if ns.Healthy {
			summary.HealthyNodes++
		}

		if list, err := c.ListPods(ctx); err == nil {
			ns.PodCount = len(list.Items)
			summary.PodCount += len(list.Items)

			for i := range list.Items {
				if list.Items[i].Status.Phase == corev1.PodRunning {
					summary.RunningPods++
				}
			}
		} else {
			a.logger.WarnContext(ctx, "summary pod count unavailable",
				"node", c.Name(),
				"reason", err,
			)
		}

		summary.Nodes = append(summary.Nodes, ns)
	}

	return summary
}

// Clients returns a snapshot of the registered node clients sorted by name.
// Callers must not hold it across reconfiguration (there is none today).
func (a *Aggregator) Clients() []*nodeclient.Client {
	return a.snapshot()
}

// leastLoadedNode queries the current pod count of every healthy node
// concurrently and picks the one reporting the fewest pods. Nodes failing
// the count query are skipped like unhealthy ones.
func (a *Aggregator) leastLoadedNode(ctx context.Context) (*nodeclient.Client, error) {
	clients := a.snapshot()
	counts := make([]int, len(clients))

	var g errgroup.Group

	for i, c := range clients {
		counts[i] = -1

		if !c.IsHealthy() {
			continue
		}

		g.Go(func() error {
			list, err := c.ListPods(ctx)
			if err != nil {
				a.logger.WarnContext(ctx, "pod count unavailable for scheduling",
					"node", c.Name(),
					"reason", err,
				)

				return nil
			}

			counts[i] = len(list.Items)

			return nil
		})
	}

	_ = g.Wait()

	var target *nodeclient.Client

	minPods := -1

	for i, c := range clients {
		if counts[i] < 0 {
			continue
		}

		if minPods < 0 || counts[i] < minPods {
			minPods = counts[i]
			target = c
		}
	}

	if target == nil {
		return nil, ErrNoHealthyNodes
	}

	return target, nil
}

// snapshot copies the client set under the read lock, sorted by node name.
// Sorting makes probe order and scheduling tie-breaks deterministic within a
// process run without promising any fairness policy.
func (a *Aggregator) snapshot() []*nodeclient.Client {
	a.mu.RLock()

	clients := make([]*nodeclient.Client, 0, len(a.clients))
	for _, c := range a.clients {
		clients = append(clients, c)
	}

	a.mu.RUnlock()

	sort.Slice(clients, func(i, j int) bool {
		return clients[i].Name() < clients[j].Name()
	})

	return clients
}

// client looks up a single client by node name, nil when absent.
func (a *Aggregator) client(name string) *nodeclient.Client {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return a.clients[name]
}

func stampOwner(pod *corev1.Pod, node string) {
	if pod.Annotations == nil {
		pod.Annotations = make(map[string]string, 1)
	}

	pod.Annotations[OwnerAnnotation] = node
}
