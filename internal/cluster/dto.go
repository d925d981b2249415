package cluster

import "time"

// ClusterSummary is the ephemeral overview recomputed per request for the
// dashboard; nothing in it is cached or persisted.
type ClusterSummary struct {
	NodeCount    int
	HealthyNodes int
	PodCount     int
	RunningPods  int
	Nodes        []NodeSummary
}

// NodeSummary is one node's row in the cluster summary.
type NodeSummary struct {
	Name     string
	Healthy  bool
	PodCount int
	LastPing time.Time
}
