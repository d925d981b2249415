package cluster

import "errors"

var (
	// ErrPodNotFound is returned when no node reports the requested pod.
	ErrPodNotFound = errors.New("pod not found on any node")

	// ErrNodeNotFound is returned when no client is registered under the
	// requested node name.
	ErrNodeNotFound = errors.New("node not found")

	// ErrNoHealthyNodes is returned when scheduling finds no eligible target.
	ErrNoHealthyNodes = errors.New("no healthy nodes available")
)
