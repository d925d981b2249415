// Package ui builds the dashboard view models from aggregated cluster state
// and renders them with html/template.
package ui

import (
	"sort"

	corev1 "k8s.io/api/core/v1"

	"github.com/mkube/mkube-console/internal/cluster"
)

// Breadcrumb is one step of the page navigation trail.
type Breadcrumb struct {
	Label string
	URL   string
}

// PodView is one row of the pod table.
type PodView struct {
	Name        string
	Namespace   string
	Node        string
	Status      string
	StatusClass string
	IP          string
	Age         string
	Containers  int
	Ready       int
}

// ContainerView is one container row in the pod detail page.
type ContainerView struct {
	Name   string
	Image  string
	State  string
	Ready  bool
	Reason string
}

// NodeView is one row of the node table.
type NodeView struct {
	Name         string
	Status       string
	StatusClass  string
	CPU          string
	Memory       string
	Pods         string
	Architecture string
	OSImage      string
	LastPing     string
	Healthy      bool
}

// NamespaceView is one row of the namespace rollup.
type NamespaceView struct {
	Name        string
	PodCount    int
	Running     int
	Pending     int
	Failed      int
	StatusClass string
}

// BuildPodView maps an annotated pod onto its table row. The owning node
// comes from the aggregator's annotation.
func BuildPodView(pod *corev1.Pod) PodView {
	pv := PodView{
		Name:       pod.Name,
		Namespace:  pod.Namespace,
		Node:       pod.Annotations[cluster.OwnerAnnotation],
		Status:     string(pod.Status.Phase),
		IP:         pod.Status.PodIP,
		Age:        Age(pod.Status.StartTime),
		Containers: len(pod.Spec.Containers),
	}

	for i := range pod.Status.ContainerStatuses {
		if pod.Status.ContainerStatuses[i].Ready {
			pv.Ready++
		}
	}

	pv.StatusClass = phaseClass(pod.Status.Phase)

	return pv
}

// BuildPodViews maps and sorts a merged pod collection by namespace, name.
func BuildPodViews(pods []corev1.Pod) []PodView {
	views := make([]PodView, 0, len(pods))
	for i := range pods {
		views = append(views, BuildPodView(&pods[i]))
	}

	sort.Slice(views, func(i, j int) bool {
		if views[i].Namespace != views[j].Namespace {
			return views[i].Namespace < views[j].Namespace
		}

		return views[i].Name < views[j].Name
	})

	return views
}

// BuildContainerViews maps the containers of one pod, joining spec and
// status by container name.
func BuildContainerViews(pod *corev1.Pod) []ContainerView {
	statuses := make(map[string]*corev1.ContainerStatus, len(pod.Status.ContainerStatuses))
	for i := range pod.Status.ContainerStatuses {
		statuses[pod.Status.ContainerStatuses[i].Name] = &pod.Status.ContainerStatuses[i]
	}

	views := make([]ContainerView, 0, len(pod.Spec.Containers))

	for i := range pod.Spec.Containers {
		c := &pod.Spec.Containers[i]
		cv := ContainerView{
			Name:  c.Name,
			Image: c.Image,
			State: "Unknown",
		}

		if cs, ok := statuses[c.Name]; ok {
			cv.Ready = cs.Ready
			cv.State, cv.Reason = containerState(&cs.State)

			if cs.Image != "" {
				cv.Image = cs.Image
			}
		}

		views = append(views, cv)
	}

	return views
}

// BuildNodeView maps a node object plus its summary row onto the node table.
func BuildNodeView(node *corev1.Node, summary *cluster.NodeSummary) NodeView {
	nv := NodeView{
		Name:         node.Name,
		Status:       "NotReady",
		StatusClass:  "badge-error",
		Architecture: node.Status.NodeInfo.Architecture,
		OSImage:      node.Status.NodeInfo.OSImage,
	}

	for _, cond := range node.Status.Conditions {
		if cond.Type == corev1.NodeReady && cond.Status == corev1.ConditionTrue {
			nv.Status = "Ready"
			nv.StatusClass = "badge-success"

			break
		}
	}

	if cpu, ok := node.Status.Capacity[corev1.ResourceCPU]; ok {
		nv.CPU = cpu.String()
	}

	if mem, ok := node.Status.Capacity[corev1.ResourceMemory]; ok {
		nv.Memory = HumanBytes(mem.Value())
	}

	if pods, ok := node.Status.Capacity[corev1.ResourcePods]; ok {
		nv.Pods = pods.String()
	}

	if summary != nil {
		nv.Healthy = summary.Healthy
		nv.LastPing = HumanTime(summary.LastPing)
	}

	return nv
}

// BuildNamespaceViews rolls the merged pod collection up by namespace,
// sorted by namespace name.
func BuildNamespaceViews(pods []corev1.Pod) []NamespaceView {
	byName := make(map[string]*NamespaceView)

	for i := range pods {
		ns := pods[i].Namespace

		view, ok := byName[ns]
		if !ok {
			view = &NamespaceView{Name: ns}
			byName[ns] = view
		}

		view.PodCount++

		switch pods[i].Status.Phase {
		case corev1.PodRunning:
			view.Running++
		case corev1.PodPending:
			view.Pending++
		case corev1.PodFailed:
			view.Failed++
		}
	}

	views := make([]NamespaceView, 0, len(byName))

	for _, v := range byName {
		switch {
		case v.Failed > 0:
			v.StatusClass = "badge-error"
		case v.Pending > 0:
			v.StatusClass = "badge-warning"
		default:
			v.StatusClass = "badge-success"
		}

		views = append(views, *v)
	}

	sort.Slice(views, func(i, j int) bool {
		return views[i].Name < views[j].Name
	})

	return views
}

func phaseClass(phase corev1.PodPhase) string {
	switch phase {
	case corev1.PodRunning:
		return "badge-success"
	case corev1.PodPending:
		return "badge-warning"
	case corev1.PodFailed:
		return "badge-error"
	default:
		return "badge-info"
	}
}

func containerState(state *corev1.ContainerState) (string, string) {
	switch {
	case state.Running != nil:
		return "Running", ""
	case state.Waiting != nil:
		return "Waiting", state.Waiting.Reason
	case state.Terminated != nil:
		return "Terminated", state.Terminated.Reason
	default:
		return "Unknown", ""
	}
}
