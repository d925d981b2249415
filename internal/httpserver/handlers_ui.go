package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	corev1 "k8s.io/api/core/v1"

	"github.com/mkube/mkube-console/internal/cluster"
	"github.com/mkube/mkube-console/internal/ui"
)

func (s *Server) page(title, nav string, crumbs ...ui.Breadcrumb) ui.Page {
	breadcrumbs := append([]ui.Breadcrumb{{Label: "Dashboard", URL: "/ui/"}}, crumbs...)

	return ui.Page{
		Title:       title,
		ClusterName: s.clusterName,
		CurrentNav:  nav,
		Breadcrumbs: breadcrumbs,
	}
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	if err := s.renderer.Render(w, name, data); err != nil {
		s.logger.ErrorContext(r.Context(), "template render failed",
			"template", name,
			"reason", err,
		)
	}
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	summary := s.aggregator.Summary(ctx)
	pods := s.aggregator.ListAllPods(ctx)

	s.render(w, r, "dashboard.html", ui.DashboardPage{
		Page:    s.page("Dashboard", "dashboard"),
		Summary: summary,
		Nodes:   ui.BuildDashboardNodeRows(summary),
		Pods:    ui.BuildPodViews(pods),
	})
}

func (s *Server) handleUIPods(w http.ResponseWriter, r *http.Request) {
	pods := s.aggregator.ListAllPods(r.Context())

	s.render(w, r, "pods.html", ui.PodsPage{
		Page: s.page("Pods", "pods", ui.Breadcrumb{Label: "Pods", URL: "/ui/pods"}),
		Pods: ui.BuildPodViews(pods),
	})
}

func (s *Server) handleUIPodDetail(w http.ResponseWriter, r *http.Request) {
	namespace := chi.URLParam(r, "namespace")
	name := chi.URLParam(r, "name")

	pod, _, err := s.aggregator.GetPod(r.Context(), namespace, name)
	if err != nil {
		s.writeError(w, r, err)

		return
	}

	// The log pane is best-effort; a pod without logs still renders.
	log, err := s.aggregator.PodLog(r.Context(), namespace, name)
	if err != nil {
		s.logger.WarnContext(r.Context(), "pod log unavailable",
			"namespace", namespace,
			"pod", name,
			"reason", err,
		)
	}

	s.render(w, r, "pod_detail.html", ui.PodDetailPage{
		Page: s.page(namespace+"/"+name, "pods",
			ui.Breadcrumb{Label: "Pods", URL: "/ui/pods"},
			ui.Breadcrumb{Label: name, URL: "/ui/pods/" + namespace + "/" + name},
		),
		Pod:        ui.BuildPodView(pod),
		Containers: ui.BuildContainerViews(pod),
		Log:        log,
	})
}

func (s *Server) handleUINodes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	nodes := s.aggregator.ListAllNodes(ctx)
	summary := s.aggregator.Summary(ctx)

	byName := make(map[string]*cluster.NodeSummary, len(summary.Nodes))
	for i := range summary.Nodes {
		byName[summary.Nodes[i].Name] = &summary.Nodes[i]
	}

	views := make([]ui.NodeView, 0, len(nodes))
	for i := range nodes {
		views = append(views, ui.BuildNodeView(&nodes[i], byName[nodes[i].Name]))
	}

	s.render(w, r, "nodes.html", ui.NodesPage{
		Page:  s.page("Nodes", "nodes", ui.Breadcrumb{Label: "Nodes", URL: "/ui/nodes"}),
		Nodes: views,
	})
}

func (s *Server) handleUINodeDetail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	name := chi.URLParam(r, "name")

	node, err := s.aggregator.GetNode(ctx, name)
	if err != nil {
		s.writeError(w, r, err)

		return
	}

	var nodePods []corev1.Pod

	for _, pod := range s.aggregator.ListAllPods(ctx) {
		if pod.Annotations[cluster.OwnerAnnotation] == name {
			nodePods = append(nodePods, pod)
		}
	}

	summary := cluster.NodeSummary{Name: name, PodCount: len(nodePods)}

	for _, c := range s.aggregator.Clients() {
		if c.Name() == name {
			summary.Healthy = c.IsHealthy()
			summary.LastPing = c.LastPing()

			break
		}
	}

	s.render(w, r, "node_detail.html", ui.NodeDetailPage{
		Page: s.page(name, "nodes",
			ui.Breadcrumb{Label: "Nodes", URL: "/ui/nodes"},
			ui.Breadcrumb{Label: name, URL: "/ui/nodes/" + name},
		),
		Node: ui.BuildNodeView(node, &summary),
		Pods: ui.BuildPodViews(nodePods),
	})
}

func (s *Server) handleUINamespaces(w http.ResponseWriter, r *http.Request) {
	pods := s.aggregator.ListAllPods(r.Context())

	s.render(w, r, "namespaces.html", ui.NamespacesPage{
		Page:       s.page("Namespaces", "namespaces", ui.Breadcrumb{Label: "Namespaces", URL: "/ui/namespaces"}),
		Namespaces: ui.BuildNamespaceViews(pods),
	})
}

func (s *Server) handleUINamespaceDetail(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	var nsPods []corev1.Pod

	for _, pod := range s.aggregator.ListAllPods(r.Context()) {
		if pod.Namespace == name {
			nsPods = append(nsPods, pod)
		}
	}

	s.render(w, r, "namespace_detail.html", ui.NamespaceDetailPage{
		Page: s.page("Namespace "+name, "namespaces",
			ui.Breadcrumb{Label: "Namespaces", URL: "/ui/namespaces"},
			ui.Breadcrumb{Label: name, URL: "/ui/namespaces/" + name},
		),
		Namespace: name,
		Pods:      ui.BuildPodViews(nsPods),
	})
}

func (s *Server) handleUIRegistry(w http.ResponseWriter, r *http.Request) {
	page := ui.RegistryPage{
		Page:      s.page("Registry", "registry", ui.Breadcrumb{Label: "Registry", URL: "/ui/registry"}),
		Available: s.registry.Available(),
	}

	if page.Available {
		repos, err := s.registry.List(r.Context())
		if err != nil {
			s.logger.WarnContext(r.Context(), "registry catalog unavailable", "reason", err)

			page.Available = false
		} else {
			page.Repositories = repos
		}
	}

	s.render(w, r, "registry.html", page)
}
