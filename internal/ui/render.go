package ui

import (
	"embed"
	"fmt"
	"html/template"
	"io"

	"github.com/mkube/mkube-console/internal/cluster"
	"github.com/mkube/mkube-console/internal/registry"
)

//go:embed templates/*.html
var templatesFS embed.FS

// Renderer executes the embedded dashboard templates.
type Renderer struct {
	tmpl *template.Template
}

// NewRenderer parses the embedded templates once at startup.
func NewRenderer() (*Renderer, error) {
	tmpl, err := template.New("ui").ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	return &Renderer{tmpl: tmpl}, nil
}

// Render executes the named page template with data.
func (r *Renderer) Render(w io.Writer, name string, data any) error {
	if err := r.tmpl.ExecuteTemplate(w, name, data); err != nil {
		return fmt.Errorf("render %s: %w", name, err)
	}

	return nil
}

// Page carries the chrome every page shares.
type Page struct {
	Title       string
	ClusterName string
	CurrentNav  string
	Breadcrumbs []Breadcrumb
}

// DashboardPage backs the overview page.
type DashboardPage struct {
	Page
	Summary *cluster.ClusterSummary
	Nodes   []DashboardNodeRow
	Pods    []PodView
}

// DashboardNodeRow is a node's line in the overview health table.
type DashboardNodeRow struct {
	Name     string
	Healthy  bool
	PodCount int
	LastPing string
}

// BuildDashboardNodeRows humanizes the summary's per-node records.
func BuildDashboardNodeRows(summary *cluster.ClusterSummary) []DashboardNodeRow {
	rows := make([]DashboardNodeRow, 0, len(summary.Nodes))

	for _, n := range summary.Nodes {
		rows = append(rows, DashboardNodeRow{
			Name:     n.Name,
			Healthy:  n.Healthy,
			PodCount: n.PodCount,
			LastPing: HumanTime(n.LastPing),
		})
	}

	return rows
}

// PodsPage backs the pod list page.
type PodsPage struct {
	Page
	Pods []PodView
}

// PodDetailPage backs one pod's detail page.
type PodDetailPage struct {
	Page
	Pod        PodView
	Containers []ContainerView
	Log        string
}

// NodesPage backs the node list page.
type NodesPage struct {
	Page
	Nodes []NodeView
}

// NodeDetailPage backs one node's detail page.
type NodeDetailPage struct {
	Page
	Node NodeView
	Pods []PodView
}

// NamespacesPage backs the namespace rollup page.
type NamespacesPage struct {
	Page
	Namespaces []NamespaceView
}

// NamespaceDetailPage backs one namespace's pod list.
type NamespaceDetailPage struct {
	Page
	Namespace string
	Pods      []PodView
}

// RegistryPage backs the registry catalog page.
type RegistryPage struct {
	Page
	Available    bool
	Repositories []registry.Repository
}
