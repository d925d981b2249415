package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/mkube/mkube-console/internal/cluster"
)

func (s *Server) handleAPIVersions(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, &metav1.APIVersions{
		TypeMeta: metav1.TypeMeta{Kind: "APIVersions"},
		Versions: []string{"v1"},
		ServerAddressByClientCIDRs: []metav1.ServerAddressByClientCIDR{
			{ClientCIDR: "0.0.0.0/0", ServerAddress: s.addr},
		},
	})
}

func (s *Server) handleAPIResources(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, &metav1.APIResourceList{
		TypeMeta:     metav1.TypeMeta{Kind: "APIResourceList"},
		GroupVersion: "v1",
		APIResources: []metav1.APIResource{
			{Name: "pods", Namespaced: true, Kind: "Pod", Verbs: metav1.Verbs{"get", "list", "create", "delete"}},
			{Name: "pods/log", Namespaced: true, Kind: "Pod", Verbs: metav1.Verbs{"get"}},
			{Name: "pods/status", Namespaced: true, Kind: "Pod", Verbs: metav1.Verbs{"get"}},
			{Name: "namespaces", Namespaced: false, Kind: "Namespace", Verbs: metav1.Verbs{"get", "list"}},
			{Name: "nodes", Namespaced: false, Kind: "Node", Verbs: metav1.Verbs{"get", "list"}},
		},
	})
}

func (s *Server) handleListAllPods(w http.ResponseWriter, r *http.Request) {
	pods := s.aggregator.ListAllPods(r.Context())
	s.writeJSON(w, r, http.StatusOK, podList(pods))
}

func (s *Server) handleListNamespacedPods(w http.ResponseWriter, r *http.Request) {
	namespace := chi.URLParam(r, "namespace")

	var items []corev1.Pod

	for _, pod := range s.aggregator.ListAllPods(r.Context()) {
		if pod.Namespace == namespace {
			items = append(items, pod)
		}
	}

	s.writeJSON(w, r, http.StatusOK, podList(items))
}

func (s *Server) handleGetPod(w http.ResponseWriter, r *http.Request) {
	namespace := chi.URLParam(r, "namespace")
	name := chi.URLParam(r, "name")

	pod, _, err := s.aggregator.GetPod(r.Context(), namespace, name)
	if err != nil {
		s.writeError(w, r, err)

		return
	}

	s.writeJSON(w, r, http.StatusOK, pod)
}

func (s *Server) handleCreatePod(w http.ResponseWriter, r *http.Request) {
	var pod corev1.Pod
	if err := json.NewDecoder(r.Body).Decode(&pod); err != nil {
		http.Error(w, fmt.Sprintf("decode pod: %v", err), http.StatusBadRequest)

		return
	}

	// The path namespace wins over whatever the manifest carries.
	pod.Namespace = chi.URLParam(r, "namespace")

	created, err := s.aggregator.CreatePod(r.Context(), &pod)
	if err != nil {
		s.writeError(w, r, err)

		return
	}

	s.writeJSON(w, r, http.StatusCreated, created)
}

func (s *Server) handleDeletePod(w http.ResponseWriter, r *http.Request) {
	namespace := chi.URLParam(r, "namespace")
	name := chi.URLParam(r, "name")

	if err := s.aggregator.DeletePod(r.Context(), namespace, name); err != nil {
		s.writeError(w, r, err)

		return
	}

	s.writeJSON(w, r, http.StatusOK, &metav1.Status{
		TypeMeta: metav1.TypeMeta{APIVersion: "v1", Kind: "Status"},
		Status:   metav1.StatusSuccess,
		Message:  fmt.Sprintf("pod %q deleted", name),
	})
}

func (s *Server) handlePodLog(w http.ResponseWriter, r *http.Request) {
	namespace := chi.URLParam(r, "namespace")
	name := chi.URLParam(r, "name")

	var (
		log string
		err error
	)

	if container := r.URL.Query().Get("container"); container != "" {
		log, err = s.aggregator.ContainerLog(r.Context(), namespace, name, container)
	} else {
		log, err = s.aggregator.PodLog(r.Context(), namespace, name)
	}

	if err != nil {
		s.writeError(w, r, err)

		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprint(w, log)
}

func (s *Server) handleListNodes(w http.ResponseWriter, r *http.Request) {
	nodes := s.aggregator.ListAllNodes(r.Context())

	list := &corev1.NodeList{
		TypeMeta: metav1.TypeMeta{APIVersion: "v1", Kind: "NodeList"},
		Items:    nodes,
	}

	s.writeJSON(w, r, http.StatusOK, list)
}

func (s *Server) handleGetNode(w http.ResponseWriter, r *http.Request) {
	node, err := s.aggregator.GetNode(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		s.writeError(w, r, err)

		return
	}

	s.writeJSON(w, r, http.StatusOK, node)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	if !s.appState.IsHealthy() {
		w.WriteHeader(http.StatusServiceUnavailable)

		return
	}

	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleReadyz(w http.ResponseWriter, _ *http.Request) {
	if !s.appState.IsReady() {
		w.WriteHeader(http.StatusServiceUnavailable)

		return
	}

	w.WriteHeader(http.StatusOK)
}

type statusResponse struct {
	State     string    `json:"state"`
	Uptime    string    `json:"uptime"`
	StartTime time.Time `json:"startTime"`
	UptimeSec float64   `json:"uptimeSeconds"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	uptime := s.appState.GetUptime()

	s.writeJSON(w, r, http.StatusOK, statusResponse{
		State:     string(s.appState.GetState()),
		Uptime:    uptime.String(),
		StartTime: s.appState.GetStartTime(),
		UptimeSec: uptime.Seconds(),
	})
}

func podList(items []corev1.Pod) *corev1.PodList {
	return &corev1.PodList{
		TypeMeta: metav1.TypeMeta{APIVersion: "v1", Kind: "PodList"},
		Items:    items,
	}
}

// writeError maps domain errors onto HTTP statuses: missing pods and nodes
// are 404, everything else is a server error with the diagnostic preserved.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, cluster.ErrPodNotFound) || errors.Is(err, cluster.ErrNodeNotFound) {
		http.Error(w, err.Error(), http.StatusNotFound)

		return
	}

	s.logger.ErrorContext(r.Context(), "request failed",
		"path", r.URL.Path,
		"reason", err,
	)
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.ErrorContext(r.Context(), "failed to encode response",
			"path", r.URL.Path,
			"reason", err,
		)
	}
}
