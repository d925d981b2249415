package httpserver

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/mkube/mkube-console/internal/cluster"
	"github.com/mkube/mkube-console/internal/infra/appstate"
	"github.com/mkube/mkube-console/internal/nodeclient"
	"github.com/mkube/mkube-console/internal/registry"
	"github.com/mkube/mkube-console/internal/stream"
	"github.com/mkube/mkube-console/internal/ui"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeAgent serves the agent API slice the console exercises end to end.
func fakeAgent(t *testing.T, name string, pods ...corev1.Pod) *nodeclient.Client {
	t.Helper()

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/healthz":
			w.WriteHeader(http.StatusOK)
		case r.URL.Path == "/api/v1/pods" && r.URL.Query().Get("watch") == "true":
			http.Error(w, "watch not supported", http.StatusBadRequest)
		case r.URL.Path == "/api/v1/pods":
			_ = json.NewEncoder(w).Encode(&corev1.PodList{Items: pods})
		case r.Method == http.MethodPost:
			var pod corev1.Pod
			_ = json.NewDecoder(r.Body).Decode(&pod)
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(&pod)
		case r.Method == http.MethodDelete:
			w.WriteHeader(http.StatusOK)
		case strings.HasSuffix(r.URL.Path, "/log"):
			_, _ = io.WriteString(w, "log from "+name)
		case strings.HasPrefix(r.URL.Path, "/api/v1/nodes/"):
			_ = json.NewEncoder(w).Encode(&corev1.Node{ObjectMeta: metav1.ObjectMeta{Name: name}})
		default:
			podName := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]
			for i := range pods {
				if pods[i].Name == podName {
					_ = json.NewEncoder(w).Encode(&pods[i])

					return
				}
			}

			http.Error(w, "pod not found", http.StatusNotFound)
		}
	})

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return nodeclient.New(name, srv.URL, time.Second)
}

func testPod(namespace, name string) corev1.Pod {
	return corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{Namespace: namespace, Name: name},
		Status:     corev1.PodStatus{Phase: corev1.PodRunning},
	}
}

// newTestConsole wires a full console server over fake agents and returns
// its handler behind an httptest server, plus the app state for transitions.
func newTestConsole(t *testing.T, clients ...*nodeclient.Client) (*httptest.Server, *appstate.AppState) {
	t.Helper()

	logger := testLogger()
	agg := cluster.NewAggregator(logger, clients)
	streamer := stream.NewStreamer(logger, agg, 20*time.Millisecond)

	renderer, err := ui.NewRenderer()
	require.NoError(t, err)

	appState := appstate.New(logger, time.Now())
	require.NoError(t, appState.SetStarting(t.Context()))
	require.NoError(t, appState.SetRunning(t.Context()))

	s := New(logger, appState, agg, streamer, registry.New(""), renderer, "lab", ":0")

	srv := httptest.NewServer(s.routes())
	t.Cleanup(srv.Close)

	return srv, appState
}

func getJSON(t *testing.T, url string, out any) *http.Response {
	t.Helper()

	resp, err := http.Get(url)
	require.NoError(t, err)

	defer resp.Body.Close()

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}

	return resp
}

func TestAPIDiscovery(t *testing.T) {
	t.Parallel()

	srv, _ := newTestConsole(t, fakeAgent(t, "node-a"))

	var versions metav1.APIVersions

	resp := getJSON(t, srv.URL+"/api", &versions)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{"v1"}, versions.Versions)

	var resources metav1.APIResourceList

	resp = getJSON(t, srv.URL+"/api/v1", &resources)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "v1", resources.GroupVersion)

	names := make([]string, 0, len(resources.APIResources))
	for _, r := range resources.APIResources {
		names = append(names, r.Name)
	}

	assert.Contains(t, names, "pods")
	assert.Contains(t, names, "nodes")
}

func TestListAllPodsEndpoint(t *testing.T) {
	t.Parallel()

	srv, _ := newTestConsole(t,
		fakeAgent(t, "node-a", testPod("default", "web")),
		fakeAgent(t, "node-b", testPod("kube-system", "dns")),
	)

	var list corev1.PodList

	resp := getJSON(t, srv.URL+"/api/v1/pods", &list)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "PodList", list.Kind)
	require.Len(t, list.Items, 2)

	for _, pod := range list.Items {
		assert.NotEmpty(t, pod.Annotations[cluster.OwnerAnnotation])
	}
}

func TestNamespacedPodsEndpoint(t *testing.T) {
	t.Parallel()

	srv, _ := newTestConsole(t,
		fakeAgent(t, "node-a", testPod("default", "web")),
		fakeAgent(t, "node-b", testPod("kube-system", "dns")),
	)

	var list corev1.PodList

	resp := getJSON(t, srv.URL+"/api/v1/namespaces/kube-system/pods", &list)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, list.Items, 1)
	assert.Equal(t, "dns", list.Items[0].Name)
}

func TestGetPodEndpoint(t *testing.T) {
	t.Parallel()

	srv, _ := newTestConsole(t, fakeAgent(t, "node-a", testPod("default", "web")))

	t.Run("found", func(t *testing.T) {
		t.Parallel()

		var pod corev1.Pod

		resp := getJSON(t, srv.URL+"/api/v1/namespaces/default/pods/web", &pod)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "web", pod.Name)
		assert.Equal(t, "node-a", pod.Annotations[cluster.OwnerAnnotation])
	})

	t.Run("missing is 404", func(t *testing.T) {
		t.Parallel()

		resp, err := http.Get(srv.URL + "/api/v1/namespaces/default/pods/ghost")
		require.NoError(t, err)

		defer resp.Body.Close()

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestCreatePodEndpoint(t *testing.T) {
	t.Parallel()

	srv, _ := newTestConsole(t, fakeAgent(t, "node-a"))

	manifest := testPod("ignored", "new-pod")

	payload, err := json.Marshal(&manifest)
	require.NoError(t, err)

	resp, err := http.Post(srv.URL+"/api/v1/namespaces/default/pods", "application/json", bytes.NewReader(payload))
	require.NoError(t, err)

	defer resp.Body.Close()

	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created corev1.Pod

	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	assert.Equal(t, "new-pod", created.Name)
	// The namespace in the URL wins over the manifest.
	assert.Equal(t, "default", created.Namespace)
}

func TestCreatePodEndpoint_BadBody(t *testing.T) {
	t.Parallel()

	srv, _ := newTestConsole(t, fakeAgent(t, "node-a"))

	resp, err := http.Post(srv.URL+"/api/v1/namespaces/default/pods", "application/json", strings.NewReader("{"))
	require.NoError(t, err)

	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDeletePodEndpoint(t *testing.T) {
	t.Parallel()

	srv, _ := newTestConsole(t, fakeAgent(t, "node-a", testPod("default", "web")))

	req, err := http.NewRequestWithContext(t.Context(), http.MethodDelete, srv.URL+"/api/v1/namespaces/default/pods/web", nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)

	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var status metav1.Status

	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	assert.Equal(t, metav1.StatusSuccess, status.Status)
}

func TestPodLogEndpoint(t *testing.T) {
	t.Parallel()

	srv, _ := newTestConsole(t, fakeAgent(t, "node-a", testPod("default", "web")))

	resp, err := http.Get(srv.URL + "/api/v1/namespaces/default/pods/web/log")
	require.NoError(t, err)

	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/plain")

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "log from node-a", string(body))
}

func TestNodesEndpoints(t *testing.T) {
	t.Parallel()

	srv, _ := newTestConsole(t, fakeAgent(t, "node-a"), fakeAgent(t, "node-b"))

	var list corev1.NodeList

	resp := getJSON(t, srv.URL+"/api/v1/nodes", &list)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "NodeList", list.Kind)
	assert.Len(t, list.Items, 2)

	var node corev1.Node

	resp = getJSON(t, srv.URL+"/api/v1/nodes/node-a", &node)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "node-a", node.Name)

	missing, err := http.Get(srv.URL + "/api/v1/nodes/node-x")
	require.NoError(t, err)

	defer missing.Body.Close()

	assert.Equal(t, http.StatusNotFound, missing.StatusCode)
}

func TestProcessHealthEndpoints(t *testing.T) {
	t.Parallel()

	srv, appState := newTestConsole(t, fakeAgent(t, "node-a"))

	for _, path := range []string{"/healthz", "/readyz"} {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
	}

	var status statusResponse

	resp := getJSON(t, srv.URL+"/-/status", &status)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, string(appstate.StateRunning), status.State)

	require.NoError(t, appState.SetTerminating(t.Context()))

	for _, path := range []string{"/healthz", "/readyz"} {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode, path)
	}
}

func TestRootRedirectsToDashboard(t *testing.T) {
	t.Parallel()

	srv, _ := newTestConsole(t, fakeAgent(t, "node-a"))

	client := &http.Client{
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	resp, err := client.Get(srv.URL + "/")
	require.NoError(t, err)

	defer resp.Body.Close()

	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/ui/", resp.Header.Get("Location"))
}

func TestUIPages(t *testing.T) {
	t.Parallel()

	srv, _ := newTestConsole(t, fakeAgent(t, "node-a", testPod("default", "web")))

	paths := []string{
		"/ui/",
		"/ui/pods",
		"/ui/pods/default/web",
		"/ui/nodes",
		"/ui/nodes/node-a",
		"/ui/namespaces",
		"/ui/namespaces/default",
		"/ui/registry",
	}

	for _, path := range paths {
		t.Run(path, func(t *testing.T) {
			t.Parallel()

			resp, err := http.Get(srv.URL + path)
			require.NoError(t, err)

			defer resp.Body.Close()

			assert.Equal(t, http.StatusOK, resp.StatusCode)

			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			assert.Contains(t, string(body), "<!DOCTYPE html>")
		})
	}
}

func TestPodEventsSSE(t *testing.T) {
	t.Parallel()

	srv, _ := newTestConsole(t, fakeAgent(t, "node-a", testPod("default", "web")))

	ctx, cancel := context.WithTimeout(t.Context(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/ui/events/pods", nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)

	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	// The fake agents refuse the watch, so the first event is a poll result.
	scanner := bufio.NewScanner(resp.Body)

	var eventLine, dataLine string

	for scanner.Scan() {
		line := scanner.Text()

		switch {
		case strings.HasPrefix(line, "event: "):
			eventLine = line
		case strings.HasPrefix(line, "data: ") && eventLine != "":
			dataLine = line
		}

		if eventLine != "" && dataLine != "" {
			break
		}
	}

	require.Equal(t, "event: pod-list", eventLine)

	var pods []corev1.Pod

	require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(dataLine, "data: ")), &pods))
	require.Len(t, pods, 1)
	assert.Equal(t, "web", pods[0].Name)
}

func TestWriteSSEEvent_MultilineData(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()

	writeSSEEvent(rec, stream.Event{Type: stream.EventPodUpdate, Data: "line1\nline2"})

	assert.Equal(t, "event: pod-update\ndata: line1\ndata: line2\n\n", rec.Body.String())
}
