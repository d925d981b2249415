package nodeclient_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/mkube/mkube-console/internal/nodeclient"
)

func newPod(namespace, name string) corev1.Pod {
	return corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{Namespace: namespace, Name: name},
		Status:     corev1.PodStatus{Phase: corev1.PodRunning},
	}
}

func TestPing(t *testing.T) {
	t.Parallel()

	t.Run("2xx marks the node healthy", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))
		defer srv.Close()

		c := nodeclient.New("node-a", srv.URL, time.Second)

		require.NoError(t, c.Ping(t.Context()))
		assert.True(t, c.IsHealthy())
		assert.False(t, c.LastPing().IsZero())
	})

	t.Run("error status marks the node unhealthy", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		c := nodeclient.New("node-a", srv.URL, time.Second)

		err := c.Ping(t.Context())
		require.Error(t, err)
		assert.True(t, nodeclient.IsUnreachable(err))
		assert.False(t, c.IsHealthy())
	})

	t.Run("transport error marks the node unhealthy", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))
		srv.Close()

		c := nodeclient.New("node-a", srv.URL, time.Second)

		err := c.Ping(t.Context())
		require.Error(t, err)
		assert.True(t, nodeclient.IsUnreachable(err))
		assert.False(t, c.IsHealthy())
		assert.True(t, c.LastPing().IsZero())
	})

	t.Run("recovery flips the node back to healthy", func(t *testing.T) {
		t.Parallel()

		var healthy atomic.Bool

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			if healthy.Load() {
				w.WriteHeader(http.StatusOK)

				return
			}

			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		c := nodeclient.New("node-a", srv.URL, time.Second)

		require.Error(t, c.Ping(t.Context()))
		require.False(t, c.IsHealthy())

		healthy.Store(true)

		require.NoError(t, c.Ping(t.Context()))
		assert.True(t, c.IsHealthy())
	})
}

func TestNewClientDefaults(t *testing.T) {
	t.Parallel()

	c := nodeclient.New("node-a", "http://127.0.0.1:1", 0)

	assert.Equal(t, "node-a", c.Name())
	assert.Equal(t, "http://127.0.0.1:1", c.Address())
	// Fresh clients are healthy until the first ping says otherwise.
	assert.True(t, c.IsHealthy())
	assert.True(t, c.LastPing().IsZero())
}

func TestListPods(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/pods", r.URL.Path)

		list := corev1.PodList{Items: []corev1.Pod{newPod("default", "web"), newPod("kube-system", "dns")}}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(&list))
	}))
	defer srv.Close()

	c := nodeclient.New("node-a", srv.URL, time.Second)

	list, err := c.ListPods(t.Context())
	require.NoError(t, err)
	require.Len(t, list.Items, 2)
	assert.Equal(t, "web", list.Items[0].Name)
}

func TestGetPod_UpstreamError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "pod not found", http.StatusNotFound)
	}))
	defer srv.Close()

	c := nodeclient.New("node-a", srv.URL, time.Second)

	_, err := c.GetPod(t.Context(), "default", "missing")
	require.Error(t, err)

	ue, ok := nodeclient.IsUpstream(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusNotFound, ue.Status)
	assert.Equal(t, "node-a", ue.Node)
	assert.Contains(t, ue.Body, "pod not found")
}

func TestCreatePod(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/v1/namespaces/default/pods", r.URL.Path)

		var pod corev1.Pod
		require.NoError(t, json.NewDecoder(r.Body).Decode(&pod))

		// The agent may normalize the manifest; callers take its word.
		pod.Status.Phase = corev1.PodPending
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		require.NoError(t, json.NewEncoder(w).Encode(&pod))
	}))
	defer srv.Close()

	c := nodeclient.New("node-a", srv.URL, time.Second)

	in := newPod("default", "web")

	created, err := c.CreatePod(t.Context(), &in)
	require.NoError(t, err)
	assert.Equal(t, "web", created.Name)
	assert.Equal(t, corev1.PodPending, created.Status.Phase)
}

func TestDeletePod(t *testing.T) {
	t.Parallel()

	t.Run("success", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodDelete, r.Method)
			assert.Equal(t, "/api/v1/namespaces/default/pods/web", r.URL.Path)
			w.WriteHeader(http.StatusOK)
		}))
		defer srv.Close()

		c := nodeclient.New("node-a", srv.URL, time.Second)

		require.NoError(t, c.DeletePod(t.Context(), "default", "web"))
	})

	t.Run("error status surfaces as upstream error", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "no such pod", http.StatusNotFound)
		}))
		defer srv.Close()

		c := nodeclient.New("node-a", srv.URL, time.Second)

		err := c.DeletePod(t.Context(), "default", "missing")
		require.Error(t, err)

		_, ok := nodeclient.IsUpstream(err)
		assert.True(t, ok)
	})
}

func TestPodLog(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/namespaces/default/pods/web/log", r.URL.Path)

		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("line one\nline two\n"))
	}))
	defer srv.Close()

	c := nodeclient.New("node-a", srv.URL, time.Second)

	log, err := c.PodLog(t.Context(), "default", "web")
	require.NoError(t, err)
	assert.Equal(t, "line one\nline two\n", log)
}

func TestContainerLog(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/namespaces/default/pods/web/log", r.URL.Path)
		require.Equal(t, "sidecar", r.URL.Query().Get("container"))

		_, _ = w.Write([]byte("sidecar log"))
	}))
	defer srv.Close()

	c := nodeclient.New("node-a", srv.URL, time.Second)

	log, err := c.ContainerLog(t.Context(), "default", "web", "sidecar")
	require.NoError(t, err)
	assert.Equal(t, "sidecar log", log)
}

func TestGetNode(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/nodes/node-a", r.URL.Path)

		node := corev1.Node{ObjectMeta: metav1.ObjectMeta{Name: "node-a"}}
		require.NoError(t, json.NewEncoder(w).Encode(&node))
	}))
	defer srv.Close()

	c := nodeclient.New("node-a", srv.URL, time.Second)

	node, err := c.GetNode(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "node-a", node.Name)
}

func TestWatchPods(t *testing.T) {
	t.Parallel()

	t.Run("returns the open response", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "true", r.URL.Query().Get("watch"))

			_, _ = w.Write([]byte("{\"type\":\"ADDED\"}\n{\"type\":\"MODIFIED\"}\n"))
		}))
		defer srv.Close()

		c := nodeclient.New("node-a", srv.URL, time.Second)

		resp, err := c.WatchPods(t.Context())
		require.NoError(t, err)

		defer resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("agents without watch answer with an upstream error", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "watch not supported", http.StatusBadRequest)
		}))
		defer srv.Close()

		c := nodeclient.New("node-a", srv.URL, time.Second)

		_, err := c.WatchPods(t.Context())
		require.Error(t, err)

		ue, ok := nodeclient.IsUpstream(err)
		require.True(t, ok)
		assert.Equal(t, http.StatusBadRequest, ue.Status)
	})
}
