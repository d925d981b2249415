package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var nodePingFailuresTotal = promauto.With(prometheus.DefaultRegisterer).NewCounterVec(
	prometheus.CounterOpts{
		Name: "mkube_node_ping_failures_total",
		Help: "Total number of failed health pings per node agent.",
	},
	[]string{"node"},
)

var fanoutNodeErrorsTotal = promauto.With(prometheus.DefaultRegisterer).NewCounterVec(
	prometheus.CounterOpts{
		Name: "mkube_fanout_node_errors_total",
		Help: "Total number of per-node failures swallowed during fan-out reads.",
	},
	[]string{"node", "op"},
)

var podsScheduledTotal = promauto.With(prometheus.DefaultRegisterer).NewCounterVec(
	prometheus.CounterOpts{
		Name: "mkube_pods_scheduled_total",
		Help: "Total number of pods placed per node, by routing policy.",
	},
	[]string{"node", "policy"},
)

var streamSessionsActive = promauto.With(prometheus.DefaultRegisterer).NewGauge(
	prometheus.GaugeOpts{
		Name: "mkube_stream_sessions_active",
		Help: "Number of currently open pod event stream sessions.",
	},
)

// RecordNodePingFailure increments the ping failure counter for a node.
func RecordNodePingFailure(node string) {
	nodePingFailuresTotal.WithLabelValues(node).Inc()
}

// RecordFanoutNodeError increments the swallowed fan-out error counter for a
// node and operation (list_pods, get_node).
func RecordFanoutNodeError(node, op string) {
	fanoutNodeErrorsTotal.WithLabelValues(node, op).Inc()
}

// RecordPodScheduled increments the placement counter for a node. Policy is
// "explicit" when spec.nodeName routed the pod and "least-pods" otherwise.
func RecordPodScheduled(node, policy string) {
	podsScheduledTotal.WithLabelValues(node, policy).Inc()
}

// StreamSessionOpened increments the active stream session gauge.
func StreamSessionOpened() {
	streamSessionsActive.Inc()
}

// StreamSessionClosed decrements the active stream session gauge.
func StreamSessionClosed() {
	streamSessionsActive.Dec()
}
