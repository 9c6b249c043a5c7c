package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// CarConnectivityStatus reports the car link state.
	// 1 = connected, 0 = anything else.
	CarConnectivityStatus = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "carroom_car_connectivity_status",
			Help: "The connectivity status of the car link (1=connected, 0=not connected).",
		},
	)

	// InstructionsEnqueuedTotal counts instructions admitted to the queue.
	InstructionsEnqueuedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "carroom_instructions_enqueued_total",
			Help: "Total number of car instructions admitted to the dispatch queue.",
		},
		[]string{"kind"},
	)

	// InstructionsDispatchedTotal counts dispatch attempts by result.
	InstructionsDispatchedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "carroom_instructions_dispatched_total",
			Help: "Total number of car instructions popped by the dispatch loop.",
		},
		[]string{"result"}, // result: sent/failed
	)

	// QueueDepth tracks the number of instructions waiting for dispatch.
	QueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "carroom_instruction_queue_depth",
			Help: "Number of car instructions waiting in the dispatch queue.",
		},
	)

	// SendLatency observes the time spent transmitting one control frame.
	SendLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "carroom_car_send_latency_seconds",
			Help:    "Latency of transmitting one control frame to the car.",
			Buckets: prometheus.DefBuckets,
		},
	)

	// PlayersInRoom tracks the current number of connected players.
	PlayersInRoom = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "carroom_players_in_room",
			Help: "Number of players currently in the room.",
		},
	)
)

// Registry is the room's metrics registry, served on /metrics.
var Registry = prometheus.NewRegistry()

func init() {
	Registry.MustRegister(
		CarConnectivityStatus,
		InstructionsEnqueuedTotal,
		InstructionsDispatchedTotal,
		QueueDepth,
		SendLatency,
		PlayersInRoom,
		collectors.NewGoCollector(),
	)
}

// Handler returns the HTTP handler exposing the registry.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
