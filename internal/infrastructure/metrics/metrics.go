// Package metrics holds the process-wide prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	CommandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jukebox_commands_total",
			Help: "Inbound room commands by type and result",
		},
		[]string{"command", "result"},
	)

	BroadcastsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jukebox_broadcasts_total",
			Help: "Room-wide events fanned out",
		},
		[]string{"event"},
	)

	ActiveRooms = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "jukebox_active_rooms",
			Help: "Rooms with an in-memory playback state",
		},
	)

	Connections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "jukebox_connections",
			Help: "Open websocket connections",
		},
	)

	DroppedFrames = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "jukebox_dropped_frames_total",
			Help: "Outbound frames dropped because a connection buffer was full or closed",
		},
	)

	PersistJobsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jukebox_persist_jobs_total",
			Help: "Asynchronous persistence writes by kind and result",
		},
		[]string{"kind", "result"},
	)

	PersistDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "jukebox_persist_dropped_total",
			Help: "Persistence writes dropped because the buffer was full",
		},
	)
)

func init() {
	prometheus.MustRegister(
		CommandsTotal,
		BroadcastsTotal,
		ActiveRooms,
		Connections,
		DroppedFrames,
		PersistJobsTotal,
		PersistDropped,
	)
}
