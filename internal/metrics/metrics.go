// Package metrics defines the Prometheus collectors exported by tunefolder.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Synchronization metrics
var (
	SyncRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tunefolder_sync_runs_total",
			Help: "Total number of playlist folder synchronizations",
		},
		[]string{"result"},
	)

	TracksDiscoveredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tunefolder_tracks_discovered_total",
			Help: "Total number of new audio files appended to playlists",
		},
	)

	TracksPrunedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tunefolder_tracks_pruned_total",
			Help: "Total number of stale descriptor entries removed",
		},
	)

	Playlists = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tunefolder_playlists",
			Help: "Number of playlists in the current catalog",
		},
	)
)

// Watcher metrics
var (
	WatcherEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tunefolder_watcher_events_total",
			Help: "Total number of relevant filesystem events seen by the folder watcher",
		},
		[]string{"op"},
	)

	WatchedDirectories = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tunefolder_watched_directories",
			Help: "Number of directories registered with the folder watcher",
		},
	)
)

// Descriptor metrics
var (
	DescriptorWritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tunefolder_descriptor_writes_total",
			Help: "Total number of playlist.json writes",
		},
		[]string{"result"},
	)

	DescriptorCorruptionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tunefolder_descriptor_corruptions_total",
			Help: "Total number of descriptors backed up and re-synthesized",
		},
	)
)

// Playback metrics
var (
	TrackLoadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tunefolder_track_loads_total",
			Help: "Total number of backend track loads",
		},
		[]string{"result"},
	)

	PlaybackPositionSeconds = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tunefolder_playback_position_seconds",
			Help: "Position of the current track in seconds",
		},
	)
)

// Result label values
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// Result maps an error to a result label
func Result(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultOK
}
