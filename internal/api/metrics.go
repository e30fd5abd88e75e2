package api

import (
	"context"
	"database/sql"
	"net/http"
	"runtime"
	"time"
)

// DBStatsProvider is satisfied by *database.DB.
type DBStatsProvider interface {
	HealthChecker
	Stats() sql.DBStats
}

// SystemMetrics represents the complete system metrics response.
type SystemMetrics struct {
	Timestamp     string           `json:"timestamp"`
	Version       string           `json:"version"`
	UptimeSeconds int64            `json:"uptime_seconds"`
	Runtime       RuntimeMetrics   `json:"runtime"`
	WebSocket     WSMetrics        `json:"websocket"`
	MQTT          ConnMetrics      `json:"mqtt"`
	InfluxDB      ConnMetrics      `json:"influxdb"`
	Database      *DatabaseMetrics `json:"database,omitempty"`
	Player        *PlayerMetrics   `json:"player,omitempty"`
}

// RuntimeMetrics contains Go runtime statistics.
type RuntimeMetrics struct {
	Goroutines    int     `json:"goroutines"`
	MemoryAllocMB float64 `json:"memory_alloc_mb"`
	MemoryTotalMB float64 `json:"memory_total_mb"`
	NumGC         uint32  `json:"num_gc"`
}

// WSMetrics contains WebSocket hub statistics.
type WSMetrics struct {
	ConnectedClients int `json:"connected_clients"`
}

// ConnMetrics reports an optional client's state.
type ConnMetrics struct {
	Enabled   bool `json:"enabled"`
	Connected bool `json:"connected"`
}

// DatabaseMetrics contains database connection pool statistics.
type DatabaseMetrics struct {
	OpenConnections int   `json:"open_connections"`
	InUse           int   `json:"in_use"`
	Idle            int   `json:"idle"`
	WaitCount       int64 `json:"wait_count"`
}

// PlayerMetrics contains the playback state.
type PlayerMetrics struct {
	SequenceID int    `json:"sequence_id"`
	Sequence   string `json:"sequence"`
	SpeedMS    int    `json:"speed_ms"`
	State      string `json:"state"`
	Steps      uint64 `json:"steps"`
}

// metricsTimeout bounds how long the metrics handler waits on the control loop.
const metricsTimeout = 2 * time.Second

// handleMetrics returns comprehensive system metrics.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	metrics := SystemMetrics{
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Version:       s.version,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		Runtime: RuntimeMetrics{
			Goroutines:    runtime.NumGoroutine(),
			MemoryAllocMB: float64(memStats.Alloc) / 1024 / 1024,
			MemoryTotalMB: float64(memStats.TotalAlloc) / 1024 / 1024,
			NumGC:         memStats.NumGC,
		},
		WebSocket: WSMetrics{
			ConnectedClients: s.hub.ClientCount(),
		},
		MQTT:     connMetrics(s.mqtt),
		InfluxDB: connMetrics(s.influx),
	}

	if s.db != nil {
		dbStats := s.db.Stats()
		metrics.Database = &DatabaseMetrics{
			OpenConnections: dbStats.OpenConnections,
			InUse:           dbStats.InUse,
			Idle:            dbStats.Idle,
			WaitCount:       dbStats.WaitCount,
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), metricsTimeout)
	defer cancel()
	if snap, err := s.ctrl.Snapshot(ctx); err == nil {
		metrics.Player = &PlayerMetrics{
			SequenceID: snap.Status.SequenceID,
			Sequence:   snap.Name,
			SpeedMS:    snap.Status.Speed.Milliseconds(),
			State:      snap.State,
			Steps:      snap.Steps,
		}
	}

	writeJSON(w, http.StatusOK, metrics)
}

func connMetrics(c ConnectionReporter) ConnMetrics {
	if c == nil {
		return ConnMetrics{}
	}
	return ConnMetrics{Enabled: true, Connected: c.IsConnected()}
}
