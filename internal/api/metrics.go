package api

import (
	"net/http"
	"runtime"
	"time"
)

// SystemMetrics represents the complete system metrics response.
type SystemMetrics struct {
	Timestamp     string          `json:"timestamp"`
	Version       string          `json:"version"`
	UptimeSeconds int64           `json:"uptime_seconds"`
	Runtime       RuntimeMetrics  `json:"runtime"`
	WebSocket     WSMetrics       `json:"websocket"`
	MQTT          BrokerMetrics   `json:"mqtt"`
	InfluxDB      BrokerMetrics   `json:"influxdb"`
	Lifecycle     LifecycleStats  `json:"lifecycle"`
	Database      DatabaseMetrics `json:"database"`
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
	ConnectedClients int    `json:"connected_clients"`
	DroppedMessages  uint64 `json:"dropped_messages"`
}

// BrokerMetrics reports an optional outbound connection.
type BrokerMetrics struct {
	Enabled   bool `json:"enabled"`
	Connected bool `json:"connected"`
}

// LifecycleStats summarises the coordinator.
type LifecycleStats struct {
	Prepared    bool    `json:"prepared"`
	LiveDrivers int     `json:"live_drivers"`
	RefreshRate float64 `json:"refresh_rate"`
	Recording   bool    `json:"recording"`
}

// DatabaseMetrics contains database connection pool statistics.
type DatabaseMetrics struct {
	OpenConnections int   `json:"open_connections"`
	InUse           int   `json:"in_use"`
	Idle            int   `json:"idle"`
	WaitCount       int64 `json:"wait_count"`
}

// handleMetrics returns process, connection and coordinator metrics.
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
	}

	if s.hub != nil {
		metrics.WebSocket = WSMetrics{
			ConnectedClients: s.hub.ClientCount(),
			DroppedMessages:  s.hub.Dropped(),
		}
	}
	if s.mqtt != nil {
		metrics.MQTT = BrokerMetrics{Enabled: true, Connected: s.mqtt.IsConnected()}
	}
	if s.influx != nil {
		metrics.InfluxDB = BrokerMetrics{Enabled: true, Connected: s.influx.IsConnected()}
	}

	if st, err := s.loop.Status(r.Context()); err == nil {
		metrics.Lifecycle.Prepared = st.Prepared
		metrics.Lifecycle.RefreshRate = st.RefreshRate
		for _, d := range st.Drivers {
			if d.Live {
				metrics.Lifecycle.LiveDrivers++
			}
		}
	}
	if s.recordings != nil {
		_, metrics.Lifecycle.Recording = s.recordings.Current()
	}

	if s.db != nil {
		dbStats := s.db.Stats()
		metrics.Database = DatabaseMetrics{
			OpenConnections: dbStats.OpenConnections,
			InUse:           dbStats.InUse,
			Idle:            dbStats.Idle,
			WaitCount:       dbStats.WaitCount,
		}
	}

	writeJSON(w, http.StatusOK, metrics)
}
