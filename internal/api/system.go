package api

import (
	"net/http"
	"runtime"
	"time"
)

// SystemMetrics is the response of GET /api/v1/system.
type SystemMetrics struct {
	Timestamp     string           `json:"timestamp"`
	Version       string           `json:"version"`
	UptimeSeconds int64            `json:"uptime_seconds"`
	Runtime       RuntimeMetrics   `json:"runtime"`
	WebSocket     WSMetrics        `json:"websocket"`
	MQTT          MQTTMetrics      `json:"mqtt"`
	Bridge        BridgeMetrics    `json:"bridge"`
	Database      *DatabaseMetrics `json:"database,omitempty"`
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

// MQTTMetrics contains MQTT client statistics.
type MQTTMetrics struct {
	Connected     bool `json:"connected"`
	Subscriptions int  `json:"subscriptions"`
}

// subscriptionCounter is implemented by MQTT clients that track their
// subscriptions.
type subscriptionCounter interface {
	SubscriptionCount() int
}

// BridgeMetrics contains IR bridge counters.
type BridgeMetrics struct {
	Running          bool   `json:"running"`
	DevicesManaged   int    `json:"devices_managed"`
	CommandsReceived uint64 `json:"commands_received"`
	Transmissions    uint64 `json:"transmissions"`
	TransmitErrors   uint64 `json:"transmit_errors"`
	LookupMisses     uint64 `json:"lookup_misses"`
	AdapterFailures  uint64 `json:"adapter_failures"`
}

// DatabaseMetrics contains database connection pool statistics.
type DatabaseMetrics struct {
	OpenConnections int   `json:"open_connections"`
	InUse           int   `json:"in_use"`
	Idle            int   `json:"idle"`
	WaitCount       int64 `json:"wait_count"`
}

// handleSystem returns process, connection and bridge statistics.
func (s *Server) handleSystem(w http.ResponseWriter, _ *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	stats := s.climate.Stats()
	out := SystemMetrics{
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Version:       s.version,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		Runtime: RuntimeMetrics{
			Goroutines:    runtime.NumGoroutine(),
			MemoryAllocMB: float64(memStats.Alloc) / 1024 / 1024,
			MemoryTotalMB: float64(memStats.TotalAlloc) / 1024 / 1024,
			NumGC:         memStats.NumGC,
		},
		WebSocket: WSMetrics{ConnectedClients: s.Hub().ClientCount()},
		Bridge: BridgeMetrics{
			Running:          s.climate.IsRunning(),
			DevicesManaged:   len(s.climate.Climates()),
			CommandsReceived: stats.CommandsReceived,
			Transmissions:    stats.Transmissions,
			TransmitErrors:   stats.TransmitErrors,
			LookupMisses:     stats.LookupMisses,
			AdapterFailures:  stats.AdapterFailures,
		},
	}

	if s.mqtt != nil {
		out.MQTT.Connected = s.mqtt.IsConnected()
		if sc, ok := s.mqtt.(subscriptionCounter); ok {
			out.MQTT.Subscriptions = sc.SubscriptionCount()
		}
	}

	if s.db != nil {
		dbStats := s.db.Stats()
		out.Database = &DatabaseMetrics{
			OpenConnections: dbStats.OpenConnections,
			InUse:           dbStats.InUse,
			Idle:            dbStats.Idle,
			WaitCount:       dbStats.WaitCount,
		}
	}

	writeJSON(w, http.StatusOK, out)
}
