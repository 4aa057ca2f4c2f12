package api

import (
	"net/http"
	"runtime"
	"time"
)

// SystemMetrics is the /metrics response.
type SystemMetrics struct {
	Timestamp     string         `json:"timestamp"`
	Version       string         `json:"version"`
	UptimeSeconds int64          `json:"uptime_seconds"`
	Runtime       RuntimeMetrics `json:"runtime"`
	Sender        *SenderMetrics `json:"sender,omitempty"`
	MQTT          *MQTTMetrics   `json:"mqtt,omitempty"`
	Jobs          int            `json:"jobs"`
	WSClients     int            `json:"websocket_clients"`
}

// RuntimeMetrics contains Go runtime statistics.
type RuntimeMetrics struct {
	Goroutines    int     `json:"goroutines"`
	MemoryAllocMB float64 `json:"memory_alloc_mb"`
	NumGC         uint32  `json:"num_gc"`
}

// SenderMetrics mirrors relay.SenderStats.
type SenderMetrics struct {
	Sends     uint64 `json:"sends"`
	Successes uint64 `json:"successes"`
	Failures  uint64 `json:"failures"`
	Attempts  uint64 `json:"attempts"`
}

// MQTTMetrics contains MQTT client state.
type MQTTMetrics struct {
	Connected bool `json:"connected"`
}

func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	metrics := SystemMetrics{
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Version:       s.version,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		Runtime: RuntimeMetrics{
			Goroutines:    runtime.NumGoroutine(),
			MemoryAllocMB: float64(mem.Alloc) / 1024 / 1024,
			NumGC:         mem.NumGC,
		},
	}

	if s.stats != nil {
		st := s.stats.Stats()
		metrics.Sender = &SenderMetrics{
			Sends:     st.Sends,
			Successes: st.Successes,
			Failures:  st.Failures,
			Attempts:  st.Attempts,
		}
	}
	if s.mqtt != nil {
		metrics.MQTT = &MQTTMetrics{Connected: s.mqtt.IsConnected()}
	}
	if s.jobs != nil {
		metrics.Jobs = len(s.jobs.Jobs())
	}
	if s.hub != nil {
		metrics.WSClients = s.hub.ClientCount()
	}

	writeJSON(w, http.StatusOK, metrics)
}
