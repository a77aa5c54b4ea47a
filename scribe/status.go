package scribe

import (
	"net/http"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

type statusResponse struct {
	Status    string            `json:"status"`
	Uptime    string            `json:"uptime"`
	Timestamp string            `json:"timestamp"`
	Requests  requestStats      `json:"requests"`
	InFlight  []RequestSnapshot `json:"inFlight"`
	System    systemStats       `json:"system"`
}

type requestStats struct {
	Processed uint64 `json:"processed"`
	NoSpeech  uint64 `json:"noSpeech"`
	Failed    uint64 `json:"failed"`
	Active    int    `json:"active"`
}

type systemStats struct {
	CPUPercent    *float64 `json:"cpuPercent,omitempty"`
	MemoryPercent *float64 `json:"memoryPercent,omitempty"`
	Goroutines    int      `json:"goroutines"`
	HeapAllocMB   float64  `json:"heapAllocMb"`
}

func (s *Scribe) handleStatus(w http.ResponseWriter, r *http.Request) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	stats := systemStats{
		Goroutines:  runtime.NumGoroutine(),
		HeapAllocMB: float64(m.Alloc) / 1024 / 1024,
	}

	if percentages, err := cpu.PercentWithContext(r.Context(), 0, false); err == nil && len(percentages) > 0 {
		stats.CPUPercent = &percentages[0]
	} else if err != nil {
		s.logger.Debug("Could not read CPU usage", "error", err)
	}
	if vm, err := mem.VirtualMemoryWithContext(r.Context()); err == nil {
		stats.MemoryPercent = &vm.UsedPercent
	} else {
		s.logger.Debug("Could not read memory usage", "error", err)
	}

	writeJSON(w, http.StatusOK, statusResponse{
		Status:    "operational",
		Uptime:    time.Since(s.started).Round(time.Second).String(),
		Timestamp: time.Now().Format(time.RFC3339),
		Requests: requestStats{
			Processed: s.processed.Load(),
			NoSpeech:  s.noSpeech.Load(),
			Failed:    s.failed.Load(),
			Active:    s.requests.Len(),
		},
		InFlight: s.requests.Snapshot(),
		System:   stats,
	})
}
