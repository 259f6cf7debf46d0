package handlers

import (
	"net/http"
	"runtime"
	"time"
)

type memoryStats struct {
	Alloc      uint64 `json:"alloc"`
	TotalAlloc uint64 `json:"totalAlloc"`
	Sys        uint64 `json:"sys"`
	HeapInuse  uint64 `json:"heapInuse"`
	NumGC      uint32 `json:"numGC"`
	Goroutines int    `json:"goroutines"`
}

// Stats reports process diagnostics.
func (a *App) Stats(w http.ResponseWriter, r *http.Request) {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	a.json(w, http.StatusOK, map[string]any{
		"success": true,
		"stats": map[string]any{
			"uptime": time.Since(a.Started).Seconds(),
			"memory": memoryStats{
				Alloc:      ms.Alloc,
				TotalAlloc: ms.TotalAlloc,
				Sys:        ms.Sys,
				HeapInuse:  ms.HeapInuse,
				NumGC:      ms.NumGC,
				Goroutines: runtime.NumGoroutine(),
			},
			"goVersion": runtime.Version(),
			"platform":  runtime.GOOS + "/" + runtime.GOARCH,
			"provider":  a.Processor.Provider(),
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		},
	})
}
