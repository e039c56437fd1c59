package server

import (
	"runtime"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/sys/unix"
)

// HealthProbe reports process status, free disk space on the output volume,
// memory usage, and the configured size limits.
type HealthProbe struct {
	outputDir    string
	maxFileSize  int64
	maxTotalSize int64
	startedAt    time.Time
}

// NewHealthProbe creates the probe backing GET /health.
func NewHealthProbe(outputDir string, maxFileSize, maxTotalSize int64) *HealthProbe {
	return &HealthProbe{
		outputDir:    outputDir,
		maxFileSize:  maxFileSize,
		maxTotalSize: maxTotalSize,
		startedAt:    time.Now(),
	}
}

func (p *HealthProbe) snapshot() HealthResponse {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	var diskFree uint64
	var stat unix.Statfs_t
	if err := unix.Statfs(p.outputDir, &stat); err == nil {
		diskFree = stat.Bavail * uint64(stat.Bsize)
	}

	return HealthResponse{
		Status:        "healthy",
		UptimeSec:     int64(time.Since(p.startedAt).Seconds()),
		DiskFree:      humanize.IBytes(diskFree),
		DiskFreeBytes: diskFree,
		MemoryUsed:    humanize.IBytes(memStats.HeapInuse),
		MaxFileSize:   humanize.IBytes(uint64(p.maxFileSize)),
		MaxTotalSize:  humanize.IBytes(uint64(p.maxTotalSize)),
	}
}
