package metrics

import (
	"context"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
)

/* SystemMetrics represents the host the dashboard runs on */
type SystemMetrics struct {
	Timestamp time.Time      `json:"timestamp"`
	CPU       CPUMetrics     `json:"cpu"`
	Memory    MemoryMetrics  `json:"memory"`
	Disk      DiskMetrics    `json:"disk"`
	Process   ProcessMetrics `json:"process"`
}

/* CPUMetrics contains CPU usage information */
type CPUMetrics struct {
	UsagePercent float64 `json:"usage_percent"`
	Count        int     `json:"count"`
}

/* MemoryMetrics contains memory usage information */
type MemoryMetrics struct {
	Total       uint64  `json:"total"`
	Used        uint64  `json:"used"`
	Available   uint64  `json:"available"`
	UsedPercent float64 `json:"used_percent"`
}

/* DiskMetrics contains usage of the root filesystem */
type DiskMetrics struct {
	Total       uint64  `json:"total"`
	Used        uint64  `json:"used"`
	Free        uint64  `json:"free"`
	UsedPercent float64 `json:"used_percent"`
}

/* ProcessMetrics contains Go runtime information for this process */
type ProcessMetrics struct {
	GoRoutines int    `json:"go_routines"`
	HeapAlloc  uint64 `json:"heap_alloc"`
	HeapInuse  uint64 `json:"heap_inuse"`
}

// CollectSystemMetrics samples host CPU, memory and disk usage. Sources
// that fail are left at zero; sampleWindow is the CPU sampling period.
func CollectSystemMetrics(ctx context.Context, sampleWindow time.Duration) *SystemMetrics {
	metrics := &SystemMetrics{
		Timestamp: time.Now().UTC(),
	}

	if cpuPercent, err := cpu.PercentWithContext(ctx, sampleWindow, false); err == nil && len(cpuPercent) > 0 {
		metrics.CPU.UsagePercent = cpuPercent[0]
	}
	if cpuCount, err := cpu.CountsWithContext(ctx, true); err == nil {
		metrics.CPU.Count = cpuCount
	}

	if memStat, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		metrics.Memory.Total = memStat.Total
		metrics.Memory.Used = memStat.Used
		metrics.Memory.Available = memStat.Available
		metrics.Memory.UsedPercent = memStat.UsedPercent
	}

	if diskStat, err := disk.UsageWithContext(ctx, "/"); err == nil {
		metrics.Disk.Total = diskStat.Total
		metrics.Disk.Used = diskStat.Used
		metrics.Disk.Free = diskStat.Free
		metrics.Disk.UsedPercent = diskStat.UsedPercent
	}

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.Process.GoRoutines = runtime.NumGoroutine()
	metrics.Process.HeapAlloc = m.HeapAlloc
	metrics.Process.HeapInuse = m.HeapInuse

	return metrics
}
