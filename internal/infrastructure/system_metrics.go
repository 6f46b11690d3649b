package infrastructure

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"go.opentelemetry.io/otel/metric"
)

// RuntimeStats is a point-in-time snapshot of the process
type RuntimeStats struct {
	Goroutines    int     `json:"goroutines"`
	HeapAllocMB   float64 `json:"heap_alloc_mb"`
	SysMB         float64 `json:"sys_mb"`
	GCCount       uint32  `json:"gc_count"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}

// ReadRuntimeStats samples the Go runtime
func ReadRuntimeStats(startTime time.Time) RuntimeStats {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	return RuntimeStats{
		Goroutines:    runtime.NumGoroutine(),
		HeapAllocMB:   float64(mem.HeapAlloc) / (1 << 20),
		SysMB:         float64(mem.Sys) / (1 << 20),
		GCCount:       mem.NumGC,
		UptimeSeconds: time.Since(startTime).Seconds(),
	}
}

// SystemMetricsCollector periodically publishes runtime gauges
type SystemMetricsCollector struct {
	goroutines metric.Int64Gauge
	heapAlloc  metric.Int64Gauge
	uptime     metric.Float64Gauge
	startTime  time.Time
	interval   time.Duration
}

// NewSystemMetricsCollector registers the runtime gauges on meter
func NewSystemMetricsCollector(meter metric.Meter, startTime time.Time, interval time.Duration) (*SystemMetricsCollector, error) {
	goroutines, err := meter.Int64Gauge("system_goroutines",
		metric.WithDescription("Number of active goroutines"))
	if err != nil {
		return nil, fmt.Errorf("failed to create goroutine gauge: %w", err)
	}

	heapAlloc, err := meter.Int64Gauge("system_heap_alloc_bytes",
		metric.WithDescription("Heap bytes allocated and in use"),
		metric.WithUnit("By"))
	if err != nil {
		return nil, fmt.Errorf("failed to create heap gauge: %w", err)
	}

	uptime, err := meter.Float64Gauge("system_uptime_seconds",
		metric.WithDescription("Process uptime in seconds"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, fmt.Errorf("failed to create uptime gauge: %w", err)
	}

	if interval <= 0 {
		interval = 15 * time.Second
	}

	return &SystemMetricsCollector{
		goroutines: goroutines,
		heapAlloc:  heapAlloc,
		uptime:     uptime,
		startTime:  startTime,
		interval:   interval,
	}, nil
}

// Collect records one sample and returns it
func (c *SystemMetricsCollector) Collect(ctx context.Context) RuntimeStats {
	stats := ReadRuntimeStats(c.startTime)
	c.goroutines.Record(ctx, int64(stats.Goroutines))
	c.heapAlloc.Record(ctx, int64(stats.HeapAllocMB*(1<<20)))
	c.uptime.Record(ctx, stats.UptimeSeconds)
	return stats
}

// Run samples on every tick until ctx is cancelled
func (c *SystemMetricsCollector) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.Collect(ctx)
	for {
		select {
		case <-ticker.C:
			c.Collect(ctx)
		case <-ctx.Done():
			return nil
		}
	}
}
