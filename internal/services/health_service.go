package services

import (
	"context"
	"log/slog"
	"time"

	"eventdash/internal/infrastructure"
	"eventdash/pkg/contracts"
)

// DatasetProbe reports on the loaded dataset for readiness checks
type DatasetProbe interface {
	Ready() bool
	Stats(ctx context.Context) (LoadSummary, error)
}

// LoadSummary is the part of the load statistics shown in readiness output
type LoadSummary struct {
	Source  string `json:"source"`
	Records int    `json:"records"`
	Dropped int    `json:"dropped"`
}

// dashboardProbe adapts DashboardService to DatasetProbe
type dashboardProbe struct {
	svc *DashboardService
}

func (p dashboardProbe) Ready() bool {
	return p.svc != nil && p.svc.Ready()
}

func (p dashboardProbe) Stats(ctx context.Context) (LoadSummary, error) {
	stats, err := p.svc.Stats(ctx)
	if err != nil {
		return LoadSummary{}, err
	}
	return LoadSummary{Source: stats.Source, Records: stats.RowsKept, Dropped: stats.RowsDropped}, nil
}

// ProbeDashboard exposes a DashboardService as a DatasetProbe
func ProbeDashboard(svc *DashboardService) DatasetProbe {
	return dashboardProbe{svc: svc}
}

// HealthService provides health check functionality
type HealthService struct {
	probe     DatasetProbe
	startTime time.Time
	logger    *slog.Logger
}

// HealthStatus represents the health status response
type HealthStatus struct {
	Status    string                       `json:"status"`
	Timestamp time.Time                    `json:"timestamp"`
	Version   string                       `json:"version"`
	Runtime   *infrastructure.RuntimeStats `json:"runtime,omitempty"`
	Services  map[string]ServiceHealth     `json:"services,omitempty"`
}

// ServiceHealth represents individual service health
type ServiceHealth struct {
	Status  string       `json:"status"`
	Message string       `json:"message,omitempty"`
	Dataset *LoadSummary `json:"dataset,omitempty"`
}

// NewHealthService creates a health service. probe may be nil, in which case
// readiness always reports not ready.
func NewHealthService(probe DatasetProbe, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthService{
		probe:     probe,
		startTime: time.Now(),
		logger:    logger.With(slog.String("component", "health_service")),
	}
}

// HealthCheck returns overall health status
func (hs *HealthService) HealthCheck(ctx context.Context) HealthStatus {
	hs.logger.DebugContext(ctx, "health check",
		slog.Duration("uptime", time.Since(hs.startTime)))

	return HealthStatus{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   contracts.Version,
	}
}

// ReadinessCheck reports ready once a dataset is loaded
func (hs *HealthService) ReadinessCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    "ready",
		Timestamp: time.Now(),
		Version:   contracts.Version,
		Services:  map[string]ServiceHealth{"dataset": hs.checkDataset(ctx)},
	}

	for _, svc := range status.Services {
		if svc.Status != "ready" {
			status.Status = "not_ready"
			break
		}
	}
	return status
}

// LivenessCheck returns liveness status with runtime figures
func (hs *HealthService) LivenessCheck(ctx context.Context) HealthStatus {
	stats := infrastructure.ReadRuntimeStats(hs.startTime)
	return HealthStatus{
		Status:    "alive",
		Timestamp: time.Now(),
		Version:   contracts.Version,
		Runtime:   &stats,
	}
}

// Version returns version information
func (hs *HealthService) Version() contracts.VersionInfo {
	return contracts.GetVersionInfo()
}

func (hs *HealthService) checkDataset(ctx context.Context) ServiceHealth {
	if hs.probe == nil || !hs.probe.Ready() {
		return ServiceHealth{Status: "not_ready", Message: "no dataset loaded"}
	}
	summary, err := hs.probe.Stats(ctx)
	if err != nil {
		hs.logger.WarnContext(ctx, "dataset stats unavailable", slog.String("error", err.Error()))
		return ServiceHealth{Status: "not_ready", Message: err.Error()}
	}
	if summary.Records == 0 {
		return ServiceHealth{Status: "ready", Message: "dataset is empty", Dataset: &summary}
	}
	return ServiceHealth{Status: "ready", Dataset: &summary}
}
