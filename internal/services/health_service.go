package services

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"time"

	apperrors "banvicdash/internal/errors"
	"banvicdash/internal/files"
	"banvicdash/pkg/contracts"
)

// Health states
const (
	StatusOK       = "ok"
	StatusReady    = "ready"
	StatusNotReady = "not_ready"
	StatusAlive    = "alive"
)

// ClientCounter reports connected WebSocket clients.
type ClientCounter interface {
	ClientCount() int
}

// HealthService provides health check functionality
type HealthService struct {
	discovery *files.Discovery
	dashboard *DashboardService
	hub       ClientCounter
	startTime time.Time
	logger    *slog.Logger
}

// HealthStatus represents the health status response
type HealthStatus struct {
	Status    string                   `json:"status"`
	Timestamp time.Time                `json:"timestamp"`
	Version   string                   `json:"version"`
	Runtime   map[string]any           `json:"runtime,omitempty"`
	Services  map[string]ServiceHealth `json:"services,omitempty"`
}

// ServiceHealth represents individual service health
type ServiceHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// NewHealthService creates a new health service. hub may be nil.
func NewHealthService(discovery *files.Discovery, dashboard *DashboardService, hub ClientCounter, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthService{
		discovery: discovery,
		dashboard: dashboard,
		hub:       hub,
		startTime: time.Now(),
		logger:    logger.With(slog.String("component", "health_service")),
	}
}

// HealthCheck returns overall health status
func (hs *HealthService) HealthCheck(ctx context.Context) HealthStatus {
	return HealthStatus{
		Status:    StatusOK,
		Timestamp: time.Now(),
		Version:   contracts.Version,
	}
}

// ReadinessCheck reports ready when every source file exists and a dataset
// can be served.
func (hs *HealthService) ReadinessCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    StatusReady,
		Timestamp: time.Now(),
		Version:   contracts.Version,
		Services: map[string]ServiceHealth{
			"files":   hs.checkFiles(),
			"dataset": hs.checkDataset(ctx),
		},
	}

	for name, service := range status.Services {
		if service.Status != StatusReady {
			status.Status = StatusNotReady
			hs.logger.WarnContext(ctx, "readiness check failed",
				slog.String("service", name),
				slog.String("message", service.Message))
		}
	}
	return status
}

// LivenessCheck returns liveness status
func (hs *HealthService) LivenessCheck(ctx context.Context) HealthStatus {
	rt := map[string]any{
		"uptime":     time.Since(hs.startTime).Seconds(),
		"go_version": runtime.Version(),
		"goroutines": runtime.NumGoroutine(),
	}
	if hs.hub != nil {
		rt["websocket_clients"] = hs.hub.ClientCount()
	}
	return HealthStatus{
		Status:    StatusAlive,
		Timestamp: time.Now(),
		Version:   contracts.Version,
		Runtime:   rt,
	}
}

// Version returns version information
func (hs *HealthService) Version() contracts.VersionInfo {
	return contracts.GetVersionInfo()
}

// Sources lists the configured source files.
func (hs *HealthService) Sources() []files.FileInfo {
	return hs.discovery.Sources()
}

// DataFiles lists every CSV and XLSX file in the data directory, including
// files that are not configured as a source.
func (hs *HealthService) DataFiles() ([]files.FileInfo, error) {
	found, err := hs.discovery.FindDataFiles()
	if err != nil {
		return nil, apperrors.NewStorageError("data directory is not readable", err)
	}
	return found, nil
}

func (hs *HealthService) checkFiles() ServiceHealth {
	if missing := hs.discovery.Missing(); len(missing) > 0 {
		return ServiceHealth{
			Status:  StatusNotReady,
			Message: fmt.Sprintf("missing source files: %s", strings.Join(missing, ", ")),
		}
	}
	if latest, ok := files.GetLatestFile(hs.discovery.Sources()); ok {
		return ServiceHealth{
			Status:  StatusReady,
			Message: fmt.Sprintf("latest change: %s at %s", latest.Name, latest.ModTime.UTC().Format(time.RFC3339)),
		}
	}
	return ServiceHealth{Status: StatusReady}
}

func (hs *HealthService) checkDataset(ctx context.Context) ServiceHealth {
	if hs.dashboard == nil {
		return ServiceHealth{Status: StatusNotReady, Message: "dashboard service not initialized"}
	}
	ds, err := hs.dashboard.Dataset(ctx)
	if err != nil {
		return ServiceHealth{Status: StatusNotReady, Message: err.Error()}
	}
	return ServiceHealth{Status: StatusReady, Message: "fingerprint " + ds.Fingerprint}
}
