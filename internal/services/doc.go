// Package services implements the business logic layer of the dashboard.
// It sits between the HTTP handlers and the dataprocessing pipeline.
//
// DashboardService owns the cached dataset. Every request checks the
// fingerprint of the source files; an unchanged fingerprint reuses the cached
// dataset, a changed one triggers a rebuild shared by all concurrent callers.
// A successful rebuild that changes the fingerprint is announced to open
// dashboards over WebSocket. A failed rebuild keeps the previous dataset in
// service.
//
// HealthService answers liveness and readiness checks. Readiness requires
// every source file to exist and a dataset to be available.
//
// Example usage:
//
//	dashboard := services.NewDashboardService(pipeline, hub, metrics, logger)
//	report, err := dashboard.Report(ctx, dataprocessing.Query{})
//	if errors.Is(err, services.ErrDatasetUnavailable) {
//	    // 503
//	}
package services
