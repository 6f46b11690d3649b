// Package services implements the business logic layer of the dashboard.
// It sits between the HTTP and WebSocket transports and the data processing
// engine, so handlers never touch records directly.
//
// # Available Services
//
//	- DashboardService: answers filter selections over the loaded dataset
//	  with the patient table, the aggregate series, PNG charts and CSV exports
//	- HealthService: liveness, readiness and version information
//
// # Dataset Ownership
//
// The dataset is loaded once at startup and handed to NewDashboardService.
// It is never modified afterwards, so every query is an independent
// computation and the service needs no locking.
//
// # Error Handling
//
// Services return *errors.APIError values for conditions clients can act on
// (no dataset loaded, unknown chart, empty series). Anything else is wrapped
// with fmt.Errorf and surfaces as a 500 through the error handler.
package services
