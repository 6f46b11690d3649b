// Package http contains the HTTP handlers of the patient event dashboard.
//
// Handlers are thin: they decode and validate the four selector query
// parameters into domain.Filters, call the dashboard service and render
// the result. JSON goes through go-chi/render, downloads and chart images
// are written directly.
//
// # Endpoints
//
//	GET /                                   HTML dashboard page
//	GET /api/dashboard                      filtered table, aggregates and selector domains
//	GET /api/dashboard/options              selector domains only
//	GET /api/dashboard/table                filtered table
//	GET /api/dashboard/table.csv            filtered table as CSV
//	GET /api/dashboard/charts/{chart}.png   one chart rendered as PNG
//	GET /api/dashboard/stats                load statistics
//	GET /api/health, /api/health/ready, /api/health/live, /api/version
//	GET /metrics                            Prometheus exposition
//
// Selector parameters are month, diagnosis, age_group and org_unit. An
// absent parameter, an empty one or the dimension's "All" label means no
// restriction.
//
// # Errors
//
// Failures are rendered as RFC 7807 problem details by the shared
// errors.ErrorHandler, including the no-data case of a chart request.
package http
