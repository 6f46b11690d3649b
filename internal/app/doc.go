// Package app wires the patient event dashboard together.
//
// New loads the event source once, builds the services around the
// resulting dataset and mounts the HTTP routes:
//
//	/                       HTML dashboard
//	/api/...                JSON API, health and version
//	/ws                     interactive session
//	/metrics                Prometheus exposition
//
// Run serves until the context is cancelled or the process receives
// SIGINT or SIGTERM, then closes open sessions, drains the server and
// flushes telemetry.
package app
