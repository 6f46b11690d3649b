// Package config loads the dashboard settings.
//
// Sources are layered: Default() first, then a YAML file (config.yaml,
// configs/config.yaml or ../configs/config.yaml, first found), then
// environment variables named EVENTDASH_<SECTION>_<FIELD>:
//
//	EVENTDASH_SERVER_PORT=8080
//	EVENTDASH_DATA_SOURCE_FILE=/srv/data/Eventsnew_data.xlsx
//	EVENTDASH_DATA_SHEET=Events
//	EVENTDASH_DATA_HISTOGRAM_BINS=30
//	EVENTDASH_LOGGING_LEVEL=debug
//	EVENTDASH_TELEMETRY_ENABLE_TRACING=true
//
// The event source is read once at startup; changing it needs a restart.
package config
