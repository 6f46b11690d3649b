package config

import (
	"time"

	"eventdash/pkg/contracts"
)

// Application constants
const (
	// Application Info
	AppName    = "eventdash"
	AppTitle   = "Patient Event Dashboard"
	AppVersion = contracts.Version

	// Data defaults
	DefaultSourceFile    = "Eventsnew_data.xlsx"
	DefaultExportDir     = "reports"
	DefaultHistogramBins = 20
	MaxHistogramBins     = 500
	DefaultTopDiagnoses  = 10

	// Rate Limiting
	DefaultRateLimit = 100 // requests per second
	DefaultBurstSize = 50

	// Timeouts
	DefaultRequestTimeout = 30 * time.Second
	WebSocketPingPeriod   = 30 * time.Second
	WebSocketPongWait     = 60 * time.Second
)
