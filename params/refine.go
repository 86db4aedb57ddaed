package params

import (
	"time"

	"github.com/rotblauer/catfuse/common"
)

type RefineConfig struct {
	// OutlierMaxSpeed is the implied speed (m/s) above which a point is
	// dropped, measured from the last kept point over an assumed interval.
	OutlierMaxSpeed float64
	// OutlierInterval is the interval assumed between consecutive points.
	OutlierInterval time.Duration

	// SimplifyTolerance is the Douglas-Peucker tolerance in meters.
	SimplifyTolerance float64
	// SimplifyToleranceRun is used instead when the activity is a run,
	// since faster traces tolerate coarser geometry.
	SimplifyToleranceRun float64

	// SmoothingWindow is the centered moving average window, in points.
	SmoothingWindow int

	// SnapChunkSize is the number of points per route-snap request.
	// Consecutive chunks overlap by one point.
	SnapChunkSize int
	// SnapTimeout bounds each route-snap request.
	SnapTimeout time.Duration
	// SnapConcurrency limits in-flight route-snap requests.
	SnapConcurrency int
}

func DefaultRefineConfig() *RefineConfig {
	return &RefineConfig{
		OutlierMaxSpeed:      common.SpeedOfSprintingMax,
		OutlierInterval:      time.Second,
		SimplifyTolerance:    5,
		SimplifyToleranceRun: 10,
		SmoothingWindow:      3,
		SnapChunkSize:        10,
		SnapTimeout:          5 * time.Second,
		SnapConcurrency:      4,
	}
}

type RouteConfig struct {
	// Kind is one of "identity" or "osrm".
	Kind string
	// OSRMEndpoint is the base URL of an OSRM compatible routing service.
	OSRMEndpoint string
	// CacheSize is the number of routed responses kept in memory.
	// Zero disables caching.
	CacheSize int
}

func DefaultRouteConfig() *RouteConfig {
	return &RouteConfig{
		Kind:         "identity",
		OSRMEndpoint: "https://router.project-osrm.org",
		CacheSize:    256,
	}
}
