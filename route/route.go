/*
Package route requests routed paths from a directions service.
*/
package route

import (
	"context"
	"errors"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/rotblauer/catfuse/params"
	"github.com/rotblauer/catfuse/types/activity"
)

var (
	ErrUnsupportedMode = errors.New("unsupported transport mode")
	ErrNoRoute         = errors.New("no route")
)

// Mode is a transport mode.
type Mode string

const (
	ModeWalking Mode = "walking"
	ModeCycling Mode = "cycling"
	ModeDriving Mode = "driving"
)

// ModeFor returns the transport mode used to route an activity.
// All supported activities are on foot.
func ModeFor(a activity.Activity) Mode {
	return ModeWalking
}

// Request asks for a path from From to To through Waypoints, in order.
type Request struct {
	From      orb.Point
	To        orb.Point
	Waypoints []orb.Point
	Mode      Mode
}

// Points returns the request's points in travel order.
func (r Request) Points() []orb.Point {
	pts := make([]orb.Point, 0, len(r.Waypoints)+2)
	pts = append(pts, r.From)
	pts = append(pts, r.Waypoints...)
	return append(pts, r.To)
}

// Router answers routing requests. Implementations must honor ctx
// cancellation.
type Router interface {
	Route(ctx context.Context, req Request) (orb.LineString, error)
}

// Identity routes every request along its own points.
// It never fails, and is the offline default.
type Identity struct{}

func (Identity) Route(ctx context.Context, req Request) (orb.LineString, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return orb.LineString(req.Points()), nil
}

// New builds the configured router, wrapped in a cache when enabled.
func New(config *params.RouteConfig) (Router, error) {
	if config == nil {
		config = params.DefaultRouteConfig()
	}
	var r Router
	switch config.Kind {
	case "", "identity":
		r = Identity{}
	case "osrm":
		r = NewOSRM(config.OSRMEndpoint, nil)
	default:
		return nil, fmt.Errorf("unknown router kind %q", config.Kind)
	}
	if config.CacheSize > 0 {
		return NewCached(r, config.CacheSize)
	}
	return r, nil
}
