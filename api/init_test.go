package api

import (
	"context"
	"errors"
	"log/slog"

	"github.com/paulmach/orb"
	"github.com/rotblauer/catfuse/common"
	"github.com/rotblauer/catfuse/route"
)

func init() {
	common.SlogResetLevel(slog.LevelWarn)
}

var errUnreachable = errors.New("router unreachable")

// failingRouter fails every request, like a directions service that is down.
type failingRouter struct{}

func (failingRouter) Route(ctx context.Context, req route.Request) (orb.LineString, error) {
	return nil, errUnreachable
}
