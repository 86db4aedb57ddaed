package refine

import (
	"context"
	"log/slog"

	"github.com/paulmach/orb"
	"github.com/rotblauer/catfuse/params"
	"github.com/rotblauer/catfuse/route"
	"golang.org/x/sync/errgroup"
)

// Chunks splits path into chunks of size points where consecutive
// chunks share one point.
func Chunks(path orb.LineString, size int) []orb.LineString {
	if size < 2 {
		size = 2
	}
	if len(path) < 2 {
		return []orb.LineString{path.Clone()}
	}
	var chunks []orb.LineString
	for start := 0; start < len(path)-1; start += size - 1 {
		end := min(start+size, len(path))
		chunks = append(chunks, path[start:end].Clone())
	}
	return chunks
}

// Snap routes each chunk of path between its endpoints through its
// interior points. A chunk whose request fails, times out, or is
// cancelled keeps its own points. Results are joined in chunk order,
// dropping each later chunk's shared first point.
func Snap(ctx context.Context, path orb.LineString, router route.Router, mode route.Mode, config *params.RefineConfig) orb.LineString {
	if len(path) < 2 {
		return path.Clone()
	}
	chunks := Chunks(path, config.SnapChunkSize)
	results := make([]orb.LineString, len(chunks))

	g := errgroup.Group{}
	if config.SnapConcurrency > 0 {
		g.SetLimit(config.SnapConcurrency)
	}
	for i, chunk := range chunks {
		i, chunk := i, chunk
		g.Go(func() error {
			results[i] = snapChunk(ctx, chunk, router, mode, config, i)
			return nil
		})
	}
	_ = g.Wait()

	out := make(orb.LineString, 0, len(path))
	for i, r := range results {
		if i > 0 && len(r) > 0 {
			r = r[1:]
		}
		out = append(out, r...)
	}
	return out
}

func snapChunk(ctx context.Context, chunk orb.LineString, router route.Router, mode route.Mode, config *params.RefineConfig, index int) orb.LineString {
	if config.SnapTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, config.SnapTimeout)
		defer cancel()
	}
	req := route.Request{
		From:      chunk[0],
		To:        chunk[len(chunk)-1],
		Waypoints: chunk[1 : len(chunk)-1],
		Mode:      mode,
	}
	routed, err := router.Route(ctx, req)
	if err != nil {
		slog.Warn("Route snap failed, keeping chunk", "chunk", index, "points", len(chunk), "error", err)
		return chunk
	}
	if len(routed) < 2 {
		slog.Warn("Route snap returned short path, keeping chunk", "chunk", index, "points", len(routed))
		return chunk
	}
	return routed
}
