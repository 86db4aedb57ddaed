package route

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/tidwall/gjson"
)

// OSRM routes requests against an OSRM compatible HTTP service.
type OSRM struct {
	endpoint string
	client   *http.Client
}

// NewOSRM returns a router for the service at endpoint.
// A nil client uses http.DefaultClient; request deadlines come from ctx.
func NewOSRM(endpoint string, client *http.Client) *OSRM {
	if client == nil {
		client = http.DefaultClient
	}
	return &OSRM{endpoint: strings.TrimSuffix(endpoint, "/"), client: client}
}

var osrmProfiles = map[Mode]string{
	ModeWalking: "foot",
	ModeCycling: "bike",
	ModeDriving: "car",
}

func (o *OSRM) url(req Request) (string, error) {
	profile, ok := osrmProfiles[req.Mode]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedMode, req.Mode)
	}
	coords := make([]string, 0, len(req.Waypoints)+2)
	for _, p := range req.Points() {
		coords = append(coords,
			strconv.FormatFloat(p.Lon(), 'f', 7, 64)+","+strconv.FormatFloat(p.Lat(), 'f', 7, 64))
	}
	q := url.Values{}
	q.Set("overview", "full")
	q.Set("geometries", "geojson")
	return fmt.Sprintf("%s/route/v1/%s/%s?%s", o.endpoint, profile, strings.Join(coords, ";"), q.Encode()), nil
}

func (o *OSRM) Route(ctx context.Context, req Request) (orb.LineString, error) {
	u, err := o.url(req)
	if err != nil {
		return nil, err
	}
	hreq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	res, err := o.client.Do(hreq)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, 8<<20))
	if err != nil {
		return nil, err
	}
	return parseOSRM(res.StatusCode, body)
}

func parseOSRM(status int, body []byte) (orb.LineString, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("osrm: invalid response (status %d)", status)
	}
	if code := gjson.GetBytes(body, "code").String(); code != "Ok" {
		msg := gjson.GetBytes(body, "message").String()
		return nil, fmt.Errorf("%w: osrm %s: %s (status %d)", ErrNoRoute, code, msg, status)
	}
	coords := gjson.GetBytes(body, "routes.0.geometry.coordinates").Array()
	if len(coords) < 2 {
		return nil, fmt.Errorf("%w: osrm returned %d coordinates", ErrNoRoute, len(coords))
	}
	out := make(orb.LineString, 0, len(coords))
	for _, c := range coords {
		pair := c.Array()
		if len(pair) < 2 {
			return nil, fmt.Errorf("osrm: malformed coordinate %s", c.Raw)
		}
		out = append(out, orb.Point{pair[0].Float(), pair[1].Float()})
	}
	return out, nil
}
