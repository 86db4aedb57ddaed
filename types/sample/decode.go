package sample

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/paulmach/orb/geojson"
	"github.com/tidwall/gjson"
)

// Decode sniffs a single JSON object and decodes it as a sample.
// GeoJSON features are fixes; other objects are tagged with a "kind"
// attribute of "inertial" or "pedometer".
func Decode(msg []byte) (Sample, error) {
	parsed := gjson.ParseBytes(msg)
	if !parsed.IsObject() {
		return Sample{}, errors.New("unexpected non-object, want sample object")
	}

	if parsed.Get("type").String() == "Feature" {
		f, err := geojson.UnmarshalFeature(msg)
		if err != nil {
			return Sample{}, err
		}
		fix, err := FixFromFeature(f)
		if err != nil {
			return Sample{}, err
		}
		return Sample{Kind: KindFix, Fix: &fix}, nil
	}

	switch parsed.Get("kind").String() {
	case KindInertial.String():
		s := &InertialSample{}
		if err := json.Unmarshal(msg, s); err != nil {
			return Sample{}, err
		}
		if s.Time.IsZero() {
			return Sample{}, errors.New("inertial sample: zero time")
		}
		return Sample{Kind: KindInertial, Inertial: s}, nil
	case KindPedometer.String():
		s := &PedometerSample{}
		if err := json.Unmarshal(msg, s); err != nil {
			return Sample{}, err
		}
		if s.Time.IsZero() {
			return Sample{}, errors.New("pedometer sample: zero time")
		}
		return Sample{Kind: KindPedometer, Pedometer: s}, nil
	}
	return Sample{}, fmt.Errorf("%w: %s", ErrUnknownSample, truncate(parsed.Raw, 64))
}

// Encode marshals a sample to the form Decode reads.
func Encode(s Sample) ([]byte, error) {
	switch s.Kind {
	case KindFix:
		return s.Fix.ToFeature().MarshalJSON()
	case KindInertial:
		return json.Marshal(struct {
			Kind string `json:"kind"`
			*InertialSample
		}{KindInertial.String(), s.Inertial})
	case KindPedometer:
		return json.Marshal(struct {
			Kind string `json:"kind"`
			*PedometerSample
		}{KindPedometer.String(), s.Pedometer})
	}
	return nil, ErrUnknownSample
}

// ScanJSONMessages reads a stream of JSON messages from an io.Reader,
// and calls onEach for each decoded message.
// If the stream is encoded as a JSON array, onEach is called for each
// element in the array.
func ScanJSONMessages(body io.Reader, onEach func(message json.RawMessage) error) error {
	buf := bufio.NewReader(body)
	peek, err := buf.Peek(1)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}
	dec := json.NewDecoder(buf)
	if bytes.Equal(peek, []byte("[")) {
		if _, err := dec.Token(); err != nil {
			return err
		}
	}
	for dec.More() {
		var msg json.RawMessage
		if err := dec.Decode(&msg); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return fmt.Errorf("decode err: %w", err)
		}
		if err := onEach(msg); err != nil {
			return err
		}
	}
	return nil
}

// Stream decodes samples from r and sends them on the returned channel,
// which is closed when the input is exhausted or ctx is done.
// FeatureCollections are unpacked into their features.
// Undecodable messages are passed to onError, if non-nil, and skipped.
func Stream(ctx context.Context, r io.Reader, onError func(error)) <-chan Sample {
	if onError == nil {
		onError = func(err error) {
			slog.Warn("Skipping undecodable sample", "error", err)
		}
	}
	out := make(chan Sample)
	go func() {
		defer close(out)
		send := func(s Sample) error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case out <- s:
				return nil
			}
		}
		err := ScanJSONMessages(r, func(msg json.RawMessage) error {
			if gjson.GetBytes(msg, "type").String() == "FeatureCollection" {
				for _, f := range gjson.GetBytes(msg, "features").Array() {
					s, err := Decode([]byte(f.Raw))
					if err != nil {
						onError(err)
						continue
					}
					if err := send(s); err != nil {
						return err
					}
				}
				return nil
			}
			s, err := Decode(msg)
			if err != nil {
				onError(err)
				return nil
			}
			return send(s)
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			onError(err)
		}
	}()
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
