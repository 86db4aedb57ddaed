package sample

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/paulmach/orb"
)

var t0 = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func TestRawFix_Sentinels(t *testing.T) {
	f := RawFix{Speed: -1, Course: -1}
	if f.HasSpeed() || f.HasCourse() {
		t.Error("expected sentinels to read as unavailable")
	}
	f = RawFix{Speed: 0, Course: 0}
	if !f.HasSpeed() || !f.HasCourse() {
		t.Error("expected zero speed and north course to be available")
	}
	f = RawFix{Course: 400}
	if f.HasCourse() {
		t.Error("expected out of range course to be unavailable")
	}
}

func TestFixFeatureRoundTrip(t *testing.T) {
	alt := 1200.5
	in := RawFix{
		Time:     t0,
		Point:    orb.Point{-114.08, 46.93},
		Accuracy: 4,
		Speed:    1.3,
		Course:   270,
		Altitude: &alt,
	}
	out, err := FixFromFeature(in.ToFeature())
	if err != nil {
		t.Fatal(err)
	}
	if !out.Time.Equal(in.Time) || out.Point != in.Point || out.Accuracy != in.Accuracy ||
		out.Speed != in.Speed || out.Course != in.Course || out.Altitude == nil || *out.Altitude != alt {
		t.Errorf("got %+v, want %+v", out, in)
	}
}

func TestDecode(t *testing.T) {
	cases := []struct {
		name    string
		msg     string
		want    Kind
		wantErr bool
	}{
		{
			name: "fix",
			msg:  `{"type":"Feature","geometry":{"type":"Point","coordinates":[-93.25,44.98]},"properties":{"Time":"2024-06-01T12:00:00Z","Accuracy":5,"Speed":1.2,"Heading":90}}`,
			want: KindFix,
		},
		{
			name: "fix with unix time, missing speed",
			msg:  `{"type":"Feature","geometry":{"type":"Point","coordinates":[-93.25,44.98]},"properties":{"UnixTime":1717243200,"Accuracy":5}}`,
			want: KindFix,
		},
		{
			name: "inertial",
			msg:  `{"kind":"inertial","time":"2024-06-01T12:00:00Z","accel":{"x":0.3,"y":0.4,"z":0},"attitude":{"yaw":45,"pitch":0,"roll":0}}`,
			want: KindInertial,
		},
		{
			name: "pedometer",
			msg:  `{"kind":"pedometer","time":"2024-06-01T12:00:00Z","steps":1200,"cadence":2.7}`,
			want: KindPedometer,
		},
		{name: "unknown kind", msg: `{"kind":"barometer","time":"2024-06-01T12:00:00Z"}`, wantErr: true},
		{name: "array", msg: `[1,2]`, wantErr: true},
		{name: "bad lat", msg: `{"type":"Feature","geometry":{"type":"Point","coordinates":[0,91]},"properties":{"UnixTime":1717243200}}`, wantErr: true},
		{name: "no time", msg: `{"kind":"pedometer","steps":1}`, wantErr: true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			s, err := Decode([]byte(c.msg))
			if c.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", s)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if s.Kind != c.want {
				t.Errorf("got kind %v, want %v", s.Kind, c.want)
			}
			if !s.Time().Equal(t0) {
				t.Errorf("got time %v, want %v", s.Time(), t0)
			}
		})
	}
}

func TestDecode_MissingSpeedIsUnavailable(t *testing.T) {
	s, err := Decode([]byte(`{"type":"Feature","geometry":{"type":"Point","coordinates":[1,2]},"properties":{"UnixTime":1717243200}}`))
	if err != nil {
		t.Fatal(err)
	}
	if s.Fix.HasSpeed() || s.Fix.HasCourse() || s.Fix.Accuracy >= 0 {
		t.Errorf("expected unknown speed, course and accuracy: %+v", s.Fix)
	}
}

func TestDecode_UnknownSentinel(t *testing.T) {
	_, err := Decode([]byte(`{"kind":"nope"}`))
	if !errors.Is(err, ErrUnknownSample) {
		t.Errorf("expected ErrUnknownSample, got %v", err)
	}
}

func TestEncodeDecode(t *testing.T) {
	in := []Sample{
		{Kind: KindFix, Fix: &RawFix{Time: t0, Point: orb.Point{1, 2}, Accuracy: 3, Speed: -1, Course: -1}},
		{Kind: KindInertial, Inertial: &InertialSample{Time: t0, Acceleration: Vector3{X: 1}, Attitude: Attitude{Yaw: 10}}},
		{Kind: KindPedometer, Pedometer: &PedometerSample{Time: t0, Steps: 5, Cadence: 2}},
	}
	for _, s := range in {
		b, err := Encode(s)
		if err != nil {
			t.Fatal(err)
		}
		got, err := Decode(b)
		if err != nil {
			t.Fatalf("%s: %v", b, err)
		}
		if got.Kind != s.Kind {
			t.Errorf("got kind %v, want %v", got.Kind, s.Kind)
		}
	}
}

func TestStream(t *testing.T) {
	input := strings.Join([]string{
		`{"type":"Feature","geometry":{"type":"Point","coordinates":[1,2]},"properties":{"UnixTime":1717243200}}`,
		`{"kind":"bogus"}`,
		`{"kind":"pedometer","time":"2024-06-01T12:00:00Z","steps":1,"cadence":1}`,
		`{"type":"FeatureCollection","features":[{"type":"Feature","geometry":{"type":"Point","coordinates":[1,2]},"properties":{"UnixTime":1717243201}},{"type":"Feature","geometry":{"type":"Point","coordinates":[1,2]},"properties":{"UnixTime":1717243202}}]}`,
	}, "\n")

	var errs []error
	got := []Sample{}
	for s := range Stream(context.Background(), strings.NewReader(input), func(err error) {
		errs = append(errs, err)
	}) {
		got = append(got, s)
	}
	if len(got) != 4 {
		t.Errorf("got %d samples, want 4", len(got))
	}
	if len(errs) != 1 {
		t.Errorf("got %d errors, want 1: %v", len(errs), errs)
	}
}

func TestStream_Array(t *testing.T) {
	input := `[{"kind":"pedometer","time":"2024-06-01T12:00:00Z","steps":1,"cadence":1},{"kind":"pedometer","time":"2024-06-01T12:00:01Z","steps":2,"cadence":1}]`
	n := 0
	for range Stream(context.Background(), strings.NewReader(input), nil) {
		n++
	}
	if n != 2 {
		t.Errorf("got %d samples, want 2", n)
	}
}

func TestDedupeLRUFunc(t *testing.T) {
	dedupe := NewDedupeLRUFunc(10)
	a := Sample{Kind: KindPedometer, Pedometer: &PedometerSample{Time: t0, Steps: 1, Cadence: 1}}
	b := Sample{Kind: KindPedometer, Pedometer: &PedometerSample{Time: t0.Add(time.Second), Steps: 1, Cadence: 1}}
	aCopy := Sample{Kind: KindPedometer, Pedometer: &PedometerSample{Time: t0, Steps: 1, Cadence: 1}}

	if !dedupe(a) {
		t.Error("first sample should pass")
	}
	if !dedupe(b) {
		t.Error("distinct time should pass")
	}
	if dedupe(aCopy) {
		t.Error("duplicate should be dropped")
	}
}
