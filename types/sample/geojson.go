package sample

import (
	"errors"
	"fmt"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

var ErrUnknownSample = errors.New("unknown sample")

// ToFeature encodes the fix as a GeoJSON Point feature.
func (f RawFix) ToFeature() *geojson.Feature {
	feat := geojson.NewFeature(f.Point)
	feat.Properties["Time"] = f.Time.Format(time.RFC3339Nano)
	feat.Properties["UnixTime"] = f.Time.Unix()
	feat.Properties["Accuracy"] = f.Accuracy
	feat.Properties["Speed"] = f.Speed
	feat.Properties["Heading"] = f.Course
	if f.Altitude != nil {
		feat.Properties["Elevation"] = *f.Altitude
	}
	return feat
}

// FixFromFeature decodes a GeoJSON Point feature.
// Time is read from the RFC3339 Time property, falling back to UnixTime.
// Missing Accuracy, Speed, or Heading properties decode as unknown (-1).
func FixFromFeature(feat *geojson.Feature) (RawFix, error) {
	if feat == nil || feat.Geometry == nil {
		return RawFix{}, errors.New("nil geometry")
	}
	pt, ok := feat.Geometry.(orb.Point)
	if !ok {
		return RawFix{}, fmt.Errorf("not a point: %s", feat.Geometry.GeoJSONType())
	}
	t, err := featureTime(feat.Properties)
	if err != nil {
		return RawFix{}, err
	}
	fix := RawFix{
		Time:     t,
		Point:    pt,
		Accuracy: feat.Properties.MustFloat64("Accuracy", -1),
		Speed:    feat.Properties.MustFloat64("Speed", -1),
		Course:   feat.Properties.MustFloat64("Heading", -1),
	}
	if _, ok := feat.Properties["Elevation"]; ok {
		alt := feat.Properties.MustFloat64("Elevation", 0)
		fix.Altitude = &alt
	}
	return fix, fix.Validate()
}

func featureTime(props geojson.Properties) (time.Time, error) {
	if s, ok := props["Time"].(string); ok && s != "" {
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return time.Time{}, err
		}
		return t, nil
	}
	switch v := props["UnixTime"].(type) {
	case float64:
		return time.Unix(int64(v), 0), nil
	case int64:
		return time.Unix(v, 0), nil
	case int:
		return time.Unix(int64(v), 0), nil
	}
	return time.Time{}, errors.New("missing Time property")
}

// Validate checks the fix for basic validity.
func (f RawFix) Validate() error {
	if f.Time.IsZero() {
		return errors.New("zero time")
	}
	if f.Lat() < -90 || f.Lat() > 90 {
		return fmt.Errorf("invalid coordinate: lat=%.14f", f.Lat())
	}
	if f.Lon() < -180 || f.Lon() > 180 {
		return fmt.Errorf("invalid coordinate: lng=%.14f", f.Lon())
	}
	return nil
}

// PathFeature encodes a path as a GeoJSON LineString feature with a name.
func PathFeature(name string, path orb.LineString) *geojson.Feature {
	feat := geojson.NewFeature(path)
	feat.Properties["Name"] = name
	feat.Properties["Points"] = len(path)
	return feat
}
