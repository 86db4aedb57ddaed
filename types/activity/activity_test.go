package activity

import (
	"encoding/json"
	"testing"
)

func TestFromString(t *testing.T) {
	cases := []struct {
		in   string
		want Activity
	}{
		{"walk", Walk},
		{"Walking", Walk},
		{"run", Run},
		{"Running", Run},
		{"hike", Hike},
		{"Hiking", Hike},
		{"unknown", Unknown},
		{"", Unknown},
		{"bike", Unknown},
	}
	for _, c := range cases {
		if got := FromString(c.in); got != c.want {
			t.Errorf("FromString(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestActivity_JSON(t *testing.T) {
	b, err := json.Marshal(Run)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `"run"` {
		t.Errorf("got %s", b)
	}
	var a Activity
	if err := json.Unmarshal([]byte(`"hike"`), &a); err != nil {
		t.Fatal(err)
	}
	if a != Hike {
		t.Errorf("got %v, want hike", a)
	}
}

func TestModes_Majority(t *testing.T) {
	cases := []struct {
		name string
		acts []Activity
		want Activity
	}{
		{"empty", nil, Unknown},
		{"majority", []Activity{Run, Run, Walk}, Run},
		{"tie first wins", []Activity{Run, Walk}, Run},
		{"tie first wins reversed", []Activity{Walk, Run}, Walk},
		{"late majority", []Activity{Walk, Hike, Hike, Unknown, Hike}, Hike},
		{"unknown can win", []Activity{Unknown, Unknown, Walk}, Unknown},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := Tally(c.acts).Majority(); got != c.want {
				t.Errorf("got %v, want %v", got, c.want)
			}
		})
	}
}

func TestModes_RelWeights(t *testing.T) {
	modes := Tally([]Activity{Run, Run, Walk, Hike}).RelWeights()
	sum := 0.0
	for _, m := range modes {
		sum += m.Scalar
	}
	if sum < 0.999 || sum > 1.001 {
		t.Errorf("weights sum to %f", sum)
	}
	if modes[0].Activity != Run || modes[0].Scalar != 0.5 {
		t.Errorf("unexpected first mode %+v", modes[0])
	}
}
