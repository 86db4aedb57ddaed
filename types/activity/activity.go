package activity

import (
	"encoding/json"
	"regexp"
)

// Activity is the closed set of labels the classifier produces.
type Activity int

const (
	Walk Activity = iota
	Run
	Hike
	Unknown Activity = -1
)

var AllActivityNames = []string{
	Unknown.String(),
	Walk.String(),
	Run.String(),
	Hike.String(),
}

var (
	activityWalking = regexp.MustCompile(`(?i)^walk`)
	activityRunning = regexp.MustCompile(`(?i)^run`)
	activityHiking  = regexp.MustCompile(`(?i)^hik|^trek`)
)

// IsKnown returns true if the activity is not Unknown.
func (a Activity) IsKnown() bool {
	return a != Unknown
}

// IsUnknown returns true if the activity is Unknown.
func (a Activity) IsUnknown() bool {
	return a == Unknown
}

// String implements the Stringer interface.
func (a Activity) String() string {
	switch a {
	case Walk:
		return "walk"
	case Run:
		return "run"
	case Hike:
		return "hike"
	}
	return "unknown"
}

// Emoji returns a single emoji representation of the activity.
func (a Activity) Emoji() string {
	switch a {
	case Walk:
		return "🚶"
	case Run:
		return "🏃"
	case Hike:
		return "🥾"
	}
	return "❓"
}

func (a Activity) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

func (a *Activity) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*a = FromString(s)
	return nil
}

func FromString(str string) Activity {
	switch {
	case activityWalking.MatchString(str):
		return Walk
	case activityRunning.MatchString(str):
		return Run
	case activityHiking.MatchString(str):
		return Hike
	}
	return Unknown
}

// Mode is an activity and its tally.
type Mode struct {
	Activity Activity
	Scalar   float64
}

// Modes is a tally of activities, ordered by first appearance.
type Modes []Mode

// Tally counts each activity in order, preserving the order in which
// activities were first encountered.
func Tally(acts []Activity) Modes {
	modes := Modes{}
outer:
	for _, a := range acts {
		for i := range modes {
			if modes[i].Activity == a {
				modes[i].Scalar++
				continue outer
			}
		}
		modes = append(modes, Mode{Activity: a, Scalar: 1})
	}
	return modes
}

// Majority returns the most frequent activity. Ties resolve to the
// activity encountered first. An empty tally is Unknown.
func (s Modes) Majority() Activity {
	best := Mode{Activity: Unknown}
	for _, m := range s {
		if m.Scalar > best.Scalar {
			best = m
		}
	}
	return best.Activity
}

// RelWeights mutates the Modes slice to have relative scalar weights (0 to 1).
func (s Modes) RelWeights() Modes {
	totalWeight := 0.0
	for _, m := range s {
		totalWeight += m.Scalar
	}
	if totalWeight == 0 {
		return s
	}
	for i := range s {
		s[i].Scalar /= totalWeight
	}
	return s
}
