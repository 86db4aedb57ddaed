package common

// All units are in metric:
// - Speed is in m/s
// - Distance is in meters
// - Time is in seconds
// - Acceleration is in m/s^2
// - Angles are in degrees, clockwise from true north

// MetersPerDegreeLatitude is the flat-earth approximation used for
// short-range projection. Longitude degrees scale by cos(latitude).
const MetersPerDegreeLatitude = 111_320.0

// SpeedOfSprintingMax is a generous ceiling for anything on foot.
const SpeedOfSprintingMax = 12.0 // or 43 km/h

// HeadingUnavailable and SpeedUnavailable are the sentinels reported by
// location providers for missing course and speed.
const HeadingUnavailable = -1.0
const SpeedUnavailable = -1.0
