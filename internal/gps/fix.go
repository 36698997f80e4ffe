package gps

// SpeedFix is a single GPS ground-speed sample suitable for JSON and MQTT,
// used to sanity-check the encoder-derived vehicle speed.
type SpeedFix struct {
	Time      string  `json:"time"`       // e.g. "12:34:56"
	SpeedMPS  float64 `json:"speed_mps"`  // speed over ground
	CourseDeg float64 `json:"course_deg"` // course over ground
	Validity  string  `json:"validity"`   // "A" (valid) / "V" (void), etc.
}

// KnotsToMPS converts a speed over ground from knots to meters per second.
func KnotsToMPS(knots float64) float64 {
	return knots * 0.514444
}
