// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package ahrs

import "time"

type mockSource struct {
	start time.Time
	rate  float64 // deg/s
}

// NewMockSource creates a mock heading source that sweeps at a constant
// rate, for bench use without a gyro attached.
func NewMockSource(degPerSecond float64) Source {
	return &mockSource{start: time.Now(), rate: degPerSecond}
}

func (m *mockSource) CurrentHeading() (float64, error) {
	elapsed := time.Since(m.start).Seconds()
	return HalfAngle(elapsed * m.rate), nil
}
