// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package biosignal

import (
	"context"
	"time"
)

// DeviceState is the connection state reported by a Device.
type DeviceState int

const (
	Disconnected DeviceState = iota
	Connecting
	Connected
	Streaming
)

func (s DeviceState) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Streaming:
		return "streaming"
	default:
		return "unknown"
	}
}

// Reading is one calibrated sample from the sensor.
type Reading struct {
	Time time.Time

	// GSR is skin resistance in kilohms.
	GSR float64

	// GSRConductance is skin conductance in microsiemens.
	GSRConductance float64

	// PPG is the photoplethysmogram level in millivolts.
	PPG float64
}

// Device is the driver side of a biosignal sensor. Implementations are
// expected to be safe for concurrent use: State is polled from the
// module's connection loop while readings are consumed on another
// goroutine.
type Device interface {
	// Connect starts a connection attempt. A failed attempt leaves the
	// device Disconnected. An attempt may also complete asynchronously,
	// in which case State moves through Connecting.
	Connect(ctx context.Context) error

	// State reports the current connection state.
	State() DeviceState

	// StartStreaming begins delivering readings. Only valid when
	// Connected.
	StartStreaming() error

	// Readings delivers calibrated samples while streaming. The channel
	// is the same for the lifetime of the device.
	Readings() <-chan Reading

	// Details names the hardware, e.g. "Shimmer GSR+".
	Details() string
}
