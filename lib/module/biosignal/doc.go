// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package biosignal provides a sensor module for galvanic skin response
// (GSR) and photoplethysmogram (PPG) devices such as the Shimmer GSR+.
//
// The hardware driver sits behind the [Device] interface. [Module.Run]
// connects to it, retries every few seconds while it is unreachable,
// starts streaming once connected, and watches for a later disconnect.
// Each reading replaces the module's [Frame]; heart rate is derived from
// the PPG signal by a [HeartRateEstimator].
//
// [Simulator] is a synthetic device for running the recorder without
// hardware.
package biosignal
