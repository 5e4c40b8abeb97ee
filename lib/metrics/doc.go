// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package metrics exports recorder activity as Prometheus metrics. A
// [Collector] subscribes to the recorder's event bus and serves its
// registry over HTTP via [Collector.Handler].
package metrics
