// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package module defines the sensor capability contract polled by the
// recorder and the registry that holds the active modules.
//
// A module is anything that can answer three questions at any moment:
// is it usable, what is its latest data frame, and what hardware is it.
// Modules own their connection lifecycle (see package biosignal for the
// reference implementation) and flip their usability through an
// embedded [State], which publishes module-usable and module-unusable
// events on every transition.
package module
