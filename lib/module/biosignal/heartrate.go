// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package biosignal

import "time"

// HeartRateEstimator turns a PPG sample stream into beats per minute.
// Estimate is called once per reading, in order, from a single
// goroutine.
type HeartRateEstimator interface {
	Estimate(ppg float64, at time.Time) float64
}

const (
	defaultWindow     = 4 * time.Second
	defaultRefractory = 300 * time.Millisecond
	maxBeatInterval   = 2 * time.Second
	beatHistory       = 8
)

// PeakEstimator detects pulse peaks as local maxima above the moving
// mean of a sliding window and reports 60 divided by the mean interval
// between recent peaks. Returns 0 until two peaks have been seen.
type PeakEstimator struct {
	window     time.Duration
	refractory time.Duration

	samples   []timedSample
	lastPeak  time.Time
	intervals []time.Duration
}

type timedSample struct {
	at    time.Time
	value float64
}

// NewPeakEstimator returns an estimator with a 4 s averaging window and
// a 300 ms refractory period (at most 200 bpm).
func NewPeakEstimator() *PeakEstimator {
	return &PeakEstimator{window: defaultWindow, refractory: defaultRefractory}
}

// Estimate consumes one sample and returns the current heart rate.
func (e *PeakEstimator) Estimate(ppg float64, at time.Time) float64 {
	e.samples = append(e.samples, timedSample{at: at, value: ppg})
	cutoff := at.Add(-e.window)
	drop := 0
	for drop < len(e.samples)-3 && e.samples[drop].at.Before(cutoff) {
		drop++
	}
	e.samples = e.samples[drop:]

	if n := len(e.samples); n >= 3 {
		before, candidate, after := e.samples[n-3], e.samples[n-2], e.samples[n-1]
		if candidate.value > e.mean() && candidate.value > before.value && candidate.value >= after.value {
			e.peak(candidate.at)
		}
	}
	return e.rate()
}

func (e *PeakEstimator) mean() float64 {
	var sum float64
	for _, s := range e.samples {
		sum += s.value
	}
	return sum / float64(len(e.samples))
}

func (e *PeakEstimator) peak(at time.Time) {
	if !e.lastPeak.IsZero() {
		interval := at.Sub(e.lastPeak)
		if interval < e.refractory {
			return
		}
		if interval <= maxBeatInterval {
			e.intervals = append(e.intervals, interval)
			if len(e.intervals) > beatHistory {
				e.intervals = e.intervals[len(e.intervals)-beatHistory:]
			}
		}
	}
	e.lastPeak = at
}

func (e *PeakEstimator) rate() float64 {
	if len(e.intervals) == 0 {
		return 0
	}
	var total time.Duration
	for _, interval := range e.intervals {
		total += interval
	}
	mean := total / time.Duration(len(e.intervals))
	return 60 / mean.Seconds()
}
