// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package edf

import (
	"fmt"
	"math"
	"time"
)

// Dataset is a single trial of decoded data, channels by samples, in
// physical units.
type Dataset struct {
	Samples    [][]float64 `cbor:"samples"`
	Labels     []string    `cbor:"labels"`
	SampleRate float64     `cbor:"sample_rate"`
	// StartTime is the wall clock time of the first recorded sample. The
	// zero value means unknown.
	StartTime time.Time `cbor:"start_time"`
	// Offset of the first sample in Samples relative to StartTime.
	Offset time.Duration `cbor:"offset"`
}

// NewDataset validates and returns a Dataset. Every row of samples must
// have the same length, there must be one label per row and the sample
// rate must be a positive whole number of Hz.
func NewDataset(samples [][]float64, labels []string, sampleRate float64, startTime time.Time) (*Dataset, error) {
	ds := &Dataset{
		Samples:    samples,
		Labels:     labels,
		SampleRate: sampleRate,
		StartTime:  startTime,
	}
	if err := ds.Validate(); err != nil {
		return nil, err
	}
	return ds, nil
}

// Validate checks the invariants documented on NewDataset.
func (ds *Dataset) Validate() error {
	if len(ds.Samples) == 0 {
		return fmt.Errorf("%w: dataset has no channels", ErrPrecondition)
	}
	if len(ds.Labels) != len(ds.Samples) {
		return fmt.Errorf("%w: %d labels for %d channels", ErrPrecondition, len(ds.Labels), len(ds.Samples))
	}
	if !(ds.SampleRate > 0) || ds.SampleRate != math.Trunc(ds.SampleRate) {
		return fmt.Errorf("%w: sample rate %g is not a positive whole number", ErrPrecondition, ds.SampleRate)
	}

	n := len(ds.Samples[0])
	for i, row := range ds.Samples {
		if len(row) != n {
			return fmt.Errorf("%w: channel %d has %d samples, expected %d", ErrPrecondition, i, len(row), n)
		}
		for j, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("%w: channel %d sample %d is %v", ErrData, i, j, v)
			}
		}
	}
	return nil
}

// Len returns the number of samples per channel.
func (ds *Dataset) Len() int {
	if len(ds.Samples) == 0 {
		return 0
	}
	return len(ds.Samples[0])
}

// MaxAbs returns the largest absolute sample value.
func (ds *Dataset) MaxAbs() float64 {
	m := 0.0
	for _, row := range ds.Samples {
		for _, v := range row {
			m = math.Max(m, math.Abs(v))
		}
	}
	return m
}

// ReadDataset reads the channels chans over [begsam, endsam) into a Dataset.
func (r *Reader) ReadDataset(chans []int, begsam, endsam int) (*Dataset, error) {
	dat, err := r.Read(chans, begsam, endsam)
	if err != nil {
		return nil, err
	}
	labels := make([]string, len(chans))
	for i, ch := range chans {
		labels[i] = r.hdr.Signals[ch].Label
	}
	sampleRate := r.hdr.SampleRate()
	return &Dataset{
		Samples:    dat,
		Labels:     labels,
		SampleRate: sampleRate,
		StartTime:  r.hdr.StartTime,
		Offset:     time.Duration(math.Round(float64(begsam) / sampleRate * float64(time.Second))),
	}, nil
}
