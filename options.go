// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package edf

import "github.com/rs/zerolog"

const (
	defaultSubjectID   = "X X X X"
	defaultRecordingID = "Startdate X X X X"
)

// Option configures Open, OpenFS, Write and WriteFile. Options that only
// apply to writing are ignored by the readers.
type Option func(*options)

type options struct {
	logger      zerolog.Logger
	physicalMax float64 // Zero means derive from the data
	subjectID   string
	recordingID string
}

func newOptions(opts []Option) *options {
	o := &options{
		logger:      zerolog.Nop(),
		subjectID:   defaultSubjectID,
		recordingID: defaultRecordingID,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithLogger sets the logger used for diagnostics. The default discards
// all output.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithPhysicalMax sets the physical value that maps to DigitalMax when
// writing. Values beyond ±physicalMax saturate. By default the largest
// absolute value in the data is used.
func WithPhysicalMax(physicalMax float64) Option {
	return func(o *options) {
		o.physicalMax = physicalMax
	}
}

// WithSubjectID sets the patient identification written to the header.
func WithSubjectID(id string) Option {
	return func(o *options) {
		o.subjectID = id
	}
}

// WithRecordingID sets the recording identification written to the header.
func WithRecordingID(id string) Option {
	return func(o *options) {
		o.recordingID = id
	}
}
