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
	"time"
)

type Version string

const (
	// Version0 represents the version of the EDF standard.
	Version0 Version = "0"
)

const (
	// DigitalMax is the largest digital value written by this package.
	DigitalMax = 32767
	// DigitalMin is the smallest digital value written by this package. It is
	// the negation of DigitalMax so that digital 0 maps to physical 0.
	DigitalMin = -DigitalMax
	// PhysicalDimension is the unit written for every signal.
	PhysicalDimension = "uV"
	// sampleBytes is the size of a single stored sample (int16).
	sampleBytes = 2
)

// Field widths of the fixed header (256 bytes) and of each per-signal field.
const (
	fixedHeaderBytes  = 256
	signalHeaderBytes = 256

	versionWidth      = 8
	patientIDWidth    = 80
	recordingIDWidth  = 80
	dateWidth         = 8
	timeWidth         = 8
	headerBytesWidth  = 8
	reservedWidth     = 44
	dataRecordsWidth  = 8
	durationWidth     = 8
	signalCountWidth  = 4
	labelWidth        = 16
	transducerWidth   = 80
	dimensionWidth    = 8
	physicalWidth     = 8
	digitalWidth      = 8
	prefilteringWidth = 80
	samplesWidth      = 8
	signalResWidth    = 32
)

// Header represents the EDF file header.
type Header struct {
	Version            Version       // Version of the EDF standard (always "0")
	PatientID          string        // Identification of the patient
	RecordingID        string        // Identification of the recording session
	StartTime          time.Time     // Start date of the recording
	HeaderBytes        int           // Number of bytes in the header
	DataRecordDuration time.Duration // Duration of a single data record
	DataRecords        int           // Number of data records
	SignalCount        int           // Number of signals in each data record
	Signals            []Signal      // Details of each signal
}

// Signal represents the characteristics of each signal in the EDF file.
type Signal struct {
	Label             string  // Label of the signal (e.g., EEG Fpz-Cz)
	TransducerType    string  // Type of transducer used
	PhysicalDimension string  // Physical dimension (e.g., uV, mV)
	PhysicalMin       float64 // Minimum physical value
	PhysicalMax       float64 // Maximum physical value
	DigitalMin        float64 // Minimum digital value
	DigitalMax        float64 // Maximum digital value
	Prefiltering      string  // Pre-filtering information
	SamplesPerRecord  int     // Number of samples in each data record for this signal
}

// MaxSamplesPerRecord returns the highest per-record sample count of all
// signals. Every other signal is upsampled to this rate on read.
func (h *Header) MaxSamplesPerRecord() int {
	n := 0
	for _, sig := range h.Signals {
		n = max(n, sig.SamplesPerRecord)
	}
	return n
}

// RecordSamples returns the number of stored samples in one data record,
// summed over all signals.
func (h *Header) RecordSamples() int {
	n := 0
	for _, sig := range h.Signals {
		n += sig.SamplesPerRecord
	}
	return n
}

// Samples returns the number of samples per channel after upsampling.
func (h *Header) Samples() int {
	return h.MaxSamplesPerRecord() * h.DataRecords
}

// SampleRate returns the upsampled sampling frequency in Hz.
func (h *Header) SampleRate() float64 {
	if h.DataRecordDuration <= 0 {
		return 0
	}
	return float64(h.MaxSamplesPerRecord()) / h.DataRecordDuration.Seconds()
}

// Labels returns the signal labels in file order.
func (h *Header) Labels() []string {
	labels := make([]string, len(h.Signals))
	for i, sig := range h.Signals {
		labels[i] = sig.Label
	}
	return labels
}

// ChannelIndex resolves signal labels to their indices.
func (h *Header) ChannelIndex(labels ...string) ([]int, error) {
	idx := make([]int, len(labels))
	for i, label := range labels {
		idx[i] = -1
		for j, sig := range h.Signals {
			if sig.Label == label {
				idx[i] = j
				break
			}
		}
		if idx[i] < 0 {
			return nil, fmt.Errorf("%w: unknown channel %q", ErrData, label)
		}
	}
	return idx, nil
}

// recordOffset returns the offset, in samples, of signal i within a record.
func (h *Header) recordOffset(i int) int {
	n := 0
	for _, sig := range h.Signals[:i] {
		n += sig.SamplesPerRecord
	}
	return n
}
