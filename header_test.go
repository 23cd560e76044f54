// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package edf_test

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/OpenPSG/edf/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testHeader() edf.Header {
	return edf.Header{
		PatientID:          "MCH-0234567 F 02-MAY-1951 Haagse_Harry",
		RecordingID:        "Startdate 02-MAR-2002 PSG-1234/2002 NN Telemetry03",
		StartTime:          testStart,
		DataRecordDuration: 30 * time.Second,
		DataRecords:        2880,
		Signals: []edf.Signal{
			{
				Label:             "EEG Fpz-Cz",
				TransducerType:    "AgAgCl cup electrodes",
				PhysicalDimension: "uV",
				PhysicalMin:       -440,
				PhysicalMax:       510,
				DigitalMin:        -2048,
				DigitalMax:        2047,
				Prefiltering:      "HP:0.1Hz LP:75Hz",
				SamplesPerRecord:  15000,
			},
			{
				Label:             "Temp rectal",
				TransducerType:    "Rectal thermistor",
				PhysicalDimension: "degC",
				PhysicalMin:       34.4,
				PhysicalMax:       40.2,
				DigitalMin:        -2048,
				DigitalMax:        2047,
				Prefiltering:      "LP:0.1Hz (first order)",
				SamplesPerRecord:  1,
			},
		},
	}
}

func TestHeaderRoundTrip(t *testing.T) {
	hdr := testHeader()

	b, err := hdr.MarshalBinary()
	require.NoError(t, err)
	require.Len(t, b, 256+2*256)

	// Field offsets of the EDF fixed header.
	assert.Equal(t, "0       ", string(b[0:8]))
	assert.Equal(t, "14.03.21", string(b[168:176]))
	assert.Equal(t, "22.30.05", string(b[176:184]))
	assert.Equal(t, "768     ", string(b[184:192]))
	assert.Equal(t, strings.Repeat(" ", 44), string(b[192:236]))
	assert.Equal(t, "2880    ", string(b[236:244]))
	assert.Equal(t, "30      ", string(b[244:252]))
	assert.Equal(t, "2   ", string(b[252:256]))

	parsed, err := edf.ParseHeader(bytes.NewReader(b))
	require.NoError(t, err)

	assert.Equal(t, edf.Version0, parsed.Version)
	assert.Equal(t, hdr.PatientID, parsed.PatientID)
	assert.Equal(t, hdr.RecordingID, parsed.RecordingID)
	assert.True(t, hdr.StartTime.Equal(parsed.StartTime))
	assert.Equal(t, 768, parsed.HeaderBytes)
	assert.Equal(t, hdr.DataRecords, parsed.DataRecords)
	assert.Equal(t, hdr.DataRecordDuration, parsed.DataRecordDuration)
	assert.Equal(t, 2, parsed.SignalCount)
	assert.Equal(t, hdr.Signals, parsed.Signals)

	again, err := parsed.MarshalBinary()
	require.NoError(t, err)
	assert.Equal(t, b, again)
}

func TestHeaderDerived(t *testing.T) {
	hdr := testHeader()

	assert.Equal(t, 15000, hdr.MaxSamplesPerRecord())
	assert.Equal(t, 15001, hdr.RecordSamples())
	assert.Equal(t, 15000*2880, hdr.Samples())
	assert.InDelta(t, 500.0, hdr.SampleRate(), 1e-9)
	assert.Equal(t, []string{"EEG Fpz-Cz", "Temp rectal"}, hdr.Labels())

	idx, err := hdr.ChannelIndex("Temp rectal", "EEG Fpz-Cz")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 0}, idx)

	_, err = hdr.ChannelIndex("EOG")
	require.ErrorIs(t, err, edf.ErrData)
}

func TestHeaderY2K(t *testing.T) {
	tests := []struct {
		yy   string
		year int
	}{
		{"84", 2084},
		{"85", 1985},
		{"99", 1999},
		{"00", 2000},
	}

	for _, tt := range tests {
		t.Run(tt.yy, func(t *testing.T) {
			hdr := testHeader()
			b, err := hdr.MarshalBinary()
			require.NoError(t, err)
			copy(b[168:176], "01.02."+tt.yy)

			parsed, err := edf.ParseHeader(bytes.NewReader(b))
			require.NoError(t, err)
			assert.Equal(t, tt.year, parsed.StartTime.Year())
			assert.Equal(t, time.February, parsed.StartTime.Month())
			assert.Equal(t, 1, parsed.StartTime.Day())
		})
	}
}

func TestParseHeaderErrors(t *testing.T) {
	valid := func(t *testing.T) []byte {
		hdr := testHeader()
		b, err := hdr.MarshalBinary()
		require.NoError(t, err)
		return b
	}

	t.Run("Version", func(t *testing.T) {
		b := valid(t)
		copy(b[0:8], "1       ")
		_, err := edf.ParseHeader(bytes.NewReader(b))
		require.ErrorIs(t, err, edf.ErrFormat)
	})

	t.Run("HeaderBytes", func(t *testing.T) {
		b := valid(t)
		copy(b[184:192], "1024    ")
		_, err := edf.ParseHeader(bytes.NewReader(b))
		require.ErrorIs(t, err, edf.ErrFormat)
	})

	t.Run("Date", func(t *testing.T) {
		b := valid(t)
		copy(b[168:176], "31.02.21")
		_, err := edf.ParseHeader(bytes.NewReader(b))
		require.ErrorIs(t, err, edf.ErrFormat)
	})

	t.Run("PhysicalMin", func(t *testing.T) {
		b := valid(t)
		// Physical minimums start after labels, transducers and dimensions.
		off := 256 + 2*16 + 2*80 + 2*8
		copy(b[off:off+8], "abc     ")
		_, err := edf.ParseHeader(bytes.NewReader(b))
		require.ErrorIs(t, err, edf.ErrFormat)
	})

	t.Run("Truncated", func(t *testing.T) {
		b := valid(t)
		_, err := edf.ParseHeader(bytes.NewReader(b[:300]))
		require.Error(t, err)
	})
}

func TestMarshalHeaderErrors(t *testing.T) {
	t.Run("LabelTooLong", func(t *testing.T) {
		hdr := testHeader()
		hdr.Signals[0].Label = strings.Repeat("x", 17)
		_, err := hdr.MarshalBinary()
		require.ErrorIs(t, err, edf.ErrPrecondition)
	})

	t.Run("NonASCII", func(t *testing.T) {
		hdr := testHeader()
		hdr.PatientID = "Zoë"
		_, err := hdr.MarshalBinary()
		require.ErrorIs(t, err, edf.ErrPrecondition)
	})

	t.Run("Year", func(t *testing.T) {
		hdr := testHeader()
		hdr.StartTime = time.Date(1984, time.December, 31, 0, 0, 0, 0, time.UTC)
		_, err := hdr.MarshalBinary()
		require.ErrorIs(t, err, edf.ErrPrecondition)
	})

	t.Run("PhysicalMaxTooWide", func(t *testing.T) {
		hdr := testHeader()
		hdr.Signals[0].PhysicalMax = 1234567890
		_, err := hdr.MarshalBinary()
		require.ErrorIs(t, err, edf.ErrPrecondition)
	})
}
