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
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/OpenPSG/edf/v2"
	"github.com/stretchr/testify/require"
)

var testStart = time.Date(2021, time.March, 14, 22, 30, 5, 0, time.UTC)

// identitySignal has a gain of one, so physical values equal stored values.
func identitySignal(label string, samplesPerRecord int) edf.Signal {
	return edf.Signal{
		Label:             label,
		PhysicalDimension: "uV",
		PhysicalMin:       -32768,
		PhysicalMax:       32767,
		DigitalMin:        -32768,
		DigitalMax:        32767,
		SamplesPerRecord:  samplesPerRecord,
	}
}

// buildEDF encodes hdr followed by records, indexed [record][signal][sample].
func buildEDF(t *testing.T, hdr edf.Header, records [][][]int16) []byte {
	t.Helper()

	if hdr.StartTime.IsZero() {
		hdr.StartTime = testStart
	}
	if hdr.DataRecordDuration == 0 {
		hdr.DataRecordDuration = time.Second
	}

	b, err := hdr.MarshalBinary()
	require.NoError(t, err)

	for _, rec := range records {
		for _, sig := range rec {
			for _, v := range sig {
				b = binary.LittleEndian.AppendUint16(b, uint16(v))
			}
		}
	}
	return b
}

func writeTemp(t *testing.T, b []byte) string {
	t.Helper()

	name := filepath.Join(t.TempDir(), "test.edf")
	require.NoError(t, os.WriteFile(name, b, 0o644))
	return name
}
