// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package export_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/OpenPSG/edf/v2"
	"github.com/OpenPSG/edf/v2/internal/export"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDataset(t *testing.T) *edf.Dataset {
	t.Helper()

	ds, err := edf.NewDataset(
		[][]float64{{1.5, -2, 0, 4}, {10, 20, 30, 40}},
		[]string{"Fz", "Cz"},
		2,
		time.Date(2020, time.January, 2, 3, 4, 5, 0, time.UTC),
	)
	require.NoError(t, err)
	ds.Offset = 3 * time.Second
	return ds
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, export.Encode(&buf, testDataset(t), export.FormatCSV, export.CompressionNone))

	assert.Equal(t, "time,Fz,Cz\n3,1.5,10\n3.5,-2,20\n4,0,30\n4.5,4,40\n", buf.String())
}

func TestCBORRoundTrip(t *testing.T) {
	for _, c := range []export.Compression{export.CompressionNone, export.CompressionZstd, export.CompressionLZ4} {
		t.Run(string(c), func(t *testing.T) {
			ds := testDataset(t)

			var buf bytes.Buffer
			require.NoError(t, export.Encode(&buf, ds, export.FormatCBOR, c))

			got, err := export.DecodeCBOR(&buf, c)
			require.NoError(t, err)

			assert.Equal(t, ds.Samples, got.Samples)
			assert.Equal(t, ds.Labels, got.Labels)
			assert.Equal(t, ds.SampleRate, got.SampleRate)
			assert.Equal(t, ds.Offset, got.Offset)
			assert.True(t, ds.StartTime.Equal(got.StartTime))
		})
	}
}

func TestCompressedCSVRoundTrip(t *testing.T) {
	for _, c := range []export.Compression{export.CompressionZstd, export.CompressionLZ4} {
		t.Run(string(c), func(t *testing.T) {
			var plain, packed bytes.Buffer
			require.NoError(t, export.Encode(&plain, testDataset(t), export.FormatCSV, export.CompressionNone))
			require.NoError(t, export.Encode(&packed, testDataset(t), export.FormatCSV, c))
			assert.NotEqual(t, plain.Bytes(), packed.Bytes())

			r, err := export.NewReader(&packed, c)
			require.NoError(t, err)
			defer r.Close()

			var got bytes.Buffer
			_, err = got.ReadFrom(r)
			require.NoError(t, err)
			assert.Equal(t, plain.String(), got.String())
		})
	}
}

func TestDecodeCBORInvalid(t *testing.T) {
	_, err := export.DecodeCBOR(bytes.NewReader([]byte{0xff}), export.CompressionNone)
	require.Error(t, err)

	// Well-formed CBOR that breaks dataset invariants.
	var buf bytes.Buffer
	ds := &edf.Dataset{Samples: [][]float64{{1, 2}, {3}}, Labels: []string{"A", "B"}, SampleRate: 1}
	require.NoError(t, export.Encode(&buf, ds, export.FormatCBOR, export.CompressionNone))
	_, err = export.DecodeCBOR(&buf, export.CompressionNone)
	require.ErrorIs(t, err, edf.ErrPrecondition)
}

func TestUnsupported(t *testing.T) {
	var buf bytes.Buffer
	require.Error(t, export.Encode(&buf, testDataset(t), export.Format("xml"), export.CompressionNone))
	require.Error(t, export.Encode(&buf, testDataset(t), export.FormatCSV, export.Compression("gzip")))

	_, err := export.NewReader(&buf, export.Compression("gzip"))
	require.Error(t, err)

	assert.Equal(t, ".zst", export.CompressionZstd.Extension())
	assert.Equal(t, ".lz4", export.CompressionLZ4.Extension())
	assert.Equal(t, "", export.CompressionNone.Extension())
}
