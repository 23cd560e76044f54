// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

// Package export serializes decoded EDF windows as CSV or CBOR, optionally
// compressed with zstd or lz4.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/fxamacker/cbor/v2"

	"github.com/OpenPSG/edf/v2"
)

// Format selects the export encoding.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatCBOR Format = "cbor"
)

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error

	encOptions := cbor.CoreDetEncOptions()
	encOptions.Time = cbor.TimeRFC3339Nano
	encMode, err = encOptions.EncMode()
	if err != nil {
		panic("export: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("export: CBOR decoder initialization failed: " + err.Error())
	}
}

// Encode writes ds to w in the given format and compression.
func Encode(w io.Writer, ds *edf.Dataset, format Format, compression Compression) error {
	cw, err := NewWriter(w, compression)
	if err != nil {
		return err
	}

	switch format {
	case FormatCSV:
		err = WriteCSV(cw, ds)
	case FormatCBOR:
		err = encMode.NewEncoder(cw).Encode(ds)
	default:
		err = fmt.Errorf("unsupported format %q", format)
	}
	if err != nil {
		_ = cw.Close()
		return err
	}
	return cw.Close()
}

// DecodeCBOR reads a dataset written by Encode with FormatCBOR and checks
// its invariants.
func DecodeCBOR(r io.Reader, compression Compression) (*edf.Dataset, error) {
	cr, err := NewReader(r, compression)
	if err != nil {
		return nil, err
	}
	defer cr.Close()

	var ds edf.Dataset
	if err := decMode.NewDecoder(cr).Decode(&ds); err != nil {
		return nil, fmt.Errorf("decoding dataset: %w", err)
	}
	if err := ds.Validate(); err != nil {
		return nil, err
	}
	return &ds, nil
}

// WriteCSV writes one row per sample: the time in seconds from the start of
// the recording followed by one column per channel.
func WriteCSV(w io.Writer, ds *edf.Dataset) error {
	cw := csv.NewWriter(w)

	row := make([]string, len(ds.Labels)+1)
	row[0] = "time"
	copy(row[1:], ds.Labels)
	if err := cw.Write(row); err != nil {
		return err
	}

	offset := ds.Offset.Seconds()
	for j := 0; j < ds.Len(); j++ {
		row[0] = strconv.FormatFloat(offset+float64(j)/ds.SampleRate, 'f', -1, 64)
		for i, samples := range ds.Samples {
			row[i+1] = strconv.FormatFloat(samples[j], 'g', -1, 64)
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
