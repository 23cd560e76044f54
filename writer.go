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
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// maxRecordBytes is the data record size recommended by the EDF standard.
const maxRecordBytes = 61440

// Writer writes EDF files one data record at a time.
type Writer struct {
	w           io.WriteSeeker
	hdr         *Header
	cal         []Calibration
	log         zerolog.Logger
	dataRecords int // Number of data records written so far.
	buf         []byte
}

// Create creates a new EDF writer that writes to the given writer.
func Create(w io.WriteSeeker, hdr Header, opts ...Option) (*Writer, error) {
	o := newOptions(opts)

	cal, err := Calibrate(&hdr)
	if err != nil {
		return nil, err
	}

	hdr.Version = Version0
	hdr.SignalCount = len(hdr.Signals)
	hdr.HeaderBytes = fixedHeaderBytes + signalHeaderBytes*hdr.SignalCount
	hdr.DataRecords = -1 // Unknown number of data records (at this time).
	hdr.Signals = append([]Signal(nil), hdr.Signals...)

	ew := &Writer{w: w, hdr: &hdr, cal: cal, log: o.logger}

	// Write the initial header. This also rejects sample counts that do
	// not fit their header field.
	if err := ew.writeHeader(); err != nil {
		return nil, fmt.Errorf("error writing header: %w", err)
	}

	if recordBytes := hdr.RecordSamples() * sampleBytes; recordBytes > maxRecordBytes {
		ew.log.Warn().Int("record_bytes", recordBytes).Msg("Data record is larger than the recommended 61440 bytes")
	}

	return ew, nil
}

// Close finalizes the EDF file by updating the header with the total number
// of data records. It does not close the underlying writer.
func (ew *Writer) Close() error {
	ew.hdr.DataRecords = ew.dataRecords
	if err := ew.writeHeader(); err != nil {
		return fmt.Errorf("error writing header: %w", err)
	}

	if _, err := ew.w.Seek(0, io.SeekEnd); err != nil {
		return fmt.Errorf("error seeking to end: %w", err)
	}

	return nil
}

// WriteRecord writes a single data record of physical values. Values
// outside a signal's physical range saturate at its digital limits.
func (ew *Writer) WriteRecord(signals [][]float64) error {
	if len(signals) != ew.hdr.SignalCount {
		return fmt.Errorf("%w: expected %d signals, got %d", ErrPrecondition, ew.hdr.SignalCount, len(signals))
	}

	for i, signal := range signals {
		if want := ew.hdr.Signals[i].SamplesPerRecord; len(signal) != want {
			return fmt.Errorf("%w: signal %d has %d samples, expected %d", ErrPrecondition, i, len(signal), want)
		}
	}

	// Sized on first use, once the caller has shown it holds a full record.
	if ew.buf == nil {
		ew.buf = make([]byte, ew.hdr.RecordSamples()*sampleBytes)
	}

	off := 0
	for i, signal := range signals {
		cal := ew.cal[i]
		for _, sample := range signal {
			binary.LittleEndian.PutUint16(ew.buf[off:], uint16(cal.Digital(sample)))
			off += sampleBytes
		}
	}

	if _, err := ew.w.Write(ew.buf[:off]); err != nil {
		return fmt.Errorf("error writing data record: %w", err)
	}

	ew.dataRecords++
	return nil
}

func (ew *Writer) writeHeader() error {
	// Rewind to the beginning of the file.
	if _, err := ew.w.Seek(0, io.SeekStart); err != nil {
		return err
	}

	_, err := ew.hdr.WriteTo(ew.w)
	return err
}

// WriteFile writes ds to the named file as EDF, creating or truncating it.
// On error the state of the file is unspecified.
func WriteFile(name string, ds *Dataset, opts ...Option) (err error) {
	if ds == nil || ds.StartTime.IsZero() {
		return fmt.Errorf("%w: data should contain a valid start time", ErrPrecondition)
	}

	f, err := os.Create(name)
	if err != nil {
		return fmt.Errorf("error creating file: %w", err)
	}
	defer func() {
		err = errors.Join(err, f.Close())
	}()

	return Write(f, ds, opts...)
}

// Write encodes ds as EDF with one second data records. Samples after the
// last whole second are dropped. All channels share a symmetric physical
// range of ±physicalMax (see WithPhysicalMax), encoded with DigitalMin and
// DigitalMax.
func Write(w io.WriteSeeker, ds *Dataset, opts ...Option) error {
	if ds == nil || ds.StartTime.IsZero() {
		return fmt.Errorf("%w: data should contain a valid start time", ErrPrecondition)
	}
	if err := ds.Validate(); err != nil {
		return err
	}

	o := newOptions(opts)

	physicalMax := o.physicalMax
	if physicalMax < 0 {
		return fmt.Errorf("%w: physical maximum %g is negative", ErrPrecondition, physicalMax)
	}
	if physicalMax == 0 {
		physicalMax = ds.MaxAbs()
	}
	if physicalMax == 0 {
		return fmt.Errorf("%w: cannot derive a physical range from all-zero data", ErrData)
	}

	// Store the value the header can represent, so reads see the same range.
	physicalMax, err := representable(physicalMax, physicalWidth)
	if err != nil {
		return err
	}

	o.logger.Info().
		Float64("physical_max", physicalMax).
		Float64("precision", physicalMax/DigitalMax).
		Msg("Data exported to EDF will have limited precision")

	samplesPerRecord := int(ds.SampleRate)
	n := ds.Len()
	dataRecords := n / samplesPerRecord
	if dropped := n - dataRecords*samplesPerRecord; dropped > 0 {
		o.logger.Debug().Int("samples", dropped).Msg("Dropping samples after last whole second")
	}

	hdr := Header{
		PatientID:          o.subjectID,
		RecordingID:        o.recordingID,
		StartTime:          ds.StartTime.Add(ds.Offset),
		DataRecordDuration: time.Second,
		Signals:            make([]Signal, len(ds.Samples)),
	}
	for i, label := range ds.Labels {
		hdr.Signals[i] = Signal{
			Label:             label,
			PhysicalDimension: PhysicalDimension,
			PhysicalMin:       -physicalMax,
			PhysicalMax:       physicalMax,
			DigitalMin:        DigitalMin,
			DigitalMax:        DigitalMax,
			SamplesPerRecord:  samplesPerRecord,
		}
	}

	ew, err := Create(w, hdr, opts...)
	if err != nil {
		return err
	}

	record := make([][]float64, len(ds.Samples))
	for rec := 0; rec < dataRecords; rec++ {
		i0 := rec * samplesPerRecord
		for ch, row := range ds.Samples {
			record[ch] = row[i0 : i0+samplesPerRecord]
		}
		if err := ew.WriteRecord(record); err != nil {
			return err
		}
	}

	return ew.Close()
}

// representable returns the smallest value not below v whose text, and the
// text of its negation, fit a header field of the given width. Using it as
// the physical maximum keeps the stored range symmetric and unclipped.
func representable(v float64, width int) (float64, error) {
	width-- // Room for the sign of the physical minimum.

	if s := strconv.FormatFloat(v, 'f', -1, 64); len(s) <= width {
		return v, nil
	}
	for prec := width - 2; prec >= 0; prec-- {
		scale := math.Pow10(prec)
		k := math.Ceil(v * scale)
		if math.IsInf(k, 0) {
			continue
		}
		if k/scale < v {
			k++
		}
		s := strconv.FormatFloat(k/scale, 'f', prec, 64)
		if strings.Contains(s, ".") {
			s = strings.TrimRight(strings.TrimRight(s, "0"), ".")
		}
		if len(s) > width {
			continue
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, err
		}
		if f >= v {
			return f, nil
		}
	}
	return 0, fmt.Errorf("%w: physical maximum %g does not fit in %d characters", ErrPrecondition, v, width)
}
