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
	"bytes"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// versionMarker is the literal version field of a base EDF file.
const versionMarker = "0       "

// ParseHeader reads and validates an EDF header from r. Exactly
// HeaderBytes bytes are consumed on success.
func ParseHeader(r io.Reader) (*Header, error) {
	b := make([]byte, fixedHeaderBytes)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, fmt.Errorf("error reading header: %w", err)
	}

	if string(b[:versionWidth]) != versionMarker {
		return nil, fmt.Errorf("%w: unexpected version marker %q", ErrFormat, b[:versionWidth])
	}

	c := &fieldCursor{b: b, off: versionWidth}

	hdr := &Header{Version: Version0}
	hdr.PatientID = c.text(patientIDWidth)
	hdr.RecordingID = c.text(recordingIDWidth)

	var err error
	hdr.StartTime, err = parseStartTime(c.text(dateWidth), c.text(timeWidth))
	if err != nil {
		return nil, err
	}

	if hdr.HeaderBytes, err = c.intField("header bytes", headerBytesWidth); err != nil {
		return nil, err
	}
	c.skip(reservedWidth)

	if hdr.DataRecords, err = c.intField("number of data records", dataRecordsWidth); err != nil {
		return nil, err
	}

	duration, err := c.floatField("data record duration", durationWidth)
	if err != nil {
		return nil, err
	}
	hdr.DataRecordDuration = time.Duration(math.Round(duration * float64(time.Second)))

	if hdr.SignalCount, err = c.intField("signal count", signalCountWidth); err != nil {
		return nil, err
	}
	if hdr.SignalCount < 0 {
		return nil, fmt.Errorf("%w: negative signal count %d", ErrFormat, hdr.SignalCount)
	}

	// Validate the declared length before reading the signal headers, so a
	// corrupt signal count cannot drive a huge allocation.
	if want := fixedHeaderBytes + signalHeaderBytes*hdr.SignalCount; hdr.HeaderBytes != want {
		return nil, fmt.Errorf("%w: header declares %d bytes, signal headers end at %d",
			ErrFormat, hdr.HeaderBytes, want)
	}

	b = make([]byte, signalHeaderBytes*hdr.SignalCount)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, fmt.Errorf("error reading signal headers: %w", err)
	}
	c = &fieldCursor{b: b}

	n := hdr.SignalCount
	hdr.Signals = make([]Signal, n)
	for i := 0; i < n; i++ {
		hdr.Signals[i].Label = c.text(labelWidth)
	}
	for i := 0; i < n; i++ {
		hdr.Signals[i].TransducerType = c.text(transducerWidth)
	}
	for i := 0; i < n; i++ {
		hdr.Signals[i].PhysicalDimension = c.text(dimensionWidth)
	}
	for i := 0; i < n; i++ {
		if hdr.Signals[i].PhysicalMin, err = c.floatField("physical minimum", physicalWidth); err != nil {
			return nil, err
		}
	}
	for i := 0; i < n; i++ {
		if hdr.Signals[i].PhysicalMax, err = c.floatField("physical maximum", physicalWidth); err != nil {
			return nil, err
		}
	}
	for i := 0; i < n; i++ {
		if hdr.Signals[i].DigitalMin, err = c.floatField("digital minimum", digitalWidth); err != nil {
			return nil, err
		}
	}
	for i := 0; i < n; i++ {
		if hdr.Signals[i].DigitalMax, err = c.floatField("digital maximum", digitalWidth); err != nil {
			return nil, err
		}
	}
	for i := 0; i < n; i++ {
		hdr.Signals[i].Prefiltering = c.text(prefilteringWidth)
	}
	for i := 0; i < n; i++ {
		if hdr.Signals[i].SamplesPerRecord, err = c.intField("samples per record", samplesWidth); err != nil {
			return nil, err
		}
	}
	c.skip(signalResWidth * n)

	if end := fixedHeaderBytes + c.off; end != hdr.HeaderBytes {
		return nil, fmt.Errorf("%w: header read ended at byte %d, expected %d", ErrFormat, end, hdr.HeaderBytes)
	}

	return hdr, nil
}

// parseStartTime decodes the dd.mm.yy and hh.mm.ss fields. Any non-digit
// acts as a separator. Two digit years from 85 onwards are in the 1900s.
func parseStartTime(dateStr, timeStr string) (time.Time, error) {
	date, err := splitDigits(dateStr)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: error parsing start date %q", ErrFormat, dateStr)
	}
	clock, err := splitDigits(timeStr)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: error parsing start time %q", ErrFormat, timeStr)
	}

	day, month, year := date[0], date[1], date[2]
	if year >= 85 {
		year += 1900
	} else {
		year += 2000
	}

	t := time.Date(year, time.Month(month), day, clock[0], clock[1], clock[2], 0, time.UTC)
	if t.Day() != day || int(t.Month()) != month || t.Hour() != clock[0] || t.Minute() != clock[1] || t.Second() != clock[2] {
		return time.Time{}, fmt.Errorf("%w: invalid start date/time %q %q", ErrFormat, dateStr, timeStr)
	}
	return t, nil
}

func splitDigits(s string) ([3]int, error) {
	var out [3]int
	parts := strings.FieldsFunc(s, func(r rune) bool { return !unicode.IsDigit(r) })
	if len(parts) != 3 {
		return out, fmt.Errorf("expected 3 numeric parts, got %d", len(parts))
	}
	for i, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil {
			return out, err
		}
		out[i] = v
	}
	return out, nil
}

// fieldCursor walks a buffer of fixed width ASCII fields.
type fieldCursor struct {
	b   []byte
	off int
}

func (c *fieldCursor) skip(width int) {
	c.off += width
}

func (c *fieldCursor) text(width int) string {
	s := strings.TrimSpace(string(c.b[c.off : c.off+width]))
	c.off += width
	return s
}

func (c *fieldCursor) intField(name string, width int) (int, error) {
	s := c.text(width)
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: error parsing %s %q", ErrFormat, name, s)
	}
	return v, nil
}

func (c *fieldCursor) floatField(name string, width int) (float64, error) {
	s := c.text(width)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: error parsing %s %q", ErrFormat, name, s)
	}
	return v, nil
}

// MarshalBinary encodes the header in its fixed width on-disk layout.
// HeaderBytes and SignalCount are derived from Signals.
func (h *Header) MarshalBinary() ([]byte, error) {
	if h.StartTime.IsZero() {
		return nil, fmt.Errorf("%w: missing start time", ErrPrecondition)
	}
	if y := h.StartTime.Year(); y < 1985 || y > 2084 {
		return nil, fmt.Errorf("%w: start year %d cannot be represented", ErrPrecondition, y)
	}

	n := len(h.Signals)
	e := &headerEncoder{}
	e.buf.Grow(fixedHeaderBytes + signalHeaderBytes*n)

	e.text("version", string(Version0), versionWidth)
	e.text("patient id", h.PatientID, patientIDWidth)
	e.text("recording id", h.RecordingID, recordingIDWidth)
	e.text("start date", h.StartTime.Format("02.01.06"), dateWidth)
	e.text("start time", h.StartTime.Format("15.04.05"), timeWidth)
	e.text("header bytes", strconv.Itoa(fixedHeaderBytes+signalHeaderBytes*n), headerBytesWidth)
	e.text("reserved", "", reservedWidth)
	e.text("number of data records", strconv.Itoa(h.DataRecords), dataRecordsWidth)
	e.number("data record duration", h.DataRecordDuration.Seconds(), durationWidth)
	e.text("signal count", strconv.Itoa(n), signalCountWidth)

	for _, sig := range h.Signals {
		e.text("label", sig.Label, labelWidth)
	}
	for _, sig := range h.Signals {
		e.text("transducer type", sig.TransducerType, transducerWidth)
	}
	for _, sig := range h.Signals {
		e.text("physical dimension", sig.PhysicalDimension, dimensionWidth)
	}
	for _, sig := range h.Signals {
		e.number("physical minimum", sig.PhysicalMin, physicalWidth)
	}
	for _, sig := range h.Signals {
		e.number("physical maximum", sig.PhysicalMax, physicalWidth)
	}
	for _, sig := range h.Signals {
		e.number("digital minimum", sig.DigitalMin, digitalWidth)
	}
	for _, sig := range h.Signals {
		e.number("digital maximum", sig.DigitalMax, digitalWidth)
	}
	for _, sig := range h.Signals {
		e.text("prefiltering", sig.Prefiltering, prefilteringWidth)
	}
	for _, sig := range h.Signals {
		e.text("samples per record", strconv.Itoa(sig.SamplesPerRecord), samplesWidth)
	}
	for range h.Signals {
		e.text("reserved", "", signalResWidth)
	}

	if e.err != nil {
		return nil, e.err
	}
	return e.buf.Bytes(), nil
}

// WriteTo writes the encoded header to w.
func (h *Header) WriteTo(w io.Writer) (int64, error) {
	b, err := h.MarshalBinary()
	if err != nil {
		return 0, err
	}
	n, err := w.Write(b)
	return int64(n), err
}

// headerEncoder accumulates fixed width fields and keeps the first error.
type headerEncoder struct {
	buf bytes.Buffer
	err error
}

func (e *headerEncoder) text(name, s string, width int) {
	if e.err != nil {
		return
	}
	if len(s) > width {
		e.err = fmt.Errorf("%w: %s %q exceeds %d bytes", ErrPrecondition, name, s, width)
		return
	}
	for i := 0; i < len(s); i++ {
		if s[i] < 0x20 || s[i] > 0x7e {
			e.err = fmt.Errorf("%w: %s %q is not printable ASCII", ErrPrecondition, name, s)
			return
		}
	}
	e.buf.WriteString(s)
	for i := len(s); i < width; i++ {
		e.buf.WriteByte(' ')
	}
}

func (e *headerEncoder) number(name string, v float64, width int) {
	if e.err != nil {
		return
	}
	s, err := formatNumber(v, width)
	if err != nil {
		e.err = fmt.Errorf("%w: %s: %v", ErrPrecondition, name, err)
		return
	}
	e.text(name, s, width)
}

// formatNumber renders v in at most width characters, dropping fractional
// digits as needed. Integral part overflow is an error.
func formatNumber(v float64, width int) (string, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "", fmt.Errorf("cannot encode %v", v)
	}
	if s := strconv.FormatFloat(v, 'f', -1, 64); len(s) <= width {
		return s, nil
	}
	for prec := width - 2; prec >= 0; prec-- {
		s := strconv.FormatFloat(v, 'f', prec, 64)
		if strings.Contains(s, ".") {
			s = strings.TrimRight(strings.TrimRight(s, "0"), ".")
		}
		if len(s) <= width {
			return s, nil
		}
	}
	return "", fmt.Errorf("%v does not fit in %d characters", v, width)
}
