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
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"time"

	"github.com/rs/zerolog"
)

type file interface {
	io.ReadSeeker
	io.Closer
}

// Reader reads windows of samples from an EDF file. The file is opened
// for the duration of each call and closed before it returns, so a Reader
// holds no file handle between calls.
type Reader struct {
	name          string
	open          func() (file, error)
	hdr           *Header
	cal           []Calibration
	maxSamples    int // Samples per record of the fastest signal
	recordSamples int // Stored samples per record, all signals
	log           zerolog.Logger
}

// Info summarises a recording for callers that do not need the full header.
type Info struct {
	SubjectID  string
	StartTime  time.Time
	SampleRate float64  // Rate of the fastest signal; all signals are read at this rate
	Channels   []string // Signal labels in file order
	Samples    int      // Samples per channel
}

// DatasetInfo is the time extent of a recording in whole seconds, as
// consumed by annotation stores.
type DatasetInfo struct {
	StartTime   time.Time
	FirstSecond int
	LastSecond  int
}

// Open opens the EDF file at name and validates its header.
func Open(name string, opts ...Option) (*Reader, error) {
	return newReader(name, func() (file, error) {
		return os.Open(name)
	}, opts)
}

// OpenFS opens the EDF file at name in fsys. Files opened from fsys must
// implement io.Seeker.
func OpenFS(fsys fs.FS, name string, opts ...Option) (*Reader, error) {
	return newReader(name, func() (file, error) {
		f, err := fsys.Open(name)
		if err != nil {
			return nil, err
		}
		sf, ok := f.(file)
		if !ok {
			_ = f.Close()
			return nil, fmt.Errorf("%s: file does not support seeking", name)
		}
		return sf, nil
	}, opts)
}

func newReader(name string, open func() (file, error), opts []Option) (*Reader, error) {
	o := newOptions(opts)

	f, err := open()
	if err != nil {
		return nil, fmt.Errorf("error opening file: %w", err)
	}
	defer f.Close()

	hdr, err := ParseHeader(bufio.NewReader(f))
	if err != nil {
		return nil, err
	}

	r := &Reader{
		name:          name,
		open:          open,
		hdr:           hdr,
		maxSamples:    hdr.MaxSamplesPerRecord(),
		recordSamples: hdr.RecordSamples(),
		log:           o.logger,
	}

	if err := r.validateLayout(); err != nil {
		return nil, err
	}

	if r.cal, err = Calibrate(hdr); err != nil {
		return nil, err
	}

	size, err := f.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, fmt.Errorf("error seeking to end of file: %w", err)
	}
	recordBytes := int64(r.recordSamples) * sampleBytes
	if hdr.DataRecords > 0 && recordBytes > (math.MaxInt64-int64(hdr.HeaderBytes))/int64(hdr.DataRecords) {
		return nil, fmt.Errorf("%w: header describes %d records of %d bytes", ErrFormat, hdr.DataRecords, recordBytes)
	}
	want := int64(hdr.HeaderBytes) + int64(hdr.DataRecords)*recordBytes
	if size < want {
		return nil, fmt.Errorf("%w: file is %d bytes, header describes %d", ErrFormat, size, want)
	}
	if size > want {
		r.log.Warn().Str("file", name).Int64("extra_bytes", size-want).Msg("Trailing data after last record")
	}

	r.log.Debug().
		Str("file", name).
		Int("signals", hdr.SignalCount).
		Int("records", hdr.DataRecords).
		Float64("sample_rate", hdr.SampleRate()).
		Msg("Opened EDF file")

	return r, nil
}

func (r *Reader) validateLayout() error {
	hdr := r.hdr
	if hdr.SignalCount == 0 {
		return fmt.Errorf("%w: no signals", ErrFormat)
	}
	if hdr.DataRecords < 0 {
		return fmt.Errorf("%w: unknown number of data records", ErrFormat)
	}
	if hdr.DataRecordDuration <= 0 {
		return fmt.Errorf("%w: data record duration %s", ErrFormat, hdr.DataRecordDuration)
	}
	for i, sig := range hdr.Signals {
		if sig.SamplesPerRecord <= 0 {
			return fmt.Errorf("%w: signal %d (%s) has %d samples per record", ErrFormat, i, sig.Label, sig.SamplesPerRecord)
		}
		// Upsampling repeats each sample, so rates must divide evenly.
		if r.maxSamples%sig.SamplesPerRecord != 0 {
			return fmt.Errorf("%w: signal %d (%s) has %d samples per record, not a divisor of %d",
				ErrData, i, sig.Label, sig.SamplesPerRecord, r.maxSamples)
		}
	}
	return nil
}

// Header returns a copy of the parsed header.
func (r *Reader) Header() Header {
	hdr := *r.hdr
	hdr.Signals = append([]Signal(nil), r.hdr.Signals...)
	return hdr
}

// Calibration returns the calibration of every signal.
func (r *Reader) Calibration() []Calibration {
	return append([]Calibration(nil), r.cal...)
}

// Info returns a summary of the recording.
func (r *Reader) Info() Info {
	return Info{
		SubjectID:  r.hdr.PatientID,
		StartTime:  r.hdr.StartTime,
		SampleRate: r.hdr.SampleRate(),
		Channels:   r.hdr.Labels(),
		Samples:    r.hdr.Samples(),
	}
}

// Dataset returns the time extent of the recording.
func (r *Reader) Dataset() DatasetInfo {
	return DatasetInfo{
		StartTime:  r.hdr.StartTime,
		LastSecond: int(float64(r.hdr.Samples()) / r.hdr.SampleRate()),
	}
}

// Read returns physical values for the channels chans over the sample range
// [begsam, endsam), as a matrix of len(chans) rows. Every channel is
// upsampled to the rate of the fastest signal.
func (r *Reader) Read(chans []int, begsam, endsam int) ([][]float64, error) {
	if begsam >= endsam {
		return nil, fmt.Errorf("%w: begsam %d is not before endsam %d", ErrPrecondition, begsam, endsam)
	}
	if begsam < 0 || endsam > r.hdr.Samples() {
		return nil, fmt.Errorf("%w: samples [%d, %d) outside recording of %d samples",
			ErrPrecondition, begsam, endsam, r.hdr.Samples())
	}
	for _, ch := range chans {
		if ch < 0 || ch >= len(r.hdr.Signals) {
			return nil, fmt.Errorf("%w: channel index %d out of range", ErrData, ch)
		}
	}

	dat := make([][]float64, len(chans))
	for i := range dat {
		dat[i] = make([]float64, endsam-begsam)
		for j := range dat[i] {
			dat[i][j] = math.NaN()
		}
	}

	f, err := r.open()
	if err != nil {
		return nil, fmt.Errorf("error opening file: %w", err)
	}
	defer f.Close()

	raw := make([]byte, r.maxSamples*sampleBytes)
	rec := make([]float64, r.maxSamples)
	for _, sp := range selectBlocks(r.maxSamples, begsam, endsam) {
		for i, ch := range chans {
			if err := r.readRecord(f, sp.Record, ch, raw, rec); err != nil {
				return nil, err
			}
			copy(dat[i][sp.Dst[0]:sp.Dst[1]], rec[sp.Src[0]:sp.Src[1]])
		}
	}

	for i, ch := range chans {
		cal := r.cal[ch]
		row := dat[i]
		for j := range row {
			row[j] = cal.Physical(row[j])
		}
	}

	return dat, nil
}

// ReadLabels is Read with channels selected by label.
func (r *Reader) ReadLabels(labels []string, begsam, endsam int) ([][]float64, error) {
	chans, err := r.hdr.ChannelIndex(labels...)
	if err != nil {
		return nil, err
	}
	return r.Read(chans, begsam, endsam)
}

// readRecord reads the digital samples of signal ch in record rec into dst,
// repeating each sample to fill all r.maxSamples slots.
func (r *Reader) readRecord(f io.ReadSeeker, rec, ch int, raw []byte, dst []float64) error {
	n := r.hdr.Signals[ch].SamplesPerRecord
	pos := int64(r.hdr.HeaderBytes) +
		(int64(r.recordSamples)*int64(rec)+int64(r.hdr.recordOffset(ch)))*sampleBytes
	if _, err := f.Seek(pos, io.SeekStart); err != nil {
		return fmt.Errorf("error seeking to position: %w", err)
	}

	buf := raw[:n*sampleBytes]
	if _, err := io.ReadFull(f, buf); err != nil {
		return fmt.Errorf("error reading sample data: %w", err)
	}

	ratio := r.maxSamples / n
	for i := 0; i < n; i++ {
		v := float64(int16(binary.LittleEndian.Uint16(buf[i*sampleBytes:])))
		for k := 0; k < ratio; k++ {
			dst[i*ratio+k] = v
		}
	}
	return nil
}

// SignalReader reads continuous signal data from an EDF file.
type SignalReader struct {
	r           *Reader
	signalIndex int // Index of the signal to read
	pos         int // Next sample to read
}

// Signal creates a new SignalReader for a specified signal index. Samples
// are returned at the upsampled rate.
func (r *Reader) Signal(signalIndex int) (*SignalReader, error) {
	if signalIndex < 0 || signalIndex >= len(r.hdr.Signals) {
		return nil, fmt.Errorf("%w: signal index %d out of range", ErrData, signalIndex)
	}

	return &SignalReader{r: r, signalIndex: signalIndex}, nil
}

// Read fills the provided float64 slice with the physical values from the signal.
func (sr *SignalReader) Read(data []float64) (int, error) {
	remaining := sr.r.hdr.Samples() - sr.pos
	if remaining <= 0 {
		return 0, io.EOF
	}
	if len(data) == 0 {
		return 0, nil
	}

	n := min(len(data), remaining)
	dat, err := sr.r.Read([]int{sr.signalIndex}, sr.pos, sr.pos+n)
	if err != nil {
		return 0, err
	}
	copy(data, dat[0])
	sr.pos += n

	return n, nil
}
