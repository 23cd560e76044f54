// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/OpenPSG/edf/v2"
	"github.com/OpenPSG/edf/v2/internal/export"
	"github.com/OpenPSG/edf/v2/internal/fingerprint"
)

type headerDump struct {
	File           string       `yaml:"file"`
	Size           string       `yaml:"size"`
	Digest         string       `yaml:"blake3,omitempty"`
	SubjectID      string       `yaml:"subject_id"`
	RecordingID    string       `yaml:"recording_id"`
	StartTime      time.Time    `yaml:"start_time"`
	DataRecords    int          `yaml:"data_records"`
	RecordDuration string       `yaml:"record_duration"`
	SampleRate     float64      `yaml:"sample_rate"`
	Samples        int          `yaml:"samples"`
	LastSecond     int          `yaml:"last_second"`
	Signals        []signalDump `yaml:"signals"`
}

type signalDump struct {
	Label            string  `yaml:"label"`
	Transducer       string  `yaml:"transducer,omitempty"`
	Dimension        string  `yaml:"dimension"`
	PhysicalMin      float64 `yaml:"physical_min"`
	PhysicalMax      float64 `yaml:"physical_max"`
	DigitalMin       float64 `yaml:"digital_min"`
	DigitalMax       float64 `yaml:"digital_max"`
	Prefiltering     string  `yaml:"prefiltering,omitempty"`
	SamplesPerRecord int     `yaml:"samples_per_record"`
}

func runHeader(e *env, args []string) error {
	var digest bool

	flagSet := pflag.NewFlagSet("header", pflag.ContinueOnError)
	flagSet.BoolVar(&digest, "digest", false, "include the BLAKE3 digest of the file")

	rest, err := e.parseCommand(flagSet, args)
	if err != nil {
		return err
	}
	if len(rest) != 1 {
		return fmt.Errorf("header: expected one file, got %d", len(rest))
	}
	name := rest[0]

	r, err := edf.Open(name, edf.WithLogger(e.log))
	if err != nil {
		return err
	}

	st, err := os.Stat(name)
	if err != nil {
		return err
	}

	hdr := r.Header()
	dump := headerDump{
		File:           name,
		Size:           humanize.IBytes(uint64(st.Size())),
		SubjectID:      hdr.PatientID,
		RecordingID:    hdr.RecordingID,
		StartTime:      hdr.StartTime,
		DataRecords:    hdr.DataRecords,
		RecordDuration: hdr.DataRecordDuration.String(),
		SampleRate:     hdr.SampleRate(),
		Samples:        hdr.Samples(),
		LastSecond:     r.Dataset().LastSecond,
	}
	for _, sig := range hdr.Signals {
		dump.Signals = append(dump.Signals, signalDump{
			Label:            sig.Label,
			Transducer:       sig.TransducerType,
			Dimension:        sig.PhysicalDimension,
			PhysicalMin:      sig.PhysicalMin,
			PhysicalMax:      sig.PhysicalMax,
			DigitalMin:       sig.DigitalMin,
			DigitalMax:       sig.DigitalMax,
			Prefiltering:     sig.Prefiltering,
			SamplesPerRecord: sig.SamplesPerRecord,
		})
	}

	if digest {
		d, err := fingerprint.File(name)
		if err != nil {
			return err
		}
		dump.Digest = d.String()
	}

	enc := yaml.NewEncoder(e.stdout)
	enc.SetIndent(2)
	if err := enc.Encode(dump); err != nil {
		return err
	}
	return enc.Close()
}

func runRead(e *env, args []string) error {
	var (
		chans       []int
		labels      []string
		begsam      int
		endsam      int
		format      string
		compression string
		output      string
	)

	flagSet := pflag.NewFlagSet("read", pflag.ContinueOnError)
	flagSet.IntSliceVar(&chans, "chan", nil, "channel indices to read (default: all)")
	flagSet.StringSliceVar(&labels, "label", nil, "channel labels to read")
	flagSet.IntVar(&begsam, "begsam", 0, "first sample")
	flagSet.IntVar(&endsam, "endsam", -1, "sample after the last (default: end of recording)")
	flagSet.StringVar(&format, "format", e.cfg.Export.Format, "output format (csv, cbor)")
	flagSet.StringVar(&compression, "compression", e.cfg.Export.Compression, "output compression (none, zstd, lz4)")
	flagSet.StringVarP(&output, "output", "o", "", "output file (default: stdout)")

	rest, err := e.parseCommand(flagSet, args)
	if err != nil {
		return err
	}
	if len(rest) != 1 {
		return fmt.Errorf("read: expected one file, got %d", len(rest))
	}
	if len(chans) > 0 && len(labels) > 0 {
		return fmt.Errorf("read: --chan and --label are mutually exclusive")
	}

	r, err := edf.Open(rest[0], edf.WithLogger(e.log))
	if err != nil {
		return err
	}

	hdr := r.Header()
	switch {
	case len(labels) > 0:
		if chans, err = hdr.ChannelIndex(labels...); err != nil {
			return err
		}
	case len(chans) == 0:
		for i := range hdr.Signals {
			chans = append(chans, i)
		}
	}
	if endsam < 0 {
		endsam = hdr.Samples()
	}

	ds, err := r.ReadDataset(chans, begsam, endsam)
	if err != nil {
		return err
	}

	var w io.Writer = e.stdout
	var out *os.File
	if output != "" {
		if out, err = os.Create(output); err != nil {
			return err
		}
		defer out.Close()
		w = out
	}

	if err := export.Encode(w, ds, export.Format(format), export.Compression(compression)); err != nil {
		return err
	}

	e.log.Info().
		Str("samples", humanize.Comma(int64(ds.Len()))).
		Int("channels", len(chans)).
		Str("format", format).
		Msg("Exported samples")

	if out != nil {
		return out.Close()
	}
	return nil
}

func runWrite(e *env, args []string) error {
	var (
		input       string
		compression string
		output      string
		physicalMax float64
		subjectID   string
		recordingID string
	)

	flagSet := pflag.NewFlagSet("write", pflag.ContinueOnError)
	flagSet.StringVar(&input, "in", "", "CBOR dataset produced by 'edfkit read --format cbor'")
	flagSet.StringVar(&compression, "compression", e.cfg.Export.Compression, "input compression (none, zstd, lz4)")
	flagSet.StringVarP(&output, "output", "o", "", "EDF file to write")
	flagSet.Float64Var(&physicalMax, "physical-max", e.cfg.Write.PhysicalMax, "saturation level (default: max absolute value)")
	flagSet.StringVar(&subjectID, "subject-id", e.cfg.Write.SubjectID, "patient identification")
	flagSet.StringVar(&recordingID, "recording-id", e.cfg.Write.RecordingID, "recording identification")

	rest, err := e.parseCommand(flagSet, args)
	if err != nil {
		return err
	}
	if len(rest) != 0 {
		return fmt.Errorf("write: unexpected argument %q", rest[0])
	}
	if input == "" || output == "" {
		return errors.New("write: --in and --output are required")
	}

	f, err := os.Open(input)
	if err != nil {
		return err
	}
	defer f.Close()

	ds, err := export.DecodeCBOR(f, export.Compression(compression))
	if err != nil {
		return err
	}

	opts := []edf.Option{edf.WithLogger(e.log), edf.WithPhysicalMax(physicalMax)}
	if subjectID != "" {
		opts = append(opts, edf.WithSubjectID(subjectID))
	}
	if recordingID != "" {
		opts = append(opts, edf.WithRecordingID(recordingID))
	}

	if err := edf.WriteFile(output, ds, opts...); err != nil {
		return err
	}

	e.log.Info().Str("file", output).Int("records", ds.Len()/int(ds.SampleRate)).Msg("Wrote EDF file")
	return nil
}
