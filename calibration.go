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
	"math"
)

// Calibration is the affine mapping between stored digital values and
// physical units for one signal.
type Calibration struct {
	Gain        float64 // Physical units per digital step
	DigitalMin  float64
	DigitalMax  float64
	PhysicalMin float64
}

// Calibrate derives the calibration of every signal in the header. Signals
// with a non-positive physical or digital range are rejected.
func Calibrate(hdr *Header) ([]Calibration, error) {
	cal := make([]Calibration, len(hdr.Signals))
	for i, sig := range hdr.Signals {
		physRange := sig.PhysicalMax - sig.PhysicalMin
		digRange := sig.DigitalMax - sig.DigitalMin
		if !(physRange > 0) {
			return nil, fmt.Errorf("%w: signal %d (%s) has physical range [%g, %g]",
				ErrFormat, i, sig.Label, sig.PhysicalMin, sig.PhysicalMax)
		}
		if !(digRange > 0) {
			return nil, fmt.Errorf("%w: signal %d (%s) has digital range [%g, %g]",
				ErrFormat, i, sig.Label, sig.DigitalMin, sig.DigitalMax)
		}
		cal[i] = Calibration{
			Gain:        physRange / digRange,
			DigitalMin:  sig.DigitalMin,
			DigitalMax:  sig.DigitalMax,
			PhysicalMin: sig.PhysicalMin,
		}
	}
	return cal, nil
}

// Physical converts a digital value to physical units.
func (c Calibration) Physical(digital float64) float64 {
	return (digital-c.DigitalMin)*c.Gain + c.PhysicalMin
}

// Digital converts a physical value to the nearest digital value, clipping
// to the signal's digital range.
func (c Calibration) Digital(physical float64) int16 {
	d := math.Round((physical-c.PhysicalMin)/c.Gain + c.DigitalMin)
	d = math.Max(c.DigitalMin, math.Min(c.DigitalMax, d))
	d = math.Max(math.MinInt16, math.Min(math.MaxInt16, d))
	return int16(d)
}
