// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package edf

// span maps part of one data record onto the output of a windowed read.
// Ranges are half open.
type span struct {
	Dst    [2]int // Range in the output, relative to begsam
	Record int    // Index of the data record
	Src    [2]int // Range within the (upsampled) record
}

// selectBlocks splits [begsam, endsam) over records of blockSize samples
// each. The returned spans are ordered and together cover the output
// exactly once. The caller guarantees 0 <= begsam < endsam.
func selectBlocks(blockSize, begsam, endsam int) []span {
	first := begsam / blockSize
	last := (endsam - 1) / blockSize

	spans := make([]span, 0, last-first+1)
	for rec := first; rec <= last; rec++ {
		start := rec * blockSize
		lo := max(begsam, start)
		hi := min(endsam, start+blockSize)
		spans = append(spans, span{
			Dst:    [2]int{lo - begsam, hi - begsam},
			Record: rec,
			Src:    [2]int{lo - start, hi - start},
		})
	}
	return spans
}
