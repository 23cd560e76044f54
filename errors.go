// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package edf

import "errors"

var (
	// ErrFormat is returned when a file is not a well-formed EDF file.
	ErrFormat = errors.New("malformed EDF file")
	// ErrPrecondition is returned when a caller violates an argument contract.
	ErrPrecondition = errors.New("precondition violated")
	// ErrData is returned for invalid channel selections and unsupported
	// signal layouts.
	ErrData = errors.New("invalid data")
)
