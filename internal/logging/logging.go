// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

// Package logging builds the zerolog logger used by edfkit.
package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"

	"github.com/OpenPSG/edf/v2/internal/config"
)

// New returns a logger configured by cfg. A nil w selects the writer named
// by cfg.Output.
func New(cfg config.Log, w io.Writer) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("log.level: %w", err)
	}

	if w == nil {
		switch cfg.Output {
		case "stdout":
			w = os.Stdout
		default:
			w = os.Stderr
		}
	}

	if cfg.Format != "json" {
		console := zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05.000"}

		switch cfg.Format {
		case "text":
			console.NoColor = true
		case "color":
			console.NoColor = false
		default:
			f, ok := w.(*os.File)
			console.NoColor = !ok || !isatty.IsTerminal(f.Fd())
		}

		w = console
	}

	return zerolog.New(w).Level(lvl).With().Timestamp().Logger(), nil
}
