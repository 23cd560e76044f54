// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package logging_test

import (
	"bytes"
	"testing"

	"github.com/OpenPSG/edf/v2/internal/config"
	"github.com/OpenPSG/edf/v2/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(config.Log{Level: "warn", Format: "json"}, &buf)
	require.NoError(t, err)

	logger.Info().Msg("hidden")
	logger.Warn().Int("records", 3).Msg("shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"message":"shown"`)
	assert.Contains(t, out, `"records":3`)
}

func TestNewText(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(config.Log{Level: "info", Format: "text"}, &buf)
	require.NoError(t, err)

	logger.Info().Str("file", "a.edf").Msg("Opened")

	out := buf.String()
	assert.Contains(t, out, "Opened")
	assert.Contains(t, out, "file=a.edf")
	assert.NotContains(t, out, "\x1b[")
}

func TestNewBadLevel(t *testing.T) {
	_, err := logging.New(config.Log{Level: "loud"}, &bytes.Buffer{})
	require.Error(t, err)
}
