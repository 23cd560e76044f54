// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

// edfkit inspects EDF files and converts them to and from sample exports.
//
// Usage:
//
//	edfkit [--config FILE] [--log-level LEVEL] header FILE [--digest]
//	edfkit [--config FILE] read FILE [--chan 0,1 | --label Fpz,Cz] [--begsam N] [--endsam M] [-o OUT]
//	edfkit [--config FILE] write --in DATA.cbor -o OUT.edf [--physical-max V]
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/OpenPSG/edf/v2/internal/config"
	"github.com/OpenPSG/edf/v2/internal/logging"
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// env is the state shared by all subcommands.
type env struct {
	cfg    config.Config
	log    zerolog.Logger
	stdout io.Writer
	stderr io.Writer
}

type command struct {
	name    string
	summary string
	run     func(e *env, args []string) error
}

var commands = []command{
	{"header", "print the header of an EDF file as YAML", runHeader},
	{"read", "export a window of samples as CSV or CBOR", runRead},
	{"write", "write a CBOR dataset export as EDF", runWrite},
}

func run(args []string, stdout, stderr io.Writer) error {
	var configPath, logLevel, logFormat string

	flagSet := pflag.NewFlagSet("edfkit", pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.SetInterspersed(false)
	flagSet.StringVar(&configPath, "config", "", "YAML configuration file")
	flagSet.StringVar(&logLevel, "log-level", "", "log level (trace, debug, info, warn, error, disabled)")
	flagSet.StringVar(&logFormat, "log-format", "", "log format (color, text, json)")
	flagSet.Usage = func() { printUsage(stderr, flagSet) }

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if logFormat != "" {
		cfg.Log.Format = logFormat
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	var logOut io.Writer
	if cfg.Log.Output != "stdout" {
		logOut = stderr
	}
	logger, err := logging.New(cfg.Log, logOut)
	if err != nil {
		return err
	}

	rest := flagSet.Args()
	if len(rest) == 0 {
		printUsage(stderr, flagSet)
		return fmt.Errorf("missing command")
	}

	e := &env{cfg: cfg, log: logger, stdout: stdout, stderr: stderr}
	for _, cmd := range commands {
		if cmd.name != rest[0] {
			continue
		}
		if err := cmd.run(e, rest[1:]); !errors.Is(err, pflag.ErrHelp) {
			return err
		}
		return nil
	}
	return fmt.Errorf("unknown command %q", rest[0])
}

func printUsage(w io.Writer, flagSet *pflag.FlagSet) {
	fmt.Fprintf(w, "Usage: edfkit [flags] <command> [args]\n\nCommands:\n")
	for _, cmd := range commands {
		fmt.Fprintf(w, "  %-8s %s\n", cmd.name, cmd.summary)
	}
	fmt.Fprintf(w, "\nFlags:\n%s", flagSet.FlagUsages())
}

// parseCommand parses args for a subcommand and returns its positional
// arguments.
func (e *env) parseCommand(flagSet *pflag.FlagSet, args []string) ([]string, error) {
	flagSet.SetOutput(e.stderr)
	if err := flagSet.Parse(args); err != nil {
		return nil, err
	}
	return flagSet.Args(), nil
}
