// Package app defines application-wide types, constants, and context
// that are shared across multiple commands.
package app

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"os"
	"path/filepath"
)

// Name is the name of the application executable.
var Name = filepath.Base(os.Args[0])

// Context represents the application context that can be accessed from all commands.
type Context struct {
	Timestamp   string // Timestamp is the timestamp when the application was started.
	OutputDir   string // OutputDir is the directory where the application will write output files.
	LogFilePath string // LogFilePath is the path to the log file.
	Version     string // Version is the version of the application.
	Debug       bool   // Debug is true if the application is running in debug mode.
}

// Flag names for output flags used by reporting commands.
const (
	FlagFormatName      = "format"
	FlagInteractiveName = "interactive"
)

// Global flag variables for reporting commands.
var (
	FlagFormat      []string
	FlagInteractive bool
)

// Flag names for flags defined in the root command, but sometimes used in other commands.
const (
	FlagDebugName     = "debug"
	FlagSyslogName    = "syslog"
	FlagLogStdOutName = "log-stdout"
	FlagOutputDirName = "output"
)

// Flag represents a command-line flag with its name and help text.
type Flag struct {
	Name string
	Help string
}

// FlagGroup represents a group of related flags with a group name.
type FlagGroup struct {
	GroupName string
	Flags     []Flag
}
