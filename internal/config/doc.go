// SPDX-License-Identifier: MPL-2.0

// Package config handles plugload CLI configuration using Viper with CUE as
// the file format.
//
// Configuration is loaded from $XDG_CONFIG_HOME/plugload/config.cue
// (~/Library/Application Support/plugload/config.cue on macOS,
// %APPDATA%\plugload\config.cue on Windows), from ./config.cue, or from an
// explicit file. Files are validated against the embedded config_schema.cue
// before they are merged over the defaults. Every key can be overridden with
// a PLUGLOAD_ environment variable (PLUGLOAD_UI_VERBOSE=true).
package config
