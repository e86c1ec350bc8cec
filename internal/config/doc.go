// Package config provides configuration structures and utilities for zapreport.
// It defines the options for the scan runner, the archiver, the mail relay
// and the run history store, and how they are layered: built-in defaults,
// then the YAML configuration file, then environment variables, then flags.
package config
