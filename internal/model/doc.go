// Package model defines the core data structures used throughout zapreport.
//
// This package contains the following main types:
//   - Target: A scan target URL and its filesystem-safe identifier
//   - PassKind: One of the three ZAP scan passes run against each target
//   - PassResult: The explicit outcome of a single scan pass invocation
//   - TargetResult: The ordered pass results of one target
//   - Run: Everything a single zapreport run produced
//
// The scanner, archive, notify, report and database packages all share
// these types. Runs serialize to JSON for the history database.
package model
