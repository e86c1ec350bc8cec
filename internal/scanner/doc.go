// Package scanner runs the ZAP scan passes against a target.
//
// Every target is scanned by up to three passes executed in a fixed order:
// the passive baseline scan, the AJAX/API scan and the full active scan.
// Each pass is one blocking container invocation that writes an HTML report
// into the target's directory, which is mounted into the container at
// /zap/wrk.
//
// The runner never panics on scanner failures. Each pass produces a
// model.PassResult and the failure policy decides whether the run goes on.
// Failures of the AJAX/API pass are never fatal.
package scanner
