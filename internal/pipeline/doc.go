// Package pipeline runs a zapreport run as a sequence of steps.
//
// A run goes through prepare, scan, archive and notify. Each stage is a
// Step that receives the run record and adds its results to it. Steps
// registered with Finally (recording history, printing the summary) run
// after the main sequence no matter how it ended, so aborted and cancelled
// runs are still recorded.
//
// Targets are scanned by a BatchProcessor, which bounds the number of
// concurrently scanned targets with errgroup. The default of one keeps the
// run fully sequential.
package pipeline
