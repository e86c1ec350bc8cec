package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/nao1215/zapreport/internal/model"
)

// Step defines the interface that all pipeline steps must implement.
// Steps are executed in sequence, with each step receiving the run record
// accumulated by the previous steps.
type Step interface {
	// Do executes the pipeline step.
	// Returns an error if the step fails critically; non-critical failures
	// should be recorded in the run and return nil.
	Do(ctx context.Context, run *model.Run) error

	// Name returns the step's name for logging purposes.
	Name() string
}

// Pipeline orchestrates the execution of multiple steps.
type Pipeline struct {
	// steps contains the ordered list of steps to execute.
	steps []Step

	// finally contains steps that always run after steps.
	finally []Step

	// logger is used for structured logging during execution.
	logger *slog.Logger

	// now returns the current time.
	now func() time.Time
}

// Option is a function that configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
// If not set, slog.Default() is used.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithClock replaces time.Now for the run finish time.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		p.now = now
	}
}

// New creates a new Pipeline with the given options.
// Steps should be added using AddStep after creation.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		steps:   make([]Step, 0),
		finally: make([]Step, 0),
		now:     time.Now,
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.logger == nil {
		p.logger = slog.Default()
	}

	return p
}

// AddStep appends a step to the pipeline.
// Steps are executed in the order they are added.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends multiple steps to the pipeline.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// Finally appends steps that run after the main sequence, even when it
// failed or was cancelled. They run with a context that is not cancelled
// together with ctx.
//
// Design decision: Recording the run and printing its summary are final
// steps rather than deferred calls in the command. A run stopped by the
// abort policy or by SIGINT still leaves a history row and a summary, and
// the step names end up in PerformedSteps like any other step.
func (p *Pipeline) Finally(steps ...Step) {
	p.finally = append(p.finally, steps...)
}

// Execute runs all pipeline steps in sequence.
//
// Cancellation is checked before each step; steps handle their own
// timeouts. The first failing step stops the main sequence and its error
// is returned. Finally steps never change the returned error; their
// failures are only logged.
func (p *Pipeline) Execute(ctx context.Context, run *model.Run) error {
	err := p.executeSteps(ctx, run)

	run.FinishedAt = p.now()

	finalCtx := context.WithoutCancel(ctx)
	for _, step := range p.finally {
		p.logger.Debug("executing final step", "step", step.Name(), "run", run.ID)
		if stepErr := step.Do(finalCtx, run); stepErr != nil {
			p.logger.Error("final step failed", "step", step.Name(), "run", run.ID, "error", stepErr)
		}
		run.PerformedSteps = append(run.PerformedSteps, step.Name())
	}

	return err
}

func (p *Pipeline) executeSteps(ctx context.Context, run *model.Run) error {
	for _, step := range p.steps {
		select {
		case <-ctx.Done():
			p.logger.Warn("pipeline cancelled",
				"step", step.Name(),
				"reason", ctx.Err(),
			)
			run.SetError(ctx.Err())
			return ctx.Err()
		default:
		}

		p.logger.Info("executing step", "step", step.Name(), "run", run.ID)

		if err := step.Do(ctx, run); err != nil {
			p.logger.Error("step failed",
				"step", step.Name(),
				"run", run.ID,
				"error", err,
			)

			run.SetError(err)
			run.PerformedSteps = append(run.PerformedSteps, step.Name())
			return err
		}

		p.logger.Debug("step completed", "step", step.Name(), "run", run.ID)
		run.PerformedSteps = append(run.PerformedSteps, step.Name())
	}

	return nil
}

// StepNames returns the names of all steps in execution order, final
// steps last.
func (p *Pipeline) StepNames() []string {
	names := make([]string, 0, len(p.steps)+len(p.finally))
	for _, step := range p.steps {
		names = append(names, step.Name())
	}
	for _, step := range p.finally {
		names = append(names, step.Name())
	}
	return names
}
