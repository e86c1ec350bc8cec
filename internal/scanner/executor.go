package scanner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sync"
)

// maxOutputTail is how much of the scanner output is kept per pass.
const maxOutputTail = 8 * 1024

// ErrDockerNotFound is returned by Preflight when the container CLI is not on PATH.
var ErrDockerNotFound = errors.New("container CLI not found in PATH")

// Command is a single external invocation.
type Command struct {
	// Name is the executable, e.g. "docker".
	Name string

	// Args are the arguments following the executable.
	Args []string
}

// String renders the command line for logging.
func (c Command) String() string {
	var buf bytes.Buffer
	buf.WriteString(c.Name)
	for _, arg := range c.Args {
		buf.WriteByte(' ')
		buf.WriteString(arg)
	}
	return buf.String()
}

// ExecResult is what an Executor observed.
type ExecResult struct {
	// ExitCode is the process exit code. It is -1 when the process was
	// killed by a signal.
	ExitCode int

	// Output is the tail of the combined stdout and stderr.
	Output string
}

// Executor runs external commands.
// An error is returned only when the command could not be started;
// a non-zero exit code is reported through ExecResult.
type Executor interface {
	Execute(ctx context.Context, cmd Command) (ExecResult, error)
}

// DockerExecutor runs commands with os/exec.
type DockerExecutor struct{}

// NewDockerExecutor returns an Executor backed by os/exec.
func NewDockerExecutor() *DockerExecutor {
	return &DockerExecutor{}
}

// Execute runs cmd and waits for it to finish.
// Cancelling ctx kills the process.
func (e *DockerExecutor) Execute(ctx context.Context, cmd Command) (ExecResult, error) {
	out := newTailBuffer(maxOutputTail)

	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...) //nolint:gosec // command is built from validated configuration
	c.Stdout = out
	c.Stderr = out

	if err := c.Start(); err != nil {
		return ExecResult{ExitCode: -1}, fmt.Errorf("failed to start %s: %w", cmd.Name, err)
	}

	err := c.Wait()
	result := ExecResult{Output: out.String()}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		result.ExitCode = 0
	case errors.As(err, &exitErr):
		result.ExitCode = exitErr.ExitCode()
	default:
		result.ExitCode = -1
		return result, fmt.Errorf("failed to wait for %s: %w", cmd.Name, err)
	}
	return result, nil
}

// Preflight checks that the container CLI can be found and returns its path.
func Preflight(binary string) (string, error) {
	path, err := exec.LookPath(binary)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrDockerNotFound, binary)
	}
	return path, nil
}

// tailBuffer keeps the last max bytes written to it.
// It is safe for concurrent writes from stdout and stderr.
//
// Design decision: A full scan prints progress for hours. Only the end of
// the output explains a failure, so memory stays bounded per pass and the
// tail is what lands in PassResult.Output and the history database.
type tailBuffer struct {
	mu        sync.Mutex
	buf       []byte
	max       int
	truncated bool
}

func newTailBuffer(maxBytes int) *tailBuffer {
	return &tailBuffer{max: maxBytes}
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.buf = append(t.buf, p...)
	if over := len(t.buf) - t.max; over > 0 {
		t.buf = append(t.buf[:0], t.buf[over:]...)
		t.truncated = true
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.truncated {
		return "...\n" + string(t.buf)
	}
	return string(t.buf)
}
