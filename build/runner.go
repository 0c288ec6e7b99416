package build

import (
	"context"
	"io"
	"os/exec"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/teranos/dossier/errors"
	"github.com/teranos/dossier/logger"
)

// Runner executes the toolchain for one project
type Runner interface {
	Run(ctx context.Context, dir string, argv []string) error
}

// tailLines is how much toolchain output is attached to a failure
const tailLines = 20

// ExecRunner runs the toolchain as a child process with its working directory set to
// the project. Output goes to the logger at debug level and, if set, to Output.
type ExecRunner struct {
	Logger *zap.SugaredLogger
	Output io.Writer
}

func (r *ExecRunner) Run(ctx context.Context, dir string, argv []string) error {
	if len(argv) == 0 {
		return errors.New("empty command")
	}

	out := &outputLogger{logger: r.Logger, dir: dir}
	var w io.Writer = out
	if r.Output != nil {
		w = io.MultiWriter(out, r.Output)
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = dir
	cmd.Stdout = w
	cmd.Stderr = w

	err := cmd.Run()
	out.flush()
	if err == nil {
		return nil
	}

	command := strings.Join(argv, " ")
	code := -1
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		code = exitErr.ExitCode()
	}
	if r.Logger != nil {
		r.Logger.Debugw("Toolchain exited with error",
			logger.FieldDir, dir,
			logger.FieldCommand, command,
			logger.FieldExitCode, code)
	}

	err = errors.Wrapf(err, "%s", command)
	if code >= 0 {
		err = errors.WithDetailf(err, "exit code %d", code)
	}
	if tail := out.tail(); len(tail) > 0 {
		err = errors.WithDetail(err, strings.Join(tail, "\n"))
	}
	return err
}

// outputLogger logs toolchain output line by line and keeps the last lines for
// failure reports
type outputLogger struct {
	logger *zap.SugaredLogger
	dir    string

	mu    sync.Mutex
	buf   strings.Builder
	lines []string
}

func (l *outputLogger) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.buf.Write(p)
	for {
		line, rest, found := strings.Cut(l.buf.String(), "\n")
		if !found {
			break
		}
		l.buf.Reset()
		l.buf.WriteString(rest)
		l.record(line)
	}
	return len(p), nil
}

func (l *outputLogger) flush() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.buf.Len() > 0 {
		l.record(l.buf.String())
		l.buf.Reset()
	}
}

func (l *outputLogger) record(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	if l.logger != nil {
		l.logger.Debugw("Toolchain output", logger.FieldDir, l.dir, "message", line)
	}
	l.lines = append(l.lines, line)
	if len(l.lines) > tailLines {
		l.lines = l.lines[len(l.lines)-tailLines:]
	}
}

func (l *outputLogger) tail() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.lines...)
}
