// Package execx runs external processes for the pipeline. Every invocation
// is reduced to a uniform Result so callers never interpret raw exit codes
// beyond zero/non-zero.
package execx

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"
)

// Cmd describes a single external invocation.
type Cmd struct {
	Path   string
	Args   []string
	Env    map[string]string // additional env vars
	Dir    string            // working directory
	Stream bool              // if true, stream stdout/err line by line
}

// Result captures the outcome of an invocation. ExitCode is -1 when the
// process could not be started at all.
type Result struct {
	ExitCode   int
	Elapsed    time.Duration
	StderrTail string
}

// tailBuffer keeps the last max bytes written to it.
type tailBuffer struct {
	mu  sync.Mutex
	buf []byte
	max int
}

func newTailBuffer(max int) *tailBuffer { return &tailBuffer{max: max} }

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf = append(t.buf, p...)
	if len(t.buf) > t.max {
		t.buf = t.buf[len(t.buf)-t.max:]
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return string(t.buf)
}

const stderrTailBytes = 4096

// Run executes c and waits for it to terminate. A non-zero exit status is
// returned as an error alongside a populated Result.
func Run(ctx context.Context, c Cmd) (Result, error) {
	cmd := exec.CommandContext(ctx, c.Path, c.Args...)
	if c.Dir != "" {
		cmd.Dir = c.Dir
	}
	// inherit environment
	cmd.Env = os.Environ()
	for k, v := range c.Env {
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, v))
	}

	tail := newTailBuffer(stderrTailBytes)
	start := time.Now()

	if c.Stream {
		stdout, err := cmd.StdoutPipe()
		if err != nil {
			return Result{ExitCode: -1}, err
		}
		stderr, err := cmd.StderrPipe()
		if err != nil {
			return Result{ExitCode: -1}, err
		}
		if err := cmd.Start(); err != nil {
			return Result{ExitCode: -1, Elapsed: time.Since(start)}, err
		}
		var wg sync.WaitGroup
		wg.Add(2)
		go func() { defer wg.Done(); stream(os.Stdout, stdout, nil) }()
		go func() { defer wg.Done(); stream(os.Stderr, stderr, tail) }()
		wg.Wait()
		err = cmd.Wait()
		return finish(err, start, tail)
	}

	cmd.Stdout = os.Stdout
	cmd.Stderr = io.MultiWriter(os.Stderr, tail)
	err := cmd.Run()
	return finish(err, start, tail)
}

func finish(err error, start time.Time, tail *tailBuffer) (Result, error) {
	res := Result{ExitCode: 0, Elapsed: time.Since(start), StderrTail: tail.String()}
	if err == nil {
		return res, nil
	}
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		res.ExitCode = ee.ExitCode()
	} else {
		res.ExitCode = -1
	}
	return res, err
}

func stream(dst io.Writer, r io.Reader, tail *tailBuffer) {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for s.Scan() {
		line := s.Text()
		fmt.Fprintln(dst, line)
		if tail != nil {
			_, _ = tail.Write(append([]byte(line), '\n'))
		}
	}
}

// LookPath reports whether the named binary is resolvable on PATH.
func LookPath(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}
