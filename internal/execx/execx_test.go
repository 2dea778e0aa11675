package execx

import (
	"context"
	"runtime"
	"strings"
	"testing"
)

func requireSh(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" || !LookPath("sh") {
		t.Skip("requires a POSIX shell")
	}
}

func TestRunSuccess(t *testing.T) {
	requireSh(t)
	res, err := Run(context.Background(), Cmd{Path: "sh", Args: []string{"-c", "exit 0"}})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.ExitCode != 0 {
		t.Errorf("ExitCode = %d, want 0", res.ExitCode)
	}
}

func TestRunExitCodeCaptured(t *testing.T) {
	requireSh(t)
	res, err := Run(context.Background(), Cmd{Path: "sh", Args: []string{"-c", "exit 3"}})
	if err == nil {
		t.Fatal("expected error for non-zero exit")
	}
	if res.ExitCode != 3 {
		t.Errorf("ExitCode = %d, want 3", res.ExitCode)
	}
}

func TestRunStartFailure(t *testing.T) {
	res, err := Run(context.Background(), Cmd{Path: "finpipe-no-such-binary-xyz"})
	if err == nil {
		t.Fatal("expected error for missing binary")
	}
	if res.ExitCode != -1 {
		t.Errorf("ExitCode = %d, want -1", res.ExitCode)
	}
}

func TestRunStderrTail(t *testing.T) {
	requireSh(t)
	res, err := Run(context.Background(), Cmd{Path: "sh", Args: []string{"-c", "echo boom >&2; exit 1"}})
	if err == nil {
		t.Fatal("expected error")
	}
	if want := "boom"; !strings.Contains(res.StderrTail, want) {
		t.Errorf("StderrTail = %q, want it to contain %q", res.StderrTail, want)
	}
}

func TestRunEnvInjection(t *testing.T) {
	requireSh(t)
	res, err := Run(context.Background(), Cmd{
		Path: "sh",
		Args: []string{"-c", `test "$STAGE_HINT" = selection`},
		Env:  map[string]string{"STAGE_HINT": "selection"},
	})
	if err != nil {
		t.Fatalf("Run with env: %v (exit %d)", err, res.ExitCode)
	}
}

func TestTailBufferCaps(t *testing.T) {
	tb := newTailBuffer(8)
	if _, err := tb.Write([]byte("0123456789abcdef")); err != nil {
		t.Fatal(err)
	}
	if got := tb.String(); got != "89abcdef" {
		t.Errorf("tail = %q, want %q", got, "89abcdef")
	}
}
