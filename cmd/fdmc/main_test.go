package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jwaldner/fdmc/internal/errs"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--config", filepath.Join(t.TempDir(), "none.yaml"), "--mode", "sequential"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestAnalyticCommand(t *testing.T) {
	out, err := run(t, "analytic", "--type", "call", "--strike", "100", "--maturity", "1", "--rate", "0.05", "--vol", "0.2", "--spot", "100")
	if err != nil {
		t.Fatalf("analytic: %v", err)
	}
	// 10.4506 is the textbook ATM call
	if !strings.Contains(out, "10.450") {
		t.Errorf("output:\n%s", out)
	}
}

func TestPDECommand(t *testing.T) {
	out, err := run(t, "pde", "--j", "100")
	if err != nil {
		t.Fatalf("pde: %v", err)
	}
	for _, want := range []string{"price", "closed form", "J=100", "stable: true"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}

	_, err = run(t, "pde", "--j", "200", "--n", "800", "--smax", "130")
	if !errors.Is(err, errs.ErrNumericalInstability) || exitCode(err) != 3 {
		t.Errorf("unstable grid: got %v (exit %d)", err, exitCode(err))
	}
}

func TestMCCommand(t *testing.T) {
	out, err := run(t, "mc", "--paths", "2000", "--steps", "20", "--scheme", "milstein")
	if err != nil {
		t.Fatalf("mc: %v", err)
	}
	if !strings.Contains(out, "std err") || !strings.Contains(out, "milstein") {
		t.Errorf("output:\n%s", out)
	}
}

func TestScanCommand(t *testing.T) {
	out, err := run(t, "scan", "--from", "50", "--to", "80", "--points", "4", "--j", "100")
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 5 {
		t.Errorf("want header + 4 rows, got:\n%s", out)
	}

	out, err = run(t, "scan", "--from", "50", "--to", "80", "--points", "3", "--j", "100", "--mc", "--paths", "1000")
	if err != nil {
		t.Fatalf("scan --mc: %v", err)
	}
	if !strings.Contains(out, "monte carlo") {
		t.Errorf("output:\n%s", out)
	}

	if _, err := run(t, "scan", "--points", "1"); exitCode(err) != 2 {
		t.Errorf("one point: got %v", err)
	}
}

func TestPlotCommand(t *testing.T) {
	out := filepath.Join(t.TempDir(), "put.png")
	if _, err := run(t, "plot", "--points", "21", "--j", "100", "--out", out); err != nil {
		t.Fatalf("plot: %v", err)
	}
	info, err := os.Stat(out)
	if err != nil || info.Size() == 0 {
		t.Errorf("plot file: %v", err)
	}
}

func TestBadContractExitCode(t *testing.T) {
	_, err := run(t, "analytic", "--type", "straddle")
	if !errors.Is(err, errs.ErrConfig) || exitCode(err) != 2 {
		t.Errorf("got %v (exit %d)", err, exitCode(err))
	}
	if exitCode(errors.New("boom")) != 1 {
		t.Error("unclassified error should exit 1")
	}
}
