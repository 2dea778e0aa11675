package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog"

	"finpipe/internal/execx"
)

// Totals is the run accumulator: wall-clock elapsed and estimated cost.
// It is threaded through stage execution as a value, never held as
// package state.
type Totals struct {
	Elapsed time.Duration
	CostUSD float64
}

// Add returns t with one stage's duration and cost folded in.
func (t Totals) Add(d time.Duration, cost float64) Totals {
	return Totals{Elapsed: t.Elapsed + d, CostUSD: t.CostUSD + cost}
}

// StageResult records one executed stage for the summary and observers.
type StageResult struct {
	Label    string
	Title    string
	ExitCode int
	Duration time.Duration
	CostUSD  float64
}

var (
	stageStart = color.New(color.FgCyan)
	stageOK    = color.New(color.FgGreen)
	stageFail  = color.New(color.FgRed, color.Bold)
)

// Runner executes a plan's stages sequentially. Each stage is an
// independent external process; the first non-zero exit aborts the run.
type Runner struct {
	Log zerolog.Logger

	// Exec performs a single invocation. Defaults to execx.Run; tests
	// substitute a fake.
	Exec func(context.Context, execx.Cmd) (execx.Result, error)

	// Observe, when set, receives every completed stage result (batch
	// mode feeds metrics through this).
	Observe func(StageResult)

	// PythonBin launches each stage script. Defaults to python3.
	PythonBin string

	// Stream mirrors stage output live instead of only on failure.
	Stream bool
}

// Run executes every stage of plan in order, threading the accumulator.
// It returns the updated totals, the per-stage results for all stages
// that ran, and the first failure (if any). No stage after a failure is
// invoked and no prior artifact is cleaned up.
func (r *Runner) Run(ctx context.Context, plan Plan, tot Totals) (Totals, []StageResult, error) {
	exec := r.Exec
	if exec == nil {
		exec = execx.Run
	}
	python := r.PythonBin
	if python == "" {
		python = "python3"
	}

	results := make([]StageResult, 0, len(plan.Stages))
	for _, st := range plan.Stages {
		stageStart.Printf("→ Stage %s: %s\n", st.Label, st.Title)
		r.Log.Info().
			Str("stage", st.Label).
			Str("script", st.Script).
			Str("doc", plan.Artifacts.DocID).
			Msg("stage starting")

		res, err := exec(ctx, execx.Cmd{
			Path:   python,
			Args:   append([]string{st.Script}, st.Args...),
			Stream: r.Stream,
		})

		sr := StageResult{
			Label:    st.Label,
			Title:    st.Title,
			ExitCode: res.ExitCode,
			Duration: res.Elapsed,
			CostUSD:  st.CostUSD,
		}
		if err != nil {
			sr.CostUSD = 0
			results = append(results, sr)
			if r.Observe != nil {
				r.Observe(sr)
			}
			stageFail.Printf("✗ Stage %s failed (exit code %d)\n", st.Label, res.ExitCode)
			if res.StderrTail != "" {
				fmt.Print(res.StderrTail)
			}
			r.Log.Error().
				Str("stage", st.Label).
				Int("exit_code", res.ExitCode).
				Dur("elapsed", res.Elapsed).
				Msg("stage failed, aborting run")
			return tot.Add(res.Elapsed, 0), results, ErrStageFailed(st.Label, st.Title, res.ExitCode)
		}

		tot = tot.Add(res.Elapsed, st.CostUSD)
		results = append(results, sr)
		if r.Observe != nil {
			r.Observe(sr)
		}
		stageOK.Printf("✓ Stage %s complete (%s)\n", st.Label, res.Elapsed.Round(time.Millisecond))
		r.Log.Info().
			Str("stage", st.Label).
			Dur("elapsed", res.Elapsed).
			Float64("cost_usd", st.CostUSD).
			Msg("stage complete")
	}
	return tot, results, nil
}
